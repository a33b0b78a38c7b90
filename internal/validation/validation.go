package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates a request payload struct against its `validate` tags and
// returns a single human-readable error for the first failing field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Errorf("%s is required", strings.ToLower(fe.Field()))
		case "max":
			return fmt.Errorf("%s is too long (max %s)", strings.ToLower(fe.Field()), fe.Param())
		case "min":
			return fmt.Errorf("%s is too short (min %s)", strings.ToLower(fe.Field()), fe.Param())
		default:
			return fmt.Errorf("%s is invalid", strings.ToLower(fe.Field()))
		}
	}

	return err
}
