package validation

import (
	"errors"
	"strings"
)

// ValidateName validates a directory or file name
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return errors.New("name is required")
	}

	if len(trimmed) > 255 {
		return errors.New("name is too long (max 255 characters)")
	}

	if strings.ContainsAny(trimmed, "/\x00") {
		return errors.New("name contains invalid characters")
	}

	return nil
}
