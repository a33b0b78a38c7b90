package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// IDPath is the materialized path of a directory: the ordered ancestor
// directory ids from the root down to the immediate parent. It is stored as a
// JSON array so child paths can be derived without recursive parent lookups.
type IDPath []string

func (p IDPath) Value() (driver.Value, error) {
	if p == nil {
		p = IDPath{}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *IDPath) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = IDPath{}
		return nil
	case string:
		return json.Unmarshal([]byte(v), p)
	case []byte:
		return json.Unmarshal(v, p)
	default:
		return fmt.Errorf("cannot scan %T into IDPath", src)
	}
}

// Child returns the path of a directory created under the parent that owns
// this path: path(parent) + [parentID].
func (p IDPath) Child(parentID string) IDPath {
	child := make(IDPath, 0, len(p)+1)
	child = append(child, p...)
	return append(child, parentID)
}
