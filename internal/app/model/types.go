package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringMap stores a flat string map as a JSON document
type StringMap map[string]string

func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("failed to scan StringMap")
	}

	return json.Unmarshal(raw, m)
}
