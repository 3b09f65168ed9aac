package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap is a free-form key/value payload stored as a JSON TEXT column.
// Step progress uses it for feedback, user actions, step results, errors
// and achievement data.
type JSONMap map[string]interface{}

// Value implements driver.Valuer so sqlx can write the map as JSON text
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json map: %v", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner for reading the JSON text back
func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for json map: %T", src)
	}

	if len(data) == 0 {
		*m = nil
		return nil
	}

	return json.Unmarshal(data, m)
}
