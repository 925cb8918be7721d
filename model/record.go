package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/mnemo-ai/mnemo/helper"
)

// Record is the full JSONB payload of one entity in the system-of-record.
type Record map[string]interface{}

// Value implements the driver.Valuer interface for database storage.
func (r Record) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements the sql.Scanner interface for database retrieval.
func (r *Record) Scan(value interface{}) error {
	if value == nil {
		*r = Record{}
		return nil
	}

	if v, ok := value.(Record); ok {
		*r = v
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	return json.Unmarshal(b, r)
}
