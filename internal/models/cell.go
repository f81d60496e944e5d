package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// Cell holds a loosely typed source value. JSON strings, numbers and booleans are kept
// as their textual form; null and missing keys leave the cell invalid.
type Cell struct {
	String string
	Valid  bool
}

// NewCell returns a valid cell holding value.
func NewCell(value string) Cell {
	return Cell{String: value, Valid: true}
}

// Ptr returns the cell value or nil when the cell is absent.
func (c Cell) Ptr() *string {
	if !c.Valid {
		return nil
	}
	v := c.String
	return &v
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Cell{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = NewCell(s)
	case '{', '[':
		return fmt.Errorf("cell must be a scalar, got %s", string(data[:1]))
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*c = NewCell(strconv.FormatBool(b))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*c = NewCell(n.String())
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.String)
}

// Scan implements sql.Scanner.
func (c *Cell) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = Cell{}
	case string:
		*c = NewCell(v)
	case []byte:
		*c = NewCell(string(v))
	case int64:
		*c = NewCell(strconv.FormatInt(v, 10))
	case float64:
		*c = NewCell(strconv.FormatFloat(v, 'f', -1, 64))
	case bool:
		*c = NewCell(strconv.FormatBool(v))
	default:
		return fmt.Errorf("unsupported cell source %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (c Cell) Value() (driver.Value, error) {
	if !c.Valid {
		return nil, nil
	}
	return c.String, nil
}
