// Package mlflowapi defines the JSON messages exchanged with the MLflow
// tracking REST API.
//
// Field names follow the REST API exactly. POST requests are encoded with
// their json tags; GET requests are encoded as query strings with their url
// tags.
package mlflowapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Int64 is an integer field that is written as a JSON number but accepted
// as either a number or a numeric string. Servers differ on how they
// render 64-bit values such as millisecond timestamps.
type Int64 int64

// MarshalJSON writes the value as a JSON number.
func (i Int64) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(i), 10), nil
}

// UnmarshalJSON reads the value from a JSON number or a quoted integer.
func (i *Int64) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("mlflowapi: invalid integer %s: %w", b, err)
	}
	*i = Int64(v)
	return nil
}
