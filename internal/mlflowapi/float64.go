package mlflowapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Float64 is a metric value. JSON has no literal for NaN or the
// infinities, so those are written as the strings "NaN", "Infinity" and
// "-Infinity", which is how MLflow servers render them. Finite values are
// plain numbers.
type Float64 float64

// MarshalJSON writes finite values as numbers and non-finite values as
// strings.
func (f Float64) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON reads a JSON number or a quoted number, including the
// quoted non-finite forms.
func (f *Float64) UnmarshalJSON(b []byte) error {
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
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("mlflowapi: invalid number %s: %w", b, err)
	}
	*f = Float64(v)
	return nil
}
