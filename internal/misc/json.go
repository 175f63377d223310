package misc

import (
	"bytes"
	"encoding/json"
)

// StrictUnmarshalJSON is json.Unmarshal with unknown fields rejected and
// numbers decoded as json.Number.
func StrictUnmarshalJSON(raw []byte, v interface{}) error {
	d := json.NewDecoder(bytes.NewReader(raw))
	d.DisallowUnknownFields()
	d.UseNumber()
	return d.Decode(v)
}
