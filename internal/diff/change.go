package diff

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/five82/hostdiff/internal/snapshot"
)

// Value is one side of a field change. Present is false when the field does
// not exist on that side, which is distinct from a present null.
type Value struct {
	Present bool
	Data    any
}

// Absent marks a field missing from one side of a comparison.
var Absent = Value{}

// ValueOf wraps a present field value.
func ValueOf(v any) Value {
	return Value{Present: true, Data: v}
}

func (v Value) String() string {
	if !v.Present {
		return "<absent>"
	}
	raw, err := json.Marshal(v.Data)
	if err != nil {
		return fmt.Sprintf("%v", v.Data)
	}
	return string(raw)
}

// FieldChange records the before and after values of one changed field.
type FieldChange struct {
	Before Value
	After  Value
}

// MarshalJSON encodes {"before": ..., "after": ...}, omitting the key of an
// absent side.
func (c FieldChange) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	wrote := false
	for _, side := range []struct {
		name string
		val  Value
	}{{"before", c.Before}, {"after", c.After}} {
		if !side.val.Present {
			continue
		}
		raw, err := json.Marshal(side.val.Data)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", side.name, err)
		}
		if wrote {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:", side.name)
		buf.Write(raw)
		wrote = true
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores absent sides from missing keys.
func (c *FieldChange) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	before, err := decodeValue(raw, "before")
	if err != nil {
		return err
	}
	after, err := decodeValue(raw, "after")
	if err != nil {
		return err
	}
	*c = FieldChange{Before: before, After: after}
	return nil
}

func decodeValue(raw map[string]json.RawMessage, key string) (Value, error) {
	msg, ok := raw[key]
	if !ok {
		return Absent, nil
	}
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Value{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return ValueOf(v), nil
}

// MarshalJSON always encodes the three lists as arrays.
func (r Result) MarshalJSON() ([]byte, error) {
	type wire Result
	out := wire(r)
	if out.Added == nil {
		out.Added = []snapshot.Service{}
	}
	if out.Removed == nil {
		out.Removed = []snapshot.Service{}
	}
	if out.Modified == nil {
		out.Modified = []Modification{}
	}
	return json.Marshal(out)
}
