package ltc

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
)

// Payload is an opaque, order-preserving map of caller-supplied fields.
// The shapes of inputs and outputs are defined by the callers' policies,
// not by this package; keys keep their insertion order through JSON
// round trips so stored bytes stay reproducible.
type Payload struct {
	keys   []string
	values map[string]interface{}
}

// NewPayload produces an empty, non-nil payload.
func NewPayload() Payload {
	return Payload{values: make(map[string]interface{})}
}

// PayloadFrom builds a payload from m, ordering keys lexicographically.
func PayloadFrom(m map[string]interface{}) Payload {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := NewPayload()
	for _, k := range keys {
		p.Set(k, m[k])
	}
	return p
}

// Set assigns val to key, appending the key if it is new
// and keeping its position if it is not.
func (p *Payload) Set(key string, val interface{}) {
	if p.values == nil {
		p.values = make(map[string]interface{})
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = val
}

// Get returns the value for key.
func (p Payload) Get(key string) (interface{}, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Keys returns the payload's keys in insertion order.
func (p Payload) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

func (p Payload) Len() int {
	return len(p.keys)
}

// IsZero reports whether the payload was never populated.
// An explicitly empty payload (NewPayload) is not zero.
func (p Payload) IsZero() bool {
	return p.values == nil
}

// Clone returns a deep copy of p. Nested objects and arrays are copied;
// scalar values are shared.
func (p Payload) Clone() Payload {
	if p.values == nil {
		return Payload{}
	}
	out := NewPayload()
	for _, k := range p.keys {
		out.Set(k, cloneValue(p.values[k]))
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, nested := range val {
			m[k] = cloneValue(nested)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(val))
		for i, nested := range val {
			s[i] = cloneValue(nested)
		}
		return s
	default:
		return v
	}
}

// Equal reports whether p and q marshal to the same JSON.
func (p Payload) Equal(q Payload) bool {
	pb, err := json.Marshal(p)
	if err != nil {
		return false
	}
	qb, err := json.Marshal(q)
	if err != nil {
		return false
	}
	return bytes.Equal(pb, qb)
}

// MarshalJSON emits the payload as a JSON object in insertion order.
func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, errors.Wrapf(err, "marshaling key %q", k)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(p.values[k])
		if err != nil {
			return nil, errors.Wrapf(err, "marshaling value of %q", k)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving document key order.
// Numbers decode as json.Number so their stored text survives
// re-serialization unchanged.
func (p *Payload) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "reading payload open brace")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("payload is not a JSON object")
	}

	out := NewPayload()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, "reading payload key")
		}
		key, ok := tok.(string)
		if !ok {
			return errors.New("payload key is not a string")
		}
		var val interface{}
		err = dec.Decode(&val)
		if err != nil {
			return errors.Wrapf(err, "decoding value of %q", key)
		}
		out.Set(key, val)
	}

	_, err = dec.Token() // closing brace
	if err != nil {
		return errors.Wrap(err, "reading payload close brace")
	}

	*p = out
	return nil
}
