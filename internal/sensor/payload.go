// Package sensor stores the latest telemetry reading per device and exposes
// it for prompt composition. Readings are free-form JSON objects; the store
// keeps exactly one (the most recent) per device ID.
package sensor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Field is a single key/value pair from a sensor reading.
type Field struct {
	Key   string
	Value any
}

// Payload is a sensor reading decoded from JSON. Unlike a plain map it
// preserves the key order of the original document, so renderings of the
// same stored reading are always identical.
type Payload struct {
	fields []Field
}

// NewPayload constructs a Payload from an ordered list of fields.
// Duplicate keys keep the last value but retain the first key's position.
func NewPayload(fields ...Field) *Payload {
	p := &Payload{}
	for _, f := range fields {
		p.set(f.Key, f.Value)
	}
	return p
}

// Fields returns the payload's fields in original document order.
func (p *Payload) Fields() []Field {
	if p == nil {
		return nil
	}
	return p.fields
}

// Len returns the number of fields.
func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.fields)
}

func (p *Payload) set(key string, value any) {
	for i := range p.fields {
		if p.fields[i].Key == key {
			p.fields[i].Value = value
			return
		}
	}
	p.fields = append(p.fields, Field{Key: key, Value: value})
}

// UnmarshalJSON decodes a JSON object, preserving key order. Numbers are
// kept as [json.Number] so their textual form survives a round trip
// (e.g. "6.4" never becomes "6.400000000000001"). Nested objects and
// arrays are retained as raw decoded values.
func (p *Payload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("sensor: decode payload: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("sensor: payload must be a JSON object")
	}

	p.fields = nil
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("sensor: decode payload key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("sensor: payload key is not a string")
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("sensor: decode payload value for %q: %w", key, err)
		}
		p.set(key, value)
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("sensor: decode payload: %w", err)
	}
	return nil
}

// MarshalJSON encodes the payload as a JSON object with keys in original
// document order.
func (p *Payload) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, fmt.Errorf("sensor: encode payload key %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("sensor: encode payload value for %q: %w", f.Key, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Lines renders each field as "key: value", one per line, in document order.
// This is the form embedded in the composed prompt.
func (p *Payload) Lines() []string {
	if p == nil {
		return nil
	}
	lines := make([]string, 0, len(p.fields))
	for _, f := range p.fields {
		lines = append(lines, fmt.Sprintf("%s: %s", f.Key, renderValue(f.Value)))
	}
	return lines
}

// renderValue formats a decoded JSON value for prompt display.
// Scalars render bare; composite values fall back to compact JSON.
func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return fmt.Sprintf("%t", x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}

// String renders the payload as its prompt form, fields joined by newlines.
func (p *Payload) String() string {
	return strings.Join(p.Lines(), "\n")
}
