// Package document defines the generic value space produced by tree
// serialization and consumed and produced by path extraction.
package document

import (
	"bytes"
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Document is one of Null, String, List or *Map. A nil Document means
// "absent" and is treated the same as Null by every consumer.
type Document interface {
	isDocument()
}

// Null is an explicit JSON null.
type Null struct{}

// String is a scalar value.
type String string

// List is an ordered sequence of documents.
type List []Document

// Map is an insertion-ordered mapping with unique keys.
type Map struct {
	pairs *orderedmap.OrderedMap[string, Document]
}

func (Null) isDocument()   {}
func (String) isDocument() {}
func (List) isDocument()   {}
func (*Map) isDocument()   {}

// NewMap returns an empty mapping.
func NewMap() *Map {
	return &Map{pairs: orderedmap.New[string, Document]()}
}

// Set stores v under k. Re-setting an existing key keeps its position.
// A nil v is stored as Null.
func (m *Map) Set(k string, v Document) {
	if v == nil {
		v = Null{}
	}
	m.pairs.Set(k, v)
}

// Get looks up k.
func (m *Map) Get(k string) (Document, bool) {
	if m == nil {
		return nil, false
	}
	return m.pairs.Get(k)
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return m.pairs.Len()
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, m.pairs.Len())
	for p := m.pairs.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// IsNull reports whether d is absent or an explicit Null.
func IsNull(d Document) bool {
	if d == nil {
		return true
	}
	_, ok := d.(Null)
	return ok
}

// AsString returns the scalar value of d, if d is a String.
func AsString(d Document) (string, bool) {
	s, ok := d.(String)
	return string(s), ok
}

func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

func (l List) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, item := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeTo(&buf, item); err != nil {
			return nil, err
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if m != nil {
		first := true
		for p := m.pairs.Oldest(); p != nil; p = p.Next() {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			if err := encodeTo(&buf, String(p.Key)); err != nil {
				return nil, err
			}
			buf.WriteByte(':')
			if err := encodeTo(&buf, p.Value); err != nil {
				return nil, err
			}
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Marshal encodes d as compact JSON. Absent documents encode as null.
func Marshal(d Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeTo(&buf, d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalIndent is Marshal with indentation, for human-facing output.
func MarshalIndent(d Document) ([]byte, error) {
	raw, err := Marshal(d)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func encodeTo(buf *bytes.Buffer, d Document) error {
	switch v := d.(type) {
	case nil, Null:
		buf.WriteString("null")
	case String:
		enc := json.NewEncoder(buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(string(v)); err != nil {
			return err
		}
		// Encoder appends a newline.
		buf.Truncate(buf.Len() - 1)
	case List:
		raw, err := v.MarshalJSON()
		if err != nil {
			return err
		}
		buf.Write(raw)
	case *Map:
		raw, err := v.MarshalJSON()
		if err != nil {
			return err
		}
		buf.Write(raw)
	}
	return nil
}
