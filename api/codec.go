package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// rawStep is the wire form of a PathStep: where/value are flat siblings.
type rawStep struct {
	Key    *string     `json:"key" yaml:"key"`
	Action *StepAction `json:"action" yaml:"action"`
	Where  *string     `json:"where,omitempty" yaml:"where,omitempty"`
	Value  *string     `json:"value,omitempty" yaml:"value,omitempty"`
}

func (r rawStep) step() (PathStep, error) {
	if r.Key == nil {
		return PathStep{}, &ConfigError{Path: "step.key", Msg: "missing"}
	}
	if r.Action == nil {
		return PathStep{}, &ConfigError{Path: "step.action", Msg: "missing"}
	}
	s := PathStep{Key: *r.Key, Action: *r.Action}
	switch {
	case r.Where != nil && r.Value != nil:
		s.Where = &Where{Key: *r.Where, Value: *r.Value}
	case r.Where != nil || r.Value != nil:
		return PathStep{}, &ConfigError{Path: "step.where", Msg: "where and value must be given together"}
	}
	return s, nil
}

func (s *PathStep) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var raw rawStep
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("%w: path step: %v", ErrInvalidConfig, err)
	}
	step, err := raw.step()
	if err != nil {
		return err
	}
	*s = step
	return nil
}

func (s PathStep) MarshalJSON() ([]byte, error) {
	raw := rawStep{Key: &s.Key, Action: &s.Action}
	if s.Where != nil {
		raw.Where = &s.Where.Key
		raw.Value = &s.Where.Value
	}
	return json.Marshal(raw)
}

var stepFields = map[string]bool{"key": true, "action": true, "where": true, "value": true}

func (s *PathStep) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return &ConfigError{Path: fmt.Sprintf("line %d", node.Line), Msg: "path step must be a mapping"}
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i].Value, node.Content[i+1]
		if !stepFields[k] {
			return &ConfigError{Path: fmt.Sprintf("line %d", node.Content[i].Line), Msg: fmt.Sprintf("unknown path step field %q", k)}
		}
		if v.Kind != yaml.ScalarNode || v.ShortTag() != "!!str" {
			return &ConfigError{Path: fmt.Sprintf("line %d", v.Line), Msg: fmt.Sprintf("path step field %q must be a string", k)}
		}
	}
	var raw rawStep
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("%w: path step: %v", ErrInvalidConfig, err)
	}
	step, err := raw.step()
	if err != nil {
		return err
	}
	*s = step
	return nil
}

// UnmarshalJSON accepts the one-element array form used by extraction
// configs, or the bare object. Output key order is preserved and a key
// may appear only once.
func (s *ExtractionSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var objs []json.RawMessage
		if err := json.Unmarshal(data, &objs); err != nil {
			return fmt.Errorf("%w: extraction spec: %v", ErrInvalidConfig, err)
		}
		if len(objs) != 1 {
			return &ConfigError{Path: "extraction", Msg: fmt.Sprintf("expected exactly one object, got %d", len(objs))}
		}
		data = bytes.TrimSpace(objs[0])
	}
	if len(data) == 0 || data[0] != '{' {
		return &ConfigError{Path: "extraction", Msg: "expected an object of output keys"}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: extraction spec: %v", ErrInvalidConfig, err)
	}
	var fields []Field
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: extraction spec: %v", ErrInvalidConfig, err)
		}
		key, _ := tok.(string)
		if seen[key] {
			return &ConfigError{Path: "extraction." + key, Msg: "duplicate output key"}
		}
		seen[key] = true
		var alts []PathExpression
		if err := dec.Decode(&alts); err != nil {
			return fmt.Errorf("%w: extraction.%s: %v", ErrInvalidConfig, key, err)
		}
		fields = append(fields, Field{Key: key, Alternatives: alts})
	}
	s.Fields = fields
	return s.Validate("extraction")
}

func (s ExtractionSpec) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range s.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		alts := f.Alternatives
		if alts == nil {
			alts = []PathExpression{}
		}
		v, err := json.Marshal(alts)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *ExtractionSpec) UnmarshalYAML(node *yaml.Node) error {
	n := node
	if n.Kind == yaml.SequenceNode {
		if len(n.Content) != 1 {
			return &ConfigError{Path: fmt.Sprintf("line %d", n.Line), Msg: fmt.Sprintf("expected exactly one object, got %d", len(n.Content))}
		}
		n = n.Content[0]
	}
	if n.Kind != yaml.MappingNode {
		return &ConfigError{Path: fmt.Sprintf("line %d", n.Line), Msg: "expected a mapping of output keys"}
	}
	fields := make([]Field, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		var alts []PathExpression
		if err := n.Content[i+1].Decode(&alts); err != nil {
			return fmt.Errorf("%w: extraction.%s: %v", ErrInvalidConfig, key, err)
		}
		fields = append(fields, Field{Key: key, Alternatives: alts})
	}
	s.Fields = fields
	return s.Validate("extraction")
}
