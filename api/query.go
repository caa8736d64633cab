package api

import (
	"fmt"
	"strconv"
	"strings"
)

// RuleAction is the comparison a Rule applies to a node property.
type RuleAction int

const (
	Equals RuleAction = iota + 1
	Contains
)

func (a RuleAction) String() string {
	switch a {
	case Equals:
		return "equals"
	case Contains:
		return "contains"
	default:
		return "invalid"
	}
}

func (a RuleAction) MarshalText() ([]byte, error) {
	if a != Equals && a != Contains {
		return nil, fmt.Errorf("%w: rule action %d", ErrInvalidConfig, int(a))
	}
	return []byte(a.String()), nil
}

func (a *RuleAction) UnmarshalText(b []byte) error {
	switch string(b) {
	case "equals":
		*a = Equals
	case "contains":
		*a = Contains
	default:
		return fmt.Errorf("%w: unknown rule action %q (want equals|contains)", ErrInvalidConfig, string(b))
	}
	return nil
}

// Rule matches a node if any of its keys resolves to a property value that
// satisfies Action against Value, case-insensitively.
type Rule struct {
	Keys   []string   `json:"keys" yaml:"keys"`
	Action RuleAction `json:"action" yaml:"action"`
	Value  string     `json:"value" yaml:"value"`
}

// QueryGroup is a named AND of rules.
type QueryGroup struct {
	Name  string `json:"name" yaml:"name"`
	Rules []Rule `json:"queries" yaml:"queries"`
}

// QueryGroups is an ordered group configuration.
type QueryGroups []QueryGroup

// Names returns the group names in declared order.
func (gs QueryGroups) Names() []string {
	names := make([]string, len(gs))
	for i, g := range gs {
		names[i] = g.Name
	}
	return names
}

// Has reports whether a group with the given name is configured.
func (gs QueryGroups) Has(name string) bool {
	for _, g := range gs {
		if g.Name == name {
			return true
		}
	}
	return false
}

// Validate checks names are present and unique and every rule is usable.
func (gs QueryGroups) Validate(path string) error {
	seen := make(map[string]bool, len(gs))
	for i, g := range gs {
		gp := fmt.Sprintf("%s[%d]", path, i)
		if strings.TrimSpace(g.Name) == "" {
			return &ConfigError{Path: gp + ".name", Msg: "group name is required"}
		}
		if seen[g.Name] {
			return &ConfigError{Path: gp + ".name", Msg: fmt.Sprintf("duplicate group name %q", g.Name)}
		}
		seen[g.Name] = true
		for j, r := range g.Rules {
			rp := fmt.Sprintf("%s.queries[%d]", gp, j)
			if len(r.Keys) == 0 {
				return &ConfigError{Path: rp + ".keys", Msg: "at least one key is required"}
			}
			for k, key := range r.Keys {
				if key == "" {
					return &ConfigError{Path: fmt.Sprintf("%s.keys[%d]", rp, k), Msg: "empty key"}
				}
			}
			if r.Action != Equals && r.Action != Contains {
				return &ConfigError{Path: rp + ".action", Msg: "action is required (equals|contains)"}
			}
		}
	}
	return nil
}

// StepKind selects how a PathStep narrows the current value.
type StepKind int

const (
	Get StepKind = iota + 1
	First
	Last
	ItemAt
)

// StepAction is a StepKind plus the index for ItemAt.
type StepAction struct {
	Kind  StepKind
	Index int
}

func (a StepAction) String() string {
	switch a.Kind {
	case Get:
		return "get"
	case First:
		return "first"
	case Last:
		return "last"
	case ItemAt:
		return "item_" + strconv.Itoa(a.Index)
	default:
		return "invalid"
	}
}

func (a StepAction) MarshalText() ([]byte, error) {
	if a.Kind < Get || a.Kind > ItemAt {
		return nil, fmt.Errorf("%w: step action %d", ErrInvalidConfig, int(a.Kind))
	}
	return []byte(a.String()), nil
}

const itemPrefix = "item_"

func (a *StepAction) UnmarshalText(b []byte) error {
	s := string(b)
	switch s {
	case "get":
		*a = StepAction{Kind: Get}
	case "first":
		*a = StepAction{Kind: First}
	case "last":
		*a = StepAction{Kind: Last}
	default:
		if !strings.HasPrefix(s, itemPrefix) {
			return fmt.Errorf("%w: unknown step action %q (want get|first|last|item_<N>)", ErrInvalidConfig, s)
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(s, itemPrefix))
		if err != nil || idx < 0 {
			return fmt.Errorf("%w: bad item index in %q", ErrInvalidConfig, s)
		}
		*a = StepAction{Kind: ItemAt, Index: idx}
	}
	return nil
}

// Where filters list elements: element[Key] must equal Value, ignoring case.
type Where struct {
	Key   string
	Value string
}

// PathStep is one navigation step over a Document.
type PathStep struct {
	Key    string
	Action StepAction
	Where  *Where
}

// PathExpression is evaluated left to right; any failed step fails the whole path.
type PathExpression []PathStep

// Field is one output key of an ExtractionSpec with its fallback paths.
type Field struct {
	Key          string
	Alternatives []PathExpression
}

// ExtractionSpec maps output keys, in declared order, to alternative paths.
// Keys sharing a prefix before '.' are assembled into one nested object.
type ExtractionSpec struct {
	Fields []Field
}

// Validate checks output keys are present and unique and steps are complete.
func (s *ExtractionSpec) Validate(path string) error {
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		fp := path + "." + f.Key
		if f.Key == "" {
			return &ConfigError{Path: path, Msg: "empty output key"}
		}
		if seen[f.Key] {
			return &ConfigError{Path: fp, Msg: "duplicate output key"}
		}
		seen[f.Key] = true
		for i, alt := range f.Alternatives {
			for j, step := range alt {
				sp := fmt.Sprintf("%s[%d][%d]", fp, i, j)
				if step.Key == "" {
					return &ConfigError{Path: sp + ".key", Msg: "step key is required"}
				}
				if step.Action.Kind == 0 {
					return &ConfigError{Path: sp + ".action", Msg: "step action is required"}
				}
				if step.Where != nil && step.Where.Key == "" {
					return &ConfigError{Path: sp + ".where", Msg: "where key must not be empty"}
				}
			}
		}
	}
	return nil
}
