package api

import (
	"fmt"
	"strings"
)

// Profile is the root configuration for one host application.
// It maps the application's screens to the data extracted from them.
type Profile struct {
	// App is the short application name emitted in every payload.
	App string `json:"app" yaml:"app"`
	// Packages are the host package names this profile handles.
	Packages []string `json:"packages" yaml:"packages"`
	// Screens are tried in order; the first whose Validate groups all match wins.
	Screens []Screen `json:"screens" yaml:"screens"`
}

// Screen classifies a tree and describes what to pull out of it.
type Screen struct {
	Name string `json:"name" yaml:"name"`
	// Validate groups must each match at least one node for the screen to apply.
	Validate QueryGroups `json:"validate" yaml:"validate"`
	// Root is an optional child-index path to the subtree everything else reads from.
	Root []int `json:"root,omitempty" yaml:"root,omitempty"`
	// Fields are scalar values read from fixed child-index paths under Root.
	Fields []NodeField `json:"fields,omitempty" yaml:"fields,omitempty"`
	// Items turns the direct children of an anchor node into a list.
	Items *Items `json:"items,omitempty" yaml:"items,omitempty"`
}

// NodeField reads the text (or content description) of the node at Path.
type NodeField struct {
	Name string `json:"name" yaml:"name"`
	Path []int  `json:"path" yaml:"path"`
}

// Items describes a repeated region of the screen.
type Items struct {
	// Key is the output key the list is emitted under.
	Key string `json:"key" yaml:"key"`
	// Find locates the anchor node.
	Find QueryGroups `json:"find" yaml:"find"`
	// Group names the Find group whose first match anchors the list.
	// Defaults to the first group.
	Group string `json:"group,omitempty" yaml:"group,omitempty"`
	// Extract, when set, is applied to each serialized child.
	Extract *ExtractionSpec `json:"extract,omitempty" yaml:"extract,omitempty"`
}

// AnchorGroup returns the group whose first match anchors the list.
func (it *Items) AnchorGroup() string {
	if it.Group != "" {
		return it.Group
	}
	if len(it.Find) > 0 {
		return it.Find[0].Name
	}
	return ""
}

// Handles reports whether the profile applies to the given host package.
func (p *Profile) Handles(pkg string) bool {
	for _, candidate := range p.Packages {
		if candidate == pkg {
			return true
		}
	}
	return false
}

var reservedKeys = map[string]bool{"app": true, "screen": true}

// Validate checks the profile is complete enough to evaluate.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.App) == "" {
		return &ConfigError{Path: "app", Msg: "app is required"}
	}
	if len(p.Packages) == 0 {
		return &ConfigError{Path: "packages", Msg: "at least one package is required"}
	}
	if len(p.Screens) == 0 {
		return &ConfigError{Path: "screens", Msg: "at least one screen is required"}
	}
	seen := make(map[string]bool, len(p.Screens))
	for i, s := range p.Screens {
		sp := fmt.Sprintf("screens[%d]", i)
		if s.Name == "" {
			return &ConfigError{Path: sp + ".name", Msg: "screen name is required"}
		}
		if seen[s.Name] {
			return &ConfigError{Path: sp + ".name", Msg: fmt.Sprintf("duplicate screen %q", s.Name)}
		}
		seen[s.Name] = true
		if err := s.validate(sp); err != nil {
			return err
		}
	}
	return nil
}

func (s *Screen) validate(sp string) error {
	if err := s.Validate.Validate(sp + ".validate"); err != nil {
		return err
	}
	outputs := make(map[string]bool)
	for j, f := range s.Fields {
		fp := fmt.Sprintf("%s.fields[%d]", sp, j)
		if f.Name == "" || reservedKeys[f.Name] || outputs[f.Name] {
			return &ConfigError{Path: fp + ".name", Msg: fmt.Sprintf("field name %q is empty, reserved or repeated", f.Name)}
		}
		outputs[f.Name] = true
	}
	if s.Items == nil {
		return nil
	}
	ip := sp + ".items"
	if s.Items.Key == "" || reservedKeys[s.Items.Key] || outputs[s.Items.Key] {
		return &ConfigError{Path: ip + ".key", Msg: fmt.Sprintf("items key %q is empty, reserved or repeated", s.Items.Key)}
	}
	if len(s.Items.Find) == 0 {
		return &ConfigError{Path: ip + ".find", Msg: "at least one group is required"}
	}
	if err := s.Items.Find.Validate(ip + ".find"); err != nil {
		return err
	}
	if !s.Items.Find.Has(s.Items.AnchorGroup()) {
		return &ConfigError{Path: ip + ".group", Msg: fmt.Sprintf("unknown group %q", s.Items.Group)}
	}
	if s.Items.Extract != nil {
		return s.Items.Extract.Validate(ip + ".extract")
	}
	return nil
}
