package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a configuration document syntax.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// FormatForPath picks the syntax from the file extension; unknown
// extensions are read as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".hcl":
		return FormatHCL
	default:
		return FormatJSON
	}
}

// decodeStrict decodes exactly one non-empty document into v.
func decodeStrict(data []byte, format Format, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return &ConfigError{Path: "document", Msg: "empty"}
	}
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(v); err != nil {
			if errors.Is(err, io.EOF) {
				return &ConfigError{Path: "document", Msg: "empty"}
			}
			return wrapDecode(err)
		}
		var extra yaml.Node
		if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
			return &ConfigError{Path: "document", Msg: "expected a single yaml document"}
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return wrapDecode(err)
		}
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return &ConfigError{Path: "document", Msg: "trailing content after json value"}
		}
	}
	return nil
}

func wrapDecode(err error) error {
	if errors.Is(err, ErrInvalidConfig) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
}

// ParseQueryGroups decodes and validates a QueryGroupConfig document.
func ParseQueryGroups(data []byte, format Format) (QueryGroups, error) {
	var groups QueryGroups
	if err := decodeStrict(data, format, &groups); err != nil {
		return nil, err
	}
	if err := groups.Validate("groups"); err != nil {
		return nil, err
	}
	return groups, nil
}

// ParseExtraction decodes and validates an ExtractionConfig document.
func ParseExtraction(data []byte, format Format) (*ExtractionSpec, error) {
	var spec ExtractionSpec
	if err := decodeStrict(data, format, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// ParseProfile decodes and validates a profile document.
func ParseProfile(data []byte, format Format) (*Profile, error) {
	return parseProfile("profile.hcl", data, format)
}

func parseProfile(filename string, data []byte, format Format) (*Profile, error) {
	var p Profile
	var err error
	if format == FormatHCL {
		err = decodeHCL(filename, data, &p)
	} else {
		err = decodeStrict(data, format, &p)
	}
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadQueryGroups reads a group config file.
func LoadQueryGroups(path string) (QueryGroups, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read groups %s: %w", path, err)
	}
	groups, err := ParseQueryGroups(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("load groups %s: %w", path, err)
	}
	return groups, nil
}

// LoadExtraction reads an extraction config file.
func LoadExtraction(path string) (*ExtractionSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read extraction %s: %w", path, err)
	}
	spec, err := ParseExtraction(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("load extraction %s: %w", path, err)
	}
	return spec, nil
}

// LoadProfile reads a profile file in JSON, YAML or HCL syntax.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}
	p, err := parseProfile(path, data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", path, err)
	}
	return p, nil
}

// LoadProfiles loads every path and rejects two profiles claiming one package.
func LoadProfiles(paths []string) ([]*Profile, error) {
	owner := make(map[string]string)
	profiles := make([]*Profile, 0, len(paths))
	for _, path := range paths {
		p, err := LoadProfile(path)
		if err != nil {
			return nil, err
		}
		for _, pkg := range p.Packages {
			if prev, ok := owner[pkg]; ok {
				return nil, &ConfigError{Path: path, Msg: fmt.Sprintf("package %q already handled by %s", pkg, prev)}
			}
			owner[pkg] = path
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
