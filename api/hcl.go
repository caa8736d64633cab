package api

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// HCL profiles use labelled blocks instead of arrays of objects:
//
//	app      = "chat"
//	packages = ["com.example.chat"]
//
//	screen "conversation" {
//	  root = [0]
//	  validate "header" {
//	    rule {
//	      keys   = ["className"]
//	      action = "equals"
//	      value  = "Toolbar"
//	    }
//	  }
//	  field "title" { path = [0, 0] }
//	  items "messages" {
//	    find "list" { ... }
//	    extract "text" {
//	      path {
//	        step {
//	          key    = "children"
//	          action = "first"
//	          where  = "className"
//	          value  = "TextView"
//	        }
//	        step {
//	          key    = "content"
//	          action = "get"
//	        }
//	      }
//	    }
//	  }
//	}
type hclProfile struct {
	App      string      `hcl:"app"`
	Packages []string    `hcl:"packages"`
	Screens  []hclScreen `hcl:"screen,block"`
}

type hclScreen struct {
	Name     string     `hcl:"name,label"`
	Root     []int      `hcl:"root,optional"`
	Validate []hclGroup `hcl:"validate,block"`
	Fields   []hclField `hcl:"field,block"`
	Items    *hclItems  `hcl:"items,block"`
}

type hclGroup struct {
	Name  string    `hcl:"name,label"`
	Rules []hclRule `hcl:"rule,block"`
}

type hclRule struct {
	Keys   []string `hcl:"keys"`
	Action string   `hcl:"action"`
	Value  string   `hcl:"value"`
}

type hclField struct {
	Name string `hcl:"name,label"`
	Path []int  `hcl:"path"`
}

type hclItems struct {
	Key     string       `hcl:"key,label"`
	Group   string       `hcl:"group,optional"`
	Find    []hclGroup   `hcl:"find,block"`
	Extract []hclExtract `hcl:"extract,block"`
}

type hclExtract struct {
	Key   string    `hcl:"key,label"`
	Paths []hclPath `hcl:"path,block"`
}

type hclPath struct {
	Steps []hclStep `hcl:"step,block"`
}

type hclStep struct {
	Key    string  `hcl:"key"`
	Action string  `hcl:"action"`
	Where  *string `hcl:"where,optional"`
	Value  *string `hcl:"value,optional"`
}

// decodeHCL fills p from HCL source. filename must end in .hcl.
func decodeHCL(filename string, src []byte, p *Profile) error {
	var raw hclProfile
	if err := hclsimple.Decode(filename, src, nil, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	p.App = raw.App
	p.Packages = raw.Packages
	p.Screens = make([]Screen, 0, len(raw.Screens))
	for _, rs := range raw.Screens {
		s := Screen{Name: rs.Name, Root: rs.Root}
		groups, err := convertGroups(rs.Validate)
		if err != nil {
			return err
		}
		s.Validate = groups
		for _, f := range rs.Fields {
			s.Fields = append(s.Fields, NodeField{Name: f.Name, Path: f.Path})
		}
		if rs.Items != nil {
			items, err := convertItems(rs.Items)
			if err != nil {
				return err
			}
			s.Items = items
		}
		p.Screens = append(p.Screens, s)
	}
	return nil
}

func convertGroups(in []hclGroup) (QueryGroups, error) {
	out := make(QueryGroups, 0, len(in))
	for _, g := range in {
		qg := QueryGroup{Name: g.Name, Rules: make([]Rule, 0, len(g.Rules))}
		for _, r := range g.Rules {
			var action RuleAction
			if err := action.UnmarshalText([]byte(r.Action)); err != nil {
				return nil, err
			}
			qg.Rules = append(qg.Rules, Rule{Keys: r.Keys, Action: action, Value: r.Value})
		}
		out = append(out, qg)
	}
	return out, nil
}

func convertItems(in *hclItems) (*Items, error) {
	find, err := convertGroups(in.Find)
	if err != nil {
		return nil, err
	}
	items := &Items{Key: in.Key, Find: find, Group: in.Group}
	if len(in.Extract) == 0 {
		return items, nil
	}
	spec := &ExtractionSpec{}
	for _, e := range in.Extract {
		field := Field{Key: e.Key}
		for _, hp := range e.Paths {
			expr := make(PathExpression, 0, len(hp.Steps))
			for _, hs := range hp.Steps {
				step, err := rawStep{Key: &hs.Key, Action: parseStepAction(hs.Action), Where: hs.Where, Value: hs.Value}.step()
				if err != nil {
					return nil, err
				}
				if step.Action.Kind == 0 {
					return nil, &ConfigError{Path: "extract." + e.Key, Msg: fmt.Sprintf("unknown step action %q", hs.Action)}
				}
				expr = append(expr, step)
			}
			field.Alternatives = append(field.Alternatives, expr)
		}
		spec.Fields = append(spec.Fields, field)
	}
	items.Extract = spec
	return items, nil
}

// parseStepAction returns the zero StepAction for unknown names.
func parseStepAction(s string) *StepAction {
	var a StepAction
	_ = a.UnmarshalText([]byte(s))
	return &a
}
