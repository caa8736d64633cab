package ingest

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/agentic-research/lina/internal/tree"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// ErrNoRoot is returned when a snapshot has no element tree at the selector.
var ErrNoRoot = errors.New("snapshot has no root element")

// rootKey is where event envelopes and wrapped snapshots keep the tree.
const rootKey = "root"

// ParseSnapshot parses a JSON element tree and returns the element the
// JSONPath selector points at. An empty selector takes the "root" member
// when the document has one, and the whole document otherwise.
func ParseSnapshot(data []byte, selector string) (*tree.Element, error) {
	parsed, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	target, err := selectRoot(parsed, selector)
	if err != nil {
		return nil, err
	}
	return toElement(target, "$")
}

func selectRoot(parsed any, selector string) (any, error) {
	if selector == "" {
		if obj, ok := parsed.(map[string]any); ok {
			if r, ok := obj[rootKey]; ok {
				return r, nil
			}
		}
		return parsed, nil
	}
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	results := x.Get(parsed)
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: nothing at %s", ErrNoRoot, selector)
	}
	return results[0], nil
}

// toElement converts one decoded JSON object into an Element. A null child
// becomes a nil entry, modelling a child the host could not capture.
func toElement(v any, at string) (*tree.Element, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, want object", ErrNoRoot, at, v)
	}
	el := &tree.Element{
		Class:       scalar(obj["className"]),
		Label:       scalar(obj["text"]),
		Description: scalar(obj["contentDescription"]),
	}
	if extras, ok := obj["extras"].(map[string]any); ok && len(extras) > 0 {
		el.Extras = make(map[string]string, len(extras))
		for k, ev := range extras {
			if ev == nil {
				continue
			}
			el.Extras[k] = scalar(ev)
		}
	}
	if children, ok := obj["children"].([]any); ok {
		el.Children = make([]*tree.Element, len(children))
		for i, c := range children {
			if c == nil {
				continue
			}
			child, err := toElement(c, at+".children["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			el.Children[i] = child
		}
	}
	return el, nil
}

// scalar renders a JSON scalar as a string. Objects, arrays and null are "".
func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
