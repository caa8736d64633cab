// Package engine turns host events into payloads by classifying the tree
// against application profiles and running the matched screen's fields,
// item queries and extraction.
package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/agentic-research/lina/api"
	"github.com/agentic-research/lina/internal/document"
	"github.com/agentic-research/lina/internal/extract"
	"github.com/agentic-research/lina/internal/ingest"
	"github.com/agentic-research/lina/internal/query"
	"github.com/agentic-research/lina/internal/tree"
)

// ErrNoProfile is returned for events from packages no profile handles.
var ErrNoProfile = errors.New("no profile for package")

// Resolver produces the data payload for one event.
type Resolver interface {
	Resolve(ev ingest.Event) (*document.Map, error)
}

// Engine holds an immutable set of profiles.
type Engine struct {
	profiles []*api.Profile
	byPkg    map[string]*api.Profile
}

// New indexes profiles by package. Later profiles do not override earlier
// ones for the same package.
func New(profiles []*api.Profile) *Engine {
	e := &Engine{profiles: profiles, byPkg: make(map[string]*api.Profile)}
	for _, p := range profiles {
		for _, pkg := range p.Packages {
			if _, ok := e.byPkg[pkg]; !ok {
				e.byPkg[pkg] = p
			}
		}
	}
	return e
}

// profileExts are the file extensions LoadDir picks up.
var profileExts = map[string]bool{".json": true, ".yaml": true, ".yml": true, ".hcl": true}

// ProfilePaths lists profile files directly inside dir, sorted by name.
func ProfilePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read profiles dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !profileExts[filepath.Ext(e.Name())] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadDir builds an Engine from every profile file in dir.
func LoadDir(dir string) (*Engine, error) {
	paths, err := ProfilePaths(dir)
	if err != nil {
		return nil, err
	}
	profiles, err := api.LoadProfiles(paths)
	if err != nil {
		return nil, err
	}
	return New(profiles), nil
}

// Profiles returns the loaded profiles in load order.
func (e *Engine) Profiles() []*api.Profile { return e.profiles }

// Profile returns the profile handling pkg, or nil.
func (e *Engine) Profile(pkg string) *api.Profile { return e.byPkg[pkg] }

// Classify returns the first screen of p whose validate groups all match.
func Classify(p *api.Profile, root tree.Node) *api.Screen {
	for i := range p.Screens {
		if query.Validate(root, p.Screens[i].Validate) {
			return &p.Screens[i]
		}
	}
	return nil
}

// Resolve builds {app, screen, fields..., items} for ev. It returns
// ErrNoProfile for unhandled packages and a nil map when no screen matches.
func (e *Engine) Resolve(ev ingest.Event) (*document.Map, error) {
	p := e.Profile(ev.PackageName)
	if p == nil {
		return nil, fmt.Errorf("%w %q", ErrNoProfile, ev.PackageName)
	}
	screen := Classify(p, ev.Root)
	if screen == nil {
		return nil, nil
	}
	return ResolveScreen(p.App, screen, ev.Root), nil
}

// ResolveScreen extracts a classified screen's data from root.
func ResolveScreen(app string, s *api.Screen, root tree.Node) *document.Map {
	data := document.NewMap()
	data.Set("app", document.String(app))
	data.Set("screen", document.String(s.Name))

	base := root
	if len(s.Root) > 0 {
		base = tree.Navigate(root, s.Root)
	}
	if base == nil {
		return data
	}

	for _, f := range s.Fields {
		data.Set(f.Name, nodeValue(tree.Navigate(base, f.Path)))
	}
	if s.Items != nil {
		data.Set(s.Items.Key, resolveItems(s.Items, base))
	}
	return data
}

// nodeValue is a node's text, falling back to its content description.
func nodeValue(n tree.Node) document.Document {
	if n == nil {
		return document.Null{}
	}
	if t := n.Text(); t != "" {
		return document.String(t)
	}
	if d := n.ContentDescription(); d != "" {
		return document.String(d)
	}
	return document.Null{}
}

func resolveItems(it *api.Items, base tree.Node) document.List {
	items := document.List{}
	anchor := query.FindNodes(base, it.Find).First(it.AnchorGroup())
	if anchor == nil {
		return items
	}
	for i := 0; i < anchor.ChildCount(); i++ {
		child := anchor.Child(i)
		if child == nil {
			continue
		}
		doc := document.Serialize(child)
		if doc == nil {
			continue
		}
		if it.Extract != nil {
			items = append(items, extract.Extract(doc, it.Extract))
			continue
		}
		items = append(items, doc)
	}
	return items
}

// Payload is the envelope delivered to sinks: the resolved screen data
// plus the metadata of the event it came from.
type Payload struct {
	PackageName string        `json:"packageName"`
	EventType   string        `json:"eventType"`
	Timestamp   int64         `json:"timestamp"`
	Data        *document.Map `json:"data"`
}

// Envelope wraps resolved data with the event's metadata. The timestamp
// is in Unix milliseconds.
func Envelope(ev ingest.Event, data *document.Map) *Payload {
	return &Payload{
		PackageName: ev.PackageName,
		EventType:   ev.EventType,
		Timestamp:   ev.Time().UnixMilli(),
		Data:        data,
	}
}

// Marshal encodes the payload as compact JSON, keeping data key order.
func (p *Payload) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
