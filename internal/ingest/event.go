package ingest

import (
	"fmt"
	"time"

	"github.com/agentic-research/lina/internal/tree"
	"github.com/ohler55/ojg/oj"
)

// Event is one host notification: the package whose window changed and
// the element tree captured at that moment.
type Event struct {
	PackageName string
	EventType   string
	// Timestamp is in Unix milliseconds. Zero means unknown.
	Timestamp int64
	Root      tree.Node
}

// Time returns the event timestamp, or now when it is unknown.
func (ev Event) Time() time.Time {
	if ev.Timestamp == 0 {
		return time.Now()
	}
	return time.UnixMilli(ev.Timestamp)
}

// ParseEvent decodes {packageName, eventType, timestamp, root}.
func ParseEvent(data []byte) (Event, error) {
	parsed, err := oj.Parse(data)
	if err != nil {
		return Event{}, fmt.Errorf("parse event: %w", err)
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return Event{}, fmt.Errorf("parse event: want object, got %T", parsed)
	}
	ev := Event{
		PackageName: scalar(obj["packageName"]),
		EventType:   scalar(obj["eventType"]),
	}
	if ev.PackageName == "" {
		return Event{}, fmt.Errorf("parse event: packageName is required")
	}
	switch ts := obj["timestamp"].(type) {
	case int64:
		ev.Timestamp = ts
	case float64:
		ev.Timestamp = int64(ts)
	}
	raw, ok := obj[rootKey]
	if !ok || raw == nil {
		return Event{}, fmt.Errorf("parse event: %w", ErrNoRoot)
	}
	root, err := toElement(raw, "$.root")
	if err != nil {
		return Event{}, fmt.Errorf("parse event: %w", err)
	}
	ev.Root = root
	return ev, nil
}
