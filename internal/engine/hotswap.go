package engine

import (
	"sync"

	"github.com/agentic-research/lina/internal/document"
	"github.com/agentic-research/lina/internal/ingest"
)

// HotSwap is a thread-safe Resolver whose underlying Engine can be
// replaced while requests are in flight.
type HotSwap struct {
	mu      sync.RWMutex
	current *Engine
}

func NewHotSwap(initial *Engine) *HotSwap {
	return &HotSwap{current: initial}
}

// Swap atomically replaces the current engine. Calls already running keep
// the engine they started with.
func (h *HotSwap) Swap(e *Engine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = e
}

// Current returns the engine in use.
func (h *HotSwap) Current() *Engine {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Resolve delegates to the current engine.
func (h *HotSwap) Resolve(ev ingest.Event) (*document.Map, error) {
	return h.Current().Resolve(ev)
}

var _ Resolver = (*HotSwap)(nil)
