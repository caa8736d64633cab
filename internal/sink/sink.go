// Package sink persists resolved payloads and delivers them downstream:
// a dedup filter, a file-backed retry queue, a primary HTTP target and a
// set of best-effort forwarders.
package sink

import (
	"context"

	"github.com/agentic-research/lina/internal/engine"
)

// Sink accepts payloads. Delivery outcome is not reported to the caller.
type Sink interface {
	Push(ctx context.Context, p *engine.Payload)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, p *engine.Payload)

func (f SinkFunc) Push(ctx context.Context, p *engine.Payload) { f(ctx, p) }

// Forwarder receives a payload body after the primary target accepted it.
// Forwarders are best effort: failures are logged, never retried.
type Forwarder interface {
	Forward(ctx context.Context, body []byte)
}

// ForwarderFunc adapts a function to Forwarder.
type ForwarderFunc func(ctx context.Context, body []byte)

func (f ForwarderFunc) Forward(ctx context.Context, body []byte) { f(ctx, body) }
