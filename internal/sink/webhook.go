package sink

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Webhook forwards delivered payloads to a secondary endpoint without
// waiting for the reply. At most maxInflight posts run at once; Forward
// blocks while that many are pending.
type Webhook struct {
	target *HTTPTarget
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	logger *slog.Logger
}

func NewWebhook(target *HTTPTarget, maxInflight int64, logger *slog.Logger) *Webhook {
	if maxInflight <= 0 {
		maxInflight = 4
	}
	return &Webhook{target: target, sem: semaphore.NewWeighted(maxInflight), logger: logger}
}

// Forward implements Forwarder.
func (w *Webhook) Forward(ctx context.Context, body []byte) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		w.logger.Warn("webhook skipped", "url", w.target.URL(), "error", err)
		return
	}
	w.wg.Add(1)
	// The post outlives the caller's context; the client timeout bounds it.
	postCtx := context.WithoutCancel(ctx)
	go func() {
		defer w.wg.Done()
		defer w.sem.Release(1)
		status, detail, err := w.target.Post(postCtx, body)
		switch {
		case err != nil:
			w.logger.Error("webhook post failed", "url", w.target.URL(), "error", err)
		case status != http.StatusOK:
			w.logger.Warn("webhook rejected payload", "url", w.target.URL(), "status", status, "response", detail)
		default:
			w.logger.Debug("webhook delivered", "url", w.target.URL())
		}
	}()
}

// Wait blocks until every started post has finished.
func (w *Webhook) Wait() { w.wg.Wait() }

var _ Forwarder = (*Webhook)(nil)
