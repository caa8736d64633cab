package sink

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Intervals are the uploader's wait times.
type Intervals struct {
	// Poll is the wait after finding the queue empty.
	Poll time.Duration
	// Retry is the wait after the primary target failed transiently.
	Retry time.Duration
	// ErrorBackoff is the wait after a local error such as an unreadable file.
	ErrorBackoff time.Duration
}

// DefaultIntervals are the production wait times.
var DefaultIntervals = Intervals{
	Poll:         10 * time.Second,
	Retry:        30 * time.Second,
	ErrorBackoff: 60 * time.Second,
}

// Poster is the primary delivery target.
type Poster interface {
	Post(ctx context.Context, body []byte) (status int, detail string, err error)
}

// Uploader drains a Queue into a primary target, one entry at a time,
// oldest first. A 200 reply hands the body to every forwarder and removes
// the entry; a 400 reply parks it as failed; anything else is retried.
type Uploader struct {
	queue      *Queue
	primary    Poster
	forwarders []Forwarder
	intervals  Intervals
	logger     *slog.Logger
}

func NewUploader(queue *Queue, primary Poster, forwarders []Forwarder, intervals Intervals, logger *slog.Logger) *Uploader {
	return &Uploader{
		queue:      queue,
		primary:    primary,
		forwarders: forwarders,
		intervals:  intervals,
		logger:     logger,
	}
}

// Run loops until ctx is cancelled. It returns nil on cancellation.
func (u *Uploader) Run(ctx context.Context) error {
	u.logger.Info("uploader started")
	defer u.logger.Info("uploader stopped")
	for {
		wait := u.Step(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if wait == 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Step makes one delivery attempt and returns how long to wait before the
// next one.
func (u *Uploader) Step(ctx context.Context) time.Duration {
	entry, err := u.queue.Oldest()
	if errors.Is(err, ErrQueueEmpty) {
		return u.intervals.Poll
	}
	if err != nil {
		u.logger.Error("read queue", "error", err)
		return u.intervals.ErrorBackoff
	}

	log := u.logger.With("file", entry.Name, "event_type", eventType(entry.Body))
	status, detail, err := u.primary.Post(ctx, entry.Body)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return 0
		}
		log.Warn("primary post failed, retrying", "error", err, "retry_in", u.intervals.Retry)
		return u.intervals.Retry
	case status == http.StatusOK:
		log.Info("payload delivered")
		for _, f := range u.forwarders {
			f.Forward(ctx, entry.Body)
		}
		if err := u.queue.Remove(entry.Name); err != nil {
			log.Error("remove delivered payload", "error", err)
			return u.intervals.ErrorBackoff
		}
		return 0
	case status == http.StatusBadRequest:
		log.Error("primary rejected payload, parking it", "status", status, "response", detail)
		if err := u.queue.MarkFailed(entry.Name); err != nil {
			log.Error("park rejected payload", "error", err)
			return u.intervals.ErrorBackoff
		}
		return 0
	default:
		log.Warn("primary post unsuccessful, retrying", "status", status, "response", detail, "retry_in", u.intervals.Retry)
		return u.intervals.Retry
	}
}

var eventTypePath = jp.MustParseString("$.eventType")

// eventType reads the payload's eventType for log context.
func eventType(body []byte) string {
	parsed, err := oj.Parse(body)
	if err != nil {
		return "unknown"
	}
	if s, ok := eventTypePath.First(parsed).(string); ok {
		return s
	}
	return "unknown"
}
