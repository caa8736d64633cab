package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/agentic-research/lina/internal/config"
	"github.com/agentic-research/lina/internal/sink"
	"github.com/go-git/go-billy/v5/osfs"
)

// pipeline is the sink chain built from configuration: dedup in front of
// the disk queue, and an uploader draining the queue when a primary target
// is configured.
type pipeline struct {
	queue    *sink.Queue
	dedup    *sink.Dedup
	uploader *sink.Uploader
	archive  *sink.Archive
	webhook  *sink.Webhook
	closers  []io.Closer
}

func openQueue(c *config.Config, log *slog.Logger) (*sink.Queue, error) {
	if err := os.MkdirAll(c.Queue.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create queue dir: %w", err)
	}
	return sink.NewQueue(osfs.New(c.Queue.Dir), log.With("component", "queue")), nil
}

// openPipeline builds the chain. The uploader and its forwarders are only
// created when withUploader is set and a primary URL is configured.
func openPipeline(c *config.Config, log *slog.Logger, withUploader bool) (*pipeline, error) {
	q, err := openQueue(c, log)
	if err != nil {
		return nil, err
	}
	p := &pipeline{queue: q, dedup: sink.NewDedup(c.Dedup.Size, q, log.With("component", "dedup"))}
	if !withUploader || c.Primary.URL == "" {
		return p, nil
	}

	var forwarders []sink.Forwarder
	if c.Webhook.URL != "" {
		p.webhook = sink.NewWebhook(sink.NewHTTPTarget(c.Webhook.URL, c.Webhook.Token, c.Webhook.Timeout),
			c.Webhook.MaxInflight, log.With("component", "webhook"))
		forwarders = append(forwarders, p.webhook)
	}
	if c.NATS.URL != "" {
		nf, err := sink.DialNATS(sink.NATSConfig{
			URL:           c.NATS.URL,
			Subject:       c.NATS.Subject,
			MaxReconnects: c.NATS.MaxReconnects,
			ReconnectWait: c.NATS.ReconnectWait,
		}, log.With("component", "nats"))
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.closers = append(p.closers, nf)
		forwarders = append(forwarders, nf)
	}
	if c.Archive.Path != "" {
		a, err := sink.OpenArchive(c.Archive.Path, log.With("component", "archive"))
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.archive = a
		p.closers = append(p.closers, a)
		forwarders = append(forwarders, a)
	}

	primary := sink.NewHTTPTarget(c.Primary.URL, c.Primary.Token, c.Primary.Timeout)
	p.uploader = sink.NewUploader(q, primary, forwarders, sink.Intervals{
		Poll:         c.Uploader.PollInterval,
		Retry:        c.Uploader.RetryInterval,
		ErrorBackoff: c.Uploader.ErrorBackoff,
	}, log.With("component", "uploader"))
	return p, nil
}

// Close waits for in-flight webhook posts, then closes NATS and the archive.
func (p *pipeline) Close() error {
	if p.webhook != nil {
		p.webhook.Wait()
	}
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
