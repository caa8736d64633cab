package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// publisher is the subset of *nats.Conn the forwarder needs.
type publisher interface {
	Publish(subj string, data []byte) error
}

// NATSForwarder publishes delivered payloads on a subject.
type NATSForwarder struct {
	pub     publisher
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NATSConfig holds the connection settings for DialNATS.
type NATSConfig struct {
	URL           string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DialNATS connects to the server and returns a forwarder on cfg.Subject.
func DialNATS(cfg NATSConfig, logger *slog.Logger) (*NATSForwarder, error) {
	opts := []nats.Option{
		nats.Name("lina"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(5 * time.Second),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
	}
	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	return &NATSForwarder{pub: conn, conn: conn, subject: cfg.Subject, logger: logger}, nil
}

// Forward implements Forwarder.
func (f *NATSForwarder) Forward(_ context.Context, body []byte) {
	if err := f.pub.Publish(f.subject, body); err != nil {
		f.logger.Error("nats publish failed", "subject", f.subject, "error", err)
	}
}

// Close drains pending messages and closes the connection.
func (f *NATSForwarder) Close() error {
	if f.conn == nil {
		return nil
	}
	return f.conn.Drain()
}

var _ Forwarder = (*NATSForwarder)(nil)
