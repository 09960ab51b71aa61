// Package notify publishes pipeline run events to NATS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event names, appended to the configured subject prefix.
const (
	EventIngestCompleted = "ingest.completed"
	EventAnswerCompleted = "answer.completed"
)

// Publisher sends events. Implementations must not block the pipeline on
// delivery problems.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) error
	Close() error
}

// Config configures NATS publishing. An empty URL disables it.
type Config struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// DefaultConfig leaves publishing disabled.
func DefaultConfig() Config {
	return Config{SubjectPrefix: "trackqa"}
}

// Envelope wraps every published payload.
type Envelope struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// New returns a NATS publisher when cfg.URL is set and a no-op one otherwise.
func New(cfg Config, logger *zap.Logger) (Publisher, error) {
	if cfg.URL == "" {
		return Nop{}, nil
	}
	return Connect(cfg, logger)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                                { return nil }

// NATSPublisher publishes JSON envelopes on <prefix>.<event>.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

// Connect dials the NATS server at cfg.URL.
func Connect(cfg Config, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name("trackqa"),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", cfg.URL, err)
	}
	return &NATSPublisher{conn: conn, prefix: cfg.SubjectPrefix, logger: logger}, nil
}

// Subject returns the subject an event is published on.
func Subject(prefix, event string) string {
	if prefix == "" {
		return event
	}
	return prefix + "." + event
}

// Publish marshals payload into an Envelope and flushes it to the server.
func (p *NATSPublisher) Publish(ctx context.Context, event string, payload any) error {
	body, err := Encode(event, payload, time.Now())
	if err != nil {
		return err
	}
	subject := Subject(p.prefix, event)
	if err := p.conn.Publish(subject, body); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}
	p.logger.Debug("Published event", zap.String("subject", subject), zap.Int("bytes", len(body)))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Encode builds the JSON body for an event.
func Encode(event string, payload any, at time.Time) ([]byte, error) {
	body, err := json.Marshal(Envelope{Event: event, Timestamp: at.UTC(), Data: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", event, err)
	}
	return body, nil
}

// Logged wraps a publisher so failures are logged and swallowed.
func Logged(p Publisher, logger *zap.Logger) Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return loggedPublisher{Publisher: p, logger: logger}
}

type loggedPublisher struct {
	Publisher
	logger *zap.Logger
}

func (l loggedPublisher) Publish(ctx context.Context, event string, payload any) error {
	if err := l.Publisher.Publish(ctx, event, payload); err != nil {
		l.logger.Warn("Error publishing event", zap.String("event", event), zap.Error(err))
	}
	return nil
}
