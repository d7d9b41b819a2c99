package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/cognicore/commentpulse/pkg/pulse/analytics"
)

// TypeInsightsCompleted is emitted after an analytics report is produced.
const TypeInsightsCompleted = "insights.completed"

// Event is the JSON payload published for a finished report.
type Event struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	ReportID      string                 `json:"report_id"`
	OccurredAt    time.Time              `json:"occurred_at"`
	Total         int                    `json:"total"`
	Distribution  analytics.Distribution `json:"distribution"`
	AvgScore0To10 float64                `json:"avg_sentiment_score_0_10"`
}

// Completed builds the completion event for a report.
func Completed(reportID string, res *analytics.Result, now time.Time) Event {
	return Event{
		ID:            uuid.New().String(),
		Type:          TypeInsightsCompleted,
		ReportID:      reportID,
		OccurredAt:    now.UTC(),
		Total:         res.Summary.Total,
		Distribution:  res.Distribution,
		AvgScore0To10: res.Summary.AvgSentimentScore0To10,
	}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes events on "<prefix>.<type>" subjects.
type NATSPublisher struct {
	conn   Conn
	prefix string
}

// NewNATSPublisher wraps a connection. An empty prefix publishes on the bare type.
func NewNATSPublisher(conn Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.conn.Publish(p.Subject(ev.Type), data)
}

// ConnConfig holds NATS connection settings.
type ConnConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// Connect dials NATS with reconnect handling that logs through logger.
func Connect(cfg ConnConfig, logger zerolog.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.Name("commentpulse"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info().Msg("nats connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}
	return nc, nil
}
