package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/trendgist/internal/config"
	"github.com/trendgist/internal/models"
	"github.com/trendgist/pkg/logger"
)

// Conn is the subset of *nats.Conn used for publishing
type Conn interface {
	Publish(subject string, data []byte) error
	Close()
}

// GistEvent is the message published for each new gist
type GistEvent struct {
	Gist      *models.Gist `json:"gist"`
	Timestamp time.Time    `json:"timestamp"`
	Source    string       `json:"source"`
	Version   string       `json:"version"`
}

// NATSPublisher publishes gist events to a NATS subject
type NATSPublisher struct {
	conn    Conn
	subject string
	log     *logger.Logger
}

// NewNATSPublisher connects to NATS. It returns nil when no URL is configured.
func NewNATSPublisher(cfg config.NATSConfig, log *logger.Logger) (*NATSPublisher, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("trendgist"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return newNATSPublisher(nc, cfg.Subject, log), nil
}

func newNATSPublisher(conn Conn, subject string, log *logger.Logger) *NATSPublisher {
	if subject == "" {
		subject = "gists.published"
	}
	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		log:     log.WithComponent("nats"),
	}
}

// Close closes the NATS connection
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// GistPublished publishes a GistEvent for gist
func (p *NATSPublisher) GistPublished(_ context.Context, gist *models.Gist) error {
	message := GistEvent{
		Gist:      gist,
		Timestamp: time.Now().UTC(),
		Source:    "trendgist",
		Version:   "1.0",
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode gist event: %w", err)
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.subject, err)
	}

	p.log.Debug().Str("subject", p.subject).Str("gist_id", gist.ID).Msg("Published gist event")
	return nil
}
