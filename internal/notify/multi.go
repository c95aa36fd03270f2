package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/trendgist/internal/metrics"
	"github.com/trendgist/internal/models"
)

// Notifier receives published gists
type Notifier interface {
	GistPublished(ctx context.Context, gist *models.Gist) error
}

// Sink is a named downstream notifier
type Sink struct {
	Name     string
	Notifier Notifier
}

// Multi fans a published gist out to every sink, in order
type Multi struct {
	sinks []Sink
}

// NewMulti creates a fan-out notifier. Sinks with a nil Notifier are ignored.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s.Notifier != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Len returns the number of active sinks
func (m *Multi) Len() int {
	return len(m.sinks)
}

// GistPublished notifies every sink. One failing sink does not stop the rest.
func (m *Multi) GistPublished(ctx context.Context, gist *models.Gist) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Notifier.GistPublished(ctx, gist); err != nil {
			metrics.NotificationsTotal.WithLabelValues(s.Name, "error").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}
		metrics.NotificationsTotal.WithLabelValues(s.Name, "ok").Inc()
	}
	return errors.Join(errs...)
}
