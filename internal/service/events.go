package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/awards-portal-api/internal/observability"
)

// Event subjects, relative to the configured prefix.
const (
	SubjectApplicationSubmitted = "application.submitted"
	SubjectReviewDecided        = "review.decided"
	SubjectApplicationStatus    = "application.status_changed"
)

// ApplicationSubmittedEvent is emitted once per application, when it is first submitted.
type ApplicationSubmittedEvent struct {
	ApplicationID uint      `json:"application_id"`
	AwardID       uint      `json:"award_id"`
	AwardTitle    string    `json:"award_title"`
	StudentID     uint      `json:"student_id"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// ReviewDecidedEvent is emitted whenever a reviewer records or changes a decision.
type ReviewDecidedEvent struct {
	ApplicationID uint      `json:"application_id"`
	AwardID       uint      `json:"award_id"`
	ReviewerID    uint      `json:"reviewer_id"`
	Shortlisted   bool      `json:"shortlisted"`
	DecidedAt     time.Time `json:"decided_at"`
}

// ApplicationStatusEvent is emitted when a reviewer overrides an application's status.
type ApplicationStatusEvent struct {
	ApplicationID uint      `json:"application_id"`
	AwardID       uint      `json:"award_id"`
	AwardTitle    string    `json:"award_title"`
	StudentID     uint      `json:"student_id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	ChangedAt     time.Time `json:"changed_at"`
}

// EventPublisher delivers domain events to other services.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event interface{}) error
}

type natsPublisher struct {
	conn   *nats.Conn
	prefix string
	logger zerolog.Logger
}

// NewEventPublisher publishes on NATS under prefix. A nil connection yields a
// publisher that only logs.
func NewEventPublisher(conn *nats.Conn, prefix string, logger zerolog.Logger) EventPublisher {
	return &natsPublisher{
		conn:   conn,
		prefix: strings.Trim(strings.TrimSpace(prefix), "."),
		logger: logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsPublisher) subject(name string) string {
	if p.prefix == "" {
		return name
	}
	return p.prefix + "." + name
}

func (p *natsPublisher) Publish(ctx context.Context, subject string, event interface{}) error {
	full := p.subject(subject)
	if p.conn == nil {
		p.logger.Debug().Str("subject", full).Msg("event publishing disabled")
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(full, payload); err != nil {
		observability.EventPublishFailures().WithLabelValues(subject).Inc()
		return err
	}
	return nil
}

// publishEvent delivers the event and logs failures; the caller's write has
// already been committed.
func publishEvent(ctx context.Context, publisher EventPublisher, logger zerolog.Logger, subject string, event interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, subject, event); err != nil {
		logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
