package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/observability"
)

const (
	progressEventQueue   = "gema-progress"
	progressEventTimeout = 10 * time.Second
)

// ProgressEventConsumer applies progress events published on the message bus.
type ProgressEventConsumer struct {
	conn     *nats.Conn
	subject  string
	progress ProgressService
	logger   zerolog.Logger
}

// NewProgressEventConsumer builds a consumer for <channelBase>.progress.events.
func NewProgressEventConsumer(conn *nats.Conn, channelBase string, progress ProgressService, logger zerolog.Logger) *ProgressEventConsumer {
	return &ProgressEventConsumer{
		conn:     conn,
		subject:  natsSubject(channelBase, "progress.events"),
		progress: progress,
		logger:   logger.With().Str("component", "progress_event_consumer").Logger(),
	}
}

// Subject returns the subject the consumer listens on.
func (c *ProgressEventConsumer) Subject() string {
	return c.subject
}

// Start subscribes in a queue group so each event is applied by one instance. The subscription
// drains when ctx is cancelled.
func (c *ProgressEventConsumer) Start(ctx context.Context) error {
	if c.conn == nil {
		return nil
	}

	sub, err := c.conn.QueueSubscribe(c.subject, progressEventQueue, func(msg *nats.Msg) {
		c.Handle(ctx, msg.Data)
	})
	if err != nil {
		return err
	}

	c.logger.Info().Str("subject", c.subject).Msg("listening for progress events")

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			c.logger.Warn().Err(err).Msg("failed to drain progress event subscription")
		}
	}()

	return nil
}

// Handle decodes and applies a single event. Invalid events are logged and dropped.
func (c *ProgressEventConsumer) Handle(ctx context.Context, payload []byte) {
	var event dto.ProgressEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		observability.ProgressEvents().WithLabelValues("nats", "malformed").Inc()
		c.logger.Warn().Err(err).Msg("invalid progress event payload")
		return
	}

	applyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), progressEventTimeout)
	defer cancel()

	if _, err := c.progress.Apply(applyCtx, event); err != nil {
		outcome := "failed"
		if errors.Is(err, ErrInvalidAction) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrMissingItem) ||
			errors.Is(err, ErrItemOutsideCourse) || errors.Is(err, ErrQuizNotCompleted) {
			outcome = "rejected"
		}
		observability.ProgressEvents().WithLabelValues("nats", outcome).Inc()
		c.logger.Warn().Err(err).
			Uint("user_id", event.UserID).
			Uint("course_id", event.CourseID).
			Str("action", event.Action).
			Msg("progress event not applied")
		return
	}

	observability.ProgressEvents().WithLabelValues("nats", "applied").Inc()
}
