package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-lms-api/internal/dto"
	"github.com/noah-isme/gema-lms-api/internal/observability"
)

const notificationPublishTimeout = 5 * time.Second

// NotificationEmitter sends notifications without blocking the caller.
type NotificationEmitter interface {
	Emit(payload dto.NotificationCreateRequest)
}

// NotificationDispatcher queues notifications and publishes them from a background worker.
// Failures are logged and counted, never reported to the emitter.
type NotificationDispatcher struct {
	publisher NotificationService
	queue     chan dto.NotificationCreateRequest
	logger    zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	running bool
	done    chan struct{}
}

// NewNotificationDispatcher builds a dispatcher with the given queue size.
func NewNotificationDispatcher(publisher NotificationService, bufferSize int, logger zerolog.Logger) *NotificationDispatcher {
	if bufferSize <= 0 {
		bufferSize = 64
	}

	return &NotificationDispatcher{
		publisher: publisher,
		queue:     make(chan dto.NotificationCreateRequest, bufferSize),
		logger:    logger.With().Str("component", "notification_dispatcher").Logger(),
		done:      make(chan struct{}),
	}
}

// Start launches the worker. It drains the queue until Close is called.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || d.running {
		return
	}
	d.running = true
	go d.run(context.WithoutCancel(ctx))
}

// Emit enqueues the notification. A full queue drops it.
func (d *NotificationDispatcher) Emit(payload dto.NotificationCreateRequest) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		observability.Notifications().WithLabelValues(payload.Type, "dropped").Inc()
		return
	}

	select {
	case d.queue <- payload:
	default:
		observability.Notifications().WithLabelValues(payload.Type, "dropped").Inc()
		d.logger.Warn().
			Uint("user_id", payload.UserID).
			Str("type", payload.Type).
			Msg("notification queue full, dropping notification")
	}
}

// Close stops accepting notifications and waits for the queued ones to be published.
func (d *NotificationDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	running := d.running
	d.mu.Unlock()

	if running {
		<-d.done
		return
	}
	d.drain(context.Background())
}

func (d *NotificationDispatcher) run(ctx context.Context) {
	defer close(d.done)
	d.drain(ctx)
}

func (d *NotificationDispatcher) drain(ctx context.Context) {
	for payload := range d.queue {
		d.publish(ctx, payload)
	}
}

func (d *NotificationDispatcher) publish(ctx context.Context, payload dto.NotificationCreateRequest) {
	publishCtx, cancel := context.WithTimeout(ctx, notificationPublishTimeout)
	defer cancel()

	if _, err := d.publisher.Publish(publishCtx, payload); err != nil {
		observability.Notifications().WithLabelValues(payload.Type, "failed").Inc()
		d.logger.Error().Err(err).
			Uint("user_id", payload.UserID).
			Str("type", payload.Type).
			Msg("failed to publish notification")
		return
	}

	observability.Notifications().WithLabelValues(payload.Type, "published").Inc()
}
