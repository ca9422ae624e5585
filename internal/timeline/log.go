// Package timeline is the single write path for complaint audit events.
// Every domain mutation records an immutable fact here; the log then hands
// the fact to the notification dispatcher. The two are separate failure
// domains: a dispatch error never undoes or blocks the write, and a write
// error does not suppress the dispatch attempt.
package timeline

import (
	"context"
	"errors"
	"time"

	"grievance/backend/internal/ids"
	"grievance/backend/internal/models"
	"grievance/backend/internal/obs"
	"grievance/backend/internal/storage"

	"go.uber.org/zap"
)

// Store is the subset of storage.Storage the log needs.
type Store interface {
	CreateTimelineEvent(ctx context.Context, e *models.TimelineEvent) error
	FindTimelineEventByKey(ctx context.Context, complaintID, key string) (*models.TimelineEvent, error)
	ListTimelineEvents(ctx context.Context, complaintID string) ([]models.TimelineEvent, error)
}

// Dispatcher fans a recorded event out to its receivers.
type Dispatcher interface {
	Dispatch(ctx context.Context, e *models.TimelineEvent) error
}

type Log struct {
	store      Store
	dispatcher Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// New builds a Log. dispatcher may be nil, in which case events are only
// recorded.
func New(store Store, dispatcher Dispatcher, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger.Named("timeline"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type appendOptions struct {
	timelineOnly bool
	at           time.Time
}

type Option func(*appendOptions)

// TimelineOnly records the event without notifying anyone. Used for
// repeatable facts that should not re-notify on every re-run.
func TimelineOnly() Option {
	return func(o *appendOptions) { o.timelineOnly = true }
}

// At overrides the event timestamp.
func At(t time.Time) Option {
	return func(o *appendOptions) { o.at = t.UTC() }
}

// AppendEvent records one fact for complaintID and returns the stored event.
// It returns nil when the idempotency key was already recorded or when the
// write failed; neither case is reported to the caller.
func (l *Log) AppendEvent(
	ctx context.Context,
	complaintID string,
	eventType models.EventType,
	payload map[string]any,
	actor *models.Actor,
	idempotencyKey string,
	opts ...Option,
) (stored *models.TimelineEvent) {
	var o appendOptions
	for _, opt := range opts {
		opt(&o)
	}

	log := l.logger.With(
		zap.String("complaint_id", complaintID),
		zap.String("event_type", string(eventType)),
	)

	if idempotencyKey != "" {
		_, err := l.store.FindTimelineEventByKey(ctx, complaintID, idempotencyKey)
		switch {
		case err == nil:
			obs.TimelineDuplicates.Inc()
			log.Debug("event already recorded", zap.String("idempotency_key", idempotencyKey))
			return nil
		case !errors.Is(err, storage.ErrNotFound):
			// the unique index still guards the insert below
			log.Warn("idempotency lookup failed", zap.Error(err))
		}
	}

	if payload == nil {
		payload = map[string]any{}
	}
	e := &models.TimelineEvent{
		ID:          ids.New(),
		ComplaintID: complaintID,
		Type:        eventType,
		At:          o.at,
		Payload:     payload,
	}
	if e.At.IsZero() {
		e.At = l.now()
	}
	if actor != nil {
		e.Actor = *actor
	}
	if idempotencyKey != "" {
		key := idempotencyKey
		e.IdempotencyKey = &key
	}

	duplicate := false
	defer func() {
		if duplicate || o.timelineOnly || l.dispatcher == nil {
			return
		}
		l.dispatch(ctx, log, e)
	}()

	err := l.store.CreateTimelineEvent(ctx, e)
	switch {
	case err == nil:
		obs.TimelineAppended.WithLabelValues(string(eventType)).Inc()
		return e
	case errors.Is(err, storage.ErrDuplicate):
		duplicate = true
		obs.TimelineDuplicates.Inc()
		log.Debug("concurrent append lost the race", zap.String("idempotency_key", idempotencyKey))
		return nil
	default:
		obs.TimelineWriteErrors.Inc()
		log.Error("failed to record timeline event", zap.Error(err))
		return nil
	}
}

func (l *Log) dispatch(ctx context.Context, log *zap.Logger, e *models.TimelineEvent) {
	defer func() {
		if r := recover(); r != nil {
			obs.DispatchErrors.Inc()
			log.Error("notification dispatch panicked", zap.Any("panic", r))
		}
	}()
	if err := l.dispatcher.Dispatch(ctx, e); err != nil {
		obs.DispatchErrors.Inc()
		log.Warn("notification dispatch failed", zap.Error(err))
	}
}

// Events returns a complaint's timeline, oldest first.
func (l *Log) Events(ctx context.Context, complaintID string) ([]models.TimelineEvent, error) {
	return l.store.ListTimelineEvents(ctx, complaintID)
}
