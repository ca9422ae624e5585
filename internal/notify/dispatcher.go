// Package notify turns timeline events into per-user pushes. Receivers are
// resolved from current entity state at dispatch time; delivery is best
// effort and nothing is queued for users without an open channel.
package notify

import (
	"context"
	"errors"
	"fmt"

	"grievance/backend/internal/models"
	"grievance/backend/internal/obs"

	"go.uber.org/zap"
)

// Publisher pushes a message to one user's real-time topic.
type Publisher interface {
	Publish(ctx context.Context, userID string, msg models.Notification) error
}

// Store is the read-only state the resolver consults.
type Store interface {
	GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error)
	ListUserIDsByRole(ctx context.Context, role models.Role) ([]string, error)
}

type Dispatcher struct {
	store     Store
	publisher Publisher
	routes    map[models.EventType]Route
	logger    *zap.Logger
}

func NewDispatcher(store Store, publisher Publisher, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:     store,
		publisher: publisher,
		routes:    Routes,
		logger:    logger.Named("notify"),
	}
}

// Resolve returns the de-duplicated user ids that should hear about e, in
// route order.
func (d *Dispatcher) Resolve(ctx context.Context, e *models.TimelineEvent) ([]string, error) {
	route, ok := d.routes[e.Type]
	if !ok {
		return nil, nil
	}

	var (
		out      []string
		seen     = make(map[string]struct{})
		errs     []error
		loaded   bool
		assigned string
	)
	add := func(id string) {
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	excluded := payloadString(e.Payload, route.ExcludeSelfPayloadKey)

	for _, kind := range route.Receivers {
		switch kind {
		case Admins:
			adminIDs, err := d.store.ListUserIDsByRole(ctx, models.RoleAdmin)
			if err != nil {
				errs = append(errs, fmt.Errorf("list admins: %w", err))
				continue
			}
			for _, id := range adminIDs {
				if excluded != "" && id == excluded {
					continue
				}
				add(id)
			}
		case AssignedOfficer:
			if !loaded {
				loaded = true
				c, err := d.store.GetComplaintByID(ctx, e.ComplaintID)
				if err != nil {
					errs = append(errs, fmt.Errorf("load complaint %s: %w", e.ComplaintID, err))
					continue
				}
				if c.AssignedToUserID != nil {
					assigned = *c.AssignedToUserID
				}
			}
			if route.AssignedOfficerExceptCloser && assigned != "" && assigned == payloadString(e.Payload, keyClosedByUserID) {
				continue
			}
			add(assigned)
		case PreviousOfficer:
			add(payloadString(e.Payload, keyPreviousOfficerUserID))
		case NewOfficer:
			add(payloadString(e.Payload, keyNewOfficerUserID))
		case ExtensionRequester:
			add(payloadString(e.Payload, keyRequestedByUserID))
		}
	}
	return out, errors.Join(errs...)
}

// Dispatch resolves receivers for e and pushes the notification to each.
// A failure for one receiver does not stop the others; all failures are
// joined into the returned error.
func (d *Dispatcher) Dispatch(ctx context.Context, e *models.TimelineEvent) error {
	receivers, resolveErr := d.Resolve(ctx, e)
	if len(receivers) == 0 {
		return resolveErr
	}

	msg := models.NotificationFor(e)
	errs := []error{resolveErr}
	for _, userID := range receivers {
		if err := d.publisher.Publish(ctx, userID, msg); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", userID, err))
			continue
		}
		obs.NotificationsPushed.Inc()
	}
	d.logger.Debug("event dispatched",
		zap.String("event_id", e.ID),
		zap.String("event_type", string(e.Type)),
		zap.Strings("receivers", receivers),
	)
	return errors.Join(errs...)
}

func payloadString(payload map[string]any, key string) string {
	if key == "" || payload == nil {
		return ""
	}
	s, _ := payload[key].(string)
	return s
}
