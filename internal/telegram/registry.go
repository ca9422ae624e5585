package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"grievance/backend/internal/localization"
	"grievance/backend/internal/models"
	"grievance/backend/internal/realtime"

	"go.uber.org/zap"
)

// UserLister is the storage query the registry polls.
type UserLister interface {
	ListTelegramLinkedUsers(ctx context.Context) ([]models.User, error)
}

// Registry keeps exactly one hub client per linked chat. Sync picks up chats
// linked, relinked or unlinked since the last call.
type Registry struct {
	users     UserLister
	hub       *realtime.Hub
	bot       Sender
	localizer *localization.Localizer
	logger    *zap.Logger

	mu      sync.Mutex
	clients map[string]*Client // by user ID
}

func NewRegistry(users UserLister, hub *realtime.Hub, bot Sender, localizer *localization.Localizer, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		users:     users,
		hub:       hub,
		bot:       bot,
		localizer: localizer,
		logger:    logger,
		clients:   make(map[string]*Client),
	}
}

// Sync brings the hub in line with the stored links and returns how many
// clients it registered.
func (r *Registry) Sync(ctx context.Context) (int, error) {
	linked, err := r.users.ListTelegramLinkedUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list telegram users: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(linked))
	added := 0
	for _, u := range linked {
		seen[u.ID] = true
		cur := r.clients[u.ID]
		if cur != nil && u.TelegramChatID != nil && cur.ChatID == *u.TelegramChatID && cur.Language == u.Language {
			continue
		}
		c, err := NewClient(u, r.bot, r.localizer, r.logger)
		if err != nil {
			r.logger.Warn("skipping telegram user", zap.Error(err))
			continue
		}
		if cur != nil {
			r.hub.Unregister(cur)
			delete(r.clients, u.ID)
		}
		if !r.hub.Register(c) {
			return added, fmt.Errorf("telegram: hub stopped")
		}
		r.clients[u.ID] = c
		added++
	}
	for id, c := range r.clients {
		if !seen[id] {
			r.hub.Unregister(c)
			delete(r.clients, id)
			r.logger.Info("telegram chat unlinked", zap.String("user_id", id))
		}
	}
	if added > 0 {
		r.logger.Info("telegram clients registered", zap.Int("count", added), zap.Int("total", len(r.clients)))
	}
	return added, nil
}

// Run syncs every interval until ctx is done. A non-positive interval syncs
// once.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if _, err := r.Sync(ctx); err != nil {
		r.logger.Error("telegram sync failed", zap.Error(err))
	}
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.Sync(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("telegram sync failed", zap.Error(err))
			}
		}
	}
}
