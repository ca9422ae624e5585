// Package realtime keeps per-user notification topics and the clients
// subscribed to them. With Redis configured every node publishes to one
// shared channel and delivers to its own local clients.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"grievance/backend/internal/models"
	"grievance/backend/internal/obs"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel is the Redis pub/sub channel shared by all nodes.
const Channel = "grievance:notify"

type envelope struct {
	UserID       string              `json:"user_id"`
	Notification models.Notification `json:"notification"`
}

type Hub struct {
	RegisterCh   chan Client
	UnregisterCh chan Client

	deliverCh chan envelope
	done      chan struct{}

	mu      sync.RWMutex
	clients map[string]map[Client]struct{}

	redis  *redis.Client
	logger *zap.Logger
}

// NewHub creates a hub. rdb may be nil for single-node deployments.
func NewHub(rdb *redis.Client, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		deliverCh:    make(chan envelope, 256),
		done:         make(chan struct{}),
		clients:      make(map[string]map[Client]struct{}),
		redis:        rdb,
		logger:       logger.Named("realtime"),
	}
}

// Run owns the topic map until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.redis != nil {
		go h.listen(ctx)
	}

	for {
		select {
		case c := <-h.RegisterCh:
			h.add(c)
		case c := <-h.UnregisterCh:
			h.remove(c)
		case env := <-h.deliverCh:
			h.deliver(env)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Register subscribes c to its user's topic and starts it. It returns false
// when the hub has stopped.
func (h *Hub) Register(c Client) bool {
	select {
	case h.RegisterCh <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c from its topic. Safe to call after the hub stopped
// or for a client that was already dropped.
func (h *Hub) Unregister(c Client) {
	select {
	case h.UnregisterCh <- c:
	case <-h.done:
	}
}

// Publish pushes msg to userID's topic. A user with no connected client is
// skipped silently.
func (h *Hub) Publish(ctx context.Context, userID string, msg models.Notification) error {
	env := envelope{UserID: userID, Notification: msg}
	if h.redis != nil {
		data, err := json.Marshal(env)
		if err != nil {
			return err
		}
		return h.redis.Publish(ctx, Channel, data).Err()
	}
	select {
	case h.deliverCh <- env:
		return nil
	case <-h.done:
		obs.NotificationsDropped.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connected returns how many clients userID currently holds.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) add(c Client) {
	h.mu.Lock()
	set, ok := h.clients[c.GetUserID()]
	if !ok {
		set = make(map[Client]struct{})
		h.clients[c.GetUserID()] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	c.Run()
	h.logger.Debug("client registered", zap.String("user_id", c.GetUserID()))
}

func (h *Hub) remove(c Client) {
	h.mu.Lock()
	set, ok := h.clients[c.GetUserID()]
	if ok {
		_, ok = set[c]
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.GetUserID())
		}
	}
	h.mu.Unlock()

	if ok {
		c.Close()
		h.logger.Debug("client unregistered", zap.String("user_id", c.GetUserID()))
	}
}

func (h *Hub) deliver(env envelope) {
	h.mu.RLock()
	targets := make([]Client, 0, len(h.clients[env.UserID]))
	for c := range h.clients[env.UserID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		obs.NotificationsDropped.Inc()
		return
	}
	for _, c := range targets {
		select {
		case c.GetSendChannel() <- env.Notification:
		default:
			obs.NotificationsDropped.Inc()
			if d, ok := c.(Durable); ok && d.KeepWhenSlow() {
				h.logger.Warn("client behind, notification dropped",
					zap.String("user_id", env.UserID),
					zap.String("event_id", env.Notification.EventID))
				continue
			}
			h.logger.Warn("dropping slow client", zap.String("user_id", env.UserID))
			h.remove(c)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[string]map[Client]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for c := range set {
			c.Close()
		}
	}
}

// listen forwards envelopes published by any node to the local run loop.
func (h *Hub) listen(ctx context.Context) {
	sub := h.redis.Subscribe(ctx, Channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			env, err := decodeEnvelope(msg.Payload)
			if err != nil {
				h.logger.Warn("bad notification envelope", zap.Error(err))
				continue
			}
			select {
			case h.deliverCh <- env:
			case <-ctx.Done():
				return
			}
		}
	}
}

func decodeEnvelope(payload string) (envelope, error) {
	var env envelope
	err := json.Unmarshal([]byte(payload), &env)
	return env, err
}
