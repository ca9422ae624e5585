package realtime

import "grievance/backend/internal/models"

// Client is one delivery endpoint for a user (a WebSocket connection, a
// Telegram chat). A user may hold several at once.
type Client interface {
	// GetUserID returns the user whose topic this client listens on.
	GetUserID() string

	// GetSendChannel returns the channel the hub writes notifications to.
	// The hub never blocks on it; a full channel gets the client dropped
	// unless it is Durable.
	GetSendChannel() chan<- models.Notification

	// Run starts the client's pumps.
	Run()
	// Close releases the connection. The hub calls it exactly once, after
	// the client has been removed from its topic.
	Close()
}

// Durable is implemented by clients that outlive any connection, such as a
// Telegram chat. When one falls behind, the hub drops
// the notification and keeps the client.
type Durable interface {
	KeepWhenSlow() bool
}
