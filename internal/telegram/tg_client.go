// Package telegram pushes timeline notifications to users who linked a
// Telegram chat to their account.
package telegram

import (
	"fmt"
	"sync"

	"grievance/backend/internal/localization"
	"grievance/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const sendBuffer = 64

// Sender is the part of *tgbotapi.BotAPI the client needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client implements realtime.Client for one Telegram chat.
type Client struct {
	UserID   string
	ChatID   int64
	Language string
	Send     chan models.Notification

	bot       Sender
	localizer *localization.Localizer
	logger    *zap.Logger
	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(user models.User, bot Sender, localizer *localization.Localizer, logger *zap.Logger) (*Client, error) {
	if user.TelegramChatID == nil || *user.TelegramChatID == 0 {
		return nil, fmt.Errorf("telegram: user %s has no linked chat", user.ID)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		UserID:    user.ID,
		ChatID:    *user.TelegramChatID,
		Language:  user.Language,
		Send:      make(chan models.Notification, sendBuffer),
		bot:       bot,
		localizer: localizer,
		logger:    logger.With(zap.String("user_id", user.ID), zap.Int64("chat_id", *user.TelegramChatID)),
		done:      make(chan struct{}),
	}, nil
}

func (c *Client) GetUserID() string                          { return c.UserID }
func (c *Client) GetSendChannel() chan<- models.Notification { return c.Send }

// Run starts the write pump. Telegram chats are push-only here, so there is
// no read side.
func (c *Client) Run() {
	go c.writePump()
}

func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

// Done is closed once the write pump has drained Send.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) writePump() {
	defer close(c.done)
	for n := range c.Send {
		msg := tgbotapi.NewMessage(c.ChatID, c.Render(n))
		msg.DisableWebPagePreview = true
		if _, err := c.bot.Send(msg); err != nil {
			c.logger.Warn("telegram send failed",
				zap.String("event_id", n.EventID),
				zap.String("event_type", string(n.EventType)),
				zap.Error(err))
		}
	}
	c.logger.Debug("telegram write pump stopped")
}

// Render turns a notification into the localized chat text.
func (c *Client) Render(n models.Notification) string {
	args := map[string]string{"complaint": n.ComplaintID}
	for k, v := range n.Payload {
		if v == nil {
			continue
		}
		args[k] = fmt.Sprint(v)
	}
	key := "event." + string(n.EventType)
	if c.localizer == nil {
		return fmt.Sprintf("%s: %s", n.EventType, n.ComplaintID)
	}
	if c.localizer.GetString(c.Language, key) == key {
		key = "event.unknown"
	}
	return c.localizer.Format(c.Language, key, args)
}

// KeepWhenSlow keeps the chat subscribed when Send is full. The hub drops
// the notification instead; the chat is only registered by a Registry sync.
func (c *Client) KeepWhenSlow() bool { return true }
