package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const pushTimeout = 5 * time.Second

// Notifier delivers an event to an account. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, accountID string, msg WSMessage)
}

// NopNotifier drops every event
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, WSMessage) {}

// PushSender sends a mobile push alert to a device token
type PushSender interface {
	Push(ctx context.Context, deviceToken, alert string, data map[string]any) error
}

// RealtimeNotifier prefers the account's websocket and falls back to a
// push alert when the account is offline and has registered a device
type RealtimeNotifier struct {
	hub      *WSHub
	push     PushSender
	accounts AccountStore
}

// NewRealtimeNotifier creates a notifier. push may be nil.
func NewRealtimeNotifier(hub *WSHub, push PushSender, accounts AccountStore) *RealtimeNotifier {
	return &RealtimeNotifier{hub: hub, push: push, accounts: accounts}
}

// Notify delivers msg to accountID and logs any failure
func (n *RealtimeNotifier) Notify(ctx context.Context, accountID string, msg WSMessage) {
	if n.hub != nil && n.hub.IsOnline(accountID) {
		err := n.hub.SendToUser(accountID, msg)
		if err == nil {
			return
		}
		log.Warn().Err(err).Str("user_id", accountID).Str("type", msg.Type).Msg("Failed to deliver websocket event")
	}

	if n.push == nil || msg.Message == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()

	account, err := n.accounts.GetByID(ctx, accountID)
	if err != nil {
		log.Error().Err(err).Str("user_id", accountID).Msg("Failed to load push recipient")
		return
	}
	if account.PushToken == nil || *account.PushToken == "" {
		return
	}

	if err := n.push.Push(ctx, *account.PushToken, msg.Message, map[string]any{"type": msg.Type}); err != nil {
		log.Error().Err(err).Str("user_id", accountID).Str("type", msg.Type).Msg("Failed to send push notification")
	}
}
