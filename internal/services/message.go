package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dating-backend/internal/auth"
	"dating-backend/internal/metrics"
	"dating-backend/internal/models"
	"dating-backend/internal/pagination"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxMessageLength = 4000

// MessageService handles the two-sided mailbox
type MessageService struct {
	messages MessageStore
	accounts AccountStore
	notifier Notifier
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewMessageService creates a new message service
func NewMessageService(messages MessageStore, accounts AccountStore, notifier Notifier, rec metrics.Recorder) *MessageService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &MessageService{
		messages: messages,
		accounts: accounts,
		notifier: notifier,
		metrics:  rec,
		now:      time.Now,
	}
}

// Send stores a message from senderID to recipientID
func (s *MessageService) Send(ctx context.Context, claims auth.Claims, senderID, recipientID, content string) (*models.MessageView, error) {
	if err := auth.Authorize(claims, senderID); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("content", "must not be empty")
	}
	if len(content) > maxMessageLength {
		return nil, invalid("content", "too long")
	}
	if recipientID == senderID {
		return nil, invalid("recipientId", "cannot message yourself")
	}

	exists, err := s.accounts.Exists(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to check recipient: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	msg := &models.Message{
		ID:          uuid.New().String(),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		MessageSent: s.now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	s.metrics.RecordMessageSent()

	view, err := s.messages.GetView(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}

	s.notifier.Notify(ctx, recipientID, WSMessage{
		Type:      EventMessageReceived,
		Timestamp: msg.MessageSent.UnixMilli(),
		Message:   view.SenderKnownAs + ": " + preview(content),
		Data:      view,
	})
	return view, nil
}

func preview(content string) string {
	const n = 80
	r := []rune(content)
	if len(r) <= n {
		return content
	}
	return string(r[:n]) + "..."
}

// load fetches a message visible to ownerID
func (s *MessageService) load(ctx context.Context, ownerID, id string) (*models.Message, error) {
	m, err := s.messages.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if m.SenderID != ownerID && m.RecipientID != ownerID {
		return nil, ErrUnauthorized
	}
	return m, nil
}

// Get returns one message from ownerID's side of the mailbox
func (s *MessageService) Get(ctx context.Context, claims auth.Claims, ownerID, id string) (*models.MessageView, error) {
	if err := auth.Authorize(claims, ownerID); err != nil {
		return nil, err
	}
	m, err := s.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if m.HiddenFor(ownerID) {
		return nil, ErrNotFound
	}

	view, err := s.messages.GetView(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return view, nil
}

// MarkRead flags a message as read. Only the recipient may do this, and
// repeating it keeps the first read time.
func (s *MessageService) MarkRead(ctx context.Context, claims auth.Claims, ownerID, id string) (*models.Message, error) {
	if err := auth.Authorize(claims, ownerID); err != nil {
		return nil, err
	}
	m, err := s.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if m.RecipientID != ownerID {
		return nil, ErrUnauthorized
	}

	m, err = s.messages.MarkRead(ctx, id, s.now())
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to mark message read: %w", err)
	}
	return m, nil
}

// Delete tombstones ownerID's side of a message. The message is purged once
// both sides have deleted it.
func (s *MessageService) Delete(ctx context.Context, claims auth.Claims, ownerID, id string) error {
	if err := auth.Authorize(claims, ownerID); err != nil {
		return err
	}

	purged, err := s.messages.UpdateTombstones(ctx, id, func(m *models.Message) error {
		if m.SenderID != ownerID && m.RecipientID != ownerID {
			return ErrUnauthorized
		}
		if m.SenderID == ownerID {
			m.SenderDeleted = true
		}
		if m.RecipientID == ownerID {
			m.RecipientDeleted = true
		}
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		return fmt.Errorf("failed to delete message: %w", err)
	}

	if purged {
		s.metrics.RecordMessagePurged()
		log.Debug().Str("message_id", id).Msg("Message purged")
	}
	return nil
}

// Mailbox returns one page of a container, newest first
func (s *MessageService) Mailbox(ctx context.Context, claims auth.Claims, ownerID string, container models.MessageContainer, p pagination.Params) (*pagination.Page[*models.MessageView], error) {
	if err := auth.Authorize(claims, ownerID); err != nil {
		return nil, err
	}
	page, err := pagination.Paginate(ctx, s.messages.Mailbox(ownerID, container), p)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return page, nil
}

// Thread returns the conversation between ownerID and otherID as ownerID sees it
func (s *MessageService) Thread(ctx context.Context, claims auth.Claims, ownerID, otherID string) ([]*models.MessageView, error) {
	if err := auth.Authorize(claims, ownerID); err != nil {
		return nil, err
	}
	thread, err := s.messages.Thread(ctx, ownerID, otherID)
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	return thread, nil
}
