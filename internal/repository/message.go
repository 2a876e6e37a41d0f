package repository

import (
	"context"
	"fmt"
	"time"

	"dating-backend/internal/models"
	"dating-backend/internal/pagination"

	"github.com/jackc/pgx/v5"
)

const messageColumns = `id, sender_id, recipient_id, content, is_read, date_read, message_sent,
	sender_deleted, recipient_deleted`

var messageViewSelect = `
	SELECT m.id, m.sender_id, s.known_as, COALESCE(sp.url, ''),
		m.recipient_id, r.known_as, COALESCE(rp.url, ''),
		m.content, m.is_read, m.date_read, m.message_sent
	FROM messages m
	JOIN accounts s ON s.id = m.sender_id
	JOIN accounts r ON r.id = m.recipient_id` +
	fmt.Sprintf(mainPhotoJoin, "s", "sp") +
	fmt.Sprintf(mainPhotoJoin, "r", "rp")

// MessageRepository handles database operations for messages
type MessageRepository struct {
	db DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &m.IsRead, &m.DateRead,
		&m.MessageSent, &m.SenderDeleted, &m.RecipientDeleted)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanMessageView(row pgx.Row) (*models.MessageView, error) {
	var v models.MessageView
	err := row.Scan(&v.ID, &v.SenderID, &v.SenderKnownAs, &v.SenderPhotoURL,
		&v.RecipientID, &v.RecipientKnownAs, &v.RecipientPhotoURL,
		&v.Content, &v.IsRead, &v.DateRead, &v.MessageSent)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Create stores a new message
func (r *MessageRepository) Create(ctx context.Context, m *models.Message) error {
	query := `
		INSERT INTO messages (id, sender_id, recipient_id, content, is_read, date_read, message_sent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		m.ID, m.SenderID, m.RecipientID, m.Content, m.IsRead, m.DateRead, m.MessageSent,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", classify(err))
	}
	return nil
}

// GetByID retrieves a message row including its tombstones
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	m, err := scanMessage(r.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", classify(err))
	}
	return m, nil
}

// GetView retrieves a message joined with both participants
func (r *MessageRepository) GetView(ctx context.Context, id string) (*models.MessageView, error) {
	v, err := scanMessageView(r.db.QueryRow(ctx, messageViewSelect+` WHERE m.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", classify(err))
	}
	return v, nil
}

// MarkRead sets the read flag. The first read time is kept.
func (r *MessageRepository) MarkRead(ctx context.Context, id string, at time.Time) (*models.Message, error) {
	query := `
		UPDATE messages
		SET is_read = TRUE, date_read = COALESCE(date_read, $2)
		WHERE id = $1
		RETURNING ` + messageColumns
	m, err := scanMessage(r.db.QueryRow(ctx, query, id, at))
	if err != nil {
		return nil, fmt.Errorf("failed to mark message read: %w", classify(err))
	}
	return m, nil
}

// UpdateTombstones locks the message, lets mutate change its deletion flags
// and saves them. When both sides are deleted the row is removed and
// purged is true.
func (r *MessageRepository) UpdateTombstones(ctx context.Context, id string, mutate func(*models.Message) error) (bool, error) {
	var purged bool
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		m, err := scanMessage(tx.QueryRow(ctx,
			`SELECT `+messageColumns+` FROM messages WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return fmt.Errorf("failed to lock message: %w", classify(err))
		}
		if err := mutate(m); err != nil {
			return err
		}

		if m.SenderDeleted && m.RecipientDeleted {
			if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id); err != nil {
				return fmt.Errorf("failed to purge message: %w", err)
			}
			purged = true
			return nil
		}

		_, err = tx.Exec(ctx,
			`UPDATE messages SET sender_deleted = $2, recipient_deleted = $3 WHERE id = $1`,
			id, m.SenderDeleted, m.RecipientDeleted)
		if err != nil {
			return fmt.Errorf("failed to update message: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return purged, nil
}

func mailboxPredicates(accountID string, container models.MessageContainer) *predicates {
	p := &predicates{}
	switch container {
	case models.ContainerInbox:
		p.add("m.recipient_id = ?", accountID)
		p.add("NOT m.recipient_deleted")
	case models.ContainerOutbox:
		p.add("m.sender_id = ?", accountID)
		p.add("NOT m.sender_deleted")
	default:
		p.add("m.recipient_id = ?", accountID)
		p.add("NOT m.recipient_deleted")
		p.add("NOT m.is_read")
	}
	return p
}

// buildMailboxCount returns the count query for one container
func buildMailboxCount(accountID string, container models.MessageContainer) (string, []any) {
	p := mailboxPredicates(accountID, container)
	return `SELECT COUNT(*) FROM messages m` + p.where(), p.args
}

// buildMailboxPage returns the page query for one container, newest first
func buildMailboxPage(accountID string, container models.MessageContainer, limit, offset int) (string, []any) {
	p := mailboxPredicates(accountID, container)
	query := messageViewSelect + p.where() + ` ORDER BY m.message_sent DESC, m.id`
	query += " LIMIT " + p.arg(limit) + " OFFSET " + p.arg(offset)
	return query, p.args
}

// buildThread returns the conversation query between the viewer and another account
func buildThread(viewerID, otherID string) (string, []any) {
	p := &predicates{}
	p.add("((m.sender_id = ? AND m.recipient_id = ? AND NOT m.sender_deleted) OR "+
		"(m.sender_id = ? AND m.recipient_id = ? AND NOT m.recipient_deleted))",
		viewerID, otherID, otherID, viewerID)
	return messageViewSelect + p.where() + ` ORDER BY m.message_sent DESC, m.id`, p.args
}

// Mailbox returns a page source over one container of an account's messages
func (r *MessageRepository) Mailbox(accountID string, container models.MessageContainer) pagination.Source[*models.MessageView] {
	return &mailboxSource{db: r.db, accountID: accountID, container: container}
}

// Thread returns the visible conversation between two accounts, newest first
func (r *MessageRepository) Thread(ctx context.Context, viewerID, otherID string) ([]*models.MessageView, error) {
	query, args := buildThread(viewerID, otherID)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	return collectViews(rows)
}

type mailboxSource struct {
	db        DB
	accountID string
	container models.MessageContainer
}

func (s *mailboxSource) Count(ctx context.Context) (int, error) {
	query, args := buildMailboxCount(s.accountID, s.container)
	var total int
	if err := s.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return total, nil
}

func (s *mailboxSource) Fetch(ctx context.Context, limit, offset int) ([]*models.MessageView, error) {
	query, args := buildMailboxPage(s.accountID, s.container, limit, offset)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return collectViews(rows)
}

func collectViews(rows pgx.Rows) ([]*models.MessageView, error) {
	defer rows.Close()
	out := []*models.MessageView{}
	for rows.Next() {
		v, err := scanMessageView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
