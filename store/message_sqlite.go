package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/chatwire/chatwire/models"
)

type SQLiteMessageStore struct {
	db *sql.DB
}

func NewSQLiteMessageStore(db *sql.DB) *SQLiteMessageStore {
	return &SQLiteMessageStore{db: db}
}

func (s *SQLiteMessageStore) Insert(ctx context.Context, input MessageCreateInput) (*models.Message, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, room_id, sender, sender_name, sender_avatar, body, type, sent_at, read)
		VALUES (@id, @room_id, @sender, @sender_name, @sender_avatar, @body, @type, @sent_at, @read)`,
		sql.Named("id", input.ID), sql.Named("room_id", input.RoomID),
		sql.Named("sender", input.Sender), sql.Named("sender_name", input.SenderName),
		sql.Named("sender_avatar", input.SenderAvatar), sql.Named("body", input.Body),
		sql.Named("type", input.Type), sql.Named("sent_at", input.SentAt),
		sql.Named("read", false))
	if err != nil {
		return nil, fmt.Errorf("ExecContext(insert messages): %w", err)
	}

	return &models.Message{
		ID:           input.ID,
		RoomID:       input.RoomID,
		Sender:       input.Sender,
		SenderName:   input.SenderName,
		SenderAvatar: input.SenderAvatar,
		Body:         input.Body,
		Type:         input.Type,
		SentAt:       input.SentAt,
		Read:         false,
	}, nil
}

func (s *SQLiteMessageStore) RoomMessages(ctx context.Context, roomID string, ordering Ordering, offset, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	order := "ASC"
	if ordering == Descending {
		order = "DESC"
	}

	query := fmt.Sprintf(
		`SELECT id, room_id, sender, sender_name, sender_avatar, body, type, sent_at, read
		FROM messages WHERE room_id = @room_id
		ORDER BY sent_at %s, id %s LIMIT @limit OFFSET @offset`, order, order)

	rows, err := s.db.QueryContext(ctx, query,
		sql.Named("room_id", roomID), sql.Named("limit", limit), sql.Named("offset", offset))
	if err != nil {
		return nil, fmt.Errorf("QueryContext(select messages): %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Sender, &m.SenderName,
			&m.SenderAvatar, &m.Body, &m.Type, &m.SentAt, &m.Read); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return messages, nil
}

func (s *SQLiteMessageStore) MarkRead(ctx context.Context, roomID string, messageIDs []string) ([]string, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, 0, len(messageIDs))
	args := make([]interface{}, 0, len(messageIDs)+1)
	args = append(args, sql.Named("room_id", roomID))
	for i, id := range messageIDs {
		name := fmt.Sprintf("id%d", i)
		placeholders = append(placeholders, "@"+name)
		args = append(args, sql.Named(name, id))
	}

	query := fmt.Sprintf(
		`UPDATE messages SET read = TRUE
		WHERE room_id = @room_id AND read = FALSE AND id IN (%s)
		RETURNING id`, strings.Join(placeholders, ", "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("QueryContext(update messages): %w", err)
	}
	defer rows.Close()

	var changed []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		changed = append(changed, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return changed, nil
}
