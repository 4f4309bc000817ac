package postgres

import (
	"context"
	"time"

	"github.com/samrogers05/genesis/internal/models"
)

// ConversationMessages calls get_conversation_messages with an optional inclusive lower bound.
func (s *Store) ConversationMessages(ctx context.Context, userID, otherUserID string, since *time.Time) ([]models.Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, sender_id, receiver_id, content, createdat
		FROM get_conversation_messages($1, $2, $3)
	`, userID, otherUserID, since)
	if err != nil {
		return nil, notFound(err, "profile "+otherUserID)
	}
	defer rows.Close()

	msgs := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, notFound(err, "profile "+otherUserID)
	}
	return msgs, nil
}

// InsertMessage adds a message and returns the stored row.
func (s *Store) InsertMessage(ctx context.Context, senderID, receiverID, content string) (models.Message, error) {
	var m models.Message
	err := s.db.QueryRow(ctx, `
		INSERT INTO messages (sender_id, receiver_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, sender_id, receiver_id, content, createdat
	`, senderID, receiverID, content).Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt)
	if err != nil {
		return models.Message{}, notFound(err, "profile "+receiverID)
	}
	return m, nil
}

// ListConversations returns, for every user the caller exchanged messages with, that
// user's profile and the latest message, newest first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT other_id, p."fullName", p."avatarUrl",
		       lm.id, lm.sender_id, lm.receiver_id, lm.content, lm.createdat
		FROM (
			SELECT DISTINCT ON (other_id) *
			FROM (
				SELECT m.*, CASE WHEN m.sender_id = $1 THEN m.receiver_id ELSE m.sender_id END AS other_id
				FROM messages m
				WHERE m.sender_id = $1 OR m.receiver_id = $1
			) tagged
			ORDER BY other_id, createdat DESC, id DESC
		) lm
		LEFT JOIN "Profile" p ON p.id = lm.other_id
		ORDER BY lm.createdat DESC, lm.id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var (
			summary  models.ConversationSummary
			fullName *string
			m        models.Message
		)
		if err := rows.Scan(
			&summary.OtherUser.ID, &fullName, &summary.OtherUser.AvatarURL,
			&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		if fullName != nil {
			summary.OtherUser.FullName = *fullName
		}
		summary.LastMessage = &m
		out = append(out, summary)
	}
	return out, rows.Err()
}
