package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samrogers05/genesis/internal/models"
)

// ConversationMessages returns every message exchanged between the two users created at
// or after since, ordered by creation time then id.
func (s *Store) ConversationMessages(_ context.Context, userID, otherUserID string, since *time.Time) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := make([]models.Message, 0)
	for _, i := range s.userIndex[userID] {
		m := s.messages[i]
		if !between(m, userID, otherUserID) {
			continue
		}
		if since != nil && m.CreatedAt.Before(*since) {
			continue
		}
		msgs = append(msgs, m)
	}
	sortMessages(msgs)
	return msgs, nil
}

// InsertMessage stores a new message and returns the stored row.
func (s *Store) InsertMessage(_ context.Context, senderID, receiverID, content string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := models.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  s.now().UTC(),
	}
	s.messages = append(s.messages, msg)
	idx := len(s.messages) - 1
	s.userIndex[senderID] = append(s.userIndex[senderID], idx)
	if receiverID != senderID {
		s.userIndex[receiverID] = append(s.userIndex[receiverID], idx)
	}
	return msg, nil
}

// ListConversations returns one summary per other participant, newest conversation first.
func (s *Store) ListConversations(_ context.Context, userID string) ([]models.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]models.Message)
	for _, i := range s.userIndex[userID] {
		m := s.messages[i]
		other := m.ReceiverID
		if m.SenderID != userID {
			other = m.SenderID
		}
		prev, ok := latest[other]
		if !ok || newer(m, prev) {
			latest[other] = m
		}
	}

	out := make([]models.ConversationSummary, 0, len(latest))
	for other, m := range latest {
		m := m
		out = append(out, models.ConversationSummary{
			OtherUser:   *s.summary(other),
			LastMessage: &m,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return newer(*out[i].LastMessage, *out[j].LastMessage)
	})
	return out, nil
}

func between(m models.Message, a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

func newer(a, b models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return strings.Compare(a.ID, b.ID) > 0
}

func sortMessages(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
}
