package chat_test

import (
	"context"
	"sync"
	"time"

	"github.com/samrogers05/genesis/internal/models"
)

type mockBackend struct {
	conversationMessagesFn func(ctx context.Context, userID, otherUserID string, since *time.Time) ([]models.Message, error)
	insertMessageFn        func(ctx context.Context, senderID, receiverID, content string) (models.Message, error)

	mu     sync.Mutex
	bounds []*time.Time
}

func (m *mockBackend) ConversationMessages(ctx context.Context, userID, otherUserID string, since *time.Time) ([]models.Message, error) {
	m.mu.Lock()
	m.bounds = append(m.bounds, since)
	m.mu.Unlock()
	if m.conversationMessagesFn != nil {
		return m.conversationMessagesFn(ctx, userID, otherUserID, since)
	}
	return []models.Message{}, nil
}

func (m *mockBackend) InsertMessage(ctx context.Context, senderID, receiverID, content string) (models.Message, error) {
	if m.insertMessageFn != nil {
		return m.insertMessageFn(ctx, senderID, receiverID, content)
	}
	return models.Message{ID: "sent", SenderID: senderID, ReceiverID: receiverID, Content: content, CreatedAt: time.Now()}, nil
}

func (m *mockBackend) loads() []*time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*time.Time(nil), m.bounds...)
}
