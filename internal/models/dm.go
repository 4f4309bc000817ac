package models

import "time"

// Message is one row of the messages table. Messages are immutable once created.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdat"` // column name kept as the backend spells it
}

// ConversationView is the locally held state of a two-party thread.
// It only ever grows within a session.
type ConversationView struct {
	OtherUserID     string    `json:"other_user_id"`
	OtherUserName   string    `json:"other_user_name"`
	OtherUserAvatar *string   `json:"other_user_avatar,omitempty"`
	Messages        []Message `json:"messages"`
}

// ConversationSummary is one entry of the conversation list: the other participant and
// the latest message exchanged with them.
type ConversationSummary struct {
	OtherUser   ProfileSummary `json:"other_user"`
	LastMessage *Message       `json:"last_message"`
}
