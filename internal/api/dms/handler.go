package dms

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/samrogers05/genesis/internal/api"
	"github.com/samrogers05/genesis/internal/logger"
	"github.com/samrogers05/genesis/internal/models"
	"github.com/samrogers05/genesis/internal/ws"
)

// MaxMessageLength bounds the content of one message.
const MaxMessageLength = 4000

type Store interface {
	ConversationMessages(ctx context.Context, userID, otherUserID string, since *time.Time) ([]models.Message, error)
	InsertMessage(ctx context.Context, senderID, receiverID, content string) (models.Message, error)
	ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)
}

// Hub pushes messages to connected sockets.
type Hub interface {
	Publish(ctx context.Context, topic string, data []byte)
	Serve(conn *websocket.Conn, userID, topic string)
}

type DMHandler struct {
	Store    Store
	Hub      Hub
	Upgrader *websocket.Upgrader
}

type sendRequest struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

// ListConversations returns one entry per conversation partner, most recent first.
func (h *DMHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		return
	}
	convs, err := h.Store.ListConversations(r.Context(), userID)
	if err != nil {
		api.StorageError(w, r, err, "Conversation")
		return
	}
	api.JSON(w, http.StatusOK, convs)
}

// GetMessages returns the messages exchanged with other_user_id, oldest first. With since
// (RFC 3339) only messages created at or after it are returned.
func (h *DMHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		return
	}
	otherUserID := strings.TrimSpace(r.URL.Query().Get("other_user_id"))
	if otherUserID == "" {
		api.Error(w, http.StatusBadRequest, "other_user_id is required")
		return
	}

	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		since = &t
	}

	msgs, err := h.Store.ConversationMessages(r.Context(), userID, otherUserID, since)
	if err != nil {
		api.StorageError(w, r, err, "Conversation")
		return
	}
	api.JSON(w, http.StatusOK, msgs)
}

// SendMessage stores a message and pushes it to both participants' sockets.
func (h *DMHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		return
	}
	var req sendRequest
	if !api.Decode(w, r, &req) {
		return
	}
	req.ReceiverID = strings.TrimSpace(req.ReceiverID)
	content := strings.TrimSpace(req.Content)
	switch {
	case req.ReceiverID == "":
		api.Error(w, http.StatusBadRequest, "receiver_id is required")
		return
	case req.ReceiverID == userID:
		api.Error(w, http.StatusBadRequest, "Cannot message yourself")
		return
	case content == "":
		api.Error(w, http.StatusBadRequest, "Message is empty")
		return
	case len(content) > MaxMessageLength:
		api.Error(w, http.StatusBadRequest, "Message is too long")
		return
	}

	ctx := logger.WithLogFields(r.Context(), logger.LogFields{OtherUserID: logger.Ptr(req.ReceiverID)})
	msg, err := h.Store.InsertMessage(ctx, userID, req.ReceiverID, content)
	if err != nil {
		api.StorageError(w, r.WithContext(ctx), err, "Recipient")
		return
	}

	if h.Hub != nil {
		data, err := json.Marshal(msg)
		if err != nil {
			slog.ErrorContext(ctx, "error encoding message for push", "error", err)
		} else {
			h.Hub.Publish(ctx, ws.DMTopic(msg.ReceiverID), data)
			h.Hub.Publish(ctx, ws.DMTopic(msg.SenderID), data)
		}
	}
	api.JSON(w, http.StatusCreated, msg)
}

// ServeWS upgrades to a socket that receives every message sent to or by the signed-in user.
func (h *DMHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		return
	}
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.Hub.Serve(conn, userID, ws.DMTopic(userID))
}
