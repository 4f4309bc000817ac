package feed

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/samrogers05/genesis/internal/api"
	"github.com/samrogers05/genesis/internal/feed"
	"github.com/samrogers05/genesis/internal/models"
	"github.com/samrogers05/genesis/internal/ws"
)

// Hub serves feed sockets.
type Hub interface {
	Serve(conn *websocket.Conn, userID, topic string)
}

type FeedHandler struct {
	Sessions *feed.Sessions
	Hub      Hub
	Upgrader *websocket.Upgrader
}

type feedResponse struct {
	Items          []models.FeedItem `json:"items"`
	DailyRemaining int               `json:"daily_remaining"`
}

type boostRequest struct {
	ItemID string `json:"item_id"`
}

// GetFeed returns the signed-in user's feed. ?refresh=true reloads it from storage;
// otherwise the session's current list is returned.
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		return
	}
	s, err := h.Sessions.Open(r.Context(), userID)
	if err != nil {
		writeFeedError(w, r, err)
		return
	}

	var items []models.FeedItem
	if r.URL.Query().Get("refresh") == "true" {
		items = s.Refresh(r.Context())
	} else {
		items = s.Items()
	}
	api.JSON(w, http.StatusOK, feedResponse{Items: items, DailyRemaining: s.Remaining()})
}

// Boost spends one of today's signal boosts on a feed item.
func (h *FeedHandler) Boost(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		return
	}
	var req boostRequest
	if !api.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ItemID) == "" {
		api.Error(w, http.StatusBadRequest, "item_id is required")
		return
	}

	s, err := h.Sessions.Open(r.Context(), userID)
	if err != nil {
		writeFeedError(w, r, err)
		return
	}
	res, err := s.Boost(r.Context(), req.ItemID)
	switch {
	case err == nil:
		api.JSON(w, http.StatusOK, res)
	case errors.Is(err, feed.ErrBoostRejected):
		// the rolled back state, so the client can redraw it
		api.JSON(w, http.StatusConflict, struct {
			feed.BoostResult
			Error string `json:"error"`
		}{res, "Signal boost failed, please try again"})
	default:
		writeFeedError(w, r, err)
	}
}

// ServeWS upgrades to a socket that receives project_created events.
func (h *FeedHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		return
	}
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.Hub.Serve(conn, userID, ws.FeedTopic)
}

func writeFeedError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, feed.ErrNotAuthenticated):
		api.Error(w, http.StatusUnauthorized, "Please sign in")
	case errors.Is(err, feed.ErrUnknownItem):
		api.Error(w, http.StatusNotFound, "Feed item not found")
	case errors.Is(err, feed.ErrQuotaExhausted),
		errors.Is(err, feed.ErrAlreadyBoosted),
		errors.Is(err, feed.ErrBoostPending),
		errors.Is(err, feed.ErrNotBoostable):
		api.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "feed request failed", "error", err)
		api.Error(w, http.StatusInternalServerError, "Failed to load feed")
	}
}
