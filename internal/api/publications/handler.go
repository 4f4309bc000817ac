package publications

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/samrogers05/genesis/internal/api"
	"github.com/samrogers05/genesis/internal/publications"
)

type Importer interface {
	ImportURL(ctx context.Context, profileID, feedURL string) (publications.Result, error)
}

type PublicationHandler struct {
	Importer Importer
}

type importRequest struct {
	FeedURL string `json:"feed_url"`
}

// ImportFeed adds the entries of an RSS, Atom or JSON feed to the signed-in user's publications.
func (h *PublicationHandler) ImportFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		return
	}
	var req importRequest
	if !api.Decode(w, r, &req) {
		return
	}

	res, err := h.Importer.ImportURL(r.Context(), userID, req.FeedURL)
	switch {
	case err == nil:
		api.JSON(w, http.StatusOK, res)
	case errors.Is(err, publications.ErrInvalidFeedURL):
		api.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, publications.ErrFeedUnavailable):
		slog.WarnContext(r.Context(), "publication feed unavailable", "feed_url", req.FeedURL, "error", err)
		api.Error(w, http.StatusBadGateway, "Could not read that feed")
	default:
		api.StorageError(w, r, err, "Publication")
	}
}
