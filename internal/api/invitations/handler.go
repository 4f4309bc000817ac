package invitations

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/samrogers05/genesis/internal/api"
	"github.com/samrogers05/genesis/internal/logger"
	"github.com/samrogers05/genesis/internal/models"
)

type Store interface {
	CreateInvitation(ctx context.Context, projectID, inviterID, inviteeID string) (models.Invitation, error)
	PendingInvitations(ctx context.Context, inviteeID string) ([]models.Invitation, error)
	RespondInvitation(ctx context.Context, invitationID, inviteeID string, accept bool) (models.Invitation, error)
}

type InvitationHandler struct {
	Store Store
}

type createRequest struct {
	ProjectID string `json:"project_id"`
	InviteeID string `json:"invitee_id"`
}

type respondRequest struct {
	Accept *bool `json:"accept"`
}

// ListInvitations returns the pending invitations addressed to the signed-in user.
func (h *InvitationHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		return
	}
	invs, err := h.Store.PendingInvitations(r.Context(), userID)
	if err != nil {
		api.StorageError(w, r, err, "Invitation")
		return
	}
	api.JSON(w, http.StatusOK, invs)
}

func (h *InvitationHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		return
	}
	var req createRequest
	if !api.Decode(w, r, &req) {
		return
	}
	req.ProjectID = strings.TrimSpace(req.ProjectID)
	req.InviteeID = strings.TrimSpace(req.InviteeID)
	switch {
	case req.ProjectID == "" || req.InviteeID == "":
		api.Error(w, http.StatusBadRequest, "project_id and invitee_id are required")
		return
	case req.InviteeID == userID:
		api.Error(w, http.StatusBadRequest, "Cannot invite yourself")
		return
	}

	ctx := logger.WithLogFields(r.Context(), logger.LogFields{
		ProjectID:   logger.Ptr(req.ProjectID),
		OtherUserID: logger.Ptr(req.InviteeID),
	})
	inv, err := h.Store.CreateInvitation(ctx, req.ProjectID, userID, req.InviteeID)
	if err != nil {
		api.StorageError(w, r.WithContext(ctx), err, "Project")
		return
	}
	slog.InfoContext(ctx, "invitation sent", "invitation_id", inv.ID)
	api.JSON(w, http.StatusCreated, inv)
}

// Respond accepts or rejects an invitation. Only its invitee may answer, and only once.
func (h *InvitationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	userID, ok := api.CurrentUser(w, r)
	if !ok {
		return
	}
	var req respondRequest
	if !api.Decode(w, r, &req) {
		return
	}
	if req.Accept == nil {
		api.Error(w, http.StatusBadRequest, "accept is required")
		return
	}

	inv, err := h.Store.RespondInvitation(r.Context(), mux.Vars(r)["id"], userID, *req.Accept)
	if err != nil {
		api.StorageError(w, r, err, "Invitation")
		return
	}
	api.JSON(w, http.StatusOK, inv)
}
