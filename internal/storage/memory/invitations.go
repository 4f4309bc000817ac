package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/samrogers05/genesis/internal/models"
	"github.com/samrogers05/genesis/internal/storage"
)

// CreateInvitation invites inviteeID to a project. Only the project's collaborators may
// invite, and only one pending invitation per invitee and project may exist.
func (s *Store) CreateInvitation(_ context.Context, projectID, inviterID, inviteeID string) (models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[projectID]; !ok {
		return models.Invitation{}, fmt.Errorf("project %s: %w", projectID, storage.ErrNotFound)
	}
	if !s.isCollaborator(projectID, inviterID) {
		return models.Invitation{}, fmt.Errorf("inviter %s: %w", inviterID, storage.ErrForbidden)
	}
	if s.isCollaborator(projectID, inviteeID) {
		return models.Invitation{}, fmt.Errorf("invitee %s already collaborates: %w", inviteeID, storage.ErrConflict)
	}
	for _, inv := range s.invitations {
		if inv.ProjectID == projectID && inv.InviteeID == inviteeID && inv.Status == models.InvitationPending {
			return models.Invitation{}, fmt.Errorf("invitation for %s: %w", inviteeID, storage.ErrConflict)
		}
	}

	inv := &models.Invitation{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		InviterID: inviterID,
		InviteeID: inviteeID,
		Status:    models.InvitationPending,
		CreatedAt: s.now().UTC(),
	}
	s.invitations[inv.ID] = inv
	return s.invitationView(inv), nil
}

// PendingInvitations lists pending invitations addressed to inviteeID, newest first.
func (s *Store) PendingInvitations(_ context.Context, inviteeID string) ([]models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Invitation, 0)
	for _, inv := range s.invitations {
		if inv.InviteeID == inviteeID && inv.Status == models.InvitationPending {
			out = append(out, s.invitationView(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// RespondInvitation accepts or rejects a pending invitation on behalf of its invitee.
// Accepting adds the invitee as a collaborator.
func (s *Store) RespondInvitation(_ context.Context, invitationID, inviteeID string, accept bool) (models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invitations[invitationID]
	if !ok || inv.InviteeID != inviteeID {
		return models.Invitation{}, fmt.Errorf("invitation %s: %w", invitationID, storage.ErrNotFound)
	}
	if inv.Status != models.InvitationPending {
		return models.Invitation{}, fmt.Errorf("invitation %s is %s: %w", invitationID, inv.Status, storage.ErrConflict)
	}

	if accept {
		inv.Status = models.InvitationAccepted
		s.addCollaborator(inv.ProjectID, inviteeID)
		if p, ok := s.profiles[inviteeID]; ok {
			p.Collaborations++
		}
	} else {
		inv.Status = models.InvitationRejected
	}
	return s.invitationView(inv), nil
}

func (s *Store) invitationView(inv *models.Invitation) models.Invitation {
	out := *inv
	if p, ok := s.projects[inv.ProjectID]; ok {
		project := s.projectView(p, false)
		out.Project = &project
	}
	out.Inviter = s.summary(inv.InviterID)
	return out
}
