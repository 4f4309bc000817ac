package postgres

import (
	"context"
	"fmt"

	"github.com/samrogers05/genesis/internal/models"
	"github.com/samrogers05/genesis/internal/storage"
)

const invitationColumns = `
	i.id, i."projectId", i."inviterId", i."inviteeId", i.status, i."createdAt",
	pr.name, pr.description, pr.photo,
	p."fullName", p."avatarUrl"`

const invitationJoins = `
	FROM "CollaborationInvitations" i
	JOIN "Project" pr ON pr.id = i."projectId"
	LEFT JOIN "Profile" p ON p.id = i."inviterId"`

func scanInvitation(row scanner) (models.Invitation, error) {
	var inv models.Invitation
	var project models.Project
	var inviterName, avatar *string
	if err := row.Scan(
		&inv.ID, &inv.ProjectID, &inv.InviterID, &inv.InviteeID, &inv.Status, &inv.CreatedAt,
		&project.Name, &project.Description, &project.Photo,
		&inviterName, &avatar,
	); err != nil {
		return models.Invitation{}, err
	}
	project.ID = inv.ProjectID
	inv.Project = &project
	inv.Inviter = nullableSummary(&inv.InviterID, inviterName, avatar)
	return inv, nil
}

// CreateInvitation invites inviteeID to a project on behalf of one of its collaborators.
func (s *Store) CreateInvitation(ctx context.Context, projectID, inviterID, inviteeID string) (models.Invitation, error) {
	var inviterOK, inviteeCollaborates bool
	err := s.db.QueryRow(ctx, `
		SELECT
			EXISTS(SELECT 1 FROM "Collaborators" WHERE "projectId" = $1 AND "profileId" = $2),
			EXISTS(SELECT 1 FROM "Collaborators" WHERE "projectId" = $1 AND "profileId" = $3)
		FROM "Project" WHERE id = $1
	`, projectID, inviterID, inviteeID).Scan(&inviterOK, &inviteeCollaborates)
	if err != nil {
		return models.Invitation{}, notFound(err, "project "+projectID)
	}
	if !inviterOK {
		return models.Invitation{}, fmt.Errorf("inviter %s: %w", inviterID, storage.ErrForbidden)
	}
	if inviteeCollaborates {
		return models.Invitation{}, fmt.Errorf("invitee %s already collaborates: %w", inviteeID, storage.ErrConflict)
	}

	var id string
	err = s.db.QueryRow(ctx, `
		INSERT INTO "CollaborationInvitations" ("projectId", "inviterId", "inviteeId")
		VALUES ($1, $2, $3)
		RETURNING id
	`, projectID, inviterID, inviteeID).Scan(&id)
	if err != nil {
		return models.Invitation{}, conflict(err, "invitation for "+inviteeID)
	}
	return scanInvitation(s.db.QueryRow(ctx, `SELECT `+invitationColumns+invitationJoins+` WHERE i.id = $1`, id))
}

// PendingInvitations lists pending invitations addressed to inviteeID, newest first.
func (s *Store) PendingInvitations(ctx context.Context, inviteeID string) ([]models.Invitation, error) {
	rows, err := s.db.Query(ctx, `SELECT `+invitationColumns+invitationJoins+`
		WHERE i."inviteeId" = $1 AND i.status = 'pending'
		ORDER BY i."createdAt" DESC
	`, inviteeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Invitation, 0)
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// RespondInvitation accepts or rejects a pending invitation; accepting adds the invitee as
// a collaborator in the same transaction.
func (s *Store) RespondInvitation(ctx context.Context, invitationID, inviteeID string, accept bool) (models.Invitation, error) {
	status := models.InvitationRejected
	if accept {
		status = models.InvitationAccepted
	}

	var out models.Invitation
	err := s.withTx(ctx, func(tx *Store) error {
		var current models.InvitationStatus
		err := tx.db.QueryRow(ctx, `
			SELECT status FROM "CollaborationInvitations"
			WHERE id = $1 AND "inviteeId" = $2
			FOR UPDATE
		`, invitationID, inviteeID).Scan(&current)
		if err != nil {
			return notFound(err, "invitation "+invitationID)
		}
		if current != models.InvitationPending {
			return fmt.Errorf("invitation %s is %s: %w", invitationID, current, storage.ErrConflict)
		}

		if _, err := tx.db.Exec(ctx, `
			UPDATE "CollaborationInvitations" SET status = $2 WHERE id = $1
		`, invitationID, string(status)); err != nil {
			return err
		}

		if accept {
			tag, err := tx.db.Exec(ctx, `
				INSERT INTO "Collaborators" ("profileId", "projectId", role)
				SELECT "inviteeId", "projectId", 'collaborator'
				FROM "CollaborationInvitations" WHERE id = $1
				ON CONFLICT ("profileId", "projectId") DO NOTHING
			`, invitationID)
			if err != nil {
				return fmt.Errorf("add collaborator: %w", err)
			}
			if tag.RowsAffected() > 0 {
				if _, err := tx.db.Exec(ctx, `
					UPDATE "Profile" SET collaborations = collaborations + 1 WHERE id = $1
				`, inviteeID); err != nil {
					return err
				}
			}
		}

		out, err = scanInvitation(tx.db.QueryRow(ctx, `SELECT `+invitationColumns+invitationJoins+` WHERE i.id = $1`, invitationID))
		return err
	})
	return out, err
}
