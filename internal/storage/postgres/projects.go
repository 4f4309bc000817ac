package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/samrogers05/genesis/internal/models"
	"github.com/samrogers05/genesis/internal/storage"
)

const projectColumns = `
	pr.id, pr.name, pr.description, pr.location, pr.photo, pr.visibility,
	pr."signalBoosts", pr."createdBy", pr."createdAt",
	c.id, c."fullName", c."avatarUrl",
	ARRAY(
		SELECT t.name FROM "projectTags" pt JOIN "Tags" t ON t.id = pt."tagId"
		WHERE pt."projectId" = pr.id ORDER BY t.name
	)`

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (models.Project, error) {
	var p models.Project
	var creatorID, creatorName, av *string
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Location, &p.Photo, &p.Visibility,
		&p.SignalBoosts, &p.CreatedBy, &p.CreatedAt,
		&creatorID, &creatorName, &av,
		&p.Tags,
	)
	if err != nil {
		return models.Project{}, err
	}
	p.Creator = nullableSummary(creatorID, creatorName, av)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, nil
}

func (s *Store) queryProjects(ctx context.Context, query string, args ...any) ([]models.Project, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateProject inserts the project, its tags and the creator as first collaborator in
// one transaction.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	var created models.Project
	err := s.withTx(ctx, func(tx *Store) error {
		visibility := p.Visibility
		if visibility == "" {
			visibility = "public"
		}
		var id string
		err := tx.db.QueryRow(ctx, `
			INSERT INTO "Project" (name, description, location, photo, visibility, "createdBy")
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, p.Name, p.Description, p.Location, p.Photo, visibility, p.CreatedBy).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}

		for _, tag := range p.Tags {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, err := tx.db.Exec(ctx, `
				WITH tag AS (
					INSERT INTO "Tags" (name) VALUES ($2)
					ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
					RETURNING id
				)
				INSERT INTO "projectTags" ("projectId", "tagId")
				SELECT $1, id FROM tag
				ON CONFLICT DO NOTHING
			`, id, tag); err != nil {
				return fmt.Errorf("tag project with %q: %w", tag, err)
			}
		}

		if _, err := tx.db.Exec(ctx, `
			INSERT INTO "Collaborators" ("profileId", "projectId", role)
			VALUES ($1, $2, 'creator')
			ON CONFLICT ("profileId", "projectId") DO NOTHING
		`, p.CreatedBy, id); err != nil {
			return fmt.Errorf("add creator as collaborator: %w", err)
		}

		created, err = scanProject(tx.db.QueryRow(ctx, `
			SELECT `+projectColumns+`
			FROM "Project" pr LEFT JOIN "Profile" c ON c.id = pr."createdBy"
			WHERE pr.id = $1
		`, id))
		return err
	})
	return created, err
}

// GetProject returns a project with its creator and collaborators.
func (s *Store) GetProject(ctx context.Context, projectID string) (models.Project, error) {
	p, err := scanProject(s.db.QueryRow(ctx, `
		SELECT `+projectColumns+`
		FROM "Project" pr LEFT JOIN "Profile" c ON c.id = pr."createdBy"
		WHERE pr.id = $1
	`, projectID))
	if err != nil {
		return models.Project{}, notFound(err, "project "+projectID)
	}

	rows, err := s.db.Query(ctx, `
		SELECT p.id, p."fullName", p."avatarUrl"
		FROM "Collaborators" co JOIN "Profile" p ON p.id = co."profileId"
		WHERE co."projectId" = $1
		ORDER BY p."fullName"
	`, projectID)
	if err != nil {
		return models.Project{}, err
	}
	defer rows.Close()

	p.Collaborators = make([]models.ProfileSummary, 0)
	for rows.Next() {
		var (
			c    models.ProfileSummary
			name *string
		)
		if err := rows.Scan(&c.ID, &name, &c.AvatarURL); err != nil {
			return models.Project{}, err
		}
		if name != nil {
			c.FullName = *name
		}
		p.Collaborators = append(p.Collaborators, c)
	}
	return p, rows.Err()
}

// ListProjects returns projects matching the filter, newest first.
func (s *Store) ListProjects(ctx context.Context, f models.ProjectFilter) ([]models.Project, error) {
	return s.queryProjects(ctx, `
		SELECT `+projectColumns+`
		FROM "Project" pr LEFT JOIN "Profile" c ON c.id = pr."createdBy"
		WHERE ($1 = '' OR EXISTS (
				SELECT 1 FROM "projectTags" pt JOIN "Tags" t ON t.id = pt."tagId"
				WHERE pt."projectId" = pr.id AND t.name = $1))
		  AND ($2 = '' OR pr.location = $2)
		  AND ($3 = '' OR pr.name ILIKE '%' || $3 || '%' OR pr.description ILIKE '%' || $3 || '%')
		ORDER BY pr."createdAt" DESC, pr.id
	`, f.Tag, f.Location, strings.TrimSpace(f.Search))
}

// ProjectsByCreator lists the projects a profile created, newest first.
func (s *Store) ProjectsByCreator(ctx context.Context, profileID string) ([]models.Project, error) {
	return s.queryProjects(ctx, `
		SELECT `+projectColumns+`
		FROM "Project" pr LEFT JOIN "Profile" c ON c.id = pr."createdBy"
		WHERE pr."createdBy" = $1
		ORDER BY pr."createdAt" DESC, pr.id
	`, profileID)
}

// AddProjectChange records an update to a project on behalf of one of its collaborators.
func (s *Store) AddProjectChange(ctx context.Context, projectID, authorID, description string) (models.ProjectChange, error) {
	var allowed bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM "Collaborators" WHERE "projectId" = $1 AND "profileId" = $2)
		    OR EXISTS(SELECT 1 FROM "Project" WHERE id = $1 AND "createdBy" = $2)
	`, projectID, authorID).Scan(&allowed)
	if err != nil {
		return models.ProjectChange{}, err
	}
	if !allowed {
		return models.ProjectChange{}, fmt.Errorf("user %s on project %s: %w", authorID, projectID, storage.ErrForbidden)
	}

	var c models.ProjectChange
	var authorName, avatar *string
	err = s.db.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO "Change" ("projectId", "changedBy", description)
			VALUES ($1, $2, $3)
			RETURNING id, "projectId", "changedBy", description, "createdAt"
		)
		SELECT ins.id, ins."projectId", pr.name, ins.description, ins."createdAt", p."fullName", p."avatarUrl"
		FROM ins
		JOIN "Project" pr ON pr.id = ins."projectId"
		LEFT JOIN "Profile" p ON p.id = ins."changedBy"
	`, projectID, authorID, description).Scan(
		&c.ID, &c.ProjectID, &c.ProjectName, &c.Description, &c.CreatedAt, &authorName, &avatar,
	)
	if err != nil {
		return models.ProjectChange{}, err
	}
	c.Author = nullableSummary(&authorID, authorName, avatar)
	return c, nil
}
