package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/samrogers05/genesis/internal/models"
)

const profileColumns = `
	id, "fullName", email, "avatarUrl", about, "keyQuestion", "labAffiliation", organization,
	location, "researchAreas", "researchProject", publications, citations, collaborations,
	"signalBoosts", "createdAt",
	ARRAY(
		SELECT t.name FROM "profileTags" pt JOIN "Tags" t ON t.id = pt."tagId"
		WHERE pt."profileId" = "Profile".id ORDER BY t.name
	)`

func scanProfile(row scanner) (models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID, &p.FullName, &p.Email, &p.AvatarURL, &p.About, &p.KeyQuestion, &p.LabAffiliation,
		&p.Organization, &p.Location, &p.ResearchAreas, &p.ResearchProject,
		&p.Publications, &p.Citations, &p.Collaborations, &p.SignalBoosts, &p.CreatedAt,
		&p.Tags,
	)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, err
}

func (s *Store) GetProfile(ctx context.Context, profileID string) (models.Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM "Profile" WHERE id = $1`, profileID))
	if err != nil {
		return models.Profile{}, notFound(err, "profile "+profileID)
	}
	return p, nil
}

// UpsertProfile creates or updates the editable columns of a profile and replaces its tags.
func (s *Store) UpsertProfile(ctx context.Context, p models.Profile) (models.Profile, error) {
	var out models.Profile
	err := s.withTx(ctx, func(tx *Store) error {
		if _, err := tx.db.Exec(ctx, `
			INSERT INTO "Profile" (id, "fullName", email, "avatarUrl", about, "keyQuestion",
				"labAffiliation", organization, location, "researchAreas", "researchProject", "signalBoosts")
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO UPDATE SET
				"fullName" = EXCLUDED."fullName",
				email = EXCLUDED.email,
				"avatarUrl" = COALESCE(EXCLUDED."avatarUrl", "Profile"."avatarUrl"),
				about = EXCLUDED.about,
				"keyQuestion" = EXCLUDED."keyQuestion",
				"labAffiliation" = EXCLUDED."labAffiliation",
				organization = EXCLUDED.organization,
				location = EXCLUDED.location,
				"researchAreas" = EXCLUDED."researchAreas",
				"researchProject" = EXCLUDED."researchProject",
				"signalBoosts" = COALESCE(EXCLUDED."signalBoosts", "Profile"."signalBoosts")
		`, p.ID, p.FullName, p.Email, p.AvatarURL, p.About, p.KeyQuestion, p.LabAffiliation,
			p.Organization, p.Location, p.ResearchAreas, p.ResearchProject, p.SignalBoosts); err != nil {
			return fmt.Errorf("upsert profile: %w", err)
		}

		if _, err := tx.db.Exec(ctx, `DELETE FROM "profileTags" WHERE "profileId" = $1`, p.ID); err != nil {
			return fmt.Errorf("clear profile tags: %w", err)
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
				INSERT INTO "profileTags" ("profileId", "tagId")
				SELECT $1, id FROM tag
				ON CONFLICT DO NOTHING
			`, p.ID, tag); err != nil {
				return fmt.Errorf("tag profile with %q: %w", tag, err)
			}
		}

		var err error
		out, err = tx.GetProfile(ctx, p.ID)
		return err
	})
	return out, err
}
