package postgres

import (
	"context"

	"github.com/samrogers05/genesis/internal/models"
)

// RecentProjects returns the newest projects.
func (s *Store) RecentProjects(ctx context.Context, limit int) ([]models.Project, error) {
	return s.queryProjects(ctx, `
		SELECT `+projectColumns+`
		FROM "Project" pr LEFT JOIN "Profile" c ON c.id = pr."createdBy"
		ORDER BY pr."createdAt" DESC, pr.id
		LIMIT $1
	`, limit)
}

// TrendingProjects returns boosted projects ordered by boost count.
func (s *Store) TrendingProjects(ctx context.Context, limit int) ([]models.Project, error) {
	return s.queryProjects(ctx, `
		SELECT `+projectColumns+`
		FROM "Project" pr LEFT JOIN "Profile" c ON c.id = pr."createdBy"
		WHERE pr."signalBoosts" > 0
		ORDER BY pr."signalBoosts" DESC, pr."createdAt" DESC
		LIMIT $1
	`, limit)
}

// RecentChanges returns the newest project change records with project name and author.
func (s *Store) RecentChanges(ctx context.Context, limit int) ([]models.ProjectChange, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ch.id, ch."projectId", pr.name, ch.description, ch."createdAt",
		       p.id, p."fullName", p."avatarUrl"
		FROM "Change" ch
		JOIN "Project" pr ON pr.id = ch."projectId"
		LEFT JOIN "Profile" p ON p.id = ch."changedBy"
		ORDER BY ch."createdAt" DESC, ch.id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.ProjectChange, 0)
	for rows.Next() {
		var c models.ProjectChange
		var authorID, authorName, avatar *string
		if err := rows.Scan(
			&c.ID, &c.ProjectID, &c.ProjectName, &c.Description, &c.CreatedAt,
			&authorID, &authorName, &avatar,
		); err != nil {
			return nil, err
		}
		c.Author = nullableSummary(authorID, authorName, avatar)
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecentPublications returns the newest publications with their authors.
func (s *Store) RecentPublications(ctx context.Context, limit int) ([]models.Publication, error) {
	rows, err := s.db.Query(ctx, `
		SELECT pub.id, pub."profileID", pub.title, pub.abstract, pub.journal, pub.doi,
		       COALESCE(pub.year, 0), pub."createdAt",
		       p.id, p."fullName", p."avatarUrl"
		FROM "Publications" pub
		LEFT JOIN "Profile" p ON p.id = pub."profileID"
		ORDER BY pub."createdAt" DESC, pub.id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Publication, 0)
	for rows.Next() {
		var pub models.Publication
		var authorID, authorName, avatar *string
		if err := rows.Scan(
			&pub.ID, &pub.ProfileID, &pub.Title, &pub.Abstract, &pub.Journal, &pub.DOI,
			&pub.Year, &pub.CreatedAt,
			&authorID, &authorName, &avatar,
		); err != nil {
			return nil, err
		}
		pub.Author = nullableSummary(authorID, authorName, avatar)
		out = append(out, pub)
	}
	return out, rows.Err()
}

// InsertPublication stores a publication unless the profile already has one with the same
// DOI, or the same title when no DOI is known. It reports whether a row was inserted.
func (s *Store) InsertPublication(ctx context.Context, pub models.Publication) (models.Publication, bool, error) {
	var existing models.Publication
	err := s.db.QueryRow(ctx, `
		SELECT id, "profileID", title, abstract, journal, doi, COALESCE(year, 0), "createdAt"
		FROM "Publications"
		WHERE "profileID" = $1
		  AND CASE WHEN $2 <> '' THEN lower(doi) = lower($2)
		           ELSE doi = '' AND lower(btrim(title)) = lower(btrim($3)) END
		LIMIT 1
	`, pub.ProfileID, pub.DOI, pub.Title).Scan(
		&existing.ID, &existing.ProfileID, &existing.Title, &existing.Abstract,
		&existing.Journal, &existing.DOI, &existing.Year, &existing.CreatedAt,
	)
	if err == nil {
		return existing, false, nil
	}
	if err := notFound(err, "publication"); !isNotFound(err) {
		return models.Publication{}, false, err
	}

	var year *int
	if pub.Year > 0 {
		year = &pub.Year
	}
	err = s.withTx(ctx, func(tx *Store) error {
		if err := tx.db.QueryRow(ctx, `
			INSERT INTO "Publications" ("profileID", title, abstract, journal, doi, year)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, "createdAt"
		`, pub.ProfileID, pub.Title, pub.Abstract, pub.Journal, pub.DOI, year).Scan(&pub.ID, &pub.CreatedAt); err != nil {
			return err
		}
		_, err := tx.db.Exec(ctx, `UPDATE "Profile" SET publications = publications + 1 WHERE id = $1`, pub.ProfileID)
		return err
	})
	if err != nil {
		return models.Publication{}, false, err
	}
	return pub, true, nil
}

// BoostLedger reports the user's daily allowance and the projects they boosted today (UTC).
func (s *Store) BoostLedger(ctx context.Context, userID string) (models.BoostLedger, error) {
	ledger := models.BoostLedger{DailyAllowance: s.defaultBoosts}

	var allowance *int
	err := s.db.QueryRow(ctx, `SELECT "signalBoosts" FROM "Profile" WHERE id = $1`, userID).Scan(&allowance)
	if err := notFound(err, "profile"); err != nil && !isNotFound(err) {
		return models.BoostLedger{}, err
	}
	if allowance != nil {
		ledger.DailyAllowance = *allowance
	}

	rows, err := s.db.Query(ctx, `
		SELECT "projectId"
		FROM "SignalBoosts"
		WHERE "profileId" = $1 AND "boostedOn" = (NOW() AT TIME ZONE 'UTC')::date
		ORDER BY "createdAt"
	`, userID)
	if err != nil {
		return models.BoostLedger{}, err
	}
	defer rows.Close()

	ledger.BoostedProjectIDs = make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return models.BoostLedger{}, err
		}
		ledger.BoostedProjectIDs = append(ledger.BoostedProjectIDs, id)
	}
	return ledger, rows.Err()
}

// ApplySignalBoost calls the apply_signal_boost procedure, which re-validates the quota and
// prior boosts server-side. A NULL result is reported as false.
func (s *Store) ApplySignalBoost(ctx context.Context, userID, projectID string) (bool, error) {
	var ok *bool
	if err := s.db.QueryRow(ctx, `SELECT apply_signal_boost($1, $2, $3)`, userID, projectID, s.defaultBoosts).Scan(&ok); err != nil {
		return false, err
	}
	return ok != nil && *ok, nil
}
