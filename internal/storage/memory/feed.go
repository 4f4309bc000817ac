package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/samrogers05/genesis/internal/models"
	"github.com/samrogers05/genesis/internal/storage"
)

// RecentProjects returns the newest projects.
func (s *Store) RecentProjects(ctx context.Context, limit int) ([]models.Project, error) {
	projects, err := s.ListProjects(ctx, models.ProjectFilter{})
	if err != nil {
		return nil, err
	}
	return capProjects(projects, limit), nil
}

// TrendingProjects returns boosted projects ordered by boost count.
func (s *Store) TrendingProjects(_ context.Context, limit int) ([]models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Project, 0)
	for _, p := range s.projects {
		if p.SignalBoosts > 0 {
			out = append(out, s.projectView(p, false))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SignalBoosts != out[j].SignalBoosts {
			return out[i].SignalBoosts > out[j].SignalBoosts
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return capProjects(out, limit), nil
}

// RecentChanges returns the newest project change records.
func (s *Store) RecentChanges(_ context.Context, limit int) ([]models.ProjectChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ProjectChange, 0, limit)
	for i := len(s.changes) - 1; i >= 0 && len(out) < limit; i-- {
		c := s.changes[i]
		if p, ok := s.projects[c.ProjectID]; ok {
			c.ProjectName = p.Name
		}
		out = append(out, c)
	}
	return out, nil
}

// RecentPublications returns the newest publications with their authors.
func (s *Store) RecentPublications(_ context.Context, limit int) ([]models.Publication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Publication, 0, limit)
	for i := len(s.publications) - 1; i >= 0 && len(out) < limit; i-- {
		pub := s.publications[i]
		pub.Author = s.summary(pub.ProfileID)
		out = append(out, pub)
	}
	return out, nil
}

// InsertPublication stores a publication unless the profile already has one with the same
// DOI, or the same title when no DOI is known. It reports whether a row was inserted.
func (s *Store) InsertPublication(_ context.Context, pub models.Publication) (models.Publication, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.publications {
		if existing.ProfileID == pub.ProfileID && samePublication(existing, pub) {
			return existing, false, nil
		}
	}
	pub.ID = uuid.NewString()
	pub.CreatedAt = s.now().UTC()
	pub.Author = nil
	s.publications = append(s.publications, pub)
	if p, ok := s.profiles[pub.ProfileID]; ok {
		p.Publications++
	}
	return pub, true, nil
}

// BoostLedger reports the user's allowance and the projects they boosted today.
func (s *Store) BoostLedger(_ context.Context, userID string) (models.BoostLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return models.BoostLedger{
		DailyAllowance:    s.allowance(userID),
		BoostedProjectIDs: s.boostedToday(userID),
	}, nil
}

// ApplySignalBoost re-validates the quota and prior boosts, then records the boost and
// increments the project's counter, all under one lock. It returns false without error
// when the boost is not allowed.
func (s *Store) ApplySignalBoost(_ context.Context, userID, projectID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok {
		return false, fmt.Errorf("project %s: %w", projectID, storage.ErrNotFound)
	}
	boosted := s.boostedToday(userID)
	if len(boosted) >= s.allowance(userID) {
		return false, nil
	}
	for _, id := range boosted {
		if id == projectID {
			return false, nil
		}
	}

	s.boosts = append(s.boosts, boostRecord{userID: userID, projectID: projectID, at: s.now().UTC()})
	p.SignalBoosts++
	return true, nil
}

func (s *Store) allowance(userID string) int {
	if p, ok := s.profiles[userID]; ok && p.SignalBoosts != nil {
		return *p.SignalBoosts
	}
	return s.defaultBoosts
}

func (s *Store) boostedToday(userID string) []string {
	start := s.today()
	ids := make([]string, 0)
	for _, b := range s.boosts {
		if b.userID == userID && !b.at.Before(start) {
			ids = append(ids, b.projectID)
		}
	}
	return ids
}

func samePublication(a, b models.Publication) bool {
	if a.DOI != "" || b.DOI != "" {
		return strings.EqualFold(a.DOI, b.DOI)
	}
	return strings.EqualFold(strings.TrimSpace(a.Title), strings.TrimSpace(b.Title))
}

func capProjects(projects []models.Project, limit int) []models.Project {
	if limit > 0 && len(projects) > limit {
		return projects[:limit]
	}
	return projects
}
