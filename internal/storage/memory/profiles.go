package memory

import (
	"context"
	"fmt"

	"github.com/samrogers05/genesis/internal/models"
	"github.com/samrogers05/genesis/internal/storage"
)

func (s *Store) GetProfile(_ context.Context, profileID string) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return models.Profile{}, fmt.Errorf("profile %s: %w", profileID, storage.ErrNotFound)
	}
	out := *p
	out.Tags = append([]string(nil), p.Tags...)
	return out, nil
}

// UpsertProfile creates or replaces a profile. Counters and the creation time of an
// existing profile are preserved.
func (s *Store) UpsertProfile(_ context.Context, p models.Profile) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.Tags = uniqueTags(p.Tags)
	if existing, ok := s.profiles[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
		p.Publications = existing.Publications
		p.Citations = existing.Citations
		p.Collaborations = existing.Collaborations
		if p.SignalBoosts == nil {
			p.SignalBoosts = existing.SignalBoosts
		}
	} else {
		p.CreatedAt = s.now().UTC()
	}
	stored := p
	s.profiles[p.ID] = &stored
	return p, nil
}
