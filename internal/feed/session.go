package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samrogers05/genesis/internal/logger"
	"github.com/samrogers05/genesis/internal/models"
)

// BoostResult is the outcome of a boost as the viewer should now see it.
type BoostResult struct {
	Item           models.FeedItem `json:"item"`
	Status         BoostStatus     `json:"status"`
	DailyRemaining int             `json:"daily_remaining"`
}

// Session is one user's view of the feed: the loaded items and the boost quota. Every
// method is safe for concurrent use; the backend call of a boost runs without the lock.
type Session struct {
	mu sync.Mutex

	userID  string
	day     time.Time
	agg     *Aggregator
	booster Booster
	log     *slog.Logger

	items []models.FeedItem
	index map[string]int // item id -> position in items
	state BoostState

	boostedProjects map[string]struct{} // confirmed today
	pending         map[string]struct{} // project ids awaiting the backend
	version         int                 // bumped on every state change
}

func (s *Session) UserID() string { return s.userID }

// Refresh reloads the feed and re-applies the session's boosts to the new items.
func (s *Session) Refresh(ctx context.Context) []models.FeedItem {
	items := s.agg.LoadFeed(ctx, s.userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = items
	s.version++
	s.reindex()
	// reloaded rows do not include boosts still waiting on the backend
	for pid := range s.pending {
		s.adjustCounts(pid, +1)
	}

	boosted := make(map[string]struct{}, len(s.state.BoostedItemIDs))
	for i := range s.items {
		pid := linkedProject(s.items[i])
		if pid == "" {
			continue
		}
		_, done := s.boostedProjects[pid]
		_, waiting := s.pending[pid]
		if done || waiting {
			boosted[s.items[i].ID] = struct{}{}
		}
	}
	s.state.BoostedItemIDs = boosted
	return s.snapshot()
}

// Items returns a copy of the feed with BoostedByCurrentUser filled in.
func (s *Session) Items() []models.FeedItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DailyRemaining
}

func (s *Session) Status(itemID string) BoostStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status(itemID)
}

// Boost spends one of today's boosts on the item's project. The quota, the boosted flag and
// the displayed count change before the backend is called; if the backend fails or declines,
// all three are restored and ErrBoostRejected is returned. Precondition failures return
// without touching state or the backend.
func (s *Session) Boost(ctx context.Context, itemID string) (BoostResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: logger.Ptr(s.userID), Component: "genesis.feed"})

	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return BoostResult{}, ErrNotAuthenticated
	}
	i, ok := s.index[itemID]
	if !ok {
		s.mu.Unlock()
		return BoostResult{}, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}
	projectID := linkedProject(s.items[i])
	if projectID == "" || s.items[i].SignalBoostCount == nil {
		s.mu.Unlock()
		return BoostResult{}, fmt.Errorf("%w: %s", ErrNotBoostable, itemID)
	}
	if _, busy := s.pending[projectID]; busy {
		s.mu.Unlock()
		return BoostResult{}, ErrBoostPending
	}

	ids := s.itemsFor(projectID)
	prev, err := s.state.Apply(ids...)
	if err != nil {
		s.mu.Unlock()
		return BoostResult{}, err
	}
	s.pending[projectID] = struct{}{}
	s.adjustCounts(projectID, +1)
	s.version++
	version := s.version
	s.mu.Unlock()

	applied, err := s.booster.ApplySignalBoost(ctx, s.userID, projectID)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, projectID)

	if err != nil || !applied {
		if s.version == version {
			s.state = prev
		} else {
			s.state.Revert(s.itemsFor(projectID)...)
		}
		// while pending, every item of the project carries the optimistic +1, reloads included
		s.adjustCounts(projectID, -1)
		s.version++

		if err == nil {
			err = fmt.Errorf("backend declined boost of project %s", projectID)
		}
		s.log.WarnContext(ctx, "signal boost rolled back", "project_id", projectID, "error", err)
		return s.result(itemID), fmt.Errorf("%w: %v", ErrBoostRejected, err)
	}

	s.boostedProjects[projectID] = struct{}{}
	s.log.InfoContext(ctx, "signal boost applied", "project_id", projectID, "remaining", s.state.DailyRemaining)
	return s.result(itemID), nil
}

// prepend adds a newly created project at the head of the list unless it is already shown.
func (s *Session) prepend(p models.Project) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := NewProjectItem(p)
	if _, ok := s.index[item.ID]; ok || item.Timestamp.IsZero() {
		return false
	}
	// a boost in flight for this project already covers the new item
	if _, busy := s.pending[p.ID]; busy {
		item.SignalBoostCount = ptr(count(item) + 1)
		s.state.BoostedItemIDs[item.ID] = struct{}{}
	}
	s.items = append([]models.FeedItem{item}, s.items...)
	s.reindex()
	return true
}

func (s *Session) status(itemID string) BoostStatus {
	i, ok := s.index[itemID]
	if !ok {
		return StatusUnboosted
	}
	if _, busy := s.pending[linkedProject(s.items[i])]; busy {
		return StatusPending
	}
	if s.state.Boosted(itemID) {
		return StatusBoosted
	}
	return StatusUnboosted
}

func (s *Session) result(itemID string) BoostResult {
	r := BoostResult{Status: s.status(itemID), DailyRemaining: s.state.DailyRemaining}
	if i, ok := s.index[itemID]; ok {
		r.Item = s.view(s.items[i])
	}
	return r
}

func (s *Session) snapshot() []models.FeedItem {
	out := make([]models.FeedItem, len(s.items))
	for i, item := range s.items {
		out[i] = s.view(item)
	}
	return out
}

func (s *Session) view(item models.FeedItem) models.FeedItem {
	if item.SignalBoostCount != nil {
		item.SignalBoostCount = ptr(*item.SignalBoostCount)
		item.BoostedByCurrentUser = ptr(s.state.Boosted(item.ID))
	}
	return item
}

func (s *Session) itemsFor(projectID string) []string {
	var ids []string
	for _, item := range s.items {
		if item.SignalBoostCount != nil && linkedProject(item) == projectID {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

func (s *Session) adjustCounts(projectID string, delta int) {
	for i := range s.items {
		if s.items[i].SignalBoostCount != nil && linkedProject(s.items[i]) == projectID {
			s.items[i].SignalBoostCount = ptr(max(count(s.items[i])+delta, 0))
		}
	}
}

func (s *Session) reindex() {
	s.index = make(map[string]int, len(s.items))
	for i, item := range s.items {
		s.index[item.ID] = i
	}
}

func linkedProject(item models.FeedItem) string {
	if item.LinkedProjectID == nil {
		return ""
	}
	return *item.LinkedProjectID
}

func count(item models.FeedItem) int {
	if item.SignalBoostCount == nil {
		return 0
	}
	return *item.SignalBoostCount
}
