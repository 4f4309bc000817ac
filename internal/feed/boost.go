package feed

// BoostStatus is the per-item boost state machine:
// unboosted -> pending -> boosted, or back to unboosted when the backend rejects the boost.
type BoostStatus string

const (
	StatusUnboosted BoostStatus = "unboosted"
	StatusPending   BoostStatus = "pending"
	StatusBoosted   BoostStatus = "boosted"
)

// BoostState is a user's quota for the day and the feed items they boosted.
type BoostState struct {
	DailyRemaining int
	BoostedItemIDs map[string]struct{}
}

func NewBoostState(remaining int, boosted ...string) BoostState {
	s := BoostState{DailyRemaining: max(remaining, 0), BoostedItemIDs: make(map[string]struct{}, len(boosted))}
	for _, id := range boosted {
		s.BoostedItemIDs[id] = struct{}{}
	}
	return s
}

func (s BoostState) Boosted(itemID string) bool {
	_, ok := s.BoostedItemIDs[itemID]
	return ok
}

// Apply spends one boost on itemIDs, the items that share one project. It returns the
// state as it was before, for rollback. The state is unchanged on error.
func (s *BoostState) Apply(itemIDs ...string) (BoostState, error) {
	prev := s.clone()
	if s.DailyRemaining <= 0 {
		return prev, ErrQuotaExhausted
	}
	for _, id := range itemIDs {
		if s.Boosted(id) {
			return prev, ErrAlreadyBoosted
		}
	}

	if s.BoostedItemIDs == nil {
		s.BoostedItemIDs = make(map[string]struct{}, len(itemIDs))
	}
	s.DailyRemaining--
	for _, id := range itemIDs {
		s.BoostedItemIDs[id] = struct{}{}
	}
	return prev, nil
}

// Revert gives back one boost and unmarks itemIDs. It is the compensating action used when
// other boosts were applied after the one being rolled back.
func (s *BoostState) Revert(itemIDs ...string) {
	s.DailyRemaining++
	for _, id := range itemIDs {
		delete(s.BoostedItemIDs, id)
	}
}

func (s BoostState) clone() BoostState {
	ids := make(map[string]struct{}, len(s.BoostedItemIDs))
	for id := range s.BoostedItemIDs {
		ids[id] = struct{}{}
	}
	return BoostState{DailyRemaining: s.DailyRemaining, BoostedItemIDs: ids}
}
