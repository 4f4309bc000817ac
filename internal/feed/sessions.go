package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samrogers05/genesis/internal/models"
)

// Sessions holds one Session per signed-in user. A session lives until the UTC day changes,
// after which the quota is loaded again.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session

	agg     *Aggregator
	booster Booster
	now     func() time.Time
	log     *slog.Logger
}

func NewSessions(agg *Aggregator, booster Booster, log *slog.Logger) *Sessions {
	if log == nil {
		log = slog.Default()
	}
	return &Sessions{
		sessions: make(map[string]*Session),
		agg:      agg,
		booster:  booster,
		now:      time.Now,
		log:      log,
	}
}

// SetClock replaces time.Now.
func (m *Sessions) SetClock(now func() time.Time) { m.now = now }

// Open returns the user's session, creating it and loading the feed when needed.
func (m *Sessions) Open(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	today := utcDay(m.now())

	m.mu.Lock()
	if s, ok := m.sessions[userID]; ok && s.day.Equal(today) {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	ledger, err := m.booster.BoostLedger(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load boost ledger: %w", err)
	}
	s := &Session{
		userID:          userID,
		day:             today,
		agg:             m.agg,
		booster:         m.booster,
		log:             m.log,
		index:           make(map[string]int),
		state:           NewBoostState(ledger.Remaining()),
		boostedProjects: make(map[string]struct{}, len(ledger.BoostedProjectIDs)),
		pending:         make(map[string]struct{}),
	}
	for _, id := range ledger.BoostedProjectIDs {
		s.boostedProjects[id] = struct{}{}
	}
	s.Refresh(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	// another request may have opened the session meanwhile
	if existing, ok := m.sessions[userID]; ok && existing.day.Equal(today) {
		return existing, nil
	}
	m.sessions[userID] = s
	m.pruneLocked(today)
	return s, nil
}

// Len reports how many sessions are held.
func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// pruneLocked drops sessions opened on an earlier day. Their quota is stale and their
// users get a fresh session on the next Open.
func (m *Sessions) pruneLocked(today time.Time) {
	for id, s := range m.sessions {
		if !s.day.Equal(today) {
			delete(m.sessions, id)
		}
	}
}

// Close drops the user's session.
func (m *Sessions) Close(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// PrependProject shows a newly created project at the top of every live session and
// returns how many sessions changed.
func (m *Sessions) PrependProject(p models.Project) int {
	m.mu.Lock()
	m.pruneLocked(utcDay(m.now()))
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	n := 0
	for _, s := range live {
		if s.prepend(p) {
			n++
		}
	}
	return n
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
