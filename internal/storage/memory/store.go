package memory

import (
	"sync"
	"time"

	"github.com/samrogers05/genesis/internal/models"
	"github.com/samrogers05/genesis/internal/storage"
)

type boostRecord struct {
	userID    string
	projectID string
	at        time.Time
}

// Store is an in-memory backend used for local development and tests. A single
// RWMutex guards every table so multi-table operations such as ApplySignalBoost
// are atomic.
type Store struct {
	mu sync.RWMutex

	now           func() time.Time
	defaultBoosts int

	profiles      map[string]*models.Profile
	projects      map[string]*models.Project
	collaborators map[string][]string // projectID -> []profileID
	changes       []models.ProjectChange
	publications  []models.Publication
	boosts        []boostRecord
	messages      []models.Message
	userIndex     map[string][]int // userID -> indexes into messages
	invitations   map[string]*models.Invitation
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDailyBoosts sets the allowance for profiles without one.
func WithDailyBoosts(n int) Option {
	return func(s *Store) { s.defaultBoosts = n }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		now:           time.Now,
		defaultBoosts: storage.DefaultDailyBoosts,
		profiles:      make(map[string]*models.Profile),
		projects:      make(map[string]*models.Project),
		collaborators: make(map[string][]string),
		userIndex:     make(map[string][]int),
		invitations:   make(map[string]*models.Invitation),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close satisfies the same lifecycle as the postgres store.
func (s *Store) Close() error { return nil }

func (s *Store) summary(profileID string) *models.ProfileSummary {
	p, ok := s.profiles[profileID]
	if !ok {
		return &models.ProfileSummary{ID: profileID}
	}
	sum := p.Summary()
	return &sum
}

func (s *Store) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
