package feed_test

import (
	"context"
	"sync"

	"github.com/samrogers05/genesis/internal/models"
)

type mockBackend struct {
	recentProjectsFn     func(ctx context.Context, limit int) ([]models.Project, error)
	trendingProjectsFn   func(ctx context.Context, limit int) ([]models.Project, error)
	recentChangesFn      func(ctx context.Context, limit int) ([]models.ProjectChange, error)
	recentPublicationsFn func(ctx context.Context, limit int) ([]models.Publication, error)
	boostLedgerFn        func(ctx context.Context, userID string) (models.BoostLedger, error)
	applySignalBoostFn   func(ctx context.Context, userID, projectID string) (bool, error)

	mu          sync.Mutex
	boostCalls  []string
	ledgerCalls int
}

func (m *mockBackend) RecentProjects(ctx context.Context, limit int) ([]models.Project, error) {
	if m.recentProjectsFn != nil {
		return m.recentProjectsFn(ctx, limit)
	}
	return []models.Project{}, nil
}

func (m *mockBackend) TrendingProjects(ctx context.Context, limit int) ([]models.Project, error) {
	if m.trendingProjectsFn != nil {
		return m.trendingProjectsFn(ctx, limit)
	}
	return []models.Project{}, nil
}

func (m *mockBackend) RecentChanges(ctx context.Context, limit int) ([]models.ProjectChange, error) {
	if m.recentChangesFn != nil {
		return m.recentChangesFn(ctx, limit)
	}
	return []models.ProjectChange{}, nil
}

func (m *mockBackend) RecentPublications(ctx context.Context, limit int) ([]models.Publication, error) {
	if m.recentPublicationsFn != nil {
		return m.recentPublicationsFn(ctx, limit)
	}
	return []models.Publication{}, nil
}

func (m *mockBackend) BoostLedger(ctx context.Context, userID string) (models.BoostLedger, error) {
	m.mu.Lock()
	m.ledgerCalls++
	m.mu.Unlock()
	if m.boostLedgerFn != nil {
		return m.boostLedgerFn(ctx, userID)
	}
	return models.BoostLedger{DailyAllowance: 3, BoostedProjectIDs: []string{}}, nil
}

func (m *mockBackend) ApplySignalBoost(ctx context.Context, userID, projectID string) (bool, error) {
	m.mu.Lock()
	m.boostCalls = append(m.boostCalls, projectID)
	m.mu.Unlock()
	if m.applySignalBoostFn != nil {
		return m.applySignalBoostFn(ctx, userID, projectID)
	}
	return true, nil
}

func (m *mockBackend) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.boostCalls...)
}

func (m *mockBackend) ledgerLoads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledgerCalls
}
