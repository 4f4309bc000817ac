// Package feed merges the four update streams into one timeline and manages each user's
// daily signal boost quota.
package feed

import (
	"context"
	"errors"

	"github.com/samrogers05/genesis/internal/models"
)

var (
	ErrNotAuthenticated = errors.New("please sign in")
	ErrQuotaExhausted   = errors.New("no signal boosts left today")
	ErrAlreadyBoosted   = errors.New("already boosted")
	ErrBoostPending     = errors.New("boost already in progress")
	ErrUnknownItem      = errors.New("unknown feed item")
	ErrNotBoostable     = errors.New("feed item cannot be boosted")
	ErrBoostRejected    = errors.New("signal boost was not applied")
)

// Source is the read side of the backend that the feed is built from.
type Source interface {
	RecentProjects(ctx context.Context, limit int) ([]models.Project, error)
	TrendingProjects(ctx context.Context, limit int) ([]models.Project, error)
	RecentChanges(ctx context.Context, limit int) ([]models.ProjectChange, error)
	RecentPublications(ctx context.Context, limit int) ([]models.Publication, error)
}

// Booster records signal boosts. ApplySignalBoost re-validates the quota server side and
// reports whether the boost was applied.
type Booster interface {
	BoostLedger(ctx context.Context, userID string) (models.BoostLedger, error)
	ApplySignalBoost(ctx context.Context, userID, projectID string) (bool, error)
}

// Backend is everything the feed needs from storage.
type Backend interface {
	Source
	Booster
}
