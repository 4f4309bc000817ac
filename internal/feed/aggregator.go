package feed

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/samrogers05/genesis/internal/logger"
	"github.com/samrogers05/genesis/internal/models"
)

const (
	trendingPrefix    = "trending-"
	changePrefix      = "change-"
	publicationPrefix = "publication-"
)

// Aggregator builds the merged feed from a Source.
type Aggregator struct {
	source Source
	limit  int
	log    *slog.Logger
}

func NewAggregator(source Source, limit int, log *slog.Logger) *Aggregator {
	if limit <= 0 {
		limit = 10
	}
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{source: source, limit: limit, log: log}
}

// LoadFeed reads the four streams concurrently and merges them newest first. If any read
// fails the error is logged and the result is empty; it never returns nil.
func (a *Aggregator) LoadFeed(ctx context.Context, userID string) []models.FeedItem {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "genesis.feed"})

	var (
		recent, trending []models.Project
		changes          []models.ProjectChange
		publications     []models.Publication
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		recent, err = a.source.RecentProjects(gctx, a.limit)
		return wrap("recent projects", err)
	})
	g.Go(func() (err error) {
		trending, err = a.source.TrendingProjects(gctx, a.limit)
		return wrap("trending projects", err)
	})
	g.Go(func() (err error) {
		changes, err = a.source.RecentChanges(gctx, a.limit)
		return wrap("project changes", err)
	})
	g.Go(func() (err error) {
		publications, err = a.source.RecentPublications(gctx, a.limit)
		return wrap("publications", err)
	})
	if err := g.Wait(); err != nil {
		a.log.ErrorContext(ctx, "feed load failed", "error", err, "viewer", userID)
		return []models.FeedItem{}
	}

	items := make([]models.FeedItem, 0, len(recent)+len(trending)+len(changes)+len(publications))
	for _, p := range recent {
		items = append(items, NewProjectItem(p))
	}
	for _, p := range trending {
		items = append(items, trendingItem(p))
	}
	for _, c := range changes {
		items = append(items, changeItem(c))
	}
	for _, p := range publications {
		items = append(items, publicationItem(p))
	}

	return Merge(items)
}

// Merge drops items without a timestamp and duplicate ids, then sorts newest first.
// Items with equal timestamps are ordered by id.
func Merge(items []models.FeedItem) []models.FeedItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.FeedItem, 0, len(items))
	for _, item := range items {
		if item.Timestamp.IsZero() {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	slices.SortStableFunc(out, func(a, b models.FeedItem) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// NewProjectItem renders a project as a new_project item. Its id is the raw project id,
// which is also what realtime project events use.
func NewProjectItem(p models.Project) models.FeedItem {
	detail := strings.TrimSpace(p.Description)
	if detail == "" {
		detail = "A new project was just created."
	}
	return models.FeedItem{
		ID:                   p.ID,
		Kind:                 models.KindNewProject,
		Title:                "New project: " + projectName(p.Name),
		Detail:               detail,
		Timestamp:            p.CreatedAt,
		SignalBoostCount:     ptr(p.SignalBoosts),
		BoostedByCurrentUser: ptr(false),
		LinkedProjectID:      ptr(p.ID),
		Creator:              p.Creator,
	}
}

func trendingItem(p models.Project) models.FeedItem {
	detail := strings.TrimSpace(p.Description)
	if detail == "" {
		detail = fmt.Sprintf("Boosted %d times", p.SignalBoosts)
	}
	return models.FeedItem{
		ID:                   trendingPrefix + p.ID,
		Kind:                 models.KindTrending,
		Title:                "Trending: " + projectName(p.Name),
		Detail:               detail,
		Timestamp:            p.CreatedAt,
		SignalBoostCount:     ptr(p.SignalBoosts),
		BoostedByCurrentUser: ptr(false),
		LinkedProjectID:      ptr(p.ID),
		Creator:              p.Creator,
	}
}

func changeItem(c models.ProjectChange) models.FeedItem {
	detail := strings.TrimSpace(c.Description)
	if detail == "" {
		detail = "Project details were updated."
	}
	return models.FeedItem{
		ID:              changePrefix + c.ID,
		Kind:            models.KindProjectUpdate,
		Title:           "Update to " + projectName(c.ProjectName),
		Detail:          detail,
		Timestamp:       c.CreatedAt,
		LinkedProjectID: ptr(c.ProjectID),
		Creator:         c.Author,
	}
}

func publicationItem(p models.Publication) models.FeedItem {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = "Untitled publication"
	}

	var detail string
	switch {
	case p.Journal != "" && p.Year > 0:
		detail = fmt.Sprintf("%s (%d)", p.Journal, p.Year)
	case p.Journal != "":
		detail = p.Journal
	case strings.TrimSpace(p.Abstract) != "":
		detail = truncate(strings.TrimSpace(p.Abstract), 200)
	default:
		detail = "New publication"
	}
	if p.Author != nil {
		detail = p.Author.DisplayName() + " · " + detail
	}

	return models.FeedItem{
		ID:        publicationPrefix + p.ID,
		Kind:      models.KindNewPublication,
		Title:     title,
		Detail:    detail,
		Timestamp: p.CreatedAt,
		Creator:   p.Author,
	}
}

func projectName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return "Untitled project"
	}
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
