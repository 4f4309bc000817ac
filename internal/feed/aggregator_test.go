package feed_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samrogers05/genesis/internal/feed"
	"github.com/samrogers05/genesis/internal/models"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var _ = Describe("Aggregator", func() {
	var (
		backend *mockBackend
		agg     *feed.Aggregator
		t0      time.Time
		alice   *models.ProfileSummary
	)

	BeforeEach(func() {
		backend = &mockBackend{}
		agg = feed.NewAggregator(backend, 10, quiet)
		t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		alice = &models.ProfileSummary{ID: "alice", FullName: "Alice"}
	})

	It("orders a new project ahead of an older trending one", func() {
		backend.recentProjectsFn = func(_ context.Context, _ int) ([]models.Project, error) {
			return []models.Project{{ID: "p1", Name: "Organoids", CreatedAt: t0, Creator: alice}}, nil
		}
		backend.trendingProjectsFn = func(_ context.Context, _ int) ([]models.Project, error) {
			return []models.Project{{ID: "p2", Name: "Qubits", SignalBoosts: 5, CreatedAt: t0.Add(-time.Hour)}}, nil
		}

		items := agg.LoadFeed(context.Background(), "viewer")

		Expect(items).To(HaveLen(2))
		Expect(items[0].ID).To(Equal("p1"))
		Expect(items[0].Kind).To(Equal(models.KindNewProject))
		Expect(items[0].Creator).To(Equal(alice))
		Expect(items[1].ID).To(Equal("trending-p2"))
		Expect(*items[1].SignalBoostCount).To(Equal(5))
	})

	It("merges all four kinds newest first with unique ids", func() {
		backend.recentProjectsFn = func(_ context.Context, _ int) ([]models.Project, error) {
			return []models.Project{{ID: "x", Name: "P", CreatedAt: t0.Add(-3 * time.Hour)}}, nil
		}
		backend.trendingProjectsFn = func(_ context.Context, _ int) ([]models.Project, error) {
			return []models.Project{{ID: "x", Name: "P", SignalBoosts: 2, CreatedAt: t0.Add(-3 * time.Hour)}}, nil
		}
		backend.recentChangesFn = func(_ context.Context, _ int) ([]models.ProjectChange, error) {
			return []models.ProjectChange{{ID: "x", ProjectID: "x", ProjectName: "P", Description: "new data", CreatedAt: t0}}, nil
		}
		backend.recentPublicationsFn = func(_ context.Context, _ int) ([]models.Publication, error) {
			return []models.Publication{{ID: "x", Title: "Paper", Journal: "Nature", Year: 2024, CreatedAt: t0.Add(-time.Hour)}}, nil
		}

		items := agg.LoadFeed(context.Background(), "viewer")

		ids := make([]string, 0, len(items))
		for i, item := range items {
			ids = append(ids, item.ID)
			Expect(item.Title).NotTo(BeEmpty())
			Expect(item.Detail).NotTo(BeEmpty())
			if i > 0 {
				Expect(item.Timestamp.After(items[i-1].Timestamp)).To(BeFalse())
			}
		}
		Expect(ids).To(Equal([]string{"change-x", "publication-x", "trending-x", "x"}))
		Expect(items[1].Detail).To(Equal("Nature (2024)"))
	})

	It("returns an empty list when any read fails", func() {
		backend.recentProjectsFn = func(_ context.Context, _ int) ([]models.Project, error) {
			return []models.Project{{ID: "p1", Name: "P", CreatedAt: t0}}, nil
		}
		backend.recentChangesFn = func(_ context.Context, _ int) ([]models.ProjectChange, error) {
			return nil, errors.New("connection reset")
		}

		items := agg.LoadFeed(context.Background(), "viewer")

		Expect(items).NotTo(BeNil())
		Expect(items).To(BeEmpty())
	})

	It("fills in missing text and drops rows without a timestamp", func() {
		backend.recentProjectsFn = func(_ context.Context, _ int) ([]models.Project, error) {
			return []models.Project{
				{ID: "p1", Name: "", CreatedAt: t0},
				{ID: "p2", Name: "Ghost"},
			}, nil
		}
		backend.recentChangesFn = func(_ context.Context, _ int) ([]models.ProjectChange, error) {
			return []models.ProjectChange{{ID: "c1", ProjectID: "p1", CreatedAt: t0}}, nil
		}
		backend.recentPublicationsFn = func(_ context.Context, _ int) ([]models.Publication, error) {
			return []models.Publication{{ID: "u1", CreatedAt: t0}}, nil
		}

		items := agg.LoadFeed(context.Background(), "viewer")

		Expect(items).To(HaveLen(3))
		byID := map[string]models.FeedItem{}
		for _, item := range items {
			byID[item.ID] = item
		}
		Expect(byID).NotTo(HaveKey("p2"))
		Expect(byID["p1"].Title).To(Equal("New project: Untitled project"))
		Expect(byID["p1"].Detail).To(Equal("A new project was just created."))
		Expect(byID["change-c1"].Detail).To(Equal("Project details were updated."))
		Expect(byID["publication-u1"].Title).To(Equal("Untitled publication"))
		Expect(byID["publication-u1"].Detail).To(Equal("New publication"))
	})

	It("breaks timestamp ties by id", func() {
		items := feed.Merge([]models.FeedItem{
			{ID: "b", Timestamp: t0},
			{ID: "a", Timestamp: t0},
			{ID: "c", Timestamp: t0.Add(time.Second)},
			{ID: "a", Timestamp: t0},
		})

		Expect(items).To(HaveLen(3))
		Expect([]string{items[0].ID, items[1].ID, items[2].ID}).To(Equal([]string{"c", "a", "b"}))
	})

	It("passes the configured limit to every read", func() {
		limits := make(chan int, 4)
		record := func(limit int) { limits <- limit }
		backend.recentProjectsFn = func(_ context.Context, limit int) ([]models.Project, error) {
			record(limit)
			return nil, nil
		}
		backend.trendingProjectsFn = func(_ context.Context, limit int) ([]models.Project, error) {
			record(limit)
			return nil, nil
		}
		backend.recentChangesFn = func(_ context.Context, limit int) ([]models.ProjectChange, error) {
			record(limit)
			return nil, nil
		}
		backend.recentPublicationsFn = func(_ context.Context, limit int) ([]models.Publication, error) {
			record(limit)
			return nil, nil
		}

		feed.NewAggregator(backend, 7, quiet).LoadFeed(context.Background(), "viewer")

		Expect(limits).To(HaveLen(4))
		for range 4 {
			Expect(<-limits).To(Equal(7))
		}
	})
})
