package feed_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samrogers05/genesis/internal/feed"
	"github.com/samrogers05/genesis/internal/models"
)

var _ = Describe("Sessions", func() {
	var (
		ctx      context.Context
		backend  *mockBackend
		sessions *feed.Sessions
		t0       time.Time
	)

	projects := func(t0 time.Time) []models.Project {
		return []models.Project{
			{ID: "p1", Name: "Organoids", SignalBoosts: 1, CreatedAt: t0},
			{ID: "p2", Name: "Qubits", SignalBoosts: 4, CreatedAt: t0.Add(-time.Hour)},
		}
	}

	itemByID := func(items []models.FeedItem, id string) models.FeedItem {
		for _, item := range items {
			if item.ID == id {
				return item
			}
		}
		Fail("no feed item " + id)
		return models.FeedItem{}
	}

	BeforeEach(func() {
		ctx = context.Background()
		t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		backend = &mockBackend{}
		backend.recentProjectsFn = func(_ context.Context, _ int) ([]models.Project, error) {
			return projects(t0), nil
		}
		backend.trendingProjectsFn = func(_ context.Context, _ int) ([]models.Project, error) {
			return []models.Project{projects(t0)[1]}, nil
		}
		backend.recentPublicationsFn = func(_ context.Context, _ int) ([]models.Publication, error) {
			return []models.Publication{{ID: "u1", Title: "Paper", CreatedAt: t0.Add(-2 * time.Hour)}}, nil
		}
		sessions = feed.NewSessions(feed.NewAggregator(backend, 10, quiet), backend, quiet)
		sessions.SetClock(func() time.Time { return t0 })
	})

	It("requires a signed-in user", func() {
		_, err := sessions.Open(ctx, "")
		Expect(err).To(MatchError(feed.ErrNotAuthenticated))
	})

	It("loads the quota once per session", func() {
		s, err := sessions.Open(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		again, err := sessions.Open(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())

		Expect(again).To(BeIdenticalTo(s))
		Expect(backend.ledgerLoads()).To(Equal(1))
		Expect(s.Remaining()).To(Equal(3))
	})

	It("reloads the quota when the day changes", func() {
		_, err := sessions.Open(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())

		sessions.SetClock(func() time.Time { return t0.Add(24 * time.Hour) })
		_, err = sessions.Open(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(backend.ledgerLoads()).To(Equal(2))
	})

	It("drops sessions left over from an earlier day", func() {
		_, err := sessions.Open(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		_, err = sessions.Open(ctx, "bob")
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions.Len()).To(Equal(2))

		sessions.SetClock(func() time.Time { return t0.Add(24 * time.Hour) })
		Expect(sessions.PrependProject(models.Project{ID: "p9", Name: "Fresh", CreatedAt: t0.Add(24 * time.Hour)})).To(Equal(0))
		Expect(sessions.Len()).To(BeZero())

		_, err = sessions.Open(ctx, "carol")
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions.Len()).To(Equal(1))
	})

	It("marks items of projects boosted earlier today", func() {
		backend.boostLedgerFn = func(_ context.Context, _ string) (models.BoostLedger, error) {
			return models.BoostLedger{DailyAllowance: 3, BoostedProjectIDs: []string{"p2"}}, nil
		}
		s, err := sessions.Open(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())

		items := s.Items()
		Expect(s.Remaining()).To(Equal(2))
		Expect(*itemByID(items, "p2").BoostedByCurrentUser).To(BeTrue())
		Expect(*itemByID(items, "trending-p2").BoostedByCurrentUser).To(BeTrue())
		Expect(*itemByID(items, "p1").BoostedByCurrentUser).To(BeFalse())
		Expect(s.Status("trending-p2")).To(Equal(feed.StatusBoosted))
	})

	Describe("Boost", func() {
		var s *feed.Session

		BeforeEach(func() {
			var err error
			s, err = sessions.Open(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
		})

		It("spends one boost and marks every item of the project", func() {
			res, err := s.Boost(ctx, "trending-p2")

			Expect(err).NotTo(HaveOccurred())
			Expect(res.DailyRemaining).To(Equal(2))
			Expect(res.Status).To(Equal(feed.StatusBoosted))
			Expect(*res.Item.SignalBoostCount).To(Equal(5))
			Expect(backend.calls()).To(Equal([]string{"p2"}))

			items := s.Items()
			Expect(*itemByID(items, "p2").BoostedByCurrentUser).To(BeTrue())
			Expect(*itemByID(items, "p2").SignalBoostCount).To(Equal(5))
		})

		It("restores the previous state when the backend declines", func() {
			before := s.Items()
			backend.applySignalBoostFn = func(_ context.Context, _, _ string) (bool, error) {
				return false, nil
			}

			res, err := s.Boost(ctx, "p1")

			Expect(err).To(MatchError(feed.ErrBoostRejected))
			Expect(res.Status).To(Equal(feed.StatusUnboosted))
			Expect(s.Remaining()).To(Equal(3))
			Expect(s.Items()).To(Equal(before))
		})

		It("restores the previous state when the backend fails", func() {
			before := s.Items()
			backend.applySignalBoostFn = func(_ context.Context, _, _ string) (bool, error) {
				return false, errors.New("timeout")
			}

			_, err := s.Boost(ctx, "p1")

			Expect(err).To(MatchError(feed.ErrBoostRejected))
			Expect(s.Remaining()).To(Equal(3))
			Expect(s.Items()).To(Equal(before))
			Expect(s.Status("p1")).To(Equal(feed.StatusUnboosted))
		})

		It("does not call the backend for an item already boosted", func() {
			_, err := s.Boost(ctx, "p2")
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Boost(ctx, "trending-p2")

			Expect(err).To(MatchError(feed.ErrAlreadyBoosted))
			Expect(backend.calls()).To(HaveLen(1))
			Expect(s.Remaining()).To(Equal(2))
		})

		It("does not call the backend when the quota is spent", func() {
			backend.boostLedgerFn = func(_ context.Context, _ string) (models.BoostLedger, error) {
				return models.BoostLedger{DailyAllowance: 1, BoostedProjectIDs: []string{"elsewhere"}}, nil
			}
			sessions.Close("bob")
			bob, err := sessions.Open(ctx, "bob")
			Expect(err).NotTo(HaveOccurred())
			before := bob.Items()

			_, err = bob.Boost(ctx, "p1")

			Expect(err).To(MatchError(feed.ErrQuotaExhausted))
			Expect(backend.calls()).To(BeEmpty())
			Expect(bob.Items()).To(Equal(before))
		})

		It("rejects items that cannot be boosted", func() {
			_, err := s.Boost(ctx, "publication-u1")
			Expect(err).To(MatchError(feed.ErrNotBoostable))

			_, err = s.Boost(ctx, "nope")
			Expect(err).To(MatchError(feed.ErrUnknownItem))
			Expect(backend.calls()).To(BeEmpty())
		})

		It("shows the boost as pending until the backend answers", func() {
			release := make(chan bool)
			backend.applySignalBoostFn = func(_ context.Context, _, _ string) (bool, error) {
				return <-release, nil
			}

			done := make(chan error, 1)
			go func() {
				_, err := s.Boost(ctx, "p1")
				done <- err
			}()

			Eventually(func() feed.BoostStatus { return s.Status("p1") }).Should(Equal(feed.StatusPending))
			Expect(s.Remaining()).To(Equal(2))
			_, err := s.Boost(ctx, "p1")
			Expect(err).To(MatchError(feed.ErrBoostPending))

			release <- false
			Eventually(done).Should(Receive(MatchError(feed.ErrBoostRejected)))
			Expect(s.Status("p1")).To(Equal(feed.StatusUnboosted))
			Expect(s.Remaining()).To(Equal(3))
		})

		It("rolls back only the failed boost when another one succeeded meanwhile", func() {
			release := make(chan bool)
			backend.applySignalBoostFn = func(_ context.Context, _, projectID string) (bool, error) {
				if projectID == "p1" {
					return <-release, nil
				}
				return true, nil
			}

			done := make(chan error, 1)
			go func() {
				_, err := s.Boost(ctx, "p1")
				done <- err
			}()
			Eventually(func() feed.BoostStatus { return s.Status("p1") }).Should(Equal(feed.StatusPending))

			_, err := s.Boost(ctx, "p2")
			Expect(err).NotTo(HaveOccurred())

			release <- false
			Eventually(done).Should(Receive(HaveOccurred()))
			Expect(s.Remaining()).To(Equal(2))
			Expect(s.Status("p1")).To(Equal(feed.StatusUnboosted))
			Expect(s.Status("p2")).To(Equal(feed.StatusBoosted))
		})

		It("keeps the optimistic count when the feed reloads during a boost", func() {
			release := make(chan bool)
			backend.applySignalBoostFn = func(_ context.Context, _, _ string) (bool, error) {
				return <-release, nil
			}

			done := make(chan error, 1)
			go func() {
				_, err := s.Boost(ctx, "p1")
				done <- err
			}()
			Eventually(func() feed.BoostStatus { return s.Status("p1") }).Should(Equal(feed.StatusPending))

			items := s.Refresh(ctx)
			Expect(*itemByID(items, "p1").SignalBoostCount).To(Equal(2))
			Expect(*itemByID(items, "p1").BoostedByCurrentUser).To(BeTrue())

			release <- true
			Eventually(done).Should(Receive(BeNil()))
			p1 := itemByID(s.Items(), "p1")
			Expect(s.Status("p1")).To(Equal(feed.StatusBoosted))
			Expect(*p1.BoostedByCurrentUser).To(BeTrue())
			Expect(*p1.SignalBoostCount).To(Equal(2))
		})

		It("restores the server count when a boost fails after a reload", func() {
			release := make(chan bool)
			backend.applySignalBoostFn = func(_ context.Context, _, _ string) (bool, error) {
				return <-release, nil
			}

			done := make(chan error, 1)
			go func() {
				_, err := s.Boost(ctx, "p1")
				done <- err
			}()
			Eventually(func() feed.BoostStatus { return s.Status("p1") }).Should(Equal(feed.StatusPending))
			s.Refresh(ctx)

			release <- false
			Eventually(done).Should(Receive(MatchError(feed.ErrBoostRejected)))
			p1 := itemByID(s.Items(), "p1")
			Expect(*p1.SignalBoostCount).To(Equal(1))
			Expect(*p1.BoostedByCurrentUser).To(BeFalse())
			Expect(s.Remaining()).To(Equal(3))
		})

		It("keeps confirmed boosts across a refresh", func() {
			_, err := s.Boost(ctx, "p1")
			Expect(err).NotTo(HaveOccurred())

			items := s.Refresh(ctx)

			Expect(*itemByID(items, "p1").BoostedByCurrentUser).To(BeTrue())
			Expect(s.Remaining()).To(Equal(2))
		})
	})

	Describe("PrependProject", func() {
		It("puts a new project first and does not duplicate it on reload", func() {
			s, err := sessions.Open(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())

			fresh := models.Project{ID: "p9", Name: "Fresh", CreatedAt: t0.Add(time.Minute)}
			Expect(sessions.PrependProject(fresh)).To(Equal(1))
			Expect(sessions.PrependProject(fresh)).To(Equal(0))
			Expect(s.Items()[0].ID).To(Equal("p9"))

			backend.recentProjectsFn = func(_ context.Context, _ int) ([]models.Project, error) {
				return append([]models.Project{fresh}, projects(t0)...), nil
			}
			items := s.Refresh(ctx)

			n := 0
			for _, item := range items {
				if item.ID == "p9" {
					n++
				}
			}
			Expect(n).To(Equal(1))
			Expect(items[0].ID).To(Equal("p9"))
		})

		It("carries a boost in flight onto the prepended project", func() {
			fresh := models.Project{ID: "p9", Name: "Fresh", SignalBoosts: 5, CreatedAt: t0.Add(time.Minute)}
			backend.trendingProjectsFn = func(_ context.Context, _ int) ([]models.Project, error) {
				return []models.Project{fresh}, nil
			}
			s, err := sessions.Open(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())

			release := make(chan bool)
			backend.applySignalBoostFn = func(_ context.Context, _, _ string) (bool, error) {
				return <-release, nil
			}
			done := make(chan error, 1)
			go func() {
				_, err := s.Boost(ctx, "trending-p9")
				done <- err
			}()
			Eventually(func() feed.BoostStatus { return s.Status("trending-p9") }).Should(Equal(feed.StatusPending))

			Expect(sessions.PrependProject(fresh)).To(Equal(1))
			Expect(s.Status("p9")).To(Equal(feed.StatusPending))
			Expect(*itemByID(s.Items(), "p9").SignalBoostCount).To(Equal(6))

			release <- false
			Eventually(done).Should(Receive(MatchError(feed.ErrBoostRejected)))
			p9 := itemByID(s.Items(), "p9")
			Expect(*p9.SignalBoostCount).To(Equal(5))
			Expect(*p9.BoostedByCurrentUser).To(BeFalse())
			Expect(*itemByID(s.Items(), "trending-p9").SignalBoostCount).To(Equal(5))
		})
	})
})
