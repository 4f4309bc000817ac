package chat_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samrogers05/genesis/internal/chat"
	"github.com/samrogers05/genesis/internal/models"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func msg(id string, at time.Time, from string) models.Message {
	to := "bob"
	if from == "bob" {
		to = "alice"
	}
	return models.Message{ID: id, SenderID: from, ReceiverID: to, Content: "m " + id, CreatedAt: at}
}

var _ = Describe("Poller", func() {
	var (
		ctx     context.Context
		backend *mockBackend
		poller  *chat.Poller
		t0      time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = &mockBackend{}
		t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		poller = chat.NewPoller(backend, "alice", "bob", chat.WithLogger(quiet))
	})

	Describe("LoadMessages", func() {
		It("appends only messages it has not seen", func() {
			backend.conversationMessagesFn = func(_ context.Context, _, _ string, since *time.Time) ([]models.Message, error) {
				if since == nil {
					return []models.Message{msg("m1", t0, "bob")}, nil
				}
				return []models.Message{msg("m1", t0, "bob"), msg("m2", t0.Add(time.Minute), "alice")}, nil
			}

			n, err := poller.LoadMessages(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			n, err = poller.Sync(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			Expect(poller.Messages()).To(HaveLen(2))
			Expect(poller.Messages()[1].ID).To(Equal("m2"))
		})

		It("uses the newest known message as an inclusive bound", func() {
			backend.conversationMessagesFn = func(_ context.Context, _, _ string, _ *time.Time) ([]models.Message, error) {
				return []models.Message{msg("m1", t0, "bob")}, nil
			}
			_, err := poller.LoadMessages(ctx, nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = poller.Sync(ctx)
			Expect(err).NotTo(HaveOccurred())

			bounds := backend.loads()
			Expect(bounds).To(HaveLen(2))
			Expect(bounds[0]).To(BeNil())
			Expect(*bounds[1]).To(Equal(t0))
			Expect(poller.Messages()).To(HaveLen(1))
		})

		It("does not move the bound past rows it has not fetched when a send lands first", func() {
			backend.conversationMessagesFn = func(_ context.Context, _, _ string, since *time.Time) ([]models.Message, error) {
				if since == nil {
					return []models.Message{msg("m1", t0, "bob")}, nil
				}
				// m2 was written before alice's send but only shows up now
				return []models.Message{
					msg("m2", t0.Add(time.Minute), "bob"),
					msg("s1", t0.Add(2*time.Minute), "alice"),
				}, nil
			}
			backend.insertMessageFn = func(_ context.Context, s, _, _ string) (models.Message, error) {
				return msg("s1", t0.Add(2*time.Minute), s), nil
			}

			_, err := poller.LoadMessages(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = poller.Send(ctx, "m s1")
			Expect(err).NotTo(HaveOccurred())

			n, err := poller.Sync(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			bounds := backend.loads()
			Expect(*bounds[1]).To(Equal(t0))
			ids := []string{}
			for _, m := range poller.Messages() {
				ids = append(ids, m.ID)
			}
			Expect(ids).To(Equal([]string{"m1", "s1", "m2"}))

			_, err = poller.Sync(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(*backend.loads()[2]).To(Equal(t0.Add(2 * time.Minute)))
		})

		It("never renders an id twice across overlapping loads", func() {
			backend.conversationMessagesFn = func(_ context.Context, _, _ string, _ *time.Time) ([]models.Message, error) {
				return []models.Message{msg("m1", t0, "bob"), msg("m2", t0, "alice"), msg("m1", t0, "bob")}, nil
			}
			for range 3 {
				_, err := poller.Sync(ctx)
				Expect(err).NotTo(HaveOccurred())
			}

			ids := map[string]int{}
			for _, m := range poller.Messages() {
				ids[m.ID]++
			}
			Expect(ids).To(Equal(map[string]int{"m1": 1, "m2": 1}))
		})

		It("keeps what it has and records the error when a load fails", func() {
			backend.conversationMessagesFn = func(_ context.Context, _, _ string, _ *time.Time) ([]models.Message, error) {
				return []models.Message{msg("m1", t0, "bob")}, nil
			}
			_, err := poller.LoadMessages(ctx, nil)
			Expect(err).NotTo(HaveOccurred())

			backend.conversationMessagesFn = func(_ context.Context, _, _ string, _ *time.Time) ([]models.Message, error) {
				return nil, errors.New("network down")
			}
			_, err = poller.Sync(ctx)

			Expect(err).To(HaveOccurred())
			Expect(poller.Err()).To(HaveOccurred())
			Expect(poller.Messages()).To(HaveLen(1))
			Expect(poller.Loaded()).To(BeTrue())
		})

		It("requires a signed-in user", func() {
			anon := chat.NewPoller(backend, "", "bob", chat.WithLogger(quiet))
			_, err := anon.LoadMessages(ctx, nil)
			Expect(err).To(MatchError(chat.ErrNotAuthenticated))
			Expect(backend.loads()).To(BeEmpty())
		})
	})

	Describe("Send", func() {
		It("appends the stored message and clears the draft", func() {
			poller.SetDraft("hello")

			m, err := poller.Send(ctx, "  hello ")

			Expect(err).NotTo(HaveOccurred())
			Expect(m.Content).To(Equal("hello"))
			last := poller.Messages()[len(poller.Messages())-1]
			Expect(last.Content).To(Equal("hello"))
			Expect(last.SenderID).To(Equal("alice"))
			Expect(poller.Draft()).To(BeEmpty())
		})

		It("keeps the draft when the insert fails", func() {
			backend.insertMessageFn = func(_ context.Context, _, _, _ string) (models.Message, error) {
				return models.Message{}, errors.New("insert failed")
			}

			_, err := poller.Send(ctx, "hello")

			Expect(err).To(HaveOccurred())
			Expect(poller.Draft()).To(Equal("hello"))
			Expect(poller.Err()).To(HaveOccurred())
			Expect(poller.Messages()).To(BeEmpty())
			Expect(poller.Sending()).To(BeFalse())
		})

		It("rejects blank content without calling the backend", func() {
			called := false
			backend.insertMessageFn = func(_ context.Context, _, _, _ string) (models.Message, error) {
				called = true
				return models.Message{}, nil
			}

			_, err := poller.Send(ctx, "   \n")

			Expect(err).To(MatchError(chat.ErrEmptyMessage))
			Expect(called).To(BeFalse())
		})

		It("allows one send at a time", func() {
			release := make(chan struct{})
			backend.insertMessageFn = func(_ context.Context, s, r, c string) (models.Message, error) {
				<-release
				return msg("s1", t0, s), nil
			}

			done := make(chan error, 1)
			go func() {
				_, err := poller.Send(ctx, "first")
				done <- err
			}()
			Eventually(poller.Sending).Should(BeTrue())

			_, err := poller.Send(ctx, "second")
			Expect(err).To(MatchError(chat.ErrSendInProgress))

			close(release)
			Eventually(done).Should(Receive(BeNil()))
		})

		It("does not duplicate a sent message picked up by a poll", func() {
			sent := msg("s1", t0, "alice")
			backend.insertMessageFn = func(_ context.Context, _, _, _ string) (models.Message, error) {
				return sent, nil
			}
			backend.conversationMessagesFn = func(_ context.Context, _, _ string, _ *time.Time) ([]models.Message, error) {
				return []models.Message{sent}, nil
			}

			_, err := poller.Sync(ctx)
			Expect(err).NotTo(HaveOccurred())
			_, err = poller.Send(ctx, "m s1")
			Expect(err).NotTo(HaveOccurred())

			Expect(poller.Messages()).To(HaveLen(1))
		})
	})

	Describe("Run", func() {
		It("polls on the interval and stops when cancelled", func() {
			var calls atomic.Int32
			backend.conversationMessagesFn = func(_ context.Context, _, _ string, _ *time.Time) ([]models.Message, error) {
				n := calls.Add(1)
				return []models.Message{msg("m"+string(rune('0'+n)), t0.Add(time.Duration(n)*time.Second), "bob")}, nil
			}
			poller = chat.NewPoller(backend, "alice", "bob", chat.WithLogger(quiet), chat.WithInterval(10*time.Millisecond))

			runCtx, cancel := context.WithCancel(ctx)
			stopped := make(chan struct{})
			go func() {
				poller.Run(runCtx)
				close(stopped)
			}()

			Eventually(func() int { return len(poller.Messages()) }).Should(BeNumerically(">=", 3))
			cancel()
			Eventually(stopped).Should(BeClosed())

			after := calls.Load()
			Consistently(calls.Load, 50*time.Millisecond).Should(Equal(after))
		})

		It("syncs immediately when brought to the foreground", func() {
			backend.conversationMessagesFn = func(_ context.Context, _, _ string, since *time.Time) ([]models.Message, error) {
				if since == nil {
					return []models.Message{msg("m1", t0, "bob")}, nil
				}
				return []models.Message{msg("m1", t0, "bob"), msg("m2", t0.Add(time.Second), "bob")}, nil
			}
			poller = chat.NewPoller(backend, "alice", "bob", chat.WithLogger(quiet), chat.WithInterval(time.Hour))

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go poller.Run(runCtx)

			Eventually(poller.Loaded).Should(BeTrue())
			poller.Foreground()

			Eventually(func() int { return len(poller.Messages()) }).Should(Equal(2))
		})

		It("keeps polling after a failed load", func() {
			var calls atomic.Int32
			backend.conversationMessagesFn = func(_ context.Context, _, _ string, _ *time.Time) ([]models.Message, error) {
				if calls.Add(1) == 1 {
					return nil, errors.New("flaky")
				}
				return []models.Message{msg("m1", t0, "bob")}, nil
			}
			poller = chat.NewPoller(backend, "alice", "bob", chat.WithLogger(quiet), chat.WithInterval(10*time.Millisecond))

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go poller.Run(runCtx)

			Eventually(poller.Messages).Should(HaveLen(1))
			Expect(poller.Err()).To(BeNil())
		})

		It("reports new messages to the listener", func() {
			got := make(chan []models.Message, 4)
			backend.conversationMessagesFn = func(_ context.Context, _, _ string, _ *time.Time) ([]models.Message, error) {
				return []models.Message{msg("m1", t0, "bob")}, nil
			}
			poller = chat.NewPoller(backend, "alice", "bob", chat.WithLogger(quiet),
				chat.OnMessages(func(m []models.Message) { got <- m }))

			_, err := poller.Sync(ctx)
			Expect(err).NotTo(HaveOccurred())
			_, err = poller.Sync(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(got).To(HaveLen(1))
		})
	})
})
