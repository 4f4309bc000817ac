package chat_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/samrogers05/genesis/internal/chat"
	"github.com/samrogers05/genesis/internal/models"
)

var _ = Describe("GroupByDate", func() {
	It("partitions by calendar date and keeps arrival order", func() {
		day1 := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
		day2 := day1.Add(2 * time.Minute)
		msgs := []models.Message{
			{ID: "a", CreatedAt: day1},
			{ID: "b", CreatedAt: day2},
			{ID: "c", CreatedAt: day2.Add(time.Hour)},
			{ID: "d", CreatedAt: day1.Add(-time.Hour)},
		}

		groups := chat.GroupByDate(msgs, time.UTC)

		Expect(groups).To(HaveLen(2))
		Expect(groups[0].Date).To(Equal("2024-01-01"))
		Expect(groups[0].Label()).To(Equal("January 1, 2024"))
		Expect(groups[0].Messages).To(HaveLen(2))
		Expect(groups[0].Messages[1].ID).To(Equal("d"))
		Expect(groups[1].Date).To(Equal("2024-01-02"))
		Expect([]string{groups[1].Messages[0].ID, groups[1].Messages[1].ID}).To(Equal([]string{"b", "c"}))
	})

	It("uses the given location", func() {
		tz := time.FixedZone("UTC-5", -5*3600)
		msgs := []models.Message{{ID: "a", CreatedAt: time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC)}}

		Expect(chat.GroupByDate(msgs, tz)[0].Date).To(Equal("2024-01-01"))
	})

	It("returns no groups for no messages", func() {
		Expect(chat.GroupByDate(nil, time.UTC)).To(BeEmpty())
	})
})
