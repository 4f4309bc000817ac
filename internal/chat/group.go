package chat

import (
	"time"

	"github.com/samrogers05/genesis/internal/models"
)

const dateLayout = "2006-01-02"

// DateGroup is the run of messages sent on one calendar day.
type DateGroup struct {
	Date     string           `json:"date"` // 2006-01-02
	Messages []models.Message `json:"messages"`
}

// Label renders the date the way the conversation header shows it, e.g. "January 2, 2006".
func (g DateGroup) Label() string {
	t, err := time.Parse(dateLayout, g.Date)
	if err != nil {
		return g.Date
	}
	return t.Format("January 2, 2006")
}

// GroupByDate partitions messages by the calendar date of CreatedAt in loc, keeping the
// order of first appearance for dates and the given order within each date. A nil loc
// means local time.
func GroupByDate(messages []models.Message, loc *time.Location) []DateGroup {
	if loc == nil {
		loc = time.Local
	}
	groups := make([]DateGroup, 0)
	index := make(map[string]int)
	for _, m := range messages {
		date := m.CreatedAt.In(loc).Format(dateLayout)
		i, ok := index[date]
		if !ok {
			i = len(groups)
			index[date] = i
			groups = append(groups, DateGroup{Date: date})
		}
		groups[i].Messages = append(groups[i].Messages, m)
	}
	return groups
}
