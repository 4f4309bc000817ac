package models

import "time"

// FeedItemKind tags which entity produced a merged feed entry.
type FeedItemKind string

const (
	KindNewProject     FeedItemKind = "new_project"
	KindTrending       FeedItemKind = "trending"
	KindProjectUpdate  FeedItemKind = "project_update"
	KindNewPublication FeedItemKind = "new_publication"
)

// FeedItem is one entry of the merged feed. ID is unique across kinds.
type FeedItem struct {
	ID                   string          `json:"id"`
	Kind                 FeedItemKind    `json:"kind"`
	Title                string          `json:"title"`
	Detail               string          `json:"detail"`
	Timestamp            time.Time       `json:"timestamp"`
	SignalBoostCount     *int            `json:"signalBoostCount,omitempty"`
	BoostedByCurrentUser *bool           `json:"boostedByCurrentUser,omitempty"`
	LinkedProjectID      *string         `json:"linkedProjectId,omitempty"`
	Creator              *ProfileSummary `json:"creator,omitempty"`
}

// BoostLedger is what the backend knows about a user's signal boosts for the current day.
type BoostLedger struct {
	DailyAllowance    int      `json:"dailyAllowance"`
	BoostedProjectIDs []string `json:"boostedProjectIds"`
}

// Remaining is the number of boosts still available today, never negative.
func (l BoostLedger) Remaining() int {
	if r := l.DailyAllowance - len(l.BoostedProjectIDs); r > 0 {
		return r
	}
	return 0
}
