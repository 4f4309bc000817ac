package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/samrogers05/genesis/internal/chat"
	"github.com/samrogers05/genesis/internal/models"
)

// transcript prints messages under a date header whenever the day changes.
type transcript struct {
	mu       sync.Mutex
	w        io.Writer
	userID   string
	other    string
	loc      *time.Location
	lastDate string
}

func newTranscript(w io.Writer, userID, otherName string, loc *time.Location) *transcript {
	return &transcript{w: w, userID: userID, other: otherName, loc: loc}
}

func (t *transcript) print(msgs []models.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, g := range chat.GroupByDate(msgs, t.loc) {
		if g.Date != t.lastDate {
			fmt.Fprintf(t.w, "\n--- %s ---\n", g.Label())
			t.lastDate = g.Date
		}
		for _, m := range g.Messages {
			who := t.other
			if m.SenderID == t.userID {
				who = "you"
			}
			fmt.Fprintf(t.w, "[%s] %s: %s\n", m.CreatedAt.In(t.loc).Format("15:04"), who, m.Content)
		}
	}
}
