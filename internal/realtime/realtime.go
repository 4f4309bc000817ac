// Package realtime fans project-created events out to every server instance.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samrogers05/genesis/internal/models"
)

// ProjectsChannel is the pub/sub channel for project-created events.
const ProjectsChannel = "genesis:projects:created"

const EventProjectCreated = "project_created"

// Event is the payload published on ProjectsChannel and pushed to feed sockets.
type Event struct {
	Type    string         `json:"type"`
	Project models.Project `json:"project"`
}

// Bus publishes project-created events and delivers them to subscribers.
type Bus interface {
	PublishProjectCreated(ctx context.Context, p models.Project) error
	// Subscribe calls fn for every event until ctx is done or the subscription fails.
	Subscribe(ctx context.Context, fn func(Event)) error
	Close() error
}

func encode(p models.Project) ([]byte, error) {
	data, err := json.Marshal(Event{Type: EventProjectCreated, Project: p})
	if err != nil {
		return nil, fmt.Errorf("encode project event: %w", err)
	}
	return data, nil
}

func decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode project event: %w", err)
	}
	return ev, nil
}
