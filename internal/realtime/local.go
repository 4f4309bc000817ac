package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samrogers05/genesis/internal/models"
)

// LocalBus delivers events within one process. It is used when no valkey server is configured.
type LocalBus struct {
	mu     sync.RWMutex
	subs   map[int]chan []byte
	nextID int
	logger *slog.Logger
}

func NewLocalBus(logger *slog.Logger) *LocalBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalBus{subs: make(map[int]chan []byte), logger: logger}
}

func (b *LocalBus) PublishProjectCreated(ctx context.Context, p models.Project) error {
	data, err := encode(p)
	if err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- data:
		default:
			b.logger.WarnContext(ctx, "subscriber too slow, dropping project event", "subscriber", id, "project_id", p.ID)
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, fn func(Event)) error {
	ch := make(chan []byte, 64)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case data := <-ch:
			ev, err := decode(data)
			if err != nil {
				b.logger.WarnContext(ctx, "dropping malformed project event", "error", err)
				continue
			}
			fn(ev)
		}
	}
}

// Subscribers reports how many Subscribe calls are active.
func (b *LocalBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *LocalBus) Close() error { return nil }
