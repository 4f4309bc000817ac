package realtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/valkey-io/valkey-go"

	"github.com/samrogers05/genesis/internal/models"
)

type valkeyBus struct {
	client  valkey.Client
	channel string
	logger  *slog.Logger
}

// NewValkeyBus connects to the valkey server at url, e.g. redis://localhost:6379/0.
func NewValkeyBus(url string, logger *slog.Logger) (Bus, error) {
	opt, err := valkey.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse valkey url: %w", err)
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}
	return NewValkeyBusFromClient(client, logger), nil
}

func NewValkeyBusFromClient(client valkey.Client, logger *slog.Logger) Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &valkeyBus{client: client, channel: ProjectsChannel, logger: logger}
}

func (b *valkeyBus) PublishProjectCreated(ctx context.Context, p models.Project) error {
	data, err := encode(p)
	if err != nil {
		return err
	}
	cmd := b.client.B().Publish().Channel(b.channel).Message(string(data)).Build()
	if err := b.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("publish project event: %w", err)
	}
	b.logger.InfoContext(ctx, "published project event", "project_id", p.ID, "channel", b.channel)
	return nil
}

func (b *valkeyBus) Subscribe(ctx context.Context, fn func(Event)) error {
	cmd := b.client.B().Subscribe().Channel(b.channel).Build()
	err := b.client.Receive(ctx, cmd, func(msg valkey.PubSubMessage) {
		ev, err := decode([]byte(msg.Message))
		if err != nil {
			b.logger.WarnContext(ctx, "dropping malformed project event", "error", err)
			return
		}
		fn(ev)
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	return nil
}

func (b *valkeyBus) Close() error {
	b.client.Close()
	return nil
}
