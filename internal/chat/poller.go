// Package chat keeps a two-party conversation in sync with the backend by polling.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samrogers05/genesis/internal/logger"
	"github.com/samrogers05/genesis/internal/models"
)

// DefaultInterval is how often Run polls for new messages.
const DefaultInterval = 10 * time.Second

var (
	ErrNotAuthenticated = errors.New("please sign in")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrSendInProgress   = errors.New("a message is already being sent")
)

// Backend is the message store as seen by one signed-in user.
type Backend interface {
	// ConversationMessages returns the messages between the two users created at or after
	// since (all of them when since is nil), oldest first.
	ConversationMessages(ctx context.Context, userID, otherUserID string, since *time.Time) ([]models.Message, error)
	InsertMessage(ctx context.Context, senderID, receiverID, content string) (models.Message, error)
}

// Option configures a Poller.
type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(p *Poller) { p.log = log }
}

// WithOtherUser sets the name and avatar shown for the other participant.
func WithOtherUser(name string, avatar *string) Option {
	return func(p *Poller) {
		p.view.OtherUserName = name
		p.view.OtherUserAvatar = avatar
	}
}

// OnMessages is called, outside the poller's lock, with every batch of newly appended messages.
func OnMessages(fn func([]models.Message)) Option {
	return func(p *Poller) { p.onMessages = fn }
}

// Poller holds the locally known part of one conversation. The message list only grows, and
// a message id is never appended twice no matter how polls and sends interleave.
type Poller struct {
	mu sync.Mutex

	backend    Backend
	userID     string
	interval   time.Duration
	log        *slog.Logger
	onMessages func([]models.Message)
	wake       chan struct{}

	view    models.ConversationView
	known   map[string]struct{}
	cursor  *time.Time // newest CreatedAt the backend has returned to a load
	loaded  bool
	draft   string
	sending bool
	lastErr error
}

func NewPoller(backend Backend, userID, otherUserID string, opts ...Option) *Poller {
	p := &Poller{
		backend:  backend,
		userID:   userID,
		interval: DefaultInterval,
		log:      slog.Default(),
		wake:     make(chan struct{}, 1),
		view:     models.ConversationView{OtherUserID: otherUserID, Messages: []models.Message{}},
		known:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LoadMessages fetches messages created at or after since and appends the ones not seen
// before. It returns how many were appended.
func (p *Poller) LoadMessages(ctx context.Context, since *time.Time) (int, error) {
	if p.userID == "" {
		return 0, ErrNotAuthenticated
	}
	msgs, err := p.backend.ConversationMessages(ctx, p.userID, p.view.OtherUserID, since)

	p.mu.Lock()
	p.loaded = true
	if err != nil {
		p.lastErr = fmt.Errorf("load messages: %w", err)
		p.mu.Unlock()
		return 0, p.lastErr
	}
	p.lastErr = nil
	for _, m := range msgs {
		if p.cursor == nil || m.CreatedAt.After(*p.cursor) {
			t := m.CreatedAt
			p.cursor = &t
		}
	}
	added := p.appendLocked(msgs)
	p.mu.Unlock()

	p.notify(added)
	return len(added), nil
}

// Sync loads everything from the newest message a previous load returned, or the whole thread
// when no load has returned any.
func (p *Poller) Sync(ctx context.Context) (int, error) {
	return p.LoadMessages(ctx, p.lastSeen())
}

// Run loads the conversation, then syncs every interval and whenever Foreground is called,
// until ctx is cancelled. Failed loads are logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		UserID:      logger.Ptr(p.userID),
		OtherUserID: logger.Ptr(p.view.OtherUserID),
		Component:   "genesis.chat",
	})

	if _, err := p.LoadMessages(ctx, nil); err != nil {
		p.log.ErrorContext(ctx, "error loading messages", "error", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sync(ctx, "poll")
		case <-p.wake:
			p.sync(ctx, "foreground")
		}
	}
}

// Foreground asks Run for an immediate sync, for when the conversation becomes visible again.
// It never blocks; requests made while one is queued are coalesced.
func (p *Poller) Foreground() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Send inserts a message and appends the stored row. On success the draft is cleared; on
// failure the draft holds content so it can be retried.
func (p *Poller) Send(ctx context.Context, content string) (models.Message, error) {
	if p.userID == "" {
		return models.Message{}, ErrNotAuthenticated
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return models.Message{}, ErrEmptyMessage
	}

	p.mu.Lock()
	if p.sending {
		p.mu.Unlock()
		return models.Message{}, ErrSendInProgress
	}
	p.sending = true
	p.draft = content
	p.mu.Unlock()

	msg, err := p.backend.InsertMessage(ctx, p.userID, p.view.OtherUserID, trimmed)

	p.mu.Lock()
	p.sending = false
	if err != nil {
		p.lastErr = fmt.Errorf("send message: %w", err)
		p.mu.Unlock()
		p.log.ErrorContext(ctx, "error sending message", "error", err)
		return models.Message{}, p.lastErr
	}
	p.draft = ""
	p.lastErr = nil
	added := p.appendLocked([]models.Message{msg})
	p.mu.Unlock()

	p.notify(added)
	return msg, nil
}

// View returns a copy of the conversation.
func (p *Poller) View() models.ConversationView {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.view
	v.Messages = append([]models.Message(nil), p.view.Messages...)
	return v
}

func (p *Poller) Messages() []models.Message {
	return p.View().Messages
}

func (p *Poller) Draft() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draft
}

func (p *Poller) SetDraft(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draft = s
}

func (p *Poller) Sending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sending
}

// Loaded reports whether the first load has finished, successfully or not.
func (p *Poller) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Err is the error of the last load or send, nil after a later success.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Poller) sync(ctx context.Context, reason string) {
	n, err := p.Sync(ctx)
	if err != nil {
		p.log.ErrorContext(ctx, "error loading messages", "trigger", reason, "error", err)
		return
	}
	if n > 0 {
		p.log.DebugContext(ctx, "new messages", "trigger", reason, "count", n)
	}
}

// lastSeen is the poll bound. Sent messages do not move it: a reply created before our own
// send but not fetched yet would fall behind a bound taken from the sent row.
func (p *Poller) lastSeen() *time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cursor == nil {
		return nil
	}
	t := *p.cursor
	return &t
}

func (p *Poller) appendLocked(msgs []models.Message) []models.Message {
	var added []models.Message
	for _, m := range msgs {
		if _, dup := p.known[m.ID]; dup {
			continue
		}
		p.known[m.ID] = struct{}{}
		p.view.Messages = append(p.view.Messages, m)
		added = append(added, m)
	}
	return added
}

func (p *Poller) notify(added []models.Message) {
	if len(added) > 0 && p.onMessages != nil {
		p.onMessages(added)
	}
}
