package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Env is what Setup needs to know about the deployment.
type Env interface {
	IsDevelopment() bool
	IsProduction() bool
}

// Setup installs the default slog logger: JSON in production, text elsewhere.
func Setup(env Env) {
	slog.SetDefault(New(os.Stdout, env))
}

func New(w io.Writer, env Env) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if env.IsDevelopment() {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if env.IsProduction() {
		handler = NewContextHandler(slog.NewJSONHandler(w, opts))
	} else {
		handler = NewContextHandler(slog.NewTextHandler(w, opts))
	}
	return slog.New(handler)
}

// ContextHandler adds the LogFields carried by the context to every record.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := GetLogFields(ctx)
	if fields.UserID != nil {
		r.AddAttrs(slog.String("user_id", *fields.UserID))
	}
	if fields.OtherUserID != nil {
		r.AddAttrs(slog.String("other_user_id", *fields.OtherUserID))
	}
	if fields.ProjectID != nil {
		r.AddAttrs(slog.String("project_id", *fields.ProjectID))
	}
	if fields.Component != "" {
		r.AddAttrs(slog.String("component", fields.Component))
	}

	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}
