package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are attached to every record logged with a context that carries them.
type LogFields struct {
	UserID      *string // signed-in user
	OtherUserID *string // conversation partner
	ProjectID   *string
	Component   string // e.g. "genesis.feed"
}

// WithLogFields merges fields into the context. Newer non-empty values win.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := mergeFields(GetLogFields(ctx), fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.UserID != nil {
		result.UserID = new.UserID
	}
	if new.OtherUserID != nil {
		result.OtherUserID = new.OtherUserID
	}
	if new.ProjectID != nil {
		result.ProjectID = new.ProjectID
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr returns a pointer to v, for setting LogFields inline.
func Ptr[T any](v T) *T {
	return &v
}
