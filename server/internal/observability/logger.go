package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRequestID is the field name for request ID.
	LogFieldRequestID = "request_id"
	// LogFieldChatID is the field name for the chat the request came from.
	LogFieldChatID = "chat_id"
	// LogFieldSource is the field name for the request source (cli, bot, runner).
	LogFieldSource = "source"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldTargetDate is the field name for the resolved date.
	LogFieldTargetDate = "target_date"
	// LogFieldErrorCode is the field name for error code.
	LogFieldErrorCode = "error_code"
	// LogFieldSlots is the field name for a slot count.
	LogFieldSlots = "slots"
)

// Request sources.
const (
	SourceCLI    = "cli"
	SourceBot    = "bot"
	SourceRunner = "runner"
)

// QueryContext represents the context of a single timetable query with structured logging.
type QueryContext struct {
	RequestID string
	ChatID    int64
	Source    string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewQueryContext creates a new query context with a generated request ID.
func NewQueryContext(logger *slog.Logger, source string, chatID int64) *QueryContext {
	return NewQueryContextWithID(logger, uuid.New().String(), source, chatID)
}

// NewQueryContextWithID creates a new query context with a specific request ID.
func NewQueryContextWithID(logger *slog.Logger, requestID, source string, chatID int64) *QueryContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryContext{
		RequestID: requestID,
		ChatID:    chatID,
		Source:    source,
		StartTime: time.Now(),
		Logger:    logger,
	}
}

// WithFields returns a new logger with the base fields and attrs attached.
func (q *QueryContext) WithFields(attrs ...slog.Attr) *slog.Logger {
	combined := q.baseAttrsAppended(attrs...)
	args := make([]any, 0, len(combined))
	for _, attr := range combined {
		args = append(args, attr)
	}
	return q.Logger.With(args...)
}

// Info logs an info message.
func (q *QueryContext) Info(msg string, attrs ...slog.Attr) {
	q.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, q.baseAttrsAppended(attrs...)...)
}

// Debug logs a debug message.
func (q *QueryContext) Debug(msg string, attrs ...slog.Attr) {
	q.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, q.baseAttrsAppended(attrs...)...)
}

// Warn logs a warning message.
func (q *QueryContext) Warn(msg string, attrs ...slog.Attr) {
	q.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, q.baseAttrsAppended(attrs...)...)
}

// Error logs an error message with the error.
func (q *QueryContext) Error(msg string, err error, attrs ...slog.Attr) {
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	q.Logger.LogAttrs(context.Background(), slog.LevelError, msg, q.baseAttrsAppended(attrs...)...)
}

// Duration returns the elapsed time since the query started.
func (q *QueryContext) Duration() time.Duration {
	return time.Since(q.StartTime)
}

// DurationMs returns the elapsed time in milliseconds.
func (q *QueryContext) DurationMs() int64 {
	return q.Duration().Milliseconds()
}

func (q *QueryContext) baseAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String(LogFieldRequestID, q.RequestID),
		slog.Int64(LogFieldChatID, q.ChatID),
		slog.String(LogFieldSource, q.Source),
	}
}

func (q *QueryContext) baseAttrsAppended(attrs ...slog.Attr) []slog.Attr {
	return append(q.baseAttrs(), attrs...)
}

type ctxKey struct{}

// WithQueryContext adds the query context to the context.
func WithQueryContext(ctx context.Context, q *QueryContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, q)
}

// FromContext extracts the query context from the context.
func FromContext(ctx context.Context) (*QueryContext, bool) {
	q, ok := ctx.Value(ctxKey{}).(*QueryContext)
	return q, ok
}

// FromContextOr returns the query context of ctx, or a fresh one logging to
// logger when ctx carries none.
func FromContextOr(ctx context.Context, logger *slog.Logger, source string) *QueryContext {
	if q, ok := FromContext(ctx); ok {
		return q
	}
	return NewQueryContext(logger, source, 0)
}
