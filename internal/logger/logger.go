package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"campusflow/internal/config"
	"campusflow/internal/telemetry"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
	config config.Config
}

// New creates a new logger instance and installs it as the slog default.
func New(cfg config.Config) *Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter is New with an explicit console destination.
func NewWithWriter(cfg config.Config, w io.Writer) *Logger {
	var handler slog.Handler

	if cfg.Server.Environment == config.EnvironmentProduction {
		opts := &slog.HandlerOptions{Level: slog.LevelInfo, AddSource: true}
		handler = slog.NewJSONHandler(w, opts)
		if cfg.Telemetry.Enabled {
			handler = NewMultiHandler(telemetry.NewOTelHandler(opts), handler)
		}
	} else {
		// Text format reads better in a terminal.
		opts := &slog.HandlerOptions{Level: slog.LevelDebug}
		handler = slog.NewTextHandler(w, opts)
		if cfg.Telemetry.Enabled {
			handler = NewMultiHandler(telemetry.NewOTelHandler(opts), handler)
		}
	}

	logger := slog.New(handler).With(
		"service", cfg.Telemetry.ServiceName,
		"version", cfg.Telemetry.ServiceVersion,
		"environment", cfg.Server.Environment,
	)

	slog.SetDefault(logger)

	return &Logger{
		Logger: logger,
		config: cfg,
	}
}

// WithUser creates a logger with user context
func (l *Logger) WithUser(userID uuid.UUID, role string) *slog.Logger {
	return l.With(
		"user_id", userID,
		"user_role", role,
	)
}

// WithError creates a logger with error context
func (l *Logger) WithError(err error) *slog.Logger {
	return l.With("error", err)
}

// MultiHandler sends logs to multiple handlers
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a new multi-handler
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Enabled reports whether any handler handles records at the given level
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle handles the Record by sending it to all handlers
func (h *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		// Each handler gets its own copy since Handle may consume attrs.
		if err := handler.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WithAttrs returns a new MultiHandler with the given attributes
func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		newHandlers = append(newHandlers, handler.WithAttrs(attrs))
	}
	return &MultiHandler{handlers: newHandlers}
}

// WithGroup returns a new MultiHandler with the given group
func (h *MultiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, 0, len(h.handlers))
	for _, handler := range h.handlers {
		newHandlers = append(newHandlers, handler.WithGroup(name))
	}
	return &MultiHandler{handlers: newHandlers}
}

// SilenceLogger redirects logs to discard (useful for testing)
func SilenceLogger(w io.Writer) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelError, // Only show errors
	})
	slog.SetDefault(slog.New(handler))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
