package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type Config struct {
	Level     slog.Level
	Format    string
	Output    io.Writer
	AddSource bool
}

func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    "text",
		Output:    os.Stderr,
		AddSource: false,
	}
}

// root is the process-wide handler. Loggers handed out before Init (the
// package-level component loggers) go through it, so swapping its inner
// handler at Init time retargets every logger in the program.
var root = &rootHandler{inner: slog.NewTextHandler(os.Stderr, nil)}

func init() {
	slog.SetDefault(slog.New(root))
}

func Init(cfg Config) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	root.swap(handler)
	slog.SetDefault(slog.New(root))
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debug(msg string, args ...any) { slog.Debug(msg, args...) }
func Info(msg string, args ...any)  { slog.Info(msg, args...) }
func Warn(msg string, args ...any)  { slog.Warn(msg, args...) }
func Error(msg string, args ...any) { slog.Error(msg, args...) }

func ForComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func With(args ...any) *slog.Logger {
	return slog.Default().With(args...)
}

type rootHandler struct {
	mu    sync.RWMutex
	inner slog.Handler
}

func (h *rootHandler) swap(inner slog.Handler) {
	h.mu.Lock()
	h.inner = inner
	h.mu.Unlock()
}

func (h *rootHandler) current() slog.Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.inner
}

func (h *rootHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.current().Enabled(ctx, level)
}

func (h *rootHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.current().Handle(ctx, r)
}

func (h *rootHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return (&derivedHandler{root: h}).WithAttrs(attrs)
}

func (h *rootHandler) WithGroup(name string) slog.Handler {
	return (&derivedHandler{root: h}).WithGroup(name)
}

// derivedHandler replays WithAttrs/WithGroup onto whichever handler is active
// when a record arrives, instead of binding them at logger-creation time.
type derivedHandler struct {
	root *rootHandler
	ops  []func(slog.Handler) slog.Handler
}

func (h *derivedHandler) resolve() slog.Handler {
	inner := h.root.current()
	for _, op := range h.ops {
		inner = op(inner)
	}
	return inner
}

func (h *derivedHandler) with(op func(slog.Handler) slog.Handler) slog.Handler {
	ops := make([]func(slog.Handler) slog.Handler, 0, len(h.ops)+1)
	ops = append(ops, h.ops...)
	ops = append(ops, op)
	return &derivedHandler{root: h.root, ops: ops}
}

func (h *derivedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.root.current().Enabled(ctx, level)
}

func (h *derivedHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

func (h *derivedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (h *derivedHandler) WithGroup(name string) slog.Handler {
	return h.with(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}
