package debuglog

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/fastbillsync/internal/clock"
	obslogger "github.com/smallbiznis/fastbillsync/internal/observability/logger"
	"go.uber.org/zap"
)

// DefaultKey names the text blob holding the integration log.
const DefaultKey = "fastbill_debug_log"

// Store persists an append-only text blob under a fixed name.
type Store interface {
	AppendOption(ctx context.Context, name, value string) error
	GetOption(ctx context.Context, name string) (string, error)
	DeleteOption(ctx context.Context, name string) error
}

// Logger writes timestamped entries to a Store while enabled. Every entry is
// mirrored to zap at debug level whether or not persistence is enabled.
type Logger struct {
	store   Store
	key     string
	enabled bool
	clock   clock.Clock
	log     *zap.Logger
}

type Option func(*Logger)

func WithKey(key string) Option {
	return func(l *Logger) {
		if strings.TrimSpace(key) != "" {
			l.key = key
		}
	}
}

func WithClock(c clock.Clock) Option {
	return func(l *Logger) {
		if c != nil {
			l.clock = c
		}
	}
}

func New(store Store, enabled bool, log *zap.Logger, opts ...Option) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Logger{
		store:   store,
		key:     DefaultKey,
		enabled: enabled && store != nil,
		clock:   clock.SystemClock{},
		log:     log.Named("fastbill.debug"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Nop returns a logger that never persists.
func Nop() *Logger {
	return New(nil, false, nil)
}

func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

// Add appends msg. Storage failures are reported to zap and otherwise
// ignored so logging never aborts a lifecycle step.
func (l *Logger) Add(ctx context.Context, msg string) {
	if l == nil {
		return
	}
	obslogger.WithContext(ctx, l.log).Debug(strings.TrimSpace(msg))
	if !l.enabled {
		return
	}
	if err := l.store.AppendOption(ctx, l.key, Format(l.clock.Now(), msg)); err != nil {
		l.log.Warn("append debug log failed", zap.Error(err))
	}
}

func (l *Logger) Read(ctx context.Context) (string, error) {
	if l == nil || l.store == nil {
		return "", nil
	}
	return l.store.GetOption(ctx, l.key)
}

func (l *Logger) Clear(ctx context.Context) error {
	if l == nil || l.store == nil {
		return nil
	}
	return l.store.DeleteOption(ctx, l.key)
}

// Format renders one log entry.
func Format(at time.Time, msg string) string {
	return "Log Date: " + at.Format(time.RFC1123Z) + "\n" + strings.TrimSpace(msg) + "\n"
}
