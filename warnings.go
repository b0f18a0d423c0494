package pdfpipe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Warning is a recoverable problem met during a pass, such as a dropped
// cross-reference section or an unreadable compressed object.
type Warning struct {
	Message string
	Attrs   []slog.Attr
}

func (w Warning) String() string {
	var b strings.Builder
	b.WriteString(w.Message)
	for _, a := range w.Attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	return b.String()
}

// FormatWarnings renders warnings one per line.
func FormatWarnings(warnings []Warning) string {
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = w.String()
	}
	return strings.Join(lines, "\n")
}

// warningLog keeps the records logged at warning level or above.
type warningLog struct {
	mu       sync.Mutex
	warnings []Warning
}

func (l *warningLog) list() []Warning {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Warning(nil), l.warnings...)
}

// warningHandler is the slog.Handler side of a warningLog.
type warningHandler struct {
	log   *warningLog
	attrs []slog.Attr
}

func (h warningHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelWarn
}

func (h warningHandler) Handle(_ context.Context, record slog.Record) error {
	w := Warning{Message: record.Message, Attrs: append([]slog.Attr(nil), h.attrs...)}
	record.Attrs(func(a slog.Attr) bool {
		w.Attrs = append(w.Attrs, a)
		return true
	})
	h.log.mu.Lock()
	h.log.warnings = append(h.log.warnings, w)
	h.log.mu.Unlock()
	return nil
}

func (h warningHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return warningHandler{log: h.log, attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}

func (h warningHandler) WithGroup(string) slog.Handler { return h }

// fanoutHandler sends each record to every handler enabled for its level.
type fanoutHandler []slog.Handler

func (handlers fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (handlers fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (handlers fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithAttrs(attrs)
	}
	return derived
}

func (handlers fanoutHandler) WithGroup(name string) slog.Handler {
	derived := make(fanoutHandler, len(handlers))
	for index, handler := range handlers {
		derived[index] = handler.WithGroup(name)
	}
	return derived
}
