package observers

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/clintrovert/scrummaster/internal/events"
)

// LogWriter prints every event to the display stream and optionally
// appends it to a log file
type LogWriter struct {
	switchable
	mu   sync.Mutex
	out  io.Writer
	path string
}

// NewLogWriter creates a log sink writing to out and, when path is not
// empty, to the file at path
func NewLogWriter(out io.Writer, path string) *LogWriter {
	if out == nil {
		out = os.Stdout
	}
	return &LogWriter{out: out, path: path}
}

// FormatEntry renders the canonical log line for e
func FormatEntry(e events.Event) string {
	return fmt.Sprintf("[%s] %s - %s (%s%%)",
		strings.ToUpper(string(e.Type)), e.Phase, e.Message, formatProgress(e.Progress))
}

// Update writes e
func (l *LogWriter) Update(_ context.Context, e events.Event) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	entry := FormatEntry(e)
	stamp := ts.UTC().Format(time.RFC3339)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := fmt.Fprintf(l.out, "📝 [%s] %s\n", stamp, entry); err != nil {
		return fmt.Errorf("failed to write log entry: %w", err)
	}

	if l.path == "" {
		return nil
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "[%s] %s\n", stamp, entry); err != nil {
		return fmt.Errorf("failed to append log file: %w", err)
	}
	return nil
}

func (l *LogWriter) Name() string      { return "LogWriter" }
func (l *LogWriter) Enabled() bool     { return l.on() }
func (l *LogWriter) Kind() events.Kind { return events.KindLog }
