// Package runlog writes the plain-text logs a batch leaves behind for people
// to read: an append-only per-item log and a one-line summary log.
package runlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Logger appends one line per event to a file. Lines have no level or
// structure.
type Logger struct {
	mu sync.Mutex
	w  io.Writer
	f  *os.File
}

// Open opens path for appending, creating it if needed.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "runlog: open %s", path)
	}
	return &Logger{w: f, f: f}, nil
}

// New returns a Logger writing to w.
func New(w io.Writer) *Logger {
	return &Logger{w: w}
}

// Discard returns a Logger that drops every line.
func Discard() *Logger {
	return New(io.Discard)
}

// Printf formats and appends one line. Write errors are reported to zap and
// otherwise ignored; the run log never fails a crawl.
func (l *Logger) Printf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	zap.L().Debug("runlog: " + line)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := io.WriteString(l.w, line+"\n"); err != nil {
		zap.L().Warn("runlog: write failed", zap.Error(err))
	}
}

// Close closes the underlying file, if any.
func (l *Logger) Close() error {
	if l.f == nil {
		return nil
	}
	return eris.Wrap(l.f.Close(), "runlog: close")
}

// AppendLine appends one line to path without holding the file open.
func AppendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrapf(err, "runlog: open %s", path)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "runlog: append %s", path)
	}
	return eris.Wrapf(f.Close(), "runlog: close %s", path)
}

// WriteSummary truncates path and writes a single timestamped line.
func WriteSummary(path string, at time.Time, message string) error {
	line := fmt.Sprintf("[%s] %s\n", at.Format(time.DateTime), message)
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		return eris.Wrapf(err, "runlog: write summary %s", path)
	}
	return nil
}
