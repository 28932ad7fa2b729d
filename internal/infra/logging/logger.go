// Package logging provides file-based logging for decree. It writes to
// both a repo-wide global log file and, when a run ID is given, a
// per-run log file alongside it.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/runoshun/decree/internal/domain"
)

var _ domain.Logger = (*Logger)(nil)

// Logger writes formatted entries to decree's log files.
// Fields are ordered to minimize memory padding.
type Logger struct {
	runtimeDir string
	globalFile *os.File
	runFiles   map[string]*os.File
	mu         sync.Mutex
	level      slog.Level
}

// New creates a Logger rooted at runtimeDir. If runtimeDir is empty,
// logging is disabled (every call becomes a no-op).
func New(runtimeDir string, level slog.Level) *Logger {
	return &Logger{
		runtimeDir: runtimeDir,
		level:      level,
		runFiles:   make(map[string]*os.File),
	}
}

// ParseLevel parses a config log-level string into slog.Level, defaulting
// to info for anything unrecognized.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) ensureLogsDir() error {
	return os.MkdirAll(domain.LogsDir(l.runtimeDir), 0o750)
}

func (l *Logger) ensureGlobalFile() (*os.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.globalFile != nil {
		return l.globalFile, nil
	}
	if err := l.ensureLogsDir(); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	// Log files are append-only and readable by the repo's operators.
	f, err := os.OpenFile(domain.GlobalLogPath(l.runtimeDir), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // append-only log, owner+group readable
	if err != nil {
		return nil, fmt.Errorf("open global log: %w", err)
	}
	l.globalFile = f
	return f, nil
}

func (l *Logger) ensureRunFile(runID string) (*os.File, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if f, ok := l.runFiles[runID]; ok {
		return f, nil
	}
	if err := l.ensureLogsDir(); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	path := filepath.Clean(domain.RunLogPath(l.runtimeDir, runID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // append-only log, owner+group readable
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	l.runFiles[runID] = f
	return f, nil
}

// Close closes every open log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var lastErr error
	if l.globalFile != nil {
		if err := l.globalFile.Close(); err != nil {
			lastErr = err
		}
		l.globalFile = nil
	}
	for id, f := range l.runFiles {
		if err := f.Close(); err != nil {
			lastErr = err
		}
		delete(l.runFiles, id)
	}
	return lastErr
}

// format renders one entry as "[timestamp] [LEVEL] [run] [category] msg".
func format(t time.Time, level slog.Level, runID, category, msg string) string {
	run := runID
	if run == "" {
		run = "global"
	}
	return fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		t.Format("2006-01-02 15:04:05"), levelString(level), run, category, msg)
}

func levelString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (l *Logger) log(level slog.Level, runID, category, msg string) {
	if l.runtimeDir == "" || level < l.level {
		return
	}
	entry := format(time.Now(), level, runID, category, msg)
	if gf, err := l.ensureGlobalFile(); err == nil {
		_, _ = io.WriteString(gf, entry)
	}
	if runID != "" {
		if rf, err := l.ensureRunFile(runID); err == nil {
			_, _ = io.WriteString(rf, entry)
		}
	}
}

// Info logs an info-level entry.
func (l *Logger) Info(runID, category, msg string) { l.log(slog.LevelInfo, runID, category, msg) }

// Debug logs a debug-level entry.
func (l *Logger) Debug(runID, category, msg string) { l.log(slog.LevelDebug, runID, category, msg) }

// Warn logs a warning-level entry.
func (l *Logger) Warn(runID, category, msg string) { l.log(slog.LevelWarn, runID, category, msg) }

// Error logs an error-level entry.
func (l *Logger) Error(runID, category, msg string) { l.log(slog.LevelError, runID, category, msg) }
