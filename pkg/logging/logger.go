// Package logging provides file loggers for a test run.
//
// Every scenario attempt gets its own log at logs/<identity>/log.log. The
// suite itself logs to logs/suite-<run-id>.log. Lines are formatted as
//
//	[2006-01-02 15:04:05.000] [component] [LEVEL] message
//
// There is no level filtering; every method writes.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Logger writes timestamped lines to a single file.
type Logger struct {
	component string
	file      *os.File
	logger    *log.Logger
	mu        sync.Mutex
	logPath   string
	closeOnce sync.Once
}

// NewRunID returns a fresh identifier for a test run.
func NewRunID() string {
	return uuid.New().String()
}

// NewScenarioLogger opens the log of one attempt. The file and its parent
// directory are created; an existing file is appended to.
//
// When the file cannot be opened a logger writing to stderr is returned
// together with the error, so callers can keep going.
func NewScenarioLogger(path, identity string) (*Logger, error) {
	return newFileLogger(path, identity)
}

// NewSuiteLogger opens logs/suite-<runID>.log under logsDir.
func NewSuiteLogger(logsDir, runID string) (*Logger, error) {
	return newFileLogger(filepath.Join(logsDir, fmt.Sprintf("suite-%s.log", runID)), "suite")
}

// New wraps an arbitrary writer.
func New(w io.Writer, component string) *Logger {
	return &Logger{
		component: component,
		logger:    log.New(w, "", 0),
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, "discard")
}

func newFileLogger(path, component string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		err = fmt.Errorf("failed to create log directory: %w", err)
		return newFallbackLogger(component, err), err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		err = fmt.Errorf("failed to open log file: %w", err)
		return newFallbackLogger(component, err), err
	}

	return &Logger{
		component: component,
		file:      file,
		logger:    log.New(file, "", 0),
		logPath:   path,
	}, nil
}

func newFallbackLogger(component string, err error) *Logger {
	logger := log.New(os.Stderr, fmt.Sprintf("[%s] ", component), log.LstdFlags)
	logger.Printf("WARNING: Failed to initialize file logging: %v", err)

	return &Logger{
		component: component,
		logger:    logger,
	}
}

func (l *Logger) write(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("[%s] [%s] [%s] %s", timestamp, l.component, level, fmt.Sprintf(format, v...))
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.write("DEBUG", format, v...)
}

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...interface{}) {
	l.write("INFO", format, v...)
}

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.write("WARN", format, v...)
}

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.write("ERROR", format, v...)
}

// Component returns the name stamped on every line.
func (l *Logger) Component() string {
	return l.component
}

// LogPath returns the backing file, or "" for writer and fallback loggers.
func (l *Logger) LogPath() string {
	return l.logPath
}

// Close closes the log file. Safe to call multiple times.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
