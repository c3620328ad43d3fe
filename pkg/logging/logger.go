// Package logging provides structured debug logging for Lume components.
// All logs are written to a session-specific file in ~/.lume/logs/ so that
// memory subsystem failures stay invisible to the conversation flow while
// remaining diagnosable.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// Global session ID for the current execution.
	sessionID     string
	sessionIDOnce sync.Once

	logDir   string
	initOnce sync.Once
	initErr  error
)

// Logger writes component-tagged log entries to the shared session file.
type Logger struct {
	sessionID string
	component string
	file      *os.File
	logger    *log.Logger
	mu        sync.Mutex
	closeOnce sync.Once
}

func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

func initLogDirectory() error {
	initOnce.Do(func() {
		home, err := os.UserHomeDir()
		if err != nil {
			initErr = fmt.Errorf("logging: resolve home directory: %w", err)
			return
		}
		logDir = filepath.Join(home, ".lume", "logs")
		if err := os.MkdirAll(logDir, 0o750); err != nil {
			initErr = fmt.Errorf("logging: create log directory: %w", err)
		}
	})
	return initErr
}

// NewLogger creates a logger for a specific component, writing to
// ~/.lume/logs/<session-id>-lume.log. If the file cannot be opened a
// stderr fallback logger is returned along with the error, so callers can
// keep logging either way.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component), err
	}

	path := filepath.Join(logDir, fmt.Sprintf("%s-lume.log", getSessionID()))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return newFallbackLogger(component), fmt.Errorf("logging: open log file: %w", err)
	}

	return &Logger{
		sessionID: getSessionID(),
		component: component,
		file:      file,
		logger:    log.New(file, "", 0), // timestamps formatted below
	}, nil
}

func newFallbackLogger(component string) *Logger {
	return &Logger{
		sessionID: getSessionID(),
		component: component,
		logger:    log.New(os.Stderr, fmt.Sprintf("[%s] ", component), log.LstdFlags),
	}
}

func (l *Logger) write(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	l.logger.Printf("[%s] [%s] [%s] %s", timestamp, l.component, level, fmt.Sprintf(format, v...))
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, v ...interface{}) { l.write("DEBUG", format, v...) }

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...interface{}) { l.write("INFO", format, v...) }

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, v ...interface{}) { l.write("WARN", format, v...) }

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, v ...interface{}) { l.write("ERROR", format, v...) }

// SessionID returns the current session ID.
func (l *Logger) SessionID() string { return l.sessionID }

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
