package log

import (
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"aihttpanalyzer/internal/core"
)

// LogLevel defines the severity level for log messages.
type LogLevel int

// Log level constants.
const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelPrefixes = map[LogLevel]string{
	DEBUG: "[DEBUG] ",
	INFO:  "[INFO] ",
	WARN:  "[WARN] ",
	ERROR: "[ERROR] ",
	FATAL: "[FATAL] ",
}

// AppLogger is the application logger implementation.
type AppLogger struct {
	logger     *log.Logger
	minLevel   LogLevel
	fileHandle *os.File
	mu         sync.Mutex
}

// NewAppLoggerWithConfig creates a logger instance with configuration.
func NewAppLoggerWithConfig(output io.Writer, debugMode bool) *AppLogger {
	minLevel := INFO
	if debugMode {
		minLevel = DEBUG
	}
	return &AppLogger{
		logger:   log.New(output, "", log.LstdFlags),
		minLevel: minLevel,
	}
}

func (l *AppLogger) logf(level LogLevel, format string, args ...any) {
	if l == nil || level < l.minLevel {
		return
	}
	l.logger.Printf(levelPrefixes[level]+format, args...)
}

// Debug logs a message at DEBUG level.
func (l *AppLogger) Debug(format string, args ...any) {
	l.logf(DEBUG, format, args...)
}

// Info logs a message at INFO level.
func (l *AppLogger) Info(format string, args ...any) {
	l.logf(INFO, format, args...)
}

// Warn logs a message at WARN level.
func (l *AppLogger) Warn(format string, args ...any) {
	l.logf(WARN, format, args...)
}

// Error logs a message at ERROR level.
func (l *AppLogger) Error(format string, args ...any) {
	l.logf(ERROR, format, args...)
}

// Fatal logs a message at FATAL level and terminates the process.
func (l *AppLogger) Fatal(format string, args ...any) {
	if l != nil {
		l.logger.Fatalf(levelPrefixes[FATAL]+format, args...)
	} else {
		log.Fatalf(levelPrefixes[FATAL]+format, args...)
	}
}

// Close safely closes log file handle.
func (l *AppLogger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileHandle != nil {
		err := l.fileHandle.Close()
		l.fileHandle = nil
		return err
	}
	return nil
}

// containsPathTraversal checks if path contains path traversal characters.
func containsPathTraversal(path string) bool {
	for _, pattern := range []string{"..", "./", ".\\"} {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

// createFileOutput opens LOG_FILE for appending, falling back to stderr on failure.
func createFileOutput() (io.Writer, *os.File) {
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		return os.Stderr, nil
	}

	if len(logFile) > core.MaxDebugFilePathLength {
		log.Printf("[WARN] LOG_FILE path too long, falling back to stderr")
		return os.Stderr, nil
	}

	if containsPathTraversal(logFile) {
		log.Printf("[WARN] LOG_FILE contains path traversal characters, falling back to stderr")
		return os.Stderr, nil
	}

	//nolint:gosec // G304: logFile from env var, validated by containsPathTraversal
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, core.FilePermissionReadWrite)
	if err != nil {
		log.Printf("[WARN] Failed to open LOG_FILE '%s': %v, falling back to stderr", logFile, err)
		return os.Stderr, nil
	}

	return file, file
}

// IsDebug returns whether the app is running in debug mode.
func IsDebug() bool {
	return os.Getenv("GIN_MODE") == "debug" || strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug")
}

// CreateLogger creates a logger instance (for dependency injection).
func CreateLogger() core.Logger {
	output, fileHandle := createFileOutput()

	logger := NewAppLoggerWithConfig(output, IsDebug())
	logger.fileHandle = fileHandle
	return logger
}
