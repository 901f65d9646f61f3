package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger levels
const (
	DEBUG = iota
	INFO
	WARN
	ERROR
	FATAL
)

var (
	// Global logger instance
	globalLogger *Logger
	once         sync.Once

	// Default log settings
	defaultLogDir  = ".shopassist/logs"
	defaultLogFile = "shopassist.log"
	maxLogSize     = int64(10 * 1024 * 1024) // 10MB
	maxLogAge      = 7 * 24 * time.Hour      // 7 days
)

// Logger writes leveled messages to a rotating file under the project directory
type Logger struct {
	mu     sync.Mutex
	level  zap.AtomicLevel
	sugar  *zap.SugaredLogger
	output *rotatingFile
}

// Initialize sets up the global logger
func Initialize(projectDir string) error {
	var initErr error
	once.Do(func() {
		globalLogger, initErr = New(projectDir)
	})
	return initErr
}

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	if globalLogger == nil {
		if err := Initialize("."); err != nil || globalLogger == nil {
			// Logging must never take the process down
			globalLogger = NewWithWriter(io.Discard)
		}
	}
	return globalLogger
}

// New creates a logger writing to <projectDir>/.shopassist/logs/shopassist.log
func New(projectDir string) (*Logger, error) {
	logDir := filepath.Join(projectDir, defaultLogDir)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	out := &rotatingFile{
		path:    filepath.Join(logDir, defaultLogFile),
		maxSize: maxLogSize,
	}
	if err := out.open(); err != nil {
		return nil, err
	}

	l := newLogger(zapcore.AddSync(out))
	l.output = out
	return l, nil
}

// NewWithWriter creates a logger that writes to w without rotation
func NewWithWriter(w io.Writer) *Logger {
	return newLogger(zapcore.AddSync(w))
}

func newLogger(ws zapcore.WriteSyncer) *Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05.000000")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, level)
	base := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(2))

	return &Logger{
		level: level,
		sugar: base.Sugar(),
	}
}

// write writes a log message
func (l *Logger) write(level int, format string, v ...interface{}) {
	switch level {
	case DEBUG:
		l.sugar.Debugf(format, v...)
	case INFO:
		l.sugar.Infof(format, v...)
	case WARN:
		l.sugar.Warnf(format, v...)
	case ERROR:
		l.sugar.Errorf(format, v...)
	default:
		// FATAL is written at error level so zap does not exit on our behalf
		l.sugar.Errorf("[FATAL] "+format, v...)
	}
}

// Public logging methods

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.write(DEBUG, format, v...)
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.write(INFO, format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.write(WARN, format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.write(ERROR, format, v...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.write(FATAL, format, v...)
	_ = l.sugar.Sync()
	os.Exit(1)
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch level {
	case DEBUG:
		l.level.SetLevel(zapcore.DebugLevel)
	case INFO:
		l.level.SetLevel(zapcore.InfoLevel)
	case WARN:
		l.level.SetLevel(zapcore.WarnLevel)
	default:
		l.level.SetLevel(zapcore.ErrorLevel)
	}
}

// Close flushes and closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_ = l.sugar.Sync()
	if l.output != nil {
		return l.output.Close()
	}
	return nil
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	if l.output == nil {
		return ""
	}
	return l.output.path
}

// rotatingFile is the zap sink; it renames the file once maxSize is reached
type rotatingFile struct {
	mu          sync.Mutex
	path        string
	file        *os.File
	maxSize     int64
	currentSize int64
}

// open opens or creates the log file
func (r *rotatingFile) open() error {
	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if info, err := file.Stat(); err == nil {
		r.currentSize = info.Size()
	}

	r.file = file
	return nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return 0, os.ErrClosed
	}

	if err := r.rotateIfNeeded(); err != nil {
		return 0, err
	}

	n, err := r.file.Write(p)
	r.currentSize += int64(n)
	return n, err
}

func (r *rotatingFile) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	return r.file.Sync()
}

func (r *rotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// rotateIfNeeded checks if log rotation is needed and rotates if necessary
func (r *rotatingFile) rotateIfNeeded() error {
	if r.currentSize < r.maxSize {
		return nil
	}

	r.file.Close()

	timestamp := time.Now().Format("20060102-150405.000")
	rotatedPath := filepath.Join(filepath.Dir(r.path), fmt.Sprintf("shopassist-%s.log", timestamp))

	if err := os.Rename(r.path, rotatedPath); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	if err := r.open(); err != nil {
		return err
	}

	go cleanOldLogs(filepath.Dir(r.path))

	return nil
}

// cleanOldLogs removes rotated log files older than maxLogAge
func cleanOldLogs(logDir string) {
	files, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-maxLogAge)
	for _, file := range files {
		if file.IsDir() || file.Name() == defaultLogFile {
			continue
		}
		if filepath.Ext(file.Name()) != ".log" {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(logDir, file.Name()))
		}
	}
}

// Package-level convenience functions

// Debug logs a debug message using the global logger
func Debug(format string, v ...interface{}) {
	GetLogger().Debug(format, v...)
}

// Info logs an info message using the global logger
func Info(format string, v ...interface{}) {
	GetLogger().Info(format, v...)
}

// Warn logs a warning message using the global logger
func Warn(format string, v ...interface{}) {
	GetLogger().Warn(format, v...)
}

// Error logs an error message using the global logger
func Error(format string, v ...interface{}) {
	GetLogger().Error(format, v...)
}

// Fatal logs a fatal message using the global logger and exits
func Fatal(format string, v ...interface{}) {
	GetLogger().Fatal(format, v...)
}

// Writer returns an io.Writer for the logger (useful for redirecting standard log)
func Writer() io.Writer {
	return &logWriter{logger: GetLogger()}
}

// logWriter implements io.Writer for the logger
type logWriter struct {
	logger *Logger
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.logger.Info("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// RedirectStandardLog redirects the standard log package to use our logger
func RedirectStandardLog() {
	log.SetOutput(Writer())
	log.SetFlags(0)
}
