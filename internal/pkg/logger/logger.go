// Package logger provides the process-wide structured logger. Entries are
// JSON encoded by zap; values under email-like keys and any embedded email
// addresses are redacted unless redaction is switched off.
package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu        sync.RWMutex
	base      = mustBuild(zapcore.InfoLevel)
	sugar     = base.Sugar()
	redactPII = true
)

// callerSkip reports the caller of Debug/Info/Warn/Error rather than the
// wrapper itself.
var callerSkip = zap.AddCallerSkip(1)

func mustBuild(level zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	l, err := cfg.Build(callerSkip)
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// Init rebuilds the default logger at the given level ("debug", "info",
// "warn", "error") and sets PII redaction.
func Init(level string, redact bool) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("parsing log level %q: %w", level, err)
	}
	l := mustBuild(lvl)
	mu.Lock()
	base, sugar, redactPII = l, l.Sugar(), redact
	mu.Unlock()
	return nil
}

// Replace swaps the underlying zap logger and returns a func restoring the
// previous one. Intended for tests.
func Replace(l *zap.Logger) func() {
	mu.Lock()
	prevBase, prevSugar := base, sugar
	base, sugar = l, l.Sugar()
	mu.Unlock()
	return func() {
		mu.Lock()
		base, sugar = prevBase, prevSugar
		mu.Unlock()
	}
}

// SetRedactPII enables or disables PII redaction.
func SetRedactPII(r bool) {
	mu.Lock()
	redactPII = r
	mu.Unlock()
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	l := base
	mu.RUnlock()
	_ = l.Sync()
}

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { current(fields).Debugw(msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { current(fields).Infow(msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { current(fields).Warnw(msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { current(fields).Errorw(msg, fields...) }

// current returns the sugared logger and redacts fields in place.
func current(fields []interface{}) *zap.SugaredLogger {
	mu.RLock()
	s, redact := sugar, redactPII
	mu.RUnlock()
	if redact {
		redactFields(fields)
	}
	return s
}
