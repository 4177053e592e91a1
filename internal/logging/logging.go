// Package logging adapts log/slog to the client's key/value Logger and scrubs
// credentials out of anything that gets logged.
package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// SlogLogger implements the client Logger on top of slog
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l; nil uses slog.Default()
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(msg string, keysAndValues ...interface{}) {
	s.l.Debug(msg, keysAndValues...)
}

func (s *SlogLogger) Info(msg string, keysAndValues ...interface{}) {
	s.l.Info(msg, keysAndValues...)
}

func (s *SlogLogger) Warn(msg string, keysAndValues ...interface{}) {
	s.l.Warn(msg, keysAndValues...)
}

func (s *SlogLogger) Error(msg string, keysAndValues ...interface{}) {
	s.l.Error(msg, keysAndValues...)
}

// Enabled reports whether the wrapped logger emits at level
func (s *SlogLogger) Enabled(level slog.Level) bool {
	return s.l.Enabled(context.Background(), level)
}

// ParseLevel maps a config string to a slog level, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var (
	rePasswordJSON = regexp.MustCompile(`(?i)("(?:password|newPassword)"\s*:\s*")([^"]*)(")`)
	reTokenJSON    = regexp.MustCompile(`(?i)("(?:accessToken|refreshToken|token)"\s*:\s*")([^"]*)(")`)
	reBearer       = regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9._~+/=-]+)`)
	rePasswordKV   = regexp.MustCompile(`(?i)(password=)([^\s&;]+)`)
)

// Mask replaces credentials in s with "***"
func Mask(s string) string {
	out := s
	out = rePasswordJSON.ReplaceAllString(out, "${1}***${3}")
	out = reTokenJSON.ReplaceAllString(out, "${1}***${3}")
	out = reBearer.ReplaceAllString(out, "${1}***")
	out = rePasswordKV.ReplaceAllString(out, "${1}***")
	return out
}
