// Package logging configures log/slog for billscan and carries the
// attribute helpers used when logging bills.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ArionMiles/billscan/pkg/api"
)

// DefaultMaxText is the number of runes of OCR text kept in a log record.
const DefaultMaxText = 120

// textKeys name attributes that may carry a whole OCR document.
var textKeys = map[string]bool{"text": true, "raw_text": true, "line": true}

// Config holds logging configuration options.
type Config struct {
	// Level is the minimum log level to output.
	Level slog.Level
	// JSON enables JSON output format.
	JSON bool
	// MaxText caps OCR text attributes; 0 disables the cap.
	MaxText int
	// Output is the writer to write logs to. Defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns a logging configuration driven by the environment.
// LOG_LEVEL accepts DEBUG, INFO, WARN, ERROR and defaults to INFO.
// LOG_FORMAT=json switches to JSON output; anything else keeps text.
// LOG_MAX_TEXT overrides DefaultMaxText.
func DefaultConfig() Config {
	level := slog.LevelInfo
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		level = parseLogLevel(logLevel)
	}

	maxText := DefaultMaxText
	if v, err := strconv.Atoi(os.Getenv("LOG_MAX_TEXT")); err == nil && v >= 0 {
		maxText = v
	}

	return Config{
		Level:   level,
		JSON:    strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"),
		MaxText: maxText,
		Output:  os.Stderr,
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the default slog logger with the given configuration.
func Setup(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.MaxText > 0 {
		opts.ReplaceAttr = truncateText(cfg.MaxText)
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

func truncateText(limit int) func([]string, slog.Attr) slog.Attr {
	return func(_ []string, a slog.Attr) slog.Attr {
		if !textKeys[a.Key] || a.Value.Kind() != slog.KindString {
			return a
		}
		s := a.Value.String()
		if utf8.RuneCountInString(s) <= limit {
			return a
		}
		runes := []rune(s)
		return slog.String(a.Key, string(runes[:limit])+"…")
	}
}

// Bill groups the extracted fields of b under a "bill" key. Unknown
// fields are left out.
func Bill(b *api.Bill) slog.Attr {
	attrs := []any{slog.String("source_ref", b.SourceRef)}
	if amount := b.AmountString(); amount != "" {
		attrs = append(attrs, slog.String("amount", amount), slog.String("strategy", b.AmountStrategy))
	}
	if date := b.DateString(); date != "" {
		attrs = append(attrs, slog.String("date", date))
	}
	if b.Provider != "" {
		attrs = append(attrs, slog.String("provider", b.Provider))
	}
	if b.Category != "" {
		attrs = append(attrs, slog.String("category", b.Category))
	}
	return slog.Group("bill", attrs...)
}
