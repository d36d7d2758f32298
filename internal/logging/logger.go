package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LevelSuccess marks a stage that completed successfully. It sits between
// INFO and WARN so it is kept whenever INFO is.
const LevelSuccess = slog.Level(2)

// LevelName returns the run log name of a level.
func LevelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < LevelSuccess:
		return "INFO"
	case l < slog.LevelWarn:
		return "SUCCESS"
	case l < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

// New creates a configured application logger.
// It writes to Stderr (to separate from Stdout summary output).
// It standardizes common keys (e.g., "error" -> "err").
func New(level slog.Level) *slog.Logger {
	return slog.New(NewConsoleHandler(os.Stderr, level))
}

// NewConsoleHandler is the text handler used for the terminal.
func NewConsoleHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Standardize 'error' key to 'err'
			if a.Key == "error" {
				a.Key = "err"
			}
			if a.Key == slog.LevelKey && len(groups) == 0 {
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(LevelName(lvl))
				}
			}
			return a
		},
	})
}

// NewRunLogger returns a logger that writes to the console at consoleLevel
// and to the run log at INFO and above.
func NewRunLogger(console io.Writer, consoleLevel slog.Level, runLog io.Writer) *slog.Logger {
	return slog.New(Fanout(
		NewConsoleHandler(console, consoleLevel),
		NewRunLogHandler(runLog, slog.LevelInfo),
	))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Success logs at LevelSuccess.
func Success(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	logger.Log(ctx, LevelSuccess, msg, args...)
}
