package logging

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
)

// MaxLineBytes caps a single record. Longer runs without a line break are
// split into several records.
const MaxLineBytes = 64 * 1024

// LineWriter turns a byte stream (e.g. a child process's combined output)
// into one log record per line. Both '\n' and '\r' end a line, so progress
// bars redrawn with carriage returns don't accumulate. Call Flush after the
// stream ends to emit a final unterminated line.
type LineWriter struct {
	logger *slog.Logger
	level  slog.Level
	mu     sync.Mutex
	buf    bytes.Buffer
}

// NewLineWriter creates a writer logging each line at level.
func NewLineWriter(logger *slog.Logger, level slog.Level) *LineWriter {
	return &LineWriter{logger: logger, level: level}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		i := bytes.IndexAny(w.buf.Bytes(), "\r\n")
		if i < 0 {
			break
		}
		line := w.buf.Next(i + 1)
		w.emit(line[:i])
	}
	for w.buf.Len() >= MaxLineBytes {
		w.emit(w.buf.Next(MaxLineBytes))
	}
	return len(p), nil
}

// Flush emits any buffered partial line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		w.emit(w.buf.Bytes())
		w.buf.Reset()
	}
}

func (w *LineWriter) emit(line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	w.logger.Log(context.Background(), w.level, string(line))
}
