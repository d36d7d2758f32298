package file

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/clapper/pkg/domain"
)

// StateSink implements ports.StateSink on a local file.
//
// The file is opened with O_APPEND and every outcome is written as one
// complete line in a single write, followed by fsync. Earlier lines are never
// rewritten, so a crash leaves at most a missing last line.
type StateSink struct {
	path string
	mu   sync.Mutex
	f    *os.File
}

// OpenStateSink creates the parent directory and opens (or creates) the
// state file for appending.
func OpenStateSink(path string) (*StateSink, error) {
	if path == "" {
		return nil, fmt.Errorf("state path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure state directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open state file: %w", err)
	}
	return &StateSink{path: path, f: f}, nil
}

// Path returns the location of the state file.
func (s *StateSink) Path() string {
	return s.path
}

// Append writes one state line and syncs it to disk.
func (s *StateSink) Append(ctx context.Context, outcome domain.StageOutcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := outcome.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return fmt.Errorf("state sink %s is closed", s.path)
	}

	line := domain.FormatOutcome(outcome) + "\n"
	if _, err := s.f.WriteString(line); err != nil {
		return fmt.Errorf("failed to append to state file: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("failed to fsync state file: %w", err)
	}
	return nil
}

// Outcomes re-reads the state file from disk.
func (s *StateSink) Outcomes(ctx context.Context) ([]domain.StageOutcome, error) {
	return ReadOutcomes(s.path)
}

// Close closes the file. Closing twice is a no-op.
func (s *StateSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// ReadOutcomes parses a state file. A missing file has no outcomes.
// A trailing partial line (from an interrupted write) is ignored.
func ReadOutcomes(path string) ([]domain.StageOutcome, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.StageOutcome{}, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	content := string(data)
	if i := strings.LastIndexByte(content, '\n'); i != len(content)-1 {
		content = content[:i+1]
	}

	outcomes := []domain.StageOutcome{}
	scanner := bufio.NewScanner(strings.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		o, err := domain.ParseOutcome(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		outcomes = append(outcomes, o)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan state file: %w", err)
	}
	return outcomes, nil
}
