package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OutcomeSeparator separates the fields of a state line.
const OutcomeSeparator = "|"

// StageOutcome is the record of how one stage was disposed of in a run.
// Once appended to a state sink it is never rewritten.
type StageOutcome struct {
	Stage     StageName
	Status    Status
	Duration  time.Duration
	Timestamp time.Time

	// ExitCode is the external task's exit code. It is not part of the state line.
	ExitCode int
}

// DurationSeconds returns the whole number of seconds recorded in the state line.
func (o StageOutcome) DurationSeconds() int64 {
	return int64(o.Duration / time.Second)
}

// Validate checks that the outcome can be recorded.
func (o StageOutcome) Validate() error {
	if !o.Stage.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStage, o.Stage)
	}
	if !o.Status.Valid() {
		return fmt.Errorf("stage %s has no status", o.Stage)
	}
	return nil
}

// FormatOutcome renders the state line `<stage>|<status>|<seconds>|<RFC3339>`.
func FormatOutcome(o StageOutcome) string {
	return strings.Join([]string{
		string(o.Stage),
		o.Status.String(),
		strconv.FormatInt(o.DurationSeconds(), 10),
		o.Timestamp.UTC().Format(time.RFC3339),
	}, OutcomeSeparator)
}

// ParseOutcome is the inverse of FormatOutcome. Sub-second durations and the
// exit code are not recoverable from a state line.
func ParseOutcome(line string) (StageOutcome, error) {
	fields := strings.Split(strings.TrimSpace(line), OutcomeSeparator)
	if len(fields) != 4 {
		return StageOutcome{}, fmt.Errorf("malformed state line %q: want 4 fields, got %d", line, len(fields))
	}

	stage, err := ParseStageName(fields[0])
	if err != nil {
		return StageOutcome{}, err
	}
	status, err := ParseStatus(fields[1])
	if err != nil {
		return StageOutcome{}, err
	}
	seconds, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil || seconds < 0 {
		return StageOutcome{}, fmt.Errorf("malformed duration %q in state line", fields[2])
	}
	ts, err := time.Parse(time.RFC3339, fields[3])
	if err != nil {
		return StageOutcome{}, fmt.Errorf("malformed timestamp in state line: %w", err)
	}

	return StageOutcome{
		Stage:     stage,
		Status:    status,
		Duration:  time.Duration(seconds) * time.Second,
		Timestamp: ts,
	}, nil
}
