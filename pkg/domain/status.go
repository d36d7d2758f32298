package domain

import "fmt"

// Status is the disposition of a single stage within a run.
type Status int

const (
	// StatusUnknown is the zero value; no recorded outcome carries it.
	StatusUnknown Status = iota
	// StatusSkipped means the stage was skipped by flag, preflight or missing metadata.
	StatusSkipped
	// StatusDryRun means the stage was only simulated.
	StatusDryRun
	// StatusSuccess means the external task exited with code 0.
	StatusSuccess
	// StatusFailed means the external task exited nonzero or could not be run.
	StatusFailed
	// StatusTimeout means the external task exceeded its stage timeout and was killed.
	StatusTimeout
)

var statusNames = map[Status]string{
	StatusSkipped: "SKIPPED",
	StatusDryRun:  "DRY_RUN",
	StatusSuccess: "SUCCESS",
	StatusFailed:  "FAILED",
	StatusTimeout: "TIMEOUT",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus converts the wire form (e.g. "DRY_RUN") back into a Status.
func ParseStatus(raw string) (Status, error) {
	for status, name := range statusNames {
		if name == raw {
			return status, nil
		}
	}
	return StatusUnknown, fmt.Errorf("unknown stage status %q", raw)
}

// Valid reports whether s is one of the recordable statuses.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsFailure reports whether the status stops a run when the stage is critical.
func (s Status) IsFailure() bool {
	return s == StatusFailed || s == StatusTimeout
}

// Attempted reports whether the external task was actually invoked.
func (s Status) Attempted() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusTimeout:
		return true
	default:
		return false
	}
}
