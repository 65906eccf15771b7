package rundeck

import "strings"

// Status is the lifecycle state of an execution as reported by the server.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusAborted   Status = "aborted"
	StatusSkipped   Status = "skipped"
	StatusPending   Status = "pending"
)

// Terminal reports whether no further state change is expected. Any other
// status, including an absent one, is non-terminal.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusAborted:
		return true
	}
	return false
}

// Execution is one run of a job or ad-hoc command.
type Execution struct {
	ID     string
	Status Status

	// Attrs carries the server-supplied metadata untouched (user, dates,
	// description, job_id, ...).
	Attrs map[string]string
}

// executionFromMap builds an Execution from the "execution" transform output.
func executionFromMap(m map[string]string) *Execution {
	return &Execution{
		ID:     m["id"],
		Status: Status(m["status"]),
		Attrs:  m,
	}
}

const jobIDShape = "########-####-####-####-############"

// IsJobID reports whether a string is shaped like a server-assigned opaque
// identifier (a UUID) rather than a human job name. Only the 8-4-4-4-12
// grouping is checked, not hex-digit content.
func IsJobID(id string) bool {
	if id == "" {
		return false
	}
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteByte('#')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String() == jobIDShape
}
