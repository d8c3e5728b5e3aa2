package ledger

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a recorded transfer job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status reflects a finished job.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Operation identifies the kind of datamover job a ledger row records.
type Operation string

const (
	OpSync   Operation = "sync"
	OpCopy   Operation = "copy"
	OpMove   Operation = "move"
	OpRemove Operation = "remove"
)

var operationSet = map[Operation]struct{}{
	OpSync:   {},
	OpCopy:   {},
	OpMove:   {},
	OpRemove: {},
}

// ParseOperation converts a string into a known Operation.
func ParseOperation(value string) (Operation, bool) {
	normalized := Operation(strings.ToLower(strings.TrimSpace(value)))
	_, ok := operationSet[normalized]
	return normalized, ok
}

// Job is the transfer job entity persisted in SQLite: what was submitted to
// the datamover, where from, where to, and how it ended.
type Job struct {
	ID           int64
	UUID         string
	Operation    Operation
	Source       string
	Destination  string
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary aggregates job counts per lifecycle state.
type Summary struct {
	Total     int
	Pending   int
	Running   int
	Completed int
	Failed    int
}
