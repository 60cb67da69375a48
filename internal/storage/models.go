package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Run statuses.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run is one recorded tool invocation.
type Run struct {
	ID         string
	CreatedAt  time.Time
	Tool       string
	ArgsJSON   string // JSON object stored as text
	ResultJSON string // empty for failed runs
	Status     string // "completed" or "failed"
	Error      string
	DurationMs int64
}
