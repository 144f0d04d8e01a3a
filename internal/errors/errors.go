// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrLockHeld is reported when a sync lock is owned by another run.
var ErrLockHeld = errors.New("sync already in progress")

// ErrInvalidRepoFormat is returned when a repository string in the config is not in 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// QuotaExceededError is returned when the upstream call budget is exhausted.
// No network call was made when it is produced by the local budget check.
type QuotaExceededError struct {
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("upstream rate limit budget exhausted (remaining %d), retry after %ds", e.Remaining, e.RetryAfterSeconds())
}

// RetryAfterSeconds rounds the retry delay up to whole seconds.
func (e *QuotaExceededError) RetryAfterSeconds() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

// UpstreamError wraps a non-2xx response or a transport failure from the upstream API.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream request %s failed: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("upstream request %s failed with status %d: %v", e.Endpoint, e.StatusCode, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed write of a single entity.
type PersistenceError struct {
	Entity string
	Key    string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s %s: %v", e.Entity, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
