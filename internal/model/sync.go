package model

import "time"

type SyncType string

const (
	SyncTypeFull        SyncType = "full"
	SyncTypeIncremental SyncType = "incremental"
)

// Error kinds recorded on a RepoOutcome.
const (
	ErrorKindQuotaExceeded = "quota_exceeded"
	ErrorKindUpstream      = "upstream"
	ErrorKindPersistence   = "persistence"
	ErrorKindLockConflict  = "lock_conflict"
	ErrorKindInternal      = "internal"
)

// RepoOutcome is the result of syncing one repository within a run.
type RepoOutcome struct {
	Type              SyncType   `json:"type,omitempty"`
	Since             *time.Time `json:"since,omitempty"`
	Success           bool       `json:"success"`
	Error             string     `json:"error,omitempty"`
	ErrorKind         string     `json:"error_kind,omitempty"`
	RetryAfterSeconds int        `json:"retry_after_seconds,omitempty"`
	DurationMS        int64      `json:"duration_ms"`
	IssuesUpdated     int        `json:"issues_updated"`
	PRsUpdated        int        `json:"prs_updated"`
	CommitsInserted   int        `json:"commits_inserted"`
	ReadmeUpdated     bool       `json:"readme_updated"`
	EntityErrors      []string   `json:"entity_errors,omitempty"`
}

// SyncRun is the append-only audit record of one orchestrator invocation.
type SyncRun struct {
	ID           string                  `json:"id"`
	Type         SyncType                `json:"type"`
	Since        *time.Time              `json:"since,omitempty"`
	StartedAt    time.Time               `json:"started_at"`
	FinishedAt   time.Time               `json:"finished_at"`
	Repositories map[string]*RepoOutcome `json:"repositories"`
	SuccessCount int                     `json:"success_count"`
	TotalCount   int                     `json:"total_count"`
}

// RunProgress describes the run currently holding the class lock.
type RunProgress struct {
	RunID     string     `json:"run_id"`
	Type      SyncType   `json:"type"`
	Since     *time.Time `json:"since,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	Total     int        `json:"repositories_total"`
	Done      int        `json:"repositories_done"`
}

// LockHolder describes who owns a sync lock.
type LockHolder struct {
	Name       string    `json:"name"`
	RunID      string    `json:"run_id,omitempty"`
	Type       SyncType  `json:"type,omitempty"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// SyncStatus is the point-in-time view reported to the dashboard.
type SyncStatus struct {
	IsSyncing bool           `json:"is_syncing"`
	Locks     []LockHolder   `json:"locks"`
	Current   *RunProgress   `json:"current,omitempty"`
	LastRun   *SyncRun       `json:"last_run,omitempty"`
	RateLimit RateLimitState `json:"rate_limit"`
}
