// internal/syncer/syncer.go
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	custom_errors "github-dashboard-sync/internal/errors"
	"github-dashboard-sync/internal/kv"
	"github-dashboard-sync/internal/lock"
	"github-dashboard-sync/internal/model"
	"github-dashboard-sync/internal/ratelimit"
	"github-dashboard-sync/internal/telemetry"
)

const (
	// Upper bound of repositories synced in parallel
	maxConcurrency = 5

	currentKey = "sync_status:current"
	historyKey = "sync_history"

	// Overlap applied to a repository's covered-until time when the scheduler picks its since.
	scheduleOverlap = 5 * time.Minute

	// Per pull request mergeable lookups stop once the remaining budget drops to this.
	mergeableReserve = 100

	OnStartFull        = "full"
	OnStartIncremental = "incremental"
	OnStartNone        = "none"
)

// Upstream is the subset of the GitHub client the orchestrator needs.
type Upstream interface {
	GetRepository(ctx context.Context, owner, name string) (*model.Repository, error)
	ListIssues(ctx context.Context, owner, name string, since time.Time, visit func(model.Issue) bool) error
	ListPullRequests(ctx context.Context, owner, name string, visit func(model.PullRequest) bool) error
	GetPullRequestMergeable(ctx context.Context, owner, name string, number int) (*bool, error)
	ListCommits(ctx context.Context, owner, name string, since time.Time, limit int) ([]model.Commit, error)
	GetReadme(ctx context.Context, owner, name string) (*model.Readme, error)
}

// Gateway persists normalized entities.
type Gateway interface {
	UpsertRepository(ctx context.Context, repo *model.Repository) (int64, error)
	UpsertIssue(ctx context.Context, repoID int64, issue model.Issue) error
	UpsertPullRequest(ctx context.Context, repoID int64, pr model.PullRequest) error
	InsertCommit(ctx context.Context, repoID int64, c model.Commit) (bool, error)
	UpsertReadme(ctx context.Context, repoID int64, r *model.Readme) error
	AppendSyncRun(ctx context.Context, run *model.SyncRun) error
	PruneSyncRuns(ctx context.Context, before time.Time) (int64, error)
	ListSyncRuns(ctx context.Context, limit int) ([]model.SyncRun, error)
}

// RepoIdentifier holds the owner and name of a repository.
type RepoIdentifier struct {
	Owner string
	Name  string
}

func (r RepoIdentifier) FullName() string {
	return r.Owner + "/" + r.Name
}

// repoPlan is how one repository is refreshed within a run.
type repoPlan struct {
	typ   model.SyncType
	since *time.Time
}

type Config struct {
	Repos              []string
	Concurrency        int
	LockTTL            time.Duration
	Interval           time.Duration
	OnStart            string
	Lookback           time.Duration
	IncrementalCommits bool
	CommitLimit        int
	HistoryLimit       int
	RunRetention       time.Duration
}

type ResultStatus string

const (
	StatusCompleted ResultStatus = "completed"
	StatusConflict  ResultStatus = "conflict"
)

// Result is what a sync invocation produced. Run is set when the run
// completed; InProgress is set on conflict.
type Result struct {
	Status     ResultStatus      `json:"status"`
	Run        *model.SyncRun    `json:"run,omitempty"`
	InProgress *model.SyncStatus `json:"in_progress,omitempty"`
}

// Syncer orchestrates the fetching and storing of data.
type Syncer struct {
	upstream Upstream
	gateway  Gateway
	kv       kv.Store
	locker   *lock.Locker
	limiter  *ratelimit.Limiter
	metrics  *telemetry.SyncMetrics
	logger   *slog.Logger
	repos    []RepoIdentifier
	cfg      Config
	now      func() time.Time
}

type Option func(*Syncer)

// WithLimiter exposes the limiter state through Status.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(s *Syncer) { s.limiter = l }
}

func WithMetrics(m *telemetry.SyncMetrics) Option {
	return func(s *Syncer) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(upstream Upstream, gateway Gateway, store kv.Store, logger *slog.Logger, cfg Config, opts ...Option) (*Syncer, error) {
	parsedRepos, err := parseRepoIdentifiers(cfg.Repos)
	if err != nil {
		return nil, err
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Concurrency > maxConcurrency {
		cfg.Concurrency = maxConcurrency
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = lock.DefaultTTL
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}

	s := &Syncer{
		upstream: upstream,
		gateway:  gateway,
		kv:       store,
		locker:   lock.NewLocker(store, logger),
		logger:   logger,
		repos:    parsedRepos,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RunFull refreshes every tracked repository without a since filter.
func (s *Syncer) RunFull(ctx context.Context) (Result, error) {
	return s.run(ctx, model.SyncTypeFull, nil, func(RepoIdentifier) repoPlan {
		return repoPlan{typ: model.SyncTypeFull}
	})
}

// RunIncremental refreshes entities updated after since. A zero since falls
// back to the configured lookback window.
func (s *Syncer) RunIncremental(ctx context.Context, since time.Time) (Result, error) {
	if since.IsZero() {
		since = s.now().Add(-s.cfg.Lookback)
	}
	since = since.UTC()
	return s.run(ctx, model.SyncTypeIncremental, &since, func(RepoIdentifier) repoPlan {
		return repoPlan{typ: model.SyncTypeIncremental, since: &since}
	})
}

// RunScheduled is the incremental sync the scheduler runs. Each repository
// resumes from the time its stored state was last known complete, so a
// repository that failed earlier gets its missed window back. Repositories
// with no such time are refreshed in full.
func (s *Syncer) RunScheduled(ctx context.Context) (Result, error) {
	covered := s.coverage(ctx)
	plans := make(map[string]repoPlan, len(s.repos))
	var earliest *time.Time
	for _, id := range s.repos {
		until, ok := covered[id.FullName()]
		if !ok {
			plans[id.FullName()] = repoPlan{typ: model.SyncTypeFull}
			continue
		}
		since := until.Add(-scheduleOverlap).UTC()
		plans[id.FullName()] = repoPlan{typ: model.SyncTypeIncremental, since: &since}
		if earliest == nil || since.Before(*earliest) {
			earliest = &since
		}
	}
	return s.run(ctx, model.SyncTypeIncremental, earliest, func(id RepoIdentifier) repoPlan {
		return plans[id.FullName()]
	})
}

// coverage maps each repository to the start of the latest run after which
// its stored state is complete. A success extends coverage only when it was
// a full refresh or its since did not reach past the coverage already held.
func (s *Syncer) coverage(ctx context.Context) map[string]time.Time {
	covered := make(map[string]time.Time, len(s.repos))
	runs, err := s.History(ctx, s.cfg.HistoryLimit)
	if err != nil {
		s.logger.Warn("Failed to read sync history, scheduling full refreshes", "error", err)
		return covered
	}
	for i := len(runs) - 1; i >= 0; i-- {
		run := runs[i]
		for name, o := range run.Repositories {
			if o == nil || !o.Success {
				continue
			}
			typ, since := o.Type, o.Since
			if typ == "" {
				typ, since = run.Type, run.Since
			}
			prev, ok := covered[name]
			if typ == model.SyncTypeFull || since == nil || (ok && !since.After(prev)) {
				covered[name] = run.StartedAt
			}
		}
	}
	return covered
}

func (s *Syncer) run(ctx context.Context, typ model.SyncType, since *time.Time, planFor func(RepoIdentifier) repoPlan) (Result, error) {
	runID := uuid.NewString()
	tok, acquired, err := s.locker.Acquire(ctx, lock.ClassAll, s.cfg.LockTTL, lock.Meta{RunID: runID, Type: typ})
	if err != nil {
		return Result{}, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !acquired {
		s.logger.Info("Sync already in progress", "type", typ)
		status, err := s.Status(ctx)
		if err != nil {
			s.logger.Warn("Failed to read in-progress sync status", "error", err)
		}
		return Result{Status: StatusConflict, InProgress: &status}, nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), tok); err != nil {
			s.logger.Error("Failed to release sync lock", "error", err)
		}
	}()

	run := &model.SyncRun{
		ID:           runID,
		Type:         typ,
		Since:        since,
		StartedAt:    s.now().UTC(),
		Repositories: make(map[string]*model.RepoOutcome, len(s.repos)),
		TotalCount:   len(s.repos),
	}
	progress := model.RunProgress{RunID: runID, Type: typ, Since: since, StartedAt: run.StartedAt, Total: len(s.repos)}
	s.saveProgress(ctx, progress)

	s.logger.Info("Starting new sync cycle", "run_id", runID, "type", typ, "repositories", len(s.repos), "concurrency", s.cfg.Concurrency)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, repoID := range s.repos {
		g.Go(func() error {
			plan := planFor(repoID)
			var outcome *model.RepoOutcome
			if err := gctx.Err(); err != nil {
				outcome = &model.RepoOutcome{Type: plan.typ, Since: plan.since}
				fail(outcome, err)
			} else {
				outcome = s.syncRepo(gctx, repoID, plan, runID)
			}
			s.metrics.RecordRepoOutcome(ctx, repoID.FullName(), string(typ), outcome.Success, outcome.ErrorKind)

			mu.Lock()
			defer mu.Unlock()
			run.Repositories[repoID.FullName()] = outcome
			progress.Done++
			s.saveProgress(ctx, progress)
			return nil
		})
	}
	_ = g.Wait()

	run.FinishedAt = s.now().UTC()
	for _, o := range run.Repositories {
		if o.Success {
			run.SuccessCount++
		}
	}
	s.metrics.RecordRun(ctx, string(typ), run.FinishedAt.Sub(run.StartedAt), run.SuccessCount, run.TotalCount)

	s.record(context.WithoutCancel(ctx), run)
	s.logger.Info("Sync cycle finished", "run_id", runID, "type", typ, "succeeded", run.SuccessCount, "total", run.TotalCount)
	return Result{Status: StatusCompleted, Run: run}, nil
}

// syncRepo handles the synchronization of a single repository. Fetch errors
// stop the repository; persistence errors are recorded per entity and the
// remaining entities are still written.
func (s *Syncer) syncRepo(ctx context.Context, id RepoIdentifier, plan repoPlan, runID string) *model.RepoOutcome {
	logger := s.logger.With("owner", id.Owner, "repo", id.Name)
	start := s.now()
	outcome := &model.RepoOutcome{Type: plan.typ, Since: plan.since}
	defer func() {
		outcome.DurationMS = s.now().Sub(start).Milliseconds()
	}()

	tok, acquired, err := s.locker.Acquire(ctx, lock.RepoLockName(id.FullName()), s.cfg.LockTTL, lock.Meta{RunID: runID, Type: plan.typ})
	if err != nil {
		fail(outcome, err)
		return outcome
	}
	if !acquired {
		outcome.Error = custom_errors.ErrLockHeld.Error()
		outcome.ErrorKind = model.ErrorKindLockConflict
		logger.Warn("Repository is being synced by another worker")
		return outcome
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), tok); err != nil {
			logger.Error("Failed to release repository lock", "error", err)
		}
	}()

	logger.Info("Syncing repository", "type", plan.typ, "since", plan.since)
	if err := s.syncEntities(ctx, logger, id, plan, outcome); err != nil {
		fail(outcome, err)
		logger.Error("Failed to sync repository", "error", err, "error_kind", outcome.ErrorKind)
		return outcome
	}

	if len(outcome.EntityErrors) > 0 {
		outcome.ErrorKind = model.ErrorKindPersistence
		outcome.Error = fmt.Sprintf("%d entities failed to persist", len(outcome.EntityErrors))
		logger.Warn("Repository synced with persistence errors", "failed", len(outcome.EntityErrors))
		return outcome
	}
	outcome.Success = true
	logger.Info("Repository synced",
		"issues_updated", outcome.IssuesUpdated,
		"prs_updated", outcome.PRsUpdated,
		"commits_inserted", outcome.CommitsInserted,
		"readme_updated", outcome.ReadmeUpdated,
	)
	return outcome
}

func (s *Syncer) syncEntities(ctx context.Context, logger *slog.Logger, id RepoIdentifier, plan repoPlan, outcome *model.RepoOutcome) error {
	repo, err := s.upstream.GetRepository(ctx, id.Owner, id.Name)
	if err != nil {
		return err
	}
	if repo.FullName == "" {
		repo.FullName = id.FullName()
	}
	repoID, err := s.gateway.UpsertRepository(ctx, repo)
	if err != nil {
		return err
	}
	logger = logger.With("repo_id", repoID)

	var cutoff time.Time
	if plan.since != nil {
		cutoff = *plan.since
	}
	incremental := plan.typ == model.SyncTypeIncremental

	err = s.upstream.ListIssues(ctx, id.Owner, id.Name, cutoff, func(issue model.Issue) bool {
		if incremental && issue.UpdatedAt.Before(cutoff) {
			return false
		}
		if err := s.gateway.UpsertIssue(ctx, repoID, issue); err != nil {
			outcome.EntityErrors = append(outcome.EntityErrors, err.Error())
			return true
		}
		outcome.IssuesUpdated++
		return true
	})
	if err != nil {
		return err
	}

	err = s.upstream.ListPullRequests(ctx, id.Owner, id.Name, func(pr model.PullRequest) bool {
		if incremental && pr.UpdatedAt.Before(cutoff) {
			return false
		}
		if !incremental && pr.State == model.IssueStateOpen && pr.Mergeable == nil && s.canSpareBudget() {
			mergeable, err := s.upstream.GetPullRequestMergeable(ctx, id.Owner, id.Name, pr.Number)
			if err != nil {
				logger.Debug("Mergeable state unavailable", "number", pr.Number, "error", err)
			} else {
				pr.Mergeable = mergeable
			}
		}
		if err := s.gateway.UpsertPullRequest(ctx, repoID, pr); err != nil {
			outcome.EntityErrors = append(outcome.EntityErrors, err.Error())
			return true
		}
		outcome.PRsUpdated++
		return true
	})
	if err != nil {
		return err
	}

	if !incremental || s.cfg.IncrementalCommits {
		commitSince := time.Time{}
		if incremental {
			commitSince = cutoff
		}
		commits, err := s.upstream.ListCommits(ctx, id.Owner, id.Name, commitSince, s.cfg.CommitLimit)
		if err != nil {
			return err
		}
		for _, c := range commits {
			inserted, err := s.gateway.InsertCommit(ctx, repoID, c)
			if err != nil {
				outcome.EntityErrors = append(outcome.EntityErrors, err.Error())
				continue
			}
			if inserted {
				outcome.CommitsInserted++
			}
		}
	}

	if incremental {
		return nil
	}
	readme, err := s.upstream.GetReadme(ctx, id.Owner, id.Name)
	if err != nil {
		return err
	}
	if readme == nil {
		logger.Debug("Repository has no README")
		return nil
	}
	if err := s.gateway.UpsertReadme(ctx, repoID, readme); err != nil {
		outcome.EntityErrors = append(outcome.EntityErrors, err.Error())
		return nil
	}
	outcome.ReadmeUpdated = true
	return nil
}

// canSpareBudget reports whether optional per-entity lookups may spend upstream budget.
func (s *Syncer) canSpareBudget() bool {
	if s.limiter == nil {
		return true
	}
	d := s.limiter.Peek()
	return d.Allowed && d.Remaining > mergeableReserve
}

// fail records err on the outcome, tagged with its kind.
func fail(o *model.RepoOutcome, err error) {
	o.Success = false
	o.Error = err.Error()

	var quotaErr *custom_errors.QuotaExceededError
	var upErr *custom_errors.UpstreamError
	var pErr *custom_errors.PersistenceError
	switch {
	case errors.As(err, &quotaErr):
		o.ErrorKind = model.ErrorKindQuotaExceeded
		o.RetryAfterSeconds = quotaErr.RetryAfterSeconds()
	case errors.As(err, &upErr):
		o.ErrorKind = model.ErrorKindUpstream
	case errors.As(err, &pErr):
		o.ErrorKind = model.ErrorKindPersistence
	case errors.Is(err, custom_errors.ErrLockHeld):
		o.ErrorKind = model.ErrorKindLockConflict
	default:
		o.ErrorKind = model.ErrorKindInternal
	}
}

// record appends the finished run to the bounded KV history and to the
// relational audit table, then prunes old rows.
func (s *Syncer) record(ctx context.Context, run *model.SyncRun) {
	if err := s.kv.Del(ctx, currentKey); err != nil {
		s.logger.Warn("Failed to clear sync progress", "error", err)
	}

	raw, err := json.Marshal(run)
	if err != nil {
		s.logger.Error("Failed to encode sync run", "run_id", run.ID, "error", err)
		return
	}
	if err := s.kv.LPush(ctx, historyKey, raw); err != nil {
		s.logger.Error("Failed to append sync history", "run_id", run.ID, "error", err)
	} else if err := s.kv.LTrim(ctx, historyKey, 0, int64(s.cfg.HistoryLimit-1)); err != nil {
		s.logger.Warn("Failed to trim sync history", "error", err)
	}

	if err := s.gateway.AppendSyncRun(ctx, run); err != nil {
		s.logger.Error("Failed to store sync run", "run_id", run.ID, "error", err)
	}
	if s.cfg.RunRetention > 0 {
		if _, err := s.gateway.PruneSyncRuns(ctx, s.now().Add(-s.cfg.RunRetention)); err != nil {
			s.logger.Warn("Failed to prune sync runs", "error", err)
		}
	}
}

func (s *Syncer) saveProgress(ctx context.Context, p model.RunProgress) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.kv.Set(ctx, currentKey, raw, s.cfg.LockTTL); err != nil {
		s.logger.Warn("Failed to store sync progress", "error", err)
	}
}

// History returns up to limit recent runs, newest first. When the KV list
// is empty, as after a restart on the in-memory store, the durable run table
// answers instead.
func (s *Syncer) History(ctx context.Context, limit int) ([]model.SyncRun, error) {
	if limit <= 0 {
		return []model.SyncRun{}, nil
	}
	items, err := s.kv.LRange(ctx, historyKey, 0, int64(limit-1))
	if err != nil {
		return nil, fmt.Errorf("failed to read sync history: %w", err)
	}
	if len(items) == 0 {
		runs, err := s.gateway.ListSyncRuns(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to read stored sync runs: %w", err)
		}
		if runs == nil {
			runs = []model.SyncRun{}
		}
		return runs, nil
	}
	runs := make([]model.SyncRun, 0, len(items))
	for _, raw := range items {
		var run model.SyncRun
		if err := json.Unmarshal(raw, &run); err != nil {
			s.logger.Warn("Skipping undecodable sync history entry", "error", err)
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Status reports held locks, the running sync, the last finished run and the
// rate-limit budget.
func (s *Syncer) Status(ctx context.Context) (model.SyncStatus, error) {
	var status model.SyncStatus
	if s.limiter != nil {
		status.RateLimit = s.limiter.Snapshot()
	}

	holders, err := s.locker.Held(ctx)
	if err != nil {
		return status, fmt.Errorf("failed to list sync locks: %w", err)
	}
	status.Locks = holders
	for _, h := range holders {
		if h.Name == lock.ClassAll {
			status.IsSyncing = true
		}
	}

	raw, err := s.kv.Get(ctx, currentKey)
	switch {
	case err == nil:
		var p model.RunProgress
		if json.Unmarshal(raw, &p) == nil {
			status.Current = &p
		}
	case !errors.Is(err, kv.ErrNotFound):
		return status, fmt.Errorf("failed to read sync progress: %w", err)
	}

	last, err := s.History(ctx, 1)
	if err != nil {
		return status, err
	}
	if len(last) > 0 {
		status.LastRun = &last[0]
	}
	return status, nil
}

// Start runs the configured startup sync and then incremental syncs on every tick.
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info("Starting syncer", "interval", s.cfg.Interval.String(), "on_start", s.cfg.OnStart, "concurrency", s.cfg.Concurrency)

	switch s.cfg.OnStart {
	case OnStartFull:
		s.logResult(s.RunFull(ctx))
	case OnStartIncremental:
		s.logResult(s.RunScheduled(ctx))
	}

	if s.cfg.Interval <= 0 {
		s.logger.Info("Scheduler disabled")
		return
	}
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.logResult(s.RunScheduled(ctx))
		case <-ctx.Done():
			s.logger.Info("Syncer shutting down", "reason", ctx.Err())
			return
		}
	}
}

func (s *Syncer) logResult(res Result, err error) {
	switch {
	case err != nil:
		s.logger.Error("Scheduled sync failed", "error", err)
	case res.Status == StatusConflict:
		s.logger.Info("Scheduled sync skipped, another sync is running")
	}
}

func parseRepoIdentifiers(repos []string) ([]RepoIdentifier, error) {
	var identifiers []RepoIdentifier
	for _, r := range repos {
		parts := strings.Split(r, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, &custom_errors.ErrInvalidRepoFormat{Repo: r}
		}
		identifiers = append(identifiers, RepoIdentifier{Owner: parts[0], Name: parts[1]})
	}
	return identifiers, nil
}
