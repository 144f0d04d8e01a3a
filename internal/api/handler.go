// internal/api/handler.go
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"

	"github-dashboard-sync/internal/cache"
	"github-dashboard-sync/internal/database"
	custom_errors "github-dashboard-sync/internal/errors"
	"github-dashboard-sync/internal/model"
	"github-dashboard-sync/internal/ratelimit"
	"github-dashboard-sync/internal/readme"
	"github-dashboard-sync/internal/syncer"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
	defaultListLimit    = 50
	maxListLimit        = 100
)

// Syncer is the orchestrator surface the API triggers and reports on.
type Syncer interface {
	RunFull(ctx context.Context) (syncer.Result, error)
	RunIncremental(ctx context.Context, since time.Time) (syncer.Result, error)
	Status(ctx context.Context) (model.SyncStatus, error)
	History(ctx context.Context, limit int) ([]model.SyncRun, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	db      database.Querier
	syncer  Syncer
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

type routerConfig struct {
	cache   *cache.Cache
	metrics http.Handler
}

type Option func(*routerConfig)

// WithCache serves read endpoints through the response cache.
func WithCache(c *cache.Cache) Option {
	return func(rc *routerConfig) { rc.cache = c }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(rc *routerConfig) { rc.metrics = h }
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(db database.Querier, s Syncer, limiter *ratelimit.Limiter, logger *slog.Logger, opts ...Option) http.Handler {
	var cfg routerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	h := &Handler{
		db:      db,
		syncer:  s,
		limiter: limiter,
		logger:  logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.healthCheck)
	if cfg.metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		if cfg.cache != nil {
			r.Use(cfg.cache.Middleware)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Get("/repositories", h.listRepositories)
			r.Route("/repositories/{owner}/{name}", func(r chi.Router) {
				r.Get("/", h.getRepository)
				r.Get("/issues", h.getIssues)
				r.Get("/pulls", h.getPullRequests)
				r.Get("/commits", h.getCommits)
				r.Get("/readme", h.getReadme)
				r.Get("/stats/top-committers", h.getTopCommitters)
			})
			r.Get("/sync/status", h.getSyncStatus)
			r.Get("/sync/history", h.getSyncHistory)
			r.Get("/rate-limit", h.getRateLimit)
		})

		// A sync runs as long as it needs; the lock TTL bounds it.
		r.Post("/sync/full", h.triggerFullSync)
		r.Post("/sync/incremental", h.triggerIncrementalSync)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /v1/repositories
func (h *Handler) listRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := h.db.ListRepositories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list repositories", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if repos == nil {
		repos = []database.Repository{}
	}
	respondWithJSON(w, http.StatusOK, repos)
}

// GET /v1/repositories/{owner}/{name}
func (h *Handler) getRepository(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.lookupRepository(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, repo)
}

// GET /v1/repositories/{owner}/{name}/issues?state=open|closed&limit=N
func (h *Handler) getIssues(w http.ResponseWriter, r *http.Request) {
	state, limit, ok := listParams(w, r)
	if !ok {
		return
	}
	repo, ok := h.lookupRepository(w, r)
	if !ok {
		return
	}

	issues, err := h.db.ListIssuesByRepoID(r.Context(), database.ListIssuesByRepoIDParams{
		RepositoryID: repo.ID,
		State:        state,
		RowLimit:     int32(limit),
	})
	if err != nil {
		h.logger.Error("Failed to get issues", "repo", repo.FullName, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if issues == nil {
		issues = []database.Issue{}
	}
	respondWithJSON(w, http.StatusOK, issues)
}

// GET /v1/repositories/{owner}/{name}/pulls?state=open|closed&limit=N
func (h *Handler) getPullRequests(w http.ResponseWriter, r *http.Request) {
	state, limit, ok := listParams(w, r)
	if !ok {
		return
	}
	repo, ok := h.lookupRepository(w, r)
	if !ok {
		return
	}

	prs, err := h.db.ListPullRequestsByRepoID(r.Context(), database.ListPullRequestsByRepoIDParams{
		RepositoryID: repo.ID,
		State:        state,
		RowLimit:     int32(limit),
	})
	if err != nil {
		h.logger.Error("Failed to get pull requests", "repo", repo.FullName, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if prs == nil {
		prs = []database.PullRequest{}
	}
	respondWithJSON(w, http.StatusOK, prs)
}

// getCommits handles the request to retrieve commits for a repository.
// GET /v1/repositories/{owner}/{name}/commits?limit=N
func (h *Handler) getCommits(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, defaultListLimit, maxListLimit)
	if !ok {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid 'limit' parameter. Must be an integer between 1 and %d.", maxListLimit))
		return
	}
	repo, ok := h.lookupRepository(w, r)
	if !ok {
		return
	}

	commits, err := h.db.GetCommitsByRepoID(r.Context(), database.GetCommitsByRepoIDParams{
		RepositoryID: repo.ID,
		Limit:        int32(limit),
	})
	if err != nil {
		h.logger.Error("Failed to get commits", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if commits == nil {
		commits = []database.Commit{}
	}
	respondWithJSON(w, http.StatusOK, commits)
}

// GET /v1/repositories/{owner}/{name}/readme?format=raw|html
func (h *Handler) getReadme(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && format != "raw" && format != "html" {
		respondWithError(w, http.StatusBadRequest, "Invalid 'format' parameter. Must be 'raw' or 'html'.")
		return
	}
	repo, ok := h.lookupRepository(w, r)
	if !ok {
		return
	}

	rm, err := h.db.GetReadmeByRepoID(r.Context(), repo.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondWithError(w, http.StatusNotFound, "README not found")
			return
		}
		h.logger.Error("Failed to get readme", "repo", repo.FullName, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if format != "html" {
		respondWithJSON(w, http.StatusOK, rm)
		return
	}
	html, err := readme.Render(rm.Content, model.ReadmeFormat(rm.ContentType))
	if err != nil {
		h.logger.Error("Failed to render readme", "repo", repo.FullName, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// getTopCommitters handles the request for top commit authors.
// GET /v1/repositories/{owner}/{name}/stats/top-committers?limit=N
func (h *Handler) getTopCommitters(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, 10, maxListLimit)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 100.")
		return
	}
	repo, ok := h.lookupRepository(w, r)
	if !ok {
		return
	}

	authors, err := h.db.GetTopNCommitAuthors(r.Context(), database.GetTopNCommitAuthorsParams{
		RepositoryID: repo.ID,
		Limit:        int32(limit),
	})
	if err != nil {
		h.logger.Error("Failed to get top commit authors", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if authors == nil {
		authors = []database.GetTopNCommitAuthorsRow{}
	}
	respondWithJSON(w, http.StatusOK, authors)
}

// POST /v1/sync/full
func (h *Handler) triggerFullSync(w http.ResponseWriter, r *http.Request) {
	if !h.budgetAvailable(w) {
		return
	}
	res, err := h.syncer.RunFull(r.Context())
	h.respondWithSyncResult(w, res, err)
}

// POST /v1/sync/incremental?since=RFC3339
func (h *Handler) triggerIncrementalSync(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid 'since' parameter. Must be an RFC3339 timestamp.")
			return
		}
		since = parsed
	}
	if !h.budgetAvailable(w) {
		return
	}
	res, err := h.syncer.RunIncremental(r.Context(), since)
	h.respondWithSyncResult(w, res, err)
}

// budgetAvailable answers 429 when the upstream budget is already exhausted.
func (h *Handler) budgetAvailable(w http.ResponseWriter) bool {
	if h.limiter == nil {
		return true
	}
	d := h.limiter.Peek()
	if d.Allowed {
		return true
	}
	var retryAfter int
	var quotaErr *custom_errors.QuotaExceededError
	if errors.As(d.Err(), &quotaErr) {
		retryAfter = quotaErr.RetryAfterSeconds()
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	respondWithJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":             "upstream rate limit budget exhausted",
		"retryAfterSeconds": retryAfter,
	})
	return false
}

func (h *Handler) respondWithSyncResult(w http.ResponseWriter, res syncer.Result, err error) {
	if err != nil {
		h.logger.Error("Sync failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Sync failed")
		return
	}
	if res.Status == syncer.StatusConflict {
		respondWithJSON(w, http.StatusConflict, map[string]any{
			"error":  "sync already in progress",
			"status": res.InProgress,
		})
		return
	}
	respondWithJSON(w, http.StatusOK, res.Run)
}

// GET /v1/sync/status
func (h *Handler) getSyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.syncer.Status(r.Context())
	if err != nil {
		h.logger.Error("Failed to read sync status", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

// GET /v1/sync/history?limit=N
func (h *Handler) getSyncHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, defaultHistoryLimit, maxHistoryLimit)
	if !ok {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid 'limit' parameter. Must be an integer between 1 and %d.", maxHistoryLimit))
		return
	}
	runs, err := h.syncer.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to read sync history", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, runs)
}

// GET /v1/rate-limit
func (h *Handler) getRateLimit(w http.ResponseWriter, r *http.Request) {
	if h.limiter == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Rate limiter not configured")
		return
	}
	respondWithJSON(w, http.StatusOK, h.limiter.Snapshot())
}

func (h *Handler) lookupRepository(w http.ResponseWriter, r *http.Request) (database.Repository, bool) {
	repo, err := h.db.GetRepositoryByOwnerAndName(r.Context(), database.GetRepositoryByOwnerAndNameParams{
		Owner: chi.URLParam(r, "owner"),
		Name:  chi.URLParam(r, "name"),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondWithError(w, http.StatusNotFound, "Repository not found")
			return database.Repository{}, false
		}
		h.logger.Error("Failed to get repository", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return database.Repository{}, false
	}
	return repo, true
}

func listParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	state := r.URL.Query().Get("state")
	if state != "" && state != string(model.IssueStateOpen) && state != string(model.IssueStateClosed) {
		respondWithError(w, http.StatusBadRequest, "Invalid 'state' parameter. Must be 'open' or 'closed'.")
		return "", 0, false
	}
	limit, ok := parseLimit(r, defaultListLimit, maxListLimit)
	if !ok {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid 'limit' parameter. Must be an integer between 1 and %d.", maxListLimit))
		return "", 0, false
	}
	return state, limit, true
}
