package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github-dashboard-sync/internal/cache"
	"github-dashboard-sync/internal/database"
	"github-dashboard-sync/internal/database/dbmock"
	"github-dashboard-sync/internal/kv"
	"github-dashboard-sync/internal/model"
	"github-dashboard-sync/internal/ratelimit"
	"github-dashboard-sync/internal/syncer"
)

type fakeSyncer struct {
	result    syncer.Result
	err       error
	since     time.Time
	fullCalls int
	incCalls  int
	history   []model.SyncRun
	histLimit int
}

func (f *fakeSyncer) RunFull(context.Context) (syncer.Result, error) {
	f.fullCalls++
	return f.result, f.err
}

func (f *fakeSyncer) RunIncremental(_ context.Context, since time.Time) (syncer.Result, error) {
	f.incCalls++
	f.since = since
	return f.result, f.err
}

func (f *fakeSyncer) Status(context.Context) (model.SyncStatus, error) {
	return model.SyncStatus{IsSyncing: false, Locks: []model.LockHolder{}}, nil
}

func (f *fakeSyncer) History(_ context.Context, limit int) ([]model.SyncRun, error) {
	f.histLimit = limit
	return f.history, nil
}

var widgets = database.Repository{ID: 1, Owner: "acme", Name: "widgets", FullName: "acme/widgets"}

func setupRouter(q *dbmock.Querier, s *fakeSyncer, limiter *ratelimit.Limiter, opts ...Option) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(q, s, limiter, logger, opts...)
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	rec := do(t, setupRouter(new(dbmock.Querier), &fakeSyncer{}, nil), http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRepositoryEndpoints(t *testing.T) {
	repoParams := database.GetRepositoryByOwnerAndNameParams{Owner: "acme", Name: "widgets"}

	t.Run("unknown repository is 404", func(t *testing.T) {
		q := new(dbmock.Querier)
		q.On("GetRepositoryByOwnerAndName", mock.Anything, repoParams).Return(database.Repository{}, pgx.ErrNoRows).Once()

		rec := do(t, setupRouter(q, &fakeSyncer{}, nil), http.MethodGet, "/v1/repositories/acme/widgets")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Repository not found"}`, rec.Body.String())
	})

	t.Run("issues filtered by state", func(t *testing.T) {
		q := new(dbmock.Querier)
		q.On("GetRepositoryByOwnerAndName", mock.Anything, repoParams).Return(widgets, nil).Once()
		q.On("ListIssuesByRepoID", mock.Anything, database.ListIssuesByRepoIDParams{RepositoryID: 1, State: "open", RowLimit: 50}).
			Return([]database.Issue{{Number: 50, State: "open", Title: "bug"}}, nil).Once()

		rec := do(t, setupRouter(q, &fakeSyncer{}, nil), http.MethodGet, "/v1/repositories/acme/widgets/issues?state=open")

		require.Equal(t, http.StatusOK, rec.Code)
		var issues []database.Issue
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &issues))
		require.Len(t, issues, 1)
		assert.Equal(t, int32(50), issues[0].Number)
		q.AssertExpectations(t)
	})

	t.Run("invalid query parameters are rejected before any lookup", func(t *testing.T) {
		tests := []struct {
			name   string
			target string
		}{
			{"bad state", "/v1/repositories/acme/widgets/issues?state=merged"},
			{"pulls limit too large", "/v1/repositories/acme/widgets/pulls?limit=1000"},
			{"commits limit not a number", "/v1/repositories/acme/widgets/commits?limit=abc"},
			{"top committers zero", "/v1/repositories/acme/widgets/stats/top-committers?limit=0"},
			{"readme format", "/v1/repositories/acme/widgets/readme?format=pdf"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				q := new(dbmock.Querier)

				rec := do(t, setupRouter(q, &fakeSyncer{}, nil), http.MethodGet, tc.target)

				assert.Equal(t, http.StatusBadRequest, rec.Code)
				q.AssertNotCalled(t, "GetRepositoryByOwnerAndName", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("top committers default limit", func(t *testing.T) {
		q := new(dbmock.Querier)
		q.On("GetRepositoryByOwnerAndName", mock.Anything, repoParams).Return(widgets, nil).Once()
		q.On("GetTopNCommitAuthors", mock.Anything, database.GetTopNCommitAuthorsParams{RepositoryID: 1, Limit: 10}).
			Return([]database.GetTopNCommitAuthorsRow{{AuthorName: "ada", AuthorEmail: "ada@example.com", CommitCount: 7}}, nil).Once()

		rec := do(t, setupRouter(q, &fakeSyncer{}, nil), http.MethodGet, "/v1/repositories/acme/widgets/stats/top-committers")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[{"author_name":"ada","author_email":"ada@example.com","commit_count":7}]`, rec.Body.String())
	})

	t.Run("readme rendered as html", func(t *testing.T) {
		q := new(dbmock.Querier)
		q.On("GetRepositoryByOwnerAndName", mock.Anything, repoParams).Return(widgets, nil).Once()
		q.On("GetReadmeByRepoID", mock.Anything, int64(1)).
			Return(database.Readme{RepositoryID: 1, Content: "# Widgets", ContentType: "markdown"}, nil).Once()

		rec := do(t, setupRouter(q, &fakeSyncer{}, nil), http.MethodGet, "/v1/repositories/acme/widgets/readme?format=html")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), "<h1>Widgets</h1>")
	})

	t.Run("readme html is sanitized", func(t *testing.T) {
		q := new(dbmock.Querier)
		q.On("GetRepositoryByOwnerAndName", mock.Anything, repoParams).Return(widgets, nil).Once()
		q.On("GetReadmeByRepoID", mock.Anything, int64(1)).
			Return(database.Readme{RepositoryID: 1, Content: `<div><p>ok</p><script>fetch("/v1/sync/full",{method:"POST"})</script></div>`, ContentType: "html"}, nil).Once()

		rec := do(t, setupRouter(q, &fakeSyncer{}, nil), http.MethodGet, "/v1/repositories/acme/widgets/readme?format=html")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "<p>ok</p>")
		assert.NotContains(t, rec.Body.String(), "<script")
	})

	t.Run("missing readme is 404", func(t *testing.T) {
		q := new(dbmock.Querier)
		q.On("GetRepositoryByOwnerAndName", mock.Anything, repoParams).Return(widgets, nil).Once()
		q.On("GetReadmeByRepoID", mock.Anything, int64(1)).Return(database.Readme{}, pgx.ErrNoRows).Once()

		rec := do(t, setupRouter(q, &fakeSyncer{}, nil), http.MethodGet, "/v1/repositories/acme/widgets/readme")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("database failure is 500", func(t *testing.T) {
		q := new(dbmock.Querier)
		q.On("ListRepositories", mock.Anything).Return([]database.Repository(nil), errors.New("boom")).Once()

		rec := do(t, setupRouter(q, &fakeSyncer{}, nil), http.MethodGet, "/v1/repositories")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestResponseCaching(t *testing.T) {
	q := new(dbmock.Querier)
	q.On("ListRepositories", mock.Anything).Return([]database.Repository{widgets}, nil).Once()
	c := cache.New(kv.NewMemoryStore(), cache.DefaultPolicy(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := setupRouter(q, &fakeSyncer{}, nil, WithCache(c))

	first := do(t, router, http.MethodGet, "/v1/repositories")
	second := do(t, router, http.MethodGet, "/v1/repositories")

	assert.Equal(t, "MISS", first.Header().Get(cache.HeaderCache))
	assert.Equal(t, "HIT", second.Header().Get(cache.HeaderCache))
	assert.Equal(t, first.Body.String(), second.Body.String())
	q.AssertNumberOfCalls(t, "ListRepositories", 1)
}

func TestSyncEndpoints(t *testing.T) {
	run := &model.SyncRun{ID: "run-1", Type: model.SyncTypeFull, SuccessCount: 1, TotalCount: 1}

	t.Run("full sync returns the run", func(t *testing.T) {
		s := &fakeSyncer{result: syncer.Result{Status: syncer.StatusCompleted, Run: run}}

		rec := do(t, setupRouter(new(dbmock.Querier), s, ratelimit.New()), http.MethodPost, "/v1/sync/full")

		require.Equal(t, http.StatusOK, rec.Code)
		var got model.SyncRun
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "run-1", got.ID)
		assert.Equal(t, 1, s.fullCalls)
	})

	t.Run("held lock is 409 with the running status", func(t *testing.T) {
		s := &fakeSyncer{result: syncer.Result{
			Status:     syncer.StatusConflict,
			InProgress: &model.SyncStatus{IsSyncing: true, Current: &model.RunProgress{RunID: "run-0"}},
		}}

		rec := do(t, setupRouter(new(dbmock.Querier), s, nil), http.MethodPost, "/v1/sync/incremental")

		require.Equal(t, http.StatusConflict, rec.Code)
		var body struct {
			Error  string           `json:"error"`
			Status model.SyncStatus `json:"status"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Status.IsSyncing)
		assert.Equal(t, "run-0", body.Status.Current.RunID)
	})

	t.Run("exhausted budget is 429 without starting a sync", func(t *testing.T) {
		limiter := ratelimit.New()
		limiter.RecordUsage(5, time.Now().Add(time.Minute).Unix(), 5000)
		s := &fakeSyncer{}

		rec := do(t, setupRouter(new(dbmock.Querier), s, limiter), http.MethodPost, "/v1/sync/full")

		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.InDelta(t, 60, body["retryAfterSeconds"], 2)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Equal(t, 0, s.fullCalls)
	})

	t.Run("incremental passes since through", func(t *testing.T) {
		s := &fakeSyncer{result: syncer.Result{Status: syncer.StatusCompleted, Run: run}}

		rec := do(t, setupRouter(new(dbmock.Querier), s, nil), http.MethodPost, "/v1/sync/incremental?since=2025-08-01T00:00:00Z")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), s.since.UTC())
	})

	t.Run("incremental rejects a malformed since", func(t *testing.T) {
		s := &fakeSyncer{}

		rec := do(t, setupRouter(new(dbmock.Querier), s, nil), http.MethodPost, "/v1/sync/incremental?since=yesterday")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, 0, s.incCalls)
	})

	t.Run("sync failure is 500", func(t *testing.T) {
		s := &fakeSyncer{err: errors.New("kv unreachable")}

		rec := do(t, setupRouter(new(dbmock.Querier), s, nil), http.MethodPost, "/v1/sync/full")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestSyncHistory(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantLimit int
	}{
		{"default limit", "/v1/sync/history", http.StatusOK, 10},
		{"explicit limit", "/v1/sync/history?limit=50", http.StatusOK, 50},
		{"above maximum", "/v1/sync/history?limit=51", http.StatusBadRequest, 0},
		{"zero", "/v1/sync/history?limit=0", http.StatusBadRequest, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &fakeSyncer{history: []model.SyncRun{}}

			rec := do(t, setupRouter(new(dbmock.Querier), s, nil), http.MethodGet, tc.target)

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantLimit, s.histLimit)
		})
	}
}

func TestRateLimitEndpoint(t *testing.T) {
	limiter := ratelimit.New()
	limiter.RecordUsage(4321, time.Now().Add(time.Hour).Unix(), 5000)

	rec := do(t, setupRouter(new(dbmock.Querier), &fakeSyncer{}, limiter), http.MethodGet, "/v1/rate-limit")

	require.Equal(t, http.StatusOK, rec.Code)
	var state model.RateLimitState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, 4321, state.Remaining)
	assert.Equal(t, 5000, state.Limit)
	assert.Equal(t, "upstream", state.Source)
}
