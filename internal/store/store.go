// Package store is the persistence gateway: typed, idempotent writes of the
// synced entities on top of the generated query layer.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github-dashboard-sync/internal/database"
	custom_errors "github-dashboard-sync/internal/errors"
	"github-dashboard-sync/internal/model"
)

// Store writes entities one statement at a time. There is no enclosing
// transaction, so a failed row never rolls back its siblings.
type Store struct {
	q      database.Querier
	logger *slog.Logger
}

func New(q database.Querier, logger *slog.Logger) *Store {
	return &Store{q: q, logger: logger}
}

// UpsertRepository writes repository metadata keyed by full name and returns the row id.
func (s *Store) UpsertRepository(ctx context.Context, repo *model.Repository) (int64, error) {
	row, err := s.q.UpsertRepository(ctx, database.UpsertRepositoryParams{
		GithubRepoID:    repo.GithubRepoID,
		Owner:           repo.Owner,
		Name:            repo.Name,
		FullName:        repo.FullName,
		Description:     toText(repo.Description),
		Url:             repo.URL,
		Language:        toText(repo.Language),
		License:         toText(repo.License),
		DefaultBranch:   repo.DefaultBranch,
		ForksCount:      int32(repo.ForksCount),
		StarsCount:      int32(repo.StarsCount),
		OpenIssuesCount: int32(repo.OpenIssuesCount),
		WatchersCount:   int32(repo.WatchersCount),
		RepoCreatedAt:   repo.RepoCreatedAt,
		RepoUpdatedAt:   repo.RepoUpdatedAt,
		RepoPushedAt:    toTimestamptz(repo.RepoPushedAt),
	})
	if err != nil {
		return 0, &custom_errors.PersistenceError{Entity: "repository", Key: repo.FullName, Err: err}
	}
	return row.ID, nil
}

func (s *Store) UpsertIssue(ctx context.Context, repoID int64, issue model.Issue) error {
	err := s.q.UpsertIssue(ctx, database.UpsertIssueParams{
		RepositoryID:  repoID,
		GithubIssueID: issue.GithubID,
		Number:        int32(issue.Number),
		Title:         issue.Title,
		Body:          issue.Body,
		State:         string(issue.State),
		Author:        issue.Author,
		Url:           issue.URL,
		Labels:        nonNil(issue.Labels),
		Assignees:     nonNil(issue.Assignees),
		CreatedAt:     issue.CreatedAt,
		UpdatedAt:     issue.UpdatedAt,
		ClosedAt:      toTimestamptz(issue.ClosedAt),
	})
	if err != nil {
		return &custom_errors.PersistenceError{Entity: "issue", Key: "#" + strconv.Itoa(issue.Number), Err: err}
	}
	return nil
}

func (s *Store) UpsertPullRequest(ctx context.Context, repoID int64, pr model.PullRequest) error {
	err := s.q.UpsertPullRequest(ctx, database.UpsertPullRequestParams{
		RepositoryID: repoID,
		GithubPrID:   pr.GithubID,
		Number:       int32(pr.Number),
		Title:        pr.Title,
		Body:         pr.Body,
		State:        string(pr.State),
		Author:       pr.Author,
		Url:          pr.URL,
		Labels:       nonNil(pr.Labels),
		Assignees:    nonNil(pr.Assignees),
		BaseBranch:   pr.BaseBranch,
		HeadBranch:   pr.HeadBranch,
		Mergeable:    toBool(pr.Mergeable),
		Merged:       pr.Merged,
		Draft:        pr.Draft,
		CreatedAt:    pr.CreatedAt,
		UpdatedAt:    pr.UpdatedAt,
		ClosedAt:     toTimestamptz(pr.ClosedAt),
		MergedAt:     toTimestamptz(pr.MergedAt),
	})
	if err != nil {
		return &custom_errors.PersistenceError{Entity: "pull_request", Key: "#" + strconv.Itoa(pr.Number), Err: err}
	}
	return nil
}

// InsertCommit stores a commit if its sha is not yet known. Existing rows are
// never touched; inserted reports whether a new row was written.
func (s *Store) InsertCommit(ctx context.Context, repoID int64, c model.Commit) (bool, error) {
	n, err := s.q.InsertCommit(ctx, database.InsertCommitParams{
		RepositoryID:   repoID,
		Sha:            c.SHA,
		AuthorName:     c.AuthorName,
		AuthorEmail:    c.AuthorEmail,
		CommitterName:  c.CommitterName,
		CommitterEmail: c.CommitterEmail,
		Message:        c.Message,
		Url:            c.URL,
		AuthoredAt:     c.AuthoredAt,
		CommittedAt:    c.CommittedAt,
	})
	if err != nil {
		return false, &custom_errors.PersistenceError{Entity: "commit", Key: c.SHA, Err: err}
	}
	return n > 0, nil
}

func (s *Store) UpsertReadme(ctx context.Context, repoID int64, r *model.Readme) error {
	err := s.q.UpsertReadme(ctx, database.UpsertReadmeParams{
		RepositoryID: repoID,
		Path:         r.Path,
		Sha:          r.SHA,
		Content:      r.Content,
		ContentType:  string(r.Format),
	})
	if err != nil {
		return &custom_errors.PersistenceError{Entity: "readme", Key: r.Path, Err: err}
	}
	return nil
}

// AppendSyncRun inserts the audit row for a finished run.
func (s *Store) AppendSyncRun(ctx context.Context, run *model.SyncRun) error {
	id, err := uuid.Parse(run.ID)
	if err != nil {
		return fmt.Errorf("invalid sync run id %q: %w", run.ID, err)
	}
	outcomes, err := json.Marshal(run.Repositories)
	if err != nil {
		return fmt.Errorf("failed to encode sync run outcomes: %w", err)
	}

	err = s.q.InsertSyncRun(ctx, database.InsertSyncRunParams{
		ID:           pgtype.UUID{Bytes: id, Valid: true},
		SyncType:     string(run.Type),
		Since:        toTimestamptz(run.Since),
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		SuccessCount: int32(run.SuccessCount),
		TotalCount:   int32(run.TotalCount),
		Outcomes:     outcomes,
	})
	if err != nil {
		return &custom_errors.PersistenceError{Entity: "sync_run", Key: run.ID, Err: err}
	}
	return nil
}

// PruneSyncRuns deletes runs that started before the cutoff.
func (s *Store) PruneSyncRuns(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.q.DeleteSyncRunsBefore(ctx, before)
	if err != nil {
		return 0, &custom_errors.PersistenceError{Entity: "sync_run", Key: "before " + before.Format(time.RFC3339), Err: err}
	}
	if n > 0 {
		s.logger.Info("Pruned sync runs", "count", n, "before", before)
	}
	return n, nil
}

// ListSyncRuns returns the most recent runs, newest first.
func (s *Store) ListSyncRuns(ctx context.Context, limit int) ([]model.SyncRun, error) {
	rows, err := s.q.ListSyncRuns(ctx, int32(limit))
	if err != nil {
		return nil, &custom_errors.PersistenceError{Entity: "sync_run", Key: "list", Err: err}
	}
	runs := make([]model.SyncRun, 0, len(rows))
	for _, row := range rows {
		run, err := toSyncRun(row)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func toSyncRun(row database.SyncRun) (model.SyncRun, error) {
	run := model.SyncRun{
		Type:         model.SyncType(row.SyncType),
		Since:        fromTimestamptz(row.Since),
		StartedAt:    row.StartedAt,
		FinishedAt:   row.FinishedAt,
		SuccessCount: int(row.SuccessCount),
		TotalCount:   int(row.TotalCount),
	}
	if row.ID.Valid {
		run.ID = uuid.UUID(row.ID.Bytes).String()
	}
	if len(row.Outcomes) > 0 {
		if err := json.Unmarshal(row.Outcomes, &run.Repositories); err != nil {
			return model.SyncRun{}, fmt.Errorf("failed to decode outcomes of sync run %s: %w", run.ID, err)
		}
	}
	return run, nil
}

func toText(s *string) pgtype.Text {
	if s == nil || *s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil || t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func fromTimestamptz(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func toBool(b *bool) pgtype.Bool {
	if b == nil {
		return pgtype.Bool{}
	}
	return pgtype.Bool{Bool: *b, Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
