// Package dbmock provides a testify mock of database.Querier.
package dbmock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github-dashboard-sync/internal/database"
)

// Querier is a mock of the database.Querier interface.
type Querier struct {
	mock.Mock
}

var _ database.Querier = (*Querier)(nil)

func (m *Querier) DeleteSyncRunsBefore(ctx context.Context, startedAt time.Time) (int64, error) {
	args := m.Called(ctx, startedAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Querier) GetCommitsByRepoID(ctx context.Context, arg database.GetCommitsByRepoIDParams) ([]database.Commit, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]database.Commit), args.Error(1)
}

func (m *Querier) GetReadmeByRepoID(ctx context.Context, repositoryID int64) (database.Readme, error) {
	args := m.Called(ctx, repositoryID)
	return args.Get(0).(database.Readme), args.Error(1)
}

func (m *Querier) GetRepositoryByOwnerAndName(ctx context.Context, arg database.GetRepositoryByOwnerAndNameParams) (database.Repository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Repository), args.Error(1)
}

func (m *Querier) GetTopNCommitAuthors(ctx context.Context, arg database.GetTopNCommitAuthorsParams) ([]database.GetTopNCommitAuthorsRow, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]database.GetTopNCommitAuthorsRow), args.Error(1)
}

func (m *Querier) InsertCommit(ctx context.Context, arg database.InsertCommitParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Querier) InsertSyncRun(ctx context.Context, arg database.InsertSyncRunParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}

func (m *Querier) ListIssuesByRepoID(ctx context.Context, arg database.ListIssuesByRepoIDParams) ([]database.Issue, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]database.Issue), args.Error(1)
}

func (m *Querier) ListPullRequestsByRepoID(ctx context.Context, arg database.ListPullRequestsByRepoIDParams) ([]database.PullRequest, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]database.PullRequest), args.Error(1)
}

func (m *Querier) ListRepositories(ctx context.Context) ([]database.Repository, error) {
	args := m.Called(ctx)
	return args.Get(0).([]database.Repository), args.Error(1)
}

func (m *Querier) ListSyncRuns(ctx context.Context, limit int32) ([]database.SyncRun, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]database.SyncRun), args.Error(1)
}

func (m *Querier) UpsertIssue(ctx context.Context, arg database.UpsertIssueParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}

func (m *Querier) UpsertPullRequest(ctx context.Context, arg database.UpsertPullRequestParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}

func (m *Querier) UpsertReadme(ctx context.Context, arg database.UpsertReadmeParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}

func (m *Querier) UpsertRepository(ctx context.Context, arg database.UpsertRepositoryParams) (database.Repository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(database.Repository), args.Error(1)
}
