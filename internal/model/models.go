// internal/model/models.go
package model

import (
	"time"
)

// Repository represents the metadata of a GitHub repository.
type Repository struct {
	ID              int64
	GithubRepoID    int64 `json:"github_repo_id"`
	Owner           string
	Name            string
	FullName        string
	Description     *string
	URL             string
	Language        *string
	License         *string
	DefaultBranch   string
	ForksCount      int
	StarsCount      int
	OpenIssuesCount int
	WatchersCount   int
	RepoCreatedAt   time.Time
	RepoUpdatedAt   time.Time
	RepoPushedAt    *time.Time
}

type IssueState string

const (
	IssueStateOpen   IssueState = "open"
	IssueStateClosed IssueState = "closed"
)

// Issue is an issue that is not a pull request.
type Issue struct {
	GithubID  int64
	Number    int
	Title     string
	Body      string
	State     IssueState
	Author    string
	URL       string
	Labels    []string
	Assignees []string
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
}

// PullRequest carries the issue fields plus branch and merge information.
// Mergeable is nil when upstream has not computed it.
type PullRequest struct {
	GithubID   int64
	Number     int
	Title      string
	Body       string
	State      IssueState
	Author     string
	URL        string
	Labels     []string
	Assignees  []string
	BaseBranch string
	HeadBranch string
	Mergeable  *bool
	Merged     bool
	Draft      bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ClosedAt   *time.Time
	MergedAt   *time.Time
}

type Commit struct {
	SHA            string
	AuthorName     string
	AuthorEmail    string
	CommitterName  string
	CommitterEmail string
	Message        string
	URL            string
	AuthoredAt     time.Time
	CommittedAt    time.Time
}

type ReadmeFormat string

const (
	ReadmeFormatMarkdown ReadmeFormat = "markdown"
	ReadmeFormatHTML     ReadmeFormat = "html"
	ReadmeFormatRST      ReadmeFormat = "rst"
	ReadmeFormatText     ReadmeFormat = "text"
)

type Readme struct {
	Path    string
	SHA     string
	Content string
	Format  ReadmeFormat
}

// RateLimitState mirrors the most recent upstream rate-limit headers.
type RateLimitState struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	// Source is "upstream" when the values came from response headers and "local" otherwise.
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}
