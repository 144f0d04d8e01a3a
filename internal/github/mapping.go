package github

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/go-github/v62/github"
	"k8s.io/utils/ptr"

	"github-dashboard-sync/internal/model"
	"github-dashboard-sync/internal/readme"
)

// toInternalRepository translates a github.Repository object to our internal model.Repository.
func toInternalRepository(r *github.Repository) *model.Repository {
	owner := r.GetOwner().GetLogin()
	fullName := r.GetFullName()
	if fullName == "" {
		fullName = owner + "/" + r.GetName()
	}

	var license *string
	if l := r.GetLicense(); l != nil {
		if id := l.GetSPDXID(); id != "" {
			license = ptr.To(id)
		} else if name := l.GetName(); name != "" {
			license = ptr.To(name)
		}
	}

	return &model.Repository{
		GithubRepoID:    r.GetID(),
		Owner:           owner,
		Name:            r.GetName(),
		FullName:        fullName,
		Description:     r.Description,
		URL:             r.GetHTMLURL(),
		Language:        r.Language,
		License:         license,
		DefaultBranch:   r.GetDefaultBranch(),
		ForksCount:      r.GetForksCount(),
		StarsCount:      r.GetStargazersCount(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		WatchersCount:   r.GetWatchersCount(),
		RepoCreatedAt:   r.GetCreatedAt().Time,
		RepoUpdatedAt:   r.GetUpdatedAt().Time,
		RepoPushedAt:    timePtr(r.PushedAt),
	}
}

func toInternalIssue(i *github.Issue) model.Issue {
	return model.Issue{
		GithubID:  i.GetID(),
		Number:    i.GetNumber(),
		Title:     i.GetTitle(),
		Body:      i.GetBody(),
		State:     toState(i.GetState()),
		Author:    i.GetUser().GetLogin(),
		URL:       i.GetHTMLURL(),
		Labels:    labelNames(i.Labels),
		Assignees: logins(i.Assignees),
		CreatedAt: i.GetCreatedAt().Time,
		UpdatedAt: i.GetUpdatedAt().Time,
		ClosedAt:  timePtr(i.ClosedAt),
	}
}

func toInternalPullRequest(pr *github.PullRequest) model.PullRequest {
	return model.PullRequest{
		GithubID:   pr.GetID(),
		Number:     pr.GetNumber(),
		Title:      pr.GetTitle(),
		Body:       pr.GetBody(),
		State:      toState(pr.GetState()),
		Author:     pr.GetUser().GetLogin(),
		URL:        pr.GetHTMLURL(),
		Labels:     labelNames(pr.Labels),
		Assignees:  logins(pr.Assignees),
		BaseBranch: pr.GetBase().GetRef(),
		HeadBranch: pr.GetHead().GetRef(),
		Mergeable:  pr.Mergeable,
		Merged:     pr.GetMerged() || pr.MergedAt != nil,
		Draft:      pr.GetDraft(),
		CreatedAt:  pr.GetCreatedAt().Time,
		UpdatedAt:  pr.GetUpdatedAt().Time,
		ClosedAt:   timePtr(pr.ClosedAt),
		MergedAt:   timePtr(pr.MergedAt),
	}
}

// toInternalCommit translates a github.RepositoryCommit object to our internal model.Commit.
func toInternalCommit(c *github.RepositoryCommit) model.Commit {
	return model.Commit{
		SHA:            c.GetSHA(),
		AuthorName:     c.GetCommit().GetAuthor().GetName(),
		AuthorEmail:    c.GetCommit().GetAuthor().GetEmail(),
		CommitterName:  c.GetCommit().GetCommitter().GetName(),
		CommitterEmail: c.GetCommit().GetCommitter().GetEmail(),
		Message:        c.GetCommit().GetMessage(),
		URL:            c.GetHTMLURL(),
		AuthoredAt:     c.GetCommit().GetAuthor().GetDate().Time,
		CommittedAt:    c.GetCommit().GetCommitter().GetDate().Time,
	}
}

func toInternalReadme(c *github.RepositoryContent) (*model.Readme, error) {
	text, err := c.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode readme %s: %w", c.GetPath(), err)
	}
	return &model.Readme{
		Path:    c.GetPath(),
		SHA:     c.GetSHA(),
		Content: text,
		Format:  readme.Classify(c.GetPath(), text),
	}, nil
}

func toState(s string) model.IssueState {
	if s == string(model.IssueStateClosed) {
		return model.IssueStateClosed
	}
	return model.IssueStateOpen
}

// labelNames returns the label set sorted and without duplicates.
func labelNames(labels []*github.Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		if n := l.GetName(); n != "" {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func logins(users []*github.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		if l := u.GetLogin(); l != "" {
			out = append(out, l)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func timePtr(ts *github.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	return ptr.To(ts.Time)
}
