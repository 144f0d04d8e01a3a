// internal/github/client.go
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"github-dashboard-sync/internal/cache"
	custom_errors "github-dashboard-sync/internal/errors"
	"github-dashboard-sync/internal/model"
	"github-dashboard-sync/internal/ratelimit"
	"github-dashboard-sync/internal/telemetry"
)

const (
	defaultMaxRetries    = 3
	defaultTimeout       = 30 * time.Second
	defaultRetryInterval = 500 * time.Millisecond
	maxPerPage           = 100
	userAgent            = "github-dashboard-sync"
)

// Client is a wrapper around the go-github client. Every request passes
// through the response cache and the shared rate limiter.
type Client struct {
	gh            *github.Client
	limiter       *ratelimit.Limiter
	logger        *slog.Logger
	timeout       time.Duration
	maxRetries    int
	retryInterval time.Duration
	perPage       int
}

type clientConfig struct {
	baseURL       string
	transport     http.RoundTripper
	cache         *cache.Cache
	metrics       *telemetry.UpstreamMetrics
	timeout       time.Duration
	maxRetries    int
	retryInterval time.Duration
	perPage       int
}

type Option func(*clientConfig)

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(u string) Option {
	return func(c *clientConfig) { c.baseURL = u }
}

// WithTransport replaces the innermost network transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *clientConfig) { c.transport = rt }
}

// WithCache enables response caching.
func WithCache(rc *cache.Cache) Option {
	return func(c *clientConfig) { c.cache = rc }
}

func WithMetrics(m *telemetry.UpstreamMetrics) Option {
	return func(c *clientConfig) { c.metrics = m }
}

// WithTimeout bounds every individual upstream call.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithRetries sets the attempt budget and the initial backoff for transient failures.
func WithRetries(maxRetries int, initialInterval time.Duration) Option {
	return func(c *clientConfig) {
		c.maxRetries = maxRetries
		c.retryInterval = initialInterval
	}
}

func WithPerPage(n int) Option {
	return func(c *clientConfig) { c.perPage = n }
}

// NewClient creates and configures a new Client instance.
// The provided token is used to authenticate requests; an empty token sends anonymous requests.
func NewClient(token string, limiter *ratelimit.Limiter, logger *slog.Logger, opts ...Option) (*Client, error) {
	cfg := clientConfig{
		transport:     http.DefaultTransport,
		timeout:       defaultTimeout,
		maxRetries:    defaultMaxRetries,
		retryInterval: defaultRetryInterval,
		perPage:       maxPerPage,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.perPage <= 0 || cfg.perPage > maxPerPage {
		cfg.perPage = maxPerPage
	}
	if cfg.maxRetries < 1 {
		cfg.maxRetries = 1
	}

	rt := cfg.transport
	if token != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   rt,
		}
	}
	rt = &limitTransport{next: rt, limiter: limiter, metrics: cfg.metrics, logger: logger}
	if cfg.cache != nil {
		rt = &cacheTransport{next: rt, cache: cfg.cache, metrics: cfg.metrics, logger: logger}
	}

	gh := github.NewClient(&http.Client{Transport: rt})
	gh.UserAgent = userAgent
	if cfg.baseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(cfg.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid upstream base url: %w", err)
		}
		gh.BaseURL = base
	}

	return &Client{
		gh:            gh,
		limiter:       limiter,
		logger:        logger,
		timeout:       cfg.timeout,
		maxRetries:    cfg.maxRetries,
		retryInterval: cfg.retryInterval,
		perPage:       cfg.perPage,
	}, nil
}

// GetRepository fetches repository details and translates them to our internal model.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*model.Repository, error) {
	endpoint := fmt.Sprintf("GET /repos/%s/%s", owner, name)
	repo, _, err := call(ctx, c, endpoint, func(ctx context.Context) (*github.Repository, *github.Response, error) {
		return c.gh.Repositories.Get(ctx, owner, name)
	})
	if err != nil {
		return nil, err
	}
	return toInternalRepository(repo), nil
}

// ListIssues pages through issues (pull requests excluded) most recently
// updated first. A non-zero since is applied server-side. Paging stops as
// soon as visit returns false.
func (c *Client) ListIssues(ctx context.Context, owner, name string, since time.Time, visit func(model.Issue) bool) error {
	endpoint := fmt.Sprintf("GET /repos/%s/%s/issues", owner, name)
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		Since:       since,
		ListOptions: github.ListOptions{PerPage: c.perPage},
	}

	for {
		c.logger.Debug("Fetching issues page", "owner", owner, "repo", name, "page", opts.Page)
		issues, resp, err := call(ctx, c, endpoint, func(ctx context.Context) ([]*github.Issue, *github.Response, error) {
			return c.gh.Issues.ListByRepo(ctx, owner, name, opts)
		})
		if err != nil {
			return err
		}

		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			if !visit(toInternalIssue(issue)) {
				return nil
			}
		}

		if resp.NextPage == 0 {
			return nil
		}
		opts.Page = resp.NextPage
	}
}

// ListPullRequests pages through pull requests most recently updated first.
// Paging stops as soon as visit returns false.
func (c *Client) ListPullRequests(ctx context.Context, owner, name string, visit func(model.PullRequest) bool) error {
	endpoint := fmt.Sprintf("GET /repos/%s/%s/pulls", owner, name)
	opts := &github.PullRequestListOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: c.perPage},
	}

	for {
		c.logger.Debug("Fetching pull requests page", "owner", owner, "repo", name, "page", opts.Page)
		prs, resp, err := call(ctx, c, endpoint, func(ctx context.Context) ([]*github.PullRequest, *github.Response, error) {
			return c.gh.PullRequests.List(ctx, owner, name, opts)
		})
		if err != nil {
			return err
		}

		for _, pr := range prs {
			if !visit(toInternalPullRequest(pr)) {
				return nil
			}
		}

		if resp.NextPage == 0 {
			return nil
		}
		opts.Page = resp.NextPage
	}
}

// GetPullRequestMergeable fetches a single pull request for its mergeable
// flag, which list responses never carry. Nil means upstream has not
// computed it yet.
func (c *Client) GetPullRequestMergeable(ctx context.Context, owner, name string, number int) (*bool, error) {
	endpoint := fmt.Sprintf("GET /repos/%s/%s/pulls/%d", owner, name, number)
	pr, _, err := call(ctx, c, endpoint, func(ctx context.Context) (*github.PullRequest, *github.Response, error) {
		return c.gh.PullRequests.Get(ctx, owner, name, number)
	})
	if err != nil {
		return nil, err
	}
	return pr.Mergeable, nil
}

// ListCommits fetches up to limit of the most recent commits, optionally only those after since.
func (c *Client) ListCommits(ctx context.Context, owner, name string, since time.Time, limit int) ([]model.Commit, error) {
	endpoint := fmt.Sprintf("GET /repos/%s/%s/commits", owner, name)
	perPage := c.perPage
	if limit > 0 && limit < perPage {
		perPage = limit
	}
	opts := &github.CommitsListOptions{
		Since:       since,
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var allCommits []model.Commit
	for {
		c.logger.Debug("Fetching commits page", "owner", owner, "repo", name, "page", opts.Page)
		commits, resp, err := call(ctx, c, endpoint, func(ctx context.Context) ([]*github.RepositoryCommit, *github.Response, error) {
			return c.gh.Repositories.ListCommits(ctx, owner, name, opts)
		})
		if err != nil {
			return nil, err
		}

		for _, commit := range commits {
			allCommits = append(allCommits, toInternalCommit(commit))
			if limit > 0 && len(allCommits) >= limit {
				return allCommits, nil
			}
		}

		if resp.NextPage == 0 {
			return allCommits, nil
		}
		opts.Page = resp.NextPage
	}
}

// GetReadme fetches and decodes the repository README. A repository without
// a README yields nil and no error.
func (c *Client) GetReadme(ctx context.Context, owner, name string) (*model.Readme, error) {
	endpoint := fmt.Sprintf("GET /repos/%s/%s/readme", owner, name)
	content, _, err := call(ctx, c, endpoint, func(ctx context.Context) (*github.RepositoryContent, *github.Response, error) {
		return c.gh.Repositories.GetReadme(ctx, owner, name, nil)
	})
	if err != nil {
		var upErr *custom_errors.UpstreamError
		if errors.As(err, &upErr) && upErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return toInternalReadme(content)
}

// call runs fn with a per-attempt timeout, retrying transient failures with
// exponential backoff. Returned errors are classified into the error taxonomy.
func call[T any](ctx context.Context, c *Client, endpoint string, fn func(context.Context) (T, *github.Response, error)) (T, *github.Response, error) {
	var resp *github.Response
	attempt := 0

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxInterval = 8 * c.retryInterval

	v, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		v, r, err := fn(callCtx)
		resp = r
		if err == nil {
			return v, nil
		}

		classified := classify(endpoint, r, err)
		if ctx.Err() != nil || !retryable(classified) {
			return v, backoff.Permanent(classified)
		}
		c.logger.Warn("Transient upstream failure", "endpoint", endpoint, "attempt", attempt, "error", classified)
		return v, classified
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(c.maxRetries)))

	return v, resp, err
}

// classify maps go-github and transport errors onto QuotaExceededError or UpstreamError.
func classify(endpoint string, resp *github.Response, err error) error {
	var quotaErr *custom_errors.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return quotaErr
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		reset := rateErr.Rate.Reset.Time
		return &custom_errors.QuotaExceededError{
			Remaining:  rateErr.Rate.Remaining,
			ResetAt:    reset,
			RetryAfter: time.Until(reset),
		}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		retryAfter := abuseErr.GetRetryAfter()
		return &custom_errors.QuotaExceededError{
			ResetAt:    time.Now().Add(retryAfter),
			RetryAfter: retryAfter,
		}
	}

	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}
	return &custom_errors.UpstreamError{Endpoint: endpoint, StatusCode: status, Err: err}
}

func retryable(err error) bool {
	var upErr *custom_errors.UpstreamError
	if !errors.As(err, &upErr) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	return upErr.StatusCode == 0 || upErr.StatusCode >= http.StatusInternalServerError
}
