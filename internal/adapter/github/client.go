// Package github implements the tracker port against the GitHub Issues REST
// API: label management, issue search with pagination, and the create,
// update, close, and comment operations the reconciler emits.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vibecheck/issuesync/internal/adapter/httpx"
	"github.com/vibecheck/issuesync/internal/domain"
	"github.com/vibecheck/issuesync/internal/render"
	"github.com/vibecheck/issuesync/internal/usecase/reconcile"
)

const (
	defaultBaseURL        = "https://api.github.com"
	defaultTimeout        = 30 * time.Second
	defaultMaxRetries     = 3
	defaultInitialBackoff = 2 * time.Second

	// defaultRequestsPerSecond paces mutating calls well under GitHub's
	// secondary rate limits.
	defaultRequestsPerSecond = 2

	perPage = 100
)

// nextLinkRe extracts the rel="next" URL from a Link header.
var nextLinkRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

// Client is an HTTP client for the GitHub Issues API, scoped to one
// repository. It implements reconcile.Tracker.
type Client struct {
	token      string
	owner      string
	repo       string
	baseURL    string
	httpClient *http.Client
	retryConf  httpx.RetryConfig
	limiter    *rate.Limiter
}

// NewClient creates a client for the given repository. The token is a
// personal access token or the GITHUB_TOKEN provided by Actions.
func NewClient(token, owner, repo string) *Client {
	return &Client{
		token:      token,
		owner:      owner,
		repo:       repo,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retryConf: httpx.RetryConfig{
			MaxRetries:     defaultMaxRetries,
			InitialBackoff: defaultInitialBackoff,
			MaxBackoff:     32 * time.Second,
			Multiplier:     2.0,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), 1),
	}
}

// SetBaseURL sets a custom base URL (for testing and GitHub Enterprise).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimSuffix(url, "/")
}

// SetTimeout sets the HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// SetMaxRetries sets the maximum number of retry attempts.
func (c *Client) SetMaxRetries(maxRetries int) {
	c.retryConf.MaxRetries = maxRetries
}

// SetInitialBackoff sets the initial backoff duration for retries.
func (c *Client) SetInitialBackoff(backoff time.Duration) {
	c.retryConf.InitialBackoff = backoff
}

// SetRequestsPerSecond adjusts the client-side pacing of API calls.
func (c *Client) SetRequestsPerSecond(rps float64) {
	c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// do executes one API call with pacing and retry, decoding a JSON response
// into out when out is non-nil. It returns the response headers of the final
// attempt so callers can follow pagination links.
func (c *Client) do(ctx context.Context, method, url string, reqBody, out any) (http.Header, error) {
	var jsonData []byte
	if reqBody != nil {
		var err error
		jsonData, err = json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var header http.Header
	err := httpx.RetryWithBackoff(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var body io.Reader
		if jsonData != nil {
			body = bytes.NewReader(jsonData)
		}
		req, reqErr := http.NewRequestWithContext(ctx, method, url, body)
		if reqErr != nil {
			return &httpx.Error{
				Type:      httpx.ErrTypeUnknown,
				Message:   reqErr.Error(),
				Retryable: false,
				Service:   serviceName,
			}
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if jsonData != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, callErr := c.httpClient.Do(req)
		if callErr != nil {
			return &httpx.Error{
				Type:      httpx.ErrTypeTimeout,
				Message:   callErr.Error(),
				Retryable: true,
				Service:   serviceName,
			}
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			bodyBytes, readErr := io.ReadAll(resp.Body)
			if readErr != nil {
				return &httpx.Error{
					Type:       httpx.ErrTypeUnknown,
					Message:    fmt.Sprintf("HTTP %d (failed to read response: %v)", resp.StatusCode, readErr),
					StatusCode: resp.StatusCode,
					Retryable:  resp.StatusCode >= 500,
					Service:    serviceName,
				}
			}
			return mapHTTPError(resp, bodyBytes)
		}

		header = resp.Header
		if out != nil {
			if decErr := json.NewDecoder(resp.Body).Decode(out); decErr != nil {
				return &httpx.Error{
					Type:      httpx.ErrTypeUnknown,
					Message:   fmt.Sprintf("failed to parse response: %v", decErr),
					Retryable: false,
					Service:   serviceName,
				}
			}
		}
		return nil
	}, c.retryConf)

	return header, err
}

func nextLink(header http.Header) string {
	if header == nil {
		return ""
	}
	m := nextLinkRe.FindStringSubmatch(header.Get("Link"))
	if m == nil {
		return ""
	}
	return m[1]
}

// EnsureLabels creates any of the given labels the repository is missing.
// Existing labels are left untouched, including their colors.
func (c *Client) EnsureLabels(ctx context.Context, specs []render.LabelSpec) error {
	existing := make(map[string]bool)
	url := fmt.Sprintf("%s/repos/%s/%s/labels?per_page=%d", c.baseURL, c.owner, c.repo, perPage)
	for url != "" {
		var page []apiLabel
		header, err := c.do(ctx, http.MethodGet, url, nil, &page)
		if err != nil {
			return fmt.Errorf("listing labels: %w", err)
		}
		for _, label := range page {
			existing[label.Name] = true
		}
		url = nextLink(header)
	}

	for _, spec := range specs {
		if existing[spec.Name] {
			continue
		}
		createURL := fmt.Sprintf("%s/repos/%s/%s/labels", c.baseURL, c.owner, c.repo)
		req := apiLabel{Name: spec.Name, Color: spec.Color, Description: spec.Description}
		if _, err := c.do(ctx, http.MethodPost, createURL, req, nil); err != nil {
			// Lost race with a concurrent run; the label exists either way.
			var httpErr *httpx.Error
			if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnprocessableEntity {
				continue
			}
			return fmt.Errorf("creating label %q: %w", spec.Name, err)
		}
	}
	return nil
}

// SearchIssuesByLabel returns every issue carrying all the given labels, in
// both states, with metadata recovered from the hidden body markers. Pull
// requests are excluded.
func (c *Client) SearchIssuesByLabel(ctx context.Context, labels []string) ([]domain.ExistingIssue, error) {
	var issues []domain.ExistingIssue
	url := fmt.Sprintf("%s/repos/%s/%s/issues?state=all&labels=%s&per_page=%d",
		c.baseURL, c.owner, c.repo, strings.Join(labels, ","), perPage)
	for url != "" {
		var page []apiIssue
		header, err := c.do(ctx, http.MethodGet, url, nil, &page)
		if err != nil {
			return nil, err
		}
		for _, item := range page {
			if item.PullRequest != nil {
				continue
			}
			issue := domain.ExistingIssue{
				Number: item.Number,
				State:  domain.IssueState(item.State),
				Title:  item.Title,
			}
			for _, label := range item.Labels {
				issue.Labels = append(issue.Labels, label.Name)
			}
			if meta, ok := render.ParseIssueMetadata(item.Body); ok {
				issue.Metadata = &meta
			}
			issues = append(issues, issue)
		}
		url = nextLink(header)
	}
	return issues, nil
}

// CreateIssue opens a new issue and returns its number.
func (c *Client) CreateIssue(ctx context.Context, req reconcile.CreateRequest) (int, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/issues", c.baseURL, c.owner, c.repo)
	var created apiIssue
	_, err := c.do(ctx, http.MethodPost, url, createIssueRequest{
		Title:     req.Title,
		Body:      req.Body,
		Labels:    req.Labels,
		Assignees: req.Assignees,
	}, &created)
	if err != nil {
		return 0, err
	}
	return created.Number, nil
}

// UpdateIssue refreshes an issue's title, body, and labels.
func (c *Client) UpdateIssue(ctx context.Context, req reconcile.UpdateRequest) error {
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d", c.baseURL, c.owner, c.repo, req.Number)
	_, err := c.do(ctx, http.MethodPatch, url, updateIssueRequest{
		Title:  req.Title,
		Body:   req.Body,
		Labels: req.Labels,
	}, nil)
	return err
}

// CloseIssue closes an issue, posting the comment first when one is given.
func (c *Client) CloseIssue(ctx context.Context, number int, comment string) error {
	if comment != "" {
		if err := c.AddIssueComment(ctx, number, comment); err != nil {
			return err
		}
	}
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d", c.baseURL, c.owner, c.repo, number)
	_, err := c.do(ctx, http.MethodPatch, url, updateIssueRequest{State: "closed"}, nil)
	return err
}

// AddIssueComment posts a comment on an issue.
func (c *Client) AddIssueComment(ctx context.Context, number int, body string) error {
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.baseURL, c.owner, c.repo, number)
	_, err := c.do(ctx, http.MethodPost, url, createCommentRequest{Body: body}, nil)
	return err
}
