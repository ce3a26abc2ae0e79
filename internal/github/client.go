package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// rateLimitBuffer is the number of remaining calls below which the client
// blocks until the quota resets.
const rateLimitBuffer = 5

// RateLimitInfo holds information about GitHub API rate limits
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetTime time.Time
}

// Client is a thin client for the GitHub REST API. It attaches the bearer
// token, tracks rate-limit headers across calls, and sleeps until the quota
// reset when the remaining budget drops to the buffer.
type Client struct {
	client    *http.Client
	baseURL   string
	logger    *logrus.Logger
	verbose   bool
	rateLimit RateLimitInfo

	// overridable in tests
	sleep func(time.Duration)
	now   func() time.Time
}

// ClientOption allows configuring the GitHub client
type ClientOption func(*Client)

// WithBaseURL points the client at a different API root (used in tests and
// for GitHub Enterprise installs).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithVerbose enables per-request diagnostic logging.
func WithVerbose(verbose bool) ClientOption {
	return func(c *Client) {
		c.verbose = verbose
	}
}

// NewClient creates a new GitHub client with the given token and options
func NewClient(token string, logger *logrus.Logger, opts ...ClientOption) *Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = 120 * time.Second

	client := &Client{
		client:  httpClient,
		baseURL: "https://api.github.com",
		logger:  logger,
		sleep:   time.Sleep,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// updateRateLimitInfo updates the rate limit information from response headers
func (c *Client) updateRateLimitInfo(resp *http.Response) {
	if limit := resp.Header.Get("X-RateLimit-Limit"); limit != "" {
		c.rateLimit.Limit, _ = strconv.Atoi(limit)
	}
	if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
		c.rateLimit.Remaining, _ = strconv.Atoi(remaining)
	}
	if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if resetTime, err := strconv.ParseInt(reset, 10, 64); err == nil {
			c.rateLimit.ResetTime = time.Unix(resetTime, 0)
		}
	}
}

// checkRateLimit blocks until the quota reset when the remaining budget from
// the previous response is at or below the buffer. No sleep when the reset
// time is unknown or already past.
func (c *Client) checkRateLimit() {
	if c.rateLimit.ResetTime.IsZero() || c.rateLimit.Remaining > rateLimitBuffer {
		return
	}

	waitTime := c.rateLimit.ResetTime.Sub(c.now())
	if waitTime <= 0 {
		return
	}

	c.logger.Warnf("Rate limit nearly exhausted (%d remaining). Waiting %v until reset", c.rateLimit.Remaining, waitTime)
	c.sleep(waitTime)
}

// do performs a JSON round-trip against path. A non-nil body is marshalled
// into the request; a non-nil out receives the decoded response. Statuses
// >= 400 come back as a *GitHubError carrying the API message.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	c.checkRateLimit()

	var reqBody io.Reader
	var bodyLen int
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
		bodyLen = len(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return NewGitHubError(0, "request failed", err)
	}
	defer resp.Body.Close()

	c.updateRateLimitInfo(resp)
	if c.verbose {
		c.logger.Debugf("%s %s (%d byte body) -> %d [remaining=%d reset=%s]",
			method, path, bodyLen, resp.StatusCode, c.rateLimit.Remaining, c.rateLimit.ResetTime.Format(time.RFC3339))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewGitHubError(resp.StatusCode, "failed to read response body", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return NewGitHubError(resp.StatusCode, apiMessage(data), nil)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return NewGitHubError(resp.StatusCode, "failed to decode response", err)
		}
	}

	return nil
}

// apiMessage extracts the "message" field GitHub puts in error payloads,
// falling back to the raw body.
func apiMessage(data []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return string(data)
}
