// Package gist is a thin authenticated client over the gist-style
// single-document store used as the remote backing store. It owns retry
// with backoff for transient failures and rate-limit bookkeeping; every
// other failure class propagates immediately to the caller.
package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/markstack/markstack/internal/logger"
	"github.com/markstack/markstack/internal/utils"
)

const (
	// defaultBaseURL targets the public GitHub API.
	defaultBaseURL = "https://api.github.com"

	// rateLimitBuffer is the safety margin: when the observed remaining
	// quota is at or below this, the client waits for reset instead of
	// issuing a request destined to fail.
	rateLimitBuffer = 3
)

// Options defines client behavior. Zero values fall back to defaults.
type Options struct {
	BaseURL          string        // ex: "https://api.github.com"
	Timeout          time.Duration // per-request HTTP timeout (default 15s)
	MaxAttempts      int           // attempt budget for transient failures (default 3)
	InitialBackoff   time.Duration // first retry wait, doubles per attempt (default 1s)
	MaxBackoff       time.Duration // cap on the retry wait (default 8s)
	MaxRateLimitWait time.Duration // longest proactive wait before aborting (default 2m)
}

// Client talks to the remote document store. Safe for concurrent use;
// credential and rate-limit state are guarded by a mutex.
type Client struct {
	http    *http.Client
	baseURL string
	logger  logger.Logger

	maxAttempts      int
	initialBackoff   time.Duration
	maxBackoff       time.Duration
	maxRateLimitWait time.Duration

	// sleep is time.Sleep, replaceable in tests.
	sleep func(time.Duration)

	mu    sync.Mutex
	token string
	rate  RateLimit
}

// New creates a client. No credential is held until Authenticate is called.
func New(opts Options, log logger.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 8 * time.Second
	}
	if opts.MaxRateLimitWait <= 0 {
		opts.MaxRateLimitWait = 2 * time.Minute
	}

	return &Client{
		http:             &http.Client{Timeout: opts.Timeout},
		baseURL:          strings.TrimRight(opts.BaseURL, "/"),
		logger:           log,
		maxAttempts:      opts.MaxAttempts,
		initialBackoff:   opts.InitialBackoff,
		maxBackoff:       opts.MaxBackoff,
		maxRateLimitWait: opts.MaxRateLimitWait,
		sleep:            time.Sleep,
	}
}

// Authenticate stores the bearer credential in memory. Persisting it
// securely is the caller's concern.
func (c *Client) Authenticate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// IsAuthenticated reports whether a credential is currently held.
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

// Logout discards the stored credential.
func (c *Client) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

// RateLimitStatus returns the most recently observed server quota.
func (c *Client) RateLimitStatus() RateLimit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

// listPageSize is the per-page size used when walking the document list.
const listPageSize = 100

// FindDocument searches the authenticated user's documents for the first
// whose description contains marker, walking every page of the listing.
// Returns nil when none matches.
func (c *Client) FindDocument(ctx context.Context, marker string) (*Handle, error) {
	for page := 1; ; page++ {
		path := fmt.Sprintf("/gists?per_page=%d&page=%d", listPageSize, page)
		body, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		var gists []apiGist
		if err := json.Unmarshal(body, &gists); err != nil {
			return nil, &DataIntegrityError{Reason: fmt.Sprintf("document list unreadable: %v", err)}
		}

		for i := range gists {
			if strings.Contains(gists[i].Description, marker) {
				return gists[i].handle(), nil
			}
		}
		if len(gists) < listPageSize {
			return nil, nil
		}
	}
}

// GetDocument fetches the full content of a known document. Oversized
// blobs arrive truncated and are re-fetched from their raw URL.
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	body, err := c.do(ctx, http.MethodGet, "/gists/"+id, nil)
	if err != nil {
		return nil, err
	}

	var g apiGist
	if err := json.Unmarshal(body, &g); err != nil {
		return nil, &DataIntegrityError{Reason: fmt.Sprintf("document %s unreadable: %v", id, err)}
	}

	doc := g.document()
	for name, f := range g.Files {
		if f.Truncated && f.RawURL != "" {
			content, err := c.fetchRaw(ctx, f.RawURL)
			if err != nil {
				return nil, err
			}
			doc.Files[name] = content
		}
	}
	return doc, nil
}

// CreateDocument creates a new secret document with the given named blobs.
func (c *Client) CreateDocument(ctx context.Context, description string, files map[string]string) (*Handle, error) {
	req := apiGistRequest{
		Description: description,
		Public:      false,
		Files:       uploadFiles(files),
	}
	body, err := c.do(ctx, http.MethodPost, "/gists", req)
	if err != nil {
		return nil, err
	}

	var g apiGist
	if err := json.Unmarshal(body, &g); err != nil {
		return nil, &DataIntegrityError{Reason: fmt.Sprintf("create response unreadable: %v", err)}
	}
	return g.handle(), nil
}

// UpdateDocument overwrites the named blobs in an existing document.
// Blobs not named are left untouched (partial update by filename key).
func (c *Client) UpdateDocument(ctx context.Context, id string, files map[string]string) (*Handle, error) {
	req := apiGistRequest{Files: uploadFiles(files)}
	body, err := c.do(ctx, http.MethodPatch, "/gists/"+id, req)
	if err != nil {
		return nil, err
	}

	var g apiGist
	if err := json.Unmarshal(body, &g); err != nil {
		return nil, &DataIntegrityError{Reason: fmt.Sprintf("update response unreadable: %v", err)}
	}
	return g.handle(), nil
}

// DeleteDocument removes the remote document entirely.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/gists/"+id, nil)
	return err
}

func uploadFiles(files map[string]string) map[string]apiFileUpload {
	out := make(map[string]apiFileUpload, len(files))
	for name, content := range files {
		out[name] = apiFileUpload{Content: content}
	}
	return out
}

// do issues one logical request: proactive rate-limit wait, then up to
// maxAttempts tries with exponential backoff for network and 5xx failures.
// Auth, rate-limit and other 4xx failures are terminal on first sight.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		return nil, &AuthError{Reason: "no credential stored"}
	}

	if err := c.waitForQuota(); err != nil {
		return nil, err
	}

	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var lastErr error
	wait := c.initialBackoff

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		body, retryable, err := c.attempt(ctx, method, path, token, reqBody)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}

		lastErr = err
		if attempt < c.maxAttempts {
			c.logger.Warn("transient request failure, retrying",
				logger.String("method", method),
				logger.String("path", path),
				logger.Int("attempt", attempt),
				logger.Duration("next_retry_in", wait),
				logger.Error(err))
			c.sleep(wait)
			wait *= 2
			if wait > c.maxBackoff {
				wait = c.maxBackoff
			}
		}
	}

	return nil, &NetworkError{Err: fmt.Errorf("%s %s failed after %d attempts: %w",
		method, path, c.maxAttempts, lastErr)}
}

// attempt performs a single HTTP exchange. The second return value says
// whether the failure class is worth retrying.
func (c *Client) attempt(ctx context.Context, method, path, token string, reqBody []byte) ([]byte, bool, error) {
	var bodyReader io.Reader = http.NoBody
	if reqBody != nil {
		bodyReader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer utils.Close(resp.Body)

	if rate := parseRateLimit(resp.Header); rate.Known() {
		c.mu.Lock()
		c.rate = rate
		c.mu.Unlock()
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, false, nil

	case resp.StatusCode == http.StatusUnauthorized:
		// Credential invalid or expired: drop it so the caller cannot
		// keep hammering with a dead token.
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		return nil, false, &AuthError{Reason: "credential rejected by server"}

	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return nil, false, &RateLimitError{ResetAt: parseRateLimit(resp.Header).ResetAt}

	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error %d", resp.StatusCode)

	default:
		return nil, false, &APIError{
			StatusCode: resp.StatusCode,
			Message:    apiMessage(body, resp.Status),
		}
	}
}

// waitForQuota sleeps until the reported reset when remaining quota is at
// or below the safety buffer. Waits longer than the configured cap abort
// with a RateLimitError instead of blocking the caller indefinitely.
func (c *Client) waitForQuota() error {
	c.mu.Lock()
	rate := c.rate
	c.mu.Unlock()

	if !rate.Known() || rate.Remaining > rateLimitBuffer {
		return nil
	}

	wait := time.Until(rate.ResetAt)
	if wait <= 0 {
		return nil
	}
	if wait > c.maxRateLimitWait {
		return &RateLimitError{ResetAt: rate.ResetAt}
	}

	c.logger.Warn("rate limit nearly exhausted, waiting for reset",
		logger.Int("remaining", rate.Remaining),
		logger.Duration("wait", wait))
	c.sleep(wait)
	return nil
}

// fetchRaw retrieves a truncated blob from its raw URL.
func (c *Client) fetchRaw(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to build raw request: %w", err)
	}

	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Message: "raw content fetch failed"}
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	return string(content), nil
}

func apiMessage(body []byte, fallback string) string {
	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return fallback
}
