// Package provider talks to the access-control vendor's web backend: an
// authenticated, cookie-based session with a login endpoint and a movement
// search endpoint.
package provider

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"carpark-status-backend/config"
	"carpark-status-backend/internal/model"
)

var (
	// ErrAuthenticationFailed means the provider rejected the credentials.
	ErrAuthenticationFailed = errors.New("provider authentication failed")
	// ErrSessionExpired means the session died twice within one fetch.
	ErrSessionExpired = errors.New("provider session expired")
)

// Client maintains an authenticated session against the provider. It is
// either unauthenticated or holds a valid cookie set; a detected expiry
// resets it to unauthenticated. Not safe for concurrent use: the ingestion
// job is single-flight and is the only caller.
type Client struct {
	cfg           *config.ProviderConfig
	loc           *time.Location
	client        *http.Client
	authenticated bool
}

// NewClient creates an unauthenticated provider client. loc is the
// provider's wall-clock timezone, used for both search ranges and
// timestamp parsing.
func NewClient(cfg *config.ProviderConfig, loc *time.Location) *Client {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: invalid proxy URL %q: %v. Provider client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	jar, _ := cookiejar.New(nil)
	return &Client{
		cfg: cfg,
		loc: loc,
		client: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
		},
	}
}

// loginResponse carries the provider's error field; a non-empty value means
// the login was rejected even on HTTP 200.
type loginResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Login establishes a session: an unauthenticated priming request first so
// the provider hands out its session cookies, then the credential POST with
// the password sent as its SHA-256 digest. The cookie jar is replaced
// wholesale, so nothing accumulates across re-logins.
func (c *Client) Login(ctx context.Context) error {
	jar, _ := cookiejar.New(nil)
	c.client.Jar = jar
	c.authenticated = false

	if c.cfg.LoginPagePath != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+c.cfg.LoginPagePath, nil)
		if err != nil {
			return fmt.Errorf("failed to create login page request: %w", err)
		}
		c.applyHeaders(req)
		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("login page request failed: %w", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	form := url.Values{}
	form.Set("id", c.cfg.Username)
	form.Set("pw", hashPassword(c.cfg.Password))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+c.cfg.LoginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.applyHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: login returned status %d", ErrAuthenticationFailed, resp.StatusCode)
	}

	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err == nil && lr.Error != "" {
		msg := lr.Error
		if lr.Message != "" {
			msg = lr.Message
		}
		return fmt.Errorf("%w: %s", ErrAuthenticationFailed, msg)
	}

	c.authenticated = true
	return nil
}

// FetchMovements retrieves movement records in [start, end]. It logs in
// first when unauthenticated. A response that looks like the provider's
// login page means the session expired: the client re-authenticates and
// retries exactly once; a second expiry in the same call is a hard failure.
func (c *Client) FetchMovements(ctx context.Context, start, end time.Time) ([]model.MovementEvent, error) {
	return c.fetchMovements(ctx, start, end, false)
}

func (c *Client) fetchMovements(ctx context.Context, start, end time.Time, retried bool) ([]model.MovementEvent, error) {
	if !c.authenticated {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	body, err := c.search(ctx, start, end)
	if err != nil {
		return nil, err
	}

	if c.looksLikeLoginPage(body) {
		if retried {
			c.authenticated = false
			return nil, ErrSessionExpired
		}
		log.Printf("provider: session expired, re-authenticating")
		c.authenticated = false
		return c.fetchMovements(ctx, start, end, true)
	}

	events, err := NormalizeMovements(body, c.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse movement response: %w", err)
	}
	return events, nil
}

func (c *Client) search(ctx context.Context, start, end time.Time) ([]byte, error) {
	form := url.Values{}
	form.Set("startDate", start.In(c.loc).Format("2006-01-02 15:04:05"))
	form.Set("endDate", end.In(c.loc).Format("2006-01-02 15:04:05"))
	form.Set("searchType", "ALL")
	form.Set("rows", fmt.Sprintf("%d", c.cfg.RowLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+c.cfg.SearchPath, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.applyHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	return body, nil
}

// looksLikeLoginPage detects a session-expired response: HTML carrying the
// provider's login form marker instead of data.
func (c *Client) looksLikeLoginPage(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || (trimmed[0] != '<') {
		return false
	}
	return bytes.Contains(trimmed, []byte(c.cfg.LoginMarker))
}

func (c *Client) applyHeaders(req *http.Request) {
	for key, value := range c.cfg.Headers {
		req.Header.Set(key, value)
	}
}

func hashPassword(pw string) string {
	sum := sha256.Sum256([]byte(pw))
	return hex.EncodeToString(sum[:])
}
