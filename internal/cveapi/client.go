package cveapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"cvelib/internal/domain"
	xlog "cvelib/internal/log"
	"cvelib/internal/platform/httpx"
	"cvelib/internal/version"
)

// Header names used by CVE Services for authentication.
const (
	HeaderAPIKey  = "CVE-API-KEY"
	HeaderAPIOrg  = "CVE-API-ORG"
	HeaderAPIUser = "CVE-API-USER"
)

// DefaultEnv is used when no environment is configured.
const DefaultEnv = "prod"

// Environments maps environment names to CVE Services base URLs.
var Environments = map[string]string{
	"prod": "https://cveawg.mitre.org/api/",
	"dev":  "https://cveawg-dev.mitre.org/api/",
	"test": "https://cveawg-test.mitre.org/api/",
}

// EnvNames returns the known environment names, sorted.
func EnvNames() []string {
	names := make([]string, 0, len(Environments))
	for name := range Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveURL returns apiURL if set, otherwise the base URL of env. The result
// always ends with a slash so relative paths resolve beneath it.
func ResolveURL(env, apiURL string) (string, error) {
	u := strings.TrimSpace(apiURL)
	if u == "" {
		if env == "" {
			env = DefaultEnv
		}
		u = Environments[env]
	}
	if u == "" {
		return "", fmt.Errorf("%w (environment %q)", ErrMissingURL, env)
	}
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u, nil
}

// Options configures a Client.
type Options struct {
	Username string
	Org      string
	APIKey   string
	Env      string
	URL      string

	HTTP           *http.Client
	Timeout        time.Duration
	UserAgent      string
	RateLimit      rate.Limit
	RateLimitBurst int
	MaxRetries     int
	Backoff        time.Duration
	MaxBackoff     time.Duration
	Logger         *zerolog.Logger
}

const (
	defaultRateLimit      = 5
	defaultRateLimitBurst = 10
	defaultRetries        = 2
	defaultBackoff        = 500 * time.Millisecond
	defaultMaxBackoff     = 8 * time.Second
	maxRetryAfter         = 60 * time.Second
	maxErrorBody          = 1 << 20
)

func normalizeOptions(opts Options) Options {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultRetries
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = version.UserAgent()
	}
	return opts
}

// Client talks to CVE Services on behalf of one user of one organization.
type Client struct {
	base       *url.URL
	username   string
	org        string
	apiKey     string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
	userAgent  string
	logger     zerolog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// New builds a Client. It fails only if no base URL can be resolved.
//
// A negative MaxRetries disables retries; zero selects the default.
func New(opts Options) (*Client, error) {
	raw, err := ResolveURL(opts.Env, opts.URL)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid CVE API URL %q: %w", raw, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid CVE API URL %q: scheme and host are required", raw)
	}

	nopts := normalizeOptions(opts)
	hc := nopts.HTTP
	if hc == nil {
		hc = httpx.NewClient(nopts.Timeout)
	}
	logger := xlog.WithComponent("cveapi")
	if nopts.Logger != nil {
		logger = nopts.Logger.With().Str(xlog.FieldComponent, "cveapi").Logger()
	}

	return &Client{
		base:       base,
		username:   nopts.Username,
		org:        nopts.Org,
		apiKey:     nopts.APIKey,
		http:       hc,
		limiter:    rate.NewLimiter(nopts.RateLimit, nopts.RateLimitBurst),
		maxRetries: nopts.MaxRetries,
		backoff:    nopts.Backoff,
		maxBackoff: nopts.MaxBackoff,
		userAgent:  nopts.UserAgent,
		logger:     logger,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter only
	}, nil
}

// request describes one API call.
type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	noRetry bool
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", path, err)
	}
	u := c.base.ResolveReference(ref)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set(HeaderAPIKey, c.apiKey)
	req.Header.Set(HeaderAPIOrg, c.org)
	req.Header.Set(HeaderAPIUser, c.username)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

// do performs r and decodes a successful JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, r request, out any) error {
	rawURL, err := c.resolve(r.path, r.query)
	if err != nil {
		return err
	}

	var payload []byte
	if r.body != nil {
		payload, err = json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", r.method, r.path, err)
		}
	}

	resp, err := c.send(ctx, r, rawURL, payload)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(r.method, rawURL, resp, body)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", r.method, r.path, err)
	}
	return nil
}

// send runs the attempt loop. It returns the first response that should not be
// retried; the caller owns its body.
func (c *Client) send(ctx context.Context, r request, rawURL string, payload []byte) (*http.Response, error) {
	maxAttempts := 1
	if !r.noRetry && idempotent(r.method) {
		maxAttempts = c.maxRetries + 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, rawURL, body)
		if err != nil {
			return nil, err
		}
		c.applyHeaders(req)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.http.Do(req)
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		c.logger.Debug().
			Str(xlog.FieldMethod, r.method).
			Str(xlog.FieldPath, r.path).
			Int(xlog.FieldStatus, status).
			Int(xlog.FieldAttempt, attempt).
			Dur(xlog.FieldDuration, time.Since(start)).
			Msg("cve api request")

		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == maxAttempts || !shouldRetry(resp, err) {
			if err != nil {
				return nil, fmt.Errorf("cve api %s %s: %w", r.method, rawURL, err)
			}
			return resp, nil
		}

		wait := c.backoffFor(attempt - 1)
		if resp != nil {
			if ra, ok := retryAfter(resp); ok {
				wait = ra
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
		lastErr = err
		c.logger.Info().
			Str(xlog.FieldMethod, r.method).
			Str(xlog.FieldPath, r.path).
			Int(xlog.FieldStatus, status).
			Dur("wait", wait).
			Msg("retrying cve api request")
		if err := sleepWithContext(ctx, wait); err != nil {
			return nil, err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return nil, lastErr
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut:
		return true
	}
	return false
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil || resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return resp.StatusCode >= http.StatusInternalServerError
}

func retryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		d := time.Duration(secs) * time.Second
		if d > maxRetryAfter {
			d = maxRetryAfter
		}
		return d, true
	}
	if at, err := http.ParseTime(v); err == nil {
		d := time.Until(at)
		if d < 0 {
			d = 0
		}
		if d > maxRetryAfter {
			d = maxRetryAfter
		}
		return d, true
	}
	return 0, false
}

func (c *Client) backoffFor(attempt int) time.Duration {
	wait := c.backoff * time.Duration(1<<attempt)
	if wait > c.maxBackoff {
		wait = c.maxBackoff
	}
	jitter := time.Duration(c.randInt63n(int64(wait/5 + 1)))
	return wait + jitter
}

func (c *Client) randInt63n(n int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rnd.Int63n(n)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, query: query}, out)
}

func (c *Client) post(ctx context.Context, path string, query url.Values, in, out any) error {
	return c.do(ctx, request{method: http.MethodPost, path: path, query: query, body: in}, out)
}

func (c *Client) put(ctx context.Context, path string, query url.Values, in, out any) error {
	return c.do(ctx, request{method: http.MethodPut, path: path, query: query, body: in}, out)
}

// Ping checks the API health endpoint. It returns nil when the API is up and
// the request error otherwise.
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "health-check", nil, nil)
}

var _ domain.API = (*Client)(nil)
