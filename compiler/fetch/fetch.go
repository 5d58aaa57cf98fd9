// Package fetch retrieves ontology type documents over HTTP.
//
// A Fetcher retries a bounded number of times with a linearly growing delay.
// A non-2xx response abandons the attempt and schedules the next one. A
// network failure is retried unless it happened on the final attempt, in which
// case it is returned. What happens when every attempt returned a bad status is
// decided by the Policy.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/syssam/typegen"
	"github.com/syssam/typegen/typesystem"
)

// Policy decides the outcome of a fetch whose attempts all returned a non-2xx status.
type Policy int

const (
	// PolicyFailLoud returns a *typegen.FetchError carrying the last status.
	PolicyFailLoud Policy = iota
	// PolicyFailQuiet returns a nil document and a nil error.
	PolicyFailQuiet
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyFailLoud:
		return "loud"
	case PolicyFailQuiet:
		return "quiet"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses "loud" or "quiet". The empty string selects PolicyFailLoud.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "loud":
		return PolicyFailLoud, nil
	case "quiet":
		return PolicyFailQuiet, nil
	default:
		return 0, fmt.Errorf("fetch: unknown policy %q; use loud or quiet", s)
	}
}

// Defaults used by New.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 100 * time.Millisecond
)

// Fetcher fetches type documents. It is safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	attempts int
	delay    time.Duration
	timeout  time.Duration
	policy   Policy
	cache    typegen.Cache
	cacheTTL time.Duration
	rewrite  func(string) string
	limiter  *rate.Limiter
	logger   *slog.Logger
	sleep    func(context.Context, time.Duration) error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMaxAttempts sets the number of attempts. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.attempts = n
		}
	}
}

// WithBaseDelay sets the delay unit; attempt i waits i times this value.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d >= 0 {
			f.delay = d
		}
	}
}

// WithRequestTimeout bounds each individual request. Zero means no bound
// beyond the caller's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithPolicy sets the exhaustion policy.
func WithPolicy(p Policy) Option {
	return func(f *Fetcher) { f.policy = p }
}

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithCache consults c before the network and fills it after a successful
// fetch. A ttl of 0 stores entries without expiry.
func WithCache(c typegen.Cache, ttl time.Duration) Option {
	return func(f *Fetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// WithURLRewrite maps a type URL to the URL actually requested. The type
// keeps its original identifier.
func WithURLRewrite(fn func(string) string) Option {
	return func(f *Fetcher) { f.rewrite = fn }
}

// WithRateLimit spaces requests to at most perSecond, allowing bursts of
// burst requests. Retries count against the limit. A non-positive rate
// removes the limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(f *Fetcher) {
		if perSecond <= 0 {
			f.limiter = nil
			return
		}
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// New returns a Fetcher with 3 attempts, a 100ms base delay and the
// fail-loud policy, modified by opts.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   http.DefaultClient,
		attempts: DefaultMaxAttempts,
		delay:    DefaultBaseDelay,
		policy:   PolicyFailLoud,
		logger:   slog.Default(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the decoded JSON document published at typeURL.
func (f *Fetcher) Fetch(ctx context.Context, typeURL string) (map[string]any, error) {
	if body := f.cached(ctx, typeURL); body != nil {
		doc, err := typesystem.Decode(body)
		if err == nil {
			f.logger.Debug("fetch: cache hit", "url", typeURL)
			return doc, nil
		}
		f.logger.Warn("fetch: dropping undecodable cache entry", "url", typeURL, "error", err)
	}

	target := typeURL
	if f.rewrite != nil {
		target = f.rewrite(typeURL)
	}

	var status int
	for i := 0; i < f.attempts; i++ {
		if err := f.sleep(ctx, time.Duration(i)*f.delay); err != nil {
			return nil, typegen.NewFetchError(typeURL, i, status, err)
		}
		body, code, err := f.do(ctx, target)
		if err != nil {
			if ctx.Err() != nil || i == f.attempts-1 {
				return nil, typegen.NewFetchError(typeURL, i+1, status, err)
			}
			f.logger.Debug("fetch: request failed, retrying", "url", target, "attempt", i+1, "error", err)
			continue
		}
		if code < 200 || code > 299 {
			status = code
			f.logger.Debug("fetch: bad status, retrying", "url", target, "attempt", i+1, "status", code)
			continue
		}
		doc, err := typesystem.Decode(body)
		if err != nil {
			return nil, typegen.NewFetchError(typeURL, i+1, code, err)
		}
		f.store(ctx, typeURL, body)
		return doc, nil
	}

	if f.policy == PolicyFailQuiet {
		f.logger.Warn("fetch: giving up", "url", target, "attempts", f.attempts, "status", status)
		return nil, nil
	}
	return nil, typegen.NewFetchError(typeURL, f.attempts, status, nil)
}

func (f *Fetcher) do(ctx context.Context, target string) ([]byte, int, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func (f *Fetcher) cached(ctx context.Context, key string) []byte {
	if f.cache == nil {
		return nil
	}
	body, err := f.cache.Get(ctx, key)
	if err != nil {
		f.logger.Warn("fetch: cache read failed", "url", key, "error", err)
		return nil
	}
	return body
}

func (f *Fetcher) store(ctx context.Context, key string, body []byte) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Set(ctx, key, body, f.cacheTTL); err != nil {
		f.logger.Warn("fetch: cache write failed", "url", key, "error", err)
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
