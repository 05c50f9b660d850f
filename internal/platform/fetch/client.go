// Package fetch issues GET requests against bibliographic providers and
// turns every failure into an absence signal after bounded retries.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"bookenrich/internal/metrics"
	"bookenrich/internal/platform/logger"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 4 << 20

// RetryPolicy controls backoff between attempts:
// delay = BaseDelay * 2^retry + rand[0, MaxJitter).
type RetryPolicy struct {
	BaseDelay  time.Duration
	MaxRetries int
	MaxJitter  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:  600 * time.Millisecond,
		MaxRetries: 4,
		MaxJitter:  250 * time.Millisecond,
	}
}

// Backoff returns the wait before retry number n (0-based).
func (p RetryPolicy) Backoff(n int) time.Duration {
	d := p.BaseDelay << uint(n)
	if p.MaxJitter > 0 {
		d += time.Duration(rand.Int64N(int64(p.MaxJitter)))
	}
	return d
}

type Options struct {
	// Name identifies the upstream in logs, metrics and the breaker.
	Name          string
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
	Retry         RetryPolicy
	// BreakerFailures opens the breaker after that many consecutive
	// exhausted fetches. Zero disables the breaker.
	BreakerFailures uint32
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
	Metrics         *metrics.Registry
	Logger          *logger.Logger
}

type Client struct {
	name       string
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	retry      RetryPolicy
	breaker    *gobreaker.CircuitBreaker[bool]
	metrics    *metrics.Registry
	log        *logger.Logger
}

func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	c := &Client{
		name:       opts.Name,
		httpClient: httpClient,
		userAgent:  opts.UserAgent,
		retry:      opts.Retry,
		metrics:    opts.Metrics,
		log:        log.With("client", opts.Name),
	}
	if opts.RatePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	if opts.BreakerFailures > 0 {
		c.breaker = c.newBreaker(opts.BreakerFailures, opts.BreakerCooldown)
	}
	return c
}

func (c *Client) newBreaker(failures uint32, cooldown time.Duration) *gobreaker.CircuitBreaker[bool] {
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	c.metrics.SetBreakerState(c.name, 0)
	return gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        c.name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state change", "from", from.String(), "to", to.String())
			switch to {
			case gobreaker.StateOpen:
				c.metrics.SetBreakerState(name, 2)
			case gobreaker.StateHalfOpen:
				c.metrics.SetBreakerState(name, 1)
			default:
				c.metrics.SetBreakerState(name, 0)
			}
		},
	})
}

// ErrUnavailable marks an absence caused by the provider rather than the
// data: transient failures outlasted the retry budget or the breaker is
// open. Callers must not treat it as a definitive "no match".
var ErrUnavailable = errors.New("provider unavailable")

// GetJSON fetches url and decodes a 2xx body into target. It reports false
// when the resource is absent. The error is nil for terminal statuses,
// malformed JSON and a cancelled context, and wraps ErrUnavailable when
// retries ran out or the breaker rejected the call.
func (c *Client) GetJSON(ctx context.Context, url string, target any) (bool, error) {
	if ctx.Err() != nil {
		return false, nil
	}
	if c.breaker == nil {
		ok, err := c.get(ctx, url, target)
		if err != nil {
			c.log.Warn("fetch gave up", "url", url, "error", err)
			return false, fmt.Errorf("%s: %w: %w", c.name, ErrUnavailable, err)
		}
		return ok, nil
	}
	ok, err := c.breaker.Execute(func() (bool, error) {
		return c.get(ctx, url, target)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.log.Debug("fetch rejected by breaker", "url", url)
		} else {
			c.log.Warn("fetch gave up", "url", url, "error", err)
		}
		return false, fmt.Errorf("%s: %w: %w", c.name, ErrUnavailable, err)
	}
	return ok, nil
}

// get returns an error only when transient failures exhausted the retry
// budget, which is what the breaker counts as a failure.
func (c *Client) get(ctx context.Context, url string, target any) (bool, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			if !sleep(ctx, c.retry.Backoff(attempt-1)) {
				return false, nil
			}
			c.metrics.FetchRetry(c.name)
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return false, nil
			}
		}

		body, status, err := c.do(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return false, nil
			}
			c.metrics.FetchAttempt(c.name, "error")
			lastErr = err
			continue
		}
		c.metrics.FetchAttempt(c.name, strconv.Itoa(status))

		switch {
		case status >= 200 && status < 300:
			if err := json.Unmarshal(body, target); err != nil {
				c.log.Debug("malformed json", "url", url, "error", err)
				return false, nil
			}
			return true, nil
		case Retryable(status):
			lastErr = fmt.Errorf("unexpected status code: %d", status)
		default:
			c.log.Debug("terminal status", "url", url, "status", status)
			return false, nil
		}
	}
	return false, fmt.Errorf("after %d retries: %w", c.retry.MaxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// Retryable reports whether a status is worth another attempt.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
