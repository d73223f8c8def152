package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/qepting91/undercurrent/internal/config"
)

// Fetcher issues single throttled GETs with bounded retry on 429.
// Spacing between successive calls is the caller's job (see the limiter in
// Orchestrator); the fetcher only handles the rate-limit backoff.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	backoff    time.Duration
	maxRetries int
}

func NewFetcher(cfg config.Config) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		userAgent:  cfg.UserAgent,
		backoff:    cfg.RateLimitBackoff,
		maxRetries: cfg.MaxRetries,
	}
}

// GetJSON performs one GET and decodes the response body into out.
// A 429 response is retried after a fixed backoff, up to MaxRetries
// attempts in total; exhausting the budget returns ErrRateLimited.
// Context cancellation aborts mid-request and mid-wait.
func (f *Fetcher) GetJSON(ctx context.Context, url string, out any) error {
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, f.backoff); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return &NetworkError{URL: url, Err: err}
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &NetworkError{URL: url, Err: err}
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return &HTTPError{Status: resp.StatusCode, URL: url}
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return &NetworkError{URL: url, Err: err}
		}
		return nil
	}
	return ErrRateLimited
}

// sleep waits d or until ctx is cancelled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
