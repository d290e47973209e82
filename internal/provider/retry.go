package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/driftloop/mailcore/internal/domain"
)

const (
	maxAttempts        = 3
	baseBackoff        = 500 * time.Millisecond
	errorPreviewLength = 100
)

// doWithRetry executes one provider call, retrying transport errors and
// 5xx responses up to maxAttempts times with exponential backoff, and
// honoring the provider's Retry-After header on 429 responses before
// falling back to the same exponential schedule (spec.md §4.2, §8).
func (c *Client) doWithRetry(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := c.do(ctx, method, path, body)
		if err != nil {
			lastErr = &domain.ErrProvider{Kind: domain.ProviderErrorTransport, Message: err.Error(), Err: err}
			if !c.backoffBeforeRetry(ctx, attempt, 0) {
				return lastErr
			}
			continue
		}

		retryAfter, classified := c.classify(resp)
		if classified == nil {
			if out != nil {
				defer resp.Body.Close()
				if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
					return fmt.Errorf("decode provider response: %w", err)
				}
			} else {
				resp.Body.Close()
			}
			return nil
		}
		resp.Body.Close()
		lastErr = classified

		if !classified.Retryable() {
			return lastErr
		}
		if !c.backoffBeforeRetry(ctx, attempt, retryAfter) {
			return lastErr
		}
	}
	return lastErr
}

// classify turns a response's status code into a classified provider
// error, or nil for a 2xx. A 429 carries the server's own Retry-After
// duration when present.
func (c *Client) classify(resp *http.Response) (time.Duration, *domain.ErrProvider) {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return 0, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorPreviewLength))
	preview := string(body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return parseRetryAfter(resp.Header.Get("Retry-After")), &domain.ErrProvider{
			Kind: domain.ProviderErrorRateLimited, StatusCode: resp.StatusCode, Message: preview,
		}
	case resp.StatusCode >= 500:
		return 0, &domain.ErrProvider{Kind: domain.ProviderErrorServer, StatusCode: resp.StatusCode, Message: preview}
	case resp.StatusCode >= 400:
		return 0, &domain.ErrProvider{Kind: domain.ProviderErrorClient, StatusCode: resp.StatusCode, Message: preview}
	default:
		return 0, &domain.ErrProvider{Kind: domain.ProviderErrorParse, StatusCode: resp.StatusCode, Message: preview}
	}
}

// backoffBeforeRetry sleeps before the next attempt and reports whether
// a retry should be attempted at all (false on the final attempt or a
// cancelled context).
func (c *Client) backoffBeforeRetry(ctx context.Context, attempt int, retryAfter time.Duration) bool {
	if attempt >= maxAttempts-1 {
		return false
	}

	wait := retryAfter
	if wait <= 0 {
		wait = time.Duration(math.Pow(2, float64(attempt))) * baseBackoff
	}

	c.logger.WithField("attempt", attempt+1).WithField("wait_ms", wait.Milliseconds()).Warn("retrying provider request")

	select {
	case <-ctx.Done():
		return false
	case <-time.After(wait):
		return true
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}
