// Package registryapi talks to the paginated school-registry source: a
// retrying HTTP client below a sequential page fetcher.
package registryapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// RetryPolicy bounds the exponential backoff applied to transient failures.
type RetryPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxRetries   int
}

// RequestError is returned when a page request fails for good: either the
// retry budget is exhausted or the response is a non-retriable client error.
type RequestError struct {
	Page       int
	StatusCode int
	Attempts   int
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registry request for page %d failed after %d attempt(s): %v", e.Page, e.Attempts, e.Err)
	}
	return fmt.Sprintf("registry request for page %d failed after %d attempt(s): status %d", e.Page, e.Attempts, e.StatusCode)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Client issues single logical page requests with bounded exponential
// backoff. Transient failures (transport errors, 5xx, 429) are retried; other
// client errors fail immediately.
type Client struct {
	http   *resty.Client
	policy RetryPolicy
	logger logrus.FieldLogger

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

func NewClient(baseURL string, policy RetryPolicy, logger logrus.FieldLogger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/ld+json").
		SetTimeout(60 * time.Second)

	return &Client{
		http:   httpClient,
		policy: policy,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// Backoff returns the wait before retry attempt n (0-based):
// min(initialDelay * 2^n, maxDelay).
func (c *Client) Backoff(attempt int) time.Duration {
	d := c.policy.InitialDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= c.policy.MaxDelay {
			return c.policy.MaxDelay
		}
	}
	if d > c.policy.MaxDelay {
		return c.policy.MaxDelay
	}
	return d
}

// GetPage fetches one page of the collection.
func (c *Client) GetPage(ctx context.Context, page int) (*Page, error) {
	for attempt := 0; ; attempt++ {
		c.logger.WithFields(logrus.Fields{
			"page":    page,
			"attempt": attempt + 1,
		}).Debug("requesting registry page")

		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("page", strconv.Itoa(page)).
			Get("")

		switch {
		case err == nil && resp.StatusCode() < 300:
			var parsed Page
			if uErr := json.Unmarshal(resp.Body(), &parsed); uErr != nil {
				return nil, &RequestError{
					Page:       page,
					StatusCode: resp.StatusCode(),
					Attempts:   attempt + 1,
					Err:        errors.Wrap(uErr, "decode page"),
				}
			}
			return &parsed, nil

		case err == nil && !isTransientStatus(resp.StatusCode()):
			return nil, &RequestError{
				Page:       page,
				StatusCode: resp.StatusCode(),
				Attempts:   attempt + 1,
				Err:        errors.Errorf("unexpected status %d", resp.StatusCode()),
			}
		}

		status := 0
		if err == nil {
			status = resp.StatusCode()
		}
		if attempt >= c.policy.MaxRetries {
			return nil, &RequestError{
				Page:       page,
				StatusCode: status,
				Attempts:   attempt + 1,
				Err:        err,
			}
		}

		wait := c.Backoff(attempt)
		c.logger.WithFields(logrus.Fields{
			"page":    page,
			"attempt": attempt + 1,
			"status":  status,
			"wait":    wait.String(),
		}).Warn("transient registry failure, backing off")
		c.sleep(wait)
	}
}

func isTransientStatus(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}
