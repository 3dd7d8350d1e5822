package provider

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// SearchWithRetry runs Search under the rate limiter, retrying transient
// failures with exponential backoff and jitter. The last raw exchange is
// returned even when every attempt failed, so it can still be archived.
func (c *Client) SearchWithRetry(ctx context.Context, params SearchParams) (*SearchResponse, *RawExchange, error) {
	var lastExchange *RawExchange

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, lastExchange, ctx.Err()
		default:
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, lastExchange, err
			}
		}

		response, exchange, err := c.Search(ctx, params)
		if exchange != nil {
			lastExchange = exchange
		}
		if err == nil {
			return response, lastExchange, nil
		}

		if !IsRetryable(err) || attempt == c.retry.MaxRetries {
			if IsRetryable(err) {
				return nil, lastExchange, fmt.Errorf("search failed after %d retries: %w", c.retry.MaxRetries, err)
			}
			return nil, lastExchange, err
		}

		if c.OnRetry != nil {
			c.OnRetry()
		}

		delay := time.Duration(float64(c.retry.BaseDelay) * math.Pow(2, float64(attempt)))
		if delay > c.retry.MaxDelay {
			delay = c.retry.MaxDelay
		}
		// Jitter spreads concurrent retries apart.
		if c.retry.BaseDelay > 0 {
			delay += time.Duration(rand.Int63n(int64(c.retry.BaseDelay)))
		}

		c.logger.WithFields(logrus.Fields{
			"event":   "api.retry",
			"attempt": attempt + 1,
			"delay":   delay,
			"error":   err.Error(),
		}).Warn("Retrying provider search")

		select {
		case <-ctx.Done():
			return nil, lastExchange, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, lastExchange, nil
}
