package provider

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// RawExchange captures one completed provider round trip for the append-only
// raw store.
type RawExchange struct {
	Endpoint   string
	Params     SearchParams
	StatusCode int
	Body       []byte
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *RateLimiter
	retry      RetryConfig
	logger     *logrus.Logger

	// OnRetry, when set, is invoked once per retried attempt.
	OnRetry func()
}

func NewClient(baseURL, apiKey string, timeout time.Duration, limiter *RateLimiter, retry RetryConfig, logger *logrus.Logger) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
		retry:   retry,
		logger:  logger,
	}
}

// Search performs one flight query without retries. The returned RawExchange
// is populated whenever a response body was read, even on provider errors,
// so the caller can still archive the exchange.
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResponse, *RawExchange, error) {
	requestURL := c.baseURL + "?" + params.QueryValues().Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	// The key travels as a query parameter on the actual wire request only.
	// It is appended here, after the loggable URL was built.
	q := req.URL.Query()
	q.Set("api_key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")

	c.logger.WithFields(logrus.Fields{
		"event": "api.request",
		"route": params.SearchTerm(),
		"type":  params.FlightType,
	}).Debug("Calling flight provider")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, &TransientError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &TransientError{StatusCode: resp.StatusCode, Cause: err}
	}

	exchange := &RawExchange{
		Endpoint:   c.baseURL,
		Params:     params,
		StatusCode: resp.StatusCode,
		Body:       body,
	}

	c.logger.WithFields(logrus.Fields{
		"event":         "api.response",
		"status_code":   resp.StatusCode,
		"response_size": len(body),
	}).Debug("Provider response received")

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, exchange, &TransientError{
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("provider returned %d", resp.StatusCode),
		}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, exchange, &PermanentError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	var response SearchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, exchange, &PermanentError{StatusCode: resp.StatusCode, Body: "unparseable response body"}
	}
	if response.Error != "" {
		return nil, exchange, &PermanentError{StatusCode: resp.StatusCode, Body: response.Error}
	}

	return &response, exchange, nil
}

// NewSearchID builds the identifier structured rows are keyed by.
func NewSearchID(params SearchParams, now time.Time) string {
	sum := md5.Sum([]byte(params.SearchTerm() + now.Format(time.RFC3339Nano)))
	return fmt.Sprintf("search_%s_%s", now.Format("20060102_150405"), hex.EncodeToString(sum[:])[:12])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
