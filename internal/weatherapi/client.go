package weatherapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/gridline/raceweather/internal/domain"
	"github.com/gridline/raceweather/internal/observability"
)

// DefaultBaseURL is the provider's hourly forecast lookup endpoint.
const DefaultBaseURL = "https://weather.googleapis.com/v1/forecast/hours:lookup"

// StatusError is a non-200 provider response. 429 and the transient 5xx
// statuses are retryable; every other status aborts the fetch immediately.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.Code)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	switch e.Code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Client fetches hourly forecasts from the provider, following pagination
// and retrying transient failures with exponential backoff. A token-bucket
// limiter paces page requests so a long pagination chain cannot burst
// through the provider's quota.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *observability.Metrics

	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration
}

// NewClient creates a forecast provider client. rps and burst configure the
// request pacing; timeout bounds each page request.
func NewClient(apiKey string, timeout time.Duration, rps float64, burst int, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(rps), burst),
		logger:      logger,
		metrics:     metrics,
		maxAttempts: 3,
		backoffBase: time.Second,
		backoffCap:  10 * time.Second,
	}
}

// requestURL builds a page request for the given coordinates. The API key
// and coordinates ride as query parameters; pageToken is added for
// continuation pages.
func (c *Client) requestURL(lat, lon float64, pageToken string) string {
	params := url.Values{
		"key":                {c.apiKey},
		"location.latitude":  {strconv.FormatFloat(lat, 'f', -1, 64)},
		"location.longitude": {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	return c.baseURL + "?" + params.Encode()
}

// FetchForecast retrieves the full hourly forecast for a coordinate pair,
// accumulating pages until the provider stops returning a nextPageToken.
// Any page failing permanently aborts the whole fetch; pages already
// accumulated are discarded so callers never see a partial forecast.
func (c *Client) FetchForecast(ctx context.Context, lat, lon float64) ([]domain.ForecastHour, error) {
	var hours []domain.ForecastHour
	pageToken := ""

	for page := 1; ; page++ {
		resp, err := c.fetchPage(ctx, c.requestURL(lat, lon, pageToken))
		if err != nil {
			return nil, fmt.Errorf("fetch forecast page %d: %w", page, err)
		}

		for _, h := range resp.ForecastHours {
			hours = append(hours, h.toDomain())
		}

		if resp.NextPageToken == "" {
			return hours, nil
		}
		pageToken = resp.NextPageToken
	}
}

// fetchPage performs one page request with retries: up to maxAttempts on
// connection failures, timeouts, and retryable statuses, sleeping with
// exponential backoff between attempts.
func (c *Client) fetchPage(ctx context.Context, fullURL string) (*forecastResponse, error) {
	backoff := c.backoffBase
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			c.metrics.ForecastRetries.Inc()
			c.logger.Warn("retrying forecast request", "attempt", attempt, "error", lastErr)
			if !sleepWithContext(ctx, backoff) {
				return nil, ctx.Err()
			}
			backoff = nextBackoff(backoff, c.backoffCap)
		}

		resp, err := c.doRequest(ctx, fullURL)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (*forecastResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ProviderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ForecastRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		c.metrics.ForecastRequests.WithLabelValues("error").Inc()
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var page forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		c.metrics.ForecastRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode forecast response: %w", err)
	}

	c.metrics.ForecastRequests.WithLabelValues("success").Inc()
	return &page, nil
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
