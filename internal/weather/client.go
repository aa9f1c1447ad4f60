// Package weather fetches point weather observations from an
// OpenWeatherMap-compatible current-weather endpoint.
//
// Requests are retried on transport and 5xx errors and wrapped in a circuit
// breaker so that a provider outage fails each kebele fast instead of
// stalling the pass.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/warkadguard/riskwatch/internal/logger"
	"github.com/warkadguard/riskwatch/internal/models"
)

// ClientConfig holds retry and breaker settings
type ClientConfig struct {
	Timeout        time.Duration
	MaxRetries     int
	RetryDelayBase time.Duration
	BreakerTimeout time.Duration
}

// Client provides access to the weather API
type Client struct {
	apiBaseURL     string
	apiKey         string
	httpClient     *http.Client
	breaker        *gobreaker.CircuitBreaker
	maxRetries     int
	retryDelayBase time.Duration
}

// currentResponse is the subset of the current-weather payload we use
type currentResponse struct {
	Main *struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Dt int64 `json:"dt"`
}

// NewClient creates a new weather client
func NewClient(apiBaseURL, apiKey string, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "weather",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker %s changed from %s to %s", name, from, to)
		},
	}

	return &Client{
		apiBaseURL:     apiBaseURL,
		apiKey:         apiKey,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		breaker:        gobreaker.NewCircuitBreaker(settings),
		maxRetries:     cfg.MaxRetries,
		retryDelayBase: cfg.RetryDelayBase,
	}
}

// FetchWeather returns the current observation at a point. A successful
// response without a "main" block yields (nil, nil): the signal is missing,
// not failed.
func (c *Client) FetchWeather(ctx context.Context, lat, lon float64) (*models.WeatherSnapshot, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	endpoint := fmt.Sprintf("%s/weather?%s", c.apiBaseURL, q.Encode())

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, endpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch weather at (%.4f,%.4f): %w", lat, lon, err)
	}

	var resp currentResponse
	if err := json.Unmarshal(result.([]byte), &resp); err != nil {
		return nil, fmt.Errorf("failed to decode weather: %w", err)
	}
	if resp.Main == nil {
		return nil, nil
	}

	observed := time.Now().UTC()
	if resp.Dt > 0 {
		observed = time.Unix(resp.Dt, 0).UTC()
	}

	snap := &models.WeatherSnapshot{
		Temperature:   resp.Main.Temp,
		Humidity:      resp.Main.Humidity,
		Precipitation: resp.Rain.OneHour,
		ObservedAt:    observed,
	}
	logger.Debug("Weather at (%.4f,%.4f): temp=%.1f°C humidity=%.0f%% rain=%.1fmm",
		lat, lon, snap.Temperature, snap.Humidity, snap.Precipitation)
	return snap, nil
}

// doRequest performs HTTP request with retry logic
func (c *Client) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelayBase * time.Duration(i)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("client error: %d", resp.StatusCode)
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
