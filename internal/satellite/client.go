// Package satellite fetches scalar NDVI readings for a point and date range
// from an NDVI statistics service. The service selects the least cloudy
// scene in the range below a cloud-cover limit and returns its mean NDVI.
package satellite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/warkadguard/riskwatch/internal/logger"
	"github.com/warkadguard/riskwatch/internal/models"
)

const dateLayout = "2006-01-02"

// ClientConfig holds request and retry settings
type ClientConfig struct {
	APIKey          string
	Collection      string
	MaxCloudPercent float64
	Timeout         time.Duration
	MaxRetries      int
	RetryDelayBase  time.Duration
	BreakerTimeout  time.Duration
}

// Client provides access to the NDVI statistics API
type Client struct {
	apiBaseURL string
	cfg        ClientConfig
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// ndviResponse is the statistics payload. NDVI is null when no
// cloud-free scene exists in the range.
type ndviResponse struct {
	NDVI         *float64 `json:"ndvi"`
	SceneID      string   `json:"scene_id"`
	CloudPercent float64  `json:"cloud_percent"`
}

// NewClient creates a new NDVI client
func NewClient(apiBaseURL string, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if cfg.MaxCloudPercent <= 0 {
		cfg.MaxCloudPercent = 20
	}

	settings := gobreaker.Settings{
		Name:        "satellite",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker %s changed from %s to %s", name, from, to)
		},
	}

	return &Client{
		apiBaseURL: apiBaseURL,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

// FetchNDVI returns the mean NDVI at the location for [start, end), or nil
// when no usable imagery exists. Errors mean the service could not be queried.
func (c *Client) FetchNDVI(ctx context.Context, location models.Location, start, end time.Time) (*float64, error) {
	kebele := location.Name
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(location.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(location.Longitude, 'f', -1, 64))
	q.Set("start", start.Format(dateLayout))
	q.Set("end", end.Format(dateLayout))
	q.Set("max_cloud", strconv.FormatFloat(c.cfg.MaxCloudPercent, 'f', -1, 64))
	if c.cfg.Collection != "" {
		q.Set("collection", c.cfg.Collection)
	}
	endpoint := fmt.Sprintf("%s/ndvi?%s", c.apiBaseURL, q.Encode())

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, endpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch NDVI for %s: %w", kebele, err)
	}

	resp := result.(*ndviResponse)
	if resp == nil || resp.NDVI == nil {
		logger.Info("No cloud-free imagery for %s between %s and %s", kebele, start.Format(dateLayout), end.Format(dateLayout))
		return nil, nil
	}
	if *resp.NDVI < -1 || *resp.NDVI > 1 {
		return nil, fmt.Errorf("NDVI for %s out of range: %f", kebele, *resp.NDVI)
	}

	logger.Debug("%s NDVI from %s to %s: %.4f (scene %s, cloud %.1f%%)",
		kebele, start.Format(dateLayout), end.Format(dateLayout), *resp.NDVI, resp.SceneID, resp.CloudPercent)
	return resp.NDVI, nil
}

// doRequest performs HTTP request with retry logic. A 404 means no scene
// matched and is returned as an empty response.
func (c *Client) doRequest(ctx context.Context, endpoint string) (*ndviResponse, error) {
	var lastErr error

	for i := 0; i < c.cfg.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cfg.RetryDelayBase * time.Duration(i)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return &ndviResponse{}, nil
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("client error: %d", resp.StatusCode)
		}

		var out ndviResponse
		err = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode NDVI response: %w", err)
		}
		return &out, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
