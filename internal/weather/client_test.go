package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/warkadguard/riskwatch/internal/models"
)

func testClient(url string) *Client {
	return NewClient(url, "test-key", ClientConfig{
		Timeout:        2 * time.Second,
		MaxRetries:     3,
		RetryDelayBase: time.Millisecond,
	})
}

func TestFetchWeather(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather" {
			t.Errorf("Expected path /weather, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("lat") != "8.55" || q.Get("lon") != "39.27" {
			t.Errorf("Unexpected coordinates: %s,%s", q.Get("lat"), q.Get("lon"))
		}
		if q.Get("units") != "metric" || q.Get("appid") != "test-key" {
			t.Errorf("Unexpected query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"main":{"temp":25.3,"humidity":81},"rain":{"1h":0.4},"dt":1792396800}`))
	}))
	defer server.Close()

	snap, err := testClient(server.URL).FetchWeather(context.Background(), 8.55, 39.27)
	if err != nil {
		t.Fatalf("FetchWeather failed: %v", err)
	}
	if snap == nil {
		t.Fatal("Expected snapshot, got nil")
	}
	if snap.Temperature != 25.3 || snap.Humidity != 81 || snap.Precipitation != 0.4 {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
	if snap.ObservedAt.Unix() != 1792396800 {
		t.Errorf("Unexpected observation time: %v", snap.ObservedAt)
	}
}

func TestFetchWeather_NoRainDefaultsToZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"main":{"temp":18,"humidity":40}}`))
	}))
	defer server.Close()

	snap, err := testClient(server.URL).FetchWeather(context.Background(), 1, 2)
	if err != nil || snap == nil {
		t.Fatalf("FetchWeather failed: %v", err)
	}
	if snap.Precipitation != 0 {
		t.Errorf("Expected zero rain, got %f", snap.Precipitation)
	}
}

func TestFetchWeather_MissingMainIsMissingSignal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cod":200}`))
	}))
	defer server.Close()

	snap, err := testClient(server.URL).FetchWeather(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if snap != nil {
		t.Errorf("Expected nil snapshot, got %+v", snap)
	}
}

func TestFetchWeather_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"main":{"temp":22,"humidity":75}}`))
	}))
	defer server.Close()

	snap, err := testClient(server.URL).FetchWeather(context.Background(), 1, 2)
	if err != nil || snap == nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 calls, got %d", calls.Load())
	}
}

func TestFetchWeather_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	if _, err := testClient(server.URL).FetchWeather(context.Background(), 1, 2); err == nil {
		t.Fatal("Expected error for 401")
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 call, got %d", calls.Load())
	}
}

func TestCacheKey(t *testing.T) {
	if got := cacheKey(8.55, 39.27); got != "weather:8.5500,39.2700" {
		t.Errorf("Unexpected cache key %s", got)
	}
}

type countingSource struct {
	calls int
}

func (s *countingSource) FetchWeather(context.Context, float64, float64) (*models.WeatherSnapshot, error) {
	s.calls++
	return &models.WeatherSnapshot{Temperature: 24, Humidity: 72}, nil
}

// Requires a running Redis; set REDIS_ADDR to enable.
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	client.Del(ctx, cacheKey(1.5, 2.5))

	inner := &countingSource{}
	cache := NewRedisCache(inner, client, time.Minute)

	for i := 0; i < 3; i++ {
		snap, err := cache.FetchWeather(ctx, 1.5, 2.5)
		if err != nil || snap == nil || snap.Humidity != 72 {
			t.Fatalf("FetchWeather failed: %v, %+v", err, snap)
		}
	}
	if inner.calls != 1 {
		t.Errorf("Expected 1 upstream call, got %d", inner.calls)
	}
}
