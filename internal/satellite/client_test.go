package satellite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/warkadguard/riskwatch/internal/models"
)

func testClient(url string) *Client {
	return NewClient(url, ClientConfig{
		APIKey:          "secret",
		Collection:      "COPERNICUS/S2",
		MaxCloudPercent: 20,
		Timeout:         2 * time.Second,
		MaxRetries:      2,
		RetryDelayBase:  time.Millisecond,
	})
}

var (
	adama = models.Location{Name: "Adama", Latitude: 8.55, Longitude: 39.27}
	start = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
)

func TestFetchNDVI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ndvi" {
			t.Errorf("Expected path /ndvi, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("start") != "2026-10-12" || q.Get("end") != "2026-10-19" {
			t.Errorf("Unexpected range: %s..%s", q.Get("start"), q.Get("end"))
		}
		if q.Get("max_cloud") != "20" || q.Get("collection") != "COPERNICUS/S2" {
			t.Errorf("Unexpected filters: %s", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("Missing auth header")
		}
		_, _ = w.Write([]byte(`{"ndvi":0.4213,"scene_id":"S2A_1","cloud_percent":3.2}`))
	}))
	defer server.Close()

	v, err := testClient(server.URL).FetchNDVI(context.Background(), adama, start, end)
	if err != nil {
		t.Fatalf("FetchNDVI failed: %v", err)
	}
	if v == nil || *v != 0.4213 {
		t.Errorf("Expected 0.4213, got %v", v)
	}
}

func TestFetchNDVI_NoImagery(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"null ndvi", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"ndvi":null}`)) }},
		{"not found", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			v, err := testClient(server.URL).FetchNDVI(context.Background(), adama, start, end)
			if err != nil {
				t.Fatalf("Expected missing signal, got error %v", err)
			}
			if v != nil {
				t.Errorf("Expected nil NDVI, got %f", *v)
			}
		})
	}
}

func TestFetchNDVI_Errors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	if _, err := testClient(server.URL).FetchNDVI(context.Background(), adama, start, end); err == nil {
		t.Fatal("Expected error after retries")
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", calls.Load())
	}
}

func TestFetchNDVI_OutOfRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ndvi":3.5}`))
	}))
	defer server.Close()

	if _, err := testClient(server.URL).FetchNDVI(context.Background(), adama, start, end); err == nil {
		t.Fatal("Expected error for out-of-range NDVI")
	}
}
