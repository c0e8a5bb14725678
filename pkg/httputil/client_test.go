package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wonny/twscan/pkg/config"
	"github.com/wonny/twscan/pkg/logger"
)

func testClient() *Client {
	cfg := &config.Config{Env: "development", LogLevel: "error"}
	return New(cfg, logger.Nop())
}

func TestNew(t *testing.T) {
	client := testClient()

	if client.httpClient == nil {
		t.Fatal("Expected http.Client to be initialized")
	}
	if client.httpClient.Timeout != 30*time.Second {
		t.Errorf("Expected fallback timeout 30s, got %v", client.httpClient.Timeout)
	}
	if client.retryConfig.MaxRetries != 3 {
		t.Errorf("Expected MaxRetries=3, got %d", client.retryConfig.MaxRetries)
	}
}

func TestNew_SourceTimeout(t *testing.T) {
	cfg := &config.Config{Source: config.SourceConfig{Timeout: 7 * time.Second}}
	client := New(cfg, logger.Nop())

	if client.httpClient.Timeout != 7*time.Second {
		t.Errorf("Expected timeout=7s, got %v", client.httpClient.Timeout)
	}
}

func TestNewWithTimeout(t *testing.T) {
	cfg := &config.Config{}
	client := NewWithTimeout(cfg, logger.Nop(), 5*time.Second)

	if client.httpClient.Timeout != 5*time.Second {
		t.Errorf("Expected timeout=5s, got %v", client.httpClient.Timeout)
	}
}

func TestWithRetry(t *testing.T) {
	client := testClient().WithRetry(5, 2*time.Second)

	if client.retryConfig.MaxRetries != 5 {
		t.Errorf("Expected MaxRetries=5, got %d", client.retryConfig.MaxRetries)
	}
	if client.retryConfig.InitialDelay != 2*time.Second {
		t.Errorf("Expected InitialDelay=2s, got %v", client.retryConfig.InitialDelay)
	}
}

func TestDisableRetry(t *testing.T) {
	client := testClient().DisableRetry()

	if client.retryConfig.Enabled {
		t.Error("Expected retry to be disabled")
	}
}

func TestGet_Headers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET request, got %s", r.Method)
		}
		if got := r.Header.Get("User-Agent"); got != DefaultUserAgent {
			t.Errorf("User-Agent = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer abc" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := testClient().WithHeader("Authorization", "Bearer abc")

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GET request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.Error(w, "no such symbol", http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"status":"ok","count":2}`))
	}))
	defer server.Close()

	client := testClient().DisableRetry()

	var out struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}
	if err := client.GetJSON(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("GetJSON failed: %v", err)
	}
	if out.Status != "ok" || out.Count != 2 {
		t.Errorf("unexpected body %+v", out)
	}

	err := client.GetJSON(context.Background(), server.URL+"/missing", &out)
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if serr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d", serr.StatusCode)
	}
}

func TestPostJSON_RetryResendsBody(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"name":"test"}` {
			t.Errorf("attempt %d body = %q", atomic.LoadInt32(&attempts)+1, body)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected Content-Type=application/json, got %s", r.Header.Get("Content-Type"))
		}
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := testClient().WithRetry(2, 10*time.Millisecond)

	resp, err := client.PostJSON(context.Background(), server.URL, map[string]string{"name": "test"})
	if err != nil {
		t.Fatalf("POST request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", resp.StatusCode)
	}
}

func TestRetryOn5xx(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := testClient().WithRetry(3, 10*time.Millisecond)

	resp, err := client.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Request failed after retries: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if n := atomic.LoadInt32(&attempts); n != 3 {
		t.Errorf("Expected 3 attempts, got %d", n)
	}
}

func TestRetry_StopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := testClient().WithRetry(5, time.Second)

	_, err := client.Get(ctx, server.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRetry_HonorsRetryAfter(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`ok`))
	}))
	defer server.Close()

	// backoff alone would outlast the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	body, err := testClient().WithRetry(1, time.Minute).GetBytes(ctx, server.URL)
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("unexpected body %q", body)
	}
}

func TestRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	if _, ok := retryAfter(resp, time.Minute); ok {
		t.Error("missing header must not parse")
	}
	resp.Header.Set("Retry-After", "120")
	if d, ok := retryAfter(resp, time.Minute); !ok || d != time.Minute {
		t.Errorf("expected cap at 1m, got %v %v", d, ok)
	}
	resp.Header.Set("Retry-After", "Wed, 21 Oct 2015 07:28:00 GMT")
	if _, ok := retryAfter(resp, time.Minute); ok {
		t.Error("HTTP-date form is not supported")
	}
	if _, ok := retryAfter(nil, time.Minute); ok {
		t.Error("nil response must not parse")
	}
}

func TestRedactURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://api.telegram.org/bot123456:ABC-def/sendMessage", "https://api.telegram.org/bot***/sendMessage"},
		{"https://query1.finance.yahoo.com/v8/finance/chart/2330.TW?period1=1&period2=2", "https://query1.finance.yahoo.com/v8/finance/chart/2330.TW?redacted"},
		{"https://example.com/bots/list", "https://example.com/bots/list"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.raw)
		if err != nil {
			t.Fatal(err)
		}
		if got := RedactURL(u); got != tt.want {
			t.Errorf("RedactURL(%s) = %s, want %s", tt.raw, got, tt.want)
		}
	}
	if RedactURL(nil) != "" {
		t.Error("nil URL must redact to empty")
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		statusCode int
		want       bool
	}{
		{200, false},
		{201, false},
		{400, false},
		{404, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.statusCode), func(t *testing.T) {
			if got := IsRetryableError(tt.statusCode); got != tt.want {
				t.Errorf("IsRetryableError(%d) = %v, want %v", tt.statusCode, got, tt.want)
			}
		})
	}
}
