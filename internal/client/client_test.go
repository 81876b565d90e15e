package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewOpenWeatherClient_InvalidAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		wantErr error
	}{
		{
			name:    "empty API key",
			apiKey:  "",
			wantErr: ErrInvalidAPIKey,
		},
		{
			name:    "too short API key",
			apiKey:  "short",
			wantErr: ErrInvalidAPIKey,
		},
		{
			name:    "valid API key",
			apiKey:  "valid-api-key-12345",
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewOpenWeatherClient(tt.apiKey, "https://api.test.com", 2*time.Second)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("NewOpenWeatherClient() expected error, got nil")
				}
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("NewOpenWeatherClient() error = %v, want %v", err, tt.wantErr)
				}
				if c != nil {
					t.Errorf("NewOpenWeatherClient() expected nil client on error")
				}
			} else {
				if err != nil {
					t.Fatalf("NewOpenWeatherClient() unexpected error: %v", err)
				}
				if c == nil {
					t.Fatalf("NewOpenWeatherClient() expected client, got nil")
				}
			}
		})
	}
}

func TestOpenWeatherClient_GetCurrentWeather_Success(t *testing.T) {
	apiResp := map[string]interface{}{
		"name": "Buffalo",
		"main": map[string]interface{}{
			"temp":     295.71,
			"humidity": 50,
		},
		"weather": []map[string]interface{}{
			{
				"main":        "Clear",
				"description": "clear sky",
			},
		},
		"wind": map[string]interface{}{
			"speed": 2.5,
		},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if !strings.Contains(r.URL.RawQuery, "q=Buffalo") {
			t.Errorf("expected city in query, got %s", r.URL.RawQuery)
		}
		if !strings.Contains(r.URL.RawQuery, "appid=") {
			t.Errorf("expected API key in query")
		}
		if strings.Contains(r.URL.RawQuery, "units=") {
			t.Errorf("expected no units parameter (values must arrive in Kelvin), got %s", r.URL.RawQuery)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(apiResp)
	}))
	defer server.Close()

	c, err := NewOpenWeatherClient("test-api-key-12345", server.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	raw, err := c.GetCurrentWeather(context.Background(), "Buffalo")
	if err != nil {
		t.Fatalf("GetCurrentWeather() error = %v", err)
	}

	if raw.Main == nil || raw.Main.TempKelvin == nil {
		t.Fatal("expected main.temp to be decoded")
	}
	if *raw.Main.TempKelvin != 295.71 {
		t.Errorf("main.temp = %v, want 295.71", *raw.Main.TempKelvin)
	}
	if raw.Main.Humidity == nil || *raw.Main.Humidity != 50 {
		t.Errorf("main.humidity = %v, want 50", raw.Main.Humidity)
	}
	if raw.Wind == nil || raw.Wind.Speed == nil || *raw.Wind.Speed != 2.5 {
		t.Errorf("wind.speed = %v, want 2.5", raw.Wind)
	}
	if len(raw.Weather) == 0 || raw.Weather[0].Main != "Clear" {
		t.Errorf("weather[0].main = %v, want Clear", raw.Weather)
	}
	if raw.Name != "Buffalo" {
		t.Errorf("name = %q, want Buffalo", raw.Name)
	}
}

func TestOpenWeatherClient_GetCurrentWeather_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrInvalidAPIKey},
		{"not found", http.StatusNotFound, ErrLocationNotFound},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"internal server error", http.StatusInternalServerError, ErrUpstreamFailure},
		{"bad gateway", http.StatusBadGateway, ErrUpstreamFailure},
		{"service unavailable", http.StatusServiceUnavailable, ErrUpstreamFailure},
		{"teapot", http.StatusTeapot, ErrUpstreamFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			c, err := NewOpenWeatherClient("test-api-key-12345", server.URL, 2*time.Second)
			if err != nil {
				t.Fatalf("NewOpenWeatherClient() error = %v", err)
			}

			_, err = c.GetCurrentWeather(context.Background(), "Buffalo")
			if err == nil {
				t.Fatal("GetCurrentWeather() expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("GetCurrentWeather() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenWeatherClient_GetCurrentWeather_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"main": {"temp": not-a-number`))
	}))
	defer server.Close()

	c, err := NewOpenWeatherClient("test-api-key-12345", server.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	_, err = c.GetCurrentWeather(context.Background(), "Buffalo")
	if err == nil {
		t.Fatal("GetCurrentWeather() expected error for malformed JSON, got nil")
	}
	if !strings.Contains(err.Error(), "parse response") {
		t.Errorf("error = %v, want parse response error", err)
	}
}

func TestOpenWeatherClient_GetCurrentWeather_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close() // refuse connections

	c, err := NewOpenWeatherClient("test-api-key-12345", serverURL, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	_, err = c.GetCurrentWeather(context.Background(), "Buffalo")
	if err == nil {
		t.Fatal("GetCurrentWeather() expected error for refused connection, got nil")
	}
}

func TestOpenWeatherClient_GetCurrentWeather_SingleAttempt(t *testing.T) {
	// Retry policy belongs to the collection loop (the next tick is the
	// retry), so a failing call must hit the provider exactly once.
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c, err := NewOpenWeatherClient("test-api-key-12345", server.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	_, err = c.GetCurrentWeather(context.Background(), "Buffalo")
	if err == nil {
		t.Fatal("GetCurrentWeather() expected error, got nil")
	}
	if calls != 1 {
		t.Errorf("provider called %d times, want exactly 1", calls)
	}
}

func TestOpenWeatherClient_GetCurrentWeather_CorrelationIDHeader(t *testing.T) {
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Correlation-ID")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c, err := NewOpenWeatherClient("test-api-key-12345", server.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}

	ctx := context.WithValue(context.Background(), "correlation_id", "cycle-abc-123")
	if _, err := c.GetCurrentWeather(ctx, "Buffalo"); err != nil {
		t.Fatalf("GetCurrentWeather() error = %v", err)
	}
	if gotHeader != "cycle-abc-123" {
		t.Errorf("X-Correlation-ID = %q, want cycle-abc-123", gotHeader)
	}
}

func TestOpenWeatherClient_ValidateAPIKey(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
		wantIs     error
	}{
		{"valid key", http.StatusOK, false, nil},
		{"unauthorized", http.StatusUnauthorized, true, ErrInvalidAPIKey},
		{"server error", http.StatusInternalServerError, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(`{}`))
			}))
			defer server.Close()

			c, err := NewOpenWeatherClient("test-api-key-12345", server.URL, 2*time.Second)
			if err != nil {
				t.Fatalf("NewOpenWeatherClient() error = %v", err)
			}

			err = c.ValidateAPIKey(context.Background())
			if tt.wantErr && err == nil {
				t.Fatal("ValidateAPIKey() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("ValidateAPIKey() unexpected error: %v", err)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("ValidateAPIKey() error = %v, want %v", err, tt.wantIs)
			}
		})
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "success"},
		{204, "success"},
		{429, "rate_limited"},
		{404, "client_error"},
		{500, "server_error"},
		{100, "error"},
	}
	for _, tt := range tests {
		if got := statusLabel(tt.code); got != tt.want {
			t.Errorf("statusLabel(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
