//go:build integration
// +build integration

package testhelpers

import (
	"os"
	"testing"
	"time"

	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/client"
	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/storage"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	APIKey      string
	APIURL      string
	DatabaseURL string
	City        string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips the test if WEATHER_API_KEY is not set; individual tests also need
// TEST_DATABASE_URL for storage-backed scenarios.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	apiURL := os.Getenv("WEATHER_API_URL")
	if apiURL == "" {
		apiURL = "https://api.openweathermap.org/data/2.5/weather"
	}

	city := os.Getenv("WEATHER_CITY")
	if city == "" {
		city = "Buffalo"
	}

	return IntegrationTestConfig{
		APIKey:      apiKey,
		APIURL:      apiURL,
		DatabaseURL: os.Getenv("TEST_DATABASE_URL"),
		City:        city,
	}
}

// SetupIntegrationClient creates a weather client for integration tests.
func SetupIntegrationClient(t *testing.T, cfg IntegrationTestConfig) client.WeatherFetcher {
	c, err := client.NewOpenWeatherClient(cfg.APIKey, cfg.APIURL, 5*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	return c
}

// SetupIntegrationStore opens a Postgres store against TEST_DATABASE_URL and
// ensures the schema. Skips when the database is not configured.
func SetupIntegrationStore(t *testing.T, cfg IntegrationTestConfig) *storage.PostgresStore {
	if cfg.DatabaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	store, err := storage.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
