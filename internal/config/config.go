package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/validation"
)

// Config holds collector configuration loaded from YAML and env. A Config
// that Load returns is fully validated: the pipeline never re-checks these
// values per cycle.
type Config struct {
	ServerPort string

	WeatherAPIKey     string
	WeatherAPIURL     string
	WeatherAPITimeout time.Duration

	// APIRateLimitPerMinute caps outbound provider calls; 0 disables the
	// limiter.
	APIRateLimitPerMinute int

	// ValidateAPIKeyOnStart probes the provider once before the loop
	// starts so a bad key fails the process instead of every cycle.
	ValidateAPIKeyOnStart bool

	City            string
	CollectInterval time.Duration
	CycleTimeout    time.Duration

	DatabaseURL string

	ShutdownTimeout time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL                string `yaml:"url"`
		Timeout            string `yaml:"timeout"`
		RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
		ValidateKeyOnStart *bool  `yaml:"validate_key_on_start"`
	} `yaml:"weather_api"`

	Collector struct {
		City         string `yaml:"city"`
		Interval     string `yaml:"interval"`
		CycleTimeout string `yaml:"cycle_timeout"`
	} `yaml:"collector"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
	DatabaseURL   string `yaml:"database_url"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and
// config/secrets.yaml. Secrets (API key, database URL) come from env
// (WEATHER_API_KEY, DATABASE_URL) or the secrets file, env winning. An
// optional .env file is applied first. Call from project root.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("INFO: error loading .env file: %v", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	var sec secretsFile
	secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
	secretsData, err := os.ReadFile(secretsPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read secrets file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(secretsData, &sec); err != nil {
			return nil, fmt.Errorf("parse secrets file: %w", err)
		}
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.WeatherAPIKey = os.Getenv("WEATHER_API_KEY")
	if cfg.WeatherAPIKey == "" {
		cfg.WeatherAPIKey = sec.WeatherAPIKey
	}
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY required (set env or config/secrets.yaml weather_api_key)")
	}

	cfg.WeatherAPIURL = fc.WeatherAPI.URL
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = "https://api.openweathermap.org/data/2.5/weather"
	}
	cfg.WeatherAPITimeout = parseDuration(fc.WeatherAPI.Timeout, 2*time.Second)
	cfg.APIRateLimitPerMinute = fc.WeatherAPI.RateLimitPerMinute
	cfg.ValidateAPIKeyOnStart = true
	if fc.WeatherAPI.ValidateKeyOnStart != nil {
		cfg.ValidateAPIKeyOnStart = *fc.WeatherAPI.ValidateKeyOnStart
	}

	cfg.City = os.Getenv("WEATHER_CITY")
	if cfg.City == "" {
		cfg.City = fc.Collector.City
	}
	cfg.CollectInterval = parseDuration(fc.Collector.Interval, 10*time.Minute)
	cfg.CycleTimeout = parseDuration(fc.Collector.CycleTimeout, 30*time.Second)

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = sec.DatabaseURL
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fc.Database.URL
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL required (set env, config/secrets.yaml database_url, or database.url)")
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation. The city must pass the same rules
// the fetcher sends upstream; the cycle timeout may never exceed the
// interval or a slow cycle would eat the next tick.
func validate(cfg *Config) error {
	city, err := validation.ValidateCity(cfg.City)
	if err != nil {
		return fmt.Errorf("collector.city: %w", err)
	}
	cfg.City = city

	if cfg.CollectInterval <= 0 {
		return fmt.Errorf("collector.interval must be positive")
	}
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.CycleTimeout > cfg.CollectInterval {
		cfg.CycleTimeout = cfg.CollectInterval
	}
	if cfg.APIRateLimitPerMinute < 0 {
		return fmt.Errorf("weather_api.rate_limit_per_minute must be >= 0")
	}
	return nil
}
