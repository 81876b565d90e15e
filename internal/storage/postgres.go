package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/models"
	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/observability"
)

const (
	defaultMaxOpenConns = 5
	defaultMaxIdleConns = 2
	defaultConnLifetime = time.Hour
	defaultPingTimeout  = 5 * time.Second
)

// PostgresStore appends weather records to the weather table. It owns the
// process's single long-lived connection pool; no other component touches
// the database. The database server must already be running and reachable
// via the DSN; this process never manages its lifecycle.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a pgx/stdlib backed pool and validates the
// connection. An unreachable database at boot is a fatal configuration
// failure, so the ping error is returned to the caller.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("storage: empty DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), defaultPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// EnsureSchema creates the weather table when absent. Safe to call on every
// process start; it never drops or alters existing data.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS weather (
			id         BIGSERIAL PRIMARY KEY,
			city       TEXT NOT NULL,
			temperature DOUBLE PRECISION NOT NULL,
			humidity   INTEGER NOT NULL,
			wind_speed DOUBLE PRECISION NOT NULL,
			weather    TEXT NOT NULL,
			timestamp  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("storage: ensure schema: %w", err)
	}
	return nil
}

// Insert appends exactly one row. No upsert, no dedupe: each successful
// cycle is an independent log entry. The observation timestamp is assigned
// by the database at insertion time and scanned back along with the id.
func (s *PostgresStore) Insert(ctx context.Context, rec *models.WeatherRecord) error {
	const query = `
		INSERT INTO weather (city, temperature, humidity, wind_speed, weather, timestamp)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, timestamp
	`
	start := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		rec.City,
		rec.TemperatureCelsius,
		rec.HumidityPercent,
		rec.WindSpeedMPS,
		rec.WeatherCondition,
	).Scan(&rec.ID, &rec.ObservedAt)
	observability.InsertDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("storage: insert: %w", err)
	}
	observability.RecordsInsertedTotal.Inc()
	return nil
}

// Ping reports connection health for the /health endpoint.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
