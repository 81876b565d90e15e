package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/client"
	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/models"
	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/normalize"
	"github.com/yuva-raja-reddy/city-weather-collector-db/internal/observability"
)

// Fetcher retrieves the raw current observation for a city.
type Fetcher interface {
	GetCurrentWeather(ctx context.Context, city string) (models.RawObservation, error)
}

// Store appends canonical records.
type Store interface {
	Insert(ctx context.Context, rec *models.WeatherRecord) error
}

// Status is a snapshot of loop progress for the health endpoint.
type Status struct {
	LastAttempt  time.Time
	LastSuccess  time.Time
	LastError    string
	CyclesOK     uint64
	CyclesFailed uint64
}

// Collector drives fetch → normalize → persist at a fixed interval.
// Cycles run strictly sequentially; every cycle error is contained at the
// cycle boundary so one bad API response or database hiccup never stops
// future collection. Only the scheduler's timer survives between cycles.
type Collector struct {
	fetcher      Fetcher
	store        Store
	city         string
	interval     time.Duration
	cycleTimeout time.Duration
	logger       *zap.Logger

	sched *gocron.Scheduler
	wg    sync.WaitGroup

	mu     sync.Mutex
	status Status
}

func New(fetcher Fetcher, store Store, city string, interval, cycleTimeout time.Duration, logger *zap.Logger) *Collector {
	return &Collector{
		fetcher:      fetcher,
		store:        store,
		city:         city,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		logger:       logger,
	}
}

// Start schedules the collection job and returns. The cadence is fixed
// cycle-start to cycle-start: cycle duration eats into the idle gap.
// Singleton mode skips a tick rather than overlapping when a cycle outruns
// the interval, keeping the single-worker model.
func (c *Collector) Start() error {
	if c.interval <= 0 {
		return fmt.Errorf("collector: interval must be positive, got %s", c.interval)
	}

	c.sched = gocron.NewScheduler(time.UTC)
	c.sched.SingletonModeAll()

	if _, err := c.sched.Every(c.interval).StartImmediately().Do(c.runScheduled); err != nil {
		return fmt.Errorf("collector: schedule job: %w", err)
	}

	c.sched.StartAsync()
	c.logger.Info("collection loop started",
		zap.String("city", c.city),
		zap.Duration("interval", c.interval))
	return nil
}

// Stop halts scheduling and waits for an in-flight cycle to finish, so
// shutdown takes effect at the tick boundary and never tears a write.
func (c *Collector) Stop() {
	if c.sched != nil {
		c.sched.Stop()
	}
	c.wg.Wait()
	c.logger.Info("collection loop stopped")
}

// Status returns a copy of loop progress counters.
func (c *Collector) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Collector) runScheduled() {
	c.wg.Add(1)
	defer c.wg.Done()

	cycleID := uuid.New().String()
	logger := c.logger.With(zap.String("cycle_id", cycleID), zap.String("city", c.city))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("cycle panic recovered", zap.Any("panic", r))
			observability.CollectionCyclesTotal.WithLabelValues("panic").Inc()
			c.recordFailure(fmt.Sprintf("panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), c.cycleTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, "correlation_id", cycleID)

	start := time.Now()
	err := c.RunCycle(ctx)
	observability.CycleDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		logger.Warn("cycle failed; will retry at next tick", zap.Error(err))
		c.recordFailure(err.Error())
		return
	}

	logger.Info("cycle complete", zap.Duration("duration", time.Since(start)))
	c.recordSuccess()
}

// RunCycle executes one fetch → normalize → persist pass. Any step error
// aborts the cycle before the next step runs; a record that fails
// normalization never reaches the store.
func (c *Collector) RunCycle(ctx context.Context) error {
	raw, err := c.fetcher.GetCurrentWeather(ctx, c.city)
	if err != nil {
		category := client.CategorizeError(err)
		observability.CollectionCyclesTotal.WithLabelValues("fetch_" + string(category)).Inc()
		return fmt.Errorf("fetch: %w", err)
	}

	rec, err := normalize.Normalize(raw, c.city)
	if err != nil {
		observability.CollectionCyclesTotal.WithLabelValues("transform_error").Inc()
		return fmt.Errorf("normalize: %w", err)
	}

	if err := c.store.Insert(ctx, &rec); err != nil {
		observability.CollectionCyclesTotal.WithLabelValues("storage_error").Inc()
		return fmt.Errorf("persist: %w", err)
	}

	observability.CollectionCyclesTotal.WithLabelValues("success").Inc()
	observability.LastSuccessfulCollection.Set(float64(rec.ObservedAt.Unix()))
	return nil
}

func (c *Collector) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	c.status.LastAttempt = now
	c.status.LastSuccess = now
	c.status.LastError = ""
	c.status.CyclesOK++
}

func (c *Collector) recordFailure(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.LastAttempt = time.Now()
	c.status.LastError = msg
	c.status.CyclesFailed++
}
