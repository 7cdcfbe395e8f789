// Package syncd runs the background jobs that reconcile the local cache
// with the remote store.
//
// The daemon owns a set of named jobs and drives each on its own ticker:
// the per-family sync workers every 15 minutes, the unpaid-tenants
// notification daily, and the end-of-month rent charge daily (the job itself
// is date-gated). Jobs are registered under unique names and re-registration
// is a no-op, so wiring the daemon twice never double-schedules anything.
//
// Every periodic run is gated on connectivity: if the remote backend is
// unreachable the run is skipped and the next tick retries. A failing run is
// logged and reported through the run counters; the ticker is the retry
// policy - there are no application-level backoff counters.
package syncd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of background work. Run reports overall pass/fail; partial
// progress inside a run is the job's own business.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Config holds daemon settings.
type Config struct {
	// SyncInterval is the cadence of the per-family sync workers.
	SyncInterval time.Duration

	// DailyInterval is the cadence of the daily jobs. Exposed for tests;
	// production leaves the default.
	DailyInterval time.Duration

	// Online gates periodic runs. Nil means always online.
	Online func(ctx context.Context) error

	// OnRunComplete, when set, observes every finished job run. Skipped
	// (offline) runs are not reported.
	OnRunComplete func(job string, err error)

	Logger *zap.Logger
}

// DefaultConfig returns the production cadence.
func DefaultConfig(logger *zap.Logger) *Config {
	return &Config{
		SyncInterval:  15 * time.Minute,
		DailyInterval: 24 * time.Hour,
		Logger:        logger,
	}
}

type scheduledJob struct {
	job      Job
	interval time.Duration
}

// Daemon schedules and runs the registered jobs.
type Daemon struct {
	cfg *Config

	mu   sync.Mutex
	jobs map[string]scheduledJob

	runs     map[string]int
	failures map[string]int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon with no jobs registered.
func New(cfg *Config) *Daemon {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Daemon{
		cfg:      cfg,
		jobs:     make(map[string]scheduledJob),
		runs:     make(map[string]int),
		failures: make(map[string]int),
	}
}

// Register schedules a job at the given interval. Registration is keyed by
// job name: registering the same name again is a no-op.
func (d *Daemon) Register(job Job, interval time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.jobs[job.Name()]; exists {
		d.cfg.Logger.Debug("job already registered", zap.String("job", job.Name()))
		return
	}
	d.jobs[job.Name()] = scheduledJob{job: job, interval: interval}
}

// Start launches one ticker loop per registered job and blocks until ctx is
// cancelled. Each job also runs once immediately on startup.
func (d *Daemon) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	d.mu.Lock()
	if d.cancel != nil {
		d.mu.Unlock()
		cancel()
		return fmt.Errorf("daemon already started")
	}
	d.cancel = cancel
	jobs := make([]scheduledJob, 0, len(d.jobs))
	for _, sj := range d.jobs {
		jobs = append(jobs, sj)
	}
	d.mu.Unlock()

	d.cfg.Logger.Info("sync daemon starting", zap.Int("jobs", len(jobs)))

	for _, sj := range jobs {
		d.wg.Add(1)
		go d.loop(runCtx, sj)
	}

	<-runCtx.Done()
	return d.Stop()
}

// Stop cancels all job loops and waits for them to exit.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
	d.cfg.Logger.Info("sync daemon stopped")
	return nil
}

// loop drives one job: immediately on start, then on every tick.
func (d *Daemon) loop(ctx context.Context, sj scheduledJob) {
	defer d.wg.Done()

	d.runJob(ctx, sj.job)

	ticker := time.NewTicker(sj.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runJob(ctx, sj.job)
		}
	}
}

// runJob executes one run with the connectivity gate applied. A skipped
// (offline) run is not an error.
func (d *Daemon) runJob(ctx context.Context, job Job) error {
	logger := d.cfg.Logger.With(zap.String("job", job.Name()))

	if d.cfg.Online != nil {
		if err := d.cfg.Online(ctx); err != nil {
			logger.Debug("offline, skipping run", zap.Error(err))
			return nil
		}
	}

	start := time.Now()
	err := job.Run(ctx)

	d.mu.Lock()
	d.runs[job.Name()]++
	if err != nil {
		d.failures[job.Name()]++
	}
	d.mu.Unlock()

	if d.cfg.OnRunComplete != nil {
		d.cfg.OnRunComplete(job.Name(), err)
	}

	if err != nil {
		logger.Error("job run failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return err
	}
	logger.Info("job run complete", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// RunAll executes every registered job once, sequentially. Used by the
// one-shot sync command. The first failure is returned but remaining jobs
// still run.
func (d *Daemon) RunAll(ctx context.Context) error {
	d.mu.Lock()
	jobs := make([]scheduledJob, 0, len(d.jobs))
	for _, sj := range d.jobs {
		jobs = append(jobs, sj)
	}
	d.mu.Unlock()

	var firstErr error
	for _, sj := range jobs {
		if err := d.runJob(ctx, sj.job); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("job %s failed: %w", sj.job.Name(), err)
		}
	}
	return firstErr
}

// Stats reports per-job run and failure counts since start.
func (d *Daemon) Stats() (runs, failures map[string]int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	runs = make(map[string]int, len(d.runs))
	failures = make(map[string]int, len(d.failures))
	for k, v := range d.runs {
		runs[k] = v
	}
	for k, v := range d.failures {
		failures[k] = v
	}
	return runs, failures
}
