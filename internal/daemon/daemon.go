package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mycinema/internal/config"
	"mycinema/internal/logging"
	"mycinema/internal/metrics"
	"mycinema/internal/runner"
)

// Options carries optional collaborators for the daemon.
type Options struct {
	Logger   *slog.Logger
	Metrics  *metrics.Collectors
	Gatherer prometheus.Gatherer
	Stream   *logging.StreamHub
	// RefreshInterval overrides the configured cadence when non-zero.
	RefreshInterval time.Duration
}

// Daemon owns the API server, the refresh schedule and the background run slot.
type Daemon struct {
	cfg     *config.Config
	runner  *runner.Runner
	logger  *slog.Logger
	metrics *metrics.Collectors
	stream  *logging.StreamHub
	api     *apiServer

	refreshInterval time.Duration

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu          sync.Mutex
	active      string
	activeSince time.Time
	last        *RunReport
	nextRefresh time.Time
}

// RunReport describes the most recent background run.
type RunReport struct {
	Operation  string    `json:"operation"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
	Result     any       `json:"result,omitempty"`
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool       `json:"running"`
	ActiveRun    string     `json:"active_run,omitempty"`
	ActiveSince  *time.Time `json:"active_since,omitempty"`
	LastRun      *RunReport `json:"last_run,omitempty"`
	NextRefresh  *time.Time `json:"next_refresh,omitempty"`
	DatabasePath string     `json:"database_path"`
	LockPath     string     `json:"lock_path"`
}

// New constructs a daemon around a ready runner.
func New(cfg *config.Config, r *runner.Runner, opts Options) (*Daemon, error) {
	if cfg == nil || r == nil {
		return nil, errors.New("daemon requires config and runner")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:     cfg,
		runner:  r,
		logger:  logging.NewComponentLogger(logger, "daemon"),
		metrics: opts.Metrics,
		stream:  opts.Stream,

		refreshInterval: opts.RefreshInterval,
	}
	if d.refreshInterval == 0 {
		d.refreshInterval = cfg.RefreshInterval()
	}
	d.api = newAPIServer(cfg, d, opts.Gatherer, logger)
	return d, nil
}

// Start launches the API server and the refresh schedule.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		return fmt.Errorf("start api server: %w", err)
	}
	d.mu.Lock()
	d.ctx, d.cancel = runCtx, cancel
	d.mu.Unlock()
	if interval := d.refreshInterval; interval > 0 {
		d.wg.Add(1)
		go d.refreshLoop(runCtx, interval)
	}
	d.running.Store(true)
	d.logger.Info("mycinema daemon started",
		logging.String("address", d.api.address()),
		logging.Duration("refresh_interval", d.refreshInterval),
	)
	return nil
}

// Stop cancels any active run, stops the API server and waits for background work.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()
	d.api.stop()
	d.wg.Wait()
	d.running.Store(false)
	d.logger.Info("mycinema daemon stopped")
}

// Addr returns the address the API server listens on.
func (d *Daemon) Addr() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	status := Status{
		Running:      d.running.Load(),
		ActiveRun:    d.active,
		DatabasePath: d.cfg.DatabasePath(),
		LockPath:     d.cfg.LockPath(),
	}
	if d.active != "" {
		since := d.activeSince
		status.ActiveSince = &since
	}
	if d.last != nil {
		last := *d.last
		status.LastRun = &last
	}
	if !d.nextRefresh.IsZero() {
		next := d.nextRefresh
		status.NextRefresh = &next
	}
	return status
}

// trigger starts fn in the background run slot. It fails with
// runner.ErrRunInProgress when another run already holds the slot.
func (d *Daemon) trigger(operation string, fn func(context.Context) (any, error)) error {
	if !d.running.Load() {
		return errors.New("daemon not running")
	}
	d.mu.Lock()
	if d.ctx == nil || d.ctx.Err() != nil {
		d.mu.Unlock()
		return errors.New("daemon stopping")
	}
	if d.active != "" {
		d.mu.Unlock()
		return runner.ErrRunInProgress
	}
	d.active = operation
	d.activeSince = time.Now().UTC()
	ctx := d.ctx
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		report := &RunReport{Operation: operation, StartedAt: time.Now().UTC()}
		result, err := fn(ctx)
		report.FinishedAt = time.Now().UTC()
		report.Result = result
		if err != nil {
			report.Error = err.Error()
			if errors.Is(err, runner.ErrRunInProgress) {
				d.logger.Info("run skipped; another process holds the catalog", logging.String("operation", operation))
			}
		}
		d.mu.Lock()
		d.active = ""
		d.last = report
		d.mu.Unlock()
	}()
	return nil
}

func (d *Daemon) refreshLoop(ctx context.Context, interval time.Duration) {
	defer d.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	d.setNextRefresh(time.Now().Add(interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.setNextRefresh(time.Now().Add(interval))
			err := d.trigger("refresh", func(ctx context.Context) (any, error) {
				return d.runner.Refresh(ctx)
			})
			if errors.Is(err, runner.ErrRunInProgress) {
				d.logger.Info("scheduled refresh skipped; a run is already active")
			}
		}
	}
}

func (d *Daemon) setNextRefresh(at time.Time) {
	d.mu.Lock()
	d.nextRefresh = at.UTC()
	d.mu.Unlock()
}
