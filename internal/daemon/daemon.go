package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"photomatch/internal/archive"
	"photomatch/internal/config"
	"photomatch/internal/logging"
	"photomatch/internal/mapping"
	"photomatch/internal/preflight"
	"photomatch/internal/server"
	"photomatch/internal/staging"
	"photomatch/internal/task"
)

// stagingSweepMaxAge bounds how long an abandoned task directory may outlive
// its task before the periodic sweep reclaims it.
const stagingSweepMaxAge = 24 * time.Hour

// Daemon owns the photomatch process lifecycle.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	mappings *mapping.Store
	engine   *task.Engine
	archives *archive.Store
	history  *task.History
	api      *server.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New assembles the daemon and its collaborators. The mapping store is opened
// here so a corrupt database fails fast, before the lock is taken.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires configuration")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	store, err := mapping.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open mapping store: %w", err)
	}

	history, err := task.NewHistory(store.DB())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open run history: %w", err)
	}

	archives := archive.NewStore(cfg, logger)
	engine := task.NewEngine(cfg, store, archives, history, logger)
	lockPath := cfg.LockFilePath()

	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		mappings: store,
		engine:   engine,
		archives: archives,
		history:  history,
		api:      server.New(cfg, store, engine, archives, history, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, runs preflight, and brings up the API
// server and background sweepers.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another photomatch daemon instance is already running")
	}

	results := preflight.RunAll(ctx, d.cfg)
	for _, result := range results {
		if result.Passed {
			d.logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.Bool("optional", result.Optional),
		)
	}
	if preflight.Fatal(results) {
		_ = d.lock.Unlock()
		return errors.New("preflight checks failed")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	go d.engine.Run(d.ctx)
	go d.archives.Run(d.ctx, time.Minute)
	go d.sweepStaging(d.ctx)

	d.running.Store(true)
	d.logger.Info("photomatch daemon started",
		logging.String("lock", d.lockPath),
		logging.String("bind", d.cfg.Paths.APIBind),
	)
	return nil
}

// Addr reports the API listen address once started.
func (d *Daemon) Addr() string {
	return d.api.Addr()
}

// Stop shuts down background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("photomatch daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.mappings.Close()
}

func (d *Daemon) sweepStaging(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			staging.CleanStale(ctx, staging.Root(d.cfg), stagingSweepMaxAge, d.logger)
		}
	}
}
