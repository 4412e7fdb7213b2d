package jobs

import (
	"context"
	"log/slog"
	"time"

	"feed-archive/internal/config"
)

type roundRunner interface {
	PullTimelines(ctx context.Context) error
	Backfill(ctx context.Context) error
}

// Refresher drives ingestion rounds on a fixed interval. The first round
// runs one full interval after start, never immediately, so a restart
// loop cannot hammer the upstream.
type Refresher struct {
	log    *slog.Logger
	runner roundRunner
	cfg    config.Config
}

func NewRefresher(log *slog.Logger, runner roundRunner, cfg config.Config) *Refresher {
	return &Refresher{log: log, runner: runner, cfg: cfg}
}

// Run blocks until ctx is cancelled. Outside production it logs and
// returns without ever scheduling a round.
func (r *Refresher) Run(ctx context.Context) {
	if r.cfg.AppEnv != config.EnvProduction {
		r.log.Info("refresh_loop_disabled", "env", r.cfg.AppEnv)
		return
	}

	r.log.Info("refresh_loop_started", "interval", r.cfg.RefreshInterval.String())
	ticker := time.NewTicker(r.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("refresh_loop_stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	start := time.Now()
	if err := r.runner.PullTimelines(ctx); err != nil {
		r.log.Error("pull_round_failed", "error", err)
	}
	if err := r.runner.Backfill(ctx); err != nil {
		r.log.Error("backfill_round_failed", "error", err)
	}
	r.log.Info("refresh_tick_complete", "elapsed", time.Since(start).String())
}
