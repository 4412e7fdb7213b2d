package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"feed-archive/internal/config"
)

type countingRunner struct {
	pulls     atomic.Int64
	backfills atomic.Int64
	pullErr   error
}

func (c *countingRunner) PullTimelines(ctx context.Context) error {
	c.pulls.Add(1)
	return c.pullErr
}

func (c *countingRunner) Backfill(ctx context.Context) error {
	c.backfills.Add(1)
	return nil
}

func TestRefresherDisabledOutsideProduction(t *testing.T) {
	runner := &countingRunner{}
	r := NewRefresher(discardLogger(), runner, config.Config{
		AppEnv:          config.EnvDev,
		RefreshInterval: time.Millisecond,
	})

	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately outside production")
	}
	if runner.pulls.Load() != 0 || runner.backfills.Load() != 0 {
		t.Error("no rounds may run outside production")
	}
}

func TestRefresherWaitsBeforeFirstRound(t *testing.T) {
	runner := &countingRunner{}
	r := NewRefresher(discardLogger(), runner, config.Config{
		AppEnv:          config.EnvProduction,
		RefreshInterval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	// even after a grace period, no tick can have fired yet
	time.Sleep(50 * time.Millisecond)
	cancel()

	if runner.pulls.Load() != 0 {
		t.Error("first round must wait a full interval, not run at startup")
	}
}

func TestRefresherRunsRoundsAndSurvivesFailures(t *testing.T) {
	runner := &countingRunner{pullErr: errors.New("upstream down")}
	r := NewRefresher(discardLogger(), runner, config.Config{
		AppEnv:          config.EnvProduction,
		RefreshInterval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for runner.backfills.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("ticks never accumulated")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done

	// the failing pull never stopped the backfill half of the tick
	if runner.pulls.Load() < 2 || runner.backfills.Load() < 2 {
		t.Errorf("pulls = %d, backfills = %d", runner.pulls.Load(), runner.backfills.Load())
	}
}
