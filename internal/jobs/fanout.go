package jobs

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"feed-archive/internal/metrics"
)

// Round reports how a fan-out went. Attempted may be smaller than the item
// list when the budget capped it; the overflow is dropped, not queued. The
// periodic driver re-runs rounds, so dropped items surface again later.
type Round struct {
	Total     int
	Attempted int
	Completed int
}

// FanOut processes min(len(items), budget) items concurrently through fn
// and waits for all of them. The upstream quota is a hard per-window
// ceiling, so the cap is static rather than a live token bucket. Item
// failures are logged with their position and never abort the round; the
// fan-out itself cannot fail.
func FanOut[T any](ctx context.Context, log *slog.Logger, job string, items []T, budget int, fn func(context.Context, T) error) Round {
	total := len(items)
	attempted := total
	if budget < attempted {
		attempted = budget
	}

	var completed atomic.Int64
	var wg sync.WaitGroup
	for i, item := range items[:attempted] {
		wg.Add(1)
		go func(i int, item T) {
			defer wg.Done()
			if err := fn(ctx, item); err != nil {
				metrics.ItemFailures.WithLabelValues(job).Inc()
				log.Error("fanout_item_failed", "job", job, "item", i+1, "total", total, "error", err)
				return
			}
			completed.Add(1)
		}(i, item)
	}
	wg.Wait()

	return Round{Total: total, Attempted: attempted, Completed: int(completed.Load())}
}
