package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feed-archive/internal/config"
	"feed-archive/internal/metrics"
	"feed-archive/internal/models"
	"feed-archive/internal/twitter"
)

// FetchClient is the slice of the upstream client the jobs need.
type FetchClient interface {
	UserTimeline(ctx context.Context, userID string, maxResults int) (*twitter.Envelope, twitter.RateBudget, error)
	SingleTweet(ctx context.Context, tweetID string) (*twitter.SingleTweetEnvelope, twitter.RateBudget, error)
	FollowedUsers(ctx context.Context, accountID string) ([]twitter.UserPayload, twitter.RateBudget, error)
}

// EntityStore is the slice of the store the jobs need.
type EntityStore interface {
	StoreUser(ctx context.Context, u *twitter.UserPayload) error
	StoreTweet(ctx context.Context, t *twitter.TweetPayload, inc *twitter.Includes, class models.TweetClass) error
	StoreMediaForTweet(ctx context.Context, t *twitter.TweetPayload, inc *twitter.Includes) error
	CoreBackfillCandidates(ctx context.Context, daysBack int) ([]string, error)
	HelperBackfillCandidates(ctx context.Context, daysBack int) ([]string, error)
}

// Runner executes one ingestion or gap-repair round at a time. Rounds are
// idempotent and safe to invoke concurrently or repeatedly; every write
// funnels through the store's upsert semantics.
type Runner struct {
	log    *slog.Logger
	client FetchClient
	store  EntityStore
	cfg    config.Config
}

func NewRunner(log *slog.Logger, client FetchClient, store EntityStore, cfg config.Config) *Runner {
	return &Runner{log: log, client: client, store: store, cfg: cfg}
}

// PullTimelines fetches the followed-user set at the critical tier, since
// it gates the whole round, then fans their timeline pulls out under the
// round budget.
func (r *Runner) PullTimelines(ctx context.Context) error {
	start := time.Now()

	users, err := twitter.Retry(ctx, twitter.PolicyCritical, func(ctx context.Context) ([]twitter.UserPayload, error) {
		users, budget, err := r.client.FollowedUsers(ctx, r.cfg.WatchedAccountID)
		if err != nil {
			return nil, err
		}
		r.log.Info("followed_users_fetched", "count", len(users), "budget", budget.String())
		return users, nil
	})
	if err != nil {
		metrics.RoundErrors.WithLabelValues("pull").Inc()
		return fmt.Errorf("fetch followed users: %w", err)
	}

	if len(users) > r.cfg.MaxUsers {
		users = users[:r.cfg.MaxUsers]
	}

	round := FanOut(ctx, r.log, "pull", users, r.cfg.PullBudget, r.processUserTimeline)

	metrics.Rounds.WithLabelValues("pull").Inc()
	metrics.ObserveRound("pull", start)
	r.log.Info("pull_round_complete",
		"total", round.Total,
		"attempted", round.Attempted,
		"completed", round.Completed,
		"elapsed", time.Since(start).String(),
	)
	return nil
}

// Backfill selects locally-incomplete tweets (critical tier) and fans out
// their re-fetches: first core tweets (media + reply/quote targets), then
// helper tweets (media only).
func (r *Runner) Backfill(ctx context.Context) error {
	start := time.Now()

	core, err := twitter.Retry(ctx, twitter.PolicyCritical, func(ctx context.Context) ([]string, error) {
		return r.store.CoreBackfillCandidates(ctx, r.cfg.BackfillDays)
	})
	if err != nil {
		metrics.RoundErrors.WithLabelValues("backfill").Inc()
		return fmt.Errorf("fetch core backfill candidates: %w", err)
	}
	coreRound := FanOut(ctx, r.log, "backfill_core", core, r.cfg.BackfillBudget, r.processCoreCandidate)

	helpers, err := twitter.Retry(ctx, twitter.PolicyCritical, func(ctx context.Context) ([]string, error) {
		return r.store.HelperBackfillCandidates(ctx, r.cfg.BackfillDays)
	})
	if err != nil {
		metrics.RoundErrors.WithLabelValues("backfill").Inc()
		return fmt.Errorf("fetch helper backfill candidates: %w", err)
	}
	helperRound := FanOut(ctx, r.log, "backfill_helper", helpers, r.cfg.BackfillBudget, r.processHelperCandidate)

	metrics.Rounds.WithLabelValues("backfill").Inc()
	metrics.ObserveRound("backfill", start)
	r.log.Info("backfill_round_complete",
		"core_total", coreRound.Total,
		"core_completed", coreRound.Completed,
		"helper_total", helperRound.Total,
		"helper_completed", helperRound.Completed,
		"elapsed", time.Since(start).String(),
	)
	return nil
}
