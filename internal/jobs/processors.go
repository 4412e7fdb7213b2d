package jobs

import (
	"context"

	"feed-archive/internal/models"
	"feed-archive/internal/twitter"
)

// Per-item processors driven by FanOut. Each wraps its own upstream call
// in a normal-tier retry; ordering inside an item is fixed so hard
// references always resolve: users first, then tweets, then helper tweets
// (media is handled inside the tweet store path).

// processUserTimeline pulls one followed user's timeline and stores the
// whole batch.
func (r *Runner) processUserTimeline(ctx context.Context, user twitter.UserPayload) error {
	env, err := twitter.Retry(ctx, twitter.PolicyNormal, func(ctx context.Context) (*twitter.Envelope, error) {
		env, budget, err := r.client.UserTimeline(ctx, user.ID, r.cfg.TweetsPerUser)
		if err != nil {
			return nil, err
		}
		r.log.Debug("timeline_fetched", "user_id", user.ID, "budget", budget.String())
		return env, nil
	})
	if err != nil {
		return err
	}

	for i := range env.Includes.Users {
		if err := r.store.StoreUser(ctx, &env.Includes.Users[i]); err != nil {
			return err
		}
	}
	for i := range env.Data {
		if err := r.store.StoreTweet(ctx, &env.Data[i], &env.Includes, models.ClassNormal); err != nil {
			return err
		}
	}
	for i := range env.Includes.Tweets {
		if err := r.store.StoreTweet(ctx, &env.Includes.Tweets[i], &env.Includes, models.ClassHelper); err != nil {
			return err
		}
	}
	return nil
}

// processCoreCandidate re-fetches one incomplete normal/rt_original tweet
// so its media catalog and reply/quote targets land locally.
func (r *Runner) processCoreCandidate(ctx context.Context, tweetID string) error {
	env, err := r.fetchSingle(ctx, tweetID)
	if err != nil {
		return err
	}

	// the candidate itself is already stored; this pass enriches its media
	if err := r.store.StoreMediaForTweet(ctx, &env.Data, &env.Includes); err != nil {
		return err
	}

	for i := range env.Includes.Users {
		if err := r.store.StoreUser(ctx, &env.Includes.Users[i]); err != nil {
			return err
		}
	}
	for i := range env.Includes.Tweets {
		if err := r.store.StoreTweet(ctx, &env.Includes.Tweets[i], &env.Includes, models.ClassHelper); err != nil {
			return err
		}
	}
	return nil
}

// processHelperCandidate re-fetches one helper tweet for its media only;
// helpers never pull in further helpers.
func (r *Runner) processHelperCandidate(ctx context.Context, tweetID string) error {
	env, err := r.fetchSingle(ctx, tweetID)
	if err != nil {
		return err
	}
	return r.store.StoreMediaForTweet(ctx, &env.Data, &env.Includes)
}

func (r *Runner) fetchSingle(ctx context.Context, tweetID string) (*twitter.SingleTweetEnvelope, error) {
	return twitter.Retry(ctx, twitter.PolicyNormal, func(ctx context.Context) (*twitter.SingleTweetEnvelope, error) {
		env, _, err := r.client.SingleTweet(ctx, tweetID)
		return env, err
	})
}
