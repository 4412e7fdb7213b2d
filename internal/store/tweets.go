package store

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/google/uuid"

	"feed-archive/internal/models"
	"feed-archive/internal/twitter"
)

const tweetColumns = `id, created_at,
	tweet_id, tweet_created_at, tweet_text, tweet_url,
	replied_to_tweet_id, quoted_tweet_id, tweet_class,
	like_count, quote_count, reply_count, retweet_count, total_retweet_count, popularity_count,
	user_id`

// StoreTweet upserts a tweet payload. A retweet wrapper is never stored:
// its original is resolved from the batch's inclusion set and stored
// instead, tagged rt_original. The indirection is one explicit step, not
// recursion; the source protocol has no retweet-of-a-retweet.
func (s *Store) StoreTweet(ctx context.Context, t *twitter.TweetPayload, inc *twitter.Includes, class models.TweetClass) error {
	if err := t.Validate(); err != nil {
		return err
	}

	for _, ref := range t.ReferencedTweets {
		if ref.Type != "retweeted" {
			continue
		}
		original := inc.TweetByID(ref.ID)
		if original == nil {
			return fmt.Errorf("%w: retweet original %s not in inclusion set", twitter.ErrPermanentUpstream, ref.ID)
		}
		if err := original.Validate(); err != nil {
			return err
		}
		return s.storeResolved(ctx, original, inc, models.ClassRTOriginal)
	}

	return s.storeResolved(ctx, t, inc, class)
}

// storeResolved stores a payload that is already known not to be a retweet
// wrapper.
func (s *Store) storeResolved(ctx context.Context, t *twitter.TweetPayload, inc *twitter.Includes, class models.TweetClass) error {
	metrics, err := t.Metrics()
	if err != nil {
		return err
	}

	// idempotent short-circuit: a known tweet only refreshes its metrics
	existing, err := s.FetchTweet(ctx, t.ID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		return s.updateTweetMetrics(ctx, t.ID, metrics)
	}

	// the author must have been stored earlier in the same batch
	author, err := s.FetchUser(ctx, t.AuthorID)
	if errors.Is(err, ErrNotFound) {
		return &OrderingViolationError{Entity: "user", Key: t.AuthorID, Dependent: t.ID}
	}
	if err != nil {
		return err
	}

	var repliedTo, quoted *string
	for _, ref := range t.ReferencedTweets {
		ref := ref
		switch ref.Type {
		case "replied_to":
			repliedTo = &ref.ID
		case "quoted":
			quoted = &ref.ID
		case "retweeted":
			// already handled by the caller
		default:
			s.log.Info("unrecognized_tweet_reference", "tweet_id", t.ID, "type", ref.Type)
		}
	}

	createdAt, err := t.CreatedAtTime()
	if err != nil {
		return err
	}
	tweetURL := fmt.Sprintf("https://twitter.com/%s/status/%s", t.AuthorID, t.ID)

	_, err = s.db.Pool.Exec(ctx,
		`INSERT INTO tweets (`+tweetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (tweet_id) DO UPDATE SET
			like_count = EXCLUDED.like_count,
			quote_count = EXCLUDED.quote_count,
			reply_count = EXCLUDED.reply_count,
			retweet_count = EXCLUDED.retweet_count,
			total_retweet_count = EXCLUDED.total_retweet_count,
			popularity_count = EXCLUDED.popularity_count`,
		uuid.New().String(), time.Now().UTC(),
		t.ID, createdAt, html.UnescapeString(t.Text), tweetURL,
		repliedTo, quoted, string(class),
		metrics.LikeCount, metrics.QuoteCount, metrics.ReplyCount,
		metrics.RetweetCount, metrics.TotalRetweetCount, metrics.PopularityCount,
		author.ID,
	)
	if isUniqueViolation(err) {
		// a racing round inserted the row between FetchTweet and here
		return s.updateTweetMetrics(ctx, t.ID, metrics)
	}
	if err != nil {
		return err
	}

	// media rows reference the tweet's surrogate id, so this must go last
	return s.StoreMediaForTweet(ctx, t, inc)
}

func (s *Store) updateTweetMetrics(ctx context.Context, tweetID string, m models.Metrics) error {
	_, err := s.db.Pool.Exec(ctx,
		`UPDATE tweets SET
			like_count = $1,
			quote_count = $2,
			reply_count = $3,
			retweet_count = $4,
			total_retweet_count = $5,
			popularity_count = $6
		WHERE tweet_id = $7`,
		m.LikeCount, m.QuoteCount, m.ReplyCount,
		m.RetweetCount, m.TotalRetweetCount, m.PopularityCount,
		tweetID,
	)
	return err
}

// FetchTweet loads a tweet by external id.
func (s *Store) FetchTweet(ctx context.Context, tweetID string) (*models.Tweet, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT `+tweetColumns+` FROM tweets WHERE tweet_id = $1`, tweetID)
	return scanTweet(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTweet(row rowScanner) (*models.Tweet, error) {
	var t models.Tweet
	err := row.Scan(
		&t.ID, &t.CreatedAt,
		&t.TweetID, &t.TweetCreatedAt, &t.TweetText, &t.TweetURL,
		&t.RepliedToTweetID, &t.QuotedTweetID, &t.TweetClass,
		&t.LikeCount, &t.QuoteCount, &t.ReplyCount, &t.RetweetCount,
		&t.TotalRetweetCount, &t.PopularityCount,
		&t.UserID,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &t, nil
}
