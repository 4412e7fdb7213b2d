package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"feed-archive/internal/models"
)

// Keyset pagination over visible (non-helper) tweets. Raw metrics are not
// unique, so the metric sorts page on a synthesized composite key: the
// metric's decimal digits concatenated with the first 10 digits of the
// external tweet id, read as one integer. Ties on the metric break by id,
// and the page-cutoff predicate uses the same key, so pages stay stable
// under concurrent inserts with no offset drift.

// PageSize is fixed; the read endpoint always returns at most this many.
const PageSize = 20

// MaxMetricSentinel is the first-page cursor convention: the maximum
// representable signed 64-bit value as a decimal string.
const MaxMetricSentinel = "9223372036854775807"

// maxCompositeKey is where over-wide keys saturate, both here and in SQL.
// It sits one below the first-page sentinel so saturated rows still pass
// the strictly-less-than predicate on the first page instead of erroring
// the query when the concatenation exceeds 19 digits.
const maxCompositeKey = math.MaxInt64 - 1

const metricPageQuery = `
	SELECT ` + tweetColumns + `
	FROM tweets
	WHERE tweet_class != 'helper'
	AND tweet_created_at >= $1
	AND LEAST((%[1]s::text || LEFT(tweet_id, 10))::numeric, 9223372036854775806)::bigint < $2
	ORDER BY LEAST((%[1]s::text || LEFT(tweet_id, 10))::numeric, 9223372036854775806)::bigint DESC
	LIMIT %[2]d`

const timePageQuery = `
	SELECT ` + tweetColumns + `
	FROM tweets
	WHERE tweet_class != 'helper'
	AND tweet_created_at >= $1
	AND tweet_created_at < $2
	ORDER BY tweet_created_at DESC
	LIMIT %d`

type PageQuery struct {
	SortBy      models.SortBy
	Timeframe   models.Timeframe
	LastTweetID string
	LastMetric  string
}

// CompositeCursor rebuilds the composite key from the previous page's last
// element. The sentinel first-page cursor maps to math.MaxInt64; any
// concatenation that overflows int64 saturates to maxCompositeKey, the
// same ceiling the SQL expression clamps to.
func CompositeCursor(lastMetric, lastTweetID string) (int64, error) {
	if lastMetric == MaxMetricSentinel {
		return math.MaxInt64, nil
	}
	key, err := compositeKey(lastMetric, lastTweetID)
	if err != nil {
		return 0, err
	}
	return key, nil
}

func compositeKey(metric, tweetID string) (int64, error) {
	if len(tweetID) > 10 {
		tweetID = tweetID[:10]
	}
	raw := metric + tweetID
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return maxCompositeKey, nil
		}
		return 0, fmt.Errorf("%w %q: %v", ErrBadCursor, raw, err)
	}
	return n, nil
}

// timeCursor resolves the time-sort cursor: the sentinel maps to an
// unreachable upper bound one hour in the future, anything else must be the
// last-seen creation timestamp.
func timeCursor(lastMetric string, now time.Time) (time.Time, error) {
	if lastMetric == MaxMetricSentinel {
		return now.Add(time.Hour), nil
	}
	ts, err := time.Parse(time.RFC3339, lastMetric)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrBadCursor, lastMetric, err)
	}
	return ts, nil
}

// FetchPage returns the next page of visible tweets for the cursor carried
// in q, newest/highest first.
func (s *Store) FetchPage(ctx context.Context, q PageQuery) ([]models.Tweet, error) {
	now := time.Now().UTC()
	since := q.Timeframe.Since(now)

	var (
		sql  string
		args []any
	)
	if q.SortBy == models.SortTime {
		cursor, err := timeCursor(q.LastMetric, now)
		if err != nil {
			return nil, err
		}
		sql = fmt.Sprintf(timePageQuery, PageSize)
		args = []any{since, cursor}
	} else {
		cursor, err := CompositeCursor(q.LastMetric, q.LastTweetID)
		if err != nil {
			return nil, err
		}
		// the column name comes from a closed enum, never from the caller
		sql = fmt.Sprintf(metricPageQuery, q.SortBy.Column(), PageSize)
		args = []any{since, cursor}
	}

	rows, err := s.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tweets := make([]models.Tweet, 0, PageSize)
	for rows.Next() {
		t, err := scanTweet(rows)
		if err != nil {
			return nil, err
		}
		tweets = append(tweets, *t)
	}
	return tweets, rows.Err()
}

// FullTweet is the composed read object served to consumers: the tweet,
// its author, its media, and its resolved reply and quote targets. The
// targets are composed shallow, so nesting stops at one level.
type FullTweet struct {
	Tweet   models.Tweet   `json:"tweet"`
	Author  models.User    `json:"author"`
	Media   []models.Media `json:"media"`
	ReplyTo *FullTweet     `json:"reply_to"`
	QuoteOf *FullTweet     `json:"quote_of"`
}

// ComposeTweet assembles the read object. Dangling reply/quote targets are
// simply absent; the backfill loop closes them over time.
func (s *Store) ComposeTweet(ctx context.Context, t models.Tweet) (*FullTweet, error) {
	full, err := s.composeShallow(ctx, t)
	if err != nil {
		return nil, err
	}

	if t.RepliedToTweetID != nil {
		target, err := s.FetchTweet(ctx, *t.RepliedToTweetID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if target != nil {
			if full.ReplyTo, err = s.composeShallow(ctx, *target); err != nil {
				return nil, err
			}
		}
	}

	if t.QuotedTweetID != nil {
		target, err := s.FetchTweet(ctx, *t.QuotedTweetID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if target != nil {
			if full.QuoteOf, err = s.composeShallow(ctx, *target); err != nil {
				return nil, err
			}
		}
	}

	return full, nil
}

func (s *Store) composeShallow(ctx context.Context, t models.Tweet) (*FullTweet, error) {
	author, err := s.FetchUserBySurrogate(ctx, t.UserID)
	if err != nil {
		return nil, err
	}
	media, err := s.MediaForTweet(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return &FullTweet{Tweet: t, Author: *author, Media: media}, nil
}
