package store

import (
	"context"
	"time"
)

// Backfill selection. Both queries are read-only, windowed to a lookback
// horizon, and ordered by popularity descending so the most visible gaps
// at the top of the feed get repaired first. They are monotone: a repaired
// row can never re-qualify, so repeated runs converge to zero candidates.

const coreBackfillQuery = `
	WITH windowed AS (
		SELECT id, tweet_id, popularity_count, replied_to_tweet_id, quoted_tweet_id
		FROM tweets
		WHERE tweet_class IN ('normal', 'rt_original')
		AND tweet_created_at > $1
	)

	SELECT tweet_id FROM (
		-- tweets whose quote target is not stored
		SELECT w.tweet_id, w.popularity_count
		FROM windowed w
		WHERE w.quoted_tweet_id IS NOT NULL
		AND w.quoted_tweet_id NOT IN (SELECT tweet_id FROM tweets)

		UNION

		-- tweets whose reply target is not stored
		SELECT w.tweet_id, w.popularity_count
		FROM windowed w
		WHERE w.replied_to_tweet_id IS NOT NULL
		AND w.replied_to_tweet_id NOT IN (SELECT tweet_id FROM tweets)

		UNION

		-- tweets with stub media still waiting for a display URL
		SELECT w.tweet_id, w.popularity_count
		FROM windowed w
		JOIN media m ON m.tweet_id = w.id
		WHERE m.display_url IS NULL
	) candidates
	ORDER BY popularity_count DESC`

const helperBackfillQuery = `
	SELECT t.tweet_id
	FROM tweets t
	JOIN media m ON m.tweet_id = t.id
	WHERE t.tweet_class = 'helper'
	AND t.tweet_created_at > $1
	AND m.display_url IS NULL
	GROUP BY t.tweet_id, t.popularity_count
	ORDER BY t.popularity_count DESC`

// CoreBackfillCandidates returns external ids of normal/rt_original tweets
// in the window that are missing a reply/quote target or a media URL.
func (s *Store) CoreBackfillCandidates(ctx context.Context, daysBack int) ([]string, error) {
	return s.candidateIDs(ctx, coreBackfillQuery, daysBack)
}

// HelperBackfillCandidates returns external ids of helper tweets in the
// window whose media still lacks a display URL.
func (s *Store) HelperBackfillCandidates(ctx context.Context, daysBack int) ([]string, error) {
	return s.candidateIDs(ctx, helperBackfillQuery, daysBack)
}

func (s *Store) candidateIDs(ctx context.Context, query string, daysBack int) ([]string, error) {
	horizon := time.Now().UTC().AddDate(0, 0, -daysBack)

	rows, err := s.db.Pool.Query(ctx, query, horizon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
