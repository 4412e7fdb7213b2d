package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"feed-archive/internal/models"
	"feed-archive/internal/twitter"
)

// StoreMediaForTweet upserts every media key attached to the payload. Two
// shapes arrive from upstream: a full object (type + URL) when the batch
// ships a media catalog, or a bare key when it doesn't (typical for retweet
// wrappers). A bare key is stored as a stub row and enriched on a later
// pass; COALESCE in the conflict clause keeps enrichment monotone, so a
// stub seen after the full object never nulls out a filled URL.
func (s *Store) StoreMediaForTweet(ctx context.Context, t *twitter.TweetPayload, inc *twitter.Includes) error {
	if t.Attachments == nil || len(t.Attachments.MediaKeys) == 0 {
		return nil
	}

	parent, err := s.FetchTweet(ctx, t.ID)
	if errors.Is(err, ErrNotFound) {
		return &OrderingViolationError{Entity: "tweet", Key: t.ID, Dependent: "media of " + t.ID}
	}
	if err != nil {
		return err
	}

	for _, key := range t.Attachments.MediaKeys {
		var mediaType, displayURL *string
		if obj := inc.MediaByKey(key); obj != nil {
			if obj.Type != "" {
				mediaType = &obj.Type
			}
			if u := obj.DisplayURL(); u != "" {
				displayURL = &u
			}
		}

		_, err := s.db.Pool.Exec(ctx,
			`INSERT INTO media
				(id, created_at, media_key, media_type, display_url, tweet_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (media_key) DO UPDATE SET
				media_type = COALESCE(EXCLUDED.media_type, media.media_type),
				display_url = COALESCE(EXCLUDED.display_url, media.display_url)`,
			uuid.New().String(), time.Now().UTC(),
			key, mediaType, displayURL, parent.ID,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// MediaForTweet returns all media rows for a tweet's surrogate id; empty
// slice when the tweet has none.
func (s *Store) MediaForTweet(ctx context.Context, tweetSurrogateID string) ([]models.Media, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT id, created_at, media_key, media_type, display_url, tweet_id
		FROM media WHERE tweet_id = $1`, tweetSurrogateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	media := make([]models.Media, 0)
	for rows.Next() {
		var m models.Media
		if err := rows.Scan(&m.ID, &m.CreatedAt, &m.MediaKey, &m.MediaType, &m.DisplayURL, &m.TweetID); err != nil {
			return nil, err
		}
		media = append(media, m)
	}
	return media, rows.Err()
}
