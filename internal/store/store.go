package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"feed-archive/internal/db"
	"feed-archive/internal/models"
	"feed-archive/internal/twitter"
)

// Store owns all reads and writes for the three entity kinds. Upserts are
// keyed on natural keys (twitter_user_id, tweet_id, media_key) so that two
// rounds racing to insert the same entity degrade to last-writer-wins
// updates instead of errors.
type Store struct {
	db  *db.DB
	log *slog.Logger
}

func New(dbConn *db.DB, log *slog.Logger) *Store {
	return &Store{db: dbConn, log: log}
}

// StoreUser upserts a user by external id. Users carry no hard references,
// so this never fails on ordering.
func (s *Store) StoreUser(ctx context.Context, u *twitter.UserPayload) error {
	if err := u.Validate(); err != nil {
		return err
	}

	var profileImage *string
	if u.ProfileImageURL != "" {
		profileImage = &u.ProfileImageURL
	}

	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO users
			(id, created_at,
			twitter_user_id, twitter_name, twitter_handle, profile_url, profile_image,
			followers_count, following_count, listed_count, tweet_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (twitter_user_id) DO UPDATE SET
			twitter_name = EXCLUDED.twitter_name,
			twitter_handle = EXCLUDED.twitter_handle,
			profile_url = EXCLUDED.profile_url,
			profile_image = EXCLUDED.profile_image,
			followers_count = EXCLUDED.followers_count,
			following_count = EXCLUDED.following_count,
			listed_count = EXCLUDED.listed_count,
			tweet_count = EXCLUDED.tweet_count`,
		uuid.New().String(), time.Now().UTC(),
		u.ID, u.Name, u.Username, u.URL, profileImage,
		u.PublicMetrics.FollowersCount, u.PublicMetrics.FollowingCount,
		u.PublicMetrics.ListedCount, u.PublicMetrics.TweetCount,
	)
	return err
}

// FetchUser loads a user by external id.
func (s *Store) FetchUser(ctx context.Context, twitterUserID string) (*models.User, error) {
	return s.scanUser(ctx, `WHERE twitter_user_id = $1`, twitterUserID)
}

// FetchUserBySurrogate loads a user by its surrogate row id.
func (s *Store) FetchUserBySurrogate(ctx context.Context, id string) (*models.User, error) {
	return s.scanUser(ctx, `WHERE id = $1`, id)
}

func (s *Store) scanUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var u models.User
	err := s.db.Pool.QueryRow(ctx,
		`SELECT id, created_at,
			twitter_user_id, twitter_name, twitter_handle, profile_url, profile_image,
			COALESCE(followers_count, 0), COALESCE(following_count, 0),
			COALESCE(listed_count, 0), COALESCE(tweet_count, 0)
		FROM users `+where, arg,
	).Scan(
		&u.ID, &u.CreatedAt,
		&u.TwitterUserID, &u.TwitterName, &u.TwitterHandle, &u.ProfileURL, &u.ProfileImage,
		&u.FollowersCount, &u.FollowingCount, &u.ListedCount, &u.TweetCount,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &u, nil
}
