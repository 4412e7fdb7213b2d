package models

import (
	"fmt"
	"time"
)

// TweetClass records why a tweet row exists: part of a followed user's
// timeline, the dereferenced original behind a retweet, or a tweet fetched
// only to resolve another tweet's reply/quote reference.
type TweetClass string

const (
	ClassNormal     TweetClass = "normal"
	ClassRTOriginal TweetClass = "rt_original"
	ClassHelper     TweetClass = "helper"
)

func (c TweetClass) Valid() bool {
	switch c {
	case ClassNormal, ClassRTOriginal, ClassHelper:
		return true
	}
	return false
}

type User struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	TwitterUserID  string    `json:"twitter_user_id"`
	TwitterName    string    `json:"twitter_name"`
	TwitterHandle  string    `json:"twitter_handle"`
	ProfileURL     string    `json:"profile_url"`
	ProfileImage   *string   `json:"profile_image"`
	FollowersCount int64     `json:"followers_count"`
	FollowingCount int64     `json:"following_count"`
	ListedCount    int64     `json:"listed_count"`
	TweetCount     int64     `json:"tweet_count"`
}

type Tweet struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	TweetID        string    `json:"tweet_id"`
	TweetCreatedAt time.Time `json:"tweet_created_at"`
	TweetText      string    `json:"tweet_text"`
	TweetURL       string    `json:"tweet_url"`

	// soft references: external ids that may not exist locally yet
	RepliedToTweetID *string `json:"replied_to_tweet_id"`
	QuotedTweetID    *string `json:"quoted_tweet_id"`

	TweetClass TweetClass `json:"tweet_class"`

	LikeCount         int64 `json:"like_count"`
	QuoteCount        int64 `json:"quote_count"`
	ReplyCount        int64 `json:"reply_count"`
	RetweetCount      int64 `json:"retweet_count"`
	TotalRetweetCount int64 `json:"total_retweet_count"`
	PopularityCount   int64 `json:"popularity_count"`

	UserID string `json:"user_id"`
}

type Media struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	MediaKey   string    `json:"media_key"`
	MediaType  *string   `json:"media_type"`
	DisplayURL *string   `json:"display_url"`
	TweetID    string    `json:"tweet_id"`
}

// Metrics holds a tweet's engagement counters plus the two derived columns.
type Metrics struct {
	LikeCount         int64
	QuoteCount        int64
	ReplyCount        int64
	RetweetCount      int64
	TotalRetweetCount int64
	PopularityCount   int64
}

func ComputeMetrics(like, quote, reply, retweet int64) Metrics {
	total := quote + retweet
	return Metrics{
		LikeCount:         like,
		QuoteCount:        quote,
		ReplyCount:        reply,
		RetweetCount:      retweet,
		TotalRetweetCount: total,
		PopularityCount:   total + like + reply,
	}
}

// SortBy is the caller-chosen feed ordering. The set is closed, so Column is
// safe to interpolate into SQL.
type SortBy string

const (
	SortPopularity SortBy = "popularity"
	SortRetweets   SortBy = "retweets"
	SortLikes      SortBy = "likes"
	SortReplies    SortBy = "replies"
	SortTime       SortBy = "time"
)

func ParseSortBy(s string) (SortBy, error) {
	sb := SortBy(s)
	switch sb {
	case SortPopularity, SortRetweets, SortLikes, SortReplies, SortTime:
		return sb, nil
	}
	return "", fmt.Errorf("unknown sort_by %q", s)
}

func (s SortBy) Column() string {
	switch s {
	case SortRetweets:
		return "total_retweet_count"
	case SortLikes:
		return "like_count"
	case SortReplies:
		return "reply_count"
	case SortTime:
		return "tweet_created_at"
	default:
		return "popularity_count"
	}
}

// Timeframe is the lookback window applied to the feed.
type Timeframe string

const (
	TimeframeHour  Timeframe = "hour"
	TimeframeFour  Timeframe = "four"
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
)

func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	switch tf {
	case TimeframeHour, TimeframeFour, TimeframeDay, TimeframeWeek, TimeframeMonth:
		return tf, nil
	}
	return "", fmt.Errorf("unknown timeframe %q", s)
}

func (t Timeframe) Duration() time.Duration {
	switch t {
	case TimeframeHour:
		return time.Hour
	case TimeframeFour:
		return 4 * time.Hour
	case TimeframeWeek:
		return 7 * 24 * time.Hour
	case TimeframeMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func (t Timeframe) Since(now time.Time) time.Time {
	return now.Add(-t.Duration())
}
