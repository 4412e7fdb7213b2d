package twitter

import (
	"time"

	"feed-archive/internal/models"
)

// Typed view of the v2 API response envelope. Parsing into concrete structs
// (instead of walking dynamic JSON) means shape drift surfaces as a
// permanent upstream error at the ingestion boundary, not a panic later.

type UserMetricsPayload struct {
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	ListedCount    int64 `json:"listed_count"`
	TweetCount     int64 `json:"tweet_count"`
}

type UserPayload struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Username        string             `json:"username"`
	URL             string             `json:"url"`
	ProfileImageURL string             `json:"profile_image_url"`
	PublicMetrics   UserMetricsPayload `json:"public_metrics"`
}

func (u *UserPayload) Validate() error {
	if u.ID == "" {
		return permanentf("user payload missing id")
	}
	if u.Username == "" {
		return permanentf("user payload %s missing username", u.ID)
	}
	return nil
}

type TweetMetricsPayload struct {
	LikeCount    int64 `json:"like_count"`
	QuoteCount   int64 `json:"quote_count"`
	ReplyCount   int64 `json:"reply_count"`
	RetweetCount int64 `json:"retweet_count"`
}

type ReferencePayload struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type AttachmentsPayload struct {
	MediaKeys []string `json:"media_keys"`
}

type TweetPayload struct {
	ID               string               `json:"id"`
	AuthorID         string               `json:"author_id"`
	CreatedAt        string               `json:"created_at"`
	Text             string               `json:"text"`
	PublicMetrics    *TweetMetricsPayload `json:"public_metrics"`
	ReferencedTweets []ReferencePayload   `json:"referenced_tweets"`
	Attachments      *AttachmentsPayload  `json:"attachments"`
}

func (t *TweetPayload) Validate() error {
	if t.ID == "" {
		return permanentf("tweet payload missing id")
	}
	if t.AuthorID == "" {
		return permanentf("tweet payload %s missing author_id", t.ID)
	}
	if t.PublicMetrics == nil {
		return permanentf("tweet payload %s missing public_metrics", t.ID)
	}
	if _, err := t.CreatedAtTime(); err != nil {
		return err
	}
	return nil
}

func (t *TweetPayload) CreatedAtTime() (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, t.CreatedAt)
	if err != nil {
		return time.Time{}, permanentf("tweet payload %s has bad created_at %q", t.ID, t.CreatedAt)
	}
	return ts, nil
}

func (t *TweetPayload) Metrics() (models.Metrics, error) {
	if t.PublicMetrics == nil {
		return models.Metrics{}, permanentf("tweet payload %s missing public_metrics", t.ID)
	}
	pm := t.PublicMetrics
	return models.ComputeMetrics(pm.LikeCount, pm.QuoteCount, pm.ReplyCount, pm.RetweetCount), nil
}

type MediaPayload struct {
	MediaKey        string `json:"media_key"`
	Type            string `json:"type"`
	URL             string `json:"url"`
	PreviewImageURL string `json:"preview_image_url"`
}

// DisplayURL prefers the direct photo URL over the video/gif preview.
func (m *MediaPayload) DisplayURL() string {
	if m.URL != "" {
		return m.URL
	}
	return m.PreviewImageURL
}

type Includes struct {
	Users  []UserPayload  `json:"users"`
	Tweets []TweetPayload `json:"tweets"`
	Media  []MediaPayload `json:"media"`
}

// TweetByID finds a tweet payload in the side-car inclusion set.
func (inc *Includes) TweetByID(id string) *TweetPayload {
	if inc == nil {
		return nil
	}
	for i := range inc.Tweets {
		if inc.Tweets[i].ID == id {
			return &inc.Tweets[i]
		}
	}
	return nil
}

// MediaByKey finds a media object in the batch's catalog, or nil when the
// batch shipped keys without a catalog.
func (inc *Includes) MediaByKey(key string) *MediaPayload {
	if inc == nil {
		return nil
	}
	for i := range inc.Media {
		if inc.Media[i].MediaKey == key {
			return &inc.Media[i]
		}
	}
	return nil
}

type Meta struct {
	NextToken string `json:"next_token"`
}

// Envelope is a multi-tweet response (timelines).
type Envelope struct {
	Data     []TweetPayload `json:"data"`
	Includes Includes       `json:"includes"`
	Meta     Meta           `json:"meta"`
}

// SingleTweetEnvelope is the single-tweet lookup response, whose data field
// is an object rather than an array.
type SingleTweetEnvelope struct {
	Data     TweetPayload `json:"data"`
	Includes Includes     `json:"includes"`
}

type FollowingEnvelope struct {
	Data []UserPayload `json:"data"`
	Meta Meta          `json:"meta"`
}
