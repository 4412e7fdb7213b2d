package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.twitter.com/2"

// field selections asked of the v2 API on every tweet fetch
const (
	tweetExpansions = "author_id,referenced_tweets.id,referenced_tweets.id.author_id,in_reply_to_user_id,attachments.media_keys"
	tweetFields     = "created_at,in_reply_to_user_id,public_metrics,referenced_tweets"
	userFields      = "name,username,profile_image_url,url,public_metrics"
	mediaFields     = "preview_image_url,url"
)

// RateBudget is the quota snapshot the API reports on every response.
type RateBudget struct {
	Remaining int
	Limit     int
	Reset     time.Time
}

func (rb RateBudget) String() string {
	return fmt.Sprintf("rate budget %d/%d, resets %s", rb.Remaining, rb.Limit, rb.Reset.UTC().Format("15:04:05 MST"))
}

type Client struct {
	http   *http.Client
	log    *slog.Logger
	bearer string
	base   string
}

func NewClient(log *slog.Logger, bearerToken string) *Client {
	return &Client{
		http:   newHTTPClient(),
		log:    log,
		bearer: bearerToken,
		base:   defaultBaseURL,
	}
}

// newHTTPClient builds a client with connection pooling, keep-alive and
// timeouts on every phase so a stuck upstream call can't hang a round.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}
}

// get performs one authenticated call and decodes the envelope into out.
// Network faults, 5xx and 429 come back transient; everything else that
// fails is permanent.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) (RateBudget, error) {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return RateBudget{}, permanentf("build request for %s: %v", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	res, err := c.http.Do(req)
	if err != nil {
		return RateBudget{}, transientf("call %s: %v", path, err)
	}
	defer res.Body.Close()

	budget := parseRateBudget(res.Header)
	c.log.Debug("upstream_call", "path", path, "status", res.StatusCode, "rate_remaining", budget.Remaining)

	if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
		return budget, transientf("call %s: status %d", path, res.StatusCode)
	}
	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return budget, permanentf("call %s: status %d: %s", path, res.StatusCode, body)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return budget, permanentf("decode %s response: %v", path, err)
	}
	return budget, nil
}

func parseRateBudget(h http.Header) RateBudget {
	var rb RateBudget
	rb.Remaining, _ = strconv.Atoi(h.Get("x-rate-limit-remaining"))
	rb.Limit, _ = strconv.Atoi(h.Get("x-rate-limit-limit"))
	if epoch, err := strconv.ParseInt(h.Get("x-rate-limit-reset"), 10, 64); err == nil {
		rb.Reset = time.Unix(epoch, 0)
	}
	return rb
}

// UserTimeline fetches a user's recent tweets with the full side-car
// inclusion set (users, referenced tweets, media catalog).
func (c *Client) UserTimeline(ctx context.Context, userID string, maxResults int) (*Envelope, RateBudget, error) {
	q := url.Values{}
	q.Set("expansions", tweetExpansions)
	q.Set("tweet.fields", tweetFields)
	q.Set("user.fields", userFields)
	q.Set("media.fields", mediaFields)
	q.Set("max_results", strconv.Itoa(maxResults))

	var env Envelope
	budget, err := c.get(ctx, "/users/"+userID+"/tweets", q, &env)
	if err != nil {
		return nil, budget, err
	}
	return &env, budget, nil
}

// SingleTweet fetches one tweet by external id, with the same expansions as
// a timeline fetch so its author, references and media arrive alongside.
func (c *Client) SingleTweet(ctx context.Context, tweetID string) (*SingleTweetEnvelope, RateBudget, error) {
	q := url.Values{}
	q.Set("expansions", tweetExpansions)
	q.Set("tweet.fields", tweetFields)
	q.Set("user.fields", userFields)
	q.Set("media.fields", mediaFields)

	var env SingleTweetEnvelope
	budget, err := c.get(ctx, "/tweets/"+tweetID, q, &env)
	if err != nil {
		return nil, budget, err
	}
	if err := env.Data.Validate(); err != nil {
		return nil, budget, err
	}
	return &env, budget, nil
}

// FollowedUsers walks the watched account's following list page by page
// until meta.next_token runs out.
func (c *Client) FollowedUsers(ctx context.Context, accountID string) ([]UserPayload, RateBudget, error) {
	var (
		users  []UserPayload
		budget RateBudget
		token  string
	)

	for {
		q := url.Values{}
		q.Set("max_results", "1000")
		if token != "" {
			q.Set("pagination_token", token)
		}

		var env FollowingEnvelope
		b, err := c.get(ctx, "/users/"+accountID+"/following", q, &env)
		if err != nil {
			return nil, b, err
		}
		budget = b

		if env.Data == nil {
			return nil, budget, permanentf("following response for %s has no data", accountID)
		}
		users = append(users, env.Data...)

		if env.Meta.NextToken == "" {
			break
		}
		token = env.Meta.NextToken
	}

	return users, budget, nil
}
