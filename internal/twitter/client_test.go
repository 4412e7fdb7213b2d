package twitter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(baseURL string) *Client {
	return &Client{
		http:   newHTTPClient(),
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		bearer: "test-token",
		base:   baseURL,
	}
}

const timelineBody = `{
	"data": [
		{
			"id": "1700000000000000001",
			"author_id": "100",
			"created_at": "2024-06-01T10:00:00Z",
			"text": "hello world",
			"public_metrics": {"like_count": 5, "quote_count": 1, "reply_count": 2, "retweet_count": 3},
			"referenced_tweets": [{"type": "quoted", "id": "1600000000000000009"}],
			"attachments": {"media_keys": ["3_111"]}
		}
	],
	"includes": {
		"users": [{"id": "100", "name": "Alice", "username": "alice", "public_metrics": {"followers_count": 10}}],
		"tweets": [{"id": "1600000000000000009", "author_id": "200", "created_at": "2024-05-01T09:00:00Z", "text": "quoted", "public_metrics": {"like_count": 1}}],
		"media": [{"media_key": "3_111", "type": "photo", "url": "https://pbs.example/a.jpg"}]
	},
	"meta": {"next_token": ""}
}`

func TestUserTimelineParsesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != "/users/100/tweets" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("max_results"); got != "100" {
			t.Errorf("max_results = %q", got)
		}
		w.Header().Set("x-rate-limit-remaining", "74")
		w.Header().Set("x-rate-limit-limit", "75")
		w.Header().Set("x-rate-limit-reset", "1717236000")
		w.Write([]byte(timelineBody))
	}))
	defer srv.Close()

	env, budget, err := testClient(srv.URL).UserTimeline(context.Background(), "100", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(env.Data) != 1 {
		t.Fatalf("len(Data) = %d, want 1", len(env.Data))
	}
	tw := env.Data[0]
	if tw.ID != "1700000000000000001" || tw.AuthorID != "100" {
		t.Errorf("tweet = %+v", tw)
	}
	if tw.PublicMetrics == nil || tw.PublicMetrics.RetweetCount != 3 {
		t.Errorf("public metrics = %+v", tw.PublicMetrics)
	}
	if len(tw.ReferencedTweets) != 1 || tw.ReferencedTweets[0].Type != "quoted" {
		t.Errorf("references = %+v", tw.ReferencedTweets)
	}
	if tw.Attachments == nil || len(tw.Attachments.MediaKeys) != 1 {
		t.Errorf("attachments = %+v", tw.Attachments)
	}

	if got := env.Includes.TweetByID("1600000000000000009"); got == nil || got.AuthorID != "200" {
		t.Errorf("included tweet lookup = %+v", got)
	}
	if got := env.Includes.MediaByKey("3_111"); got == nil || got.DisplayURL() != "https://pbs.example/a.jpg" {
		t.Errorf("included media lookup = %+v", got)
	}

	if budget.Remaining != 74 || budget.Limit != 75 {
		t.Errorf("budget = %+v", budget)
	}
	if !budget.Reset.Equal(time.Unix(1717236000, 0)) {
		t.Errorf("budget reset = %s", budget.Reset)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		permanent bool
	}{
		{"server error is transient", 500, "oops", false},
		{"bad gateway is transient", 502, "oops", false},
		{"rate limited is transient", 429, "slow down", false},
		{"not found is permanent", 404, `{"errors":[]}`, true},
		{"unauthorized is permanent", 401, "no", true},
		{"malformed body is permanent", 200, "{not json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, _, err := testClient(srv.URL).UserTimeline(context.Background(), "100", 5)
			if err == nil {
				t.Fatal("expected error")
			}
			if IsPermanentUpstream(err) != tt.permanent {
				t.Errorf("IsPermanentUpstream = %v, want %v (err: %v)", !tt.permanent, tt.permanent, err)
			}
			if !tt.permanent && !errors.Is(err, ErrTransientUpstream) {
				t.Errorf("expected transient sentinel, got %v", err)
			}
		})
	}
}

func TestNetworkFaultIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	_, _, err := testClient(srv.URL).UserTimeline(context.Background(), "100", 5)
	if !errors.Is(err, ErrTransientUpstream) {
		t.Errorf("expected transient error, got %v", err)
	}
}

func TestSingleTweetValidatesPayload(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			"complete payload",
			`{"data": {"id": "1", "author_id": "2", "created_at": "2024-06-01T10:00:00Z", "text": "x", "public_metrics": {"like_count": 0}}}`,
			false,
		},
		{
			"missing author",
			`{"data": {"id": "1", "created_at": "2024-06-01T10:00:00Z", "text": "x", "public_metrics": {}}}`,
			true,
		},
		{
			"missing metrics",
			`{"data": {"id": "1", "author_id": "2", "created_at": "2024-06-01T10:00:00Z", "text": "x"}}`,
			true,
		},
		{
			"bad timestamp",
			`{"data": {"id": "1", "author_id": "2", "created_at": "yesterday", "text": "x", "public_metrics": {}}}`,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			env, _, err := testClient(srv.URL).SingleTweet(context.Background(), "1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !IsPermanentUpstream(err) {
					t.Errorf("shape problems must be permanent, got %v", err)
				}
				return
			}
			if env.Data.ID != "1" {
				t.Errorf("data = %+v", env.Data)
			}
		})
	}
}

func TestFollowedUsersPaginates(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/users/999/following" {
			t.Errorf("path = %q", r.URL.Path)
		}
		switch r.URL.Query().Get("pagination_token") {
		case "":
			w.Write([]byte(`{"data": [{"id": "1", "username": "a"}, {"id": "2", "username": "b"}], "meta": {"next_token": "page2"}}`))
		case "page2":
			w.Write([]byte(`{"data": [{"id": "3", "username": "c"}], "meta": {}}`))
		default:
			t.Errorf("unexpected token %q", r.URL.Query().Get("pagination_token"))
		}
	}))
	defer srv.Close()

	users, _, err := testClient(srv.URL).FollowedUsers(context.Background(), "999")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(users) != 3 {
		t.Fatalf("len(users) = %d, want 3", len(users))
	}
	if users[0].ID != "1" || users[2].ID != "3" {
		t.Errorf("users = %+v", users)
	}
}

func TestFollowedUsersRejectsMissingData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta": {}}`))
	}))
	defer srv.Close()

	_, _, err := testClient(srv.URL).FollowedUsers(context.Background(), "999")
	if !IsPermanentUpstream(err) {
		t.Errorf("expected permanent error, got %v", err)
	}
}
