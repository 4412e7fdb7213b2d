package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"feed-archive/internal/models"
	"feed-archive/internal/store"
)

func (s *Server) getFeed(c *gin.Context) {
	sortBy, err := models.ParseSortBy(c.DefaultQuery("sort_by", string(models.SortPopularity)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_sort_by", "message": err.Error()}})
		return
	}
	timeframe, err := models.ParseTimeframe(c.DefaultQuery("timeframe", string(models.TimeframeWeek)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_timeframe", "message": err.Error()}})
		return
	}

	q := store.PageQuery{
		SortBy:      sortBy,
		Timeframe:   timeframe,
		LastTweetID: c.DefaultQuery("last_tweet_id", "0"),
		LastMetric:  c.DefaultQuery("last_metric", store.MaxMetricSentinel),
	}

	ctx, cancel := s.ctx(c)
	defer cancel()

	// check cache
	cacheKey := fmt.Sprintf("feed:%s:%s:%s:%s", q.SortBy, q.Timeframe, q.LastTweetID, q.LastMetric)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey); err == nil && cached != "" {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json", []byte(cached))
			return
		}
	}

	tweets, err := s.store.FetchPage(ctx, q)
	if errors.Is(err, store.ErrBadCursor) {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_cursor", "message": "last_metric/last_tweet_id do not form a valid cursor"}})
		return
	}
	if err != nil {
		s.log.Error("feed_page_failed", "sort_by", q.SortBy, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "internal error"}})
		return
	}

	page := make([]store.FullTweet, 0, len(tweets))
	for _, t := range tweets {
		full, err := s.store.ComposeTweet(ctx, t)
		if err != nil {
			s.log.Error("feed_compose_failed", "tweet_id", t.TweetID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "internal error"}})
			return
		}
		page = append(page, *full)
	}

	if s.redis != nil {
		if body, err := json.Marshal(page); err == nil {
			if err := s.redis.Set(ctx, cacheKey, body, s.cfg.FeedCacheTTL); err != nil {
				s.log.Warn("feed_cache_write_failed", "error", err)
			}
		}
	}

	c.JSON(http.StatusOK, page)
}

// A launched round always runs to completion; it is deliberately not tied
// to the request context, so a client disconnect cannot cancel it halfway
// through a batch.
func (s *Server) runPull(c *gin.Context) {
	if err := s.runner.PullTimelines(context.Background()); err != nil {
		s.log.Error("manual_pull_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "internal error"}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) runBackfill(c *gin.Context) {
	if err := s.runner.Backfill(context.Background()); err != nil {
		s.log.Error("manual_backfill_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "internal error"}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "env": s.cfg.AppEnv})
}
