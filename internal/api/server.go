package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"feed-archive/internal/config"
	"feed-archive/internal/models"
	"feed-archive/internal/redis"
	"feed-archive/internal/store"
)

// FeedStore is the read surface the handlers page over.
type FeedStore interface {
	FetchPage(ctx context.Context, q store.PageQuery) ([]models.Tweet, error)
	ComposeTweet(ctx context.Context, t models.Tweet) (*store.FullTweet, error)
}

// RoundRunner triggers ingestion rounds on demand.
type RoundRunner interface {
	PullTimelines(ctx context.Context) error
	Backfill(ctx context.Context) error
}

type Server struct {
	log      *slog.Logger
	store    FeedStore
	runner   RoundRunner
	redis    *redis.Client
	cfg      config.Config
	router   *gin.Engine
	fallback *limiterStore
}

// NewServer wires the HTTP surface. redisClient may be nil; caching and
// rate limiting degrade to pass-through.
func NewServer(log *slog.Logger, feedStore FeedStore, runner RoundRunner, redisClient *redis.Client, cfg config.Config) *Server {
	s := &Server{
		log:      log,
		store:    feedStore,
		runner:   runner,
		redis:    redisClient,
		cfg:      cfg,
		router:   gin.New(),
		fallback: newLimiterStore(rate.Limit(2), 30, 10*time.Minute),
	}

	gin.SetMode(gin.ReleaseMode)
	r := s.router
	r.Use(gin.Recovery())
	r.Use(s.corsMiddleware())
	r.Use(s.loggingMiddleware())
	r.Use(s.rateLimitMiddleware())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/feed", s.getFeed)
		v1.POST("/pull", s.runPull)
		v1.POST("/backfill", s.runBackfill)
		v1.GET("/health", s.health)
	}

	// Legacy routes for backward compatibility
	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	r.GET("/feed", s.getFeed)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 10*time.Second)
}
