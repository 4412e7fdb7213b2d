package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDev        = "dev"
	EnvProduction = "production"
)

type Config struct {
	DBDSN    string
	HTTPAddr string
	LogLevel string
	RedisDSN string
	AppEnv   string

	// raw secret kept in-memory only; never log unmasked
	BearerToken string

	// the account whose following list defines the followed set
	WatchedAccountID string

	RefreshInterval time.Duration
	BackfillDays    int
	MaxUsers        int
	PullBudget      int
	BackfillBudget  int
	TweetsPerUser   int

	FeedCacheTTL time.Duration
	CORSOrigins  []string
}

func Load() (Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := Config{
		DBDSN:            os.Getenv("DB_DSN"),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		LogLevel:         getenvDefault("LOG_LEVEL", "info"),
		RedisDSN:         getenvDefault("REDIS_DSN", "redis://localhost:6379/0"),
		AppEnv:           getenvDefault("APP_ENV", EnvDev),
		BearerToken:      os.Getenv("TWITTER_BEARER_TOKEN"),
		WatchedAccountID: os.Getenv("WATCHED_ACCOUNT_ID"),
	}

	if cfg.DBDSN == "" {
		return Config{}, errors.New("missing DB_DSN")
	}
	if cfg.BearerToken == "" {
		return Config{}, errors.New("missing TWITTER_BEARER_TOKEN")
	}
	if cfg.WatchedAccountID == "" {
		return Config{}, errors.New("missing WATCHED_ACCOUNT_ID")
	}
	if cfg.AppEnv != EnvDev && cfg.AppEnv != EnvProduction {
		return Config{}, fmt.Errorf("APP_ENV must be %q or %q", EnvDev, EnvProduction)
	}

	var err error
	if cfg.RefreshInterval, err = getenvMinutes("REFRESH_INTERVAL_MINUTES", 16); err != nil {
		return Config{}, err
	}
	if cfg.BackfillDays, err = getenvInt("BACKFILL_DAYS", 7); err != nil {
		return Config{}, err
	}
	if cfg.MaxUsers, err = getenvInt("MAX_USERS", 1500); err != nil {
		return Config{}, err
	}
	// per-round caps sized against the upstream quota window
	if cfg.PullBudget, err = getenvInt("PULL_BUDGET", 1500); err != nil {
		return Config{}, err
	}
	if cfg.BackfillBudget, err = getenvInt("BACKFILL_BUDGET", 900); err != nil {
		return Config{}, err
	}
	if cfg.TweetsPerUser, err = getenvInt("TWEETS_PER_USER", 100); err != nil {
		return Config{}, err
	}

	cacheSeconds, err := getenvInt("FEED_CACHE_SECONDS", 30)
	if err != nil {
		return Config{}, err
	}
	cfg.FeedCacheTTL = time.Duration(cacheSeconds) * time.Second

	corsOrigins := getenvDefault("CORS_ORIGINS", "")
	if corsOrigins != "" {
		cfg.CORSOrigins = strings.Split(corsOrigins, ",")
		for i := range cfg.CORSOrigins {
			cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
		}
	} else {
		cfg.CORSOrigins = []string{"http://localhost:3000"} // default
	}

	return cfg, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", k)
	}
	return n, nil
}

func getenvMinutes(k string, def int) (time.Duration, error) {
	n, err := getenvInt(k, def)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Minute, nil
}
