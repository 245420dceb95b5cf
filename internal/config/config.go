package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/baechuer/curation-service/internal/application/affinity"
	"github.com/baechuer/curation-service/internal/application/antiabuse"
	"github.com/baechuer/curation-service/internal/application/featured"
	"github.com/baechuer/curation-service/internal/application/ranking"
	"github.com/baechuer/curation-service/internal/application/scoring"
	"github.com/baechuer/curation-service/internal/infrastructure/urlresolve"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string

	HTTPAddr    string
	DatabaseURL string
	DBMaxConns  int

	JWTSecret  string
	JWTIssuer  string
	CronSecret string

	RabbitURL      string
	RabbitExchange string
	RabbitQueue    string

	RedisURL string

	// Rate limiting per client IP.
	RLEnabled bool
	RLLimit   int
	RLWindow  time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Empty disables the in-process scheduler; cron can still hit the endpoint.
	RankingSchedule  string
	AffinitySchedule string

	Ranking     ranking.Config
	Public      scoring.Weights
	Pulse       scoring.Weights
	Limits      antiabuse.Limits
	Thresholds  featured.Thresholds
	KindWeights affinity.KindWeights
	URLResolve  urlresolve.Config
}

func (c *Config) IsDev() bool { return c.AppEnv == "dev" }

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.AppEnv = getEnv("APP_ENV", "dev")
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8086")
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.DBMaxConns = getInt("DB_MAX_CONNS", 10)

	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.JWTIssuer = getEnv("JWT_ISSUER", "")
	cfg.CronSecret = getEnv("CRON_SECRET", "")

	cfg.RabbitURL = getEnv("RABBIT_URL", "")
	cfg.RabbitExchange = getEnv("RABBIT_EXCHANGE", "curation.events")
	cfg.RabbitQueue = getEnv("RABBIT_QUEUE", "curation-service.interactions")

	cfg.RedisURL = getEnv("REDIS_URL", "redis://localhost:6379/0")

	cfg.RLEnabled = getBool("RL_ENABLED", true)
	cfg.RLLimit = getInt("RL_IP_LIMIT", 120)
	cfg.RLWindow = getDuration("RL_IP_WINDOW", time.Minute)

	cfg.HTTPReadTimeout = getDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	cfg.HTTPWriteTimeout = getDuration("HTTP_WRITE_TIMEOUT", 20*time.Second)
	cfg.HTTPIdleTimeout = getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second)

	cfg.RankingSchedule = getEnv("RANKING_SCHEDULE", "@every 10m")
	cfg.AffinitySchedule = getEnv("AFFINITY_SCHEDULE", "0 3 * * *")

	cfg.Ranking = ranking.Config{
		TTL:      getDuration("CACHE_TTL_TRENDING", 5*time.Minute),
		PulseTTL: getDuration("CACHE_TTL_PULSE", 2*time.Minute),
		StaleTTL: getDuration("CACHE_TTL_STALE", time.Hour),
		Compose: ranking.ComposeOptions{
			TrendingK: getInt("RANK_TRENDING_K", 5),
			RisingK:   getInt("RANK_RISING_K", 5),
			MinGrowth: getFloat("RANK_MIN_GROWTH", 5),
		},
	}

	cfg.Public = weights("SCORE", scoring.DefaultWeights())
	cfg.Pulse = weights("PULSE", scoring.PulseWeights())

	l := antiabuse.DefaultLimits()
	cfg.Limits = antiabuse.Limits{
		ShortWindow:     getDuration("ABUSE_SHORT_WINDOW", l.ShortWindow),
		ShortCap:        getInt("ABUSE_SHORT_CAP", l.ShortCap),
		LongWindow:      getDuration("ABUSE_LONG_WINDOW", l.LongWindow),
		LongCap:         getInt("ABUSE_LONG_CAP", l.LongCap),
		DuplicateWindow: getDuration("ABUSE_DUPLICATE_WINDOW", l.DuplicateWindow),
		MinLength:       getInt("ABUSE_MIN_LENGTH", l.MinLength),
		ShadowBanBelow:  getInt("ABUSE_SHADOW_BAN_BELOW", l.ShadowBanBelow),
	}

	th := featured.DefaultThresholds()
	cfg.Thresholds = featured.Thresholds{
		MinImpressions: int64(getInt("FEATURED_MIN_IMPRESSIONS", int(th.MinImpressions))),
		CTRFloor:       getFloat("FEATURED_CTR_FLOOR", th.CTRFloor),
		ExtendLift:     getFloat("FEATURED_EXTEND_LIFT", th.ExtendLift),
		BaselineDays:   getInt("FEATURED_BASELINE_DAYS", th.BaselineDays),
		RotationWeeks:  getInt("FEATURED_ROTATION_WEEKS", th.RotationWeeks),
		SuggestionDays: getInt("FEATURED_SUGGESTION_DAYS", th.SuggestionDays),
	}

	cfg.KindWeights = affinity.DefaultKindWeights()

	u := urlresolve.DefaultConfig()
	cfg.URLResolve = urlresolve.Config{
		CacheSize:        getInt("URL_CACHE_SIZE", u.CacheSize),
		CacheTTL:         getDuration("URL_CACHE_TTL", u.CacheTTL),
		Timeout:          getDuration("URL_RESOLVE_TIMEOUT", u.Timeout),
		MaxRedirects:     getInt("URL_MAX_REDIRECTS", u.MaxRedirects),
		FailureThreshold: uint32(getInt("URL_BREAKER_FAILURES", int(u.FailureThreshold))),
		OpenTimeout:      getDuration("URL_BREAKER_OPEN", u.OpenTimeout),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("missing DATABASE_URL")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("missing JWT_SECRET")
	}
	if !c.IsDev() {
		if c.CronSecret == "" {
			return fmt.Errorf("missing CRON_SECRET (required when APP_ENV != dev)")
		}
		if c.RabbitURL == "" {
			return fmt.Errorf("missing RABBIT_URL (required when APP_ENV != dev)")
		}
	}
	if err := c.Public.Validate(); err != nil {
		return fmt.Errorf("SCORE_*: %w", err)
	}
	if err := c.Pulse.Validate(); err != nil {
		return fmt.Errorf("PULSE_*: %w", err)
	}
	if c.Ranking.TTL < time.Minute || c.Ranking.TTL > 10*time.Minute {
		return fmt.Errorf("CACHE_TTL_TRENDING must be between 1m and 10m, got %s", c.Ranking.TTL)
	}
	if c.Ranking.PulseTTL < time.Minute || c.Ranking.PulseTTL > 10*time.Minute {
		return fmt.Errorf("CACHE_TTL_PULSE must be between 1m and 10m, got %s", c.Ranking.PulseTTL)
	}
	if c.Limits.ShortCap <= 0 || c.Limits.LongCap <= 0 {
		return fmt.Errorf("ABUSE_SHORT_CAP and ABUSE_LONG_CAP must be positive")
	}
	return nil
}

// weights overlays PREFIX_* env vars on def.
func weights(prefix string, def scoring.Weights) scoring.Weights {
	return scoring.Weights{
		SaveWeight:       getFloat(prefix+"_SAVE_WEIGHT", def.SaveWeight),
		LikeWeight:       getFloat(prefix+"_LIKE_WEIGHT", def.LikeWeight),
		CommentWeight:    getFloat(prefix+"_COMMENT_WEIGHT", def.CommentWeight),
		ViewWeight:       getFloat(prefix+"_VIEW_WEIGHT", def.ViewWeight),
		LifetimeWeight:   getFloat(prefix+"_LIFETIME_WEIGHT", def.LifetimeWeight),
		RecentWindowDays: getInt(prefix+"_RECENT_WINDOW_DAYS", def.RecentWindowDays),
		RecentMultiplier: getFloat(prefix+"_RECENT_MULTIPLIER", def.RecentMultiplier),
		HalfLife:         getDuration(prefix+"_HALF_LIFE", def.HalfLife),
	}
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
