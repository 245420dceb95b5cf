package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "dev")
	t.Setenv("DATABASE_URL", "postgres://localhost/curation")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, 5*time.Minute, cfg.Ranking.TTL)
	assert.Equal(t, 3, cfg.Limits.ShortCap)
	assert.Equal(t, 50, cfg.Limits.LongCap)
	assert.Equal(t, -10, cfg.Limits.ShadowBanBelow)
	assert.Equal(t, 4.0, cfg.Public.SaveWeight)
	assert.NotEqual(t, cfg.Public, cfg.Pulse)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SCORE_SAVE_WEIGHT", "7.5")
	t.Setenv("SCORE_HALF_LIFE", "24h")
	t.Setenv("ABUSE_SHORT_CAP", "5")
	t.Setenv("CACHE_TTL_TRENDING", "90s")
	t.Setenv("RL_ENABLED", "false")
	t.Setenv("RANK_MIN_GROWTH", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7.5, cfg.Public.SaveWeight)
	assert.Equal(t, 24*time.Hour, cfg.Public.HalfLife)
	assert.Equal(t, 5, cfg.Limits.ShortCap)
	assert.Equal(t, 90*time.Second, cfg.Ranking.TTL)
	assert.False(t, cfg.RLEnabled)
	assert.Equal(t, 5.0, cfg.Ranking.Compose.MinGrowth, "bad values fall back to defaults")
}

func TestLoad_FailFast(t *testing.T) {
	cases := map[string]map[string]string{
		"missing database": {"DATABASE_URL": ""},
		"missing jwt":      {"JWT_SECRET": ""},
		"prod without cron secret": {
			"APP_ENV": "prod", "RABBIT_URL": "amqp://x", "CRON_SECRET": "",
		},
		"prod without rabbit": {
			"APP_ENV": "prod", "CRON_SECRET": "c", "RABBIT_URL": "",
		},
		"negative weight":  {"SCORE_LIKE_WEIGHT": "-1"},
		"ttl out of range": {"CACHE_TTL_TRENDING": "30m"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
