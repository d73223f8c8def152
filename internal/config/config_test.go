package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/qepting91/undercurrent/internal/config"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	assert.Equal(t, "public", cfg.Mode)
	assert.Equal(t, 100, cfg.PageSize)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 0.3, cfg.AcquisitionWeight)
	assert.Equal(t, 2*time.Second, cfg.RequestDelay)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("COLLECTOR_MODE", "mock")
	t.Setenv("REDDIT_USER_AGENT", "custom-agent/2.0")
	t.Setenv("REQUEST_DELAY_MS", "150")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("COMMENT_FETCH_CAP", "7")
	t.Setenv("ANALYSIS_URL", "http://analysis.internal/api")

	cfg := config.FromEnv()
	assert.Equal(t, "mock", cfg.Mode)
	assert.Equal(t, "custom-agent/2.0", cfg.UserAgent)
	assert.Equal(t, 150*time.Millisecond, cfg.RequestDelay)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 7, cfg.CommentFetchCap)
	assert.Equal(t, "http://analysis.internal/api", cfg.AnalysisURL)
}

func TestFromEnv_IgnoresGarbage(t *testing.T) {
	t.Setenv("REQUEST_DELAY_MS", "not-a-number")
	t.Setenv("MAX_RETRIES", "-3")

	cfg := config.FromEnv()
	assert.Equal(t, config.Default().RequestDelay, cfg.RequestDelay)
	assert.Equal(t, config.Default().MaxRetries, cfg.MaxRetries)
}
