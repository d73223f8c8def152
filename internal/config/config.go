package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries every tunable the acquisition and analysis components need.
// It is passed in explicitly so tests can zero the delays.
type Config struct {
	// Mode selects the source strategy: "public", "api", or "mock".
	Mode      string
	UserAgent string

	// BaseURL is the upstream listing API root (no trailing slash).
	BaseURL string
	// AnalysisURL is the remote pipeline's submission endpoint.
	AnalysisURL string

	// Credentials for api mode.
	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	// RequestDelay is the minimum spacing between successive upstream
	// requests. RateLimitBackoff is the wait after a 429 before a retry.
	RequestDelay     time.Duration
	RateLimitBackoff time.Duration
	MaxRetries       int
	HTTPTimeout      time.Duration

	// PageSize is the listing page ceiling (the API caps it at 100).
	// CommentFetchCap bounds how many posts per subreddit get a
	// comment-tree fetch.
	PageSize        int
	CommentFetchCap int

	// AcquisitionWeight is the share of overall progress allotted to the
	// acquisition phase; the remote phase fills the remainder.
	AcquisitionWeight float64

	// SnapshotTTL bounds how long completed results stay loadable.
	SnapshotTTL time.Duration
}

// Default returns production settings: public JSON limits (1 req / 2s),
// 30s backoff on 429, three attempts.
func Default() Config {
	return Config{
		Mode:              "public",
		UserAgent:         "undercurrent/1.0 (research tool)",
		BaseURL:           "https://www.reddit.com",
		AnalysisURL:       "http://localhost:8000/api/analyze-prefetched",
		RequestDelay:      2 * time.Second,
		RateLimitBackoff:  30 * time.Second,
		MaxRetries:        3,
		HTTPTimeout:       30 * time.Second,
		PageSize:          100,
		CommentFetchCap:   25,
		AcquisitionWeight: 0.3,
		SnapshotTTL:       time.Hour,
	}
}

// FromEnv overlays environment variables onto the defaults.
func FromEnv() Config {
	cfg := Default()
	if v := os.Getenv("COLLECTOR_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("REDDIT_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("REDDIT_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("ANALYSIS_URL"); v != "" {
		cfg.AnalysisURL = v
	}
	cfg.ClientID = os.Getenv("REDDIT_CLIENT_ID")
	cfg.ClientSecret = os.Getenv("REDDIT_CLIENT_SECRET")
	cfg.Username = os.Getenv("REDDIT_USERNAME")
	cfg.Password = os.Getenv("REDDIT_PASSWORD")
	if v := os.Getenv("REQUEST_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.RequestDelay = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxRetries = n
		}
	}
	if v := os.Getenv("COMMENT_FETCH_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CommentFetchCap = n
		}
	}
	return cfg
}
