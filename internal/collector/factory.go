package collector

import (
	"fmt"
	"log/slog"

	"github.com/qepting91/undercurrent/internal/config"
	"github.com/qepting91/undercurrent/internal/domain"
)

// NewSource selects the acquisition strategy for the configured mode.
func NewSource(cfg config.Config, logger *slog.Logger) (domain.Source, error) {
	switch cfg.Mode {
	case "public":
		if cfg.UserAgent == "" {
			return nil, fmt.Errorf("REDDIT_USER_AGENT is required for public mode")
		}
		return NewOrchestrator(cfg, logger), nil
	case "api":
		if cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, fmt.Errorf("REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET are required for api mode")
		}
		return NewAPIClient(cfg, logger)
	case "mock":
		return NewMockSource(), nil
	default:
		return nil, fmt.Errorf("unknown COLLECTOR_MODE: %s (use 'public', 'api', or 'mock')", cfg.Mode)
	}
}
