package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/qepting91/undercurrent/internal/analysis"
	"github.com/qepting91/undercurrent/internal/collector"
	"github.com/qepting91/undercurrent/internal/config"
	"github.com/qepting91/undercurrent/internal/dashboard"
	"github.com/qepting91/undercurrent/internal/domain"
	"github.com/qepting91/undercurrent/internal/session"
)

func main() {
	// 1. Setup
	godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	limit := flag.Int("limit", 25, "posts per subreddit")
	sort := flag.String("sort", domain.SortHot, "sort order: hot|new|rising|top")
	timeFilter := flag.String("t", "week", "time filter for top sort")
	comments := flag.Bool("comments", false, "also fetch comment trees")
	depth := flag.Int("depth", 1, "comment tree depth")
	cached := flag.Bool("cached", false, "serve a cached snapshot if one exists")
	flag.Parse()

	subs := flag.Args()
	if len(subs) == 0 {
		logger.Error("no subreddits given", "usage", "undercurrent [flags] subreddit...")
		os.Exit(1)
	}

	cfg := config.FromEnv()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// 2. Wire the pipeline
	source, err := collector.NewSource(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize source", "error", err)
		os.Exit(1)
	}
	logger.Info("source initialized", "mode", cfg.Mode)

	store := session.NewSnapshotStore(cfg.SnapshotTTL)
	stream := analysis.NewStreamConsumer(cfg)

	terminal := make(chan domain.Session, 1)
	ctrl := session.NewController(source, stream, store, cfg, logger, func(s domain.Session) {
		logger.Info("session",
			"status", s.Status, "stage", s.Stage, "progress", s.Progress, "message", s.Message)
		switch s.Status {
		case domain.StatusDone, domain.StatusError, domain.StatusIdle:
			select {
			case terminal <- s:
			default:
			}
		}
	})

	// 3. Dashboard
	go func() {
		logger.Info("starting dashboard", "port", port)
		if err := dashboard.StartServer(store, port); err != nil {
			logger.Error("dashboard failed", "err", err)
		}
	}()

	// 4. Run one session
	req := domain.AnalysisRequest{
		Subreddits:      subs,
		PostLimit:       *limit,
		Sort:            *sort,
		TimeFilter:      *timeFilter,
		IncludeComments: *comments,
		CommentDepth:    *depth,
	}
	if *cached && ctrl.LoadCached(subs) {
		logger.Info("served from snapshot cache")
	} else {
		ctrl.Start(req)
	}

	// 5. Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		ctrl.Cancel()
	}()

	final := <-terminal
	if final.Status == domain.StatusError {
		logger.Error("analysis failed", "message", final.Message)
		os.Exit(1)
	}
	logger.Info("session finished", "status", final.Status)

	if final.Status == domain.StatusDone {
		// Keep alive for the dashboard
		select {}
	}
}
