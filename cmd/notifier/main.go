package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xaenox/teams-notify/internal/auth"
	"github.com/xaenox/teams-notify/internal/detector"
	"github.com/xaenox/teams-notify/internal/graph"
	"github.com/xaenox/teams-notify/internal/notify"
	"github.com/xaenox/teams-notify/internal/poller"
	"github.com/xaenox/teams-notify/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize token manager and API client
	tokens := auth.New(cfg.Auth, logger)
	client := graph.NewClient(cfg.Graph, tokens, logger)

	// Initialize notifier
	player := notify.NewPlayer(cfg.Notification, logger)

	// Initialize detector and poller
	d := detector.New(client, tokens, player, cfg.Poll, cfg.Notification.SoundPath, logger)
	p := poller.New(d, cfg.Poll.Interval(), logger)

	if cfg.Metrics.Enabled {
		go func() {
			logger.Info("Serving metrics", zap.String("addr", cfg.Metrics.ListenAddr))
			if err := http.ListenAndServe(cfg.Metrics.ListenAddr, promhttp.Handler()); err != nil {
				logger.Error("Metrics listener stopped", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start polling
	p.Run(ctx)
}
