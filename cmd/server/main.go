package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kmurata/bluesky-likesback/internal/bluesky"
	"github.com/kmurata/bluesky-likesback/internal/config"
	"github.com/kmurata/bluesky-likesback/internal/domain"
	"github.com/kmurata/bluesky-likesback/internal/firehose"
	"github.com/kmurata/bluesky-likesback/internal/httpserver"
	"github.com/kmurata/bluesky-likesback/internal/sqlite"
	"github.com/kmurata/bluesky-likesback/internal/subscribers"
)

const (
	subscriberRefreshInterval = time.Minute
	cleanupInterval           = 30 * time.Minute
	likeMaxAge                = 12 * time.Hour
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Repository implements the like, cursor and subscriber ports.
	repo, err := sqlite.NewRepository(cfg.SQLitePath)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	defer repo.Close()
	logger.Info("opened database", "path", cfg.SQLitePath)

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Author feed fetches are authenticated when credentials are set;
	// without them the AppView may reject or throttle fetches, which
	// degrades feeds rather than failing them.
	client := bluesky.NewClient(cfg.PDSHost)
	if cfg.Identifier != "" && cfg.AppPassword != "" {
		if err := client.Login(ctx, cfg.Identifier, cfg.AppPassword); err != nil {
			return fmt.Errorf("bluesky login: %w", err)
		}
		logger.Info("logged in to bluesky", "did", client.DID())
	} else {
		logger.Warn("no bluesky credentials set, author feed fetches are unauthenticated")
	}

	feedURI := domain.NewLikesBackFeedURI(cfg.PublisherDID)
	feedService := domain.NewFeedService(feedURI, repo, repo, client, logger)

	// Start the subscriber cache refresh loop
	cache := subscribers.NewCache(repo, logger)
	go cache.Start(ctx, subscriberRefreshInterval)

	// Start the firehose subscriber in the background
	subscriber := firehose.NewSubscriber(cfg.FirehoseURL, feedService, cache, logger)
	go func() {
		if err := subscriber.Start(ctx); err != nil && ctx.Err() == nil {
			logger.Error("firehose subscriber exited with error", "error", err)
		}
	}()

	// Start background like cleanup
	go feedService.StartCleanupJob(ctx, cleanupInterval, likeMaxAge)

	// Start the HTTP server
	server := httpserver.NewServer(cfg, feedService, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port, "hostname", cfg.Hostname, "feed", feedURI)

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}
