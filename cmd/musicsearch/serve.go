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

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/music-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/lyrics"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/music-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/music-search/pkg/resilience"
	pkgredis "github.com/Adithya-Monish-Kumar-K/music-search/pkg/redis"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search API over HTTP.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := appCfg
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting search service", "port", cfg.Server.Port, "data_dir", cfg.Indexer.DataDir)
	m := metrics.New(nil)

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	var publisher analytics.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		publisher = producer
		slog.Info("analytics publishing enabled", "topic", cfg.Kafka.Topics.AnalyticsEvents)
	}
	collector := analytics.NewCollector(publisher, aggregator, 100, 5*time.Second)
	collector.Start(ctx)
	defer func() {
		stop()
		collector.Close()
	}()

	svc, opened, err := searcher.Open(cfg.Indexer.DataDir, searcher.Options{
		MaxResults: cfg.Search.MaxResults,
		Cache:      queryCache,
		Collector:  collector,
		Metrics:    m,
	})
	if err != nil {
		slog.Error("failed to open indexes", "error", err)
		return err
	}
	defer func() {
		for _, ix := range opened {
			ix.Close()
		}
	}()

	checker := health.NewChecker()
	checker.Register("indexes", health.PingCheck(svc.Ping, health.StatusDown))
	var redisPing func(context.Context) error
	if redisClient != nil {
		redisPing = redisClient.Ping
	}
	checker.Register("redis", health.PingCheck(redisPing, health.StatusDegraded))
	fetcher := lyrics.NewHTTPFetcher(cfg.Lyrics)
	checker.Register("lyrics_site", func(context.Context) health.ComponentHealth {
		if state := fetcher.BreakerState(); state != resilience.StateClosed {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit " + state.String()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	lyricsLimiter := ratelimit.New(cfg.Lyrics.RateLimit, cfg.Lyrics.RateWindow)
	go lyricsLimiter.Run(ctx, 5*time.Minute)
	handler.New(svc, fetcher, cfg.Search.DefaultLimit).
		Register(mux, middleware.RateLimit(lyricsLimiter))
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		return err
	}

	slog.Info("search service stopped")
	return nil
}
