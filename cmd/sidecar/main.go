// Command sidecar runs the LLM inference routing sidecar: it polls LTM for
// pool membership, scrapes each member's Prometheus metrics, scores and
// selects endpoints for the LB, and serves the scheduler HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/f5devcentral/llm-inference-lb/internal/collector"
	"github.com/f5devcentral/llm-inference-lb/internal/config"
	"github.com/f5devcentral/llm-inference-lb/internal/ltm"
	"github.com/f5devcentral/llm-inference-lb/internal/obsmetrics"
	"github.com/f5devcentral/llm-inference-lb/internal/pool"
	"github.com/f5devcentral/llm-inference-lb/internal/selector"
	"github.com/f5devcentral/llm-inference-lb/internal/server"
)

// shutdownTimeout bounds how long main waits for in-flight HTTP responses
// to drain after the first termination signal.
const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	maxScrapeConcurrency := flag.Int("max-scrape-concurrency", 64, "max concurrent metrics scrapes per pool tick")
	noMetrics := flag.Bool("no-self-metrics", false, "disable the /metrics self-observability endpoint")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	f, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", *configPath, "error", err)
		os.Exit(1)
	}

	if level := parseLogLevel(f.Global.LogLevel); level != slog.LevelInfo {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	}

	creds, err := config.ResolveF5Credentials(f.F5)
	if err != nil {
		slog.Error("failed to resolve F5 credentials", "error", err)
		os.Exit(1)
	}

	store := pool.NewStore()
	added, _, _ := store.ApplyConfigDiff(config.ResolvePoolConfigs(f))
	slog.Info("initial configuration applied", "pools", added)

	var metrics *obsmetrics.Registry
	if !*noMetrics {
		metrics = obsmetrics.New()
	}

	client := ltm.New(f.F5.Host, f.F5.Port, creds.Username, creds.Password)
	fetcher := ltm.NewFetcher(client, store)
	fetcher.Metrics = metrics

	coll := collector.New(store, *maxScrapeConcurrency, metrics)

	sel := selector.New(store)
	sel.Metrics = metrics

	intervals := config.NewIntervals(f.Scheduler)

	watcher := config.NewWatcher(*configPath, store, time.Duration(f.Global.Interval)*time.Second)
	watcher.Intervals = intervals

	srv := server.New(server.Config{Store: store, Selector: sel, Metrics: metrics})
	watcher.OnReload = func(added, updated, removed []string) {
		if len(added) == 0 && len(updated) == 0 && len(removed) == 0 {
			return
		}
		srv.Hub.Broadcast(server.TopicPools, server.ReloadEvent{
			Event:   "config_reload",
			Added:   added,
			Updated: updated,
			Removed: removed,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go fetcher.Run(ctx, intervals.PoolFetch)
	go coll.Run(ctx, intervals.MetricsFetch)
	go watcher.Run(ctx)

	serverErrCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", f.Global.APIHost, f.Global.APIPort)
		serverErrCh <- srv.Run(addr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining in-flight requests")
	case err := <-serverErrCh:
		if err != nil {
			slog.Error("http server exited unexpectedly", "error", err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error during server shutdown", "error", err)
	}

	client.Logout(shutdownCtx)
	slog.Info("sidecar stopped")
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
