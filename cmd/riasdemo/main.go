// Command riasdemo is an example wiring of Rias: it loads a YAML node list,
// starts a Cluster, and exposes health and Prometheus metrics endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/MrWong99/rias"
	"github.com/MrWong99/rias/internal/config"
	"github.com/MrWong99/rias/metrics"
	"github.com/MrWong99/rias/node"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "riasdemo: config file %q not found\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "riasdemo: %v\n", err)
		}
		return 1
	}

	lvl := slog.LevelInfo
	if cfg.Debug {
		lvl = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, err := metrics.InitProvider(ctx, metrics.ProviderConfig{
		ServiceName: cfg.Metrics.ServiceName,
	})
	if err != nil {
		slog.Error("failed to init metrics provider", "err", err)
		return 1
	}
	defer shutdownMetrics(context.Background())

	m, err := metrics.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to build metrics instruments", "err", err)
		return 1
	}

	strategy := rias.LoadBalanced
	if cfg.Cluster.NodeSelectionStrategy != "" {
		s, ok := rias.ParseSelectionStrategy(cfg.Cluster.NodeSelectionStrategy)
		if !ok {
			slog.Error("invalid node selection strategy", "strategy", cfg.Cluster.NodeSelectionStrategy)
			return 1
		}
		strategy = s
	}

	cluster := rias.New(rias.Config{
		Strategy: strategy,
		Metrics:  m,
		// Send is left nil in this demo: no chat-platform gateway is wired.
		// A real deployment supplies voice.NewSend(session) here.
	})

	for _, nc := range cfg.Nodes {
		nodeCfg := node.Config{
			ID:                   nc.ID,
			Host:                 nc.Host,
			Port:                 nc.Port,
			Secure:               nc.Secure,
			Password:             nc.Password,
			Region:               nc.Region,
			Priority:             nc.Priority,
			ResumeKey:            nc.ResumeKey,
			ResumeTimeout:        nc.ResumeTimeout,
			MaxReconnectAttempts: nc.MaxReconnectAttempts,
			ReconnectDelay:       nc.ReconnectDelay,
			UserAgent:            cfg.Cluster.UserAgent,
			Metrics:              m,
		}
		n, err := cluster.AddNode(ctx, nodeCfg)
		if err != nil {
			slog.Error("failed to add node", "host", nc.Host, "port", nc.Port, "err", err)
			continue
		}
		slog.Info("node connected", "id", n.ID(), "region", n.Region())
	}

	if len(cluster.Nodes()) == 0 {
		slog.Error("no nodes could be connected, exiting")
		return 1
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "nodes=%d\n", len(cluster.Nodes()))
	})

	listenAddr := cfg.Metrics.ListenAddr
	if listenAddr == "" {
		listenAddr = ":9090"
	}
	srv := &http.Server{Addr: listenAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "err", err)
		}
	}()

	slog.Info("riasdemo ready", "nodes", len(cluster.Nodes()), "metrics_addr", listenAddr, "strategy", strategy.String())

	<-ctx.Done()
	slog.Info("shutdown signal received, stopping…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("metrics server shutdown error", "err", err)
	}
	if err := cluster.Shutdown(shutdownCtx, 30*time.Second); err != nil {
		slog.Error("cluster shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}
