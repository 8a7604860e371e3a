// cmd/hedge-server/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"hedge-mcp/internal/cache"
	"hedge-mcp/internal/common/config"
	"hedge-mcp/internal/common/database"
	"hedge-mcp/internal/common/logger"
	"hedge-mcp/internal/common/observability"
	"hedge-mcp/internal/hedge/cachekey"
	"hedge-mcp/internal/hedge/orchestrator"
	"hedge-mcp/internal/llm"
	"hedge-mcp/internal/server"
	"hedge-mcp/internal/store"
	"hedge-mcp/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting hedge MCP server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Build the pipeline ---
	keys := cachekey.New(
		time.Duration(cfg.Cache.ShortTTL)*time.Second,
		time.Duration(cfg.Cache.RealtimeTTL)*time.Second,
	)
	cacheStore := cache.NewStore(redisClient.GetClient(), keys, log)
	rowStore := store.NewRowStore(pg.GetDB(),
		time.Duration(cfg.Database.Postgres.QueryTimeout)*time.Millisecond, log)
	llmClient := llm.NewClient(&llm.Config{
		BaseURL:    cfg.APIs.LLM.BaseURL,
		APIKey:     cfg.APIs.LLM.APIKey,
		Timeout:    time.Duration(cfg.APIs.LLM.Timeout) * time.Millisecond,
		MaxRetries: cfg.APIs.LLM.MaxRetries,
	}, log)

	orch := orchestrator.New(keys, cacheStore, rowStore, llmClient,
		cfg.App.FundID, cfg.App.Version, log)

	reg := registry.DefaultRegistry()
	s := server.New(cfg.App.Name, cfg.App.Version, orch, reg, obs)

	// --- Health/Metrics listener ---
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			health := orch.Health(r.Context())
			w.Header().Set("Content-Type", "application/json")
			if health.Status != "healthy" {
				w.WriteHeader(http.StatusServiceUnavailable)
			}
			json.NewEncoder(w).Encode(health)
		})
		mux.Handle("/metrics", promhttp.Handler())

		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		zapLog.Info("Health/Metrics server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		zapLog.Info("Shutdown signal received, stopping...")
		zapLog.Sync()
		os.Exit(0)
	}()

	// Stdio transport: stdout carries the protocol, all logging goes
	// to stderr.
	if err := mcpserver.ServeStdio(s); err != nil {
		zapLog.Fatal("mcp server failed", zap.Error(err))
	}

	zapLog.Info("Hedge MCP server stopped gracefully")
}
