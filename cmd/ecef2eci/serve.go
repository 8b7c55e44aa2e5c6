package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/ecef2eci/internal/api"
	"github.com/star/ecef2eci/internal/auth"
	"github.com/star/ecef2eci/internal/convert"
	"github.com/star/ecef2eci/internal/ratelimit"
	"github.com/star/ecef2eci/internal/stream"
)

func newServeCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion HTTP API",
		Long: `Starts the HTTP API. Configuration is read from the environment:

  ECI_HTTP_ADDR            listen address (default :8080)
  ECI_AUTH_ENABLED         require a bearer token (default false)
  ECI_AUTH_TOKEN           bearer token, required when auth is enabled
  ECI_WORKERS              batch worker pool size (default: number of CPUs)
  ECI_MAX_BATCH            max items per batch request (default 10000)
  ECI_MAX_TRACK_SAMPLES    max samples per track request (default 86400)
  ECI_RATE_LIMIT           requests per second per client IP, 0 disables (default 20)
  ECI_RATE_BURST           rate limiter burst (default 40)
  ECI_TRUST_PROXY          use X-Forwarded-For / X-Real-IP for client IPs (default false)
  ECI_STREAM_MAX_CONCURRENT       max open position streams per client IP (default 10)
  ECI_STREAM_KEEPALIVE_INTERVAL   stream keep-alive interval in seconds (default 30)
  ECI_LOG_LEVEL            debug, info, warn or error (default info)`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), logger)
		},
	}
}

func serve(ctx context.Context, logger *slog.Logger) error {
	addr := os.Getenv("ECI_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		return err
	}

	conv := convert.NewConverter(loadConvertConfig(logger), logger)
	limiter := ratelimit.New(loadRateLimitConfig(logger))
	streams := stream.NewHandler(loadStreamConfig(logger), logger)
	srv := api.NewServer(addr, logger, authCfg, limiter, conv, streams)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if limiter.Enabled() {
		go limiter.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled, "rate_limited", limiter.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error("server listen error", "error", err)
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	srv.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("ECI_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("ECI_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("ECI_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("ECI_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

// envPositiveInt reads a positive integer from the environment, falling back
// to def with a warning when the value is malformed.
func envPositiveInt(logger *slog.Logger, key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		logger.Warn(fmt.Sprintf("invalid %s value, using default", key), "value", v, "default", def)
		return def
	}
	return n
}

func loadConvertConfig(logger *slog.Logger) convert.Config {
	cfg := convert.Config{
		Workers:         envPositiveInt(logger, "ECI_WORKERS", runtime.NumCPU()),
		MaxBatch:        envPositiveInt(logger, "ECI_MAX_BATCH", 10000),
		MaxTrackSamples: envPositiveInt(logger, "ECI_MAX_TRACK_SAMPLES", 86400),
	}

	logger.Info("convert config",
		"workers", cfg.Workers,
		"max_batch", cfg.MaxBatch,
		"max_track_samples", cfg.MaxTrackSamples,
	)

	return cfg
}

func loadRateLimitConfig(logger *slog.Logger) ratelimit.Config {
	cfg := ratelimit.Config{
		Rate:  20,
		Burst: 40,
	}

	if v := os.Getenv("ECI_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			logger.Warn("invalid ECI_RATE_LIMIT value, using default", "value", v, "default", cfg.Rate)
		} else {
			cfg.Rate = f
		}
	}

	cfg.Burst = envPositiveInt(logger, "ECI_RATE_BURST", cfg.Burst)

	if v := os.Getenv("ECI_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid ECI_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("rate limit config",
		"rate_per_second", cfg.Rate,
		"burst", cfg.Burst,
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: envPositiveInt(logger, "ECI_STREAM_MAX_CONCURRENT", 10),
		KeepaliveInterval:  time.Duration(envPositiveInt(logger, "ECI_STREAM_KEEPALIVE_INTERVAL", 30)) * time.Second,
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
	)

	return cfg
}
