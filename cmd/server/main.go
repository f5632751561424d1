package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cloud-ru/loan-preview-go/internal/backend"
	"github.com/cloud-ru/loan-preview-go/internal/cache"
	"github.com/cloud-ru/loan-preview-go/internal/calculations"
	"github.com/cloud-ru/loan-preview-go/internal/config"
	"github.com/cloud-ru/loan-preview-go/internal/logger"
	"github.com/cloud-ru/loan-preview-go/internal/tools"
	"github.com/cloud-ru/loan-preview-go/internal/tracing"
	"github.com/cloud-ru/loan-preview-go/internal/transport/rest"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "loan-preview: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// бэкенд и консоль ждут суммы числами
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, shutdownTracing, err := tracing.InitTracing(ctx, cfg.OTELServiceName, cfg.OTELEndpoint, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, tracer, log)

	var loans cache.LoanSource = client
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn("loan cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			defer func() { _ = rdb.Close() }()
			loans = cache.NewLoanCache(rdb, client, cfg.RedisPrefix, cfg.LoanCacheTTL, log)
		}
	}

	calc := calculations.NewPreviewCalculator(log,
		calculations.WithDayCountBasis(cfg.DayCountBasis),
		calculations.WithClampNegativeDays(cfg.ClampNegativeDays),
	)

	handler := rest.NewHandler(
		tools.InstallmentPreviewHandler(cfg, calc, loans, client, tracer, log),
		tools.InstallmentSummaryHandler(client, tracer),
		tools.InstallmentSubmitHandler(cfg, calc, loans, client, client, tracer, log),
		log,
	)

	server := newServer(cfg.Port, handler.InitRouter())

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr), zap.String("backend", cfg.BackendURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
		log.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}

// newServer оставляет запас над rest.RequestTimeout, чтобы ответ о
// таймауте успел записаться
func newServer(port int, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: rest.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
