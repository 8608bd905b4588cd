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

	"github.com/ghaleb-d/sol-transfer/internal/config"
	"github.com/ghaleb-d/sol-transfer/internal/engine"
	"github.com/ghaleb-d/sol-transfer/internal/handler"
	"github.com/ghaleb-d/sol-transfer/internal/ledger"
	"github.com/ghaleb-d/sol-transfer/internal/middleware"
	"github.com/ghaleb-d/sol-transfer/internal/queue"
	"github.com/ghaleb-d/sol-transfer/internal/signer"
	"github.com/ghaleb-d/sol-transfer/internal/telemetry"
	"github.com/ghaleb-d/sol-transfer/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

const serviceName = "sol-transfer"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load(".env", os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	// Initialize structured logging
	telemetry.InitLogger(serviceName, telemetry.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration", err)
	}

	// Initialize OpenTelemetry tracing
	cleanup, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName: serviceName,
		Version:     version,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		telemetry.Logger.Warn("failed to initialize tracer", "error", err)
	} else {
		defer cleanup()
	}

	gin.SetMode(cfg.GinMode)

	telemetry.Logger.Info("starting sol-transfer service", "version", version, "ledger", ledger.DevnetEndpoint)

	// 1. Check the signer keypair once so a bad file stops startup instead of every transfer
	keys := signer.NewFileSource(cfg.KeypairPath)
	identity, err := keys.Load()
	if err != nil {
		fatal("failed to load signer keypair", err, "path", cfg.KeypairPath)
	}
	telemetry.Logger.Info("signer keypair loaded", "public_key", identity.PublicKey.String())

	// 2. Ledger client and transfer engine
	ledgerClient := ledger.NewClient(ledger.DevnetEndpoint)
	transferEngine := engine.NewTransferEngine(ledgerClient, keys, engine.NewLedgerSubmitter(ledgerClient))

	// 3. Optional transfer notifications
	if cfg.NATSUrl != "" {
		telemetry.Logger.Info("connecting to NATS", "url", cfg.NATSUrl)
		natsClient, err := queue.NewNATSClient(cfg.NATSUrl)
		if err != nil {
			fatal("failed to connect to NATS", err)
		}
		defer natsClient.Close()
		transferEngine.RegisterEventHandler(queue.NewEventNotifier(natsClient.GetConn()).HandleEvent)
		telemetry.Logger.Info("publishing transfer events", "subject", queue.EventSubject)
	}

	// 4. Shared pool for blocking ledger calls
	pool := worker.NewPool(cfg.BlockingWorkers)

	// 5. HTTP handler
	h := handler.NewHandler(transferEngine, ledgerClient, pool)

	// 6. Setup Gin router with middleware
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Tracing())
	router.Use(middleware.Metrics())
	handler.SetupRoutes(router, h,
		middleware.RateLimit(middleware.NewRateLimiter(cfg.TransferRateLimit, cfg.TransferRateBurst)),
	)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}).Handler(router)

	// 7. HTTP server. No write timeout: a transfer waits for ledger confirmation.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
	}

	// 8. Metrics server (separate port for Prometheus scraping)
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		telemetry.Logger.Info("HTTP server listening", "port", cfg.Port, "blocking_workers", pool.Size())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("HTTP server error", err)
		}
	}()

	go func() {
		telemetry.Logger.Info("metrics server listening", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("metrics server error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("shutting down")

	// In-flight transfers keep their slot until the ledger answers; give them time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("HTTP server forced to shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("metrics server forced to shutdown", "error", err)
	}

	telemetry.Logger.Info("service stopped")
}

func fatal(msg string, err error, attrs ...any) {
	telemetry.Logger.Error(msg, append([]any{"error", err}, attrs...)...)
	os.Exit(1)
}
