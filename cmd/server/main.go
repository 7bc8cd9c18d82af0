package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Brownie44l1/digit-pad/internal/config"
	"github.com/Brownie44l1/digit-pad/internal/handlers"
	"github.com/Brownie44l1/digit-pad/internal/inference"
	"github.com/Brownie44l1/digit-pad/internal/otel"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	configFlag := flag.String("config", os.Getenv("DIGITPAD_CONFIG"), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configFlag)

	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.SetLevel(cfg.LogLevel)
	log.SetFormatter(&log.JSONFormatter{})

	logger := log.WithField("component", "gateway")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := otel.Setup(ctx, "digitpad-gateway")

	if err != nil {
		log.Fatalf("Failed to set up telemetry: %v", err)
	}

	if otel.Enabled() {
		log.Info("Exporting traces via OTLP")
	}

	client, err := cfg.Client(log.WithField("component", "inference"))

	if err != nil {
		log.Fatalf("Failed to create inference client: %v", err)
	}

	predictor := inference.NewLimited(cfg.Limiter(), client)
	handler := handlers.NewHandler(predictor, client, logger, cfg.NormalizeOptions()...)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handlers.Logger(logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Traceparent", "Tracestate", "Baggage"},
	}))

	handler.Attach(r)

	server := &http.Server{
		Addr:    cfg.Address,
		Handler: otelhttp.NewHandler(r, "digitpad"),

		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		server.Shutdown(shutdownCtx)
		shutdownTelemetry(shutdownCtx)
	}()

	log.Infof("Server starting on %s", cfg.Address)
	log.Infof("Inference endpoint: %s (timeout %s)", client.URL(), cfg.PredictTimeout)
	log.Infof("Resampling filter: %s", cfg.Filter)
	log.Info("Endpoints:")
	log.Info("  GET  /health        - Gateway and inference status")
	log.Info("  POST /predict       - Raw RGBA canvas prediction")
	log.Info("  POST /predict/image - Predict from canvas image upload")
	log.Info("  POST /normalize     - 28x28 preview of a canvas image")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}
