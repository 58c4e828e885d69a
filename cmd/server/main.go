package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/yourorg/payment-gateways/internal/config"
	"github.com/yourorg/payment-gateways/pkg/logger"
)

func bindJSON(body []byte, v any) error {
	return json.Unmarshal(body, v)
}

// initTracing installs a stdout exporter. The returned func flushes it.
func initTracing() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func main() {
	cfg := config.New()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	if cfg.IsLive() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.EnableTracing {
		shutdown, err := initTracing()
		if err != nil {
			logger.Fatal("Failed to initialise tracing", map[string]interface{}{"error": err.Error()})
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	store, log, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open stores", map[string]interface{}{"error": err.Error()})
	}
	app, err := newApp(ctx, cfg, store, log)
	if err != nil {
		logger.Fatal("Failed to initialise gateways", map[string]interface{}{"error": err.Error()})
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting server", map[string]interface{}{
			"port":        cfg.Port,
			"environment": string(cfg.Environment),
			"mock":        cfg.MockGateways,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to run server", map[string]interface{}{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "Server shutdown failed", nil)
	}
	logger.Info("Server stopped", nil)
}
