package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/calloff/internal/advisor"
	"github.com/i474232898/calloff/internal/alert"
	httpapi "github.com/i474232898/calloff/internal/api/http"
	"github.com/i474232898/calloff/internal/calibration"
	"github.com/i474232898/calloff/internal/config"
	"github.com/i474232898/calloff/internal/risk"
	"github.com/i474232898/calloff/internal/scheduler"
	"github.com/i474232898/calloff/internal/store"
	"github.com/i474232898/calloff/internal/telemetry"
	"github.com/i474232898/calloff/internal/telemetry/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("calloff stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	airport := cfg.AirportInfo()
	if cfg.Geocode() {
		airport, err = providers.ResolveAirport(airport, cfg.Airport.Address, cfg.Airport.GeocoderAPIKey)
		if err != nil {
			return err
		}
		log.Info("airport geocoded", "airport", airport.Code, "lat", airport.Lat, "lon", airport.Lon)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.TelemetryTimeout}

	// Weather providers in fallback order; keyed providers without a key are skipped.
	var weather []telemetry.WeatherProvider
	if cfg.Providers.WeatherAPIKey != "" {
		weather = append(weather, providers.NewWeatherAPIProvider(httpClient, cfg.Providers.WeatherAPIKey))
	}
	if cfg.Providers.OpenWeatherAPIKey != "" {
		weather = append(weather, providers.NewOpenWeatherProvider(httpClient, cfg.Providers.OpenWeatherAPIKey))
	}
	if cfg.Providers.OpenMeteoEnabled {
		weather = append(weather, providers.NewOpenMeteoProvider(httpClient))
	}
	if len(weather) == 0 {
		log.Warn("no weather providers configured; weather factors will never trigger")
	}
	traffic := providers.NewOpenSkyProvider(httpClient, cfg.Providers.OpenSkyUsername, cfg.Providers.OpenSkyPassword)

	collector := telemetry.NewCollector(airport, traffic, weather, cfg.TelemetryTimeout, log)

	backend, err := store.Open(ctx, cfg.StoreOptions(loc))
	if err != nil {
		return err
	}
	defer backend.Close()

	var notifier alert.Notifier = alert.NewLogNotifier(log)
	if cfg.Notify.WebhookURL != "" {
		notifier = alert.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
	}
	gate := alert.NewGate(backend.Markers, notifier, loc, airport.Code, log)

	service := advisor.NewService(collector, risk.NewScorer(cfg.RiskConfig()), backend.Log, gate, loc, log)

	switch model, err := calibration.LoadFile(cfg.Train.ModelPath); {
	case err == nil:
		service.SetModel(model)
		log.Info("calibration model loaded", "model_id", model.ID, "trained_at", model.TrainedAt)
	case errors.Is(err, fs.ErrNotExist):
		log.Info("no calibration model found", "path", cfg.Train.ModelPath)
	default:
		log.Warn("calibration model not loaded", "path", cfg.Train.ModelPath, "error", err)
	}

	// Scheduler that periodically runs the tick.
	sched := scheduler.New(service, cfg.TickInterval, cfg.TelemetryTimeout+cfg.Notify.Timeout+5*time.Second, log)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "calloff",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, service)

	go func() {
		log.Info("http server listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	return nil
}
