// Package config loads the process configuration from the environment.
//
// Values are resolved in this order: OS environment, then a .env file in the
// working directory, then the defaults in the struct tags. An invalid value
// fails startup.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/i474232898/calloff/internal/calibration"
	"github.com/i474232898/calloff/internal/risk"
	"github.com/i474232898/calloff/internal/store"
	"github.com/i474232898/calloff/internal/telemetry"
)

// Config is the full process configuration.
type Config struct {
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Port             string        `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	TickInterval     time.Duration `envconfig:"TICK_INTERVAL" default:"1m" validate:"gt=0"`
	Timezone         string        `envconfig:"TIMEZONE" default:"America/Chicago" validate:"required,timezone"`
	TelemetryTimeout time.Duration `envconfig:"TELEMETRY_TIMEOUT" default:"10s" validate:"gt=0"`

	Airport   AirportConfig
	Providers ProviderConfig
	Store     StoreConfig
	Notify    NotifyConfig
	Risk      RiskConfig
	Train     TrainConfig
}

// AirportConfig identifies the monitored airport. When both Address and
// GeocoderAPIKey are set the coordinates are resolved from the address at
// startup and Lat/Lon are ignored.
type AirportConfig struct {
	Code           string  `envconfig:"AIRPORT_CODE" default:"ORD" validate:"required"`
	Lat            float64 `envconfig:"AIRPORT_LAT" default:"41.9786" validate:"gte=-90,lte=90"`
	Lon            float64 `envconfig:"AIRPORT_LON" default:"-87.9048" validate:"gte=-180,lte=180"`
	RadiusKm       float64 `envconfig:"AIRPORT_RADIUS_KM" default:"25" validate:"gt=0"`
	Address        string  `envconfig:"AIRPORT_ADDRESS"`
	GeocoderAPIKey string  `envconfig:"GEOCODER_API_KEY"`
}

// ProviderConfig holds telemetry provider credentials. A weather provider
// without a key is skipped.
type ProviderConfig struct {
	WeatherAPIKey     string `envconfig:"WEATHERAPI_API_KEY"`
	OpenWeatherAPIKey string `envconfig:"OPENWEATHER_API_KEY"`
	OpenMeteoEnabled  bool   `envconfig:"OPENMETEO_ENABLED" default:"true"`
	OpenSkyUsername   string `envconfig:"OPENSKY_USERNAME"`
	OpenSkyPassword   string `envconfig:"OPENSKY_PASSWORD"`
}

// StoreConfig selects the evaluation log backend.
type StoreConfig struct {
	Backend     string `envconfig:"STORE_BACKEND" default:"file" validate:"oneof=file memory postgres"`
	LogPath     string `envconfig:"STORE_LOG_PATH" default:"calloff_log.csv" validate:"required_if=Backend file"`
	MarkerPath  string `envconfig:"STORE_MARKER_PATH" default:"last_alert.json" validate:"required_if=Backend file"`
	DatabaseURL string `envconfig:"DATABASE_URL" validate:"required_if=Backend postgres"`
}

// NotifyConfig configures the alert notifier. Without a webhook URL alerts
// are written to the log only.
type NotifyConfig struct {
	WebhookURL string        `envconfig:"NOTIFY_WEBHOOK_URL" validate:"omitempty,url"`
	Timeout    time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s" validate:"gt=0"`
}

// RiskConfig overrides the scoring weights, limits and bands.
type RiskConfig struct {
	WeightLowTraffic       int      `envconfig:"RISK_WEIGHT_LOW_TRAFFIC" default:"40" validate:"gte=0,lte=100"`
	WeightPoorVisibility   int      `envconfig:"RISK_WEIGHT_POOR_VISIBILITY" default:"25" validate:"gte=0,lte=100"`
	WeightAdverseCondition int      `envconfig:"RISK_WEIGHT_ADVERSE_CONDITION" default:"25" validate:"gte=0,lte=100"`
	WeightTemperature      int      `envconfig:"RISK_WEIGHT_TEMPERATURE" default:"10" validate:"gte=0,lte=100"`
	LowTrafficBelow        int      `envconfig:"RISK_LOW_TRAFFIC_BELOW" default:"10" validate:"gte=0"`
	VisibilityBelowMiles   float64  `envconfig:"RISK_VISIBILITY_BELOW_MI" default:"1.5" validate:"gte=0"`
	TemperatureBelowF      float64  `envconfig:"RISK_TEMP_BELOW_F" default:"15"`
	TemperatureAboveF      float64  `envconfig:"RISK_TEMP_ABOVE_F" default:"90" validate:"gtfield=TemperatureBelowF"`
	Vocabulary             []string `envconfig:"RISK_VOCABULARY" default:"fog,storm,snow,rain" validate:"min=1,dive,required"`
	BorderlineAt           int      `envconfig:"RISK_BORDERLINE_AT" default:"40" validate:"gte=0,lte=100"`
	CallOffAt              int      `envconfig:"RISK_CALLOFF_AT" default:"70" validate:"gtfield=BorderlineAt,lte=100"`
}

// TrainConfig holds the calibration options and the artifact path.
type TrainConfig struct {
	ModelPath      string  `envconfig:"MODEL_PATH" default:"calloff_model.json.zst" validate:"required"`
	MinRows        int     `envconfig:"TRAIN_MIN_ROWS" default:"10"`
	TestFraction   float64 `envconfig:"TRAIN_TEST_FRACTION" default:"0.2"`
	Seed           int64   `envconfig:"TRAIN_SEED" default:"42"`
	Trees          int     `envconfig:"TRAIN_TREES" default:"100"`
	MaxDepth       int     `envconfig:"TRAIN_MAX_DEPTH" default:"0"`
	MinSamplesLeaf int     `envconfig:"TRAIN_MIN_SAMPLES_LEAF" default:"1"`
	ClassWeight    string  `envconfig:"TRAIN_CLASS_WEIGHT" default:"balanced"`
}

// Load reads .env (if present) and the environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "error", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks every field constraint, including the training options.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.TrainOptions().Validate(); err != nil {
		return err
	}
	return nil
}

// Level maps LOG_LEVEL onto a slog level.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Location loads the calendar-day zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Geocode reports whether the airport coordinates come from the geocoder.
func (c *Config) Geocode() bool {
	return c.Airport.Address != "" && c.Airport.GeocoderAPIKey != ""
}

// AirportInfo returns the configured airport.
func (c *Config) AirportInfo() telemetry.Airport {
	return telemetry.Airport{
		Code:     strings.ToUpper(c.Airport.Code),
		Lat:      c.Airport.Lat,
		Lon:      c.Airport.Lon,
		RadiusKm: c.Airport.RadiusKm,
	}
}

// RiskConfig returns the scorer configuration.
func (c *Config) RiskConfig() risk.Config {
	r := c.Risk
	vocab := make(risk.Vocabulary, 0, len(r.Vocabulary))
	for _, term := range r.Vocabulary {
		if term = strings.TrimSpace(term); term != "" {
			vocab = append(vocab, term)
		}
	}
	return risk.Config{
		Weights: risk.Weights{
			LowTraffic:         r.WeightLowTraffic,
			PoorVisibility:     r.WeightPoorVisibility,
			AdverseCondition:   r.WeightAdverseCondition,
			TemperatureExtreme: r.WeightTemperature,
		},
		Limits: risk.Limits{
			LowTrafficBelow:      r.LowTrafficBelow,
			VisibilityBelowMiles: r.VisibilityBelowMiles,
			TemperatureBelowF:    r.TemperatureBelowF,
			TemperatureAboveF:    r.TemperatureAboveF,
		},
		Vocabulary: vocab,
		Bands:      risk.Bands{BorderlineAt: r.BorderlineAt, CallOffAt: r.CallOffAt},
	}
}

// TrainOptions returns the calibration options.
func (c *Config) TrainOptions() calibration.Options {
	t := c.Train
	return calibration.Options{
		MinRows:        t.MinRows,
		TestFraction:   t.TestFraction,
		Seed:           t.Seed,
		Trees:          t.Trees,
		MaxDepth:       t.MaxDepth,
		MinSamplesLeaf: t.MinSamplesLeaf,
		ClassWeight:    t.ClassWeight,
	}
}

// StoreOptions returns the backend options. loc interprets legacy CSV
// timestamps.
func (c *Config) StoreOptions(loc *time.Location) store.Options {
	return store.Options{
		Backend:     c.Store.Backend,
		LogPath:     c.Store.LogPath,
		MarkerPath:  c.Store.MarkerPath,
		DatabaseURL: c.Store.DatabaseURL,
		Zone:        loc,
	}
}
