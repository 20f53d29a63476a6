package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Collector fetches traffic and weather concurrently and never fails: any
// provider error or timeout degrades to an absent reading.
type Collector struct {
	airport Airport
	traffic TrafficProvider
	weather []WeatherProvider
	timeout time.Duration
	logger  *slog.Logger
}

// NewCollector creates a Collector. Weather providers are tried in order and
// the first successful one wins.
func NewCollector(airport Airport, traffic TrafficProvider, weather []WeatherProvider, timeout time.Duration, logger *slog.Logger) *Collector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Collector{
		airport: airport,
		traffic: traffic,
		weather: weather,
		timeout: timeout,
		logger:  logger.With("component", "telemetry"),
	}
}

// Airport returns the airport the collector samples.
func (c *Collector) Airport() Airport {
	return c.airport
}

// Collect returns whatever telemetry could be gathered within the timeout.
func (c *Collector) Collect(ctx context.Context) Reading {
	var (
		g       errgroup.Group
		flights *int
		weather *Weather
	)

	g.Go(func() error {
		n, err := c.fetchTraffic(ctx)
		if err != nil {
			c.logger.Warn("traffic reading absent", "airport", c.airport.Key(), "error", err)
			return nil
		}
		flights = &n
		return nil
	})

	g.Go(func() error {
		w, err := c.fetchWeather(ctx)
		if err != nil {
			c.logger.Warn("weather reading absent", "airport", c.airport.Key(), "error", err)
			return nil
		}
		weather = &w
		return nil
	})

	_ = g.Wait()

	return Reading{FlightCount: flights, Weather: weather}
}

func (c *Collector) fetchTraffic(ctx context.Context) (int, error) {
	if c.traffic == nil {
		return 0, fmt.Errorf("%w: no traffic provider configured", ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	n, err := c.traffic.FlightCount(ctx, c.airport)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrUnavailable, c.traffic.Name(), err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s returned negative count %d", ErrUnavailable, c.traffic.Name(), n)
	}
	return n, nil
}

func (c *Collector) fetchWeather(ctx context.Context) (Weather, error) {
	if len(c.weather) == 0 {
		return Weather{}, fmt.Errorf("%w: no weather providers configured", ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var errs []error
	for _, p := range c.weather {
		w, err := p.Current(ctx, c.airport)
		if err != nil {
			// Log and continue; the next provider may still answer.
			c.logger.Debug("weather provider failed", "provider", p.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if w.ProviderName == "" {
			w.ProviderName = p.Name()
		}
		return w, nil
	}

	return Weather{}, fmt.Errorf("%w: %v", ErrUnavailable, errors.Join(errs...))
}
