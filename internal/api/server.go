// Package api configures and exposes the HTTP server, routes,
// metrics and related middleware for the domain expiry exporter.
package api

import (
	"context"
	"domainprobe/internal/api/handler/probehandler"
	"domainprobe/internal/config"
	"domainprobe/pkg/controller"
	"domainprobe/pkg/logger"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Options holds configuration for the HTTP server and its dependencies.
// It is typically created from a config.Config via NewOptions.
// All durations are used to configure server timeouts, and zero values
// should be considered as using the defaults provided by net/http where applicable.
type Options struct {
	// Addr is the TCP address the server listens on, e.g. ":9222".
	Addr string
	// ReadTimeout is the maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration
	// RequestTimeout is the global timeout applied via http.TimeoutHandler for handling requests.
	RequestTimeout time.Duration
	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing the request header's keys and values, including the request line.
	MaxHeaderBytes int
	// MetricsPath is the HTTP path at which the exporter's own metrics are served.
	MetricsPath string
	// ProbePath is the HTTP path answering probe requests.
	ProbePath string
	// EnablePprof mounts the runtime profiler under /debug/pprof/.
	EnablePprof bool

	// Registerer receives the OpenTelemetry exporter; prometheus.DefaultRegisterer when nil.
	Registerer prometheus.Registerer
	// Gatherer backs MetricsPath; prometheus.DefaultGatherer when nil.
	Gatherer prometheus.Gatherer
}

// NewOptions constructs an Options value from the provided application configuration.
// It maps HTTP server-related settings from config.Config to the Options used by the API server.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Addr:              cfg.HTTP.Addr,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MetricsPath:       cfg.HTTP.MetricsPath,
		ProbePath:         cfg.HTTP.ProbePath,
		EnablePprof:       cfg.HTTP.EnablePprof,
	}
}

type Deps struct {
	probehandler.Deps
}

// SetupMetrics installs a global OpenTelemetry meter provider whose readings
// are exported through registerer, so engine instruments appear on the
// metrics endpoint next to the Go runtime collectors.
func SetupMetrics(registerer prometheus.Registerer) (*sdkmetric.MeterProvider, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	exp, err := otelprom.New(otelprom.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	otel.SetMeterProvider(mp)

	return mp, nil
}

// NewServer wires up and returns a configured *http.Server using the provided Options.
// It sets up:
// - the exporter's own metrics endpoint (MetricsPath)
// - the probe endpoint (ProbePath) with request latency metrics
// - pprof endpoints for profiling, when enabled
// It also wraps the mux with the logging middleware and applies a request timeout.
// SetupMetrics is expected to have run before.
func NewServer(ctx context.Context, deps Deps, opts Options) (*http.Server, error) {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()

	// exporter metrics
	mux.Handle(opts.MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog: logger.StdLogger(ctx, slog.LevelError),
	}))

	// probe
	probe, err := controller.WithMetrics("probe", probehandler.New(deps.Deps))
	if err != nil {
		return nil, fmt.Errorf("could not instrument probe handler: %w", err)
	}
	mux.Handle(opts.ProbePath, probe)

	// pprof
	if opts.EnablePprof {
		mux.Handle(controller.PprofPrefix, controller.PprofMux())
	}

	// logger
	handler := controller.WithLogger(mux)

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           http.TimeoutHandler(handler, opts.RequestTimeout, "request timed out"),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
		ErrorLog:          logger.StdLogger(ctx, slog.LevelError),
	}, nil
}
