package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, HTTP server, the probe engine,
// the WHOIS server map and graceful shutdown behavior.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":9222" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"10s" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"5s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"1m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request.
		// It should cover the whole retry budget of a probe.
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"45s" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where the exporter's own metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
		// ProbePath defines the URL path answering probe requests
		ProbePath string `env:"HTTP_PROBE_PATH" env-default:"/probe" yaml:"probePath"`
		// EnablePprof mounts the runtime profiler under /debug/pprof/
		EnablePprof bool `env:"HTTP_ENABLE_PPROF" env-default:"false" yaml:"enablePprof"`
	} `yaml:"http"`

	// Probe contains the probe engine configuration
	Probe struct {
		// CacheTTL is how long a successfully probed expiry date is served from memory
		CacheTTL time.Duration `env:"PROBE_CACHE_TTL" env-default:"24h" yaml:"cacheTTL"`
		// WhoisTimeout bounds a single WHOIS lookup
		WhoisTimeout time.Duration `env:"PROBE_WHOIS_TIMEOUT" env-default:"10s" yaml:"whoisTimeout"`
		// MaxAttempts is the total number of lookups made for a transiently failing domain
		MaxAttempts int `env:"PROBE_MAX_ATTEMPTS" env-default:"3" yaml:"maxAttempts"`
		// RetryDelay is the pause between two attempts
		RetryDelay time.Duration `env:"PROBE_RETRY_DELAY" env-default:"2s" yaml:"retryDelay"`
		// CoalesceLookups shares one in-flight lookup between concurrent cache misses for the same domain
		CoalesceLookups bool `env:"PROBE_COALESCE_LOOKUPS" env-default:"false" yaml:"coalesceLookups"`
		// LenientDates lets free-form dates through when no known layout matches
		LenientDates bool `env:"PROBE_LENIENT_DATES" env-default:"false" yaml:"lenientDates"`
	} `yaml:"probe"`

	// Whois contains the WHOIS transport configuration
	Whois struct {
		// ServersFile replaces the bundled suffix-to-server map when set
		ServersFile string `env:"WHOIS_SERVERS_FILE" yaml:"serversFile"`
	} `yaml:"whois"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
// A missing file is not an error: the configuration then comes from the
// environment and defaults alone.
func Load(configPath string) (*Config, error) {
	var cfg Config

	_, err := os.Stat(configPath)
	switch {
	case configPath == "" || errors.Is(err, fs.ErrNotExist):
		err = cleanenv.ReadEnv(&cfg)
	default:
		err = cleanenv.ReadConfig(configPath, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}
