package prober

import (
	"context"
	"domainprobe/internal/cache"
	"domainprobe/internal/config"
	"domainprobe/internal/probe"
	"domainprobe/pkg/domain"
	"domainprobe/pkg/logger"
	"domainprobe/pkg/metrics"
	"domainprobe/pkg/serrors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Options configure how cache misses are resolved.
type Options struct {
	// CoalesceLookups makes concurrent misses for the same domain share a
	// single retried lookup instead of each querying WHOIS.
	CoalesceLookups bool
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		CoalesceLookups: cfg.Probe.CoalesceLookups,
	}
}

// Option customizes a Prober beyond its configuration.
type Option func(*prober)

// WithClock replaces time.Now as the reference instant for day counts.
func WithClock(now func() time.Time) Option {
	return func(p *prober) { p.now = now }
}

// prober is the concrete implementation of the Prober interface. It consults
// the cache, falls back to a retried WHOIS probe and writes usable results
// back to the cache.
type prober struct {
	options Options
	probe   probe.Probe
	cache   *cache.Cache
	now     func() time.Time
	// group coalesces concurrent misses when options.CoalesceLookups is set.
	group singleflight.Group

	tracer       trace.Tracer
	cacheLookups metric.Int64Counter
	probes       metric.Int64Counter
}

// Resolve walks cache check, probe and cache write for one domain. Two
// concurrent misses for the same domain both probe unless lookups are
// coalesced; the later cache write wins.
func (p *prober) Resolve(ctx context.Context, name string) domain.ProbeResult {
	ctx, span := p.tracer.Start(ctx, "prober.resolve", trace.WithAttributes(attribute.String("domain", name)))
	defer span.End()

	if entry, ok := p.cache.Get(ctx, name); ok {
		p.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "hit")))
		span.SetAttributes(attribute.Bool("cached", true))

		return domain.Succeeded(name, DaysUntil(entry.Expiry, p.now()))
	}
	p.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "miss")))
	logger.Debug(ctx, "cache miss", zap.String("domain", name))

	expiresAt, err := p.lookup(ctx, name)
	p.probes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
	if err != nil {
		logger.Error(ctx, "domain probe failed",
			zap.String("domain", name),
			zap.String("kind", serrors.KindName(err)),
			zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, serrors.KindName(err))

		return domain.Failed(name)
	}

	return domain.Succeeded(name, DaysUntil(expiresAt, p.now()))
}

func (p *prober) lookup(ctx context.Context, name string) (time.Time, error) {
	if !p.options.CoalesceLookups {
		return p.probeAndStore(ctx, name)
	}

	// the shared lookup must not die with whichever caller started it
	res, err, shared := p.group.Do(name, func() (any, error) {
		return p.probeAndStore(context.WithoutCancel(ctx), name)
	})
	if shared {
		logger.Debug(ctx, "shared in-flight lookup", zap.String("domain", name))
	}
	if err != nil {
		return time.Time{}, err //nolint: wrapcheck
	}

	expiresAt, _ := res.(time.Time)

	return expiresAt, nil
}

// probeAndStore runs the retried probe and caches a result that is not in the
// past. An already expired date is still returned to the caller.
func (p *prober) probeAndStore(ctx context.Context, name string) (time.Time, error) {
	expiresAt, err := p.probe.WithRetry(ctx, name)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not probe %s: %w", name, err)
	}

	if days := DaysUntil(expiresAt, p.now()); days < 0 {
		logger.Warn(ctx, "probed expiry date is in the past, not caching",
			zap.String("domain", name),
			zap.Time("expiry", expiresAt),
			zap.Int64("expiryDays", days))
	} else {
		p.cache.Set(ctx, name, expiresAt)
	}

	return expiresAt, nil
}

// DaysUntil returns the whole days from now until t, rounded down, so a date
// twelve hours in the past counts as -1.
func DaysUntil(t, now time.Time) int64 {
	return int64(math.Floor(t.Sub(now).Hours() / 24)) //nolint: mnd
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}

	return strings.ToLower(serrors.KindName(err))
}

// New creates a new Prober resolving misses in c with p.
func New(p probe.Probe, c *cache.Cache, options Options, opts ...Option) (Prober, error) {
	meter := otel.Meter("domainprobe/prober")

	cacheLookups, err := meter.Int64Counter(metrics.Namespace+".cache.lookups",
		metric.WithDescription("Cache lookups by result (hit or miss)"))
	if err != nil {
		return nil, fmt.Errorf("could not create cache lookup counter: %w", err)
	}

	probes, err := meter.Int64Counter(metrics.Namespace+".probes",
		metric.WithDescription("Retried WHOIS probes by outcome"))
	if err != nil {
		return nil, fmt.Errorf("could not create probe counter: %w", err)
	}

	if _, err := meter.Int64ObservableGauge(metrics.Namespace+".cache.entries",
		metric.WithDescription("Domains held in the cache, stale ones included"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(c.Len()))

			return nil
		})); err != nil {
		return nil, fmt.Errorf("could not create cache size gauge: %w", err)
	}

	pr := &prober{
		options:      options,
		probe:        p,
		cache:        c,
		now:          time.Now,
		tracer:       otel.Tracer("domainprobe/prober"),
		cacheLookups: cacheLookups,
		probes:       probes,
	}
	for _, opt := range opts {
		opt(pr)
	}

	return pr, nil
}
