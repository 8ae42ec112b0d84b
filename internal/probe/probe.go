package probe

import (
	"context"
	"domainprobe/internal/config"
	"domainprobe/pkg/expiry"
	"domainprobe/pkg/logger"
	"domainprobe/pkg/metrics"
	"domainprobe/pkg/serrors"
	"domainprobe/pkg/whois"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds one lookup when no timeout is configured.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxAttempts is the total number of lookups for a transiently failing domain.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the pause between two attempts.
	DefaultRetryDelay = 2 * time.Second
)

// BusyIndicators are phrases WHOIS servers use to refuse a query because of load
// or rate limiting. They are matched case-insensitively anywhere in a reply and
// win over any date the reply may carry.
var BusyIndicators = []string{ //nolint: gochecknoglobals
	"server is busy",
	"server busy",
	"queried interval is too short",
	"number of allowed queries exceeded",
}

// SoftBusyIndicators also appear in registry terms of use, so they only mark a
// reply as busy when it carries no expiry date.
var SoftBusyIndicators = []string{ //nolint: gochecknoglobals
	"try again later",
	"limit exceeded",
}

// Options configure lookup timeouts and the retry budget.
type Options struct {
	// Timeout bounds a single lookup.
	Timeout time.Duration
	// MaxAttempts is the total number of lookups WithRetry makes, first one included.
	MaxAttempts int
	// RetryDelay is the constant pause between two attempts.
	RetryDelay time.Duration
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Timeout:     cfg.Probe.WhoisTimeout,
		MaxAttempts: cfg.Probe.MaxAttempts,
		RetryDelay:  cfg.Probe.RetryDelay,
	}
}

// probe is the concrete implementation of the Probe interface.
type probe struct {
	// options holds the timeout and retry budget, defaults filled in.
	options Options
	// client performs the raw WHOIS query.
	client whois.Client
	// parser extracts the expiry date from a reply.
	parser *expiry.Parser

	tracer   trace.Tracer
	duration metric.Float64Histogram
}

type reply struct {
	raw string
	err error
}

// Once runs one lookup on its own goroutine and waits for it or for the
// timeout, whichever comes first. A lookup that outlives the timeout is
// abandoned and its reply discarded; the transport's own timeout ends it.
func (p *probe) Once(ctx context.Context, domain string) (time.Time, error) {
	ctx, span := p.tracer.Start(ctx, "whois.lookup", trace.WithAttributes(attribute.String("domain", domain)))
	defer span.End()

	start := time.Now()
	expiresAt, err := p.once(ctx, domain)
	p.duration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("outcome", outcome(err))))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, serrors.KindName(err))
	}

	return expiresAt, err
}

func (p *probe) once(ctx context.Context, domain string) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, p.options.Timeout)
	defer cancel()

	replies := make(chan reply, 1)
	go func() {
		raw, err := p.client.Lookup(ctx, domain)
		replies <- reply{raw: raw, err: err}
	}()

	var r reply
	select {
	case <-ctx.Done():
		return time.Time{}, serrors.Wrap(serrors.ErrTimeout, ctx.Err(),
			"whois lookup for %s did not complete within %s", domain, p.options.Timeout)
	case r = <-replies:
	}

	if r.err != nil {
		if ctx.Err() != nil {
			return time.Time{}, serrors.Wrap(serrors.ErrTimeout, r.err,
				"whois lookup for %s did not complete within %s", domain, p.options.Timeout)
		}

		return time.Time{}, serrors.Wrap(serrors.ErrTransport, r.err, "whois lookup for %s failed", domain)
	}

	if indicator, busy := busyIndicator(r.raw, BusyIndicators); busy {
		return time.Time{}, serrors.With(serrors.ErrServerBusy, "whois server for %s is busy: %q", domain, indicator)
	}

	expiresAt, ok := p.parser.Parse(r.raw)
	if !ok {
		if indicator, busy := busyIndicator(r.raw, SoftBusyIndicators); busy {
			return time.Time{}, serrors.With(serrors.ErrServerBusy, "whois server for %s is busy: %q", domain, indicator)
		}

		logger.Warn(ctx, "could not find an expiry date in whois response",
			zap.String("domain", domain), zap.Int("responseBytes", len(r.raw)))

		return time.Time{}, serrors.With(serrors.ErrExpiryDateParse, "no expiry date in whois response for %s", domain)
	}

	return expiresAt, nil
}

// WithRetry calls Once until it succeeds, fails permanently or the attempt
// budget is spent. Only Timeout and ServerBusy are retried, after a constant
// delay. The last failure is returned unchanged once the budget is exhausted.
func (p *probe) WithRetry(ctx context.Context, domain string) (time.Time, error) {
	var (
		expiresAt time.Time
		attempt   int
	)

	backoff := retry.WithMaxRetries(uint64(p.options.MaxAttempts-1), retry.NewConstant(p.options.RetryDelay)) //nolint: gosec
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		t, err := p.Once(ctx, domain)
		if err == nil {
			expiresAt = t

			return nil
		}
		if !serrors.IsTransient(err) {
			return err
		}

		if attempt < p.options.MaxAttempts {
			logger.Warn(ctx, "retrying whois lookup",
				zap.String("domain", domain),
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", p.options.MaxAttempts),
				zap.Duration("delay", p.options.RetryDelay),
				zap.Error(err))
		} else {
			logger.Error(ctx, "max retries reached for whois lookup",
				zap.String("domain", domain),
				zap.Int("attempts", attempt),
				zap.Error(err))
		}

		return retry.RetryableError(err)
	})
	if err != nil {
		if serrors.KindOf(err) == nil {
			// the caller went away between attempts
			return time.Time{}, serrors.Wrap(serrors.ErrTimeout, err, "whois lookup for %s abandoned", domain)
		}

		return time.Time{}, err
	}

	return expiresAt, nil
}

func busyIndicator(raw string, indicators []string) (string, bool) {
	lower := strings.ToLower(raw)
	for _, indicator := range indicators {
		if strings.Contains(lower, indicator) {
			return indicator, true
		}
	}

	return "", false
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}

	return strings.ToLower(serrors.KindName(err))
}

// New creates a new Probe querying client and reading replies with parser.
// Zero option values are replaced by the package defaults.
func New(client whois.Client, parser *expiry.Parser, options Options) (Probe, error) {
	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}
	if options.MaxAttempts < 1 {
		options.MaxAttempts = DefaultMaxAttempts
	}
	if options.RetryDelay <= 0 {
		options.RetryDelay = DefaultRetryDelay
	}

	duration, err := otel.Meter("domainprobe/probe").Float64Histogram(
		metrics.Namespace+".whois.duration",
		metric.WithDescription("Duration of single WHOIS lookups"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.LookupBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create lookup duration histogram: %w", err)
	}

	return &probe{
		options:  options,
		client:   client,
		parser:   parser,
		tracer:   otel.Tracer("domainprobe/probe"),
		duration: duration,
	}, nil
}
