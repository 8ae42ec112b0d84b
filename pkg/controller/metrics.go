package controller

import (
	"domainprobe/pkg/metrics"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// WithMetrics returns a middleware recording the latency of every request
// routed to next, labelled with route and status code. route is a fixed name
// rather than the request path so unknown paths cannot inflate cardinality.
func WithMetrics(route string, next http.Handler) (http.Handler, error) {
	duration, err := otel.Meter("domainprobe/controller").Float64Histogram(
		metrics.Namespace+".http.request.duration",
		metric.WithDescription("Duration of HTTP requests served by the exporter"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(metrics.LookupBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create request duration histogram: %w", err)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration.Record(r.Context(), time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("route", route),
			attribute.String("status", strconv.Itoa(rec.status)),
		))
	}), nil
}
