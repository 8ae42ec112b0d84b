// Package probehandler serves probe requests: it resolves the requested domain
// and renders the result as two gauges in the Prometheus exposition format.
package probehandler

import (
	"context"
	"domainprobe/internal/prober"
	"domainprobe/pkg/domain"
	"domainprobe/pkg/logger"
	"domainprobe/pkg/serrors"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	// TargetParam is the query parameter naming the domain to probe.
	TargetParam = "target"

	expiryDaysName = "domain_expiry_days"
	expiryDaysHelp = "Days until domain expiry"
	successName    = "domain_probe_success"
	successHelp    = "Displays whether or not the domain probe was successful"
)

type Deps struct {
	Prober prober.Prober
}

type Handler struct {
	Deps
}

// Ensure Handler implements http.Handler.
var _ http.Handler = (*Handler)(nil)

func New(deps Deps) *Handler {
	return &Handler{Deps: deps}
}

// ServeHTTP answers GET ?target=<domain>. The response is always 200 once a
// target is given: probe failures are reported through the gauges themselves.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		h.writeError(ctx, w, serrors.With(serrors.ErrMethodNotAllowed, "method %s is not allowed", r.Method))

		return
	}

	target := strings.TrimSpace(r.URL.Query().Get(TargetParam))
	if target == "" {
		h.writeError(ctx, w, serrors.With(serrors.ErrBadRequest, "%s parameter is missing", TargetParam))

		return
	}

	result := h.Prober.Resolve(ctx, target)

	registry, err := Registry(result)
	if err != nil {
		h.writeError(ctx, w, serrors.Wrap(serrors.ErrInternal, err, "could not render probe result"))

		return
	}

	promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(logger.Get(ctx)),
	}).ServeHTTP(w, r)
}

// Registry returns a fresh registry holding the two gauges describing result.
// Each request gets its own registry so concurrent probes never share state.
func Registry(result domain.ProbeResult) (*prometheus.Registry, error) {
	labels := prometheus.Labels{"domain": result.Domain}

	expiryDays := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        expiryDaysName,
		Help:        expiryDaysHelp,
		ConstLabels: labels,
	})
	expiryDays.Set(float64(result.ExpiryDays))

	success := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        successName,
		Help:        successHelp,
		ConstLabels: labels,
	})
	success.Set(result.SuccessValue())

	registry := prometheus.NewRegistry()
	if err := registry.Register(expiryDays); err != nil {
		return nil, err //nolint: wrapcheck
	}
	if err := registry.Register(success); err != nil {
		return nil, err //nolint: wrapcheck
	}

	return registry, nil
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, serrors.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, serrors.ErrMethodNotAllowed):
		status = http.StatusMethodNotAllowed
	}

	if status >= http.StatusInternalServerError {
		logger.Error(ctx, "could not serve probe", zap.Error(err))
	} else {
		logger.Debug(ctx, "rejected probe request", zap.Error(err))
	}

	http.Error(w, err.Error(), status)
}
