package probehandler_test

import (
	"domainprobe/internal/api/handler/probehandler"
	mockprober "domainprobe/internal/prober/mock"
	"domainprobe/pkg/domain"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestServeHTTP_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mockprober.NewMockProber(ctrl)
	p.EXPECT().Resolve(gomock.Any(), "example.com").Return(domain.Succeeded("example.com", 42)).Times(1)

	rec := serve(t, probehandler.New(probehandler.Deps{Prober: p}), http.MethodGet, "/probe?target=example.com")

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))

	body := rec.Body.String()
	for _, line := range []string{
		"# HELP domain_expiry_days Days until domain expiry",
		"# TYPE domain_expiry_days gauge",
		`domain_expiry_days{domain="example.com"} 42`,
		"# HELP domain_probe_success Displays whether or not the domain probe was successful",
		"# TYPE domain_probe_success gauge",
		`domain_probe_success{domain="example.com"} 1`,
	} {
		require.Contains(t, body, line+"\n")
	}
	require.Less(t, strings.Index(body, "domain_expiry_days"), strings.Index(body, "domain_probe_success"))
}

func TestServeHTTP_FailedProbeIsStill200(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mockprober.NewMockProber(ctrl)
	p.EXPECT().Resolve(gomock.Any(), "nope.invalid").Return(domain.Failed("nope.invalid")).Times(1)

	rec := serve(t, probehandler.New(probehandler.Deps{Prober: p}), http.MethodGet, "/probe?target=nope.invalid")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `domain_expiry_days{domain="nope.invalid"} -1`+"\n")
	require.Contains(t, rec.Body.String(), `domain_probe_success{domain="nope.invalid"} 0`+"\n")
}

func TestServeHTTP_TargetIsTrimmed(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mockprober.NewMockProber(ctrl)
	p.EXPECT().Resolve(gomock.Any(), "example.org").Return(domain.Succeeded("example.org", 1)).Times(1)

	rec := serve(t, probehandler.New(probehandler.Deps{Prober: p}), http.MethodGet, "/probe?target=%20example.org%20")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServeHTTP_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{name: "missing target", method: http.MethodGet, target: "/probe", status: http.StatusBadRequest},
		{name: "empty target", method: http.MethodGet, target: "/probe?target=", status: http.StatusBadRequest},
		{name: "blank target", method: http.MethodGet, target: "/probe?target=%20%20", status: http.StatusBadRequest},
		{name: "post", method: http.MethodPost, target: "/probe?target=example.com", status: http.StatusMethodNotAllowed},
		{name: "delete", method: http.MethodDelete, target: "/probe?target=example.com", status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			p := mockprober.NewMockProber(ctrl)
			p.EXPECT().Resolve(gomock.Any(), gomock.Any()).Times(0)

			rec := serve(t, probehandler.New(probehandler.Deps{Prober: p}), tt.method, tt.target)
			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusMethodNotAllowed {
				require.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	registry, err := probehandler.Registry(domain.Succeeded("example.com", -3))
	require.NoError(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 2)

	values := map[string]float64{}
	for _, mf := range families {
		require.Len(t, mf.GetMetric(), 1)
		m := mf.GetMetric()[0]
		require.Len(t, m.GetLabel(), 1)
		require.Equal(t, "domain", m.GetLabel()[0].GetName())
		require.Equal(t, "example.com", m.GetLabel()[0].GetValue())
		values[mf.GetName()] = m.GetGauge().GetValue()
	}

	require.Equal(t, map[string]float64{
		"domain_expiry_days":   -3,
		"domain_probe_success": 1,
	}, values)
}
