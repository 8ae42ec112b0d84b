package probe_test

import (
	"context"
	"domainprobe/internal/probe"
	"domainprobe/pkg/expiry"
	"domainprobe/pkg/serrors"
	mockwhois "domainprobe/pkg/whois/mock"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const validResponse = "Domain Name: EXAMPLE.COM\nRegistry Expiry Date: 2025-08-13T04:00:00Z\n"

var wantExpiry = time.Date(2025, time.August, 13, 4, 0, 0, 0, time.UTC)

func newProbe(t *testing.T, client *mockwhois.MockClient, options probe.Options) probe.Probe {
	t.Helper()

	p, err := probe.New(client, expiry.New(), options)
	require.NoError(t, err)

	return p
}

func fastOptions() probe.Options {
	return probe.Options{
		Timeout:     time.Second,
		MaxAttempts: probe.DefaultMaxAttempts,
		RetryDelay:  10 * time.Millisecond,
	}
}

func TestDefaults(t *testing.T) {
	require.Equal(t, 3, probe.DefaultMaxAttempts)
	require.Equal(t, 2*time.Second, probe.DefaultRetryDelay)
	require.Equal(t, 10*time.Second, probe.DefaultTimeout)
}

func TestOnce(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		wantKind serrors.Kind
	}{
		{name: "success", response: validResponse},
		{name: "server busy", response: "% Server is busy now, please try again later.\n", wantKind: serrors.ErrServerBusy},
		{name: "busy wins over a date", response: "Queried interval is too short.\n" + validResponse, wantKind: serrors.ErrServerBusy},
		{name: "rate limit", response: "%% Query limit exceeded\n", wantKind: serrors.ErrServerBusy},
		{name: "allowed queries exceeded", response: "Number of allowed queries exceeded.\n", wantKind: serrors.ErrServerBusy},
		{
			name:     "allowed queries exceeded wins over a date",
			response: "Number of allowed queries exceeded.\n" + validResponse,
			wantKind: serrors.ErrServerBusy,
		},
		{
			name: "terms of use mentioning limits keep the date",
			response: validResponse + "NOTICE: if the query limit exceeded your quota, " +
				"please try again later.\n",
		},
		{name: "no expiry date", response: "Domain Name: EXAMPLE.COM\nStatus: active\n", wantKind: serrors.ErrExpiryDateParse},
		{name: "empty response", response: "", wantKind: serrors.ErrExpiryDateParse},
		{name: "transport error", err: errors.New("connection refused"), wantKind: serrors.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			client := mockwhois.NewMockClient(ctrl)
			client.EXPECT().Lookup(gomock.Any(), "example.com").Return(tt.response, tt.err).Times(1)

			got, err := newProbe(t, client, fastOptions()).Once(context.Background(), "example.com")
			if tt.wantKind == nil {
				require.NoError(t, err)
				require.True(t, wantExpiry.Equal(got))

				return
			}

			require.ErrorIs(t, err, tt.wantKind)
			require.True(t, got.IsZero())
		})
	}
}

func TestOnce_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mockwhois.NewMockClient(ctrl)
	client.EXPECT().Lookup(gomock.Any(), "example.com").DoAndReturn(
		func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()

			return validResponse, nil
		}).Times(1)

	options := fastOptions()
	options.Timeout = 20 * time.Millisecond

	start := time.Now()
	_, err := newProbe(t, client, options).Once(context.Background(), "example.com")
	require.ErrorIs(t, err, serrors.ErrTimeout)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), time.Second)
}

func TestOnce_TransportObservesDeadline(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mockwhois.NewMockClient(ctrl)
	client.EXPECT().Lookup(gomock.Any(), "example.com").DoAndReturn(
		func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()

			return "", ctx.Err()
		}).Times(1)

	options := fastOptions()
	options.Timeout = 20 * time.Millisecond

	_, err := newProbe(t, client, options).Once(context.Background(), "example.com")
	require.ErrorIs(t, err, serrors.ErrTimeout, "a transport error caused by the deadline is a timeout")
}

func TestWithRetry_SucceedsFirstTime(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mockwhois.NewMockClient(ctrl)
	client.EXPECT().Lookup(gomock.Any(), "example.com").Return(validResponse, nil).Times(1)

	got, err := newProbe(t, client, fastOptions()).WithRetry(context.Background(), "example.com")
	require.NoError(t, err)
	require.True(t, wantExpiry.Equal(got))
}

func TestWithRetry_RecoversFromBusy(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mockwhois.NewMockClient(ctrl)
	gomock.InOrder(
		client.EXPECT().Lookup(gomock.Any(), "example.com").Return("Server busy", nil),
		client.EXPECT().Lookup(gomock.Any(), "example.com").Return(validResponse, nil),
	)

	got, err := newProbe(t, client, fastOptions()).WithRetry(context.Background(), "example.com")
	require.NoError(t, err)
	require.True(t, wantExpiry.Equal(got))
}

func TestWithRetry_ExhaustsBudget(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mockwhois.NewMockClient(ctrl)
	client.EXPECT().Lookup(gomock.Any(), "example.com").Return("server is busy", nil).Times(3)

	options := fastOptions()
	options.RetryDelay = 30 * time.Millisecond

	start := time.Now()
	_, err := newProbe(t, client, options).WithRetry(context.Background(), "example.com")
	elapsed := time.Since(start)

	require.ErrorIs(t, err, serrors.ErrServerBusy, "the last transient failure is returned as is")
	require.GreaterOrEqual(t, elapsed, 2*options.RetryDelay, "two pauses between three attempts")
}

func TestWithRetry_RetriesTimeouts(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mockwhois.NewMockClient(ctrl)
	gomock.InOrder(
		client.EXPECT().Lookup(gomock.Any(), "example.com").DoAndReturn(
			func(ctx context.Context, _ string) (string, error) {
				<-ctx.Done()

				return "", ctx.Err()
			}),
		client.EXPECT().Lookup(gomock.Any(), "example.com").Return(validResponse, nil),
	)

	options := fastOptions()
	options.Timeout = 20 * time.Millisecond

	got, err := newProbe(t, client, options).WithRetry(context.Background(), "example.com")
	require.NoError(t, err)
	require.True(t, wantExpiry.Equal(got))
}

func TestWithRetry_PermanentFailuresAreNotRetried(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
		wantKind serrors.Kind
	}{
		{name: "parse error", response: "nothing useful", wantKind: serrors.ErrExpiryDateParse},
		{name: "transport error", err: errors.New("no such host"), wantKind: serrors.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			client := mockwhois.NewMockClient(ctrl)
			client.EXPECT().Lookup(gomock.Any(), "example.com").Return(tt.response, tt.err).Times(1)

			_, err := newProbe(t, client, fastOptions()).WithRetry(context.Background(), "example.com")
			require.ErrorIs(t, err, tt.wantKind)
		})
	}
}

func TestWithRetry_SingleAttemptBudget(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mockwhois.NewMockClient(ctrl)
	client.EXPECT().Lookup(gomock.Any(), "example.com").Return("try again later", nil).Times(1)

	options := fastOptions()
	options.MaxAttempts = 1

	_, err := newProbe(t, client, options).WithRetry(context.Background(), "example.com")
	require.ErrorIs(t, err, serrors.ErrServerBusy)
}

func TestWithRetry_CanceledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mockwhois.NewMockClient(ctrl)
	client.EXPECT().Lookup(gomock.Any(), gomock.Any()).Times(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newProbe(t, client, fastOptions()).WithRetry(ctx, "example.com")
	require.ErrorIs(t, err, serrors.ErrTimeout)
	require.ErrorIs(t, err, context.Canceled)
}
