package monitor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deploywatch/deploywatch/internal/domain/deplog"
	"github.com/deploywatch/deploywatch/internal/domain/deployment"
	"github.com/deploywatch/deploywatch/internal/domain/depstat"
	"github.com/deploywatch/deploywatch/internal/repository/memory"
	"github.com/deploywatch/deploywatch/internal/services/probe"
)

func newFixture(t *testing.T, targetURL string) (*Orchestrator, *memory.Store, *deployment.Deployment) {
	t.Helper()
	s := memory.New()
	d := &deployment.Deployment{
		Name:         "api",
		URL:          targetURL,
		Status:       deployment.StatusDeployed,
		HealthStatus: deployment.HealthUnknown,
	}
	require.NoError(t, s.Deployments().Create(context.Background(), d))

	p := probe.New(probe.Config{Timeout: 2 * time.Second})
	o := New(s.Deployments(), s.Logs(), s.Stats(), p, nil, SystemClock{}, zap.NewNop())
	return o, s, d
}

func TestRunCheck_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	o, s, d := newFixture(t, srv.URL)

	res, err := o.RunCheck(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, deployment.HealthHealthy, res.HealthStatus)
	require.Empty(t, res.Error)
	require.False(t, res.CheckedAt.IsZero())

	got, err := s.Deployments().GetByID(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, deployment.HealthHealthy, got.HealthStatus)
	require.NotNil(t, got.LastHealthCheckAt)

	logs, err := s.Logs().ListByDeployment(ctx, d.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, deplog.TypeHealthCheck, logs[0].LogType)
	require.Equal(t, "Health check completed: healthy", logs[0].Message)

	stats, err := s.Stats().ListByDeployment(ctx, d.ID, 10)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.Equal(t, int64(1), stats[0].SuccessCount)
	require.Equal(t, int64(0), stats[0].ErrorCount)
}

func TestRunCheck_ServiceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx := context.Background()
	o, s, d := newFixture(t, srv.URL)

	res, err := o.RunCheck(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, deployment.HealthUnhealthy, res.HealthStatus)
	require.Equal(t, "HTTP 503: Service Unavailable", res.Error)

	logs, err := s.Logs().ListByDeployment(ctx, d.ID, 10)
	require.NoError(t, err)
	require.Equal(t, "HTTP 503: Service Unavailable", logs[0].Message)
	require.Equal(t, "HTTP 503: Service Unavailable", logs[0].Metadata["error"])

	stats, err := s.Stats().ListByDeployment(ctx, d.ID, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats[0].ErrorCount)
	require.Equal(t, float64(0), stats[0].UptimePercentage)
}

func TestRunCheck_HealthCheckURLOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx := context.Background()
	s := memory.New()
	d := &deployment.Deployment{
		Name:           "api",
		URL:            srv.URL,
		HealthCheckURL: srv.URL + "/health",
		Status:         deployment.StatusDeployed,
	}
	require.NoError(t, s.Deployments().Create(ctx, d))

	o := New(s.Deployments(), s.Logs(), s.Stats(), probe.New(probe.Config{Timeout: time.Second}), nil, SystemClock{}, zap.NewNop())
	res, err := o.RunCheck(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, deployment.HealthHealthy, res.HealthStatus)
}

func TestRunCheck_TwoChecksSameDay(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if healthy {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx := context.Background()
	o, s, d := newFixture(t, srv.URL)

	_, err := o.RunCheck(ctx, d.ID)
	require.NoError(t, err)
	healthy = false
	_, err = o.RunCheck(ctx, d.ID)
	require.NoError(t, err)

	stats, err := s.Stats().ListByDeployment(ctx, d.ID, 10)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	b := stats[0]
	require.Equal(t, int64(2), b.TotalRequests)
	require.Equal(t, int64(1), b.SuccessCount)
	require.Equal(t, int64(1), b.ErrorCount)
	require.InDelta(t, 50.0, b.UptimePercentage, 1e-9)

	got, err := s.Deployments().GetByID(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, deployment.HealthUnhealthy, got.HealthStatus)
}

func TestRunCheck_UnknownDeployment(t *testing.T) {
	o, _, _ := newFixture(t, "http://127.0.0.1:1")
	_, err := o.RunCheck(context.Background(), 999)
	require.ErrorIs(t, err, deployment.ErrNotFound)
}

type failingStats struct{ depstat.Repo }

func (failingStats) RecordOutcome(context.Context, int64, time.Time, bool, int64) (*depstat.Stat, error) {
	return nil, errors.New("stats store down")
}

func TestRunCheck_StatFailureDoesNotUndoHealthWrite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	s := memory.New()
	d := &deployment.Deployment{Name: "api", URL: srv.URL, Status: deployment.StatusDeployed}
	require.NoError(t, s.Deployments().Create(ctx, d))

	o := New(s.Deployments(), s.Logs(), failingStats{s.Stats()}, probe.New(probe.Config{Timeout: time.Second}), nil, SystemClock{}, zap.NewNop())

	res, err := o.RunCheck(ctx, d.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "record stat")
	require.NotNil(t, res)
	require.Equal(t, deployment.HealthHealthy, res.HealthStatus)

	// Health status and the log entry survive the stat failure.
	got, err := s.Deployments().GetByID(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, deployment.HealthHealthy, got.HealthStatus)
	require.NotNil(t, got.LastHealthCheckAt)

	logs, err := s.Logs().ListByDeployment(ctx, d.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
}

type recordingEvents struct {
	calls []string
}

func (r *recordingEvents) PublishHealthChanged(_ context.Context, id int64, from, to deployment.HealthStatus, _ time.Time) error {
	r.calls = append(r.calls, string(from)+"->"+string(to))
	return nil
}

func TestRunCheck_PublishesTransitionOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	s := memory.New()
	d := &deployment.Deployment{Name: "api", URL: srv.URL, Status: deployment.StatusDeployed, HealthStatus: deployment.HealthUnknown}
	require.NoError(t, s.Deployments().Create(ctx, d))

	ev := &recordingEvents{}
	o := New(s.Deployments(), s.Logs(), s.Stats(), probe.New(probe.Config{Timeout: time.Second}), ev, SystemClock{}, zap.NewNop())

	_, err := o.RunCheck(ctx, d.ID)
	require.NoError(t, err)
	_, err = o.RunCheck(ctx, d.ID)
	require.NoError(t, err)

	// unknown->healthy fires once; healthy->healthy stays quiet.
	require.Equal(t, []string{"unknown->healthy"}, ev.calls)
}
