package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deploywatch/deploywatch/internal/domain/deployment"
	"github.com/deploywatch/deploywatch/internal/repository/memory"
	"github.com/deploywatch/deploywatch/internal/services/monitor"
)

type countingChecker struct {
	mu    sync.Mutex
	ids   []int64
	fail  map[int64]bool
	inUse int
	peak  int
}

func (c *countingChecker) RunCheck(_ context.Context, id int64) (*monitor.CheckResult, error) {
	c.mu.Lock()
	c.ids = append(c.ids, id)
	c.inUse++
	if c.inUse > c.peak {
		c.peak = c.inUse
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inUse--
		c.mu.Unlock()
	}()

	if c.fail[id] {
		return nil, errors.New("probe failed")
	}
	return &monitor.CheckResult{DeploymentID: id, HealthStatus: deployment.HealthHealthy}, nil
}

func seed(t *testing.T, s *memory.Store, name, status string) *deployment.Deployment {
	t.Helper()
	d := &deployment.Deployment{Name: name, URL: "https://" + name + ".example.com", Status: status}
	require.NoError(t, s.Deployments().Create(context.Background(), d))
	return d
}

func TestSweep_ChecksOnlyDeployedTargets(t *testing.T) {
	s := memory.New()
	a := seed(t, s, "a", deployment.StatusDeployed)
	seed(t, s, "b", "stopped")
	c := seed(t, s, "c", deployment.StatusDeployed)
	seed(t, s, "d", "failed")

	chk := &countingChecker{}
	r := New(zap.NewNop(), s.Deployments(), chk, Config{Concurrency: 4})
	r.Sweep(context.Background())

	require.Len(t, chk.ids, 2)
	require.ElementsMatch(t, []int64{a.ID, c.ID}, chk.ids)
}

func TestSweep_CheckFailureDoesNotStopSweep(t *testing.T) {
	s := memory.New()
	a := seed(t, s, "a", deployment.StatusDeployed)
	b := seed(t, s, "b", deployment.StatusDeployed)
	c := seed(t, s, "c", deployment.StatusDeployed)

	chk := &countingChecker{fail: map[int64]bool{b.ID: true}}
	r := New(zap.NewNop(), s.Deployments(), chk, Config{Concurrency: 1})
	r.Sweep(context.Background())

	require.ElementsMatch(t, []int64{a.ID, b.ID, c.ID}, chk.ids)
}

func TestSweep_RespectsConcurrencyLimit(t *testing.T) {
	s := memory.New()
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		seed(t, s, name, deployment.StatusDeployed)
	}

	chk := &countingChecker{}
	r := New(zap.NewNop(), s.Deployments(), chk, Config{Concurrency: 2})
	r.Sweep(context.Background())

	require.Len(t, chk.ids, 6)
	require.LessOrEqual(t, chk.peak, 2)
}

func TestSweep_EmptyStore(t *testing.T) {
	s := memory.New()
	chk := &countingChecker{}
	r := New(zap.NewNop(), s.Deployments(), chk, Config{})
	r.Sweep(context.Background())
	require.Empty(t, chk.ids)
}

func TestStop_BeforeStart(t *testing.T) {
	r := New(zap.NewNop(), memory.New().Deployments(), &countingChecker{}, Config{})
	require.NotNil(t, r.Stop())
}

func TestNew_Defaults(t *testing.T) {
	r := New(zap.NewNop(), memory.New().Deployments(), &countingChecker{}, Config{})
	require.Equal(t, "@every 1m", r.schedule)
	require.Equal(t, 8, r.concurrency)
}
