package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deploywatch/deploywatch/internal/domain/deplog"
	"github.com/deploywatch/deploywatch/internal/domain/deployment"
	"github.com/deploywatch/deploywatch/internal/repository/memory"
)

func newRegistry(t *testing.T) (*Registry, *memory.Store) {
	t.Helper()
	s := memory.New()
	return New(s.Deployments(), s.Logs(), s.Stats(), s, zap.NewNop(), nil), s
}

func TestCreate_AppliesDefaults(t *testing.T) {
	ctx := context.Background()
	reg, s := newRegistry(t)

	d, err := reg.Create(ctx, CreateSpec{Name: "api", URL: "https://api.example.com"})
	require.NoError(t, err)

	require.Equal(t, "render", d.Platform)
	require.Equal(t, "main", d.Branch)
	require.Equal(t, "production", d.Environment)
	require.Equal(t, "api", d.DisplayName)
	require.Equal(t, deployment.StatusDeployed, d.Status)
	require.Equal(t, deployment.HealthUnknown, d.HealthStatus)
	require.NotNil(t, d.Metadata)

	logs, err := s.Logs().ListByDeployment(ctx, d.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, deplog.TypeCreated, logs[0].LogType)
}

func TestCreate_Validation(t *testing.T) {
	reg, _ := newRegistry(t)

	_, err := reg.Create(context.Background(), CreateSpec{URL: "https://x.example.com"})
	require.ErrorIs(t, err, deployment.ErrValidation)

	_, err = reg.Create(context.Background(), CreateSpec{Name: "x"})
	require.ErrorIs(t, err, deployment.ErrValidation)
}

func TestCreate_DuplicateName(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)

	_, err := reg.Create(ctx, CreateSpec{Name: "api", URL: "https://a.example.com"})
	require.NoError(t, err)
	_, err = reg.Create(ctx, CreateSpec{Name: "api", URL: "https://b.example.com"})
	require.ErrorIs(t, err, deployment.ErrConflict)
}

// commitFailTx runs the body, then fails the way a transactor does when
// the final commit is rejected.
type commitFailTx struct {
	inner Transactor
}

func (c commitFailTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := c.inner.WithTx(ctx, fn); err != nil {
		return err
	}
	return errors.New("commit: connection reset")
}

func TestCreate_CommitFailureSurfaces(t *testing.T) {
	s := memory.New()
	reg := New(s.Deployments(), s.Logs(), s.Stats(), commitFailTx{inner: s}, zap.NewNop(), nil)

	_, err := reg.Create(context.Background(), CreateSpec{Name: "api", URL: "https://api.example.com"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "commit")
}

func TestUpdate_CommitFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	reg := New(s.Deployments(), s.Logs(), s.Stats(), s, zap.NewNop(), nil)
	d, err := reg.Create(ctx, CreateSpec{Name: "api", URL: "https://api.example.com"})
	require.NoError(t, err)

	broken := New(s.Deployments(), s.Logs(), s.Stats(), commitFailTx{inner: s}, zap.NewNop(), nil)
	url := "https://api-v2.example.com"
	_, err = broken.Update(ctx, d.ID, UpdateSpec{URL: &url})
	require.Error(t, err)
	require.Contains(t, err.Error(), "commit")
}

func TestGet_NotFound(t *testing.T) {
	reg, _ := newRegistry(t)
	_, err := reg.Get(context.Background(), 123, 0, 0)
	require.ErrorIs(t, err, deployment.ErrNotFound)
}

func TestGet_AppliesLimits(t *testing.T) {
	ctx := context.Background()
	reg, s := newRegistry(t)

	d, err := reg.Create(ctx, CreateSpec{Name: "api", URL: "https://api.example.com"})
	require.NoError(t, err)

	for i := 0; i < 60; i++ {
		require.NoError(t, s.Logs().Insert(ctx, &deplog.Log{
			DeploymentID: d.ID,
			LogType:      deplog.TypeHealthCheck,
			CreatedAt:    time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}

	detail, err := reg.Get(ctx, d.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, detail.Logs, DefaultDetailLogs)

	detail, err = reg.Get(ctx, d.ID, 3, 1)
	require.NoError(t, err)
	require.Len(t, detail.Logs, 3)
}

func TestList_PreviewsAndOrder(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)

	first, err := reg.Create(ctx, CreateSpec{Name: "a", URL: "https://a.example.com"})
	require.NoError(t, err)
	second, err := reg.Create(ctx, CreateSpec{Name: "b", URL: "https://b.example.com"})
	require.NoError(t, err)

	list, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, first.ID, list[0].Deployment.ID)
	require.Equal(t, second.ID, list[1].Deployment.ID)
	// Each entry carries at least the created event as preview.
	require.NotEmpty(t, list[0].Logs)
}

func TestUpdate_DiffLogged(t *testing.T) {
	ctx := context.Background()
	reg, s := newRegistry(t)

	d, err := reg.Create(ctx, CreateSpec{Name: "api", URL: "https://api.example.com"})
	require.NoError(t, err)

	newURL := "https://api-v2.example.com"
	notes := "moved"
	updated, err := reg.Update(ctx, d.ID, UpdateSpec{URL: &newURL, Notes: &notes})
	require.NoError(t, err)
	require.Equal(t, newURL, updated.URL)
	require.Equal(t, "moved", updated.Notes)
	require.Equal(t, "render", updated.Platform)

	logs, err := s.Logs().ListByDeployment(ctx, d.ID, 10)
	require.NoError(t, err)
	require.Equal(t, deplog.TypeUpdated, logs[0].LogType)
	changes, ok := logs[0].Metadata["changes"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, newURL, changes["url"])
	require.Equal(t, "moved", changes["notes"])
	require.NotContains(t, changes, "platform")
}

func TestUpdate_NoChangesNoLog(t *testing.T) {
	ctx := context.Background()
	reg, s := newRegistry(t)

	d, err := reg.Create(ctx, CreateSpec{Name: "api", URL: "https://api.example.com"})
	require.NoError(t, err)

	_, err = reg.Update(ctx, d.ID, UpdateSpec{})
	require.NoError(t, err)

	logs, err := s.Logs().ListByDeployment(ctx, d.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1) // only the created event
}

func TestUpdate_NotFound(t *testing.T) {
	reg, _ := newRegistry(t)
	url := "https://x.example.com"
	_, err := reg.Update(context.Background(), 77, UpdateSpec{URL: &url})
	require.ErrorIs(t, err, deployment.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	reg, _ := newRegistry(t)

	d, err := reg.Create(ctx, CreateSpec{Name: "api", URL: "https://api.example.com"})
	require.NoError(t, err)

	require.NoError(t, reg.Delete(ctx, d.ID))
	require.ErrorIs(t, reg.Delete(ctx, d.ID), deployment.ErrNotFound)
}
