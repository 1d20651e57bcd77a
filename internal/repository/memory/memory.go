// Package memory backs the repository ports with an in-process store. It
// replicates the semantics of the postgres implementations, including the
// atomic stat upsert, and serves unit tests and the DSN-less dev mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/deploywatch/deploywatch/internal/domain/deplog"
	"github.com/deploywatch/deploywatch/internal/domain/deployment"
	"github.com/deploywatch/deploywatch/internal/domain/depstat"
)

type Store struct {
	mu          sync.RWMutex
	nextID      int64
	deployments map[int64]*deployment.Deployment
	logs        map[int64][]*deplog.Log
	stats       map[int64]map[string]*depstat.Stat
}

func New() *Store {
	return &Store{
		deployments: make(map[int64]*deployment.Deployment),
		logs:        make(map[int64][]*deplog.Log),
		stats:       make(map[int64]map[string]*depstat.Stat),
	}
}

func (s *Store) Deployments() deployment.Repo { return (*deploymentRepo)(s) }
func (s *Store) Logs() deplog.Repo            { return (*logRepo)(s) }
func (s *Store) Stats() depstat.Repo          { return (*statRepo)(s) }

// WithTx satisfies the registry's Transactor port; the in-process store
// has no transactions, so the function runs directly.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func dateKey(t time.Time) string { return depstat.DayOf(t).Format("2006-01-02") }

func copyMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyDeployment(d *deployment.Deployment) *deployment.Deployment {
	cp := *d
	cp.Metadata = copyMeta(d.Metadata)
	if d.LastHealthCheckAt != nil {
		ts := *d.LastHealthCheckAt
		cp.LastHealthCheckAt = &ts
	}
	return &cp
}

type deploymentRepo Store

func (r *deploymentRepo) Create(_ context.Context, d *deployment.Deployment) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.deployments {
		if existing.Name == d.Name {
			return deployment.ErrConflict
		}
	}

	now := time.Now().UTC()
	d.ID = s.id()
	d.CreatedAt = now
	d.UpdatedAt = now
	s.deployments[d.ID] = copyDeployment(d)
	return nil
}

func (r *deploymentRepo) GetByID(_ context.Context, id int64) (*deployment.Deployment, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deployments[id]
	if !ok {
		return nil, deployment.ErrNotFound
	}
	return copyDeployment(d), nil
}

func (r *deploymentRepo) List(_ context.Context) ([]*deployment.Deployment, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*deployment.Deployment, 0, len(s.deployments))
	for _, d := range s.deployments {
		out = append(out, copyDeployment(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *deploymentRepo) Update(_ context.Context, d *deployment.Deployment) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.deployments[d.ID]
	if !ok {
		return deployment.ErrNotFound
	}
	d.CreatedAt = cur.CreatedAt
	d.UpdatedAt = time.Now().UTC()
	s.deployments[d.ID] = copyDeployment(d)
	return nil
}

func (r *deploymentRepo) UpdateHealth(_ context.Context, id int64, status deployment.HealthStatus, checkedAt time.Time) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deployments[id]
	if !ok {
		return deployment.ErrNotFound
	}
	ts := checkedAt
	d.HealthStatus = status
	d.LastHealthCheckAt = &ts
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *deploymentRepo) Delete(_ context.Context, id int64) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deployments[id]; !ok {
		return deployment.ErrNotFound
	}
	// Cascade, mirroring the ON DELETE CASCADE foreign keys.
	delete(s.deployments, id)
	delete(s.logs, id)
	delete(s.stats, id)
	return nil
}

type logRepo Store

func (r *logRepo) Insert(_ context.Context, l *deplog.Log) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deployments[l.DeploymentID]; !ok {
		return deployment.ErrNotFound
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	l.ID = s.id()
	cp := *l
	cp.Metadata = copyMeta(l.Metadata)
	s.logs[l.DeploymentID] = append(s.logs[l.DeploymentID], &cp)
	return nil
}

func (r *logRepo) ListByDeployment(_ context.Context, deploymentID int64, limit int) ([]*deplog.Log, error) {
	if limit <= 0 {
		limit = 50
	}
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.logs[deploymentID]
	// Same ordering as the SQL store: created_at DESC, id DESC.
	sorted := make([]*deplog.Log, len(all))
	copy(sorted, all)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	out := make([]*deplog.Log, 0, limit)
	for _, l := range sorted {
		if len(out) == limit {
			break
		}
		cp := *l
		cp.Metadata = copyMeta(l.Metadata)
		out = append(out, &cp)
	}
	return out, nil
}

type statRepo Store

func (r *statRepo) RecordOutcome(_ context.Context, deploymentID int64, statDate time.Time, healthy bool, responseTimeMs int64) (*depstat.Stat, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deployments[deploymentID]; !ok {
		return nil, deployment.ErrNotFound
	}

	buckets, ok := s.stats[deploymentID]
	if !ok {
		buckets = make(map[string]*depstat.Stat)
		s.stats[deploymentID] = buckets
	}

	now := time.Now().UTC()
	key := dateKey(statDate)
	b, ok := buckets[key]
	if !ok {
		b = &depstat.Stat{
			ID:           s.id(),
			DeploymentID: deploymentID,
			StatDate:     depstat.DayOf(statDate),
			CreatedAt:    now,
		}
		buckets[key] = b
	}

	b.TotalRequests++
	if healthy {
		b.SuccessCount++
	} else {
		b.ErrorCount++
	}
	b.UptimePercentage = float64(b.SuccessCount) / float64(b.TotalRequests) * 100
	b.ResponseTimeMs = responseTimeMs
	b.UpdatedAt = now

	cp := *b
	return &cp, nil
}

func (r *statRepo) ListByDeployment(_ context.Context, deploymentID int64, limit int) ([]*depstat.Stat, error) {
	if limit <= 0 {
		limit = 30
	}
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*depstat.Stat, 0, len(s.stats[deploymentID]))
	for _, b := range s.stats[deploymentID] {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StatDate.After(out[j].StatDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
