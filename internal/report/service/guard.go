package service

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	id "attest/pkg/domain"
)

// RenderGuard prevents two concurrent renders of the same report instance.
// Re-rendering is idempotent in output but wasteful; the guard turns the
// second caller away instead of doing the work twice.
type RenderGuard interface {
	// Acquire takes the render lease for the report. Returns false when
	// another render holds it.
	Acquire(ctx context.Context, reportID id.ReportID) (bool, error)
	Release(ctx context.Context, reportID id.ReportID) error
}

const (
	renderLeaseKeyPrefix = "render:lease:"

	// renderLeaseTTL caps how long a crashed renderer can block its report.
	renderLeaseTTL = 5 * time.Minute
)

// RedisRenderGuard shares the lease across instances. This is the
// production implementation for distributed deployments.
type RedisRenderGuard struct {
	client *redis.Client
}

func NewRedisRenderGuard(client *redis.Client) *RedisRenderGuard {
	return &RedisRenderGuard{client: client}
}

func (g *RedisRenderGuard) Acquire(ctx context.Context, reportID id.ReportID) (bool, error) {
	key := renderLeaseKeyPrefix + reportID.String()
	return g.client.SetNX(ctx, key, "1", renderLeaseTTL).Result()
}

func (g *RedisRenderGuard) Release(ctx context.Context, reportID id.ReportID) error {
	return g.client.Del(ctx, renderLeaseKeyPrefix+reportID.String()).Err()
}

// MemoryRenderGuard is the single-process fallback used by tests and local
// runs without Redis.
type MemoryRenderGuard struct {
	mu     sync.Mutex
	leases map[id.ReportID]struct{}
}

func NewMemoryRenderGuard() *MemoryRenderGuard {
	return &MemoryRenderGuard{leases: make(map[id.ReportID]struct{})}
}

func (g *MemoryRenderGuard) Acquire(_ context.Context, reportID id.ReportID) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.leases[reportID]; held {
		return false, nil
	}
	g.leases[reportID] = struct{}{}
	return true, nil
}

func (g *MemoryRenderGuard) Release(_ context.Context, reportID id.ReportID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.leases, reportID)
	return nil
}
