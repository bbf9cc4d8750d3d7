// Package dedup provides short-lived execution locks so overlapping
// schedules and retries do not run the same crawl task twice.
package dedup

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// BuildKey composes the lock key for a task execution. The fingerprint
// is the task's argument identity (for crawls, the sorted region
// codes), so identical invocations collide and distinct ones do not.
func BuildKey(scope, task string, args ...string) string {
	fingerprint := strings.Join(args, ",")
	return fmt.Sprintf("dedup:%s:%s:%s", scope, task, fingerprint)
}

// Guard is a best-effort mutual-exclusion primitive with expiry.
// Acquire returns true only for the first claimant within the TTL.
type Guard interface {
	// Acquire attempts to claim key for ttl. It reports whether the
	// claim succeeded; false means another holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops the claim ahead of expiry. Releasing an unheld
	// key is a no-op.
	Release(ctx context.Context, key string) error
}

// MemoryGuard is an in-process Guard for tests and single-node runs
// without Redis.
type MemoryGuard struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

// NewMemoryGuard creates an in-memory guard.
func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{expires: make(map[string]time.Time)}
}

// Acquire claims the key unless a live claim exists. Expired claims
// are reaped lazily on contact.
func (g *MemoryGuard) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if until, ok := g.expires[key]; ok && time.Now().Before(until) {
		return false, nil
	}
	g.expires[key] = time.Now().Add(ttl)
	return true, nil
}

// Release drops the claim.
func (g *MemoryGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.expires, key)
	return nil
}
