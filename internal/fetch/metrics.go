package fetch

import "sync"

// Metrics counts retry and cooldown activity for a single crawl run.
type Metrics struct {
	mu        sync.Mutex
	retries   int
	cooldowns int
	failures  int
}

// NewMetrics creates a zeroed Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordRetry increments the retry counter.
func (m *Metrics) RecordRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

// RecordCooldown increments the cooldown-trigger counter.
func (m *Metrics) RecordCooldown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cooldowns++
}

// RecordFailure increments the soft-failure counter.
func (m *Metrics) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

// Reset zeroes all counters.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries = 0
	m.cooldowns = 0
	m.failures = 0
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() (retries, cooldowns, failures int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retries, m.cooldowns, m.failures
}
