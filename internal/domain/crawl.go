package domain

import (
	"fmt"
	"strings"
)

// CrawlResult is the outcome of a single crawl run. Errors collects
// non-fatal per-request failure descriptions; a non-empty Errors list
// does not itself make the run a failure.
type CrawlResult[T any] struct {
	Count  int
	Rows   []T
	Errors []string
}

// RunMetrics are per-run diagnostic counters used to detect source
// schema drift. Key samples are bounded so a run never accumulates
// full payload dumps.
type RunMetrics struct {
	RawCount         int
	ParsedCount      int
	InvalidCount     int
	RetryCount       int
	CooldownCount    int
	SchemaKeySamples [][]string
	SourceKeySamples [][]string
}

// maxKeySamples bounds how many distinct key-set examples a run keeps.
const maxKeySamples = 3

// SampleKeys records one sorted key-set sample if it has not been seen
// yet and the sample budget is not exhausted.
func sampleKeys(samples [][]string, seen map[string]struct{}, keys []string) [][]string {
	if len(keys) == 0 || len(samples) >= maxKeySamples {
		return samples
	}
	sig := strings.Join(keys, ",")
	if _, ok := seen[sig]; ok {
		return samples
	}
	seen[sig] = struct{}{}
	return append(samples, keys)
}

// KeySampler accumulates bounded, de-duplicated key-set samples.
type KeySampler struct {
	seen    map[string]struct{}
	samples [][]string
}

// NewKeySampler returns an empty sampler.
func NewKeySampler() *KeySampler {
	return &KeySampler{seen: map[string]struct{}{}}
}

// Observe records keys (already sorted by the caller) as a sample.
func (s *KeySampler) Observe(keys []string) {
	s.samples = sampleKeys(s.samples, s.seen, keys)
}

// Samples returns the collected key-set samples.
func (s *KeySampler) Samples() [][]string {
	return s.samples
}

// SchemaMismatchError signals that a crawl run fetched raw items but
// parsed none of them: the source's response shape has silently
// changed and ingestion must halt loudly instead of persisting
// nothing while appearing healthy.
type SchemaMismatchError struct {
	Source  string
	Metrics RunMetrics
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf(
		"%s schema mismatch: raw items fetched but none parsed (raw=%d parsed=%d invalid=%d schema_keys=%v source_keys=%v)",
		e.Source,
		e.Metrics.RawCount,
		e.Metrics.ParsedCount,
		e.Metrics.InvalidCount,
		e.Metrics.SchemaKeySamples,
		e.Metrics.SourceKeySamples,
	)
}
