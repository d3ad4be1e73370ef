package ratelimiter

import (
	"fmt"
	"sort"
	"sync"
)

// Registry hands out one RateLimiter per model.
//
// Limiters are created lazily on first lookup from the registry's quota table
// and kept for the lifetime of the registry, so every caller asking for the
// same model shares one bucket. The map has its own lock, separate from the
// per-limiter locks.
type Registry struct {
	quotas       QuotaTable
	defaultQuota Quota
	clock        Clock
	metrics      MetricsCollector

	mu       sync.RWMutex
	limiters map[string]*RateLimiter
}

// RegistryOpts represents options for Registry.
type RegistryOpts struct {
	// DefaultQuota applies to models missing from the quota table.
	// If zero, the package DefaultQuota is used.
	DefaultQuota Quota

	// Clock is passed to every limiter created by the registry.
	Clock Clock

	// Metrics is passed to every limiter created by the registry.
	Metrics MetricsCollector
}

// Status is a point-in-time view of one model's limiter.
type Status struct {
	Model           string
	Capacity        int
	AvailableTokens float64
	Quota           Quota
}

// NewRegistry creates a registry backed by the given quota table.
func NewRegistry(quotas QuotaTable) *Registry {
	return NewRegistryWithOpts(quotas, RegistryOpts{})
}

// NewRegistryWithOpts creates a registry backed by the given quota table and options.
// The table is copied, so later changes to it do not affect the registry.
func NewRegistryWithOpts(quotas QuotaTable, opts RegistryOpts) *Registry {
	if opts.DefaultQuota == (Quota{}) {
		opts.DefaultQuota = DefaultQuota
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Metrics == nil {
		opts.Metrics = disabledMetricsCollector
	}

	return &Registry{
		quotas:       QuotaTable{}.Merge(quotas),
		defaultQuota: opts.DefaultQuota,
		clock:        opts.Clock,
		metrics:      opts.Metrics,
		limiters:     make(map[string]*RateLimiter),
	}
}

// Get returns the limiter for a model, creating it on first use.
//
// Model names are matched case-insensitively. Unknown models get the default
// quota rather than an error. A quota that cannot back a bucket (non-positive
// requests per minute) returns an error wrapping ErrInvalidQuota and nothing
// is stored. Concurrent first lookups for the same model return the same instance.
func (r *Registry) Get(model string) (*RateLimiter, error) {
	key := NormalizeModel(model)

	r.mu.RLock()
	rl, ok := r.limiters[key]
	r.mu.RUnlock()
	if ok {
		return rl, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rl, ok = r.limiters[key]; ok {
		return rl, nil
	}

	quota := r.quotaLocked(key)
	if err := quota.Validate(); err != nil {
		return nil, fmt.Errorf("rate limiter for model %q: %w", key, err)
	}
	rl, err := New(quota.RequestsPerMinute,
		WithModel(key),
		WithClock(r.clock),
		WithMetrics(r.metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("rate limiter for model %q: %w", key, err)
	}

	r.limiters[key] = rl
	return rl, nil
}

// Set installs a limiter for a model, replacing any existing one.
func (r *Registry) Set(model string, limiter *RateLimiter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.limiters[NormalizeModel(model)] = limiter
}

// SetQuota adds or replaces the quota of a model.
// It applies to the next limiter created for the model; an existing limiter
// keeps its capacity until replaced with Set.
func (r *Registry) SetQuota(model string, quota Quota) error {
	if err := quota.Validate(); err != nil {
		return fmt.Errorf("quota for model %q: %w", NormalizeModel(model), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.quotas[NormalizeModel(model)] = quota
	return nil
}

// Quota returns the quota a model is (or would be) throttled with.
func (r *Registry) Quota(model string) Quota {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.quotaLocked(NormalizeModel(model))
}

func (r *Registry) quotaLocked(key string) Quota {
	if q, ok := r.quotas.Lookup(key); ok {
		return q
	}
	return r.defaultQuota
}

// Models returns the models that currently have a limiter, sorted.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.limiters))
	for model := range r.limiters {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// Snapshot returns the status of every created limiter, sorted by model.
func (r *Registry) Snapshot() []Status {
	r.mu.RLock()
	limiters := make(map[string]*RateLimiter, len(r.limiters))
	for model, rl := range r.limiters {
		limiters[model] = rl
	}
	r.mu.RUnlock()

	statuses := make([]Status, 0, len(limiters))
	for model, rl := range limiters {
		statuses = append(statuses, Status{
			Model:           model,
			Capacity:        rl.Capacity(),
			AvailableTokens: rl.AvailableTokens(),
			Quota:           r.Quota(model),
		})
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Model < statuses[j].Model
	})
	return statuses
}
