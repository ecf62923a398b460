package tenant

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/shiftdb/core"
)

// TenantContextRegistry is TenantContextRegistry: it owns one
// DatabaseContext per tenant key, built lazily from a preloaded
// configuration table and cached with insert-once semantics.
type TenantContextRegistry struct {
	configs map[string]DatabaseContextConfiguration

	mu       sync.Mutex
	contexts map[string]*DatabaseContext
}

// NewTenantContextRegistry returns a registry over configs, indexed by
// TenantConfiguration.Name. No DatabaseContext is built until its key is
// first requested via GetContext.
func NewTenantContextRegistry(configs []TenantConfiguration) *TenantContextRegistry {
	byName := make(map[string]DatabaseContextConfiguration, len(configs))
	for _, c := range configs {
		byName[c.Name] = c.DatabaseContextConfiguration
	}
	return &TenantContextRegistry{
		configs:  byName,
		contexts: make(map[string]*DatabaseContext),
	}
}

// GetContext returns the DatabaseContext for key, building it from the
// matching configuration on first request. Concurrent GetContext(key)
// calls for a new key resolve to the same instance: the context is
// built outside the lock and the result discarded (and disposed) if
// another goroutine won the race, per spec.md §5's double-check rule.
func (r *TenantContextRegistry) GetContext(key string) (*DatabaseContext, error) {
	r.mu.Lock()
	if ctx, ok := r.contexts[key]; ok {
		r.mu.Unlock()
		return ctx, nil
	}
	r.mu.Unlock()

	cfg, ok := r.configs[key]
	if !ok {
		return nil, core.NewNotFoundError("tenant configuration", key)
	}

	built, err := NewDatabaseContext(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.contexts[key]; ok {
		built.Dispose()
		return existing, nil
	}
	r.contexts[key] = built
	return built, nil
}

// Dispose tears down every built DatabaseContext concurrently,
// swallowing individual disposal failures (logged, not returned) so one
// misbehaving tenant cannot block registry teardown.
func (r *TenantContextRegistry) Dispose(ctx context.Context) error {
	r.mu.Lock()
	contexts := make([]*DatabaseContext, 0, len(r.contexts))
	for key, c := range r.contexts {
		contexts = append(contexts, c)
		delete(r.contexts, key)
	}
	r.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, c := range contexts {
		c := c
		g.Go(func() error {
			if err := c.Dispose(); err != nil {
				log.Printf("tenant: context disposal failed: %v", err)
			}
			return nil
		})
	}
	return g.Wait()
}
