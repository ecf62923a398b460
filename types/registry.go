package types

import (
	"database/sql/driver"
	"sync"
	"sync/atomic"

	"github.com/shiftdb/core/dialect"
)

// ConfigureParameterFunc customises a provider parameter beyond the
// mapping's DbType/Size defaults: provider-specific type codes, UDT
// names, array-element types.
type ConfigureParameterFunc func(param *ParameterBinding, value any)

// ProviderTypeMapping is one row of the (LogicalType, Provider) ->
// ProviderTypeMapping table.
type ProviderTypeMapping struct {
	Logical   LogicalType
	Provider  dialect.SupportedDatabase
	DbType    string
	Size      int
	Configure ConfigureParameterFunc
}

// ParameterBinding is the provider-agnostic view of a bound parameter
// that a mapping's Configure callback mutates in place.
type ParameterBinding struct {
	Name   string
	DbType string
	Size   int
	Value  driver.Value
}

type mappingKey struct {
	logical  LogicalType
	provider dialect.SupportedDatabase
}

// CachedParameterConfig is the per-call binding cache entry: a resolved
// mapping pinned to the registry version it was resolved against. A
// stale version forces re-resolution on next use. TryConfigureParameter
// leaves Converter nil and coerces through TryWrite on every call.
type CachedParameterConfig struct {
	Mapping   *ProviderTypeMapping
	Converter Coercion
	Version   uint64
	Found     bool
}

// Registry is the TypeSystem: the mutable, process-scoped parameter
// mapping table plus the ordered coercion list. It is free-threaded for
// reads and internally synchronised for registration mutations, per
// spec.md §5.
type Registry struct {
	mu        sync.RWMutex
	mappings  map[mappingKey]*ProviderTypeMapping
	coercions []Coercion
	version   atomic.Uint64

	cacheMu sync.Mutex
	cache   map[mappingKey]CachedParameterConfig
}

// NewRegistry returns a Registry preloaded with the core coercions
// (null, identity, boolean, guid, datetime, json, decimal) plus the
// network and spatial advanced converters, all described in spec.md
// §4.5. The package has no Coercion for range, interval, LOB or
// row-version values: those value objects come from their own parse
// functions and constructors (ParseRange, ParseIntervalDaySecond,
// NewRowVersion, ...), and the registry reads and writes them only
// through a coercion added with RegisterCoercion.
func NewRegistry() *Registry {
	r := &Registry{
		mappings: make(map[mappingKey]*ProviderTypeMapping),
		cache:    make(map[mappingKey]CachedParameterConfig),
	}
	for _, c := range coreCoercions() {
		r.coercions = append(r.coercions, c)
	}
	return r
}

// RegisterMapping inserts or replaces a (logical, provider) mapping,
// incrementing the version stamp and invalidating any cached binding for
// that key.
func (r *Registry) RegisterMapping(m ProviderTypeMapping) {
	key := mappingKey{m.Logical, m.Provider}
	r.mu.Lock()
	cp := m
	r.mappings[key] = &cp
	r.mu.Unlock()
	r.version.Add(1)
	r.cacheMu.Lock()
	delete(r.cache, key)
	r.cacheMu.Unlock()
}

func (r *Registry) lookupMapping(logical LogicalType, provider dialect.SupportedDatabase) (*ProviderTypeMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappings[mappingKey{logical, provider}]
	return m, ok
}

// RegisterCoercion appends c to the end of the ordered coercion list.
// Reads try coercions in registration order; the first successful read
// wins.
func (r *Registry) RegisterCoercion(c Coercion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coercions = append(r.coercions, c)
	r.version.Add(1)
}

// Version returns the current monotonically increasing registry stamp.
func (r *Registry) Version() uint64 { return r.version.Load() }

// TryRead runs the coercion list in order against raw, returning the
// first successful conversion to target.
func (r *Registry) TryRead(raw any, target LogicalType) (any, bool) {
	r.mu.RLock()
	coercions := append([]Coercion(nil), r.coercions...)
	r.mu.RUnlock()
	for _, c := range coercions {
		if v, ok := c.TryRead(raw, target); ok {
			return v, true
		}
	}
	return nil, false
}

// TryWrite dispatches by target logical type, returning the
// provider-ready value.
func (r *Registry) TryWrite(value any, target LogicalType) (any, bool) {
	r.mu.RLock()
	coercions := append([]Coercion(nil), r.coercions...)
	r.mu.RUnlock()
	for _, c := range coercions {
		if v, ok := c.TryWrite(value, target); ok {
			return v, true
		}
	}
	return nil, false
}

// TryConfigureParameter implements spec.md §4.5's hot path: resolve (or
// reuse a version-valid cached) mapping, then apply DbType, Size, the
// mapping's Configure callback, and the value coerced through TryWrite
// (or database-null).
func (r *Registry) TryConfigureParameter(param *ParameterBinding, logical LogicalType, value any, provider dialect.SupportedDatabase) bool {
	key := mappingKey{logical, provider}
	current := r.Version()

	r.cacheMu.Lock()
	cached, ok := r.cache[key]
	r.cacheMu.Unlock()

	if !ok || cached.Version != current {
		mapping, found := r.lookupMapping(logical, provider)
		cached = CachedParameterConfig{Mapping: mapping, Version: current, Found: found}
		r.cacheMu.Lock()
		r.cache[key] = cached
		r.cacheMu.Unlock()
	}

	if !cached.Found {
		return false
	}

	param.DbType = cached.Mapping.DbType
	param.Size = cached.Mapping.Size
	if cached.Mapping.Configure != nil {
		cached.Mapping.Configure(param, value)
	}
	if value == nil {
		param.Value = nil
		return true
	}
	if converted, ok := r.TryWrite(value, logical); ok {
		param.Value = converted
	} else {
		param.Value = value
	}
	return true
}

// TryConfigureParameterEnhanced is the fallback path: consult the
// advanced registry first (already folded into TryConfigureParameter's
// coercion list), then generic parameter-binding rules. Unlike the .NET
// original's reflection-cached ProviderParameterFactory step, Go has no
// provider-specific parameter struct to reflect over, so the enhanced
// path here collapses to "try the mapping table, then assign raw".
func (r *Registry) TryConfigureParameterEnhanced(param *ParameterBinding, logical LogicalType, value any, provider dialect.SupportedDatabase) bool {
	if r.TryConfigureParameter(param, logical, value, provider) {
		return true
	}
	param.Value = value
	return true
}
