package entity

import (
	"reflect"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[reflect.Type]*TableInfo)
)

// Register parses T's `db` struct tags into a TableInfo and caches it by
// T's reflect.Type, so repeated Register[T](table) calls with the same
// type return the same validated TableInfo.
func Register[T any](table string) (*TableInfo, error) {
	var zero T
	t := reflect.TypeOf(zero)

	registryMu.RLock()
	if ti, ok := registry[t]; ok {
		registryMu.RUnlock()
		return ti, nil
	}
	registryMu.RUnlock()

	ti, err := BuildTableInfo(table, zero)
	if err != nil {
		return nil, err
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if existing, ok := registry[t]; ok {
		return existing, nil
	}
	registry[t] = ti
	return ti, nil
}
