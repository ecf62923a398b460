package types

import (
	"strconv"
	"strings"
)

// EnumMember pairs an enum's member name with its underlying integral
// value, used by EnumCoercion to resolve string/integral sources.
type EnumMember struct {
	Name  string
	Value int64
}

// EnumCoercion converts raw values to one particular enum type's member
// set. Each concrete enum registers its own instance via
// Registry.RegisterCoercion, since the shared Enum LogicalType tag alone
// does not carry a member set.
type EnumCoercion struct {
	members []EnumMember
	byName  map[string]int64
	byValue map[int64]bool
}

// NewEnumCoercion builds an EnumCoercion over members.
func NewEnumCoercion(members []EnumMember) *EnumCoercion {
	e := &EnumCoercion{
		members: members,
		byName:  make(map[string]int64, len(members)),
		byValue: make(map[int64]bool, len(members)),
	}
	for _, m := range members {
		e.byName[strings.ToLower(m.Name)] = m.Value
		e.byValue[m.Value] = true
	}
	return e
}

func (e *EnumCoercion) TryRead(raw any, target LogicalType) (any, bool) {
	if target != Enum {
		return nil, false
	}
	switch v := raw.(type) {
	case int64:
		if e.byValue[v] {
			return v, true
		}
		return nil, false
	case int:
		if e.byValue[int64(v)] {
			return int64(v), true
		}
		return nil, false
	case string:
		trimmed := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			if e.byValue[n] {
				return n, true
			}
			return nil, false
		}
		if val, ok := e.byName[strings.ToLower(trimmed)]; ok {
			return val, true
		}
	}
	return nil, false
}

func (e *EnumCoercion) TryWrite(value any, target LogicalType) (any, bool) {
	if target != Enum {
		return nil, false
	}
	switch v := value.(type) {
	case int64:
		if e.byValue[v] {
			return v, true
		}
	case int:
		if e.byValue[int64(v)] {
			return int64(v), true
		}
	case string:
		if val, ok := e.byName[strings.ToLower(v)]; ok {
			return val, true
		}
	}
	return nil, false
}
