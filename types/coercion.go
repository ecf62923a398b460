package types

// Coercion is a bidirectional converter between a source language value
// (including database-null and typed-null) and a logical-type value
// object. TryRead/TryWrite report false rather than erroring when the
// conversion does not apply, so the registry can fall through to the
// next coercion in the ordered list.
type Coercion interface {
	TryRead(raw any, target LogicalType) (value any, ok bool)
	TryWrite(value any, target LogicalType) (provider any, ok bool)
}

// coercionFuncs adapts two plain functions to the Coercion interface.
type coercionFuncs struct {
	read  func(raw any, target LogicalType) (any, bool)
	write func(value any, target LogicalType) (any, bool)
}

func (c coercionFuncs) TryRead(raw any, target LogicalType) (any, bool) {
	if c.read == nil {
		return nil, false
	}
	return c.read(raw, target)
}

func (c coercionFuncs) TryWrite(value any, target LogicalType) (any, bool) {
	if c.write == nil {
		return nil, false
	}
	return c.write(value, target)
}
