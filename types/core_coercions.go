package types

import (
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func coreCoercions() []Coercion {
	return []Coercion{
		nullCoercion{},
		identityCoercion{},
		boolCoercion{},
		guidCoercion{},
		NewDateTimeCoercion(PreferDateTimeOffset),
		jsonCoercion{},
		decimalCoercion{},
		networkCoercion{},
		geometryCoercion{},
	}
}

// nullCoercion implements "null/database-null in -> null out for
// nullable targets; non-nullable target + database-null -> failure" by
// always succeeding with a nil value on read (callers enforce
// nullability) and mapping a nil value to database-null on write.
type nullCoercion struct{}

func (nullCoercion) TryRead(raw any, target LogicalType) (any, bool) {
	if raw == nil {
		return nil, true
	}
	return nil, false
}

func (nullCoercion) TryWrite(value any, target LogicalType) (any, bool) {
	if value == nil {
		return nil, true
	}
	return nil, false
}

// identityCoercion passes through values whose Go type already matches
// the expected representation for the target logical type.
type identityCoercion struct{}

func (identityCoercion) TryRead(raw any, target LogicalType) (any, bool) {
	switch target {
	case Text, Clob:
		if s, ok := raw.(string); ok {
			return s, true
		}
	case Integer:
		if v, ok := raw.(int); ok {
			return v, true
		}
		if v, ok := raw.(int32); ok {
			return int(v), true
		}
	case BigInteger:
		if v, ok := raw.(int64); ok {
			return v, true
		}
	case Boolean:
		if v, ok := raw.(bool); ok {
			return v, true
		}
	case Binary, Blob:
		if v, ok := raw.([]byte); ok {
			return v, true
		}
	case DateTime, DateTimeOffset:
		if v, ok := raw.(time.Time); ok {
			return v, true
		}
	}
	return nil, false
}

func (identityCoercion) TryWrite(value any, target LogicalType) (any, bool) {
	return value, value != nil && sameShape(value, target)
}

func sameShape(value any, target LogicalType) bool {
	switch value.(type) {
	case string:
		return target == Text || target == Clob
	case int, int32, int64:
		return target == Integer || target == BigInteger
	case bool:
		return target == Boolean
	case []byte:
		return target == Binary || target == Blob
	case time.Time:
		return target == DateTime || target == DateTimeOffset
	}
	return false
}

// boolCoercion implements spec.md §4.5's string/numeric -> bool rules.
type boolCoercion struct{}

func (boolCoercion) TryRead(raw any, target LogicalType) (any, bool) {
	if target != Boolean {
		return nil, false
	}
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		return parseBoolString(v)
	case int:
		return v != 0, true
	case int32:
		return v != 0, true
	case int64:
		return v != 0, true
	case float32:
		return v != 0, true
	case float64:
		return v != 0, true
	}
	return nil, false
}

func parseBoolString(s string) (any, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "y", "1":
		return true, true
	case "false", "f", "n", "0":
		return false, true
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f != 0, true
	}
	return nil, false
}

func (boolCoercion) TryWrite(value any, target LogicalType) (any, bool) {
	if target != Boolean {
		return nil, false
	}
	b, ok := value.(bool)
	if !ok {
		return nil, false
	}
	return b, true
}

// guidCoercion reads a uuid.UUID from a canonical string, a 16-byte
// slice, or a 16-rune char array; any other byte length fails.
type guidCoercion struct{}

func (guidCoercion) TryRead(raw any, target LogicalType) (any, bool) {
	if target != Guid {
		return nil, false
	}
	switch v := raw.(type) {
	case uuid.UUID:
		return v, true
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, false
		}
		return id, true
	case []byte:
		if len(v) != 16 {
			return nil, false
		}
		id, err := uuid.FromBytes(v)
		if err != nil {
			return nil, false
		}
		return id, true
	case [16]byte:
		return uuid.UUID(v), true
	case []rune:
		if len(v) != 16 {
			return nil, false
		}
		buf := make([]byte, 16)
		for i, r := range v {
			buf[i] = byte(r)
		}
		id, err := uuid.FromBytes(buf)
		if err != nil {
			return nil, false
		}
		return id, true
	}
	return nil, false
}

func (guidCoercion) TryWrite(value any, target LogicalType) (any, bool) {
	if target != Guid {
		return nil, false
	}
	switch v := value.(type) {
	case uuid.UUID:
		return v.String(), true
	case string:
		if _, err := uuid.Parse(v); err != nil {
			return nil, false
		}
		return v, true
	}
	return nil, false
}

// DateTimeCoercion converts between raw time values and time.Time
// according to a TimeMappingPolicy (spec.md §4.5).
type DateTimeCoercion struct {
	Policy TimeMappingPolicy
}

// NewDateTimeCoercion returns a DateTimeCoercion following policy.
func NewDateTimeCoercion(policy TimeMappingPolicy) DateTimeCoercion {
	return DateTimeCoercion{Policy: policy}
}

func (d DateTimeCoercion) TryRead(raw any, target LogicalType) (any, bool) {
	if target != DateTime && target != DateTimeOffset {
		return nil, false
	}
	var t time.Time
	switch v := raw.(type) {
	case time.Time:
		t = v
	case string:
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, false
		}
		t = parsed
	default:
		return nil, false
	}
	switch d.Policy {
	case ForceUtcDateTime:
		return t.UTC(), true
	default:
		return t, true
	}
}

func (d DateTimeCoercion) TryWrite(value any, target LogicalType) (any, bool) {
	if target != DateTime && target != DateTimeOffset {
		return nil, false
	}
	t, ok := value.(time.Time)
	if !ok {
		return nil, false
	}
	if d.Policy == ForceUtcDateTime {
		return t.UTC(), true
	}
	return t, true
}

// decimalCoercion reads/writes arbitrary-precision Decimal values,
// accepting a string, float64, or decimal.Decimal on read and always
// writing back the canonical string form a driver can bind.
type decimalCoercion struct{}

func (decimalCoercion) TryRead(raw any, target LogicalType) (any, bool) {
	if target != Decimal {
		return nil, false
	}
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(v), true
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return nil, false
		}
		return d, true
	}
	return nil, false
}

func (decimalCoercion) TryWrite(value any, target LogicalType) (any, bool) {
	if target != Decimal {
		return nil, false
	}
	switch v := value.(type) {
	case decimal.Decimal:
		return v.String(), true
	case string:
		if _, err := decimal.NewFromString(v); err != nil {
			return nil, false
		}
		return v, true
	}
	return nil, false
}

// jsonCoercion implements spec.md §4.5's JSON-target rules: empty or
// whitespace input is null; invalid JSON from a string source logs and
// returns null; invalid JSON from a byte-stream source fails outright.
type jsonCoercion struct{}

func (jsonCoercion) TryRead(raw any, target LogicalType) (any, bool) {
	if target != Json {
		return nil, false
	}
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, true
		}
		if !json.Valid([]byte(v)) {
			log.Printf("types: invalid JSON from string source, treating as null: %q", v)
			return nil, true
		}
		return v, true
	case []byte:
		if len(strings.TrimSpace(string(v))) == 0 {
			return nil, true
		}
		if !json.Valid(v) {
			return nil, false
		}
		return string(v), true
	}
	return nil, false
}

func (jsonCoercion) TryWrite(value any, target LogicalType) (any, bool) {
	if target != Json {
		return nil, false
	}
	switch v := value.(type) {
	case string:
		return v, true
	case nil:
		return nil, true
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		return string(b), true
	}
}
