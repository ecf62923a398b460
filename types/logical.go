// Package types implements the TypeSystem: a two-tier registry of
// provider-parameter mappings and bidirectional value coercions, plus the
// advanced value objects (network, spatial, range, interval, row-version,
// hstore, json) that the coercion registry reads and writes.
package types

// LogicalType is the provider-agnostic type tag carried by an entity
// column or a container parameter. It is the key half of the
// (LogicalType, Provider) -> ProviderTypeMapping table.
type LogicalType int

const (
	Text LogicalType = iota
	Integer
	BigInteger
	Decimal
	Boolean
	DateTime
	DateTimeOffset
	Guid
	Enum
	Json
	Binary
	Inet
	Cidr
	MacAddress
	Geometry
	Geography
	Range
	IntervalYearMonth
	IntervalDaySecond
	PostgreSqlInterval
	RowVersion
	HStore
	Blob
	Clob
	Array
)

var logicalTypeNames = [...]string{
	"Text", "Integer", "BigInteger", "Decimal", "Boolean", "DateTime",
	"DateTimeOffset", "Guid", "Enum", "Json", "Binary", "Inet", "Cidr",
	"MacAddress", "Geometry", "Geography", "Range", "IntervalYearMonth",
	"IntervalDaySecond", "PostgreSqlInterval", "RowVersion", "HStore",
	"Blob", "Clob", "Array",
}

func (t LogicalType) String() string {
	if t < 0 || int(t) >= len(logicalTypeNames) {
		return "Unknown"
	}
	return logicalTypeNames[t]
}

// TimeMappingPolicy controls how DateTime/DateTimeOffset coercions treat
// an offset on the source value.
type TimeMappingPolicy int

const (
	// PreferDateTimeOffset preserves an offset when the source carries one.
	PreferDateTimeOffset TimeMappingPolicy = iota
	// ForceUtcDateTime converts local values to UTC and treats an
	// unspecified offset as already being UTC.
	ForceUtcDateTime
)
