package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Querier is the minimal surface DialectEngine needs from a live
// connection to detect a product version or apply session settings. A
// *sql.DB, *sql.Conn, and *sql.Tx all satisfy it.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DialectEngine is the per-provider contract described in spec.md §4.1:
// a static Descriptor plus the dynamic operations that require a live
// connection.
type DialectEngine interface {
	Descriptor() Descriptor

	WrapObject(name string) string
	ParameterMarkerFor(logicalName string) string
	RenderInsertReturning(columnSQL string) string
	GetLastInsertedIdQuery() (string, error)
	NextSequenceValueQuery(sequenceName string) (string, error)
	GetNaturalKeyLookupQuery(table, idColumn string, columns, params []string) (string, error)
	GetConnectionSessionSettings(readOnly bool) string
	ApplyConnectionSettings(ctx context.Context, q Querier, readOnly bool) error
	IsUniqueViolation(err error) bool
	TryEnterReadOnlyTransaction(ctx context.Context, tx *sql.Tx) bool
	DetermineStandardCompliance(version *Version) SqlStandardLevel

	// GetVersionQuery returns the fixed product-version probe query.
	GetVersionQuery() string
	// ParseVersion extracts a Version from a raw banner string.
	ParseVersion(banner string) (Version, bool)
	// DetectVersion runs GetVersionQuery against q and parses the
	// result. A failure falls back to any secondary query the dialect
	// defines and, on exhaustion, returns ok=false rather than an error.
	DetectVersion(ctx context.Context, q Querier) (v Version, ok bool)
	// PostInitialise probes additional capabilities once a connection is
	// available (e.g. upgrading SQLite's generated-key plan on 3.35+).
	// It is safe to call more than once; only the first call after
	// construction has an effect.
	PostInitialise(ctx context.Context, q Querier)

	// Disposed reports whether Dispose has been called.
	Disposed() bool
	// Dispose marks the engine as no longer usable. Subsequent calls to
	// any operation return an InvalidState-flavoured error through the
	// caller-visible wrapper (dialect engines themselves just flip a
	// flag; enforcement happens in tenant.DatabaseContext).
	Dispose()

	// CompatibilityWarning returns a human-readable note when this
	// engine is the Fallback; "" otherwise.
	CompatibilityWarning() string
}

// base implements the parts of DialectEngine that are identical across
// every dialect: quoting, marker rendering, lazy version detection with
// sync.Once, and disposal tracking. Concrete dialects embed base and
// override the handful of methods that differ (session settings,
// unique-violation detection, standard-compliance mapping, ...).
type base struct {
	descriptor Descriptor

	versionQuery    string
	secondaryQuery  string
	parse           func(string) (Version, bool)
	postInit        func(ctx context.Context, q Querier, v Version, eng *base)
	sessionSettings func(readOnly bool) string
	uniqueViolation func(error) bool
	tryReadOnlyTx   func(ctx context.Context, tx *sql.Tx) bool
	standardLevel   func(v *Version) SqlStandardLevel
	compatWarning   string
	sessionScopedIDQuery string
	sequenceValueQuery   func(sequenceName string) string

	once      sync.Once
	detected  Version
	detectedOK bool
	disposed  atomic.Bool
}

func (b *base) Descriptor() Descriptor { return b.descriptor }

func (b *base) WrapObject(name string) string { return b.descriptor.WrapObject(name) }

func (b *base) ParameterMarkerFor(logicalName string) string {
	marker := b.descriptor.ParameterMarker
	if !b.descriptor.SupportsNamedParameters {
		return marker
	}
	name := sanitizeParameterName(logicalName)
	if max := b.descriptor.ParameterNameMaxLength; max > 0 && len(name) > max {
		name = name[:max]
	}
	return marker + name
}

func sanitizeParameterName(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}

func (b *base) RenderInsertReturning(columnSQL string) string {
	switch b.descriptor.GeneratedKeyPlan {
	case Returning:
		return "RETURNING " + columnSQL
	case OutputInserted:
		return "OUTPUT INSERTED." + columnSQL
	case PrefetchSequence:
		// Oracle still supports RETURNING on the insert itself, binding
		// the generated value into an OUT parameter rather than a result
		// row (spec.md §4.1's fourth render form).
		return "RETURNING " + columnSQL + " INTO ?"
	case SessionScopedFunction, CorrelationToken:
		return ""
	default:
		return ""
	}
}

func (b *base) GetLastInsertedIdQuery() (string, error) {
	if b.descriptor.GeneratedKeyPlan != SessionScopedFunction {
		return "", fmt.Errorf("dialect: %s requires generator-specific syntax for last-inserted-id", b.descriptor.Database)
	}
	return b.sessionScopedIDQuery, nil
}

// NextSequenceValueQuery returns the query that fetches the next value of
// sequenceName, used by the PrefetchSequence generated-key plan (Oracle):
// the value is resolved before the INSERT runs and bound as the id
// parameter, rather than read back from the executed command.
func (b *base) NextSequenceValueQuery(sequenceName string) (string, error) {
	if b.descriptor.GeneratedKeyPlan != PrefetchSequence {
		return "", fmt.Errorf("dialect: %s does not use a sequence-prefetch generated-key plan", b.descriptor.Database)
	}
	if b.sequenceValueQuery == nil || sequenceName == "" {
		return "", fmt.Errorf("dialect: %s has no sequence configured for this id column", b.descriptor.Database)
	}
	return b.sequenceValueQuery(sequenceName), nil
}

func (b *base) GetNaturalKeyLookupQuery(table, idColumn string, columns, params []string) (string, error) {
	if table == "" || idColumn == "" || len(columns) == 0 || len(params) == 0 {
		return "", fmt.Errorf("dialect: table, id column and at least one column/param are required")
	}
	if len(columns) != len(params) {
		return "", fmt.Errorf("dialect: column count %d does not match parameter count %d", len(columns), len(params))
	}
	quotedTable := b.WrapObject(table)
	quotedID := b.WrapObject(idColumn)
	selectCols := make([]string, len(columns))
	predicates := make([]string, len(columns))
	for i, c := range columns {
		quoted := b.WrapObject(c)
		selectCols[i] = quoted
		predicates[i] = quoted + " = " + params[i]
	}
	where := strings.Join(predicates, " AND ")
	selectList := strings.Join(append([]string{quotedID}, selectCols...), ", ")

	switch b.descriptor.RowLimitStyle {
	case TopClause:
		return fmt.Sprintf("SELECT TOP 1 %s FROM %s WHERE %s ORDER BY %s", selectList, quotedTable, where, quotedID), nil
	case FetchFirstClause:
		return fmt.Sprintf("SELECT %s FROM %s WHERE %s FETCH FIRST 1 ROWS ONLY", selectList, quotedTable, where), nil
	case RowsClause:
		return fmt.Sprintf("SELECT %s FROM %s WHERE %s ROWS 1", selectList, quotedTable, where), nil
	default:
		return fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1", selectList, quotedTable, where), nil
	}
}

func (b *base) GetConnectionSessionSettings(readOnly bool) string {
	if b.sessionSettings == nil {
		return ""
	}
	return b.sessionSettings(readOnly)
}

func (b *base) ApplyConnectionSettings(ctx context.Context, q Querier, readOnly bool) error {
	stmt := b.GetConnectionSessionSettings(readOnly)
	if stmt == "" {
		return nil
	}
	if q == nil {
		// Non-native connection types must be tolerated as a clean no-op.
		return nil
	}
	_, err := q.ExecContext(ctx, stmt)
	return err
}

func (b *base) IsUniqueViolation(err error) bool {
	if err == nil || b.uniqueViolation == nil {
		return false
	}
	return b.uniqueViolation(err)
}

func (b *base) TryEnterReadOnlyTransaction(ctx context.Context, tx *sql.Tx) bool {
	if b.tryReadOnlyTx == nil {
		return false
	}
	return b.tryReadOnlyTx(ctx, tx)
}

func (b *base) DetermineStandardCompliance(version *Version) SqlStandardLevel {
	if b.standardLevel == nil {
		return Sql92
	}
	return b.standardLevel(version)
}

func (b *base) GetVersionQuery() string { return b.versionQuery }

func (b *base) ParseVersion(banner string) (Version, bool) {
	if b.parse != nil {
		return b.parse(banner)
	}
	return ParseVersion(banner)
}

func (b *base) DetectVersion(ctx context.Context, q Querier) (Version, bool) {
	if q == nil {
		return Version{}, false
	}
	banner, ok := queryString(ctx, q, b.versionQuery)
	if ok {
		if v, ok := b.ParseVersion(banner); ok {
			return v, true
		}
	}
	if b.secondaryQuery != "" {
		if banner, ok := queryString(ctx, q, b.secondaryQuery); ok {
			if v, ok := b.ParseVersion(banner); ok {
				return v, true
			}
		}
	}
	return Version{}, false
}

func queryString(ctx context.Context, q Querier, query string) (string, bool) {
	if query == "" {
		return "", false
	}
	var s string
	if err := q.QueryRowContext(ctx, query).Scan(&s); err != nil {
		return "", false
	}
	return s, true
}

func (b *base) PostInitialise(ctx context.Context, q Querier) {
	b.once.Do(func() {
		v, ok := b.DetectVersion(ctx, q)
		b.detected, b.detectedOK = v, ok
		if ok && b.postInit != nil {
			b.postInit(ctx, q, v, b)
		}
	})
}

func (b *base) Disposed() bool { return b.disposed.Load() }
func (b *base) Dispose()       { b.disposed.Store(true) }

func (b *base) CompatibilityWarning() string { return b.compatWarning }
