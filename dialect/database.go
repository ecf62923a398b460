// Package dialect describes the per-provider behavior bundle ("dialect")
// that every other subsystem in shiftdb consults before touching a
// physical connection: parameter markers, identifier quoting, session
// settings, generated-key strategy, and version-gated feature flags.
//
// Dialects are plain data (Descriptor) plus a small amount of dynamic
// behavior (DialectEngine) that needs a live connection to resolve, such
// as detecting the product version. Each constructor builds its own
// Descriptor; after construction only PostInitialise changes it (SQLite's
// generated-key plan and RETURNING flag).
package dialect

import "fmt"

// SupportedDatabase enumerates every database family shiftdb knows a
// behavior bundle for.
type SupportedDatabase int

// The zero value, Unknown, is the conservative SQL-92 fallback used when
// the live product cannot be identified.
const (
	Unknown SupportedDatabase = iota
	PostgreSql
	CockroachDb
	MySql
	MariaDb
	SqlServer
	Oracle
	Sqlite
	Firebird
	DuckDB
)

var databaseNames = [...]string{
	Unknown:     "Unknown",
	PostgreSql:  "PostgreSql",
	CockroachDb: "CockroachDb",
	MySql:       "MySql",
	MariaDb:     "MariaDb",
	SqlServer:   "SqlServer",
	Oracle:      "Oracle",
	Sqlite:      "Sqlite",
	Firebird:    "Firebird",
	DuckDB:      "DuckDB",
}

// String returns the canonical name of the database family.
func (d SupportedDatabase) String() string {
	if int(d) < 0 || int(d) >= len(databaseNames) {
		return fmt.Sprintf("SupportedDatabase(%d)", int(d))
	}
	return databaseNames[d]
}

// ProcedureWrapStyle selects the textual shape used to invoke a stored
// procedure on a given dialect.
type ProcedureWrapStyle int

const (
	// WrapExec renders "EXEC <name> <params>" (SQL Server).
	WrapExec ProcedureWrapStyle = iota
	// WrapCall renders "{CALL <name>(<params>)}" (generic ODBC-style).
	WrapCall
	// WrapOracle renders "BEGIN <name>(<params>); END;".
	WrapOracle
	// WrapPostgreSQL renders "SELECT * FROM <name>(<params>)".
	WrapPostgreSQL
	// WrapExecuteProcedure renders "EXECUTE PROCEDURE <name>(<params>)" (Firebird).
	WrapExecuteProcedure
)

// GeneratedKeyPlan selects the strategy used to retrieve an
// auto-assigned primary key after an INSERT.
type GeneratedKeyPlan int

const (
	// PrefetchSequence fetches the next sequence value before the INSERT
	// and binds it as the id parameter (Oracle).
	PrefetchSequence GeneratedKeyPlan = iota
	// OutputInserted reads the key from an OUTPUT INSERTED clause (SQL Server).
	OutputInserted
	// Returning reads the key from a RETURNING clause appended to the INSERT.
	Returning
	// SessionScopedFunction executes a session-scoped "last id" function
	// on the same connection immediately after the INSERT.
	SessionScopedFunction
	// CorrelationToken writes a caller-supplied correlation column and
	// looks the row up afterwards (Unknown fallback).
	CorrelationToken
)

// SqlStandardLevel is the closest ISO/ANSI SQL standard level a detected
// product version complies with.
type SqlStandardLevel int

const (
	Sql89 SqlStandardLevel = iota
	Sql92
	Sql99
	Sql2003
	Sql2008
	Sql2011
	Sql2016
)

func (l SqlStandardLevel) String() string {
	names := [...]string{"SQL-89", "SQL-92", "SQL-99", "SQL:2003", "SQL:2008", "SQL:2011", "SQL:2016"}
	if int(l) < 0 || int(l) >= len(names) {
		return "SQL-unknown"
	}
	return names[l]
}

// RowLimitStyle selects how a dialect restricts a query to a single row,
// used by GetNaturalKeyLookupQuery's tie-breaking rule.
type RowLimitStyle int

const (
	// LimitClause appends "LIMIT 1" (PostgreSQL, MySQL, MariaDB, SQLite,
	// DuckDB, CockroachDB, Unknown).
	LimitClause RowLimitStyle = iota
	// TopClause prepends "SELECT TOP 1 ... ORDER BY <id>" (SQL Server).
	TopClause
	// FetchFirstClause appends "FETCH FIRST 1 ROWS ONLY" (Oracle).
	FetchFirstClause
	// RowsClause appends "ROWS 1" (Firebird).
	RowsClause
)

// FeatureFlags records per-dialect capabilities. Each constructor sets
// them from a fixed table whether or not a version has been detected, so
// a flag such as SupportsJsonTypes can read true before initialisation;
// the flags are not gated on the detected version. PostInitialise
// changes only SQLite's SupportsInsertReturning, which starts false and
// becomes true on 3.35 or later.
type FeatureFlags struct {
	SupportsMerge           bool
	SupportsWindowFunctions bool
	SupportsCTEs            bool
	SupportsSavepoints      bool
	SupportsInsertReturning bool
	SupportsJsonTypes       bool
	SupportsArrayTypes      bool
	SupportsIdentityColumns bool
}
