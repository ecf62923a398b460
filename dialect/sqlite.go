package dialect

import (
	"context"
	"strings"
)

// sqliteReturningFloor is the first SQLite release that supports
// INSERT ... RETURNING, resolving the Open Question recorded in
// DESIGN.md: SQLite starts on SessionScopedFunction and is upgraded to
// Returning once a live connection reports a version at or above this
// floor.
var sqliteReturningFloor = Version{Major: 3, Minor: 35}

// NewSqlite returns the DialectEngine for SQLite.
func NewSqlite() DialectEngine {
	return &base{
		descriptor: Descriptor{
			Database:                     Sqlite,
			ParameterMarker:              "?",
			SupportsNamedParameters:      false,
			QuotePrefix:                  `"`,
			QuoteSuffix:                  `"`,
			CompositeIdentifierSeparator: ".",
			MaxParameterLimit:            999,
			MaxOutputParameters:          0,
			ParameterNameMaxLength:       255,
			SupportsPreparedStatements:   true,
			ProcedureWrapStyle:           WrapExec,
			PoolingSettingName:           "",
			Features: FeatureFlags{
				SupportsMerge:           false,
				SupportsWindowFunctions: true,
				SupportsCTEs:            true,
				SupportsSavepoints:      true,
				SupportsInsertReturning: false,
				SupportsJsonTypes:       false,
				SupportsArrayTypes:      false,
				SupportsIdentityColumns: true,
			},
			GeneratedKeyPlan: SessionScopedFunction,
			RowLimitStyle:    LimitClause,
		},
		versionQuery:         "SELECT sqlite_version()",
		sessionScopedIDQuery: "SELECT last_insert_rowid()",
		sessionSettings: func(readOnly bool) string {
			if readOnly {
				return "PRAGMA query_only = ON"
			}
			return "PRAGMA query_only = OFF"
		},
		uniqueViolation: func(err error) bool {
			return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
		},
		standardLevel: func(v *Version) SqlStandardLevel {
			return Sql92
		},
		postInit: func(ctx context.Context, q Querier, v Version, eng *base) {
			if v.AtLeast(sqliteReturningFloor) {
				eng.descriptor.GeneratedKeyPlan = Returning
				eng.descriptor.Features.SupportsInsertReturning = true
			}
		},
	}
}

// NewDuckDB returns the DialectEngine for DuckDB, an embedded analytical
// engine that shares SQLite's parameter style but speaks Postgres-like
// RETURNING and richer types from the start.
func NewDuckDB() DialectEngine {
	return &base{
		descriptor: Descriptor{
			Database:                     DuckDB,
			ParameterMarker:              "?",
			SupportsNamedParameters:      false,
			QuotePrefix:                  `"`,
			QuoteSuffix:                  `"`,
			CompositeIdentifierSeparator: ".",
			MaxParameterLimit:            0, // unbounded in practice
			MaxOutputParameters:          0,
			ParameterNameMaxLength:       255,
			SupportsPreparedStatements:   true,
			ProcedureWrapStyle:           WrapExec,
			PoolingSettingName:           "",
			Features: FeatureFlags{
				SupportsMerge:           false,
				SupportsWindowFunctions: true,
				SupportsCTEs:            true,
				SupportsSavepoints:      false,
				SupportsInsertReturning: true,
				SupportsJsonTypes:       true,
				SupportsArrayTypes:      true,
				SupportsIdentityColumns: false,
			},
			GeneratedKeyPlan: Returning,
			RowLimitStyle:    LimitClause,
		},
		versionQuery: "SELECT version()",
		sessionSettings: func(readOnly bool) string {
			if readOnly {
				return "SET access_mode = 'READ_ONLY'"
			}
			return ""
		},
		uniqueViolation: func(err error) bool {
			return err != nil && strings.Contains(err.Error(), "UNIQUE")
		},
		standardLevel: func(v *Version) SqlStandardLevel {
			return Sql2016
		},
	}
}
