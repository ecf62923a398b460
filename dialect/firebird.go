package dialect

import "strings"

// NewFirebird returns the DialectEngine for Firebird. Firebird has no
// session-level read-only enforcement, so GetConnectionSessionSettings
// renders the same statement block for both read-only and read-write
// contexts (spec.md §4.1).
//
// SupportsMerge stays false even after version detection: see DESIGN.md
// Open Question #3 for why this implementation does not attempt a
// version-gated re-enable.
func NewFirebird() DialectEngine {
	return &base{
		descriptor: Descriptor{
			Database:                     Firebird,
			ParameterMarker:              "?",
			SupportsNamedParameters:      false,
			QuotePrefix:                  `"`,
			QuoteSuffix:                  `"`,
			CompositeIdentifierSeparator: ".",
			MaxParameterLimit:            1499,
			MaxOutputParameters:          0,
			ParameterNameMaxLength:       31,
			SupportsPreparedStatements:   true,
			ProcedureWrapStyle:           WrapExecuteProcedure,
			PoolingSettingName:           "",
			Features: FeatureFlags{
				SupportsMerge:           false,
				SupportsWindowFunctions: true,
				SupportsCTEs:            true,
				SupportsSavepoints:      true,
				SupportsInsertReturning: true,
				SupportsJsonTypes:       false,
				SupportsArrayTypes:      true,
				SupportsIdentityColumns: true,
			},
			GeneratedKeyPlan: Returning,
			RowLimitStyle:    RowsClause,
		},
		versionQuery:   "SELECT rdb$get_context('SYSTEM', 'ENGINE_VERSION') FROM rdb$database",
		secondaryQuery: "SELECT mon$server_version FROM mon$database",
		sessionSettings: func(readOnly bool) string {
			// Identical for both read modes: Firebird cannot flip
			// read-only at the session level.
			return "SET STATEMENT TIMEOUT 30 SECOND"
		},
		uniqueViolation: func(err error) bool {
			return err != nil && strings.Contains(err.Error(), "violation of PRIMARY or UNIQUE KEY constraint")
		},
		standardLevel: func(v *Version) SqlStandardLevel {
			if v == nil {
				return Sql92
			}
			if v.Major >= 4 {
				return Sql2011
			}
			return Sql2003
		},
	}
}

// UpsertIncomingColumn returns the dialect-specific source-row alias used
// in a MERGE statement's matched-clause. Firebird's MERGE requires a
// named source alias ("src") rather than referencing the bare column.
func UpsertIncomingColumn(col string) string {
	return `"src"."` + col + `"`
}
