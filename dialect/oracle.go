package dialect

import (
	"fmt"
	"strings"
)

// NewOracle returns the DialectEngine for Oracle Database.
func NewOracle() DialectEngine {
	return &base{
		descriptor: Descriptor{
			Database:                     Oracle,
			ParameterMarker:              ":",
			SupportsNamedParameters:      true,
			QuotePrefix:                  `"`,
			QuoteSuffix:                  `"`,
			CompositeIdentifierSeparator: ".",
			MaxParameterLimit:            65535,
			MaxOutputParameters:          255,
			ParameterNameMaxLength:       30,
			SupportsPreparedStatements:   true,
			ProcedureWrapStyle:           WrapOracle,
			PoolingSettingName:           "",
			Features: FeatureFlags{
				SupportsMerge:           true,
				SupportsWindowFunctions: true,
				SupportsCTEs:            true,
				SupportsSavepoints:      true,
				SupportsInsertReturning: true,
				SupportsJsonTypes:       true,
				SupportsArrayTypes:      false,
				SupportsIdentityColumns: true,
			},
			GeneratedKeyPlan: PrefetchSequence,
			RowLimitStyle:    FetchFirstClause,
		},
		versionQuery: "SELECT * FROM v$version WHERE banner LIKE 'Oracle%'",
		sessionSettings: func(readOnly bool) string {
			stmt := "ALTER SESSION SET NLS_DATE_FORMAT = 'YYYY-MM-DD'"
			if readOnly {
				stmt += "; ALTER SESSION SET READ ONLY"
			}
			return stmt
		},
		uniqueViolation: func(err error) bool {
			return err != nil && strings.Contains(err.Error(), "ORA-00001")
		},
		sequenceValueQuery: func(name string) string {
			return fmt.Sprintf("SELECT %s.NEXTVAL FROM dual", name)
		},
		standardLevel: func(v *Version) SqlStandardLevel {
			if v == nil {
				return Sql2003
			}
			switch {
			case v.Major >= 19:
				return Sql2016
			case v.Major >= 12:
				return Sql2008
			case v.Major >= 9:
				return Sql99
			default:
				return Sql92
			}
		},
	}
}
