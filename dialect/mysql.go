package dialect

import (
	"errors"

	mysqldriver "github.com/go-sql-driver/mysql"
)

// NewMySql returns the DialectEngine for MySQL.
func NewMySql() DialectEngine {
	return &base{
		descriptor: Descriptor{
			Database:                     MySql,
			ParameterMarker:              "?",
			SupportsNamedParameters:      false,
			QuotePrefix:                  "`",
			QuoteSuffix:                  "`",
			CompositeIdentifierSeparator: ".",
			MaxParameterLimit:            65535,
			MaxOutputParameters:          0,
			ParameterNameMaxLength:       64,
			SupportsPreparedStatements:   true,
			ProcedureWrapStyle:           WrapCall,
			PoolingSettingName:           "Pooling",
			Features: FeatureFlags{
				SupportsMerge:           false,
				SupportsWindowFunctions: true,
				SupportsCTEs:            true,
				SupportsSavepoints:      true,
				SupportsInsertReturning: false,
				SupportsJsonTypes:       true,
				SupportsArrayTypes:      false,
				SupportsIdentityColumns: true,
			},
			GeneratedKeyPlan: SessionScopedFunction,
			RowLimitStyle:    LimitClause,
		},
		versionQuery:         "SELECT VERSION()",
		sessionScopedIDQuery: "SELECT LAST_INSERT_ID()",
		sessionSettings: func(readOnly bool) string {
			if readOnly {
				return "SET SESSION TRANSACTION READ ONLY"
			}
			return ""
		},
		uniqueViolation: isMySQLUniqueViolation,
		standardLevel: func(v *Version) SqlStandardLevel {
			if v == nil {
				return Sql2003
			}
			if v.Major > 8 || (v.Major == 8 && v.Minor >= 0) {
				return Sql2011
			}
			return Sql2003
		},
	}
}

// NewMariaDb returns the DialectEngine for MariaDB. MariaDB forked from
// MySQL and diverges mainly in its merge/window support timeline; the
// wire-level unique-violation code is identical.
func NewMariaDb() DialectEngine {
	my := NewMySql().(*base)
	d := my.descriptor
	d.Database = MariaDb
	return &base{
		descriptor:           d,
		versionQuery:         my.versionQuery,
		sessionScopedIDQuery: my.sessionScopedIDQuery,
		sessionSettings:      my.sessionSettings,
		uniqueViolation:      isMySQLUniqueViolation,
		standardLevel: func(v *Version) SqlStandardLevel {
			if v == nil {
				return Sql2003
			}
			if v.Major >= 10 {
				return Sql2008
			}
			return Sql2003
		},
	}
}

// isMySQLUniqueViolation reports whether err is a MySQL/MariaDB duplicate
// key error (error 1062), recognised via go-sql-driver/mysql's structured
// error type.
func isMySQLUniqueViolation(err error) bool {
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}
