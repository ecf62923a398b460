package dialect

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// NewPostgreSql returns the DialectEngine for PostgreSQL.
func NewPostgreSql() DialectEngine {
	return &base{
		descriptor: Descriptor{
			Database:                     PostgreSql,
			ParameterMarker:              "$",
			SupportsNamedParameters:      false,
			QuotePrefix:                  `"`,
			QuoteSuffix:                  `"`,
			CompositeIdentifierSeparator: ".",
			MaxParameterLimit:            65535,
			MaxOutputParameters:          0,
			ParameterNameMaxLength:       63,
			SupportsPreparedStatements:   true,
			ProcedureWrapStyle:           WrapPostgreSQL,
			PoolingSettingName:           "Pooling",
			Features: FeatureFlags{
				SupportsMerge:           true,
				SupportsWindowFunctions: true,
				SupportsCTEs:            true,
				SupportsSavepoints:      true,
				SupportsInsertReturning: true,
				SupportsJsonTypes:       true,
				SupportsArrayTypes:      true,
				SupportsIdentityColumns: true,
			},
			GeneratedKeyPlan: Returning,
			RowLimitStyle:    LimitClause,
		},
		versionQuery: "SELECT version()",
		sessionSettings: func(readOnly bool) string {
			if readOnly {
				return "SET TRANSACTION READ ONLY"
			}
			return ""
		},
		uniqueViolation: isPgUniqueViolation,
		tryReadOnlyTx: func(ctx context.Context, tx *sql.Tx) bool {
			if tx == nil {
				return false
			}
			_, err := tx.ExecContext(ctx, "SET TRANSACTION READ ONLY")
			return err == nil
		},
		standardLevel: func(v *Version) SqlStandardLevel {
			if v == nil {
				return Sql2011
			}
			switch {
			case v.Major >= 9:
				return Sql2011
			default:
				return Sql2008
			}
		},
	}
}

// NewCockroachDb returns the DialectEngine for CockroachDB, which shares
// PostgreSQL's wire protocol and most of its dialect but speaks its own
// version banner and lacks true savepoint-based subtransaction nesting.
func NewCockroachDb() DialectEngine {
	pg := NewPostgreSql().(*base)
	d := pg.descriptor
	d.Database = CockroachDb
	d.Features.SupportsSavepoints = false
	return &base{
		descriptor:      d,
		versionQuery:    "SELECT version()",
		sessionSettings: pg.sessionSettings,
		uniqueViolation: isPgUniqueViolation,
		tryReadOnlyTx:   pg.tryReadOnlyTx,
		standardLevel: func(v *Version) SqlStandardLevel {
			return Sql2011
		},
	}
}

// isPgUniqueViolation reports whether err is a PostgreSQL/CockroachDB
// unique_violation (SQLSTATE 23505), recognised via pgx's structured
// error type (github.com/jackc/pgx/v5/pgconn, wired in ElecTwix-db-catalyst's
// go.mod as the Postgres driver for the corpus).
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
