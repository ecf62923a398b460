package dialect

import (
	"context"
	"database/sql"
	"strings"
)

// SqlServerIdentityStrategy selects how SQL Server retrieves a generated
// identity value after INSERT. This resolves the Open Question recorded
// in DESIGN.md: the spec fixes SQL Server on OutputInserted by default,
// leaving SCOPE_IDENTITY() as an opt-in fallback.
type SqlServerIdentityStrategy int

const (
	// OutputIdentity uses "OUTPUT INSERTED.<col>" (default).
	OutputIdentity SqlServerIdentityStrategy = iota
	// ScopeIdentity executes "SELECT SCOPE_IDENTITY()" after the INSERT.
	ScopeIdentity
)

// NewSqlServer returns the DialectEngine for SQL Server, using strategy
// to pick the generated-key retrieval plan.
func NewSqlServer(strategy SqlServerIdentityStrategy) DialectEngine {
	plan := OutputInserted
	scopedQuery := ""
	supportsInsertReturning := true
	if strategy == ScopeIdentity {
		plan = SessionScopedFunction
		scopedQuery = "SELECT SCOPE_IDENTITY()"
		supportsInsertReturning = false
	}
	return &base{
		descriptor: Descriptor{
			Database:                     SqlServer,
			ParameterMarker:              "@",
			SupportsNamedParameters:      true,
			QuotePrefix:                  "[",
			QuoteSuffix:                  "]",
			CompositeIdentifierSeparator: ".",
			MaxParameterLimit:            2100,
			MaxOutputParameters:          2100,
			ParameterNameMaxLength:       128,
			SupportsPreparedStatements:   true,
			ProcedureWrapStyle:           WrapExec,
			PoolingSettingName:           "Pooling",
			Features: FeatureFlags{
				SupportsMerge:           true,
				SupportsWindowFunctions: true,
				SupportsCTEs:            true,
				SupportsSavepoints:      true,
				SupportsInsertReturning: supportsInsertReturning,
				SupportsJsonTypes:       true,
				SupportsArrayTypes:      false,
				SupportsIdentityColumns: true,
			},
			GeneratedKeyPlan: plan,
			RowLimitStyle:    TopClause,
		},
		versionQuery:         "SELECT @@VERSION",
		sessionScopedIDQuery: scopedQuery,
		sessionSettings: func(readOnly bool) string {
			if readOnly {
				return "SET TRANSACTION ISOLATION LEVEL READ COMMITTED; SET LOCK_TIMEOUT 5000"
			}
			return "SET LOCK_TIMEOUT 5000"
		},
		uniqueViolation: func(err error) bool {
			return err != nil && (strings.Contains(err.Error(), "2627") || strings.Contains(err.Error(), "2601"))
		},
		tryReadOnlyTx: func(ctx context.Context, tx *sql.Tx) bool {
			return false
		},
		standardLevel: func(v *Version) SqlStandardLevel {
			if v == nil {
				return Sql2008
			}
			switch {
			case v.Major >= 13:
				return Sql2016
			case v.Major >= 11:
				return Sql2011
			default:
				return Sql2008
			}
		},
	}
}
