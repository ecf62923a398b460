package dialect

// New constructs a fresh DialectEngine for db. SQL Server defaults to the
// OutputIdentity generated-key strategy; use NewSqlServer directly to
// select ScopeIdentity instead.
func New(db SupportedDatabase) DialectEngine {
	switch db {
	case PostgreSql:
		return NewPostgreSql()
	case CockroachDb:
		return NewCockroachDb()
	case MySql:
		return NewMySql()
	case MariaDb:
		return NewMariaDb()
	case SqlServer:
		return NewSqlServer(OutputIdentity)
	case Oracle:
		return NewOracle()
	case Sqlite:
		return NewSqlite()
	case Firebird:
		return NewFirebird()
	case DuckDB:
		return NewDuckDB()
	default:
		return NewUnknown()
	}
}
