// Package tenant implements the top-level wiring described in spec.md
// §5/§6: DatabaseContext (one dialect + mode strategy + tracked
// connections), TransactionContext (a borrowed, single-thread-affine
// transaction), and TenantContextRegistry (one context per tenant key).
package tenant

import (
	"context"
	"database/sql"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/shiftdb/core"
	"github.com/shiftdb/core/connmode"
	"github.com/shiftdb/core/dialect"
)

// registeredProvider pairs a driver known to database/sql (registered by
// this package's blank imports) with the dialect family it speaks.
type registeredProvider struct {
	driverName string
	database   dialect.SupportedDatabase
}

// providers maps a DatabaseContextConfiguration.ProviderName to the
// driver/dialect pair it resolves to. Only providers with a
// database/sql driver actually wired into this module's go.mod are
// connectable; the rest of the dialect package (SqlServer, Oracle,
// Firebird, DuckDB) is exercised directly through DialectEngine/
// EntityMapper tests against sqlmock rather than a live driver.
var providers = map[string]registeredProvider{
	"postgres":    {"pgx", dialect.PostgreSql},
	"pgx":         {"pgx", dialect.PostgreSql},
	"cockroachdb": {"pgx", dialect.CockroachDb},
	"mysql":       {"mysql", dialect.MySql},
	"mariadb":     {"mysql", dialect.MariaDb},
	"sqlite":      {"sqlite", dialect.Sqlite},
}

func resolveProvider(name string) (registeredProvider, error) {
	p, ok := providers[name]
	if !ok {
		return registeredProvider{}, core.NewUnsupportedOperationError("provider "+name, "no database/sql driver is wired for this provider")
	}
	return p, nil
}

// DatabaseContext is DatabaseContext: it owns its dialect engine, its
// connection-mode strategy, and the *sql.DB pool behind both. It is
// created when a tenant configuration is resolved and torn down on
// Dispose.
type DatabaseContext struct {
	db       *sql.DB
	engine   dialect.DialectEngine
	strategy connmode.Strategy
	readOnly bool

	disposed atomic.Bool
}

// NewDatabaseContext builds a DatabaseContext from cfg: it resolves the
// provider to a database/sql driver, opens the pool, constructs the
// dialect engine, and wraps it in the configured connection-mode
// strategy. SingleConnection combined with a read-only configuration
// fails here, before any connection work, per spec.md §4.2.
func NewDatabaseContext(cfg DatabaseContextConfiguration) (*DatabaseContext, error) {
	provider, err := resolveProvider(cfg.ProviderName)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(provider.driverName, cfg.ConnectionString)
	if err != nil {
		return nil, core.NewConnectionFailureError("open", err)
	}

	engine := dialect.New(provider.database)
	readOnly := cfg.ReadWriteMode == ReadOnly

	strategy, err := newStrategy(cfg.DbMode, db, engine, readOnly)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DatabaseContext{db: db, engine: engine, strategy: strategy, readOnly: readOnly}, nil
}

func newStrategy(mode DbMode, db *sql.DB, engine dialect.DialectEngine, readOnly bool) (connmode.Strategy, error) {
	switch mode {
	case ModeStandard:
		return connmode.NewStandard(db, engine, readOnly), nil
	case ModeKeepAlive:
		return connmode.NewKeepAlive(db, engine, readOnly), nil
	case ModeSingleWriter:
		return connmode.NewSingleWriter(db, engine, readOnly), nil
	case ModeSingleConnection:
		return connmode.NewSingleConnection(db, engine, readOnly)
	default:
		return nil, core.NewInvalidConfigurationError("DbMode", "unrecognised connection mode")
	}
}

// Engine returns the context's dialect engine.
func (c *DatabaseContext) Engine() dialect.DialectEngine { return c.engine }

// ReadOnly reports whether this context rejects write operations.
func (c *DatabaseContext) ReadOnly() bool { return c.readOnly }

// Disposed reports whether Dispose has run.
func (c *DatabaseContext) Disposed() bool { return c.disposed.Load() }

func (c *DatabaseContext) checkDisposed() error {
	if c.disposed.Load() || c.engine.Disposed() {
		return core.NewInvalidStateError("DatabaseContext", "operation on disposed context")
	}
	return nil
}

// GetConnection borrows a tracked connection classified by execType.
func (c *DatabaseContext) GetConnection(ctx context.Context, execType connmode.ExecType) (*connmode.TrackedConnection, error) {
	if err := c.checkDisposed(); err != nil {
		return nil, err
	}
	return c.strategy.GetConnection(ctx, execType)
}

// Release returns tc to the context's mode strategy.
func (c *DatabaseContext) Release(ctx context.Context, tc *connmode.TrackedConnection) error {
	return c.strategy.Release(ctx, tc)
}

// BeginTransaction opens a TransactionContext borrowing a connection for
// its lifetime. A write transaction (readOnly=false) on a read-only
// context fails with a not-supported error before any connection work,
// per spec.md §4.2's invariant.
func (c *DatabaseContext) BeginTransaction(ctx context.Context, readOnly bool) (*TransactionContext, error) {
	if err := c.checkDisposed(); err != nil {
		return nil, err
	}
	if !readOnly {
		if err := c.strategy.AssertIsWriteConnection(); err != nil {
			return nil, err
		}
	}

	execType := connmode.Read
	if !readOnly {
		execType = connmode.Write
	}
	tc, err := c.strategy.GetConnection(ctx, execType)
	if err != nil {
		return nil, err
	}

	tx, err := tc.Conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: readOnly})
	if err != nil {
		c.strategy.Release(ctx, tc)
		return nil, core.NewConnectionFailureError("begin transaction", err)
	}

	return &TransactionContext{tx: tx, conn: tc, owner: c, readOnly: readOnly}, nil
}

// Dispose closes the underlying pool. It is idempotent.
func (c *DatabaseContext) Dispose() error {
	if !c.disposed.CompareAndSwap(false, true) {
		return nil
	}
	return c.db.Close()
}
