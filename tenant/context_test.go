package tenant_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftdb/core"
	"github.com/shiftdb/core/tenant"
)

func sqliteConfig() tenant.DatabaseContextConfiguration {
	return tenant.DatabaseContextConfiguration{
		ConnectionString: "file::memory:?cache=shared",
		ProviderName:     "sqlite",
		DbMode:           tenant.ModeStandard,
		ReadWriteMode:    tenant.ReadWrite,
	}
}

func TestDatabaseContextRunsTransactionEndToEnd(t *testing.T) {
	ctx := context.Background()
	dc, err := tenant.NewDatabaseContext(sqliteConfig())
	require.NoError(t, err)
	defer dc.Dispose()

	tx, err := dc.BeginTransaction(ctx, false)
	require.NoError(t, err)
	_, err = tx.Querier().ExecContext(ctx, "CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)
	_, err = tx.Querier().ExecContext(ctx, "INSERT INTO widgets (id, name) VALUES (1, 'gadget')")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.True(t, tx.WasCommitted())
	assert.True(t, tx.IsCompleted())

	readTx, err := dc.BeginTransaction(ctx, true)
	require.NoError(t, err)
	var name string
	row := readTx.Querier().QueryRowContext(ctx, "SELECT name FROM widgets WHERE id = 1")
	require.NoError(t, row.Scan(&name))
	assert.Equal(t, "gadget", name)
	require.NoError(t, readTx.Rollback(ctx))
}

func TestBeginTransactionWriteFailsOnReadOnlyContext(t *testing.T) {
	cfg := sqliteConfig()
	cfg.ReadWriteMode = tenant.ReadOnly
	dc, err := tenant.NewDatabaseContext(cfg)
	require.NoError(t, err)
	defer dc.Dispose()

	_, err = dc.BeginTransaction(context.Background(), false)
	require.Error(t, err)
	assert.True(t, core.IsUnsupportedOperation(err))
}

func TestSingleConnectionRejectsReadOnlyAtConstruction(t *testing.T) {
	cfg := sqliteConfig()
	cfg.DbMode = tenant.ModeSingleConnection
	cfg.ReadWriteMode = tenant.ReadOnly
	_, err := tenant.NewDatabaseContext(cfg)
	require.Error(t, err)
	assert.True(t, core.IsUnsupportedOperation(err))
}

func TestUnknownProviderFails(t *testing.T) {
	cfg := sqliteConfig()
	cfg.ProviderName = "db2"
	_, err := tenant.NewDatabaseContext(cfg)
	require.Error(t, err)
	assert.True(t, core.IsUnsupportedOperation(err))
}

func TestCommitTwiceFails(t *testing.T) {
	ctx := context.Background()
	dc, err := tenant.NewDatabaseContext(sqliteConfig())
	require.NoError(t, err)
	defer dc.Dispose()

	tx, err := dc.BeginTransaction(ctx, false)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	err = tx.Commit(ctx)
	require.Error(t, err)
	assert.True(t, core.IsInvalidState(err))
}

func TestRollbackAfterCommitFails(t *testing.T) {
	ctx := context.Background()
	dc, err := tenant.NewDatabaseContext(sqliteConfig())
	require.NoError(t, err)
	defer dc.Dispose()

	tx, err := dc.BeginTransaction(ctx, false)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	err = tx.Rollback(ctx)
	require.Error(t, err)
	assert.True(t, core.IsInvalidState(err))
}

func TestDisposeRollsBackIncompleteTransaction(t *testing.T) {
	ctx := context.Background()
	dc, err := tenant.NewDatabaseContext(sqliteConfig())
	require.NoError(t, err)
	defer dc.Dispose()

	tx, err := dc.BeginTransaction(ctx, false)
	require.NoError(t, err)

	require.NoError(t, tx.Dispose(ctx))
	assert.True(t, tx.WasRolledBack())
	assert.False(t, tx.WasCommitted())

	// Disposing an already-completed transaction is a no-op.
	require.NoError(t, tx.Dispose(ctx))
}

func TestDatabaseContextDisposeIsIdempotent(t *testing.T) {
	dc, err := tenant.NewDatabaseContext(sqliteConfig())
	require.NoError(t, err)
	require.NoError(t, dc.Dispose())
	require.NoError(t, dc.Dispose())
	assert.True(t, dc.Disposed())
}

func TestOperationOnDisposedContextFails(t *testing.T) {
	dc, err := tenant.NewDatabaseContext(sqliteConfig())
	require.NoError(t, err)
	require.NoError(t, dc.Dispose())

	_, err = dc.BeginTransaction(context.Background(), true)
	require.Error(t, err)
	assert.True(t, core.IsInvalidState(err))
}
