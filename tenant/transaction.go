package tenant

import (
	"context"
	"database/sql"
	"sync"

	"github.com/shiftdb/core"
	"github.com/shiftdb/core/connmode"
)

// TransactionContext is TransactionContext: single-thread-affine, it
// borrows a tracked connection from its owning DatabaseContext for its
// lifetime and must reach a terminal state (committed or rolled back)
// exactly once. Disposing it before a terminal state rolls it back.
type TransactionContext struct {
	tx       *sql.Tx
	conn     *connmode.TrackedConnection
	owner    *DatabaseContext
	readOnly bool

	mu            sync.Mutex
	wasCommitted  bool
	wasRolledBack bool
}

// Querier returns the transaction's *sql.Tx, which satisfies
// sqlcontainer.Querier.
func (t *TransactionContext) Querier() *sql.Tx { return t.tx }

// ReadOnly reports whether this transaction was opened read-only.
func (t *TransactionContext) ReadOnly() bool { return t.readOnly }

// WasCommitted reports whether Commit has completed successfully.
func (t *TransactionContext) WasCommitted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wasCommitted
}

// WasRolledBack reports whether Rollback (or a disposal-triggered
// rollback) has run.
func (t *TransactionContext) WasRolledBack() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wasRolledBack
}

// IsCompleted reports whether the transaction has reached a terminal
// state.
func (t *TransactionContext) IsCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wasCommitted || t.wasRolledBack
}

// Commit commits the transaction and releases its borrowed connection.
// A second Commit, or a Commit after Rollback, fails with an
// invalid-state error; the underlying driver is never asked to commit
// twice.
func (t *TransactionContext) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.wasCommitted || t.wasRolledBack {
		return core.NewInvalidStateError("TransactionContext", "transaction already completed")
	}
	if err := t.tx.Commit(); err != nil {
		return core.NewConnectionFailureError("commit", err)
	}
	t.wasCommitted = true
	return t.owner.Release(ctx, t.conn)
}

// Rollback rolls back the transaction and releases its borrowed
// connection. A second Rollback, or a Rollback after Commit, fails with
// an invalid-state error.
func (t *TransactionContext) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.wasCommitted || t.wasRolledBack {
		return core.NewInvalidStateError("TransactionContext", "transaction already completed")
	}
	err := t.tx.Rollback()
	t.wasRolledBack = true
	releaseErr := t.owner.Release(ctx, t.conn)
	if err != nil {
		return core.NewConnectionFailureError("rollback", err)
	}
	return releaseErr
}

// Dispose rolls the transaction back if it has not yet reached a
// terminal state; disposing an already-completed transaction is a
// no-op.
func (t *TransactionContext) Dispose(ctx context.Context) error {
	t.mu.Lock()
	completed := t.wasCommitted || t.wasRolledBack
	t.mu.Unlock()
	if completed {
		return nil
	}
	return t.Rollback(ctx)
}
