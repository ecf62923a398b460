// Package connmode implements ConnectionModeStrategy: the four modes
// that govern when physical connections open and close, and that
// guarantee dialect session settings are applied exactly once per
// physical connection's lifetime.
package connmode

import (
	"context"
	"database/sql"
	"sync"

	"github.com/shiftdb/core"
	"github.com/shiftdb/core/dialect"
)

// ExecType classifies an operation as a read or a write, driving which
// pinned connection (if any) a mode strategy hands back.
type ExecType int

const (
	Read ExecType = iota
	Write
)

// TrackedConnection pairs a live *sql.Conn with whether it is a
// persistent (mode-owned) connection or one the caller must close on
// release, and tracks whether session settings have been applied to it
// yet.
type TrackedConnection struct {
	Conn       *sql.Conn
	Persistent bool

	settingsOnce sync.Once
	settingsErr  error
}

// applySettingsOnce runs eng's session-settings batch against c exactly
// once for this physical connection's lifetime.
func (c *TrackedConnection) applySettingsOnce(ctx context.Context, eng dialect.DialectEngine, readOnly bool) error {
	c.settingsOnce.Do(func() {
		c.settingsErr = eng.ApplyConnectionSettings(ctx, c.Conn, readOnly)
	})
	return c.settingsErr
}

// Strategy is ConnectionModeStrategy.
type Strategy interface {
	GetConnection(ctx context.Context, execType ExecType) (*TrackedConnection, error)
	Release(ctx context.Context, tc *TrackedConnection) error
	AssertIsWriteConnection() error
	AssertIsReadConnection() error
}

// base holds the fields shared by every mode.
type base struct {
	db       *sql.DB
	engine   dialect.DialectEngine
	readOnly bool
}

func (b *base) AssertIsReadConnection() error { return nil }

func (b *base) AssertIsWriteConnection() error {
	if b.readOnly {
		return core.NewUnsupportedOperationError("write", "context is read-only")
	}
	return nil
}

func (b *base) openTracked(ctx context.Context, persistent bool) (*TrackedConnection, error) {
	conn, err := b.db.Conn(ctx)
	if err != nil {
		return nil, core.NewConnectionFailureError("open connection", err)
	}
	tc := &TrackedConnection{Conn: conn, Persistent: persistent}
	if err := tc.applySettingsOnce(ctx, b.engine, b.readOnly); err != nil {
		conn.Close()
		return nil, core.NewConnectionFailureError("apply session settings", err)
	}
	return tc, nil
}

// releaseNonPersistent closes and disposes tc unless it is the mode's
// persistent connection; release(nil, nil) and release(pinned, pinned)
// are no-ops.
func releaseNonPersistent(tc *TrackedConnection) error {
	if tc == nil || tc.Conn == nil {
		return nil
	}
	if tc.Persistent {
		return nil
	}
	return tc.Conn.Close()
}

// Standard opens a fresh connection on demand for every operation.
type Standard struct{ base }

// NewStandard returns a Standard-mode strategy.
func NewStandard(db *sql.DB, engine dialect.DialectEngine, readOnly bool) *Standard {
	return &Standard{base{db: db, engine: engine, readOnly: readOnly}}
}

func (s *Standard) GetConnection(ctx context.Context, execType ExecType) (*TrackedConnection, error) {
	if execType == Write {
		if err := s.AssertIsWriteConnection(); err != nil {
			return nil, err
		}
	}
	return s.openTracked(ctx, false)
}

func (s *Standard) Release(ctx context.Context, tc *TrackedConnection) error {
	return releaseNonPersistent(tc)
}

// KeepAlive returns the pinned connection for either classification
// when it is idle, otherwise opens a fresh one.
type KeepAlive struct {
	base
	mu     sync.Mutex
	pinned *TrackedConnection
	inUse  bool
}

// NewKeepAlive returns a KeepAlive-mode strategy.
func NewKeepAlive(db *sql.DB, engine dialect.DialectEngine, readOnly bool) *KeepAlive {
	return &KeepAlive{base: base{db: db, engine: engine, readOnly: readOnly}}
}

func (k *KeepAlive) GetConnection(ctx context.Context, execType ExecType) (*TrackedConnection, error) {
	if execType == Write {
		if err := k.AssertIsWriteConnection(); err != nil {
			return nil, err
		}
	}
	k.mu.Lock()
	if k.pinned != nil && !k.inUse {
		k.inUse = true
		tc := k.pinned
		k.mu.Unlock()
		return tc, nil
	}
	k.mu.Unlock()

	if k.pinned == nil {
		tc, err := k.openTracked(ctx, true)
		if err != nil {
			return nil, err
		}
		k.mu.Lock()
		if k.pinned == nil {
			k.pinned = tc
			k.inUse = true
			k.mu.Unlock()
			return tc, nil
		}
		k.mu.Unlock()
		tc.Conn.Close()
	}
	return k.openTracked(ctx, false)
}

func (k *KeepAlive) Release(ctx context.Context, tc *TrackedConnection) error {
	k.mu.Lock()
	if tc == k.pinned {
		k.inUse = false
		k.mu.Unlock()
		return nil
	}
	k.mu.Unlock()
	return releaseNonPersistent(tc)
}

// SingleWriter pins one writer connection and opens fresh connections
// for reads.
type SingleWriter struct {
	base
	mu     sync.Mutex
	writer *TrackedConnection
}

// NewSingleWriter returns a SingleWriter-mode strategy. A read-only
// context is permitted: the pinned writer still receives read-only
// session settings.
func NewSingleWriter(db *sql.DB, engine dialect.DialectEngine, readOnly bool) *SingleWriter {
	return &SingleWriter{base: base{db: db, engine: engine, readOnly: readOnly}}
}

func (s *SingleWriter) GetConnection(ctx context.Context, execType ExecType) (*TrackedConnection, error) {
	if execType == Read {
		return s.openTracked(ctx, false)
	}
	if err := s.AssertIsWriteConnection(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer != nil {
		return s.writer, nil
	}
	tc, err := s.openTracked(ctx, true)
	if err != nil {
		return nil, err
	}
	s.writer = tc
	return tc, nil
}

func (s *SingleWriter) Release(ctx context.Context, tc *TrackedConnection) error {
	if tc == s.writer {
		return nil
	}
	return releaseNonPersistent(tc)
}

// SingleConnection always returns the one pinned connection for every
// operation. It cannot be combined with a read-only context, since the
// single connection would then have no write sink.
type SingleConnection struct {
	base
	mu     sync.Mutex
	pinned *TrackedConnection
}

// NewSingleConnection returns a SingleConnection-mode strategy, failing
// construction when readOnly is true.
func NewSingleConnection(db *sql.DB, engine dialect.DialectEngine, readOnly bool) (*SingleConnection, error) {
	if readOnly {
		return nil, core.NewUnsupportedOperationError("SingleConnection", "cannot combine SingleConnection mode with a read-only context")
	}
	return &SingleConnection{base: base{db: db, engine: engine, readOnly: readOnly}}, nil
}

func (s *SingleConnection) GetConnection(ctx context.Context, execType ExecType) (*TrackedConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pinned != nil {
		return s.pinned, nil
	}
	tc, err := s.openTracked(ctx, true)
	if err != nil {
		return nil, err
	}
	s.pinned = tc
	return tc, nil
}

func (s *SingleConnection) Release(ctx context.Context, tc *TrackedConnection) error {
	return nil
}
