package connmode_test

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftdb/core/connmode"
	"github.com/shiftdb/core/dialect"
)

func TestStandardOpensFreshConnectionPerCall(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	eng := dialect.New(dialect.Sqlite)
	mock.ExpectExec("PRAGMA").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("PRAGMA").WillReturnResult(sqlmock.NewResult(0, 0))

	s := connmode.NewStandard(db, eng, true)
	c1, err := s.GetConnection(context.Background(), connmode.Read)
	require.NoError(t, err)
	c2, err := s.GetConnection(context.Background(), connmode.Read)
	require.NoError(t, err)
	assert.NotSame(t, c1, c2)

	require.NoError(t, s.Release(context.Background(), c1))
	require.NoError(t, s.Release(context.Background(), c2))
}

func TestStandardRejectsWriteOnReadOnlyContext(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	eng := dialect.New(dialect.Sqlite)
	s := connmode.NewStandard(db, eng, true)
	_, err = s.GetConnection(context.Background(), connmode.Write)
	assert.Error(t, err)
}

func TestKeepAlivePinsConnection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	eng := dialect.New(dialect.Sqlite)
	mock.ExpectExec("PRAGMA").WillReturnResult(sqlmock.NewResult(0, 0))

	k := connmode.NewKeepAlive(db, eng, false)
	c1, err := k.GetConnection(context.Background(), connmode.Read)
	require.NoError(t, err)
	require.NoError(t, k.Release(context.Background(), c1))

	c2, err := k.GetConnection(context.Background(), connmode.Read)
	require.NoError(t, err)
	assert.Same(t, c1, c2, "idle pinned connection should be reused")
	require.NoError(t, k.Release(context.Background(), c2))
}

func TestSingleWriterRoutesReadsFresh(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	eng := dialect.New(dialect.Sqlite)
	mock.ExpectExec("PRAGMA").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("PRAGMA").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("PRAGMA").WillReturnResult(sqlmock.NewResult(0, 0))

	sw := connmode.NewSingleWriter(db, eng, false)
	w1, err := sw.GetConnection(context.Background(), connmode.Write)
	require.NoError(t, err)
	w2, err := sw.GetConnection(context.Background(), connmode.Write)
	require.NoError(t, err)
	assert.Same(t, w1, w2, "writer connection is pinned")

	r1, err := sw.GetConnection(context.Background(), connmode.Read)
	require.NoError(t, err)
	assert.NotSame(t, w1, r1, "reads open fresh connections")

	require.NoError(t, sw.Release(context.Background(), r1))
}

func TestSingleConnectionRejectsReadOnly(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	eng := dialect.New(dialect.Sqlite)
	_, err = connmode.NewSingleConnection(db, eng, true)
	assert.Error(t, err)
}

func TestSingleConnectionAlwaysReturnsPinned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	eng := dialect.New(dialect.Sqlite)
	mock.ExpectExec("PRAGMA").WillReturnResult(sqlmock.NewResult(0, 0))

	sc, err := connmode.NewSingleConnection(db, eng, false)
	require.NoError(t, err)
	c1, err := sc.GetConnection(context.Background(), connmode.Write)
	require.NoError(t, err)
	c2, err := sc.GetConnection(context.Background(), connmode.Read)
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}
