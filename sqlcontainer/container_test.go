package sqlcontainer_test

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftdb/core/dialect"
	"github.com/shiftdb/core/sqlcontainer"
)

// TestParameterMarkerEquivalence covers spec.md §8 scenario 3.
func TestParameterMarkerEquivalence(t *testing.T) {
	c := sqlcontainer.New(dialect.New(dialect.PostgreSql))
	_, err := c.AddNamedParameter("p0", "int", 100, sqlcontainer.Input)
	require.NoError(t, err)

	for _, marker := range []string{"@p0", ":p0", "?p0", "$p0"} {
		v, ok := c.GetParameterValue(marker)
		require.True(t, ok, marker)
		assert.Equal(t, 100, v, marker)
	}
}

func TestAddParameterRejectsDuplicateAcrossMarkers(t *testing.T) {
	c := sqlcontainer.New(dialect.New(dialect.PostgreSql))
	_, err := c.AddNamedParameter("@p", "int", 1, sqlcontainer.Input)
	require.NoError(t, err)
	_, err = c.AddNamedParameter(":p", "int", 2, sqlcontainer.Input)
	assert.Error(t, err)
}

func TestAddParameterAutoGeneratesName(t *testing.T) {
	c := sqlcontainer.New(dialect.New(dialect.MySql))
	p1, err := c.AddParameter("varchar", "a")
	require.NoError(t, err)
	p2, err := c.AddParameter("varchar", "b")
	require.NoError(t, err)
	assert.NotEqual(t, p1.Name, p2.Name)
}

func TestOutputParameterBudget(t *testing.T) {
	c := sqlcontainer.New(dialect.New(dialect.Firebird)) // MaxOutputParameters == 0
	_, err := c.AddNamedParameter("out1", "int", nil, sqlcontainer.Output)
	assert.Error(t, err)

	c2 := sqlcontainer.New(dialect.New(dialect.SqlServer)) // has a budget
	_, err = c2.AddNamedParameter("out1", "int", nil, sqlcontainer.Output)
	assert.NoError(t, err)
}

func TestClearEmptiesBufferAndParameters(t *testing.T) {
	c := sqlcontainer.New(dialect.New(dialect.Sqlite))
	c.AppendQuery("SELECT 1")
	p, err := c.AddParameter("int", 1)
	require.NoError(t, err)
	c.Clear()
	assert.Empty(t, c.Query())
	_, ok := c.GetParameterValue(p.Name)
	assert.False(t, ok)
}

func TestWrapForStoredProcStyles(t *testing.T) {
	cases := []struct {
		db   dialect.SupportedDatabase
		want string
	}{
		{dialect.SqlServer, "EXEC get_user @id"},
		{dialect.Oracle, "BEGIN get_user(:id); END;"},
		{dialect.Firebird, "EXECUTE PROCEDURE get_user(:id)"},
	}
	for _, tc := range cases {
		c := sqlcontainer.New(dialect.New(tc.db))
		var args []string
		if tc.db == dialect.SqlServer {
			args = []string{"@id"}
		} else {
			args = []string{":id"}
		}
		out, err := c.WrapForStoredProc(sqlcontainer.Read, "get_user", args, false)
		require.NoError(t, err)
		assert.Equal(t, tc.want, out)
	}

	pg := sqlcontainer.New(dialect.New(dialect.PostgreSql))
	out, err := pg.WrapForStoredProc(sqlcontainer.Read, "get_user", []string{"$1"}, false)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM get_user($1)", out)

	_, err = pg.WrapForStoredProc(sqlcontainer.Write, "get_user", []string{"$1"}, true)
	assert.Error(t, err, "PostgreSQL wrapper does not support return-value capture")
}

func TestWrapForStoredProcOracleCapturesReturnValue(t *testing.T) {
	c := sqlcontainer.New(dialect.New(dialect.Oracle))
	out, err := c.WrapForStoredProc(sqlcontainer.Read, "get_user", []string{":id"}, true)
	require.NoError(t, err)
	assert.Equal(t, "BEGIN :return_value := get_user(:id); END;", out)
}

func TestExecuteScalarFailsOnEmptyResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"x"}))

	c := sqlcontainer.New(dialect.New(dialect.Sqlite))
	c.AppendQuery("SELECT 1")
	cmd := c.CreateCommand(db)
	var out int
	err = cmd.ExecuteScalar(context.Background(), &out)
	assert.Error(t, err)
}

func TestExecuteNonQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))

	c := sqlcontainer.New(dialect.New(dialect.Sqlite))
	c.AppendQuery("UPDATE users SET name = ?")
	_, err = c.AddParameter("text", "bob")
	require.NoError(t, err)
	cmd := c.CreateCommand(db)
	res, err := cmd.ExecuteNonQuery(context.Background())
	require.NoError(t, err)
	n, _ := res.RowsAffected()
	assert.Equal(t, int64(1), n)
}
