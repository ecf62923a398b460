package entity_test

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftdb/core"
	"github.com/shiftdb/core/dialect"
	"github.com/shiftdb/core/entity"
)

type user struct {
	ID      int    `db:"id,id"`
	Name    string `db:"name"`
	Version int    `db:"version,version"`
}

type auditedUser struct {
	ID            int    `db:"id,id"`
	Name          string `db:"name"`
	Email         string `db:"email,null"`
	CreatedBy     string `db:"created_by,created_by"`
	LastUpdatedBy string `db:"last_updated_by,last_updated_by"`
}

func userMapper(t *testing.T, db dialect.SupportedDatabase) *entity.Mapper[user] {
	t.Helper()
	info, err := entity.BuildTableInfo("users", user{})
	require.NoError(t, err)
	return entity.NewMapper[user](info, dialect.New(db))
}

func TestBuildCreatePopulatesAuditColumnsFromAuditValues(t *testing.T) {
	info, err := entity.BuildTableInfo("users", auditedUser{})
	require.NoError(t, err)
	m := entity.NewMapper[auditedUser](info, dialect.New(dialect.PostgreSql))

	c, err := m.BuildCreate(auditedUser{Name: "a", Email: "a@example.com"}, entity.AuditValues{Actor: "svc-account"})
	require.NoError(t, err)
	v, ok := c.GetParameterValue("created_by")
	require.True(t, ok)
	assert.Equal(t, "svc-account", v)
	v, ok = c.GetParameterValue("last_updated_by")
	require.True(t, ok)
	assert.Equal(t, "svc-account", v)
}

func TestBuildUpdateLeavesCreatedByUntouched(t *testing.T) {
	info, err := entity.BuildTableInfo("users", auditedUser{})
	require.NoError(t, err)
	m := entity.NewMapper[auditedUser](info, dialect.New(dialect.PostgreSql))

	c, err := m.BuildUpdate(auditedUser{ID: 1, Name: "b"}, nil, entity.AuditValues{Actor: "svc-account"})
	require.NoError(t, err)
	assert.NotContains(t, c.Query(), `"created_by"`)
	v, ok := c.GetParameterValue("last_updated_by")
	require.True(t, ok)
	assert.Equal(t, "svc-account", v)
}

// TestUpsertOnSqliteHasNoMergeAndAtLeastThreeParameters covers spec.md §8
// scenario 1: Upsert on SQLite (no MERGE).
func TestUpsertOnSqliteHasNoMergeAndAtLeastThreeParameters(t *testing.T) {
	m := userMapper(t, dialect.Sqlite)
	c, usesMerge, err := m.BuildUpsert(user{ID: 1, Name: "a", Version: 1}, entity.AuditValues{})
	require.NoError(t, err)
	assert.False(t, usesMerge)
	assert.NotContains(t, c.Query(), "MERGE")
	assert.GreaterOrEqual(t, len(queryParamNames(c)), 3)
}

// TestUpsertFallsBackToUpdateOnUniqueViolation exercises the
// insert-then-update-on-unique-violation path end to end.
func TestUpsertFallsBackToUpdateOnUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := userMapper(t, dialect.Sqlite)
	mock.ExpectExec("INSERT INTO").WillReturnError(uniqueViolationErr{})
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))

	res, err := m.Upsert(context.Background(), db, user{ID: 1, Name: "a", Version: 1}, nil, entity.AuditValues{})
	require.NoError(t, err)
	n, _ := res.RowsAffected()
	assert.Equal(t, int64(1), n)
}

type uniqueViolationErr struct{}

func (uniqueViolationErr) Error() string { return "UNIQUE constraint failed: users.id" }

type account struct {
	ID    int     `db:"id,id"`
	Name  string  `db:"name"`
	Email *string `db:"email,null"`
}

// TestUpdateWithDbNullValue covers spec.md §8 scenario 2: a DbNull value
// renders as a literal "= NULL" rather than a bound parameter.
func TestUpdateWithDbNullValue(t *testing.T) {
	info, err := entity.BuildTableInfo("accounts", account{})
	require.NoError(t, err)
	m := entity.NewMapper[account](info, dialect.New(dialect.PostgreSql))

	original := &account{ID: 1, Name: "a", Email: strPtr("old@example.com")}
	updated := account{ID: 1, Name: "a", Email: nil}

	c, err := m.BuildUpdate(updated, original, entity.AuditValues{})
	require.NoError(t, err)
	assert.Contains(t, c.Query(), `"email" = NULL`)
}

func strPtr(s string) *string { return &s }

func TestBuildUpdateSkipsUnchangedColumnsAgainstOriginal(t *testing.T) {
	info, err := entity.BuildTableInfo("accounts", account{})
	require.NoError(t, err)
	m := entity.NewMapper[account](info, dialect.New(dialect.PostgreSql))

	e := strPtr("same@example.com")
	original := &account{ID: 1, Name: "a", Email: e}
	updated := account{ID: 1, Name: "b", Email: e}

	c, err := m.BuildUpdate(updated, original, entity.AuditValues{})
	require.NoError(t, err)
	assert.NotContains(t, c.Query(), `"email"`)
	assert.Contains(t, c.Query(), `"name"`)
}

// TestRetrieveTooManyParametersFails covers the too-many-parameters
// boundary from spec.md §8.
func TestRetrieveTooManyParametersFails(t *testing.T) {
	m := userMapper(t, dialect.Sqlite) // MaxParameterLimit == 999
	ids := make([]any, 1000)
	for i := range ids {
		ids[i] = i
	}
	_, err := m.BuildRetrieve(ids)
	assert.Error(t, err)
}

func TestRetrieveRejectsEmptyOrNilIds(t *testing.T) {
	m := userMapper(t, dialect.PostgreSql)
	_, err := m.BuildRetrieve(nil)
	assert.Error(t, err)
	_, err = m.BuildRetrieve([]any{})
	assert.Error(t, err)
}

func TestDeleteTooManyParametersFails(t *testing.T) {
	m := userMapper(t, dialect.Sqlite)
	ids := make([]any, 1000)
	for i := range ids {
		ids[i] = i
	}
	_, err := m.BuildDelete(ids)
	assert.Error(t, err)
}

// TestBuildCreateOracleBindsPrefetchedSequenceID covers spec.md §4.4's
// PrefetchSequence plan: the id is bound as an ordinary insert parameter
// rather than read back via a RETURNING ... INTO clause.
func TestBuildCreateOracleBindsPrefetchedSequenceID(t *testing.T) {
	m := userMapper(t, dialect.Oracle)
	c, err := m.BuildCreate(user{ID: 42, Name: "a", Version: 1}, entity.AuditValues{})
	require.NoError(t, err)
	assert.NotContains(t, c.Query(), "RETURNING")
	assert.Contains(t, c.Query(), `"id"`)
	v, ok := c.GetParameterValue("id")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestCreateOraclePrefetchesSequenceAndBindsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := userMapper(t, dialect.Oracle)
	mock.ExpectQuery("SELECT users_id_seq.NEXTVAL").WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(7))
	mock.ExpectExec("INSERT INTO").WillReturnResult(sqlmock.NewResult(0, 1))

	e := user{Name: "a", Version: 1}
	_, err = m.Create(context.Background(), db, &e, entity.AuditValues{})
	require.NoError(t, err)
	assert.Equal(t, 7, e.ID)
}

type correlatedUser struct {
	ID    int    `db:"id,id"`
	Name  string `db:"name"`
	Token string `db:"token,correlation"`
}

// TestCreateUnknownDialectPopulatesIDFromCorrelationToken covers spec.md
// §4.4's CorrelationToken plan: a caller-supplied correlation column is
// written on insert and used to look the generated id up afterwards.
func TestCreateUnknownDialectPopulatesIDFromCorrelationToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	info, err := entity.BuildTableInfo("items", correlatedUser{})
	require.NoError(t, err)
	m := entity.NewMapper[correlatedUser](info, dialect.New(dialect.Unknown))

	mock.ExpectExec("INSERT INTO").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id", "token"}).AddRow(9, "tok-1"))

	e := correlatedUser{Name: "a", Token: "tok-1"}
	_, err = m.Create(context.Background(), db, &e, entity.AuditValues{CorrelationToken: "tok-1"})
	require.NoError(t, err)
	assert.Equal(t, 9, e.ID)
}

func TestBuildCreateSqlServerUsesOutputInserted(t *testing.T) {
	m := userMapper(t, dialect.SqlServer)
	c, err := m.BuildCreate(user{Name: "a", Version: 1}, entity.AuditValues{})
	require.NoError(t, err)
	assert.Contains(t, c.Query(), "OUTPUT INSERTED")
}

func TestBuildUpdateAppliesOptimisticConcurrencyPredicate(t *testing.T) {
	m := userMapper(t, dialect.PostgreSql)
	c, err := m.BuildUpdate(user{ID: 1, Name: "b", Version: 5}, nil, entity.AuditValues{})
	require.NoError(t, err)
	assert.Contains(t, c.Query(), "version")
}

// TestUpdateZeroRowsAffectedIsOptimisticConcurrencyFailure covers spec.md
// §4.4: a versioned update affecting zero rows is surfaced as an
// OptimisticConcurrencyError rather than a silent no-op.
func TestUpdateZeroRowsAffectedIsOptimisticConcurrencyFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := userMapper(t, dialect.PostgreSql)
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = m.Update(context.Background(), db, user{ID: 1, Name: "b", Version: 5}, false, entity.AuditValues{})
	require.Error(t, err)
	assert.True(t, core.IsOptimisticConcurrency(err))
}

// TestUpdateLoadOriginalMissingRowFails covers spec.md §4.4: when
// load_original is requested and the current row cannot be found, the
// update fails with an invalid-state error instead of emitting a
// full-column UPDATE against a nonexistent row.
func TestUpdateLoadOriginalMissingRowFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := userMapper(t, dialect.PostgreSql)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id", "name", "version"}))

	_, err = m.Update(context.Background(), db, user{ID: 1, Name: "b", Version: 5}, true, entity.AuditValues{})
	require.Error(t, err)
	assert.True(t, core.IsInvalidState(err))
}

// TestUpdateLoadOriginalOnlyEmitsChangedColumns covers the load_original
// fetch-then-diff path end to end.
func TestUpdateLoadOriginalOnlyEmitsChangedColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := userMapper(t, dialect.PostgreSql)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id", "name", "version"}).AddRow(1, "a", 5))
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))

	_, err = m.Update(context.Background(), db, user{ID: 1, Name: "b", Version: 5}, true, entity.AuditValues{})
	require.NoError(t, err)
}

func TestLoadSingleReturnsNilOnEmptyResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := userMapper(t, dialect.PostgreSql)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id", "name", "version"}))

	c, err := m.BuildRetrieve([]any{1})
	require.NoError(t, err)
	got, err := m.LoadSingle(context.Background(), db, c)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoadSingleReturnsFirstRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := userMapper(t, dialect.PostgreSql)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id", "name", "version"}).
		AddRow(1, "a", 1).AddRow(2, "b", 1))

	c, err := m.BuildRetrieve([]any{1, 2})
	require.NoError(t, err)
	got, err := m.LoadSingle(context.Background(), db, c)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.ID)
}

func TestLoadListMaterialisesEveryRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := userMapper(t, dialect.PostgreSql)
	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id", "name", "version"}).
		AddRow(1, "a", 1).AddRow(2, "b", 1))

	c, err := m.BuildRetrieve([]any{1, 2})
	require.NoError(t, err)
	got, err := m.LoadList(context.Background(), db, c)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

// TestColumnNamesAreUniqueCaseInsensitive is the quantified invariant:
// for every registered entity E, len(E.columns) ==
// len({c.name.lower() for c in E.columns}).
func TestColumnNamesAreUniqueCaseInsensitive(t *testing.T) {
	for _, db := range []dialect.SupportedDatabase{dialect.PostgreSql, dialect.Sqlite, dialect.SqlServer, dialect.Oracle, dialect.Firebird, dialect.MySql} {
		m := userMapper(t, db)
		seen := map[string]bool{}
		for _, c := range m.Info.Columns {
			lower := lowerASCII(c.Name)
			assert.False(t, seen[lower], "duplicate column across dialect %v", db)
			seen[lower] = true
		}
		assert.Equal(t, len(m.Info.Columns), len(seen))
	}
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func queryParamNames(c interface{ Query() string }) []string {
	// Counts parameter-marker characters in the query text as a stand-in
	// for the bound parameter count, without reaching into Container internals.
	q := c.Query()
	count := 0
	for _, r := range q {
		if r == '?' || r == '@' || r == '$' {
			count++
		}
	}
	return make([]string, count)
}
