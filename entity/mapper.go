package entity

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shiftdb/core"
	"github.com/shiftdb/core/dialect"
	"github.com/shiftdb/core/sqlcontainer"
)

// AuditValues supplies the ambient CreatedBy/LastUpdatedBy values a
// caller's audit-value resolver would normally provide. An empty Actor
// leaves those columns at the value the entity already carries.
type AuditValues struct {
	Actor string

	// CorrelationToken is bound to a RoleCorrelationToken column on
	// Create. An empty value is replaced with a generated UUID.
	CorrelationToken string

	// Now overrides the clock used for CreatedOn/LastUpdatedOn; the zero
	// value uses time.Now().
	Now time.Time
}

func (a AuditValues) now() time.Time {
	if a.Now.IsZero() {
		return time.Now()
	}
	return a.Now
}

// Mapper is EntityMapper for one registered record shape T.
type Mapper[T any] struct {
	Info   *TableInfo
	Engine dialect.DialectEngine
}

// NewMapper builds a Mapper bound to a TableInfo already produced by
// Register[T].
func NewMapper[T any](info *TableInfo, engine dialect.DialectEngine) *Mapper[T] {
	return &Mapper[T]{Info: info, Engine: engine}
}

func (m *Mapper[T]) fieldValue(entity T, idx int) any {
	return reflect.ValueOf(entity).Field(idx).Interface()
}

func (m *Mapper[T]) setFieldValue(entity *T, idx int, value any) {
	fv := reflect.ValueOf(entity).Elem().Field(idx)
	rv := reflect.ValueOf(value)
	if rv.IsValid() && rv.Type().ConvertibleTo(fv.Type()) {
		fv.Set(rv.Convert(fv.Type()))
	}
}

// BuildCreate synthesises an INSERT over the table's insertable columns,
// populating CreatedBy/CreatedOn/LastUpdatedBy/LastUpdatedOn from audit
// and, when the entity has a correlation column, binding audit's
// CorrelationToken (or a generated one). The engine's GeneratedKeyPlan,
// not the returned container, decides how any generated id is retrieved;
// callers that need the
// PrefetchSequence or CorrelationToken generated-key plans to actually
// run should use Create rather than calling BuildCreate directly.
func (m *Mapper[T]) BuildCreate(entity T, audit AuditValues) (*sqlcontainer.Container, error) {
	c := sqlcontainer.New(m.Engine)
	var cols, markers []string
	plan := m.Engine.Descriptor().GeneratedKeyPlan

	for _, col := range m.Info.Columns {
		autoGeneratedID := col.Role == RoleID && !col.Writable
		prefetchID := autoGeneratedID && plan == dialect.PrefetchSequence
		if autoGeneratedID && !prefetchID {
			continue
		}
		if !col.Insertable && !prefetchID {
			continue
		}
		value := m.fieldValue(entity, col.FieldIndex)
		switch col.Role {
		case RoleCreatedBy, RoleLastUpdatedBy:
			if audit.Actor != "" {
				value = audit.Actor
			}
		case RoleCreatedOn, RoleLastUpdatedOn:
			value = audit.now()
		case RoleCorrelationToken:
			token := audit.CorrelationToken
			if token == "" {
				token = uuid.New().String()
			}
			value = token
		}
		marker := m.Engine.ParameterMarkerFor(col.Name)
		if _, err := c.AddNamedParameter(col.Name, "", value, sqlcontainer.Input); err != nil {
			return nil, err
		}
		cols = append(cols, m.Engine.WrapObject(col.Name))
		markers = append(markers, marker)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		m.Engine.WrapObject(m.Info.Table), strings.Join(cols, ", "), strings.Join(markers, ", "))

	if m.Info.IDColumn != nil && !m.Info.IDColumn.Writable {
		idCol := m.Engine.WrapObject(m.Info.IDColumn.Name)
		switch plan {
		case dialect.Returning, dialect.OutputInserted:
			if clause := m.Engine.RenderInsertReturning(idCol); clause != "" {
				query += " " + clause
			}
		}
	}

	c.AppendQuery(query)
	return c, nil
}

// prepareSequenceID fetches the next value of the Id column's sequence,
// per the PrefetchSequence generated-key plan (Oracle): the value is
// resolved before the INSERT runs rather than read back afterwards.
func (m *Mapper[T]) prepareSequenceID(ctx context.Context, conn sqlcontainer.Querier) (any, error) {
	q, err := m.Engine.NextSequenceValueQuery(m.Info.IDColumn.Sequence)
	if err != nil {
		return nil, err
	}
	var id int64
	if err := conn.QueryRowContext(ctx, q).Scan(&id); err != nil {
		return nil, core.NewConnectionFailureError("prefetch sequence value", err)
	}
	return id, nil
}

// execResult adapts a RETURNING/OUTPUT row scanned via QueryRowContext to
// the sql.Result interface, since that execution path does not itself
// produce one.
type execResult struct{ rows int64 }

func (r execResult) LastInsertId() (int64, error) {
	return 0, core.NewUnsupportedOperationError("LastInsertId", "not available for a Returning/OutputInserted generated-key plan")
}

func (r execResult) RowsAffected() (int64, error) { return r.rows, nil }

func commandArgs(cmd *sqlcontainer.Command) []any {
	args := make([]any, len(cmd.Parameters))
	for i, p := range cmd.Parameters {
		args[i] = p.Value
	}
	return args
}

// Create executes BuildCreate's container against conn and runs
// PopulateGeneratedID for the entity's generated-key plan, per spec.md
// §4.4. For PrefetchSequence dialects, the next sequence value is
// resolved first and bound as the id parameter; for Returning/
// OutputInserted dialects, the INSERT runs as a query so the generated
// value can be read back from the same round trip.
func (m *Mapper[T]) Create(ctx context.Context, conn sqlcontainer.Querier, entity *T, audit AuditValues) (sql.Result, error) {
	plan := m.Engine.Descriptor().GeneratedKeyPlan
	if m.Info.IDColumn != nil && !m.Info.IDColumn.Writable && plan == dialect.PrefetchSequence {
		id, err := m.prepareSequenceID(ctx, conn)
		if err != nil {
			return nil, err
		}
		m.setFieldValue(entity, m.Info.IDColumn.FieldIndex, id)
	}

	c, err := m.BuildCreate(*entity, audit)
	if err != nil {
		return nil, err
	}
	cmd := c.CreateCommand(conn)

	var res sql.Result
	var generatedID any
	switch plan {
	case dialect.Returning, dialect.OutputInserted:
		var id int64
		if err := conn.QueryRowContext(ctx, cmd.Text, commandArgs(cmd)...).Scan(&id); err != nil {
			return nil, core.NewConnectionFailureError("create", err)
		}
		generatedID = id
		res = execResult{rows: 1}
	default:
		r, err := cmd.ExecuteNonQuery(ctx)
		if err != nil {
			return nil, err
		}
		res = r
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, core.NewConnectionFailureError("create", err)
	}
	if err := m.PopulateGeneratedID(ctx, entity, affected, generatedID, conn, c); err != nil {
		return nil, err
	}
	return res, nil
}

// BuildRetrieve synthesises "SELECT <cols> FROM <table> WHERE id IN
// (...)" for the given ids, failing per spec.md §4.4's argument-error
// and too-many-parameters rules.
func (m *Mapper[T]) BuildRetrieve(ids []any) (*sqlcontainer.Container, error) {
	if ids == nil {
		return nil, core.NewInvalidArgumentError("ids", "id collection must not be nil")
	}
	if len(ids) == 0 {
		return nil, core.NewInvalidArgumentError("ids", "id collection must not be empty")
	}
	limit := m.Engine.Descriptor().MaxParameterLimit
	if limit > 0 && len(ids) > limit {
		return nil, core.NewTooManyParametersError(len(ids), limit)
	}

	keyCol := m.keyColumnName()
	c := sqlcontainer.New(m.Engine)
	var selectCols []string
	for _, col := range m.Info.Columns {
		selectCols = append(selectCols, m.Engine.WrapObject(col.Name))
	}
	var markers []string
	for i, id := range ids {
		marker := m.Engine.ParameterMarkerFor(fmt.Sprintf("id%d", i))
		if _, err := c.AddNamedParameter(fmt.Sprintf("id%d", i), "", id, sqlcontainer.Input); err != nil {
			return nil, err
		}
		markers = append(markers, marker)
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)",
		strings.Join(selectCols, ", "), m.Engine.WrapObject(m.Info.Table),
		m.Engine.WrapObject(keyCol), strings.Join(markers, ", "))
	c.AppendQuery(query)
	return c, nil
}

func (m *Mapper[T]) keyColumnName() string {
	if m.Info.IDColumn != nil {
		return m.Info.IDColumn.Name
	}
	if len(m.Info.PrimaryKey) > 0 {
		return m.Info.PrimaryKey[0].Name
	}
	return ""
}

// scanRow scans one row of rows into a new T, addressing fields in
// m.Info.Columns order to match BuildRetrieve's SELECT column order
// exactly. A NULL column scanned into a nullable (pointer-typed) field
// leaves that field nil rather than failing, per database/sql's
// convertAssign pointer-to-pointer rule.
func (m *Mapper[T]) scanRow(rows *sql.Rows) (*T, error) {
	var entity T
	v := reflect.ValueOf(&entity).Elem()
	dest := make([]any, len(m.Info.Columns))
	for i, col := range m.Info.Columns {
		dest[i] = v.Field(col.FieldIndex).Addr().Interface()
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, core.NewConnectionFailureError("scan row", err)
	}
	return &entity, nil
}

// LoadSingle executes container's query and reads at most one row: nil
// when the result set is empty, the first row when it contains more
// than one.
func (m *Mapper[T]) LoadSingle(ctx context.Context, conn sqlcontainer.Querier, c *sqlcontainer.Container) (*T, error) {
	rows, err := c.CreateCommand(conn).ExecuteReader(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, core.NewConnectionFailureError("load single", err)
		}
		return nil, nil
	}
	return m.scanRow(rows)
}

// LoadList executes container's query and materialises every row.
func (m *Mapper[T]) LoadList(ctx context.Context, conn sqlcontainer.Querier, c *sqlcontainer.Container) ([]T, error) {
	rows, err := c.CreateCommand(conn).ExecuteReader(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		entity, err := m.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *entity)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewConnectionFailureError("load list", err)
	}
	return out, nil
}

// BuildUpdate synthesises an UPDATE over updatable columns. When
// original is non-nil, only columns whose values differ from original
// are emitted. A DbNull value (represented as a nil in a pointer field)
// bypasses parameter binding and renders "col = NULL" directly.
func (m *Mapper[T]) BuildUpdate(entity T, original *T, audit AuditValues) (*sqlcontainer.Container, error) {
	c := sqlcontainer.New(m.Engine)
	var sets []string

	for _, col := range m.Info.Columns {
		if col.Role == RoleID || col.Role == RolePrimaryKey || col.Role == RoleVersion {
			continue
		}
		if col.Role == RoleCreatedBy || col.Role == RoleCreatedOn {
			continue
		}
		if !col.Updatable {
			continue
		}
		value := m.fieldValue(entity, col.FieldIndex)
		if original != nil {
			origValue := m.fieldValue(*original, col.FieldIndex)
			if reflect.DeepEqual(value, origValue) {
				continue
			}
		}
		switch col.Role {
		case RoleLastUpdatedBy:
			if audit.Actor != "" {
				value = audit.Actor
			}
		case RoleLastUpdatedOn:
			value = audit.now()
		}
		quoted := m.Engine.WrapObject(col.Name)
		if isDbNull(value) {
			sets = append(sets, quoted+" = NULL")
			continue
		}
		marker := m.Engine.ParameterMarkerFor(col.Name)
		if _, err := c.AddNamedParameter(col.Name, "", value, sqlcontainer.Input); err != nil {
			return nil, err
		}
		sets = append(sets, quoted+" = "+marker)
	}

	keyCol := m.Engine.WrapObject(m.keyColumnName())
	keyMarker := m.Engine.ParameterMarkerFor("key")
	if _, err := c.AddNamedParameter("key", "", m.fieldValue(entity, m.keyFieldIndex()), sqlcontainer.Input); err != nil {
		return nil, err
	}
	where := keyCol + " = " + keyMarker

	if m.Info.VersionColumn != nil {
		oldVersion := m.fieldValue(entity, m.Info.VersionColumn.FieldIndex)
		oldMarker := m.Engine.ParameterMarkerFor("old_version")
		if _, err := c.AddNamedParameter("old_version", "", oldVersion, sqlcontainer.Input); err != nil {
			return nil, err
		}
		where += " AND " + m.Engine.WrapObject(m.Info.VersionColumn.Name) + " = " + oldMarker

		newVersion := incrementVersion(oldVersion)
		newMarker := m.Engine.ParameterMarkerFor("new_version")
		if _, err := c.AddNamedParameter("new_version", "", newVersion, sqlcontainer.Input); err != nil {
			return nil, err
		}
		sets = append(sets, m.Engine.WrapObject(m.Info.VersionColumn.Name)+" = "+newMarker)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		m.Engine.WrapObject(m.Info.Table), strings.Join(sets, ", "), where)
	c.AppendQuery(query)
	return c, nil
}

// Update executes BuildUpdate's container. When loadOriginal is true,
// the current row is fetched first and only the columns that changed
// are emitted; a missing original row fails with an invalid-state error
// rather than silently emitting a full-column UPDATE. If the entity has
// a Version column, an UPDATE that affects zero rows is surfaced as an
// optimistic-concurrency failure rather than a silent no-op.
func (m *Mapper[T]) Update(ctx context.Context, conn sqlcontainer.Querier, entity T, loadOriginal bool, audit AuditValues) (sql.Result, error) {
	id := m.fieldValue(entity, m.keyFieldIndex())

	var original *T
	if loadOriginal {
		retrieve, err := m.BuildRetrieve([]any{id})
		if err != nil {
			return nil, err
		}
		orig, err := m.LoadSingle(ctx, conn, retrieve)
		if err != nil {
			return nil, err
		}
		if orig == nil {
			return nil, core.NewInvalidStateError(m.Info.Table, fmt.Sprintf("no row found for %s = %v to load original", m.keyColumnName(), id))
		}
		original = orig
	}

	c, err := m.BuildUpdate(entity, original, audit)
	if err != nil {
		return nil, err
	}
	res, err := c.CreateCommand(conn).ExecuteNonQuery(ctx)
	if err != nil {
		return nil, err
	}

	if m.Info.VersionColumn != nil {
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, core.NewConnectionFailureError("update", err)
		}
		if affected == 0 {
			return nil, core.NewOptimisticConcurrencyError(m.Info.Table, id)
		}
	}
	return res, nil
}

func (m *Mapper[T]) keyFieldIndex() int {
	if m.Info.IDColumn != nil {
		return m.Info.IDColumn.FieldIndex
	}
	return m.Info.PrimaryKey[0].FieldIndex
}

func incrementVersion(v any) any {
	switch n := v.(type) {
	case int:
		return n + 1
	case int32:
		return n + 1
	case int64:
		return n + 1
	default:
		return v
	}
}

func isDbNull(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

// BuildDelete synthesises "DELETE FROM <table> WHERE id IN (...)" with
// the same parameter-cap rule as BuildRetrieve.
func (m *Mapper[T]) BuildDelete(ids []any) (*sqlcontainer.Container, error) {
	if len(ids) == 0 {
		return nil, core.NewInvalidArgumentError("ids", "id collection must not be empty")
	}
	limit := m.Engine.Descriptor().MaxParameterLimit
	if limit > 0 && len(ids) > limit {
		return nil, core.NewTooManyParametersError(len(ids), limit)
	}
	c := sqlcontainer.New(m.Engine)
	var markers []string
	for i, id := range ids {
		marker := m.Engine.ParameterMarkerFor(fmt.Sprintf("id%d", i))
		if _, err := c.AddNamedParameter(fmt.Sprintf("id%d", i), "", id, sqlcontainer.Input); err != nil {
			return nil, err
		}
		markers = append(markers, marker)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
		m.Engine.WrapObject(m.Info.Table), m.Engine.WrapObject(m.keyColumnName()), strings.Join(markers, ", "))
	c.AppendQuery(query)
	return c, nil
}

// BuildUpsert uses MERGE when the dialect supports it; otherwise it
// returns an INSERT container and lets the caller fall back to
// BuildUpdate on a unique-violation detected via Engine.IsUniqueViolation
// (spec.md §4.4's "INSERT attempt followed by UPDATE" strategy).
func (m *Mapper[T]) BuildUpsert(entity T, audit AuditValues) (container *sqlcontainer.Container, usesMerge bool, err error) {
	if !m.Engine.Descriptor().Features.SupportsMerge {
		return m.buildUpsertInsert(entity, audit)
	}

	c := sqlcontainer.New(m.Engine)
	var insertCols, insertMarkers, updateSets []string
	for _, col := range m.Info.Columns {
		value := m.fieldValue(entity, col.FieldIndex)
		marker := m.Engine.ParameterMarkerFor(col.Name)
		if _, err := c.AddNamedParameter(col.Name, "", value, sqlcontainer.Input); err != nil {
			return nil, false, err
		}
		quoted := m.Engine.WrapObject(col.Name)
		insertCols = append(insertCols, quoted)
		insertMarkers = append(insertMarkers, marker)
		if col.Updatable {
			incoming := quoted
			if m.Engine.Descriptor().Database == dialect.Firebird {
				incoming = dialect.UpsertIncomingColumn(col.Name)
			}
			updateSets = append(updateSets, quoted+" = "+incoming)
		}
	}

	keyCol := m.Engine.WrapObject(m.keyColumnName())
	query := fmt.Sprintf("MERGE INTO %s USING (SELECT %s) AS src ON (%s = src.%s) WHEN MATCHED THEN UPDATE SET %s WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);",
		m.Engine.WrapObject(m.Info.Table), strings.Join(insertMarkers, ", "), keyCol, m.keyColumnName(),
		strings.Join(updateSets, ", "), strings.Join(insertCols, ", "), strings.Join(insertMarkers, ", "))
	c.AppendQuery(query)
	return c, true, nil
}

// buildUpsertInsert renders the INSERT half of the no-MERGE fallback.
// Unlike BuildCreate, it always binds the Id column: Upsert always
// targets a caller-known key, never a server-generated one.
func (m *Mapper[T]) buildUpsertInsert(entity T, audit AuditValues) (*sqlcontainer.Container, bool, error) {
	c := sqlcontainer.New(m.Engine)
	var cols, markers []string

	for _, col := range m.Info.Columns {
		if !col.Insertable && col.Role != RoleID {
			continue
		}
		value := m.fieldValue(entity, col.FieldIndex)
		switch col.Role {
		case RoleCreatedBy, RoleLastUpdatedBy:
			if audit.Actor != "" {
				value = audit.Actor
			}
		}
		marker := m.Engine.ParameterMarkerFor(col.Name)
		if _, err := c.AddNamedParameter(col.Name, "", value, sqlcontainer.Input); err != nil {
			return nil, false, err
		}
		cols = append(cols, m.Engine.WrapObject(col.Name))
		markers = append(markers, marker)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		m.Engine.WrapObject(m.Info.Table), strings.Join(cols, ", "), strings.Join(markers, ", "))
	c.AppendQuery(query)
	return c, false, nil
}

// Upsert executes BuildUpsert's container. On dialects without MERGE, an
// INSERT that fails with a unique-violation falls back to BuildUpdate
// against the same entity (spec.md §4.4's scenario 1).
func (m *Mapper[T]) Upsert(ctx context.Context, conn sqlcontainer.Querier, entity T, original *T, audit AuditValues) (sql.Result, error) {
	c, merge, err := m.BuildUpsert(entity, audit)
	if err != nil {
		return nil, err
	}
	cmd := c.CreateCommand(conn)
	res, err := cmd.ExecuteNonQuery(ctx)
	if merge || err == nil {
		return res, err
	}
	if !m.Engine.IsUniqueViolation(err) {
		return nil, err
	}
	upd, buildErr := m.BuildUpdate(entity, original, audit)
	if buildErr != nil {
		return nil, buildErr
	}
	return upd.CreateCommand(conn).ExecuteNonQuery(ctx)
}

// PopulateGeneratedID runs iff affectedRows == 1 and the Id column is
// non-writable. For Returning/OutputInserted plans, idFromCommand is the
// value the executed INSERT already returned. For PrefetchSequence, the
// id was already resolved and bound before the INSERT ran, so there is
// nothing left to populate. For SessionScopedFunction plans, a
// follow-up scalar query runs on the same connection; a null result
// leaves the id at its default. For CorrelationToken plans, the row
// just inserted is looked up by its bound correlation-column value via
// the dialect's natural-key lookup query.
func (m *Mapper[T]) PopulateGeneratedID(ctx context.Context, entity *T, affectedRows int64, idFromCommand any, conn sqlcontainer.Querier, c *sqlcontainer.Container) error {
	if m.Info.IDColumn == nil || m.Info.IDColumn.Writable || affectedRows != 1 {
		return nil
	}
	switch m.Engine.Descriptor().GeneratedKeyPlan {
	case dialect.Returning, dialect.OutputInserted:
		if idFromCommand != nil {
			m.setFieldValue(entity, m.Info.IDColumn.FieldIndex, idFromCommand)
		}
		return nil
	case dialect.PrefetchSequence:
		return nil
	case dialect.SessionScopedFunction:
		q, err := m.Engine.GetLastInsertedIdQuery()
		if err != nil {
			return err
		}
		var id sql.NullInt64
		row := conn.QueryRowContext(ctx, q)
		if err := row.Scan(&id); err != nil {
			return core.NewConnectionFailureError("populate generated id", err)
		}
		if id.Valid {
			m.setFieldValue(entity, m.Info.IDColumn.FieldIndex, id.Int64)
		}
		return nil
	case dialect.CorrelationToken:
		if m.Info.CorrelationColumn == nil || c == nil {
			return nil
		}
		token, ok := c.GetParameterValue(m.Info.CorrelationColumn.Name)
		if !ok {
			return nil
		}
		marker := m.Engine.ParameterMarkerFor(m.Info.CorrelationColumn.Name)
		q, err := m.Engine.GetNaturalKeyLookupQuery(m.Info.Table, m.Info.IDColumn.Name,
			[]string{m.Info.CorrelationColumn.Name}, []string{marker})
		if err != nil {
			return err
		}
		var id sql.NullInt64
		var correlation any
		row := conn.QueryRowContext(ctx, q, token)
		if err := row.Scan(&id, &correlation); err != nil {
			return core.NewConnectionFailureError("populate generated id", err)
		}
		if id.Valid {
			m.setFieldValue(entity, m.Info.IDColumn.FieldIndex, id.Int64)
		}
		return nil
	default:
		return nil
	}
}
