package entity

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/shiftdb/core"
)

// TableInfo is the parsed shape of a registered record, per spec.md
// §3's "Entity table info".
type TableInfo struct {
	Type            reflect.Type
	Table           string
	Columns         []Column
	IDColumn        *Column
	PrimaryKey      []Column // ordered by PKOrder
	VersionColumn   *Column
	HasAuditColumns bool
	CorrelationColumn *Column
}

// parsedTag is one `db:"..."` tag split into its column name and option
// set.
type parsedTag struct {
	name string
	opts map[string]string
}

func parseTag(tag string) (parsedTag, bool) {
	if tag == "" || tag == "-" {
		return parsedTag{}, false
	}
	parts := strings.Split(tag, ",")
	pt := parsedTag{name: strings.TrimSpace(parts[0]), opts: make(map[string]string)}
	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			continue
		}
		if eq := strings.IndexByte(opt, '='); eq >= 0 {
			pt.opts[opt[:eq]] = opt[eq+1:]
		} else {
			pt.opts[opt] = ""
		}
	}
	return pt, true
}

func (pt parsedTag) has(key string) bool { _, ok := pt.opts[key]; return ok }

// BuildTableInfo reflects over zero, a pointer or value of the entity
// struct type, parsing each field's `db` tag into a Column and enforcing
// the registration invariants from spec.md §3/§4.4.
func BuildTableInfo(table string, zero any) (*TableInfo, error) {
	if table == "" {
		return nil, core.NewInvalidConfigurationError("table", "a table name is required")
	}
	t := reflect.TypeOf(zero)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, core.NewInvalidConfigurationError(t.String(), "entity must be a struct type")
	}

	ti := &TableInfo{Type: t, Table: table}
	seenNames := make(map[string]bool)
	seenOrdinals := make(map[int]bool)
	nextAutoOrdinal := 1
	hasId, hasPK := false, false

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tagStr, ok := f.Tag.Lookup("db")
		if !ok {
			continue
		}
		pt, ok := parseTag(tagStr)
		if !ok {
			continue
		}
		col := Column{Name: pt.name, FieldIndex: i, Insertable: true, Updatable: true}

		isID := pt.has("id")
		isPK := pt.has("pk")
		if isID && isPK {
			return nil, core.NewInvalidConfigurationError(pt.name, "a column cannot be both Id and PrimaryKey")
		}
		switch {
		case isID:
			col.Role = RoleID
			col.Writable = pt.has("writable")
			col.Insertable = col.Writable
			col.Updatable = false
			col.Sequence = pt.opts["sequence"]
			if col.Sequence == "" {
				col.Sequence = table + "_" + pt.name + "_seq"
			}
			hasId = true
		case isPK:
			col.Role = RolePrimaryKey
			order, err := strconv.Atoi(pt.opts["pk"])
			if err != nil || order < 1 {
				return nil, core.NewInvalidConfigurationError(pt.name, "PrimaryKey order must be a positive integer")
			}
			col.PKOrder = order
			col.Updatable = false
			hasPK = true
		case pt.has("version"):
			col.Role = RoleVersion
		case pt.has("created_by"):
			col.Role = RoleCreatedBy
			col.Updatable = false
		case pt.has("created_on"):
			col.Role = RoleCreatedOn
			col.Updatable = false
		case pt.has("last_updated_by"):
			col.Role = RoleLastUpdatedBy
		case pt.has("last_updated_on"):
			col.Role = RoleLastUpdatedOn
		case pt.has("correlation"):
			col.Role = RoleCorrelationToken
			col.Updatable = false
		}

		if pt.has("noinsert") {
			col.Insertable = false
		}
		if pt.has("noupdate") {
			col.Updatable = false
		}
		col.Nullable = pt.has("null")
		col.IsEnum = pt.has("enum")
		col.IsJSON = pt.has("json")

		if ord, ok := pt.opts["ordinal"]; ok {
			n, err := strconv.Atoi(ord)
			if err != nil || n <= 0 {
				return nil, core.NewInvalidConfigurationError(pt.name, "ordinal must be a positive integer")
			}
			if seenOrdinals[n] {
				return nil, core.NewInvalidConfigurationError(pt.name, "duplicate explicit ordinal")
			}
			col.Ordinal = n
			seenOrdinals[n] = true
		}

		lower := strings.ToLower(col.Name)
		if seenNames[lower] {
			return nil, core.NewInvalidConfigurationError(col.Name, "duplicate column name (case-insensitive)")
		}
		seenNames[lower] = true

		ti.Columns = append(ti.Columns, col)
	}

	if len(ti.Columns) == 0 {
		return nil, core.NewInvalidConfigurationError(table, "no columns found")
	}
	if !hasId && !hasPK {
		return nil, core.NewInvalidConfigurationError(table, "entity requires an Id column or one or more PrimaryKey columns")
	}
	if hasId && hasPK {
		return nil, core.NewInvalidConfigurationError(table, "entity cannot combine an Id column with PrimaryKey columns")
	}

	for i := range ti.Columns {
		if ti.Columns[i].Ordinal == 0 {
			for seenOrdinals[nextAutoOrdinal] {
				nextAutoOrdinal++
			}
			ti.Columns[i].Ordinal = nextAutoOrdinal
			seenOrdinals[nextAutoOrdinal] = true
		}
	}

	pkOrders := map[int]bool{}
	for i := range ti.Columns {
		c := &ti.Columns[i]
		switch c.Role {
		case RoleID:
			ti.IDColumn = c
		case RolePrimaryKey:
			if pkOrders[c.PKOrder] {
				return nil, core.NewInvalidConfigurationError(c.Name, "duplicate PrimaryKey order")
			}
			pkOrders[c.PKOrder] = true
			ti.PrimaryKey = append(ti.PrimaryKey, *c)
		case RoleVersion:
			if ti.VersionColumn != nil {
				return nil, core.NewInvalidConfigurationError(c.Name, "too many Version columns")
			}
			ti.VersionColumn = c
		case RoleCreatedBy, RoleCreatedOn, RoleLastUpdatedBy, RoleLastUpdatedOn:
			ti.HasAuditColumns = true
		case RoleCorrelationToken:
			if ti.CorrelationColumn != nil {
				return nil, core.NewInvalidConfigurationError(c.Name, "too many CorrelationToken columns")
			}
			ti.CorrelationColumn = c
		}
	}
	if ti.IDColumn != nil {
		extra := 0
		for _, c := range ti.Columns {
			if c.Role == RoleID {
				extra++
			}
		}
		if extra > 1 {
			return nil, core.NewInvalidConfigurationError(table, "too many Id columns")
		}
	}

	for i := 1; i <= len(ti.PrimaryKey); i++ {
		if !pkOrders[i] {
			return nil, core.NewInvalidConfigurationError(table, "PrimaryKey orders must be contiguous starting at 1")
		}
	}
	sortPrimaryKey(ti.PrimaryKey)

	return ti, nil
}

func sortPrimaryKey(cols []Column) {
	for i := 1; i < len(cols); i++ {
		for j := i; j > 0 && cols[j-1].PKOrder > cols[j].PKOrder; j-- {
			cols[j-1], cols[j] = cols[j], cols[j-1]
		}
	}
}
