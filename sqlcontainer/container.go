// Package sqlcontainer implements SqlContainer: a mutable,
// single-thread-affine query builder that accumulates raw SQL text and a
// marker-insensitive parameter table, then materialises a driver-ready
// command.
package sqlcontainer

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/shiftdb/core"
	"github.com/shiftdb/core/dialect"
)

// Direction is a parameter's data-flow direction.
type Direction int

const (
	Input Direction = iota
	Output
	InputOutput
	ReturnValue
)

// Parameter is one bound value in the container's parameter table.
type Parameter struct {
	Name      string // normalised: marker stripped, case preserved
	DbType    string
	Value     any
	Direction Direction
}

// normaliseName strips any leading marker character so `@p`, `:p`, `?p`
// and `$p` all key to the same parameter ("p").
func normaliseName(name string) string {
	return strings.TrimLeft(name, "@:?$")
}

var anonCounter atomic.Uint64

// Container is SqlContainer.
type Container struct {
	engine dialect.DialectEngine

	buf            strings.Builder
	params         []*Parameter
	byName         map[string]*Parameter
	hasWhere       bool
	outputCount    int
}

// New returns an empty Container bound to engine's quoting/marker rules.
func New(engine dialect.DialectEngine) *Container {
	return &Container{engine: engine, byName: make(map[string]*Parameter)}
}

// AppendQuery appends raw SQL text to the buffer and returns the
// container for chaining.
func (c *Container) AppendQuery(text string) *Container {
	c.buf.WriteString(text)
	if strings.Contains(strings.ToUpper(text), "WHERE") {
		c.hasWhere = true
	}
	return c
}

// HasWhereAppended reports whether AppendQuery has seen a WHERE clause.
func (c *Container) HasWhereAppended() bool { return c.hasWhere }

// Query returns the accumulated SQL text.
func (c *Container) Query() string { return c.buf.String() }

// AddParameter binds value under dbType with an auto-generated name and
// Input direction.
func (c *Container) AddParameter(dbType string, value any) (*Parameter, error) {
	return c.AddNamedParameter("", dbType, value, Input)
}

// AddNamedParameter binds value under an explicit (possibly empty) name.
// A null name auto-generates a unique one. Adding a parameter whose
// normalised name already exists fails. Output-direction parameters are
// counted against the dialect's output budget.
func (c *Container) AddNamedParameter(name, dbType string, value any, direction Direction) (*Parameter, error) {
	if name == "" {
		name = "p" + strconv.FormatUint(anonCounter.Add(1), 10)
	}
	key := normaliseName(name)
	if _, exists := c.byName[key]; exists {
		return nil, core.NewInvalidArgumentError("name", fmt.Sprintf("parameter %q already bound", key))
	}
	if direction != Input {
		budget := c.engine.Descriptor().MaxOutputParameters
		if budget <= 0 || c.outputCount >= budget {
			return nil, core.NewInvalidArgumentError("direction", "output parameter exceeds the dialect's output budget")
		}
		c.outputCount++
	}
	p := &Parameter{Name: key, DbType: dbType, Value: value, Direction: direction}
	c.params = append(c.params, p)
	c.byName[key] = p
	return p, nil
}

// GetParameterValue looks up a bound value by any marker-prefixed or
// bare form of its name.
func (c *Container) GetParameterValue(name string) (any, bool) {
	p, ok := c.byName[normaliseName(name)]
	if !ok {
		return nil, false
	}
	return p.Value, true
}

// SetParameterValue updates a previously bound parameter's value.
func (c *Container) SetParameterValue(name string, value any) bool {
	p, ok := c.byName[normaliseName(name)]
	if !ok {
		return false
	}
	p.Value = value
	return true
}

// Clear empties the buffer and the parameter table.
func (c *Container) Clear() {
	c.buf.Reset()
	c.params = nil
	c.byName = make(map[string]*Parameter)
	c.hasWhere = false
	c.outputCount = 0
}

// Command is a materialised, driver-ready command.
type Command struct {
	Text       string
	Parameters []*Parameter
	Conn       Querier
}

// Querier is the minimal connection surface CreateCommand binds to.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateCommand materialises a Command bound to conn, copying the
// current buffer and parameter table.
func (c *Container) CreateCommand(conn Querier) *Command {
	paramsCopy := make([]*Parameter, len(c.params))
	copy(paramsCopy, c.params)
	return &Command{Text: c.buf.String(), Parameters: paramsCopy, Conn: conn}
}

func (c *Command) argValues() []any {
	args := make([]any, len(c.Parameters))
	for i, p := range c.Parameters {
		args[i] = p.Value
	}
	return args
}

// ExecuteNonQuery runs the command for its side effects.
func (c *Command) ExecuteNonQuery(ctx context.Context) (sql.Result, error) {
	res, err := c.Conn.ExecContext(ctx, c.Text, c.argValues()...)
	if err != nil {
		return nil, core.NewConnectionFailureError("execute", err)
	}
	return res, nil
}

// ExecuteScalar runs the command and scans its single-column first row.
// It fails if the result set is empty.
func (c *Command) ExecuteScalar(ctx context.Context, dest any) error {
	row := c.Conn.QueryRowContext(ctx, c.Text, c.argValues()...)
	if err := row.Scan(dest); err != nil {
		if err == sql.ErrNoRows {
			return core.NewNotFoundError("scalar result", nil)
		}
		return core.NewConnectionFailureError("execute scalar", err)
	}
	return nil
}

// ExecuteReader runs the command and returns the resulting rows.
func (c *Command) ExecuteReader(ctx context.Context) (*sql.Rows, error) {
	rows, err := c.Conn.QueryContext(ctx, c.Text, c.argValues()...)
	if err != nil {
		return nil, core.NewConnectionFailureError("execute reader", err)
	}
	return rows, nil
}

// WrapForStoredProc renders name(args) per the dialect's
// procedure-wrapping style. captureReturn requests a return-value
// capture, unsupported on the PostgreSQL and Firebird wrappers.
func (c *Container) WrapForStoredProc(execType ExecType, name string, args []string, captureReturn bool) (string, error) {
	joined := strings.Join(args, ", ")
	switch c.engine.Descriptor().ProcedureWrapStyle {
	case dialect.WrapExec:
		return "EXEC " + name + " " + joined, nil
	case dialect.WrapCall:
		return "{CALL " + name + "(" + joined + ")}", nil
	case dialect.WrapOracle:
		if captureReturn {
			return "BEGIN :return_value := " + name + "(" + joined + "); END;", nil
		}
		return "BEGIN " + name + "(" + joined + "); END;", nil
	case dialect.WrapPostgreSQL:
		if captureReturn {
			return "", core.NewUnsupportedOperationError("captureReturn", "PostgreSQL stored-procedure wrapper does not support return-value capture")
		}
		if execType == Read {
			return "SELECT * FROM " + name + "(" + joined + ")", nil
		}
		return "CALL " + name + "(" + joined + ")", nil
	case dialect.WrapExecuteProcedure:
		if captureReturn {
			return "", core.NewUnsupportedOperationError("captureReturn", "Firebird stored-procedure wrapper does not support return-value capture")
		}
		return "EXECUTE PROCEDURE " + name + "(" + joined + ")", nil
	default:
		return "EXEC " + name + " " + joined, nil
	}
}

// ExecType mirrors connmode.ExecType without importing connmode, keeping
// sqlcontainer below connmode in the dependency order.
type ExecType int

const (
	Read ExecType = iota
	Write
)
