package tools

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver (pure Go)

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

const dbStateKey = "db.connections"

// connection is an open database plus its transaction, if one is running.
type connection struct {
	db     *sql.DB
	tx     *sql.Tx
	driver string
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (c *connection) q() querier {
	if c.tx != nil {
		return c.tx
	}
	return c.db
}

var driverNames = map[string]string{
	"sqlite":     "sqlite",
	"sqlite3":    "sqlite",
	"mysql":      "mysql",
	"postgres":   "postgres",
	"postgresql": "postgres",
	"pq":         "postgres",
}

// DBPack is SQL database access. Connections belong to one interpreter
// and are closed when it closes.
func DBPack() *evaluator.Pack {
	return newPack("db", "SQL databases: sqlite, mysql, postgres", []Def{
		{Name: "db.open", Execute: dbOpen},
		{Name: "db.query", Execute: dbQuery},
		{Name: "db.exec", Execute: dbExec},
		{Name: "db.begin", Execute: dbBegin},
		{Name: "db.commit", Execute: dbFinish(true)},
		{Name: "db.rollback", Execute: dbFinish(false)},
		{Name: "db.close", Execute: dbClose},
	}, dbInit)
}

func dbInit(ip *evaluator.Interpreter) error {
	conns := map[string]*connection{}
	ip.SetState(dbStateKey, conns)
	ip.OnClose(func() error {
		names := make([]string, 0, len(conns))
		for n := range conns {
			names = append(names, n)
		}
		sort.Strings(names)
		var errs []error
		for _, n := range names {
			c := conns[n]
			if c.tx != nil {
				_ = c.tx.Rollback()
			}
			if err := c.db.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s: %w", n, err))
			}
			delete(conns, n)
		}
		return errors.Join(errs...)
	})
	return nil
}

func connections(ip *evaluator.Interpreter) map[string]*connection {
	if v, ok := ip.State(dbStateKey); ok {
		if m, ok := v.(map[string]*connection); ok {
			return m
		}
	}
	return nil
}

func lookupConn(ip *evaluator.Interpreter, instr string, rec evaluator.NJRecord) (*connection, string, error) {
	name := optString(rec, "db", "default")
	c, ok := connections(ip)[name]
	if !ok {
		return nil, name, argError(instr, "no open database named '%s'", name)
	}
	return c, name, nil
}

// dbOpen opens {driver, dsn, name?} and returns the handle name.
func dbOpen(ctx context.Context, ip *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	rec, ok := args.(evaluator.NJRecord)
	if !ok {
		return nil, argError("db.open", "expects {driver, dsn, name?}")
	}
	driverArg, err := reqString("db.open", rec, "driver")
	if err != nil {
		return nil, err
	}
	driver, ok := driverNames[driverArg]
	if !ok {
		return nil, argError("db.open", "unsupported driver '%s'", driverArg)
	}
	dsn, err := reqString("db.open", rec, "dsn")
	if err != nil {
		return nil, err
	}
	name := optString(rec, "name", "default")

	conns := connections(ip)
	if conns == nil {
		return nil, fmt.Errorf("db pack is not initialized")
	}
	if _, exists := conns[name]; exists {
		return nil, argError("db.open", "database '%s' is already open", name)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// in-memory databases exist per connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	conns[name] = &connection{db: db, driver: driver}
	ip.Logger().Debug().Str("db", name).Str("driver", driver).Msg("database opened")
	return evaluator.NewString(name), nil
}

func sqlArgs(instr string, args evaluator.NJValue) (evaluator.NJRecord, string, []any, error) {
	rec, err := argRecord(instr, args, "sql")
	if err != nil {
		return rec, "", nil, err
	}
	query, err := reqString(instr, rec, "sql")
	if err != nil {
		return rec, "", nil, err
	}
	var params []any
	if p, ok := rec.Get("params"); ok {
		list, ok := p.(evaluator.NJList)
		if !ok {
			return rec, "", nil, argError(instr, "'params' must be an array")
		}
		for _, item := range list.Items {
			params = append(params, sqlParam(item))
		}
	}
	return rec, query, params, nil
}

func sqlParam(v evaluator.NJValue) any {
	switch val := v.(type) {
	case evaluator.NJNull:
		return nil
	case evaluator.NJNumber:
		if val.Value == float64(int64(val.Value)) {
			return int64(val.Value)
		}
		return val.Value
	case evaluator.NJList, evaluator.NJRecord:
		return evaluator.ValueToJSONString(v)
	}
	return evaluator.ToAny(v)
}

// dbQuery returns the result rows as records in column order.
func dbQuery(ctx context.Context, ip *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	rec, query, params, err := sqlArgs("db.query", args)
	if err != nil {
		return nil, err
	}
	c, _, err := lookupConn(ip, "db.query", rec)
	if err != nil {
		return nil, err
	}
	rows, err := c.q().QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	items := []evaluator.NJValue{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := evaluator.EmptyRecord()
		for i, col := range columns {
			row.Set(col, sqlValue(values[i]))
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return evaluator.NewList(items), nil
}

func sqlValue(v any) evaluator.NJValue {
	switch val := v.(type) {
	case time.Time:
		return evaluator.NewString(val.Format(time.RFC3339))
	case []byte:
		return evaluator.NewString(string(val))
	}
	return evaluator.FromAny(v)
}

func dbExec(ctx context.Context, ip *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	rec, query, params, err := sqlArgs("db.exec", args)
	if err != nil {
		return nil, err
	}
	c, _, err := lookupConn(ip, "db.exec", rec)
	if err != nil {
		return nil, err
	}
	res, err := c.q().ExecContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	out := evaluator.EmptyRecord()
	if n, err := res.RowsAffected(); err == nil {
		out.Set("rowsAffected", evaluator.NewNumber(float64(n)))
	}
	if id, err := res.LastInsertId(); err == nil {
		out.Set("lastInsertId", evaluator.NewNumber(float64(id)))
	} else {
		out.Set("lastInsertId", evaluator.NewNull())
	}
	return out, nil
}

func dbBegin(ctx context.Context, ip *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	rec, err := argRecord("db.begin", args, "db")
	if err != nil {
		return nil, err
	}
	c, name, err := lookupConn(ip, "db.begin", rec)
	if err != nil {
		return nil, err
	}
	if c.tx != nil {
		return nil, argError("db.begin", "transaction already in progress on '%s'", name)
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	c.tx = tx
	return evaluator.NewBool(true), nil
}

func dbFinish(commit bool) func(context.Context, *evaluator.Interpreter, evaluator.NJValue) (evaluator.NJValue, error) {
	instr := "db.rollback"
	if commit {
		instr = "db.commit"
	}
	return func(_ context.Context, ip *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
		rec, err := argRecord(instr, args, "db")
		if err != nil {
			return nil, err
		}
		c, name, err := lookupConn(ip, instr, rec)
		if err != nil {
			return nil, err
		}
		if c.tx == nil {
			return nil, argError(instr, "no transaction in progress on '%s'", name)
		}
		tx := c.tx
		c.tx = nil
		if commit {
			err = tx.Commit()
		} else {
			err = tx.Rollback()
		}
		if err != nil {
			return nil, err
		}
		return evaluator.NewBool(true), nil
	}
}

func dbClose(_ context.Context, ip *evaluator.Interpreter, args evaluator.NJValue) (evaluator.NJValue, error) {
	rec, err := argRecord("db.close", args, "db")
	if err != nil {
		return nil, err
	}
	c, name, err := lookupConn(ip, "db.close", rec)
	if err != nil {
		return nil, err
	}
	if c.tx != nil {
		_ = c.tx.Rollback()
	}
	delete(connections(ip), name)
	if err := c.db.Close(); err != nil {
		return nil, err
	}
	return evaluator.NewBool(true), nil
}
