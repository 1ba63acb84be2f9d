package pgexec

import (
	"context"
	"sync"

	"github.com/youssefsiam38/pgexec/driver"
)

// fakeDriver hands out a fresh fakeConn per Open, configured by setup.
type fakeDriver struct {
	snapshot bool
	openErr  error
	setup    func(*fakeConn)

	mu       sync.Mutex
	conns    []*fakeConn
	connStrs []string
}

func (d *fakeDriver) Name() string           { return "fake" }
func (d *fakeDriver) SupportsSnapshot() bool { return d.snapshot }

func (d *fakeDriver) Open(ctx context.Context, connString string) (driver.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.connStrs = append(d.connStrs, connString)
	if d.openErr != nil {
		return nil, d.openErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := &fakeConn{}
	if d.setup != nil {
		d.setup(c)
	}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDriver) opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDriver) conn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

type fakeConn struct {
	exec  func(ctx context.Context, sql string, args []driver.NamedArg) (int64, error)
	query func(ctx context.Context, sql string, args []driver.NamedArg) (driver.Rows, error)

	beginErr    error
	commitErr   error
	rollbackErr error

	mu             sync.Mutex
	began          []driver.TxOptions
	execs          []string
	queries        []string
	args           []driver.NamedArg
	commits        int
	rollbacks      int
	closes         int
	rollbackCtxErr error
	rows           []*fakeRows
}

func (c *fakeConn) Exec(ctx context.Context, sql string, args ...driver.NamedArg) (int64, error) {
	c.mu.Lock()
	c.execs = append(c.execs, sql)
	c.args = args
	c.mu.Unlock()

	if c.exec == nil {
		return 0, nil
	}
	return c.exec(ctx, sql, args)
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...driver.NamedArg) (driver.Rows, error) {
	c.mu.Lock()
	c.queries = append(c.queries, sql)
	c.args = args
	c.mu.Unlock()

	if c.query == nil {
		return newRows(nil), nil
	}
	rows, err := c.query(ctx, sql, args)
	if fr, ok := rows.(*fakeRows); ok {
		c.mu.Lock()
		c.rows = append(c.rows, fr)
		c.mu.Unlock()
	}
	return rows, err
}

func (c *fakeConn) BeginTx(_ context.Context, opts driver.TxOptions) (driver.ExecutorTx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.began = append(c.began, opts)
	if c.beginErr != nil {
		return nil, c.beginErr
	}
	return &fakeTx{conn: c}, nil
}

func (c *fakeConn) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

type fakeTx struct {
	conn *fakeConn
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...driver.NamedArg) (int64, error) {
	return t.conn.Exec(ctx, sql, args...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...driver.NamedArg) (driver.Rows, error) {
	return t.conn.Query(ctx, sql, args...)
}

func (t *fakeTx) Commit(context.Context) error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	t.conn.commits++
	return t.conn.commitErr
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	t.conn.rollbacks++
	t.conn.rollbackCtxErr = ctx.Err()
	return t.conn.rollbackErr
}

// fakeRows serves canned rows.
type fakeRows struct {
	cols     []string
	data     [][]any
	affected int64
	iterErr  error

	pos    int
	closes int
}

func newRows(cols []string, data ...[]any) *fakeRows {
	return &fakeRows{cols: cols, data: data, affected: -1}
}

func (r *fakeRows) Close()            { r.closes++ }
func (r *fakeRows) Err() error        { return r.iterErr }
func (r *fakeRows) Columns() []string { return r.cols }
func (r *fakeRows) RowsAffected() int64 {
	return r.affected
}

func (r *fakeRows) Next() bool {
	if r.closes > 0 || r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.pos-1], nil
}
