package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/lib/pq"
)

// fakeDriverName is a database/sql driver whose behaviour is picked by the
// DSN, so every failure class can be produced without a data source.
//
//	refuse        Open fails with SQLSTATE 08001
//	hang          Open blocks past any test timeout
//	reject-all    every statement fails with 42601
//	reject-first  "SELECT 1" fails with 42601, anything else succeeds
//	lost          every statement fails with 08006
//	noresult      every statement reports 24000
//	fetch-fail    the first row fails with 22012
//	multi         a second result set follows the first
//	slow-query    statements block past any test timeout
//	panic         every statement panics inside the driver
//	anything else returns the sample result set
const fakeDriverName = "bridgefake"

func init() {
	sql.Register(fakeDriverName, fakeDriver{})
}

const blockFor = 2 * time.Second

type fakeDriver struct{}

func (fakeDriver) Open(dsn string) (driver.Conn, error) {
	switch dsn {
	case "refuse":
		return nil, &pq.Error{Code: "08001", Message: "could not connect to server: Connection refused"}
	case "hang":
		time.Sleep(blockFor)
		return nil, errors.New("gave up")
	}
	return &fakeConn{mode: dsn}, nil
}

type fakeConn struct {
	mode string
}

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

func (c *fakeConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	switch c.mode {
	case "reject-all":
		return nil, syntaxError()
	case "reject-first":
		if strings.EqualFold(query, "SELECT 1") {
			return nil, syntaxError()
		}
	case "lost":
		return nil, &pq.Error{Code: "08006", Message: "server closed the connection unexpectedly"}
	case "noresult":
		return nil, &pq.Error{Code: "24000", Message: "invalid cursor state"}
	case "slow-query":
		time.Sleep(blockFor)
	case "panic":
		panic("driver fault in QueryContext")
	case "fetch-fail":
		return &fakeRows{columns: []string{"x"}, fail: &pq.Error{Code: "22012", Message: "division by zero"}}, nil
	case "multi":
		return &multiRows{fakeRows{columns: []string{"n"}, rows: [][]driver.Value{{int64(1)}}}}, nil
	}
	return sampleRows(), nil
}

func syntaxError() error {
	return &pq.Error{Code: "42601", Message: "syntax error at or near \"SELECT\""}
}

// sampleRows repeats "name" to exercise duplicate column handling.
func sampleRows() *fakeRows {
	return &fakeRows{
		columns: []string{"id", "name", "amount", "name", "created", "memo"},
		rows: [][]driver.Value{
			{int64(1), "first", 12.5, "dup-1", time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), nil},
			{int64(2), "second", -3.0, "dup-2", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), []byte("café")},
		},
	}
}

type fakeRows struct {
	columns []string
	rows    [][]driver.Value
	fail    error
	pos     int
}

func (r *fakeRows) Columns() []string { return r.columns }

func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.fail != nil {
		return r.fail
	}
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}

type multiRows struct {
	fakeRows
}

func (r *multiRows) HasNextResultSet() bool { return true }

func (r *multiRows) NextResultSet() error { return nil }
