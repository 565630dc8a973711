package service

import (
	"context"
	"database/sql"
	"errors"
	"runtime/debug"
	"time"

	"odbcbridge/internal/core"

	"github.com/sirupsen/logrus"
)

// bounded runs fn and waits at most wait for it. ODBC drivers generally
// ignore context cancellation once a call is inside the driver manager, so
// the call is raced against the deadline instead of trusting fn to return.
// An overrunning call is left behind; it dies with the process. A panic in
// fn is recovered on its own goroutine and returned as an unexpected error.
func bounded[T any](ctx context.Context, wait time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: core.PanicError(r, debug.Stack())}
			}
		}()
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, &core.Error{
			Kind:    core.KindConnection,
			Message: op + " timed out after " + wait.String(),
			Err:     ctx.Err(),
		}
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// session is the single connection an invocation owns.
type session struct {
	db   *sql.DB
	conn *sql.Conn
	log  *logrus.Entry

	// abandoned is set when a driver call overran its deadline or panicked
	// and may still hold the connection.
	abandoned bool
}

func openSession(ctx context.Context, driverName, dsn string, wait time.Duration, log *logrus.Entry) (*session, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		// database/sql only fails here for an unregistered driver name
		return nil, &core.Error{Kind: core.KindCapability, Err: err}
	}
	db.SetMaxOpenConns(1)

	conn, err := bounded(ctx, wait, "connect", func(ctx context.Context) (*sql.Conn, error) {
		c, err := db.Conn(ctx)
		if err != nil {
			return nil, err
		}
		// database/sql connects lazily for some drivers; make sure the
		// server actually answered before calling the connect phase done.
		if err := c.PingContext(ctx); err != nil {
			c.Close()
			return nil, err
		}
		return c, nil
	})
	if err != nil {
		_ = db.Close()
		return nil, classify(err, core.KindConnection)
	}

	return &session{db: db, conn: conn, log: log}, nil
}

type probeOutcome int

const (
	probeOK probeOutcome = iota
	probeRejected
	probeAborted
)

func (o probeOutcome) String() string {
	switch o {
	case probeOK:
		return "ok"
	case probeRejected:
		return "rejected"
	}
	return "aborted"
}

// probe runs a throwaway statement and reads at most one row.
func (s *session) probe(ctx context.Context, stmt string, wait time.Duration) (probeOutcome, error) {
	_, err := bounded(ctx, wait, "probe query", func(ctx context.Context) (struct{}, error) {
		rows, err := s.conn.QueryContext(ctx, stmt)
		if err != nil {
			return struct{}{}, err
		}
		defer rows.Close()
		rows.Next()
		return struct{}{}, rows.Err()
	})
	switch {
	case err == nil:
		return probeOK, nil
	case isTimeout(err), core.IsPanic(err):
		s.abandoned = true
		return probeAborted, err
	case isConnectionLost(err):
		return probeAborted, err
	default:
		return probeRejected, err
	}
}

// resultSet is the eagerly fetched first result set of a statement.
type resultSet struct {
	columns []string
	rows    []core.Row
	more    bool // the statement produced further result sets
}

func (s *session) fetchAll(ctx context.Context, stmt string, wait time.Duration) (*resultSet, error) {
	rs, err := bounded(ctx, wait, "query", func(ctx context.Context) (*resultSet, error) {
		rows, err := s.conn.QueryContext(ctx, stmt)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanAll(rows)
	})
	if err != nil && (isTimeout(err) || core.IsPanic(err)) {
		s.abandoned = true
	}
	return rs, err
}

func scanAll(rows *sql.Rows) (*resultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if columns == nil {
		columns = []string{}
	}

	rs := &resultSet{columns: columns, rows: []core.Row{}}
	for rows.Next() {
		// Generic row scanning
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}
		rs.rows = append(rs.rows, core.NewRow(columns, values))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rs.more = rows.NextResultSet()
	return rs, nil
}

// Close releases the connection. After an abandoned call the connection may
// still be busy inside the driver or locked by database/sql, so only the pool is closed and the handle
// goes away with the process.
func (s *session) Close() {
	if s.abandoned {
		s.log.Warn("driver call overran its deadline; connection is released at process exit")
		_ = s.db.Close()
		return
	}
	if err := s.conn.Close(); err != nil {
		s.log.WithError(err).Warn("close connection")
	}
	if err := s.db.Close(); err != nil {
		s.log.WithError(err).Warn("close database handle")
	}
}
