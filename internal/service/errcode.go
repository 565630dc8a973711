package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"odbcbridge/internal/core"
	"odbcbridge/internal/odbc"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// driverCode extracts the driver-specific error code: a SQLSTATE for ODBC
// and PostgreSQL, the native error number for SQL Server and MySQL, and the
// result code for drivers exposing Code() int (SQLite, SAP HANA).
func driverCode(err error) interface{} {
	if state, ok := odbc.SQLState(err); ok {
		return state
	}

	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Number
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return nil
}

// sqlState returns the five character SQLSTATE when the driver reports one.
func sqlState(err error) string {
	if state, ok := odbc.SQLState(err); ok {
		return state
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isConnectionLost reports whether err means the session itself is gone, as
// opposed to the data source rejecting one statement.
func isConnectionLost(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// 08xxx: connection exception. HYT00/HYT01: ODBC timeouts.
	state := sqlState(err)
	return strings.HasPrefix(state, "08") || state == "HYT00" || state == "HYT01"
}

// isNoResultSet reports the "nothing to fetch" class: the statement ran but
// produced no cursor. 24000 is ODBC's invalid cursor state; the text is what
// github.com/alexbrainman/odbc returns when SQLNumResultCols reports zero.
func isNoResultSet(err error) bool {
	if sqlState(err) == "24000" {
		return true
	}
	return strings.Contains(err.Error(), "did not create a result set")
}

// classify tags err with a kind and driver code. Errors already tagged pass
// through untouched; lost connections become KindConnection whatever the
// phase; everything else takes fallback.
func classify(err error, fallback core.ErrorKind) error {
	var tagged *core.Error
	if errors.As(err, &tagged) {
		return err
	}
	kind := fallback
	if isConnectionLost(err) {
		kind = core.KindConnection
	}
	return &core.Error{Kind: kind, Code: driverCode(err), Err: err}
}
