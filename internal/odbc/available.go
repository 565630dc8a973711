//go:build windows || cgo

package odbc

import (
	"errors"
	"fmt"

	"github.com/alexbrainman/odbc"
	"github.com/alexbrainman/odbc/api"
)

// Probe allocates and frees an ODBC environment handle. A missing driver
// manager library shows up as a failed allocation or, on Windows, as a panic
// from the lazy DLL loader; both are reported as unavailable. cgo builds link
// libodbc directly, so there a missing library stops the process at load time
// and Probe only ever sees a failed allocation.
func Probe() (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("load ODBC driver manager: %v", r)
		}
	}()

	var env api.SQLHANDLE
	ret := api.SQLAllocHandle(api.SQL_HANDLE_ENV, api.SQLHANDLE(api.SQL_NULL_HANDLE), &env)
	if ret != api.SQL_SUCCESS && ret != api.SQL_SUCCESS_WITH_INFO {
		return false, fmt.Errorf("SQLAllocHandle(SQL_HANDLE_ENV) returned %d", ret)
	}
	api.SQLFreeHandle(api.SQL_HANDLE_ENV, env)
	return true, nil
}

// SQLState returns the SQLSTATE of the first diagnostic record of an ODBC
// driver error.
func SQLState(err error) (string, bool) {
	var e *odbc.Error
	if errors.As(err, &e) && len(e.Diag) > 0 {
		return e.Diag[0].State, true
	}
	return "", false
}
