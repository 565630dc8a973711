// Package odbc wraps the parts of the ODBC driver manager that database/sql
// does not reach: the availability probe, driver enumeration and SQLSTATE
// extraction from driver errors.
package odbc

import "runtime"

// DriverName is the database/sql name github.com/alexbrainman/odbc registers.
const DriverName = "odbc"

// unixLinkNote applies to every non-Windows platform: the cgo build links
// libodbc, so the loader refuses to start it when the library is missing.
const unixLinkNote = ". A CGO_ENABLED=1 build links libodbc and will not start without it; a CGO_ENABLED=0 build starts but always reports ODBC as unavailable"

// InstallHint tells the caller how to obtain ODBC support on this platform.
func InstallHint() string {
	switch runtime.GOOS {
	case "windows":
		return "ODBC driver manager not available. Ensure odbc32.dll is present and install the data source's ODBC driver for the same architecture as odbcbridge (32-bit drivers need a 32-bit build)"
	case "darwin":
		return "ODBC driver manager not available. Install it with: brew install unixodbc, then rebuild odbcbridge with CGO_ENABLED=1" + unixLinkNote
	default:
		return "ODBC driver manager not available. Install unixODBC (e.g. apt install unixodbc unixodbc-dev), then rebuild odbcbridge with CGO_ENABLED=1" + unixLinkNote
	}
}
