package service

// database/sql drivers selectable through ODBCBRIDGE_DRIVER. "odbc" is
// registered by internal/odbc; go-mssqldb ("sqlserver", "mssql"),
// go-sql-driver/mysql ("mysql") and lib/pq ("postgres") by errcode.go.
import (
	_ "github.com/SAP/go-hdb/driver"   // "hdb"
	_ "github.com/jackc/pgx/v5/stdlib" // "pgx"
	_ "modernc.org/sqlite"             // "sqlite"
)
