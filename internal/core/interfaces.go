package core

import "context"

// AuditRepository appends invocation audit logs. The store is write-only
// for the bridge; operators read it with any SQLite client.
type AuditRepository interface {
	Create(ctx context.Context, log *AuditLog) error
}

// DriverLister enumerates the driver names registered with the ODBC driver manager.
type DriverLister func() ([]string, error)

// KeySource returns the secret used to open encrypted connection strings.
type KeySource func() (string, error)
