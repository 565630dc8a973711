package service

import (
	"context"
	"database/sql"
	"runtime"
	"slices"
	"time"

	"odbcbridge/internal/config"
	"odbcbridge/internal/core"
	"odbcbridge/internal/logger"
	"odbcbridge/internal/odbc"

	"github.com/sirupsen/logrus"
)

// DefaultProbes are tried in order by Test. The second is for data sources
// such as Tally that reject a table-less SELECT.
var DefaultProbes = []string{
	"SELECT 1",
	"SELECT TOP 1 * FROM COMPANY",
}

// Bridge runs the four bridge commands. Each call owns its connection from
// open to close; nothing is kept between calls.
type Bridge struct {
	runtime        *core.Runtime
	driver         string
	connectTimeout time.Duration
	queryTimeout   time.Duration
	filter         []string
	probes         []string
	listDrivers    core.DriverLister
	key            core.KeySource
	log            *logrus.Entry
}

func NewBridge(rt *core.Runtime, cfg *config.Config, listDrivers core.DriverLister, key core.KeySource, log *logrus.Entry) *Bridge {
	if log == nil {
		log = logrus.NewEntry(logger.Log)
	}
	return &Bridge{
		runtime:        rt,
		driver:         cfg.Driver,
		connectTimeout: cfg.ConnectTimeout,
		queryTimeout:   cfg.QueryTimeout,
		filter:         cfg.DriverFilter,
		probes:         DefaultProbes,
		listDrivers:    listDrivers,
		key:            key,
		log:            log,
	}
}

// Check reports capabilities without touching any data source.
func (b *Bridge) Check(version string) *core.CheckResult {
	return &core.CheckResult{
		Success:          true,
		Method:           b.driver,
		ODBCAvailable:    b.runtime.ODBCAvailable,
		RuntimeVersion:   b.runtime.GoVersion,
		Version:          version,
		Driver:           b.driver,
		DriverRegistered: b.runtime.DriverRegistered,
		Detail:           b.runtime.ODBCError,
	}
}

// Drivers enumerates the ODBC drivers known to the driver manager.
func (b *Bridge) Drivers() (*core.DriversResult, error) {
	if !b.runtime.ODBCAvailable {
		return nil, core.NewError(core.KindCapability, "%s", odbc.InstallHint())
	}

	all, err := b.listDrivers()
	if err != nil {
		return nil, &core.Error{Kind: core.KindConnection, Message: "enumerate ODBC drivers: " + err.Error(), Err: err}
	}
	if all == nil {
		all = []string{}
	}

	return &core.DriversResult{
		Success:         true,
		Method:          b.driver,
		AllDrivers:      all,
		FilteredDrivers: core.FilterDrivers(all, b.filter),
	}, nil
}

// Test connects and runs the probe list. A probe the data source rejects
// moves on to the next one; a lost connection ends the test as a failure;
// running out of probes on a live connection still counts as connected.
func (b *Bridge) Test(ctx context.Context, connStr string) (*core.TestResult, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	dsn, err := b.resolve(connStr)
	if err != nil {
		return nil, err
	}

	// 1. Connect
	sess, err := openSession(ctx, b.driver, dsn, b.connectTimeout, b.log)
	if err != nil {
		b.log.WithError(err).Info("connect failed")
		return nil, err
	}
	defer sess.Close()

	result := &core.TestResult{
		Success:   true,
		Method:    b.driver,
		Connected: true,
		Message:   "Connection successful",
	}

	// 2. Probe
	for _, stmt := range b.probes {
		outcome, err := sess.probe(ctx, stmt, b.connectTimeout)
		entry := b.log.WithFields(logrus.Fields{"probe": stmt, "outcome": outcome.String()})
		switch outcome {
		case probeOK:
			entry.Debug("probe succeeded")
			result.Probe = stmt
			result.Verified = true
			return result, nil
		case probeRejected:
			entry.WithError(err).Debug("probe rejected")
		case probeAborted:
			entry.WithError(err).Info("connection lost during probe")
			return nil, classify(err, core.KindConnection)
		}
	}

	result.Message = "Connection successful (probe queries were rejected; data access not verified)"
	return result, nil
}

// Query executes sqlText verbatim and returns every row of its first result
// set. A statement that produces no result set is an empty success.
func (b *Bridge) Query(ctx context.Context, connStr, sqlText string) (*core.QueryResult, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	dsn, err := b.resolve(connStr)
	if err != nil {
		return nil, err
	}

	// 1. Connect
	sess, err := openSession(ctx, b.driver, dsn, b.queryTimeout, b.log)
	if err != nil {
		b.log.WithError(err).Info("connect failed")
		return nil, err
	}
	defer sess.Close()

	result := &core.QueryResult{
		Success: true,
		Method:  b.driver,
		Data:    []core.Row{},
		Columns: []string{},
	}

	// 2. Execute and fetch
	rs, err := sess.fetchAll(ctx, sqlText, b.queryTimeout)
	if err != nil {
		if !isTimeout(err) && !core.IsPanic(err) && isNoResultSet(err) {
			b.log.WithError(err).Debug("statement produced no result set")
			return result, nil
		}
		return nil, classify(err, core.KindStatement)
	}

	// 3. Map results
	result.Columns = rs.columns
	result.Data = rs.rows
	result.RowCount = len(rs.rows)
	if rs.more {
		result.Warning = "statement returned multiple result sets; only the first is included in data"
	}
	b.log.WithFields(logrus.Fields{"columns": len(rs.columns), "rows": result.RowCount}).Debug("query complete")
	return result, nil
}

// ready fails with KindCapability when the configured driver cannot be used.
func (b *Bridge) ready() error {
	if b.driver == odbc.DriverName && !b.runtime.ODBCAvailable {
		return core.NewError(core.KindCapability, "%s", odbc.InstallHint())
	}
	if !b.runtime.DriverRegistered {
		return core.NewError(core.KindCapability, "database/sql driver %q is not compiled into this build", b.driver)
	}
	return nil
}

// resolve opens "enc:" connection strings and passes others through.
func (b *Bridge) resolve(connStr string) (string, error) {
	if !IsEncrypted(connStr) {
		return connStr, nil
	}
	if b.key == nil {
		return "", core.NewError(core.KindUsage, "encrypted connection string given but no key source is configured")
	}
	secret, err := b.key()
	if err != nil {
		return "", &core.Error{Kind: core.KindUsage, Message: "encrypted connection string given but no key is available: " + err.Error(), Err: err}
	}
	svc, err := NewEncryptionService(secret)
	if err != nil {
		return "", &core.Error{Kind: core.KindUsage, Message: "invalid ODBCBRIDGE_KEY: " + err.Error(), Err: err}
	}
	dsn, err := svc.Open(connStr)
	if err != nil {
		return "", &core.Error{Kind: core.KindUsage, Message: "decrypt connection string: " + err.Error(), Err: err}
	}
	return dsn, nil
}

// DetectRuntime probes ODBC support once at startup.
func DetectRuntime(driverName string) *core.Runtime {
	rt := &core.Runtime{
		Driver:           driverName,
		DriverRegistered: driverRegistered(driverName),
		GoVersion:        runtime.Version(),
	}
	ok, err := odbc.Probe()
	rt.ODBCAvailable = ok
	if err != nil {
		rt.ODBCError = err.Error()
	}
	return rt
}

func driverRegistered(name string) bool {
	return slices.Contains(sql.Drivers(), name)
}
