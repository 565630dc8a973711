package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"odbcbridge/internal/config"
	"odbcbridge/internal/core"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestBridge(t *testing.T, driverName string, lister core.DriverLister) *Bridge {
	t.Helper()
	log, _ := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	rt := &core.Runtime{
		ODBCAvailable:    true,
		Driver:           driverName,
		DriverRegistered: driverRegistered(driverName),
		GoVersion:        "go-test",
	}
	cfg := &config.Config{
		Driver:         driverName,
		ConnectTimeout: 500 * time.Millisecond,
		QueryTimeout:   500 * time.Millisecond,
		DriverFilter:   []string{"tally", "odbc"},
	}
	key := func() (string, error) { return testKey, nil }
	return NewBridge(rt, cfg, lister, key, logrus.NewEntry(log))
}

func requireKind(t *testing.T, err error, kind core.ErrorKind) *core.Error {
	t.Helper()
	require.Error(t, err)
	var e *core.Error
	require.True(t, errors.As(err, &e), "expected *core.Error, got %T", err)
	assert.Equal(t, kind, e.Kind)
	return e
}

func TestCheck(t *testing.T) {
	b := newTestBridge(t, fakeDriverName, nil)
	b.runtime.ODBCAvailable = false
	b.runtime.ODBCError = "libodbc.so.2: cannot open shared object file"

	res := b.Check("1.2.3")
	assert.True(t, res.Success)
	assert.Equal(t, fakeDriverName, res.Method)
	assert.False(t, res.ODBCAvailable)
	assert.True(t, res.DriverRegistered)
	assert.Equal(t, "1.2.3", res.Version)
	assert.Equal(t, "go-test", res.RuntimeVersion)
	assert.Contains(t, res.Detail, "libodbc")
}

func TestDrivers(t *testing.T) {
	lister := func() ([]string, error) {
		return []string{"SQL Server", "Tally ODBC Driver64", "PostgreSQL Unicode", "MySQL ODBC 8.0 Driver"}, nil
	}
	b := newTestBridge(t, fakeDriverName, lister)

	res, err := b.Drivers()
	require.NoError(t, err)
	assert.Len(t, res.AllDrivers, 4)
	assert.Equal(t, []string{"Tally ODBC Driver64", "MySQL ODBC 8.0 Driver"}, res.FilteredDrivers)
}

func TestDriversEmptyListEncodesAsArrays(t *testing.T) {
	b := newTestBridge(t, fakeDriverName, func() ([]string, error) { return nil, nil })

	res, err := b.Drivers()
	require.NoError(t, err)
	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"method":"bridgefake","all_drivers":[],"filtered_drivers":[]}`, string(out))
}

func TestDriversWithoutODBC(t *testing.T) {
	called := false
	b := newTestBridge(t, fakeDriverName, func() ([]string, error) { called = true; return nil, nil })
	b.runtime.ODBCAvailable = false

	_, err := b.Drivers()
	requireKind(t, err, core.KindCapability)
	assert.False(t, called)
}

func TestDriversEnumerationFailure(t *testing.T) {
	b := newTestBridge(t, fakeDriverName, func() ([]string, error) { return nil, errors.New("SQLDrivers returned -1") })

	_, err := b.Drivers()
	e := requireKind(t, err, core.KindConnection)
	assert.Contains(t, e.Error(), "SQLDrivers returned -1")
}

func TestTest(t *testing.T) {
	tests := []struct {
		name     string
		dsn      string
		probe    string
		verified bool
		message  string
	}{
		{"first probe accepted", "ok", "SELECT 1", true, "Connection successful"},
		{"falls through to second probe", "reject-first", "SELECT TOP 1 * FROM COMPANY", true, "Connection successful"},
		{"all probes rejected", "reject-all", "", false, "Connection successful (probe queries were rejected; data access not verified)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBridge(t, fakeDriverName, nil)

			res, err := b.Test(context.Background(), tt.dsn)
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.True(t, res.Connected)
			assert.Equal(t, tt.probe, res.Probe)
			assert.Equal(t, tt.verified, res.Verified)
			assert.Equal(t, tt.message, res.Message)
		})
	}
}

func TestTestConnectRefused(t *testing.T) {
	b := newTestBridge(t, fakeDriverName, nil)

	_, err := b.Test(context.Background(), "refuse")
	e := requireKind(t, err, core.KindConnection)
	assert.Equal(t, "08001", e.Code)
	assert.Contains(t, e.Error(), "Connection refused")
}

func TestTestConnectTimeout(t *testing.T) {
	b := newTestBridge(t, fakeDriverName, nil)
	b.connectTimeout = 50 * time.Millisecond

	start := time.Now()
	_, err := b.Test(context.Background(), "hang")
	e := requireKind(t, err, core.KindConnection)
	assert.Less(t, time.Since(start), blockFor)
	assert.Contains(t, e.Error(), "connect timed out after 50ms")
}

func TestTestConnectionLostDuringProbe(t *testing.T) {
	b := newTestBridge(t, fakeDriverName, nil)

	_, err := b.Test(context.Background(), "lost")
	e := requireKind(t, err, core.KindConnection)
	assert.Equal(t, "08006", e.Code)
}

func TestTestProbeTimeoutAborts(t *testing.T) {
	b := newTestBridge(t, fakeDriverName, nil)
	b.connectTimeout = 50 * time.Millisecond

	start := time.Now()
	_, err := b.Test(context.Background(), "slow-query")
	e := requireKind(t, err, core.KindConnection)
	assert.Less(t, time.Since(start), blockFor)
	assert.Contains(t, e.Error(), "probe query timed out")
}

func TestQuery(t *testing.T) {
	b := newTestBridge(t, fakeDriverName, nil)

	res, err := b.Query(context.Background(), "ok", "SELECT * FROM ledger")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.RowCount)
	assert.Len(t, res.Data, res.RowCount)
	assert.Equal(t, []string{"id", "name", "amount", "name", "created", "memo"}, res.Columns)
	assert.Empty(t, res.Warning)

	out, err := json.Marshal(res.Data)
	require.NoError(t, err)
	assert.Equal(t,
		`[{"id":1,"name":"dup-1","amount":12.5,"created":"2024-03-01 09:30:00","memo":null},`+
			`{"id":2,"name":"dup-2","amount":-3,"created":"2024-03-02 00:00:00","memo":"café"}]`,
		string(out))
}

func TestQueryNoResultSet(t *testing.T) {
	b := newTestBridge(t, fakeDriverName, nil)

	res, err := b.Query(context.Background(), "noresult", "UPDATE ledger SET memo = NULL")
	require.NoError(t, err)
	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"method":"bridgefake","data":[],"columns":[],"row_count":0}`, string(out))
}

func TestQueryMultipleResultSets(t *testing.T) {
	b := newTestBridge(t, fakeDriverName, nil)

	res, err := b.Query(context.Background(), "multi", "EXEC report")
	require.NoError(t, err)
	assert.Equal(t, 1, res.RowCount)
	assert.Contains(t, res.Warning, "multiple result sets")
}

func TestQueryFailures(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		kind core.ErrorKind
		code interface{}
	}{
		{"rejected statement", "reject-all", core.KindStatement, "42601"},
		{"fetch failure", "fetch-fail", core.KindStatement, "22012"},
		{"connection lost", "lost", core.KindConnection, "08006"},
		{"connect refused", "refuse", core.KindConnection, "08001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBridge(t, fakeDriverName, nil)

			res, err := b.Query(context.Background(), tt.dsn, "SELECT 1")
			assert.Nil(t, res)
			e := requireKind(t, err, tt.kind)
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestQueryTimeout(t *testing.T) {
	b := newTestBridge(t, fakeDriverName, nil)
	b.queryTimeout = 50 * time.Millisecond

	start := time.Now()
	_, err := b.Query(context.Background(), "slow-query", "SELECT * FROM big")
	e := requireKind(t, err, core.KindConnection)
	assert.Less(t, time.Since(start), blockFor)
	assert.Contains(t, e.Error(), "query timed out after 50ms")
}

func TestDriverPanicIsRecovered(t *testing.T) {
	b := newTestBridge(t, fakeDriverName, nil)

	_, err := b.Query(context.Background(), "panic", "SELECT 1")
	e := requireKind(t, err, core.KindUnexpected)
	assert.True(t, core.IsPanic(err))
	assert.Equal(t, "Script error: driver fault in QueryContext", e.Error())
	assert.Contains(t, e.Stack, "goroutine")

	_, err = b.Test(context.Background(), "panic")
	requireKind(t, err, core.KindUnexpected)
	assert.True(t, core.IsPanic(err))
}

func TestBoundedRecoversPanic(t *testing.T) {
	_, err := bounded(context.Background(), time.Second, "op", func(context.Context) (int, error) {
		var m map[string]int
		m["x"] = 1
		return 0, nil
	})
	e := requireKind(t, err, core.KindUnexpected)
	assert.Contains(t, e.Message, "Script error: assignment to entry in nil map")
	assert.NotEmpty(t, e.Stack)
}

func TestQueryEncryptedConnectionString(t *testing.T) {
	b := newTestBridge(t, fakeDriverName, nil)
	svc, err := NewEncryptionService(testKey)
	require.NoError(t, err)
	sealed, err := svc.Seal("ok")
	require.NoError(t, err)

	res, err := b.Query(context.Background(), sealed, "SELECT * FROM ledger")
	require.NoError(t, err)
	assert.Equal(t, 2, res.RowCount)
}

func TestResolveFailures(t *testing.T) {
	b := newTestBridge(t, fakeDriverName, nil)

	_, err := b.Query(context.Background(), "enc:not-base64!", "SELECT 1")
	requireKind(t, err, core.KindUsage)

	b.key = func() (string, error) { return "", errors.New("ODBCBRIDGE_KEY is not set") }
	_, err = b.Query(context.Background(), "enc:AAAA", "SELECT 1")
	e := requireKind(t, err, core.KindUsage)
	assert.Contains(t, e.Error(), "ODBCBRIDGE_KEY is not set")

	b.key = func() (string, error) { return "short", nil }
	_, err = b.Query(context.Background(), "enc:AAAA", "SELECT 1")
	requireKind(t, err, core.KindUsage)

	b.key = nil
	_, err = b.Query(context.Background(), "enc:AAAA", "SELECT 1")
	requireKind(t, err, core.KindUsage)
}

func TestReady(t *testing.T) {
	b := newTestBridge(t, "odbc", nil)
	b.runtime.ODBCAvailable = false
	_, err := b.Test(context.Background(), "DSN=Tally")
	requireKind(t, err, core.KindCapability)

	b = newTestBridge(t, "no-such-driver", nil)
	_, err = b.Query(context.Background(), "x", "SELECT 1")
	requireKind(t, err, core.KindCapability)
}

func TestQuerySQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE ledger (id INTEGER PRIMARY KEY, name TEXT, amount REAL, memo TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO ledger (name, amount, memo) VALUES ('Cash', 100.25, NULL), ('Bank', 0.5, 'note')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	b := newTestBridge(t, "sqlite", nil)

	res, err := b.Query(context.Background(), path, "SELECT id, name, amount, memo FROM ledger ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "amount", "memo"}, res.Columns)
	out, err := json.Marshal(res.Data)
	require.NoError(t, err)
	assert.Equal(t,
		`[{"id":1,"name":"Cash","amount":100.25,"memo":null},{"id":2,"name":"Bank","amount":0.5,"memo":"note"}]`,
		string(out))

	_, err = b.Query(context.Background(), path, "SELECT * FROM missing_table")
	e := requireKind(t, err, core.KindStatement)
	assert.Contains(t, e.Error(), "missing_table")

	tr, err := b.Test(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, tr.Verified)
	assert.Equal(t, "SELECT 1", tr.Probe)
}
