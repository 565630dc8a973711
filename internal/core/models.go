package core

import (
	"strings"
	"time"
)

// Command is one of the bridge's process-level operations.
type Command string

const (
	CommandTest    Command = "test"
	CommandQuery   Command = "query"
	CommandDrivers Command = "drivers"
	CommandCheck   Command = "check"
)

// Commands is the valid command set, in the order it is advertised.
var Commands = []Command{CommandTest, CommandQuery, CommandDrivers, CommandCheck}

// ParseCommand matches name case-insensitively against Commands.
func ParseCommand(name string) (Command, bool) {
	for _, c := range Commands {
		if strings.EqualFold(name, string(c)) {
			return c, true
		}
	}
	return "", false
}

// Arguments returns the positional argument synopsis of the command.
func (c Command) Arguments() string {
	switch c {
	case CommandTest:
		return "<connection_string>"
	case CommandQuery:
		return "<connection_string> <sql_query>"
	default:
		return ""
	}
}

// CommandList renders Commands as "test, query, drivers, check".
func CommandList() string {
	names := make([]string, len(Commands))
	for i, c := range Commands {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// Request is the invocation built once from argv.
type Request struct {
	Command          Command
	ConnectionString string
	SQL              string
}

// Runtime is the capability snapshot taken once at startup and handed to
// every command handler.
type Runtime struct {
	ODBCAvailable    bool
	ODBCError        string
	Driver           string
	DriverRegistered bool
	GoVersion        string
}

// Envelopes. Exactly one of these is printed per invocation.

type CheckResult struct {
	Success          bool   `json:"success"`
	Method           string `json:"method"`
	ODBCAvailable    bool   `json:"odbc_available"`
	RuntimeVersion   string `json:"runtime_version"`
	Version          string `json:"version"`
	Driver           string `json:"driver"`
	DriverRegistered bool   `json:"driver_registered"`
	Detail           string `json:"detail,omitempty"`
}

type DriversResult struct {
	Success         bool     `json:"success"`
	Method          string   `json:"method"`
	AllDrivers      []string `json:"all_drivers"`
	FilteredDrivers []string `json:"filtered_drivers"`
}

type TestResult struct {
	Success   bool   `json:"success"`
	Method    string `json:"method"`
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
	Probe     string `json:"probe,omitempty"`
	Verified  bool   `json:"verified"`
}

type QueryResult struct {
	Success  bool     `json:"success"`
	Method   string   `json:"method"`
	Data     []Row    `json:"data"`
	Columns  []string `json:"columns"`
	RowCount int      `json:"row_count"`
	Warning  string   `json:"warning,omitempty"`
}

type Failure struct {
	Success       bool        `json:"success"`
	Method        string      `json:"method"`
	Error         string      `json:"error"`
	ErrorKind     ErrorKind   `json:"error_kind"`
	ErrorCode     interface{} `json:"error_code,omitempty"`
	Connected     *bool       `json:"connected,omitempty"` // test only
	ODBCAvailable bool        `json:"odbc_available"`
	Traceback     string      `json:"traceback,omitempty"`
}

// AuditLog is one recorded invocation.
type AuditLog struct {
	ID           int64     `db:"id" json:"id"`
	InvocationID string    `db:"invocation_id" json:"invocation_id"`
	Timestamp    time.Time `db:"timestamp" json:"timestamp"`
	Command      string    `db:"command" json:"command"`
	Driver       string    `db:"driver" json:"driver"`
	Target       string    `db:"target" json:"target"` // masked connection string
	DurationMs   int64     `db:"duration_ms" json:"duration_ms"`
	Status       string    `db:"status" json:"status"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	RowCount     int       `db:"row_count" json:"row_count"`
}
