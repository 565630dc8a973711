// Package cli turns one process invocation into exactly one JSON envelope on
// stdout and an exit code.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"odbcbridge/internal/config"
	"odbcbridge/internal/core"
	"odbcbridge/internal/data"
	"odbcbridge/internal/keychain"
	"odbcbridge/internal/logger"
	"odbcbridge/internal/odbc"
	"odbcbridge/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Version holds the bridge version reported by check.
// This value is typically set at build time using -ldflags.
var Version = "0.0.0-dev"

// Exit codes.
const (
	ExitOK       = 0 // an envelope was produced, success or handled failure
	ExitUsage    = 1
	ExitInternal = 2
)

// App holds everything one invocation needs.
type App struct {
	cfg     *config.Config
	runtime *core.Runtime
	bridge  *service.Bridge
	audit   core.AuditRepository
	log     *logrus.Entry

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	invocation string
	req        core.Request
	out        interface{}
}

// NewApp wires an App. audit may be nil.
func NewApp(cfg *config.Config, rt *core.Runtime, listDrivers core.DriverLister, key core.KeySource, audit core.AuditRepository, stdin io.Reader, stdout, stderr io.Writer) *App {
	id := uuid.NewString()
	log := logger.Log.WithField("invocation", id)
	return &App{
		cfg:        cfg,
		runtime:    rt,
		bridge:     service.NewBridge(rt, cfg, listDrivers, key, log),
		audit:      audit,
		log:        log,
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
		invocation: id,
	}
}

// Run is the process entry point: it loads configuration, probes the
// runtime once and executes args.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := config.Load()
	if err := logger.Init(stderr, cfg.LogDir, cfg.LogLevel); err != nil {
		logger.Log.WithError(err).Warn("log file unavailable, logging to stderr only")
	}
	for _, w := range cfg.Warnings {
		logger.Log.Warn(w)
	}

	rt := service.DetectRuntime(cfg.Driver)
	if !rt.ODBCAvailable {
		logger.Log.WithField("detail", rt.ODBCError).Debug("ODBC driver manager not available")
	}

	var audit core.AuditRepository
	if cfg.AuditDBPath != "" {
		db, err := data.OpenAuditDB(cfg.AuditDBPath)
		if err != nil {
			logger.Log.WithError(err).Warn("audit database unavailable, invocation not recorded")
		} else {
			defer db.Close()
			audit = data.NewAuditRepo(db)
		}
	}

	app := NewApp(cfg, rt, odbc.Drivers, keychain.KeySource(cfg.BridgeKey), audit, stdin, stdout, stderr)
	return app.Run(context.Background(), args)
}

// Run executes one command and prints its envelope.
func (a *App) Run(ctx context.Context, args []string) int {
	start := time.Now()

	err := a.execute(ctx, args)
	a.record(ctx, start, err)

	if err != nil {
		return a.fail(err)
	}
	if a.out == nil {
		// help output only
		return ExitOK
	}
	a.write(a.out)
	return ExitOK
}

// execute runs the cobra tree, turning a panic into an unexpected error.
// Deferred connection cleanup in the bridge runs while the panic unwinds, so
// no handle outlives the envelope. Panics inside driver calls are recovered
// by the bridge and arrive here as errors.
func (a *App) execute(ctx context.Context, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = core.PanicError(r, debug.Stack())
		}
	}()

	root := a.rootCommand()
	root.SetArgs(canonical(args))
	err = root.ExecuteContext(ctx)

	// Bridge errors are always tagged, so an untagged one came from
	// cobra's own argument handling.
	var tagged *core.Error
	if err != nil && !errors.As(err, &tagged) {
		err = core.WrapError(core.KindUsage, err)
	}
	return err
}

// canonical lowercases a recognised command name so "QUERY" and "Query"
// select the query command. The result is never nil: cobra falls back to
// os.Args for a nil slice.
func canonical(args []string) []string {
	if len(args) == 0 {
		return []string{}
	}
	c, ok := core.ParseCommand(args[0])
	if !ok {
		return args
	}
	return append([]string{string(c)}, args[1:]...)
}

// fail prints the failure envelope for err and returns the exit code.
func (a *App) fail(err error) int {
	f := &core.Failure{
		Success:       false,
		Method:        a.cfg.Driver,
		Error:         err.Error(),
		ErrorKind:     core.KindOf(err),
		ODBCAvailable: a.runtime.ODBCAvailable,
	}
	var e *core.Error
	if errors.As(err, &e) {
		f.ErrorCode = e.Code
		f.Traceback = e.Stack
	}
	if a.req.Command == core.CommandTest {
		connected := false
		f.Connected = &connected
	}

	entry := a.log.WithFields(logrus.Fields{"kind": f.ErrorKind, "code": f.ErrorCode})
	if f.ErrorKind == core.KindUnexpected {
		entry.WithError(err).Error("command failed")
	} else {
		entry.WithError(err).Info("command failed")
	}

	a.write(f)
	return exitCode(f.ErrorKind)
}

func exitCode(kind core.ErrorKind) int {
	switch kind {
	case core.KindUsage:
		return ExitUsage
	case core.KindUnexpected:
		return ExitInternal
	}
	return ExitOK
}

// write emits v as a single line on stdout. HTML escaping is off so SQL and
// connection text reach the host unchanged.
func (a *App) write(v interface{}) {
	enc := json.NewEncoder(a.stdout)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		a.log.WithError(err).Error("write envelope")
		fmt.Fprintf(a.stderr, "odbcbridge: write envelope: %v\n", err)
	}
}

// record appends the invocation to the audit store. Failures are logged and
// never change the envelope.
func (a *App) record(ctx context.Context, start time.Time, err error) {
	if a.audit == nil {
		return
	}
	entry := &core.AuditLog{
		InvocationID: a.invocation,
		Timestamp:    start.UTC(),
		Command:      string(a.req.Command),
		Driver:       a.cfg.Driver,
		Target:       logger.Mask(a.req.ConnectionString),
		DurationMs:   time.Since(start).Milliseconds(),
		Status:       "success",
	}
	if err != nil {
		entry.Status = "failure"
		entry.ErrorMessage = err.Error()
	}
	if q, ok := a.out.(*core.QueryResult); ok {
		entry.RowCount = q.RowCount
	}
	if auditErr := a.audit.Create(ctx, entry); auditErr != nil {
		a.log.WithError(auditErr).Warn("record audit log")
	}
}
