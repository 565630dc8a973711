package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the machine-readable failure class reported as error_kind.
type ErrorKind string

const (
	// KindCapability means the ODBC driver manager or the configured
	// database/sql driver is not available in this build or on this host.
	KindCapability ErrorKind = "capability_missing"
	// KindUsage means the arguments were rejected before any I/O happened.
	KindUsage ErrorKind = "usage"
	// KindConnection covers connect failures, timeouts and lost links.
	KindConnection ErrorKind = "connection"
	// KindStatement means the data source rejected the statement or the fetch.
	KindStatement ErrorKind = "statement"
	// KindUnexpected is anything else, bugs in the bridge included.
	KindUnexpected ErrorKind = "unexpected"
)

// Error carries a failure through the bridge together with its kind and the
// driver-specific code, if the driver exposed one.
type Error struct {
	Kind    ErrorKind
	Message string
	Code    interface{}
	Err     error

	// Stack is the goroutine trace of a recovered panic.
	Stack string
}

// Error returns Message when set and the wrapped driver message otherwise, so
// driver text reaches the caller verbatim.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError returns an error of the given kind with a fixed message.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError tags err with kind, keeping err's message.
func WrapError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf reports the kind of err, or KindUnexpected for untagged errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// PanicError reports a recovered panic together with the stack it was
// recovered on.
func PanicError(r interface{}, stack []byte) *Error {
	return &Error{Kind: KindUnexpected, Message: fmt.Sprintf("Script error: %v", r), Stack: string(stack)}
}

// IsPanic reports whether err carries a recovered panic.
func IsPanic(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Stack != ""
}

// UsageError builds the usage message for a command missing its arguments.
func UsageError(cmd Command) *Error {
	return NewError(KindUsage, "Usage: odbcbridge %s", strings.TrimSpace(string(cmd)+" "+cmd.Arguments()))
}

// UnknownCommandError lists the valid command set.
func UnknownCommandError(name string) *Error {
	return NewError(KindUsage, "Unknown command: %s. Available commands: %s", name, CommandList())
}

// MissingCommandError is returned when no command was given at all.
func MissingCommandError() *Error {
	return NewError(KindUsage, "Usage: odbcbridge <command> [args...]. Available commands: %s", CommandList())
}
