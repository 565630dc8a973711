//go:build !windows && !cgo

package odbc

import "errors"

var errNoCgo = errors.New("ODBC support requires a cgo build linked against unixODBC")

func Probe() (bool, error) { return false, errNoCgo }

func SQLState(err error) (string, bool) { return "", false }

func Drivers() ([]string, error) { return nil, errNoCgo }
