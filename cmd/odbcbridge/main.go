// Command odbcbridge runs one ODBC operation per invocation and prints the
// result as a single JSON object on stdout.
//
// Usage:
//
//	odbcbridge check
//	odbcbridge drivers
//	odbcbridge test <connection_string>
//	odbcbridge query <connection_string> <sql_query>
package main

import (
	"os"

	"odbcbridge/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
