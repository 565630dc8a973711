package cli

import (
	"io"
	"strings"

	"odbcbridge/internal/core"
	"odbcbridge/internal/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootCommand builds a fresh command tree bound to a. Flag parsing is off on
// every subcommand: connection strings and SQL are passed through verbatim,
// leading dashes included.
func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "odbcbridge <command> [args...]",
		Short:         "Run one ODBC operation and print the result as JSON",
		Long:          `odbcbridge is invoked by a host application to reach an ODBC data source. Each run executes one command and writes one JSON object to stdout.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return core.MissingCommandError()
			}
			a.req.Command = core.Command(args[0])
			return core.UnknownCommandError(args[0])
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetIn(a.stdin)
	root.SetOut(a.stderr)
	root.SetErr(a.stderr)

	root.AddCommand(
		&cobra.Command{
			Use:                "check",
			Short:              "Report ODBC availability and runtime version",
			Args:               cobra.ArbitraryArgs,
			DisableFlagParsing: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				a.begin(core.CommandCheck, "")
				a.out = a.bridge.Check(Version)
				return nil
			},
		},
		&cobra.Command{
			Use:                "drivers",
			Short:              "List the ODBC drivers known to the driver manager",
			Args:               cobra.ArbitraryArgs,
			DisableFlagParsing: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				a.begin(core.CommandDrivers, "")
				res, err := a.bridge.Drivers()
				if err != nil {
					return err
				}
				a.out = res
				return nil
			},
		},
		&cobra.Command{
			Use:                "test <connection_string>",
			Short:              "Connect and run a probe query",
			Args:               a.requireArgs(core.CommandTest, 1),
			DisableFlagParsing: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				a.begin(core.CommandTest, args[0])
				res, err := a.bridge.Test(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				a.out = res
				return nil
			},
		},
		&cobra.Command{
			Use:   "query <connection_string> <sql_query>",
			Short: "Execute one statement and return every row",
			Long: `Executes sql_query exactly as given and returns all rows of its first result set.
Pass - as sql_query to read the statement from stdin.`,
			Args:               a.requireArgs(core.CommandQuery, 2),
			DisableFlagParsing: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				a.begin(core.CommandQuery, args[0])
				sqlText, err := a.statement(cmd, args[1])
				if err != nil {
					return err
				}
				a.req.SQL = sqlText
				res, err := a.bridge.Query(cmd.Context(), args[0], sqlText)
				if err != nil {
					return err
				}
				a.out = res
				return nil
			},
		},
	)
	return root
}

// requireArgs rejects the command with its usage line when fewer than n
// positional arguments were given. Extra arguments are ignored.
func (a *App) requireArgs(c core.Command, n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			a.req.Command = c
			return core.UsageError(c)
		}
		return nil
	}
}

func (a *App) begin(c core.Command, connStr string) {
	a.req = core.Request{Command: c, ConnectionString: connStr}
	a.log.WithFields(logrus.Fields{
		"command": string(c),
		"target":  logger.Mask(connStr),
		"driver":  a.cfg.Driver,
	}).Debug("invocation started")
}

// statement returns arg, or the statement read from stdin when arg is "-".
func (a *App) statement(cmd *cobra.Command, arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", core.NewError(core.KindUsage, "read SQL from stdin: %v", err)
	}
	sqlText := strings.TrimSpace(string(b))
	if sqlText == "" {
		return "", core.UsageError(core.CommandQuery)
	}
	return sqlText, nil
}
