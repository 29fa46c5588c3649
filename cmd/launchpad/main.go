// Command launchpad is the operator CLI for a Launchpad store: it migrates
// the schema, inspects schedules, presales and the event journal, and runs
// reconciliation.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

const usage = `usage: launchpad [global flags] <command> [flags]

commands:
  migrate              apply pending store migrations
  schedules            list vesting schedules
  presales             list presales
  events               list journal records
  reconcile            audit the ledgers' invariants
  config init [path]   write a default configuration file

global flags:
`

var errUsage = errors.New("launchpad: invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	case errors.Is(err, errFindings):
		return 3
	default:
		return 1
	}
}

// globals are the flags accepted before the command name.
type globals struct {
	configPath string
	output     string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var g globals
	fs := pflag.NewFlagSet("launchpad", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.StringVarP(&g.configPath, "config", "c", os.Getenv("LAUNCHPAD_CONFIG"), "configuration file (yaml)")
	fs.StringVarP(&g.output, "output", "o", "text", "output format: text, json or yaml")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errUsage
	}
	if _, err := newPrinter(stdout, g.output); err != nil {
		return err
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "migrate":
		return runMigrate(ctx, g, cmdArgs, stdout, stderr)
	case "schedules":
		return runSchedules(ctx, g, cmdArgs, stdout, stderr)
	case "presales":
		return runPresales(ctx, g, cmdArgs, stdout, stderr)
	case "events":
		return runEvents(ctx, g, cmdArgs, stdout, stderr)
	case "reconcile":
		return runReconcile(ctx, g, cmdArgs, stdout, stderr)
	case "config":
		return runConfig(g, cmdArgs, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "launchpad: unknown command %q\n", cmd)
		fs.Usage()
		return errUsage
	}
}
