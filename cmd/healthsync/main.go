// Command healthsync pulls provider data into the HealthBot reading store
// and inspects connection status from the command line.
package main

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr, openFromEnv); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

// run parses args and executes the selected command
func run(args []string, out, logOut io.Writer, open opener) error {
	opts := &Options{out: out, logOut: logOut, open: open}
	opts.Init(commandName(args))

	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash|flags.PrintErrors)
	_, err := parser.ParseArgs(args)
	return err
}

// commandName returns the first argument that is not a flag
func commandName(args []string) string {
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			return a
		}
	}
	return ""
}
