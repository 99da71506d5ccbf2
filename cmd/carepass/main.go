// Command carepass runs the customer identity server and its operator tools.
//
//	carepass [-env-file .env] [serve]
//	carepass migrate
//	carepass customers list [-page N] [-per-page N]
//	carepass customers deactivate|reactivate|delete -id N
//	carepass customers set-password -id N
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"carepass/cmd/internal/app"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

var errUsage = errors.New("usage")

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("carepass", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env-file", ".env", "optional dotenv file merged into the environment")
	fs.Usage = func() { usage(stderr) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	rest := fs.Args()
	cmd := "serve"
	if len(rest) > 0 {
		cmd, rest = rest[0], rest[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = app.Run(*envFile)
	case "migrate":
		err = runMigrate(*envFile, stdout, stderr)
	case "customers":
		err = runCustomers(*envFile, rest, stdin, stdout, stderr)
	case "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "carepass: unknown command %q\n", cmd)
		usage(stderr)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		return 2
	default:
		fmt.Fprintf(stderr, "carepass: %v\n", err)
		return 1
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `usage: carepass [-env-file path] <command>

commands:
  serve                               run the HTTP server (default)
  migrate                             apply database migrations and exit
  customers list [-page N] [-per-page N]
  customers deactivate -id N          block login and revoke refresh tokens
  customers reactivate -id N
  customers set-password -id N        read a new password from the terminal
  customers delete -id N
`)
}
