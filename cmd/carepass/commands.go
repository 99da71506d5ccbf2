package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"carepass/cmd/internal/app"
	"carepass/cmd/internal/auth/session"
)

// openBackend loads config and connects; logs go to stderr so command
// output on stdout stays parseable.
func openBackend(ctx context.Context, envFile string, stderr io.Writer) (app.Config, app.Logger, *app.Backend, error) {
	cfg, err := app.LoadConfig(envFile)
	if err != nil {
		return app.Config{}, nil, nil, err
	}
	log := app.NewLoggerTo(stderr, cfg.LogLevel, cfg.LogFormat)

	b, err := app.OpenBackend(ctx, cfg, log)
	if err != nil {
		return app.Config{}, nil, nil, err
	}
	return cfg, log, b, nil
}

func runMigrate(envFile string, stdout, stderr io.Writer) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	_, _, b, err := openBackend(ctx, envFile, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	res, err := b.Migrate(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: applied %d migration(s), schema version %d\n", b.Driver, len(res.Applied), res.Version)
	return nil
}

func runCustomers(envFile string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "carepass customers: missing subcommand")
		usage(stderr)
		return errUsage
	}
	sub, args := args[0], args[1:]

	fs := flag.NewFlagSet("customers "+sub, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var id int64
	page, perPage := 1, 20
	switch sub {
	case "list":
		fs.IntVar(&page, "page", 1, "page number, from 1")
		fs.IntVar(&perPage, "per-page", 20, "rows per page (max 100)")
	case "deactivate", "reactivate", "delete", "set-password":
		fs.Int64Var(&id, "id", 0, "customer id")
	default:
		fmt.Fprintf(stderr, "carepass customers: unknown subcommand %q\n", sub)
		return errUsage
	}
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if sub != "list" && id <= 0 {
		fmt.Fprintln(stderr, "carepass customers: -id is required")
		return errUsage
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, log, b, err := openBackend(ctx, envFile, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	if cfg.AutoMigrate {
		if _, err := b.Migrate(ctx); err != nil {
			return err
		}
	}

	svc, err := app.NewSessionService(cfg, b, log)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	switch sub {
	case "list":
		return listCustomers(ctx, svc, page, perPage, stdout)
	case "deactivate":
		err = svc.DeactivateAccount(ctx, now, id)
	case "reactivate":
		err = svc.ReactivateAccount(ctx, now, id)
	case "delete":
		err = svc.DeleteCustomer(ctx, id)
	case "set-password":
		var plain string
		plain, err = readNewPassword(stdin, stderr)
		if err == nil {
			err = svc.ResetPassword(ctx, now, id, plain)
		}
	}
	if err != nil {
		return describe(err, id)
	}
	fmt.Fprintf(stdout, "customer %d: %s ok\n", id, sub)
	return nil
}

func listCustomers(ctx context.Context, svc *session.Service, page, perPage int, stdout io.Writer) error {
	res, err := svc.ListCustomers(ctx, page, perPage)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tMOBILE\tNAME\tACTIVE\tCREATED\tLAST LOGIN")
	for _, c := range res.Customers {
		last := "-"
		if c.LastLogin != nil {
			last = c.LastLogin.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\t%s\n",
			c.ID, c.Email, c.MobileNumber, c.FullName(), c.IsActive,
			c.CreatedAt.UTC().Format(time.RFC3339), last)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "page %d (%d per page), %d total\n", res.Page, res.PerPage, res.Total)
	return nil
}

// readNewPassword prompts twice without echo on a terminal, and otherwise
// reads a single line so the command can be scripted.
func readNewPassword(stdin io.Reader, prompt io.Writer) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "New password: ")
		first, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		fmt.Fprint(prompt, "Repeat password: ")
		second, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		if string(first) != string(second) {
			return "", errors.New("passwords do not match")
		}
		return string(first), nil
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password on stdin")
	}
	return line, nil
}

func describe(err error, id int64) error {
	if ve, ok := session.IsValidation(err); ok {
		return errors.New(ve.Message)
	}
	if errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("customer %d not found", id)
	}
	return err
}
