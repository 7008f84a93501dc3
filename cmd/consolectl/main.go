package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"invoice-console/internal/app"
	"invoice-console/internal/config"
	"invoice-console/internal/domain"
	"invoice-console/internal/invoice"
	"invoice-console/internal/onboarding"
	"invoice-console/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "consolectl:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "consolectl",
		Usage: "manage the invoice console session from a terminal",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log backend requests"},
		},
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "sign in and store the credential",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", EnvVars: []string{"CONSOLE_PASSWORD"}, Required: true},
				},
				Action: withApp(login),
			},
			{
				Name:   "logout",
				Usage:  "forget the stored credential",
				Action: withApp(logout),
			},
			{
				Name:   "session",
				Usage:  "print the current session state",
				Action: withApp(sessionState),
			},
			{
				Name:   "onboarding",
				Usage:  "print whether a company profile is registered",
				Action: withApp(onboardingState),
			},
			{
				Name:  "invoice",
				Usage: "invoice utilities",
				Subcommands: []*cli.Command{
					{
						Name:      "pdf",
						Usage:     "render an invoice to a PDF file",
						ArgsUsage: "<invoice-id>",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "destination file (default invoice-<id>.pdf)"},
						},
						Action: withApp(invoicePDF),
					},
				},
			},
		},
	}
}

type action func(c *cli.Context, a *app.App) error

func withApp(fn action) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		level := "warn"
		if c.Bool("verbose") {
			level = "debug"
		}
		logger := app.NewLogger(level)
		logger.SetOutput(os.Stderr)

		a, err := app.New(c.Context, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(c, a)
	}
}

func login(c *cli.Context, a *app.App) error {
	err := a.Auth.Login(c.Context, domain.LoginInput{
		Email:    c.String("email"),
		Password: c.String("password"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "logged in")
	return nil
}

func logout(c *cli.Context, a *app.App) error {
	if err := a.Auth.Logout(c.Context); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "logged out")
	return nil
}

func sessionState(c *cli.Context, a *app.App) error {
	state, err := a.Guard.State(c.Context)
	if err != nil {
		return err
	}
	if state != session.StateAuthenticated {
		fmt.Fprintln(c.App.Writer, state)
		return nil
	}

	token, _, err := a.Tokens.Get(c.Context)
	if err != nil {
		return err
	}
	exp, err := session.ExpiresAt(token)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s (expires %s)\n", state, exp.Local().Format("2006-01-02 15:04:05"))
	return nil
}

// requireSession fails unless the stored credential is live. Expired
// credentials are cleared on the way, as a navigation would.
func requireSession(c *cli.Context, a *app.App) error {
	d, err := a.Guard.Check(c.Context, session.HomePath)
	if err != nil {
		return err
	}
	if !d.Render {
		return cli.Exit("not logged in, run consolectl login", 2)
	}
	return nil
}

func onboardingState(c *cli.Context, a *app.App) error {
	if err := requireSession(c, a); err != nil {
		return err
	}

	gate := onboarding.NewGate(a.Company, a.Logger.WithField("component", "onboarding"))
	defer gate.Unmount()

	res := gate.Resolve(c.Context)
	if res.Err != nil {
		fmt.Fprintf(c.App.ErrWriter, "company check failed: %v\n", res.Err)
	}
	if res.Render() {
		fmt.Fprintf(c.App.Writer, "%s: %s\n", res.State, res.Company.CompanyName)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "%s: register a company at %s\n", res.State, onboarding.RegisterCompanyPath)
	return nil
}

func invoicePDF(c *cli.Context, a *app.App) error {
	id := c.Args().First()
	if id == "" {
		return cli.Exit("invoice id is required", 2)
	}
	if err := requireSession(c, a); err != nil {
		return err
	}

	inv, err := a.Invoices.Get(c.Context, id)
	if err != nil {
		return fmt.Errorf("fetch invoice: %w", err)
	}
	doc := invoice.Document{Invoice: *inv}
	if doc.Company, err = a.Company.Get(c.Context); err != nil {
		a.Logger.WithError(err).Warn("failed to fetch company")
	}
	if inv.ClientID != "" {
		if doc.Client, err = a.Clients.Get(c.Context, inv.ClientID); err != nil {
			a.Logger.WithError(err).WithField("client_id", inv.ClientID).Warn("failed to fetch client")
		}
	}

	out := c.String("output")
	if out == "" {
		out = "invoice-" + id + ".pdf"
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := invoice.WritePDF(f, doc); err != nil {
		f.Close()
		return errors.Join(err, os.Remove(out))
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", out, err)
	}

	a.Logger.WithFields(logrus.Fields{"invoice_id": id, "file": out}).Debug("invoice written")
	fmt.Fprintln(c.App.Writer, out)
	return nil
}
