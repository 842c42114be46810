// Command emergencyclick is the terminal client: account management, the
// emergency contacts screen and the emergency click.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mmynk/emergencyclick/internal/client"
	"github.com/mmynk/emergencyclick/internal/config"
	"github.com/mmynk/emergencyclick/pkg/logging"
)

// shownError is an error the user has already seen as an alert.
type shownError struct{ err error }

func (e shownError) Error() string { return e.err.Error() }
func (e shownError) Unwrap() error { return e.err }

// app is the state shared by every subcommand.
type app struct {
	in  io.Reader
	out io.Writer

	server  string
	verbose bool

	cfg      config.Client
	backend  *client.Backend
	prompter *client.Prompter
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{in: os.Stdin, out: os.Stdout}
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		var shown shownError
		if !errors.As(err, &shown) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "emergencyclick",
		Short:         "Manage emergency contacts and send emergency clicks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.server, "server", "", "server URL (overrides EMERGENCYCLICK_SERVER)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		a.signupCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.contactsCmd(),
		a.clickCmd(),
		a.clicksCmd(),
	)
	return root
}

// setup loads configuration and the saved session.
func (a *app) setup() error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	logging.SetupWithLevel(level)

	cfg, err := config.LoadClient(".env")
	if err != nil {
		return err
	}
	if a.server != "" {
		cfg.Server = a.server
	}
	a.cfg = cfg

	session, err := client.LoadSession(cfg.SessionFile)
	if err != nil {
		return err
	}
	if session != nil && session.Server != cfg.Server {
		slog.Debug("ignoring session for another server", "session_server", session.Server, "server", cfg.Server)
		session = nil
	}

	a.backend = client.New(cfg.Server, nil, session, slog.Default())
	a.prompter = client.NewPrompter(a.in, a.out)
	return nil
}
