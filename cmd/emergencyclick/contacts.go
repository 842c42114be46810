package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmynk/emergencyclick/internal/registry"
)

// openScreen builds a contacts screen over the remote backend and loads it.
func (a *app) openScreen(ctx context.Context) (*registry.Session, error) {
	rc, err := a.cfg.RegistryConfig()
	if err != nil {
		return nil, err
	}
	rc.Logger = slog.Default()

	reg := registry.New(a.backend, a.backend, a.backend, rc)
	s := registry.NewSession(reg, a.prompter, a.prompter)
	s.Mount(ctx)
	return s, nil
}

func (a *app) printList(list []string) {
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No emergency contacts.")
		return
	}
	for _, e := range list {
		fmt.Fprintln(a.out, e)
	}
}

func (a *app) contactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contacts",
		Aliases: []string{"c"},
		Short:   "Manage emergency contact emails",
	}
	cmd.AddCommand(
		a.contactsListCmd(),
		a.contactsAddCmd(),
		a.contactsRemoveCmd(),
		a.contactsSearchCmd(),
		a.contactsShellCmd(),
	)
	return cmd
}

func (a *app) contactsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List emergency contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openScreen(cmd.Context())
			if err != nil {
				return err
			}
			a.printList(s.Contacts())
			return nil
		},
	}
}

func (a *app) contactsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add EMAIL",
		Short: "Add an emergency contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openScreen(cmd.Context())
			if err != nil {
				return err
			}
			return a.add(cmd.Context(), s, args[0])
		},
	}
}

func (a *app) contactsRemoveCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "remove EMAIL",
		Aliases: []string{"rm"},
		Short:   "Remove an emergency contact",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openScreen(cmd.Context())
			if err != nil {
				return err
			}
			a.prompter.Yes = yes
			return a.remove(cmd.Context(), s, args[0])
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (a *app) contactsSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "List contacts containing QUERY, ignoring case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openScreen(cmd.Context())
			if err != nil {
				return err
			}
			s.SetQuery(args[0])
			a.printList(s.Visible())
			return nil
		},
	}
}

func (a *app) contactsShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Open the contacts screen interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openScreen(cmd.Context())
			if err != nil {
				return err
			}
			return a.shell(cmd.Context(), s)
		},
	}
}

func (a *app) add(ctx context.Context, s *registry.Session, email string) error {
	s.SetInput(email)
	if err := s.Submit(ctx); err != nil {
		return shownError{err}
	}
	fmt.Fprintf(a.out, "Added %s\n", strings.TrimSpace(email))
	return nil
}

func (a *app) remove(ctx context.Context, s *registry.Session, email string) error {
	before := len(s.Contacts())
	err := s.Remove(ctx, email)
	if errors.Is(err, registry.ErrNotAuthenticated) {
		return errNotLoggedIn
	}
	if err != nil {
		return shownError{err}
	}
	if len(s.Contacts()) < before {
		fmt.Fprintf(a.out, "Removed %s\n", email)
	}
	return nil
}

const shellHelp = `Commands:
  list             show all contacts
  add EMAIL        add a contact
  rm EMAIL         remove a contact
  search [QUERY]   filter the list; no query clears the filter
  quit             leave`

// shell runs the contacts screen as a line-oriented loop. Failed operations
// have already been alerted and do not end the loop.
func (a *app) shell(ctx context.Context, s *registry.Session) error {
	fmt.Fprintln(a.out, shellHelp)
	for {
		line, err := a.prompter.ReadLine("> ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(a.out)
			return nil
		}
		if err != nil {
			return err
		}

		verb, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)
		switch verb {
		case "":
		case "list", "ls":
			a.printList(s.Visible())
		case "add":
			a.add(ctx, s, arg)
		case "rm", "remove":
			a.remove(ctx, s, arg)
		case "search":
			s.SetQuery(arg)
			a.printList(s.Visible())
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			fmt.Fprintln(a.out, shellHelp)
		default:
			fmt.Fprintf(a.out, "unknown command %q; type help\n", verb)
		}
	}
}
