package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/emergencyclick/internal/client"
)

// password returns the --password flag, then EMERGENCYCLICK_PASSWORD, then
// asks on the terminal.
func (a *app) password(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if v := os.Getenv("EMERGENCYCLICK_PASSWORD"); v != "" {
		return v, nil
	}
	return a.prompter.ReadLine("Password: ")
}

func (a *app) signupCmd() *cobra.Command {
	var email, username, pass string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := a.password(pass)
			if err != nil {
				return err
			}
			s, err := a.backend.Signup(cmd.Context(), email, username, pw)
			if err != nil {
				return err
			}
			if err := s.Save(a.cfg.SessionFile); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed up as %s (%s)\n", s.User.Username, s.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&username, "username", "", "display name")
	cmd.Flags().StringVar(&pass, "password", "", "password (at least 8 letters and digits)")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("username")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var email, pass string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to an existing account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := a.password(pass)
			if err != nil {
				return err
			}
			s, err := a.backend.Login(cmd.Context(), email, pw)
			if err != nil {
				return err
			}
			if err := s.Save(a.cfg.SessionFile); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s\n", s.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&pass, "password", "", "password")
	cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.backend.Logout()
			if err := client.ClearSession(a.cfg.SessionFile); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.backend.CurrentUser(cmd.Context()) == nil {
				return errNotLoggedIn
			}
			u, err := a.backend.Whoami(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s <%s>\n", u.Username, u.Email)
			return nil
		},
	}
}

var errNotLoggedIn = errors.New("not logged in; run `emergencyclick login`")
