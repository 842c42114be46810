package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/emergencyclick/internal/geo"
)

func (a *app) clickCmd() *cobra.Command {
	var lat, lon float64
	var deny bool
	cmd := &cobra.Command{
		Use:   "click",
		Short: "Send an emergency click from the given position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user := a.backend.CurrentUser(cmd.Context())
			if user == nil {
				return errNotLoggedIn
			}

			provider := geo.StaticProvider{Fix: geo.Fix{Latitude: lat, Longitude: lon}, Denied: deny}
			res, err := geo.NewClicker(provider, a.backend, nil).Click(cmd.Context(), user.Email)

			fmt.Fprintln(a.out, res.Text)
			if res.When != "" {
				fmt.Fprintln(a.out, res.When)
			}
			if err != nil && res.Click != nil {
				// Located but not reported.
				return err
			}
			if err != nil {
				return shownError{err}
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude in degrees")
	cmd.Flags().BoolVar(&deny, "deny", false, "simulate a refused location permission")
	cmd.MarkFlagRequired("lat")
	cmd.MarkFlagRequired("lon")
	return cmd
}

func (a *app) clicksCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "clicks",
		Short: "List past emergency clicks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.backend.CurrentUser(cmd.Context()) == nil {
				return errNotLoggedIn
			}
			if limit < 0 {
				return errors.New("--limit must not be negative")
			}
			clicks, err := a.backend.ListClicks(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(clicks) == 0 {
				fmt.Fprintln(a.out, "No clicks yet.")
			}
			for _, c := range clicks {
				fmt.Fprintf(a.out, "%s  %s\n", c.CapturedAt.Local().Format(time.DateTime), c.LocationText())
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of clicks")
	return cmd
}
