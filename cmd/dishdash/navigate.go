package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newNavigateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "navigate PATH",
		Short: "Show where the route guards send you for PATH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := a.client.Resolve(args[0], nil)
			if err != nil {
				return err
			}
			a.client.Navigate(args[0], nil)

			out := cmd.OutOrStdout()
			if loc.Path == args[0] || loc.String() == args[0] {
				fmt.Fprintln(out, pterm.Success.Sprintf("Allowed: %s", loc.String()))
				return nil
			}
			fmt.Fprintln(out, pterm.Warning.Sprintf("Redirected: %s -> %s", args[0], loc.String()))
			return nil
		},
	}
}
