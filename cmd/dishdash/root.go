package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/dishdash-go/pkg/dishdash"
)

// app carries what every command needs. connect is swapped out in tests.
type app struct {
	envFile  string
	baseURL  string
	logLevel string

	connect func(a *app) (*dishdash.Client, error)
	client  *dishdash.Client
}

func newApp() *app {
	return &app{connect: connectFromEnv}
}

// connectFromEnv builds a client from DISHDASH_* settings and the OS keyring
func connectFromEnv(a *app) (*dishdash.Client, error) {
	var files []string
	if a.envFile != "" {
		files = append(files, a.envFile)
	}
	cfg, err := dishdash.LoadConfig(files...)
	if err != nil {
		return nil, err
	}
	if a.baseURL != "" {
		cfg.BaseURL = a.baseURL
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	opts, err := dishdash.OptionsFromConfig(cfg, dishdash.NewLogger(os.Stderr, cfg.LogLevel))
	if err != nil {
		return nil, err
	}
	opts.Notifier = dishdash.NewTerminalNotifier(os.Stderr)
	return dishdash.NewClient(opts)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "dishdash",
		Short:         "DishDash marketplace from the terminal",
		Long:          `dishdash signs you in to the DishDash marketplace, browses meals and places and tracks orders. The session is kept in the OS keyring.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.client != nil {
				return nil
			}
			c, err := a.connect(a)
			if err != nil {
				return err
			}
			a.client = c
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.client != nil {
				a.client.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "Read settings from this file instead of .env")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "Override the API base URL")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newProfileCmd(a),
		newPasswordCmd(a),
		newMealsCmd(a),
		newOrdersCmd(a),
		newNavigateCmd(a),
	)
	return root
}
