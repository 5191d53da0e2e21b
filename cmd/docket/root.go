package main

import (
	"github.com/spf13/cobra"

	"github.com/JaimeStill/docket/internal/config"
)

type rootOptions struct {
	ConfigPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "docket",
		Short:         "Document intake and routing",
		Long:          "Docket fingerprints, classifies, stamps and files inbound scanned documents.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $DOCKET_CONFIG or config.toml)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newProcessCommand(opts))
	cmd.AddCommand(newVerifyCommand(opts))

	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.ConfigPath)
}
