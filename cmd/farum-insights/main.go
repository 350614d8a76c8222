package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/farum-insights/internal/adapters/catalog"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "farum-insights",
		Short:         "Behavioral analytics, crisis detection and ethical experiments for Farum",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (yaml, json or toml)")

	root.AddCommand(newServeCmd(&configFile), newValidateExperimentsCmd())
	return root
}

func newValidateExperimentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-experiments <catalog.yaml>",
		Short: "Check an experiment catalog against the ethical guardrails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgs, err := catalog.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d experiment(s) OK\n", len(cfgs))
			return nil
		},
	}
}
