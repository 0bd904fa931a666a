package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var rulesFlag string
	var populate bool

	ctx := newCommandContext(&configFlag, &rulesFlag)

	rootCmd := &cobra.Command{
		Use:           "grantcloser",
		Short:         "Close out planned, not ordered grants in KMD Nexus",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if populate {
				return runPopulate(cmd, ctx)
			}
			return runProcess(cmd, ctx)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.Flags().BoolVar(&populate, "queue", false, "Populate the work queue instead of processing it")
	rootCmd.Flags().StringVar(&rulesFlag, "excel-file", "", "Rule workbook (default ./Regelsæt.xlsx)")

	rootCmd.AddCommand(newQueueCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))

	return rootCmd
}
