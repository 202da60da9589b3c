package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var outputFlag string
	var verboseFlag bool
	var jsonFlag bool

	ctx := newCommandContext(&configFlag, &outputFlag, &verboseFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:           "mycinema",
		Short:         "Czech/Slovak movie and show catalog with resolved Webshare links",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutputMode(outputFlag); err != nil {
				return err
			}
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", outputAuto, "Output format: auto, table or json")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Shorthand for --output json")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Also write logs to stderr")

	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newListsCommand(ctx))
	rootCmd.AddCommand(newSyncCommand(ctx))
	rootCmd.AddCommand(newRefreshCommand(ctx))
	rootCmd.AddCommand(newCatalogCommand(ctx))
	rootCmd.AddCommand(newLinksCommand(ctx))
	rootCmd.AddCommand(newBlacklistCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}
