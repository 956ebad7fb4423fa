package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "oq",
		Short:         "Outreach quota (oq): daily account allocations for sales agents",
		Long:          "oq hands each sales agent a fixed daily list of accounts to contact, skipping accounts contacted in the last 30 days and carrying unused quota into the next day.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return app.close()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAllocationCmd(app),
		newAccountCmd(app),
		newServeCmd(app),
	)

	return rootCmd
}
