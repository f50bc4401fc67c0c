package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "examportal",
		Short:         "Examination cell document portal",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadDotEnv(envFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file loaded before reading configuration")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the web portal (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe()
			},
		},
		newHashPasswordCmd(),
	)
	return root
}
