package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Elektrobit/rupdate/pkg/installer"
	"github.com/Elektrobit/rupdate/pkg/statemachine"
)

var commitBootRetries int16

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Mark an installed update ready to be tested at next boot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInstaller(true, func(inst *installer.Installer) error {
			return inst.Commit(commitBootRetries)
		})
	},
}

func init() {
	commitCmd.Flags().Int16VarP(&commitBootRetries, "boot-retries", "r", statemachine.DefaultBootRetries, "number of boot attempts before automatic revert")
	rootCmd.AddCommand(commitCmd)
}
