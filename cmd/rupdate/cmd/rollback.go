package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Elektrobit/rupdate/pkg/installer"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Swap every rollback-eligible set back to its previous variant",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInstaller(true, func(inst *installer.Installer) error {
			return inst.Rollback()
		})
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}
