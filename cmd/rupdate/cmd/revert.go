package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Elektrobit/rupdate/pkg/installer"
)

var revertCmd = &cobra.Command{
	Use:   "revert",
	Short: "Abandon an in-progress or untested update",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInstaller(true, func(inst *installer.Installer) error {
			return inst.Revert()
		})
	},
}

func init() {
	rootCmd.AddCommand(revertCmd)
}
