package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Elektrobit/rupdate/pkg/installer"
)

var finishCmd = &cobra.Command{
	Use:   "finish",
	Short: "Complete a successfully tested update",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInstaller(true, func(inst *installer.Installer) error {
			return inst.Finish()
		})
	},
}

func init() {
	rootCmd.AddCommand(finishCmd)
}
