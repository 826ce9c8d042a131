package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Elektrobit/rupdate/pkg/installer"
	"github.com/Elektrobit/rupdate/pkg/updateenv"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Dump the full decoded UpdateEnv",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInstaller(false, func(inst *installer.Installer) error {
			s, err := inst.State()
			if err != nil {
				return err
			}
			printEnv(s)
			return nil
		})
	},
}

func printEnv(s *updateenv.UpdateState) {
	fmt.Printf("version: %d\n", s.Version)
	fmt.Printf("hash_algorithm: %s\n", s.HashAlgorithm)
	fmt.Printf("revision: %d\n", s.Revision)
	fmt.Printf("remaining_tries: %d\n", s.RemainingTries)
	fmt.Printf("state: %s\n", s.State)
	fmt.Println("partition_selections:")
	for _, sel := range s.PartSel {
		fmt.Printf("  - name: %s\n", sel.Name.String())
		fmt.Printf("    active: %s\n", sel.Active)
		fmt.Printf("    rollback: %t\n", sel.Rollback)
		fmt.Printf("    affected: %t\n", sel.Affected)
	}
}

func init() {
	rootCmd.AddCommand(envCmd)
}
