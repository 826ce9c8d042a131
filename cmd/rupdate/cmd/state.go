package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Elektrobit/rupdate/pkg/installer"
	"github.com/Elektrobit/rupdate/pkg/updateenv"
)

var stateRaw bool

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the current update lifecycle state",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInstaller(false, func(inst *installer.Installer) error {
			s, err := inst.State()
			if err != nil {
				return err
			}
			if stateRaw {
				printStateRaw(s)
			} else {
				fmt.Println(s.State)
			}
			return nil
		})
	},
}

func printStateRaw(s *updateenv.UpdateState) {
	fmt.Printf("state=%s\n", s.State)
	fmt.Printf("revision=%d\n", s.Revision)
	fmt.Printf("remaining_tries=%d\n", s.RemainingTries)
	for _, sel := range s.PartSel {
		fmt.Printf("%s.active=%s\n", sel.Name.String(), sel.Active)
		fmt.Printf("%s.rollback=%t\n", sel.Name.String(), sel.Rollback)
		fmt.Printf("%s.affected=%t\n", sel.Name.String(), sel.Affected)
	}
}

func init() {
	stateCmd.Flags().BoolVarP(&stateRaw, "raw", "r", false, "emit one key=value per line instead of a summary")
	rootCmd.AddCommand(stateCmd)
}
