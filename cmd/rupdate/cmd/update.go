package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Elektrobit/rupdate/pkg/installer"
	"github.com/Elektrobit/rupdate/pkg/rerror"
)

var (
	updateBundlePath string
	updateDryRun     bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Install a bundle onto each set's inactive partition",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withInstaller(true, func(inst *installer.Installer) error {
			r, closeFn, err := openBundleSource(updateBundlePath)
			if err != nil {
				return err
			}
			defer closeFn()
			return inst.Update(r, updateDryRun)
		})
	},
}

func openBundleSource(path string) (io.Reader, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, rerror.Wrapf(rerror.IoError, err, "opening bundle %s", path)
	}
	return f, f.Close, nil
}

func init() {
	updateCmd.Flags().StringVarP(&updateBundlePath, "bundle", "b", "", "bundle file to install (default: stdin)")
	updateCmd.Flags().BoolVar(&updateDryRun, "dry", false, "validate and checksum the bundle without writing devices or UpdateEnv")
	rootCmd.AddCommand(updateCmd)
}
