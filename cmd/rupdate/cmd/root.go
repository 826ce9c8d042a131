// Package cmd implements the rupdate command-line surface from spec §6.1,
// grounded on pkg/pillar/cmd/eveadm/cmd's cobra root/subcommand layout
// (minus eveadm's viper config binding, which pkg/config replaces with a
// single YAML file proportional to rupdate's much smaller flag surface).
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Elektrobit/rupdate/pkg/config"
	"github.com/Elektrobit/rupdate/pkg/installer"
	"github.com/Elektrobit/rupdate/pkg/lockfile"
	"github.com/Elektrobit/rupdate/pkg/partconfig"
	"github.com/Elektrobit/rupdate/pkg/rerror"
	"github.com/Elektrobit/rupdate/pkg/rlog"
	"github.com/Elektrobit/rupdate/pkg/updateenv"
)

var (
	verbose    bool
	debug      bool
	configFlag string
)

var rootCmd = &cobra.Command{
	Use:           "rupdate",
	Short:         "Manage an A/B partition update lifecycle",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rlog.Configure(verbose, debug)
		return nil
	},
}

// Execute runs rupdate's CLI, returning the error main should report and
// turn into an exit code: Kind.ExitCode() for a *rerror.Error, 2 for
// anything else.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Per DESIGN.md's Open Question decisions, the global "-d|--debug" of §6.1's opening line
	// and update's own "-d" (dry run) cannot both exist as cobra shorthands
	// on the same command chain; the global spelling wins and update's dry
	// run is long-flag only ("--dry").
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable info-level logging")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug-level logging")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to rupdate config (default "+config.DefaultPath+" or $RUPDATE_CONFIG)")
}

func loadConfig() (*config.Config, error) {
	path := configFlag
	if path == "" {
		path = config.Path()
	}
	return config.Load(path)
}

func loadPartitionConfig(cfg *config.Config) (*partconfig.PartitionConfig, error) {
	f, err := os.Open(cfg.PartitionConfigPath)
	if err != nil {
		return nil, rerror.Wrapf(rerror.IoError, err, "opening partition config %s", cfg.PartitionConfigPath)
	}
	defer f.Close()
	return partconfig.Load(f)
}

func openEnvironment(cfg *config.Config) (*updateenv.Environment, *os.File, error) {
	return updateenv.Open(cfg.UpdateEnv.Device, cfg.Offsets(), cfg.UpdateEnv.SlotSize)
}

// withInstaller loads config, the partition config blob, and the update
// environment device, builds an Installer, and invokes fn. Mutating
// commands additionally acquire the advisory lock from spec §5 for the
// duration of fn, failing with Busy if another rupdate process holds it.
func withInstaller(mutating bool, fn func(*installer.Installer) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if mutating {
		lock, err := lockfile.Acquire(cfg.LockPath)
		if err != nil {
			return err
		}
		defer lock.Unlock()
	}

	pc, err := loadPartitionConfig(cfg)
	if err != nil {
		return err
	}

	env, devFile, err := openEnvironment(cfg)
	if err != nil {
		return err
	}
	defer devFile.Close()

	return fn(installer.New(pc, env))
}
