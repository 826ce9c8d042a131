// Command rupdate is the CLI entry point for spec §6.1: update, commit,
// finish, revert, rollback, state, and env, grounded on
// pkg/pillar/cmd/eveadm's main/cmd split.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Elektrobit/rupdate/cmd/rupdate/cmd"
	"github.com/Elektrobit/rupdate/pkg/rerror"
)

func main() {
	err := cmd.Execute()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)

	// Every domain-level failure is surfaced as a *rerror.Error carrying
	// one of spec §7's taxonomy kinds; anything else reaching here is a
	// cobra-level argument/usage error, which §6.1 maps to exit code 2.
	var domainErr *rerror.Error
	if errors.As(err, &domainErr) {
		os.Exit(domainErr.Kind.ExitCode())
	}
	os.Exit(2)
}
