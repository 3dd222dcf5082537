// Command fixturekit prepares and checks the environment fixture-driven
// tests run in.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

func main() {
	cmd := newRootCmd(afero.NewOsFs())
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "fixturekit: %v\n", err)
		os.Exit(1)
	}
}
