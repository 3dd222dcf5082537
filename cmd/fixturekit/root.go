package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kbukum/fixturekit/config"
	"github.com/kbukum/fixturekit/version"
)

type rootOptions struct {
	fs         afero.Fs
	configFile string
	envFile    string
}

// loadSettings reads the local override file named by --config, falling
// back to the bootstrap variable and the standard search path.
func (o *rootOptions) loadSettings() (*config.Settings, error) {
	opts := []config.LoaderOption{config.WithFs(o.fs)}
	if o.configFile != "" {
		opts = append(opts, config.WithConfigFile(o.configFile))
	}
	if o.envFile != "" {
		opts = append(opts, config.WithEnvFile(o.envFile))
	}
	return config.Load(opts...)
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	o := &rootOptions{fs: fs}
	cmd := &cobra.Command{
		Use:   "fixturekit",
		Short: "Prepare and check fixture-driven test environments",
		Long: `fixturekit installs the schema fixture-driven tests run against,
validates the local test settings and checks fixture files before a run.`,
		Version:       version.Get().Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate(`{{printf "fixturekit %s\n" .Version}}`)
	cmd.PersistentFlags().StringVarP(&o.configFile, "config", "c", "",
		"settings file (default: "+config.DefaultSettingsFile+" or $"+config.BootstrapEnv+")")
	cmd.PersistentFlags().StringVar(&o.envFile, "env-file", "", ".env file loaded before the settings")

	cmd.AddCommand(
		newShowVersionCmd(),
		newCheckConfigCmd(o),
		newInstallCmd(o),
		newFixtureCmd(o),
	)
	return cmd
}
