package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/fixturekit/database"
	"github.com/kbukum/fixturekit/database/migration"
	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/fixture/processor"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/util"
	"github.com/kbukum/fixturekit/version"
)

func newShowVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show-version",
		Short: "Print the fixturekit build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			if !asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), info.String())
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newCheckConfigCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Load and validate the local test settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.loadSettings()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "settings: %s\n", s.Source)
			if s.Database.Enabled {
				d := database.NewComponent(s.Database, nil).Describe()
				fmt.Fprintf(out, "database: %s %s\n", d.Type, d.Details)
				fmt.Fprintf(out, "dsn: %s\n", util.MaskSecret(s.Database.DSN, 8))
			} else {
				fmt.Fprintln(out, "database: disabled")
			}
			if s.BaseURL.Unsecure != "" {
				fmt.Fprintf(out, "base url: %s (secure %s)\n", s.BaseURL.Unsecure, s.BaseURL.Secure)
			}
			if len(s.Fixture.Processors) > 0 {
				fmt.Fprintf(out, "processors: %s\n", strings.Join(s.Fixture.Processors, ", "))
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}

func newInstallCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Create the host schema in the test database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := o.loadSettings()
			if err != nil {
				return err
			}
			if !s.Database.Enabled {
				return apperrors.Configuration("install needs database.enabled in " + s.Source)
			}
			log := logger.NewWithWriter(&s.Logging, s.Name, cmd.ErrOrStderr())
			db := database.NewComponent(s.Database, log)
			if err := db.Start(cmd.Context()); err != nil {
				return apperrors.Configuration("cannot open test database").WithCause(err)
			}
			defer db.Stop(cmd.Context())

			applied, err := migration.NewRunner(db.DB().GormDB, log).Add(framework.SchemaMigrations()...).Up(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintln(out, "schema is up to date")
				return nil
			}
			for _, id := range applied {
				fmt.Fprintf(out, "applied %s\n", id)
			}
			return nil
		},
	}
}

func newFixtureCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Work with fixture files",
	}
	cmd.AddCommand(newFixtureValidateCmd(o))
	return cmd
}

func newFixtureValidateCmd(o *rootOptions) *cobra.Command {
	var kinds []string
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Parse fixture files and report kinds no processor handles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(kinds) == 0 {
				kinds = processor.Kinds()
			}
			loader := fixture.NewFileLoader(o.fs, nil)
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				tree, err := loader.LoadFile(path)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", path, err)
					failed++
					continue
				}
				var unknown []string
				for _, k := range tree.Keys() {
					if !slices.Contains(kinds, k) {
						unknown = append(unknown, k)
					}
				}
				if len(unknown) > 0 {
					fmt.Fprintf(out, "%s: no processor for %s\n", path, strings.Join(unknown, ", "))
					failed++
					continue
				}
				fmt.Fprintf(out, "%s: ok (%s)\n", path, strings.Join(tree.Keys(), ", "))
			}
			if failed > 0 {
				return apperrors.Validation(fmt.Sprintf("%d of %d fixture files failed", failed, len(args)))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kinds", nil, "registered kinds (default: the built-in processors)")
	return cmd
}
