// Package cmd wires the toolkit's operations into one command tree.
package cmd

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	// Version is filled in by ldflags at build time.
	Version = "v0.0.0"
)

var subcommandFns = map[string]func(stdout, stderr io.Writer) *cobra.Command{}

// NewRootCommand builds the shopetl command with every registered
// subcommand attached.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "shopetl",
		Short: "shopetl - e-commerce dataset ETL and analytics",
		Long: `Loads the raw e-commerce datasets into the document and wide-column
stores, streams live sessions from the queue, runs the aggregation
reports and exports cleaned Parquet datasets for the batch engine.

Version: ` + Version + "\n",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setAllConfig(viper.New(), cmd.Flags(), "SHOPETL")
		},
	}
	rc.PersistentFlags().String("config", "", "TOML configuration file")
	for _, fn := range subcommandFns {
		rc.AddCommand(fn(stdout, stderr))
	}
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// setAllConfig resolves every flag from the command line, the environment
// and an optional config file, in that priority order. Environment variables
// are upper-cased flag names with dashes replaced by underscores, prefixed
// with envPrefix and an underscore.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet, envPrefix string) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading configuration file %s", c)
		}
	}

	// Flags the user set on the command line stay untouched; everything else
	// picks up the resolved value.
	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		flagErr = f.Value.Set(v.GetString(f.Name))
	})
	return flagErr
}
