// Copyright © 2022-2025 Obol Labs Inc. Licensed under the terms of a Business Source License 1.1

// Package cmd implements the ipfslog command-line interface.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/obolnetwork/ipfslog/app/errors"
	"github.com/obolnetwork/ipfslog/app/z"
	"github.com/obolnetwork/ipfslog/logparse"
)

const (
	// The name of our config file, without the file extension because
	// viper supports many different config file languages.
	defaultConfigFilename = "ipfslog"

	// The environment variable prefix of all environment variables bound to our command line flags.
	envPrefix = "ipfslog"
)

// New returns a new root cobra command that handles our command line tool.
func New() *cobra.Command {
	cmds := []*cobra.Command{newVersionCmd(runVersionCmd)}
	for _, kind := range logparse.Kinds() {
		cmds = append(cmds, newParseCmd(kind, runParse))
	}
	cmds = append(cmds, newAllCmd(runAll))

	return newRootCmd(cmds...)
}

func newRootCmd(cmds ...*cobra.Command) *cobra.Command {
	root := &cobra.Command{
		Use:   "ipfslog",
		Short: "ipfslog - go-ipfs debug log parser",
		Long: `ipfslog parses the periodic debug logs of a go-ipfs node (bandwidth, bitswap,
known peers and open peers samples) into typed records.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initializeConfig(cmd)
		},
	}

	root.AddCommand(cmds...)

	return root
}

// initializeConfig sets up the general viper config and binds the cobra flags to the viper flags.
func initializeConfig(cmd *cobra.Command) error {
	v := viper.New()

	v.SetConfigName(defaultConfigFilename)
	v.AddConfigPath(".")

	// Attempt to read the config file, gracefully ignoring errors
	// caused by a config file not being found. Return an error
	// if we cannot parse the config file.
	if err := v.ReadInConfig(); err != nil {
		// It's okay if there isn't a config file
		var cfgError viper.ConfigFileNotFoundError
		if ok := errors.As(err, &cfgError); !ok {
			return errors.Wrap(err, "read config")
		}
	}

	v.SetEnvPrefix(envPrefix)
	// Environment variables can't have dashes in them, so bind them to their equivalent
	// keys with underscores.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	// Bind the current command's flags to viper
	return bindFlags(cmd.Flags(), v)
}

// bindFlags binds each cobra flag to its associated viper configuration (config file and environment variable).
func bindFlags(flags *pflag.FlagSet, v *viper.Viper) error {
	var lastErr error

	flags.VisitAll(func(f *pflag.Flag) {
		// Cobra provided flags take priority
		if f.Changed {
			return
		}

		// Define all the viper flag names to check
		viperNames := []string{
			f.Name,
			strings.ReplaceAll(f.Name, "-", "_"),
		}

		for _, name := range viperNames {
			if !v.IsSet(name) {
				continue
			}

			if err := flags.Set(f.Name, flagValue(v.Get(name))); err != nil {
				lastErr = errors.Wrap(err, "set flag from config", z.Str("flag", f.Name))
			}

			break
		}
	})

	return lastErr
}

// flagValue returns the flag string of a config value, lists are joined as comma separated values.
func flagValue(val any) string {
	list, ok := val.([]any)
	if !ok {
		return fmt.Sprint(val)
	}

	var elems []string
	for _, e := range list {
		elems = append(elems, fmt.Sprint(e))
	}

	return strings.Join(elems, ",")
}
