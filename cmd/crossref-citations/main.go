// Copyright Cometadata Inc., 2026. All rights reserved.

// Package main is the entry point for the crossref-citations CLI. It wires
// the streaming extraction pipeline, the standalone validator, and the
// registry index tooling to the command line.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cometadata/crossref-citation-extraction/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds contact details and credentials loaded from .secrets/
// at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, otherwise the secret value for
// key if one was loaded.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return loadedSecrets[key]
}

// rootCmd is the base command for the crossref-citations CLI.
var rootCmd = &cobra.Command{
	Use:   "crossref-citations",
	Short: "Mine, invert, and validate citation identifiers from Crossref snapshots",
	Long: `crossref-citations streams a Crossref snapshot archive, mines DOIs and
arXiv IDs out of reference metadata and free text, inverts the citing
relation into a cited-to-citing index, and validates the result against
identifier registries.

The pipeline subcommand runs the whole flow in one checkpointed pass;
validate re-checks an existing inverted file; index maintains registry
index snapshots for warm starts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./crossref-citations.yaml or ~/.config/crossref-citations/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("crossref-citations")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "crossref-citations"))
		}
	}

	viper.SetEnvPrefix("CROSSREF_CITATIONS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
