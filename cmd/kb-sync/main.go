// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the kb-sync CLI: a scheduled
// connector that mirrors published Salesforce Knowledge articles into a
// Discovery Engine data store. Each subcommand covers one operational
// surface: run (one sync invocation), serve (HTTP trigger for the external
// scheduler), history (run journal), version.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/kb-sync/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from the secrets directory at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, otherwise the secret value for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the kb-sync CLI.
var rootCmd = &cobra.Command{
	Use:   "kb-sync",
	Short: "Sync Salesforce Knowledge articles into a Discovery Engine data store",
	Long: `kb-sync pulls published knowledge articles from a Salesforce org, strips
their markup down to plain text, and upserts the result into a Discovery
Engine data store keyed by article id, so repeated runs overwrite rather
than duplicate.

Each invocation is stateless: it authenticates, pages through the corpus
once, and exits. An external scheduler drives the cadence, either through
the run subcommand or by POSTing to the serve subcommand's /sync endpoint.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./kb-sync.yaml or ~/.config/kb-sync/config.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets/", "directory of plain-text credential files")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("kb-sync")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "kb-sync"))
		}
	}

	viper.SetEnvPrefix("KB_SYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
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
