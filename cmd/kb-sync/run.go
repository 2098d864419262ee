// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/kb-sync/internal/pipeline"
	"github.com/pdiddy/kb-sync/internal/runlog"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one sync invocation and exit",
	Long: `Run authenticates against the source org, pages through all published
knowledge articles, and upserts each one into the destination data store.
Per-document failures are recorded and do not stop the run; credential,
fetch, and destination-identity failures abort it.

The process exits non-zero when the run aborts or any document failed.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("summary-file", "", "write the final run summary to this YAML file")
	runCmd.Flags().String("runlog", "", "run-journal database path (empty string disables)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := validateDestination(); err != nil {
		return err
	}

	cfg := buildConfig()
	if sf, _ := cmd.Flags().GetString("summary-file"); sf != "" {
		cfg.SummaryFile = sf
	}
	if cmd.Flags().Changed("runlog") {
		cfg.RunLogPath, _ = cmd.Flags().GetString("runlog")
	}

	creds := credentialBundle()
	if !creds.Complete() {
		return fmt.Errorf("source credentials incomplete: provide sf-client-id, sf-client-secret, sf-username, and sf-password via the secrets directory or configuration")
	}

	var journal pipeline.Journal
	if cfg.RunLogPath != "" {
		store, err := runlog.Open(cfg.RunLogPath)
		if err != nil {
			return err
		}
		defer store.Close()
		journal = store
	}

	runner := newRunner(cfg, creds, journal)
	res := runner.Run(context.Background(), os.Stdout)

	if res.Err != nil {
		return res.Err
	}
	if res.Summary.HasFailures() {
		return fmt.Errorf("%d document(s) failed", res.Summary.Failed)
	}
	return nil
}

// validateDestination makes misconfiguration fail fast with a readable
// message instead of a malformed resource path deep in the first request.
func validateDestination() error {
	for _, key := range []string{"datastore.project_id", "datastore.location", "datastore.data_store_id"} {
		if viper.GetString(key) == "" {
			return fmt.Errorf("missing required configuration: %s", key)
		}
	}
	if viper.GetString("salesforce.domain") == "" {
		return fmt.Errorf("missing required configuration: salesforce.domain")
	}
	return nil
}
