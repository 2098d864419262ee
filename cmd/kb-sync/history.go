// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kb-sync/internal/runlog"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past sync runs from the run journal",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 10, "maximum number of runs to show")
	historyCmd.Flags().Bool("json", false, "emit JSON instead of a table")
	historyCmd.Flags().Int64("outcomes", 0, "show per-document outcomes for the given run id")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	if cfg.RunLogPath == "" {
		return fmt.Errorf("run journal disabled: set runlog.path")
	}

	store, err := runlog.Open(cfg.RunLogPath)
	if err != nil {
		return err
	}
	defer store.Close()

	asJSON, _ := cmd.Flags().GetBool("json")

	if runID, _ := cmd.Flags().GetInt64("outcomes"); runID > 0 {
		outcomes, err := store.Outcomes(cmd.Context(), runID)
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(outcomes)
		}
		for _, o := range outcomes {
			if o.Error != "" {
				fmt.Printf("%-8s %s  %s\n", o.Status, o.DocumentID, o.Error)
				continue
			}
			fmt.Printf("%-8s %s\n", o.Status, o.DocumentID)
		}
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	fmt.Printf("%-5s %-20s %-18s %6s %8s %8s %7s\n",
		"ID", "STARTED", "STATE", "TOTAL", "CREATED", "UPDATED", "FAILED")
	for _, r := range runs {
		fmt.Printf("%-5d %-20s %-18s %6d %8d %8d %7d\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.State,
			r.Summary.Total, r.Summary.Created, r.Summary.Updated, r.Summary.Failed)
	}
	return nil
}
