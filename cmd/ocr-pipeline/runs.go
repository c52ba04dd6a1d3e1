package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ocrflow/ocr-pipeline/internal/config"
	"github.com/ocrflow/ocr-pipeline/internal/output"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent runs recorded in the run index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		ix, err := output.OpenRunIndex(cfg.Index.Path)
		if err != nil {
			return err
		}
		defer ix.Close()

		runs, err := ix.RecentRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}

		for _, r := range runs {
			status := "running"
			if r.FinishedAt.Valid {
				status = fmt.Sprintf("processed=%d failed=%d", r.Processed, r.Failed)
			}
			fmt.Printf("%s  %s  %s  %s\n",
				r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.InputRoot, status)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs to list")
	rootCmd.AddCommand(runsCmd)
}
