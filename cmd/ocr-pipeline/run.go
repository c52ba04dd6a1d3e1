package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ocrflow/ocr-pipeline/internal/config"
	"github.com/ocrflow/ocr-pipeline/internal/observability"
	"github.com/ocrflow/ocr-pipeline/internal/output"
	"github.com/ocrflow/ocr-pipeline/internal/pipeline"
)

var (
	inputDir  string
	outputDir string
	pdfDPI    int
	noIndex   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every supported document under the input directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if inputDir != "" {
			cfg.InputDir = inputDir
		}
		if outputDir != "" {
			cfg.OutputDir = outputDir
		}
		if pdfDPI > 0 {
			cfg.PDFDPI = pdfDPI
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}

		log := observability.NewLogger(observability.LogConfig{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})

		deps := pipeline.Deps{ShowProgress: true}
		if cfg.Index.Enabled && !noIndex {
			ix, err := output.OpenRunIndex(cfg.Index.Path)
			if err != nil {
				log.Warn().Err(err).Msg("run index unavailable, continuing without it")
			} else {
				defer ix.Close()
				deps.Index = ix
			}
		}

		orch, err := pipeline.NewOrchestrator(cfg, log, deps)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		stats, err := orch.Run(ctx)
		if err != nil {
			return err
		}
		if !stats.Succeeded() {
			return fmt.Errorf("no items processed successfully (%d of %d failed)",
				stats.Failed, stats.Yielded)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&inputDir, "input", "i", "", "input directory (overrides config)")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (overrides config)")
	runCmd.Flags().IntVar(&pdfDPI, "pdf-dpi", 0, "PDF rasterization DPI (overrides config)")
	runCmd.Flags().BoolVar(&noIndex, "no-index", false, "disable the SQLite run index")
	rootCmd.AddCommand(runCmd)
}
