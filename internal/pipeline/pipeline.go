// Package pipeline orchestrates a batch OCR run: it pulls page items from
// the scan stream and drives each one through preprocessing, recognition,
// cleanup and persistence.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/ocrflow/ocr-pipeline/internal/config"
	"github.com/ocrflow/ocr-pipeline/internal/domain"
	"github.com/ocrflow/ocr-pipeline/internal/ocr"
	"github.com/ocrflow/ocr-pipeline/internal/output"
	"github.com/ocrflow/ocr-pipeline/internal/preprocess"
	"github.com/ocrflow/ocr-pipeline/internal/scan"
	"github.com/ocrflow/ocr-pipeline/internal/text"
)

// RunStats summarizes one pipeline run.
type RunStats struct {
	Yielded     int
	Processed   int
	Failed      int
	Duration    time.Duration
	successTime time.Duration
}

// AverageItemTime is the mean wall time per successfully processed item.
func (s RunStats) AverageItemTime() time.Duration {
	if s.Processed == 0 {
		return 0
	}
	return s.successTime / time.Duration(s.Processed)
}

// Succeeded reports whether the run should exit cleanly: at least one item
// processed, or a clean empty run.
func (s RunStats) Succeeded() bool {
	return s.Processed > 0 || (s.Yielded == 0 && s.Failed == 0)
}

// Deps are the orchestrator's collaborators. Zero fields are filled with the
// production implementations derived from the configuration.
type Deps struct {
	Preprocessor domain.Preprocessor
	Recognizer   domain.Recognizer
	Writer       *output.Writer
	Index        *output.RunIndex
	// NewStream opens the page stream for the run. Defaults to a scan over
	// the configured input directory.
	NewStream func() *scan.Stream
	// ShowProgress renders a progress bar on stderr.
	ShowProgress bool
}

// Orchestrator runs the batch pipeline. Processing is sequential by design:
// one page's pixels are live at a time.
type Orchestrator struct {
	cfg  *config.Config
	log  zerolog.Logger
	deps Deps
}

// NewOrchestrator builds an orchestrator, deriving unset collaborators from
// the configuration.
func NewOrchestrator(cfg *config.Config, log zerolog.Logger, deps Deps) (*Orchestrator, error) {
	if deps.Recognizer == nil {
		deps.Recognizer = ocr.NewEngine(ocr.Config{
			Language:    cfg.OCR.Language,
			TessdataDir: cfg.OCR.TessdataDir,
			PageSegMode: cfg.OCR.PageSegMode,
		})
	}
	if deps.Preprocessor == nil && cfg.Preprocessing.Enabled {
		kernel := 0
		if cfg.Preprocessing.NoiseRemoval != "" {
			k, err := config.ParseMedianKernel(cfg.Preprocessing.NoiseRemoval)
			if err != nil {
				return nil, err
			}
			kernel = k
		}
		deps.Preprocessor = preprocess.New(preprocess.Options{
			Grayscale:    cfg.Preprocessing.Grayscale,
			Deskew:       cfg.Preprocessing.Deskew,
			Binarization: cfg.Preprocessing.Binarization.Method,
			BlockSize:    cfg.Preprocessing.Binarization.BlockSize,
			C:            cfg.Preprocessing.Binarization.C,
			MedianKernel: kernel,
		}, log)
	}
	if deps.Writer == nil {
		deps.Writer = output.NewWriter(cfg.OutputDir)
	}
	if deps.NewStream == nil {
		deps.NewStream = func() *scan.Stream {
			return scan.New(cfg.InputDir, scan.Config{
				PDFDPI: cfg.PDFDPI,
				Logger: log,
			})
		}
	}
	return &Orchestrator{cfg: cfg, log: log, deps: deps}, nil
}

// Run executes one batch over the input directory. Failed items are counted
// and skipped, never fatal; only an unscannable root aborts the run.
func (o *Orchestrator) Run(ctx context.Context) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{}

	o.log.Info().
		Str("input", o.cfg.InputDir).
		Str("output", o.cfg.OutputDir).
		Int("pdf_dpi", o.cfg.PDFDPI).
		Msg("starting ocr pipeline run")

	var runID uuid.UUID
	if o.deps.Index != nil {
		id, err := o.deps.Index.StartRun(ctx, o.cfg.InputDir)
		if err != nil {
			o.log.Warn().Err(err).Msg("run index unavailable, continuing without it")
			o.deps.Index = nil
		} else {
			runID = id
		}
	}

	var bar *progressbar.ProgressBar
	if o.deps.ShowProgress {
		bar = progressbar.NewOptions64(-1,
			progressbar.OptionSetDescription("processing pages"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
		)
	}

	stream := o.deps.NewStream()
	defer stream.Close()

	for stream.Next() {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		item := stream.Item()
		stats.Yielded++
		if bar != nil {
			_ = bar.Add(1)
		}

		if !item.OK() {
			stats.Failed++
			o.logItemFailure(item)
			o.recordPage(ctx, runID, item.Descriptor, output.PageStatusFailed, "", item.Err.Error())
			continue
		}

		outputFile, elapsed, err := o.processItem(ctx, item)
		if err != nil {
			stats.Failed++
			o.log.Error().Err(err).
				Str("file", item.Descriptor.RelativePath).
				Int("page", item.Descriptor.PageNumber).
				Dur("elapsed", elapsed).
				Msg("item processing failed")
			o.recordPage(ctx, runID, item.Descriptor, output.PageStatusFailed, "", err.Error())
			continue
		}

		stats.Processed++
		stats.successTime += elapsed
		o.log.Info().
			Str("file", item.Descriptor.RelativePath).
			Int("page", item.Descriptor.PageNumber).
			Dur("elapsed", elapsed).
			Str("output", outputFile).
			Msg("item processed")
		o.recordPage(ctx, runID, item.Descriptor, output.PageStatusOK, outputFile, "")
	}
	if bar != nil {
		_ = bar.Finish()
	}

	stats.Duration = time.Since(start)

	if err := stream.Err(); err != nil {
		o.log.Error().Err(err).Msg("scan failed")
		o.finishRun(ctx, runID, stats)
		return stats, err
	}

	o.finishRun(ctx, runID, stats)

	o.log.Info().
		Int("yielded", stats.Yielded).
		Int("processed", stats.Processed).
		Int("failed", stats.Failed).
		Dur("total", stats.Duration).
		Dur("avg_per_item", stats.AverageItemTime()).
		Msg("run complete")

	return stats, nil
}

// processItem runs one page through preprocess, OCR, cleanup and persistence.
func (o *Orchestrator) processItem(ctx context.Context, item domain.PageItem) (string, time.Duration, error) {
	start := time.Now()
	img := item.Image

	if o.deps.Preprocessor != nil {
		processed, err := o.deps.Preprocessor.Apply(img)
		if err != nil {
			return "", time.Since(start), err
		}
		img = processed
	}

	raw, err := o.deps.Recognizer.Recognize(ctx, img)
	if err != nil {
		return "", time.Since(start), err
	}

	cleaned := text.Clean(raw)

	rec := output.NewRecord(*item.Descriptor, cleaned,
		o.deps.Recognizer.Name(), o.cfg.OCR.Language, time.Since(start))
	path, err := o.deps.Writer.Write(rec)
	if err != nil {
		return "", time.Since(start), err
	}

	return path, time.Since(start), nil
}

// finishRun stamps the index run row with final counts. Called on every exit
// path that started a run, including an aborted scan.
func (o *Orchestrator) finishRun(ctx context.Context, runID uuid.UUID, stats *RunStats) {
	if o.deps.Index == nil {
		return
	}
	if err := o.deps.Index.FinishRun(ctx, runID, stats.Processed, stats.Failed); err != nil {
		o.log.Warn().Err(err).Msg("failed to finalize run index entry")
	}
}

func (o *Orchestrator) logItemFailure(item domain.PageItem) {
	evt := o.log.Error().Err(item.Err)
	if item.Descriptor != nil {
		evt = evt.Str("file", item.Descriptor.RelativePath).Int("page", item.Descriptor.PageNumber)
	} else {
		evt = evt.Str("file", "unknown")
	}
	evt.Msg(fmt.Sprintf("skipping failed item (%s)", domain.ErrorKindOf(item.Err)))
}

func (o *Orchestrator) recordPage(ctx context.Context, runID uuid.UUID, desc *domain.PageDescriptor, status, outputFile, errText string) {
	if o.deps.Index == nil {
		return
	}
	if err := o.deps.Index.RecordPage(ctx, runID, desc, status, outputFile, errText); err != nil {
		o.log.Warn().Err(err).Msg("failed to record page in run index")
	}
}
