package repair

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/umojahealth/facility-data-repair/internal/domain"
	"github.com/umojahealth/facility-data-repair/internal/observability"
)

// SpreadsheetRenderer renders the error report as a binary workbook.
type SpreadsheetRenderer interface {
	Render(errs []domain.ErrorRecord) ([]byte, error)
}

// Publisher emits audit events for classified records once the output
// files are written.
type Publisher interface {
	PublishBatch(ctx context.Context, events []domain.RepairEvent) error
}

// Options carries the per-run inputs resolved by the caller.
type Options struct {
	DatasetPath   string
	ErrorJSONPath string
	ErrorXLSXPath string
	Operator      string

	// DryRun classifies and summarizes without writing output files or
	// publishing audit events.
	DryRun bool
}

// Summary aggregates what a run did, for the closing log line and the
// metrics push.
type Summary struct {
	Total              int
	Resolved           int
	Rejected           int
	ReasonCounts       map[string]int
	SpreadsheetWritten bool
	Published          bool
	Duration           time.Duration
}

// Runner executes one dataset repair pass: read, classify in order,
// rewrite the dataset, and emit the error reports.
type Runner struct {
	locator   domain.WardLocator
	renderer  SpreadsheetRenderer
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Runner. renderer and publisher may be nil to skip the
// spreadsheet and audit steps.
func New(locator domain.WardLocator, renderer SpreadsheetRenderer, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{
		locator:   locator,
		renderer:  renderer,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run repairs the dataset at opts.DatasetPath. Records keep their input
// order on both output files. Read, classification, and the two JSON
// writes are fatal; the spreadsheet and the audit publish are surfaced in
// the summary but never fail the run. A dry run stops after classification
// and leaves every file as it was.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	start := time.Now()

	records, err := ReadDataset(opts.DatasetPath)
	if err != nil {
		return Summary{}, err
	}
	r.logger.Info("dataset loaded", "path", opts.DatasetPath, "records", len(records))

	outcomes, err := r.classifyAll(ctx, records)
	if err != nil {
		return Summary{}, err
	}

	resolved := make([]domain.Record, 0, len(outcomes))
	rejected := make([]domain.ErrorRecord, 0)
	reasonCounts := make(map[string]int)
	for _, out := range outcomes {
		if out.Resolved() {
			resolved = append(resolved, out.Record)
			continue
		}
		rejected = append(rejected, *out.Error)
		for _, reason := range out.Error.Errors {
			reasonCounts[reason]++
		}
	}

	summary := Summary{
		Total:        len(outcomes),
		Resolved:     len(resolved),
		Rejected:     len(rejected),
		ReasonCounts: reasonCounts,
	}

	if opts.DryRun {
		summary.Duration = time.Since(start)
		r.metrics.RunDuration.Set(summary.Duration.Seconds())
		r.logger.Info("dry run, output files untouched",
			"total", summary.Total,
			"resolved", summary.Resolved,
			"rejected", summary.Rejected,
		)
		return summary, nil
	}

	if err := WriteDataset(opts.DatasetPath, resolved); err != nil {
		return Summary{}, err
	}
	if err := WriteErrorReport(opts.ErrorJSONPath, rejected); err != nil {
		return Summary{}, err
	}

	if r.renderer != nil {
		if err := r.writeSpreadsheet(opts.ErrorXLSXPath, rejected); err != nil {
			r.logger.Warn("error spreadsheet not written", "path", opts.ErrorXLSXPath, "error", err)
		} else {
			summary.SpreadsheetWritten = true
		}
	}

	if r.publisher != nil {
		if err := r.publishOutcomes(ctx, outcomes, opts.Operator); err != nil {
			r.logger.Warn("audit publish failed", "events", len(outcomes), "error", err)
		} else {
			summary.Published = true
		}
	}

	summary.Duration = time.Since(start)
	r.metrics.RunDuration.Set(summary.Duration.Seconds())
	r.logger.Info("dataset repaired",
		"total", summary.Total,
		"resolved", summary.Resolved,
		"rejected", summary.Rejected,
		"duration", summary.Duration,
	)
	return summary, nil
}

// classifyAll classifies records strictly in dataset order. Cancellation is
// honored between records so an interrupted run never writes output files.
func (r *Runner) classifyAll(ctx context.Context, records []domain.Record) ([]domain.Outcome, error) {
	outcomes := make([]domain.Outcome, 0, len(records))
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled at record %d: %w", i, err)
		}

		classifyStart := time.Now()
		out, err := domain.Classify(ctx, rec, r.locator)
		if err != nil {
			return nil, err
		}
		r.metrics.ClassifyDuration.Observe(time.Since(classifyStart).Seconds())
		r.metrics.RecordsProcessed.Inc()

		if out.Resolved() {
			r.metrics.RecordsResolved.Inc()
		} else {
			r.metrics.RecordsRejected.Inc()
			for _, reason := range out.Error.Errors {
				r.metrics.RejectionReasons.WithLabelValues(reason).Inc()
			}
			r.logger.Debug("record rejected",
				"code", out.Error.FacilityCode,
				"reasons", out.Error.Errors,
			)
		}

		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func (r *Runner) writeSpreadsheet(path string, errs []domain.ErrorRecord) error {
	data, err := r.renderer.Render(errs)
	if err != nil {
		return fmt.Errorf("render workbook: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (r *Runner) publishOutcomes(ctx context.Context, outcomes []domain.Outcome, operator string) error {
	events := make([]domain.RepairEvent, 0, len(outcomes))
	for _, out := range outcomes {
		events = append(events, domain.NewRepairEvent(out, operator))
	}
	return r.publisher.PublishBatch(ctx, events)
}
