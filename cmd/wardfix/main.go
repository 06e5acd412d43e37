// Command wardfix repairs a facility registry dataset export in place: it
// resolves each record's ward from its coordinates against the spatial
// store, rewrites the dataset with only the resolved records, and diverts
// the rest to an error report (JSON plus a spreadsheet for data-cleaning
// teams).
//
// Usage:
//
//	go run ./cmd/wardfix \
//	  -dataset data/facilities.json \
//	  -errors data/facility_errors.json \
//	  -xlsx data/facility_errors.xlsx
//
// Pass -dry-run to classify and log the summary without touching any file.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"os/user"
	"syscall"

	kafkaadapter "github.com/umojahealth/facility-data-repair/internal/adapter/kafka"
	"github.com/umojahealth/facility-data-repair/internal/adapter/postgis"
	"github.com/umojahealth/facility-data-repair/internal/adapter/xlsx"
	"github.com/umojahealth/facility-data-repair/internal/config"
	"github.com/umojahealth/facility-data-repair/internal/observability"
	"github.com/umojahealth/facility-data-repair/internal/repair"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dataset := flag.String("dataset", cfg.DatasetPath, "facility dataset to repair in place")
	errorJSON := flag.String("errors", cfg.ErrorJSONPath, "error report destination")
	errorXLSX := flag.String("xlsx", cfg.ErrorXLSXPath, "error spreadsheet destination")
	operator := flag.String("operator", "", "operator recorded on audit events (defaults to the current user)")
	dryRun := flag.Bool("dry-run", false, "classify and summarize without writing or publishing")
	flag.Parse()

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	op := *operator
	if op == "" {
		op, err = currentOperator()
		if err != nil {
			logger.Error("failed to resolve operator", "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := repair.Options{
		DatasetPath:   *dataset,
		ErrorJSONPath: *errorJSON,
		ErrorXLSXPath: *errorXLSX,
		Operator:      op,
		DryRun:        *dryRun,
	}
	os.Exit(run(ctx, cfg, logger, metrics, opts))
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, opts repair.Options) int {
	store, err := postgis.Open(cfg, logger)
	if err != nil {
		logger.Error("failed to open spatial store", "error", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("spatial store close error", "error", err)
		}
	}()

	// Audit publishing is feature-flagged via KAFKA_BROKERS / AUDIT_ENABLED.
	var publisher repair.Publisher
	if cfg.AuditEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
		metrics.AuditEnabled.Set(1)
		logger.Info("audit publishing enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("audit publishing disabled")
	}

	renderer := xlsx.NewRenderer(opts.Operator)
	runner := repair.New(store, renderer, publisher, logger, metrics)

	summary, err := runner.Run(ctx, opts)
	if err != nil {
		logger.Error("repair run failed", "error", err)
		return 1
	}

	logger.Info("run complete",
		"operator", opts.Operator,
		"total", summary.Total,
		"resolved", summary.Resolved,
		"rejected", summary.Rejected,
		"spreadsheet_written", summary.SpreadsheetWritten,
		"published", summary.Published,
		"duration", summary.Duration,
	)

	if cfg.PushgatewayURL != "" && !opts.DryRun {
		if err := metrics.Push(cfg.PushgatewayURL, "wardfix"); err != nil {
			logger.Warn("metrics push failed", "gateway", cfg.PushgatewayURL, "error", err)
		}
	}
	return 0
}

func currentOperator() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}
