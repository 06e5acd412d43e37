// Command boundaryload applies the ward boundary schema migrations and
// loads ward polygons from a GeoJSON FeatureCollection into the spatial
// store, replacing whatever set was loaded before.
//
// Usage:
//
//	go run ./cmd/boundaryload -file wards.geojson
//	go run ./cmd/boundaryload -migrate-only
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/umojahealth/facility-data-repair/internal/adapter/postgis"
	"github.com/umojahealth/facility-data-repair/internal/config"
	"github.com/umojahealth/facility-data-repair/internal/domain"
	"github.com/umojahealth/facility-data-repair/internal/observability"
)

func main() {
	if err := run(); err != nil {
		slog.Error("boundary load failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	file := flag.String("file", "", "GeoJSON FeatureCollection of ward boundaries")
	migrateOnly := flag.Bool("migrate-only", false, "apply schema migrations and exit")
	flag.Parse()

	if !*migrateOnly && *file == "" {
		flag.Usage()
		return errors.New("missing required flag: -file")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg)

	if err := postgis.Migrate(cfg.DatabaseURL()); err != nil {
		return err
	}
	logger.Info("schema migrations applied", "database", cfg.DBName)

	if *migrateOnly {
		return nil
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read boundary file: %w", err)
	}
	boundaries, err := domain.ParseBoundaryCollection(data)
	if err != nil {
		return err
	}
	logger.Info("boundaries parsed", "file", *file, "count", len(boundaries))

	store, err := postgis.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("spatial store close error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := store.ReplaceAll(ctx, boundaries)
	if err != nil {
		return err
	}

	logger.Info("ward boundaries loaded", "count", n)
	return nil
}
