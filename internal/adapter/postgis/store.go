package postgis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/umojahealth/facility-data-repair/internal/config"
	"github.com/umojahealth/facility-data-repair/internal/domain"
)

// Store resolves ward containment queries against a PostGIS database.
// It implements domain.WardLocator.
type Store struct {
	db           *sql.DB
	logger       *slog.Logger
	queryTimeout time.Duration
}

// Open connects to the spatial store and verifies the connection.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open spatial store: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxOpenConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.QueryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping spatial store: %w", err)
	}

	logger.Info("spatial store connected", "host", cfg.DBHost, "database", cfg.DBName)
	return &Store{
		db:           db,
		logger:       logger,
		queryTimeout: cfg.QueryTimeout,
	}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ByPoint returns the first ward whose boundary contains the point.
// Coordinates are WGS 84 decimal degrees, longitude first.
func (s *Store) ByPoint(ctx context.Context, lng, lat float64) (domain.Ward, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	const q = `
		SELECT id::text, name
		FROM ward_boundaries
		WHERE ST_Contains(geometry, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		LIMIT 1`

	var w domain.Ward
	err := s.db.QueryRowContext(ctx, q, lng, lat).Scan(&w.ID, &w.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Ward{}, domain.ErrNoWard
	}
	if err != nil {
		return domain.Ward{}, fmt.Errorf("ward containment query: %w", err)
	}
	return w, nil
}

// ReplaceAll swaps the ward boundary table contents for the given set in
// one transaction and returns the number of boundaries loaded. Geometries
// are normalized to MultiPolygon on the way in.
func (s *Store) ReplaceAll(ctx context.Context, boundaries []domain.Boundary) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin boundary load: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ward_boundaries`); err != nil {
		return 0, fmt.Errorf("clear ward boundaries: %w", err)
	}

	const q = `
		INSERT INTO ward_boundaries (id, code, name, geometry)
		VALUES ($1, $2, $3, ST_Multi(ST_SetSRID(ST_GeomFromGeoJSON($4), 4326)))`

	for _, b := range boundaries {
		if _, err := tx.ExecContext(ctx, q, uuid.New(), b.Code, b.Name, string(b.Geometry)); err != nil {
			return 0, fmt.Errorf("insert ward %q: %w", b.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit boundary load: %w", err)
	}

	s.logger.Info("ward boundaries replaced", "count", len(boundaries))
	return len(boundaries), nil
}
