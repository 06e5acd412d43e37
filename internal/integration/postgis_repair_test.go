//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/umojahealth/facility-data-repair/internal/adapter/postgis"
	"github.com/umojahealth/facility-data-repair/internal/config"
	"github.com/umojahealth/facility-data-repair/internal/domain"
	"github.com/umojahealth/facility-data-repair/internal/observability"
	"github.com/umojahealth/facility-data-repair/internal/repair"
)

const (
	postgisImage   = "postgis/postgis:16-3.4"
	testDBName     = "facility_registry"
	testDBUser     = "registry"
	testDBPassword = "registry"
)

// wardFixture covers two Kenyan wards. Coordinates are GeoJSON order,
// longitude first.
const wardFixture = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"code": "NBO-01", "name": "Nairobi Central"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[36.7, -1.4], [36.9, -1.4], [36.9, -1.2], [36.7, -1.2], [36.7, -1.4]]]
      }
    },
    {
      "type": "Feature",
      "properties": {"code": "MSA-01", "name": "Mvita"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[39.6, -4.1], [39.7, -4.1], [39.7, -4.0], [39.6, -4.0], [39.6, -4.1]]]
      }
    }
  ]
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startPostgres launches a disposable PostGIS container, applies the schema
// and returns connection settings for it.
func startPostgres(ctx context.Context, t *testing.T) (*config.Config, string) {
	t.Helper()

	ctr, err := tcpostgres.Run(ctx, postgisImage,
		tcpostgres.WithDatabase(testDBName),
		tcpostgres.WithUsername(testDBUser),
		tcpostgres.WithPassword(testDBPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	databaseURL, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, postgis.Migrate(databaseURL), "apply migrations")

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := &config.Config{
		DBHost:         host,
		DBPort:         port.Int(),
		DBName:         testDBName,
		DBUser:         testDBUser,
		DBPassword:     testDBPassword,
		DBSSLMode:      "disable",
		DBMaxOpenConns: 4,
		QueryTimeout:   10 * time.Second,
	}
	return cfg, databaseURL
}

// TestWardLocator verifies the spatial store against real PostGIS: boundary
// loading, point containment and wholesale replacement.
func TestWardLocator(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	cfg, databaseURL := startPostgres(ctx, t)

	// A second migration run must be a no-op.
	require.NoError(t, postgis.Migrate(databaseURL))

	store, err := postgis.Open(cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	boundaries, err := domain.ParseBoundaryCollection([]byte(wardFixture))
	require.NoError(t, err)

	n, err := store.ReplaceAll(ctx, boundaries)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// Nairobi CBD falls inside the first ward.
	ward, err := store.ByPoint(ctx, 36.8219, -1.2921)
	require.NoError(t, err)
	assert.Equal(t, "Nairobi Central", ward.Name)
	_, err = uuid.Parse(ward.ID)
	assert.NoError(t, err, "ward id should be the row uuid")

	// Mombasa island falls inside the second.
	ward, err = store.ByPoint(ctx, 39.66, -4.05)
	require.NoError(t, err)
	assert.Equal(t, "Mvita", ward.Name)

	// Open water matches nothing.
	_, err = store.ByPoint(ctx, 45.0, -10.0)
	assert.ErrorIs(t, err, domain.ErrNoWard)

	// Reloading replaces the previous set wholesale.
	n, err = store.ReplaceAll(ctx, boundaries[:1])
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = store.ByPoint(ctx, 36.8219, -1.2921)
	require.NoError(t, err)
	_, err = store.ByPoint(ctx, 39.66, -4.05)
	assert.ErrorIs(t, err, domain.ErrNoWard)
}

// TestRepairRunEndToEnd runs the full repair flow against real PostGIS and
// checks the rewritten dataset and the error report.
func TestRepairRunEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	cfg, _ := startPostgres(ctx, t)

	store, err := postgis.Open(cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	boundaries, err := domain.ParseBoundaryCollection([]byte(wardFixture))
	require.NoError(t, err)
	_, err = store.ReplaceAll(ctx, boundaries)
	require.NoError(t, err)

	nairobi, err := store.ByPoint(ctx, 36.8219, -1.2921)
	require.NoError(t, err)

	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "facilities.json")
	errorPath := filepath.Join(dir, "errors.json")

	records := []domain.Record{
		{"code": "19002", "name": "Kilimani Clinic", "latitude": "-1.2921", "longitude": "36.8219"},
		{"code": "19003", "name": "No Fix Posted"},
		{"code": "19004", "name": "Garbled", "latitude": "not-a-number", "longitude": "36.8"},
	}
	payload, err := json.Marshal([]map[string]any{{"records": records}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(datasetPath, payload, 0o600))

	runner := repair.New(store, nil, nil, discardLogger(), observability.NewMetricsForTesting())
	summary, err := runner.Run(ctx, repair.Options{
		DatasetPath:   datasetPath,
		ErrorJSONPath: errorPath,
		Operator:      "integration",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Resolved)
	assert.Equal(t, 2, summary.Rejected)

	out, err := os.ReadFile(datasetPath)
	require.NoError(t, err)
	var ds repair.Dataset
	require.NoError(t, json.Unmarshal(out, &ds))
	assert.Equal(t, repair.DatasetModel, ds.Model)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, "19002", ds.Records[0].Code())
	wardRef, ok := ds.Records[0]["ward"].(map[string]any)
	require.True(t, ok, "resolved record should carry a ward reference")
	assert.Equal(t, nairobi.ID, wardRef["id"])
	assert.NotContains(t, ds.Records[0], "latitude")
	assert.NotContains(t, ds.Records[0], "longitude")

	report, err := os.ReadFile(errorPath)
	require.NoError(t, err)
	var errs []domain.ErrorRecord
	require.NoError(t, json.Unmarshal(report, &errs))
	require.Len(t, errs, 2)
	assert.Equal(t, "19003", errs[0].FacilityCode)
	assert.Equal(t, "No Fix Posted", errs[0].FacilityName)
	assert.Equal(t, []string{domain.ReasonLatitudeMissing, domain.ReasonLongitudeMissing}, errs[0].Errors)
	assert.Equal(t, "19004", errs[1].FacilityCode)
	assert.Equal(t, []string{domain.ReasonBadGeocodes}, errs[1].Errors)
}
