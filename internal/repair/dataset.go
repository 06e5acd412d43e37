package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/umojahealth/facility-data-repair/internal/domain"
)

// DatasetModel is the registry model repaired records reload into.
const DatasetModel = "facilities.Facility"

// Dataset is the bulk-load document shape the registry's import tooling
// consumes.
type Dataset struct {
	Model        string          `json:"model"`
	UniqueFields []string        `json:"unique_fields"`
	Records      []domain.Record `json:"records"`
}

// ReadDataset extracts the facility records from an export file: a JSON
// list whose first object carries the "records" list.
func ReadDataset(path string) ([]domain.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	var doc []struct {
		Records []domain.Record `json:"records"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	if len(doc) == 0 {
		return nil, errors.New("dataset holds no payload object")
	}
	return doc[0].Records, nil
}

// WriteDataset overwrites path with the repaired records in bulk-load shape.
func WriteDataset(path string, records []domain.Record) error {
	if records == nil {
		records = []domain.Record{}
	}
	doc := Dataset{
		Model:        DatasetModel,
		UniqueFields: []string{"code"},
		Records:      records,
	}
	if err := writeJSON(path, doc); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	return nil
}

// WriteErrorReport overwrites path with the rejected records. An empty
// report is written as an empty list, not null.
func WriteErrorReport(path string, errs []domain.ErrorRecord) error {
	if errs == nil {
		errs = []domain.ErrorRecord{}
	}
	if err := writeJSON(path, errs); err != nil {
		return fmt.Errorf("write error report: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
