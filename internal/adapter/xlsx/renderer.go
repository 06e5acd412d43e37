package xlsx

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/umojahealth/facility-data-repair/internal/domain"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Errors"

// Renderer builds the error-report workbook handed to data-cleaning teams.
// It implements repair.SpreadsheetRenderer.
type Renderer struct {
	operator string
}

// NewRenderer creates a Renderer. The operator is recorded as the workbook
// author.
func NewRenderer(operator string) *Renderer {
	return &Renderer{operator: operator}
}

// Render returns workbook bytes with one row per rejected facility.
// Reasons are joined into a single cell so the sheet stays filterable by
// facility.
func (r *Renderer) Render(errs []domain.ErrorRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	header := []any{"Facility Code", "Facility Name", "Errors"}
	if err := setRow(f, 1, header); err != nil {
		return nil, err
	}

	for i, e := range errs {
		row := []any{e.FacilityCode, e.FacilityName, strings.Join(e.Errors, "; ")}
		if err := setRow(f, i+2, row); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(sheetName, "A", "B", 24); err != nil {
		return nil, fmt.Errorf("size columns: %w", err)
	}
	if err := f.SetColWidth(sheetName, "C", "C", 48); err != nil {
		return nil, fmt.Errorf("size columns: %w", err)
	}

	if r.operator != "" {
		if err := f.SetDocProps(&excelize.DocProperties{Creator: r.operator}); err != nil {
			return nil, fmt.Errorf("set workbook author: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
