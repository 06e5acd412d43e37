package domain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Rejection reasons attached to unresolvable records. These exact strings
// are consumed by the error report; do not reword them.
const (
	ReasonLatitudeMissing  = "Latitude is missing"
	ReasonLongitudeMissing = "Longitude is missing"
	ReasonBadGeocodes      = "Wrongly formatted geocodes"
	ReasonNoContainingWard = "Erroneous coordinates"
)

// ErrorRecord describes one rejected facility and why it was rejected.
type ErrorRecord struct {
	FacilityCode string   `json:"facility_code"`
	FacilityName string   `json:"facility_name"`
	Errors       []string `json:"errors"`
}

// Outcome is the classification result for a single record: a resolved
// record with its matched ward, or an ErrorRecord, never both.
type Outcome struct {
	Record Record
	Ward   Ward
	Error  *ErrorRecord
}

// Resolved reports whether the record gained a ward reference.
func (o Outcome) Resolved() bool {
	return o.Error == nil
}

// Classify validates one facility record and resolves its ward reference.
//
// The coordinate keys are removed from the record whichever way
// classification goes; they are not part of the reload schema. Validation
// short-circuits: when either coordinate is absent the locator is never
// queried. Locator errors other than ErrNoWard abort classification.
func Classify(ctx context.Context, rec Record, locator WardLocator) (Outcome, error) {
	latRaw, hasLat := rec["latitude"]
	lngRaw, hasLng := rec["longitude"]
	delete(rec, "latitude")
	delete(rec, "longitude")

	var reasons []string
	if !hasLat || isEmptyCoordinate(latRaw) {
		reasons = append(reasons, ReasonLatitudeMissing)
	}
	if !hasLng || isEmptyCoordinate(lngRaw) {
		reasons = append(reasons, ReasonLongitudeMissing)
	}
	if len(reasons) > 0 {
		return reject(rec, reasons), nil
	}

	lat, errLat := parseCoordinate(latRaw)
	lng, errLng := parseCoordinate(lngRaw)
	if errLat != nil || errLng != nil {
		return reject(rec, []string{ReasonBadGeocodes}), nil
	}

	ward, err := locator.ByPoint(ctx, lng, lat)
	if errors.Is(err, ErrNoWard) {
		return reject(rec, []string{ReasonNoContainingWard}), nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("locate ward for %q: %w", rec.Code(), err)
	}

	rec["ward"] = map[string]any{"id": ward.ID}
	return Outcome{Record: rec, Ward: ward}, nil
}

func reject(rec Record, reasons []string) Outcome {
	return Outcome{Error: &ErrorRecord{
		FacilityCode: rec.Code(),
		FacilityName: rec.Name(),
		Errors:       reasons,
	}}
}

// isEmptyCoordinate reports whether a coordinate value counts as absent: a
// JSON null or an empty string. Whitespace-only strings are present but
// unparseable, so they fall through to the format check.
func isEmptyCoordinate(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// parseCoordinate converts a dataset coordinate to decimal degrees. The
// registry exports coordinates as strings; JSON numbers appear in
// hand-edited datasets and are accepted too.
func parseCoordinate(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, fmt.Errorf("coordinate has unsupported type %T", v)
	}
}
