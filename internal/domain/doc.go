// Package domain models facility registry records and their ward resolution.
//
// # Data Source
//
// Facility records originate from the national facility registry's bulk
// export tooling. An export is a JSON list holding a single payload object
// whose "records" list carries one object per facility. Records are loaded
// back into the registry with the same tooling, which expects the document
// shape {"model", "unique_fields", "records"} keyed on the facility code.
//
// # Record Conventions
//
// Coordinates:
//
//	"latitude" and "longitude" are exported as decimal-degree strings
//	("-1.2921", "36.8219"), WGS 84. Hand-edited datasets sometimes carry
//	them as JSON numbers instead; both forms are accepted. A null or empty
//	value counts as missing. The pair is stripped from every record during
//	classification; repaired records reference their ward instead.
//
// Identity:
//
//	"code" is the facility's registry-wide unique code and the upsert key
//	on reload. "name" is the display name. Both may be absent on
//	malformed rows; rejection reporting falls back to empty strings.
//
// All other keys are opaque and pass through classification unchanged.
//
// # Rejection Reasons
//
// Records that cannot gain a ward reference are diverted to an error
// report with one or more reason strings. The exact wording is fixed:
// downstream data-cleaning spreadsheets filter on these values. See the
// Reason constants.
//
// # Ward References
//
// A resolved record carries {"ward": {"id": "<id>"}} where the id is the
// containing ward's identifier rendered as a string, covering both
// integer- and UUID-keyed boundary stores. Containment is evaluated
// against ward boundary polygons; when several wards contain a point
// (boundary overlap at shared edges), the store's first match wins.
package domain
