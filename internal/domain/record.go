package domain

import (
	"fmt"
	"strconv"
)

// Record is one facility entry from a registry export. Keys other than the
// coordinate pair and the ward reference are opaque and pass through
// classification unchanged.
type Record map[string]any

// Code returns the facility's registry-wide unique code, or "" when absent.
func (r Record) Code() string {
	return stringify(r["code"])
}

// Name returns the facility's display name, or "" when absent.
func (r Record) Name() string {
	return stringify(r["name"])
}

// stringify renders a JSON scalar the way the registry prints it: strings
// as-is, numbers without a trailing ".0" on integral values.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
