package domain

import (
	"context"
	"errors"
)

// Ward identifies an administrative area whose boundary polygon contains a
// facility's coordinates.
type Ward struct {
	ID   string
	Name string
}

// ErrNoWard is returned by WardLocator implementations when no boundary
// contains the queried point.
var ErrNoWard = errors.New("no ward contains the point")

// WardLocator resolves the administrative area containing a coordinate pair.
type WardLocator interface {
	// ByPoint returns the first ward whose boundary contains the point, or
	// ErrNoWard when none does. Longitude comes first, matching the
	// store's point constructor.
	ByPoint(ctx context.Context, lng, lat float64) (Ward, error)
}
