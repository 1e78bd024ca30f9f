package layout

import (
	"fmt"

	"github.com/crit308/tutorcore/internal/config"
)

// Resolver resolves named template/zone pairs into normalized rectangles,
// backed by the static YAML-loaded table (D9).
type Resolver struct {
	table config.TemplateTable
}

// NewResolver wraps a loaded template table.
func NewResolver(table config.TemplateTable) *Resolver {
	return &Resolver{table: table}
}

// ResolveZone returns the normalized rectangle for template/zone, or an
// error if either is unrecognized — callers treat this as a configuration
// error (an executor-composed draw call referencing an unknown zone),
// not a transient failure.
func (r *Resolver) ResolveZone(template, zone string) (config.Zone, error) {
	z, ok := r.table.Zone(template, zone)
	if !ok {
		return config.Zone{}, fmt.Errorf("unknown template/zone %q/%q", template, zone)
	}
	return z, nil
}

// ToPixels converts a normalized zone rectangle into absolute pixel
// coordinates given the board's pixel dimensions.
func ToPixels(z config.Zone, boardWidth, boardHeight float64) (x, y, w, h float64) {
	return z.XPct * boardWidth, z.YPct * boardHeight, z.WidthPct * boardWidth, z.HeightPct * boardHeight
}
