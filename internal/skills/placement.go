package skills

import (
	"fmt"

	"github.com/crit308/tutorcore/internal/config"
	"github.com/crit308/tutorcore/internal/layout"
)

// Placer resolves where a skill should draw: either within a named
// template zone (percentage placement) or via the per-session grid
// allocator (absolute placement), mirroring the reference's
// template-first-fallback-to-allocator order (§3 "Template resolver").
type Placer struct {
	Grid     *layout.Grid
	Resolver *layout.Resolver
}

// NewPlacer wraps a session's grid allocator and the process-wide template
// resolver.
func NewPlacer(grid *layout.Grid, resolver *layout.Resolver) *Placer {
	return &Placer{Grid: grid, Resolver: resolver}
}

// Block is an absolute-pixel rectangle a skill can lay sub-elements out
// within, regardless of whether it came from a resolved zone or the
// allocator.
type Block struct {
	X, Y, Width, Height float64
}

// Reserve resolves a placement block for a skill invocation: if template
// and zone are both non-empty it resolves the named zone (in board-relative
// percentages, converted to pixels against boardWidth/boardHeight);
// otherwise it falls back to the grid allocator with the given pixel size
// and strategy.
func (p *Placer) Reserve(template, zone string, boardWidth, boardHeight float64, width, height int, groupID string) (Block, error) {
	if template != "" && zone != "" && p.Resolver != nil {
		z, err := p.Resolver.ResolveZone(template, zone)
		if err == nil {
			x, y, w, h := layout.ToPixels(z, boardWidth, boardHeight)
			return Block{X: x, Y: y, Width: w, Height: h}, nil
		}
	}
	if p.Grid == nil {
		return Block{}, fmt.Errorf("no grid allocator available and no zone resolved for %q/%q", template, zone)
	}
	region, ok := p.Grid.ReserveRegion(width, height, layout.StrategyFlow, nil, layout.PlacementRightOf, groupID)
	if !ok {
		return Block{}, fmt.Errorf("allocator returned no space for a %dx%d block", width, height)
	}
	return Block{X: float64(region.X), Y: float64(region.Y), Width: float64(region.Width), Height: float64(region.Height)}, nil
}

// DefaultTemplateTable is a convenience for callers that only need the
// embedded static table (no override), e.g. tests.
func DefaultTemplateTable() (config.TemplateTable, error) {
	return config.LoadLayoutTemplates()
}
