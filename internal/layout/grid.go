// Package layout implements the per-session whiteboard layout services
// (C3): a grid allocator for non-overlapping placement, a static
// named-zone template resolver, a spatial index, and the board-summary
// digest consumed by the lean executor's prompt.
package layout

import (
	"math"
	"sync"

	"github.com/google/uuid"
)

// Grid dimensions, matching the reference allocator's constants exactly.
const (
	GridCols   = 4
	GridRows   = 12
	CellWidth  = 220
	CellHeight = 140
)

// AnchorPlacement selects where a region is placed relative to an anchor.
type AnchorPlacement string

const (
	PlacementRightOf AnchorPlacement = "right-of"
	PlacementBelow   AnchorPlacement = "below"
)

// Strategy selects the allocation algorithm ReserveRegion uses.
type Strategy string

const (
	StrategyFlow   Strategy = "flow"
	StrategyAnchor Strategy = "anchor"
)

// Region describes a reserved block of canvas in pixel coordinates.
type Region struct {
	X, Y, Width, Height int
	RegionID            string
	GroupID             string
}

// PixelBBox is an anchor object's bounding box in pixel coordinates, as
// reported by the front end.
type PixelBBox struct {
	X, Y, Width, Height float64
}

// Grid is a per-session 2-D cell grid tracking occupied regions.
// ReserveRegion and ReleaseRegion serialize on an internal mutex, so both
// may be called from more than one goroutine.
type Grid struct {
	mu      sync.Mutex
	cols    int
	rows    int
	cellW   int
	cellH   int
	cells   [][]string // cells[row][col] -> regionID, "" if free
	regions map[string][][2]int
}

// NewGrid returns a grid with the reference's default dimensions.
func NewGrid() *Grid {
	return newGrid(GridCols, GridRows, CellWidth, CellHeight)
}

func newGrid(cols, rows, cellW, cellH int) *Grid {
	cells := make([][]string, rows)
	for r := range cells {
		cells[r] = make([]string, cols)
	}
	return &Grid{cols: cols, rows: rows, cellW: cellW, cellH: cellH, cells: cells, regions: make(map[string][][2]int)}
}

// ReserveRegion finds the first free block of cells large enough for
// width×height and marks it occupied, or reports not-found. The anchor
// strategy searches only the cells adjacent to the anchor in the given
// placement direction and does not fall back to a board-wide scan when
// that placement doesn't fit — matching the reference's strict-anchoring
// behavior.
func (g *Grid) ReserveRegion(width, height int, strategy Strategy, anchor *PixelBBox, placement AnchorPlacement, groupID string) (Region, bool) {
	colsNeeded := ceilDiv(width, g.cellW)
	rowsNeeded := ceilDiv(height, g.cellH)

	g.mu.Lock()
	defer g.mu.Unlock()

	if colsNeeded > g.cols || rowsNeeded > g.rows {
		return Region{}, false
	}

	if strategy == StrategyAnchor && anchor != nil {
		col, row, ok := g.reserveAnchored(*anchor, placement, colsNeeded, rowsNeeded)
		if !ok {
			return Region{}, false
		}
		return g.allocate(col, row, colsNeeded, rowsNeeded, groupID), true
	}

	for r := 0; r <= g.rows-rowsNeeded; r++ {
		for c := 0; c <= g.cols-colsNeeded; c++ {
			if g.blockFree(c, r, colsNeeded, rowsNeeded) {
				return g.allocate(c, r, colsNeeded, rowsNeeded, groupID), true
			}
		}
	}
	return Region{}, false
}

func (g *Grid) reserveAnchored(anchor PixelBBox, placement AnchorPlacement, colsNeeded, rowsNeeded int) (col, row int, ok bool) {
	anchorColStart := int(math.Floor(anchor.X / float64(g.cellW)))
	anchorRowStart := int(math.Floor(anchor.Y / float64(g.cellH)))
	anchorColsSpan := ceilDiv(int(math.Ceil(anchor.Width)), g.cellW)
	anchorRowsSpan := ceilDiv(int(math.Ceil(anchor.Height)), g.cellH)

	switch placement {
	case PlacementRightOf:
		startCol := anchorColStart + anchorColsSpan
		startRow := anchorRowStart
		if startCol+colsNeeded > g.cols || startRow+rowsNeeded > g.rows {
			return 0, 0, false
		}
		for rOffset := 0; rOffset < anchorRowsSpan; rOffset++ {
			r := startRow + rOffset
			if r+rowsNeeded > g.rows {
				break
			}
			if g.blockFree(startCol, r, colsNeeded, rowsNeeded) {
				return startCol, r, true
			}
		}
	case PlacementBelow:
		startCol := anchorColStart
		startRow := anchorRowStart + anchorRowsSpan
		if startRow+rowsNeeded > g.rows || startCol+colsNeeded > g.cols {
			return 0, 0, false
		}
		for cOffset := 0; cOffset < anchorColsSpan; cOffset++ {
			c := startCol + cOffset
			if c+colsNeeded > g.cols {
				break
			}
			if g.blockFree(c, startRow, colsNeeded, rowsNeeded) {
				return c, startRow, true
			}
		}
	}
	return 0, 0, false
}

func (g *Grid) allocate(col, row, colsNeeded, rowsNeeded int, groupID string) Region {
	regionID := uuid.New().String()
	g.occupy(regionID, col, row, colsNeeded, rowsNeeded)
	return Region{
		X:         col * g.cellW,
		Y:         row * g.cellH,
		Width:     colsNeeded * g.cellW,
		Height:    rowsNeeded * g.cellH,
		RegionID:  regionID,
		GroupID:   groupID,
	}
}

func (g *Grid) blockFree(startCol, startRow, colsNeeded, rowsNeeded int) bool {
	for r := startRow; r < startRow+rowsNeeded; r++ {
		for c := startCol; c < startCol+colsNeeded; c++ {
			if g.cells[r][c] != "" {
				return false
			}
		}
	}
	return true
}

func (g *Grid) occupy(regionID string, startCol, startRow, colsNeeded, rowsNeeded int) {
	cells := make([][2]int, 0, colsNeeded*rowsNeeded)
	for r := startRow; r < startRow+rowsNeeded; r++ {
		for c := startCol; c < startCol+colsNeeded; c++ {
			g.cells[r][c] = regionID
			cells = append(cells, [2]int{r, c})
		}
	}
	g.regions[regionID] = cells
}

// ReleaseRegion frees all cells belonging to regionID. Releasing an
// unknown region is a no-op.
func (g *Grid) ReleaseRegion(regionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cells, ok := g.regions[regionID]
	if !ok {
		return
	}
	for _, rc := range cells {
		g.cells[rc[0]][rc[1]] = ""
	}
	delete(g.regions, regionID)
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	if a <= 0 {
		return 1
	}
	return (a + b - 1) / b
}
