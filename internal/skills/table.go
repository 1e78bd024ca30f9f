package skills

import (
	"fmt"

	"github.com/crit308/tutorcore/internal/whiteboard"
)

// DrawTableArgs renders a simple header+rows grid.
type DrawTableArgs struct {
	TableID    string     `json:"table_id,omitempty"`
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
	CellWidth  float64    `json:"cell_width,omitempty"`
	CellHeight float64    `json:"cell_height,omitempty"`
	ColGap     float64    `json:"col_gap,omitempty"`
	RowGap     float64    `json:"row_gap,omitempty"`
}

// DrawTable lays out a header row of rect+text cells followed by one
// rect+text pair per data cell, reserved as a single block via the grid
// allocator (the reference never offers template placement for tables).
func DrawTable(placer *Placer, args DrawTableArgs) (whiteboard.Action, error) {
	if len(args.Headers) == 0 {
		return whiteboard.Action{}, fmt.Errorf("draw_table: headers missing")
	}
	tableID := args.TableID
	if tableID == "" {
		tableID = "table-1"
	}
	cellW, cellH, colGap, rowGap := nz(args.CellWidth, 140), nz(args.CellHeight, 40), nz(args.ColGap, 10), nz(args.RowGap, 10)

	nCols := len(args.Headers)
	nRows := len(args.Rows) + 1
	totalWidth := float64(nCols)*cellW + float64(nCols-1)*colGap
	totalHeight := float64(nRows)*cellH + float64(nRows-1)*rowGap

	block, err := placer.Reserve("", "", 0, 0, int(totalWidth), int(totalHeight), tableID)
	if err != nil {
		return whiteboard.Action{}, fmt.Errorf("draw_table: %w", err)
	}

	var objects []whiteboard.CanvasObject
	cellAt := func(col, row int) (float64, float64) {
		return block.X + float64(col)*(cellW+colGap), block.Y + float64(row)*(cellH+rowGap)
	}
	cell := func(id, text string, col, row int, role string) whiteboard.CanvasObject {
		x, y := cellAt(col, row)
		return whiteboard.CanvasObject{
			ID: id, Kind: whiteboard.KindRect, X: x, Y: y, Width: cellW, Height: cellH,
			Text:     text,
			Style:    map[string]any{"stroke": "#999", "fill": "#FAFAFA"},
			Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: role, GroupID: tableID},
		}
	}
	for c, header := range args.Headers {
		objects = append(objects, cell(fmt.Sprintf("%s-header-%d", tableID, c), header, c, 0, "table_header"))
	}
	for r, row := range args.Rows {
		for c, text := range row {
			if c >= nCols {
				break
			}
			objects = append(objects, cell(fmt.Sprintf("%s-cell-%d-%d", tableID, r, c), text, c, r+1, "table_cell"))
		}
	}
	return whiteboard.Action{Type: whiteboard.ActionAddObjects, Objects: objects, GroupID: tableID}, nil
}

func nz(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
