package skills

import (
	"fmt"
	"math"

	"github.com/crit308/tutorcore/internal/whiteboard"
)

// GraphNode is one labeled box in a node/edge graph.
type GraphNode struct {
	ID     string  `json:"id"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Label  string  `json:"label,omitempty"`
}

// GraphEdge connects two nodes by id.
type GraphEdge struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// DrawGraphArgs renders an auto-laid-out node/edge diagram.
type DrawGraphArgs struct {
	GraphID string      `json:"graph_id"`
	Nodes   []GraphNode `json:"nodes"`
	Edges   []GraphEdge `json:"edges,omitempty"`
}

const (
	graphCellWidth  = 160.0
	graphCellHeight = 80.0
	graphColGap     = 40.0
	graphRowGap     = 60.0
)

// DrawGraph lays nodes out on a simple square grid (row-major) sized to fit
// len(Nodes) — no ELK-equivalent layout library exists in this codebase's
// dependency set, so node placement uses the same grid-positions approach
// as draw_table rather than force-directed layout — and draws a
// straight-line edge between each connected pair's center points. Callers
// that want a fresh board should precede this with a clear_board action;
// DrawGraph itself only adds objects.
func DrawGraph(args DrawGraphArgs) (whiteboard.Action, error) {
	if args.GraphID == "" {
		return whiteboard.Action{}, fmt.Errorf("draw_graph: graph_id missing")
	}
	if len(args.Nodes) == 0 {
		return whiteboard.Action{}, fmt.Errorf("draw_graph: nodes missing")
	}
	nCols := int(math.Ceil(math.Sqrt(float64(len(args.Nodes)))))
	if nCols == 0 {
		nCols = 1
	}

	centers := make(map[string][2]float64, len(args.Nodes))
	var objects []whiteboard.CanvasObject
	for i, node := range args.Nodes {
		col, row := i%nCols, i/nCols
		w, h := nz(node.Width, graphCellWidth-graphColGap), nz(node.Height, graphCellHeight-graphRowGap)
		x := float64(col) * (graphCellWidth + graphColGap)
		y := float64(row) * (graphCellHeight + graphRowGap)
		centers[node.ID] = [2]float64{x + w/2, y + h/2}
		objects = append(objects, whiteboard.CanvasObject{
			ID: node.ID, Kind: whiteboard.KindRect, X: x, Y: y, Width: w, Height: h, Text: node.Label,
			Style:    map[string]any{"fill": "#E3F2FD", "stroke": "#1565C0"},
			Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "graph_node", GroupID: args.GraphID},
		})
	}
	for _, edge := range args.Edges {
		src, ok1 := centers[edge.Source]
		dst, ok2 := centers[edge.Target]
		if !ok1 || !ok2 {
			continue
		}
		objects = append(objects, whiteboard.CanvasObject{
			ID: edge.ID, Kind: whiteboard.KindLine, Text: edge.Label,
			Style:    map[string]any{"points": []float64{src[0], src[1], dst[0], dst[1]}, "stroke": "#1565C0"},
			Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "graph_edge", GroupID: args.GraphID},
		})
	}
	return whiteboard.Action{Type: whiteboard.ActionAddObjects, Objects: objects, GroupID: args.GraphID}, nil
}
