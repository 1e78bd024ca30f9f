package skills

import (
	"fmt"

	"github.com/crit308/tutorcore/internal/whiteboard"
)

const (
	flowBoxWidth  = 140.0
	flowBoxHeight = 60.0
	flowHGap      = 80.0
)

// DrawFlowchartArgs renders a left-to-right flowchart of labeled boxes
// joined by arrows.
type DrawFlowchartArgs struct {
	ChartID string   `json:"chart_id,omitempty"`
	Steps   []string `json:"steps"`
}

// DrawFlowchart lays out one rect per step plus a connecting arrow between
// consecutive steps.
func DrawFlowchart(placer *Placer, args DrawFlowchartArgs) (whiteboard.Action, error) {
	if len(args.Steps) == 0 {
		return whiteboard.Action{}, fmt.Errorf("draw_flowchart: steps missing or empty")
	}
	chartID := args.ChartID
	if chartID == "" {
		chartID = "flow-1"
	}

	totalWidth := float64(len(args.Steps))*flowBoxWidth + float64(len(args.Steps)-1)*flowHGap
	block, err := placer.Reserve("", "", 0, 0, int(totalWidth), int(flowBoxHeight+40), chartID)
	if err != nil {
		return whiteboard.Action{}, fmt.Errorf("draw_flowchart: %w", err)
	}

	var objects []whiteboard.CanvasObject
	for i, label := range args.Steps {
		x := block.X + float64(i)*(flowBoxWidth+flowHGap)
		objects = append(objects, whiteboard.CanvasObject{
			ID: fmt.Sprintf("%s-box-%d", chartID, i), Kind: whiteboard.KindRect,
			X: x, Y: block.Y, Width: flowBoxWidth, Height: flowBoxHeight, Text: label,
			Style:    map[string]any{"fill": "#E8F5E9", "stroke": "#1B5E20"},
			Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "flow_box", GroupID: chartID},
		})
		if i > 0 {
			prevX := block.X + float64(i-1)*(flowBoxWidth+flowHGap) + flowBoxWidth
			objects = append(objects, whiteboard.CanvasObject{
				ID:   fmt.Sprintf("%s-arrow-%d", chartID, i),
				Kind: whiteboard.KindLine,
				Style: map[string]any{
					"points": []float64{prevX, block.Y + flowBoxHeight/2, x, block.Y + flowBoxHeight/2},
					"stroke": "#1B5E20",
				},
				Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "flow_arrow", GroupID: chartID},
			})
		}
	}
	return whiteboard.Action{Type: whiteboard.ActionAddObjects, Objects: objects, GroupID: chartID}, nil
}
