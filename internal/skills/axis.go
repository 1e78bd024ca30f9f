package skills

import (
	"fmt"

	"github.com/crit308/tutorcore/internal/whiteboard"
)

// DrawAxisArgs renders a simple bottom-left-origin X/Y axis pair.
type DrawAxisArgs struct {
	AxisID     string  `json:"axis_id,omitempty"`
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"`
	ShowArrows bool    `json:"show_arrows,omitempty"`
	LabelX     string  `json:"label_x,omitempty"`
	LabelY     string  `json:"label_y,omitempty"`
}

// DrawAxis reserves a padded block via the allocator and draws two
// perpendicular axis lines with optional labels.
func DrawAxis(placer *Placer, args DrawAxisArgs) (whiteboard.Action, error) {
	axisID := args.AxisID
	if axisID == "" {
		axisID = "axis-1"
	}
	width, height := nz(args.Width, 250), nz(args.Height, 200)
	const padding = 40.0

	block, err := placer.Reserve("", "", 0, 0, int(width+padding), int(height+padding), axisID)
	if err != nil {
		return whiteboard.Action{}, fmt.Errorf("draw_axis: %w", err)
	}
	startX := block.X + 20
	startY := block.Y + height

	objects := []whiteboard.CanvasObject{
		{
			ID: axisID + "-x-line", Kind: whiteboard.KindLine,
			Style:    map[string]any{"points": []float64{startX, startY, startX + width, startY}, "stroke": "#000"},
			Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "axis_x", GroupID: axisID},
		},
		{
			ID: axisID + "-y-line", Kind: whiteboard.KindLine,
			Style:    map[string]any{"points": []float64{startX, startY, startX, startY - height}, "stroke": "#000"},
			Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "axis_y", GroupID: axisID},
		},
	}
	if args.LabelX != "" {
		objects = append(objects, whiteboard.CanvasObject{
			ID: axisID + "-label-x", Kind: whiteboard.KindText, Text: args.LabelX,
			X: startX + width, Y: startY,
			Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "axis_label", GroupID: axisID},
		})
	}
	if args.LabelY != "" {
		objects = append(objects, whiteboard.CanvasObject{
			ID: axisID + "-label-y", Kind: whiteboard.KindText, Text: args.LabelY,
			X: startX, Y: startY - height,
			Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "axis_label", GroupID: axisID},
		})
	}
	if args.ShowArrows {
		const head = 6.0
		objects = append(objects,
			whiteboard.CanvasObject{
				ID: axisID + "-x-arrow", Kind: whiteboard.KindLine,
				Style:    map[string]any{"points": []float64{startX + width - head, startY - head, startX + width, startY, startX + width - head, startY + head}, "stroke": "#000"},
				Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "axis_arrow", GroupID: axisID},
			},
			whiteboard.CanvasObject{
				ID: axisID + "-y-arrow", Kind: whiteboard.KindLine,
				Style:    map[string]any{"points": []float64{startX - head, startY - height + head, startX, startY - height, startX + head, startY - height + head}, "stroke": "#000"},
				Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "axis_arrow", GroupID: axisID},
			},
		)
	}
	return whiteboard.Action{Type: whiteboard.ActionAddObjects, Objects: objects, GroupID: axisID}, nil
}
