package skills

import (
	"fmt"

	"github.com/crit308/tutorcore/internal/whiteboard"
)

// DrawCoordinatePlaneArgs renders a 2D Cartesian plane with tick-scaled
// axes at a caller-chosen pixel origin.
type DrawCoordinatePlaneArgs struct {
	PlaneID string  `json:"plane_id"`
	XMin    float64 `json:"x_min,omitempty"`
	XMax    float64 `json:"x_max,omitempty"`
	YMin    float64 `json:"y_min,omitempty"`
	YMax    float64 `json:"y_max,omitempty"`
	XLabel  string  `json:"x_label,omitempty"`
	YLabel  string  `json:"y_label,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	Width   float64 `json:"width,omitempty"`
	Height  float64 `json:"height,omitempty"`
}

// DrawCoordinatePlane draws the X/Y axis lines scaled so that XMin/XMax and
// YMin/YMax map onto the requested pixel width/height, with Y inverted so
// positive Y points up on screen.
func DrawCoordinatePlane(args DrawCoordinatePlaneArgs) (whiteboard.Action, error) {
	if args.PlaneID == "" {
		return whiteboard.Action{}, fmt.Errorf("draw_coordinate_plane: plane_id missing")
	}
	xMin, xMax := orRange(args.XMin, args.XMax, -10, 10)
	yMin, yMax := orRange(args.YMin, args.YMax, -10, 10)
	if xMax == xMin || yMax == yMin {
		return whiteboard.Action{}, fmt.Errorf("draw_coordinate_plane: range min and max must differ")
	}
	width, height := nz(args.Width, 250), nz(args.Height, 200)
	originX, originY := args.X, args.Y

	pxPerUnitX := width / (xMax - xMin)
	pxPerUnitY := height / (yMax - yMin)

	objects := []whiteboard.CanvasObject{
		{
			ID: args.PlaneID + "-xaxis", Kind: whiteboard.KindLine,
			Style: map[string]any{
				"points": []float64{originX + xMin*pxPerUnitX, originY, originX + xMax*pxPerUnitX, originY},
				"stroke": "#000",
			},
			Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "axis", GroupID: args.PlaneID},
		},
		{
			ID: args.PlaneID + "-yaxis", Kind: whiteboard.KindLine,
			Style: map[string]any{
				"points": []float64{originX, originY - yMax*pxPerUnitY, originX, originY - yMin*pxPerUnitY},
				"stroke": "#000",
			},
			Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "axis", GroupID: args.PlaneID},
		},
	}
	if args.XLabel != "" {
		objects = append(objects, whiteboard.CanvasObject{
			ID: args.PlaneID + "-xlabel", Kind: whiteboard.KindText, Text: args.XLabel,
			X: originX + xMax*pxPerUnitX, Y: originY,
			Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "axis_label", GroupID: args.PlaneID},
		})
	}
	if args.YLabel != "" {
		objects = append(objects, whiteboard.CanvasObject{
			ID: args.PlaneID + "-ylabel", Kind: whiteboard.KindText, Text: args.YLabel,
			X: originX, Y: originY - yMax*pxPerUnitY,
			Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "axis_label", GroupID: args.PlaneID},
		})
	}
	return whiteboard.Action{Type: whiteboard.ActionAddObjects, Objects: objects, GroupID: args.PlaneID}, nil
}

func orRange(min, max, defMin, defMax float64) (float64, float64) {
	if min == 0 && max == 0 {
		return defMin, defMax
	}
	return min, max
}
