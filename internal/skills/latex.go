package skills

import (
	"fmt"

	"github.com/crit308/tutorcore/internal/whiteboard"
)

// DrawLatexArgs renders a LaTeX string as an SVG object reference; the
// front end owns LaTeX-to-SVG rendering, the backend only emits the object
// carrying the source string.
type DrawLatexArgs struct {
	ObjectID    string   `json:"object_id"`
	LatexString string   `json:"latex_string"`
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	XPct        *float64 `json:"x_pct,omitempty"`
	YPct        *float64 `json:"y_pct,omitempty"`
}

// DrawLatex emits a single latex_svg canvas object.
func DrawLatex(args DrawLatexArgs) (whiteboard.Action, error) {
	if args.LatexString == "" {
		return whiteboard.Action{}, fmt.Errorf("draw_latex: latex_string missing")
	}
	if args.ObjectID == "" {
		return whiteboard.Action{}, fmt.Errorf("draw_latex: object_id missing")
	}
	obj := whiteboard.CanvasObject{
		ID:   args.ObjectID,
		Kind: whiteboard.KindLatexSVG,
		Metadata: whiteboard.Metadata{
			Source: whiteboard.SourceAssistant,
			Extra:  map[string]any{"latex": args.LatexString},
		},
	}
	if args.X != nil {
		obj.X = *args.X
	}
	if args.Y != nil {
		obj.Y = *args.Y
	}
	if args.XPct != nil {
		obj.UsePercent = true
		obj.XPct = *args.XPct
	}
	if args.YPct != nil {
		obj.UsePercent = true
		obj.YPct = *args.YPct
	}
	return whiteboard.Action{Type: whiteboard.ActionAddObjects, Objects: []whiteboard.CanvasObject{obj}}, nil
}
