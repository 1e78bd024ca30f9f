package skills

import (
	"github.com/crit308/tutorcore/internal/whiteboard"
)

// DrawTextArgs draws a single text box.
type DrawTextArgs struct {
	ID         string     `json:"id,omitempty"`
	Text       string     `json:"text"`
	X          *float64   `json:"x,omitempty"`
	Y          *float64   `json:"y,omitempty"`
	Width      *float64   `json:"width,omitempty"`
	FontSize   *float64   `json:"fontSize,omitempty"`
	ColorToken ColorToken `json:"color_token,omitempty"`
}

// DrawText renders free text at args.X/args.Y, taking zero for an omitted
// coordinate. Neither this skill nor the executor resolves a template zone
// or an allocator block for it; the coordinates are used as given.
func DrawText(args DrawTextArgs) whiteboard.Action {
	token := args.ColorToken
	if token == "" {
		token = ColorDefault
	}
	id := orDefaultID(args.ID, "text", args.Text, string(token))

	obj := whiteboard.CanvasObject{
		ID:   id,
		Kind: whiteboard.KindText,
		Text: args.Text,
		Style: map[string]any{
			"fill": StyleToken(token),
		},
		Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant},
	}
	if args.X != nil {
		obj.X = *args.X
	}
	if args.Y != nil {
		obj.Y = *args.Y
	}
	if args.Width != nil {
		obj.Width = *args.Width
	}
	if args.FontSize != nil {
		obj.Style["fontSize"] = *args.FontSize
	}
	return whiteboard.Action{Type: whiteboard.ActionAddObjects, Objects: []whiteboard.CanvasObject{obj}}
}

// ShapeKind enumerates the primitive shapes draw_shape supports.
type ShapeKind string

const (
	ShapeRect   ShapeKind = "rect"
	ShapeCircle ShapeKind = "circle"
	ShapeArrow  ShapeKind = "arrow"
)

// Point is one vertex of an arrow/polyline shape.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DrawShapeArgs draws a single primitive shape: a rect/circle needs
// X/Y/Width/Height or Radius; an arrow needs Points.
type DrawShapeArgs struct {
	ID         string     `json:"id,omitempty"`
	Kind       ShapeKind  `json:"kind"`
	X          float64    `json:"x,omitempty"`
	Y          float64    `json:"y,omitempty"`
	Width      float64    `json:"width,omitempty"`
	Height     float64    `json:"height,omitempty"`
	Radius     float64    `json:"radius,omitempty"`
	Points     []Point    `json:"points,omitempty"`
	Label      string     `json:"label,omitempty"`
	ColorToken ColorToken `json:"color_token,omitempty"`
}

// DrawShape renders a rect, circle, or arrow primitive.
func DrawShape(args DrawShapeArgs) whiteboard.Action {
	token := args.ColorToken
	if token == "" {
		token = ColorDefault
	}
	color := StyleToken(token)

	var kind whiteboard.Kind
	switch args.Kind {
	case ShapeCircle:
		kind = whiteboard.KindCircle
	case ShapeArrow:
		kind = whiteboard.KindLine
	default:
		kind = whiteboard.KindRect
	}

	id := orDefaultID(args.ID, string(args.Kind), f(args.X), f(args.Y), f(args.Width), f(args.Height), f(args.Radius))

	obj := whiteboard.CanvasObject{
		ID:     id,
		Kind:   kind,
		X:      args.X,
		Y:      args.Y,
		Width:  args.Width,
		Height: args.Height,
		Style: map[string]any{
			"stroke": color,
		},
		Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant},
	}
	if args.Kind == ShapeCircle {
		obj.Style["radius"] = args.Radius
	}
	if args.Kind == ShapeArrow {
		pts := make([]float64, 0, len(args.Points)*2)
		for _, p := range args.Points {
			pts = append(pts, p.X, p.Y)
		}
		obj.Style["points"] = pts
	}
	if args.Label != "" {
		obj.Text = args.Label
	}
	return whiteboard.Action{Type: whiteboard.ActionAddObjects, Objects: []whiteboard.CanvasObject{obj}}
}
