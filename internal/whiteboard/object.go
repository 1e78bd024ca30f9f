// Package whiteboard implements the per-session collaborative whiteboard
// document (C2): a CRDT-style object/ephemeral map synchronized over a
// dedicated WebSocket channel, with Redis-backed snapshot persistence and
// an ephemeral-object garbage collector.
package whiteboard

// Kind enumerates the canvas object shapes a skill can emit.
type Kind string

const (
	KindText       Kind = "text"
	KindRect       Kind = "rect"
	KindCircle     Kind = "circle"
	KindLine       Kind = "line"
	KindLatexSVG   Kind = "latex_svg"
	KindGraphLayout Kind = "graph_layout"
)

// Source tags who authored an object.
type Source string

const (
	SourceAssistant Source = "assistant"
	SourceUser      Source = "user"
)

// Metadata carries the free-form annotations used by the layout digest and
// tenancy rewrite: owning source, UI role, semantic tags, bbox envelope,
// group membership, and associated concept.
type Metadata struct {
	Source       Source         `json:"source,omitempty"`
	Role         string         `json:"role,omitempty"`
	SemanticTags []string       `json:"semantic_tags,omitempty"`
	BBox         *[4]float64    `json:"bbox,omitempty"` // x,y,w,h
	GroupID      string         `json:"groupId,omitempty"`
	Concept      string         `json:"concept,omitempty"`
	ExpiresAt    int64          `json:"expiresAt,omitempty"` // epoch millis; ephemeral objects only
	Extra        map[string]any `json:"extra,omitempty"`
}

// CanvasObject is the declarative description of a single shape/text/image
// on the board (§3 "Canvas object spec"). Coordinates are either absolute
// pixels or, when UsePercent is true, fractions in [0,1] of the board.
type CanvasObject struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Text  string `json:"text,omitempty"`

	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	UsePercent bool    `json:"use_percent,omitempty"`
	XPct       float64 `json:"x_pct,omitempty"`
	YPct       float64 `json:"y_pct,omitempty"`
	WidthPct   float64 `json:"width_pct,omitempty"`
	HeightPct  float64 `json:"height_pct,omitempty"`

	Style    map[string]any `json:"style,omitempty"`
	Metadata Metadata       `json:"metadata,omitempty"`
}
