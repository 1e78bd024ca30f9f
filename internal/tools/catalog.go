package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/crit308/tutorcore/internal/skills"
	"github.com/crit308/tutorcore/internal/tutor"
	"github.com/crit308/tutorcore/internal/whiteboard"
)

// PlacerFor resolves the per-session Placer (grid allocator + template
// resolver) a drawing skill should use for a given tutor context. The
// registry itself is a process-wide singleton (§5), so skills that need
// session-scoped layout state receive it through this indirection rather
// than the registry holding per-session data directly.
type PlacerFor func(tc *tutor.Context) *skills.Placer

// DrawingCatalog returns the explicit, typed list of drawing-skill
// descriptors (C4) wired into the registry. This is the "explicit, typed
// list of skill constructors" startup registration named in §4.1, built by
// hand instead of relying on import-side-effect registration.
func DrawingCatalog(placerFor PlacerFor, now func() time.Time) []Descriptor {
	return []Descriptor{
		{
			Name: "draw_text", Description: "Draw a text box on the whiteboard.", Cost: CostLow,
			SchemaDoc: schemaRequiring("text"),
			Fn: func(_ context.Context, _ *tutor.Context, raw json.RawMessage) (Result, error) {
				var args skills.DrawTextArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, err
				}
				return Result{Actions: []whiteboard.Action{skills.DrawText(args)}}, nil
			},
		},
		{
			Name: "draw_shape", Description: "Draw a rect, circle, or arrow primitive.", Cost: CostLow,
			SchemaDoc: schemaRequiring("kind"),
			Fn: func(_ context.Context, _ *tutor.Context, raw json.RawMessage) (Result, error) {
				var args skills.DrawShapeArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, err
				}
				return Result{Actions: []whiteboard.Action{skills.DrawShape(args)}}, nil
			},
		},
		{
			Name: "draw_mcq_actions", Description: "Render a multiple-choice question onto the board.", Cost: CostMedium,
			Fn: func(_ context.Context, tc *tutor.Context, raw json.RawMessage) (Result, error) {
				var args skills.DrawMCQActionsArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, err
				}
				action, err := skills.DrawMCQActions(placerFor(tc), args)
				if err != nil {
					return Result{}, err
				}
				return Result{Actions: []whiteboard.Action{action}}, nil
			},
		},
		{
			Name: "draw_mcq_feedback", Description: "Recolor MCQ option selectors and draw feedback text after an answer.", Cost: CostLow,
			Fn: func(_ context.Context, _ *tutor.Context, raw json.RawMessage) (Result, error) {
				var args skills.DrawMCQFeedbackArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, err
				}
				return Result{Actions: skills.DrawMCQFeedback(args)}, nil
			},
		},
		{
			Name: "draw_table", Description: "Draw a header+rows table.", Cost: CostMedium,
			Fn: func(_ context.Context, tc *tutor.Context, raw json.RawMessage) (Result, error) {
				var args skills.DrawTableArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, err
				}
				action, err := skills.DrawTable(placerFor(tc), args)
				if err != nil {
					return Result{}, err
				}
				return Result{Actions: []whiteboard.Action{action}}, nil
			},
		},
		{
			Name: "draw_flowchart", Description: "Draw a left-to-right flowchart of labeled steps.", Cost: CostMedium,
			Fn: func(_ context.Context, tc *tutor.Context, raw json.RawMessage) (Result, error) {
				var args skills.DrawFlowchartArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, err
				}
				action, err := skills.DrawFlowchart(placerFor(tc), args)
				if err != nil {
					return Result{}, err
				}
				return Result{Actions: []whiteboard.Action{action}}, nil
			},
		},
		{
			Name: "draw_axis", Description: "Draw an X/Y axis pair.", Cost: CostLow,
			Fn: func(_ context.Context, tc *tutor.Context, raw json.RawMessage) (Result, error) {
				var args skills.DrawAxisArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, err
				}
				action, err := skills.DrawAxis(placerFor(tc), args)
				if err != nil {
					return Result{}, err
				}
				return Result{Actions: []whiteboard.Action{action}}, nil
			},
		},
		{
			Name: "draw_coordinate_plane", Description: "Draw a scaled 2D Cartesian coordinate plane.", Cost: CostLow,
			SchemaDoc: schemaRequiring("plane_id"),
			Fn: func(_ context.Context, _ *tutor.Context, raw json.RawMessage) (Result, error) {
				var args skills.DrawCoordinatePlaneArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, err
				}
				action, err := skills.DrawCoordinatePlane(args)
				if err != nil {
					return Result{}, err
				}
				return Result{Actions: []whiteboard.Action{action}}, nil
			},
		},
		{
			Name: "draw_timeline", Description: "Draw a horizontal timeline of dated events.", Cost: CostMedium,
			SchemaDoc: schemaRequiring("timeline_id", "events"),
			Fn: func(_ context.Context, _ *tutor.Context, raw json.RawMessage) (Result, error) {
				var args skills.DrawTimelineArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, err
				}
				action, err := skills.DrawTimeline(args)
				if err != nil {
					return Result{}, err
				}
				return Result{Actions: []whiteboard.Action{action}}, nil
			},
		},
		{
			Name: "draw_graph", Description: "Auto-lay-out and draw a node/edge graph.", Cost: CostHigh,
			SchemaDoc: schemaRequiring("graph_id", "nodes"),
			Fn: func(_ context.Context, _ *tutor.Context, raw json.RawMessage) (Result, error) {
				var args skills.DrawGraphArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, err
				}
				action, err := skills.DrawGraph(args)
				if err != nil {
					return Result{}, err
				}
				return Result{Actions: []whiteboard.Action{action}}, nil
			},
		},
		{
			Name: "draw_latex", Description: "Render a LaTeX string as an SVG object reference.", Cost: CostLow,
			SchemaDoc: schemaRequiring("object_id", "latex_string"),
			Fn: func(_ context.Context, _ *tutor.Context, raw json.RawMessage) (Result, error) {
				var args skills.DrawLatexArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, err
				}
				action, err := skills.DrawLatex(args)
				if err != nil {
					return Result{}, err
				}
				return Result{Actions: []whiteboard.Action{action}}, nil
			},
		},
		{
			Name: "clear_board", Description: "Clear every object currently on the board.", Cost: CostLow,
			Fn: func(_ context.Context, _ *tutor.Context, _ json.RawMessage) (Result, error) {
				return Result{Actions: []whiteboard.Action{skills.ClearBoard()}}, nil
			},
		},
		{
			Name: "group_objects", Description: "Tie existing whiteboard objects into a single group.", Cost: CostLow,
			SchemaDoc: schemaRequiring("object_ids", "group_id"),
			Fn: func(_ context.Context, _ *tutor.Context, raw json.RawMessage) (Result, error) {
				var args skills.GroupObjectsArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, err
				}
				return Result{Actions: []whiteboard.Action{skills.GroupObjects(args)}}, nil
			},
		},
		{
			Name: "move_group", Description: "Reposition every object in a group by a pixel delta.", Cost: CostLow,
			SchemaDoc: schemaRequiring("group_id"),
			Fn: func(_ context.Context, _ *tutor.Context, raw json.RawMessage) (Result, error) {
				var args skills.MoveGroupArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, err
				}
				return Result{Actions: []whiteboard.Action{skills.MoveGroup(args)}}, nil
			},
		},
		{
			Name: "delete_group", Description: "Remove every object belonging to a group.", Cost: CostLow,
			SchemaDoc: schemaRequiring("group_id"),
			Fn: func(_ context.Context, _ *tutor.Context, raw json.RawMessage) (Result, error) {
				var args skills.DeleteGroupArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, err
				}
				return Result{Actions: []whiteboard.Action{skills.DeleteGroup(args)}}, nil
			},
		},
		{
			Name: "highlight_object", Description: "Transiently highlight an existing whiteboard object.", Cost: CostLow,
			SchemaDoc: schemaRequiring("target_object_id"),
			Fn: func(_ context.Context, _ *tutor.Context, raw json.RawMessage) (Result, error) {
				var args skills.HighlightObjectArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, err
				}
				action, ephemeral := skills.HighlightObject(args, now())
				return Result{Actions: []whiteboard.Action{action}, Ephemeral: []whiteboard.CanvasObject{ephemeral}}, nil
			},
		},
		{
			Name: "show_pointer_at", Description: "Place a transient pointer ping at a board location.", Cost: CostLow,
			Fn: func(_ context.Context, _ *tutor.Context, raw json.RawMessage) (Result, error) {
				var args skills.ShowPointerAtArgs
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, err
				}
				action, ephemeral := skills.ShowPointerAt(args, now())
				return Result{Actions: []whiteboard.Action{action}, Ephemeral: []whiteboard.CanvasObject{ephemeral}}, nil
			},
		},
	}
}

// schemaRequiring builds a minimal JSON Schema document requiring the
// named top-level properties to be present, compiled once at registry
// build time (D4). It checks presence only: field types and nested shapes
// are not part of the schema, and a descriptor without a SchemaDoc is not
// schema-checked at all.
func schemaRequiring(fields ...string) json.RawMessage {
	doc, _ := json.Marshal(map[string]any{
		"type":     "object",
		"required": fields,
	})
	return doc
}
