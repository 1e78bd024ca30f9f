package skills

import (
	"time"

	"github.com/crit308/tutorcore/internal/whiteboard"
)

// ClearBoard returns a whiteboard action that tombstones every live
// object, used before a fresh diagram/MCQ/graph replaces the board.
func ClearBoard() whiteboard.Action {
	return whiteboard.Action{Type: whiteboard.ActionClearBoard}
}

// GroupObjectsArgs ties a set of existing objects into a single group so
// a later MoveGroup/DeleteGroup can address them together.
type GroupObjectsArgs struct {
	ObjectIDs []string `json:"object_ids"`
	GroupID   string   `json:"group_id"`
}

// GroupObjects emits a GROUP_OBJECTS action stamping args.GroupID onto
// every listed object's metadata.
func GroupObjects(args GroupObjectsArgs) whiteboard.Action {
	return whiteboard.Action{Type: whiteboard.ActionGroupObjects, ObjectIDs: args.ObjectIDs, GroupID: args.GroupID}
}

// MoveGroupArgs repositions every object sharing a group id by a fixed
// pixel delta, used to relocate a diagram/table/flowchart as one unit.
type MoveGroupArgs struct {
	GroupID string  `json:"group_id"`
	DeltaX  float64 `json:"delta_x"`
	DeltaY  float64 `json:"delta_y"`
}

// MoveGroup emits a MOVE_GROUP action.
func MoveGroup(args MoveGroupArgs) whiteboard.Action {
	return whiteboard.Action{Type: whiteboard.ActionMoveGroup, GroupID: args.GroupID, DeltaX: args.DeltaX, DeltaY: args.DeltaY}
}

// DeleteGroupArgs removes every object sharing a group id.
type DeleteGroupArgs struct {
	GroupID string `json:"group_id"`
}

// DeleteGroup emits a DELETE_GROUP action.
func DeleteGroup(args DeleteGroupArgs) whiteboard.Action {
	return whiteboard.Action{Type: whiteboard.ActionDeleteGroup, GroupID: args.GroupID}
}

// HighlightObjectArgs transiently highlights an existing object.
type HighlightObjectArgs struct {
	TargetObjectID string     `json:"target_object_id"`
	ColorToken     ColorToken `json:"color_token,omitempty"`
	Pulse          bool       `json:"pulse,omitempty"`
}

// DefaultHighlightDurationMs is used when the caller omits a duration.
const DefaultHighlightDurationMs = 3000

// HighlightObject emits a HIGHLIGHT_OBJECT action the front end renders as
// a temporary outline/glow around the target object, and the matching
// ephemeral board entry (kind "highlight_stroke") so the board-summary
// digest can report active highlights until it expires (§4.2 ephemeral
// map).
func HighlightObject(args HighlightObjectArgs, now time.Time) (whiteboard.Action, whiteboard.CanvasObject) {
	token := args.ColorToken
	if token == "" {
		token = ColorAccent
	}
	action := whiteboard.Action{
		Type:     whiteboard.ActionHighlightObject,
		ObjectID: args.TargetObjectID,
		Color:    StyleToken(token),
	}
	ephemeral := whiteboard.CanvasObject{
		ID:   "highlight-" + args.TargetObjectID,
		Kind: "highlight_stroke",
		Metadata: whiteboard.Metadata{
			Source:    whiteboard.SourceAssistant,
			ExpiresAt: now.Add(DefaultHighlightDurationMs * time.Millisecond).UnixMilli(),
			Extra:     map[string]any{"target_object_id": args.TargetObjectID, "pulse": args.Pulse},
		},
	}
	return action, ephemeral
}

// ShowPointerAtArgs places a transient pointer ping on the board.
type ShowPointerAtArgs struct {
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	PointerID  string     `json:"pointer_id,omitempty"`
	DurationMs int64      `json:"duration_ms,omitempty"`
	ColorToken ColorToken `json:"color_token,omitempty"`
}

// DefaultPointerDurationMs is used when the caller omits a duration.
const DefaultPointerDurationMs = 2500

// ShowPointerAt emits a SHOW_POINTER_AT action (absolute pixel coordinates
// the caller must have already resolved, e.g. from a zone or an existing
// object's position) plus the matching ephemeral board entry (kind
// "pointer_ping") so the board-summary digest can report the most recent
// pointer ping until it expires.
func ShowPointerAt(args ShowPointerAtArgs, now time.Time) (whiteboard.Action, whiteboard.CanvasObject) {
	durationMs := args.DurationMs
	if durationMs <= 0 {
		durationMs = DefaultPointerDurationMs
	}
	pointerID := args.PointerID
	if pointerID == "" {
		pointerID = deterministicID("pointer", f(args.X), f(args.Y))
	}
	token := args.ColorToken
	if token == "" {
		token = ColorAccent
	}
	action := whiteboard.Action{Type: whiteboard.ActionShowPointerAt, X: args.X, Y: args.Y}
	ephemeral := whiteboard.CanvasObject{
		ID:   pointerID,
		Kind: "pointer_ping",
		X:    args.X,
		Y:    args.Y,
		Metadata: whiteboard.Metadata{
			Source:    whiteboard.SourceAssistant,
			ExpiresAt: now.Add(time.Duration(durationMs) * time.Millisecond).UnixMilli(),
			Extra:     map[string]any{"color": StyleToken(token)},
		},
	}
	return action, ephemeral
}
