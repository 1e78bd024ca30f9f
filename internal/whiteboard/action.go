package whiteboard

// ActionType tags an Action's variant.
type ActionType string

const (
	ActionAddObjects      ActionType = "ADD_OBJECTS"
	ActionUpdateObjects   ActionType = "UPDATE_OBJECTS"
	ActionDeleteObjects   ActionType = "DELETE_OBJECTS"
	ActionClearBoard      ActionType = "CLEAR_BOARD"
	ActionGroupObjects    ActionType = "GROUP_OBJECTS"
	ActionMoveGroup       ActionType = "MOVE_GROUP"
	ActionDeleteGroup     ActionType = "DELETE_GROUP"
	ActionHighlightObject ActionType = "HIGHLIGHT_OBJECT"
	ActionShowPointerAt   ActionType = "SHOW_POINTER_AT"
)

// ObjectUpdate is one entry of an UPDATE_OBJECTS action: the fields to
// merge into the named object.
type ObjectUpdate struct {
	ObjectID string         `json:"objectId"`
	Updates  map[string]any `json:"updates"`
}

// Action is the tagged union of whiteboard mutations a skill can emit
// (§3 "Whiteboard action"). Exactly one of the payload fields is populated,
// selected by Type.
type Action struct {
	Type ActionType `json:"type"`

	// ADD_OBJECTS
	Objects  []CanvasObject `json:"objects,omitempty"`
	Strategy string         `json:"strategy,omitempty"`
	Anchor   *AnchorParams  `json:"anchor,omitempty"`
	Template string         `json:"template,omitempty"`
	Zone     string         `json:"zone,omitempty"`
	GroupID  string         `json:"group_id,omitempty"`

	// UPDATE_OBJECTS
	Updates []ObjectUpdate `json:"updates,omitempty"`

	// DELETE_OBJECTS / GROUP_OBJECTS members / DELETE_GROUP
	ObjectIDs []string `json:"object_ids,omitempty"`

	// MOVE_GROUP
	DeltaX float64 `json:"delta_x,omitempty"`
	DeltaY float64 `json:"delta_y,omitempty"`

	// HIGHLIGHT_OBJECT
	ObjectID string `json:"object_id,omitempty"`
	Color    string `json:"color,omitempty"`

	// SHOW_POINTER_AT
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
}

// AnchorParams describes anchor placement info for an ADD_OBJECTS action
// (§4.7 dispatch step 4). No backend skill and no executor path fills it
// in, so Action.Anchor is nil on every action the server emits; it is only
// carried through when a decoded inbound update includes it.
type AnchorParams struct {
	AnchorObjectID string  `json:"anchor_object_id,omitempty"`
	Placement      string  `json:"placement,omitempty"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
}
