package skills

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crit308/tutorcore/internal/layout"
	"github.com/crit308/tutorcore/internal/tutor"
	"github.com/crit308/tutorcore/internal/whiteboard"
)

func mustParseTime(t *testing.T) time.Time {
	t.Helper()
	return time.Unix(1700000000, 0).UTC()
}

func TestDeterministicID(t *testing.T) {
	a := deterministicID("text", "hello", "primary")
	b := deterministicID("text", "hello", "primary")
	c := deterministicID("text", "hello", "accent")
	assert.Equal(t, a, b, "identical inputs must yield identical ids")
	assert.NotEqual(t, a, c, "different inputs must yield different ids")
}

func TestStyleTokenFallsBackToDefault(t *testing.T) {
	assert.Equal(t, "#000000", StyleToken(ColorDefault))
	assert.Equal(t, "#000000", StyleToken(ColorToken("not-a-real-token")))
	assert.Equal(t, "#2ECC71", StyleToken(ColorSuccess))
}

func TestDrawTextDeterministicAcrossCalls(t *testing.T) {
	a := DrawText(DrawTextArgs{Text: "hi", ColorToken: ColorPrimary})
	b := DrawText(DrawTextArgs{Text: "hi", ColorToken: ColorPrimary})
	require.Len(t, a.Objects, 1)
	require.Len(t, b.Objects, 1)
	assert.Equal(t, a.Objects[0].ID, b.Objects[0].ID)
}

func TestDrawMCQActionsFallsBackToAllocator(t *testing.T) {
	grid := layout.NewGrid()
	placer := NewPlacer(grid, nil)

	action, err := DrawMCQActions(placer, DrawMCQActionsArgs{
		Question: tutor.QuizQuestion{
			Question: "2+2?",
			Options:  []string{"3", "4", "5"},
		},
		QuestionID: "q1",
	})
	require.NoError(t, err)
	assert.Equal(t, whiteboard.ActionAddObjects, action.Type)
	// question text + 3 options * 2 objects each
	assert.Len(t, action.Objects, 1+3*2)
	for _, obj := range action.Objects {
		assert.Equal(t, "q1", obj.Metadata.GroupID)
	}
}

func TestDrawMCQFeedbackRecolorsSelectedAndCorrect(t *testing.T) {
	actions := DrawMCQFeedback(DrawMCQFeedbackArgs{
		QuestionID:      "q1",
		OptionID:        0,
		CorrectOptionID: 1,
		IsCorrect:       false,
		NumOptions:      3,
		ExplanationText: "because",
		SuggestionText:  "review",
	})
	require.Len(t, actions, 2)
	assert.Equal(t, whiteboard.ActionUpdateObjects, actions[0].Type)
	assert.Len(t, actions[0].Updates, 2, "wrong answer recolors both the selected and correct selector")
	assert.Equal(t, whiteboard.ActionAddObjects, actions[1].Type)
	require.Len(t, actions[1].Objects, 1)
	assert.Contains(t, actions[1].Objects[0].Text, "because")
}

func TestHighlightObjectProducesMatchingEphemeral(t *testing.T) {
	now := mustParseTime(t)
	action, ephemeral := HighlightObject(HighlightObjectArgs{TargetObjectID: "obj-1", Pulse: true}, now)
	assert.Equal(t, whiteboard.ActionHighlightObject, action.Type)
	assert.Equal(t, "obj-1", action.ObjectID)
	assert.Equal(t, whiteboard.Kind("highlight_stroke"), ephemeral.Kind)
	assert.Greater(t, ephemeral.Metadata.ExpiresAt, now.UnixMilli())
}

func TestShowPointerAtDefaultsDuration(t *testing.T) {
	now := mustParseTime(t)
	action, ephemeral := ShowPointerAt(ShowPointerAtArgs{X: 10, Y: 20}, now)
	assert.Equal(t, whiteboard.ActionShowPointerAt, action.Type)
	assert.Equal(t, 10.0, action.X)
	assert.Equal(t, whiteboard.Kind("pointer_ping"), ephemeral.Kind)
	assert.Equal(t, now.UnixMilli()+DefaultPointerDurationMs, ephemeral.Metadata.ExpiresAt)
}

func TestGroupMoveDeleteGroupActions(t *testing.T) {
	group := GroupObjects(GroupObjectsArgs{ObjectIDs: []string{"a", "b"}, GroupID: "g1"})
	assert.Equal(t, whiteboard.ActionGroupObjects, group.Type)
	assert.Equal(t, []string{"a", "b"}, group.ObjectIDs)
	assert.Equal(t, "g1", group.GroupID)

	move := MoveGroup(MoveGroupArgs{GroupID: "g1", DeltaX: 10, DeltaY: -5})
	assert.Equal(t, whiteboard.ActionMoveGroup, move.Type)
	assert.Equal(t, 10.0, move.DeltaX)
	assert.Equal(t, -5.0, move.DeltaY)

	del := DeleteGroup(DeleteGroupArgs{GroupID: "g1"})
	assert.Equal(t, whiteboard.ActionDeleteGroup, del.Type)
	assert.Equal(t, "g1", del.GroupID)
}
