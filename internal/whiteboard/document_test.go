package whiteboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAddObjectsThenDeleteObjects(t *testing.T) {
	doc := NewDocument("s1")
	doc.Apply(Action{Type: ActionAddObjects, Objects: []CanvasObject{
		{ID: "o1", Kind: KindText, Text: "hi"},
		{ID: "o2", Kind: KindText, Text: "bye"},
	}}, "assistant")

	objs := doc.Objects()
	require.Len(t, objs, 2)

	doc.Apply(Action{Type: ActionDeleteObjects, ObjectIDs: []string{"o1"}}, "assistant")
	objs = doc.Objects()
	require.Len(t, objs, 1)
	_, stillThere := objs["o2"]
	assert.True(t, stillThere)
}

func TestApplyUpdateObjectsMergesFields(t *testing.T) {
	doc := NewDocument("s1")
	doc.Apply(Action{Type: ActionAddObjects, Objects: []CanvasObject{{ID: "o1", Kind: KindRect, X: 1, Y: 1}}}, "assistant")
	doc.Apply(Action{Type: ActionUpdateObjects, Updates: []ObjectUpdate{
		{ObjectID: "o1", Updates: map[string]any{"x": 50.0, "text": "moved"}},
	}}, "assistant")

	obj := doc.Objects()["o1"]
	assert.Equal(t, 50.0, obj.X)
	assert.Equal(t, 1.0, obj.Y, "unspecified fields are left untouched")
	assert.Equal(t, "moved", obj.Text)
}

func TestApplyClearBoardTombstonesEverything(t *testing.T) {
	doc := NewDocument("s1")
	doc.Apply(Action{Type: ActionAddObjects, Objects: []CanvasObject{{ID: "o1"}, {ID: "o2"}}}, "assistant")
	doc.Apply(Action{Type: ActionClearBoard}, "assistant")
	assert.Empty(t, doc.Objects())
}

func TestApplyGroupObjectsStampsGroupID(t *testing.T) {
	doc := NewDocument("s1")
	doc.Apply(Action{Type: ActionAddObjects, Objects: []CanvasObject{{ID: "o1"}, {ID: "o2"}}}, "assistant")
	doc.Apply(Action{Type: ActionGroupObjects, ObjectIDs: []string{"o1", "o2"}, GroupID: "g1"}, "assistant")

	objs := doc.Objects()
	assert.Equal(t, "g1", objs["o1"].Metadata.GroupID)
	assert.Equal(t, "g1", objs["o2"].Metadata.GroupID)
}

func TestApplyMoveGroupShiftsOnlyGroupMembers(t *testing.T) {
	doc := NewDocument("s1")
	doc.Apply(Action{Type: ActionAddObjects, Objects: []CanvasObject{
		{ID: "o1", X: 10, Y: 10, Metadata: Metadata{GroupID: "g1"}},
		{ID: "o2", X: 0, Y: 0},
	}}, "assistant")
	doc.Apply(Action{Type: ActionMoveGroup, GroupID: "g1", DeltaX: 5, DeltaY: -5}, "assistant")

	objs := doc.Objects()
	assert.Equal(t, 15.0, objs["o1"].X)
	assert.Equal(t, 5.0, objs["o1"].Y)
	assert.Equal(t, 0.0, objs["o2"].X, "objects outside the group are unaffected")
}

func TestApplyDeleteGroupRemovesOnlyGroupMembers(t *testing.T) {
	doc := NewDocument("s1")
	doc.Apply(Action{Type: ActionAddObjects, Objects: []CanvasObject{
		{ID: "o1", Metadata: Metadata{GroupID: "g1"}},
		{ID: "o2", Metadata: Metadata{GroupID: "g1"}},
		{ID: "o3"},
	}}, "assistant")
	doc.Apply(Action{Type: ActionDeleteGroup, GroupID: "g1"}, "assistant")

	objs := doc.Objects()
	require.Len(t, objs, 1)
	_, stillThere := objs["o3"]
	assert.True(t, stillThere)
}

func TestDecodeInboundUpdateRewritesSourceToUser(t *testing.T) {
	raw := []byte(`{"version":1,"action":{"type":"ADD_OBJECTS","objects":[{"id":"o1","kind":"text","metadata":{"source":"assistant"}}]}}`)
	upd, err := DecodeInboundUpdate(raw)
	require.NoError(t, err)
	require.Len(t, upd.Action.Objects, 1)
	assert.Equal(t, SourceUser, upd.Action.Objects[0].Metadata.Source)
}

func TestGCExpiredRemovesOnlyPastDeadlines(t *testing.T) {
	doc := NewDocument("s1")
	now := time.Unix(1700000000, 0).UTC()
	doc.PutEphemeral(CanvasObject{ID: "expired", Metadata: Metadata{ExpiresAt: now.Add(-time.Second).UnixMilli()}}, "assistant")
	doc.PutEphemeral(CanvasObject{ID: "live", Metadata: Metadata{ExpiresAt: now.Add(time.Minute).UnixMilli()}}, "assistant")

	removed := doc.GCExpired(now)
	assert.Equal(t, 1, removed)

	eph := doc.Ephemeral()
	_, expiredGone := eph["expired"]
	_, liveStays := eph["live"]
	assert.False(t, expiredGone)
	assert.True(t, liveStays)
}
