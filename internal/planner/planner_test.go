package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crit308/tutorcore/internal/memory"
	"github.com/crit308/tutorcore/internal/memory/inmem"
	"github.com/crit308/tutorcore/internal/model"
	"github.com/crit308/tutorcore/internal/tutor"
)

type fakeClient struct {
	responses []model.Response
	i         int
}

func (f *fakeClient) Complete(_ context.Context, _ model.Request) (model.Response, error) {
	r := f.responses[f.i]
	if f.i < len(f.responses)-1 {
		f.i++
	}
	return r, nil
}

func TestPlannerBootstrapPicksOnlyUnblockedCandidate(t *testing.T) {
	store := inmem.New()
	store.SeedFolder(memory.FolderRow{ID: "folder-1", KnowledgeBase: "A is the basics. B builds on A. C builds on B."})
	store.SeedEdges([]memory.PrereqEdge{{Prereq: "A", Concept: "B"}, {Prereq: "B", Concept: "C"}})

	client := &fakeClient{responses: []model.Response{
		{Content: `{"topic":"A","learning_goal":"Learn the basics","priority":2,"target_mastery":0.8}`},
	}}
	p := New(client, store, nil)

	tc := tutor.NewContext("sess-1", "user-1", "folder-1")
	obj, err := p.Plan(context.Background(), tc, mustEdges(t, store))
	require.NoError(t, err)

	assert.Equal(t, "A", obj.Topic)
	assert.Equal(t, 2, obj.Priority)
	assert.Equal(t, 0.8, obj.TargetMastery)
	require.NotNil(t, tc.Objective, "Plan must store the objective on the context")
	assert.Equal(t, obj, *tc.Objective)
}

func TestPlannerAppliesDefaultsForMissingFields(t *testing.T) {
	client := &fakeClient{responses: []model.Response{
		{Content: `{"topic":"Photosynthesis","learning_goal":"Understand inputs"}`},
	}}
	p := New(client, inmem.New(), nil)
	tc := tutor.NewContext("sess-1", "user-1", "")

	obj, err := p.Plan(context.Background(), tc, nil)
	require.NoError(t, err)
	assert.Equal(t, tutor.DefaultPriority, obj.Priority)
	assert.Equal(t, tutor.DefaultTargetMastery, obj.TargetMastery)
}

func TestPlannerRetriesOnInvalidJSONThenSucceeds(t *testing.T) {
	client := &fakeClient{responses: []model.Response{
		{Content: `not json`},
		{Content: `{"topic":"X"}`},
		{Content: `{"topic":"X","learning_goal":"goal"}`},
	}}
	p := New(client, inmem.New(), nil)
	tc := tutor.NewContext("sess-1", "user-1", "")

	obj, err := p.Plan(context.Background(), tc, nil)
	require.NoError(t, err)
	assert.Equal(t, "X", obj.Topic)
}

func TestNextLearnableWithNoEdgesReturnsNil(t *testing.T) {
	assert.Nil(t, nextLearnable(nil, map[string]bool{}))
}

func mustEdges(t *testing.T, store *inmem.Store) []memory.PrereqEdge {
	t.Helper()
	edges, err := store.LoadPrereqEdges(context.Background())
	require.NoError(t, err)
	return edges
}
