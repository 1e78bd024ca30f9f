package analyzer

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crit308/tutorcore/internal/memory"
	"github.com/crit308/tutorcore/internal/memory/inmem"
	"github.com/crit308/tutorcore/internal/model"
	"github.com/crit308/tutorcore/internal/tutor"
)

type fakeClient struct {
	calls int32
}

func (f *fakeClient) Complete(_ context.Context, req model.Request) (model.Response, error) {
	atomic.AddInt32(&f.calls, 1)
	if strings.Contains(req.System, "final summary") {
		return model.Response{Content: "Session Summary: the learner practiced photosynthesis."}, nil
	}
	return model.Response{Content: "chunk summary"}, nil
}

func seedEndedSession(t *testing.T, store *inmem.Store, sessionID, folderID string) {
	t.Helper()
	require.NoError(t, store.CreateSession(context.Background(), memory.SessionRow{
		ID: sessionID, FolderID: folderID, Context: *tutor.NewContext(sessionID, "user-1", folderID),
	}))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.AppendLog(context.Background(), memory.LogEntry{
			SessionID: sessionID, Role: "user", Content: strings.Repeat("word ", 200),
		}))
	}
}

func TestAnalyzeClaimsAndSummarizes(t *testing.T) {
	store := inmem.New()
	store.SeedFolder(memory.FolderRow{ID: "folder-1", KnowledgeBase: "existing kb"})
	seedEndedSession(t, store, "sess-1", "folder-1")

	client := &fakeClient{}
	a := New(store, client, nil)

	err := a.Analyze(context.Background(), "sess-1")
	require.NoError(t, err)

	row, err := store.LoadSession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, tutor.AnalysisSuccess, row.AnalysisStatus)
	assert.NotNil(t, row.EndedAt)

	folder, err := store.LoadFolder(context.Background(), "folder-1")
	require.NoError(t, err)
	assert.Contains(t, folder.KnowledgeBase, "Session Summary:")
	assert.Contains(t, folder.KnowledgeBase, "existing kb")
}

func TestAnalyzeSecondClaimIsNoop(t *testing.T) {
	store := inmem.New()
	seedEndedSession(t, store, "sess-2", "")
	client := &fakeClient{}
	a := New(store, client, nil)

	require.NoError(t, a.Analyze(context.Background(), "sess-2"))
	firstCalls := client.calls

	require.NoError(t, a.Analyze(context.Background(), "sess-2"))

	assert.Equal(t, firstCalls, client.calls, "second analyze call should be a no-op once claimed")
}
