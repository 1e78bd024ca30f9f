package session

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crit308/tutorcore/internal/executor"
	"github.com/crit308/tutorcore/internal/memory"
	"github.com/crit308/tutorcore/internal/memory/inmem"
	"github.com/crit308/tutorcore/internal/model"
	"github.com/crit308/tutorcore/internal/tools"
	"github.com/crit308/tutorcore/internal/tutor"
)

type fakeClient struct {
	responses []model.Response
	i         int
}

func (f *fakeClient) Complete(_ context.Context, _ model.Request) (model.Response, error) {
	if f.i >= len(f.responses) {
		return model.Response{Content: `{"name":"message","args":{"text":"let's keep going"}}`}, nil
	}
	r := f.responses[f.i]
	f.i++
	return r, nil
}

func newTestRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg, err := tools.NewRegistry(nil)
	require.NoError(t, err)
	return reg
}

func newTestRuntime(t *testing.T, client model.Client) (*Runtime, *inmem.Store) {
	t.Helper()
	store := inmem.New()
	exec := executor.New(client, newTestRegistry(t), 3, nil)
	rt := NewRuntime(store, exec, nil, nil, nil, nil, nil, 0, nil)
	return rt, store
}

func TestHandleInboundUserMessageRunsTurnAndPersists(t *testing.T) {
	client := &fakeClient{responses: []model.Response{
		{Content: `{"name":"explain","args":{"text":"A chemical reaction rearranges atoms."}}`},
	}}
	rt, store := newTestRuntime(t, client)
	require.NoError(t, store.CreateSession(context.Background(), memory.NewSessionRow("sess-1", "user-1", "")))

	tc := tutor.NewContext("sess-1", "user-1", "")
	outs, closeConn := rt.HandleInbound(context.Background(), tc, InboundMessage{Type: InUserMessage, Text: "why does wood burn?"})

	require.Len(t, outs, 1)
	assert.False(t, closeConn)
	assert.Equal(t, OutInteractionResponse, outs[0].Type)
	require.NotNil(t, outs[0].Envelope)
	assert.Equal(t, executor.ContentExplanation, outs[0].Envelope.ContentType)
	assert.Equal(t, 2, tc.TurnNo, "the user turn and the assistant turn each consume a turn number")

	rows, err := store.Since(context.Background(), "sess-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2, "user_message must persist its own session_messages row alongside the assistant reply")
	assert.Equal(t, "user", rows[0].Role)
	assert.Equal(t, 1, rows[0].TurnNo)
	assert.Equal(t, "why does wood burn?", rows[0].Text)
	assert.Empty(t, rows[0].PayloadJSON, "user rows carry no payload_json")
	assert.Equal(t, "assistant", rows[1].Role)
	assert.Equal(t, 2, rows[1].TurnNo)

	logs, err := store.AllForSession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "user", logs[0].Role)
	assert.Equal(t, "assistant", logs[1].Role)
}

func TestHandleInboundCanvasClickRecordsObjectID(t *testing.T) {
	rt, store := newTestRuntime(t, &fakeClient{})
	require.NoError(t, store.CreateSession(context.Background(), memory.NewSessionRow("sess-8", "user-1", "")))
	tc := tutor.NewContext("sess-8", "user-1", "")

	outs, closeConn := rt.HandleInbound(context.Background(), tc, InboundMessage{Type: InCanvasClick, ObjectID: "obj-42"})
	require.Len(t, outs, 1)
	assert.False(t, closeConn)

	logs, err := store.AllForSession(context.Background(), "sess-8")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Contains(t, logs[0].Content, "obj-42")

	rows, err := store.Since(context.Background(), "sess-8", 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1, "canvas_click never gets its own session_messages row")
	assert.Equal(t, "assistant", rows[0].Role)
}

func TestHandleInboundAnswerGradesDeterministically(t *testing.T) {
	rt, store := newTestRuntime(t, &fakeClient{})
	require.NoError(t, store.CreateSession(context.Background(), memory.NewSessionRow("sess-2", "user-1", "")))

	tc := tutor.NewContext("sess-2", "user-1", "")
	tc.CurrentQuiz = &tutor.QuizQuestion{
		QuestionID: "q-1", Question: "2+2?", Options: []string{"3", "4"}, CorrectAnswerIndex: 1,
	}

	outs, closeConn := rt.HandleInbound(context.Background(), tc, InboundMessage{Type: InAnswer, AnswerIndex: 1, QuestionID: "q-1"})

	require.Len(t, outs, 1)
	assert.False(t, closeConn)
	require.NotNil(t, outs[0].Envelope)
	assert.Equal(t, executor.ContentFeedback, outs[0].Envelope.ContentType)
	assert.Nil(t, tc.CurrentQuiz, "answering resolves the pending quiz")
}

func TestHandleInboundAnswerOutOfRangePreservesQuiz(t *testing.T) {
	rt, store := newTestRuntime(t, &fakeClient{})
	require.NoError(t, store.CreateSession(context.Background(), memory.NewSessionRow("sess-3", "user-1", "")))

	tc := tutor.NewContext("sess-3", "user-1", "")
	quiz := &tutor.QuizQuestion{QuestionID: "q-1", Question: "2+2?", Options: []string{"3", "4"}, CorrectAnswerIndex: 1}
	tc.CurrentQuiz = quiz

	outs, closeConn := rt.HandleInbound(context.Background(), tc, InboundMessage{Type: InAnswer, AnswerIndex: 9, QuestionID: "q-1"})

	require.Len(t, outs, 1)
	assert.False(t, closeConn)
	assert.Equal(t, OutError, outs[0].Type)
	assert.Equal(t, quiz, tc.CurrentQuiz, "an invalid answer index must not consume the pending quiz")
	assert.Equal(t, 0, tc.TurnNo, "a rejected answer never advances the turn counter")
}

func TestHandleInboundEndSessionSchedulesAnalysisOnce(t *testing.T) {
	rt, store := newTestRuntime(t, &fakeClient{})
	require.NoError(t, store.CreateSession(context.Background(), memory.NewSessionRow("sess-4", "user-1", "")))

	tc := tutor.NewContext("sess-4", "user-1", "")
	outs, closeConn := rt.HandleInbound(context.Background(), tc, InboundMessage{Type: InEndSession})
	require.Len(t, outs, 1)
	assert.True(t, closeConn)
	assert.Equal(t, OutConfirmation, outs[0].Type)
	assert.NotNil(t, tc.EndedAt)

	row, err := store.LoadSession(context.Background(), "sess-4")
	require.NoError(t, err)
	assert.NotNil(t, row.EndedAt)

	outs2, closeConn2 := rt.HandleInbound(context.Background(), tc, InboundMessage{Type: InEndSession})
	require.Len(t, outs2, 1)
	assert.True(t, closeConn2)
	assert.Contains(t, outs2[0].Text, "already processing")
}

func TestHandleInboundWhiteboardModeValidates(t *testing.T) {
	rt, store := newTestRuntime(t, &fakeClient{})
	require.NoError(t, store.CreateSession(context.Background(), memory.NewSessionRow("sess-5", "user-1", "")))
	tc := tutor.NewContext("sess-5", "user-1", "")

	outs, closeConn := rt.HandleInbound(context.Background(), tc, InboundMessage{Type: InWhiteboardMode, InteractionMode: "chat_only"})
	require.Len(t, outs, 1)
	assert.False(t, closeConn)
	assert.Equal(t, OutConfirmation, outs[0].Type)
	assert.Equal(t, tutor.ModeChatOnly, tc.Mode)

	outs2, _ := rt.HandleInbound(context.Background(), tc, InboundMessage{Type: InWhiteboardMode, InteractionMode: "bogus"})
	require.Len(t, outs2, 1)
	assert.Equal(t, OutError, outs2[0].Type)
}

func TestHandleInboundPingIsANoop(t *testing.T) {
	rt, _ := newTestRuntime(t, &fakeClient{})
	tc := tutor.NewContext("sess-6", "user-1", "")
	outs, closeConn := rt.HandleInbound(context.Background(), tc, InboundMessage{Type: InPing})
	assert.Nil(t, outs)
	assert.False(t, closeConn)
}

func TestResolveBoardStateDeliversToWaiter(t *testing.T) {
	rt, _ := newTestRuntime(t, &fakeClient{})
	wait := make(chan json.RawMessage, 1)
	rt.mu.Lock()
	rt.waiters["sess-7"] = wait
	rt.mu.Unlock()

	rt.ResolveBoardState("sess-7", json.RawMessage(`{"objects":[]}`))

	select {
	case payload := <-wait:
		assert.JSONEq(t, `{"objects":[]}`, string(payload))
	default:
		t.Fatal("expected a delivered board state payload")
	}
}
