package executor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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
		return model.Response{}, errors.New("fake: no more canned responses")
	}
	r := f.responses[f.i]
	f.i++
	return r, nil
}

func newRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	reg, err := tools.NewRegistry([]tools.Descriptor{
		{
			Name: "draw_mcq_actions", Cost: tools.CostMedium,
			Fn: func(_ context.Context, _ *tutor.Context, _ json.RawMessage) (tools.Result, error) {
				return tools.Result{Payload: "drawn"}, nil
			},
		},
		{
			Name: "draw_text", Cost: tools.CostLow,
			SchemaDoc: json.RawMessage(`{"type":"object","required":["text"]}`),
			Fn: func(_ context.Context, _ *tutor.Context, raw json.RawMessage) (tools.Result, error) {
				var args struct {
					Text string `json:"text"`
				}
				if err := json.Unmarshal(raw, &args); err != nil {
					return tools.Result{}, err
				}
				return tools.Result{Payload: args.Text}, nil
			},
		},
		{
			Name: "always_fails", Cost: tools.CostLow,
			Fn: func(_ context.Context, _ *tutor.Context, _ json.RawMessage) (tools.Result, error) {
				return tools.Result{}, errors.New("boom")
			},
		},
	})
	require.NoError(t, err)
	return reg
}

func newTestContext() *tutor.Context {
	return tutor.NewContext("sess-1", "user-1", "")
}

func TestRunTurnDispatchesExplain(t *testing.T) {
	client := &fakeClient{responses: []model.Response{
		{Content: `{"name":"explain","args":{"text":"Photosynthesis converts light into chemical energy."}}`},
	}}
	e := New(client, newRegistry(t), 3, nil)
	tc := newTestContext()

	out, err := e.RunTurn(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, ContentExplanation, out.Envelope.ContentType)
	assert.Equal(t, tutor.ActionExplained, tc.LastPedagogicalAction)
	require.Len(t, tc.ChatHistory, 1)
	assert.Equal(t, "assistant", tc.ChatHistory[0].Role)
}

func TestRunTurnRejectsUnknownToolName(t *testing.T) {
	client := &fakeClient{responses: []model.Response{
		{Content: `{"name":"not_a_real_tool","args":{}}`},
	}}
	e := New(client, newRegistry(t), 3, nil)
	tc := newTestContext()

	out, err := e.RunTurn(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, ContentMessage, out.Envelope.ContentType)
	assert.NotEmpty(t, out.SystemFeedback)
	require.Len(t, tc.ChatHistory, 2, "the raw assistant JSON and the system correction should both be recorded")
	assert.Equal(t, "system", tc.ChatHistory[1].Role)
}

func TestRunTurnAskQuestionAlwaysDrawsMCQInWhiteboardMode(t *testing.T) {
	client := &fakeClient{responses: []model.Response{
		{Content: `{"name":"ask_question","args":{"question_data":{"question":"2+2?","options":["3","4"],"correct_answer_index":1}}}`},
	}}
	e := New(client, newRegistry(t), 3, nil)
	tc := newTestContext()
	tc.Mode = tutor.ModeChatAndWhiteboard

	out, err := e.RunTurn(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, ContentQuestion, out.Envelope.ContentType)
	require.NotNil(t, tc.CurrentQuiz)
	assert.Equal(t, "2+2?", tc.CurrentQuiz.Question)
	assert.NotEmpty(t, tc.CurrentQuiz.QuestionID, "a question id must be generated when the LLM omits one")
	assert.Equal(t, tutor.ActionAsked, tc.LastPedagogicalAction)
	require.NotNil(t, tc.PendingInteraction)
	assert.Equal(t, "mcq_question", tc.PendingInteraction.Type)
}

func TestRunTurnAskQuestionSkipsDrawingInChatOnlyMode(t *testing.T) {
	client := &fakeClient{responses: []model.Response{
		{Content: `{"name":"ask_question","args":{"question_data":{"question":"2+2?","options":["3","4"],"correct_answer_index":1}}}`},
	}}
	e := New(client, newRegistry(t), 3, nil)
	tc := newTestContext()
	tc.Mode = tutor.ModeChatOnly

	out, err := e.RunTurn(context.Background(), tc)
	require.NoError(t, err)
	assert.Empty(t, out.Envelope.WhiteboardActions)
}

func TestRunTurnDispatchesBackendSkillSuccess(t *testing.T) {
	client := &fakeClient{responses: []model.Response{
		{Content: `{"name":"draw_text","args":{"text":"hello"}}`},
	}}
	tc := newTestContext()
	tc.Mode = tutor.ModeChatAndWhiteboard
	e := New(client, newRegistry(t), 3, nil)

	out, err := e.RunTurn(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, ContentRaw, out.Envelope.ContentType)
	assert.Equal(t, "hello", out.Envelope.Data)
	assert.Equal(t, tutor.ActionExplained, tc.LastPedagogicalAction)
}

func TestRunTurnToolInputErrorNeverReachesClient(t *testing.T) {
	client := &fakeClient{responses: []model.Response{
		{Content: `{"name":"draw_text","args":{}}`},
	}}
	tc := newTestContext()
	tc.Mode = tutor.ModeChatAndWhiteboard
	e := New(client, newRegistry(t), 3, nil)

	out, err := e.RunTurn(context.Background(), tc)
	require.NoError(t, err)
	assert.Equal(t, ContentMessage, out.Envelope.ContentType, "argument errors must fall back to a generic message, not an error envelope")
	assert.NotEmpty(t, out.SystemFeedback)
}

func TestRunTurnToolExecutionErrorBecomesErrorEnvelope(t *testing.T) {
	client := &fakeClient{responses: []model.Response{
		{Content: `{"name":"always_fails","args":{}}`},
	}}
	tc := newTestContext()
	tc.Mode = tutor.ModeChatAndWhiteboard
	e := New(client, newRegistry(t), 3, nil)

	out, err := e.RunTurn(context.Background(), tc)
	require.NoError(t, err, "a tool-execution failure ends the turn but does not abort the session")
	assert.Equal(t, ContentError, out.Envelope.ContentType)
}

func TestRunTurnExhaustsRetriesOnUnparsableReply(t *testing.T) {
	client := &fakeClient{responses: []model.Response{
		{Content: "not json"}, {Content: "still not json"}, {Content: "nope"},
	}}
	e := New(client, newRegistry(t), 3, nil)
	tc := newTestContext()

	_, err := e.RunTurn(context.Background(), tc)
	require.Error(t, err)
	assert.ErrorIs(t, err, tutor.ErrLLMFormat)
}

func TestRunTurnEndSession(t *testing.T) {
	client := &fakeClient{responses: []model.Response{
		{Content: `{"name":"end_session","args":{"reason":"all done"}}`},
	}}
	e := New(client, newRegistry(t), 3, nil)
	tc := newTestContext()

	out, err := e.RunTurn(context.Background(), tc)
	require.NoError(t, err)
	assert.True(t, out.EndSession)
}
