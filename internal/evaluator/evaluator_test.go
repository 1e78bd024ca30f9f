package evaluator

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crit308/tutorcore/internal/executor"
	"github.com/crit308/tutorcore/internal/tutor"
)

func newContextWithQuiz() *tutor.Context {
	tc := tutor.NewContext("sess-1", "user-1", "")
	tc.CurrentQuiz = &tutor.QuizQuestion{
		QuestionID:         "q1",
		Question:           "Inputs of photosynthesis?",
		Options:            []string{"CO2+H2O+light", "Glucose", "Oxygen", "Heat"},
		CorrectAnswerIndex: 0,
		Explanation:        "Plants combine carbon dioxide, water and light energy.",
		Topic:              "Photosynthesis",
	}
	tc.PendingInteraction = &tutor.PendingInteraction{Type: "mcq_question"}
	return tc
}

func TestEvaluateCorrectAnswer(t *testing.T) {
	tc := newContextWithQuiz()
	now := time.Now()

	out, err := Evaluate(tc, AnswerArgs{AnswerIndex: 0}, now)
	require.NoError(t, err)

	assert.Equal(t, executor.ContentFeedback, out.Envelope.ContentType)
	payload, ok := out.Envelope.Data.(FeedbackItem)
	require.True(t, ok)
	assert.True(t, payload.IsCorrect)

	assert.Nil(t, tc.CurrentQuiz)
	assert.Nil(t, tc.PendingInteraction)
	assert.Equal(t, tutor.ActionEvaluated, tc.LastPedagogicalAction)

	rec := tc.Learner.Concepts["Photosynthesis"]
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.Alpha)
	assert.Equal(t, 1, rec.Beta)
	assert.Equal(t, 1, rec.Attempts)

	require.Len(t, tc.ChatHistory, 1)
	assert.Equal(t, "assistant", tc.ChatHistory[0].Role)

	require.Len(t, out.Envelope.WhiteboardActions, 2)
}

func TestEvaluateIncorrectAnswer(t *testing.T) {
	tc := newContextWithQuiz()
	out, err := Evaluate(tc, AnswerArgs{AnswerIndex: 1}, time.Now())
	require.NoError(t, err)

	payload := out.Envelope.Data.(FeedbackItem)
	assert.False(t, payload.IsCorrect)
	assert.Equal(t, "Glucose", payload.SelectedOptionText)
	assert.Equal(t, "CO2+H2O+light", payload.CorrectOptionText)

	rec := tc.Learner.Concepts["Photosynthesis"]
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Alpha)
	assert.Equal(t, 2, rec.Beta)
}

func TestEvaluateOutOfRangeAnswerPreservesQuiz(t *testing.T) {
	tc := newContextWithQuiz()
	_, err := Evaluate(tc, AnswerArgs{AnswerIndex: 7}, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, tutor.ErrToolInput))

	assert.NotNil(t, tc.CurrentQuiz)
	assert.Empty(t, tc.Learner.Concepts)
}

func TestEvaluateNoPendingQuiz(t *testing.T) {
	tc := tutor.NewContext("sess-1", "user-1", "")
	_, err := Evaluate(tc, AnswerArgs{AnswerIndex: 0}, time.Now())
	require.Error(t, err)
}
