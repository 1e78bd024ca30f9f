// Package evaluator implements the Deterministic Evaluator (C8): the
// answer-grading path that bypasses the Lean Executor/LLM entirely when a
// client answers a pending MCQ, grounded on the executor's own dispatch
// shape (internal/executor) so the two paths produce interchangeable
// outbound envelopes.
package evaluator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/crit308/tutorcore/internal/executor"
	"github.com/crit308/tutorcore/internal/learner"
	"github.com/crit308/tutorcore/internal/skills"
	"github.com/crit308/tutorcore/internal/tutor"
)

// AnswerArgs is the client's answer event payload (§6 `answer`).
type AnswerArgs struct {
	AnswerIndex int    `json:"answer_index"`
	QuestionID  string `json:"question_id,omitempty"`
}

// Evaluate grades tc's current quiz question against args without any LLM
// call (§4.8). It returns an executor.TurnOutput so callers can reuse the
// exact same outbound-envelope path as a normal executor turn.
//
// Evaluate never consumes the high-cost-call budget and never mutates
// tc.Objective. It does mutate tc otherwise: it updates the learner model,
// clears the current quiz and pending interaction, and appends the
// simulated feedback call to the chat history.
func Evaluate(tc *tutor.Context, args AnswerArgs, now time.Time) (executor.TurnOutput, error) {
	q := tc.CurrentQuiz
	if q == nil {
		return executor.TurnOutput{}, fmt.Errorf("evaluator: no pending quiz question on session %s", tc.SessionID)
	}

	if args.AnswerIndex < 0 || args.AnswerIndex >= len(q.Options) {
		// §8 boundary behavior: pending quiz is preserved, a structured
		// error is returned, and the learner model is untouched.
		return executor.TurnOutput{}, fmt.Errorf("%w: answer_index %d out of range [0,%d)", tutor.ErrToolInput, args.AnswerIndex, len(q.Options))
	}

	isCorrect := args.AnswerIndex == q.CorrectAnswerIndex
	selectedText := q.Options[args.AnswerIndex]
	correctText := q.Options[q.CorrectAnswerIndex]

	suggestion := "Nice work — keep going."
	if !isCorrect {
		suggestion = fmt.Sprintf("Review why %q fits better than %q and try a similar question.", correctText, selectedText)
	}

	actions := skills.DrawMCQFeedback(skills.DrawMCQFeedbackArgs{
		QuestionID:      q.QuestionID,
		OptionID:        args.AnswerIndex,
		CorrectOptionID: q.CorrectAnswerIndex,
		IsCorrect:       isCorrect,
		NumOptions:      len(q.Options),
		ExplanationText: q.Explanation,
		SuggestionText:  suggestion,
	})

	outcome := learner.OutcomeIncorrect
	if isCorrect {
		outcome = learner.OutcomeCorrect
	}
	topic := q.Topic
	if topic == "" {
		topic = tc.Learner.CurrentTopic
	}
	if topic == "" && tc.Objective != nil {
		topic = tc.Objective.Topic
	}
	tc.Learner.Update(topic, outcome, "", now)

	tc.CurrentQuiz = nil
	tc.PendingInteraction = nil
	tc.LastPendingInteraction = ""
	tc.LastPedagogicalAction = tutor.ActionEvaluated

	// §4.8 step 6: a simulated assistant feedback tool call is appended so
	// the next executor turn sees continuity, mirroring
	// executor.dispatchFrontEnd's own "assistant raw JSON" convention.
	feedbackArgs, _ := json.Marshal(executor.FeedbackArgs{
		Text:      feedbackText(isCorrect, selectedText, correctText, q.Explanation),
		IsCorrect: &isCorrect,
	})
	tc.AppendHistory("assistant", string(mustMarshalSimulatedCall(feedbackArgs)))

	payload := FeedbackItem{
		SelectedOptionText: selectedText,
		CorrectOptionText:  correctText,
		IsCorrect:          isCorrect,
		Explanation:        q.Explanation,
		Suggestion:         suggestion,
	}

	return executor.TurnOutput{TurnResult: executor.TurnResult{
		Envelope: executor.Envelope{
			SchemaVersion:     executor.SchemaVersion,
			ContentType:       executor.ContentFeedback,
			Data:              payload,
			UserModelState:    tc.Learner,
			WhiteboardActions: actions,
		},
	}}, nil
}

// FeedbackItem is the feedback envelope's Data payload (§4.8 step 2).
type FeedbackItem struct {
	SelectedOptionText string `json:"selected_option_text"`
	CorrectOptionText  string `json:"correct_option_text"`
	IsCorrect          bool   `json:"is_correct"`
	Explanation        string `json:"explanation"`
	Suggestion         string `json:"suggestion"`
}

func feedbackText(isCorrect bool, selected, correct, explanation string) string {
	if isCorrect {
		return fmt.Sprintf("Correct! %s", explanation)
	}
	return fmt.Sprintf("Not quite — you picked %q, the answer was %q. %s", selected, correct, explanation)
}

func mustMarshalSimulatedCall(feedbackArgs json.RawMessage) []byte {
	call := tutor.ToolCall{Name: string(executor.ToolFeedback), Args: feedbackArgs}
	b, err := json.Marshal(call)
	if err != nil {
		return []byte(`{"name":"feedback"}`)
	}
	return b
}
