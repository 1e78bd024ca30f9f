// Package executor implements the Lean Executor (C7): the one-LLM-call-
// per-turn controller that builds a fresh prompt, parses exactly one tool
// call from the reply, and dispatches it either to a front-end display
// tool (wrapped directly into an outbound envelope) or to a backend skill
// via the tool registry.
package executor

import (
	"github.com/crit308/tutorcore/internal/learner"
	"github.com/crit308/tutorcore/internal/tutor"
	"github.com/crit308/tutorcore/internal/whiteboard"
)

// ContentType tags the shape of Envelope.Data for the front end.
type ContentType string

const (
	ContentExplanation ContentType = "explanation"
	ContentQuestion    ContentType = "question"
	ContentFeedback    ContentType = "feedback"
	ContentMessage     ContentType = "message"
	ContentError       ContentType = "error"
	ContentRaw         ContentType = "raw"
)

// SchemaVersion is stamped on every outbound envelope (§6).
const SchemaVersion = 1

// Envelope is the server -> client InteractionResponseData message (§6).
type Envelope struct {
	SchemaVersion     int                  `json:"schema_version"`
	ContentType       ContentType          `json:"content_type"`
	Data              any                  `json:"data"`
	UserModelState    *learner.State       `json:"user_model_state"`
	WhiteboardActions []whiteboard.Action  `json:"whiteboard_actions,omitempty"`
}

// FrontEndTool names the tools dispatched directly into an outbound
// envelope rather than through the backend skill registry (§4.7 step 4).
type FrontEndTool string

const (
	ToolExplain    FrontEndTool = "explain"
	ToolAskQuestion FrontEndTool = "ask_question"
	ToolMessage    FrontEndTool = "message"
	ToolFeedback   FrontEndTool = "feedback"
	ToolError      FrontEndTool = "error"
	ToolEndSession FrontEndTool = "end_session"
)

// frontEndTools is the merged-registry "front end" half named in §4.1's
// ToolCall invariant ("name MUST be in the union of front-end display
// tools and backend skills").
var frontEndTools = map[string]FrontEndTool{
	string(ToolExplain):     ToolExplain,
	string(ToolAskQuestion): ToolAskQuestion,
	string(ToolMessage):     ToolMessage,
	string(ToolFeedback):    ToolFeedback,
	string(ToolError):       ToolError,
	string(ToolEndSession):  ToolEndSession,
}

// IsFrontEndTool reports whether name is one of the front-end display
// tools rather than a backend skill.
func IsFrontEndTool(name string) (FrontEndTool, bool) {
	t, ok := frontEndTools[name]
	return t, ok
}

// FrontEndToolNames lists every front-end display tool name, for prompt
// composition and merged-registry validation.
func FrontEndToolNames() []string {
	names := make([]string, 0, len(frontEndTools))
	for n := range frontEndTools {
		names = append(names, n)
	}
	return names
}

// ExplainArgs is the explain tool's argument shape.
type ExplainArgs struct {
	Text    string `json:"text"`
	Concept string `json:"concept,omitempty"`
}

// AskQuestionArgs is the ask_question tool's argument shape.
type AskQuestionArgs struct {
	QuestionData tutor.QuizQuestion `json:"question_data"`
	Template     string             `json:"template,omitempty"`
	Zone         string             `json:"zone,omitempty"`
}

// MessageArgs is the message tool's argument shape.
type MessageArgs struct {
	Text string `json:"text"`
}

// FeedbackArgs is the feedback tool's argument shape (also used by the
// deterministic evaluator, internal/evaluator, to simulate an assistant
// feedback tool call for executor history continuity — §4.8 step 6).
type FeedbackArgs struct {
	Text      string `json:"text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

// ErrorArgs is the error tool's argument shape.
type ErrorArgs struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// EndSessionArgs is the end_session tool's argument shape.
type EndSessionArgs struct {
	Reason string `json:"reason,omitempty"`
}

// TurnResult is everything the session runtime (C9) needs after one
// executor turn: the outbound envelope plus lifecycle side effects the
// executor itself does not own (ending the session, persisting).
type TurnResult struct {
	Envelope   Envelope
	EndSession bool
	// SystemFeedback is non-empty when the turn was rejected for an
	// unknown tool name or invalid skill arguments (§7 "tool-input
	// errors"): it has already been appended to tc.ChatHistory as a
	// system-role message for the next turn, and is returned here only so
	// callers can log it.
	SystemFeedback string
}
