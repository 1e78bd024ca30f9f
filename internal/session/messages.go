// Package session implements the Session Runtime (C9): the chat
// WebSocket endpoint's per-connection turn loop, wiring the tool registry,
// lean executor, deterministic evaluator, focus planner, and whiteboard
// document registry together around one tutor.Context per session.
package session

import (
	"encoding/json"

	"github.com/crit308/tutorcore/internal/executor"
	"github.com/crit308/tutorcore/internal/tutor"
)

// InboundType tags a client -> server chat WebSocket frame (§6).
type InboundType string

const (
	InPing               InboundType = "ping"
	InSystemTick         InboundType = "system_tick"
	InWhiteboardMode     InboundType = "whiteboard_mode"
	InBoardStateResponse InboundType = "BOARD_STATE_RESPONSE"
	InCanvasClick        InboundType = "canvas_click"
	InEndSession         InboundType = "end_session"
	InUserMessage        InboundType = "user_message"
	InAnswer             InboundType = "answer"
	InNext               InboundType = "next"
	InPrevious           InboundType = "previous"
	InSummary            InboundType = "summary"
	InStart              InboundType = "start"
)

// InboundMessage is the decoded shape of every client -> server frame;
// only the fields relevant to msg.Type are populated.
type InboundMessage struct {
	Type InboundType `json:"type"`

	Text           string          `json:"text,omitempty"`
	InteractionMode string         `json:"interaction_mode,omitempty"`
	ObjectID       string          `json:"object_id,omitempty"`
	RequestID      string          `json:"request_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	AnswerIndex    int             `json:"answer_index,omitempty"`
	QuestionID     string          `json:"question_id,omitempty"`
	Reason         string          `json:"reason,omitempty"`
}

// OutboundType tags a server -> client chat WebSocket frame (§6).
type OutboundType string

const (
	OutInteractionResponse OutboundType = "interaction_response"
	OutSessionInitState    OutboundType = "SESSION_INIT_STATE"
	OutRequestBoardState   OutboundType = "REQUEST_BOARD_STATE"
	OutConfirmation        OutboundType = "confirmation"
	OutError               OutboundType = "error"
)

// OutboundMessage is the server -> client chat WebSocket frame. Only the
// fields relevant to Type are populated; Envelope carries the standard
// InteractionResponseData payload for OutInteractionResponse frames.
type OutboundMessage struct {
	Type OutboundType `json:"type"`

	Envelope *executor.Envelope `json:"envelope,omitempty"`

	ChatHistory               []tutor.ChatMessage `json:"chat_history,omitempty"`
	WhiteboardActionsToReplay []json.RawMessage   `json:"whiteboard_actions_to_replay,omitempty"`

	RequestID string `json:"request_id,omitempty"`

	Text string `json:"text,omitempty"`
	Code string `json:"code,omitempty"`
}

func errorMessage(code, text string) OutboundMessage {
	return OutboundMessage{Type: OutError, Code: code, Text: text}
}

func errorEnvelope(err error) OutboundMessage {
	return errorMessage(tutor.Code(err), err.Error())
}

func confirmation(text string) OutboundMessage {
	return OutboundMessage{Type: OutConfirmation, Text: text}
}
