package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/crit308/tutorcore/internal/model"
	"github.com/crit308/tutorcore/internal/skills"
	"github.com/crit308/tutorcore/internal/telemetry"
	"github.com/crit308/tutorcore/internal/tools"
	"github.com/crit308/tutorcore/internal/tutor"
	"github.com/crit308/tutorcore/internal/whiteboard"
)

// Executor drives one Lean Executor turn (§4.7): exactly one LLM call
// yielding exactly one {name, args} tool call, dispatched to either a
// front-end display tool or a backend skill.
type Executor struct {
	Model       model.Client
	Registry    *tools.Registry
	MaxAttempts int
	Log         telemetry.Logger
}

// New constructs an Executor. log may be nil.
func New(client model.Client, registry *tools.Registry, maxAttempts int, log telemetry.Logger) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = model.DefaultMaxAttempts
	}
	if log == nil {
		log = telemetry.NoopLogger{}
	}
	return &Executor{Model: client, Registry: registry, MaxAttempts: maxAttempts, Log: log}
}

// TurnOutput extends TurnResult with the ephemeral canvas objects a
// backend skill produced (e.g. a highlight or pointer ping), which the
// caller folds into the session's whiteboard document alongside the
// outbound Action list.
type TurnOutput struct {
	TurnResult
	Ephemeral []whiteboard.CanvasObject
}

// RunTurn executes one turn of the loop for tc. It never chains tool
// calls: exactly one LLM call produces exactly one ToolCall, which is
// dispatched exactly once.
func (e *Executor) RunTurn(ctx context.Context, tc *tutor.Context) (TurnOutput, error) {
	backendNames := e.availableBackendTools(tc)
	system := buildSystemPrompt(tc, e.Registry, backendNames)
	messages := buildMessages(tc)

	req := model.Request{
		System:      system,
		Messages:    messages,
		Temperature: 0.3,
		MaxTokens:   1024,
	}

	call, _, err := model.CallWithRetry(ctx, e.Model, req, e.MaxAttempts, parseToolCall)
	if err != nil {
		tc.AppendHistory("system", "Your previous reply could not be parsed as a single {\"name\":...,\"args\":...} JSON object. Reply with ONLY that JSON object next turn.")
		return TurnOutput{}, fmt.Errorf("%w: %v", tutor.ErrLLMFormat, err)
	}

	// §4.7 step 3: the assistant's raw JSON is appended to history before
	// dispatch, so the model sees its own action on the next turn.
	tc.AppendHistory("assistant", string(mustMarshalToolCall(call)))

	if !e.isKnownTool(call.Name, backendNames) {
		tc.AppendHistory("system", fmt.Sprintf("%q is not a recognized tool name. Choose only from the allowed tools and retry.", call.Name))
		return TurnOutput{TurnResult: TurnResult{
			Envelope:       e.genericRethinkEnvelope(tc),
			SystemFeedback: fmt.Sprintf("unknown tool name %q", call.Name),
		}}, nil
	}

	if front, ok := IsFrontEndTool(call.Name); ok {
		return e.dispatchFrontEnd(ctx, tc, front, call.Args)
	}
	return e.dispatchBackendSkill(ctx, tc, tools.Name(call.Name), call.Args)
}

func (e *Executor) availableBackendTools(tc *tutor.Context) []tools.Name {
	if tc.Mode != tutor.ModeChatAndWhiteboard {
		return nil
	}
	return e.Registry.DegradeIfOverBudget(tc, e.Registry.List())
}

func (e *Executor) isKnownTool(name string, backendNames []tools.Name) bool {
	if _, ok := IsFrontEndTool(name); ok {
		return true
	}
	for _, n := range backendNames {
		if string(n) == name {
			return true
		}
	}
	return false
}

func (e *Executor) genericRethinkEnvelope(tc *tutor.Context) Envelope {
	return Envelope{
		SchemaVersion:  SchemaVersion,
		ContentType:    ContentMessage,
		Data:           map[string]string{"text": "Let me think about that differently."},
		UserModelState: tc.Learner,
	}
}

func parseToolCall(resp model.Response) (tutor.ToolCall, error) {
	var call tutor.ToolCall
	if err := json.Unmarshal([]byte(resp.Content), &call); err != nil {
		return tutor.ToolCall{}, fmt.Errorf("%w: %v", tutor.ErrLLMFormat, err)
	}
	if call.Name == "" {
		return tutor.ToolCall{}, fmt.Errorf("%w: missing tool name", tutor.ErrLLMFormat)
	}
	return call, nil
}

func mustMarshalToolCall(call tutor.ToolCall) []byte {
	b, err := json.Marshal(call)
	if err != nil {
		return []byte(`{"name":"` + call.Name + `"}`)
	}
	return b
}

func (e *Executor) dispatchFrontEnd(ctx context.Context, tc *tutor.Context, name FrontEndTool, rawArgs json.RawMessage) (TurnOutput, error) {
	switch name {
	case ToolExplain:
		var args ExplainArgs
		_ = json.Unmarshal(rawArgs, &args)
		tc.LastPedagogicalAction = tutor.ActionExplained
		return TurnOutput{TurnResult: TurnResult{Envelope: Envelope{
			SchemaVersion: SchemaVersion, ContentType: ContentExplanation, Data: args, UserModelState: tc.Learner,
		}}}, nil

	case ToolAskQuestion:
		return e.dispatchAskQuestion(ctx, tc, rawArgs)

	case ToolMessage:
		var args MessageArgs
		_ = json.Unmarshal(rawArgs, &args)
		return TurnOutput{TurnResult: TurnResult{Envelope: Envelope{
			SchemaVersion: SchemaVersion, ContentType: ContentMessage, Data: args, UserModelState: tc.Learner,
		}}}, nil

	case ToolFeedback:
		var args FeedbackArgs
		_ = json.Unmarshal(rawArgs, &args)
		tc.LastPedagogicalAction = tutor.ActionEvaluated
		return TurnOutput{TurnResult: TurnResult{Envelope: Envelope{
			SchemaVersion: SchemaVersion, ContentType: ContentFeedback, Data: args, UserModelState: tc.Learner,
		}}}, nil

	case ToolError:
		var args ErrorArgs
		_ = json.Unmarshal(rawArgs, &args)
		return TurnOutput{TurnResult: TurnResult{Envelope: Envelope{
			SchemaVersion: SchemaVersion, ContentType: ContentError, Data: args, UserModelState: tc.Learner,
		}}}, nil

	case ToolEndSession:
		var args EndSessionArgs
		_ = json.Unmarshal(rawArgs, &args)
		text := args.Reason
		if text == "" {
			text = "Ending this session. Nice work today."
		}
		return TurnOutput{TurnResult: TurnResult{
			EndSession: true,
			Envelope: Envelope{
				SchemaVersion: SchemaVersion, ContentType: ContentMessage,
				Data: map[string]string{"text": text}, UserModelState: tc.Learner,
			},
		}}, nil
	}
	return TurnOutput{}, fmt.Errorf("executor: unhandled front-end tool %q", name)
}

// dispatchAskQuestion implements §4.7 step 4's ask_question special case:
// it always draws the MCQ via the internal skill, ignoring any whiteboard
// actions the LLM might have supplied, to guarantee front-end layout
// compatibility.
func (e *Executor) dispatchAskQuestion(ctx context.Context, tc *tutor.Context, rawArgs json.RawMessage) (TurnOutput, error) {
	var args AskQuestionArgs
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		tc.AppendHistory("system", fmt.Sprintf("Your previous call's args were invalid: %v; retry.", err))
		return TurnOutput{TurnResult: TurnResult{Envelope: e.genericRethinkEnvelope(tc)}}, nil
	}

	qid := args.QuestionData.QuestionID
	if qid == "" {
		qid = uuid.New().String()
		args.QuestionData.QuestionID = qid
	}
	tc.CurrentQuiz = &args.QuestionData
	tc.PendingInteraction = &tutor.PendingInteraction{Type: "mcq_question", Details: map[string]any{"question_id": qid}}
	tc.LastPendingInteraction = "mcq_question"
	tc.LastPedagogicalAction = tutor.ActionAsked

	var actions []whiteboard.Action
	if tc.Mode == tutor.ModeChatAndWhiteboard {
		drawArgs, _ := json.Marshal(skills.DrawMCQActionsArgs{
			Question: args.QuestionData, QuestionID: qid, Template: args.Template, Zone: args.Zone,
		})
		res, err := e.Registry.Invoke(ctx, "draw_mcq_actions", tc, drawArgs)
		if err != nil {
			return e.toolError(tc, err)
		}
		actions = res.Actions
	}

	return TurnOutput{TurnResult: TurnResult{Envelope: Envelope{
		SchemaVersion: SchemaVersion, ContentType: ContentQuestion,
		Data: map[string]any{
			"text":     "I have a question for you on the whiteboard...",
			"question": args.QuestionData,
		},
		UserModelState:    tc.Learner,
		WhiteboardActions: actions,
	}}}, nil
}

func (e *Executor) dispatchBackendSkill(ctx context.Context, tc *tutor.Context, name tools.Name, rawArgs json.RawMessage) (TurnOutput, error) {
	res, err := e.Registry.Invoke(ctx, name, tc, rawArgs)
	if err != nil {
		if errors.Is(err, tutor.ErrToolInput) {
			// §4.1: the skill's own argument validation failure becomes a
			// system feedback message for the LLM, never a user-visible
			// error.
			tc.AppendHistory("system", fmt.Sprintf("Your previous call's args were invalid: %v; retry.", err))
			return TurnOutput{TurnResult: TurnResult{
				Envelope:       e.genericRethinkEnvelope(tc),
				SystemFeedback: err.Error(),
			}}, nil
		}
		return e.toolError(tc, err)
	}

	tc.LastPedagogicalAction = tutor.ActionExplained
	return TurnOutput{
		TurnResult: TurnResult{Envelope: Envelope{
			SchemaVersion: SchemaVersion, ContentType: ContentRaw, Data: res.Payload,
			UserModelState: tc.Learner, WhiteboardActions: res.Actions,
		}},
		Ephemeral: res.Ephemeral,
	}, nil
}

// toolError builds the structured error envelope for an unexpected
// backend-skill failure (§7 "tool-execution errors"): the session
// continues, but the client sees a stable error code.
func (e *Executor) toolError(tc *tutor.Context, err error) (TurnOutput, error) {
	return TurnOutput{TurnResult: TurnResult{Envelope: Envelope{
		SchemaVersion: SchemaVersion, ContentType: ContentError,
		Data:           ErrorArgs{Message: err.Error(), Code: tutor.Code(err)},
		UserModelState: tc.Learner,
	}}}, nil
}
