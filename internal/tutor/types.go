package tutor

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/crit308/tutorcore/internal/learner"
)

type (
	// InteractionMode controls whether the Lean Executor may select drawing
	// tools for a session.
	InteractionMode string

	// PedagogicalAction tags the last action dispatched by the executor so
	// the next turn's prompt can avoid trivial loops (e.g. "explain" right
	// after another "explain").
	PedagogicalAction string
)

const (
	ModeChatOnly         InteractionMode = "chat_only"
	ModeChatAndWhiteboard InteractionMode = "chat_and_whiteboard"

	ActionExplained  PedagogicalAction = "explained"
	ActionAsked      PedagogicalAction = "asked"
	ActionEvaluated  PedagogicalAction = "evaluated"
	ActionRemediated PedagogicalAction = "remediated"
)

// FocusObjective is the single active learning goal a session pursues.
// Exactly one is active per session. The planner sets it at session
// bootstrap; the executor never replaces it, and ending a session leaves
// it as it was.
type FocusObjective struct {
	Topic             string   `json:"topic" bson:"topic"`
	LearningGoal      string   `json:"learning_goal" bson:"learning_goal"`
	Priority          int      `json:"priority" bson:"priority"`
	RelevantConcepts  []string `json:"relevant_concepts,omitempty" bson:"relevant_concepts,omitempty"`
	SuggestedApproach string   `json:"suggested_approach,omitempty" bson:"suggested_approach,omitempty"`
	TargetMastery     float64  `json:"target_mastery" bson:"target_mastery"`
	InitialDifficulty string   `json:"initial_difficulty,omitempty" bson:"initial_difficulty,omitempty"`
}

// DefaultTargetMastery is applied when the planner LLM omits target_mastery.
const DefaultTargetMastery = 0.8

// DefaultPriority is applied when the planner LLM omits priority.
const DefaultPriority = 3

// PendingInteraction resumes a half-finished interaction after a reconnect
// (e.g. a question asked but not yet answered).
type PendingInteraction struct {
	Type    string         `json:"type" bson:"type"`
	Details map[string]any `json:"details,omitempty" bson:"details,omitempty"`
}

// ChatMessage is a compact role/content entry kept in the in-memory history
// fed back to the LLM as prior messages each turn.
type ChatMessage struct {
	Role    string `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
}

// QuizQuestion is the multiple-choice question currently shown to the
// learner and awaiting an answer (or a new ask_question that overwrites it).
type QuizQuestion struct {
	QuestionID        string   `json:"question_id" bson:"question_id"`
	Question          string   `json:"question" bson:"question"`
	Options           []string `json:"options" bson:"options"`
	CorrectAnswerIndex int     `json:"correct_answer_index" bson:"correct_answer_index"`
	Explanation       string   `json:"explanation" bson:"explanation"`
	Difficulty        string   `json:"difficulty,omitempty" bson:"difficulty,omitempty"`
	RelatedSection    string   `json:"related_section,omitempty" bson:"related_section,omitempty"`
	Topic             string   `json:"topic,omitempty" bson:"topic,omitempty"`
}

// AnalysisResult holds the distilled knowledge base text and extracted
// concepts/terms produced by the document analyzer pipeline (external to
// this spec; only the shape consumed by the planner is modeled here).
type AnalysisResult struct {
	KnowledgeBase string   `json:"knowledge_base" bson:"knowledge_base"`
	Concepts      []string `json:"concepts,omitempty" bson:"concepts,omitempty"`
	Terms         []string `json:"terms,omitempty" bson:"terms,omitempty"`
}

// Context is the per-session tutor context: the single in-memory object
// threaded explicitly into every skill call. It is created on first session
// row insert, hydrated per WebSocket connect, mutated during a turn by the
// owning goroutine only, and persisted after each turn in a lean form that
// omits ChatHistory and WhiteboardHistory (those live in dedicated stores).
type Context struct {
	// mu is a pointer so a Context value (persisted as a SessionRow field,
	// passed to SaveLeanContext, copied by Lean) can be copied freely
	// without copying a locked mutex; see Lock/Unlock below.
	mu *sync.Mutex

	SessionID     string          `json:"session_id" bson:"_id"`
	UserID        string          `json:"user_id" bson:"user_id"`
	FolderID      string          `json:"folder_id,omitempty" bson:"folder_id,omitempty"`
	VectorStoreID string          `json:"vector_store_id,omitempty" bson:"vector_store_id,omitempty"`
	Mode          InteractionMode `json:"interaction_mode" bson:"interaction_mode"`

	Analysis *AnalysisResult `json:"analysis,omitempty" bson:"analysis,omitempty"`

	Objective         *FocusObjective      `json:"objective,omitempty" bson:"objective,omitempty"`
	CurrentQuiz       *QuizQuestion        `json:"current_quiz,omitempty" bson:"current_quiz,omitempty"`
	PendingInteraction *PendingInteraction `json:"pending_interaction,omitempty" bson:"pending_interaction,omitempty"`

	Learner *learner.State `json:"learner" bson:"learner"`

	ChatHistory      []ChatMessage `json:"-" bson:"-"`
	WhiteboardHistory []json.RawMessage `json:"-" bson:"-"`

	TurnNo             int `json:"turn_no" bson:"turn_no"`
	WhiteboardSnapshot int `json:"whiteboard_snapshot_no" bson:"whiteboard_snapshot_no"`

	HighCostCalls int `json:"high_cost_calls" bson:"high_cost_calls"`
	HighCostCap   int `json:"high_cost_cap" bson:"high_cost_cap"`

	LastPedagogicalAction  PedagogicalAction `json:"last_pedagogical_action,omitempty" bson:"last_pedagogical_action,omitempty"`
	LastPendingInteraction string            `json:"last_pending_interaction_type,omitempty" bson:"last_pending_interaction_type,omitempty"`

	AnalysisStatus AnalysisStatus `json:"analysis_status" bson:"analysis_status"`
	EndedAt        *time.Time     `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
}

// AnalysisStatus is the monotone automaton tracked on the session row:
// null -> processing -> {success, failed}.
type AnalysisStatus string

const (
	AnalysisNone       AnalysisStatus = ""
	AnalysisProcessing AnalysisStatus = "processing"
	AnalysisSuccess    AnalysisStatus = "success"
	AnalysisFailed     AnalysisStatus = "failed"
)

// DefaultHighCostCap is used when a session's cap is not otherwise configured.
const DefaultHighCostCap = 3

// NewContext returns a freshly initialized context for a new session.
func NewContext(sessionID, userID, folderID string) *Context {
	return &Context{
		SessionID:   sessionID,
		UserID:      userID,
		FolderID:    folderID,
		Mode:        ModeChatAndWhiteboard,
		Learner:     learner.NewState(),
		HighCostCap: DefaultHighCostCap,
		mu:          &sync.Mutex{},
	}
}

// Lock/Unlock expose the context's mutex. Nothing in this module calls
// them; the chat goroutine that owns the context mutates it without
// locking. A Context
// hydrated from storage or produced by Lean has no mutex of its own, so
// both are no-ops on a nil mu rather than panicking.
func (c *Context) Lock() {
	if c.mu != nil {
		c.mu.Lock()
	}
}

func (c *Context) Unlock() {
	if c.mu != nil {
		c.mu.Unlock()
	}
}

// NextTurn increments and returns the new turn number.
func (c *Context) NextTurn() int {
	c.TurnNo++
	return c.TurnNo
}

// NextWhiteboardSnapshot sets the snapshot index to the current turn
// number and returns it. Per
// the invariant in §3, this MUST be called at most once per turn, and only
// when the turn emits whiteboard actions, so that snapshot index equals turn
// number.
func (c *Context) NextWhiteboardSnapshot() int {
	c.WhiteboardSnapshot = c.TurnNo
	return c.WhiteboardSnapshot
}

// AppendHistory appends a role/content message, trimming the in-memory
// history to the most recent window used for LLM prompting.
func (c *Context) AppendHistory(role, content string) {
	c.ChatHistory = append(c.ChatHistory, ChatMessage{Role: role, Content: content})
	const maxHistory = 50
	if len(c.ChatHistory) > maxHistory {
		c.ChatHistory = c.ChatHistory[len(c.ChatHistory)-maxHistory:]
	}
}

// CanUseHighCost reports whether another high-cost skill invocation is still
// within budget for this session.
func (c *Context) CanUseHighCost() bool {
	cap := c.HighCostCap
	if cap <= 0 {
		cap = DefaultHighCostCap
	}
	return c.HighCostCalls < cap
}

// RecordHighCostCall increments the high-cost counter.
func (c *Context) RecordHighCostCall() {
	c.HighCostCalls++
}

// Lean returns a copy of the context with ChatHistory and WhiteboardHistory
// cleared, matching the persisted "lean" form described in §3's lifecycle
// note (those histories live in dedicated tables, not on the context row).
// It is built field by field on a fresh struct rather than by
// dereferencing c, so the returned value never carries a copy of c's mutex.
func (c *Context) Lean() Context {
	return Context{
		SessionID:     c.SessionID,
		UserID:        c.UserID,
		FolderID:      c.FolderID,
		VectorStoreID: c.VectorStoreID,
		Mode:          c.Mode,

		Analysis: c.Analysis,

		Objective:          c.Objective,
		CurrentQuiz:        c.CurrentQuiz,
		PendingInteraction: c.PendingInteraction,

		Learner: c.Learner,

		TurnNo:             c.TurnNo,
		WhiteboardSnapshot: c.WhiteboardSnapshot,

		HighCostCalls: c.HighCostCalls,
		HighCostCap:   c.HighCostCap,

		LastPedagogicalAction:  c.LastPedagogicalAction,
		LastPendingInteraction: c.LastPendingInteraction,

		AnalysisStatus: c.AnalysisStatus,
		EndedAt:        c.EndedAt,
	}
}

// ToolCall is the tagged envelope produced by the executor LLM each turn:
// exactly one tool name plus its raw JSON arguments, decoded lazily by the
// dispatcher into the tool's typed argument struct.
type ToolCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}
