package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/crit308/tutorcore/internal/analyzer"
	"github.com/crit308/tutorcore/internal/evaluator"
	"github.com/crit308/tutorcore/internal/executor"
	"github.com/crit308/tutorcore/internal/layout"
	"github.com/crit308/tutorcore/internal/memory"
	"github.com/crit308/tutorcore/internal/planner"
	"github.com/crit308/tutorcore/internal/skills"
	"github.com/crit308/tutorcore/internal/telemetry"
	"github.com/crit308/tutorcore/internal/tutor"
	"github.com/crit308/tutorcore/internal/whiteboard"
)

// recentMessageWindow bounds how many persisted session_messages rows are
// replayed into a freshly hydrated tutor.Context (§4.9 "hydrate chat
// history (most recent 50 turns)").
const recentMessageWindow = 50

// defaultBoardStateTimeout is used when Runtime.BoardStateTimeout is unset.
const defaultBoardStateTimeout = 20 * time.Second

// Conn is the minimal outbound surface Runtime needs from a live
// connection, satisfied by *websocket.Conn in production and by a fake in
// tests.
type Conn interface {
	WriteJSON(v any) error
}

// Runtime is the Session Runtime (C9): one process-wide object wiring the
// persistence boundary, the Lean Executor, the Focus Planner, the
// Deterministic Evaluator, and the whiteboard document registry around
// per-connection tutor.Context instances. Its fields are safe to read
// concurrently once set; only the unexported registries mutate after
// construction.
type Runtime struct {
	Store          memory.Store
	Executor       *executor.Executor
	Planner        *planner.Planner
	Analyzer       *analyzer.Analyzer
	WhiteboardDocs *whiteboard.Registry
	Authenticator  Authenticator
	Resolver       *layout.Resolver
	Log            telemetry.Logger

	// BoardStateTimeout bounds a single get_board_state round trip (§5).
	BoardStateTimeout time.Duration

	// CORSOrigin restricts which Origin header the chat/whiteboard
	// WebSocket upgrades accept; "" or "*" allows any origin.
	CORSOrigin string

	// Broadcast, if set, fans a turn's whiteboard actions out to the
	// dedicated whiteboard WebSocket channel's peers (wired to
	// whiteboard.Transport.BroadcastAction in production).
	Broadcast func(sessionID string, action whiteboard.Action)

	// Now is substitutable for tests; defaults to time.Now.
	Now func() time.Time

	mu      sync.Mutex
	grids   map[string]*layout.Grid
	waiters map[string]chan json.RawMessage
	conns   map[string]Conn
}

// NewRuntime constructs a Runtime. log may be nil.
func NewRuntime(
	store memory.Store,
	exec *executor.Executor,
	plan *planner.Planner,
	anal *analyzer.Analyzer,
	docs *whiteboard.Registry,
	resolver *layout.Resolver,
	auth Authenticator,
	boardStateTimeout time.Duration,
	log telemetry.Logger,
) *Runtime {
	if log == nil {
		log = telemetry.NoopLogger{}
	}
	if boardStateTimeout <= 0 {
		boardStateTimeout = defaultBoardStateTimeout
	}
	return &Runtime{
		Store:             store,
		Executor:          exec,
		Planner:           plan,
		Analyzer:          anal,
		WhiteboardDocs:    docs,
		Authenticator:     auth,
		Resolver:          resolver,
		Log:               log,
		BoardStateTimeout: boardStateTimeout,
		Now:               time.Now,
		grids:             make(map[string]*layout.Grid),
		waiters:           make(map[string]chan json.RawMessage),
		conns:             make(map[string]Conn),
	}
}

func (r *Runtime) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// PlacerFor returns the skills.Placer for tc's session, lazily allocating
// and caching that session's *layout.Grid. It is passed to
// tools.DrawingCatalog as a method value at construction time, before
// r.Executor itself is assigned — only the receiver pointer is captured,
// so by the time a turn actually invokes it every field is populated (§5).
func (r *Runtime) PlacerFor(tc *tutor.Context) *skills.Placer {
	r.mu.Lock()
	grid, ok := r.grids[tc.SessionID]
	if !ok {
		grid = layout.NewGrid()
		r.grids[tc.SessionID] = grid
	}
	r.mu.Unlock()
	return skills.NewPlacer(grid, r.Resolver)
}

// dropGrid releases a session's cached grid allocator once its connection
// closes; a reconnect starts with a fresh board layout rather than
// resuming stale reservations (the whiteboard CRDT document, not the
// grid, is the durable record of what's actually drawn).
func (r *Runtime) dropGrid(sessionID string) {
	r.mu.Lock()
	delete(r.grids, sessionID)
	r.mu.Unlock()
}

// registerConn/dropConn track the one live Conn per session needed for
// RequestBoardState to write a REQUEST_BOARD_STATE frame out-of-band from
// the processor goroutine's own turn handling.
func (r *Runtime) registerConn(sessionID string, conn Conn) {
	r.mu.Lock()
	r.conns[sessionID] = conn
	r.mu.Unlock()
}

func (r *Runtime) dropConn(sessionID string) {
	r.mu.Lock()
	delete(r.conns, sessionID)
	r.mu.Unlock()
}

// RequestBoardState implements tools.BoardStateRequester: it writes a
// REQUEST_BOARD_STATE frame to sessionID's live connection and blocks
// until the read pump resolves a matching BOARD_STATE_RESPONSE via
// ResolveBoardState, or BoardStateTimeout elapses. Passed to
// tools.GetBoardStateDescriptor as a method value for the same
// construction-ordering reason as PlacerFor.
func (r *Runtime) RequestBoardState(ctx context.Context, sessionID string) (json.RawMessage, error) {
	r.mu.Lock()
	conn, ok := r.conns[sessionID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: no live connection for session %s", tutor.ErrToolExecution, sessionID)
	}
	wait := make(chan json.RawMessage, 1)
	r.waiters[sessionID] = wait
	r.mu.Unlock()

	defer r.removeWaiter(sessionID)

	if err := conn.WriteJSON(OutboundMessage{Type: OutRequestBoardState, RequestID: sessionID}); err != nil {
		return nil, fmt.Errorf("%w: writing REQUEST_BOARD_STATE: %v", tutor.ErrToolExecution, err)
	}

	timeout := r.BoardStateTimeout
	if timeout <= 0 {
		timeout = defaultBoardStateTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload := <-wait:
		return payload, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: get_board_state timed out after %s", tutor.ErrToolExecution, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ResolveBoardState delivers a BOARD_STATE_RESPONSE frame's payload to a
// pending RequestBoardState waiter for sessionID, if one exists. Called
// directly from the chat WebSocket's read-pump goroutine so the response
// is routed even while the processor goroutine is blocked mid-turn.
func (r *Runtime) ResolveBoardState(sessionID string, payload json.RawMessage) {
	r.mu.Lock()
	wait, ok := r.waiters[sessionID]
	r.mu.Unlock()
	if !ok {
		return
	}
	select {
	case wait <- payload:
	default:
	}
}

func (r *Runtime) removeWaiter(sessionID string) {
	r.mu.Lock()
	delete(r.waiters, sessionID)
	r.mu.Unlock()
}

// Bootstrap loads or creates sessionID's session row, hydrates its
// tutor.Context with recent chat history and replayable whiteboard
// actions, and runs the focus planner once if the session has no
// objective yet (§4.9 "on connect").
func (r *Runtime) Bootstrap(ctx context.Context, sessionID, userID, folderID string) (*tutor.Context, OutboundMessage, error) {
	row, err := r.Store.LoadSession(ctx, sessionID)
	switch {
	case errors.Is(err, memory.ErrNotFound):
		row = memory.NewSessionRow(sessionID, userID, folderID)
		if cErr := r.Store.CreateSession(ctx, row); cErr != nil {
			return nil, OutboundMessage{}, fmt.Errorf("session: create session row: %w", cErr)
		}
	case err != nil:
		return nil, OutboundMessage{}, fmt.Errorf("%w: %v", tutor.ErrPersistence, err)
	}
	row = memory.WithLearnerDefaults(row)

	ctxCopy := row.Context
	tc := &ctxCopy

	rows, err := r.Store.RecentMessages(ctx, sessionID, recentMessageWindow)
	if err != nil {
		r.Log.Warn(ctx, "session: load recent messages failed", "session_id", sessionID, "error", err.Error())
		rows = nil
	}

	maxSnapshot := 0
	for _, m := range rows {
		tc.ChatHistory = append(tc.ChatHistory, tutor.ChatMessage{Role: m.Role, Content: m.Text})
		if m.WhiteboardSnapshotIndex != nil && *m.WhiteboardSnapshotIndex > maxSnapshot {
			maxSnapshot = *m.WhiteboardSnapshotIndex
		}
	}

	init := OutboundMessage{Type: OutSessionInitState, ChatHistory: tc.ChatHistory}
	if maxSnapshot > 0 {
		raws, err := r.Store.ActionsUpTo(ctx, sessionID, maxSnapshot)
		if err != nil {
			r.Log.Warn(ctx, "session: load whiteboard replay history failed", "session_id", sessionID, "error", err.Error())
		}
		for _, raw := range raws {
			init.WhiteboardActionsToReplay = append(init.WhiteboardActionsToReplay, json.RawMessage(raw))
		}
	}

	if tc.Objective == nil && r.Planner != nil {
		edges, err := r.Store.LoadPrereqEdges(ctx)
		if err != nil {
			r.Log.Warn(ctx, "session: load prerequisite graph failed", "session_id", sessionID, "error", err.Error())
		}
		if objective, err := r.Planner.Plan(ctx, tc, edges); err != nil {
			r.Log.Warn(ctx, "session: initial planning failed", "session_id", sessionID, "error", err.Error())
		} else {
			tc.Objective = &objective
		}
	}

	return tc, init, nil
}

// ResumeQuizEnvelope re-sends tc's pending quiz question, if any, as a
// follow-up frame right after SESSION_INIT_STATE (§4.9 "if the context has
// a pending quiz question, re-emit it on connect").
func ResumeQuizEnvelope(tc *tutor.Context) *OutboundMessage {
	if tc.CurrentQuiz == nil {
		return nil
	}
	env := executor.Envelope{
		SchemaVersion: executor.SchemaVersion,
		ContentType:   executor.ContentQuestion,
		Data: map[string]any{
			"text":     "Here's the question you were working on.",
			"question": tc.CurrentQuiz,
		},
		UserModelState: tc.Learner,
	}
	return &OutboundMessage{Type: OutInteractionResponse, Envelope: &env}
}

// HandleInbound dispatches one decoded client frame for tc, returning the
// frames to write back to the client and whether the connection should be
// closed after writing them (§4.9's per-type dispatch table).
func (r *Runtime) HandleInbound(ctx context.Context, tc *tutor.Context, msg InboundMessage) ([]OutboundMessage, bool) {
	switch msg.Type {
	case InPing, InSystemTick:
		return nil, false

	case InBoardStateResponse:
		r.ResolveBoardState(tc.SessionID, msg.Payload)
		return nil, false

	case InWhiteboardMode:
		return r.handleWhiteboardMode(ctx, tc, msg)

	case InEndSession:
		return r.handleEndSession(ctx, tc)

	case InAnswer:
		return r.handleAnswer(ctx, tc, msg)

	case InUserMessage, InCanvasClick, InNext, InPrevious, InSummary, InStart:
		r.appendInboundCommand(ctx, tc, msg)
		return r.runTurn(ctx, tc)

	default:
		return []OutboundMessage{errorMessage(tutor.Code(tutor.ErrToolInput), fmt.Sprintf("unrecognized message type %q", msg.Type))}, false
	}
}

func (r *Runtime) handleWhiteboardMode(ctx context.Context, tc *tutor.Context, msg InboundMessage) ([]OutboundMessage, bool) {
	switch tutor.InteractionMode(msg.InteractionMode) {
	case tutor.ModeChatOnly, tutor.ModeChatAndWhiteboard:
		tc.Mode = tutor.InteractionMode(msg.InteractionMode)
	default:
		return []OutboundMessage{errorMessage(tutor.Code(tutor.ErrToolInput), fmt.Sprintf("unknown interaction_mode %q", msg.InteractionMode))}, false
	}
	if err := r.Store.SaveLeanContext(ctx, tc.SessionID, tc.Lean()); err != nil {
		r.Log.Warn(ctx, "session: persist whiteboard_mode change failed", "session_id", tc.SessionID, "error", err.Error())
	}
	return []OutboundMessage{confirmation(fmt.Sprintf("interaction mode set to %s", tc.Mode))}, false
}

// appendInboundCommand records the user-visible half of a turn: an
// interaction_logs row for the analyzer's transcript, and a system-command
// note on the in-memory chat history for next/previous/summary/start so
// the executor's own prompt sees continuity even though those carry no
// free-text body. Only user_message also gets its own session_messages
// row (§4.9 "append to history, persist user turn, run executor turn");
// the other command types remain interaction-log-only, matching the
// original's _persist_user_message scope.
func (r *Runtime) appendInboundCommand(ctx context.Context, tc *tutor.Context, msg InboundMessage) {
	text := msg.Text
	if text == "" && msg.Type == InCanvasClick {
		text = fmt.Sprintf("[canvas_click object_id=%s]", msg.ObjectID)
	}
	if text == "" {
		text = fmt.Sprintf("[%s]", msg.Type)
	}
	tc.AppendHistory("user", text)
	if err := r.Store.AppendLog(ctx, memory.LogEntry{
		SessionID: tc.SessionID, UserID: tc.UserID, Role: "user", Content: text,
		ContentType: "text", EventType: string(msg.Type), CreatedAt: r.now(),
	}); err != nil {
		r.Log.Warn(ctx, "session: append interaction log failed", "session_id", tc.SessionID, "error", err.Error())
	}

	if msg.Type == InUserMessage {
		turnNo := tc.NextTurn()
		if err := r.Store.AppendMessage(ctx, memory.MessageRow{
			SessionID: tc.SessionID, TurnNo: turnNo, Role: "user", Text: text, CreatedAt: r.now(),
		}); err != nil {
			r.Log.Warn(ctx, "session: append session_messages row failed", "session_id", tc.SessionID, "error", err.Error())
		}
	}
}

func (r *Runtime) handleAnswer(ctx context.Context, tc *tutor.Context, msg InboundMessage) ([]OutboundMessage, bool) {
	if tc.CurrentQuiz == nil {
		r.appendInboundCommand(ctx, tc, msg)
		return r.runTurn(ctx, tc)
	}

	out, err := evaluator.Evaluate(tc, evaluator.AnswerArgs{AnswerIndex: msg.AnswerIndex, QuestionID: msg.QuestionID}, r.now())
	if err != nil {
		// §8 boundary: an out-of-range answer leaves the pending quiz and
		// learner model untouched; the client just sees a structured error.
		return []OutboundMessage{errorEnvelope(err)}, false
	}
	return r.commitTurn(ctx, tc, out)
}

func (r *Runtime) runTurn(ctx context.Context, tc *tutor.Context) ([]OutboundMessage, bool) {
	out, err := r.Executor.RunTurn(ctx, tc)
	if err != nil {
		return []OutboundMessage{errorEnvelope(err)}, false
	}
	return r.commitTurn(ctx, tc, out)
}

// commitTurn advances tc's turn counter, applies any whiteboard actions
// the turn produced to the live CRDT document (broadcasting them to the
// dedicated whiteboard channel), persists the lean context plus a
// session_messages row, and reports whether the connection should close.
func (r *Runtime) commitTurn(ctx context.Context, tc *tutor.Context, out executor.TurnOutput) ([]OutboundMessage, bool) {
	turnNo := tc.NextTurn()

	var snapshotIdx *int
	if len(out.Envelope.WhiteboardActions) > 0 || len(out.Ephemeral) > 0 {
		r.applyWhiteboardTurn(ctx, tc, out)
		idx := tc.NextWhiteboardSnapshot()
		snapshotIdx = &idx
		r.persistSnapshot(ctx, tc.SessionID, idx, out.Envelope.WhiteboardActions)
	}

	text := envelopeText(out.Envelope)
	if err := r.Store.AppendLog(ctx, memory.LogEntry{
		SessionID: tc.SessionID, UserID: tc.UserID, Role: "assistant", Content: text,
		ContentType: string(out.Envelope.ContentType), CreatedAt: r.now(),
	}); err != nil {
		r.Log.Warn(ctx, "session: append interaction log failed", "session_id", tc.SessionID, "error", err.Error())
	}

	payload, err := json.Marshal(out.Envelope)
	if err != nil {
		r.Log.Error(ctx, "session: marshal turn envelope failed", "session_id", tc.SessionID, "error", err.Error())
	}
	if err := r.Store.AppendMessage(ctx, memory.MessageRow{
		SessionID: tc.SessionID, TurnNo: turnNo, Role: "assistant", Text: text,
		PayloadJSON: payload, WhiteboardSnapshotIndex: snapshotIdx, CreatedAt: r.now(),
	}); err != nil {
		r.Log.Warn(ctx, "session: append session_messages row failed", "session_id", tc.SessionID, "error", err.Error())
	}

	if err := r.Store.SaveLeanContext(ctx, tc.SessionID, tc.Lean()); err != nil {
		r.Log.Warn(ctx, "session: persist lean context failed", "session_id", tc.SessionID, "error", err.Error())
	}

	resp := OutboundMessage{Type: OutInteractionResponse, Envelope: &out.Envelope}

	if out.EndSession {
		now := r.now()
		tc.EndedAt = &now
		if err := r.Store.MarkEndedCleanly(ctx, tc.SessionID, now); err != nil {
			r.Log.Warn(ctx, "session: mark ended_at failed", "session_id", tc.SessionID, "error", err.Error())
		}
		r.scheduleAnalysis(tc.SessionID)
		return []OutboundMessage{resp}, true
	}

	return []OutboundMessage{resp}, false
}

func (r *Runtime) applyWhiteboardTurn(ctx context.Context, tc *tutor.Context, out executor.TurnOutput) {
	if r.WhiteboardDocs == nil {
		return
	}
	doc := r.WhiteboardDocs.Get(ctx, tc.SessionID)
	for _, action := range out.Envelope.WhiteboardActions {
		doc.Apply(action, whiteboard.SourceAssistant)
		if r.Broadcast != nil {
			r.Broadcast(tc.SessionID, action)
		}
	}
	for _, obj := range out.Ephemeral {
		doc.PutEphemeral(obj, whiteboard.SourceAssistant)
	}
}

func (r *Runtime) persistSnapshot(ctx context.Context, sessionID string, idx int, actions []whiteboard.Action) {
	raw, err := json.Marshal(actions)
	if err != nil {
		r.Log.Error(ctx, "session: marshal whiteboard snapshot failed", "session_id", sessionID, "error", err.Error())
		return
	}
	if err := r.Store.SaveSnapshot(ctx, memory.SnapshotRow{SessionID: sessionID, SnapshotIndex: idx, ActionsJSON: raw}); err != nil {
		r.Log.Warn(ctx, "session: save whiteboard snapshot failed", "session_id", sessionID, "error", err.Error())
	}
}

func (r *Runtime) handleEndSession(ctx context.Context, tc *tutor.Context) ([]OutboundMessage, bool) {
	if tc.EndedAt != nil {
		return []OutboundMessage{confirmation("analysis is already processing")}, true
	}
	now := r.now()
	tc.EndedAt = &now
	if err := r.Store.MarkEndedCleanly(ctx, tc.SessionID, now); err != nil {
		r.Log.Warn(ctx, "session: mark ended_at failed", "session_id", tc.SessionID, "error", err.Error())
	}
	if err := r.Store.SaveLeanContext(ctx, tc.SessionID, tc.Lean()); err != nil {
		r.Log.Warn(ctx, "session: persist lean context on end_session failed", "session_id", tc.SessionID, "error", err.Error())
	}
	r.scheduleAnalysis(tc.SessionID)
	return []OutboundMessage{confirmation("session ended")}, true
}

// scheduleAnalysis launches the background analyzer detached from any
// request context, since it must keep running after the WebSocket
// connection (and its context) has closed. Analyze's own claim protocol
// makes calling this more than once for the same session harmless (§4.10).
func (r *Runtime) scheduleAnalysis(sessionID string) {
	if r.Analyzer == nil {
		return
	}
	go func() {
		if err := r.Analyzer.Analyze(context.Background(), sessionID); err != nil {
			r.Log.Error(context.Background(), "session: background analysis failed", "session_id", sessionID, "error", err.Error())
		}
	}()
}

// HandleDisconnect is called once a chat connection's processing loop
// exits, whatever the reason; endedCleanly reports whether the session had
// been ended by then. It always drops the connection and releases its
// cached grid. If the session was never cleanly ended, it also schedules
// best-effort analysis on the learner's behalf (§4.9 "disconnect handling").
func (r *Runtime) HandleDisconnect(sessionID string, endedCleanly bool) {
	r.dropConn(sessionID)
	r.dropGrid(sessionID)
	if !endedCleanly {
		r.scheduleAnalysis(sessionID)
	}
}

func envelopeText(env executor.Envelope) string {
	switch data := env.Data.(type) {
	case map[string]string:
		return data["text"]
	case map[string]any:
		if text, ok := data["text"].(string); ok {
			return text
		}
	case executor.ExplainArgs:
		return data.Text
	case executor.MessageArgs:
		return data.Text
	case executor.FeedbackArgs:
		return data.Text
	case executor.ErrorArgs:
		return data.Message
	case evaluator.FeedbackItem:
		return data.Suggestion
	}
	b, err := json.Marshal(env.Data)
	if err != nil {
		return ""
	}
	return string(b)
}
