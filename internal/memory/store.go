// Package memory implements the persistence boundary (D3) for the session
// runtime and session analyzer: the sessions/session_messages/
// whiteboard_snapshots/folders/concept_graph/interaction_logs collections
// described in §6, modeled as a set of small interfaces so the runtime can
// be driven against an in-memory fake in tests (internal/memory/inmem) and
// against MongoDB in production (mongo.go), following the teacher's
// features/session/mongo and features/memory/mongo split between a thin
// Store facade and its backing client.
package memory

import (
	"context"
	"errors"
	"time"

	"github.com/crit308/tutorcore/internal/learner"
	"github.com/crit308/tutorcore/internal/tutor"
)

// ErrNotFound is returned by Load* methods when the requested row does not
// exist, letting callers distinguish "no row yet" from a transport error.
var ErrNotFound = errors.New("memory: not found")

// ErrClaimLost is returned by ClaimAnalysis when another worker already
// transitioned the session's analysis_status away from null (§4.10 step 1,
// §5 "claim table row is the synchronization point").
var ErrClaimLost = errors.New("memory: analysis claim lost")

// SessionRow is the persisted, lean form of a tutor.Context: everything on
// tutor.Context except ChatHistory and WhiteboardHistory, which live in
// MessageStore and WhiteboardSnapshotStore respectively (§3 lifecycle).
type SessionRow struct {
	ID             string
	UserID         string
	FolderID       string
	Context        tutor.Context
	AnalysisStatus tutor.AnalysisStatus
	EndedAt        *time.Time
	CreatedAt      time.Time
}

// MessageRow is one session_messages row (§6): a single chat turn.
type MessageRow struct {
	SessionID               string
	TurnNo                  int
	Role                    string
	Text                    string
	PayloadJSON             []byte
	WhiteboardSnapshotIndex *int
	CreatedAt               time.Time
}

// SnapshotRow is one whiteboard_snapshots row (§6): the whiteboard actions
// a single turn emitted, keyed so TurnNo == SnapshotIndex per §3's
// invariant.
type SnapshotRow struct {
	SessionID     string
	SnapshotIndex int
	ActionsJSON   []byte
}

// FolderRow is a folders row (§6); only the fields the planner and
// analyzer consume are modeled here, per this spec's scope (folder CRUD
// itself is an out-of-scope collaborator, §1).
type FolderRow struct {
	ID            string
	UserID        string
	Name          string
	KnowledgeBase string
	VectorStoreID string
}

// PrereqEdge is one concept_graph row: concept depends on Prereq.
type PrereqEdge struct {
	Prereq  string
	Concept string
}

// LogEntry is one interaction_logs row, the raw material the analyzer
// chunks and summarizes (§4.10 step 3).
type LogEntry struct {
	SessionID   string
	UserID      string
	Role        string
	Content     string
	ContentType string
	EventType   string
	CreatedAt   time.Time
}

// SessionStore persists the sessions collection, including the atomic
// analysis-claim protocol (§4.10 step 1, §5).
type SessionStore interface {
	CreateSession(ctx context.Context, row SessionRow) error
	LoadSession(ctx context.Context, sessionID string) (SessionRow, error)
	SaveLeanContext(ctx context.Context, sessionID string, lean tutor.Context) error
	MarkEndedCleanly(ctx context.Context, sessionID string, endedAt time.Time) error

	// ClaimAnalysis atomically transitions analysis_status from null to
	// "processing" for sessionID, mirroring
	// `UPDATE sessions SET analysis_status='processing' WHERE id=? AND
	// analysis_status IS NULL` via a Mongo findOneAndUpdate. It returns
	// ErrClaimLost if another worker already holds (or resolved) the
	// claim. A missing session row yields ErrNotFound from the in-memory
	// store and ErrClaimLost from MongoStore, whose conditional update
	// matches no document in either case.
	ClaimAnalysis(ctx context.Context, sessionID string) error
	// SetAnalysisStatus records the terminal status ("success" or
	// "failed") for a claimed session.
	SetAnalysisStatus(ctx context.Context, sessionID string, status tutor.AnalysisStatus) error
}

// MessageStore persists session_messages.
type MessageStore interface {
	AppendMessage(ctx context.Context, row MessageRow) error
	// RecentMessages returns the most recent limit rows for sessionID in
	// chronological (ascending turn_no) order, per §4.9 "hydrate chat
	// history (most recent 50 turns)".
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]MessageRow, error)
	// Since returns every row with turn_no > afterTurnNo, used by the
	// REST slice endpoint (§6 `GET .../messages?before_turn_no&limit`).
	// The analyzer reads its transcript from LogStore.AllForSession instead.
	Since(ctx context.Context, sessionID string, afterTurnNo int, limit int) ([]MessageRow, error)
}

// WhiteboardSnapshotStore persists whiteboard_snapshots, distinct from
// internal/whiteboard's Redis-backed live-document SnapshotStore: this one
// is the durable, per-turn, replayable history used by the
// `/whiteboard_state_at_turn` endpoint and the round-trip law in §8.
type WhiteboardSnapshotStore interface {
	SaveSnapshot(ctx context.Context, row SnapshotRow) error
	// ActionsUpTo concatenates the actions_json of every snapshot with
	// SnapshotIndex <= targetIndex, in ascending index order.
	ActionsUpTo(ctx context.Context, sessionID string, targetIndex int) ([][]byte, error)
}

// FolderStore is the thin read/append surface this spec's components need
// from the (out-of-scope) folder collaborator: knowledge-base read for the
// planner, append for the analyzer.
type FolderStore interface {
	LoadFolder(ctx context.Context, folderID string) (FolderRow, error)
	// AppendKnowledgeBase appends text to folderID's knowledge_base field
	// via an append-only update (§4.10 step 4's database RPC analog).
	AppendKnowledgeBase(ctx context.Context, folderID string, text string) error
}

// GraphStore reads the global concept prerequisite DAG (§4.6 input).
type GraphStore interface {
	LoadPrereqEdges(ctx context.Context) ([]PrereqEdge, error)
}

// LogStore persists interaction_logs and is the analyzer's transcript
// source (§4.10 step 3).
type LogStore interface {
	AppendLog(ctx context.Context, entry LogEntry) error
	AllForSession(ctx context.Context, sessionID string) ([]LogEntry, error)
}

// Store bundles every persistence concern this runtime needs, so the
// session runtime, planner, and analyzer can each depend on just the
// sub-interface they use while production wiring constructs one backing
// implementation (MongoStore) satisfying all of them.
type Store interface {
	SessionStore
	MessageStore
	WhiteboardSnapshotStore
	FolderStore
	GraphStore
	LogStore
}

// NewSessionRow builds the initial lean row for a freshly created session
// (§3 "created on first session row insert").
func NewSessionRow(sessionID, userID, folderID string) SessionRow {
	ctx := tutor.NewContext(sessionID, userID, folderID)
	return SessionRow{
		ID:        sessionID,
		UserID:    userID,
		FolderID:  folderID,
		Context:   ctx.Lean(),
		CreatedAt: time.Now(),
	}
}

// WithLearnerDefaults ensures a decoded SessionRow's learner state is never
// nil, matching tutor.NewContext's guarantee for freshly constructed
// contexts (hydration from storage bypasses that constructor).
func WithLearnerDefaults(row SessionRow) SessionRow {
	if row.Context.Learner == nil {
		row.Context.Learner = learner.NewState()
	}
	return row
}
