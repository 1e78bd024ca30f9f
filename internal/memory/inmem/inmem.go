// Package inmem implements memory.Store entirely in-process, grounded on
// the teacher's features/session/mongo/clients/mongo/inmem fake: a
// mutex-guarded map standing in for MongoDB so the session runtime,
// planner, and analyzer can be exercised in tests without network access
// (§8's integration-style scenarios run against this).
package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crit308/tutorcore/internal/memory"
	"github.com/crit308/tutorcore/internal/tutor"
)

// Store is an in-memory memory.Store.
type Store struct {
	mu        sync.Mutex
	sessions  map[string]memory.SessionRow
	messages  map[string][]memory.MessageRow
	snapshots map[string][]memory.SnapshotRow
	folders   map[string]memory.FolderRow
	edges     []memory.PrereqEdge
	logs      map[string][]memory.LogEntry
}

// New returns an empty store.
func New() *Store {
	return &Store{
		sessions:  make(map[string]memory.SessionRow),
		messages:  make(map[string][]memory.MessageRow),
		snapshots: make(map[string][]memory.SnapshotRow),
		folders:   make(map[string]memory.FolderRow),
		logs:      make(map[string][]memory.LogEntry),
	}
}

// SeedFolder installs a folder row directly, for test setup.
func (s *Store) SeedFolder(row memory.FolderRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders[row.ID] = row
}

// SeedEdges installs the prerequisite DAG directly, for test setup.
func (s *Store) SeedEdges(edges []memory.PrereqEdge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = edges
}

func (s *Store) CreateSession(_ context.Context, row memory.SessionRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[row.ID] = row
	return nil
}

func (s *Store) LoadSession(_ context.Context, sessionID string) (memory.SessionRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.sessions[sessionID]
	if !ok {
		return memory.SessionRow{}, memory.ErrNotFound
	}
	return row, nil
}

func (s *Store) SaveLeanContext(_ context.Context, sessionID string, lean tutor.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.sessions[sessionID]
	if !ok {
		return memory.ErrNotFound
	}
	row.Context = lean
	row.AnalysisStatus = lean.AnalysisStatus
	s.sessions[sessionID] = row
	return nil
}

func (s *Store) MarkEndedCleanly(_ context.Context, sessionID string, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.sessions[sessionID]
	if !ok {
		return memory.ErrNotFound
	}
	t := endedAt
	row.EndedAt = &t
	s.sessions[sessionID] = row
	return nil
}

func (s *Store) ClaimAnalysis(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.sessions[sessionID]
	if !ok {
		return memory.ErrNotFound
	}
	if row.AnalysisStatus != tutor.AnalysisNone {
		return memory.ErrClaimLost
	}
	row.AnalysisStatus = tutor.AnalysisProcessing
	s.sessions[sessionID] = row
	return nil
}

func (s *Store) SetAnalysisStatus(_ context.Context, sessionID string, status tutor.AnalysisStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.sessions[sessionID]
	if !ok {
		return memory.ErrNotFound
	}
	row.AnalysisStatus = status
	s.sessions[sessionID] = row
	return nil
}

func (s *Store) AppendMessage(_ context.Context, row memory.MessageRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[row.SessionID] = append(s.messages[row.SessionID], row)
	return nil
}

func (s *Store) RecentMessages(_ context.Context, sessionID string, limit int) ([]memory.MessageRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.messages[sessionID]
	if limit <= 0 || limit >= len(all) {
		out := make([]memory.MessageRow, len(all))
		copy(out, all)
		return out, nil
	}
	out := make([]memory.MessageRow, limit)
	copy(out, all[len(all)-limit:])
	return out, nil
}

func (s *Store) Since(_ context.Context, sessionID string, afterTurnNo int, limit int) ([]memory.MessageRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []memory.MessageRow
	for _, m := range s.messages[sessionID] {
		if m.TurnNo > afterTurnNo {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TurnNo < out[j].TurnNo })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) SaveSnapshot(_ context.Context, row memory.SnapshotRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[row.SessionID] = append(s.snapshots[row.SessionID], row)
	return nil
}

func (s *Store) ActionsUpTo(_ context.Context, sessionID string, targetIndex int) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := append([]memory.SnapshotRow(nil), s.snapshots[sessionID]...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].SnapshotIndex < rows[j].SnapshotIndex })
	var out [][]byte
	for _, r := range rows {
		if r.SnapshotIndex <= targetIndex {
			out = append(out, r.ActionsJSON)
		}
	}
	return out, nil
}

func (s *Store) LoadFolder(_ context.Context, folderID string) (memory.FolderRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.folders[folderID]
	if !ok {
		return memory.FolderRow{}, memory.ErrNotFound
	}
	return row, nil
}

func (s *Store) AppendKnowledgeBase(_ context.Context, folderID string, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.folders[folderID]
	if !ok {
		row = memory.FolderRow{ID: folderID}
	}
	if row.KnowledgeBase != "" {
		row.KnowledgeBase += "\n\n"
	}
	row.KnowledgeBase += text
	s.folders[folderID] = row
	return nil
}

func (s *Store) LoadPrereqEdges(_ context.Context) ([]memory.PrereqEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]memory.PrereqEdge, len(s.edges))
	copy(out, s.edges)
	return out, nil
}

func (s *Store) AppendLog(_ context.Context, entry memory.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[entry.SessionID] = append(s.logs[entry.SessionID], entry)
	return nil
}

func (s *Store) AllForSession(_ context.Context, sessionID string) ([]memory.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]memory.LogEntry, len(s.logs[sessionID]))
	copy(out, s.logs[sessionID])
	return out, nil
}

var _ memory.Store = (*Store)(nil)
