package session

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/crit308/tutorcore/internal/layout"
	"github.com/crit308/tutorcore/internal/memory"
)

// This spec defines only the Go types and a thin handler stub per REST
// endpoint (§6); routing/mux wiring, folder CRUD, document upload, and
// analysis retrieval live in the out-of-scope HTTP router and its other
// collaborators.

// CreateSessionRequest is POST /api/v1/sessions's body.
type CreateSessionRequest struct {
	FolderID string `json:"folder_id,omitempty"`
}

// CreateSessionResponse is POST /api/v1/sessions's response.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// CreateSession handles POST /api/v1/sessions: it allocates a new session
// id and inserts the initial lean row, without opening any WebSocket.
func (rt *Runtime) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, err := authenticate(r.Context(), rt.Authenticator, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	var req CreateSessionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	sessionID := uuid.New().String()
	row := memory.NewSessionRow(sessionID, userID, req.FolderID)
	if err := rt.Store.CreateSession(r.Context(), row); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, CreateSessionResponse{SessionID: sessionID})
}

// MessageItem is one row of GET .../messages's chronological slice.
type MessageItem struct {
	TurnNo                  int             `json:"turn_no"`
	Role                    string          `json:"role"`
	Text                    string          `json:"text"`
	PayloadJSON             json.RawMessage `json:"payload_json,omitempty"`
	WhiteboardSnapshotIndex *int            `json:"whiteboard_snapshot_index,omitempty"`
}

// ListMessages handles GET /api/v1/sessions/{id}/messages?before_turn_no&limit.
// Per §6, assistant rows carry payload_json; user rows do not.
func (rt *Runtime) ListMessages(w http.ResponseWriter, r *http.Request, sessionID string) {
	if _, err := authenticate(r.Context(), rt.Authenticator, r); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	afterTurnNo, _ := strconv.Atoi(r.URL.Query().Get("before_turn_no"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rows, err := rt.Store.Since(r.Context(), sessionID, afterTurnNo, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	items := make([]MessageItem, 0, len(rows))
	for _, row := range rows {
		item := MessageItem{TurnNo: row.TurnNo, Role: row.Role, Text: row.Text, WhiteboardSnapshotIndex: row.WhiteboardSnapshotIndex}
		if row.Role == "assistant" {
			item.PayloadJSON = row.PayloadJSON
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusOK, items)
}

// WhiteboardStateAtTurnResponse is GET .../whiteboard_state_at_turn's body:
// the concatenated actions of every snapshot up to target_snapshot_index.
type WhiteboardStateAtTurnResponse struct {
	Actions []json.RawMessage `json:"actions"`
}

// WhiteboardStateAtTurn handles
// GET /api/v1/sessions/{id}/whiteboard_state_at_turn?target_snapshot_index.
func (rt *Runtime) WhiteboardStateAtTurn(w http.ResponseWriter, r *http.Request, sessionID string) {
	if _, err := authenticate(r.Context(), rt.Authenticator, r); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	target, err := strconv.Atoi(r.URL.Query().Get("target_snapshot_index"))
	if err != nil {
		http.Error(w, "target_snapshot_index must be an integer", http.StatusBadRequest)
		return
	}

	raws, err := rt.Store.ActionsUpTo(r.Context(), sessionID, target)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := WhiteboardStateAtTurnResponse{Actions: make([]json.RawMessage, 0, len(raws))}
	for _, raw := range raws {
		resp.Actions = append(resp.Actions, json.RawMessage(raw))
	}
	writeJSON(w, http.StatusOK, resp)
}

// BoardSummary handles GET /api/v1/sessions/{id}/board_summary: the §4.3
// digest of the session's live whiteboard document.
func (rt *Runtime) BoardSummary(w http.ResponseWriter, r *http.Request, sessionID string) {
	if _, err := authenticate(r.Context(), rt.Authenticator, r); err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if rt.WhiteboardDocs == nil {
		http.Error(w, "whiteboard document registry not configured", http.StatusInternalServerError)
		return
	}

	doc := rt.WhiteboardDocs.Get(r.Context(), sessionID)
	digest := layout.BuildDigest(doc.Objects(), doc.Ephemeral())
	writeJSON(w, http.StatusOK, digest)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
