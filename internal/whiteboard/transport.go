package whiteboard

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/crit308/tutorcore/internal/telemetry"
)

// Transport serves the dedicated whiteboard WebSocket channel (§6
// `/ws/v2/session/{session_id}/whiteboard`): an opaque, per-session
// broadcast of CRDT updates, independent of the chat WebSocket's tutor
// context so a learner's canvas stays live even across chat reconnects.
type Transport struct {
	Docs     *Registry
	Log      telemetry.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	peers map[string]map[*peer]struct{}
}

// peer is one connected whiteboard client: its own serialized write queue,
// since a single *websocket.Conn must not be written from more than one
// goroutine concurrently (the broadcasting goroutine and this peer's own
// apply loop both write to it).
type peer struct {
	conn *websocket.Conn
	send chan Action
}

const peerSendQueueDepth = 32

// NewTransport constructs a Transport over docs. log may be nil.
func NewTransport(docs *Registry, log telemetry.Logger) *Transport {
	if log == nil {
		log = telemetry.NoopLogger{}
	}
	return &Transport{Docs: docs, Log: log, peers: make(map[string]map[*peer]struct{})}
}

// ServeWS upgrades the connection, sends the document's current state
// vector (§6 "server sends initial state vector on connect"), then loops
// reading update frames and applying+broadcasting each one under the
// document's own lock until the connection closes.
func (t *Transport) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.Log.Warn(r.Context(), "whiteboard: upgrade failed", "session_id", sessionID, "error", err.Error())
		return
	}

	doc := t.Docs.Get(r.Context(), sessionID)
	p := &peer{conn: conn, send: make(chan Action, peerSendQueueDepth)}

	if err := conn.WriteJSON(doc.StateVector()); err != nil {
		_ = conn.Close()
		return
	}

	t.addPeer(sessionID, p)
	done := make(chan struct{})
	go t.writeLoop(p, done)

	defer func() {
		close(done)
		t.removePeer(sessionID, p)
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		upd, err := DecodeInboundUpdate(raw)
		if err != nil {
			t.Log.Warn(r.Context(), "whiteboard: decode update failed", "session_id", sessionID, "error", err.Error())
			continue
		}
		applied := doc.Apply(upd.Action, upd.Origin)
		t.Docs.snapshotIfConfigured(sessionID, doc)
		t.broadcast(sessionID, p, applied)
	}
}

func (t *Transport) writeLoop(p *peer, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case action := <-p.send:
			if err := p.conn.WriteJSON(action); err != nil {
				return
			}
		}
	}
}

func (t *Transport) addPeer(sessionID string, p *peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.peers[sessionID]
	if !ok {
		set = make(map[*peer]struct{})
		t.peers[sessionID] = set
	}
	set[p] = struct{}{}
}

func (t *Transport) removePeer(sessionID string, p *peer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if set, ok := t.peers[sessionID]; ok {
		delete(set, p)
		if len(set) == 0 {
			delete(t.peers, sessionID)
		}
	}
}

// broadcast fans action out to every other peer connected to sessionID.
// A peer whose send queue is full is dropped from this broadcast rather
// than blocking the apply loop; the next update carries the latest state
// regardless, mirroring SnapshotStore's own write-behind drop policy.
func (t *Transport) broadcast(sessionID string, origin *peer, action Action) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for p := range t.peers[sessionID] {
		if p == origin {
			continue
		}
		select {
		case p.send <- action:
		default:
		}
	}
}

// snapshotIfConfigured queues a write-behind persistence save of doc's live
// object map, if this registry has a backing SnapshotStore.
func (r *Registry) snapshotIfConfigured(sessionID string, doc *Document) {
	if r.store == nil {
		return
	}
	r.store.QueueSave(sessionID, doc.Objects())
}

// BroadcastAction fans a whiteboard action out to every peer connected to
// sessionID, regardless of where the action originated. Wired as
// session.Runtime's Broadcast field so a chat-side drawing tool call
// reaches the dedicated whiteboard channel's clients too.
func (t *Transport) BroadcastAction(sessionID string, action Action) {
	t.broadcast(sessionID, nil, action)
}

// Shutdown closes every connected peer's socket, used by the process's
// graceful-shutdown path.
func (t *Transport) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, set := range t.peers {
		for p := range set {
			_ = p.conn.Close()
		}
	}
}
