package whiteboard

import (
	"context"
	"sync"
	"time"

	"github.com/crit308/tutorcore/internal/telemetry"
)

// Registry is the process-wide map of live per-session documents (§5
// "shared resources": the per-session doc registry for the whiteboard
// channel is one of the process's few intentional globals). Documents are
// created on first Get and stay registered until Drop is called; the
// whiteboard transport does not call Drop when a session's last peer
// leaves.
type Registry struct {
	mu    sync.Mutex
	docs  map[string]*Document
	store *SnapshotStore
	log   telemetry.Logger
}

// NewRegistry constructs an empty document registry backed by store for
// persistence. log may be nil, in which case a noop logger is used.
func NewRegistry(store *SnapshotStore, log telemetry.Logger) *Registry {
	if log == nil {
		log = telemetry.NoopLogger{}
	}
	return &Registry{docs: make(map[string]*Document), store: store, log: log}
}

// Get returns the live document for sessionID, creating and hydrating one
// from the snapshot store if none is currently registered.
func (r *Registry) Get(ctx context.Context, sessionID string) *Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.docs[sessionID]; ok {
		return doc
	}
	doc := NewDocument(sessionID)
	if r.store != nil {
		if objects, err := r.store.Load(ctx, sessionID); err != nil {
			r.log.Warn(ctx, "whiteboard snapshot load failed", "session_id", sessionID, "error", err.Error())
		} else {
			for id, obj := range objects {
				doc.Apply(Action{Type: ActionAddObjects, Objects: []CanvasObject{obj}}, "hydrate")
				_ = id
			}
		}
	}
	r.docs[sessionID] = doc
	return doc
}

// Drop removes sessionID's document from the registry, e.g. when the last
// connected client for that session disconnects.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, sessionID)
}

// Snapshot returns every live document, used by the ephemeral GC ticker.
func (r *Registry) Snapshot() []*Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := make([]*Document, 0, len(r.docs))
	for _, d := range r.docs {
		docs = append(docs, d)
	}
	return docs
}

// RunEphemeralGC runs until ctx is canceled, scanning every live document's
// ephemeral map every interval and deleting expired entries (§4.2). A
// missed tick simply delays cleanup; there is no catch-up logic.
func (r *Registry) RunEphemeralGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, doc := range r.Snapshot() {
				if n := doc.GCExpired(now); n > 0 {
					r.log.Debug(ctx, "ephemeral gc", "session_id", doc.SessionID, "removed", n)
				}
			}
		}
	}
}
