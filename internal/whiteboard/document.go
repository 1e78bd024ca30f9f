package whiteboard

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// entry is a single slot in the LWW element-set: the current value plus
// the logical timestamp and origin that last wrote it. Ties are broken by
// origin so concurrent writes from the same logical clock converge
// deterministically across replicas.
type entry struct {
	object    CanvasObject
	timestamp int64
	origin    string
	tombstone bool
}

// Document is the authoritative per-session whiteboard CRDT: an "objects"
// map (durable) and an "ephemeral" map (GC'd on expiry). Both are LWW
// element-sets keyed by object id. The single-writer-per-session topology
// in §5 means conflicting concurrent writes to the same id are rare; LWW
// with a document-wide logical clock stamped on each key, plus origin
// tie-break, is sufficient and
// keeps the core dependency-free (§4.2).
type Document struct {
	mu sync.Mutex

	SessionID string

	objects   map[string]*entry
	ephemeral map[string]*entry

	clock int64
}

// NewDocument returns an empty document for sessionID.
func NewDocument(sessionID string) *Document {
	return &Document{
		SessionID: sessionID,
		objects:   make(map[string]*entry),
		ephemeral: make(map[string]*entry),
	}
}

// InboundUpdate is the opaque, versioned wire frame exchanged over the
// whiteboard WebSocket channel. The envelope is stable even if the Apply
// payload's internal representation changes, so a richer CRDT can later
// replace Document without a transport break.
type InboundUpdate struct {
	Version int             `json:"version"`
	Origin  string          `json:"origin"`
	Action  Action          `json:"action"`
	Ephemeral bool          `json:"ephemeral,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// DecodeInboundUpdate parses a raw whiteboard update frame and rewrites
// the tenancy/owner invariant: any object whose metadata.source isn't
// "user" is forced to "user", since inbound updates on this channel only
// ever originate from a learner's client (assistant-authored objects are
// produced by backend skills and never accepted from this channel).
// Implemented as a validating decoder rather than a post-apply scan, per
// the reference's own suggested improvement.
func DecodeInboundUpdate(raw []byte) (InboundUpdate, error) {
	var upd InboundUpdate
	if err := json.Unmarshal(raw, &upd); err != nil {
		return InboundUpdate{}, fmt.Errorf("decode whiteboard update: %w", err)
	}
	for i := range upd.Action.Objects {
		upd.Action.Objects[i].Metadata.Source = SourceUser
	}
	upd.Raw = raw
	return upd, nil
}

// Apply applies action to the document under the document's lock,
// advancing the logical clock by one and using origin for tie-breaking.
// It returns action unchanged, so the caller can broadcast exactly what
// was applied; objects without an id are not assigned one.
func (d *Document) Apply(action Action, origin string) Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock++
	ts := d.clock

	switch action.Type {
	case ActionAddObjects:
		for _, obj := range action.Objects {
			d.putLocked(d.objects, obj.ID, obj, ts, origin)
		}
	case ActionUpdateObjects:
		for _, u := range action.Updates {
			if e, ok := d.objects[u.ObjectID]; ok && !e.tombstone {
				applyFieldUpdates(&e.object, u.Updates)
				e.timestamp, e.origin = ts, origin
			}
		}
	case ActionDeleteObjects:
		for _, id := range action.ObjectIDs {
			d.tombstoneLocked(d.objects, id, ts, origin)
		}
	case ActionClearBoard:
		for id := range d.objects {
			d.tombstoneLocked(d.objects, id, ts, origin)
		}
	case ActionGroupObjects:
		for _, id := range action.ObjectIDs {
			if e, ok := d.objects[id]; ok && !e.tombstone {
				e.object.Metadata.GroupID = action.GroupID
				e.timestamp, e.origin = ts, origin
			}
		}
	case ActionDeleteGroup:
		for id, e := range d.objects {
			if !e.tombstone && e.object.Metadata.GroupID == action.GroupID {
				d.tombstoneLocked(d.objects, id, ts, origin)
			}
		}
	case ActionMoveGroup:
		for _, e := range d.objects {
			if e.tombstone || e.object.Metadata.GroupID != action.GroupID {
				continue
			}
			e.object.X += action.DeltaX
			e.object.Y += action.DeltaY
			e.timestamp, e.origin = ts, origin
		}
	}
	return action
}

func applyFieldUpdates(obj *CanvasObject, updates map[string]any) {
	for k, v := range updates {
		switch k {
		case "x":
			if f, ok := toFloat(v); ok {
				obj.X = f
			}
		case "y":
			if f, ok := toFloat(v); ok {
				obj.Y = f
			}
		case "width":
			if f, ok := toFloat(v); ok {
				obj.Width = f
			}
		case "height":
			if f, ok := toFloat(v); ok {
				obj.Height = f
			}
		case "text":
			if s, ok := v.(string); ok {
				obj.Text = s
			}
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func (d *Document) putLocked(m map[string]*entry, id string, obj CanvasObject, ts int64, origin string) {
	existing, ok := m[id]
	if ok && !laterWins(ts, origin, existing.timestamp, existing.origin) {
		return
	}
	m[id] = &entry{object: obj, timestamp: ts, origin: origin}
}

func (d *Document) tombstoneLocked(m map[string]*entry, id string, ts int64, origin string) {
	existing, ok := m[id]
	if !ok {
		m[id] = &entry{timestamp: ts, origin: origin, tombstone: true}
		return
	}
	if !laterWins(ts, origin, existing.timestamp, existing.origin) {
		return
	}
	existing.timestamp, existing.origin, existing.tombstone = ts, origin, true
}

// laterWins reports whether (ts, origin) should overwrite (prevTS,
// prevOrigin) in the LWW ordering: higher logical timestamp wins; ties
// are broken by lexicographically greater origin so replicas converge.
func laterWins(ts int64, origin string, prevTS int64, prevOrigin string) bool {
	if ts != prevTS {
		return ts > prevTS
	}
	return origin > prevOrigin
}

// Objects returns a snapshot copy of the live (non-tombstoned) object map.
func (d *Document) Objects() map[string]CanvasObject {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]CanvasObject, len(d.objects))
	for id, e := range d.objects {
		if !e.tombstone {
			out[id] = e.object
		}
	}
	return out
}

// PutEphemeral inserts or refreshes an ephemeral object with an explicit
// expiry (metadata.expiresAt), bypassing normal LWW conflict resolution
// since ephemeral objects (pings, highlights) are local, high-frequency,
// and not meant for cross-client reconciliation: the most recent call
// always replaces the entry.
func (d *Document) PutEphemeral(obj CanvasObject, origin string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clock++
	d.ephemeral[obj.ID] = &entry{object: obj, timestamp: d.clock, origin: origin}
}

// Ephemeral returns a snapshot of the live ephemeral object map.
func (d *Document) Ephemeral() map[string]CanvasObject {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]CanvasObject, len(d.ephemeral))
	for id, e := range d.ephemeral {
		if !e.tombstone {
			out[id] = e.object
		}
	}
	return out
}

// GCExpired removes ephemeral entries whose metadata.expiresAt has
// passed. It is invoked periodically by the GC ticker (one per process,
// §4.2) for every live document.
func (d *Document) GCExpired(now time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	nowMillis := now.UnixMilli()
	removed := 0
	for id, e := range d.ephemeral {
		if e.object.Metadata.ExpiresAt > 0 && e.object.Metadata.ExpiresAt < nowMillis {
			delete(d.ephemeral, id)
			removed++
		}
	}
	return removed
}

// StateVector is the compact version summary sent to a client on connect
// (per-key logical timestamp), so a reconnecting client can diff against
// server state without replaying the whole object list twice.
type StateVector map[string]int64

// StateVector computes the current state vector over live objects.
func (d *Document) StateVector() StateVector {
	d.mu.Lock()
	defer d.mu.Unlock()
	sv := make(StateVector, len(d.objects))
	for id, e := range d.objects {
		if !e.tombstone {
			sv[id] = e.timestamp
		}
	}
	return sv
}
