package whiteboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore persists the live object map so a document can be
// rehydrated after a process restart. Implemented over Redis (D2): after
// each update applied on the whiteboard channel the new state is queued on
// a bounded write-behind queue drained by one goroutine. Queued saves are
// written in order, one Redis SET each; they are not coalesced, and a save
// that finds the queue full is dropped.
type SnapshotStore struct {
	client *redis.Client
	queue  chan snapshotJob
}

type snapshotJob struct {
	sessionID string
	objects   map[string]CanvasObject
}

const snapshotKeyPrefix = "whiteboard:snapshot:"

// NewSnapshotStore wraps an existing Redis client. queueDepth bounds the
// write-behind channel (64 when queueDepth <= 0); QueueSave drops a job
// that finds it full rather than blocking the whiteboard goroutine.
func NewSnapshotStore(client *redis.Client, queueDepth int) *SnapshotStore {
	if queueDepth <= 0 {
		queueDepth = 64
	}
	s := &SnapshotStore{client: client, queue: make(chan snapshotJob, queueDepth)}
	go s.drain()
	return s
}

// QueueSave enqueues the current object map for write-behind persistence.
// Non-blocking: if the queue is full, the job is dropped. A later save
// carries the newer state; if none follows, the dropped state is not
// persisted.
func (s *SnapshotStore) QueueSave(sessionID string, objects map[string]CanvasObject) {
	select {
	case s.queue <- snapshotJob{sessionID: sessionID, objects: objects}:
	default:
	}
}

func (s *SnapshotStore) drain() {
	for job := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = s.save(ctx, job.sessionID, job.objects)
		cancel()
	}
}

func (s *SnapshotStore) save(ctx context.Context, sessionID string, objects map[string]CanvasObject) error {
	data, err := json.Marshal(objects)
	if err != nil {
		return fmt.Errorf("marshal whiteboard snapshot: %w", err)
	}
	return s.client.Set(ctx, snapshotKeyPrefix+sessionID, data, 0).Err()
}

// Load reads the persisted object map for sessionID, if any.
func (s *SnapshotStore) Load(ctx context.Context, sessionID string) (map[string]CanvasObject, error) {
	raw, err := s.client.Get(ctx, snapshotKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return map[string]CanvasObject{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load whiteboard snapshot: %w", err)
	}
	var objects map[string]CanvasObject
	if err := json.Unmarshal(raw, &objects); err != nil {
		return nil, fmt.Errorf("decode whiteboard snapshot: %w", err)
	}
	return objects, nil
}

// Delete drops the persisted snapshot for sessionID. Nothing in this
// module calls it, and no final Mongo snapshot is written on last
// disconnect.
func (s *SnapshotStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, snapshotKeyPrefix+sessionID).Err()
}
