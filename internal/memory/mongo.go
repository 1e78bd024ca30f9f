package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/crit308/tutorcore/internal/tutor"
)

const (
	collSessions  = "sessions"
	collMessages  = "session_messages"
	collSnapshots = "whiteboard_snapshots"
	collFolders   = "folders"
	collGraph     = "concept_graph"
	collLogs      = "interaction_logs"

	defaultOpTimeout = 5 * time.Second
)

// MongoStore implements Store backed by MongoDB (D3), following the
// teacher's features/session/mongo and features/memory/mongo convention of
// a thin wrapper over *mongo.Database rather than a generated client.
type MongoStore struct {
	db      *mongo.Database
	timeout time.Duration
}

// NewMongoStore wraps an already-connected *mongo.Client, ensuring the
// indexes this store's atomic operations depend on exist.
func NewMongoStore(ctx context.Context, client *mongo.Client, database string) (*MongoStore, error) {
	if client == nil {
		return nil, errors.New("memory: mongo client is required")
	}
	if database == "" {
		return nil, errors.New("memory: database name is required")
	}
	s := &MongoStore{db: client.Database(database), timeout: defaultOpTimeout}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("memory: ensure indexes: %w", err)
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err := s.db.Collection(collMessages).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "turn_no", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = s.db.Collection(collSnapshots).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "snapshot_index", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

type sessionDocument struct {
	ID             string         `bson:"_id"`
	UserID         string         `bson:"user_id"`
	FolderID       string         `bson:"folder_id,omitempty"`
	Context        tutor.Context  `bson:"context_data"`
	AnalysisStatus tutor.AnalysisStatus `bson:"analysis_status"`
	EndedAt        *time.Time     `bson:"ended_at,omitempty"`
	CreatedAt      time.Time      `bson:"created_at"`
}

// CreateSession implements SessionStore.
func (s *MongoStore) CreateSession(ctx context.Context, row SessionRow) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	doc := sessionDocument{
		ID: row.ID, UserID: row.UserID, FolderID: row.FolderID,
		Context: row.Context, AnalysisStatus: tutor.AnalysisNone, CreatedAt: row.CreatedAt,
	}
	_, err := s.db.Collection(collSessions).InsertOne(ctx, doc)
	return err
}

// LoadSession implements SessionStore.
func (s *MongoStore) LoadSession(ctx context.Context, sessionID string) (SessionRow, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var doc sessionDocument
	err := s.db.Collection(collSessions).FindOne(ctx, bson.M{"_id": sessionID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return SessionRow{}, ErrNotFound
	}
	if err != nil {
		return SessionRow{}, fmt.Errorf("%w: %v", tutor.ErrContextParse, err)
	}
	return SessionRow{
		ID: doc.ID, UserID: doc.UserID, FolderID: doc.FolderID,
		Context: doc.Context, AnalysisStatus: doc.AnalysisStatus, EndedAt: doc.EndedAt, CreatedAt: doc.CreatedAt,
	}, nil
}

// SaveLeanContext implements SessionStore: persisted after every turn in
// the lean form described in §3's lifecycle note.
func (s *MongoStore) SaveLeanContext(ctx context.Context, sessionID string, lean tutor.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.db.Collection(collSessions).UpdateOne(ctx,
		bson.M{"_id": sessionID},
		bson.M{"$set": bson.M{"context_data": lean, "analysis_status": lean.AnalysisStatus}},
	)
	return err
}

// MarkEndedCleanly implements SessionStore (§4.9 "end_session").
func (s *MongoStore) MarkEndedCleanly(ctx context.Context, sessionID string, endedAt time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.db.Collection(collSessions).UpdateOne(ctx,
		bson.M{"_id": sessionID},
		bson.M{"$set": bson.M{"ended_at": endedAt}},
	)
	return err
}

// ClaimAnalysis implements SessionStore's atomic claim protocol (§4.10
// step 1): a findOneAndUpdate conditioned on analysis_status being absent
// or null stands in for `UPDATE ... WHERE status IS NULL`; Mongo's
// per-document atomicity is the critical section (§5).
func (s *MongoStore) ClaimAnalysis(ctx context.Context, sessionID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	filter := bson.M{
		"_id": sessionID,
		"$or": bson.A{
			bson.M{"analysis_status": bson.M{"$exists": false}},
			bson.M{"analysis_status": tutor.AnalysisNone},
		},
	}
	res := s.db.Collection(collSessions).FindOneAndUpdate(ctx, filter,
		bson.M{"$set": bson.M{"analysis_status": tutor.AnalysisProcessing}},
	)
	var doc sessionDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrClaimLost
		}
		return err
	}
	return nil
}

// SetAnalysisStatus implements SessionStore (§4.10 step 5).
func (s *MongoStore) SetAnalysisStatus(ctx context.Context, sessionID string, status tutor.AnalysisStatus) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.db.Collection(collSessions).UpdateOne(ctx,
		bson.M{"_id": sessionID},
		bson.M{"$set": bson.M{"analysis_status": status}},
	)
	return err
}

type messageDocument struct {
	SessionID               string    `bson:"session_id"`
	TurnNo                  int       `bson:"turn_no"`
	Role                    string    `bson:"role"`
	Text                    string    `bson:"text"`
	PayloadJSON             []byte    `bson:"payload_json,omitempty"`
	WhiteboardSnapshotIndex *int      `bson:"whiteboard_snapshot_index,omitempty"`
	CreatedAt               time.Time `bson:"created_at"`
}

// AppendMessage implements MessageStore.
func (s *MongoStore) AppendMessage(ctx context.Context, row MessageRow) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	doc := messageDocument{
		SessionID: row.SessionID, TurnNo: row.TurnNo, Role: row.Role, Text: row.Text,
		PayloadJSON: row.PayloadJSON, WhiteboardSnapshotIndex: row.WhiteboardSnapshotIndex,
		CreatedAt: row.CreatedAt,
	}
	_, err := s.db.Collection(collMessages).InsertOne(ctx, doc)
	return err
}

// RecentMessages implements MessageStore (§4.9 "most recent 50 turns").
func (s *MongoStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]MessageRow, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "turn_no", Value: -1}}).SetLimit(int64(limit))
	cur, err := s.db.Collection(collMessages).Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []messageDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	rows := make([]MessageRow, len(docs))
	for i, d := range docs {
		// reverse into ascending turn_no order since the query sorted descending
		rows[len(docs)-1-i] = toMessageRow(d)
	}
	return rows, nil
}

// Since implements MessageStore.
func (s *MongoStore) Since(ctx context.Context, sessionID string, afterTurnNo int, limit int) ([]MessageRow, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "turn_no", Value: 1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cur, err := s.db.Collection(collMessages).Find(ctx,
		bson.M{"session_id": sessionID, "turn_no": bson.M{"$gt": afterTurnNo}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []messageDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	rows := make([]MessageRow, len(docs))
	for i, d := range docs {
		rows[i] = toMessageRow(d)
	}
	return rows, nil
}

func toMessageRow(d messageDocument) MessageRow {
	return MessageRow{
		SessionID: d.SessionID, TurnNo: d.TurnNo, Role: d.Role, Text: d.Text,
		PayloadJSON: d.PayloadJSON, WhiteboardSnapshotIndex: d.WhiteboardSnapshotIndex,
		CreatedAt: d.CreatedAt,
	}
}

type snapshotDocument struct {
	SessionID     string `bson:"session_id"`
	SnapshotIndex int    `bson:"snapshot_index"`
	ActionsJSON   []byte `bson:"actions_json"`
}

// SaveSnapshot implements WhiteboardSnapshotStore.
func (s *MongoStore) SaveSnapshot(ctx context.Context, row SnapshotRow) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	doc := snapshotDocument{SessionID: row.SessionID, SnapshotIndex: row.SnapshotIndex, ActionsJSON: row.ActionsJSON}
	_, err := s.db.Collection(collSnapshots).InsertOne(ctx, doc)
	return err
}

// ActionsUpTo implements WhiteboardSnapshotStore.
func (s *MongoStore) ActionsUpTo(ctx context.Context, sessionID string, targetIndex int) ([][]byte, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "snapshot_index", Value: 1}})
	cur, err := s.db.Collection(collSnapshots).Find(ctx,
		bson.M{"session_id": sessionID, "snapshot_index": bson.M{"$lte": targetIndex}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []snapshotDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([][]byte, len(docs))
	for i, d := range docs {
		out[i] = d.ActionsJSON
	}
	return out, nil
}

type folderDocument struct {
	ID            string `bson:"_id"`
	UserID        string `bson:"user_id"`
	Name          string `bson:"name"`
	KnowledgeBase string `bson:"knowledge_base"`
	VectorStoreID string `bson:"vector_store_id,omitempty"`
}

// LoadFolder implements FolderStore.
func (s *MongoStore) LoadFolder(ctx context.Context, folderID string) (FolderRow, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var doc folderDocument
	err := s.db.Collection(collFolders).FindOne(ctx, bson.M{"_id": folderID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return FolderRow{}, ErrNotFound
	}
	if err != nil {
		return FolderRow{}, err
	}
	return FolderRow{ID: doc.ID, UserID: doc.UserID, Name: doc.Name, KnowledgeBase: doc.KnowledgeBase, VectorStoreID: doc.VectorStoreID}, nil
}

// AppendKnowledgeBase implements FolderStore (§4.10 step 4: append-only,
// never flips analysis_status to failed if it errors).
func (s *MongoStore) AppendKnowledgeBase(ctx context.Context, folderID string, text string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.db.Collection(collFolders).UpdateOne(ctx,
		bson.M{"_id": folderID},
		bson.A{bson.M{"$set": bson.M{"knowledge_base": bson.M{"$concat": bson.A{
			bson.M{"$ifNull": bson.A{"$knowledge_base", ""}}, "\n\n", text,
		}}}}},
	)
	return err
}

type graphDocument struct {
	Prereq  string `bson:"prereq"`
	Concept string `bson:"concept"`
}

// LoadPrereqEdges implements GraphStore.
func (s *MongoStore) LoadPrereqEdges(ctx context.Context) ([]PrereqEdge, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.db.Collection(collGraph).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []graphDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	edges := make([]PrereqEdge, len(docs))
	for i, d := range docs {
		edges[i] = PrereqEdge{Prereq: d.Prereq, Concept: d.Concept}
	}
	return edges, nil
}

type logDocument struct {
	SessionID   string    `bson:"session_id"`
	UserID      string    `bson:"user_id"`
	Role        string    `bson:"role"`
	Content     string    `bson:"content"`
	ContentType string    `bson:"content_type"`
	EventType   string    `bson:"event_type"`
	CreatedAt   time.Time `bson:"created_at"`
}

// AppendLog implements LogStore.
func (s *MongoStore) AppendLog(ctx context.Context, entry LogEntry) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	doc := logDocument{
		SessionID: entry.SessionID, UserID: entry.UserID, Role: entry.Role, Content: entry.Content,
		ContentType: entry.ContentType, EventType: entry.EventType, CreatedAt: entry.CreatedAt,
	}
	_, err := s.db.Collection(collLogs).InsertOne(ctx, doc)
	return err
}

// AllForSession implements LogStore (§4.10 step 3 "fetch all role/content
// rows").
func (s *MongoStore) AllForSession(ctx context.Context, sessionID string) ([]LogEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.db.Collection(collLogs).Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []logDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	entries := make([]LogEntry, len(docs))
	for i, d := range docs {
		entries[i] = LogEntry{
			SessionID: d.SessionID, UserID: d.UserID, Role: d.Role, Content: d.Content,
			ContentType: d.ContentType, EventType: d.EventType, CreatedAt: d.CreatedAt,
		}
	}
	return entries, nil
}

var _ Store = (*MongoStore)(nil)
