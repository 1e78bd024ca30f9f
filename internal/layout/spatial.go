package layout

import "sync"

// BBox is an axis-aligned bounding box in pixel coordinates.
type BBox struct {
	X, Y, Width, Height float64
}

func (b BBox) intersects(o BBox) bool {
	return b.X < o.X+o.Width && o.X < b.X+b.Width &&
		b.Y < o.Y+o.Height && o.Y < b.Y+b.Height
}

// SpatialIndex is a session-scoped 2-D index over object bounding boxes.
// No balanced-tree spatial index library exists anywhere in the example
// pack, and per-session object counts are small, so this is a guarded
// bbox-list scan — functionally an "R-tree" in name only, matching the
// reference's own documented fallback path when no native R-tree is
// available.
type SpatialIndex struct {
	mu      sync.Mutex
	records map[string]BBox
}

// NewSpatialIndex returns an empty index.
func NewSpatialIndex() *SpatialIndex {
	return &SpatialIndex{records: make(map[string]BBox)}
}

// AddObject inserts or updates objectID's bounding box.
func (s *SpatialIndex) AddObject(objectID string, bbox BBox) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[objectID] = bbox
}

// RemoveObject deletes objectID from the index, if present.
func (s *SpatialIndex) RemoveObject(objectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, objectID)
}

// QueryIntersecting returns the ids of every object whose bbox intersects
// the query rectangle.
func (s *SpatialIndex) QueryIntersecting(query BBox) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var hits []string
	for id, bb := range s.records {
		if bb.intersects(query) {
			hits = append(hits, id)
		}
	}
	return hits
}

// Clear empties the index.
func (s *SpatialIndex) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]BBox)
}
