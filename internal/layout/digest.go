package layout

import (
	"github.com/crit308/tutorcore/internal/whiteboard"
)

// QuestionTag summarizes a learner-placed question-tag annotation.
type QuestionTag struct {
	ObjectID string
	X, Y     float64
}

// ConceptCluster is the envelope bounding box and count of every object
// sharing the same metadata.concept value.
type ConceptCluster struct {
	Concept string
	MinX, MinY, MaxX, MaxY float64
	Count   int
}

// EphemeralSummary digests the ephemeral map: active highlight count,
// active question-tag links, and the most recent pointer ping.
type EphemeralSummary struct {
	ActiveHighlights   int
	ActiveQuestionTags []QuestionTag
	RecentPointer      *struct{ X, Y float64 }
}

// BoardDigest is the compact board summary served by the REST
// board_summary endpoint instead of the full object list (§4.3). The lean
// executor's system prompt does not include it.
type BoardDigest struct {
	CountsByKind   map[string]int
	CountsBySource map[string]int
	QuestionTags   []QuestionTag
	ConceptClusters []ConceptCluster
	Ephemeral      EphemeralSummary
}

// BuildDigest computes the board-summary digest from the live in-memory
// CRDT snapshot only; the reference's alternate database-row path is not
// reimplemented, per the Open Question decided in SPEC_FULL.md §9.
func BuildDigest(objects map[string]whiteboard.CanvasObject, ephemeral map[string]whiteboard.CanvasObject) BoardDigest {
	digest := BoardDigest{
		CountsByKind:   make(map[string]int),
		CountsBySource: make(map[string]int),
	}

	clusters := make(map[string]*ConceptCluster)

	for id, obj := range objects {
		digest.CountsByKind[string(obj.Kind)]++
		source := string(obj.Metadata.Source)
		if source == "" {
			source = "unknown"
		}
		digest.CountsBySource[source]++

		if obj.Metadata.Role == "question_tag" {
			digest.QuestionTags = append(digest.QuestionTags, QuestionTag{ObjectID: id, X: obj.X, Y: obj.Y})
		}

		if concept := obj.Metadata.Concept; concept != "" {
			x1, y1 := obj.X, obj.Y
			x2, y2 := obj.X+obj.Width, obj.Y+obj.Height
			c, ok := clusters[concept]
			if !ok {
				clusters[concept] = &ConceptCluster{Concept: concept, MinX: x1, MinY: y1, MaxX: x2, MaxY: y2, Count: 1}
				continue
			}
			c.MinX = min(c.MinX, x1)
			c.MinY = min(c.MinY, y1)
			c.MaxX = max(c.MaxX, x2)
			c.MaxY = max(c.MaxY, y2)
			c.Count++
		}
	}
	for _, c := range clusters {
		digest.ConceptClusters = append(digest.ConceptClusters, *c)
	}

	var mostRecent *whiteboard.CanvasObject
	for _, obj := range ephemeral {
		switch obj.Kind {
		case "highlight_stroke":
			digest.Ephemeral.ActiveHighlights++
		case "question_tag":
			digest.Ephemeral.ActiveQuestionTags = append(digest.Ephemeral.ActiveQuestionTags, QuestionTag{ObjectID: obj.ID, X: obj.X, Y: obj.Y})
		case "pointer_ping":
			o := obj
			if mostRecent == nil || o.Metadata.ExpiresAt > mostRecent.Metadata.ExpiresAt {
				mostRecent = &o
			}
		}
	}
	if mostRecent != nil {
		digest.Ephemeral.RecentPointer = &struct{ X, Y float64 }{X: mostRecent.X, Y: mostRecent.Y}
	}

	return digest
}
