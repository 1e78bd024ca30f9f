package skills

import (
	"fmt"

	"github.com/crit308/tutorcore/internal/whiteboard"
)

// TimelineEvent is one dated point drawn along the timeline.
type TimelineEvent struct {
	Date  string `json:"date"`
	Label string `json:"label"`
}

// DrawTimelineArgs renders a horizontal timeline with tick marks and
// labels for each event, evenly spaced along the line.
type DrawTimelineArgs struct {
	TimelineID string          `json:"timeline_id"`
	Events     []TimelineEvent `json:"events"`
	StartX     float64         `json:"start_x,omitempty"`
	StartY     float64         `json:"start_y,omitempty"`
	Length     float64         `json:"length,omitempty"`
}

// DrawTimeline draws the main line plus one tick+label pair per event.
func DrawTimeline(args DrawTimelineArgs) (whiteboard.Action, error) {
	if len(args.Events) == 0 {
		return whiteboard.Action{}, fmt.Errorf("draw_timeline: events missing or empty")
	}
	timelineID := args.TimelineID
	if timelineID == "" {
		timelineID = "timeline-1"
	}
	startX, startY := nz(args.StartX, 50), nz(args.StartY, 150)
	length := nz(args.Length, 600)

	objects := []whiteboard.CanvasObject{
		{
			ID: timelineID + "-mainline", Kind: whiteboard.KindLine,
			Style:    map[string]any{"points": []float64{startX, startY, startX + length, startY}, "stroke": "#000"},
			Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "timeline_axis", GroupID: timelineID},
		},
	}
	spacing := length / float64(len(args.Events)+1)
	for i, ev := range args.Events {
		eventX := startX + float64(i+1)*spacing
		idBase := fmt.Sprintf("%s-event-%d", timelineID, i)
		objects = append(objects,
			whiteboard.CanvasObject{
				ID: idBase + "-tick", Kind: whiteboard.KindLine,
				Style:    map[string]any{"points": []float64{eventX, startY - 5, eventX, startY + 5}, "stroke": "#000"},
				Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "timeline_tick", GroupID: timelineID},
			},
			whiteboard.CanvasObject{
				ID: idBase + "-label", Kind: whiteboard.KindText, Text: fmt.Sprintf("%s: %s", ev.Date, ev.Label),
				X: eventX, Y: startY + 20,
				Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "timeline_label", GroupID: timelineID},
			},
		)
	}
	return whiteboard.Action{Type: whiteboard.ActionAddObjects, Objects: objects, GroupID: timelineID}, nil
}
