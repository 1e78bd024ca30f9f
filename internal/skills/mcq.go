package skills

import (
	"fmt"

	"github.com/crit308/tutorcore/internal/tutor"
	"github.com/crit308/tutorcore/internal/whiteboard"
)

// Layout constants for an MCQ rendered within a resolved zone, expressed as
// fractions of the zone's own height/width (mirrors the reference's
// QUESTION_TEXT_HEIGHT_PCT_OF_ZONE / OPTIONS_START_Y_PCT_OF_ZONE family).
const (
	mcqQuestionHeightPctOfZone = 0.25
	mcqOptionsStartYPctOfZone  = 0.30
	mcqOptionHeightPctOfZone   = 0.15
	mcqOptionXOffsetPct        = 0.02
	mcqOptionTextXOffsetPct    = 0.05
	mcqRadioRadius             = 8.0

	mcqQuestionWidth  = 700.0
	mcqOptionSpacing  = 40.0
	mcqVPadding       = 20.0
)

// DrawMCQActionsArgs renders a multiple-choice question onto the board.
type DrawMCQActionsArgs struct {
	Question    tutor.QuizQuestion `json:"question"`
	QuestionID  string             `json:"question_id,omitempty"`
	Template    string             `json:"template,omitempty"`
	Zone        string             `json:"zone,omitempty"`
	BoardWidth  float64            `json:"board_width,omitempty"`
	BoardHeight float64            `json:"board_height,omitempty"`
}

// DrawMCQActions renders question text plus one (selector circle, label
// text) pair per option, placing the whole group within a resolved zone
// when template/zone are both supplied, otherwise via the allocator. Every
// emitted object is tagged with metadata.role ∈
// {question, option_selector, option_label} and metadata.groupId equal to
// the question id so DELETE_GROUP/MOVE_GROUP can target the whole MCQ.
func DrawMCQActions(placer *Placer, args DrawMCQActionsArgs) (whiteboard.Action, error) {
	qid := args.QuestionID
	if qid == "" {
		qid = "q1"
	}

	blockHeight := 100 + float64(len(args.Question.Options))*mcqOptionSpacing + mcqVPadding
	block, err := placer.Reserve(args.Template, args.Zone, args.BoardWidth, args.BoardHeight, int(mcqQuestionWidth), int(blockHeight), qid)
	if err != nil {
		return whiteboard.Action{}, fmt.Errorf("draw_mcq_actions: %w", err)
	}

	usePercent := args.Template != "" && args.Zone != ""

	var objects []whiteboard.CanvasObject
	objects = append(objects, mcqQuestionObject(qid, args.Question.Question, block, usePercent))

	numOptions := len(args.Question.Options)
	singleOptionHeight := block.Height * mcqOptionHeightPctOfZone
	if numOptions > 0 {
		available := block.Height * (1 - mcqOptionsStartYPctOfZone)
		if perOption := available / float64(numOptions); perOption < singleOptionHeight {
			singleOptionHeight = perOption
		}
	}

	currentY := block.Y + block.Height*mcqOptionsStartYPctOfZone
	for i, optionText := range args.Question.Options {
		label := fmt.Sprintf("%c. %s", 'A'+i, optionText)
		objects = append(objects, mcqOptionObjects(qid, i, label, block, currentY, singleOptionHeight, usePercent)...)
		currentY += singleOptionHeight
	}

	return whiteboard.Action{Type: whiteboard.ActionAddObjects, Objects: objects, GroupID: qid}, nil
}

func mcqQuestionObject(qid, text string, block Block, usePercent bool) whiteboard.CanvasObject {
	obj := whiteboard.CanvasObject{
		ID:         deterministicID("mcq-question", qid),
		Kind:       whiteboard.KindText,
		Text:       text,
		UsePercent: usePercent,
		Style:      map[string]any{"fontSize": 18, "fill": StyleToken(ColorDefault)},
		Metadata:   whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "question", GroupID: qid},
	}
	if usePercent {
		obj.XPct, obj.YPct, obj.WidthPct, obj.HeightPct = block.X, block.Y, block.Width, block.Height*mcqQuestionHeightPctOfZone
	} else {
		obj.X, obj.Y, obj.Width, obj.Height = block.X, block.Y, block.Width, block.Height*mcqQuestionHeightPctOfZone
	}
	return obj
}

func mcqOptionObjects(qid string, idx int, label string, block Block, y, rowHeight float64, usePercent bool) []whiteboard.CanvasObject {
	radio := whiteboard.CanvasObject{
		ID:       deterministicID("mcq-option-radio", qid, f(float64(idx))),
		Kind:     whiteboard.KindCircle,
		Style:    map[string]any{"radius": mcqRadioRadius, "stroke": "#555555", "fill": "#FFFFFF"},
		Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "option_selector", GroupID: qid},
	}
	text := whiteboard.CanvasObject{
		ID:       deterministicID("mcq-option-text", qid, f(float64(idx))),
		Kind:     whiteboard.KindText,
		Text:     label,
		Style:    map[string]any{"fontSize": 16, "fill": "#333333"},
		Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "option_label", GroupID: qid},
	}
	if usePercent {
		radio.UsePercent, text.UsePercent = true, true
		radio.XPct = block.X + block.Width*mcqOptionXOffsetPct
		radio.YPct = y + rowHeight/2
		text.XPct = block.X + block.Width*mcqOptionTextXOffsetPct
		text.YPct = y
		text.WidthPct = block.Width * (1 - mcqOptionTextXOffsetPct)
		text.HeightPct = rowHeight
	} else {
		radio.X = block.X + 20
		radio.Y = y + mcqRadioRadius
		text.X = block.X + 20 + 25
		text.Y = y + mcqRadioRadius
	}
	return []whiteboard.CanvasObject{radio, text}
}

// DrawMCQFeedbackArgs colors the selected/correct option selectors and
// produces a feedback text object once an answer has been evaluated.
type DrawMCQFeedbackArgs struct {
	QuestionID      string `json:"question_id"`
	OptionID        int    `json:"option_id"`
	CorrectOptionID int    `json:"correct_option_id"`
	IsCorrect       bool   `json:"is_correct"`
	NumOptions      int    `json:"num_options"`
	ExplanationText string `json:"explanation_text,omitempty"`
	SuggestionText  string `json:"suggestion_text,omitempty"`
}

// DrawMCQFeedback recolors the answered and correct option selectors
// (green for correct, red for the learner's wrong pick) and appends a
// combined explanation/suggestion text object below the question block.
// Returned as two actions — an UPDATE_OBJECTS recoloring the selectors and
// an ADD_OBJECTS for the feedback text — since Action is a single-variant
// tagged union (§3 "Whiteboard action").
func DrawMCQFeedback(args DrawMCQFeedbackArgs) []whiteboard.Action {
	var updates []whiteboard.ObjectUpdate

	selectedColor := ColorSuccess
	if !args.IsCorrect {
		selectedColor = ColorError
	}
	selectedID := deterministicID("mcq-option-radio", args.QuestionID, f(float64(args.OptionID)))
	updates = append(updates, whiteboard.ObjectUpdate{
		ObjectID: selectedID,
		Updates:  map[string]any{"fill": StyleToken(selectedColor)},
	})

	if !args.IsCorrect {
		correctID := deterministicID("mcq-option-radio", args.QuestionID, f(float64(args.CorrectOptionID)))
		updates = append(updates, whiteboard.ObjectUpdate{
			ObjectID: correctID,
			Updates:  map[string]any{"fill": StyleToken(ColorSuccess)},
		})
	}

	feedbackText := fmt.Sprintf("Explanation: %s\n\nSuggestion: %s", args.ExplanationText, args.SuggestionText)
	blockHeight := 100 + float64(args.NumOptions)*mcqOptionSpacing + mcqVPadding
	feedbackObj := whiteboard.CanvasObject{
		ID:       deterministicID("mcq-feedback-text", args.QuestionID),
		Kind:     whiteboard.KindText,
		Text:     feedbackText,
		Y:        blockHeight + 20,
		Width:    mcqQuestionWidth,
		Style:    map[string]any{"fontSize": 16, "fill": "#333333"},
		Metadata: whiteboard.Metadata{Source: whiteboard.SourceAssistant, Role: "mcq_feedback_text", GroupID: args.QuestionID},
	}

	return []whiteboard.Action{
		{Type: whiteboard.ActionUpdateObjects, Updates: updates, GroupID: args.QuestionID},
		{Type: whiteboard.ActionAddObjects, Objects: []whiteboard.CanvasObject{feedbackObj}, GroupID: args.QuestionID},
	}
}
