package executor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/crit308/tutorcore/internal/model"
	"github.com/crit308/tutorcore/internal/tools"
	"github.com/crit308/tutorcore/internal/tutor"
)

// buildSystemPrompt composes the fixed preamble described in §4.7: the
// front-end display tools by name, each available backend skill with its
// cost, description and (when it has one) its argument schema document,
// zone/template semantics, the current objective, the learner-model state,
// session notes, the last pedagogical action, and the interaction mode
// restriction.
func buildSystemPrompt(tc *tutor.Context, reg *tools.Registry, availableBackendTools []tools.Name) string {
	var b strings.Builder

	b.WriteString("You are the lean executor of a one-tool-call-per-turn AI tutor.\n")
	b.WriteString("Respond with ONLY a single JSON object of the shape {\"name\": <tool name>, \"args\": <object>}.\n")
	b.WriteString("Never chain multiple tool calls; never include any prose outside the JSON object.\n\n")

	b.WriteString("Front-end display tools (always available):\n")
	for _, name := range FrontEndToolNames() {
		fmt.Fprintf(&b, "- %s\n", name)
	}

	if tc.Mode == tutor.ModeChatOnly {
		b.WriteString("\nInteraction mode is chat_only: you MUST NOT select any whiteboard drawing tool this turn.\n")
	} else {
		b.WriteString("\nBackend whiteboard skills (available this turn):\n")
		for _, name := range availableBackendTools {
			d, ok := reg.Descriptor(name)
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "- %s (cost=%s): %s\n", name, d.Cost, d.Description)
			if len(d.SchemaDoc) > 0 {
				fmt.Fprintf(&b, "  args schema: %s\n", d.SchemaDoc)
			}
		}
		b.WriteString("\nWhen naming a natural-language board region, you must supply both a template and a zone so the skill can place objects within it (recognized zones include question_area, options_area, explanation_area, side_panel_top, side_panel_bottom, center_large, alt_question_spot).\n")
	}

	if tc.Objective != nil {
		fmt.Fprintf(&b, "\nCurrent objective: topic=%q goal=%q target_mastery=%.2f\n", tc.Objective.Topic, tc.Objective.LearningGoal, tc.Objective.TargetMastery)
	}

	if tc.Learner != nil {
		if state, err := json.Marshal(tc.Learner); err == nil {
			fmt.Fprintf(&b, "\nLearner model state (JSON): %s\n", state)
		}
		if len(tc.Learner.SessionNotes) > 0 {
			b.WriteString("\nSession summary notes:\n")
			for _, note := range tc.Learner.SessionNotes {
				fmt.Fprintf(&b, "- %s\n", note)
			}
		}
	}

	if tc.LastPedagogicalAction != "" {
		fmt.Fprintf(&b, "\nLast pedagogical action: %s. Avoid trivially repeating it (e.g. explaining right after explaining).\n", tc.LastPedagogicalAction)
	}

	return b.String()
}

// buildMessages turns the session's compact chat history into prior
// model.Message entries (§4.7 "Recent conversation history").
func buildMessages(tc *tutor.Context) []model.Message {
	msgs := make([]model.Message, 0, len(tc.ChatHistory))
	for _, m := range tc.ChatHistory {
		msgs = append(msgs, model.Message{Role: m.Role, Content: m.Content})
	}
	return msgs
}
