// Package planner implements the Focus Planner (C6): the component that
// chooses a session's single FocusObjective from the folder's knowledge
// base, the learner model, and the concept prerequisite DAG. It is
// consulted at session bootstrap, when the session has no objective yet;
// nothing else in this module re-runs it, including after a session ends.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/crit308/tutorcore/internal/learner"
	"github.com/crit308/tutorcore/internal/memory"
	"github.com/crit308/tutorcore/internal/model"
	"github.com/crit308/tutorcore/internal/telemetry"
	"github.com/crit308/tutorcore/internal/tutor"
)

// KnowledgeBaseTruncateBytes bounds how much of the folder's knowledge
// base is included in the planner prompt (§4.6 step 1: "truncate to the
// last ≈8 KB bytes before prompting").
const KnowledgeBaseTruncateBytes = 8 * 1024

// MaxAttempts bounds the planner's own validation retry loop (§4.6 step 6:
// "retry with increased temperature up to 3 times before raising"). Each
// attempt is a single CallWithRetry call with maxAttempts=1, so
// model.DefaultMaxAttempts does not apply to the planner.
const MaxAttempts = 3

// systemPrompt is the fixed JSON-only instruction naming the FocusObjective
// schema (§4.6 step 5).
const systemPrompt = `You are the focus planner for an AI tutoring session.
Given the knowledge base, the learner's current mastery state, and a list
of concepts the learner is ready to learn next, choose the session's
single FocusObjective.

Respond with ONLY a JSON object of this exact shape, no prose:
{
  "topic": string,
  "learning_goal": string,
  "priority": integer 1-5,
  "relevant_concepts": [string] (optional),
  "suggested_approach": string (optional),
  "target_mastery": number in (0,1],
  "initial_difficulty": string (optional)
}`

// Planner drives the Focus Planner procedure described in §4.6.
type Planner struct {
	Client model.Client
	Store  memory.FolderStore
	Log    telemetry.Logger
}

// New constructs a Planner. log may be nil.
func New(client model.Client, store memory.FolderStore, log telemetry.Logger) *Planner {
	if log == nil {
		log = telemetry.NoopLogger{}
	}
	return &Planner{Client: client, Store: store, Log: log}
}

// objectiveResponse is the raw JSON shape the LLM is asked to produce,
// decoded before defaulting/validation.
type objectiveResponse struct {
	Topic              string   `json:"topic"`
	LearningGoal       string   `json:"learning_goal"`
	Priority           *int     `json:"priority"`
	RelevantConcepts   []string `json:"relevant_concepts"`
	SuggestedApproach  string   `json:"suggested_approach"`
	TargetMastery      *float64 `json:"target_mastery"`
	InitialDifficulty  string   `json:"initial_difficulty"`
}

// Plan runs the full §4.6 procedure and stores the resulting objective on
// tc, replacing any prior objective.
func (p *Planner) Plan(ctx context.Context, tc *tutor.Context, edges []memory.PrereqEdge) (tutor.FocusObjective, error) {
	kb, err := p.loadKnowledgeBase(ctx, tc)
	if err != nil {
		return tutor.FocusObjective{}, fmt.Errorf("planner: load knowledge base: %w", err)
	}
	kb = truncateTail(kb, KnowledgeBaseTruncateBytes)

	mastered := tc.Learner.MasteredConcepts()
	candidates := nextLearnable(edges, mastered)
	summary := buildSummary(tc.Learner.SummaryLines())

	userPrompt := buildUserPrompt(kb, summary, candidates, tc.Objective)

	req := model.Request{
		System:      systemPrompt,
		Messages:    []model.Message{{Role: "user", Content: userPrompt}},
		Temperature: 0.2,
		MaxTokens:   512,
	}

	var lastErr error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return tutor.FocusObjective{}, fmt.Errorf("planner: %w", ctx.Err())
			case <-time.After(model.RetryBackoff):
			}
		}
		attemptReq := req
		attemptReq.Temperature = req.Temperature + float32(attempt)*0.2

		obj, _, err := model.CallWithRetry(ctx, p.Client, attemptReq, 1, p.parseObjective)
		if err == nil {
			tc.Objective = &obj
			return obj, nil
		}
		lastErr = err
	}
	return tutor.FocusObjective{}, fmt.Errorf("planner: exhausted %d attempts: %w", MaxAttempts, lastErr)
}

func (p *Planner) parseObjective(resp model.Response) (tutor.FocusObjective, error) {
	var raw objectiveResponse
	if err := json.Unmarshal([]byte(resp.Content), &raw); err != nil {
		return tutor.FocusObjective{}, fmt.Errorf("%w: %v", tutor.ErrLLMFormat, err)
	}
	if raw.Topic == "" || raw.LearningGoal == "" {
		return tutor.FocusObjective{}, fmt.Errorf("%w: missing required topic/learning_goal", tutor.ErrLLMFormat)
	}

	obj := tutor.FocusObjective{
		Topic:             raw.Topic,
		LearningGoal:      raw.LearningGoal,
		RelevantConcepts:  raw.RelevantConcepts,
		SuggestedApproach: raw.SuggestedApproach,
		InitialDifficulty: raw.InitialDifficulty,
	}
	if raw.Priority == nil {
		p.Log.Warn(context.Background(), "planner: priority missing, applying default", "default", tutor.DefaultPriority)
		obj.Priority = tutor.DefaultPriority
	} else {
		obj.Priority = *raw.Priority
	}
	if raw.TargetMastery == nil {
		p.Log.Warn(context.Background(), "planner: target_mastery missing, applying default", "default", tutor.DefaultTargetMastery)
		obj.TargetMastery = tutor.DefaultTargetMastery
	} else {
		obj.TargetMastery = *raw.TargetMastery
	}
	return obj, nil
}

func (p *Planner) loadKnowledgeBase(ctx context.Context, tc *tutor.Context) (string, error) {
	if tc.Analysis != nil && tc.Analysis.KnowledgeBase != "" {
		return tc.Analysis.KnowledgeBase, nil
	}
	if tc.FolderID == "" || p.Store == nil {
		return "", nil
	}
	folder, err := p.Store.LoadFolder(ctx, tc.FolderID)
	if err != nil {
		return "", err
	}
	return folder.KnowledgeBase, nil
}

func truncateTail(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return s[len(s)-maxBytes:]
}

// nextLearnable computes the "next learnable" candidate set (§4.6 step 3):
// concepts not yet mastered, all of whose prerequisites are mastered. If
// edges is empty the planner proceeds without this hint (nil, not an
// error).
func nextLearnable(edges []memory.PrereqEdge, mastered map[string]bool) []string {
	if len(edges) == 0 {
		return nil
	}
	prereqsOf := make(map[string][]string)
	concepts := make(map[string]bool)
	for _, e := range edges {
		prereqsOf[e.Concept] = append(prereqsOf[e.Concept], e.Prereq)
		concepts[e.Concept] = true
		concepts[e.Prereq] = true
	}

	var candidates []string
	for concept := range concepts {
		if mastered[concept] {
			continue
		}
		allPrereqsMastered := true
		for _, prereq := range prereqsOf[concept] {
			if !mastered[prereq] {
				allPrereqsMastered = false
				break
			}
		}
		if allPrereqsMastered {
			candidates = append(candidates, concept)
		}
	}
	sort.Strings(candidates)
	return candidates
}

// buildSummary formats the per-concept (topic, mastery, confidence,
// attempts) summary string (§4.6 step 4), sorted by topic for a
// deterministic prompt.
func buildSummary(lines []learner.Summary) string {
	sort.Slice(lines, func(i, j int) bool { return lines[i].Topic < lines[j].Topic })
	var b strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&b, "- %s: mastery=%.2f confidence=%d attempts=%d\n", l.Topic, l.Mastery, l.Confidence, l.Attempts)
	}
	return b.String()
}

func buildUserPrompt(kb, summary string, candidates []string, prior *tutor.FocusObjective) string {
	var b strings.Builder
	b.WriteString("Knowledge base (may be truncated):\n")
	b.WriteString(kb)
	b.WriteString("\n\nLearner state:\n")
	if summary == "" {
		b.WriteString("(no recorded interactions yet)\n")
	} else {
		b.WriteString(summary)
	}
	if len(candidates) > 0 {
		b.WriteString("\nNext-learnable candidates (prerequisites already mastered): ")
		b.WriteString(strings.Join(candidates, ", "))
		b.WriteString("\n")
	}
	if prior != nil {
		fmt.Fprintf(&b, "\nPrior objective was %q (%q); only repeat it if still appropriate.\n", prior.Topic, prior.LearningGoal)
	}
	return b.String()
}
