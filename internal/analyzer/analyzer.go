// Package analyzer implements the Session Analyzer (C10): the background,
// singleton-per-session summarization task that runs after a session ends,
// guarded by the atomic analysis-status claim protocol in
// internal/memory (§4.10, §5 "session-analyzer claim table row").
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crit308/tutorcore/internal/memory"
	"github.com/crit308/tutorcore/internal/model"
	"github.com/crit308/tutorcore/internal/telemetry"
	"github.com/crit308/tutorcore/internal/tutor"
)

// ChunkWordTarget is the approximate chunk size (in words) the transcript
// is split into before summarization (§4.10 step 3: "chunk to ≈400-word
// chunks").
const ChunkWordTarget = 400

// SummaryTokenBudget bounds the concatenated chunk-summary output; the
// reference's "hard token budget" is approximated here as a rune budget
// since this runtime has no local tokenizer (the model providers' own
// tokenizers are out of process).
const SummaryTokenBudget = 6000

// TruncationMarker is appended when SummaryTokenBudget is exceeded, per
// §4.10 step 3 "truncate with a clear marker if exceeded".
const TruncationMarker = "\n\n[... summary truncated ...]"

// SummaryPrefix is the contract checked before a summary is appended to a
// folder's knowledge base (§4.10 step 4).
const SummaryPrefix = "Session Summary:"

const chunkSystemPrompt = `You are summarizing a chunk of an AI tutoring session transcript.
Produce a concise, factual summary of what was taught and how the learner responded in this chunk. No prose preamble.`

const finalSystemPrompt = `You are producing the final summary of a completed AI tutoring session.
Combine the chunk summaries below into one cohesive summary. Begin the response with the exact line "Session Summary:" followed by the summary text.`

// Analyzer runs the §4.10 procedure for one ended session.
type Analyzer struct {
	Store  memory.Store
	Client model.Client
	Log    telemetry.Logger

	MaxAttempts int
}

// New constructs an Analyzer. log may be nil.
func New(store memory.Store, client model.Client, log telemetry.Logger) *Analyzer {
	if log == nil {
		log = telemetry.NoopLogger{}
	}
	return &Analyzer{Store: store, Client: client, Log: log, MaxAttempts: model.DefaultMaxAttempts}
}

// Analyze runs the full background analysis procedure for sessionID. It
// assumes the caller already knows the session ended; Analyze itself
// performs the atomic claim (§4.10 step 1) and is a no-op (nil error) if
// another worker already holds or resolved the claim (memory.ErrClaimLost).
func (a *Analyzer) Analyze(ctx context.Context, sessionID string) error {
	if err := a.Store.ClaimAnalysis(ctx, sessionID); err != nil {
		if errors.Is(err, memory.ErrClaimLost) {
			return nil
		}
		return fmt.Errorf("analyzer: claim: %w", err)
	}

	if err := a.Store.MarkEndedCleanly(ctx, sessionID, time.Now()); err != nil {
		a.Log.Warn(ctx, "analyzer: mark ended_at failed", "session_id", sessionID, "error", err.Error())
	}

	summary, folderID, err := a.summarize(ctx, sessionID)
	if err != nil {
		a.Log.Error(ctx, "analyzer: summarization failed", "session_id", sessionID, "error", err.Error())
		_ = a.Store.SetAnalysisStatus(ctx, sessionID, tutor.AnalysisFailed)
		return err
	}

	// §4.10 step 4: append-KB failure does not flip status to failed —
	// idempotency is guaranteed by the claim alone.
	if strings.HasPrefix(summary, SummaryPrefix) && folderID != "" {
		if err := a.Store.AppendKnowledgeBase(ctx, folderID, summary); err != nil {
			a.Log.Warn(ctx, "analyzer: append knowledge base failed", "session_id", sessionID, "folder_id", folderID, "error", err.Error())
		}
	}

	return a.Store.SetAnalysisStatus(ctx, sessionID, tutor.AnalysisSuccess)
}

func (a *Analyzer) summarize(ctx context.Context, sessionID string) (summary string, folderID string, err error) {
	row, err := a.Store.LoadSession(ctx, sessionID)
	if err != nil {
		return "", "", fmt.Errorf("load session: %w", err)
	}
	folderID = row.FolderID

	entries, err := a.Store.AllForSession(ctx, sessionID)
	if err != nil {
		return "", "", fmt.Errorf("load interaction log: %w", err)
	}
	if len(entries) == 0 {
		return "", folderID, nil
	}

	chunks := chunkEntries(entries, ChunkWordTarget)
	chunkSummaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		req := model.Request{
			System:      chunkSystemPrompt,
			Messages:    []model.Message{{Role: "user", Content: chunk}},
			Temperature: 0.2,
			MaxTokens:   512,
		}
		out, _, err := model.CallWithRetry(ctx, a.Client, req, a.MaxAttempts, passthroughParse)
		if err != nil {
			return "", folderID, fmt.Errorf("summarize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		chunkSummaries = append(chunkSummaries, out)
	}

	finalReq := model.Request{
		System:      finalSystemPrompt,
		Messages:    []model.Message{{Role: "user", Content: strings.Join(chunkSummaries, "\n\n")}},
		Temperature: 0.2,
		MaxTokens:   1024,
	}
	final, _, err := model.CallWithRetry(ctx, a.Client, finalReq, a.MaxAttempts, passthroughParse)
	if err != nil {
		return "", folderID, fmt.Errorf("summarize final: %w", err)
	}

	if r := []rune(final); len(r) > SummaryTokenBudget {
		final = string(r[:SummaryTokenBudget]) + TruncationMarker
	}
	return final, folderID, nil
}

func passthroughParse(resp model.Response) (string, error) {
	return resp.Content, nil
}

// chunkEntries groups role/content interaction-log rows into ≈wordTarget-
// word chunks, each rendered as "role: content" lines, preserving
// chronological order (§4.10 step 3).
func chunkEntries(entries []memory.LogEntry, wordTarget int) []string {
	var chunks []string
	var b strings.Builder
	words := 0
	for _, e := range entries {
		line := fmt.Sprintf("%s: %s\n", e.Role, e.Content)
		b.WriteString(line)
		words += len(strings.Fields(e.Content))
		if words >= wordTarget {
			chunks = append(chunks, b.String())
			b.Reset()
			words = 0
		}
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
