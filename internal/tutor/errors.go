// Package tutor defines the per-session state threaded through every
// component of the tutoring runtime: the tutor context, chat turns,
// whiteboard snapshots, and the tagged tool-call envelope dispatched
// each turn.
package tutor

import "errors"

// Error kinds recognized by the session runtime's error-handling design.
// Each wraps a stable, client-facing code so the WebSocket error envelope
// never needs to leak internal error strings.
var (
	// ErrToolInput marks a skill argument validation failure. The executor
	// never surfaces this to the user; it becomes a system feedback message
	// for the LLM's next turn.
	ErrToolInput = errors.New("tool input validation failed")

	// ErrToolExecution marks an unexpected failure inside a skill after its
	// arguments validated successfully. Surfaced to the client as a
	// structured error envelope; the session continues.
	ErrToolExecution = errors.New("tool execution failed")

	// ErrLLMFormat marks a malformed or schema-invalid LLM reply that
	// survived the bounded retry loop.
	ErrLLMFormat = errors.New("llm response format invalid")

	// ErrPersistence marks a database or key-value store failure.
	ErrPersistence = errors.New("persistence failure")

	// ErrAuthorization marks a failed bearer-token check.
	ErrAuthorization = errors.New("authorization failed")

	// ErrContextParse marks a tutor context that could not be hydrated from
	// its persisted form on reconnect.
	ErrContextParse = errors.New("tutor context parse failed")

	// ErrUnknownTool marks a tool name absent from the merged registry.
	ErrUnknownTool = errors.New("unknown tool name")
)

// Code returns the stable error code sent to clients in a structured error
// envelope for the given error kind. Unrecognized errors map to "internal".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrToolInput):
		return "TOOL_INPUT_VALIDATION_ERROR"
	case errors.Is(err, ErrToolExecution):
		return "TOOL_EXECUTION_ERROR"
	case errors.Is(err, ErrLLMFormat):
		return "LLM_FORMAT_ERROR"
	case errors.Is(err, ErrPersistence):
		return "PERSISTENCE_ERROR"
	case errors.Is(err, ErrAuthorization):
		return "AUTHORIZATION_ERROR"
	case errors.Is(err, ErrContextParse):
		return "CONTEXT_PARSE_ERROR"
	case errors.Is(err, ErrUnknownTool):
		return "UNKNOWN_TOOL_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
