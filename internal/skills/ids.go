// Package skills implements the drawing-skill catalog (C4): the set of
// backend functions that turn a tutoring decision into one or more
// whiteboard canvas objects or a whiteboard action. Each skill is a plain
// Go function over a typed argument struct; internal/tools wraps the
// catalog into the generic registry dispatched by the executor.
package skills

import (
	"fmt"

	"github.com/google/uuid"
)

// assistantDrawingNamespace is the fixed UUID namespace every deterministic
// object id is derived from (D5), matching the reference's own namespace
// constant so ids stay stable across a reimplementation.
var assistantDrawingNamespace = uuid.MustParse("a1e5a97a-7278-47ce-861d-80971e00de60")

// deterministicID derives a stable object id from kind plus the key
// properties a caller supplied, so re-running a skill with identical
// arguments yields an identical id (§4.4's deterministic-id rule).
func deterministicID(kind string, parts ...string) string {
	name := kind
	for _, p := range parts {
		name += "|" + p
	}
	return uuid.NewSHA1(assistantDrawingNamespace, []byte(name)).String()
}

func orDefaultID(id, kind string, parts ...string) string {
	if id != "" {
		return id
	}
	return deterministicID(kind, parts...)
}

func f(v float64) string {
	return fmt.Sprintf("%g", v)
}
