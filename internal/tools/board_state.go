package tools

import (
	"context"
	"encoding/json"

	"github.com/crit308/tutorcore/internal/tutor"
)

// BoardStateRequester round-trips to the connected chat client to fetch its
// actual rendered board state (§4.9 `REQUEST_BOARD_STATE`/
// `BOARD_STATE_RESPONSE`), implemented by internal/session.Runtime once a
// connection exists. The registry itself stays process-wide and
// connection-agnostic (§5), so this is supplied the same way PlacerFor is.
type BoardStateRequester func(ctx context.Context, sessionID string) (json.RawMessage, error)

// GetBoardStateDescriptor builds the get_board_state tool descriptor: the
// one backend skill that performs network I/O of its own (a round trip to
// the front end) rather than a pure in-process whiteboard mutation.
func GetBoardStateDescriptor(request BoardStateRequester) Descriptor {
	return Descriptor{
		Name:        "get_board_state",
		Description: "Ask the connected client for its actual current whiteboard render before deciding what to draw next.",
		Cost:        CostLow,
		Fn: func(ctx context.Context, tc *tutor.Context, _ json.RawMessage) (Result, error) {
			payload, err := request(ctx, tc.SessionID)
			if err != nil {
				return Result{}, err
			}
			return Result{Payload: payload}, nil
		},
	}
}
