package session

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

// inboundQueueDepth bounds how many decoded client frames the read pump
// may buffer ahead of the processor goroutine while it is busy running a
// turn (§5 "reader/processor split").
const inboundQueueDepth = 16

// ServeChatWS upgrades r into the chat WebSocket for sessionID (§6
// `/ws/session/{session_id}`). It authenticates the connection,
// bootstraps or resumes the session's tutor.Context, and then runs two
// goroutines for the life of the connection: a read pump that decodes
// inbound frames and intercepts BOARD_STATE_RESPONSE directly (so
// get_board_state's round trip resolves even while the processor is
// blocked mid-turn), and the processor goroutine (this one) that owns tc
// exclusively and drives HandleInbound.
func (rt *Runtime) ServeChatWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	ctx := r.Context()

	userID, err := authenticate(ctx, rt.Authenticator, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: rt.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		rt.Log.Warn(ctx, "session: chat upgrade failed", "session_id", sessionID, "error", err.Error())
		return
	}
	defer conn.Close()

	folderID := r.URL.Query().Get("folder_id")
	tc, init, err := rt.Bootstrap(ctx, sessionID, userID, folderID)
	if err != nil {
		_ = conn.WriteJSON(errorEnvelope(err))
		return
	}
	if err := conn.WriteJSON(init); err != nil {
		return
	}
	if resume := ResumeQuizEnvelope(tc); resume != nil {
		if err := conn.WriteJSON(resume); err != nil {
			return
		}
	}

	rt.registerConn(sessionID, conn)
	defer rt.dropConn(sessionID)

	inbound := make(chan InboundMessage, inboundQueueDepth)
	go rt.readPump(conn, sessionID, inbound)

	turnCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for msg := range inbound {
		outs, shouldClose := rt.HandleInbound(turnCtx, tc, msg)
		writeErr := false
		for _, out := range outs {
			if err := conn.WriteJSON(out); err != nil {
				writeErr = true
				break
			}
		}
		if shouldClose || writeErr {
			break
		}
	}

	rt.HandleDisconnect(sessionID, tc.EndedAt != nil)
}

// readPump owns the connection's reads for its entire life: it decodes
// every inbound frame, resolves BOARD_STATE_RESPONSE frames directly
// against Runtime's waiter registry, and forwards every other frame to
// inbound for the processor goroutine. It closes inbound when the
// connection's read loop ends, for any reason.
func (rt *Runtime) readPump(conn *websocket.Conn, sessionID string, inbound chan<- InboundMessage) {
	defer close(inbound)
	ctx := context.Background()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg InboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			rt.Log.Warn(ctx, "session: decode inbound frame failed", "session_id", sessionID, "error", err.Error())
			continue
		}
		if msg.Type == InBoardStateResponse {
			rt.ResolveBoardState(sessionID, msg.Payload)
			continue
		}
		inbound <- msg
	}
}

func (rt *Runtime) checkOrigin(r *http.Request) bool {
	if rt.CORSOrigin == "" || rt.CORSOrigin == "*" {
		return true
	}
	return r.Header.Get("Origin") == rt.CORSOrigin
}
