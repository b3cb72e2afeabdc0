package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"
)

// handleEvents streams session events to a websocket client. The stream
// starts with a snapshot so late subscribers see the current board.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r)
	if !ok {
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", t.id).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	ch := t.subscribe()
	defer t.unsubscribe(ch)

	var snap view
	if err := t.loop.Call(r.Context(), func() { snap = t.view() }); err != nil {
		conn.Close(websocket.StatusGoingAway, "session closed")
		return
	}

	// Clients only listen; CloseRead handles their control frames.
	ctx := conn.CloseRead(r.Context())
	if err := write(ctx, conn, map[string]any{"type": "snapshot", "session": snap}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.loop.Done():
			conn.Close(websocket.StatusGoingAway, "session closed")
			return
		case ev := <-ch:
			if err := write(ctx, conn, ev); err != nil {
				log.Debug().Err(err).Str("session", t.id).Msg("websocket write")
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
