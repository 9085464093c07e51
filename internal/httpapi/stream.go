package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const streamWriteTimeout = 5 * time.Second

// handleStream upgrades to a WebSocket and pushes the composed dashboard
// once on connect and again after every poll cycle. Clients that fall behind
// skip intermediate snapshots.
func (s *DashboardServer) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	id, updates := s.poll.Subscribe(4)
	defer s.poll.Unsubscribe(id)

	// Inbound messages are not expected; CloseRead handles control frames
	// and cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	s.log.Debug("stream client connected", "remote", r.RemoteAddr)
	if err := writeFrame(ctx, conn, composeDashboard(s.poll.Snapshot())); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "poll stopped")
				return
			}
			if err := writeFrame(ctx, conn, composeDashboard(snap)); err != nil {
				s.log.Debug("stream write failed", "error", err)
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
