package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"

	"github.com/soundshift/soundshift/lib/logger"
)

// HandleControlSocket upgrades to WebSocket and serves the controller
// protocol: one ControlResponse per ControlRequest, in order.
func (s *ApiService) HandleControlSocket(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error("control socket accept failed", "err", err)
		return
	}
	conn.SetReadLimit(1 * 1024 * 1024)

	ctx := r.Context()
	log.Info("control session started")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Debug("control client read error", "err", err)
			break
		}

		var req ControlRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.writeJSON(ctx, conn, errResponse("invalid message format"))
			continue
		}

		s.writeJSON(ctx, conn, s.dispatch(ctx, req))
	}

	_ = conn.Close(websocket.StatusNormalClosure, "")
	log.Info("control session ended")
}

func (s *ApiService) writeJSON(ctx context.Context, conn *websocket.Conn, resp ControlResponse) {
	log := logger.FromContext(ctx)
	data, err := json.Marshal(resp)
	if err != nil {
		log.Error("marshal control response", "err", err)
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		log.Debug("control write failed", "err", err)
	}
}
