package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// handleEcho relays every websocket frame back to its sender unchanged.
func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		s.logger.Warn("ws_accept_failed", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "relay stopped")

	ctx := r.Context()
	frames := 0
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			fields := []zap.Field{
				zap.String("request_id", RequestID(ctx)),
				zap.String("path", r.URL.Path),
				zap.Int("frames", frames),
				zap.Int("status", int(status)),
			}
			if status == -1 && !errors.Is(err, ctx.Err()) {
				fields = append(fields, zap.Error(err))
			}
			s.logger.Info("ws_echo_closed", fields...)
			return
		}
		if err := conn.Write(ctx, typ, data); err != nil {
			s.logger.Info("ws_echo_closed", zap.String("request_id", RequestID(ctx)), zap.Error(err))
			return
		}
		frames++
	}
}
