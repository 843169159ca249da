package websocket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/memory-backend/internal/apperror"
	"github.com/rocketscienceinc/memory-backend/internal/concentration"
)

func (that *Server) handleSession(writer http.ResponseWriter, req *http.Request) {
	sessionID := chi.URLParam(req, "sessionID")
	log := that.logger.With("method", "handleSession", "sessionID", sessionID)

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	// subscribe before reading the snapshot so nothing published in between is missed
	subscription, err := that.events.Subscribe(ctx, sessionID)
	if err != nil {
		log.Error("failed to subscribe", "error", err)
		http.Error(writer, "failed to subscribe to session", http.StatusInternalServerError)
		return
	}

	defer func() {
		if err = subscription.Close(); err != nil {
			log.Error("failed to close subscription", "error", err)
		}
	}()

	latest, err := that.events.GetByID(ctx, sessionID)
	if errors.Is(err, apperror.ErrSessionNotFound) {
		http.Error(writer, "session not found", http.StatusNotFound)
		return
	}

	if err != nil {
		log.Error("failed to get session snapshot", "error", err)
		http.Error(writer, "failed to get session", http.StatusInternalServerError)
		return
	}

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	log.Info("WebSocket connection established")

	go that.readPump(conn, cancel)

	if err = that.writePump(ctx, conn, latest, subscription.Events()); err != nil {
		log.Debug("WebSocket connection closed", "error", err)
	}
}

// readPump - drains control frames and cancels the stream once the peer goes away.
func (that *Server) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				that.logger.Warn("unexpected WebSocket close", "error", err)
			}
			return
		}
	}
}

func (that *Server) writePump(ctx context.Context, conn *websocket.Conn, latest *concentration.Event, events <-chan concentration.Event) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := writeEvent(conn, *latest); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()

		case event, ok := <-events:
			if !ok {
				return nil
			}

			if err := writeEvent(conn, event); err != nil {
				return err
			}

			if event.Kind == concentration.EventSessionClosed {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return nil
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, event concentration.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

	return conn.WriteJSON(event)
}
