package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rocketscienceinc/memory-backend/internal/concentration"
	"github.com/rocketscienceinc/memory-backend/internal/repository"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Renderers only send control frames.
	maxMessageSize = 512

	shutdownTimeout = 5 * time.Second
)

type eventSource interface {
	GetByID(ctx context.Context, sessionID string) (*concentration.Event, error)
	Subscribe(ctx context.Context, sessionID string) (repository.Subscription, error)
}

// Server streams session events to renderers: the latest snapshot first, then every published event.
type Server struct {
	logger   *slog.Logger
	events   eventSource
	upgrader websocket.Upgrader
	router   chi.Router
}

func New(logger *slog.Logger, events eventSource) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the renderer is served from another origin during development
			CheckOrigin: func(*http.Request) bool { return true },
		},
		router: chi.NewRouter(),
	}

	server.router.Get("/ws/{sessionID}", server.handleSession)

	return server
}

func (that *Server) Handler() http.Handler {
	return that.router
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down WebSocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
