package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rocketscienceinc/memory-backend/internal/concentration"
	"github.com/rocketscienceinc/memory-backend/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

type gameUseCase interface {
	NewGame(ctx context.Context, params usecase.NewGameParams) (concentration.Event, error)
	State(ctx context.Context, id string) (concentration.Event, error)
	SelectTile(ctx context.Context, id string, index int) (concentration.Event, error)
	Resolve(ctx context.Context, id string) (concentration.Event, error)
	Reset(ctx context.Context, id string) (concentration.Event, error)
	Delete(ctx context.Context, id string) error
}

type Server struct {
	logger *slog.Logger
	games  gameUseCase
	router chi.Router
}

func New(logger *slog.Logger, games gameUseCase) *Server {
	server := &Server{
		logger: logger.With("component", "rest"),
		games:  games,
		router: chi.NewRouter(),
	}

	server.router.Use(middleware.RequestID)
	server.router.Use(middleware.Recoverer)
	server.router.Use(middleware.Timeout(10 * time.Second))

	server.router.Get("/ping", server.handlePing)

	server.router.Route("/sessions", func(r chi.Router) {
		r.Post("/", server.handleNewGame)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", server.handleState)
			r.Delete("/", server.handleDelete)
			r.Post("/tiles/{index}", server.handleSelectTile)
			r.Post("/resolve", server.handleResolve)
			r.Post("/reset", server.handleReset)
		})
	})

	return server
}

func (that *Server) Handler() http.Handler {
	return that.router
}

// Start - serves HTTP until ctx is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down HTTP server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
