package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rocketscienceinc/memory-backend/internal/apperror"
	"github.com/rocketscienceinc/memory-backend/internal/concentration"
	"github.com/rocketscienceinc/memory-backend/internal/usecase"
)

var errBadRequest = errors.New("bad request")

type newGameRequest struct {
	PlayerOne string `json:"player_one"`
	PlayerTwo string `json:"player_two"`
	Seed      *int64 `json:"seed,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (that *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		that.writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	event, err := that.games.NewGame(r.Context(), usecase.NewGameParams{
		PlayerOne: req.PlayerOne,
		PlayerTwo: req.PlayerTwo,
		Seed:      req.Seed,
	})
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusCreated, event)
}

func (that *Server) handleState(w http.ResponseWriter, r *http.Request) {
	event, err := that.games.State(r.Context(), chi.URLParam(r, "sessionID"))
	that.respond(w, r, event, err)
}

func (that *Server) handleSelectTile(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		that.writeError(w, r, fmt.Errorf("%w: tile index must be a number", errBadRequest))
		return
	}

	event, err := that.games.SelectTile(r.Context(), chi.URLParam(r, "sessionID"), index)
	that.respond(w, r, event, err)
}

func (that *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	event, err := that.games.Resolve(r.Context(), chi.URLParam(r, "sessionID"))
	that.respond(w, r, event, err)
}

func (that *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	event, err := that.games.Reset(r.Context(), chi.URLParam(r, "sessionID"))
	that.respond(w, r, event, err)
}

func (that *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := that.games.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		that.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (that *Server) respond(w http.ResponseWriter, r *http.Request, event concentration.Event, err error) {
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, http.StatusOK, event)
}

func (that *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, apperror.ErrOutOfRange):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrConfiguration):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperror.ErrInvalidOperation):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	that.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (that *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
