package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rocketscienceinc/memory-backend/internal/apperror"
	"github.com/rocketscienceinc/memory-backend/internal/concentration"
)

const publishTimeout = 5 * time.Second

type eventRepo interface {
	Save(ctx context.Context, event concentration.Event) error
	Publish(ctx context.Context, event concentration.Event) error
	DeleteByID(ctx context.Context, sessionID string) error
}

type NewGameParams struct {
	PlayerOne string
	PlayerTwo string
	// Seed fixes the deal; nil deals from the clock.
	Seed *int64
}

// game is one hosted session. mu serialises moves and keeps published events in order.
type game struct {
	mu       sync.Mutex
	session  *concentration.Session
	settings concentration.Settings
	timer    *time.Timer
	// timerSeq identifies the armed timer; a callback holding an older value is stale.
	timerSeq uint64
	events   []concentration.Event
	closed   bool
}

func (that *game) drain() []concentration.Event {
	events := that.events
	that.events = nil

	return events
}

func (that *game) stopTimer() {
	if that.timer != nil {
		that.timer.Stop()
		that.timer = nil
		that.timerSeq++
	}
}

// GameManager hosts sessions: it owns them by id, schedules the reveal delay
// before a pair is resolved and publishes every event.
type GameManager struct {
	logger      *slog.Logger
	eventRepo   eventRepo
	settings    concentration.Settings
	revealDelay time.Duration

	mu    sync.Mutex
	games map[string]*game
}

func NewGameManager(logger *slog.Logger, eventRepo eventRepo, settings concentration.Settings, revealDelay time.Duration) *GameManager {
	return &GameManager{
		logger:      logger.With("component", "game_manager"),
		eventRepo:   eventRepo,
		settings:    settings,
		revealDelay: revealDelay,

		games: make(map[string]*game),
	}
}

func (that *GameManager) NewGame(ctx context.Context, params NewGameParams) (concentration.Event, error) {
	settings := that.settings
	if params.PlayerOne != "" {
		settings.PlayerOne = params.PlayerOne
	}

	if params.PlayerTwo != "" {
		settings.PlayerTwo = params.PlayerTwo
	}

	id := uuid.NewString()

	newGame, err := that.startGame(id, settings, params.Seed)
	if err != nil {
		return concentration.Event{}, fmt.Errorf("failed to create game: %w", err)
	}
	defer newGame.mu.Unlock()

	that.mu.Lock()
	that.games[id] = newGame
	that.mu.Unlock()

	that.publish(ctx, id, newGame.drain())

	that.logger.Info("game created", "sessionID", id)

	return newGame.session.Snapshot(), nil
}

// Reset - replaces the session with a freshly dealt one under the same id.
func (that *GameManager) Reset(ctx context.Context, id string) (concentration.Event, error) {
	that.mu.Lock()
	old, ok := that.games[id]
	that.mu.Unlock()

	if !ok {
		return concentration.Event{}, fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, id)
	}

	old.mu.Lock()
	settings := old.settings
	old.mu.Unlock()

	newGame, err := that.startGame(id, settings, nil)
	if err != nil {
		return concentration.Event{}, fmt.Errorf("failed to reset game: %w", err)
	}
	defer newGame.mu.Unlock()

	that.mu.Lock()
	current, ok := that.games[id]
	if ok {
		that.games[id] = newGame
	}
	that.mu.Unlock()

	if !ok {
		return concentration.Event{}, fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, id)
	}

	that.close(current)
	that.publish(ctx, id, newGame.drain())

	that.logger.Info("game reset", "sessionID", id)

	return newGame.session.Snapshot(), nil
}

func (that *GameManager) SelectTile(ctx context.Context, id string, index int) (concentration.Event, error) {
	current, err := that.lockGame(id)
	if err != nil {
		return concentration.Event{}, err
	}
	defer current.mu.Unlock()

	return that.selectTile(ctx, id, current, index)
}

// selectTile - expects current.mu to be held.
func (that *GameManager) selectTile(ctx context.Context, id string, current *game, index int) (concentration.Event, error) {
	event, err := current.session.SelectTile(index)
	if err != nil {
		return event, fmt.Errorf("failed to select tile: %w", err)
	}

	if current.session.Phase() == concentration.PhaseResolving && current.timer == nil {
		if that.revealDelay <= 0 {
			if event, err = current.session.Resolve(); err != nil {
				return event, fmt.Errorf("failed to resolve pair: %w", err)
			}
		} else {
			current.timerSeq++
			seq := current.timerSeq
			current.timer = time.AfterFunc(that.revealDelay, func() {
				that.resolveScheduled(id, current, seq)
			})
		}
	}

	that.publish(ctx, id, current.drain())

	return event, nil
}

// Resolve - settles a revealed pair now instead of waiting for the reveal delay.
func (that *GameManager) Resolve(ctx context.Context, id string) (concentration.Event, error) {
	current, err := that.lockGame(id)
	if err != nil {
		return concentration.Event{}, err
	}
	defer current.mu.Unlock()

	return that.resolve(ctx, id, current)
}

// resolve - expects current.mu to be held.
func (that *GameManager) resolve(ctx context.Context, id string, current *game) (concentration.Event, error) {
	current.stopTimer()

	event, err := current.session.Resolve()
	if err != nil {
		return event, fmt.Errorf("failed to resolve pair: %w", err)
	}

	that.publish(ctx, id, current.drain())

	return event, nil
}

func (that *GameManager) State(_ context.Context, id string) (concentration.Event, error) {
	current, err := that.lockGame(id)
	if err != nil {
		return concentration.Event{}, err
	}
	defer current.mu.Unlock()

	return current.session.Snapshot(), nil
}

func (that *GameManager) Delete(ctx context.Context, id string) error {
	log := that.logger.With("method", "Delete", "sessionID", id)

	that.mu.Lock()
	current, ok := that.games[id]
	delete(that.games, id)
	that.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, id)
	}

	that.close(current)

	// renderers still streaming the session end their connection on this event
	closing := concentration.Event{Kind: concentration.EventSessionClosed, SessionID: id}
	if err := that.eventRepo.Publish(ctx, closing); err != nil {
		log.Error("failed to publish session close", "error", err)
	}

	if err := that.eventRepo.DeleteByID(ctx, id); err != nil && !errors.Is(err, apperror.ErrSessionNotFound) {
		log.Error("failed to delete session snapshot", "error", err)
	}

	log.Info("game deleted")

	return nil
}

// startGame - deals a session and returns it locked so its first events go out before any move.
func (that *GameManager) startGame(id string, settings concentration.Settings, seed *int64) (*game, error) {
	newGame := &game{settings: settings}

	source := time.Now().UnixNano()
	if seed != nil {
		source = *seed
	}

	session, err := concentration.Create(
		settings,
		rand.New(rand.NewSource(source)), //nolint: gosec // game deal, not a secret
		concentration.WithID(id),
		concentration.WithObserver(concentration.ObserverFunc(func(event concentration.Event) {
			newGame.events = append(newGame.events, event)
		})),
	)
	if err != nil {
		return nil, err
	}

	newGame.session = session
	newGame.mu.Lock()

	return newGame, nil
}

// lockGame - returns the live game for id with its lock held.
func (that *GameManager) lockGame(id string) (*game, error) {
	for {
		that.mu.Lock()
		current, ok := that.games[id]
		that.mu.Unlock()

		if !ok {
			return nil, fmt.Errorf("%w: %s", apperror.ErrSessionNotFound, id)
		}

		current.mu.Lock()
		if !current.closed {
			return current, nil
		}
		current.mu.Unlock()
	}
}

func (that *GameManager) close(old *game) {
	old.mu.Lock()
	defer old.mu.Unlock()

	old.closed = true
	old.stopTimer()
}

func (that *GameManager) resolveScheduled(id string, scheduled *game, seq uint64) {
	log := that.logger.With("method", "resolveScheduled", "sessionID", id)

	scheduled.mu.Lock()
	defer scheduled.mu.Unlock()

	// a timer stopped after it fired still runs; it must not settle a later pair
	if scheduled.closed || scheduled.timer == nil || scheduled.timerSeq != seq {
		return
	}
	scheduled.timer = nil

	if _, err := scheduled.session.Resolve(); err != nil {
		log.Error("failed to resolve pair", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	that.publish(ctx, id, scheduled.drain())
}

func (that *GameManager) publish(ctx context.Context, id string, events []concentration.Event) {
	log := that.logger.With("method", "publish", "sessionID", id)

	for _, event := range events {
		log.Debug("session event", "kind", event.Kind, "phase", event.Phase, "currentPlayer", event.CurrentPlayer)

		if event.Outcome != nil {
			log.Info("game finished", "outcome", event.Outcome.Kind, "playerID", event.Outcome.PlayerID, "score", event.Outcome.Score)
		}

		if err := that.eventRepo.Save(ctx, event); err != nil {
			log.Error("failed to save event", "error", err)
		}

		if err := that.eventRepo.Publish(ctx, event); err != nil {
			log.Error("failed to publish event", "error", err)
		}
	}
}
