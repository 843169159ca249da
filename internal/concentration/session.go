package concentration

import (
	"fmt"
	"math/rand"

	"github.com/rocketscienceinc/memory-backend/internal/apperror"
	"github.com/rocketscienceinc/memory-backend/internal/deck"
	"github.com/rocketscienceinc/memory-backend/internal/entity"
)

type Phase string

const (
	PhaseAwaitingFirst  Phase = "awaiting_first"
	PhaseAwaitingSecond Phase = "awaiting_second"
	PhaseResolving      Phase = "resolving"
	PhaseFinished       Phase = "finished"
)

const (
	DefaultPairCount = 8
	DefaultColumns   = 4
	DefaultPlayerOne = "Player One"
	DefaultPlayerTwo = "Player Two"

	noSelection = -1
)

// Settings describe the deal of a new session.
type Settings struct {
	PairCount int
	Columns   int
	Palette   []entity.Color
	PlayerOne string
	PlayerTwo string
}

func DefaultSettings() Settings {
	return Settings{
		PairCount: DefaultPairCount,
		Columns:   DefaultColumns,
		Palette:   entity.DefaultPalette(),
		PlayerOne: DefaultPlayerOne,
		PlayerTwo: DefaultPlayerTwo,
	}
}

type Option func(*Session)

func WithID(id string) Option {
	return func(session *Session) {
		session.id = id
	}
}

func WithObserver(observer Observer) Option {
	return func(session *Session) {
		session.observers = append(session.observers, observer)
	}
}

// Session is the turn state machine of one game. It is not safe for concurrent use;
// the host drives it with one call at a time.
type Session struct {
	id        string
	board     *entity.Board
	players   [2]*entity.Player
	current   int
	first     int
	second    int
	phase     Phase
	outcome   *Outcome
	observers []Observer
}

// Create - deals a new board from settings and starts a session on it.
func Create(settings Settings, rng *rand.Rand, opts ...Option) (*Session, error) {
	colors, err := deck.Generate(settings.PairCount, settings.Palette, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to generate deck: %w", err)
	}

	if settings.Columns <= 0 || len(colors)%settings.Columns != 0 {
		return nil, fmt.Errorf("%w: %d tiles do not fill %d columns", apperror.ErrConfiguration, len(colors), settings.Columns)
	}

	positions := entity.GridPositions(len(colors)/settings.Columns, settings.Columns)

	board, err := entity.NewBoard(positions, colors)
	if err != nil {
		return nil, fmt.Errorf("failed to build board: %w", err)
	}

	return New(board, entity.NewPlayer(settings.PlayerOne), entity.NewPlayer(settings.PlayerTwo), opts...)
}

// New - starts a session on an existing board. playerOne moves first.
func New(board *entity.Board, playerOne, playerTwo *entity.Player, opts ...Option) (*Session, error) {
	if board == nil {
		return nil, fmt.Errorf("%w: board is required", apperror.ErrConfiguration)
	}

	if playerOne == nil || playerTwo == nil {
		return nil, fmt.Errorf("%w: two players are required", apperror.ErrConfiguration)
	}

	if playerOne.ID() == "" || playerTwo.ID() == "" || playerOne.ID() == playerTwo.ID() {
		return nil, fmt.Errorf("%w: players need distinct non-empty ids", apperror.ErrConfiguration)
	}

	session := &Session{
		board:   board,
		players: [2]*entity.Player{playerOne, playerTwo},
		first:   noSelection,
		second:  noSelection,
		phase:   PhaseAwaitingFirst,
	}

	for _, opt := range opts {
		opt(session)
	}

	session.emit(EventSessionStarted, nil)

	return session, nil
}

func (that *Session) ID() string {
	return that.id
}

func (that *Session) Phase() Phase {
	return that.phase
}

func (that *Session) Board() *entity.Board {
	return that.board
}

func (that *Session) Players() [2]*entity.Player {
	return that.players
}

func (that *Session) CurrentPlayer() *entity.Player {
	return that.players[that.current]
}

// PendingSelection - index of the first tile of the current attempt, if one is face up.
func (that *Session) PendingSelection() (int, bool) {
	return that.first, that.first != noSelection
}

// Outcome - the result once the session is finished.
func (that *Session) Outcome() (Outcome, bool) {
	if that.outcome == nil {
		return Outcome{}, false
	}

	return *that.outcome, true
}

func (that *Session) IsFinished() bool {
	return that.phase == PhaseFinished
}

// SelectTile - reveals a tile for the current player. Re-selecting the pending tile,
// selecting a matched tile, or selecting while a pair awaits resolution is ignored.
func (that *Session) SelectTile(index int) (Event, error) {
	tile, err := that.board.TileAt(index)
	if err != nil {
		return that.Snapshot(), fmt.Errorf("failed to select tile: %w", err)
	}

	switch that.phase {
	case PhaseAwaitingFirst:
		if tile.Matched {
			return that.Snapshot(), nil
		}

		if err = that.board.Flip(index); err != nil {
			return that.Snapshot(), fmt.Errorf("failed to flip tile: %w", err)
		}

		that.first = index
		that.phase = PhaseAwaitingSecond

	case PhaseAwaitingSecond:
		if index == that.first || tile.Matched {
			return that.Snapshot(), nil
		}

		if err = that.board.Flip(index); err != nil {
			return that.Snapshot(), fmt.Errorf("failed to flip tile: %w", err)
		}

		that.second = index
		that.phase = PhaseResolving

	default:
		return that.Snapshot(), nil
	}

	return that.emit(EventTileRevealed, nil), nil
}

// Resolve - settles the two revealed tiles and passes the turn. Outside the
// resolving phase it does nothing, so a late or repeated call is harmless.
func (that *Session) Resolve() (Event, error) {
	if that.phase != PhaseResolving {
		return that.Snapshot(), nil
	}

	first, err := that.board.TileAt(that.first)
	if err != nil {
		return that.Snapshot(), fmt.Errorf("failed to resolve pair: %w", err)
	}

	second, err := that.board.TileAt(that.second)
	if err != nil {
		return that.Snapshot(), fmt.Errorf("failed to resolve pair: %w", err)
	}

	mover := that.CurrentPlayer()
	pair := &Pair{
		First:    that.first,
		Second:   that.second,
		Matched:  first.Color == second.Color,
		PlayerID: mover.ID(),
	}

	kind := EventPairMismatched
	if pair.Matched {
		if err = that.board.MarkMatched(that.first, that.second); err != nil {
			return that.Snapshot(), fmt.Errorf("failed to resolve pair: %w", err)
		}

		mover.IncrementScore()
		kind = EventPairMatched
	} else {
		// both indexes were validated above
		_ = that.board.Flip(that.first)
		_ = that.board.Flip(that.second)
	}

	that.first, that.second = noSelection, noSelection
	that.current = 1 - that.current

	if that.board.IsComplete() {
		that.phase = PhaseFinished
		that.outcome = that.determineOutcome()

		event := that.snapshot(EventGameFinished)
		event.Pair = pair
		event.Outcome = that.outcome
		that.notify(event)

		return event, nil
	}

	that.phase = PhaseAwaitingFirst

	return that.emit(kind, pair), nil
}

// Snapshot - the current state without notifying observers.
func (that *Session) Snapshot() Event {
	return that.snapshot(EventSnapshot)
}

func (that *Session) determineOutcome() *Outcome {
	one, two := that.players[0], that.players[1]

	switch {
	case one.Score() == two.Score():
		return &Outcome{Kind: OutcomeDraw, Score: one.Score()}
	case one.Score() > two.Score():
		return &Outcome{Kind: OutcomeWinner, PlayerID: one.ID(), Score: one.Score()}
	default:
		return &Outcome{Kind: OutcomeWinner, PlayerID: two.ID(), Score: two.Score()}
	}
}

func (that *Session) emit(kind EventKind, pair *Pair) Event {
	event := that.snapshot(kind)
	event.Pair = pair
	that.notify(event)

	return event
}

func (that *Session) notify(event Event) {
	for _, observer := range that.observers {
		observer.Notify(event)
	}
}

func (that *Session) snapshot(kind EventKind) Event {
	tiles := that.board.Tiles()
	views := make([]TileView, len(tiles))

	for i, tile := range tiles {
		views[i] = TileView{
			Index:   i,
			Row:     tile.Position.Row,
			Col:     tile.Position.Col,
			FaceUp:  tile.FaceUp,
			Matched: tile.Matched,
		}

		if tile.FaceUp || tile.Matched {
			views[i].Color = tile.Color.String()
		}
	}

	players := make([]PlayerView, len(that.players))
	for i, player := range that.players {
		players[i] = PlayerView{ID: player.ID(), Score: player.Score()}
	}

	return Event{
		Kind:           kind,
		SessionID:      that.id,
		Phase:          that.phase,
		Tiles:          views,
		CurrentPlayer:  that.CurrentPlayer().ID(),
		Players:        players,
		PairsRemaining: that.board.PairsRemaining(),
	}
}
