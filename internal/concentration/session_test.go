package concentration

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/rocketscienceinc/memory-backend/internal/apperror"
	"github.com/rocketscienceinc/memory-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioColors - a 4x4 deal where tiles 0 and 5 are both aqua and tiles 0 and 1 differ.
func scenarioColors() []entity.Color {
	return []entity.Color{
		entity.Aqua, entity.Lime, entity.Teal, entity.Blue,
		entity.Navy, entity.Aqua, entity.Lime, entity.Teal,
		entity.Blue, entity.Navy, entity.Yellow, entity.Orange,
		entity.Silver, entity.Yellow, entity.Orange, entity.Silver,
	}
}

func newScenarioSession(t *testing.T, opts ...Option) *Session {
	t.Helper()

	board, err := entity.NewBoard(entity.GridPositions(4, 4), scenarioColors())
	require.NoError(t, err)

	session, err := New(board, entity.NewPlayer(DefaultPlayerOne), entity.NewPlayer(DefaultPlayerTwo), opts...)
	require.NoError(t, err)

	return session
}

// newPairedSession - tiles 2k and 2k+1 share a color for every pair k.
func newPairedSession(t *testing.T, pairs, columns int) *Session {
	t.Helper()

	colors := make([]entity.Color, 0, 2*pairs)
	for k := range pairs {
		colors = append(colors, entity.Color(k), entity.Color(k))
	}

	board, err := entity.NewBoard(entity.GridPositions(2*pairs/columns, columns), colors)
	require.NoError(t, err)

	session, err := New(board, entity.NewPlayer(DefaultPlayerOne), entity.NewPlayer(DefaultPlayerTwo))
	require.NoError(t, err)

	return session
}

func attempt(t *testing.T, session *Session, first, second int) Event {
	t.Helper()

	_, err := session.SelectTile(first)
	require.NoError(t, err)

	_, err = session.SelectTile(second)
	require.NoError(t, err)
	require.Equal(t, PhaseResolving, session.Phase())

	event, err := session.Resolve()
	require.NoError(t, err)

	return event
}

func TestCreate(t *testing.T) {
	t.Run("Default 4x4 session", func(t *testing.T) {
		// When: a session is created with default settings
		session, err := Create(DefaultSettings(), rand.New(rand.NewSource(1)), WithID("game-1")) //nolint: gosec // deterministic test source
		require.NoError(t, err)

		// Then: the board holds 8 pairs of face down tiles and player one moves first
		board := session.Board()
		require.Equal(t, 16, board.Len())
		assert.Equal(t, 8, board.PairsRemaining())
		assert.Equal(t, PhaseAwaitingFirst, session.Phase())
		assert.Equal(t, DefaultPlayerOne, session.CurrentPlayer().ID())
		assert.Equal(t, "game-1", session.ID())

		counts := make(map[entity.Color]int)
		for _, tile := range board.Tiles() {
			assert.False(t, tile.FaceUp)
			assert.False(t, tile.Matched)
			counts[tile.Color]++
		}

		for _, color := range entity.DefaultPalette() {
			assert.Equal(t, 2, counts[color], "color %s", color)
		}

		last, err := board.TileAt(15)
		require.NoError(t, err)
		assert.Equal(t, entity.Position{Row: 3, Col: 3}, last.Position)
	})

	t.Run("Same seed deals the same board", func(t *testing.T) {
		first, err := Create(DefaultSettings(), rand.New(rand.NewSource(99))) //nolint: gosec // deterministic test source
		require.NoError(t, err)

		second, err := Create(DefaultSettings(), rand.New(rand.NewSource(99))) //nolint: gosec // deterministic test source
		require.NoError(t, err)

		assert.Equal(t, first.Board().Tiles(), second.Board().Tiles())
	})

	t.Run("Configuration errors", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1)) //nolint: gosec // deterministic test source

		tooManyPairs := DefaultSettings()
		tooManyPairs.PairCount = 9

		noPairs := DefaultSettings()
		noPairs.PairCount = 0

		ragged := DefaultSettings()
		ragged.Columns = 3

		noColumns := DefaultSettings()
		noColumns.Columns = 0

		samePlayers := DefaultSettings()
		samePlayers.PlayerTwo = samePlayers.PlayerOne

		for name, settings := range map[string]Settings{
			"too many pairs": tooManyPairs,
			"no pairs":       noPairs,
			"ragged grid":    ragged,
			"no columns":     noColumns,
			"same players":   samePlayers,
		} {
			t.Run(name, func(t *testing.T) {
				session, err := Create(settings, rng)

				require.ErrorIs(t, err, apperror.ErrConfiguration)
				assert.Nil(t, session)
			})
		}
	})
}

func TestNew_Errors(t *testing.T) {
	board, err := entity.NewBoard(entity.GridPositions(1, 2), []entity.Color{entity.Aqua, entity.Aqua})
	require.NoError(t, err)

	_, err = New(nil, entity.NewPlayer("a"), entity.NewPlayer("b"))
	require.ErrorIs(t, err, apperror.ErrConfiguration)

	_, err = New(board, entity.NewPlayer("a"), nil)
	require.ErrorIs(t, err, apperror.ErrConfiguration)

	_, err = New(board, entity.NewPlayer(""), entity.NewPlayer("b"))
	require.ErrorIs(t, err, apperror.ErrConfiguration)
}

func TestSession_MatchingPair(t *testing.T) {
	// Given: a 4x4 session where tiles 0 and 5 are aqua
	session := newScenarioSession(t)

	// When: player one selects tile 0
	event, err := session.SelectTile(0)
	require.NoError(t, err)

	// Then: the tile is face up and the session waits for the second tile
	assert.Equal(t, EventTileRevealed, event.Kind)
	assert.Equal(t, PhaseAwaitingSecond, event.Phase)
	assert.True(t, event.Tiles[0].FaceUp)
	assert.Equal(t, "aqua", event.Tiles[0].Color)
	assert.Empty(t, event.Tiles[5].Color)

	pending, ok := session.PendingSelection()
	require.True(t, ok)
	assert.Equal(t, 0, pending)

	// When: player one selects tile 5
	event, err = session.SelectTile(5)
	require.NoError(t, err)

	// Then: both tiles are shown and the pair waits for resolution
	assert.Equal(t, PhaseResolving, event.Phase)
	assert.True(t, event.Tiles[5].FaceUp)
	assert.Equal(t, "aqua", event.Tiles[5].Color)
	assert.Equal(t, DefaultPlayerOne, event.CurrentPlayer)

	// When: the pair is resolved
	event, err = session.Resolve()
	require.NoError(t, err)

	// Then: both tiles are matched, the mover scored and the turn passed
	assert.Equal(t, EventPairMatched, event.Kind)
	assert.Equal(t, PhaseAwaitingFirst, event.Phase)
	assert.True(t, event.Tiles[0].Matched)
	assert.True(t, event.Tiles[5].Matched)
	assert.Equal(t, 7, event.PairsRemaining)
	assert.Equal(t, DefaultPlayerTwo, event.CurrentPlayer)
	assert.Equal(t, []PlayerView{{ID: DefaultPlayerOne, Score: 1}, {ID: DefaultPlayerTwo, Score: 0}}, event.Players)
	assert.Equal(t, &Pair{First: 0, Second: 5, Matched: true, PlayerID: DefaultPlayerOne}, event.Pair)
	assert.Nil(t, event.Outcome)

	_, ok = session.PendingSelection()
	assert.False(t, ok)
}

func TestSession_MismatchedPair(t *testing.T) {
	// Given: a session where tiles 0 and 1 differ
	session := newScenarioSession(t)

	// When: player one reveals both and the attempt resolves
	event := attempt(t, session, 0, 1)

	// Then: both tiles are face down again, nothing is matched and the turn passed
	assert.Equal(t, EventPairMismatched, event.Kind)
	assert.Equal(t, PhaseAwaitingFirst, event.Phase)
	assert.False(t, event.Tiles[0].FaceUp)
	assert.False(t, event.Tiles[1].FaceUp)
	assert.False(t, event.Tiles[0].Matched)
	assert.False(t, event.Tiles[1].Matched)
	assert.Empty(t, event.Tiles[0].Color)
	assert.Equal(t, 8, event.PairsRemaining)
	assert.Equal(t, DefaultPlayerTwo, event.CurrentPlayer)
	assert.Zero(t, session.Players()[0].Score())
	assert.Zero(t, session.Players()[1].Score())
}

func TestSession_RejectedSelections(t *testing.T) {
	t.Run("Matched tile as first selection", func(t *testing.T) {
		// Given: tiles 0 and 5 already matched
		session := newScenarioSession(t)
		attempt(t, session, 0, 5)
		before := session.Snapshot()

		// When: player two selects a matched tile
		event, err := session.SelectTile(5)

		// Then: nothing changes
		require.NoError(t, err)
		assert.Equal(t, before, event)
		assert.Equal(t, before, session.Snapshot())
	})

	t.Run("Pending tile as second selection", func(t *testing.T) {
		session := newScenarioSession(t)
		_, err := session.SelectTile(3)
		require.NoError(t, err)
		before := session.Snapshot()

		event, err := session.SelectTile(3)

		require.NoError(t, err)
		assert.Equal(t, before, event)
		assert.Equal(t, PhaseAwaitingSecond, session.Phase())
		assert.True(t, event.Tiles[3].FaceUp)
	})

	t.Run("Matched tile as second selection", func(t *testing.T) {
		session := newScenarioSession(t)
		attempt(t, session, 0, 5)
		_, err := session.SelectTile(1)
		require.NoError(t, err)
		before := session.Snapshot()

		event, err := session.SelectTile(0)

		require.NoError(t, err)
		assert.Equal(t, before, event)
		assert.Equal(t, PhaseAwaitingSecond, session.Phase())
	})

	t.Run("Selection while resolving", func(t *testing.T) {
		session := newScenarioSession(t)
		_, err := session.SelectTile(0)
		require.NoError(t, err)
		_, err = session.SelectTile(1)
		require.NoError(t, err)
		before := session.Snapshot()

		event, err := session.SelectTile(2)

		require.NoError(t, err)
		assert.Equal(t, before, event)
		assert.Equal(t, PhaseResolving, session.Phase())
		assert.False(t, event.Tiles[2].FaceUp)
	})

	t.Run("Out of range index", func(t *testing.T) {
		session := newScenarioSession(t)
		before := session.Snapshot()

		_, err := session.SelectTile(16)
		require.ErrorIs(t, err, apperror.ErrOutOfRange)

		_, err = session.SelectTile(-1)
		require.ErrorIs(t, err, apperror.ErrOutOfRange)

		assert.Equal(t, before, session.Snapshot())
	})
}

func TestSession_ResolveOutsideResolving(t *testing.T) {
	// Given: a session awaiting its first selection
	session := newScenarioSession(t)
	before := session.Snapshot()

	// When: resolve is called early
	event, err := session.Resolve()

	// Then: it is ignored
	require.NoError(t, err)
	assert.Equal(t, before, event)

	// When: an attempt resolves and resolve is called again
	attempt(t, session, 0, 5)
	after := session.Snapshot()

	event, err = session.Resolve()

	// Then: the second call changes nothing
	require.NoError(t, err)
	assert.Equal(t, after, event)
	assert.Equal(t, 1, session.Players()[0].Score())
}

func TestSession_Finish(t *testing.T) {
	t.Run("Winner with 8 against 7", func(t *testing.T) {
		// Given: a 15 pair board
		session := newPairedSession(t, 15, 6)

		// When: player one misses, then the players alternate matches starting with player two
		attempt(t, session, 0, 2)

		var event Event
		for k := range 15 {
			require.False(t, session.IsFinished())
			event = attempt(t, session, 2*k, 2*k+1)
		}

		// Then: player two found the last pair and wins 8 to 7
		assert.Equal(t, EventGameFinished, event.Kind)
		assert.Equal(t, PhaseFinished, event.Phase)
		assert.Zero(t, event.PairsRemaining)
		assert.Equal(t, &Outcome{Kind: OutcomeWinner, PlayerID: DefaultPlayerTwo, Score: 8}, event.Outcome)
		assert.Equal(t, &Pair{First: 28, Second: 29, Matched: true, PlayerID: DefaultPlayerTwo}, event.Pair)
		assert.Equal(t, 7, session.Players()[0].Score())
		assert.Equal(t, 8, session.Players()[1].Score())

		outcome, ok := session.Outcome()
		require.True(t, ok)
		assert.Equal(t, *event.Outcome, outcome)
	})

	t.Run("Draw with 8 each", func(t *testing.T) {
		session := newPairedSession(t, 16, 8)

		var event Event
		for k := range 16 {
			event = attempt(t, session, 2*k, 2*k+1)
		}

		assert.Equal(t, EventGameFinished, event.Kind)
		assert.Equal(t, &Outcome{Kind: OutcomeDraw, Score: 8}, event.Outcome)
	})

	t.Run("Finished session ignores input", func(t *testing.T) {
		// Given: a finished one pair game
		session := newPairedSession(t, 1, 2)
		event := attempt(t, session, 0, 1)
		require.Equal(t, PhaseFinished, event.Phase)
		require.Equal(t, &Outcome{Kind: OutcomeWinner, PlayerID: DefaultPlayerOne, Score: 1}, event.Outcome)

		before := session.Snapshot()

		// When: more input arrives
		selected, err := session.SelectTile(0)
		require.NoError(t, err)
		resolved, err := session.Resolve()
		require.NoError(t, err)

		// Then: nothing changes and the outcome is not repeated
		assert.Equal(t, before, selected)
		assert.Equal(t, before, resolved)
		assert.Nil(t, before.Outcome)
		assert.Equal(t, EventSnapshot, before.Kind)
	})
}

func TestSession_SnapshotJSON(t *testing.T) {
	// Given: a session with one tile revealed
	session := newScenarioSession(t, WithID("abc"))

	_, err := session.SelectTile(5)
	require.NoError(t, err)

	// When: the snapshot is encoded for a renderer
	data, err := json.Marshal(session.Snapshot())
	require.NoError(t, err)

	var decoded struct {
		Tiles []map[string]any `json:"tiles"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Tiles, 16)

	// Then: tiles use the flat view fields, not the board's own types
	assert.Equal(t, map[string]any{
		"index":   float64(5),
		"row":     float64(1),
		"col":     float64(1),
		"color":   "aqua",
		"face_up": true,
		"matched": false,
	}, decoded.Tiles[5])

	// Then: hidden tiles carry no color
	assert.NotContains(t, decoded.Tiles[0], "color")
}

func TestSession_Observer(t *testing.T) {
	// Given: a session with an observer
	var events []Event
	session := newScenarioSession(t, WithID("abc"), WithObserver(ObserverFunc(func(event Event) {
		events = append(events, event)
	})))

	// Then: the start is announced
	require.Len(t, events, 1)
	assert.Equal(t, EventSessionStarted, events[0].Kind)
	assert.Equal(t, "abc", events[0].SessionID)

	// When: a full attempt is played with a rejected re-selection in between
	_, err := session.SelectTile(0)
	require.NoError(t, err)
	_, err = session.SelectTile(0)
	require.NoError(t, err)
	_, err = session.SelectTile(5)
	require.NoError(t, err)
	_, err = session.Resolve()
	require.NoError(t, err)
	_, err = session.Resolve()
	require.NoError(t, err)

	// Then: only state changes are reported
	kinds := make([]EventKind, 0, len(events))
	for _, event := range events {
		kinds = append(kinds, event.Kind)
	}

	assert.Equal(t, []EventKind{EventSessionStarted, EventTileRevealed, EventTileRevealed, EventPairMatched}, kinds)
}

func TestSession_RandomPlayInvariants(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed)) //nolint: gosec // deterministic test source

		session, err := Create(DefaultSettings(), rng)
		require.NoError(t, err)

		board := session.Board()
		second := -1
		matches := 0

		for step := 0; !session.IsFinished(); step++ {
			require.Less(t, step, 100000, "seed %d did not finish", seed)

			if session.Phase() != PhaseResolving {
				index := rng.Intn(board.Len())
				phase := session.Phase()

				_, err = session.SelectTile(index)
				require.NoError(t, err)

				if phase == PhaseAwaitingSecond && session.Phase() == PhaseResolving {
					second = index
				}

				continue
			}

			first, _ := session.PendingSelection()
			mover := session.CurrentPlayer()
			pairsBefore := board.PairsRemaining()

			_, err = session.Resolve()
			require.NoError(t, err)

			a, _ := board.TileAt(first)
			b, _ := board.TileAt(second)

			// exactly one of: both matched, both face down
			bothMatched := a.Matched && b.Matched
			bothDown := !a.FaceUp && !b.FaceUp
			require.NotEqual(t, bothMatched, bothDown)
			require.NotSame(t, mover, session.CurrentPlayer())

			if bothMatched {
				matches++
				require.Equal(t, pairsBefore-1, board.PairsRemaining())
			} else {
				require.Equal(t, pairsBefore, board.PairsRemaining())
			}

			players := session.Players()
			require.Equal(t, matches, players[0].Score()+players[1].Score())

			unmatched := 0
			for _, tile := range board.Tiles() {
				if !tile.Matched {
					unmatched++
				}
			}
			require.Equal(t, unmatched/2, board.PairsRemaining())
			require.Equal(t, board.PairsRemaining() == 0, session.IsFinished())
		}

		assert.Equal(t, 8, matches)
		assert.True(t, board.IsComplete())
	}
}
