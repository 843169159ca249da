package concentration

type EventKind string

const (
	EventSessionStarted EventKind = "session_started"
	EventTileRevealed   EventKind = "tile_revealed"
	EventPairMatched    EventKind = "pair_matched"
	EventPairMismatched EventKind = "pair_mismatched"
	EventGameFinished   EventKind = "game_finished"
	EventSnapshot       EventKind = "snapshot"
	// EventSessionClosed is published by the host when a session is deleted. It carries only the session id.
	EventSessionClosed  EventKind = "session_closed"
)

type OutcomeKind string

const (
	OutcomeDraw   OutcomeKind = "draw"
	OutcomeWinner OutcomeKind = "winner"
)

// Outcome - result of a finished game. For a draw PlayerID is empty and Score is each player's score.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	PlayerID string      `json:"player_id,omitempty"`
	Score    int         `json:"score"`
}

// TileView is a tile as a renderer may see it. Color is empty while the tile is hidden.
type TileView struct {
	Index   int    `json:"index"`
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	Color   string `json:"color,omitempty"`
	FaceUp  bool   `json:"face_up"`
	Matched bool   `json:"matched"`
}

type PlayerView struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

// Pair describes the attempt a resolve event settled.
type Pair struct {
	First    int    `json:"first"`
	Second   int    `json:"second"`
	Matched  bool   `json:"matched"`
	PlayerID string `json:"player_id"`
}

// Event is emitted to observers after every state change.
type Event struct {
	Kind           EventKind    `json:"kind"`
	SessionID      string       `json:"session_id"`
	Phase          Phase        `json:"phase"`
	Tiles          []TileView   `json:"tiles"`
	CurrentPlayer  string       `json:"current_player"`
	Players        []PlayerView `json:"players"`
	PairsRemaining int          `json:"pairs_remaining"`
	Pair           *Pair        `json:"pair,omitempty"`
	Outcome        *Outcome     `json:"outcome,omitempty"`
}

type Observer interface {
	Notify(event Event)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(event Event)

func (that ObserverFunc) Notify(event Event) {
	that(event)
}
