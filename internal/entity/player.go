package entity

// Player holds a player's identity and the number of pairs they have found.
type Player struct {
	id    string
	score int
}

func NewPlayer(id string) *Player {
	return &Player{id: id}
}

func (that *Player) ID() string {
	return that.id
}

func (that *Player) Score() int {
	return that.score
}

func (that *Player) IncrementScore() {
	that.score++
}
