package entity

import (
	"fmt"

	"github.com/rocketscienceinc/memory-backend/internal/apperror"
)

// Position is the grid cell a tile occupies.
type Position struct {
	Row int
	Col int
}

// Tile is a single board cell.
type Tile struct {
	ID       int
	Position Position
	Color    Color
	FaceUp   bool
	Matched  bool
}

// Board owns the tiles of one game and counts the pairs not yet found.
type Board struct {
	tiles          []Tile
	pairsRemaining int
}

// GridPositions - row-major positions of a rows x cols grid.
func GridPositions(rows, cols int) []Position {
	if rows <= 0 || cols <= 0 {
		return nil
	}

	positions := make([]Position, 0, rows*cols)
	for row := range rows {
		for col := range cols {
			positions = append(positions, Position{Row: row, Col: col})
		}
	}

	return positions
}

// NewBoard - pairs every position with the color at the same index.
func NewBoard(positions []Position, colors []Color) (*Board, error) {
	if len(positions) != len(colors) {
		return nil, fmt.Errorf("%w: %d positions for %d colors", apperror.ErrConfiguration, len(positions), len(colors))
	}

	if len(colors) == 0 || len(colors)%2 != 0 {
		return nil, fmt.Errorf("%w: board needs a positive even number of tiles, got %d", apperror.ErrConfiguration, len(colors))
	}

	counts := make(map[Color]int, len(colors)/2)
	for _, color := range colors {
		counts[color]++
	}

	for color, count := range counts {
		if count != 2 {
			return nil, fmt.Errorf("%w: color %s appears %d times", apperror.ErrConfiguration, color, count)
		}
	}

	tiles := make([]Tile, len(colors))
	for i := range colors {
		tiles[i] = Tile{
			ID:       i,
			Position: positions[i],
			Color:    colors[i],
		}
	}

	return &Board{
		tiles:          tiles,
		pairsRemaining: len(tiles) / 2,
	}, nil
}

func (that *Board) Len() int {
	return len(that.tiles)
}

func (that *Board) PairsRemaining() int {
	return that.pairsRemaining
}

func (that *Board) TileAt(index int) (Tile, error) {
	if err := that.checkIndex(index); err != nil {
		return Tile{}, err
	}

	return that.tiles[index], nil
}

// Tiles - returns a copy of the tiles in board order.
func (that *Board) Tiles() []Tile {
	tiles := make([]Tile, len(that.tiles))
	copy(tiles, that.tiles)

	return tiles
}

// Flip - turns the tile over. Whether the flip is legal is decided by the caller.
func (that *Board) Flip(index int) error {
	if err := that.checkIndex(index); err != nil {
		return err
	}

	that.tiles[index].FaceUp = !that.tiles[index].FaceUp

	return nil
}

func (that *Board) MarkMatched(i, j int) error {
	if err := that.checkIndex(i); err != nil {
		return err
	}

	if err := that.checkIndex(j); err != nil {
		return err
	}

	if i == j {
		return fmt.Errorf("%w: tile %d cannot match itself", apperror.ErrInvalidOperation, i)
	}

	if that.tiles[i].Matched || that.tiles[j].Matched {
		return fmt.Errorf("%w: tiles %d and %d include an already matched tile", apperror.ErrInvalidOperation, i, j)
	}

	that.tiles[i].Matched = true
	that.tiles[j].Matched = true
	that.pairsRemaining--

	return nil
}

func (that *Board) IsComplete() bool {
	return that.pairsRemaining == 0
}

func (that *Board) checkIndex(index int) error {
	if index < 0 || index >= len(that.tiles) {
		return fmt.Errorf("%w: index %d, board has %d tiles", apperror.ErrOutOfRange, index, len(that.tiles))
	}

	return nil
}
