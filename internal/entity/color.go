package entity

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/memory-backend/internal/apperror"
)

// Color identifies the hidden face of a tile.
type Color int

const (
	Aqua Color = iota
	Lime
	Teal
	Blue
	Navy
	Yellow
	Orange
	Silver
)

var colorNames = map[Color]string{
	Aqua:   "aqua",
	Lime:   "lime",
	Teal:   "teal",
	Blue:   "blue",
	Navy:   "navy",
	Yellow: "yellow",
	Orange: "orange",
	Silver: "silver",
}

func (that Color) String() string {
	if name, ok := colorNames[that]; ok {
		return name
	}

	return fmt.Sprintf("color(%d)", int(that))
}

// DefaultPalette - the eight colors of the standard 4x4 board, in deal order.
func DefaultPalette() []Color {
	return []Color{Aqua, Lime, Teal, Blue, Navy, Yellow, Orange, Silver}
}

func ParseColor(name string) (Color, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for color, colorName := range colorNames {
		if colorName == name {
			return color, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown color %q", apperror.ErrConfiguration, name)
}

// ParsePalette - converts color names to a palette, rejecting unknown and repeated names.
func ParsePalette(names []string) ([]Color, error) {
	palette := make([]Color, 0, len(names))
	seen := make(map[Color]bool, len(names))

	for _, name := range names {
		color, err := ParseColor(name)
		if err != nil {
			return nil, err
		}

		if seen[color] {
			return nil, fmt.Errorf("%w: color %q listed twice", apperror.ErrConfiguration, color)
		}
		seen[color] = true

		palette = append(palette, color)
	}

	return palette, nil
}
