package deck

import (
	"fmt"
	"math/rand"

	"github.com/rocketscienceinc/memory-backend/internal/apperror"
)

// Generate - deals two copies of the first pairCount palette entries in random order.
// The order depends only on rng, so a seeded source gives a repeatable deal.
func Generate[T comparable](pairCount int, palette []T, rng *rand.Rand) ([]T, error) {
	if pairCount <= 0 {
		return nil, fmt.Errorf("%w: pair count must be positive, got %d", apperror.ErrConfiguration, pairCount)
	}

	if pairCount > len(palette) {
		return nil, fmt.Errorf("%w: %d pairs requested from a palette of %d", apperror.ErrConfiguration, pairCount, len(palette))
	}

	if rng == nil {
		return nil, fmt.Errorf("%w: random source is required", apperror.ErrConfiguration)
	}

	used := palette[:pairCount]

	seen := make(map[T]bool, pairCount)
	for _, value := range used {
		if seen[value] {
			return nil, fmt.Errorf("%w: palette entry %v is repeated", apperror.ErrConfiguration, value)
		}
		seen[value] = true
	}

	cards := make([]T, 0, 2*pairCount)
	cards = append(cards, used...)
	cards = append(cards, used...)

	// rand.Shuffle is Fisher-Yates, every arrangement is equally likely
	rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })

	return cards, nil
}
