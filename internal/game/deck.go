// internal/game/deck.go
package game

import "github.com/ponza-art/deployed-game-backend/internal/models"

// Deck owns a room's draw pile. Draws pop from the tail; whenever the pile
// is empty at the moment a draw is requested, it is synchronously replaced
// with a fresh Fisher-Yates permutation of the ENTIRE master catalog (drawn
// cards are not tracked, so card frequency is stationary over the game).
type Deck struct {
	catalog    []models.Card
	pile       []models.Card
	rng        uint64
	reshuffles int
}

// NewDeck builds a deck over the given catalog with a seeded RNG.
// The initial pile is a full permutation of the catalog; it does not count
// as a reshuffle.
func NewDeck(catalog []models.Card, seed uint64) *Deck {
	d := &Deck{catalog: catalog, rng: seed}
	if d.rng == 0 {
		d.rng = 1 // xorshift can't start at 0
	}
	d.pile = d.permute()
	return d
}

// xorshift64, same generator the engine uses for deals.
func (d *Deck) nextRand() uint64 {
	x := d.rng
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	d.rng = x
	return x
}

// randN returns a random number in [0, n).
func (d *Deck) randN(n int) int {
	return int(d.nextRand() % uint64(n))
}

// permute returns a fresh Fisher-Yates permutation of the full catalog.
func (d *Deck) permute() []models.Card {
	pile := make([]models.Card, len(d.catalog))
	copy(pile, d.catalog)
	for i := len(pile) - 1; i > 0; i-- {
		j := d.randN(i + 1)
		pile[i], pile[j] = pile[j], pile[i]
	}
	return pile
}

// Reshuffle replaces the pile with a full permutation of the master catalog.
func (d *Deck) Reshuffle() {
	d.pile = d.permute()
	d.reshuffles++
}

// Draw removes and returns one card from the tail of the pile, reshuffling
// first if the pile is empty.
func (d *Deck) Draw() models.Card {
	if len(d.pile) == 0 {
		d.Reshuffle()
	}
	card := d.pile[len(d.pile)-1]
	d.pile = d.pile[:len(d.pile)-1]
	return card
}

// DrawN draws n cards, reshuffling as needed mid-draw.
func (d *Deck) DrawN(n int) []models.Card {
	cards := make([]models.Card, n)
	for i := 0; i < n; i++ {
		cards[i] = d.Draw()
	}
	return cards
}

// Remaining returns the number of cards left in the pile.
func (d *Deck) Remaining() int { return len(d.pile) }

// Reshuffles returns how many times the pile has been refilled after the
// initial permutation.
func (d *Deck) Reshuffles() int { return d.reshuffles }

// shuffleInts permutes a marker sequence in place with the deck's RNG.
// Used by the Shuffle Board effect so card and board randomness share one
// seedable stream.
func (d *Deck) shuffleInts(s []int) {
	for i := len(s) - 1; i > 0; i-- {
		j := d.randN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
