// internal/game/deck_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ponza-art/deployed-game-backend/internal/models"
)

func TestDefaultCatalogComposition(t *testing.T) {
	catalog := DefaultCatalog()
	require.Len(t, catalog, 48)

	counts := map[models.CardKind]int{}
	moveValues := map[int]int{}
	for _, c := range catalog {
		counts[c.Kind]++
		if c.Kind == models.KindMove {
			moveValues[c.Value]++
		}
	}
	assert.Equal(t, 24, counts[models.KindMove])
	assert.Equal(t, 12, counts[models.KindEvent])
	assert.Equal(t, 12, counts[models.KindMindPlay])
	for v := 1; v <= 6; v++ {
		assert.Equalf(t, 4, moveValues[v], "move value %d", v)
	}
}

func TestDeckDrawNeverFails(t *testing.T) {
	d := NewDeck(DefaultCatalog(), 42)
	for i := 0; i < 500; i++ {
		card := d.Draw()
		assert.NotEmpty(t, card.Kind)
	}
}

func TestDeckReshufflesExactlyOnceAfterExhaustion(t *testing.T) {
	catalog := DefaultCatalog()
	d := NewDeck(catalog, 7)

	// Draining the pile does not reshuffle yet.
	for i := 0; i < len(catalog); i++ {
		d.Draw()
	}
	assert.Equal(t, 0, d.Reshuffles())
	assert.Equal(t, 0, d.Remaining())

	// The next draw refills from the full catalog first.
	d.Draw()
	assert.Equal(t, 1, d.Reshuffles())
	assert.Equal(t, len(catalog)-1, d.Remaining())
}

func TestDeckReshuffleRestoresFullCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	d := NewDeck(catalog, 99)
	d.DrawN(10)
	d.Reshuffle()
	require.Equal(t, len(catalog), d.Remaining())

	// Same multiset as the catalog, independent of order.
	key := func(c models.Card) [3]interface{} { return [3]interface{}{c.Kind, c.Effect, c.Value} }
	want := map[[3]interface{}]int{}
	for _, c := range catalog {
		want[key(c)]++
	}
	got := map[[3]interface{}]int{}
	for _, c := range d.pile {
		got[key(c)]++
	}
	assert.Equal(t, want, got)
}

func TestDeckSeedDeterminism(t *testing.T) {
	a := NewDeck(DefaultCatalog(), 1234)
	b := NewDeck(DefaultCatalog(), 1234)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Draw(), b.Draw())
	}
}

func TestShuffleIntsIsPermutation(t *testing.T) {
	d := NewDeck(DefaultCatalog(), 5)
	board := NewBoard(45)
	d.shuffleInts(board)

	seen := map[int]bool{}
	for _, m := range board {
		seen[m] = true
	}
	require.Len(t, seen, 45)
	for v := 1; v <= 45; v++ {
		assert.True(t, seen[v])
	}
}
