// internal/game/catalog.go
package game

import "github.com/ponza-art/deployed-game-backend/internal/models"

// Rules holds the configurable parameters of a room. Zero values are never
// used directly; construct with DefaultRules and override.
type Rules struct {
	BoardSize     int  `json:"boardSize"`
	HandSize      int  `json:"handSize"`
	MinPlayers    int  `json:"minPlayers"`
	MaxPlayers    int  `json:"maxPlayers"`
	RoundsPerGame int  `json:"roundsPerGame"`
	WinningPoints int  `json:"winningPoints"` // awarded to each round winner
	BonusPoints   int  `json:"bonusPoints"`   // awarded by the Bonus Round event
	TurnSeconds   int  `json:"turnSeconds"`   // 0 disables the turn timer
	RoundSeconds  int  `json:"roundSeconds"`  // 0 disables the round timer
	AutoStart     bool `json:"autoStart"`     // start as soon as MinPlayers have joined
	StrictSteal   bool `json:"strictSteal"`   // Steal Points fails when the target has no points
}

// DefaultRules returns the standard game parameters.
func DefaultRules() Rules {
	return Rules{
		BoardSize:     45,
		HandSize:      3,
		MinPlayers:    2,
		MaxPlayers:    6,
		RoundsPerGame: 3,
		WinningPoints: 20,
		BonusPoints:   10,
		TurnSeconds:   30,
		RoundSeconds:  300,
		AutoStart:     false,
		StrictSteal:   true,
	}
}

// NewBoard builds the ordered marker sequence 1..size.
func NewBoard(size int) []int {
	board := make([]int, size)
	for i := range board {
		board[i] = i + 1
	}
	return board
}

// DefaultCatalog returns the master card catalog used by every room unless a
// custom catalog is injected. Frequencies:
//   - Move 1..6, four copies each (24)
//   - Event: 3x Swap Places, 2x Shuffle Board, 3x Free Move (3),
//     2x Draw 1 for Everyone, 2x Bonus Round (12)
//   - MindPlay: 3x Discard Opponent Card, 3x Skip Opponent Turn,
//     3x Steal Points (10), 3x Steal Random Card (12)
func DefaultCatalog() []models.Card {
	catalog := make([]models.Card, 0, 48)

	for v := 1; v <= 6; v++ {
		for c := 0; c < 4; c++ {
			catalog = append(catalog, models.Card{Kind: models.KindMove, Value: v})
		}
	}

	events := []struct {
		effect models.CardEffect
		value  int
		count  int
	}{
		{models.EffectSwapPlaces, 0, 3},
		{models.EffectShuffleBoard, 0, 2},
		{models.EffectFreeMove, 3, 3},
		{models.EffectDrawForEveryone, 0, 2},
		{models.EffectBonusRound, 0, 2},
	}
	for _, e := range events {
		for c := 0; c < e.count; c++ {
			catalog = append(catalog, models.Card{Kind: models.KindEvent, Effect: e.effect, Value: e.value})
		}
	}

	mindPlays := []struct {
		effect models.CardEffect
		value  int
	}{
		{models.EffectDiscardOpponentCard, 0},
		{models.EffectSkipOpponentTurn, 0},
		{models.EffectStealPoints, 10},
		{models.EffectStealRandomCard, 0},
	}
	for _, m := range mindPlays {
		for c := 0; c < 3; c++ {
			catalog = append(catalog, models.Card{Kind: models.KindMindPlay, Effect: m.effect, Value: m.value})
		}
	}

	return catalog
}
