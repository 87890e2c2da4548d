// internal/models/models.go
package models

import "github.com/google/uuid"

// CardKind partitions the catalog into the three card families.
type CardKind string

const (
	KindMove     CardKind = "move"
	KindEvent    CardKind = "event"
	KindMindPlay CardKind = "mindplay"
)

// CardEffect identifies the concrete effect of an Event or MindPlay card.
// Move cards carry EffectNone; their behavior is fully described by Value
// plus the direction chosen at play time.
type CardEffect string

const (
	EffectNone CardEffect = ""

	// Event effects.
	EffectSwapPlaces      CardEffect = "swap_places"
	EffectShuffleBoard    CardEffect = "shuffle_board"
	EffectFreeMove        CardEffect = "free_move"
	EffectDrawForEveryone CardEffect = "draw_for_everyone"
	EffectBonusRound      CardEffect = "bonus_round"

	// MindPlay effects.
	EffectDiscardOpponentCard CardEffect = "discard_opponent_card"
	EffectSkipOpponentTurn    CardEffect = "skip_opponent_turn"
	EffectStealPoints         CardEffect = "steal_points"
	EffectStealRandomCard     CardEffect = "steal_random_card"
)

// Card is an immutable catalog value. Cards are interchangeable by value,
// not by identity: two Move-3 cards are the same card.
type Card struct {
	Kind   CardKind   `json:"kind"`
	Effect CardEffect `json:"effect,omitempty"`
	Value  int        `json:"value,omitempty"`
}

// RequiresTarget reports whether playing this card needs a distinct target
// player: Swap Places and every MindPlay card.
func (c Card) RequiresTarget() bool {
	if c.Kind == KindMindPlay {
		return true
	}
	return c.Kind == KindEvent && c.Effect == EffectSwapPlaces
}

// Direction selects which way a Move card travels along the board.
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// Player is the per-room state of one participant.
type Player struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Position     int       `json:"position"` // a board marker value, not an index
	Score        int       `json:"score"`
	Hand         []Card    `json:"hand,omitempty"`
	RoundWins    int       `json:"roundWins"`
	SkipNextTurn bool      `json:"-"`
	IsAutomated  bool      `json:"isAutomated"`
	IsHost       bool      `json:"isHost"`
	Connected    bool      `json:"connected"`
}
