// internal/game/effects.go
package game

import (
	"fmt"

	"github.com/ponza-art/deployed-game-backend/internal/models"
)

// resolveCardLocked applies a card's effect to the room and returns a
// human-readable result description. Validation happens before any
// mutation, so an error leaves the room untouched. The dispatch is a
// closed set over (kind, effect); unknown pairs are logged and treated as
// a no-op, not an error, to tolerate future catalog extensions.
// Assumes lock is held by caller.
func (r *Room) resolveCardLocked(actor *models.Player, card models.Card, target *models.Player, dir models.Direction) (string, error) {
	switch card.Kind {
	case models.KindMove:
		return r.resolveMoveLocked(actor, card.Value, dir), nil

	case models.KindEvent:
		switch card.Effect {
		case models.EffectSwapPlaces:
			actor.Position, target.Position = target.Position, actor.Position
			return fmt.Sprintf("%s swapped places with %s", actor.Username, target.Username), nil

		case models.EffectShuffleBoard:
			// Positions are preserved as marker VALUES: a player on marker X
			// stays on X even though X's index in the sequence changed.
			r.deck.shuffleInts(r.board)
			return fmt.Sprintf("%s shuffled the board", actor.Username), nil

		case models.EffectFreeMove:
			moved := r.advanceLocked(actor, card.Value)
			actor.Score += card.Value
			return fmt.Sprintf("%s moved %d spaces for free", actor.Username, moved), nil

		case models.EffectDrawForEveryone:
			for _, id := range r.turnOrder {
				if p, ok := r.players[id]; ok {
					p.Hand = append(p.Hand, r.deck.Draw())
				}
			}
			return fmt.Sprintf("%s let everyone draw a card", actor.Username), nil

		case models.EffectBonusRound:
			actor.Score += r.rules.BonusPoints
			return fmt.Sprintf("%s gained %d bonus points", actor.Username, r.rules.BonusPoints), nil
		}

	case models.KindMindPlay:
		switch card.Effect {
		case models.EffectDiscardOpponentCard:
			if len(target.Hand) == 0 {
				return fmt.Sprintf("%s had no cards to discard", target.Username), nil
			}
			// Most recently drawn card goes.
			target.Hand = target.Hand[:len(target.Hand)-1]
			return fmt.Sprintf("%s made %s discard a card", actor.Username, target.Username), nil

		case models.EffectSkipOpponentTurn:
			target.SkipNextTurn = true
			return fmt.Sprintf("%s will skip %s's next turn", actor.Username, target.Username), nil

		case models.EffectStealPoints:
			if target.Score <= 0 {
				if r.rules.StrictSteal {
					return "", ErrNoPointsToSteal
				}
				return fmt.Sprintf("%s had no points to steal", target.Username), nil
			}
			amount := card.Value
			if target.Score < amount {
				amount = target.Score
			}
			target.Score -= amount
			actor.Score += amount
			return fmt.Sprintf("%s stole %d points from %s", actor.Username, amount, target.Username), nil

		case models.EffectStealRandomCard:
			if len(target.Hand) == 0 {
				return fmt.Sprintf("%s had no cards to steal", target.Username), nil
			}
			idx := r.deck.randN(len(target.Hand))
			stolen := target.Hand[idx]
			target.Hand = append(target.Hand[:idx], target.Hand[idx+1:]...)
			actor.Hand = append(actor.Hand, stolen)
			return fmt.Sprintf("%s stole a card from %s", actor.Username, target.Username), nil
		}
	}

	r.log.WithFields(map[string]interface{}{
		"kind":   card.Kind,
		"effect": card.Effect,
	}).Warn("unknown card effect, treating as no-op")
	return "nothing happened", nil
}

// resolveMoveLocked moves the actor along the board, clamped at either end,
// and awards one point per marker actually traversed.
// Assumes lock is held by caller.
func (r *Room) resolveMoveLocked(actor *models.Player, value int, dir models.Direction) string {
	var moved int
	if dir == models.DirectionBackward {
		moved = r.advanceLocked(actor, -value)
	} else {
		moved = r.advanceLocked(actor, value)
	}
	if moved < 0 {
		actor.Score += -moved
		return fmt.Sprintf("%s moved back %d spaces", actor.Username, -moved)
	}
	actor.Score += moved
	return fmt.Sprintf("%s moved forward %d spaces", actor.Username, moved)
}

// advanceLocked shifts a player delta positions along the board sequence,
// clamping at the first and last markers. Returns the signed distance
// actually moved.
// Assumes lock is held by caller.
func (r *Room) advanceLocked(p *models.Player, delta int) int {
	idx := r.markerIndexLocked(p.Position)
	next := idx + delta
	if next < 0 {
		next = 0
	}
	if next > len(r.board)-1 {
		next = len(r.board) - 1
	}
	p.Position = r.board[next]
	return next - idx
}

// markerIndexLocked returns the index of a marker value in the current
// board sequence. Every player position is always a member of the board,
// so a miss indicates a corrupted room and is pinned to the start.
// Assumes lock is held by caller.
func (r *Room) markerIndexLocked(marker int) int {
	for i, m := range r.board {
		if m == marker {
			return i
		}
	}
	r.log.WithField("marker", marker).Error("player position not on board, resetting to start")
	return 0
}
