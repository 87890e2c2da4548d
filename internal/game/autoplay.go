// internal/game/autoplay.go
package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/ponza-art/deployed-game-backend/internal/models"
)

// scheduleAutoplayLocked arms a one-shot timer that plays a turn on behalf
// of an automated player after a short think delay. The callback re-checks
// the turn generation under the lock, so a reconnect or a manual play that
// lands first wins the race and the stale callback does nothing.
// Assumes lock is held by caller.
func (r *Room) scheduleAutoplayLocked(playerID uuid.UUID) {
	turn := r.turnCounter
	time.AfterFunc(r.autoplayDelay, func() {
		r.Mu.Lock()
		defer r.Mu.Unlock()
		if r.ended || !r.started || r.turnCounter != turn || r.currentTurn != playerID {
			return
		}
		p, ok := r.players[playerID]
		if !ok || !p.IsAutomated {
			return
		}
		r.playAutomatedLocked(p)
	})
}

// playAutomatedLocked synthesizes a random legal move for an automated
// player and routes it through the exact same validation path as a human
// play. If the synthesized move is still rejected the turn is forfeited so
// the rotation never stalls on a machine-driven player.
// Assumes lock is held by caller.
func (r *Room) playAutomatedLocked(p *models.Player) {
	if len(p.Hand) == 0 {
		r.endTurnLocked()
		r.broadcastStateLocked()
		return
	}
	cardIndex := r.deck.randN(len(p.Hand))
	card := p.Hand[cardIndex]

	var targetID uuid.UUID
	if card.RequiresTarget() {
		others := make([]uuid.UUID, 0, len(r.turnOrder))
		for _, id := range r.turnOrder {
			if id == p.ID {
				continue
			}
			if _, ok := r.players[id]; ok {
				others = append(others, id)
			}
		}
		if len(others) == 0 {
			r.endTurnLocked()
			r.broadcastStateLocked()
			return
		}
		targetID = others[r.deck.randN(len(others))]
	}

	dir := models.DirectionForward
	if card.Kind == models.KindMove {
		dir = r.randomDirectionLocked()
	}

	if _, err := r.playCardLocked(p.ID, cardIndex, targetID, dir); err != nil && err != ErrTurnSkipped {
		r.log.WithError(err).WithField("player", p.ID).Debug("automated play rejected, forfeiting turn")
		r.endTurnLocked()
		r.broadcastStateLocked()
	}
}

// randomDirectionLocked picks forward or backward with equal probability.
// Assumes lock is held by caller.
func (r *Room) randomDirectionLocked() models.Direction {
	if r.deck.randN(2) == 0 {
		return models.DirectionBackward
	}
	return models.DirectionForward
}
