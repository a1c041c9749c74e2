package player

import (
	"github.com/thisdk/komari-sub001/internal/buff"
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/event"
	"github.com/thisdk/komari-sub001/internal/game"
)

// Entity is the player as seen by the tick loop: the active state, the persistent context and
// the optional platform pather.
type Entity struct {
	State   State
	Context *Context
	Pather  Pather
}

func NewEntity(cfg Config, pather Pather) *Entity {
	return &Entity{
		State:   Detecting{},
		Context: NewContext(cfg),
		Pather:  pather,
	}
}

// Update advances the player by one tick. A nil minimap means the minimap could not be
// detected this tick.
func Update(res *botCtx.Resources, e *Entity, minimap *game.Minimap, buffs *buff.Entities) {
	ctx := e.Context

	if ctx.runeCashShop {
		res.HID.ReleaseArrows()
		ctx.runeCashShop = false
		ctx.resetToIdleNextUpdate = false
		res.Logger.Info("Entering cash shop after failing to solve the rune too many times")
		res.SendEvent(event.CashShop(event.Text(res.Source(), "")))
		e.State = CashShopThenExit{}
		return
	}

	if !ctx.updateState(res, e.State, minimap, buffs) {
		if res.Halting {
			return
		}
		// Detection fails when the player walks into the minimap edges or another UI covers the
		// minimap. Unstucking and the cash shop keep running in both cases.
		if updateNonPositional(res, e, minimap, true) {
			return
		}

		if minimap != nil && !minimap.PartiallyOverlapping && ctx.trackDetectionFailure() {
			ctx.lastKnownDirection = DirectionAny
			e.State = newMovementUnstucking(ctx.trackUnstuckingTransitioned())
			return
		}
		e.State = Detecting{}
		return
	}

	if ctx.resetToIdleNextUpdate {
		ctx.resetToIdleNextUpdate = false
		e.State = Idle{}
	}
	if ctx.resetStallingBufferNextUpdate {
		ctx.resetStallingBufferNextUpdate = false
		ctx.clearStallingBuffer(res)
	}

	if !updateNonPositional(res, e, minimap, false) {
		updatePositional(res, e, minimap)
	}
}

// updateNonPositional updates the states that do not need the current position. It returns
// false when the state was left untouched.
func updateNonPositional(res *botCtx.Resources, e *Entity, minimap *game.Minimap, failedToDetect bool) bool {
	switch s := e.State.(type) {
	case UseKey:
		e.State = updateUseKey(res, e, minimap, s)
	case FamiliarsSwapping:
		e.State = updateFamiliarsSwapping(res, e, s)
	case Unstucking:
		e.State = updateUnstucking(res, e, minimap, s)
	case Stalling:
		if failedToDetect {
			return false
		}
		e.State = updateStalling(res, e, s)
	case SolvingRune:
		if failedToDetect {
			return false
		}
		e.State = updateSolvingRune(res, e, s)
	case SolvingShape:
		e.State = updateSolvingShape(res, e, s)
	case CashShopThenExit:
		e.State = updateCashShop(res, e, s, failedToDetect)
	case Panicking:
		e.State = updatePanicking(res, e, minimap, s)
	case Chatting:
		e.State = updateChatting(res, e, s)
	case UsingBooster:
		e.State = updateUsingBooster(res, e, s)
	case ExchangingBooster:
		e.State = updateExchangingBooster(res, e, s)
	default:
		return false
	}
	return true
}

func updatePositional(res *botCtx.Resources, e *Entity, minimap *game.Minimap) {
	switch s := e.State.(type) {
	case Detecting:
		e.State = Idle{}
	case Idle:
		e.State = updateIdle(res, e, minimap)
	case Moving:
		e.State = updateMoving(res, e, minimap, s)
	case Adjusting:
		e.State = updateAdjusting(res, e, minimap, s)
	case DoubleJumping:
		e.State = updateDoubleJumping(res, e, minimap, s)
	case Grappling:
		e.State = updateGrappling(res, e, minimap, s)
	case UpJumping:
		e.State = updateUpJumping(res, e, minimap, s)
	case Jumping:
		e.State = updateJumping(res, e, minimap, s)
	case Falling:
		e.State = updateFalling(res, e, minimap, s)
	default:
		panic("player: non-positional state reached the positional update: " + e.State.String())
	}
}
