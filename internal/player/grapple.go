package player

import (
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

const (
	// grapplingTimeout covers the rope lift cast before the player starts moving up.
	grapplingTimeout = moveTimeout * 3
	// grapplingStoppingTimeout is the number of ticks waited after cancelling the lift.
	grapplingStoppingTimeout  = 3
	grapplingStoppingDistance = 3
)

// Grappling uses the rope lift skill and cancels it once the destination y is reached.
type Grappling struct {
	Movement Movement
}

func updateGrappling(res *botCtx.Resources, p *Entity, minimap *game.Minimap, s Grappling) State {
	ctx := p.Context
	key := ctx.Config.GrapplingKey

	movement, lifecycle := nextMovingLifecycle(s.Movement, ctx.position(), grapplingTimeout, AxisVertical)
	switch lifecycle {
	case timeout.Started:
		ctx.lastMovement = MovementGrappling
		res.HID.PressKey(key)
		return Grappling{Movement: movement}
	case timeout.Ended:
		return movement.moving()
	}

	yDistance, yDirection := movement.yDistanceDirection(true, movement.Pos)
	if !movement.Completed && (yDirection <= 0 || yDistance <= grapplingStoppingDistance) {
		// Pressing the key again while lifting stops the lift.
		if yDirection <= 0 {
			res.HID.PressKey(key)
		}
		movement.Completed = true
		movement = movement.withTimeoutCurrent(grapplingTimeout - grapplingStoppingTimeout)
	}

	next := State(Grappling{Movement: movement})
	if mob, ok := nextAction(ctx).(AutoMob); ok {
		xDistance, xDirection := movement.xDistanceDirection(false, movement.Pos)
		yDistance, _ := movement.yDistanceDirection(false, movement.Pos)
		return updateFromAutoMobAction(res, p, minimap, next, mob, xDistance, xDirection, yDistance)
	}

	return next
}
