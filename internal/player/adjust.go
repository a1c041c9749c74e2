package player

import (
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

const (
	adjustingTimeout = moveTimeout
	// adjustingTapVelocityThreshold is the x velocity under which a short adjustment taps the
	// direction key again.
	adjustingTapVelocityThreshold = 0.5
)

// Adjusting walks toward the destination for short x distances. Exact movements also tap the
// direction key to close the last few pixels.
type Adjusting struct {
	Movement Movement
}

func updateAdjusting(res *botCtx.Resources, p *Entity, minimap *game.Minimap, s Adjusting) State {
	ctx := p.Context
	thresholds := ctx.Config.Thresholds

	movement, lifecycle := nextMovingLifecycle(s.Movement, ctx.position(), adjustingTimeout, AxisHorizontal)
	switch lifecycle {
	case timeout.Started:
		ctx.lastMovement = MovementAdjusting
		return Adjusting{Movement: movement}
	case timeout.Ended:
		res.HID.KeyUp(game.KeyLeft)
		res.HID.KeyUp(game.KeyRight)
		return movement.moving()
	}

	xDistance, xDirection := movement.xDistanceDirection(true, movement.Pos)
	if !movement.Completed {
		key, opposite := game.KeyRight, game.KeyLeft
		if xDirection < 0 {
			key, opposite = game.KeyLeft, game.KeyRight
		}

		switch {
		case xDistance >= thresholds.AdjustingMedium:
			res.HID.KeyUp(opposite)
			res.HID.KeyDown(key)
			ctx.lastKnownDirection = directionFromSign(xDirection)
		case movement.Exact && xDistance >= thresholds.AdjustingShort:
			res.HID.KeyUp(game.KeyLeft)
			res.HID.KeyUp(game.KeyRight)
			if ctx.velocityX <= adjustingTapVelocityThreshold {
				res.HID.PressKey(key)
			}
			ctx.lastKnownDirection = directionFromSign(xDirection)
		default:
			res.HID.KeyUp(game.KeyLeft)
			res.HID.KeyUp(game.KeyRight)
			movement.Completed = true
			movement = movement.withTimeoutCurrent(adjustingTimeout)
		}
	}

	next := State(Adjusting{Movement: movement})
	return updateAdjustingFromAction(res, p, minimap, next, movement)
}

func updateAdjustingFromAction(res *botCtx.Resources, p *Entity, minimap *game.Minimap, next State, m Movement) State {
	ctx := p.Context
	pos := m.Pos
	xDistance, xDirection := m.xDistanceDirection(false, pos)
	yDistance, _ := m.yDistanceDirection(false, pos)

	switch a := nextAction(ctx).(type) {
	case AutoMob:
		return updateFromAutoMobAction(res, p, minimap, next, a, xDistance, xDirection, yDistance)
	case Key:
		if a.With != WithDoubleJump || !m.Completed || m.isDestinationIntermediate() {
			return next
		}
		if a.Direction == DirectionAny || a.Direction == ctx.lastKnownDirection {
			return newDoubleJumping(m, true, false)
		}
	}

	return next
}
