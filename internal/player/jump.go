package player

import (
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

const jumpTimeout = moveTimeout

func updateJumping(res *botCtx.Resources, p *Entity, minimap *game.Minimap, s Jumping) State {
	ctx := p.Context

	movement, lifecycle := nextMovingLifecycle(s.Movement, ctx.position(), jumpTimeout, AxisVertical)
	switch lifecycle {
	case timeout.Started:
		ctx.lastMovement = MovementJumping
		res.HID.PressKey(ctx.Config.JumpKey)
		return Jumping{Movement: movement}
	case timeout.Ended:
		res.HID.KeyUp(game.KeyLeft)
		res.HID.KeyUp(game.KeyRight)
		return movement.moving()
	}

	if _, yDirection := movement.yDistanceDirection(true, movement.Pos); !movement.Completed && yDirection <= 0 {
		movement.Completed = true
	}

	next := State(Jumping{Movement: movement})
	if mob, ok := nextAction(ctx).(AutoMob); ok {
		xDistance, xDirection := movement.xDistanceDirection(false, movement.Pos)
		yDistance, _ := movement.yDistanceDirection(false, movement.Pos)
		return updateFromAutoMobAction(res, p, minimap, next, mob, xDistance, xDirection, yDistance)
	}

	return next
}
