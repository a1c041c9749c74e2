package player

import (
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

const (
	fallTimeout = moveTimeout
	// fallTeleportThreshold is the y distance from which a teleport is used to fall faster.
	fallTeleportThreshold = 15
)

func updateFalling(res *botCtx.Resources, p *Entity, minimap *game.Minimap, s Falling) State {
	ctx := p.Context
	cfg := ctx.Config

	movement, lifecycle := nextMovingLifecycle(s.Movement, ctx.position(), fallTimeout, AxisVertical)
	switch lifecycle {
	case timeout.Started:
		ctx.lastMovement = MovementFalling
		yDistance, _ := movement.yDistanceDirection(true, movement.Pos)
		res.HID.KeyDown(game.KeyDown)
		if cfg.hasTeleportKey() && !cfg.DisableTeleportOnFall && yDistance >= fallTeleportThreshold {
			res.HID.PressKey(cfg.TeleportKey)
		} else {
			res.HID.PressKey(cfg.JumpKey)
		}
		s.Movement = movement
		return s
	case timeout.Ended:
		res.HID.KeyUp(game.KeyDown)
		return movement.moving()
	}

	if !movement.Completed && movement.Pos.Y < s.Anchor.Y {
		res.HID.KeyUp(game.KeyDown)
		movement.Completed = true
		if s.TimeoutOnComplete {
			movement = movement.withTimeoutCurrent(fallTimeout)
		}
	}

	s.Movement = movement
	if mob, ok := nextAction(ctx).(AutoMob); ok {
		xDistance, xDirection := movement.xDistanceDirection(false, movement.Pos)
		yDistance, _ := movement.yDistanceDirection(false, movement.Pos)
		return updateFromAutoMobAction(res, p, minimap, s, mob, xDistance, xDirection, yDistance)
	}

	return s
}
