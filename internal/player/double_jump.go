package player

import (
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

const (
	doubleJumpTimeout       = moveTimeout
	doubleJumpForcedTimeout = moveTimeout + 3

	// doubleJumpCooldown avoids sending jump keys mid-air right after a double jump.
	doubleJumpCooldown = moveTimeout

	doubleJumpUseKeyYThreshold = 10

	// doubleJumpGrapplingThreshold is the x distance under which a completed double jump hands
	// off to grappling.
	doubleJumpGrapplingThreshold = 4

	// xVelocityThreshold is the x velocity from which the player is considered double jumped.
	xVelocityThreshold               = 0.9
	xNearStationaryVelocityThreshold = 0.75
	yNearStationaryVelocityThreshold = 0.4

	pingPongIgnoreRandomizeYThreshold = 9
)

// DoubleJumping keeps double jumping while the x distance is large enough. A forced double
// jump performs a single jump regardless of the distance.
type DoubleJumping struct {
	Movement Movement
	Forced   bool
	// RequireNearStationary delays the jump until the player has almost stopped.
	RequireNearStationary bool

	cooldown timeout.Timeout
}

func newDoubleJumping(m Movement, forced, requireNearStationary bool) DoubleJumping {
	return DoubleJumping{Movement: m, Forced: forced, RequireNearStationary: requireNearStationary}
}

func (d DoubleJumping) withMovement(m Movement) DoubleJumping {
	d.Movement = m
	return d
}

func (d DoubleJumping) nextCooldown() DoubleJumping {
	t, lifecycle := timeout.Next(d.cooldown, doubleJumpCooldown)
	if lifecycle == timeout.Ended {
		t = timeout.Timeout{}
	}
	d.cooldown = t
	return d
}

func updateDoubleJumping(res *botCtx.Resources, p *Entity, minimap *game.Minimap, s DoubleJumping) State {
	ctx := p.Context
	ignoreGrappling := s.Forced || ctx.shouldDisableGrappling()
	intermediate := s.Movement.isDestinationIntermediate()
	max, axis := uint32(doubleJumpTimeout), AxisBoth
	if s.Forced {
		// Only horizontal progress counts so jumping against a map edge still ends.
		max, axis = doubleJumpForcedTimeout, AxisHorizontal
	}

	movement, lifecycle := nextMovingLifecycle(s.Movement, ctx.position(), max, axis)
	switch lifecycle {
	case timeout.Started:
		if s.RequireNearStationary &&
			(ctx.velocityX > xNearStationaryVelocityThreshold || ctx.velocityY > yNearStationaryVelocityThreshold) {
			movement.Timeout = movement.Timeout.Unstarted()
			return s.withMovement(movement)
		}
		ctx.lastMovement = MovementDoubleJumping
		return s.withMovement(movement)
	case timeout.Ended:
		res.HID.KeyUp(game.KeyRight)
		res.HID.KeyUp(game.KeyLeft)
		return movement.moving()
	}

	xDistance, xDirection := movement.xDistanceDirection(true, movement.Pos)
	if !movement.Completed {
		if !s.Forced || ctx.Config.hasTeleportKey() {
			down, up, direction, ok := doubleJumpDirectionKeys(ctx, xDirection)
			if ok {
				res.HID.KeyDown(down)
				res.HID.KeyUp(up)
				ctx.lastKnownDirection = direction
			}
		}

		canContinue := !s.Forced && xDistance >= ctx.doubleJumpThreshold(intermediate)
		canPress := s.Forced && ctx.velocityX <= xVelocityThreshold
		if canContinue || canPress {
			if !s.cooldown.Started && ctx.velocityX <= xVelocityThreshold {
				res.HID.PressKey(ctx.Config.doubleJumpKey())
			} else {
				s = s.nextCooldown()
			}
		} else {
			res.HID.KeyUp(game.KeyRight)
			res.HID.KeyUp(game.KeyLeft)
			movement.Completed = true
		}
	}

	next := nextDoubleJumpingState(s, movement, max, xDistance, ignoreGrappling)
	return updateDoubleJumpingFromAction(res, p, minimap, next, movement, s.Forced)
}

func doubleJumpDirectionKeys(ctx *Context, xDirection int) (game.KeyKind, game.KeyKind, KeyDirection, bool) {
	switch {
	case xDirection > 0:
		return game.KeyRight, game.KeyLeft, DirectionRight, true
	case xDirection < 0:
		return game.KeyLeft, game.KeyRight, DirectionLeft, true
	case ctx.Config.hasTeleportKey() && ctx.Config.MageTeleportFallbackDirection:
		// Teleport needs a direction even when already at the destination.
		return mageTeleportDirection(ctx.lastKnownDirection)
	default:
		return game.KeyNone, game.KeyNone, DirectionAny, false
	}
}

func mageTeleportDirection(last KeyDirection) (game.KeyKind, game.KeyKind, KeyDirection, bool) {
	switch last {
	case DirectionRight:
		return game.KeyRight, game.KeyLeft, DirectionRight, true
	case DirectionLeft:
		return game.KeyLeft, game.KeyRight, DirectionLeft, true
	default:
		return game.KeyNone, game.KeyNone, DirectionAny, false
	}
}

func nextDoubleJumpingState(s DoubleJumping, m Movement, max uint32, xDistance int, ignoreGrappling bool) State {
	if !ignoreGrappling && m.Completed && xDistance <= doubleJumpGrapplingThreshold {
		if _, yDirection := m.yDistanceDirection(true, m.Pos); yDirection > 0 {
			grapple := m
			grapple.Completed = false
			grapple.Timeout = timeout.Timeout{}
			return Grappling{Movement: grapple}
		}
	}

	if m.Completed {
		return s.withMovement(m.withTimeoutCurrent(max))
	}
	return s.withMovement(m)
}

// updateDoubleJumpingFromAction lets auto-mob, ping pong and keys usable mid-air take over
// once the player is close enough.
func updateDoubleJumpingFromAction(res *botCtx.Resources, p *Entity, minimap *game.Minimap, next State, m Movement, forced bool) State {
	ctx := p.Context
	pos := m.Pos
	xDistance, xDirection := m.xDistanceDirection(false, pos)
	yDistance, _ := m.yDistanceDirection(false, pos)
	doubleJumped := ctx.velocityX > xVelocityThreshold

	switch a := nextAction(ctx).(type) {
	case PingPong:
		return updateDoubleJumpingFromPingPong(res, p, next, a, pos, doubleJumped)
	case AutoMob:
		return updateFromAutoMobAction(res, p, minimap, next, a, xDistance, xDirection, yDistance)
	case Key:
		if a.With != WithDoubleJump && a.With != WithAny {
			return next
		}
		if !m.Completed {
			return next
		}
		// A forced double jump is already near the destination.
		if forced || (!m.Exact && xDistance <= ctx.Config.Thresholds.DoubleJump && yDistance <= doubleJumpUseKeyYThreshold) {
			return newUseKeyFromKey(a)
		}
	}

	return next
}

// updateDoubleJumpingFromPingPong ends at the bound edge. Once airborne, it randomly goes up or
// down inside the bound or uses the ping pong key.
func updateDoubleJumpingFromPingPong(res *botCtx.Resources, p *Entity, next State, pingPong PingPong, pos game.Point, doubleJumped bool) State {
	ctx := p.Context
	if pingPongHitEdge(pingPong, pos) {
		return completeAction(ctx, Idle{})
	}
	if !doubleJumped {
		return next
	}
	if ctx.stallingBuffer != nil {
		return Idle{}
	}

	res.HID.KeyUp(game.KeyLeft)
	res.HID.KeyUp(game.KeyRight)

	bound := pingPong.Bound
	yMax := bound.Y + bound.Height
	yMid := bound.Y + bound.Height/2
	allowRandomize := abs(pos.Y-yMid) >= pingPongIgnoreRandomizeYThreshold
	shouldUpward := allowRandomize && pos.Y < yMid && res.RandomBool(0.35)
	shouldDownward := allowRandomize && pos.Y > yMid && res.RandomBool(0.25)

	if pos.Y < bound.Y || shouldUpward {
		m := newMovement(pos, game.Point{X: pos.X, Y: yMax}, false, nil)
		if ctx.Config.hasGrapplingKey() {
			return Grappling{Movement: m}
		}
		return newUpJumping(res, ctx, m)
	}
	if pos.Y > yMax || shouldDownward {
		return Falling{
			Movement:          newMovement(pos, game.Point{X: pos.X, Y: bound.Y}, false, nil),
			Anchor:            pos,
			TimeoutOnComplete: true,
		}
	}

	return newUseKeyFromPingPong(pingPong)
}
