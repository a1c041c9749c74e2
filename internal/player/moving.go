package player

import (
	"log/slog"

	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/event"
	"github.com/thisdk/komari-sub001/internal/game"
)

const (
	// overridableDistance is the x distance from which a movement may be replaced by a new
	// priority action.
	overridableDistance = 12

	walkAndJumpStallTicks = 3
)

// findIntermediates asks the pather for a route and converts it to intermediates.
func findIntermediates(pather Pather, minimap *game.Minimap, from, to game.Point, exact, upJumpOnly, enableHint bool) (*Intermediates, bool) {
	if pather == nil || minimap == nil {
		return nil, false
	}
	waypoints, ok := pather.FindIntermediatePoints(minimap.Platforms, from, to, exact, upJumpOnly, enableHint)
	if !ok || len(waypoints) == 0 {
		return nil, false
	}
	return newIntermediates(waypoints, exact), true
}

// updateMoving coordinates the movement primitives. It does not move by itself, it picks the
// primitive closing the remaining distance, horizontal first, or resolves the action once the
// destination is reached.
func updateMoving(res *botCtx.Resources, p *Entity, minimap *game.Minimap, s Moving) State {
	ctx := p.Context
	if ctx.trackUnstucking() {
		gamba := ctx.trackUnstuckingTransitioned()
		return newMovementUnstucking(gamba)
	}

	pos := ctx.position()
	movement := newMovement(pos, s.Dest, s.Exact, s.Intermediates)
	intermediate := movement.isDestinationIntermediate()
	skip := autoMobCanSkipDestination(ctx, movement)
	thresholds := ctx.Config.Thresholds

	xDistance, _ := movement.xDistanceDirection(true, pos)
	yDistance, yDirection := movement.yDistanceDirection(true, pos)

	if !skip && !ctx.Config.DisableDoubleJumping && xDistance >= ctx.doubleJumpThreshold(intermediate) {
		requireStationary := ctx.hasPingPongActionOnly() &&
			ctx.lastMovement != MovementGrappling && ctx.lastMovement != MovementUpJumping
		return abortActionOnRepeat(res, p, minimap, newDoubleJumping(movement, false, requireStationary))
	}

	if !skip && ((!ctx.Config.DisableAdjusting && xDistance >= thresholds.AdjustingMedium) ||
		(s.Exact && xDistance >= thresholds.AdjustingShort)) {
		return abortActionOnRepeat(res, p, minimap, Adjusting{Movement: movement})
	}

	if !skip && yDirection > 0 && yDistance >= ctx.grapplingThreshold() && !ctx.shouldDisableGrappling() {
		return abortActionOnRepeat(res, p, minimap, Grappling{Movement: movement})
	}

	if !skip && yDirection > 0 && yDistance >= thresholds.UpJump {
		if ctx.hasAutoMobActionOnly() &&
			ctx.Config.AutoMobPlatformsPathing &&
			ctx.Config.AutoMobPlatformsPathingUpJumpOnly &&
			s.Intermediates == nil &&
			yDistance >= thresholds.Grappling {
			res.Logger.Debug("Auto mob aborted, distance is too far for up jump only")
			ctx.clearActionCompleted()
			return Idle{}
		}
		return abortActionOnRepeat(res, p, minimap, newUpJumping(res, ctx, movement))
	}

	if !skip && yDirection > 0 && yDistance >= thresholds.JumpMin && yDistance < thresholds.Jump {
		return abortActionOnRepeat(res, p, minimap, Jumping{Movement: movement})
	}

	if !skip && yDirection < 0 && yDistance >= ctx.fallingThreshold(intermediate) {
		return abortActionOnRepeat(res, p, minimap, Falling{Movement: movement, Anchor: pos})
	}

	res.Logger.Debug("Reached destination", slog.Any("destination", s.Dest), slog.Any("position", pos))
	if s.Intermediates.hasNext() {
		hint, _ := s.Intermediates.hint()
		intermediates, dest, exact, _ := s.Intermediates.next()
		ctx.clearUnstucking(false)
		ctx.clearLastMovement()

		if hint == HintWalkAndJump {
			ctx.stallingTimeoutState = Jumping{Movement: newMovement(pos, dest, exact, intermediates)}
			if dest.X-pos.X >= 0 {
				res.HID.KeyDown(game.KeyRight)
			} else {
				res.HID.KeyDown(game.KeyLeft)
			}
			return Stalling{Max: walkAndJumpStallTicks}
		}
		return Moving{Dest: dest, Exact: exact, Intermediates: intermediates}
	}

	return updateMovingFromAction(p, movement)
}

// abortActionOnRepeat returns next unless the last movement has repeated past its limit, in
// which case the action is dropped.
func abortActionOnRepeat(res *botCtx.Resources, p *Entity, minimap *game.Minimap, next State) State {
	ctx := p.Context
	if !ctx.trackLastMovementRepeated() {
		return next
	}

	action := nextAction(ctx)
	res.Logger.Info("Action aborted after repeating the same movement",
		slog.String("movement", ctx.lastMovement.String()),
		slog.Any("action", action),
	)
	if action != nil {
		res.SendEvent(event.ActionAborted(event.Text(res.Source(), ""), action.String()))
	}
	ctx.autoMobTrackIgnoreXs(minimap, true)
	ctx.clearActionCompleted()

	return Idle{}
}

// updateMovingFromAction resolves the action once its destination is reached.
func updateMovingFromAction(p *Entity, movement Movement) State {
	ctx := p.Context

	switch a := nextAction(ctx).(type) {
	case Move:
		if a.WaitAfterMoveTicks > 0 {
			return Stalling{Max: a.WaitAfterMoveTicks}
		}
		return completeAction(ctx, Idle{})
	case Key:
		if a.With == WithDoubleJump {
			if a.Direction == DirectionAny || a.Direction == ctx.lastKnownDirection {
				return newDoubleJumping(movement, true, false)
			}
		}
		return newUseKeyFromKey(a)
	case AutoMob:
		return newUseKeyFromAutoMob(a, DirectionAny, true)
	case SolveRune:
		return SolvingRune{}
	case PingPong:
		return completeAction(ctx, Idle{})
	case nil:
		return Idle{}
	default:
		panic("player: unhandled action in moving " + a.String())
	}
}

// autoMobCanSkipDestination reports whether an auto-mob intermediate destination is close
// enough to move on to the next one.
func autoMobCanSkipDestination(ctx *Context, m Movement) bool {
	if !ctx.hasAutoMobActionOnly() || !m.isDestinationIntermediate() {
		return false
	}

	pos := ctx.position()
	xDistance, _ := m.xDistanceDirection(true, pos)
	yDistance, yDirection := m.yDistanceDirection(true, pos)

	didFall := ctx.lastMovement == MovementFalling && yDirection >= 0
	didUpJump := ctx.lastMovement == MovementUpJumping && yDirection <= 0
	withinJump := yDistance < ctx.Config.Thresholds.Jump

	return xDistance < ctx.Config.Thresholds.DoubleJump && (didFall || didUpJump || withinJump)
}
