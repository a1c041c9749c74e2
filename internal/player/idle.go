package player

import (
	"log/slog"

	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
)

// updateIdle releases the arrows and enters the state serving the next action, if any.
func updateIdle(res *botCtx.Resources, p *Entity, minimap *game.Minimap) State {
	ctx := p.Context
	ctx.LastDestinations = nil
	ctx.lastMovement = MovementNone
	ctx.stallingTimeoutState = nil
	res.HID.ReleaseArrows()

	switch a := nextAction(ctx).(type) {
	case AutoMob:
		dest := a.Position.Point()
		ctx.autoMobClearPathingTask()
		if ctx.Config.AutoMobPlatformsPathing {
			intermediates, ok := findIntermediates(p.Pather, minimap, ctx.position(), dest,
				a.Position.AllowAdjusting, ctx.Config.AutoMobPlatformsPathingUpJumpOnly, false)
			if ok {
				return movingThrough(ctx, intermediates)
			}
		}
		ctx.LastDestinations = []game.Point{dest}
		return Moving{Dest: dest, Exact: a.Position.AllowAdjusting}
	case Move:
		return movingTo(res, a.Position)
	case Key:
		if a.Position != nil {
			return movingTo(res, *a.Position)
		}
		if a.With == WithDoubleJump && ensureDirection(ctx, a.Direction) {
			pos := ctx.position()
			return newDoubleJumping(newMovement(pos, pos, false, nil), true, true)
		}
		return newUseKeyFromKey(a)
	case SolveRune:
		return idleToRune(p, minimap)
	case PingPong:
		return updateFromPingPongAction(res, p, minimap, a, ctx.position())
	case FamiliarsSwap:
		return newFamiliarsSwapping(a)
	case Panic:
		return newPanicking(a.To)
	case Chat:
		return newChatting(a.Content)
	case UseBooster:
		return newUsingBooster(a.Kind)
	case ExchangeBooster:
		return newExchangingBooster(a.Amount, a.All)
	case Unstuck:
		return newEscUnstucking()
	case SolveShape:
		return SolvingShape{}
	}

	return Idle{}
}

func movingTo(res *botCtx.Resources, position Position) State {
	dest := game.Point{X: randomDestinationX(res, position), Y: position.Y}
	res.Logger.Debug("Moving to destination", slog.Int("x", dest.X), slog.Int("y", dest.Y))
	return Moving{Dest: dest, Exact: position.AllowAdjusting}
}

func movingThrough(ctx *Context, intermediates *Intermediates) State {
	ctx.LastDestinations = intermediates.Points()
	advanced, point, exact, _ := intermediates.next()
	return Moving{Dest: point, Exact: exact, Intermediates: advanced}
}

// idleToRune walks to the visible rune. With platform pathing the player first waits to be
// stationary so the route starts from a settled position.
func idleToRune(p *Entity, minimap *game.Minimap) State {
	ctx := p.Context
	if minimap == nil || minimap.Rune == nil {
		return completeAction(ctx, Idle{})
	}

	rune := *minimap.Rune
	ctx.LastDestinations = []game.Point{rune}
	if !ctx.Config.RunePlatformsPathing {
		return Moving{Dest: rune}
	}
	if !ctx.isStationary {
		return Idle{}
	}

	intermediates, ok := findIntermediates(p.Pather, minimap, ctx.position(), rune, true,
		ctx.Config.RunePlatformsPathingUpJumpOnly, true)
	if !ok {
		return Moving{Dest: rune}
	}
	return movingThrough(ctx, intermediates)
}

// randomDestinationX picks x uniformly in [x-range, x+range], clamped at zero.
func randomDestinationX(res *botCtx.Resources, position Position) int {
	low := max(position.X-position.XRandomRange, 0)
	high := position.X + position.XRandomRange + 1
	return res.RandomRange(low, high)
}
