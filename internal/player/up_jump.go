package player

import (
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

const (
	upJumpTimeout = moveTimeout * 2

	upJumpSpamDelayMin = 2
	upJumpSpamDelayMax = 4
)

type upJumpKind int

const (
	// upJumpComposite is the up arrow with two jumps.
	upJumpComposite upJumpKind = iota
	upJumpSpecificKey
	upJumpFlight
	upJumpTeleport
)

// UpJumping moves up with the configured up jump flavor while holding the up arrow.
type UpJumping struct {
	Movement Movement

	kind      upJumpKind
	spamDelay uint32
}

func newUpJumping(res *botCtx.Resources, ctx *Context, m Movement) UpJumping {
	kind := upJumpComposite
	cfg := ctx.Config
	switch {
	case cfg.UpJumpKey != game.KeyNone && cfg.UpJumpIsFlight:
		kind = upJumpFlight
	case cfg.UpJumpKey != game.KeyNone:
		kind = upJumpSpecificKey
	case cfg.hasTeleportKey():
		kind = upJumpTeleport
	}

	return UpJumping{
		Movement:  m,
		kind:      kind,
		spamDelay: uint32(res.RandomRange(upJumpSpamDelayMin, upJumpSpamDelayMax+1)),
	}
}

func updateUpJumping(res *botCtx.Resources, p *Entity, minimap *game.Minimap, s UpJumping) State {
	ctx := p.Context
	cfg := ctx.Config

	movement, lifecycle := nextMovingLifecycle(s.Movement, ctx.position(), upJumpTimeout, AxisVertical)
	switch lifecycle {
	case timeout.Started:
		ctx.lastMovement = MovementUpJumping
		res.HID.KeyDown(game.KeyUp)
		switch s.kind {
		case upJumpComposite:
			res.HID.PressKey(cfg.JumpKey)
		case upJumpSpecificKey:
			if cfg.UpJumpSpecificKeyShouldJump {
				res.HID.PressKey(cfg.JumpKey)
			} else {
				res.HID.PressKey(cfg.UpJumpKey)
				movement.Completed = true
			}
		case upJumpFlight:
			res.HID.KeyDown(cfg.UpJumpKey)
		case upJumpTeleport:
			res.HID.PressKey(cfg.TeleportKey)
			movement.Completed = true
		}
		s.Movement = movement
		return s
	case timeout.Ended:
		res.HID.KeyUp(game.KeyUp)
		if s.kind == upJumpFlight {
			res.HID.KeyUp(cfg.UpJumpKey)
		}
		return movement.moving()
	}

	yDistance, yDirection := movement.yDistanceDirection(true, movement.Pos)
	if !movement.Completed {
		switch {
		case yDirection <= 0:
			movement.Completed = true
		case s.kind == upJumpFlight:
			if yDistance < cfg.Thresholds.Jump {
				res.HID.KeyUp(cfg.UpJumpKey)
				movement.Completed = true
			}
		case movement.Timeout.Total >= s.spamDelay:
			if s.kind == upJumpSpecificKey {
				res.HID.PressKey(cfg.UpJumpKey)
			} else {
				res.HID.PressKey(cfg.JumpKey)
			}
			movement.Completed = true
		}
		if movement.Completed {
			res.HID.KeyUp(game.KeyUp)
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
