package player

import (
	"log/slog"

	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/event"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

const (
	unstuckTimeout    = moveTimeout * 3
	unstuckEscTimeout = 8
	// unstuckJumpTopMargin is the distance to the minimap top under which no jump is sent, a
	// jump there tends to get the player stuck in the minimap edge again.
	unstuckJumpTopMargin = 18
	unstuckGambaJumpRate = 0.2
)

// Unstucking recovers a player that cannot make progress. The esc variant only closes whatever
// menu may be opened, the movement variant also walks away from the nearest minimap edge.
type Unstucking struct {
	Timeout timeout.Timeout
	Gamba   bool

	escOnly   bool
	direction game.KeyKind
}

func newMovementUnstucking(gamba bool) Unstucking {
	return Unstucking{Gamba: gamba}
}

func newEscUnstucking() Unstucking {
	return Unstucking{escOnly: true}
}

func updateUnstucking(res *botCtx.Resources, p *Entity, minimap *game.Minimap, s Unstucking) State {
	if s.escOnly {
		return updateEscUnstucking(res, p, s)
	}

	ctx := p.Context
	if minimap == nil {
		res.HID.ReleaseArrows()
		return Detecting{}
	}

	t, lifecycle := timeout.Next(s.Timeout, unstuckTimeout)
	switch lifecycle {
	case timeout.Started:
		res.Logger.Info("Unstucking player", slog.Bool("gamba", s.Gamba), slog.Any("position", ctx.LastKnownPos))
		res.SendEvent(event.Unstucking(event.Text(res.Source(), ""), ctx.LastKnownPos, s.Gamba))
		if s.Gamba {
			ctx.replanRequested = true
		}

		res.HID.ReleaseArrows()
		if res.Detector.DetectEscSettings() {
			res.HID.PressKey(game.KeyEsc)
		}

		s.direction = unstuckDirection(res, ctx.LastKnownPos, minimap, s.Gamba)
		res.HID.KeyDown(s.direction)
		if s.Gamba || ctx.LastKnownPos == nil || ctx.LastKnownPos.Y < minimap.BBox.Height-unstuckJumpTopMargin {
			res.HID.PressKey(ctx.Config.JumpKey)
		}
		s.Timeout = t
		return s
	case timeout.Updated:
		if s.Gamba && res.RandomBool(unstuckGambaJumpRate) {
			res.HID.PressKey(gambaKey(res, ctx.Config))
		}
		s.Timeout = t
		return s
	}

	res.HID.KeyUp(s.direction)
	res.HID.ReleaseArrows()
	ctx.lastKnownDirection = DirectionAny
	return Detecting{}
}

func updateEscUnstucking(res *botCtx.Resources, p *Entity, s Unstucking) State {
	t, lifecycle := timeout.Next(s.Timeout, unstuckEscTimeout)
	switch lifecycle {
	case timeout.Started:
		res.HID.ReleaseAll()
		res.HID.PressKey(game.KeyEsc)
	case timeout.Ended:
		if res.Detector.DetectEscSettings() {
			res.HID.PressKey(game.KeyEsc)
		}
		if _, ok := nextAction(p.Context).(Unstuck); ok {
			return completeAction(p.Context, Detecting{})
		}
		return Detecting{}
	}

	s.Timeout = t
	return s
}

// unstuckDirection walks toward the minimap center, gamba mode and an unknown position pick a
// random side.
func unstuckDirection(res *botCtx.Resources, pos *game.Point, minimap *game.Minimap, gamba bool) game.KeyKind {
	if gamba || pos == nil {
		if res.RandomBool(0.5) {
			return game.KeyLeft
		}
		return game.KeyRight
	}
	if pos.X <= minimap.BBox.Width/2 {
		return game.KeyRight
	}
	return game.KeyLeft
}

func gambaKey(res *botCtx.Resources, cfg Config) game.KeyKind {
	keys := []game.KeyKind{cfg.JumpKey, game.KeyUp, game.KeyDown}
	if cfg.hasTeleportKey() {
		keys = append(keys, cfg.TeleportKey)
	}
	if cfg.UpJumpKey != game.KeyNone {
		keys = append(keys, cfg.UpJumpKey)
	}
	return keys[res.RandomRange(0, len(keys))]
}
