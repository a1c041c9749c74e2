package player

import (
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

const (
	boosterUsingTimeout      = 60
	boosterPressKeyAt        = 30
	boosterConfirmingTimeout = 30
	boosterConfirmLeftAt     = 15
	boosterCompletingTimeout = 20
)

type boosterStage int

const (
	boosterUsing boosterStage = iota
	boosterConfirming
	boosterCompleting
)

// UsingBooster presses the booster key and confirms the popup asking whether to use it.
type UsingBooster struct {
	kind       Booster
	stage      boosterStage
	timeout    timeout.Timeout
	completing completing
}

func newUsingBooster(kind Booster) UsingBooster {
	return UsingBooster{kind: kind}
}

func updateUsingBooster(res *botCtx.Resources, p *Entity, s UsingBooster) State {
	ctx := p.Context
	key := ctx.Config.GenericBoosterKey
	if s.kind == BoosterHexa {
		key = ctx.Config.HexaBoosterKey
	}

	switch s.stage {
	case boosterUsing:
		s = s.updateUsing(res, key)
	case boosterConfirming:
		s = s.updateConfirming(res)
	case boosterCompleting:
		s.completing = s.completing.update(res, boosterCompletingTimeout)
	}

	done := s.completing.done
	if done {
		if s.completing.failed {
			ctx.trackBoosterFailCount(s.kind)
		} else {
			ctx.clearBoosterFailCount(s.kind)
		}
	}
	return finishFromAction(ctx, s, done)
}

func (s UsingBooster) updateUsing(res *botCtx.Resources, key game.KeyKind) UsingBooster {
	t, lifecycle := timeout.Next(s.timeout, boosterUsingTimeout)
	switch lifecycle {
	case timeout.Updated:
		if t.Current == boosterPressKeyAt {
			res.HID.PressKey(key)
		}
	case timeout.Ended:
		// The confirmation popup is the admin dialog.
		if res.Detector.DetectAdminVisible() {
			s.stage = boosterConfirming
			s.timeout = timeout.Timeout{}
			return s
		}
		s.stage = boosterCompleting
		s.completing = completing{failed: true}
		return s
	}

	s.timeout = t
	return s
}

func (s UsingBooster) updateConfirming(res *botCtx.Resources) UsingBooster {
	t, lifecycle := timeout.Next(s.timeout, boosterConfirmingTimeout)
	switch lifecycle {
	case timeout.Started:
		res.HID.PressKey(game.KeyLeft)
	case timeout.Updated:
		if t.Current == boosterConfirmLeftAt {
			res.HID.PressKey(game.KeyLeft)
		}
	case timeout.Ended:
		res.HID.PressKey(game.KeyEnter)
		s.stage = boosterCompleting
		s.completing = completing{}
		return s
	}

	s.timeout = t
	return s
}
