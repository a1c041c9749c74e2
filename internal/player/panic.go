package player

import (
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

const (
	panicStepTimeout       = 20
	panicWaitMinimapTicks  = 300
	panicCompletingTimeout = 10
	panicMaxRetry          = 3
)

type panicStage int

const (
	panicOpening panicStage = iota
	panicConfirming
	panicWaiting
	panicCompleting
)

// Panicking leaves the map, either to town with the to town key or to the next channel
// through the change channel menu. It ends once the minimap is back.
type Panicking struct {
	dest        PanicTo
	stage       panicStage
	timeout     timeout.Timeout
	retry       uint32
	minimapGone bool
	completing  completing
}

func newPanicking(to PanicTo) Panicking {
	return Panicking{dest: to}
}

func updatePanicking(res *botCtx.Resources, p *Entity, minimap *game.Minimap, s Panicking) State {
	ctx := p.Context

	switch s.stage {
	case panicOpening:
		s = s.updateOpening(res, ctx.Config)
	case panicConfirming:
		s = s.updateConfirming(res)
	case panicWaiting:
		s = s.updateWaiting(minimap)
	case panicCompleting:
		s.completing = s.completing.update(res, panicCompletingTimeout)
	}

	return finishFromAction(ctx, s, s.completing.done)
}

func (s Panicking) to(stage panicStage) Panicking {
	s.stage = stage
	s.timeout = timeout.Timeout{}
	return s
}

func (s Panicking) fail() Panicking {
	s = s.to(panicCompleting)
	s.completing = completing{failed: true}
	return s
}

func (s Panicking) updateOpening(res *botCtx.Resources, cfg Config) Panicking {
	key := cfg.ToTownKey
	if s.dest == PanicToChannel {
		key = cfg.ChangeChannelKey
	}
	if key == game.KeyNone {
		res.Logger.Info("Panicking aborted, the key is not set")
		return s.fail()
	}

	t, lifecycle := timeout.Next(s.timeout, panicStepTimeout)
	switch lifecycle {
	case timeout.Started:
		if s.retry >= panicMaxRetry {
			return s.fail()
		}
		res.HID.ReleaseAll()
		res.HID.PressKey(key)
		s.retry++
	case timeout.Ended:
		if s.dest == PanicToChannel && !res.Detector.DetectChangeChannelMenuOpened() {
			return s.to(panicOpening)
		}
		s.retry = 0
		return s.to(panicConfirming)
	}

	s.timeout = t
	return s
}

// updateConfirming picks the next channel when changing channel then confirms the popup.
func (s Panicking) updateConfirming(res *botCtx.Resources) Panicking {
	t, lifecycle := timeout.Next(s.timeout, panicStepTimeout)
	switch lifecycle {
	case timeout.Started:
		if s.dest == PanicToChannel {
			res.HID.PressKey(game.KeyRight)
			res.HID.PressKey(game.KeyEnter)
			break
		}
		if button, err := res.Detector.DetectPopupConfirmButton(); err == nil {
			res.HID.Click(button.Center())
		} else {
			res.HID.PressKey(game.KeyEnter)
		}
	case timeout.Ended:
		return s.to(panicWaiting)
	}

	s.timeout = t
	return s
}

// updateWaiting waits for the map change, seen as the minimap disappearing then coming back.
func (s Panicking) updateWaiting(minimap *game.Minimap) Panicking {
	t, lifecycle := timeout.Next(s.timeout, panicWaitMinimapTicks)
	switch lifecycle {
	case timeout.Ended:
		return s.fail()
	case timeout.Updated:
		if minimap == nil {
			s.minimapGone = true
		} else if s.minimapGone {
			return s.to(panicCompleting)
		}
	}

	s.timeout = t
	return s
}
