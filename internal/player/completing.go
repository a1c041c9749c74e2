package player

import (
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

// completing is the last stage of the UI sub-machines. It waits max ticks for the game to settle
// then closes the settings menu if one is left open.
type completing struct {
	timeout timeout.Timeout
	done    bool
	failed  bool
}

func (c completing) update(res *botCtx.Resources, max uint32) completing {
	t, lifecycle := timeout.Next(c.timeout, max)
	if lifecycle != timeout.Ended {
		c.timeout = t
		return c
	}

	if res.Detector.DetectEscSettings() {
		res.HID.PressKey(game.KeyEsc)
	}
	c.done = true
	return c
}

// finishFromAction returns next for a sub-machine driven by an action. The action is consumed
// once the sub-machine is done and a vanished action cancels it.
func finishFromAction(ctx *Context, next State, done bool) State {
	if nextAction(ctx) == nil {
		return Idle{}
	}
	if done {
		return completeAction(ctx, Idle{})
	}
	return next
}
