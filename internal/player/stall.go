package player

import (
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

// updateStalling waits Max ticks. It then resumes the state stored by whoever stalled or
// completes the action that was waiting after its movement.
func updateStalling(res *botCtx.Resources, p *Entity, s Stalling) State {
	ctx := p.Context

	t, lifecycle := timeout.Next(s.Timeout, s.Max)
	if lifecycle != timeout.Ended {
		return Stalling{Timeout: t, Max: s.Max}
	}

	if next := ctx.stallingTimeoutState; next != nil {
		ctx.stallingTimeoutState = nil
		return next
	}

	switch a := nextAction(ctx).(type) {
	case Move:
		return completeAction(ctx, Idle{})
	case AutoMob:
		ctx.autoMobTrackReachableY(a.Position.Y)
		return completeAction(ctx, Idle{})
	}

	res.HID.ReleaseArrows()
	return Idle{}
}
