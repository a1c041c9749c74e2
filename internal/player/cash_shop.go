package player

import (
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

const (
	cashShopEnterTimeout = 90
	cashShopStayTicks    = 300
	cashShopExitTimeout  = 90
	cashShopStableTicks  = 30
	cashShopMaxRetry     = 3
)

type cashShopStage int

const (
	cashShopEntering cashShopStage = iota
	cashShopEntered
	cashShopExiting
	cashShopExited
	cashShopStable
)

// CashShopThenExit enters the cash shop and comes back. Changing map this way makes the game
// spawn a new rune after repeated failures to solve one.
type CashShopThenExit struct {
	stage   cashShopStage
	timeout timeout.Timeout
	retry   uint32
}

func updateCashShop(res *botCtx.Resources, p *Entity, s CashShopThenExit, failedToDetect bool) State {
	ctx := p.Context

	t, lifecycle := timeout.Next(s.timeout, s.budget())
	switch s.stage {
	case cashShopEntering:
		switch lifecycle {
		case timeout.Started:
			if s.retry >= cashShopMaxRetry {
				return Idle{}
			}
			res.HID.PressKey(ctx.Config.CashShopKey)
			s.retry++
		case timeout.Updated:
			if res.Detector.DetectPlayerInCashShop() {
				return s.to(cashShopEntered)
			}
		case timeout.Ended:
			return s.to(cashShopEntering)
		}
	case cashShopEntered:
		if lifecycle == timeout.Ended {
			s.retry = 0
			return s.to(cashShopExiting)
		}
	case cashShopExiting:
		switch lifecycle {
		case timeout.Started:
			res.HID.PressKey(game.KeyEsc)
			res.HID.PressKey(game.KeyEnter)
		case timeout.Updated:
			if !res.Detector.DetectPlayerInCashShop() {
				return s.to(cashShopExited)
			}
		case timeout.Ended:
			return s.to(cashShopExiting)
		}
	case cashShopExited:
		// Back in game once the player shows up on the minimap again.
		if !failedToDetect {
			return s.to(cashShopStable)
		}
		if lifecycle == timeout.Ended {
			return s.to(cashShopExiting)
		}
	case cashShopStable:
		if failedToDetect {
			return s.to(cashShopExited)
		}
		if lifecycle == timeout.Ended {
			return Idle{}
		}
	}

	s.timeout = t
	return s
}

func (s CashShopThenExit) budget() uint32 {
	switch s.stage {
	case cashShopEntering:
		return cashShopEnterTimeout
	case cashShopEntered:
		return cashShopStayTicks
	case cashShopStable:
		return cashShopStableTicks
	default:
		return cashShopExitTimeout
	}
}

func (s CashShopThenExit) to(stage cashShopStage) CashShopThenExit {
	s.stage = stage
	s.timeout = timeout.Timeout{}
	return s
}
