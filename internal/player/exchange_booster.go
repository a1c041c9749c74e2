package player

import (
	"strconv"

	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

const (
	exchangeMenuTimeout       = 20
	exchangeTypingTimeout     = 60
	exchangeTypeInterval      = 10
	exchangeCompletingTimeout = 20
	exchangeInputOffsetX      = 30
	exchangeMaxAmount         = 20
)

type exchangeStage int

const (
	exchangeOpenHexaMenu exchangeStage = iota
	exchangeOpenConversionMenu
	exchangeOpenBoosterMenu
	exchangeExchanging
	exchangeConfirming
	exchangeCompleting
)

// ExchangingBooster converts sol erda into HEXA boosters through the HEXA quick menu, either a
// typed amount or the maximum.
type ExchangingBooster struct {
	stage      exchangeStage
	timeout    timeout.Timeout
	button     game.Rect
	completing completing

	// amountKeys clears the input box then types the amount, nil exchanges the maximum.
	amountKeys  []game.KeyKind
	amountIndex int
}

func newExchangingBooster(amount uint32, all bool) ExchangingBooster {
	s := ExchangingBooster{}
	if all {
		return s
	}

	amount = min(max(amount, 1), exchangeMaxAmount)
	s.amountKeys = []game.KeyKind{game.KeyBackspace, game.KeyBackspace}
	for _, c := range strconv.FormatUint(uint64(amount), 10) {
		s.amountKeys = append(s.amountKeys, game.DigitKey(int(c-'0')))
	}
	return s
}

func updateExchangingBooster(res *botCtx.Resources, p *Entity, s ExchangingBooster) State {
	switch s.stage {
	case exchangeOpenHexaMenu:
		s = s.updateOpenHexaMenu(res)
	case exchangeOpenConversionMenu:
		s = s.updateClickThen(res, exchangeOpenBoosterMenu, res.Detector.DetectHexaBoosterButton)
	case exchangeOpenBoosterMenu:
		s = s.updateClickThen(res, exchangeExchanging, res.Detector.DetectHexaMaxButton)
	case exchangeExchanging:
		s = s.updateExchanging(res)
	case exchangeConfirming:
		s = s.updateClickThen(res, exchangeCompleting, nil)
	case exchangeCompleting:
		s.completing = s.completing.update(res, exchangeCompletingTimeout)
	}

	return finishFromAction(p.Context, s, s.completing.done)
}

func (s ExchangingBooster) to(stage exchangeStage, button game.Rect) ExchangingBooster {
	s.stage = stage
	s.timeout = timeout.Timeout{}
	s.button = button
	return s
}

// fail skips the remaining menus, the completing stage closes what was opened.
func (s ExchangingBooster) fail() ExchangingBooster {
	s = s.to(exchangeCompleting, game.Rect{})
	s.completing = completing{failed: true}
	return s
}

func (s ExchangingBooster) updateOpenHexaMenu(res *botCtx.Resources) ExchangingBooster {
	t, lifecycle := timeout.Next(s.timeout, exchangeMenuTimeout)
	switch lifecycle {
	case timeout.Started:
		menu, err := res.Detector.DetectHexaQuickMenu()
		if err != nil {
			// Nothing was opened so there is nothing to close.
			s = s.to(exchangeCompleting, game.Rect{})
			s.completing = completing{failed: true, done: true}
			return s
		}
		res.HID.Click(menu.Center())
	case timeout.Ended:
		button, err := res.Detector.DetectHexaErdaConversionButton()
		if err != nil {
			return s.fail()
		}
		return s.to(exchangeOpenConversionMenu, button)
	}

	s.timeout = t
	return s
}

// updateClickThen clicks the current button, then once the menu had time to open detects the
// button of the next stage.
func (s ExchangingBooster) updateClickThen(res *botCtx.Resources, next exchangeStage, detect func() (game.Rect, error)) ExchangingBooster {
	t, lifecycle := timeout.Next(s.timeout, exchangeMenuTimeout)
	switch lifecycle {
	case timeout.Started:
		res.HID.Click(s.button.Center())
	case timeout.Ended:
		if detect == nil {
			return s.to(next, game.Rect{})
		}
		button, err := detect()
		if err != nil {
			return s.fail()
		}
		return s.to(next, button)
	}

	s.timeout = t
	return s
}

func (s ExchangingBooster) updateExchanging(res *botCtx.Resources) ExchangingBooster {
	max := uint32(exchangeMenuTimeout)
	if s.amountKeys != nil {
		max = exchangeTypingTimeout
	}

	t, lifecycle := timeout.Next(s.timeout, max)
	switch lifecycle {
	case timeout.Started:
		click := s.button.Center()
		if s.amountKeys == nil {
			click.X += exchangeInputOffsetX
		}
		res.HID.Click(click)
	case timeout.Updated:
		if s.amountKeys != nil && t.Current%exchangeTypeInterval == 0 && s.amountIndex < len(s.amountKeys) {
			res.HID.PressKey(s.amountKeys[s.amountIndex])
			s.amountIndex++
		}
	case timeout.Ended:
		button, err := res.Detector.DetectHexaConvertButton()
		if err != nil {
			return s.fail()
		}
		return s.to(exchangeConfirming, button)
	}

	s.timeout = t
	return s
}
