package player

import (
	"log/slog"
	"slices"

	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

const (
	familiarSlots    = 3
	familiarMaxRetry = 3

	familiarOpenMenuTimeout   = 10
	familiarFreeSlotTimeout   = 10
	familiarCheckLevelTick    = 5
	familiarFindCardsTimeout  = 5
	familiarSwappingTimeout   = 10
	familiarScrollingTimeout  = 10
	familiarScrollRestTick    = 5
	familiarScrolledThreshold = 10
	familiarSavingTimeout     = 30
	familiarPressOkAt         = 15
	familiarPressEscAt        = 20
	familiarCompletingTimeout = 10
)

var familiarMouseRest = game.Point{X: 50, Y: 50}

type familiarsStage int

const (
	familiarsOpenMenu familiarsStage = iota
	familiarsFindSlots
	familiarsFreeSlots
	familiarsFreeSlot
	familiarsFindCards
	familiarsSwapping
	familiarsScrolling
	familiarsSaving
	familiarsCompleting
)

func (s familiarsStage) String() string {
	switch s {
	case familiarsOpenMenu:
		return "opening"
	case familiarsFindSlots:
		return "finding slots"
	case familiarsFreeSlots, familiarsFreeSlot:
		return "freeing slots"
	case familiarsFindCards:
		return "finding cards"
	case familiarsSwapping:
		return "swapping"
	case familiarsScrolling:
		return "scrolling"
	case familiarsSaving:
		return "saving"
	default:
		return "completing"
	}
}

// FamiliarsSwapping replaces the level 5 familiars in the swappable slots with cards of the
// allowed rarities, scrolling through the card list when needed.
type FamiliarsSwapping struct {
	stage   familiarsStage
	timeout timeout.Timeout

	swappableSlots    SwappableFamiliars
	swappableRarities []game.FamiliarRarity

	slots []game.FamiliarSlot
	cards []game.Rect

	// index is the slot being freed or the card being swapped.
	index      int
	wasFreeing bool
	retry      uint32
	scrollbar  game.Rect
	saved      bool
	failed     bool
}

func newFamiliarsSwapping(swap FamiliarsSwap) FamiliarsSwapping {
	return FamiliarsSwapping{
		swappableSlots:    swap.SwappableSlots,
		swappableRarities: swap.SwappableRarities,
	}
}

func updateFamiliarsSwapping(res *botCtx.Resources, p *Entity, s FamiliarsSwapping) State {
	ctx := p.Context
	key := ctx.Config.FamiliarKey
	if key == game.KeyNone {
		res.Logger.Info("Familiars swapping aborted, the familiar menu key is not set")
		ctx.clearActionCompleted()
		return Idle{}
	}

	done := false
	switch s.stage {
	case familiarsOpenMenu:
		s = s.updateOpenMenu(res, key)
	case familiarsFindSlots:
		s = s.updateFindSlots(res)
	case familiarsFreeSlots:
		s = s.updateFreeSlots(res)
	case familiarsFreeSlot:
		s = s.updateFreeSlot(res)
	case familiarsFindCards:
		s = s.updateFindCards(res)
	case familiarsSwapping:
		s = s.updateSwapping(res)
	case familiarsScrolling:
		s = s.updateScrolling(res)
	case familiarsSaving:
		s = s.updateSaving(res)
	case familiarsCompleting:
		s, done = s.updateCompleting(res)
	}

	if done {
		if s.saved && !s.failed {
			ctx.clearFamiliarsSwapFailCount()
		} else {
			ctx.trackFamiliarsSwapFailCount()
		}
	}
	return finishFromAction(ctx, s, done)
}

func (s FamiliarsSwapping) to(stage familiarsStage) FamiliarsSwapping {
	s.stage = stage
	s.timeout = timeout.Timeout{}
	return s
}

func (s FamiliarsSwapping) fail() FamiliarsSwapping {
	s.failed = true
	s.retry = 0
	return s.to(familiarsCompleting)
}

func (s FamiliarsSwapping) anyFreeSlot() bool {
	return slices.ContainsFunc(s.slots, func(slot game.FamiliarSlot) bool { return slot.Free })
}

func (s FamiliarsSwapping) updateOpenMenu(res *botCtx.Resources, key game.KeyKind) FamiliarsSwapping {
	t, lifecycle := timeout.Next(s.timeout, familiarOpenMenuTimeout)
	switch lifecycle {
	case timeout.Started:
		res.HID.MoveMouse(familiarMouseRest)
		if res.Detector.DetectFamiliarMenuOpened() {
			s.retry = 0
			return s.to(familiarsFindSlots)
		}
		if s.retry >= familiarMaxRetry {
			return s.fail()
		}
		res.HID.PressKey(key)
		s.retry++
	case timeout.Ended:
		return s.to(familiarsOpenMenu)
	}

	s.timeout = t
	return s
}

func (s FamiliarsSwapping) updateFindSlots(res *botCtx.Resources) FamiliarsSwapping {
	if len(s.slots) == 0 {
		slots := res.Detector.DetectFamiliarSlots()
		if len(slots) != familiarSlots {
			res.Logger.Debug("Unexpected familiar slots count", slog.Int("count", len(slots)))
			return s.fail()
		}
		s.slots = slots
	}

	s.index = familiarSlots - 1
	s.wasFreeing = false
	return s.to(familiarsFreeSlots)
}

func (s FamiliarsSwapping) canFree(index int) bool {
	switch s.swappableSlots {
	case SwappableLast:
		return index == familiarSlots-1
	case SwappableSecondAndLast:
		return index >= familiarSlots-2
	default:
		return true
	}
}

// updateFreeSlots walks the slots from the last one and frees the occupied swappable ones.
func (s FamiliarsSwapping) updateFreeSlots(res *botCtx.Resources) FamiliarsSwapping {
	slot := s.slots[s.index]
	switch {
	case slot.Free && s.index > 0:
		s.index--
		s.wasFreeing = false
		return s
	case slot.Free || !s.canFree(s.index):
		return s.findCardsOrComplete(res)
	case s.wasFreeing:
		// The slot is still occupied after freeing, the menu may have been closed.
		s.slots = nil
		s.retry = 0
		return s.to(familiarsOpenMenu)
	default:
		return s.to(familiarsFreeSlot)
	}
}

func (s FamiliarsSwapping) findCardsOrComplete(res *botCtx.Resources) FamiliarsSwapping {
	if !s.anyFreeSlot() {
		return s.fail()
	}

	// Sorting by level puts the lowest level cards first.
	if button, err := res.Detector.DetectFamiliarLevelButton(); err == nil {
		res.HID.Click(button.Center())
	} else {
		res.HID.MoveMouse(familiarMouseRest)
	}
	return s.to(familiarsFindCards)
}

func (s FamiliarsSwapping) updateFreeSlot(res *botCtx.Resources) FamiliarsSwapping {
	bbox := s.slots[s.index].BBox
	t, lifecycle := timeout.Next(s.timeout, familiarFreeSlotTimeout)
	switch lifecycle {
	case timeout.Started:
		res.HID.MoveMouse(game.Point{X: bbox.X + bbox.Width/2, Y: bbox.Y + 20})
	case timeout.Ended:
		s.wasFreeing = true
		return s.to(familiarsFreeSlots)
	case timeout.Updated:
		if t.Current != familiarCheckLevelTick {
			break
		}

		level, err := res.Detector.DetectFamiliarHoverLevel()
		switch {
		case err != nil:
			s.wasFreeing = true
			return s.to(familiarsFreeSlots)
		case level == game.FamiliarLevel5:
			// Double click frees the slot.
			res.HID.Click(bbox.Center())
			res.HID.Click(bbox.Center())
			res.HID.MoveMouse(game.Point{X: bbox.Center().X, Y: bbox.Y - 20})
		case s.index > 0:
			s.index--
			s.wasFreeing = false
			return s.to(familiarsFreeSlots)
		case s.anyFreeSlot():
			res.HID.MoveMouse(familiarMouseRest)
			return s.to(familiarsFindCards)
		default:
			return s.fail()
		}
	}

	if lifecycle == timeout.Updated && t.Current == familiarFreeSlotTimeout-1 {
		if res.Detector.DetectFamiliarSlotIsFree(bbox) {
			s.slots[s.index].Free = true
			t = t.WithCurrent(familiarFreeSlotTimeout)
		} else {
			// Freeing shifts the following familiars forward.
			for i := s.index + 1; i < familiarSlots; i++ {
				s.slots[i].Free = res.Detector.DetectFamiliarSlotIsFree(s.slots[i].BBox)
			}
			t = timeout.Timeout{}
		}
	}

	s.timeout = t
	return s
}

func (s FamiliarsSwapping) updateFindCards(res *botCtx.Resources) FamiliarsSwapping {
	t, lifecycle := timeout.Next(s.timeout, familiarFindCardsTimeout)
	if lifecycle != timeout.Ended {
		s.timeout = t
		return s
	}

	if len(s.cards) == 0 {
		for _, card := range res.Detector.DetectFamiliarCards() {
			if slices.Contains(s.swappableRarities, card.Rarity) {
				s.cards = append(s.cards, card.BBox)
			}
		}
	}
	if len(s.cards) == 0 {
		s.retry = 0
		s.scrollbar = game.Rect{}
		return s.to(familiarsScrolling)
	}

	s.index = 0
	return s.to(familiarsSwapping)
}

func (s FamiliarsSwapping) updateSwapping(res *botCtx.Resources) FamiliarsSwapping {
	card := s.cards[s.index]
	t, lifecycle := timeout.Next(s.timeout, familiarSwappingTimeout)
	switch lifecycle {
	case timeout.Started:
		res.HID.MoveMouse(card.Center())
	case timeout.Ended:
		for i := range s.slots {
			s.slots[i].Free = res.Detector.DetectFamiliarSlotIsFree(s.slots[i].BBox)
		}
		if !s.anyFreeSlot() {
			s.retry = 0
			return s.to(familiarsSaving)
		}
		if s.index+1 < len(s.cards) {
			s.index++
			return s.to(familiarsSwapping)
		}
		res.HID.MoveMouse(familiarMouseRest)
		s.retry = 0
		s.scrollbar = game.Rect{}
		return s.to(familiarsScrolling)
	case timeout.Updated:
		if t.Current != familiarCheckLevelTick {
			break
		}
		level, err := res.Detector.DetectFamiliarHoverLevel()
		switch {
		case err != nil:
			if !res.Detector.DetectFamiliarMenuOpened() {
				return s.fail()
			}
		case level == game.FamiliarLevel5:
			res.HID.MoveMouse(familiarMouseRest)
		default:
			res.HID.Click(card.Center())
			res.HID.MoveMouse(familiarMouseRest)
		}
	}

	s.timeout = t
	return s
}

func (s FamiliarsSwapping) updateScrolling(res *botCtx.Resources) FamiliarsSwapping {
	t, lifecycle := timeout.Next(s.timeout, familiarScrollingTimeout)
	switch lifecycle {
	case timeout.Started:
		scrollbar, err := res.Detector.DetectFamiliarScrollbar()
		if err != nil {
			return s.fail()
		}
		s.scrollbar = scrollbar
		center := scrollbar.Center()
		res.HID.Mouse(center.X, center.Y, game.MouseScroll)
	case timeout.Updated:
		if t.Current == familiarScrollRestTick {
			res.HID.MoveMouse(s.scrollbar.Center().Add(game.Point{X: 70}))
		}
	case timeout.Ended:
		current, err := res.Detector.DetectFamiliarScrollbar()
		if err != nil {
			return s.fail()
		}
		if abs(current.Y-s.scrollbar.Y) >= familiarScrolledThreshold {
			s.cards = nil
			return s.to(familiarsFindCards)
		}
		// Scrolling may have failed or the list has ended.
		if s.retry >= familiarMaxRetry {
			return s.fail()
		}
		s.retry++
		s.scrollbar = current
		return s.to(familiarsScrolling)
	}

	s.timeout = t
	return s
}

func (s FamiliarsSwapping) updateSaving(res *botCtx.Resources) FamiliarsSwapping {
	t, lifecycle := timeout.Next(s.timeout, familiarSavingTimeout)
	switch lifecycle {
	case timeout.Started:
		button, err := res.Detector.DetectFamiliarSaveButton()
		if err != nil {
			return s.fail()
		}
		res.HID.Click(button.Center())
	case timeout.Updated:
		switch t.Current {
		case familiarPressOkAt:
			if button, err := res.Detector.DetectPopupConfirmButton(); err == nil {
				res.HID.Click(button.Center())
			}
		case familiarPressEscAt:
			res.HID.PressKey(game.KeyEsc)
		}
	case timeout.Ended:
		if res.Detector.DetectFamiliarMenuOpened() && s.retry < familiarMaxRetry {
			s.retry++
			return s.to(familiarsSaving)
		}
		s.saved = true
		s.retry = 0
		return s.to(familiarsCompleting)
	}

	s.timeout = t
	return s
}

// updateCompleting closes the menu and waits for it to be gone. It gives up after a few
// attempts.
func (s FamiliarsSwapping) updateCompleting(res *botCtx.Resources) (FamiliarsSwapping, bool) {
	t, lifecycle := timeout.Next(s.timeout, familiarCompletingTimeout)
	switch lifecycle {
	case timeout.Started:
		if !res.Detector.DetectFamiliarMenuOpened() || s.retry >= familiarMaxRetry {
			return s, true
		}
		res.HID.PressKey(game.KeyEsc)
		s.retry++
	case timeout.Ended:
		return s.to(familiarsCompleting), false
	}

	s.timeout = t
	return s, false
}
