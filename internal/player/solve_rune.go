package player

import (
	"log/slog"

	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

const (
	runePreconditionTimeout = 15
	runeCalibratingTimeout  = 125
	runeDetectInterval      = 30
	runeSolvingTimeout      = 150
	runePressKeyInterval    = 8
)

type runeStage int

const (
	runePrecondition runeStage = iota
	runeCalibrating
	runeSolving
	runePressKeys
	runeCompleted
)

// SolvingRune interacts with the rune and types the four arrows it shows. Spinning arrows are
// calibrated across detections before the final keys are known. The zero value starts from the
// precondition.
type SolvingRune struct {
	stage       runeStage
	timeout     timeout.Timeout
	calibrating game.ArrowsCalibrating
	keys        [4]game.KeyKind
	keyIndex    int
}

func updateSolvingRune(res *botCtx.Resources, p *Entity, s SolvingRune) State {
	ctx := p.Context

	switch s.stage {
	case runePrecondition:
		s = s.updatePrecondition(res, ctx)
	case runeCalibrating:
		s = s.updateCalibrating(res, ctx.Config.InteractKey)
	case runeSolving:
		s = s.updateSolving(res)
	case runePressKeys:
		s = s.updatePressKeys(res)
	}

	if _, ok := nextAction(ctx).(SolveRune); !ok {
		return Idle{}
	}
	if s.stage != runeCompleted {
		return s
	}

	ctx.startValidatingRune()
	return completeAction(ctx, Idle{})
}

func (s SolvingRune) to(stage runeStage) SolvingRune {
	s.stage = stage
	s.timeout = timeout.Timeout{}
	return s
}

// updatePrecondition waits for the player to settle with no key held.
func (s SolvingRune) updatePrecondition(res *botCtx.Resources, ctx *Context) SolvingRune {
	t, lifecycle := timeout.Next(s.timeout, runePreconditionTimeout)
	if lifecycle != timeout.Ended {
		s.timeout = t
		return s
	}
	if !ctx.isStationary || !res.HID.AllKeysCleared() {
		return s
	}

	s.calibrating = game.ArrowsCalibrating{}
	return s.to(runeCalibrating)
}

func (s SolvingRune) updateCalibrating(res *botCtx.Resources, interactKey game.KeyKind) SolvingRune {
	t, lifecycle := timeout.Next(s.timeout, runeCalibratingTimeout)
	switch lifecycle {
	case timeout.Started:
		res.HID.PressKey(interactKey)
	case timeout.Ended:
		return s.to(runeCompleted)
	case timeout.Updated:
		if t.Current%runeDetectInterval != 0 {
			break
		}
		arrows, err := res.Detector.DetectRuneArrows(s.calibrating)
		if err != nil {
			s.calibrating = game.ArrowsCalibrating{}
			break
		}
		if arrows.Complete {
			s.keys = arrows.Keys
			s.keyIndex = 0
			return s.to(runePressKeys)
		}
		s.calibrating = arrows.Calibrating
		return s.to(runeSolving)
	}

	s.timeout = t
	return s
}

func (s SolvingRune) updateSolving(res *botCtx.Resources) SolvingRune {
	t, lifecycle := timeout.Next(s.timeout, runeSolvingTimeout)
	switch lifecycle {
	case timeout.Ended:
		return s.to(runeCompleted)
	case timeout.Updated:
		arrows, err := res.Detector.DetectRuneArrows(s.calibrating)
		if err != nil {
			res.Logger.Debug("Rune arrows detection failed", slog.Any("error", err))
			return s.to(runeCompleted)
		}
		if arrows.Complete {
			res.Logger.Debug("Rune arrows solved", slog.Any("keys", arrows.Keys))
			s.keys = arrows.Keys
			s.keyIndex = 0
			return s.to(runePressKeys)
		}
		s.calibrating = arrows.Calibrating
	}

	s.timeout = t
	return s
}

func (s SolvingRune) updatePressKeys(res *botCtx.Resources) SolvingRune {
	t, lifecycle := timeout.Next(s.timeout, runePressKeyInterval)
	switch lifecycle {
	case timeout.Started:
		res.HID.PressKey(s.keys[s.keyIndex])
	case timeout.Ended:
		if s.keyIndex+1 < len(s.keys) {
			s.keyIndex++
			return s.to(runePressKeys)
		}
		return s.to(runeCompleted)
	}

	s.timeout = t
	return s
}
