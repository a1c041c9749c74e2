package buff

import (
	"log/slog"
	"time"

	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/task"
)

const (
	commonFailCount   = 5
	familiarFailCount = 2
	runeFailCount     = 1

	detectCooldown = 5 * time.Second
)

type State int

const (
	No State = iota
	Yes
	// Volatile means the buff was present and has since been missed by a detection or more.
	Volatile
)

func (s State) String() string {
	switch s {
	case Yes:
		return "yes"
	case Volatile:
		return "volatile"
	default:
		return "no"
	}
}

type Entity struct {
	State State

	kind         game.BuffKind
	slot         task.Slot[bool]
	failCount    uint32
	maxFailCount uint32
	enabled      bool
}

func NewEntity(kind game.BuffKind) *Entity {
	maxFail := uint32(commonFailCount)
	switch kind {
	case game.BuffRune:
		maxFail = runeFailCount
	case game.BuffFamiliar:
		maxFail = familiarFailCount
	}

	return &Entity{
		kind:         kind,
		maxFailCount: maxFail,
		enabled:      true,
	}
}

func (e *Entity) Kind() game.BuffKind {
	return e.kind
}

func (e *Entity) FailCount() uint32 {
	return e.failCount
}

func (e *Entity) SetEnabled(enabled bool) {
	e.enabled = enabled
	if !enabled {
		e.failCount = 0
		e.slot.Reset()
	}
}

// Update polls the buff detection and applies the result. Nothing is polled while the player is
// in the cash shop since the buff bar is hidden there.
func (e *Entity) Update(res *botCtx.Resources, inCashShop bool) {
	if !e.enabled {
		e.State = No
		return
	}
	if inCashShop {
		return
	}

	kind := e.kind
	detector := res.Detector
	update := task.Poll(res.Pool, &e.slot, detectCooldown, func() (bool, error) {
		return detector.DetectPlayerBuff(kind), nil
	})
	if update.Status != task.Ok {
		return
	}

	prev := e.State
	e.State, e.failCount = Step(e.State, e.failCount, e.maxFailCount, update.Value)
	if prev != e.State {
		res.Logger.Debug("Buff state changed",
			slog.String("buff", kind.String()),
			slog.String("from", prev.String()),
			slog.String("to", e.State.String()),
		)
	}
}

// Step is one detection applied to a buff. A present buff always goes to Yes. A missing buff
// goes through Volatile for maxFail consecutive misses before turning No, unless maxFail is 1.
func Step(state State, failCount, maxFail uint32, hasBuff bool) (State, uint32) {
	if state == Volatile && !hasBuff {
		failCount++
	} else {
		failCount = 0
	}

	switch {
	case hasBuff:
		return Yes, failCount
	case state == No:
		return No, failCount
	case state == Yes:
		if maxFail > 1 {
			return Volatile, failCount
		}
		return No, failCount
	default:
		if failCount >= maxFail {
			return No, failCount
		}
		return Volatile, failCount
	}
}

type Entities [game.BuffKindCount]*Entity

func NewEntities() Entities {
	var entities Entities
	for i := range entities {
		entities[i] = NewEntity(game.BuffKind(i))
	}
	return entities
}

// StateOf returns the state of kind, No if the entity is missing.
func (es *Entities) StateOf(kind game.BuffKind) State {
	if es == nil || kind < 0 || kind >= game.BuffKindCount || es[kind] == nil {
		return No
	}
	return es[kind].State
}

func (es *Entities) Update(res *botCtx.Resources, inCashShop bool) {
	for _, e := range es {
		if e != nil {
			e.Update(res, inCashShop)
		}
	}
}
