package player

import (
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

const (
	changeDirectionTimeout = 3
	linkAlongPressTick     = 2
	linkAlongTimeout       = 4
)

type useKeyStage int

const (
	useKeyPrecondition useKeyStage = iota
	useKeyChangingDirection
	useKeyEnsuringUseWith
	useKeyUsing
	useKeyHolding
	useKeyPostcondition
)

type useKeyPending int

const (
	pendingNone useKeyPending = iota
	pendingWaitBefore
	pendingWaitAfter
	pendingDoubleJump
)

// UseKey uses a key count times. Each use turns to the requested direction, waits for the
// requested movement condition and optionally stalls before and after.
type UseKey struct {
	key          game.KeyKind
	linkKey      LinkKey
	count        uint32
	currentCount uint32
	direction    KeyDirection
	with         KeyWith

	keyHoldTicks    uint32
	keyHoldBuffered bool

	waitBefore       uint32
	waitBeforeRandom uint32
	waitAfter        uint32
	waitAfterRandom  uint32

	fromAutoMob      bool
	autoMobTerminate bool

	stage     useKeyStage
	timeout   timeout.Timeout
	completed bool
	pending   useKeyPending
}

func newUseKeyFromKey(k Key) UseKey {
	return UseKey{
		key:              k.Key,
		linkKey:          k.LinkKey,
		count:            max(k.Count, 1),
		direction:        k.Direction,
		with:             k.With,
		keyHoldTicks:     k.KeyHoldTicks,
		keyHoldBuffered:  k.KeyHoldBufferedToWaitAfter,
		waitBefore:       k.WaitBeforeUseTicks,
		waitBeforeRandom: k.WaitBeforeUseTicksRandom,
		waitAfter:        k.WaitAfterUseTicks,
		waitAfterRandom:  k.WaitAfterUseTicksRandom,
	}
}

func newUseKeyFromAutoMob(mob AutoMob, direction KeyDirection, terminate bool) UseKey {
	return UseKey{
		key:              mob.Key,
		linkKey:          mob.LinkKey,
		count:            max(mob.Count, 1),
		direction:        direction,
		with:             mob.With,
		keyHoldTicks:     mob.KeyHoldTicks,
		waitBefore:       mob.WaitBeforeTicks,
		waitBeforeRandom: mob.WaitBeforeRandom,
		waitAfter:        mob.WaitAfterTicks,
		waitAfterRandom:  mob.WaitAfterRandom,
		fromAutoMob:      true,
		autoMobTerminate: terminate,
	}
}

func newUseKeyFromPingPong(pingPong PingPong) UseKey {
	direction := DirectionRight
	if pingPong.Direction == PingPongLeft {
		direction = DirectionLeft
	}

	return UseKey{
		key:              pingPong.Key,
		linkKey:          pingPong.LinkKey,
		count:            max(pingPong.Count, 1),
		direction:        direction,
		with:             pingPong.With,
		keyHoldTicks:     pingPong.KeyHoldTicks,
		waitBefore:       pingPong.WaitBeforeTicks,
		waitBeforeRandom: pingPong.WaitBeforeRandom,
		waitAfter:        pingPong.WaitAfterTicks,
		waitAfterRandom:  pingPong.WaitAfterRandom,
	}
}

func (u UseKey) to(stage useKeyStage) UseKey {
	u.stage = stage
	u.timeout = timeout.Timeout{}
	u.completed = false
	return u
}

func updateUseKey(res *botCtx.Resources, p *Entity, minimap *game.Minimap, s UseKey) State {
	ctx := p.Context

	switch s.stage {
	case useKeyPrecondition:
		var waitBefore uint32
		s, waitBefore = s.updatePrecondition(res, ctx)
		if s.pending == pendingWaitBefore {
			s.pending = pendingNone
			ctx.stallingTimeoutState = s.to(useKeyUsing)
			return Stalling{Max: waitBefore}
		}
	case useKeyChangingDirection:
		s = s.updateChangingDirection(res, ctx)
	case useKeyEnsuringUseWith:
		s = s.updateEnsuringUseWith(ctx)
		if s.pending == pendingDoubleJump {
			pos := ctx.position()
			return newDoubleJumping(newMovement(pos, pos, false, nil), true, true)
		}
	case useKeyUsing, useKeyHolding:
		var waitAfter uint32
		if s.stage == useKeyUsing {
			s, waitAfter = s.updateUsing(res, ctx)
		} else {
			s, waitAfter = s.updateHolding(res)
		}
		if s.pending == pendingWaitAfter {
			s.pending = pendingNone
			ctx.stallingTimeoutState = s.to(useKeyPostcondition)
			return Stalling{Max: waitAfter}
		}
	case useKeyPostcondition:
		s.currentCount++
		if s.currentCount < s.count {
			s = s.to(useKeyPrecondition)
		}
	}

	terminal := s.currentCount >= s.count
	next := State(s)
	if terminal {
		next = Idle{}
	}

	switch a := nextAction(ctx).(type) {
	case AutoMob:
		if !terminal || !s.autoMobTerminate {
			return next
		}
		ctx.autoMobTrackIgnoreXs(minimap, false)
		if ctx.autoMobReachableYRequireUpdate(a.Position.Y) {
			return Stalling{Max: moveTimeout}
		}
		return completeAction(ctx, next)
	case PingPong:
		if !terminal {
			return next
		}
		ctx.clearUnstucking(true)
		return updateFromPingPongAction(res, p, minimap, a, ctx.position())
	case Move, Key:
		return completeActionIf(ctx, next, terminal)
	default:
		return next
	}
}

func (u UseKey) updatePrecondition(res *botCtx.Resources, ctx *Context) (UseKey, uint32) {
	if !ensureDirection(ctx, u.direction) {
		return u.to(useKeyChangingDirection), 0
	}
	if !ensureUseWith(ctx, u.with) {
		return u.to(useKeyEnsuringUseWith), 0
	}

	wait := randomWaitTicks(res, u.waitBefore, u.waitBeforeRandom)
	if wait == 0 {
		return u.to(useKeyUsing), 0
	}
	u.pending = pendingWaitBefore
	return u, wait
}

func ensureDirection(ctx *Context, direction KeyDirection) bool {
	return direction == DirectionAny || direction == ctx.lastKnownDirection
}

func ensureUseWith(ctx *Context, with KeyWith) bool {
	switch with {
	case WithStationary:
		return ctx.isStationary
	case WithDoubleJump:
		return ctx.lastMovement == MovementDoubleJumping
	default:
		return true
	}
}

func (u UseKey) updateChangingDirection(res *botCtx.Resources, ctx *Context) UseKey {
	key := game.KeyRight
	if u.direction == DirectionLeft {
		key = game.KeyLeft
	}

	t, lifecycle := timeout.Next(u.timeout, changeDirectionTimeout)
	switch lifecycle {
	case timeout.Started:
		// Wait for a held arrow to be released before tapping it.
		if !res.HID.IsKeyCleared(key) {
			u.timeout = t.Unstarted()
			return u
		}
		res.HID.PressKey(key)
		u.timeout = t
	case timeout.Updated:
		u.timeout = t
	case timeout.Ended:
		ctx.lastKnownDirection = u.direction
		return u.to(useKeyPrecondition)
	}

	return u
}

func (u UseKey) updateEnsuringUseWith(ctx *Context) UseKey {
	switch u.with {
	case WithStationary:
		if ctx.isStationary {
			return u.to(useKeyPrecondition)
		}
	case WithDoubleJump:
		u.pending = pendingDoubleJump
	}
	return u
}

func (u UseKey) updateUsing(res *botCtx.Resources, ctx *Context) (UseKey, uint32) {
	switch u.linkKey.Kind {
	case LinkAfter:
		if !u.timeout.Started {
			u.press(res, ctx)
		}
		if !u.completed {
			return u.updateLinkKey(res, ctx), 0
		}
	case LinkAtTheSame:
		res.HID.PressKey(u.linkKey.Key)
		u.press(res, ctx)
	case LinkAlong:
		if !u.completed {
			return u.updateLinkKey(res, ctx), 0
		}
	default:
		if u.linkKey.IsSet() && !u.completed {
			return u.updateLinkKey(res, ctx), 0
		}
		u.press(res, ctx)
	}

	if u.keyHoldTicks > 0 && !u.keyHoldBuffered {
		return u.to(useKeyHolding), 0
	}
	return u.afterUse(res)
}

func (u UseKey) updateHolding(res *botCtx.Resources) (UseKey, uint32) {
	t, lifecycle := timeout.Next(u.timeout, u.keyHoldTicks)
	if lifecycle != timeout.Ended {
		u.timeout = t
		return u, 0
	}

	res.HID.KeyUp(u.key)
	return u.afterUse(res)
}

func (u UseKey) afterUse(res *botCtx.Resources) (UseKey, uint32) {
	wait := randomWaitTicks(res, u.waitAfter, u.waitAfterRandom)
	if wait == 0 {
		return u.to(useKeyPostcondition), 0
	}
	u.pending = pendingWaitAfter
	return u, wait
}

// press sends the main key. A held key is either released by the holding stage or, when
// buffered, by the stalling buffer while the next action already runs.
func (u UseKey) press(res *botCtx.Resources, ctx *Context) {
	if u.keyHoldTicks == 0 {
		res.HID.PressKey(u.key)
		return
	}

	res.HID.KeyDown(u.key)
	if u.keyHoldBuffered {
		key := u.key
		ctx.setStallingBuffer(u.keyHoldTicks, nil, func(res *botCtx.Resources) {
			res.HID.KeyUp(key)
		})
	}
}

func (u UseKey) updateLinkKey(res *botCtx.Resources, ctx *Context) UseKey {
	link := u.linkKey
	max := uint32(linkAlongTimeout)
	if link.Kind != LinkAlong {
		max = linkKeyTimeout(ctx.Config.Class)
	}

	t, lifecycle := timeout.Next(u.timeout, max)
	switch lifecycle {
	case timeout.Started:
		switch link.Kind {
		case LinkBefore:
			res.HID.PressKey(link.Key)
		case LinkAlong:
			res.HID.KeyDown(link.Key)
		}
		u.timeout = t
	case timeout.Updated:
		u.timeout = t
		if link.Kind == LinkAlong && t.Total == linkAlongPressTick {
			u.press(res, ctx)
		}
	case timeout.Ended:
		switch link.Kind {
		case LinkAfter:
			res.HID.PressKey(link.Key)
			if ctx.Config.Class == ClassBlaster && link.Key != ctx.Config.JumpKey {
				res.HID.PressKey(ctx.Config.JumpKey)
			}
		case LinkAlong:
			res.HID.KeyUp(link.Key)
		}
		u.completed = true
	}

	return u
}

func linkKeyTimeout(class Class) uint32 {
	switch class {
	case ClassCadena:
		return 4
	case ClassBlaster:
		return 8
	case ClassArk:
		return 10
	default:
		return 5
	}
}

// randomWaitTicks returns a wait in [base-spread, base+spread].
func randomWaitTicks(res *botCtx.Resources, base, spread uint32) uint32 {
	low := base - min(base, spread)
	high := base + spread + 1
	return uint32(res.RandomRange(int(low), int(high)))
}
