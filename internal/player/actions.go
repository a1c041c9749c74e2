package player

import (
	"fmt"

	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
)

const (
	// MsPerTick is the tick length at the default 30 Hz loop.
	MsPerTick = 1000 / 30

	autoMobUseKeyXThreshold = 16
	autoMobUseKeyYThreshold = 8
)

type KeyDirection int

const (
	DirectionAny KeyDirection = iota
	DirectionLeft
	DirectionRight
)

func (d KeyDirection) String() string {
	switch d {
	case DirectionLeft:
		return "left"
	case DirectionRight:
		return "right"
	default:
		return "any"
	}
}

func (d *KeyDirection) UnmarshalText(text []byte) error {
	switch string(text) {
	case "any", "":
		*d = DirectionAny
	case "left":
		*d = DirectionLeft
	case "right":
		*d = DirectionRight
	default:
		return fmt.Errorf("unknown direction %q", text)
	}
	return nil
}

// KeyWith is the movement condition a key must be used with.
type KeyWith int

const (
	WithAny KeyWith = iota
	WithStationary
	WithDoubleJump
)

type LinkKind int

const (
	LinkNone LinkKind = iota
	LinkBefore
	LinkAtTheSame
	LinkAfter
	LinkAlong
)

// LinkKey is a second key chained with the main one.
type LinkKey struct {
	Kind LinkKind
	Key  game.KeyKind
}

func (l LinkKey) IsSet() bool {
	return l.Kind != LinkNone
}

type Position struct {
	X              int
	XRandomRange   int
	Y              int
	AllowAdjusting bool
}

func (p Position) Point() game.Point {
	return game.Point{X: p.X, Y: p.Y}
}

// Action is an intent handed to the player by the rotator or the navigator. Actions are
// immutable once created.
type Action interface {
	fmt.Stringer
	action()
}

type Key struct {
	Key          game.KeyKind
	KeyHoldTicks uint32
	// KeyHoldBufferedToWaitAfter moves the key hold into the stalling buffer so the next action
	// can start while the key is still held.
	KeyHoldBufferedToWaitAfter bool
	LinkKey                    LinkKey
	Count                      uint32
	Position                   *Position
	Direction                  KeyDirection
	With                       KeyWith
	WaitBeforeUseTicks         uint32
	WaitBeforeUseTicksRandom   uint32
	WaitAfterUseTicks          uint32
	WaitAfterUseTicksRandom    uint32
}

type Move struct {
	Position           Position
	WaitAfterMoveTicks uint32
}

type AutoMob struct {
	Key              game.KeyKind
	KeyHoldTicks     uint32
	LinkKey          LinkKey
	Count            uint32
	With             KeyWith
	WaitBeforeTicks  uint32
	WaitBeforeRandom uint32
	WaitAfterTicks   uint32
	WaitAfterRandom  uint32
	Position         Position
	IsPathing        bool
}

type PingPongDirection int

const (
	PingPongLeft PingPongDirection = iota
	PingPongRight
)

type PingPong struct {
	Key              game.KeyKind
	KeyHoldTicks     uint32
	LinkKey          LinkKey
	Count            uint32
	With             KeyWith
	WaitBeforeTicks  uint32
	WaitBeforeRandom uint32
	WaitAfterTicks   uint32
	WaitAfterRandom  uint32
	// Bound is in player coordinates.
	Bound     game.Rect
	Direction PingPongDirection
}

type SolveRune struct{}

type SolveShape struct{}

type SwappableFamiliars int

const (
	SwappableAll SwappableFamiliars = iota
	SwappableLast
	SwappableSecondAndLast
)

type FamiliarsSwap struct {
	SwappableSlots    SwappableFamiliars
	SwappableRarities []game.FamiliarRarity
}

type PanicTo int

const (
	PanicToTown PanicTo = iota
	PanicToChannel
)

type Panic struct {
	To PanicTo
}

type Chat struct {
	Content string
}

type Booster int

const (
	BoosterGeneric Booster = iota
	BoosterHexa
)

type UseBooster struct {
	Kind Booster
}

type ExchangeBooster struct {
	Amount uint32
	All    bool
}

type Unstuck struct{}

func (Key) action()             {}
func (Move) action()            {}
func (AutoMob) action()         {}
func (PingPong) action()        {}
func (SolveRune) action()       {}
func (SolveShape) action()      {}
func (FamiliarsSwap) action()   {}
func (Panic) action()           {}
func (Chat) action()            {}
func (UseBooster) action()      {}
func (ExchangeBooster) action() {}
func (Unstuck) action()         {}

func (k Key) String() string           { return fmt.Sprintf("Key(%s)", k.Key) }
func (m Move) String() string          { return fmt.Sprintf("Move(%d, %d)", m.Position.X, m.Position.Y) }
func (a AutoMob) String() string       { return fmt.Sprintf("AutoMob(%d, %d)", a.Position.X, a.Position.Y) }
func (PingPong) String() string        { return "PingPong" }
func (SolveRune) String() string       { return "SolveRune" }
func (SolveShape) String() string      { return "SolveShape" }
func (FamiliarsSwap) String() string   { return "FamiliarsSwap" }
func (p Panic) String() string         { return fmt.Sprintf("Panic(%d)", p.To) }
func (Chat) String() string            { return "Chat" }
func (u UseBooster) String() string    { return fmt.Sprintf("UseBooster(%d)", u.Kind) }
func (ExchangeBooster) String() string { return "ExchangeBooster" }
func (Unstuck) String() string         { return "Unstuck" }

// nextAction resolves the action driving this tick, the priority action always wins.
func nextAction(ctx *Context) Action {
	if ctx.priorityAction != nil {
		return ctx.priorityAction
	}
	return ctx.normalAction
}

// clearsUnstuckingOnComplete reports whether completing a moves the player to a known point, in
// which case the unstuck counter is reset.
func clearsUnstuckingOnComplete(a Action) bool {
	switch a := a.(type) {
	case SolveRune, PingPong, Move:
		return true
	case Key:
		return a.Position != nil
	}
	return false
}

// completeAction consumes the current action and returns next.
func completeAction(ctx *Context, next State) State {
	if a := nextAction(ctx); a != nil && clearsUnstuckingOnComplete(a) {
		ctx.clearUnstucking(false)
	}
	ctx.clearActionCompleted()
	return next
}

// completeActionIf consumes the current action only when terminal is set.
func completeActionIf(ctx *Context, next State, terminal bool) State {
	if terminal {
		return completeAction(ctx, next)
	}
	return next
}

func directionFromSign(v int) KeyDirection {
	switch {
	case v > 0:
		return DirectionRight
	case v < 0:
		return DirectionLeft
	default:
		return DirectionAny
	}
}

// updateFromPingPongAction completes the ping pong when the bound edge is hit, otherwise keeps
// moving toward the minimap edge in the ping pong direction.
func updateFromPingPongAction(res *botCtx.Resources, p *Entity, minimap *game.Minimap, pingPong PingPong, pos game.Point) State {
	if pingPongHitEdge(pingPong, pos) {
		return completeAction(p.Context, Idle{})
	}

	res.HID.ReleaseArrows()
	dest := game.Point{X: 0, Y: pos.Y}
	if pingPong.Direction == PingPongRight {
		dest.X = minimap.BBox.Width
	}
	return Moving{Dest: dest}
}

func pingPongHitEdge(pingPong PingPong, pos game.Point) bool {
	bound := pingPong.Bound
	if pingPong.Direction == PingPongLeft {
		return pos.X-bound.X <= 0
	}
	return pos.X-bound.X-bound.Width >= 0
}

// updateFromAutoMobAction uses the auto-mob key once the player is close enough to the mob or
// when a mob is met on the way. next is returned when neither applies.
func updateFromAutoMobAction(
	res *botCtx.Resources,
	p *Entity,
	minimap *game.Minimap,
	next State,
	mob AutoMob,
	xDistance, xDirection, yDistance int,
) State {
	ctx := p.Context
	terminate := xDistance <= autoMobUseKeyXThreshold && yDistance <= autoMobUseKeyYThreshold
	if terminate && ctx.stallingBuffer != nil {
		return completeAction(ctx, Idle{})
	}

	direction := directionFromSign(xDirection)
	checkPathing := false
	switch next.(type) {
	case DoubleJumping, Adjusting:
		checkPathing = true
	}

	if checkPathing && ctx.autoMobPathingShouldUseKey(res, minimap) {
		res.HID.ReleaseArrows()
		return newUseKeyFromAutoMob(mob, direction, terminate)
	}
	if terminate {
		ctx.lastKnownDirection = DirectionAny
		res.HID.ReleaseArrows()
		return newUseKeyFromAutoMob(mob, direction, terminate)
	}

	return next
}
