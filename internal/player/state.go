package player

import (
	"fmt"

	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

// State is the player contextual state. Exactly one variant is active at a time and every
// update returns the variant for the next tick.
type State interface {
	fmt.Stringer
	state()
}

// Detecting waits for the player to be found on the minimap.
type Detecting struct{}

// Idle clears keys and acts as the entry to other states when there is an action.
type Idle struct{}

// Moving coordinates the movement primitives toward Dest without moving itself.
type Moving struct {
	Dest          game.Point
	Exact         bool
	Intermediates *Intermediates
}

type Jumping struct {
	Movement Movement
}

// Falling drops down from Anchor. With TimeoutOnComplete the state ends as soon as the drop
// has started instead of waiting to land on Dest.
type Falling struct {
	Movement          Movement
	Anchor            game.Point
	TimeoutOnComplete bool
}

// Stalling does nothing for Max ticks and then returns to the stalling timeout state stored in
// the context or Idle.
type Stalling struct {
	Timeout timeout.Timeout
	Max     uint32
}

func (Detecting) state()         {}
func (Idle) state()              {}
func (UseKey) state()            {}
func (Moving) state()            {}
func (Adjusting) state()         {}
func (DoubleJumping) state()     {}
func (Grappling) state()         {}
func (Jumping) state()           {}
func (UpJumping) state()         {}
func (Falling) state()           {}
func (Unstucking) state()        {}
func (Stalling) state()          {}
func (SolvingRune) state()       {}
func (SolvingShape) state()      {}
func (CashShopThenExit) state()  {}
func (FamiliarsSwapping) state() {}
func (Panicking) state()         {}
func (Chatting) state()          {}
func (UsingBooster) state()      {}
func (ExchangingBooster) state() {}

func (Detecting) String() string         { return "Detecting" }
func (Idle) String() string              { return "Idle" }
func (UseKey) String() string            { return "UseKey" }
func (Moving) String() string            { return "Moving" }
func (Adjusting) String() string         { return "Adjusting" }
func (DoubleJumping) String() string     { return "DoubleJumping" }
func (Grappling) String() string         { return "Grappling" }
func (Jumping) String() string           { return "Jumping" }
func (UpJumping) String() string         { return "UpJumping" }
func (Falling) String() string           { return "Falling" }
func (Unstucking) String() string        { return "Unstucking" }
func (Stalling) String() string          { return "Stalling" }
func (SolvingRune) String() string       { return "SolvingRune" }
func (SolvingShape) String() string      { return "SolvingShape" }
func (CashShopThenExit) String() string  { return "CashShopThenExit" }
func (Panicking) String() string         { return "Panicking" }
func (Chatting) String() string          { return "Chatting" }
func (UsingBooster) String() string      { return "UsingBooster" }
func (ExchangingBooster) String() string { return "ExchangingBooster" }

func (f FamiliarsSwapping) String() string {
	return fmt.Sprintf("FamiliarsSwapping(%s)", f.stage)
}

// CanInterrupt reports whether a new priority action may replace s right now. Movements far
// from their destination and completed vertical movements can be replaced, UI interactions and
// forced jumps cannot.
func CanInterrupt(s State, pos *game.Point) bool {
	overridable := overridableDistance

	switch s := s.(type) {
	case Detecting, Idle:
		return true
	case Moving:
		if pos == nil {
			return true
		}
		return abs(s.Dest.X-pos.X) >= overridable
	case DoubleJumping:
		if s.Forced {
			return false
		}
		distance, _ := s.Movement.xDistanceDirection(true, posOr(pos, s.Movement.Pos))
		return distance >= overridable
	case Adjusting:
		distance, _ := s.Movement.xDistanceDirection(true, posOr(pos, s.Movement.Pos))
		return distance >= overridable
	case Grappling:
		return s.Movement.Completed
	case Jumping:
		return s.Movement.Completed
	case UpJumping:
		return s.Movement.Completed
	case Falling:
		return s.Movement.Completed
	default:
		return false
	}
}

func posOr(pos *game.Point, fallback game.Point) game.Point {
	if pos == nil {
		return fallback
	}
	return *pos
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
