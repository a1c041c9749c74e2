package player

import (
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

// moveTimeout is the number of ticks a movement may go without a position change.
const moveTimeout = 5

type MovementHint int

const (
	HintInfer MovementHint = iota
	// HintWalkAndJump makes the player walk toward the waypoint and jump on the way.
	HintWalkAndJump
)

type Waypoint struct {
	Point game.Point
	Hint  MovementHint
}

// Pather finds intermediate points across the platform graph. It reports false when there is
// no route.
type Pather interface {
	FindIntermediatePoints(platforms []game.Platform, from, to game.Point, exact, upJumpOnly, enableHint bool) ([]Waypoint, bool)
}

type intermediate struct {
	point game.Point
	hint  MovementHint
	exact bool
}

// Intermediates are the waypoints to visit before the destination, which is the last point.
// Advancing returns a new value so a state never shares its cursor with another.
type Intermediates struct {
	current int
	points  []intermediate
}

func newIntermediates(waypoints []Waypoint, exact bool) *Intermediates {
	points := make([]intermediate, len(waypoints))
	for i, w := range waypoints {
		points[i] = intermediate{point: w.Point, hint: w.Hint, exact: i == len(waypoints)-1 && exact}
	}
	return &Intermediates{points: points}
}

func (in *Intermediates) Points() []game.Point {
	points := make([]game.Point, len(in.points))
	for i, p := range in.points {
		points[i] = p.point
	}
	return points
}

func (in *Intermediates) hasNext() bool {
	return in != nil && in.current < len(in.points)
}

// next returns the advanced intermediates with the point and exact flag that was advanced past.
func (in *Intermediates) next() (*Intermediates, game.Point, bool, bool) {
	if !in.hasNext() {
		return in, game.Point{}, false, false
	}
	p := in.points[in.current]
	advanced := &Intermediates{current: in.current + 1, points: in.points}
	return advanced, p.point, p.exact, true
}

func (in *Intermediates) last() game.Point {
	return in.points[len(in.points)-1].point
}

func (in *Intermediates) hint() (MovementHint, bool) {
	if in == nil || in.current == 0 {
		return HintInfer, false
	}
	return in.points[in.current-1].hint, true
}

// Movement is the payload shared by the movement primitives. Pos is the position seen on the
// previous tick, it is updated by nextMovingLifecycle.
type Movement struct {
	Pos           game.Point
	Dest          game.Point
	Exact         bool
	Completed     bool
	Timeout       timeout.Timeout
	Intermediates *Intermediates
}

func newMovement(pos, dest game.Point, exact bool, intermediates *Intermediates) Movement {
	return Movement{Pos: pos, Dest: dest, Exact: exact, Intermediates: intermediates}
}

// moving returns the coordinator state resuming this movement.
func (m Movement) moving() Moving {
	return Moving{Dest: m.Dest, Exact: m.Exact, Intermediates: m.Intermediates}
}

func (m Movement) withTimeoutCurrent(current uint32) Movement {
	m.Timeout = m.Timeout.WithCurrent(current)
	return m
}

// xDistanceDirection returns |dest.x - pos.x| and dest.x - pos.x. When current is false, the
// final destination is used instead of the current intermediate one.
func (m Movement) xDistanceDirection(current bool, pos game.Point) (int, int) {
	direction := m.destination(current).X - pos.X
	return abs(direction), direction
}

func (m Movement) yDistanceDirection(current bool, pos game.Point) (int, int) {
	direction := m.destination(current).Y - pos.Y
	return abs(direction), direction
}

func (m Movement) destination(current bool) game.Point {
	if current {
		return m.Dest
	}
	return m.lastDestination()
}

func (m Movement) lastDestination() game.Point {
	if m.isDestinationIntermediate() {
		return m.Intermediates.last()
	}
	return m.Dest
}

func (m Movement) isDestinationIntermediate() bool {
	return m.Intermediates.hasNext()
}

type ChangeAxis int

const (
	AxisHorizontal ChangeAxis = iota
	AxisVertical
	AxisBoth
)

func (a ChangeAxis) changed(from, to game.Point) bool {
	switch a {
	case AxisHorizontal:
		return from.X != to.X
	case AxisVertical:
		return from.Y != to.Y
	default:
		return from != to
	}
}

// nextMovingLifecycle advances m's timeout against max. Progress restarts whenever pos moved along
// axis, so the movement only ends after max ticks without progress. A completed movement keeps
// its progress so a forced end is never undone by the player still drifting.
func nextMovingLifecycle(m Movement, pos game.Point, max uint32, axis ChangeAxis) (Movement, timeout.Lifecycle) {
	if m.Timeout.Started && !m.Completed && axis.changed(m.Pos, pos) {
		m.Timeout.Current = 0
	}
	t, lifecycle := timeout.Next(m.Timeout, max)
	m.Timeout = t
	m.Pos = pos

	return m, lifecycle
}
