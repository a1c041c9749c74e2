package player

import (
	"log/slog"
	"math"

	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
	"github.com/thisdk/komari-sub001/internal/tracker"
)

const (
	shapeCheckInterval  = 30
	shapeSolvingTimeout = 545
	shapeTrackFrameRate = 30

	// shapeRejectCount is how many low scoring frames the followed track survives.
	shapeRejectCount = 5
	// shapeMotionScore is the lowest accepted score, the score being the opposite of the dot
	// product between the background direction and the track direction.
	shapeMotionScore = 0.2
	// shapeTrackAge is how many frames a lost followed track is waited for.
	shapeTrackAge = 2
	// shapeBackgroundStep is how far the cursor drifts against the background when no track is
	// followed.
	shapeBackgroundStep = 4
)

type shapeStage int

const (
	shapeWaiting shapeStage = iota
	shapeSolving
	shapeCompleted
)

// SolvingShape follows the transparent shape of the lie detector with the cursor. The shape is
// the only one moving against the background direction.
type SolvingShape struct {
	stage   shapeStage
	timeout timeout.Timeout

	region  game.Rect
	tracker *tracker.ByteTracker

	trackID          uint64
	hasTrack         bool
	trackFrameID     uint64
	trackRejectCount uint32
	lastCursor       *game.Point
	bgDirection      vec2
}

type vec2 struct {
	x, y float64
}

func (v vec2) add(o vec2) vec2      { return vec2{v.x + o.x, v.y + o.y} }
func (v vec2) scale(f float64) vec2 { return vec2{v.x * f, v.y * f} }
func (v vec2) dot(o vec2) float64   { return v.x*o.x + v.y*o.y }
func (v vec2) norm() float64        { return math.Hypot(v.x, v.y) }
func (v vec2) unit() (vec2, bool) {
	n := v.norm()
	if n < 1e-3 {
		return vec2{}, false
	}
	return v.scale(1 / n), true
}

func updateSolvingShape(res *botCtx.Resources, p *Entity, s SolvingShape) State {
	ctx := p.Context

	switch s.stage {
	case shapeWaiting:
		s = s.updateWaiting(res)
	case shapeSolving:
		s = s.updateSolving(res)
	}

	if _, ok := nextAction(ctx).(SolveShape); !ok {
		return Idle{}
	}
	if s.stage == shapeCompleted {
		return completeAction(ctx, Idle{})
	}
	return s
}

func (s SolvingShape) updateWaiting(res *botCtx.Resources) SolvingShape {
	if res.Tick%shapeCheckInterval != 0 {
		return s
	}

	title, err := res.Detector.DetectLieDetector()
	if err != nil {
		s.stage = shapeCompleted
		return s
	}
	inProgress, err := res.Detector.DetectLieDetectorInProgress()
	if err != nil {
		return s
	}

	tl := game.Point{X: title.X - 10, Y: title.Y}
	br := inProgress.BR().Add(game.Point{X: 220})
	s.region = game.RectFromPoints(tl, br)
	s.tracker = tracker.New(shapeTrackFrameRate)
	s.stage = shapeSolving
	s.timeout = timeout.Timeout{}
	res.Logger.Debug("Lie detector shape region", slog.Any("region", s.region))

	return s
}

func (s SolvingShape) updateSolving(res *botCtx.Resources) SolvingShape {
	if res.Tick%shapeCheckInterval == 0 {
		if _, err := res.Detector.DetectLieDetector(); err != nil {
			s.stage = shapeCompleted
			return s
		}
	}

	t, lifecycle := timeout.Next(s.timeout, shapeSolvingTimeout)
	if lifecycle == timeout.Ended {
		s.stage = shapeCompleted
		return s
	}
	s.timeout = t

	return s.follow(res)
}

// follow moves the cursor to the predicted center of the followed shape.
func (s SolvingShape) follow(res *botCtx.Resources) SolvingShape {
	shapes := res.Detector.DetectTransparentShapes(s.region)
	tracks := s.tracker.Update(shapes)

	if !s.hasTrack {
		mid := game.Rect{Width: s.region.Width, Height: s.region.Height}.Center()
		if track, ok := closestTrack(mid, tracks); ok {
			cursor := track.Rect().Center()
			s.trackID = track.ID()
			s.trackFrameID = track.FrameID()
			s.hasTrack = true
			s.lastCursor = &cursor
		}
	}

	if direction, ok := backgroundDirection(tracks); ok {
		if s.bgDirection.norm() == 0 {
			s.bgDirection = direction
		} else if smooth, ok := s.bgDirection.scale(0.6).add(direction.scale(0.4)).unit(); ok {
			s.bgDirection = smooth
		}
	}

	track, found, rejectCount, updateCount := s.selectTrack(tracks)
	if updateCount {
		s.trackRejectCount = rejectCount
	}

	var cursor game.Point
	switch {
	case found:
		if track.ID() != s.trackID {
			res.Logger.Debug("Shape track switched", slog.Uint64("from", s.trackID), slog.Uint64("to", track.ID()))
		}
		cursor = predictedCenter(track)
		s.trackID = track.ID()
		s.trackFrameID = track.FrameID()
		s.hasTrack = true
	case s.lastCursor != nil:
		drift := s.bgDirection.scale(shapeBackgroundStep)
		cursor = s.lastCursor.Sub(game.Point{X: int(math.Round(drift.x)), Y: int(math.Round(drift.y))})
	default:
		return s
	}

	res.HID.MoveMouse(cursor.Add(s.region.TL()))
	s.lastCursor = &cursor
	return s
}

// selectTrack keeps the followed track while it moves against the background. Once rejected or
// lost for long enough, the best scoring other track is picked.
func (s SolvingShape) selectTrack(tracks []tracker.Track) (tracker.Track, bool, uint32, bool) {
	if !s.hasTrack {
		return tracker.Track{}, false, 0, false
	}

	for _, track := range tracks {
		if track.ID() != s.trackID {
			continue
		}
		count := s.trackRejectCount + 1
		if motionScore(track, s.bgDirection) >= shapeMotionScore {
			count = 0
		}
		if count <= shapeRejectCount {
			return track, true, count, true
		}
		break
	}

	if s.tracker.FrameID()-s.trackFrameID <= shapeTrackAge {
		return tracker.Track{}, false, 0, false
	}

	var (
		best      tracker.Track
		bestScore float64
		found     bool
	)
	for _, track := range tracks {
		if track.ID() == s.trackID {
			continue
		}
		score := motionScore(track, s.bgDirection)
		if score >= shapeMotionScore && (!found || score > bestScore) {
			best, bestScore, found = track, score, true
		}
	}

	return best, found, 0, true
}

func closestTrack(point game.Point, tracks []tracker.Track) (tracker.Track, bool) {
	var (
		closest  tracker.Track
		distance float64
		found    bool
	)
	for _, track := range tracks {
		d := point.DistanceTo(track.Rect().Center())
		if !found || d < distance {
			closest, distance, found = track, d, true
		}
	}
	return closest, found
}

func predictedCenter(track tracker.Track) game.Point {
	vx, vy := track.Velocity()
	center := track.PredictedRect().Center()
	return game.Point{
		X: int(math.Round(float64(center.X) + vx)),
		Y: int(math.Round(float64(center.Y) + vy)),
	}
}

func trackMotion(track tracker.Track) vec2 {
	vx, vy := track.Velocity()
	motion, _ := vec2{vx, vy}.unit()
	return motion
}

func motionScore(track tracker.Track, bgDirection vec2) float64 {
	return -trackMotion(track).dot(bgDirection)
}

// backgroundDirection averages the direction of the moving tracks, most of which are background
// shapes. At least three moving tracks are required.
func backgroundDirection(tracks []tracker.Track) (vec2, bool) {
	var (
		sum   vec2
		count int
	)
	for _, track := range tracks {
		vx, vy := track.Velocity()
		if (vec2{vx, vy}).norm() < 1 {
			continue
		}
		sum = sum.add(trackMotion(track))
		count++
	}
	if count < 3 {
		return vec2{}, false
	}
	return sum.unit()
}
