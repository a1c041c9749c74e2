// Package tracker follows detections across frames. Detections are matched to tracks by box
// overlap and every track carries a smoothed constant-velocity estimate of its center.
package tracker

import (
	"math"
	"sort"

	"github.com/thisdk/komari-sub001/internal/game"
)

const (
	// matchThreshold is the highest 1-IoU cost accepted as a match.
	matchThreshold = 0.5

	positionGain = 0.5
	velocityGain = 0.3
	sizeGain     = 0.5
)

type trackState int

const (
	tracked trackState = iota
	lost
)

type Track struct {
	id      uint64
	frameID uint64
	length  int
	state   trackState

	rect game.Rect
	// Filtered center, size and center velocity in pixels per frame.
	cx, cy, w, h float64
	vx, vy       float64
}

func newTrack(rect game.Rect) Track {
	return Track{
		rect: rect,
		cx:   float64(rect.X) + float64(rect.Width)/2,
		cy:   float64(rect.Y) + float64(rect.Height)/2,
		w:    float64(rect.Width),
		h:    float64(rect.Height),
	}
}

func (t Track) ID() uint64 {
	return t.id
}

// FrameID is the last frame in which the track was matched.
func (t Track) FrameID() uint64 {
	return t.frameID
}

func (t Track) Len() int {
	return t.length
}

// Rect is the last matched detection.
func (t Track) Rect() game.Rect {
	return t.rect
}

// PredictedRect is the filtered box.
func (t Track) PredictedRect() game.Rect {
	return game.Rect{
		X:      int(math.Round(t.cx - t.w/2)),
		Y:      int(math.Round(t.cy - t.h/2)),
		Width:  int(math.Round(t.w)),
		Height: int(math.Round(t.h)),
	}
}

func (t Track) Velocity() (float64, float64) {
	return t.vx, t.vy
}

func (t *Track) predict() {
	t.cx += t.vx
	t.cy += t.vy
}

func (t *Track) update(rect game.Rect, frameID uint64) {
	mx := float64(rect.X) + float64(rect.Width)/2
	my := float64(rect.Y) + float64(rect.Height)/2
	rx, ry := mx-t.cx, my-t.cy

	t.cx += positionGain * rx
	t.cy += positionGain * ry
	t.vx += velocityGain * rx
	t.vy += velocityGain * ry
	t.w += sizeGain * (float64(rect.Width) - t.w)
	t.h += sizeGain * (float64(rect.Height) - t.h)

	t.rect = rect
	t.frameID = frameID
	t.length++
	t.state = tracked
}

// ByteTracker keeps the tracked and recently lost tracks. Lost tracks are kept for
// maxTimeLost frames so a briefly hidden shape keeps its id.
type ByteTracker struct {
	tracked     []Track
	lost        []Track
	frameID     uint64
	maxTimeLost uint64
	nextID      uint64
}

func New(frameRate uint64) *ByteTracker {
	return &ByteTracker{maxTimeLost: frameRate, nextID: 1}
}

func (b *ByteTracker) FrameID() uint64 {
	return b.frameID
}

func (b *ByteTracker) activate(t *Track) {
	t.id = b.nextID
	b.nextID++
	t.frameID = b.frameID
	t.length = 0
	t.state = tracked
}

// Update advances one frame with the given detections and returns the tracked tracks.
func (b *ByteTracker) Update(detections []game.Rect) []Track {
	b.frameID++

	current := make([]Track, 0, len(b.tracked)+len(b.lost))
	current = append(current, b.tracked...)
	current = append(current, b.lost...)
	for i := range current {
		current[i].predict()
	}

	matches, unmatchedTracks, unmatchedDetections := assign(current, detections)

	next := make([]Track, 0, len(detections))
	for _, m := range matches {
		t := current[m.track]
		t.update(detections[m.detection], b.frameID)
		next = append(next, t)
	}
	for _, di := range unmatchedDetections {
		t := newTrack(detections[di])
		b.activate(&t)
		next = append(next, t)
	}

	var stillLost []Track
	for _, ti := range unmatchedTracks {
		t := current[ti]
		t.state = lost
		if b.frameID-t.frameID <= b.maxTimeLost {
			stillLost = append(stillLost, t)
		}
	}

	b.tracked = next
	b.lost = stillLost

	out := make([]Track, len(b.tracked))
	copy(out, b.tracked)
	return out
}

type match struct {
	track     int
	detection int
	cost      float64
}

// assign greedily pairs tracks and detections by increasing 1-IoU cost.
func assign(tracks []Track, detections []game.Rect) ([]match, []int, []int) {
	var candidates []match
	for i, t := range tracks {
		predicted := t.PredictedRect()
		for j, d := range detections {
			cost := 1 - iou(predicted, d)
			if cost <= matchThreshold {
				candidates = append(candidates, match{track: i, detection: j, cost: cost})
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].cost < candidates[j].cost
	})

	usedTracks := make([]bool, len(tracks))
	usedDetections := make([]bool, len(detections))
	var matches []match
	for _, c := range candidates {
		if usedTracks[c.track] || usedDetections[c.detection] {
			continue
		}
		usedTracks[c.track] = true
		usedDetections[c.detection] = true
		matches = append(matches, c)
	}

	var unmatchedTracks, unmatchedDetections []int
	for i, used := range usedTracks {
		if !used {
			unmatchedTracks = append(unmatchedTracks, i)
		}
	}
	for j, used := range usedDetections {
		if !used {
			unmatchedDetections = append(unmatchedDetections, j)
		}
	}

	return matches, unmatchedTracks, unmatchedDetections
}

func iou(a, b game.Rect) float64 {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Width, b.X+b.Width)
	y2 := min(a.Y+a.Height, b.Y+b.Height)

	inter := float64(max(x2-x1, 0) * max(y2-y1, 0))
	union := float64(a.Width*a.Height+b.Width*b.Height) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
