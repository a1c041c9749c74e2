package player

import (
	"log/slog"
	"slices"
	"sort"

	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/task"
)

const (
	// A reachable y is solidified after being reached this many times, it then always has a
	// platform.
	autoMobReachableYSolidifyCount = 4
	autoMobReachableYThreshold     = 10

	// An x range that aborted auto-mob this many times is ignored.
	autoMobIgnoreXsSolidifyCount = 3
	autoMobIgnoreXsRange         = 3
)

// Quadrant is a quarter of the auto-mob bound. Pathing visits quadrants clockwise.
type Quadrant int

const (
	QuadrantTopLeft Quadrant = iota
	QuadrantTopRight
	QuadrantBottomRight
	QuadrantBottomLeft
)

func (q Quadrant) nextClockwise() Quadrant {
	return (q + 1) % 4
}

// bound returns the quadrant of b, both in top-left coordinates.
func (q Quadrant) bound(b game.Rect) game.Rect {
	halfW, halfH := b.Width/2, b.Height/2
	midX, midY := b.X+halfW, b.Y+halfH

	switch q {
	case QuadrantTopRight:
		return game.Rect{X: midX, Y: b.Y, Width: halfW, Height: halfH}
	case QuadrantBottomRight:
		return game.Rect{X: midX, Y: midY, Width: halfW, Height: halfH}
	case QuadrantBottomLeft:
		return game.Rect{X: b.X, Y: midY, Width: halfW, Height: halfH}
	default:
		return game.Rect{X: b.X, Y: b.Y, Width: halfW, Height: halfH}
	}
}

type ignoreXs struct {
	xs    game.Range
	count uint32
}

type autoMobState struct {
	reachableY map[int]uint32
	ignoreXs   map[int][]ignoreXs

	lastQuadrant      *Quadrant
	lastQuadrantBound *game.Rect
	nextQuadrantBound *game.Rect

	mobsSlot *task.Slot[[]game.Point]
}

func newAutoMobState() autoMobState {
	return autoMobState{
		reachableY: make(map[int]uint32),
		ignoreXs:   make(map[int][]ignoreXs),
		mobsSlot:   &task.Slot[[]game.Point]{},
	}
}

func (c *Context) AutoMobLastQuadrant() (Quadrant, bool) {
	if c.autoMob.lastQuadrant == nil {
		return 0, false
	}
	return *c.autoMob.lastQuadrant, true
}

func (c *Context) autoMobClearPathingTask() {
	c.autoMob.mobsSlot.Reset()
}

// AutoMobPathingPoint picks the next point to walk to when there is no mob to attack. bound is
// in top-left minimap coordinates and the returned point is in player coordinates.
func (c *Context) AutoMobPathingPoint(res *botCtx.Resources, minimap *game.Minimap, bound game.Rect) game.Point {
	height := minimap.BBox.Height

	var current Quadrant
	if c.autoMob.lastQuadrant != nil {
		current = *c.autoMob.lastQuadrant
	} else {
		pos := *c.LastKnownPos
		midX, midY := bound.X+bound.Width/2, bound.Y+bound.Height/2
		y := height - pos.Y
		switch {
		case pos.X < midX && y < midY:
			current = QuadrantTopLeft
		case y < midY:
			current = QuadrantTopRight
		case pos.X >= midX:
			current = QuadrantBottomRight
		default:
			current = QuadrantBottomLeft
		}
	}

	next := current.nextClockwise()
	nextBound := next.bound(bound)
	nextNextBound := next.nextClockwise().bound(bound)
	c.autoMob.lastQuadrant = &next
	c.autoMob.lastQuadrantBound = flipRect(nextBound, height)
	c.autoMob.nextQuadrantBound = flipRect(nextNextBound, height)

	boundXs := game.Range{Start: nextBound.X, End: nextBound.X + nextBound.Width}
	boundYs := game.Range{Start: nextBound.Y, End: nextBound.Y + nextBound.Height}

	var candidates []game.Platform
	for _, p := range minimap.Platforms {
		if p.Xs().Overlaps(boundXs) && boundYs.Contains(height-p.Y) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) > 0 {
		p := candidates[res.Rng.IntN(len(candidates))]
		start, end := max(boundXs.Start, p.XStart), min(boundXs.End, p.XEnd)
		return game.Point{X: res.RandomRange(start, end), Y: p.Y}
	}

	x := res.RandomRange(boundXs.Start, boundXs.End)
	var ys []int
	for _, y := range c.sortedReachableYs() {
		if c.autoMob.reachableY[y] >= autoMobReachableYSolidifyCount && boundYs.Contains(height-y) {
			ys = append(ys, y)
		}
	}
	if len(ys) > 0 {
		return game.Point{X: x, Y: ys[res.Rng.IntN(len(ys))]}
	}

	return game.Point{X: x, Y: height - res.RandomRange(boundYs.Start, boundYs.End)}
}

// AutoMobPickReachableYPosition snaps mobPos, in player coordinates, to a y the player can
// stand on. It returns false when the position should be dropped.
func (c *Context) AutoMobPickReachableYPosition(res *botCtx.Resources, minimap *game.Minimap, mobPos game.Point) (game.Point, bool) {
	return c.autoMobPickReachableYPosition(res, minimap, mobPos, true)
}

func (c *Context) autoMobPickReachableYPosition(res *botCtx.Resources, minimap *game.Minimap, mobPos game.Point, boundToQuadrants bool) (game.Point, bool) {
	if len(c.autoMob.reachableY) == 0 {
		c.autoMobPopulateReachableY(minimap)
	}

	var ys []int
	for _, y := range c.sortedReachableYs() {
		if abs(mobPos.Y-y) <= autoMobReachableYThreshold {
			ys = append(ys, y)
		}
	}

	if len(ys) > 0 {
		y := ys[res.Rng.IntN(len(ys))]
		for _, ignore := range c.autoMob.ignoreXs[y] {
			if ignore.count >= autoMobIgnoreXsSolidifyCount && ignore.xs.Contains(mobPos.X) {
				res.Logger.Debug("Auto mob ignored unreachable position",
					slog.Int("x", mobPos.X),
					slog.Int("y", y),
					slog.Int("mob_y", mobPos.Y),
				)
				return game.Point{}, false
			}
		}
		mobPos.Y = y
	}

	if boundToQuadrants && c.autoMob.lastQuadrantBound != nil && c.autoMob.nextQuadrantBound != nil {
		if !c.autoMob.lastQuadrantBound.Contains(mobPos) && !c.autoMob.nextQuadrantBound.Contains(mobPos) {
			return game.Point{}, false
		}
	}

	return mobPos, true
}

func (c *Context) autoMobPopulateReachableY(minimap *game.Minimap) {
	if minimap != nil {
		for _, p := range minimap.Platforms {
			c.autoMob.reachableY[p.Y] = autoMobReachableYSolidifyCount
		}
	}
	if c.LastKnownPos != nil {
		if _, found := c.autoMob.reachableY[c.LastKnownPos.Y]; !found {
			c.autoMob.reachableY[c.LastKnownPos.Y] = autoMobReachableYSolidifyCount - 1
		}
	}
}

func (c *Context) autoMobReachableYRequireUpdate(y int) bool {
	return c.autoMob.reachableY[y] < autoMobReachableYSolidifyCount
}

// autoMobTrackReachableY counts the current y as reached and, when the player did not end up
// at y, weakens y.
func (c *Context) autoMobTrackReachableY(y int) {
	if c.LastKnownPos == nil {
		return
	}

	pos := *c.LastKnownPos
	if count, found := c.autoMob.reachableY[y]; y != pos.Y && found {
		if count <= 1 {
			delete(c.autoMob.reachableY, y)
		} else {
			c.autoMob.reachableY[y] = count - 1
		}
	}
	if c.autoMob.reachableY[pos.Y] < autoMobReachableYSolidifyCount {
		c.autoMob.reachableY[pos.Y]++
	}
}

// autoMobTrackIgnoreXs records whether the auto-mob x position was reached. Positions that
// repeatedly abort become ignored ranges and overlapping ignored ranges are merged.
func (c *Context) autoMobTrackIgnoreXs(minimap *game.Minimap, aborted bool) {
	if !c.hasAutoMobActionOnly() {
		return
	}
	if len(c.autoMob.ignoreXs) == 0 {
		c.autoMobPopulateIgnoreXs(minimap)
	}

	mob := c.normalAction.(AutoMob)
	x, y := mob.Position.X, mob.Position.Y
	if c.autoMobReachableYRequireUpdate(y) {
		return
	}

	ranges, found := c.autoMob.ignoreXs[y]
	if !found {
		ranges = []ignoreXs{newIgnoreXs(x)}
	}

	if aborted && shouldMergeIgnoreXs(ranges) {
		ranges = mergeIgnoreXs(ranges)
	}

	if i := slices.IndexFunc(ranges, func(r ignoreXs) bool { return r.xs.Contains(x) }); i >= 0 {
		if ranges[i].count < autoMobIgnoreXsSolidifyCount {
			switch {
			case aborted:
				ranges[i].count++
			case ranges[i].count > 0:
				ranges[i].count--
			}
			if !aborted && ranges[i].count == 0 {
				ranges = slices.Delete(ranges, i, i+1)
			}
		}
		c.autoMob.ignoreXs[y] = ranges
		return
	}

	if aborted {
		r := newIgnoreXs(x)
		r.count++
		ranges = append(ranges, r)
		sort.Slice(ranges, func(i, j int) bool { return ranges[i].xs.Start < ranges[j].xs.Start })
	}
	c.autoMob.ignoreXs[y] = ranges
}

// autoMobPopulateIgnoreXs ignores the gaps between platforms of the same y.
func (c *Context) autoMobPopulateIgnoreXs(minimap *game.Minimap) {
	if minimap == nil || len(minimap.Platforms) == 0 {
		return
	}

	byY := make(map[int][]game.Range)
	for _, p := range minimap.Platforms {
		byY[p.Y] = append(byY[p.Y], p.Xs())
	}

	width := minimap.BBox.Width
	for y, xs := range byY {
		sort.Slice(xs, func(i, j int) bool { return xs[i].Start < xs[j].Start })

		ignores := c.autoMob.ignoreXs[y]
		if gap := (game.Range{Start: 0, End: xs[0].Start}); !gap.Empty() {
			ignores = append(ignores, ignoreXs{xs: gap, count: autoMobIgnoreXsSolidifyCount})
		}
		if gap := (game.Range{Start: xs[len(xs)-1].End, End: width}); !gap.Empty() {
			ignores = append(ignores, ignoreXs{xs: gap, count: autoMobIgnoreXsSolidifyCount})
		}

		lastEnd := xs[0].End
		for _, r := range xs[1:] {
			if gap := (game.Range{Start: lastEnd, End: r.Start}); !gap.Empty() {
				ignores = append(ignores, ignoreXs{xs: gap, count: autoMobIgnoreXsSolidifyCount})
			}
			lastEnd = max(lastEnd, r.End)
		}
		c.autoMob.ignoreXs[y] = ignores
	}
}

// autoMobPathingShouldUseKey reports whether a mob is close ahead while auto-mob is pathing.
func (c *Context) autoMobPathingShouldUseKey(res *botCtx.Resources, minimap *game.Minimap) bool {
	const useKeyYRange = autoMobUseKeyYThreshold + 4

	if !c.Config.AutoMobUseKeyWhenPathing || minimap == nil {
		return false
	}
	mob, ok := c.normalAction.(AutoMob)
	if !ok || !mob.IsPathing {
		return false
	}

	bbox := minimap.BBox
	pos := *c.LastKnownPos
	detector := res.Detector
	update := task.Poll(res.Pool, c.autoMob.mobsSlot, c.Config.AutoMobUseKeyWhenPathingUpdate, func() ([]game.Point, error) {
		return detector.DetectMobs(bbox, game.Rect{Width: bbox.Width, Height: bbox.Height}, pos)
	})
	if update.Status != task.Ok {
		return false
	}

	pathingPoint := mob.Position.Point()
	for _, point := range update.Value {
		reachable, found := c.autoMobPickReachableYPosition(res, minimap, game.Point{X: point.X, Y: bbox.Height - point.Y}, false)
		if !found {
			continue
		}
		withinX := abs(reachable.X-pos.X) <= autoMobUseKeyXThreshold
		withinY := reachable.Y >= pos.Y && reachable.Y-pos.Y <= useKeyYRange
		sameDirection := reachable.Sub(pos).Dot(pathingPoint.Sub(pos)) > 0
		if withinX && withinY && sameDirection {
			res.Logger.Debug("Auto mob using key while pathing", slog.Any("mob", reachable))
			return true
		}
	}

	return false
}

func (c *Context) sortedReachableYs() []int {
	ys := make([]int, 0, len(c.autoMob.reachableY))
	for y := range c.autoMob.reachableY {
		ys = append(ys, y)
	}
	sort.Ints(ys)
	return ys
}

func newIgnoreXs(x int) ignoreXs {
	return ignoreXs{xs: game.Range{Start: x - autoMobIgnoreXsRange, End: x + autoMobIgnoreXsRange + 1}}
}

func shouldMergeIgnoreXs(ranges []ignoreXs) bool {
	for i := 0; i+1 < len(ranges); i += 2 {
		first, second := ranges[i], ranges[i+1]
		if second.xs.Start < first.xs.End &&
			(first.count >= autoMobIgnoreXsSolidifyCount || second.count >= autoMobIgnoreXsSolidifyCount) {
			return true
		}
	}
	return false
}

// mergeIgnoreXs merges sorted overlapping ranges when either of them is solidified.
func mergeIgnoreXs(ranges []ignoreXs) []ignoreXs {
	merged := make([]ignoreXs, 0, len(ranges))
	for _, r := range ranges {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			overlapping := r.xs.Start < last.xs.End
			solid := last.count >= autoMobIgnoreXsSolidifyCount || r.count >= autoMobIgnoreXsSolidifyCount
			if overlapping && solid {
				last.xs.End = max(last.xs.End, r.xs.End)
				last.count = autoMobIgnoreXsSolidifyCount
				continue
			}
		}
		merged = append(merged, r)
	}
	return merged
}

// flipRect converts r between top-left and bottom-left coordinates.
func flipRect(r game.Rect, height int) *game.Rect {
	flipped := game.Rect{X: r.X, Y: height - r.BR().Y, Width: r.Width, Height: r.Height}
	return &flipped
}
