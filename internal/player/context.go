package player

import (
	"log/slog"

	"github.com/thisdk/komari-sub001/internal/buff"
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/event"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/health"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

const (
	stationaryTimeout = moveTimeout + 1
	velocitySamples   = moveTimeout

	maxRuneFailedCount         = 8
	maxBoosterFailedCount      = 5
	maxFamiliarsSwapFailCount  = 3
	runeValidateTimeout        = 375
	detectionFailureUnstucking = 3
)

// LastMovement is the previous movement primitive, used to coordinate between primitives and
// to guard against repeating the same movement forever.
type LastMovement int

const (
	MovementNone LastMovement = iota
	MovementAdjusting
	MovementDoubleJumping
	MovementFalling
	MovementGrappling
	MovementUpJumping
	MovementJumping
)

func (m LastMovement) String() string {
	switch m {
	case MovementAdjusting:
		return "adjusting"
	case MovementDoubleJumping:
		return "double_jumping"
	case MovementFalling:
		return "falling"
	case MovementGrappling:
		return "grappling"
	case MovementUpJumping:
		return "up_jumping"
	case MovementJumping:
		return "jumping"
	default:
		return "none"
	}
}

func (m LastMovement) horizontal() bool {
	return m == MovementAdjusting || m == MovementDoubleJumping
}

// StallingCallback runs from the stalling buffer while another state is active.
type StallingCallback func(res *botCtx.Resources)

type stallingBuffer struct {
	timeout  timeout.Timeout
	max      uint32
	onUpdate StallingCallback
	onEnd    StallingCallback
}

type velocitySample struct {
	pos  game.Point
	tick uint64
}

// Context is the persistent player context. It outlives every state and is only cleared by
// Reset.
type Context struct {
	Config Config

	// LastKnownPos is nil when the player has not been detected yet.
	LastKnownPos *game.Point
	// LastDestinations are the destinations of the current movement for display.
	LastDestinations []game.Point

	normalActionID   uint32
	normalAction     Action
	priorityActionID uint32
	priorityAction   Action

	health *health.Tracker

	isStationaryTimeout timeout.Timeout
	isStationary        bool

	lastKnownDirection KeyDirection

	resetToIdleNextUpdate         bool
	resetStallingBufferNextUpdate bool

	lastMovement         LastMovement
	lastMovementNormal   map[LastMovement]uint32
	lastMovementPriority map[LastMovement]uint32

	autoMob autoMobState

	unstuckCount             uint32
	unstuckTransitionedCount uint32
	detectFailCount          uint32
	replanRequested          bool

	// detectedOffMinimap is set when the last detected position fell outside the minimap.
	detectedOffMinimap bool

	runeFailedCount     uint32
	runeCashShop        bool
	runeValidateTimeout *timeout.Timeout

	stallingTimeoutState State
	stallingBuffer       *stallingBuffer

	velocitySamples []velocitySample
	velocityX       float64
	velocityY       float64

	genericBoosterFailedCount uint32
	hexaBoosterFailedCount    uint32
	familiarsSwapFailedCount  uint32
}

func NewContext(cfg Config) *Context {
	c := &Context{}
	c.init(cfg)
	return c
}

func (c *Context) init(cfg Config) {
	*c = Context{
		Config: cfg,
		health: health.NewTracker(health.Config{
			PotionKey:      cfg.PotionKey,
			UsePotionBelow: cfg.UsePotionBelow,
			UpdateInterval: cfg.UpdateHealthInterval,
		}),
		resetToIdleNextUpdate: true,
		lastMovementNormal:    make(map[LastMovement]uint32),
		lastMovementPriority:  make(map[LastMovement]uint32),
		autoMob:               newAutoMobState(),
	}
}

// Reset clears everything except the configuration. The next update returns to Idle.
func (c *Context) Reset() {
	c.SetConfig(c.Config)
}

// SetConfig replaces the configuration and resets the context.
func (c *Context) SetConfig(cfg Config) {
	if c.health != nil {
		c.health.Reset()
	}
	c.autoMob.mobsSlot.Reset()
	c.init(cfg)
}

func (c *Context) Health() (health.Health, bool) {
	return c.health.Health()
}

func (c *Context) IsDead() bool {
	return c.health.IsDead()
}

func (c *Context) IsStationary() bool {
	return c.isStationary
}

// Velocity is the smoothed absolute velocity in pixels per tick.
func (c *Context) Velocity() (float64, float64) {
	return c.velocityX, c.velocityY
}

func (c *Context) LastMovement() LastMovement {
	return c.lastMovement
}

func (c *Context) NormalAction() Action {
	return c.normalAction
}

// NormalActionID returns the id given with the normal action, false when there is none.
func (c *Context) NormalActionID() (uint32, bool) {
	return c.normalActionID, c.normalAction != nil
}

func (c *Context) HasNormalAction() bool {
	return c.normalAction != nil
}

func (c *Context) SetNormalAction(id uint32, action Action) {
	c.normalActionID = id
	c.normalAction = action
}

func (c *Context) ResetNormalAction() {
	c.normalAction = nil
}

func (c *Context) PriorityAction() Action {
	return c.priorityAction
}

func (c *Context) PriorityActionID() (uint32, bool) {
	return c.priorityActionID, c.priorityAction != nil
}

func (c *Context) HasPriorityAction() bool {
	return c.priorityAction != nil
}

// SetPriorityAction sets the priority action and resets to Idle on the next update.
func (c *Context) SetPriorityAction(id uint32, action Action) {
	c.ReplacePriorityAction(id, action)
}

// ReplacePriorityAction replaces the priority action and returns the id of the replaced one.
func (c *Context) ReplacePriorityAction(id uint32, action Action) (uint32, bool) {
	prevID, hadPrev := c.priorityActionID, c.priorityAction != nil
	c.resetToIdleNextUpdate = true
	_, isMove := action.(Move)
	c.resetStallingBufferNextUpdate = !isMove
	c.priorityActionID = id
	c.priorityAction = action

	return prevID, hadPrev
}

// TakePriorityAction removes the priority action and returns its id.
func (c *Context) TakePriorityAction() (uint32, bool) {
	c.resetToIdleNextUpdate = true
	if c.priorityAction == nil {
		return 0, false
	}
	c.priorityAction = nil
	return c.priorityActionID, true
}

// ClearActionsAborted drops both actions, used by callers outside of the state machine.
func (c *Context) ClearActionsAborted(shouldIdle bool) {
	c.resetToIdleNextUpdate = shouldIdle
	c.resetStallingBufferNextUpdate = true
	c.priorityAction = nil
	c.normalAction = nil
}

// TakeReplanRequest returns whether recovery asked for a new route and clears the request.
func (c *Context) TakeReplanRequest() bool {
	requested := c.replanRequested
	c.replanRequested = false
	return requested
}

func (c *Context) IsValidatingRune() bool {
	return c.runeValidateTimeout != nil
}

func (c *Context) startValidatingRune() {
	c.runeValidateTimeout = &timeout.Timeout{}
}

func (c *Context) hasRuneAction() bool {
	_, ok := c.priorityAction.(SolveRune)
	return ok
}

func (c *Context) hasAutoMobActionOnly() bool {
	if c.priorityAction != nil {
		return false
	}
	_, ok := c.normalAction.(AutoMob)
	return ok
}

func (c *Context) hasPingPongActionOnly() bool {
	if c.priorityAction != nil {
		return false
	}
	_, ok := c.normalAction.(PingPong)
	return ok
}

func (c *Context) clearActionCompleted() {
	c.clearLastMovement()
	if c.priorityAction != nil {
		c.priorityAction = nil
	} else {
		c.normalAction = nil
	}
}

func (c *Context) clearLastMovement() {
	if c.priorityAction != nil {
		clear(c.lastMovementPriority)
	} else {
		clear(c.lastMovementNormal)
	}
}

func (c *Context) clearUnstucking(includeTransitioned bool) {
	c.unstuckCount = 0
	if includeTransitioned {
		c.unstuckTransitionedCount = 0
	}
}

func (c *Context) IsBoosterFailCountLimitReached(kind Booster) bool {
	return *c.boosterFailedCount(kind) >= maxBoosterFailedCount
}

func (c *Context) trackBoosterFailCount(kind Booster) {
	if count := c.boosterFailedCount(kind); *count < maxBoosterFailedCount {
		*count++
	}
}

func (c *Context) clearBoosterFailCount(kind Booster) {
	*c.boosterFailedCount(kind) = 0
}

func (c *Context) boosterFailedCount(kind Booster) *uint32 {
	if kind == BoosterHexa {
		return &c.hexaBoosterFailedCount
	}
	return &c.genericBoosterFailedCount
}

func (c *Context) IsFamiliarsSwapFailCountLimitReached() bool {
	return c.familiarsSwapFailedCount >= maxFamiliarsSwapFailCount
}

func (c *Context) trackFamiliarsSwapFailCount() {
	if c.familiarsSwapFailedCount < maxFamiliarsSwapFailCount {
		c.familiarsSwapFailedCount++
	}
}

func (c *Context) clearFamiliarsSwapFailCount() {
	c.familiarsSwapFailedCount = 0
}

func (c *Context) trackRuneFailCount(res *botCtx.Resources) {
	c.runeFailedCount++
	res.SendEvent(event.RuneFailed(event.Text(res.Source(), ""), c.runeFailedCount))
	if c.runeFailedCount >= maxRuneFailedCount {
		c.runeFailedCount = 0
		c.runeCashShop = true
	}
}

// trackUnstuckingTransitioned returns true when the recovery should go random.
func (c *Context) trackUnstuckingTransitioned() bool {
	c.unstuckTransitionedCount++
	if c.unstuckTransitionedCount >= c.Config.Thresholds.UnstuckGamba {
		c.unstuckTransitionedCount = 0
		return true
	}
	return false
}

// trackUnstucking returns true when the player moved too many times without changing position.
func (c *Context) trackUnstucking() bool {
	c.unstuckCount++
	if c.unstuckCount >= c.Config.Thresholds.Unstuck {
		c.unstuckCount = 0
		return true
	}
	return false
}

// trackDetectionFailure returns true when detection failed often enough in a row to recover. A
// position outside of the minimap recovers right away.
func (c *Context) trackDetectionFailure() bool {
	if c.detectedOffMinimap {
		c.detectFailCount = 0
		return true
	}
	c.detectFailCount++
	if c.detectFailCount >= detectionFailureUnstucking {
		c.detectFailCount = 0
		return true
	}
	return false
}

// trackLastMovementRepeated counts the last movement for the action in progress and returns
// true when it has been repeated past its limit.
func (c *Context) trackLastMovementRepeated() bool {
	if c.lastMovement == MovementNone {
		return false
	}

	thresholds := c.Config.Thresholds
	autoMob := c.hasAutoMobActionOnly()
	var countMax uint32
	switch {
	case c.lastMovement.horizontal() && autoMob:
		countMax = thresholds.AutoMobHorizontalRepeat
	case c.lastMovement.horizontal():
		countMax = thresholds.HorizontalRepeat
	case autoMob:
		countMax = thresholds.AutoMobVerticalRepeat
	default:
		countMax = thresholds.VerticalRepeat
	}

	counts := c.lastMovementNormal
	if c.priorityAction != nil {
		counts = c.lastMovementPriority
	}
	if counts[c.lastMovement] < countMax {
		counts[c.lastMovement]++
	}

	return counts[c.lastMovement] >= countMax
}

func (c *Context) fallingThreshold(intermediate bool) int {
	if c.hasAutoMobActionOnly() || intermediate {
		return c.Config.Thresholds.Jump
	}
	return c.Config.Thresholds.Falling
}

func (c *Context) doubleJumpThreshold(intermediate bool) int {
	thresholds := c.Config.Thresholds
	switch {
	case c.hasAutoMobActionOnly() && !intermediate:
		return thresholds.DoubleJumpAutoMob
	case c.hasPingPongActionOnly():
		return 0
	case c.Config.hasTeleportKey():
		return thresholds.DoubleJump / 2
	default:
		return thresholds.DoubleJump
	}
}

func (c *Context) grapplingThreshold() int {
	if c.Config.hasTeleportKey() {
		return c.Config.Thresholds.GrapplingMax
	}
	return c.Config.Thresholds.Grappling
}

func (c *Context) shouldDisableGrappling() bool {
	cfg := c.Config
	return !cfg.hasGrapplingKey() ||
		(c.hasAutoMobActionOnly() && cfg.AutoMobPlatformsPathing && cfg.AutoMobPlatformsPathingUpJumpOnly) ||
		(c.hasRuneAction() && cfg.RunePlatformsPathing && cfg.RunePlatformsPathingUpJumpOnly)
}

// setStallingBuffer lets a stalling timeout run in the background of other states.
func (c *Context) setStallingBuffer(max uint32, onUpdate, onEnd StallingCallback) {
	c.stallingBuffer = &stallingBuffer{max: max, onUpdate: onUpdate, onEnd: onEnd}
}

func (c *Context) clearStallingBuffer(res *botCtx.Resources) {
	if c.stallingBuffer != nil && c.stallingBuffer.onEnd != nil {
		c.stallingBuffer.onEnd(res)
	}
	c.stallingBuffer = nil
}

// updateState refreshes the positional context. It returns false when the player could not be
// located this tick.
func (c *Context) updateState(res *botCtx.Resources, state State, minimap *game.Minimap, buffs *buff.Entities) bool {
	if !c.updatePositionState(res, minimap) {
		return false
	}
	if _, solving := state.(SolvingRune); !solving {
		c.health.UpdateHealth(res)
	}
	c.updateRuneValidatingState(res, buffs)
	c.health.UpdateDeath(res)
	c.updateStallingBufferState(res)

	return true
}

func (c *Context) updatePositionState(res *botCtx.Resources, minimap *game.Minimap) bool {
	c.detectedOffMinimap = false
	if minimap == nil {
		return false
	}
	bbox, err := res.Detector.DetectPlayer(minimap.BBox)
	if err != nil {
		return false
	}

	// Positions use a bottom-left origin inside the minimap.
	tl, br := bbox.TL(), bbox.BR()
	pos := game.Point{X: (tl.X + br.X) / 2, Y: minimap.BBox.Height - br.Y}
	if bounds := minimap.Bounds(); pos.X < 0 || pos.X > bounds.Width || pos.Y < 0 || pos.Y > bounds.Height {
		res.Logger.Debug("Player detected outside of the minimap", slog.Any("position", pos))
		c.detectedOffMinimap = true
		return false
	}

	if c.LastKnownPos != nil && *c.LastKnownPos != pos {
		c.unstuckCount = 0
		c.unstuckTransitionedCount = 0
		c.isStationaryTimeout = timeout.Timeout{}
	}
	c.updateVelocity(pos, res.Tick)

	t, lifecycle := timeout.Next(c.isStationaryTimeout, stationaryTimeout)
	c.isStationary = lifecycle == timeout.Ended
	c.isStationaryTimeout = t
	c.LastKnownPos = &pos
	c.detectFailCount = 0

	return true
}

// updateVelocity keeps a weighted average of the finite differences between samples, newer
// samples weigh more, then smooths it with the previous estimate.
func (c *Context) updateVelocity(pos game.Point, tick uint64) {
	if len(c.velocitySamples) == velocitySamples {
		c.velocitySamples = append(c.velocitySamples[:0], c.velocitySamples[1:]...)
	}
	c.velocitySamples = append(c.velocitySamples, velocitySample{pos: pos, tick: tick})
	if len(c.velocitySamples) < 2 {
		return
	}

	var sumX, sumY, totalWeight float64
	for i := 1; i < len(c.velocitySamples); i++ {
		a, b := c.velocitySamples[i-1], c.velocitySamples[i]
		if b.tick <= a.tick {
			continue
		}
		dt := float64(b.tick - a.tick)
		weight := float64(i)
		sumX += weight * float64(b.pos.X-a.pos.X) / dt
		sumY += weight * float64(b.pos.Y-a.pos.Y) / dt
		totalWeight += weight
	}
	if totalWeight == 0 {
		return
	}

	avgX := absFloat(sumX / totalWeight)
	avgY := absFloat(sumY / totalWeight)
	c.velocityX = 0.5*avgX + 0.5*c.velocityX
	c.velocityY = 0.5*avgY + 0.5*c.velocityY
}

func (c *Context) updateRuneValidatingState(res *botCtx.Resources, buffs *buff.Entities) {
	if c.runeValidateTimeout == nil {
		return
	}

	t, lifecycle := timeout.Next(*c.runeValidateTimeout, runeValidateTimeout)
	if lifecycle != timeout.Ended {
		c.runeValidateTimeout = &t
		return
	}

	c.runeValidateTimeout = nil
	if buffs.StateOf(game.BuffRune) == buff.No {
		c.trackRuneFailCount(res)
		res.Logger.Info("Rune was not solved", slog.Uint64("fail_count", uint64(c.runeFailedCount)))
		return
	}
	c.runeFailedCount = 0
}

func (c *Context) updateStallingBufferState(res *botCtx.Resources) {
	if c.stallingBuffer == nil {
		return
	}

	b := c.stallingBuffer
	t, lifecycle := timeout.Next(b.timeout, b.max)
	switch lifecycle {
	case timeout.Started:
		b.timeout = t
	case timeout.Updated:
		b.timeout = t
		if b.onUpdate != nil {
			b.onUpdate(res)
		}
	case timeout.Ended:
		if b.onEnd != nil {
			b.onEnd(res)
		}
		c.stallingBuffer = nil
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// position returns the last known position. Positional states are only updated after a
// successful detection so a missing position is a programming error.
func (c *Context) position() game.Point {
	if c.LastKnownPos == nil {
		panic("player: positional state without a known position")
	}
	return *c.LastKnownPos
}
