package bot

import (
	"log/slog"
	"time"

	"github.com/thisdk/komari-sub001/internal/config"
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/player"
)

type rotation struct {
	action   player.Key
	priority bool
	every    uint64
	next     uint64
}

// IntervalRotator uses each configured key on a fixed tick interval. Priority entries interrupt
// the normal one once the player state allows it, normal entries wait for the previous normal
// action to complete.
type IntervalRotator struct {
	rotations []rotation
	nextID    uint32
}

func NewIntervalRotator(entries []config.Rotation, tick time.Duration) *IntervalRotator {
	return &IntervalRotator{rotations: newRotations(entries, tick)}
}

func newRotations(entries []config.Rotation, tick time.Duration) []rotation {
	var rotations []rotation
	for _, e := range entries {
		every := uint64(1)
		if tick > 0 && e.Every > tick {
			every = uint64(e.Every / tick)
		}
		count := e.Count
		if count == 0 {
			count = 1
		}
		rotations = append(rotations, rotation{
			action: player.Key{
				Key:          e.Key,
				KeyHoldTicks: e.HoldTicks,
				Count:        count,
				Direction:    e.Direction,
			},
			priority: e.Priority,
			every:    every,
		})
	}

	return rotations
}

// Configure replaces the entries with the ones of cfg, all due on the next rotation.
func (r *IntervalRotator) Configure(cfg config.Config) {
	r.rotations = newRotations(cfg.Rotation, cfg.TickInterval())
}

func (r *IntervalRotator) Rotate(res *botCtx.Resources, e *player.Entity) {
	ctx := e.Context
	interruptible := player.CanInterrupt(e.State, ctx.LastKnownPos)

	for i := range r.rotations {
		rot := &r.rotations[i]
		if res.Tick < rot.next {
			continue
		}

		if rot.priority {
			if !interruptible || ctx.HasPriorityAction() {
				continue
			}
			ctx.SetPriorityAction(r.id(), rot.action)
		} else {
			if ctx.HasNormalAction() {
				continue
			}
			ctx.SetNormalAction(r.id(), rot.action)
		}
		rot.next = res.Tick + rot.every
		res.Logger.Debug("Rotating key",
			slog.String("key", rot.action.Key.String()),
			slog.Bool("priority", rot.priority),
			slog.Uint64("next", rot.next),
		)
	}
}

// Reset makes every entry due on the next rotation.
func (r *IntervalRotator) Reset() {
	for i := range r.rotations {
		r.rotations[i].next = 0
	}
}

func (r *IntervalRotator) id() uint32 {
	r.nextID++
	return r.nextID
}
