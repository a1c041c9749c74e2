package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thisdk/komari-sub001/internal/buff"
	"github.com/thisdk/komari-sub001/internal/config"
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/event"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/player"
	"github.com/thisdk/komari-sub001/internal/task"
)

var ErrMissingBackend = errors.New("bot needs a detector and an input backend")

// Rotator supplies the actions the player runs when nothing more urgent is queued. Priority
// actions must only be set while player.CanInterrupt allows it.
type Rotator interface {
	Rotate(res *botCtx.Resources, e *player.Entity)
	Reset()
}

// Navigator supplies priority actions that move the player between maps, under the same
// player.CanInterrupt rule as the Rotator. Replan is called when the player asked for a new
// route after being stuck.
type Navigator interface {
	Navigate(res *botCtx.Resources, e *player.Entity, minimap *game.Minimap)
	Replan()
}

// configurable is implemented by collaborators that follow config reloads.
type configurable interface {
	Configure(cfg config.Config)
}

// MinimapProvider returns the current minimap, nil while it is being detected.
type MinimapProvider interface {
	Minimap() *game.Minimap
}

type Options struct {
	Config    config.Config
	Detector  game.Detector
	Input     game.Input
	Minimap   MinimapProvider
	Rotator   Rotator
	Navigator Navigator
	Pather    player.Pather
	Events    *event.Listener
	Logger    *slog.Logger
	// Updates delivers reloaded configs, applied at the start of the next tick.
	Updates <-chan config.Config
}

type Bot struct {
	name      string
	logger    *slog.Logger
	detector  game.Detector
	hid       *game.HID
	events    *event.Listener
	minimap   MinimapProvider
	rotator   Rotator
	navigator Navigator
	updates   <-chan config.Config
	rng       *rand.Rand

	cfg        config.Config
	entity     *player.Entity
	buffs      buff.Entities
	tick       uint64
	wasHalting bool

	halting  atomic.Bool
	snapshot atomic.Pointer[Snapshot]
}

func NewBot(opts Options) (*Bot, error) {
	if opts.Detector == nil || opts.Input == nil {
		return nil, ErrMissingBackend
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &Bot{
		name:      opts.Config.Settings.Name,
		logger:    logger,
		detector:  opts.Detector,
		hid:       game.NewHID(opts.Input, logger),
		events:    opts.Events,
		minimap:   opts.Minimap,
		rotator:   opts.Rotator,
		navigator: opts.Navigator,
		updates:   opts.Updates,
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		cfg:       opts.Config,
		entity:    player.NewEntity(opts.Config.PlayerConfig(), opts.Pather),
		buffs:     buff.NewEntities(),
	}
	b.snapshot.Store(&Snapshot{Name: b.name, State: b.entity.State.String()})

	return b, nil
}

// Halt pauses the operation. The player keeps being detected but recovery is not triggered
// and the rotator stops supplying actions.
func (b *Bot) Halt() {
	if !b.halting.Swap(true) {
		b.logger.Info("Halting operation")
	}
}

func (b *Bot) Resume() {
	if b.halting.Swap(false) {
		b.logger.Info("Resuming operation")
	}
}

func (b *Bot) IsHalting() bool {
	return b.halting.Load()
}

// Snapshot returns the state published at the end of the last tick. It is safe to call from
// any goroutine.
func (b *Bot) Snapshot() Snapshot {
	return *b.snapshot.Load()
}

// Run ticks the player until ctx is done. The event listener runs alongside the tick loop and
// every key still held is released on exit.
func (b *Bot) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	pool := task.NewPool(ctx, b.cfg.Settings.Workers, nil)

	if b.events != nil {
		g.Go(func() error {
			return b.events.Listen(ctx)
		})
	}

	g.Go(func() error {
		defer b.hid.ReleaseAll()

		interval := b.cfg.TickInterval()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		b.logger.Info("Starting tick loop", slog.String("name", b.name), slog.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if next := b.applyUpdates(); next > 0 && next != interval {
					interval = next
					ticker.Reset(interval)
				}
				if err := b.step(pool); err != nil {
					cancel()
					return err
				}
			}
		}
	})

	err := g.Wait()
	pool.Wait()

	return err
}

// applyUpdates drains pending configs and returns the tick interval of the latest one, zero
// when nothing changed.
func (b *Bot) applyUpdates() time.Duration {
	var interval time.Duration
	for {
		select {
		case cfg := <-b.updates:
			b.cfg = cfg
			b.entity.Context.SetConfig(cfg.PlayerConfig())
			if c, ok := b.minimap.(configurable); ok {
				c.Configure(cfg)
			}
			if c, ok := b.rotator.(configurable); ok {
				c.Configure(cfg)
			}
			if b.rotator != nil {
				b.rotator.Reset()
			}
			interval = cfg.TickInterval()
			b.logger.Info("Applied new configuration", slog.Duration("interval", interval))
		default:
			return interval
		}
	}
}

func (b *Bot) step(pool *task.Pool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("player state machine panicked at tick %d: %v", b.tick, r)
		}
	}()

	b.tick++
	halting := b.halting.Load()
	res := &botCtx.Resources{
		Name:     b.name,
		Detector: b.detector,
		HID:      b.hid,
		Rng:      b.rng,
		Tick:     b.tick,
		Logger:   b.logger,
		Events:   b.events,
		Pool:     pool,
		Halting:  halting,
	}
	ctx := b.entity.Context

	if halting && !b.wasHalting {
		if b.rotator != nil {
			b.rotator.Reset()
		}
		ctx.ClearActionsAborted(true)
		b.hid.ReleaseAll()
	}
	b.wasHalting = halting

	var minimap *game.Minimap
	if b.minimap != nil {
		minimap = b.minimap.Minimap()
	}

	_, inCashShop := b.entity.State.(player.CashShopThenExit)
	b.buffs.Update(res, inCashShop)

	if !halting {
		if b.navigator != nil {
			if ctx.TakeReplanRequest() {
				b.navigator.Replan()
			}
			b.navigator.Navigate(res, b.entity, minimap)
		}
		if b.rotator != nil {
			b.rotator.Rotate(res, b.entity)
		}
	}

	prev := b.entity.State
	player.Update(res, b.entity, minimap, &b.buffs)
	if prev.String() != b.entity.State.String() {
		b.logger.Debug("Player state changed",
			slog.String("from", prev.String()),
			slog.String("to", b.entity.State.String()),
		)
	}

	snapshot := newSnapshot(b.name, b.tick, halting, b.entity, &b.buffs)
	b.snapshot.Store(&snapshot)

	return nil
}
