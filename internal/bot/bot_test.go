package bot

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisdk/komari-sub001/internal/config"
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/player"
	"github.com/thisdk/komari-sub001/internal/task"
)

const minimapHeight = 100

type fixedDetector struct {
	game.NullDetector
	pos game.Point
}

func (d fixedDetector) DetectPlayer(game.Rect) (game.Rect, error) {
	return game.Rect{X: d.pos.X, Y: minimapHeight - d.pos.Y}, nil
}

type recordingInput struct {
	mu      sync.Mutex
	presses map[game.KeyKind]int
}

func (r *recordingInput) KeyDown(game.KeyKind) error           { return nil }
func (r *recordingInput) KeyUp(game.KeyKind) error             { return nil }
func (r *recordingInput) Mouse(int, int, game.MouseKind) error { return nil }
func (r *recordingInput) Key(key game.KeyKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.presses == nil {
		r.presses = make(map[game.KeyKind]int)
	}
	r.presses[key]++
	return nil
}

func (r *recordingInput) count(key game.KeyKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.presses[key]
}

type countingNavigator struct {
	navigated int
	replans   int
}

func (n *countingNavigator) Navigate(*botCtx.Resources, *player.Entity, *game.Minimap) {
	n.navigated++
}

func (n *countingNavigator) Replan() { n.replans++ }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBot(t *testing.T, cfg config.Config, updates <-chan config.Config) (*Bot, *recordingInput, *task.Pool) {
	t.Helper()

	input := &recordingInput{}
	b, err := NewBot(Options{
		Config:   cfg,
		Detector: fixedDetector{pos: game.Point{X: 50, Y: 20}},
		Input:    input,
		Minimap: StaticMinimap{Value: &game.Minimap{
			BBox: game.Rect{Width: 200, Height: minimapHeight},
		}},
		Rotator: NewIntervalRotator(cfg.Rotation, cfg.TickInterval()),
		Logger:  discardLogger(),
		Updates: updates,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	pool := task.NewPool(ctx, 1, nil)
	t.Cleanup(func() {
		cancel()
		pool.Wait()
	})

	return b, input, pool
}

func rotationConfig() config.Config {
	cfg := config.Default()
	cfg.Rotation = []config.Rotation{{Key: game.KeyF, Every: time.Second, Count: 1}}
	return cfg
}

func TestNewBotNeedsBackends(t *testing.T) {
	_, err := NewBot(Options{Config: config.Default()})
	assert.ErrorIs(t, err, ErrMissingBackend)
}

func TestStepDetectsPlayerAndPublishesSnapshot(t *testing.T) {
	b, _, pool := newTestBot(t, config.Default(), nil)

	require.NoError(t, b.step(pool))

	s := b.Snapshot()
	assert.Equal(t, uint64(1), s.Tick)
	assert.Equal(t, "Idle", s.State)
	require.NotNil(t, s.Position)
	assert.Equal(t, game.Point{X: 50, Y: 20}, *s.Position)
	assert.Equal(t, "no", s.Buffs["rune"])
	assert.False(t, s.Halting)
}

func TestStepRunsRotation(t *testing.T) {
	b, input, pool := newTestBot(t, rotationConfig(), nil)

	for range 20 {
		require.NoError(t, b.step(pool))
	}

	assert.Equal(t, 1, input.count(game.KeyF))
	assert.Empty(t, b.Snapshot().NormalAction)
}

func TestStepKeepsPriorityRotationUntilStateInterruptible(t *testing.T) {
	cfg := config.Default()
	cfg.Rotation = []config.Rotation{{Key: game.KeyG, Every: time.Second, Priority: true}}
	b, _, pool := newTestBot(t, cfg, nil)
	b.entity.State = player.Stalling{Max: 1000}

	require.NoError(t, b.step(pool))

	s := b.Snapshot()
	assert.Equal(t, "Stalling", s.State)
	assert.Empty(t, s.PriorityAction)

	b.entity.State = player.Idle{}
	require.NoError(t, b.step(pool))

	assert.Equal(t, "Key(g)", b.Snapshot().PriorityAction)
}

func TestHaltClearsActionsAndStopsRotation(t *testing.T) {
	b, input, pool := newTestBot(t, rotationConfig(), nil)
	nav := &countingNavigator{}
	b.navigator = nav

	require.NoError(t, b.step(pool))
	require.NotEmpty(t, b.Snapshot().NormalAction)

	b.Halt()
	assert.True(t, b.IsHalting())
	for range 60 {
		require.NoError(t, b.step(pool))
	}

	s := b.Snapshot()
	assert.True(t, s.Halting)
	assert.Empty(t, s.NormalAction)
	assert.Equal(t, "Idle", s.State)
	assert.Equal(t, 1, nav.navigated)
	assert.Zero(t, input.count(game.KeyF))

	b.Resume()
	require.NoError(t, b.step(pool))
	assert.False(t, b.Snapshot().Halting)
	assert.Equal(t, "Key(f)", b.Snapshot().NormalAction)
}

func TestApplyUpdatesReplacesConfig(t *testing.T) {
	updates := make(chan config.Config, 2)
	b, _, _ := newTestBot(t, config.Default(), updates)

	assert.Zero(t, b.applyUpdates())

	first := config.Default()
	first.Settings.TickRate = 10
	second := config.Default()
	second.Settings.TickRate = 20
	second.Player.Keys.Jump = game.KeyAlt
	second.Rotation = []config.Rotation{{Key: game.KeyG, Every: time.Second}}
	second.Minimap = config.Minimap{Width: 120, Height: 60}
	minimap := &StaticMinimap{}
	b.minimap = minimap
	updates <- first
	updates <- second

	assert.Equal(t, time.Second/20, b.applyUpdates())
	assert.Equal(t, game.KeyAlt, b.entity.Context.Config.JumpKey)
	assert.Equal(t, 20, b.cfg.Settings.TickRate)

	rotations := b.rotator.(*IntervalRotator).rotations
	require.Len(t, rotations, 1)
	assert.Equal(t, game.KeyG, rotations[0].action.Key)
	assert.Equal(t, uint64(20), rotations[0].every)
	require.NotNil(t, minimap.Minimap())
	assert.Equal(t, game.Rect{Width: 120, Height: 60}, minimap.Minimap().BBox)
}

func TestRunTicksUntilCancelled(t *testing.T) {
	cfg := config.Default()
	cfg.Settings.TickRate = 100
	b, _, _ := newTestBot(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool {
		return b.Snapshot().Tick >= 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "bot did not stop after cancellation")
	}
}
