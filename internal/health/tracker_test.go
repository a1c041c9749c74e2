package health

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/event"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/task"
)

type healthDetector struct {
	game.NullDetector
	current, max int
	dead         bool
}

func (d healthDetector) DetectPlayerHealthBar() (game.Rect, error) {
	return game.Rect{X: 100, Y: 500, Width: 200, Height: 10}, nil
}

func (d healthDetector) DetectPlayerCurrentMaxHealthBars(game.Rect) (game.Rect, game.Rect, error) {
	return game.Rect{Width: 1}, game.Rect{Width: 2}, nil
}

func (d healthDetector) DetectPlayerHealth(game.Rect, game.Rect) (int, int, error) {
	return d.current, d.max, nil
}

func (d healthDetector) DetectPlayerIsDead() bool { return d.dead }

func (d healthDetector) DetectPopupOkNewButton() (game.Rect, error) {
	return game.Rect{X: 10, Y: 10, Width: 10, Height: 10}, nil
}

type recordingInput struct {
	mu      sync.Mutex
	presses []game.KeyKind
	clicks  []game.Point
}

func (r *recordingInput) KeyDown(game.KeyKind) error { return nil }
func (r *recordingInput) KeyUp(game.KeyKind) error   { return nil }
func (r *recordingInput) Key(key game.KeyKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presses = append(r.presses, key)
	return nil
}

func (r *recordingInput) Mouse(x, y int, kind game.MouseKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if kind == game.MouseClick {
		r.clicks = append(r.clicks, game.Point{X: x, Y: y})
	}
	return nil
}

func (r *recordingInput) snapshot() ([]game.KeyKind, []game.Point) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]game.KeyKind(nil), r.presses...), append([]game.Point(nil), r.clicks...)
}

func newResources(t *testing.T, detector game.Detector, input game.Input, events *event.Listener) *botCtx.Resources {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	pool := task.NewPool(ctx, 2, nil)
	t.Cleanup(func() {
		cancel()
		pool.Wait()
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &botCtx.Resources{
		Name:     "test",
		Detector: detector,
		HID:      game.NewHID(input, logger),
		Rng:      rand.New(rand.NewPCG(1, 2)),
		Logger:   logger,
		Events:   events,
		Pool:     pool,
	}
}

func TestUpdateHealthUsesPotionBelowRatio(t *testing.T) {
	input := &recordingInput{}
	res := newResources(t, healthDetector{current: 20, max: 100}, input, nil)
	tracker := NewTracker(Config{PotionKey: game.KeyF1, UsePotionBelow: 0.5, UpdateInterval: time.Hour})

	require.Eventually(t, func() bool {
		tracker.UpdateHealth(res)
		presses, _ := input.snapshot()
		return len(presses) > 0
	}, 5*time.Second, time.Millisecond)

	h, ok := tracker.Health()
	require.True(t, ok)
	assert.Equal(t, Health{Current: 20, Max: 100}, h)
	assert.InDelta(t, 0.2, h.Ratio(), 1e-9)

	// The next reading waits for the update interval.
	for range 10 {
		tracker.UpdateHealth(res)
	}
	presses, _ := input.snapshot()
	assert.Equal(t, []game.KeyKind{game.KeyF1}, presses)
}

func TestUpdateHealthAboveRatioDoesNothing(t *testing.T) {
	input := &recordingInput{}
	res := newResources(t, healthDetector{current: 90, max: 100}, input, nil)
	tracker := NewTracker(Config{PotionKey: game.KeyF1, UsePotionBelow: 0.5})

	require.Eventually(t, func() bool {
		tracker.UpdateHealth(res)
		_, ok := tracker.Health()
		return ok
	}, 5*time.Second, time.Millisecond)

	presses, _ := input.snapshot()
	assert.Empty(t, presses)
}

func TestUpdateHealthDisabled(t *testing.T) {
	res := newResources(t, healthDetector{current: 1, max: 100}, &recordingInput{}, nil)
	tracker := NewTracker(Config{PotionKey: game.KeyF1})

	tracker.UpdateHealth(res)

	_, ok := tracker.Health()
	assert.False(t, ok)
}

func TestUpdateDeathSendsEventAndClicksOk(t *testing.T) {
	events := event.NewListener(slog.New(slog.NewTextHandler(io.Discard, nil)), 4)
	var mu sync.Mutex
	var got []string
	events.Register(func(_ context.Context, e event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Message())
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go events.Listen(ctx)

	input := &recordingInput{}
	res := newResources(t, healthDetector{dead: true}, input, events)
	tracker := NewTracker(Config{})

	require.Eventually(t, func() bool {
		tracker.UpdateDeath(res)
		_, clicks := input.snapshot()
		return len(clicks) > 0
	}, 5*time.Second, time.Millisecond)

	assert.True(t, tracker.IsDead())
	_, clicks := input.snapshot()
	assert.Equal(t, game.Point{X: 15, Y: 15}, clicks[0])
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"Player died"}, got)
	mu.Unlock()

	tracker.Reset()
	assert.False(t, tracker.IsDead())
}
