package player

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"

	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/task"
)

type inputEvent struct {
	kind string
	key  game.KeyKind
}

type fakeInput struct {
	mu     sync.Mutex
	events []inputEvent
	clicks []game.Point
}

func (f *fakeInput) record(kind string, key game.KeyKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, inputEvent{kind: kind, key: key})
	return nil
}

func (f *fakeInput) KeyDown(key game.KeyKind) error { return f.record("down", key) }
func (f *fakeInput) KeyUp(key game.KeyKind) error   { return f.record("up", key) }
func (f *fakeInput) Key(key game.KeyKind) error     { return f.record("press", key) }

func (f *fakeInput) Mouse(x, y int, kind game.MouseKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kind == game.MouseClick {
		f.clicks = append(f.clicks, game.Point{X: x, Y: y})
	}
	return nil
}

func (f *fakeInput) pressed(key game.KeyKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, e := range f.events {
		if e.kind == "press" && e.key == key {
			count++
		}
	}
	return count
}

func (f *fakeInput) wentDown(key game.KeyKind) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, e := range f.events {
		if e.kind == "down" && e.key == key {
			return true
		}
	}
	return false
}

// fakeDetector answers the probes the player states use. Probes not overridden here panic
// through the nil embedded interface.
type fakeDetector struct {
	game.Detector

	mu           sync.Mutex
	player       *game.Point
	minimapH     int
	inCashShop   bool
	escSettings  bool
	chatOpened   bool
	adminVisible bool
	runeArrows   *game.ArrowsState
}

func (d *fakeDetector) DetectPlayer(game.Rect) (game.Rect, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.player == nil {
		return game.Rect{}, game.ErrNotFound
	}
	// Inverse of the bottom-left conversion done by the context.
	return game.Rect{X: d.player.X, Y: d.minimapH - d.player.Y}, nil
}

func (d *fakeDetector) setPlayer(p *game.Point) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.player = p
}

func (d *fakeDetector) DetectPlayerIsDead() bool { return false }

func (d *fakeDetector) DetectPlayerInCashShop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inCashShop
}

func (d *fakeDetector) DetectEscSettings() bool    { return d.escSettings }
func (d *fakeDetector) DetectChatMenuOpened() bool { return d.chatOpened }
func (d *fakeDetector) DetectAdminVisible() bool   { return d.adminVisible }

func (d *fakeDetector) DetectPopupOkNewButton() (game.Rect, error) {
	return game.Rect{}, game.ErrNotFound
}

func (d *fakeDetector) DetectPopupConfirmButton() (game.Rect, error) {
	return game.Rect{}, game.ErrNotFound
}

func (d *fakeDetector) DetectChangeChannelMenuOpened() bool { return true }

func (d *fakeDetector) DetectRuneArrows(game.ArrowsCalibrating) (game.ArrowsState, error) {
	if d.runeArrows == nil {
		return game.ArrowsState{}, game.ErrNotFound
	}
	return *d.runeArrows, nil
}

func (d *fakeDetector) DetectLieDetector() (game.Rect, error) {
	return game.Rect{}, game.ErrNotFound
}

func (d *fakeDetector) DetectHexaQuickMenu() (game.Rect, error) {
	return game.Rect{}, game.ErrNotFound
}

type testHarness struct {
	res      *botCtx.Resources
	input    *fakeInput
	detector *fakeDetector
	minimap  *game.Minimap
	entity   *Entity
}

func newTestHarness(t *testing.T, cfg Config) *testHarness {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	input := &fakeInput{}
	detector := &fakeDetector{minimapH: 100}
	pool := task.NewPool(context.Background(), 1, nil)
	t.Cleanup(pool.Wait)

	return &testHarness{
		res: &botCtx.Resources{
			Name:     "test",
			Detector: detector,
			HID:      game.NewHID(input, logger),
			Rng:      rand.New(rand.NewPCG(1, 2)),
			Logger:   logger,
			Pool:     pool,
		},
		input:    input,
		detector: detector,
		minimap:  &game.Minimap{BBox: game.Rect{Width: 200, Height: 100}},
		entity:   NewEntity(cfg, nil),
	}
}

// at places the player at pos without going through detection.
func (h *testHarness) at(pos game.Point) {
	h.entity.Context.LastKnownPos = &pos
}

func (h *testHarness) tick() {
	h.res.Tick++
	Update(h.res, h.entity, h.minimap, nil)
}
