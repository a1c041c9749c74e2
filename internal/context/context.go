package context

import (
	"log/slog"
	"math/rand/v2"

	"github.com/thisdk/komari-sub001/internal/event"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/task"
)

// Resources is the bundle handed to every state update during one tick. It is built once per
// tick by the runner, nothing in it is global.
type Resources struct {
	Name     string
	Detector game.Detector
	HID      *game.HID
	Rng      *rand.Rand
	Tick     uint64
	Logger   *slog.Logger
	Events   *event.Listener
	Pool     *task.Pool
	// Halting is set while the operation is paused, detection failures do not trigger recovery.
	Halting bool
}

// Source names events emitted during this tick.
func (r *Resources) Source() string {
	if r.Name == "" {
		return "komari"
	}
	return r.Name
}

// SendEvent is a nil-safe shortcut for Events.Send.
func (r *Resources) SendEvent(e event.Event) {
	if r.Events != nil {
		r.Events.Send(e)
	}
}

// RandomRange returns a uniform integer in [min, max). It returns min when the range is empty.
func (r *Resources) RandomRange(min, max int) int {
	if max <= min {
		return min
	}
	return min + r.Rng.IntN(max-min)
}

// RandomBool returns true with the given probability.
func (r *Resources) RandomBool(probability float64) bool {
	return r.Rng.Float64() < probability
}
