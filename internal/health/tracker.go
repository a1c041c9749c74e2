package health

import (
	"fmt"
	"log/slog"
	"time"

	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/event"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/task"
)

const (
	healthBarCooldown  = time.Second
	isDeadCooldown     = 3 * time.Second
	deadButtonCooldown = time.Second
)

type Config struct {
	PotionKey game.KeyKind
	// UsePotionBelow is a ratio in (0, 1], zero disables health tracking.
	UsePotionBelow float64
	UpdateInterval time.Duration
}

type Health struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

func (h Health) Ratio() float64 {
	if h.Max <= 0 {
		return 0
	}
	return float64(h.Current) / float64(h.Max)
}

// Tracker keeps the cached health bar, the last health reading and the dead flag. All
// detections go through task slots so a tick never waits on the detector.
type Tracker struct {
	cfg Config

	health     *Health
	healthBar  *game.Rect
	barSlot    task.Slot[game.Rect]
	healthSlot task.Slot[Health]

	dead           bool
	deadSlot       task.Slot[bool]
	deadButtonSlot task.Slot[game.Rect]
}

func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

func (t *Tracker) Health() (Health, bool) {
	if t.health == nil {
		return Health{}, false
	}
	return *t.health, true
}

func (t *Tracker) IsDead() bool {
	return t.dead
}

// Reset drops every cached reading and abandons in-flight detections.
func (t *Tracker) Reset() {
	t.health = nil
	t.healthBar = nil
	t.barSlot.Reset()
	t.healthSlot.Reset()
	t.dead = false
	t.deadSlot.Reset()
	t.deadButtonSlot.Reset()
}

// UpdateHealth refreshes the health reading and presses the potion key when it is at or below
// the configured ratio.
func (t *Tracker) UpdateHealth(res *botCtx.Resources) {
	if t.cfg.UsePotionBelow <= 0 {
		if t.health != nil || t.healthBar != nil {
			t.health = nil
			t.healthBar = nil
			t.barSlot.Reset()
			t.healthSlot.Reset()
		}
		return
	}

	detector := res.Detector
	if t.healthBar == nil {
		update := task.Poll(res.Pool, &t.barSlot, healthBarCooldown, detector.DetectPlayerHealthBar)
		if update.Status == task.Ok {
			bar := update.Value
			t.healthBar = &bar
			res.Logger.Debug("Health bar detected", slog.Any("bbox", bar))
		}
		return
	}

	bar := *t.healthBar
	interval := t.cfg.UpdateInterval
	if interval <= 0 {
		interval = time.Second
	}
	update := task.Poll(res.Pool, &t.healthSlot, interval, func() (Health, error) {
		current, max, err := detector.DetectPlayerCurrentMaxHealthBars(bar)
		if err != nil {
			return Health{}, fmt.Errorf("detecting health bars: %w", err)
		}
		c, m, err := detector.DetectPlayerHealth(current, max)
		if err != nil {
			return Health{}, fmt.Errorf("reading health: %w", err)
		}
		return Health{Current: c, Max: m}, nil
	})
	if update.Status != task.Ok {
		return
	}

	h := update.Value
	t.health = &h
	if h.Ratio() <= t.cfg.UsePotionBelow {
		res.HID.PressKey(t.cfg.PotionKey)
		res.Logger.Debug(fmt.Sprintf("Using potion. HP: %d/%d", h.Current, h.Max))
		res.SendEvent(event.UsedPotion(event.Text(res.Source(), ""), h.Current, h.Max))
	}
}

// UpdateDeath polls whether the player is dead. On the transition to dead an event is sent,
// and while dead the tomb OK button is clicked.
func (t *Tracker) UpdateDeath(res *botCtx.Resources) {
	detector := res.Detector
	update := task.Poll(res.Pool, &t.deadSlot, isDeadCooldown, func() (bool, error) {
		return detector.DetectPlayerIsDead(), nil
	})
	if update.Status != task.Ok {
		return
	}

	dead := update.Value
	if dead && !t.dead {
		res.Logger.Info("Player died")
		res.SendEvent(event.PlayerDied(event.Text(res.Source(), "")))
	}
	if dead {
		button := task.Poll(res.Pool, &t.deadButtonSlot, deadButtonCooldown, detector.DetectPopupOkNewButton)
		switch button.Status {
		case task.Ok:
			res.HID.Click(button.Value.Center())
		case task.Err:
			res.HID.Mouse(300, 100, game.MouseMove)
		}
	}
	t.dead = dead
}
