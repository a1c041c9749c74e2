package bot

import (
	"github.com/thisdk/komari-sub001/internal/buff"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/health"
	"github.com/thisdk/komari-sub001/internal/player"
)

// Snapshot is the read-only view of the player published after every tick.
type Snapshot struct {
	Name           string            `json:"name"`
	Tick           uint64            `json:"tick"`
	Halting        bool              `json:"halting"`
	State          string            `json:"state"`
	Position       *game.Point       `json:"position,omitempty"`
	Destinations   []game.Point      `json:"destinations,omitempty"`
	NormalAction   string            `json:"normal_action,omitempty"`
	PriorityAction string            `json:"priority_action,omitempty"`
	Health         *health.Health    `json:"health,omitempty"`
	Dead           bool              `json:"dead"`
	Stationary     bool              `json:"stationary"`
	VelocityX      float64           `json:"velocity_x"`
	VelocityY      float64           `json:"velocity_y"`
	Buffs          map[string]string `json:"buffs"`
}

func newSnapshot(name string, tick uint64, halting bool, e *player.Entity, buffs *buff.Entities) Snapshot {
	ctx := e.Context
	s := Snapshot{
		Name:       name,
		Tick:       tick,
		Halting:    halting,
		State:      e.State.String(),
		Dead:       ctx.IsDead(),
		Stationary: ctx.IsStationary(),
		Buffs:      make(map[string]string, len(buffs)),
	}

	if ctx.LastKnownPos != nil {
		pos := *ctx.LastKnownPos
		s.Position = &pos
	}
	if len(ctx.LastDestinations) > 0 {
		s.Destinations = append([]game.Point(nil), ctx.LastDestinations...)
	}
	if a := ctx.NormalAction(); a != nil {
		s.NormalAction = a.String()
	}
	if a := ctx.PriorityAction(); a != nil {
		s.PriorityAction = a.String()
	}
	if h, ok := ctx.Health(); ok {
		s.Health = &h
	}
	s.VelocityX, s.VelocityY = ctx.Velocity()

	for i := range buffs {
		kind := game.BuffKind(i)
		s.Buffs[kind.String()] = buffs.StateOf(kind).String()
	}

	return s
}
