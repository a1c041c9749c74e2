package bot

import (
	"github.com/thisdk/komari-sub001/internal/config"
	"github.com/thisdk/komari-sub001/internal/game"
)

// StaticMinimap always returns the same minimap. Used by pointer, it follows the minimap
// layout of reloaded configs.
type StaticMinimap struct {
	Value *game.Minimap
}

func (m StaticMinimap) Minimap() *game.Minimap {
	return m.Value
}

func (m *StaticMinimap) Configure(cfg config.Config) {
	m.Value = cfg.StaticMinimap()
}
