package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/player"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "komari.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, player.DefaultConfig().Thresholds, cfg.PlayerConfig().Thresholds)
	assert.Equal(t, time.Second/30, cfg.TickInterval())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
settings:
  name: mule
  tick_rate: 20
player:
  class: blaster
  use_potion_below: 40
  update_health_interval: 2s
  keys:
    jump: alt
    teleport: shift
    familiar: f5
thresholds:
  double_jump: 30
rotation:
  - key: f
    every: 3s
    direction: left
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mule", cfg.Settings.Name)
	assert.Equal(t, 20, cfg.Settings.TickRate)
	assert.Equal(t, int64(4), cfg.Settings.Workers)

	p := cfg.PlayerConfig()
	assert.Equal(t, player.ClassBlaster, p.Class)
	assert.Equal(t, game.KeyAlt, p.JumpKey)
	assert.Equal(t, game.KeyShift, p.TeleportKey)
	assert.Equal(t, game.KeyF5, p.FamiliarKey)
	assert.Equal(t, game.KeyA, p.InteractKey)
	assert.InDelta(t, 0.4, p.UsePotionBelow, 1e-9)
	assert.Equal(t, 2*time.Second, p.UpdateHealthInterval)
	assert.Equal(t, 30, p.Thresholds.DoubleJump)
	assert.Equal(t, player.DefaultThresholds().Jump, p.Thresholds.Jump)

	require.Len(t, cfg.Rotation, 1)
	assert.Equal(t, game.KeyF, cfg.Rotation[0].Key)
	assert.Equal(t, 3*time.Second, cfg.Rotation[0].Every)
	assert.Equal(t, player.DirectionLeft, cfg.Rotation[0].Direction)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "player:\n  keys:\n    jump: nope\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "unknown key")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "tick rate", modify: func(c *Config) { c.Settings.TickRate = 0 }},
		{name: "workers", modify: func(c *Config) { c.Settings.Workers = 0 }},
		{name: "potion percent", modify: func(c *Config) { c.Player.UsePotionBelow = 120 }},
		{name: "potion key", modify: func(c *Config) {
			c.Player.UsePotionBelow = 50
			c.Player.Keys.Potion = game.KeyNone
		}},
		{name: "jump key", modify: func(c *Config) { c.Player.Keys.Jump = game.KeyNone }},
		{name: "jump range", modify: func(c *Config) { c.Thresholds.JumpMin = c.Thresholds.Jump + 1 }},
		{name: "grappling range", modify: func(c *Config) { c.Thresholds.Grappling = c.Thresholds.GrapplingMax + 1 }},
		{name: "repeat", modify: func(c *Config) { c.Thresholds.VerticalRepeat = 0 }},
		{name: "unstuck", modify: func(c *Config) { c.Thresholds.UnstuckGamba = 0 }},
		{name: "rotation key", modify: func(c *Config) { c.Rotation = []Rotation{{Every: time.Second}} }},
		{name: "rotation interval", modify: func(c *Config) { c.Rotation = []Rotation{{Key: game.KeyF}} }},
		{name: "discord", modify: func(c *Config) { c.Notifications.Discord.Enabled = true }},
		{name: "telegram", modify: func(c *Config) {
			c.Notifications.Telegram = Telegram{Enabled: true, Token: "t"}
		}},
		{name: "telemetry", modify: func(c *Config) { c.Telemetry = Telemetry{Enabled: true} }},
		{name: "minimap size", modify: func(c *Config) { c.Minimap.Width = 100 }},
		{name: "platform", modify: func(c *Config) {
			c.Minimap = Minimap{Width: 100, Height: 50, Platforms: []game.Platform{{XStart: 20, XEnd: 10}}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestStaticMinimap(t *testing.T) {
	cfg := Default()
	assert.Nil(t, cfg.StaticMinimap())

	cfg.Minimap = Minimap{Width: 200, Height: 80, Platforms: []game.Platform{{XStart: 10, XEnd: 60, Y: 20}}}
	m := cfg.StaticMinimap()
	require.NotNil(t, m)
	assert.Equal(t, game.Rect{Width: 200, Height: 80}, m.Bounds())
	assert.Equal(t, cfg.Minimap.Platforms, m.Platforms)
	assert.Nil(t, m.Rune)
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "settings:\n  tick_rate: 30\n")

	w := NewWatcher(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := make(chan Config, 1)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, updates) }()

	// Writes before the watcher is registered are missed, so keep writing until one lands.
	var got Config
	require.Eventually(t, func() bool {
		writeConfig(t, dir, "settings:\n  tick_rate: 15\n")
		select {
		case got = <-updates:
			return true
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, 15, got.Settings.TickRate)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherIgnoresInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "settings:\n  tick_rate: 30\n")

	w := NewWatcher(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan Config, 1)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, updates) }()

	for range 5 {
		writeConfig(t, dir, "settings:\n  tick_rate: 0\n")
		time.Sleep(30 * time.Millisecond)
	}

	assert.Empty(t, updates)
	cancel()
	require.NoError(t, <-done)
}

func TestSampleConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "komari.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default().Thresholds, cfg.Thresholds)
	assert.Equal(t, game.KeyTilde, cfg.Player.Keys.CashShop)
	assert.Len(t, cfg.Rotation, 2)
	assert.Nil(t, cfg.StaticMinimap())
}
