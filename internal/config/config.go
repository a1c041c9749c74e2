package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/player"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Settings      Settings      `yaml:"settings"`
	Player        Player        `yaml:"player"`
	Thresholds    Thresholds    `yaml:"thresholds"`
	Rotation      []Rotation    `yaml:"rotation"`
	Minimap       Minimap       `yaml:"minimap"`
	Notifications Notifications `yaml:"notifications"`
	Telemetry     Telemetry     `yaml:"telemetry"`
}

type Settings struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
	Debug    bool   `yaml:"debug"`
	LogDir   string `yaml:"log_dir"`
	// TickRate is the number of ticks per second.
	TickRate int   `yaml:"tick_rate"`
	Workers  int64 `yaml:"workers"`
}

type Player struct {
	Class player.Class `yaml:"class"`

	UpJumpIsFlight              bool `yaml:"up_jump_is_flight"`
	UpJumpSpecificKeyShouldJump bool `yaml:"up_jump_specific_key_should_jump"`
	DisableDoubleJumping        bool `yaml:"disable_double_jumping"`
	DisableAdjusting            bool `yaml:"disable_adjusting"`
	DisableTeleportOnFall       bool `yaml:"disable_teleport_on_fall"`

	RunePlatformsPathing           bool `yaml:"rune_platforms_pathing"`
	RunePlatformsPathingUpJumpOnly bool `yaml:"rune_platforms_pathing_up_jump_only"`

	AutoMobPlatformsPathing           bool          `yaml:"auto_mob_platforms_pathing"`
	AutoMobPlatformsPathingUpJumpOnly bool          `yaml:"auto_mob_platforms_pathing_up_jump_only"`
	AutoMobUseKeyWhenPathing          bool          `yaml:"auto_mob_use_key_when_pathing"`
	AutoMobUseKeyWhenPathingUpdate    time.Duration `yaml:"auto_mob_use_key_when_pathing_update"`

	MageTeleportFallbackDirection bool `yaml:"mage_teleport_fallback_direction"`

	// UsePotionBelow is a percent, zero disables health tracking.
	UsePotionBelow       int           `yaml:"use_potion_below"`
	UpdateHealthInterval time.Duration `yaml:"update_health_interval"`

	Keys Keys `yaml:"keys"`
}

type Keys struct {
	Interact       game.KeyKind `yaml:"interact"`
	Grappling      game.KeyKind `yaml:"grappling"`
	Teleport       game.KeyKind `yaml:"teleport"`
	Jump           game.KeyKind `yaml:"jump"`
	UpJump         game.KeyKind `yaml:"up_jump"`
	CashShop       game.KeyKind `yaml:"cash_shop"`
	Familiar       game.KeyKind `yaml:"familiar"`
	ToTown         game.KeyKind `yaml:"to_town"`
	ChangeChannel  game.KeyKind `yaml:"change_channel"`
	Potion         game.KeyKind `yaml:"potion"`
	GenericBooster game.KeyKind `yaml:"generic_booster"`
	HexaBooster    game.KeyKind `yaml:"hexa_booster"`
}

type Thresholds struct {
	DoubleJump        int `yaml:"double_jump"`
	DoubleJumpAutoMob int `yaml:"double_jump_auto_mob"`
	AdjustingMedium   int `yaml:"adjusting_medium"`
	AdjustingShort    int `yaml:"adjusting_short"`
	Grappling         int `yaml:"grappling"`
	GrapplingMax      int `yaml:"grappling_max"`
	UpJump            int `yaml:"up_jump"`
	Jump              int `yaml:"jump"`
	JumpMin           int `yaml:"jump_min"`
	Falling           int `yaml:"falling"`

	HorizontalRepeat        uint32 `yaml:"horizontal_repeat"`
	VerticalRepeat          uint32 `yaml:"vertical_repeat"`
	AutoMobHorizontalRepeat uint32 `yaml:"auto_mob_horizontal_repeat"`
	AutoMobVerticalRepeat   uint32 `yaml:"auto_mob_vertical_repeat"`

	Unstuck      uint32 `yaml:"unstuck"`
	UnstuckGamba uint32 `yaml:"unstuck_gamba"`
}

// Rotation is a key used on a fixed interval by the rotator.
type Rotation struct {
	Key       game.KeyKind        `yaml:"key"`
	Every     time.Duration       `yaml:"every"`
	Count     uint32              `yaml:"count"`
	HoldTicks uint32              `yaml:"hold_ticks"`
	Direction player.KeyDirection `yaml:"direction"`
	Priority  bool                `yaml:"priority"`
}

// Minimap is a fixed minimap layout for when no minimap detection is available. A zero width
// disables it.
type Minimap struct {
	Width     int             `yaml:"width"`
	Height    int             `yaml:"height"`
	Platforms []game.Platform `yaml:"platforms"`
}

type Notifications struct {
	Discord  Discord  `yaml:"discord"`
	Telegram Telegram `yaml:"telegram"`
}

type Discord struct {
	Enabled   bool   `yaml:"enabled"`
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

type Telegram struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
}

type Telemetry struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the configuration used for every field missing from the file.
func Default() Config {
	p := player.DefaultConfig()
	t := p.Thresholds

	return Config{
		Settings: Settings{
			Name:     "komari",
			LogLevel: "info",
			LogDir:   "logs",
			TickRate: 30,
			Workers:  4,
		},
		Player: Player{
			AutoMobUseKeyWhenPathingUpdate: p.AutoMobUseKeyWhenPathingUpdate,
			MageTeleportFallbackDirection:  p.MageTeleportFallbackDirection,
			UpdateHealthInterval:           p.UpdateHealthInterval,
			Keys: Keys{
				Interact:       p.InteractKey,
				Jump:           p.JumpKey,
				Potion:         p.PotionKey,
				GenericBooster: p.GenericBoosterKey,
				HexaBooster:    p.HexaBoosterKey,
			},
		},
		Thresholds: Thresholds{
			DoubleJump:              t.DoubleJump,
			DoubleJumpAutoMob:       t.DoubleJumpAutoMob,
			AdjustingMedium:         t.AdjustingMedium,
			AdjustingShort:          t.AdjustingShort,
			Grappling:               t.Grappling,
			GrapplingMax:            t.GrapplingMax,
			UpJump:                  t.UpJump,
			Jump:                    t.Jump,
			JumpMin:                 t.JumpMin,
			Falling:                 t.Falling,
			HorizontalRepeat:        t.HorizontalRepeat,
			VerticalRepeat:          t.VerticalRepeat,
			AutoMobHorizontalRepeat: t.AutoMobHorizontalRepeat,
			AutoMobVerticalRepeat:   t.AutoMobVerticalRepeat,
			Unstuck:                 t.Unstuck,
			UnstuckGamba:            t.UnstuckGamba,
		},
		Telemetry: Telemetry{Addr: "127.0.0.1:8087"},
	}
}

// Load reads path on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file: %w", err)
	}
	if err = yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Settings.TickRate < 1 || c.Settings.TickRate > 120 {
		return fmt.Errorf("%w: tick_rate must be between 1 and 120, got %d", ErrInvalid, c.Settings.TickRate)
	}
	if c.Settings.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalid)
	}
	if c.Player.UsePotionBelow < 0 || c.Player.UsePotionBelow > 100 {
		return fmt.Errorf("%w: use_potion_below must be a percent, got %d", ErrInvalid, c.Player.UsePotionBelow)
	}
	if c.Player.UsePotionBelow > 0 && c.Player.Keys.Potion == game.KeyNone {
		return fmt.Errorf("%w: use_potion_below needs a potion key", ErrInvalid)
	}
	if c.Player.Keys.Jump == game.KeyNone {
		return fmt.Errorf("%w: the jump key is required", ErrInvalid)
	}

	t := c.Thresholds
	if t.JumpMin > t.Jump {
		return fmt.Errorf("%w: jump_min %d is above jump %d", ErrInvalid, t.JumpMin, t.Jump)
	}
	if t.Grappling > t.GrapplingMax {
		return fmt.Errorf("%w: grappling %d is above grappling_max %d", ErrInvalid, t.Grappling, t.GrapplingMax)
	}
	if t.HorizontalRepeat == 0 || t.VerticalRepeat == 0 || t.AutoMobHorizontalRepeat == 0 || t.AutoMobVerticalRepeat == 0 {
		return fmt.Errorf("%w: repeat thresholds must be positive", ErrInvalid)
	}
	if t.Unstuck == 0 || t.UnstuckGamba == 0 {
		return fmt.Errorf("%w: unstuck thresholds must be positive", ErrInvalid)
	}

	for i, r := range c.Rotation {
		if r.Key == game.KeyNone {
			return fmt.Errorf("%w: rotation %d has no key", ErrInvalid, i)
		}
		if r.Every <= 0 {
			return fmt.Errorf("%w: rotation %d needs a positive interval", ErrInvalid, i)
		}
	}

	if c.Minimap.Width < 0 || c.Minimap.Height < 0 || (c.Minimap.Width > 0) != (c.Minimap.Height > 0) {
		return fmt.Errorf("%w: minimap needs both a width and a height", ErrInvalid)
	}
	for i, p := range c.Minimap.Platforms {
		if p.XStart > p.XEnd {
			return fmt.Errorf("%w: platform %d starts after it ends", ErrInvalid, i)
		}
	}

	n := c.Notifications
	if n.Discord.Enabled && (n.Discord.Token == "" || n.Discord.ChannelID == "") {
		return fmt.Errorf("%w: discord needs a token and a channel id", ErrInvalid)
	}
	if n.Telegram.Enabled && (n.Telegram.Token == "" || n.Telegram.ChatID == 0) {
		return fmt.Errorf("%w: telegram needs a token and a chat id", ErrInvalid)
	}
	if c.Telemetry.Enabled && c.Telemetry.Addr == "" {
		return fmt.Errorf("%w: telemetry needs a listen address", ErrInvalid)
	}

	return nil
}

// TickInterval is the duration of a single tick.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Settings.TickRate)
}

// StaticMinimap returns the configured minimap layout, nil when none is configured.
func (c Config) StaticMinimap() *game.Minimap {
	if c.Minimap.Width == 0 {
		return nil
	}
	return &game.Minimap{
		BBox:      game.Rect{Width: c.Minimap.Width, Height: c.Minimap.Height},
		Platforms: append([]game.Platform(nil), c.Minimap.Platforms...),
	}
}

// PlayerConfig builds the snapshot read by the player every tick.
func (c Config) PlayerConfig() player.Config {
	p, k, t := c.Player, c.Player.Keys, c.Thresholds

	return player.Config{
		Class:                             p.Class,
		UpJumpIsFlight:                    p.UpJumpIsFlight,
		UpJumpSpecificKeyShouldJump:       p.UpJumpSpecificKeyShouldJump,
		DisableDoubleJumping:              p.DisableDoubleJumping,
		DisableAdjusting:                  p.DisableAdjusting,
		DisableTeleportOnFall:             p.DisableTeleportOnFall,
		RunePlatformsPathing:              p.RunePlatformsPathing,
		RunePlatformsPathingUpJumpOnly:    p.RunePlatformsPathingUpJumpOnly,
		AutoMobPlatformsPathing:           p.AutoMobPlatformsPathing,
		AutoMobPlatformsPathingUpJumpOnly: p.AutoMobPlatformsPathingUpJumpOnly,
		AutoMobUseKeyWhenPathing:          p.AutoMobUseKeyWhenPathing,
		AutoMobUseKeyWhenPathingUpdate:    p.AutoMobUseKeyWhenPathingUpdate,
		InteractKey:                       k.Interact,
		GrapplingKey:                      k.Grappling,
		TeleportKey:                       k.Teleport,
		JumpKey:                           k.Jump,
		UpJumpKey:                         k.UpJump,
		CashShopKey:                       k.CashShop,
		FamiliarKey:                       k.Familiar,
		ToTownKey:                         k.ToTown,
		ChangeChannelKey:                  k.ChangeChannel,
		PotionKey:                         k.Potion,
		GenericBoosterKey:                 k.GenericBooster,
		HexaBoosterKey:                    k.HexaBooster,
		UsePotionBelow:                    float64(p.UsePotionBelow) / 100,
		UpdateHealthInterval:              p.UpdateHealthInterval,
		MageTeleportFallbackDirection:     p.MageTeleportFallbackDirection,
		Thresholds: player.Thresholds{
			DoubleJump:              t.DoubleJump,
			DoubleJumpAutoMob:       t.DoubleJumpAutoMob,
			AdjustingMedium:         t.AdjustingMedium,
			AdjustingShort:          t.AdjustingShort,
			Grappling:               t.Grappling,
			GrapplingMax:            t.GrapplingMax,
			UpJump:                  t.UpJump,
			Jump:                    t.Jump,
			JumpMin:                 t.JumpMin,
			Falling:                 t.Falling,
			HorizontalRepeat:        t.HorizontalRepeat,
			VerticalRepeat:          t.VerticalRepeat,
			AutoMobHorizontalRepeat: t.AutoMobHorizontalRepeat,
			AutoMobVerticalRepeat:   t.AutoMobVerticalRepeat,
			Unstuck:                 t.Unstuck,
			UnstuckGamba:            t.UnstuckGamba,
		},
	}
}
