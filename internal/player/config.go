package player

import (
	"fmt"
	"time"

	"github.com/thisdk/komari-sub001/internal/game"
)

type Class int

const (
	ClassGeneric Class = iota
	ClassCadena
	ClassBlaster
	ClassArk
)

func (c Class) String() string {
	switch c {
	case ClassCadena:
		return "cadena"
	case ClassBlaster:
		return "blaster"
	case ClassArk:
		return "ark"
	default:
		return "generic"
	}
}

func (c *Class) UnmarshalText(text []byte) error {
	switch string(text) {
	case "generic", "":
		*c = ClassGeneric
	case "cadena":
		*c = ClassCadena
	case "blaster":
		*c = ClassBlaster
	case "ark":
		*c = ClassArk
	default:
		return fmt.Errorf("unknown class %q", text)
	}
	return nil
}

func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Thresholds are the pixel distances the moving coordinator compares against.
type Thresholds struct {
	DoubleJump        int
	DoubleJumpAutoMob int
	AdjustingMedium   int
	AdjustingShort    int
	Grappling         int
	GrapplingMax      int
	UpJump            int
	Jump              int
	JumpMin           int
	Falling           int

	HorizontalRepeat        uint32
	VerticalRepeat          uint32
	AutoMobHorizontalRepeat uint32
	AutoMobVerticalRepeat   uint32

	Unstuck      uint32
	UnstuckGamba uint32
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		DoubleJump:              25,
		DoubleJumpAutoMob:       17,
		AdjustingMedium:         3,
		AdjustingShort:          1,
		Grappling:               24,
		GrapplingMax:            41,
		UpJump:                  10,
		Jump:                    7,
		JumpMin:                 4,
		Falling:                 4,
		HorizontalRepeat:        20,
		VerticalRepeat:          8,
		AutoMobHorizontalRepeat: 6,
		AutoMobVerticalRepeat:   3,
		Unstuck:                 6,
		UnstuckGamba:            3,
	}
}

// Config is the immutable snapshot the player reads every tick. Optional keys are KeyNone when
// unset.
type Config struct {
	Class Class

	UpJumpIsFlight              bool
	UpJumpSpecificKeyShouldJump bool
	DisableDoubleJumping        bool
	DisableAdjusting            bool
	DisableTeleportOnFall       bool

	RunePlatformsPathing           bool
	RunePlatformsPathingUpJumpOnly bool

	AutoMobPlatformsPathing           bool
	AutoMobPlatformsPathingUpJumpOnly bool
	AutoMobUseKeyWhenPathing          bool
	AutoMobUseKeyWhenPathingUpdate    time.Duration

	InteractKey       game.KeyKind
	GrapplingKey      game.KeyKind
	TeleportKey       game.KeyKind
	JumpKey           game.KeyKind
	UpJumpKey         game.KeyKind
	CashShopKey       game.KeyKind
	FamiliarKey       game.KeyKind
	ToTownKey         game.KeyKind
	ChangeChannelKey  game.KeyKind
	PotionKey         game.KeyKind
	GenericBoosterKey game.KeyKind
	HexaBoosterKey    game.KeyKind

	// UsePotionBelow is a health ratio, zero disables health tracking.
	UsePotionBelow       float64
	UpdateHealthInterval time.Duration

	// MageTeleportFallbackDirection makes a teleport double jump reuse the last known direction
	// when the destination is straight above or below. This can teleport away from a key action
	// that asked for the opposite direction.
	MageTeleportFallbackDirection bool

	Thresholds Thresholds
}

func DefaultConfig() Config {
	return Config{
		InteractKey:                    game.KeyA,
		JumpKey:                        game.KeySpace,
		PotionKey:                      game.KeyA,
		GenericBoosterKey:              game.KeyA,
		HexaBoosterKey:                 game.KeyA,
		UpdateHealthInterval:           time.Second,
		AutoMobUseKeyWhenPathingUpdate: time.Second,
		MageTeleportFallbackDirection:  true,
		Thresholds:                     DefaultThresholds(),
	}
}

func (c Config) hasTeleportKey() bool {
	return c.TeleportKey != game.KeyNone
}

func (c Config) hasGrapplingKey() bool {
	return c.GrapplingKey != game.KeyNone
}

func (c Config) doubleJumpKey() game.KeyKind {
	if c.hasTeleportKey() {
		return c.TeleportKey
	}
	return c.JumpKey
}
