package game

import "errors"

// ErrNotFound is returned by detector probes when the searched element is not on screen.
var ErrNotFound = errors.New("not found")

// Detector is the perception backend. Every probe is fallible and may be slow, callers that
// cannot block the tick loop go through the task package.
type Detector interface {
	DetectPlayer(minimap Rect) (Rect, error)
	DetectPlayerIsDead() bool
	DetectPlayerInCashShop() bool
	DetectPlayerHealthBar() (Rect, error)
	DetectPlayerCurrentMaxHealthBars(healthBar Rect) (Rect, Rect, error)
	DetectPlayerHealth(currentBar, maxBar Rect) (int, int, error)
	DetectPlayerBuff(kind BuffKind) bool
	DetectMobs(minimap, bound Rect, player Point) ([]Point, error)

	DetectEscSettings() bool
	DetectPopupConfirmButton() (Rect, error)
	DetectPopupOkNewButton() (Rect, error)
	DetectChangeChannelMenuOpened() bool
	DetectChatMenuOpened() bool
	DetectAdminVisible() bool

	DetectRuneArrows(calibrating ArrowsCalibrating) (ArrowsState, error)
	DetectLieDetector() (Rect, error)
	DetectLieDetectorInProgress() (Rect, error)
	DetectTransparentShapes(region Rect) []Rect

	DetectFamiliarMenuOpened() bool
	DetectFamiliarSaveButton() (Rect, error)
	DetectFamiliarLevelButton() (Rect, error)
	DetectFamiliarSlots() []FamiliarSlot
	DetectFamiliarSlotIsFree(slot Rect) bool
	DetectFamiliarHoverLevel() (FamiliarLevel, error)
	DetectFamiliarCards() []FamiliarCard
	DetectFamiliarScrollbar() (Rect, error)

	DetectHexaQuickMenu() (Rect, error)
	DetectHexaErdaConversionButton() (Rect, error)
	DetectHexaBoosterButton() (Rect, error)
	DetectHexaMaxButton() (Rect, error)
	DetectHexaConvertButton() (Rect, error)
}

// ArrowsCalibrating carries the spinning arrow samples between rune detections.
type ArrowsCalibrating struct {
	SpinArrows           []Rect
	SpinArrowsCalibrated bool
}

// ArrowsState is either an in-progress calibration or the four resolved keys.
type ArrowsState struct {
	Calibrating ArrowsCalibrating
	Complete    bool
	Keys        [4]KeyKind
}

type FamiliarLevel int

const (
	FamiliarLevelOther FamiliarLevel = iota
	FamiliarLevel5
)

type FamiliarRarity int

const (
	FamiliarRare FamiliarRarity = iota
	FamiliarEpic
)

func (r FamiliarRarity) String() string {
	if r == FamiliarEpic {
		return "epic"
	}
	return "rare"
}

func (r *FamiliarRarity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "rare":
		*r = FamiliarRare
	case "epic":
		*r = FamiliarEpic
	default:
		return errors.New("unknown familiar rarity " + string(text))
	}
	return nil
}

type FamiliarSlot struct {
	BBox Rect
	Free bool
}

type FamiliarCard struct {
	BBox   Rect
	Rarity FamiliarRarity
}

type BuffKind int

const (
	BuffRune BuffKind = iota
	BuffFamiliar
	BuffSayramElixir
	BuffAureliaElixir
	BuffExpCouponX2
	BuffExpCouponX3
	BuffExpCouponX4
	BuffBonusExpCoupon
	BuffLegionWealth
	BuffLegionLuck
	BuffWealthAcquisitionPotion
	BuffExpAccumulationPotion
	BuffForTheGuild
	BuffHardHitter
	BuffExtremeRedPotion
	BuffExtremeBluePotion
	BuffExtremeGreenPotion
	BuffExtremeGoldPotion
	BuffKindCount
)

var buffNames = [BuffKindCount]string{
	"rune", "familiar", "sayram_elixir", "aurelia_elixir", "exp_coupon_x2", "exp_coupon_x3",
	"exp_coupon_x4", "bonus_exp_coupon", "legion_wealth", "legion_luck",
	"wealth_acquisition_potion", "exp_accumulation_potion", "for_the_guild", "hard_hitter",
	"extreme_red_potion", "extreme_blue_potion", "extreme_green_potion", "extreme_gold_potion",
}

func (k BuffKind) String() string {
	if k >= 0 && k < BuffKindCount {
		return buffNames[k]
	}
	return "unknown"
}

func ParseBuffKind(name string) (BuffKind, bool) {
	for i, n := range buffNames {
		if n == name {
			return BuffKind(i), true
		}
	}
	return 0, false
}
