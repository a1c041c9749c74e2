package game

import "log/slog"

// NullDetector never finds anything. It lets the loop run without a perception backend.
type NullDetector struct{}

func (NullDetector) DetectPlayer(Rect) (Rect, error) { return Rect{}, ErrNotFound }
func (NullDetector) DetectPlayerIsDead() bool        { return false }
func (NullDetector) DetectPlayerInCashShop() bool    { return false }
func (NullDetector) DetectPlayerHealthBar() (Rect, error) {
	return Rect{}, ErrNotFound
}

func (NullDetector) DetectPlayerCurrentMaxHealthBars(Rect) (Rect, Rect, error) {
	return Rect{}, Rect{}, ErrNotFound
}

func (NullDetector) DetectPlayerHealth(Rect, Rect) (int, int, error) { return 0, 0, ErrNotFound }
func (NullDetector) DetectPlayerBuff(BuffKind) bool                  { return false }
func (NullDetector) DetectMobs(Rect, Rect, Point) ([]Point, error)   { return nil, ErrNotFound }
func (NullDetector) DetectEscSettings() bool                         { return false }
func (NullDetector) DetectPopupConfirmButton() (Rect, error)         { return Rect{}, ErrNotFound }
func (NullDetector) DetectPopupOkNewButton() (Rect, error)           { return Rect{}, ErrNotFound }
func (NullDetector) DetectChangeChannelMenuOpened() bool             { return false }
func (NullDetector) DetectChatMenuOpened() bool                      { return false }
func (NullDetector) DetectAdminVisible() bool                        { return false }

func (NullDetector) DetectRuneArrows(ArrowsCalibrating) (ArrowsState, error) {
	return ArrowsState{}, ErrNotFound
}

func (NullDetector) DetectLieDetector() (Rect, error)           { return Rect{}, ErrNotFound }
func (NullDetector) DetectLieDetectorInProgress() (Rect, error) { return Rect{}, ErrNotFound }
func (NullDetector) DetectTransparentShapes(Rect) []Rect        { return nil }
func (NullDetector) DetectFamiliarMenuOpened() bool             { return false }
func (NullDetector) DetectFamiliarSaveButton() (Rect, error)    { return Rect{}, ErrNotFound }
func (NullDetector) DetectFamiliarLevelButton() (Rect, error)   { return Rect{}, ErrNotFound }
func (NullDetector) DetectFamiliarSlots() []FamiliarSlot        { return nil }
func (NullDetector) DetectFamiliarSlotIsFree(Rect) bool         { return false }

func (NullDetector) DetectFamiliarHoverLevel() (FamiliarLevel, error) {
	return 0, ErrNotFound
}

func (NullDetector) DetectFamiliarCards() []FamiliarCard           { return nil }
func (NullDetector) DetectFamiliarScrollbar() (Rect, error)        { return Rect{}, ErrNotFound }
func (NullDetector) DetectHexaQuickMenu() (Rect, error)            { return Rect{}, ErrNotFound }
func (NullDetector) DetectHexaErdaConversionButton() (Rect, error) { return Rect{}, ErrNotFound }
func (NullDetector) DetectHexaBoosterButton() (Rect, error)        { return Rect{}, ErrNotFound }
func (NullDetector) DetectHexaMaxButton() (Rect, error)            { return Rect{}, ErrNotFound }
func (NullDetector) DetectHexaConvertButton() (Rect, error)        { return Rect{}, ErrNotFound }

// LogInput writes every input event to the logger instead of sending it.
type LogInput struct {
	Logger *slog.Logger
}

func (i LogInput) KeyDown(key KeyKind) error {
	i.Logger.Debug("Key down", slog.String("key", key.String()))
	return nil
}

func (i LogInput) KeyUp(key KeyKind) error {
	i.Logger.Debug("Key up", slog.String("key", key.String()))
	return nil
}

func (i LogInput) Key(key KeyKind) error {
	i.Logger.Debug("Key press", slog.String("key", key.String()))
	return nil
}

func (i LogInput) Mouse(x, y int, kind MouseKind) error {
	i.Logger.Debug("Mouse", slog.Int("x", x), slog.Int("y", y), slog.String("kind", kind.String()))
	return nil
}

var (
	_ Detector = NullDetector{}
	_ Input    = LogInput{}
)
