package game

import (
	"log/slog"
	"sort"
	"sync"
)

// Input is the input emulation backend. Calls are fire-and-forget from the caller's point of
// view, an error means the event was not delivered.
type Input interface {
	KeyDown(key KeyKind) error
	KeyUp(key KeyKind) error
	Key(key KeyKind) error
	Mouse(x, y int, kind MouseKind) error
}

// HID sits in front of Input and keeps the table of keys currently held down. A key is never
// sent down twice without a key up in between.
type HID struct {
	input  Input
	logger *slog.Logger

	mu   sync.Mutex
	down map[KeyKind]struct{}
}

func NewHID(input Input, logger *slog.Logger) *HID {
	return &HID{
		input:  input,
		logger: logger,
		down:   make(map[KeyKind]struct{}),
	}
}

func (h *HID) KeyDown(key KeyKind) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, found := h.down[key]; found {
		return
	}
	if err := h.input.KeyDown(key); err != nil {
		h.logger.Debug("Key down rejected", slog.String("key", key.String()), slog.Any("error", err))
		return
	}
	h.down[key] = struct{}{}
}

func (h *HID) KeyUp(key KeyKind) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, found := h.down[key]; !found {
		return
	}
	if err := h.input.KeyUp(key); err != nil {
		h.logger.Debug("Key up rejected", slog.String("key", key.String()), slog.Any("error", err))
		return
	}
	delete(h.down, key)
}

// PressKey sends a full press. A key currently held is considered released afterward.
func (h *HID) PressKey(key KeyKind) {
	if key == KeyNone {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.input.Key(key); err != nil {
		h.logger.Debug("Key press rejected", slog.String("key", key.String()), slog.Any("error", err))
		return
	}
	delete(h.down, key)
}

func (h *HID) Mouse(x, y int, kind MouseKind) {
	if err := h.input.Mouse(x, y, kind); err != nil {
		h.logger.Debug("Mouse event rejected",
			slog.Int("x", x),
			slog.Int("y", y),
			slog.String("kind", kind.String()),
			slog.Any("error", err),
		)
	}
}

func (h *HID) Click(p Point) {
	h.Mouse(p.X, p.Y, MouseClick)
}

func (h *HID) MoveMouse(p Point) {
	h.Mouse(p.X, p.Y, MouseMove)
}

func (h *HID) IsKeyCleared(key KeyKind) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, found := h.down[key]
	return !found
}

func (h *HID) AllKeysCleared() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.down) == 0
}

// ReleaseArrows lifts every arrow key that is held.
func (h *HID) ReleaseArrows() {
	h.KeyUp(KeyUp)
	h.KeyUp(KeyDown)
	h.KeyUp(KeyLeft)
	h.KeyUp(KeyRight)
}

func (h *HID) ReleaseAll() {
	for _, key := range h.HeldKeys() {
		h.KeyUp(key)
	}
}

func (h *HID) HeldKeys() []KeyKind {
	h.mu.Lock()
	defer h.mu.Unlock()

	keys := make([]KeyKind, 0, len(h.down))
	for k := range h.down {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}
