package event

import (
	"fmt"
	"time"

	"github.com/thisdk/komari-sub001/internal/game"
)

type Event interface {
	Message() string
	Source() string
	OccurredAt() time.Time
}

type BaseEvent struct {
	message    string
	source     string
	occurredAt time.Time
}

func Text(source, message string) BaseEvent {
	return BaseEvent{
		message:    message,
		source:     source,
		occurredAt: time.Now(),
	}
}

func (b BaseEvent) Message() string       { return b.message }
func (b BaseEvent) Source() string        { return b.source }
func (b BaseEvent) OccurredAt() time.Time { return b.occurredAt }

type PlayerDiedEvent struct {
	BaseEvent
}

func PlayerDied(be BaseEvent) PlayerDiedEvent {
	if be.message == "" {
		be.message = "Player died"
	}
	return PlayerDiedEvent{BaseEvent: be}
}

type UsedPotionEvent struct {
	BaseEvent
	Current int
	Max     int
}

func UsedPotion(be BaseEvent, current, max int) UsedPotionEvent {
	if be.message == "" {
		be.message = fmt.Sprintf("Used potion at %d/%d HP", current, max)
	}
	return UsedPotionEvent{BaseEvent: be, Current: current, Max: max}
}

type RuneFailedEvent struct {
	BaseEvent
	FailCount uint32
}

func RuneFailed(be BaseEvent, failCount uint32) RuneFailedEvent {
	if be.message == "" {
		be.message = fmt.Sprintf("Rune validation failed (%d in a row)", failCount)
	}
	return RuneFailedEvent{BaseEvent: be, FailCount: failCount}
}

type CashShopEvent struct {
	BaseEvent
}

func CashShop(be BaseEvent) CashShopEvent {
	if be.message == "" {
		be.message = "Too many rune failures, entering cash shop"
	}
	return CashShopEvent{BaseEvent: be}
}

type UnstuckingEvent struct {
	BaseEvent
	Position *game.Point
	Gamba    bool
}

func Unstucking(be BaseEvent, pos *game.Point, gamba bool) UnstuckingEvent {
	if be.message == "" {
		be.message = "Player is stuck, trying to recover"
		if gamba {
			be.message = "Player is still stuck, recovering randomly"
		}
	}
	return UnstuckingEvent{BaseEvent: be, Position: pos, Gamba: gamba}
}

type ActionAbortedEvent struct {
	BaseEvent
	Action string
}

func ActionAborted(be BaseEvent, action string) ActionAbortedEvent {
	if be.message == "" {
		be.message = fmt.Sprintf("Action %s aborted after repeating the same movement", action)
	}
	return ActionAbortedEvent{BaseEvent: be, Action: action}
}

// IsNotable reports whether e is worth a remote notification. Potion usage is too frequent.
func IsNotable(e Event) bool {
	switch e := e.(type) {
	case UsedPotionEvent:
		return false
	case UnstuckingEvent:
		return e.Gamba
	default:
		return true
	}
}
