package player

import (
	botCtx "github.com/thisdk/komari-sub001/internal/context"
	"github.com/thisdk/komari-sub001/internal/game"
	"github.com/thisdk/komari-sub001/internal/timeout"
)

const (
	// ChatMaxLength is the longest message typed, longer content is cut.
	ChatMaxLength = 100

	chatOpenTimeout       = 10
	chatCompletingTimeout = 10
	chatMaxRetry          = 3
)

type chatStage int

const (
	chatOpening chatStage = iota
	chatTyping
	chatCompleting
)

// Chatting opens the chat box, types the content one key per tick and sends it.
type Chatting struct {
	stage      chatStage
	timeout    timeout.Timeout
	retry      uint32
	keys       []chatKey
	index      int
	completing completing
}

type chatKey struct {
	key   game.KeyKind
	shift bool
}

func newChatting(content string) Chatting {
	var keys []chatKey
	for _, r := range content {
		if len(keys) == ChatMaxLength {
			break
		}
		key, ok := game.CharKey(r)
		if !ok {
			continue
		}
		keys = append(keys, chatKey{key: key, shift: r >= 'A' && r <= 'Z' || r == '~'})
	}
	return Chatting{keys: keys}
}

func updateChatting(res *botCtx.Resources, p *Entity, s Chatting) State {
	switch s.stage {
	case chatOpening:
		s = s.updateOpening(res)
	case chatTyping:
		s = s.updateTyping(res)
	case chatCompleting:
		s.completing = s.completing.update(res, chatCompletingTimeout)
	}

	return finishFromAction(p.Context, s, s.completing.done)
}

func (s Chatting) complete(failed bool) Chatting {
	s.stage = chatCompleting
	s.completing = completing{failed: failed}
	return s
}

func (s Chatting) updateOpening(res *botCtx.Resources) Chatting {
	if len(s.keys) == 0 {
		return s.complete(false)
	}

	t, lifecycle := timeout.Next(s.timeout, chatOpenTimeout)
	switch lifecycle {
	case timeout.Started:
		if res.Detector.DetectChatMenuOpened() {
			s.stage = chatTyping
			s.timeout = timeout.Timeout{}
			return s
		}
		if s.retry >= chatMaxRetry {
			return s.complete(true)
		}
		res.HID.PressKey(game.KeyEnter)
		s.retry++
	case timeout.Ended:
		s.timeout = timeout.Timeout{}
		return s
	}

	s.timeout = t
	return s
}

func (s Chatting) updateTyping(res *botCtx.Resources) Chatting {
	if s.index >= len(s.keys) {
		res.HID.PressKey(game.KeyEnter)
		return s.complete(false)
	}
	if !res.Detector.DetectChatMenuOpened() {
		return s.complete(true)
	}

	k := s.keys[s.index]
	if k.shift {
		res.HID.KeyDown(game.KeyShift)
	}
	res.HID.PressKey(k.key)
	if k.shift {
		res.HID.KeyUp(game.KeyShift)
	}
	s.index++
	return s
}
