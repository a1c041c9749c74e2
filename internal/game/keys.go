package game

import (
	"fmt"
	"strings"
)

type KeyKind int

const (
	KeyNone KeyKind = iota
	KeyA
	KeyB
	KeyC
	KeyD
	KeyE
	KeyF
	KeyG
	KeyH
	KeyI
	KeyJ
	KeyK
	KeyL
	KeyM
	KeyN
	KeyO
	KeyP
	KeyQ
	KeyR
	KeyS
	KeyT
	KeyU
	KeyV
	KeyW
	KeyX
	KeyY
	KeyZ
	KeyZero
	KeyOne
	KeyTwo
	KeyThree
	KeyFour
	KeyFive
	KeySix
	KeySeven
	KeyEight
	KeyNine
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete
	KeyCtrl
	KeyEnter
	KeySpace
	KeyTilde
	KeyQuote
	KeySemicolon
	KeyComma
	KeyPeriod
	KeySlash
	KeyEsc
	KeyShift
	KeyAlt
	KeyBackspace
)

var keyNames = map[KeyKind]string{
	KeyNone: "none", KeyA: "a", KeyB: "b", KeyC: "c", KeyD: "d", KeyE: "e", KeyF: "f", KeyG: "g",
	KeyH: "h", KeyI: "i", KeyJ: "j", KeyK: "k", KeyL: "l", KeyM: "m", KeyN: "n", KeyO: "o",
	KeyP: "p", KeyQ: "q", KeyR: "r", KeyS: "s", KeyT: "t", KeyU: "u", KeyV: "v", KeyW: "w",
	KeyX: "x", KeyY: "y", KeyZ: "z",
	KeyZero: "0", KeyOne: "1", KeyTwo: "2", KeyThree: "3", KeyFour: "4", KeyFive: "5",
	KeySix: "6", KeySeven: "7", KeyEight: "8", KeyNine: "9",
	KeyF1: "f1", KeyF2: "f2", KeyF3: "f3", KeyF4: "f4", KeyF5: "f5", KeyF6: "f6", KeyF7: "f7",
	KeyF8: "f8", KeyF9: "f9", KeyF10: "f10", KeyF11: "f11", KeyF12: "f12",
	KeyUp: "up", KeyDown: "down", KeyLeft: "left", KeyRight: "right",
	KeyHome: "home", KeyEnd: "end", KeyPageUp: "pageup", KeyPageDown: "pagedown",
	KeyInsert: "insert", KeyDelete: "delete", KeyCtrl: "ctrl", KeyEnter: "enter",
	KeySpace: "space", KeyTilde: "tilde", KeyQuote: "quote", KeySemicolon: "semicolon",
	KeyComma: "comma", KeyPeriod: "period", KeySlash: "slash", KeyEsc: "esc",
	KeyShift: "shift", KeyAlt: "alt", KeyBackspace: "backspace",
}

var keysByName = func() map[string]KeyKind {
	m := make(map[string]KeyKind, len(keyNames))
	for k, name := range keyNames {
		m[name] = k
	}
	return m
}()

func (k KeyKind) String() string {
	if name, found := keyNames[k]; found {
		return name
	}

	return fmt.Sprintf("KeyKind(%d)", int(k))
}

func (k KeyKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *KeyKind) UnmarshalText(text []byte) error {
	key, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = key

	return nil
}

// ParseKey returns the key bound to name, case-insensitive. An empty name is KeyNone.
func ParseKey(name string) (KeyKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return KeyNone, nil
	}
	if key, found := keysByName[name]; found {
		return key, nil
	}

	return KeyNone, fmt.Errorf("unknown key %q", name)
}

// DigitKey returns the number row key for a single decimal digit.
func DigitKey(digit int) KeyKind {
	return KeyZero + KeyKind(digit%10)
}

// CharKey maps a printable character to the key that types it. Unsupported characters
// report false.
func CharKey(r rune) (KeyKind, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return KeyA + KeyKind(r-'a'), true
	case r >= 'A' && r <= 'Z':
		return KeyA + KeyKind(r-'A'), true
	case r >= '0' && r <= '9':
		return KeyZero + KeyKind(r-'0'), true
	}

	switch r {
	case ' ':
		return KeySpace, true
	case '~':
		return KeyTilde, true
	case '\'':
		return KeyQuote, true
	case ';':
		return KeySemicolon, true
	case ',':
		return KeyComma, true
	case '.':
		return KeyPeriod, true
	case '/':
		return KeySlash, true
	}

	return KeyNone, false
}

type MouseKind int

const (
	MouseMove MouseKind = iota
	MouseClick
	MouseScroll
)

func (m MouseKind) String() string {
	switch m {
	case MouseClick:
		return "click"
	case MouseScroll:
		return "scroll"
	default:
		return "move"
	}
}
