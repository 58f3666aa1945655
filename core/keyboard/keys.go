// Package keyboard decodes raw terminal input into key presses and maps
// them onto player actions.
package keyboard

import (
	"unicode/utf8"
)

// Key identifies a decoded key press.
type Key int

const (
	KeyNone Key = iota
	KeyRune
	KeySpace
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyEnter
	KeyEscape
	KeyBackspace
	KeyCtrlC
)

// Event is one key press. Rune is set for KeyRune.
type Event struct {
	Key  Key
	Rune rune
}

// Decode splits a chunk of raw-mode input into key events. Incomplete
// trailing sequences are returned as rest so the caller can prepend them
// to the next read.
func Decode(buf []byte) (evs []Event, rest []byte) {
	for len(buf) > 0 {
		b := buf[0]
		switch {
		case b == 0x1b:
			if len(buf) == 1 {
				// a lone ESC is the Escape key
				evs = append(evs, Event{Key: KeyEscape})
				return evs, nil
			}
			if buf[1] != '[' && buf[1] != 'O' {
				evs = append(evs, Event{Key: KeyEscape})
				buf = buf[1:]
				continue
			}
			if len(buf) < 3 {
				return evs, buf
			}
			switch buf[2] {
			case 'A':
				evs = append(evs, Event{Key: KeyUp})
			case 'B':
				evs = append(evs, Event{Key: KeyDown})
			case 'C':
				evs = append(evs, Event{Key: KeyRight})
			case 'D':
				evs = append(evs, Event{Key: KeyLeft})
			default:
				// skip unknown CSI sequences up to their final byte
				n := 2
				for n < len(buf) && (buf[n] < 0x40 || buf[n] > 0x7e) {
					n++
				}
				if n == len(buf) {
					return evs, buf
				}
				buf = buf[n+1:]
				continue
			}
			buf = buf[3:]
		case b == 0x03:
			evs = append(evs, Event{Key: KeyCtrlC})
			buf = buf[1:]
		case b == '\r' || b == '\n':
			evs = append(evs, Event{Key: KeyEnter})
			buf = buf[1:]
		case b == 0x7f || b == 0x08:
			evs = append(evs, Event{Key: KeyBackspace})
			buf = buf[1:]
		case b == ' ':
			evs = append(evs, Event{Key: KeySpace, Rune: ' '})
			buf = buf[1:]
		case b < 0x20:
			buf = buf[1:]
		default:
			if !utf8.FullRune(buf) {
				return evs, buf
			}
			r, size := utf8.DecodeRune(buf)
			evs = append(evs, Event{Key: KeyRune, Rune: r})
			buf = buf[size:]
		}
	}
	return evs, nil
}
