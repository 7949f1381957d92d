/*
Copyright (c) 2021-2026 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

// Package keyboard decodes scancode set 1, one byte at a time, into
// key events on a US layout.
package keyboard

// Controller ports. Status bit 0 is set while the output buffer holds
// an unread scancode.
const (
	DataPort   = 0x60
	StatusPort = 0x64

	StatusOutputFull = 0x01
)

const (
	breakBit       = 0x80
	extendedPrefix = 0xE0

	scanCtrl     = 0x1D
	scanLShift   = 0x2A
	scanRShift   = 0x36
	scanAlt      = 0x38
	scanCapsLock = 0x3A
)

const nul = 0

var normalMap = [96]byte{
	nul, 0x1B, '1', '2', '3', '4', '5', '6',
	'7', '8', '9', '0', '-', '=', '\b', '\t',
	'q', 'w', 'e', 'r', 't', 'y', 'u', 'i',
	'o', 'p', '[', ']', '\n', nul, 'a', 's',
	'd', 'f', 'g', 'h', 'j', 'k', 'l', ';',
	'\'', '`', nul, '\\', 'z', 'x', 'c', 'v',
	'b', 'n', 'm', ',', '.', '/', nul, '*',
	nul, ' ', nul, nul, nul, nul, nul, nul,
	nul, nul, nul, nul, nul, nul, nul, '7',
	'8', '9', '-', '4', '5', '6', '+', '1',
	'2', '3', '0', '.', nul, nul, nul, nul,
	nul, nul, nul, nul, nul, nul, nul, nul,
}

var shiftMap = [96]byte{
	nul, 0x1B, '!', '@', '#', '$', '%', '^',
	'&', '*', '(', ')', '_', '+', '\b', '\t',
	'Q', 'W', 'E', 'R', 'T', 'Y', 'U', 'I',
	'O', 'P', '{', '}', '\n', nul, 'A', 'S',
	'D', 'F', 'G', 'H', 'J', 'K', 'L', ':',
	'"', '~', nul, '|', 'Z', 'X', 'C', 'V',
	'B', 'N', 'M', '<', '>', '?', nul, '*',
	nul, ' ', nul, nul, nul, nul, nul, nul,
	nul, nul, nul, nul, nul, nul, nul, '7',
	'8', '9', '-', '4', '5', '6', '+', '1',
	'2', '3', '0', '.', nul, nul, nul, nul,
	nul, nul, nul, nul, nul, nul, nul, nul,
}

// Event is one decoded key transition. Rune is zero for releases and
// for keys with no printable mapping.
type Event struct {
	Code     byte
	Rune     rune
	Pressed  bool
	Extended bool
	Shift    bool
	Ctrl     bool
	Alt      bool
}

// Decoder turns a raw scancode stream into events. The zero value is
// ready to use with all modifiers released.
type Decoder struct {
	extended bool
	lshift   bool
	rshift   bool
	ctrl     bool
	alt      bool
	caps     bool
}

// CapsLock reports the caps lock toggle state.
func (d *Decoder) CapsLock() bool {
	return d.caps
}

func (d *Decoder) shifted() bool {
	return d.lshift || d.rshift
}

// Decode consumes one scancode byte. It returns false for bytes that
// produce no event: the extended prefix, which only arms the next
// byte, and scancodes outside the layout. Modifier state survives
// anything Decode does not understand.
func (d *Decoder) Decode(data byte) (Event, bool) {
	if data == extendedPrefix {
		d.extended = true
		return Event{}, false
	}
	extended := d.extended
	d.extended = false

	code := data &^ byte(breakBit)
	pressed := data&breakBit == 0
	if code == 0 {
		return Event{}, false
	}

	if extended {
		// Right ctrl and right alt arrive behind the prefix with the
		// same codes as their left hand twins.
		switch code {
		case scanCtrl:
			d.ctrl = pressed
		case scanAlt:
			d.alt = pressed
		}
	} else {
		switch code {
		case scanLShift:
			d.lshift = pressed
		case scanRShift:
			d.rshift = pressed
		case scanCtrl:
			d.ctrl = pressed
		case scanAlt:
			d.alt = pressed
		case scanCapsLock:
			if pressed {
				d.caps = !d.caps
			}
		}
	}

	ev := Event{
		Code:     code,
		Pressed:  pressed,
		Extended: extended,
		Shift:    d.shifted(),
		Ctrl:     d.ctrl,
		Alt:      d.alt,
	}
	if pressed && !extended {
		ev.Rune = d.translate(code)
	}
	if ev.Rune == 0 && !isModifier(code, extended) && !knownCode(code, extended) {
		return Event{}, false
	}
	return ev, true
}

func (d *Decoder) translate(code byte) rune {
	if int(code) >= len(normalMap) {
		return 0
	}
	var c byte
	if d.shifted() {
		c = shiftMap[code]
	} else {
		c = normalMap[code]
	}
	if d.caps {
		switch {
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		}
	}
	return rune(c)
}

func isModifier(code byte, extended bool) bool {
	if extended {
		return code == scanCtrl || code == scanAlt
	}
	switch code {
	case scanLShift, scanRShift, scanCtrl, scanAlt, scanCapsLock:
		return true
	}
	return false
}

func knownCode(code byte, extended bool) bool {
	if extended {
		// Cursor and navigation keys. They decode to events without a
		// rune.
		switch code {
		case 0x1C, 0x35, 0x47, 0x48, 0x49, 0x4B, 0x4D, 0x4F, 0x50, 0x51, 0x52, 0x53:
			return true
		}
		return false
	}
	return int(code) < len(normalMap) && normalMap[code] != nul
}
