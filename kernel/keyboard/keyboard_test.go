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

package keyboard

import "testing"

// feed runs a scancode sequence and returns the printable output.
func feed(d *Decoder, codes ...byte) string {
	var s []rune
	for _, c := range codes {
		if ev, ok := d.Decode(c); ok && ev.Pressed && ev.Rune != 0 {
			s = append(s, ev.Rune)
		}
	}
	return string(s)
}

func TestLetters(t *testing.T) {
	var d Decoder
	if s := feed(&d, 0x1E, 0x9E, 0x30, 0xB0, 0x2E, 0xAE); s != "abc" {
		t.Errorf("decoded %q", s)
	}
}

func TestShift(t *testing.T) {
	var d Decoder
	if s := feed(&d, 0x2A, 0x1E, 0xAA, 0x1E); s != "Aa" {
		t.Errorf("left shift decoded %q", s)
	}
	if s := feed(&d, 0x36, 0x02, 0x03, 0xB6, 0x02); s != "!@1" {
		t.Errorf("right shift decoded %q", s)
	}
}

func TestCapsLock(t *testing.T) {
	var d Decoder
	if s := feed(&d, 0x3A, 0xBA, 0x1E); s != "A" {
		t.Errorf("caps decoded %q", s)
	}
	if !d.CapsLock() {
		t.Error("caps lock is not latched")
	}
	// Shift undoes caps for letters.
	if s := feed(&d, 0x2A, 0x1E, 0xAA); s != "a" {
		t.Errorf("caps with shift decoded %q", s)
	}
	// Caps leaves the digit row alone.
	if s := feed(&d, 0x02); s != "1" {
		t.Errorf("caps digit decoded %q", s)
	}
	if s := feed(&d, 0x3A, 0xBA, 0x1E); s != "a" {
		t.Errorf("caps toggle off decoded %q", s)
	}
}

func TestRelease(t *testing.T) {
	var d Decoder
	d.Decode(0x1E)

	ev, ok := d.Decode(0x9E)
	if !ok {
		t.Fatal("release produced no event")
	}
	if ev.Pressed || ev.Rune != 0 || ev.Code != 0x1E {
		t.Errorf("release event is %+v", ev)
	}
}

func TestModifierEvents(t *testing.T) {
	var d Decoder
	ev, ok := d.Decode(0x2A)
	if !ok {
		t.Fatal("shift press produced no event")
	}
	if ev.Rune != 0 || !ev.Shift || !ev.Pressed {
		t.Errorf("shift event is %+v", ev)
	}

	ev, _ = d.Decode(0x1D)
	if !ev.Ctrl {
		t.Errorf("ctrl event is %+v", ev)
	}
	ev, _ = d.Decode(0x2E)
	if ev.Rune != 'C' || !ev.Ctrl || !ev.Shift {
		t.Errorf("modified letter event is %+v", ev)
	}
}

func TestExtendedKeys(t *testing.T) {
	var d Decoder

	if _, ok := d.Decode(0xE0); ok {
		t.Error("prefix byte produced an event")
	}
	ev, ok := d.Decode(0x48)
	if !ok {
		t.Fatal("cursor up produced no event")
	}
	if !ev.Extended || ev.Rune != 0 || ev.Code != 0x48 {
		t.Errorf("cursor up event is %+v", ev)
	}

	// The prefix only arms a single byte.
	ev, ok = d.Decode(0x48)
	if !ok || ev.Extended {
		t.Errorf("second byte still extended: %+v", ev)
	}
}

func TestRightCtrl(t *testing.T) {
	var d Decoder
	d.Decode(0xE0)
	d.Decode(0x1D)

	ev, _ := d.Decode(0x2E)
	if ev.Rune != 'c' || !ev.Ctrl {
		t.Errorf("event with right ctrl held is %+v", ev)
	}

	d.Decode(0xE0)
	d.Decode(0x9D)
	ev, _ = d.Decode(0x2E)
	if ev.Ctrl {
		t.Error("right ctrl release did not clear the modifier")
	}
}

func TestUnknownCodes(t *testing.T) {
	var d Decoder
	d.Decode(0x2A)

	for _, c := range []byte{0x00, 0x80, 0x3B, 0x5F} {
		if ev, ok := d.Decode(c); ok {
			t.Errorf("scancode 0x%X produced event %+v", c, ev)
		}
	}

	// Modifier state survived the garbage.
	if s := feed(&d, 0x1E); s != "A" {
		t.Errorf("decoded %q after unknown codes", s)
	}
}

func TestControlCharacters(t *testing.T) {
	var d Decoder
	if s := feed(&d, 0x0F, 0x1C, 0x0E); s != "\t\n\b" {
		t.Errorf("decoded %q", s)
	}
	if s := feed(&d, 0x39, 0x01); s != " \x1b" {
		t.Errorf("decoded %q", s)
	}
}
