//go:build !ebiten

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

package platform

import "testing"

func TestASCIIScancodes(t *testing.T) {
	for i, s := range asciiToScancode {
		if s == ScanInvalid {
			t.Errorf("no scancode for %q", rune(i+0x20))
		}
	}

	// Shifted and unshifted letters sit on the same key.
	for c := byte('a'); c <= 'z'; c++ {
		lower := asciiToScancode[c-0x20]
		upper := asciiToScancode[c-0x40]
		if lower != upper {
			t.Errorf("%q and %q map to different keys", c, c-0x20)
		}
	}

	known := map[byte]Scancode{
		' ':  ScanSpace,
		'a':  ScanA,
		'z':  ScanZ,
		'0':  Scan0,
		'9':  Scan9,
		'/':  ScanSlash,
		'\\': ScanBackslash,
		'=':  ScanEqual,
	}
	for c, want := range known {
		if got := asciiToScancode[c-0x20]; got != want {
			t.Errorf("%q maps to %d, want %d", c, got, want)
		}
	}
}

func TestNeedsShift(t *testing.T) {
	cases := []struct {
		r    rune
		want bool
	}{
		{'A', true},
		{'a', false},
		{'!', true},
		{'1', false},
		{'~', true},
		{'`', false},
		{'"', true},
		{'\'', false},
		{' ', false},
		{'_', true},
		{'-', false},
	}
	for _, c := range cases {
		if got := needsShift(c.r); got != c.want {
			t.Errorf("needsShift(%q) = %v", c.r, got)
		}
	}
}
