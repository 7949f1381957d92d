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

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/andreas-jonsson/virtual64/platform/dialog"
	"github.com/gdamore/tcell"
)

var cgaPalette = [16]tcell.Color{
	tcell.ColorBlack,
	tcell.ColorNavy,
	tcell.ColorGreen,
	tcell.ColorTeal,
	tcell.ColorMaroon,
	tcell.ColorPurple,
	tcell.ColorOlive,
	tcell.ColorSilver,
	tcell.ColorGray,
	tcell.ColorBlue,
	tcell.ColorLime,
	tcell.ColorAqua,
	tcell.ColorRed,
	tcell.ColorFuchsia,
	tcell.ColorYellow,
	tcell.ColorWhite,
}

func (p *tcellPlatform) initializeTcellEvents() error {
	go func() {
		s := p.screen
		for {
			ev := s.PollEvent()
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch ev.Key() {
				case tcell.KeyF12:
					dialog.Quit()
					go func() {
						// In case the machine never notices.
						time.Sleep(3 * time.Second)
						os.Exit(-1)
					}()
					return
				case tcell.KeyF10:
					if err := p.dumpScreen(); err != nil {
						log.Print("screen dump failed: ", err)
					}
				default:
					p.pushKeyEvent(ev)
				}
			case *tcell.EventResize:
				s.Sync()
			case *tcell.EventInterrupt:
				if page, ok := ev.Data().(*textPage); ok {
					p.redraw(page)
				}
			}
		}
	}()
	return nil
}

func (p *tcellPlatform) redraw(page *textPage) {
	p.Lock()
	defer p.Unlock()

	s := p.screen
	for y := 0; y < 25; y++ {
		for x := 0; x < 80; x++ {
			offset := y*160 + x*2
			s.SetCell(x, y, createStyleFromAttrib(page.mem[offset+1]), codePage437[page.mem[offset]])
		}
	}
	if page.cursorX < 0 || page.cursorY < 0 {
		s.HideCursor()
	} else {
		s.ShowCursor(page.cursorX, page.cursorY)
	}
	s.Show()
}

func (p *tcellPlatform) dumpScreen() error {
	p.Lock()
	page := p.page
	p.Unlock()
	name := fmt.Sprintf("screen-%d.txt", time.Now().Unix())
	return writeScreenDump(p.fs, name, &page)
}

func createStyleFromAttrib(attr byte) tcell.Style {
	blink := attr&0x80 != 0
	bgColorIndex := (attr & 0x70) >> 4
	return tcell.StyleDefault.Blink(blink).Background(cgaPalette[bgColorIndex]).Foreground(cgaPalette[attr&0xF])
}

func (p *tcellPlatform) pushKeyEvent(ev *tcell.EventKey) {
	scan := createEventFromTCELL(ev)
	if scan == ScanInvalid {
		log.Print("Unknown key!")
		return
	}

	// The terminal reports shifted runes without the modifier, so a
	// shift key is pressed around the stroke when one is implied.
	shift := ev.Key() == tcell.KeyRune && needsShift(ev.Rune())

	p.Lock()
	defer p.Unlock()

	if p.keyboardHandler == nil {
		return
	}
	if shift {
		p.keyboardHandler(ScanLShift)
	}
	p.keyboardHandler(scan)

	go func() {
		time.Sleep(10 * time.Millisecond)

		p.Lock()
		defer p.Unlock()

		p.keyboardHandler(scan | KeyUpMask)
		if shift {
			p.keyboardHandler(ScanLShift | KeyUpMask)
		}
	}()
}

func needsShift(r rune) bool {
	if r >= 'A' && r <= 'Z' {
		return true
	}
	return strings.ContainsRune("!@#$%^&*()_+{}|:\"<>?~", r)
}

func createEventFromTCELL(ev *tcell.EventKey) Scancode {
	switch ev.Key() {
	case tcell.KeyEscape:
		return ScanEscape
	case tcell.KeyEnter:
		return ScanEnter
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return ScanBackspace
	case tcell.KeyTab:
		return ScanTab
	case tcell.KeyDown:
		return ScanKPDown
	case tcell.KeyLeft:
		return ScanKPLeft
	case tcell.KeyRight:
		return ScanKPRight
	case tcell.KeyUp:
		return ScanKPUp
	case tcell.KeyPrint:
		return ScanPrint
	case tcell.KeyDelete:
		return ScanKPDelete
	case tcell.KeyInsert:
		return ScanKPInsert
	case tcell.KeyEnd:
		return ScanKPEnd
	case tcell.KeyPgUp:
		return ScanKPPageup
	case tcell.KeyPgDn:
		return ScanKPPagedown
	case tcell.KeyHome:
		return ScanKPHome
	case tcell.KeyF1:
		return ScanF1
	case tcell.KeyF2:
		return ScanF2
	case tcell.KeyF3:
		return ScanF3
	case tcell.KeyF4:
		return ScanF4
	case tcell.KeyF5:
		return ScanF5
	case tcell.KeyF6:
		return ScanF6
	case tcell.KeyF7:
		return ScanF7
	case tcell.KeyF8:
		return ScanF8
	case tcell.KeyF9:
		return ScanF9

	// Shift, control and alt do not arrive as separate keys in a
	// terminal. Control comes through as control characters.

	case tcell.KeyRune:
		if c := byte(ev.Rune()); c > 0x1F && c < 0x7F {
			return asciiToScancode[c-0x20]
		}
	}
	return ScanInvalid
}

var asciiToScancode = [95]Scancode{
	ScanSpace,
	Scan1,
	ScanQuote,
	Scan3,
	Scan4,
	Scan5,
	Scan7,
	ScanQuote,
	Scan9,
	Scan0,
	Scan8,
	ScanEqual,
	ScanComma,
	ScanMinus,
	ScanPeriod,
	ScanSlash,
	Scan0,
	Scan1,
	Scan2,
	Scan3,
	Scan4,
	Scan5,
	Scan6,
	Scan7,
	Scan8,
	Scan9,
	ScanSemicolon,
	ScanSemicolon,
	ScanComma,
	ScanEqual,
	ScanPeriod,
	ScanSlash,
	Scan2,
	ScanA,
	ScanB,
	ScanC,
	ScanD,
	ScanE,
	ScanF,
	ScanG,
	ScanH,
	ScanI,
	ScanJ,
	ScanK,
	ScanL,
	ScanM,
	ScanN,
	ScanO,
	ScanP,
	ScanQ,
	ScanR,
	ScanS,
	ScanT,
	ScanU,
	ScanV,
	ScanW,
	ScanX,
	ScanY,
	ScanZ,
	ScanLBracket,
	ScanBackslash,
	ScanRBracket,
	Scan6,
	ScanMinus,
	ScanBackquote,
	ScanA,
	ScanB,
	ScanC,
	ScanD,
	ScanE,
	ScanF,
	ScanG,
	ScanH,
	ScanI,
	ScanJ,
	ScanK,
	ScanL,
	ScanM,
	ScanN,
	ScanO,
	ScanP,
	ScanQ,
	ScanR,
	ScanS,
	ScanT,
	ScanU,
	ScanV,
	ScanW,
	ScanX,
	ScanY,
	ScanZ,
	ScanLBracket,
	ScanBackslash,
	ScanRBracket,
	ScanBackquote,
}
