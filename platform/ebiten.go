//go:build ebiten

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
	"image"
	"image/color"
	"log"
	"os"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/spf13/afero"
	"golang.org/x/image/font/basicfont"

	"github.com/andreas-jonsson/virtual64/platform/dialog"
)

const (
	cellWidth  = 7
	cellHeight = 14
	fontAscent = 11
)

var ebitenPalette = [16]color.RGBA{
	{0x00, 0x00, 0x00, 0xFF},
	{0x00, 0x00, 0xAA, 0xFF},
	{0x00, 0xAA, 0x00, 0xFF},
	{0x00, 0xAA, 0xAA, 0xFF},
	{0xAA, 0x00, 0x00, 0xFF},
	{0xAA, 0x00, 0xAA, 0xFF},
	{0xAA, 0x55, 0x00, 0xFF},
	{0xAA, 0xAA, 0xAA, 0xFF},
	{0x55, 0x55, 0x55, 0xFF},
	{0x55, 0x55, 0xFF, 0xFF},
	{0x55, 0xFF, 0x55, 0xFF},
	{0x55, 0xFF, 0xFF, 0xFF},
	{0xFF, 0x55, 0x55, 0xFF},
	{0xFF, 0x55, 0xFF, 0xFF},
	{0xFF, 0xFF, 0x55, 0xFF},
	{0xFF, 0xFF, 0xFF, 0xFF},
}

type ebitenPlatform struct {
	sync.Mutex

	page   textPage
	fs     FileSystem
	beeper *beeper

	keyboardHandler func(Scancode)
}

var ebitenPlatformInstance ebitenPlatform

// Start opens a window and runs mainLoop on its own goroutine while
// the game loop owns the main thread.
func Start(mainLoop func(Platform), configs ...Config) {
	p := &ebitenPlatformInstance
	p.fs = NewFileSystem(afero.NewOsFs())

	for _, cfg := range configs {
		if err := cfg(p); err != nil {
			log.Fatal(err)
		}
	}

	Instance = p

	ebiten.SetWindowSize(80*cellWidth*2, 25*cellHeight*2)
	ebiten.SetWindowTitle("virtual64")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	go mainLoop(Instance)

	if err := ebiten.RunGame(&ebitenGame{p: p}); err != nil && err != ebiten.Termination {
		log.Fatal(err)
	}
	dialog.Quit()
	if p.beeper != nil {
		p.beeper.close()
	}
	os.Exit(0) // Calling Exit is required!
}

type ebitenGame struct {
	p    *ebitenPlatform
	keys []ebiten.Key
}

func (g *ebitenGame) Update() error {
	if dialog.ShutdownRequested() {
		return ebiten.Termination
	}

	g.keys = inpututil.AppendJustPressedKeys(g.keys[:0])
	for _, k := range g.keys {
		switch k {
		case ebiten.KeyF12:
			dialog.Quit()
		case ebiten.KeyF10:
			g.dumpScreen()
		default:
			g.p.pushKey(k, false)
		}
	}
	g.keys = inpututil.AppendJustReleasedKeys(g.keys[:0])
	for _, k := range g.keys {
		g.p.pushKey(k, true)
	}
	return nil
}

func (g *ebitenGame) Draw(screen *ebiten.Image) {
	g.p.Lock()
	page := g.p.page
	g.p.Unlock()

	screen.Fill(ebitenPalette[0])
	for y := 0; y < 25; y++ {
		for x := 0; x < 80; x++ {
			offset := y*160 + x*2
			ch, attr := page.mem[offset], page.mem[offset+1]
			fg := ebitenPalette[attr&0xF]
			bg := ebitenPalette[(attr&0x70)>>4]

			px, py := x*cellWidth, y*cellHeight
			if bg != ebitenPalette[0] {
				cell := screen.SubImage(image.Rect(px, py, px+cellWidth, py+cellHeight)).(*ebiten.Image)
				cell.Fill(bg)
			}
			text.Draw(screen, string(codePage437[ch]), basicfont.Face7x13, px, py+fontAscent, fg)
		}
	}

	if page.cursorX >= 0 && page.cursorY >= 0 {
		px, py := page.cursorX*cellWidth, page.cursorY*cellHeight
		cursor := screen.SubImage(image.Rect(px, py+cellHeight-2, px+cellWidth, py+cellHeight)).(*ebiten.Image)
		cursor.Fill(ebitenPalette[7])
	}
}

func (g *ebitenGame) Layout(int, int) (int, int) {
	return 80 * cellWidth, 25 * cellHeight
}

func (g *ebitenGame) dumpScreen() {
	g.p.Lock()
	page := g.p.page
	fs := g.p.fs
	g.p.Unlock()

	name := fmt.Sprintf("screen-%d.txt", time.Now().Unix())
	if err := writeScreenDump(fs, name, &page); err != nil {
		log.Print("screen dump failed: ", err)
	}
}

func (p *ebitenPlatform) pushKey(k ebiten.Key, up bool) {
	scan := ebitenToScancode(k)
	if scan == ScanInvalid {
		return
	}
	if up {
		scan |= KeyUpMask
	}

	p.Lock()
	h := p.keyboardHandler
	p.Unlock()
	if h != nil {
		h(scan)
	}
}

func (p *ebitenPlatform) enableAudio() error {
	b, err := newBeeper()
	if err != nil {
		return err
	}
	p.beeper = b
	return nil
}

func (p *ebitenPlatform) setFileSystem(fs FileSystem) {
	p.fs = fs
}

func (p *ebitenPlatform) Create(name string) (File, error) {
	return p.fs.Create(name)
}

func (p *ebitenPlatform) Open(name string) (File, error) {
	return p.fs.Open(name)
}

func (p *ebitenPlatform) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	return p.fs.OpenFile(name, flag, perm)
}

func (p *ebitenPlatform) HasAudio() bool {
	return p.beeper != nil
}

func (p *ebitenPlatform) SetSpeaker(frequency float64, enabled bool) {
	if p.beeper != nil {
		p.beeper.setTone(frequency, enabled)
	}
}

func (p *ebitenPlatform) RenderText(mem []byte, cursorX, cursorY int) {
	p.Lock()
	copy(p.page.mem[:], mem)
	p.page.cursorX = cursorX
	p.page.cursorY = cursorY
	p.Unlock()
}

func (p *ebitenPlatform) SetTitle(title string) {
	ebiten.SetWindowTitle(title)
}

func (p *ebitenPlatform) SetKeyboardHandler(h func(Scancode)) {
	p.Lock()
	p.keyboardHandler = h
	p.Unlock()
}

func ebitenToScancode(k ebiten.Key) Scancode {
	switch k {
	case ebiten.KeyEscape:
		return ScanEscape
	case ebiten.KeyDigit1:
		return Scan1
	case ebiten.KeyDigit2:
		return Scan2
	case ebiten.KeyDigit3:
		return Scan3
	case ebiten.KeyDigit4:
		return Scan4
	case ebiten.KeyDigit5:
		return Scan5
	case ebiten.KeyDigit6:
		return Scan6
	case ebiten.KeyDigit7:
		return Scan7
	case ebiten.KeyDigit8:
		return Scan8
	case ebiten.KeyDigit9:
		return Scan9
	case ebiten.KeyDigit0:
		return Scan0
	case ebiten.KeyMinus:
		return ScanMinus
	case ebiten.KeyEqual:
		return ScanEqual
	case ebiten.KeyBackspace:
		return ScanBackspace
	case ebiten.KeyTab:
		return ScanTab
	case ebiten.KeyQ:
		return ScanQ
	case ebiten.KeyW:
		return ScanW
	case ebiten.KeyE:
		return ScanE
	case ebiten.KeyR:
		return ScanR
	case ebiten.KeyT:
		return ScanT
	case ebiten.KeyY:
		return ScanY
	case ebiten.KeyU:
		return ScanU
	case ebiten.KeyI:
		return ScanI
	case ebiten.KeyO:
		return ScanO
	case ebiten.KeyP:
		return ScanP
	case ebiten.KeyBracketLeft:
		return ScanLBracket
	case ebiten.KeyBracketRight:
		return ScanRBracket
	case ebiten.KeyEnter, ebiten.KeyNumpadEnter:
		return ScanEnter
	case ebiten.KeyControlLeft, ebiten.KeyControlRight:
		return ScanControl
	case ebiten.KeyA:
		return ScanA
	case ebiten.KeyS:
		return ScanS
	case ebiten.KeyD:
		return ScanD
	case ebiten.KeyF:
		return ScanF
	case ebiten.KeyG:
		return ScanG
	case ebiten.KeyH:
		return ScanH
	case ebiten.KeyJ:
		return ScanJ
	case ebiten.KeyK:
		return ScanK
	case ebiten.KeyL:
		return ScanL
	case ebiten.KeySemicolon:
		return ScanSemicolon
	case ebiten.KeyQuote:
		return ScanQuote
	case ebiten.KeyBackquote:
		return ScanBackquote
	case ebiten.KeyShiftLeft:
		return ScanLShift
	case ebiten.KeyBackslash:
		return ScanBackslash
	case ebiten.KeyZ:
		return ScanZ
	case ebiten.KeyX:
		return ScanX
	case ebiten.KeyC:
		return ScanC
	case ebiten.KeyV:
		return ScanV
	case ebiten.KeyB:
		return ScanB
	case ebiten.KeyN:
		return ScanN
	case ebiten.KeyM:
		return ScanM
	case ebiten.KeyComma:
		return ScanComma
	case ebiten.KeyPeriod:
		return ScanPeriod
	case ebiten.KeySlash:
		return ScanSlash
	case ebiten.KeyShiftRight:
		return ScanRShift
	case ebiten.KeyPrintScreen:
		return ScanPrint
	case ebiten.KeyAltLeft, ebiten.KeyAltRight:
		return ScanAlt
	case ebiten.KeySpace:
		return ScanSpace
	case ebiten.KeyCapsLock:
		return ScanCapslock
	case ebiten.KeyF1:
		return ScanF1
	case ebiten.KeyF2:
		return ScanF2
	case ebiten.KeyF3:
		return ScanF3
	case ebiten.KeyF4:
		return ScanF4
	case ebiten.KeyF5:
		return ScanF5
	case ebiten.KeyF6:
		return ScanF6
	case ebiten.KeyF7:
		return ScanF7
	case ebiten.KeyF8:
		return ScanF8
	case ebiten.KeyF9:
		return ScanF9
	case ebiten.KeyNumLock:
		return ScanNumlock
	case ebiten.KeyScrollLock:
		return ScanScrlock
	case ebiten.KeyNumpad7:
		return ScanKPHome
	case ebiten.KeyNumpad8, ebiten.KeyArrowUp:
		return ScanKPUp
	case ebiten.KeyNumpad9:
		return ScanKPPageup
	case ebiten.KeyNumpadSubtract:
		return ScanKPMinus
	case ebiten.KeyNumpad4, ebiten.KeyArrowLeft:
		return ScanKPLeft
	case ebiten.KeyNumpad5:
		return ScanKP5
	case ebiten.KeyNumpad6, ebiten.KeyArrowRight:
		return ScanKPRight
	case ebiten.KeyNumpadAdd:
		return ScanKPPlus
	case ebiten.KeyNumpad1, ebiten.KeyEnd:
		return ScanKPEnd
	case ebiten.KeyNumpad2, ebiten.KeyArrowDown:
		return ScanKPDown
	case ebiten.KeyNumpad3, ebiten.KeyPageDown:
		return ScanKPPagedown
	case ebiten.KeyNumpad0, ebiten.KeyInsert:
		return ScanKPInsert
	case ebiten.KeyNumpadDecimal, ebiten.KeyDelete:
		return ScanKPDelete
	case ebiten.KeyHome:
		return ScanKPHome
	case ebiten.KeyPageUp:
		return ScanKPPageup
	default:
		return ScanInvalid
	}
}
