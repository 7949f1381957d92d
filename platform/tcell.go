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
	"log"
	"os"
	"sync"

	"github.com/gdamore/tcell"
	"github.com/spf13/afero"
)

type tcellPlatform struct {
	sync.Mutex

	screen tcell.Screen
	page   textPage
	fs     FileSystem
	beeper *beeper

	keyboardHandler func(Scancode)
}

var tcellPlatformInstance tcellPlatform

// Start hands the terminal to the screen and runs mainLoop on the
// platform. It does not return until the main loop does.
func Start(mainLoop func(Platform), configs ...Config) {
	p := &tcellPlatformInstance
	p.fs = NewFileSystem(afero.NewOsFs())

	for _, cfg := range configs {
		if err := cfg(p); err != nil {
			log.Fatal(err)
		}
	}

	tcell.SetEncodingFallback(tcell.EncodingFallbackASCII)

	var err error
	if p.screen, err = tcell.NewScreen(); err != nil {
		log.Fatal(err)
	}

	Instance = p
	s := p.screen

	if err = s.Init(); err != nil {
		log.Fatal(err)
	}
	defer s.Fini()

	// The terminal belongs to the screen now.
	MuteLogging(true)

	s.ShowCursor(0, 0)
	s.DisableMouse()
	s.Clear()

	if err := p.initializeTcellEvents(); err != nil {
		log.Fatal(err)
	}
	mainLoop(Instance)

	if p.beeper != nil {
		p.beeper.close()
	}
}

func (p *tcellPlatform) enableAudio() error {
	b, err := newBeeper()
	if err != nil {
		return err
	}
	p.beeper = b
	return nil
}

func (p *tcellPlatform) setFileSystem(fs FileSystem) {
	p.fs = fs
}

func (p *tcellPlatform) Create(name string) (File, error) {
	return p.fs.Create(name)
}

func (p *tcellPlatform) Open(name string) (File, error) {
	return p.fs.Open(name)
}

func (p *tcellPlatform) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	return p.fs.OpenFile(name, flag, perm)
}

func (p *tcellPlatform) HasAudio() bool {
	return p.beeper != nil
}

func (p *tcellPlatform) SetSpeaker(frequency float64, enabled bool) {
	if p.beeper != nil {
		p.beeper.setTone(frequency, enabled)
	}
}

func (p *tcellPlatform) RenderText(mem []byte, cursorX, cursorY int) {
	p.Lock()
	copy(p.page.mem[:], mem)
	p.page.cursorX = cursorX
	p.page.cursorY = cursorY
	p.Unlock()
	p.screen.PostEvent(tcell.NewEventInterrupt(&p.page))
}

func (p *tcellPlatform) SetTitle(title string) {
}

func (p *tcellPlatform) SetKeyboardHandler(h func(Scancode)) {
	p.Lock()
	p.keyboardHandler = h
	p.Unlock()
}
