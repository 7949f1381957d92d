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

// Package platform hosts the machine on real hardware. A backend owns
// the display, keyboard and speaker and hands scancodes and rendering
// to the emulated devices.
package platform

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
)

type internalPlatform interface{}

// Config adjusts a platform backend before it starts.
type Config func(internalPlatform) error

type File interface {
	io.ReadWriteSeeker
	io.ReaderAt
	io.Closer
}

type FileSystem interface {
	Create(name string) (File, error)
	Open(name string) (File, error)
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
}

type aferoFileSystem struct {
	fs afero.Fs
}

// NewFileSystem adapts an afero filesystem to the platform interface.
func NewFileSystem(fs afero.Fs) FileSystem {
	return &aferoFileSystem{fs}
}

func (s *aferoFileSystem) Create(name string) (File, error) {
	return s.fs.Create(name)
}

func (s *aferoFileSystem) Open(name string) (File, error) {
	return s.fs.Open(name)
}

func (s *aferoFileSystem) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	return s.fs.OpenFile(name, flag, perm)
}

type Platform interface {
	FileSystem

	HasAudio() bool
	RenderText(mem []byte, cursorX, cursorY int)
	SetSpeaker(frequency float64, enabled bool)
	SetTitle(title string)
	SetKeyboardHandler(h func(Scancode))
}

var Instance Platform

// ConfigWithAudio opens the audio device. Backends without audio
// support ignore it.
func ConfigWithAudio(p internalPlatform) error {
	a, ok := p.(interface{ enableAudio() error })
	if !ok {
		return nil
	}
	return a.enableAudio()
}

// ConfigWithFileSystem replaces the backend's host filesystem.
func ConfigWithFileSystem(fs afero.Fs) Config {
	return func(p internalPlatform) error {
		if s, ok := p.(interface{ setFileSystem(FileSystem) }); ok {
			s.setFileSystem(NewFileSystem(fs))
		}
		return nil
	}
}

// textPage is a snapshot of the 80x25 text screen with the cursor
// position, or -1,-1 when the cursor is hidden.
type textPage struct {
	mem              [80 * 25 * 2]byte
	cursorX, cursorY int
}

func writeScreenDump(fs FileSystem, name string, page *textPage) error {
	fp, err := fs.Create(name)
	if err != nil {
		return err
	}
	defer fp.Close()

	var sb strings.Builder
	for y := 0; y < 25; y++ {
		for x := 0; x < 80; x++ {
			sb.WriteRune(codePage437[page.mem[y*160+x*2]])
		}
		sb.WriteByte('\n')
	}
	_, err = io.WriteString(fp, sb.String())
	return err
}

type Scancode byte

const KeyUpMask Scancode = 0x80

const (
	ScanInvalid Scancode = iota
	ScanEscape
	Scan1
	Scan2
	Scan3
	Scan4
	Scan5
	Scan6
	Scan7
	Scan8
	Scan9
	Scan0
	ScanMinus
	ScanEqual
	ScanBackspace
	ScanTab
	ScanQ
	ScanW
	ScanE
	ScanR
	ScanT
	ScanY
	ScanU
	ScanI
	ScanO
	ScanP
	ScanLBracket
	ScanRBracket
	ScanEnter
	ScanControl
	ScanA
	ScanS
	ScanD
	ScanF
	ScanG
	ScanH
	ScanJ
	ScanK
	ScanL
	ScanSemicolon
	ScanQuote
	ScanBackquote
	ScanLShift
	ScanBackslash
	ScanZ
	ScanX
	ScanC
	ScanV
	ScanB
	ScanN
	ScanM
	ScanComma
	ScanPeriod
	ScanSlash
	ScanRShift
	ScanPrint
	ScanAlt
	ScanSpace
	ScanCapslock
	ScanF1
	ScanF2
	ScanF3
	ScanF4
	ScanF5
	ScanF6
	ScanF7
	ScanF8
	ScanF9
	ScanF10
	ScanNumlock
	ScanScrlock
	ScanKPHome
	ScanKPUp
	ScanKPPageup
	ScanKPMinus
	ScanKPLeft
	ScanKP5
	ScanKPRight
	ScanKPPlus
	ScanKPEnd
	ScanKPDown
	ScanKPPagedown
	ScanKPInsert
	ScanKPDelete
)
