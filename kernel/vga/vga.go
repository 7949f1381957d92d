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

// Package vga writes text through the memory mapped 80x25 buffer at
// 0xB8000. Every cell is a character byte followed by an attribute
// byte. The writer keeps the hardware cursor in sync through the CRT
// controller ports.
package vga

import (
	"fmt"
	"sync"

	"github.com/andreas-jonsson/virtual64/machine"
)

const (
	Width  = 80
	Height = 25

	// MemoryBase is the physical address of the text buffer.
	MemoryBase = machine.Pointer(0xB8000)

	tabSize = 4

	// Substitute glyph for bytes outside code page 437's printable
	// ASCII range.
	substitute = 0xFE

	crtAddressPort = 0x3D4
	crtDataPort    = 0x3D5
	cursorHighReg  = 0x0E
	cursorLowReg   = 0x0F
)

// Color is one of the 16 CGA colors.
type Color byte

const (
	Black Color = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGray
	DarkGray
	LightBlue
	LightGreen
	LightCyan
	LightRed
	Pink
	Yellow
	White
)

// ColorCode is a full attribute byte, background in the high nibble.
type ColorCode byte

func NewColorCode(fg, bg Color) ColorCode {
	return ColorCode(bg)<<4 | ColorCode(fg)
}

// Bus is the slice of the machine the writer drives. Writes happen
// with interrupt delivery suppressed so a handler printing on the
// same screen can never interleave with a half written line.
type Bus interface {
	machine.Memory
	machine.PortIO
	WithoutInterrupts(fn func())
}

// Writer is a text console over the VGA buffer. It is safe for use
// from handlers and regular code alike.
type Writer struct {
	mu    sync.Mutex
	bus   Bus
	row   int
	col   int
	color ColorCode
	bell  func()
}

// New returns a writer on the given bus. The cursor starts at the top
// left with light cyan on black, the screen content is left alone.
func New(bus Bus) *Writer {
	if bus == nil {
		panic("vga: nil bus")
	}
	return &Writer{bus: bus, color: NewColorCode(LightCyan, Black)}
}

// SetBell installs the handler for BEL bytes.
func (w *Writer) SetBell(fn func()) {
	w.bus.WithoutInterrupts(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.bell = fn
	})
}

// SetColor changes the attribute used for subsequent output.
func (w *Writer) SetColor(c ColorCode) {
	w.bus.WithoutInterrupts(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.color = c
	})
}

// Color returns the current attribute.
func (w *Writer) Color() ColorCode {
	var c ColorCode
	w.bus.WithoutInterrupts(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		c = w.color
	})
	return c
}

// Position returns the cursor cell.
func (w *Writer) Position() (row, col int) {
	w.bus.WithoutInterrupts(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		row, col = w.row, w.col
	})
	return
}

// Clear blanks the screen with the current attribute and homes the
// cursor.
func (w *Writer) Clear() {
	w.bus.WithoutInterrupts(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for row := 0; row < Height; row++ {
			w.clearRow(row)
		}
		w.row, w.col = 0, 0
		w.syncCursor()
	})
}

// WriteByte writes a single byte. Bytes that are neither printable
// ASCII nor a control byte the writer understands print the
// substitute glyph.
func (w *Writer) WriteByte(b byte) error {
	w.bus.WithoutInterrupts(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.writeFiltered(b)
		w.syncCursor()
	})
	return nil
}

// WriteString writes s, replacing anything that is neither printable
// ASCII nor a control byte the writer understands.
func (w *Writer) WriteString(s string) {
	w.bus.WithoutInterrupts(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for i := 0; i < len(s); i++ {
			w.writeFiltered(s[i])
		}
		w.syncCursor()
	})
}

// Write implements io.Writer with WriteString semantics.
func (w *Writer) Write(p []byte) (int, error) {
	w.bus.WithoutInterrupts(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for _, b := range p {
			w.writeFiltered(b)
		}
		w.syncCursor()
	})
	return len(p), nil
}

// Printf formats through fmt onto the screen.
func (w *Writer) Printf(format string, a ...interface{}) {
	fmt.Fprintf(w, format, a...)
}

func (w *Writer) writeFiltered(b byte) {
	switch {
	case b >= 0x20 && b <= 0x7E:
		w.writeByte(b)
	case b == '\n' || b == '\r' || b == '\t' || b == '\b' || b == '\a':
		w.writeByte(b)
	default:
		w.writeByte(substitute)
	}
}

func (w *Writer) writeByte(b byte) {
	switch b {
	case '\n':
		w.newLine()
	case '\r':
		w.col = 0
	case '\t':
		w.col += tabSize - w.col%tabSize
		if w.col >= Width {
			w.newLine()
		}
	case '\b':
		if w.col > 0 {
			w.col--
			w.putAt(w.row, w.col, ' ')
		}
	case '\a':
		if w.bell != nil {
			w.bell()
		}
	default:
		if w.col >= Width {
			w.newLine()
		}
		w.putAt(w.row, w.col, b)
		w.col++
	}
}

func (w *Writer) newLine() {
	w.col = 0
	w.row++
	if w.row < Height {
		return
	}
	w.row = Height - 1
	for row := 1; row < Height; row++ {
		for col := 0; col < Width; col++ {
			addr := cellAddress(row, col)
			ch := w.bus.ReadByte(addr)
			attr := w.bus.ReadByte(addr + 1)
			above := cellAddress(row-1, col)
			w.bus.WriteByte(above, ch)
			w.bus.WriteByte(above+1, attr)
		}
	}
	w.clearRow(Height - 1)
}

func (w *Writer) clearRow(row int) {
	for col := 0; col < Width; col++ {
		w.putAt(row, col, ' ')
	}
}

func (w *Writer) putAt(row, col int, b byte) {
	addr := cellAddress(row, col)
	w.bus.WriteByte(addr, b)
	w.bus.WriteByte(addr+1, byte(w.color))
}

func cellAddress(row, col int) machine.Pointer {
	return MemoryBase + machine.Pointer(row*Width+col)*2
}

func (w *Writer) syncCursor() {
	pos := uint16(w.row*Width + w.col)
	w.bus.Out(crtAddressPort, cursorHighReg)
	w.bus.Out(crtDataPort, byte(pos>>8))
	w.bus.Out(crtAddressPort, cursorLowReg)
	w.bus.Out(crtDataPort, byte(pos))
}
