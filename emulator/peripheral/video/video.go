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

package video

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/andreas-jonsson/virtual64/emulator/peripheral"
	"github.com/andreas-jonsson/virtual64/machine"
)

const (
	// MemoryBase is where the text buffer is mapped. The 16K window
	// wraps, the visible page is the first 4000 bytes.
	MemoryBase  = machine.Pointer(0xB8000)
	memorySize  = 0x4000
	Columns     = 80
	Rows        = 25
	pageSize    = Columns * Rows * 2
	refreshRate = 30
)

// Renderer receives snapshots of the visible page. The platform
// window implements this, a nil renderer runs headless.
type Renderer interface {
	RenderText(mem []byte, cursorX, cursorY int)
}

// Device is the CGA compatible text adapter.
type Device struct {
	lock  sync.RWMutex
	dirty bool

	mem           [memorySize]byte
	crtReg        [0x100]byte
	crtAddr       byte
	cursorPos     uint16
	cursorVisible bool

	renderer Renderer
	quitChan chan struct{}
}

func New(r Renderer) *Device {
	return &Device{renderer: r, cursorVisible: true}
}

func (m *Device) Install(b peripheral.Backplane) error {
	// Real adapters power up with garbage in video memory.
	rand.Read(m.mem[:])

	if err := b.InstallMemoryDevice(m, MemoryBase, MemoryBase+memorySize-1); err != nil {
		return err
	}
	if err := b.InstallIODevice(m, 0x3D0, 0x3DA); err != nil {
		return err
	}

	if m.renderer != nil {
		m.quitChan = make(chan struct{})
		go m.renderLoop()
	}
	return nil
}

func (m *Device) Name() string {
	return "Text Display Adapter (CGA compatible)"
}

func (m *Device) Reset() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.crtAddr = 0
	m.cursorPos = 0
	m.cursorVisible = true
	m.dirty = true
}

func (m *Device) Step(int) error {
	return nil
}

func (m *Device) Close() error {
	if m.quitChan != nil {
		close(m.quitChan)
		m.quitChan = nil
	}
	return nil
}

func (m *Device) renderLoop() {
	t := time.NewTicker(time.Second / refreshRate)
	defer t.Stop()

	for {
		select {
		case <-m.quitChan:
			return
		case <-t.C:
			if page, x, y, ok := m.snapshot(); ok {
				m.renderer.RenderText(page, x, y)
			}
		}
	}
}

// snapshot copies the visible page if anything changed since the last
// call.
func (m *Device) snapshot() ([]byte, int, int, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if !m.dirty {
		return nil, 0, 0, false
	}
	m.dirty = false

	page := make([]byte, pageSize)
	copy(page, m.mem[:pageSize])

	x, y := -1, -1
	if m.cursorVisible {
		x, y = int(m.cursorPos)%Columns, int(m.cursorPos)/Columns
	}
	return page, x, y, true
}

// Page returns a copy of the visible page.
func (m *Device) Page() []byte {
	m.lock.RLock()
	defer m.lock.RUnlock()
	page := make([]byte, pageSize)
	copy(page, m.mem[:pageSize])
	return page
}

// Cursor returns the cursor cell, or -1,-1 while it is hidden.
func (m *Device) Cursor() (int, int) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if !m.cursorVisible {
		return -1, -1
	}
	return int(m.cursorPos) % Columns, int(m.cursorPos) / Columns
}

func (m *Device) ReadByte(addr machine.Pointer) byte {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.mem[(addr-MemoryBase)&(memorySize-1)]
}

func (m *Device) WriteByte(addr machine.Pointer, data byte) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.mem[(addr-MemoryBase)&(memorySize-1)] = data
	m.dirty = true
}

func (m *Device) In(port uint16) byte {
	m.lock.Lock()
	defer m.lock.Unlock()

	switch port {
	case 0x3D4:
		return m.crtAddr
	case 0x3D5:
		return m.crtReg[m.crtAddr]
	case 0x3DA:
		// Flip retrace so polling software makes progress.
		m.crtReg[0x3A] ^= 0x9
		return m.crtReg[0x3A]
	}
	return 0
}

func (m *Device) Out(port uint16, data byte) {
	m.lock.Lock()
	defer m.lock.Unlock()

	switch port {
	case 0x3D4:
		m.crtAddr = data
	case 0x3D5:
		m.crtReg[m.crtAddr] = data
		switch m.crtAddr {
		case 0x0A:
			m.cursorVisible = data&0x20 == 0
			m.dirty = true
		case 0x0E:
			m.cursorPos = m.cursorPos&0x00FF | uint16(data)<<8
			m.dirty = true
		case 0x0F:
			m.cursorPos = m.cursorPos&0xFF00 | uint16(data)
			m.dirty = true
		}
	}
}
