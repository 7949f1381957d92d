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

import "testing"

func TestMemoryWindow(t *testing.T) {
	m := New(nil)

	m.WriteByte(MemoryBase, 'A')
	if b := m.ReadByte(MemoryBase); b != 'A' {
		t.Errorf("read back 0x%X", b)
	}

	// The window wraps every 16K.
	m.WriteByte(MemoryBase+memorySize, 'B')
	if b := m.ReadByte(MemoryBase); b != 'B' {
		t.Error("window does not wrap")
	}

	if page := m.Page(); page[0] != 'B' {
		t.Error("page snapshot misses writes")
	}
}

func TestCursorRegisters(t *testing.T) {
	m := New(nil)

	pos := uint16(5*Columns + 7)
	m.Out(0x3D4, 0x0E)
	m.Out(0x3D5, byte(pos>>8))
	m.Out(0x3D4, 0x0F)
	m.Out(0x3D5, byte(pos))

	if x, y := m.Cursor(); x != 7 || y != 5 {
		t.Errorf("cursor at %d,%d", x, y)
	}

	m.Out(0x3D4, 0x0A)
	m.Out(0x3D5, 0x20)
	if x, y := m.Cursor(); x != -1 || y != -1 {
		t.Errorf("hidden cursor reports %d,%d", x, y)
	}

	m.Out(0x3D5, 0x0D)
	if x, _ := m.Cursor(); x != 7 {
		t.Error("cursor did not come back")
	}

	m.Out(0x3D4, 0x0E)
	if m.In(0x3D5) != byte(pos>>8) {
		t.Error("register does not read back")
	}
}

func TestSnapshotDirtyTracking(t *testing.T) {
	m := New(nil)

	m.WriteByte(MemoryBase, 'A')
	page, x, y, ok := m.snapshot()
	if !ok {
		t.Fatal("write did not mark the page dirty")
	}
	if page[0] != 'A' {
		t.Error("snapshot misses the write")
	}
	if x != 0 || y != 0 {
		t.Errorf("cursor at %d,%d", x, y)
	}

	if _, _, _, ok := m.snapshot(); ok {
		t.Error("clean page snapshotted twice")
	}

	m.Out(0x3D4, 0x0F)
	m.Out(0x3D5, 3)
	if _, x, _, ok := m.snapshot(); !ok || x != 3 {
		t.Error("cursor move did not dirty the page")
	}
}

func TestRetraceToggles(t *testing.T) {
	m := New(nil)
	a := m.In(0x3DA)
	if b := m.In(0x3DA); a == b {
		t.Error("retrace status is stuck")
	}
}

func TestPageIsACopy(t *testing.T) {
	m := New(nil)
	page := m.Page()
	page[0] = 'X'
	if m.ReadByte(MemoryBase) == 'X' {
		t.Error("page snapshot aliases video memory")
	}
}
