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

package pic

import "testing"

// program runs the standard boot handshake: vectors 0x20 and 0x28,
// cascade on line 2, 8086 mode, nothing masked.
func program(m *Device) {
	m.Out(0x20, 0x11)
	m.Out(0xA0, 0x11)
	m.Out(0x21, 0x20)
	m.Out(0xA1, 0x28)
	m.Out(0x21, 0x04)
	m.Out(0xA1, 0x02)
	m.Out(0x21, 0x01)
	m.Out(0xA1, 0x01)
	m.Out(0x21, 0x00)
	m.Out(0xA1, 0x00)
}

func TestVectorMapping(t *testing.T) {
	var m Device

	for _, tt := range []struct {
		line   int
		vector int
	}{
		{0, 0x20}, {1, 0x21}, {7, 0x27}, {8, 0x28}, {12, 0x2C}, {15, 0x2F},
	} {
		m.Reset()
		program(&m)
		m.IRQ(tt.line)
		v, err := m.GetInterrupt()
		if err != nil {
			t.Fatalf("line %d: %v", tt.line, err)
		}
		if v != tt.vector {
			t.Errorf("line %d maps to vector 0x%X, want 0x%X", tt.line, v, tt.vector)
		}
		if tt.line >= 8 {
			m.Out(0xA0, 0x0B)
			if isr := m.In(0xA0); isr != 1<<(tt.line-8) {
				t.Errorf("line %d left slave service register 0x%X", tt.line, isr)
			}
			m.Out(0x20, 0x0B)
			if isr := m.In(0x20); isr != 1<<cascadeLine {
				t.Errorf("line %d left master service register 0x%X", tt.line, isr)
			}
		}
	}
}

func TestNothingPending(t *testing.T) {
	var m Device
	program(&m)

	if _, err := m.GetInterrupt(); err != ErrNoInterrupts {
		t.Errorf("idle controller returned %v", err)
	}
}

func TestMasking(t *testing.T) {
	var m Device
	program(&m)
	m.Out(0x21, 0xFF)

	m.IRQ(0)
	if _, err := m.GetInterrupt(); err != ErrNoInterrupts {
		t.Error("masked line was delivered")
	}

	m.Out(0x21, 0xFE)
	if v, err := m.GetInterrupt(); err != nil || v != 0x20 {
		t.Errorf("unmasked line gave %d, %v", v, err)
	}
}

func TestPriorityAndService(t *testing.T) {
	var m Device
	program(&m)

	m.IRQ(1)
	m.IRQ(0)

	v, err := m.GetInterrupt()
	if err != nil || v != 0x20 {
		t.Fatalf("first delivery gave %d, %v", v, err)
	}

	// Line 0 is in service, line 1 must wait for the EOI.
	if _, err := m.GetInterrupt(); err != ErrNoInterrupts {
		t.Error("second line delivered before EOI")
	}

	m.Out(0x20, 0x20)
	v, err = m.GetInterrupt()
	if err != nil || v != 0x21 {
		t.Errorf("delivery after EOI gave %d, %v", v, err)
	}
}

func TestSlaveEOIRearmsCascade(t *testing.T) {
	var m Device
	program(&m)

	m.IRQ(8)
	m.IRQ(9)

	v, err := m.GetInterrupt()
	if err != nil || v != 0x28 {
		t.Fatalf("first slave delivery gave %d, %v", v, err)
	}

	m.Out(0xA0, 0x20)
	m.Out(0x20, 0x20)

	v, err = m.GetInterrupt()
	if err != nil || v != 0x29 {
		t.Errorf("second slave delivery gave %d, %v", v, err)
	}
}

func TestStaleCascade(t *testing.T) {
	var m Device
	program(&m)
	m.Out(0xA1, 0xFF)

	m.IRQ(8)
	if _, err := m.GetInterrupt(); err != ErrNoInterrupts {
		t.Error("masked slave line was delivered")
	}

	// The stale cascade request must not wedge the master.
	m.IRQ(3)
	if v, err := m.GetInterrupt(); err != nil || v != 0x23 {
		t.Errorf("master line after stale cascade gave %d, %v", v, err)
	}
}

func TestRegisterReads(t *testing.T) {
	var m Device
	program(&m)

	m.IRQ(0)
	m.Out(0x20, 0x0A)
	if irr := m.In(0x20); irr != 0x01 {
		t.Errorf("request register reads 0x%X", irr)
	}

	if _, err := m.GetInterrupt(); err != nil {
		t.Fatal(err)
	}
	m.Out(0x20, 0x0B)
	if isr := m.In(0x20); isr != 0x01 {
		t.Errorf("service register reads 0x%X", isr)
	}
	if mask := m.In(0x21); mask != 0 {
		t.Errorf("mask register reads 0x%X", mask)
	}
}

func TestOutOfRangeLines(t *testing.T) {
	var m Device
	program(&m)

	m.IRQ(-1)
	m.IRQ(16)
	if _, err := m.GetInterrupt(); err != ErrNoInterrupts {
		t.Error("out of range line raised a request")
	}
}
