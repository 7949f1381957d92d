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

import (
	"errors"

	"github.com/andreas-jonsson/virtual64/emulator/peripheral"
)

var ErrNoInterrupts = errors.New("no interrupts")

const cascadeLine = 2

// chip is one 8259. The pair wiring lives in Device.
type chip struct {
	maskReg, requestReg, serviceReg,
	icwStep, readMode byte
	icw [5]byte
}

func (c *chip) command(data byte) {
	if data&0x10 != 0 {
		c.icwStep = 1
		c.maskReg = 0
		c.icw[c.icwStep] = data
		c.icwStep++
		return
	}
	if data&0x98 == 8 && data&2 != 0 {
		c.readMode = data & 1
		return
	}
	if data&0x20 != 0 {
		for i := 0; i < 8; i++ {
			if c.serviceReg>>i&1 != 0 {
				c.serviceReg ^= 1 << i
				return
			}
		}
	}
}

func (c *chip) data(data byte) {
	if c.icwStep == 3 && c.icw[1]&2 != 0 {
		c.icwStep = 4
	}
	if c.icwStep == 4 && c.icw[1]&1 == 0 {
		c.icwStep = 5
	}
	if c.icwStep > 0 && c.icwStep < 5 {
		c.icw[c.icwStep] = data
		c.icwStep++
		return
	}
	c.maskReg = data
}

func (c *chip) read(command bool) byte {
	if !command {
		return c.maskReg
	}
	if c.readMode == 0 {
		return c.requestReg
	}
	return c.serviceReg
}

// next takes the highest priority deliverable line, moving it from the
// request to the service register. Any line already in service blocks
// itself and everything below it.
func (c *chip) next() (int, bool) {
	has := c.requestReg &^ c.maskReg
	if has == 0 {
		return 0, false
	}
	for i := 0; i < 8; i++ {
		if c.serviceReg>>i&1 != 0 {
			return 0, false
		}
		if has>>i&1 != 0 {
			c.requestReg &^= 1 << i
			c.serviceReg |= 1 << i
			return i, true
		}
	}
	return 0, false
}

func (c *chip) pending() bool {
	return c.requestReg&^c.maskReg != 0
}

// Device is the chained pair of 8259 controllers, the slave wired to
// master line 2.
type Device struct {
	master, slave chip
}

func (m *Device) Install(b peripheral.Backplane) error {
	if err := b.InstallIODevice(m, 0x20, 0x21); err != nil {
		return err
	}
	return b.InstallIODevice(m, 0xA0, 0xA1)
}

func (m *Device) Name() string {
	return "Programmable Interrupt Controllers (Intel 8259 pair)"
}

func (m *Device) Reset() {
	*m = Device{}
}

func (m *Device) Step(int) error {
	return nil
}

// IRQ raises line n. Lines 8 to 15 land on the slave and pull the
// cascade line on the master with them.
func (m *Device) IRQ(n int) {
	if n < 0 || n > 15 {
		return
	}
	if n < 8 {
		m.master.requestReg |= 1 << n
		return
	}
	m.slave.requestReg |= 1 << (n - 8)
	m.master.requestReg |= 1 << cascadeLine
}

// GetInterrupt implements peripheral.InterruptController. The vector
// is the servicing chip's programmed offset plus its line number.
func (m *Device) GetInterrupt() (int, error) {
	has := m.master.requestReg &^ m.master.maskReg
	if has == 0 {
		return 0, ErrNoInterrupts
	}
	for i := 0; i < 8; i++ {
		if m.master.serviceReg>>i&1 != 0 {
			return 0, ErrNoInterrupts
		}
		if has>>i&1 == 0 {
			continue
		}
		if i == cascadeLine {
			j, ok := m.slave.next()
			if !ok {
				// Stale cascade request, the slave lines got masked.
				m.master.requestReg &^= 1 << cascadeLine
				continue
			}
			m.master.requestReg &^= 1 << cascadeLine
			m.master.serviceReg |= 1 << cascadeLine
			return int(m.slave.icw[2]) + j, nil
		}
		m.master.requestReg &^= 1 << i
		m.master.serviceReg |= 1 << i
		return int(m.master.icw[2]) + i, nil
	}
	return 0, ErrNoInterrupts
}

func (m *Device) In(port uint16) byte {
	switch port {
	case 0x20, 0x21:
		return m.master.read(port == 0x20)
	case 0xA0, 0xA1:
		return m.slave.read(port == 0xA0)
	}
	return 0
}

func (m *Device) Out(port uint16, data byte) {
	switch port {
	case 0x20:
		m.master.command(data)
	case 0x21:
		m.master.data(data)
	case 0xA0:
		m.slave.command(data)
		// A finished slave interrupt rearms the cascade line if more
		// slave requests are waiting.
		if data&0x20 != 0 && m.slave.pending() {
			m.master.requestReg |= 1 << cascadeLine
		}
	case 0xA1:
		m.slave.data(data)
	}
}
