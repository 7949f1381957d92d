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

package keyboard

import (
	"errors"

	"github.com/andreas-jonsson/virtual64/emulator/peripheral"
)

const MaxEvents = 64

const (
	dataPort   = 0x60
	statusPort = 0x64

	// Status bit 0: the output buffer holds an unread scancode.
	statusOutputFull = 0x01
)

// Device is the 8042 style keyboard controller. Scancodes queued from
// the platform's input goroutine are promoted to the data port one at
// a time, each promotion raising interrupt line 1. The buffer stays
// full until the kernel reads the data port.
type Device struct {
	data, status byte

	events chan byte
	pic    peripheral.InterruptController
}

func (m *Device) Install(b peripheral.Backplane) error {
	m.pic = b.GetInterruptController()
	m.events = make(chan byte, MaxEvents)
	return b.InstallIODeviceAt(m, dataPort, statusPort)
}

func (m *Device) Name() string {
	return "Keyboard Controller (Intel 8042)"
}

func (m *Device) Reset() {
	m.data = 0
	m.status = 0
	for {
		select {
		case <-m.events:
		default:
			return
		}
	}
}

// PushEvent queues a raw scancode byte. Safe to call from any
// goroutine. It fails when the kernel stops draining the buffer and
// the queue runs over.
func (m *Device) PushEvent(data byte) error {
	select {
	case m.events <- data:
		return nil
	default:
		return errors.New("event queue is full")
	}
}

func (m *Device) Step(int) error {
	if m.status&statusOutputFull != 0 {
		return nil
	}
	select {
	case m.data = <-m.events:
		m.status |= statusOutputFull
		if m.pic != nil {
			m.pic.IRQ(1)
		}
	default:
	}
	return nil
}

func (m *Device) In(port uint16) byte {
	switch port {
	case dataPort:
		m.status &^= byte(statusOutputFull)
		return m.data
	case statusPort:
		return m.status
	}
	return 0
}

func (m *Device) Out(port uint16, data byte) {
}
