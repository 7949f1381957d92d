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

package speaker

import (
	"errors"

	"github.com/andreas-jonsson/virtual64/emulator/peripheral"
)

type pitInterface interface {
	GetFrequency(channel int) float64
}

// Beeper is the platform side audio output. A nil beeper mutes the
// speaker without touching the gate logic.
type Beeper interface {
	SetSpeaker(frequency float64, enabled bool)
}

// Device is the PC speaker. Port 0x61 gates timer channel 2 onto the
// output: both low bits set turns the tone on.
type Device struct {
	Output Beeper

	bus       peripheral.Backplane
	pit       pitInterface
	port      byte
	enabled   bool
	frequency float64
}

func (m *Device) Install(b peripheral.Backplane) error {
	m.bus = b
	return b.InstallIODeviceAt(m, 0x61)
}

func (m *Device) Name() string {
	return "PC Speaker"
}

func (m *Device) Reset() {
	m.port = 0
	m.enabled = false
	m.frequency = 0
	if m.Output != nil {
		m.Output.SetSpeaker(0, false)
	}
}

// Step follows channel 2 so pitch changes reach the output while the
// gate stays open.
func (m *Device) Step(int) error {
	if m.pit == nil {
		var ok bool
		if m.pit, ok = m.bus.GetMappedIODevice(0x40).(pitInterface); !ok {
			return errors.New("could not find PIT")
		}
	}

	if !m.enabled {
		return nil
	}
	if f := m.pit.GetFrequency(2); f != m.frequency {
		m.frequency = f
		if m.Output != nil {
			m.Output.SetSpeaker(f, true)
		}
	}
	return nil
}

func (m *Device) In(port uint16) byte {
	return m.port
}

func (m *Device) Out(_ uint16, data byte) {
	m.port = data
	if b := data&3 == 3; b != m.enabled {
		m.enabled = b
		m.frequency = 0
		if !b && m.Output != nil {
			m.Output.SetSpeaker(0, false)
		}
	}
}
