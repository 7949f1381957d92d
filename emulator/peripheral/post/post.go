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

package post

import (
	"github.com/andreas-jonsson/virtual64/emulator/peripheral"
)

// Device latches the POST diagnostic port. Drivers also write here
// purely for the IO delay, so the port has to exist for the interrupt
// controller handshake to stay off the unmapped port log.
type Device struct {
	peripheral.NullDevice
	code byte
}

func (m *Device) Install(b peripheral.Backplane) error {
	return b.InstallIODeviceAt(m, 0x80)
}

func (m *Device) Name() string {
	return "POST Diagnostic Port"
}

// Code returns the last latched diagnostic code.
func (m *Device) Code() byte {
	return m.code
}

func (m *Device) In(port uint16) byte {
	return m.code
}

func (m *Device) Out(port uint16, data byte) {
	m.code = data
}
