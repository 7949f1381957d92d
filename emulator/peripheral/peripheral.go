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

package peripheral

import (
	"github.com/andreas-jonsson/virtual64/machine"
)

// InterruptController queues interrupt requests from devices and hands
// the highest priority pending vector to the machine.
type InterruptController interface {
	// GetInterrupt returns the next vector to service or an error when
	// nothing is pending.
	GetInterrupt() (int, error)

	// IRQ raises interrupt line n, 0 to 15.
	IRQ(n int)
}

// Backplane is what a peripheral sees of the machine it is installed
// in: the shared bus plus the slots to claim regions of it.
type Backplane interface {
	machine.PortIO
	machine.Memory

	InstallIODevice(dev machine.PortIO, from, to uint16) error
	InstallIODeviceAt(dev machine.PortIO, ports ...uint16) error
	InstallMemoryDevice(dev machine.Memory, from, to machine.Pointer) error

	GetMappedIODevice(port uint16) machine.PortIO
	GetInterruptController() InterruptController
}

type Peripheral interface {
	Name() string
	Reset()
	Step(int) error
	Install(Backplane) error
}

type PeripheralCloser interface {
	Close() error
}

type NullDevice struct {
}

func (*NullDevice) Install(Backplane) error {
	return nil
}

func (*NullDevice) Name() string {
	return "Null Device"
}

func (*NullDevice) Reset() {
}

func (*NullDevice) Step(int) error {
	return nil
}
