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

// Package i8259 drives the chained pair of Intel 8259 interrupt
// controllers. The pair powers up mapped over the CPU exception
// vectors, so the first thing the kernel does is remap it.
package i8259

import (
	"fmt"

	"github.com/andreas-jonsson/virtual64/machine"
)

// VectorsPerChip is the width of one controller's vector window.
const VectorsPerChip = 8

const (
	masterCommandPort = 0x20
	masterDataPort    = 0x21
	slaveCommandPort  = 0xA0
	slaveDataPort     = 0xA1

	// Writes to the POST diagnostic port take long enough to let the
	// controllers settle between initialization words.
	settlePort = 0x80

	icw1Init     = 0x10
	icw1NeedICW4 = 0x01
	icw4Mode8086 = 0x01

	ocw2EOI     = 0x20
	ocw3ReadIRR = 0x0A
	ocw3ReadISR = 0x0B

	slaveIRQ     = 2
	cascadeID    = 2
	maskSlaveBit = 1 << slaveIRQ
)

// ChainedPICs drives the classic master/slave controller pair. The
// slave hangs off master line 2.
type ChainedPICs struct {
	io               machine.PortIO
	offset1, offset2 byte
}

func New(io machine.PortIO) *ChainedPICs {
	return &ChainedPICs{io: io}
}

func (p *ChainedPICs) settle() {
	p.io.Out(settlePort, 0)
}

// Remap runs the four word initialization handshake and moves the two
// vector windows to offset1 and offset2. The masks in effect before
// the handshake are restored afterwards. Offsets that leave a window
// inside the exception range or overlap each other are a programming
// error.
func (p *ChainedPICs) Remap(offset1, offset2 byte) {
	if offset1 < 0x20 || offset2 < 0x20 {
		panic(fmt.Sprintf("i8259: offsets 0x%X, 0x%X collide with exceptions", offset1, offset2))
	}
	d := int(offset1) - int(offset2)
	if d > -VectorsPerChip && d < VectorsPerChip {
		panic(fmt.Sprintf("i8259: offsets 0x%X, 0x%X overlap", offset1, offset2))
	}
	p.offset1, p.offset2 = offset1, offset2

	savedMaster := p.io.In(masterDataPort)
	savedSlave := p.io.In(slaveDataPort)

	p.io.Out(masterCommandPort, icw1Init|icw1NeedICW4)
	p.settle()
	p.io.Out(slaveCommandPort, icw1Init|icw1NeedICW4)
	p.settle()

	p.io.Out(masterDataPort, offset1)
	p.settle()
	p.io.Out(slaveDataPort, offset2)
	p.settle()

	p.io.Out(masterDataPort, maskSlaveBit)
	p.settle()
	p.io.Out(slaveDataPort, cascadeID)
	p.settle()

	p.io.Out(masterDataPort, icw4Mode8086)
	p.settle()
	p.io.Out(slaveDataPort, icw4Mode8086)
	p.settle()

	p.io.Out(masterDataPort, savedMaster)
	p.io.Out(slaveDataPort, savedSlave)
}

// SetMasks writes both interrupt mask registers. A set bit suppresses
// the corresponding line.
func (p *ChainedPICs) SetMasks(master, slave byte) {
	p.io.Out(masterDataPort, master)
	p.io.Out(slaveDataPort, slave)
}

// Masks reads back both interrupt mask registers.
func (p *ChainedPICs) Masks() (master, slave byte) {
	return p.io.In(masterDataPort), p.io.In(slaveDataPort)
}

// Disable masks every line on both controllers.
func (p *ChainedPICs) Disable() {
	p.SetMasks(0xFF, 0xFF)
}

// HandlesInterrupt reports whether the vector falls in one of the two
// remapped windows.
func (p *ChainedPICs) HandlesInterrupt(vector int) bool {
	return p.inWindow(vector, p.offset1) || p.inWindow(vector, p.offset2)
}

func (p *ChainedPICs) inWindow(vector int, offset byte) bool {
	return vector >= int(offset) && vector < int(offset)+VectorsPerChip
}

// EndOfInterrupt signals completion for the vector. Interrupts that
// arrived through the slave are acknowledged on both chips, slave
// first. Signaling a vector outside both windows is a programming
// error.
func (p *ChainedPICs) EndOfInterrupt(vector int) {
	switch {
	case p.inWindow(vector, p.offset2):
		p.io.Out(slaveCommandPort, ocw2EOI)
		fallthrough
	case p.inWindow(vector, p.offset1):
		p.io.Out(masterCommandPort, ocw2EOI)
	default:
		panic(fmt.Sprintf("i8259: vector %d is not a hardware interrupt", vector))
	}
}

// ReadIRR returns the raised but not yet serviced lines of both
// controllers, slave in the high byte.
func (p *ChainedPICs) ReadIRR() uint16 {
	return p.readRegisters(ocw3ReadIRR)
}

// ReadISR returns the lines currently being serviced, slave in the
// high byte.
func (p *ChainedPICs) ReadISR() uint16 {
	return p.readRegisters(ocw3ReadISR)
}

func (p *ChainedPICs) readRegisters(cmd byte) uint16 {
	p.io.Out(masterCommandPort, cmd)
	p.io.Out(slaveCommandPort, cmd)
	return uint16(p.io.In(masterCommandPort)) | uint16(p.io.In(slaveCommandPort))<<8
}
