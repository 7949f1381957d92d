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

// Package i8253 drives the programmable interval timer. Channel 0
// feeds interrupt line 0 and paces the kernel, channel 2 feeds the
// speaker.
package i8253

import (
	"fmt"

	"github.com/andreas-jonsson/virtual64/machine"
)

// BaseFrequency is the crystal feeding all three channels, in Hz.
const BaseFrequency = 1193182

const (
	channel0Port = 0x40
	channel2Port = 0x42
	commandPort  = 0x43

	// Speaker gate and data enable bits live on the keyboard
	// controller port.
	gatePort = 0x61
	gateBits = 0x03

	maxDivisor = 0x10000
	squareWave = 0x06
	accessLoHi = 0x30
	selectCh0  = 0x00
	selectCh2  = 0x80
)

// Timer programs the interval timer through port IO.
type Timer struct {
	io machine.PortIO
}

func New(io machine.PortIO) *Timer {
	return &Timer{io: io}
}

// divisor converts a rate in Hz to a counter reload value. Zero
// encodes the maximum divisor.
func divisor(hz int) uint16 {
	if hz <= 0 {
		panic(fmt.Sprintf("i8253: invalid rate %d Hz", hz))
	}
	d := BaseFrequency / hz
	if d >= maxDivisor {
		return 0
	}
	if d < 1 {
		d = 1
	}
	return uint16(d)
}

func (t *Timer) program(selector byte, dataPort uint16, d uint16) {
	t.io.Out(commandPort, selector|accessLoHi|squareWave)
	t.io.Out(dataPort, byte(d))
	t.io.Out(dataPort, byte(d>>8))
}

// SetRate programs channel 0 as a square wave at the given rate. The
// controller raises interrupt line 0 once per period.
func (t *Timer) SetRate(hz int) {
	t.program(selectCh0, channel0Port, divisor(hz))
}

// StartBeep programs channel 2 at the given tone and opens the
// speaker gate.
func (t *Timer) StartBeep(hz int) {
	t.program(selectCh2, channel2Port, divisor(hz))
	t.io.Out(gatePort, t.io.In(gatePort)|gateBits)
}

// StopBeep closes the speaker gate. The channel keeps counting but
// nothing listens.
func (t *Timer) StopBeep() {
	t.io.Out(gatePort, t.io.In(gatePort)&^byte(gateBits))
}
