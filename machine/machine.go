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

// Package machine defines the contract between the kernel and the
// hardware it runs on. Everything the kernel touches, port space,
// physical memory and the interrupt machinery, goes through these
// interfaces so the same kernel boots on the full virtual machine
// or on small fakes in tests.
package machine

import (
	"errors"
	"log"
)

// Pointer is a physical address on the machine bus.
type Pointer uint64

// Errors returned by Machine.Halt when the machine cannot run anymore.
var (
	ErrMachineDead = errors.New("machine is halted for good")
	ErrTripleFault = errors.New("triple fault")
)

// PortIO is x86 port mapped input/output.
type PortIO interface {
	In(port uint16) byte
	Out(port uint16, data byte)
}

// Memory is byte addressed physical memory.
type Memory interface {
	ReadByte(addr Pointer) byte
	WriteByte(addr Pointer, data byte)
}

// Stack describes a downward growing region of physical memory.
type Stack struct {
	Base Pointer
	Size uint64
}

// Top is the initial stack pointer for the region.
func (s Stack) Top() Pointer {
	return s.Base + Pointer(s.Size)
}

// Frame is the state pushed when an interrupt or exception is taken.
// ErrorCode is only meaningful for the faults that push one and
// Address only for page faults.
type Frame struct {
	RIP, CS, RFlags, RSP, SS uint64

	ErrorCode uint64
	Address   Pointer
}

// InterruptStacks resolves interrupt stack table slots, numbered 1 to 7
// the way the hardware numbers them, to stack tops.
type InterruptStacks interface {
	InterruptStack(slot int) Pointer
}

// SegmentTable is a loadable global descriptor table.
type SegmentTable interface {
	// Raw returns the descriptor words in table order.
	Raw() []uint64

	// Stacks returns the interrupt stacks of the task state record the
	// selector refers to, or nil if the selector does not name one.
	Stacks(selector uint16) InterruptStacks
}

// InterruptTable is a loadable interrupt descriptor table. Every one of
// the 256 vectors has a handler once the table is built.
type InterruptTable interface {
	// Invoke runs the handler for vector.
	Invoke(vector int, frame Frame)

	// StackIndex returns the interrupt stack table slot for vector,
	// zero when the vector does not switch stacks.
	StackIndex(vector int) int
}

// Machine is the hardware interface the kernel boots on. Loading
// tables out of order, twice, or enabling interrupts before all three
// loads are done is a programming error and panics.
type Machine interface {
	PortIO
	Memory

	LoadGDT(t SegmentTable)
	LoadTSS(selector uint16)
	LoadIDT(t InterruptTable)

	InterruptsEnabled() bool
	EnableInterrupts()
	DisableInterrupts()

	// WithoutInterrupts runs fn with interrupt delivery suppressed and
	// restores the previous state afterwards.
	WithoutInterrupts(fn func())

	// Int raises a software interrupt.
	Int(vector int)

	// Halt waits for the next interrupt, services it and returns nil.
	// It returns ErrMachineDead when interrupts are disabled or the
	// machine was stopped, and ErrTripleFault after a triple fault.
	Halt() error

	// Stop brings the machine down. After Stop, Halt returns
	// ErrMachineDead forever and no more interrupts are delivered.
	Stop()
}

// DummyIO logs accesses to unmapped ports. Reads float high like an
// open bus.
type DummyIO struct{}

func (m *DummyIO) In(port uint16) byte {
	log.Printf("reading unmapped IO port: 0x%X", port)
	return 0xFF
}

func (m *DummyIO) Out(port uint16, data byte) {
	log.Printf("writing unmapped IO port: 0x%X", port)
}
