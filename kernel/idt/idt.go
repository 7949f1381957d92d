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

// Package idt builds the interrupt descriptor table. Handlers are
// registered on a builder which freezes into an immutable table, so
// the dispatch path never sees a half filled table.
package idt

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/andreas-jonsson/virtual64/kernel/gdt"
	"github.com/andreas-jonsson/virtual64/machine"
)

// NumVectors is the size of the interrupt descriptor table.
const NumVectors = 256

// CPU exception vectors the kernel installs handlers for.
const (
	DivideError       = 0
	Breakpoint        = 3
	InvalidOpcode     = 6
	DoubleFault       = 8
	GeneralProtection = 13
	PageFault         = 14
)

// NumExceptions is the first vector available to hardware and software
// interrupts. Everything below is reserved for CPU exceptions.
const NumExceptions = 32

// Handler services a single interrupt vector.
type Handler func(machine.Frame)

// Gate is one 16 byte interrupt descriptor.
type Gate struct {
	OffsetLow    uint16
	Selector     uint16
	IST          byte
	TypeAttr     byte
	OffsetMiddle uint16
	OffsetHigh   uint32
	reserved     uint32
}

// TypeInterrupt is a present ring 0 64-bit interrupt gate.
const TypeInterrupt = 0x8E

// Offset reassembles the handler address split across the gate.
func (g Gate) Offset() uint64 {
	return uint64(g.OffsetLow) | uint64(g.OffsetMiddle)<<16 | uint64(g.OffsetHigh)<<32
}

func newGate(code gdt.Selector, h Handler, ist int) Gate {
	pc := uint64(reflect.ValueOf(h).Pointer())
	return Gate{
		OffsetLow:    uint16(pc),
		Selector:     uint16(code),
		IST:          byte(ist),
		TypeAttr:     TypeInterrupt,
		OffsetMiddle: uint16(pc >> 16),
		OffsetHigh:   uint32(pc >> 32),
	}
}

// Options tune how a vector is dispatched.
type Options struct {
	// StackIndex is the interrupt stack table slot to switch to,
	// numbered 1 to 7. Zero keeps the interrupted stack.
	StackIndex int
}

// Defaults supplies behavior for every vector without a registered
// handler. Fault takes CPU exceptions and receives the vector number,
// Acknowledge takes hardware interrupts in the two controller windows.
type Defaults struct {
	Fault       func(vector int, frame machine.Frame)
	Acknowledge func(vector int)
}

// Builder collects handlers before the table is frozen.
type Builder struct {
	handlers [NumVectors]Handler
	opts     [NumVectors]Options
	code     gdt.Selector
	built    bool
}

// NewBuilder starts a table whose gates all target the given code
// segment.
func NewBuilder(code gdt.Selector) *Builder {
	return &Builder{code: code}
}

// Handle registers a handler for vector. Registering twice, after
// Build, or outside the table is a programming error.
func (b *Builder) Handle(vector int, h Handler) {
	b.HandleWithOptions(vector, h, Options{})
}

// HandleWithOptions is Handle with dispatch options.
func (b *Builder) HandleWithOptions(vector int, h Handler, o Options) {
	if b.built {
		panic("idt: table is already built")
	}
	if vector < 0 || vector >= NumVectors {
		panic(fmt.Sprintf("idt: vector %d out of range", vector))
	}
	if h == nil {
		panic(fmt.Sprintf("idt: nil handler for vector %d", vector))
	}
	if b.handlers[vector] != nil {
		panic(fmt.Sprintf("idt: vector %d registered twice", vector))
	}
	if o.StackIndex < 0 || o.StackIndex > 7 {
		panic(fmt.Sprintf("idt: stack index %d out of range", o.StackIndex))
	}
	b.handlers[vector] = h
	b.opts[vector] = o
}

// Build freezes the builder into a table, filling every vector that
// has no handler from the defaults. Building twice is a programming
// error.
func (b *Builder) Build(d Defaults) *Table {
	if b.built {
		panic("idt: table is already built")
	}
	if d.Fault == nil || d.Acknowledge == nil {
		panic("idt: incomplete defaults")
	}
	b.built = true

	t := new(Table)
	for v := 0; v < NumVectors; v++ {
		h := b.handlers[v]
		if h == nil {
			switch vector := v; {
			case vector < NumExceptions:
				h = func(f machine.Frame) { d.Fault(vector, f) }
			case vector < NumExceptions+16:
				h = func(machine.Frame) { d.Acknowledge(vector) }
			default:
				h = func(machine.Frame) {}
			}
		}
		t.handlers[v] = h
		t.stack[v] = b.opts[v].StackIndex
		t.gates[v] = newGate(b.code, h, b.opts[v].StackIndex)
	}
	return t
}

// Table is a frozen interrupt descriptor table.
type Table struct {
	gates    [NumVectors]Gate
	handlers [NumVectors]Handler
	stack    [NumVectors]int
}

// Invoke implements machine.InterruptTable.
func (t *Table) Invoke(vector int, frame machine.Frame) {
	if vector < 0 || vector >= NumVectors {
		panic(fmt.Sprintf("idt: vector %d out of range", vector))
	}
	t.handlers[vector](frame)
}

// StackIndex implements machine.InterruptTable.
func (t *Table) StackIndex(vector int) int {
	if vector < 0 || vector >= NumVectors {
		panic(fmt.Sprintf("idt: vector %d out of range", vector))
	}
	return t.stack[vector]
}

// Gate returns the descriptor for vector.
func (t *Table) Gate(vector int) Gate {
	return t.gates[vector]
}

// Pointer returns the 10 byte image loaded with lidt, a 16 bit limit
// followed by the 64 bit table base.
func (t *Table) Pointer() [10]byte {
	var p [10]byte
	binary.LittleEndian.PutUint16(p[:], uint16(unsafe.Sizeof(t.gates)-1))
	binary.LittleEndian.PutUint64(p[2:], uint64(uintptr(unsafe.Pointer(&t.gates))))
	return p
}
