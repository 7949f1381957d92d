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

// Package gdt builds the global descriptor table and the 64-bit task
// state record. Long mode ignores almost everything in here except the
// code segment attributes and the interrupt stack table, which is
// exactly what the kernel needs for fault isolation.
package gdt

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/andreas-jonsson/virtual64/machine"
)

// DoubleFaultStackIndex is the task state stack slot, counting from
// zero, that holds the dedicated double fault stack.
const DoubleFaultStackIndex = 0

const maxDescriptors = 8

// Selector references a descriptor by table index and privilege.
type Selector uint16

// NewSelector builds a selector for a table index with the given
// requested privilege level.
func NewSelector(index int, rpl byte) Selector {
	return Selector(index<<3 | int(rpl&3))
}

func (s Selector) Index() int {
	return int(s >> 3)
}

func (s Selector) RPL() byte {
	return byte(s & 3)
}

// Flags hold the access byte and attribute nibble of a descriptor,
// positioned as they appear in the upper descriptor word.
type Flags uint32

const (
	FlagAccessed Flags = 1 << 8
	FlagWritable Flags = 1 << 9
	FlagCode     Flags = 1 << 11
	FlagSegment  Flags = 1 << 12
	FlagPresent  Flags = 1 << 15
	FlagLong     Flags = 1 << 21
)

// Descriptor is one 8 byte table entry.
type Descriptor uint64

// NewDescriptor packs base, limit, flags and privilege level into a
// descriptor. The present bit is always set. Limits above 20 bits are
// a programming error.
func NewDescriptor(base, limit uint32, flags Flags, dpl byte) Descriptor {
	if limit > 0xFFFFF {
		panic(fmt.Sprintf("gdt: limit 0x%X does not fit in a descriptor", limit))
	}
	flags |= FlagPresent
	low := base<<16 | limit&0xFFFF
	high := base&0xFF000000 | limit&0xF0000 | uint32(flags) | uint32(dpl&3)<<13 | base>>16&0xFF
	return Descriptor(uint64(high)<<32 | uint64(low))
}

// KernelCode is the flat 64-bit ring 0 code descriptor.
func KernelCode() Descriptor {
	return NewDescriptor(0, 0, FlagSegment|FlagCode|FlagLong, 0)
}

// TaskState is the 64-bit task state segment. Hardware task switching
// is gone in long mode but the record still supplies the privilege
// stack pointers and the seven interrupt stack table slots.
type TaskState struct {
	words [25]uint32
}

// SetStackPointer sets the stack for privilege level 0 to 2.
func (t *TaskState) SetStackPointer(level int, top machine.Pointer) {
	if level < 0 || level > 2 {
		panic(fmt.Sprintf("gdt: no privilege stack %d", level))
	}
	t.words[1+level*2] = uint32(top)
	t.words[2+level*2] = uint32(top >> 32)
}

// SetInterruptStack sets interrupt stack table slot n, numbered 1 to 7
// the way the hardware numbers them.
func (t *TaskState) SetInterruptStack(n int, top machine.Pointer) {
	if n < 1 || n > 7 {
		panic(fmt.Sprintf("gdt: no interrupt stack %d", n))
	}
	t.words[7+n*2] = uint32(top)
	t.words[8+n*2] = uint32(top >> 32)
}

// InterruptStack returns the stack top in slot n, or zero when the
// slot was never set.
func (t *TaskState) InterruptStack(n int) machine.Pointer {
	if n < 1 || n > 7 {
		panic(fmt.Sprintf("gdt: no interrupt stack %d", n))
	}
	return machine.Pointer(t.words[7+n*2]) | machine.Pointer(t.words[8+n*2])<<32
}

// SetIOBitmapBase points the IO permission bitmap beyond the segment
// limit, which denies all port access from user level.
func (t *TaskState) SetIOBitmapBase() {
	t.words[24] = uint32(unsafe.Sizeof(*t)) << 16
}

// Table is a global descriptor table under construction. The zero
// entry stays the mandatory null descriptor.
type Table struct {
	entries [maxDescriptors]Descriptor
	next    int
	ts      *TaskState
	tsSel   Selector
}

func New() *Table {
	return &Table{next: 1}
}

// AddDescriptor appends a descriptor and returns its selector. Filling
// the table past its capacity is a programming error.
func (t *Table) AddDescriptor(d Descriptor) Selector {
	if t.next >= maxDescriptors {
		panic("gdt: descriptor table is full")
	}
	t.entries[t.next] = d
	sel := NewSelector(t.next, 0)
	t.next++
	return sel
}

// AddTaskState appends the 16 byte task state descriptor, which spans
// two table slots. A table holds at most one task state record.
func (t *Table) AddTaskState(ts *TaskState) Selector {
	if ts == nil {
		panic("gdt: nil task state")
	}
	if t.ts != nil {
		panic("gdt: task state record already added")
	}
	if t.next+1 >= maxDescriptors {
		panic("gdt: descriptor table is full")
	}

	base := uint64(uintptr(unsafe.Pointer(ts)))
	limit := uint32(unsafe.Sizeof(*ts) - 1)

	// Type 0x9 is an available 64-bit TSS. The system bit stays clear.
	sel := t.AddDescriptor(NewDescriptor(uint32(base), limit, FlagAccessed|FlagCode, 0))
	t.entries[t.next] = Descriptor(base >> 32)
	t.next++

	t.ts = ts
	t.tsSel = sel
	return sel
}

// Raw returns the descriptor words in table order.
func (t *Table) Raw() []uint64 {
	raw := make([]uint64, t.next)
	for i := 0; i < t.next; i++ {
		raw[i] = uint64(t.entries[i])
	}
	return raw
}

// Stacks implements machine.SegmentTable.
func (t *Table) Stacks(selector uint16) machine.InterruptStacks {
	if t.ts == nil || Selector(selector).Index() != t.tsSel.Index() {
		return nil
	}
	return t.ts
}

// Pointer returns the 10 byte image loaded with lgdt, a 16 bit limit
// followed by the 64 bit table base.
func (t *Table) Pointer() [10]byte {
	var p [10]byte
	binary.LittleEndian.PutUint16(p[:], uint16(t.next*8-1))
	binary.LittleEndian.PutUint64(p[2:], uint64(uintptr(unsafe.Pointer(&t.entries))))
	return p
}

// Selectors are the segments the boot table hands to the rest of the
// kernel.
type Selectors struct {
	KernelCode Selector
	TaskState  Selector
}

// Build assembles the boot descriptor table: the null descriptor, the
// kernel code segment and a task state record whose stack slot
// DoubleFaultStackIndex points at the top of the given stack.
func Build(doubleFaultStack machine.Stack) (*Table, Selectors) {
	ts := new(TaskState)
	ts.SetInterruptStack(DoubleFaultStackIndex+1, doubleFaultStack.Top())
	ts.SetIOBitmapBase()

	t := New()
	var sels Selectors
	sels.KernelCode = t.AddDescriptor(KernelCode())
	sels.TaskState = t.AddTaskState(ts)
	return t, sels
}
