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

package emulator

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/andreas-jonsson/virtual64/emulator/peripheral"
	"github.com/andreas-jonsson/virtual64/machine"
)

const (
	// MemorySize is the width of the physical address bus.
	MemorySize = 0x100000

	// BootStackTop is where the stack pointer sits at power on, at the
	// top of conventional memory.
	BootStackTop = machine.Pointer(0x90000)

	MaxPeripherals = 32
)

const (
	flagReserved = 0x2
	flagIF       = 0x200

	vecDoubleFault = 8
	vecPageFault   = 14

	// SS, RSP, RFLAGS, CS, RIP.
	frameSize = 5 * 8

	pfErrRead  = 0x0
	pfErrWrite = 0x2
)

// hasErrorCode reports whether the CPU pushes an error code for the
// exception vector.
func hasErrorCode(vector int) bool {
	switch vector {
	case 8, 10, 11, 12, 13, 14, 17:
		return true
	}
	return false
}

type Registers struct {
	RIP    uint64
	RFlags uint64
	RSP    machine.Pointer
	CS, SS uint16
}

type Stats struct {
	RX, TX        uint64
	NumInterrupts uint64
	NumFaults     uint64
}

// VM is the virtual machine the kernel boots on. Port and memory maps
// route every bus access to the peripheral that claimed the region.
// Pending interrupts are delivered while the machine waits in Halt and
// on any bus access with interrupts enabled.
type VM struct {
	regs  Registers
	stats Stats

	peripherals []peripheral.Peripheral
	pic         peripheral.InterruptController

	iomap          [0x10000]byte
	ioPeripherals  [MaxPeripherals]machine.PortIO
	mmap           [MemorySize]byte
	memPeripherals [MaxPeripherals]machine.Memory

	gdt    machine.SegmentTable
	stacks machine.InterruptStacks
	idt    machine.InterruptTable
	tr     uint16

	dead      int32
	deadLatch int32
	deadErr   error
}

// NewVM wires the peripherals to a fresh machine and resets it.
// Peripheral slot 0 is reserved: unclaimed ports float, unclaimed
// memory faults.
func NewVM(peripherals []peripheral.Peripheral) *VM {
	if len(peripherals) >= MaxPeripherals {
		log.Panicf("emulator: too many peripherals: %d", len(peripherals))
	}

	v := &VM{peripherals: peripherals}
	dummy := &machine.DummyIO{}
	for i := range v.ioPeripherals {
		v.ioPeripherals[i] = dummy
	}

	for i, d := range peripherals {
		slot := i + 1
		if io, ok := d.(machine.PortIO); ok {
			v.ioPeripherals[slot] = io
		}
		if mem, ok := d.(machine.Memory); ok {
			v.memPeripherals[slot] = mem
		}
		if ic, ok := d.(peripheral.InterruptController); ok {
			v.pic = ic
		}
	}
	for _, d := range peripherals {
		if err := d.Install(v); err != nil {
			log.Panicf("emulator: install %s: %v", d.Name(), err)
		}
	}

	v.Reset()
	return v
}

// Reset puts registers and peripherals back in their power on state.
// Loaded descriptor tables are gone afterwards.
func (v *VM) Reset() {
	log.Print("Machine reset!")
	v.regs = Registers{RSP: BootStackTop, RFlags: flagReserved}
	v.gdt, v.stacks, v.idt = nil, nil, nil
	v.tr = 0
	for _, d := range v.peripherals {
		d.Reset()
	}
}

func (v *VM) Close() error {
	for _, d := range v.peripherals {
		if c, ok := d.(peripheral.PeripheralCloser); ok {
			if err := c.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetRegisters exposes the register file. Tests poke it to fake
// execution state.
func (v *VM) GetRegisters() *Registers {
	return &v.regs
}

// GetStats returns the bus and interrupt counters and resets them.
func (v *VM) GetStats() Stats {
	s := v.stats
	v.stats = Stats{}
	return s
}

func (v *VM) GetInterruptController() peripheral.InterruptController {
	return v.pic
}

func (v *VM) GetMappedIODevice(port uint16) machine.PortIO {
	return v.ioPeripherals[v.iomap[port]]
}

func (v *VM) ioSlot(dev machine.PortIO) byte {
	for i := 1; i < MaxPeripherals; i++ {
		if v.ioPeripherals[i] == dev {
			return byte(i)
		}
	}
	return 0
}

func (v *VM) InstallIODevice(dev machine.PortIO, from, to uint16) error {
	slot := v.ioSlot(dev)
	if slot == 0 {
		return fmt.Errorf("IO device is not part of this machine")
	}
	if from > to {
		return fmt.Errorf("invalid port range: 0x%X-0x%X", from, to)
	}
	for port := int(from); port <= int(to); port++ {
		v.iomap[port] = slot
	}
	return nil
}

func (v *VM) InstallIODeviceAt(dev machine.PortIO, ports ...uint16) error {
	slot := v.ioSlot(dev)
	if slot == 0 {
		return fmt.Errorf("IO device is not part of this machine")
	}
	for _, port := range ports {
		v.iomap[port] = slot
	}
	return nil
}

func (v *VM) InstallMemoryDevice(dev machine.Memory, from, to machine.Pointer) error {
	var slot byte
	for i := 1; i < MaxPeripherals; i++ {
		if v.memPeripherals[i] == dev {
			slot = byte(i)
			break
		}
	}
	if slot == 0 {
		return fmt.Errorf("memory device is not part of this machine")
	}
	if from > to || to >= MemorySize {
		return fmt.Errorf("invalid memory range: 0x%X-0x%X", from, to)
	}
	for addr := from; addr <= to; addr++ {
		v.mmap[addr] = slot
	}
	return nil
}

func (v *VM) mappedMemory(addr machine.Pointer) machine.Memory {
	if addr >= MemorySize {
		return nil
	}
	slot := v.mmap[addr]
	if slot == 0 {
		return nil
	}
	return v.memPeripherals[slot]
}

func (v *VM) In(port uint16) byte {
	v.maybeDispatch()
	v.stats.RX++
	return v.ioPeripherals[v.iomap[port]].In(port)
}

func (v *VM) Out(port uint16, data byte) {
	v.maybeDispatch()
	v.stats.TX++
	v.ioPeripherals[v.iomap[port]].Out(port, data)
}

func (v *VM) ReadByte(addr machine.Pointer) byte {
	v.maybeDispatch()
	v.stats.RX++
	if dev := v.mappedMemory(addr); dev != nil {
		return dev.ReadByte(addr)
	}
	v.pageFault(addr, pfErrRead)
	return 0xFF
}

func (v *VM) WriteByte(addr machine.Pointer, data byte) {
	v.maybeDispatch()
	v.stats.TX++
	if dev := v.mappedMemory(addr); dev != nil {
		dev.WriteByte(addr, data)
		return
	}
	v.pageFault(addr, pfErrWrite)
}

func (v *VM) LoadGDT(t machine.SegmentTable) {
	if t == nil {
		log.Panic("machine: nil descriptor table")
	}
	if v.gdt != nil {
		log.Panic("machine: descriptor table is already loaded")
	}
	raw := t.Raw()
	if len(raw) == 0 || raw[0] != 0 {
		log.Panic("machine: descriptor table has no null descriptor")
	}
	v.gdt = t
}

func (v *VM) LoadTSS(selector uint16) {
	if v.gdt == nil {
		log.Panic("machine: task state loaded before the descriptor table")
	}
	if v.tr != 0 {
		log.Panic("machine: task register is already loaded")
	}
	stacks := v.gdt.Stacks(selector)
	if stacks == nil {
		log.Panicf("machine: selector 0x%X is not a task state record", selector)
	}
	v.tr = selector
	v.stacks = stacks
}

func (v *VM) LoadIDT(t machine.InterruptTable) {
	if t == nil {
		log.Panic("machine: nil interrupt table")
	}
	if v.idt != nil {
		log.Panic("machine: interrupt table is already loaded")
	}
	v.idt = t
}

func (v *VM) InterruptsEnabled() bool {
	return v.regs.RFlags&flagIF != 0
}

func (v *VM) EnableInterrupts() {
	if v.gdt == nil || v.tr == 0 || v.idt == nil {
		log.Panic("machine: interrupts enabled before the tables are loaded")
	}
	v.regs.RFlags |= flagIF
}

func (v *VM) DisableInterrupts() {
	v.regs.RFlags &^= uint64(flagIF)
}

func (v *VM) WithoutInterrupts(fn func()) {
	saved := v.regs.RFlags & flagIF
	v.regs.RFlags &^= uint64(flagIF)
	fn()
	v.regs.RFlags |= saved
}

// Int raises a software interrupt, which ignores the interrupt flag
// just like the hardware instruction.
func (v *VM) Int(vector int) {
	if vector < 0 || vector > 0xFF {
		log.Panicf("machine: vector %d out of range", vector)
	}
	if v.idt == nil {
		log.Panic("machine: software interrupt before the interrupt table is loaded")
	}
	v.deliver(vector, 0, 0, 0)
}

func (v *VM) Stop() {
	v.latchDead(machine.ErrMachineDead)
}

func (v *VM) isDead() bool {
	return atomic.LoadInt32(&v.dead) != 0
}

func (v *VM) latchDead(err error) {
	if !atomic.CompareAndSwapInt32(&v.deadLatch, 0, 1) {
		return
	}
	v.deadErr = err
	atomic.StoreInt32(&v.dead, 1)
}

// Halt waits for the next interrupt. Peripherals step while the
// machine waits, just like real time keeps passing during hlt.
func (v *VM) Halt() error {
	for {
		if v.isDead() {
			return v.deadErr
		}
		if v.regs.RFlags&flagIF == 0 || v.pic == nil {
			return machine.ErrMachineDead
		}

		v.stepPeripherals()
		if vector, err := v.pic.GetInterrupt(); err == nil {
			v.deliver(vector, 0, 0, 0)
			if v.isDead() {
				return v.deadErr
			}
			return nil
		}
		time.Sleep(time.Millisecond / 2)
	}
}

func (v *VM) stepPeripherals() {
	for _, d := range v.peripherals {
		if err := d.Step(1); err != nil {
			log.Printf("%s: %v", d.Name(), err)
		}
	}
}

// maybeDispatch drains pending interrupts before a bus access. This is
// what makes unguarded device access from interruptible code unsafe,
// and the console's interrupt free sections safe.
func (v *VM) maybeDispatch() {
	if v.pic == nil || v.regs.RFlags&flagIF == 0 || v.isDead() {
		return
	}
	for {
		vector, err := v.pic.GetInterrupt()
		if err != nil {
			return
		}
		v.deliver(vector, 0, 0, 0)
		if v.isDead() || v.regs.RFlags&flagIF == 0 {
			return
		}
	}
}

func (v *VM) pageFault(addr machine.Pointer, code uint64) {
	v.stats.NumFaults++
	log.Printf("page fault at 0x%X", addr)
	v.exception(vecPageFault, code, addr)
}

func (v *VM) exception(vector int, code uint64, addr machine.Pointer) {
	if v.isDead() {
		return
	}
	if v.idt == nil {
		// Faulting with no handlers in place kills a real machine too.
		log.Print("exception before the interrupt table is loaded")
		v.latchDead(machine.ErrTripleFault)
		return
	}
	v.deliver(vector, code, addr, 0)
}

// deliver runs the interrupt path: optional stack switch through the
// task state, frame push, handler, frame pop. A failed push escalates
// to a double fault and from there to a triple fault.
func (v *VM) deliver(vector int, code uint64, addr machine.Pointer, depth int) {
	if v.isDead() {
		return
	}
	if depth > 1 {
		v.tripleFault()
		return
	}

	frame := machine.Frame{
		RIP:       v.regs.RIP,
		CS:        uint64(v.regs.CS),
		RFlags:    v.regs.RFlags,
		RSP:       uint64(v.regs.RSP),
		SS:        uint64(v.regs.SS),
		ErrorCode: code,
		Address:   addr,
	}

	rsp := v.regs.RSP
	if slot := v.idt.StackIndex(vector); slot > 0 {
		if v.stacks == nil {
			log.Panic("machine: stack switch without a loaded task state")
		}
		rsp = v.stacks.InterruptStack(slot)
	}

	if !v.pushFrame(&rsp, frame, hasErrorCode(vector)) {
		if vector == vecDoubleFault {
			v.tripleFault()
			return
		}
		v.stats.NumFaults++
		v.deliver(vecDoubleFault, 0, 0, depth+1)
		return
	}

	saved := v.regs
	v.regs.RSP = rsp
	v.regs.RFlags &^= uint64(flagIF)
	v.stats.NumInterrupts++

	v.idt.Invoke(vector, frame)

	v.regs.RSP = saved.RSP
	if !v.isDead() {
		v.regs.RFlags = saved.RFlags
	}
}

// pushFrame writes the interrupt frame below rsp, error code last.
// It fails without touching memory when the frame does not fit in
// mapped memory.
func (v *VM) pushFrame(rsp *machine.Pointer, f machine.Frame, withCode bool) bool {
	size := machine.Pointer(frameSize)
	if withCode {
		size += 8
	}
	top := *rsp
	if top < size {
		return false
	}
	for a := top - size; a < top; a++ {
		if v.mappedMemory(a) == nil {
			return false
		}
	}

	p := top
	push := func(val uint64) {
		p -= 8
		for i := 0; i < 8; i++ {
			a := p + machine.Pointer(i)
			v.mappedMemory(a).WriteByte(a, byte(val>>(8*i)))
		}
	}
	push(f.SS)
	push(f.RSP)
	push(f.RFlags)
	push(f.CS)
	push(f.RIP)
	if withCode {
		push(f.ErrorCode)
	}
	*rsp = p
	return true
}

func (v *VM) tripleFault() {
	log.Print("Triple fault! The machine is dead.")
	v.latchDead(machine.ErrTripleFault)
}

var (
	_ machine.Machine      = (*VM)(nil)
	_ peripheral.Backplane = (*VM)(nil)
)
