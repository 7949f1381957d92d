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

// Package kernel boots a minimal 64-bit kernel on a machine.Machine:
// descriptor tables, interrupt handlers, the interrupt controller pair,
// the interval timer and a text console. After boot it waits for
// interrupts and echoes whatever is typed.
package kernel

import (
	"errors"
	"flag"
	"fmt"

	"github.com/andreas-jonsson/virtual64/kernel/gdt"
	"github.com/andreas-jonsson/virtual64/kernel/i8253"
	"github.com/andreas-jonsson/virtual64/kernel/i8259"
	"github.com/andreas-jonsson/virtual64/kernel/idt"
	"github.com/andreas-jonsson/virtual64/kernel/keyboard"
	"github.com/andreas-jonsson/virtual64/kernel/vga"
	"github.com/andreas-jonsson/virtual64/machine"
)

// Hardware interrupts sit right above the CPU exceptions.
const (
	PICMasterOffset = 0x20
	PICSlaveOffset  = 0x28

	TimerVector    = PICMasterOffset
	KeyboardVector = PICMasterOffset + 1

	// Mask everything except the timer and keyboard lines.
	masterMask = 0xFC
	slaveMask  = 0xFF

	timerRate = 100
	bellPitch = 880
)

// doubleFaultStack is carved out of conventional memory, below the
// boot stack and well away from the text buffer.
var doubleFaultStack = machine.Stack{Base: 0x20000, Size: 5 * 4096}

var (
	demoBreakpoint bool
	demoPageFault  bool
)

func init() {
	flag.BoolVar(&demoBreakpoint, "demo-int3", false, "Raise a breakpoint interrupt after boot")
	flag.BoolVar(&demoPageFault, "demo-fault", false, "Touch unmapped memory after boot")
}

// Kernel is the running system. One instance drives one machine.
type Kernel struct {
	m       machine.Machine
	console *vga.Writer
	pics    *i8259.ChainedPICs
	timer   *i8253.Timer
	keys    keyboard.Decoder

	ticks     uint64
	bellTicks int
}

// Console returns the kernel's text console.
func (k *Kernel) Console() *vga.Writer {
	return k.console
}

// Ticks returns the number of timer interrupts serviced so far.
func (k *Kernel) Ticks() uint64 {
	return k.ticks
}

// New prepares a kernel for the machine without touching it.
func New(m machine.Machine) *Kernel {
	k := &Kernel{m: m, console: vga.New(m)}
	k.pics = i8259.New(m)
	k.timer = i8253.New(m)
	return k
}

// Boot brings the machine up: descriptor tables with a dedicated
// double fault stack, the full interrupt table, remapped interrupt
// controllers and a 100 Hz timer. Interrupts are live when it returns.
func (k *Kernel) Boot() {
	k.console.SetBell(k.bell)
	k.console.Clear()
	k.console.WriteString("virtual64 kernel\n\n")

	table, sels := gdt.Build(doubleFaultStack)
	k.m.LoadGDT(table)
	k.m.LoadTSS(uint16(sels.TaskState))

	b := idt.NewBuilder(sels.KernelCode)
	b.Handle(idt.DivideError, k.divideError)
	b.Handle(idt.Breakpoint, k.breakpoint)
	b.Handle(idt.InvalidOpcode, k.invalidOpcode)
	b.HandleWithOptions(idt.DoubleFault, k.doubleFault, idt.Options{
		StackIndex: gdt.DoubleFaultStackIndex + 1,
	})
	b.Handle(idt.GeneralProtection, k.generalProtection)
	b.Handle(idt.PageFault, k.pageFault)
	b.Handle(TimerVector, k.timerTick)
	b.Handle(KeyboardVector, k.keyPress)
	k.m.LoadIDT(b.Build(idt.Defaults{
		Fault:       k.unhandledFault,
		Acknowledge: k.pics.EndOfInterrupt,
	}))

	k.pics.Remap(PICMasterOffset, PICSlaveOffset)
	k.pics.SetMasks(masterMask, slaveMask)
	k.timer.SetRate(timerRate)

	k.m.EnableInterrupts()
	k.console.WriteString("boot complete, type something\n\n")
}

// Run waits for interrupts until the machine dies. A triple fault is
// the only abnormal way out.
func (k *Kernel) Run() error {
	for {
		if err := k.m.Halt(); err != nil {
			if errors.Is(err, machine.ErrTripleFault) {
				return err
			}
			return nil
		}
	}
}

// Main boots the kernel and runs it to the end.
func Main(m machine.Machine) error {
	k := New(m)
	k.Boot()

	if demoBreakpoint {
		m.Int(idt.Breakpoint)
	}
	if demoPageFault {
		m.ReadByte(0xDEADBEEF)
	}
	return k.Run()
}

func (k *Kernel) timerTick(machine.Frame) {
	k.ticks++
	if k.bellTicks > 0 {
		k.bellTicks--
		if k.bellTicks == 0 {
			k.timer.StopBeep()
		}
	}
	if k.ticks%timerRate == 0 {
		k.console.WriteString(".")
	}
	k.pics.EndOfInterrupt(TimerVector)
}

func (k *Kernel) keyPress(machine.Frame) {
	data := k.m.In(keyboard.DataPort)
	if ev, ok := k.keys.Decode(data); ok && ev.Pressed && ev.Rune != 0 {
		k.console.WriteByte(byte(ev.Rune))
	}
	k.pics.EndOfInterrupt(KeyboardVector)
}

// bell rings the speaker for a quarter second. Called from the console
// when it prints a BEL byte.
func (k *Kernel) bell() {
	k.timer.StartBeep(bellPitch)
	k.bellTicks = timerRate / 4
}

func (k *Kernel) breakpoint(f machine.Frame) {
	k.console.Printf("\nEXCEPTION: BREAKPOINT\n%s", formatFrame(f))
}

func (k *Kernel) divideError(f machine.Frame) {
	k.fatal("DIVIDE ERROR", f)
}

func (k *Kernel) invalidOpcode(f machine.Frame) {
	k.fatal("INVALID OPCODE", f)
}

func (k *Kernel) doubleFault(f machine.Frame) {
	k.fatal("DOUBLE FAULT", f)
}

func (k *Kernel) generalProtection(f machine.Frame) {
	k.console.SetColor(vga.NewColorCode(vga.White, vga.Red))
	k.console.Printf("\nEXCEPTION: GENERAL PROTECTION FAULT\nerror=%#x\n%s",
		f.ErrorCode, formatFrame(f))
	k.halt()
}

func (k *Kernel) pageFault(f machine.Frame) {
	k.console.SetColor(vga.NewColorCode(vga.White, vga.Red))
	k.console.Printf("\nEXCEPTION: PAGE FAULT\naddress=%#x error=%#x\n%s",
		uint64(f.Address), f.ErrorCode, formatFrame(f))
	k.halt()
}

func (k *Kernel) unhandledFault(vector int, f machine.Frame) {
	k.fatal(fmt.Sprintf("UNHANDLED VECTOR %d", vector), f)
}

// fatal paints the report and parks the machine for good. The screen
// stays up so the report can be read.
func (k *Kernel) fatal(reason string, f machine.Frame) {
	k.console.SetColor(vga.NewColorCode(vga.White, vga.Red))
	k.console.Printf("\nEXCEPTION: %s\n%s", reason, formatFrame(f))
	k.halt()
}

func (k *Kernel) halt() {
	k.console.WriteString("system halted\n")
	k.m.DisableInterrupts()
	k.m.Stop()
}

func formatFrame(f machine.Frame) string {
	return fmt.Sprintf("  rip=%#x cs=%#x rflags=%#x\n  rsp=%#x ss=%#x\n",
		f.RIP, f.CS, f.RFlags, f.RSP, f.SS)
}
