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

package i8259

import (
	"reflect"
	"testing"
)

type access struct {
	Port uint16
	Data byte
	Out  bool
}

type portRecorder struct {
	log    []access
	inputs map[uint16][]byte
}

func newRecorder() *portRecorder {
	return &portRecorder{inputs: make(map[uint16][]byte)}
}

func (r *portRecorder) queue(port uint16, data ...byte) {
	r.inputs[port] = append(r.inputs[port], data...)
}

func (r *portRecorder) In(port uint16) byte {
	var data byte
	if q := r.inputs[port]; len(q) > 0 {
		data, r.inputs[port] = q[0], q[1:]
	}
	r.log = append(r.log, access{port, data, false})
	return data
}

func (r *portRecorder) Out(port uint16, data byte) {
	r.log = append(r.log, access{port, data, true})
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}

func TestRemapSequence(t *testing.T) {
	rec := newRecorder()
	rec.queue(masterDataPort, 0xB8)
	rec.queue(slaveDataPort, 0x8F)

	New(rec).Remap(0x20, 0x28)

	want := []access{
		{masterDataPort, 0xB8, false},
		{slaveDataPort, 0x8F, false},
		{masterCommandPort, 0x11, true},
		{settlePort, 0, true},
		{slaveCommandPort, 0x11, true},
		{settlePort, 0, true},
		{masterDataPort, 0x20, true},
		{settlePort, 0, true},
		{slaveDataPort, 0x28, true},
		{settlePort, 0, true},
		{masterDataPort, 0x04, true},
		{settlePort, 0, true},
		{slaveDataPort, 0x02, true},
		{settlePort, 0, true},
		{masterDataPort, 0x01, true},
		{settlePort, 0, true},
		{slaveDataPort, 0x01, true},
		{settlePort, 0, true},
		{masterDataPort, 0xB8, true},
		{slaveDataPort, 0x8F, true},
	}
	if !reflect.DeepEqual(rec.log, want) {
		t.Errorf("handshake was:\n%v\nwant:\n%v", rec.log, want)
	}
}

func TestRemapValidation(t *testing.T) {
	expectPanic(t, "exception offset", func() { New(newRecorder()).Remap(0x08, 0x70) })
	expectPanic(t, "overlapping windows", func() { New(newRecorder()).Remap(0x20, 0x24) })
	expectPanic(t, "identical windows", func() { New(newRecorder()).Remap(0x20, 0x20) })
}

func TestEndOfInterrupt(t *testing.T) {
	rec := newRecorder()
	p := New(rec)
	p.Remap(0x20, 0x28)
	rec.log = nil

	p.EndOfInterrupt(0x20)
	want := []access{{masterCommandPort, ocw2EOI, true}}
	if !reflect.DeepEqual(rec.log, want) {
		t.Errorf("master EOI was %v", rec.log)
	}

	rec.log = nil
	p.EndOfInterrupt(0x2F)
	want = []access{
		{slaveCommandPort, ocw2EOI, true},
		{masterCommandPort, ocw2EOI, true},
	}
	if !reflect.DeepEqual(rec.log, want) {
		t.Errorf("slave EOI was %v", rec.log)
	}

	expectPanic(t, "exception EOI", func() { p.EndOfInterrupt(3) })
	expectPanic(t, "out of window EOI", func() { p.EndOfInterrupt(0x70) })
}

func TestWindows(t *testing.T) {
	p := New(newRecorder())
	p.Remap(0x20, 0x28)

	for _, v := range []int{0x20, 0x27, 0x28, 0x2F} {
		if !p.HandlesInterrupt(v) {
			t.Errorf("vector 0x%X is not handled", v)
		}
	}
	for _, v := range []int{0x1F, 0x30, 8} {
		if p.HandlesInterrupt(v) {
			t.Errorf("vector 0x%X is handled", v)
		}
	}
}

func TestMasks(t *testing.T) {
	rec := newRecorder()
	p := New(rec)

	p.SetMasks(0xFC, 0xFF)
	want := []access{
		{masterDataPort, 0xFC, true},
		{slaveDataPort, 0xFF, true},
	}
	if !reflect.DeepEqual(rec.log, want) {
		t.Errorf("mask writes were %v", rec.log)
	}

	rec.log = nil
	p.Disable()
	want = []access{
		{masterDataPort, 0xFF, true},
		{slaveDataPort, 0xFF, true},
	}
	if !reflect.DeepEqual(rec.log, want) {
		t.Errorf("disable writes were %v", rec.log)
	}

	rec.queue(masterDataPort, 0xFC)
	rec.queue(slaveDataPort, 0xFF)
	if m, s := p.Masks(); m != 0xFC || s != 0xFF {
		t.Errorf("masks read back 0x%X, 0x%X", m, s)
	}
}

func TestReadRegisters(t *testing.T) {
	rec := newRecorder()
	p := New(rec)

	rec.queue(masterCommandPort, 0x05)
	rec.queue(slaveCommandPort, 0x81)
	if irr := p.ReadIRR(); irr != 0x8105 {
		t.Errorf("request register is 0x%X", irr)
	}

	rec.log = nil
	rec.queue(masterCommandPort, 0x04)
	rec.queue(slaveCommandPort, 0x00)
	if isr := p.ReadISR(); isr != 0x0004 {
		t.Errorf("service register is 0x%X", isr)
	}
	want := []access{
		{masterCommandPort, ocw3ReadISR, true},
		{slaveCommandPort, ocw3ReadISR, true},
		{masterCommandPort, 0x04, false},
		{slaveCommandPort, 0x00, false},
	}
	if !reflect.DeepEqual(rec.log, want) {
		t.Errorf("register read protocol was %v", rec.log)
	}
}
