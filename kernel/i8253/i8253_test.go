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

package i8253

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
	log  []access
	port byte
}

func (r *portRecorder) In(port uint16) byte {
	r.log = append(r.log, access{port, r.port, false})
	return r.port
}

func (r *portRecorder) Out(port uint16, data byte) {
	if port == gatePort {
		r.port = data
	}
	r.log = append(r.log, access{port, data, true})
}

func TestSetRate(t *testing.T) {
	rec := &portRecorder{}
	New(rec).SetRate(100)

	// 1193182 / 100 = 11931 = 0x2E9B.
	want := []access{
		{commandPort, 0x36, true},
		{channel0Port, 0x9B, true},
		{channel0Port, 0x2E, true},
	}
	if !reflect.DeepEqual(rec.log, want) {
		t.Errorf("channel 0 program was %v", rec.log)
	}
}

func TestDivisor(t *testing.T) {
	for _, tt := range []struct {
		hz   int
		want uint16
	}{
		{100, 11931},
		{1000, 1193},
		{BaseFrequency, 1},
		{BaseFrequency * 2, 1},
		{18, 0},
		{1, 0},
	} {
		if d := divisor(tt.hz); d != tt.want {
			t.Errorf("divisor(%d) is %d, want %d", tt.hz, d, tt.want)
		}
	}

	defer func() {
		if recover() == nil {
			t.Error("divisor(0) did not panic")
		}
	}()
	divisor(0)
}

func TestBeep(t *testing.T) {
	rec := &portRecorder{port: 0x30}
	tm := New(rec)

	tm.StartBeep(880)
	// 1193182 / 880 = 1355 = 0x54B.
	want := []access{
		{commandPort, 0xB6, true},
		{channel2Port, 0x4B, true},
		{channel2Port, 0x05, true},
		{gatePort, 0x30, false},
		{gatePort, 0x33, true},
	}
	if !reflect.DeepEqual(rec.log, want) {
		t.Errorf("beep program was %v", rec.log)
	}

	rec.log = nil
	tm.StopBeep()
	want = []access{
		{gatePort, 0x33, false},
		{gatePort, 0x30, true},
	}
	if !reflect.DeepEqual(rec.log, want) {
		t.Errorf("gate close was %v", rec.log)
	}
}
