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

package speaker

import "testing"

type fakePIT struct {
	frequency float64
}

func (p *fakePIT) GetFrequency(channel int) float64 {
	if channel != 2 {
		return 0
	}
	return p.frequency
}

type toneRecorder struct {
	frequency float64
	enabled   bool
	calls     int
}

func (r *toneRecorder) SetSpeaker(frequency float64, enabled bool) {
	r.frequency = frequency
	r.enabled = enabled
	r.calls++
}

func newTestDevice(f float64) (*Device, *toneRecorder) {
	rec := &toneRecorder{}
	return &Device{Output: rec, pit: &fakePIT{frequency: f}}, rec
}

func TestGate(t *testing.T) {
	m, rec := newTestDevice(880)

	m.Out(0x61, 0x03)
	m.Step(1)
	if !rec.enabled || rec.frequency != 880 {
		t.Errorf("output is %v at %f Hz", rec.enabled, rec.frequency)
	}

	// Repolling an unchanged tone stays quiet on the output side.
	m.Step(1)
	if rec.calls != 1 {
		t.Errorf("output was touched %d times", rec.calls)
	}

	m.Out(0x61, 0x00)
	if rec.enabled {
		t.Error("closing the gate did not mute the output")
	}
}

func TestPartialGate(t *testing.T) {
	m, rec := newTestDevice(440)

	// One of the two bits is not enough.
	m.Out(0x61, 0x01)
	m.Step(1)
	if rec.enabled {
		t.Error("gate opened on bit 0 alone")
	}
	m.Out(0x61, 0x02)
	m.Step(1)
	if rec.enabled {
		t.Error("gate opened on bit 1 alone")
	}
}

func TestPitchChange(t *testing.T) {
	pit := &fakePIT{frequency: 440}
	rec := &toneRecorder{}
	m := &Device{Output: rec, pit: pit}

	m.Out(0x61, 0x03)
	m.Step(1)
	pit.frequency = 880
	m.Step(1)

	if rec.frequency != 880 || rec.calls != 2 {
		t.Errorf("output follows at %f Hz after %d calls", rec.frequency, rec.calls)
	}
}

func TestPortReadsBack(t *testing.T) {
	m, _ := newTestDevice(0)

	m.Out(0x61, 0x30)
	if m.In(0x61) != 0x30 {
		t.Error("port does not read back")
	}

	// Read-modify-write preserves the unrelated bits.
	m.Out(0x61, m.In(0x61)|3)
	if m.In(0x61) != 0x33 {
		t.Errorf("port reads back 0x%X", m.In(0x61))
	}
}
