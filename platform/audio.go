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

package platform

import (
	"encoding/binary"
	"math"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	beepSampleRate = 48000
	beepVolume     = 0.25
)

// beeper plays the speaker square wave through the host audio device.
type beeper struct {
	ctx    *oto.Context
	player *oto.Player
	wave   *squareWave
}

func newBeeper() (*beeper, error) {
	op := &oto.NewContextOptions{
		SampleRate:   beepSampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   50 * time.Millisecond,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	b := &beeper{ctx: ctx, wave: &squareWave{}}
	b.player = ctx.NewPlayer(b.wave)
	b.player.Play()
	return b, nil
}

func (b *beeper) setTone(frequency float64, enabled bool) {
	atomic.StoreUint64(&b.wave.frequency, math.Float64bits(frequency))
	var on int32
	if enabled && frequency > 0 {
		on = 1
	}
	atomic.StoreInt32(&b.wave.enabled, on)
}

func (b *beeper) close() {
	b.setTone(0, false)
	b.player.Close()
}

// squareWave generates samples on demand. Read runs on the audio
// thread so the tone parameters are atomics.
type squareWave struct {
	frequency uint64
	enabled   int32
	phase     float64
}

func (g *squareWave) Read(p []byte) (int, error) {
	enabled := atomic.LoadInt32(&g.enabled) != 0
	frequency := math.Float64frombits(atomic.LoadUint64(&g.frequency))

	n := len(p) / 4
	for i := 0; i < n; i++ {
		var sample float32
		if enabled && frequency > 0 {
			period := beepSampleRate / frequency
			if math.Mod(g.phase, period) < period/2 {
				sample = beepVolume
			} else {
				sample = -beepVolume
			}
			g.phase++
		}
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(sample))
	}
	return n * 4, nil
}
