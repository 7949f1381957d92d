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
	"io"
	"log"
	"os"
	"sync"
)

type logSink struct {
	sync.Mutex
	mute, redirected bool
	out              io.Writer
}

func (l *logSink) Write(p []byte) (int, error) {
	l.Lock()
	defer l.Unlock()
	if l.mute && !l.redirected {
		return len(p), nil
	}
	return l.out.Write(p)
}

var defaultLogSink = logSink{out: os.Stderr}

func init() {
	log.SetOutput(&defaultLogSink)
}

// MuteLogging drops log output while the terminal backend owns the
// terminal. Output redirected with SetLogOutput is not affected.
func MuteLogging(b bool) {
	defaultLogSink.Lock()
	defaultLogSink.mute = b
	defaultLogSink.Unlock()
}

// SetLogOutput redirects log output, typically to a file.
func SetLogOutput(w io.Writer) {
	defaultLogSink.Lock()
	defaultLogSink.out = w
	defaultLogSink.redirected = true
	defaultLogSink.Unlock()
}
