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

package kernel_test

import (
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/andreas-jonsson/virtual64/emulator"
	"github.com/andreas-jonsson/virtual64/emulator/peripheral"
	"github.com/andreas-jonsson/virtual64/emulator/peripheral/keyboard"
	"github.com/andreas-jonsson/virtual64/emulator/peripheral/pic"
	"github.com/andreas-jonsson/virtual64/emulator/peripheral/pit"
	"github.com/andreas-jonsson/virtual64/emulator/peripheral/post"
	"github.com/andreas-jonsson/virtual64/emulator/peripheral/ram"
	"github.com/andreas-jonsson/virtual64/emulator/peripheral/speaker"
	"github.com/andreas-jonsson/virtual64/emulator/peripheral/video"
	"github.com/andreas-jonsson/virtual64/kernel"
	"github.com/andreas-jonsson/virtual64/kernel/vga"
)

const (
	scanLShift = 0x2A
	scanZ      = 0x2C
	keyUp      = 0x80
)

// bootMachine assembles a headless machine, boots the kernel on it in
// a background goroutine and waits for the banner to appear.
func bootMachine(t *testing.T) (*video.Device, *keyboard.Device, chan error) {
	t.Helper()

	vid := video.New(nil)
	kbd := &keyboard.Device{}
	vm := emulator.NewVM([]peripheral.Peripheral{
		&ram.Device{Clear: true},
		&post.Device{},
		&pic.Device{},
		&pit.Device{},
		vid,
		&speaker.Device{},
		kbd,
	})

	errc := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		errc <- kernel.Main(vm)
		close(done)
	}()

	t.Cleanup(func() {
		vm.Stop()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("kernel is still running")
		}
		vm.Close()
	})

	waitFor(t, "boot banner", func() bool {
		return findRow(vid.Page(), "virtual64 kernel") >= 0
	})
	return vid, kbd, errc
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	for deadline := time.Now().Add(5 * time.Second); time.Now().Before(deadline); {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func rowText(page []byte, row int) string {
	var sb strings.Builder
	for col := 0; col < video.Columns; col++ {
		sb.WriteByte(page[(row*video.Columns+col)*2])
	}
	return sb.String()
}

// findRow returns the first row containing s, or -1.
func findRow(page []byte, s string) int {
	for row := 0; row < video.Rows; row++ {
		if strings.Contains(rowText(page, row), s) {
			return row
		}
	}
	return -1
}

func TestBootAndEcho(t *testing.T) {
	vid, kbd, _ := bootMachine(t)

	waitFor(t, "boot message", func() bool {
		return findRow(vid.Page(), "boot complete, type something") >= 0
	})

	for _, scan := range []byte{scanZ, scanZ | keyUp} {
		if err := kbd.PushEvent(scan); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, "echoed keypress", func() bool {
		return findRow(vid.Page(), "z") >= 0
	})

	for _, scan := range []byte{scanLShift, scanZ, scanZ | keyUp, scanLShift | keyUp} {
		if err := kbd.PushEvent(scan); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, "shifted keypress", func() bool {
		return findRow(vid.Page(), "Z") >= 0
	})
}

func TestBreakpointDemo(t *testing.T) {
	if err := flag.Set("demo-int3", "true"); err != nil {
		t.Fatal(err)
	}
	defer flag.Set("demo-int3", "false")

	vid, kbd, _ := bootMachine(t)

	waitFor(t, "breakpoint report", func() bool {
		return findRow(vid.Page(), "EXCEPTION: BREAKPOINT") >= 0
	})

	// A breakpoint is a report, not a crash. The machine keeps going.
	if err := kbd.PushEvent(scanZ); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "echo after breakpoint", func() bool {
		return findRow(vid.Page(), "z") >= 0
	})
}

func TestPageFaultDemo(t *testing.T) {
	if err := flag.Set("demo-fault", "true"); err != nil {
		t.Fatal(err)
	}
	defer flag.Set("demo-fault", "false")

	vid, _, errc := bootMachine(t)

	var err error
	select {
	case err = <-errc:
	case <-time.After(5 * time.Second):
		t.Fatal("kernel did not halt")
	}
	if err != nil {
		t.Fatalf("kernel.Main: %v", err)
	}

	page := vid.Page()
	row := findRow(page, "EXCEPTION: PAGE FAULT")
	if row < 0 {
		t.Fatal("missing page fault report")
	}
	if findRow(page, "address=0xdeadbeef error=0x0") < 0 {
		t.Error("missing faulting address")
	}
	if findRow(page, "system halted") < 0 {
		t.Error("missing halt message")
	}

	col := strings.Index(rowText(page, row), "EXCEPTION")
	want := byte(vga.NewColorCode(vga.White, vga.Red))
	if attr := page[(row*video.Columns+col)*2+1]; attr != want {
		t.Errorf("report attribute is %#x, want %#x", attr, want)
	}
}
