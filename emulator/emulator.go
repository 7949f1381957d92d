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
	"log"
	"time"

	"github.com/andreas-jonsson/virtual64/emulator/peripheral"
	"github.com/andreas-jonsson/virtual64/emulator/peripheral/keyboard"
	"github.com/andreas-jonsson/virtual64/emulator/peripheral/pic"
	"github.com/andreas-jonsson/virtual64/emulator/peripheral/pit"
	"github.com/andreas-jonsson/virtual64/emulator/peripheral/post"
	"github.com/andreas-jonsson/virtual64/emulator/peripheral/ram"
	"github.com/andreas-jonsson/virtual64/emulator/peripheral/speaker"
	"github.com/andreas-jonsson/virtual64/emulator/peripheral/video"
	"github.com/andreas-jonsson/virtual64/kernel"
	"github.com/andreas-jonsson/virtual64/platform"
	"github.com/andreas-jonsson/virtual64/platform/dialog"
)

// Start assembles the machine on the given platform and boots the
// kernel on it. It returns when the emulator shuts down.
func Start(p platform.Platform) {
	kbd := &keyboard.Device{}

	peripherals := []peripheral.Peripheral{
		&ram.Device{},  // RAM (needs to go first since it maps the base memory range)
		&post.Device{}, // POST Diagnostic Port
		&pic.Device{},  // Programmable Interrupt Controllers
		&pit.Device{},  // Programmable Interval Timer
		video.New(p),   // Text Mode Video
		&speaker.Device{ // PC Speaker
			Output: p,
		},
		kbd, // Keyboard Controller
	}

	vm := NewVM(peripherals)
	defer vm.Close()

	p.SetTitle("virtual64")
	p.SetKeyboardHandler(func(s platform.Scancode) {
		if err := kbd.PushEvent(byte(s)); err != nil {
			log.Print(err)
		}
	})

	go func() {
		for !dialog.ShutdownRequested() {
			time.Sleep(100 * time.Millisecond)
		}
		vm.Stop()
	}()

	if err := kernel.Main(vm); err != nil {
		log.Print(err)
		dialog.ShowErrorMessage(err.Error())
	}

	// Keep the last screen up until the user quits.
	for !dialog.ShutdownRequested() {
		time.Sleep(100 * time.Millisecond)
	}
}
