// Package testrom runs blargg-style status-byte test ROMs against a bus and
// reports pass/fail the way the original test harnesses do: poll $6000 until
// it leaves the "running" state, then surface the ASCII message at $6004.
package testrom

import (
	"fmt"
	"strings"

	"github.com/golang/glog"

	"nesgo/internal/bus"
	"nesgo/internal/cartridge"
	"nesgo/internal/memory"
)

const (
	statusAddr  = 0x6000
	messageAddr = 0x6004

	statusRunning = 0x80
	statusPass    = 0x00
)

// Result is the outcome of running a single test ROM to completion.
type Result struct {
	Passed     bool
	StatusByte uint8
	Message    string
	Cycles     uint64
	TimedOut   bool
}

// Run loads the ROM at path and steps the bus until the $6000 status byte
// leaves the "running" state (0x80) or maxCycles CPU cycles elapse.
func Run(path string, maxCycles uint64) (Result, error) {
	cart, err := cartridge.LoadFromFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("loading test ROM %s: %w", path, err)
	}
	return RunCartridge(cart, maxCycles)
}

// RunCartridge runs an already-loaded cartridge, for callers (tests) that
// build ROMs in memory via cartridge.NewTestROMBuilder instead of reading a
// file.
func RunCartridge(cart memory.CartridgeInterface, maxCycles uint64) (Result, error) {
	b := bus.New()
	b.LoadCartridge(cart)
	b.CPU.Reset()

	var cycles uint64
	lastStatus := uint8(statusRunning)
	for cycles < maxCycles {
		b.Step()
		cycles++

		status := b.Memory.Read(statusAddr, 0)
		if status != lastStatus {
			glog.V(1).Infof("testrom: status byte changed %#02x -> %#02x at cycle %d", lastStatus, status, cycles)
			lastStatus = status
		}
		if status != statusRunning {
			return Result{
				Passed:     status == statusPass,
				StatusByte: status,
				Message:    readMessage(b),
				Cycles:     cycles,
			}, nil
		}
	}

	return Result{
		StatusByte: lastStatus,
		Message:    readMessage(b),
		Cycles:     cycles,
		TimedOut:   true,
	}, nil
}

// readMessage reads the null-terminated ASCII diagnostic string conventionally
// written at $6004, stopping at the first NUL or 0x200 bytes, whichever comes
// first (test ROMs never write longer messages than this).
func readMessage(b *bus.Bus) string {
	var sb strings.Builder
	for i := uint16(0); i < 0x200; i++ {
		c := b.Memory.Read(messageAddr+i, 0)
		if c == 0 {
			break
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
