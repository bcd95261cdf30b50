// Package app provides emulator integration for the main application.
package app

import (
	"fmt"
	"time"

	"nesgo/internal/bus"
)

// cycleNanos is the wall-clock duration of one NTSC CPU cycle (1.789773 MHz).
const cycleNanos = 559 * time.Nanosecond

// frameTimingWindow is a small fixed-size circular buffer tracking recent
// frame times so the front-end can report a rolling average and a drop
// count without retaining full history or computing variance.
type frameTimingWindow struct {
	samples [60]time.Duration
	head    int
	filled  int
	total   time.Duration
}

func (w *frameTimingWindow) record(d time.Duration) {
	if w.filled == len(w.samples) {
		w.total -= w.samples[w.head]
	} else {
		w.filled++
	}
	w.samples[w.head] = d
	w.total += d
	w.head = (w.head + 1) % len(w.samples)
}

func (w *frameTimingWindow) average() time.Duration {
	if w.filled == 0 {
		return 0
	}
	return w.total / time.Duration(w.filled)
}

func (w *frameTimingWindow) reset() {
	*w = frameTimingWindow{}
}

// Emulator manages the emulation loop and wall-clock pacing
type Emulator struct {
	bus    *bus.Bus
	config *Config

	targetFrameTime time.Duration
	cyclesPerFrame  uint64

	// Wall-clock pacing: a monotonic should-have-elapsed accumulator kept
	// in cycles since paceEpoch, compared against actual elapsed time.
	paceEpoch   time.Time
	pacedCycles uint64

	frameComplete bool
	frameBuffer   []uint32
	audioSamples  []float32

	actualFrameTime  time.Duration
	emulationTime    time.Duration
	cycleCount       uint64
	frameCount       uint64
	droppedFrames    uint64
	timing           frameTimingWindow

	isRunning     bool
	lastResetTime time.Time
}

// NewEmulator creates a new emulator instance with fixed timing for accuracy
func NewEmulator(bus *bus.Bus, config *Config) *Emulator {
	emulator := &Emulator{
		bus:             bus,
		config:          config,
		targetFrameTime: time.Duration(16666667) * time.Nanosecond, // Precise 60 FPS (16.666ms)
		cyclesPerFrame:  29781,                                     // NTSC: 29,780.67 CPU cycles per frame, rounded up
		frameBuffer:     make([]uint32, 256*240),
		audioSamples:    make([]float32, 0, 1024),
		isRunning:       false,
		lastResetTime:   time.Now(),
	}

	emulator.Reset()
	return emulator
}

// Reset resets the emulator state with simple initialization
func (e *Emulator) Reset() {
	e.frameComplete = false
	e.actualFrameTime = 0
	e.emulationTime = 0
	e.cycleCount = 0
	e.frameCount = 0
	e.droppedFrames = 0
	e.timing.reset()
	e.lastResetTime = time.Now()
	e.resetPacing()

	for i := range e.frameBuffer {
		e.frameBuffer[i] = 0
	}
	e.audioSamples = e.audioSamples[:0]
}

// resetPacing zeros the should-have-elapsed accumulator. Called on Start
// and Resume so a paused debugger session doesn't cause burst catch-up.
func (e *Emulator) resetPacing() {
	e.paceEpoch = time.Now()
	e.pacedCycles = 0
}

// Start starts the emulator
func (e *Emulator) Start() {
	e.isRunning = true
	e.resetPacing()
}

// Stop stops the emulator
func (e *Emulator) Stop() {
	e.isRunning = false
}

// Resume resumes the emulator after a debugger pause, resetting the pacing
// accumulator so the elapsed backlog doesn't get replayed as a burst.
func (e *Emulator) Resume() {
	e.isRunning = true
	e.resetPacing()
}

// Update runs exactly one frame of emulation and paces it against the
// wall clock.
func (e *Emulator) Update() error {
	if !e.isRunning {
		return nil
	}

	frameStartTime := time.Now()

	if err := e.runFrameFixed(); err != nil {
		return fmt.Errorf("frame execution error: %v", err)
	}

	e.actualFrameTime = time.Since(frameStartTime)
	e.timing.record(e.actualFrameTime)
	e.pace()

	return nil
}

// runFrameFixed executes exactly one frame worth of emulation with fixed timing
func (e *Emulator) runFrameFixed() error {
	emulationStart := time.Now()

	startCycles := e.bus.GetCycleCount()
	targetCycles := startCycles + e.cyclesPerFrame

	for e.bus.GetCycleCount() < targetCycles {
		e.bus.Step()
	}

	e.frameCount++

	nesFrameBuffer := e.bus.GetFrameBuffer()
	if len(nesFrameBuffer) == len(e.frameBuffer) {
		copy(e.frameBuffer, nesFrameBuffer)
	}

	nesSamples := e.bus.GetAudioSamples()
	if len(nesSamples) > 0 {
		e.updateAudioSamplesSimple(nesSamples)
	}

	e.emulationTime = time.Since(emulationStart)
	e.cycleCount = e.bus.GetCycleCount()
	e.pacedCycles += e.cyclesPerFrame

	return nil
}

// pace compares the should-have-elapsed accumulator (cycles paced since
// paceEpoch times cycleNanos) against actual wall-clock elapsed time and
// sleeps the difference. A frame that is already behind schedule is not
// slept; it is counted as dropped only when it lags by more than one
// target frame time.
func (e *Emulator) pace() {
	shouldHaveElapsed := time.Duration(e.pacedCycles) * cycleNanos
	elapsed := time.Since(e.paceEpoch)

	if elapsed < shouldHaveElapsed {
		time.Sleep(shouldHaveElapsed - elapsed)
		return
	}

	if elapsed-shouldHaveElapsed > e.targetFrameTime {
		e.droppedFrames++
	}
}

// updateAudioSamplesSimple updates audio samples with simple copying
func (e *Emulator) updateAudioSamplesSimple(nesSamples []float32) {
	if cap(e.audioSamples) < len(nesSamples) {
		e.audioSamples = make([]float32, len(nesSamples))
	} else {
		e.audioSamples = e.audioSamples[:len(nesSamples)]
	}
	copy(e.audioSamples, nesSamples)
}

// GetFrameBuffer returns the current frame buffer
func (e *Emulator) GetFrameBuffer() []uint32 {
	return e.frameBuffer
}

// GetAudioSamples returns the current audio samples
func (e *Emulator) GetAudioSamples() []float32 {
	return e.audioSamples
}

// IsFrameComplete returns whether the current frame is complete
func (e *Emulator) IsFrameComplete() bool {
	complete := e.frameComplete
	e.frameComplete = false
	return complete
}

// GetFrameCount returns the current frame count
func (e *Emulator) GetFrameCount() uint64 {
	return e.frameCount
}

// GetCycleCount returns the current CPU cycle count
func (e *Emulator) GetCycleCount() uint64 {
	return e.cycleCount
}

// GetEmulationTime returns the time spent in emulation for the last frame
func (e *Emulator) GetEmulationTime() time.Duration {
	return e.emulationTime
}

// GetActualFrameTime returns the actual frame time including rendering
func (e *Emulator) GetActualFrameTime() time.Duration {
	return e.actualFrameTime
}

// GetAverageFrameTime returns the rolling average frame time
func (e *Emulator) GetAverageFrameTime() time.Duration {
	return e.timing.average()
}

// GetTargetFrameTime returns the target frame time (60 FPS)
func (e *Emulator) GetTargetFrameTime() time.Duration {
	return e.targetFrameTime
}

// GetEmulationSpeed returns the emulation speed as a percentage of real-time
func (e *Emulator) GetEmulationSpeed() float64 {
	if e.actualFrameTime == 0 {
		return 0.0
	}
	return float64(e.targetFrameTime) / float64(e.actualFrameTime) * 100.0
}

// GetCPUUsage returns the CPU usage percentage for emulation
func (e *Emulator) GetCPUUsage() float64 {
	if e.actualFrameTime == 0 {
		return 0.0
	}
	return float64(e.emulationTime) / float64(e.actualFrameTime) * 100.0
}

// IsRunning returns whether the emulator is running
func (e *Emulator) IsRunning() bool {
	return e.isRunning
}

// GetUptime returns the emulator uptime since last reset
func (e *Emulator) GetUptime() time.Duration {
	return time.Since(e.lastResetTime)
}

// SetTargetFrameRate sets the target frame rate
func (e *Emulator) SetTargetFrameRate(fps int) {
	if fps > 0 {
		e.targetFrameTime = time.Duration(1000000/fps) * time.Microsecond
	}
}

// SetCyclesPerFrame sets the number of CPU cycles per frame
func (e *Emulator) SetCyclesPerFrame(cycles uint64) {
	e.cyclesPerFrame = cycles
}

// StepFrame executes exactly one frame of emulation, unpaced (debugger use)
func (e *Emulator) StepFrame() error {
	if e.bus == nil {
		return fmt.Errorf("bus not initialized")
	}

	emulationStart := time.Now()

	startCycles := e.bus.GetCycleCount()
	targetCycles := startCycles + e.cyclesPerFrame

	for e.bus.GetCycleCount() < targetCycles {
		e.bus.Step()
	}

	e.frameCount++

	nesFrameBuffer := e.bus.GetFrameBuffer()
	if len(nesFrameBuffer) == len(e.frameBuffer) {
		copy(e.frameBuffer, nesFrameBuffer)
	}

	nesSamples := e.bus.GetAudioSamples()
	if len(nesSamples) > 0 {
		e.updateAudioSamplesSimple(nesSamples)
	}

	e.emulationTime = time.Since(emulationStart)
	e.cycleCount = e.bus.GetCycleCount()

	return nil
}

// StepInstruction executes one CPU instruction
func (e *Emulator) StepInstruction() error {
	if e.bus == nil {
		return fmt.Errorf("bus not initialized")
	}

	e.bus.Step()
	e.cycleCount = e.bus.GetCycleCount()

	return nil
}

// GetCPUState returns the current CPU state for debugging
func (e *Emulator) GetCPUState() bus.CPUState {
	if e.bus == nil {
		return bus.CPUState{}
	}
	return e.bus.GetCPUState()
}

// GetPPUState returns the current PPU state for debugging
func (e *Emulator) GetPPUState() bus.PPUState {
	if e.bus == nil {
		return bus.PPUState{}
	}
	return e.bus.GetPPUState()
}

// EmulatorStats contains emulator performance statistics
type EmulatorStats struct {
	FrameCount       uint64
	CycleCount       uint64
	EmulationTime    time.Duration
	ActualFrameTime  time.Duration
	AverageFrameTime time.Duration
	TargetFrameTime  time.Duration
	EmulationSpeed   float64
	CPUUsage         float64
	Uptime           time.Duration
	IsRunning        bool
	DroppedFrames    uint64
}

// GetPerformanceStats returns the frame-pacing statistics: rolling average
// frame time and drop counter.
func (e *Emulator) GetPerformanceStats() EmulatorStats {
	return EmulatorStats{
		FrameCount:       e.frameCount,
		CycleCount:       e.cycleCount,
		EmulationTime:    e.emulationTime,
		ActualFrameTime:  e.actualFrameTime,
		AverageFrameTime: e.timing.average(),
		TargetFrameTime:  e.targetFrameTime,
		EmulationSpeed:   e.GetEmulationSpeed(),
		CPUUsage:         e.GetCPUUsage(),
		Uptime:           e.GetUptime(),
		IsRunning:        e.isRunning,
		DroppedFrames:    e.droppedFrames,
	}
}

// Cleanup cleans up emulator resources
func (e *Emulator) Cleanup() error {
	e.Stop()
	e.frameBuffer = nil
	e.audioSamples = nil
	return nil
}
