// Package driver holds the fixed constants of the SPC-side audio driver.
// The compiler validates against these; changing them requires a matching
// driver rebuild.
package driver

import "fmt"

const (
	// NumChannels is the number of music channels (A..F).
	NumChannels = 6

	// Notes are absolute ids: octave*12 + semitone.
	MinOctave = 0
	MaxOctave = 7
	MaxNote   = (MaxOctave + 1) * 12 // exclusive

	// A single play-note/rest/wait instruction holds at most this many ticks.
	MaxTicksPerInstruction = 255

	// Loop instruction limits. The count operand is stored as count-2.
	MinLoopCount = 2
	MaxLoopCount = 257

	// Number of loop register banks in the driver.
	MaxNestedLoops = 2

	MaxPan    = 128
	MaxVolume = 255

	// S-SMP timer register bounds for the song tick clock.
	MinTickTimer = 64
	MaxTickTimer = 255

	// Timer ticks per second at divider 1 (0.125ms period).
	TimerHz = 8000

	// Driver ticks per quarter-note beat, used for BPM conversion.
	ClocksPerBeat = 48

	// DSP pitch register: 0x1000 plays a sample at its recorded rate.
	PitchUnity    = 0x1000
	MaxPitch      = 0x3FFF
	NativeRate    = 32000
	MaxPortamento = 255

	// ADSR bit widths.
	MaxAttack       = 1<<4 - 1
	MaxDecay        = 1<<3 - 1
	MaxSustainLevel = 1<<3 - 1
	MaxSustainRate  = 1<<5 - 1

	DefaultZenlen = 96
	MinZenlen     = 4
	MaxZenlen     = 255
)

// TickTimerForBpm converts a tempo in beats per minute into the song tick
// timer register value: timer = round(TimerHz * 60 / (ClocksPerBeat * bpm)).
func TickTimerForBpm(bpm int) (int, error) {
	if bpm <= 0 {
		return 0, fmt.Errorf("invalid tempo: %d bpm", bpm)
	}
	timer := (TimerHz*60 + (ClocksPerBeat*bpm)/2) / (ClocksPerBeat * bpm)
	if timer < MinTickTimer || timer > MaxTickTimer {
		return 0, fmt.Errorf("tempo %d bpm is outside the driver timer range (%d..%d bpm)",
			bpm, bpmForTimer(MaxTickTimer), bpmForTimer(MinTickTimer))
	}
	return timer, nil
}

func bpmForTimer(timer int) int {
	return TimerHz * 60 / (ClocksPerBeat * timer)
}
