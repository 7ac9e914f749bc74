// Package bytecode assembles the instruction stream executed by the SPC-side
// audio driver. One emitter method per instruction; every operand is
// range-checked here so the parser above can assume emitted bytes are valid.
package bytecode

import "github.com/audiodrv/spcmml/internal/driver"

// Opcodes 0x00..0xBF play a note: opcode = noteID<<1 | keyOffBit, followed by
// a one-byte tick length. Opcodes at OpFirstCommand and above are commands.
const OpFirstCommand = driver.MaxNote * 2 // 0xC0

const (
	// one operand byte unless noted
	OpSetInstrument   = OpFirstCommand + iota // instrument id
	OpSetAdsr                                 // adsr1, adsr2
	OpSetGain                                 // gain
	OpRest                                    // ticks, keys off
	OpWait                                    // ticks, no key off
	OpPortamentoUp                            // ticks, +velocity, noteID<<1|keyOff
	OpPortamentoDown                          // ticks, -velocity, noteID<<1|keyOff
	OpSetVolume                               // volume
	OpAdjustVolume                            // signed delta
	OpSetPan                                  // pan
	OpAdjustPan                               // signed delta
	OpSetSongTickClock                        // timer register value

	OpStartLoop0    // loop count - 2
	OpSkipLastLoop0 // forward byte offset, patched at the matching end
	OpEndLoop0      // no operand
	OpStartLoop1
	OpSkipLastLoop1
	OpEndLoop1

	OpCallSubroutine // subroutine index
)

const (
	OpReturnFromSubroutine = 0xFE // no operand
	OpEnd                  = 0xFF // no operand
)

// loop opcode banks indexed by nesting depth
var (
	startLoopOps    = [driver.MaxNestedLoops]byte{OpStartLoop0, OpStartLoop1}
	skipLastLoopOps = [driver.MaxNestedLoops]byte{OpSkipLastLoop0, OpSkipLastLoop1}
	endLoopOps      = [driver.MaxNestedLoops]byte{OpEndLoop0, OpEndLoop1}
)
