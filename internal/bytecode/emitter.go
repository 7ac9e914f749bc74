package bytecode

import (
	"errors"
	"fmt"

	"github.com/audiodrv/spcmml/internal/driver"
)

var (
	ErrUnbalancedLoop  = errors.New("no matching start loop")
	ErrTooManyLoops    = errors.New("too many nested loops")
	ErrNestedCall      = errors.New("cannot call a subroutine in a subroutine")
	ErrAlreadyFinished = errors.New("bytecode already terminated")
)

// Emitter builds one channel's (or subroutine's) instruction stream.
type Emitter struct {
	code         []byte
	isSubroutine bool
	finished     bool

	loopDepth int
	// operand offset of a pending skip-last-loop per open loop, -1 if none
	skipPatch [driver.MaxNestedLoops]int
}

// NewEmitter creates an emitter. isSubroutine selects the terminator
// instruction and forbids subroutine calls.
func NewEmitter(isSubroutine bool) *Emitter {
	return &Emitter{
		code:         make([]byte, 0, 64),
		isSubroutine: isSubroutine,
	}
}

// Bytes returns the emitted instruction stream.
func (e *Emitter) Bytes() []byte { return e.code }

// Len returns the current stream length in bytes.
func (e *Emitter) Len() int { return len(e.code) }

// LoopDepth reports the number of currently open loops.
func (e *Emitter) LoopDepth() int { return e.loopDepth }

func (e *Emitter) emit(b ...byte) {
	e.code = append(e.code, b...)
}

func tickArg(name string, ticks int) (byte, error) {
	if ticks < 1 || ticks > driver.MaxTicksPerInstruction {
		return 0, fmt.Errorf("%s length out of range [1, %d]: %d",
			name, driver.MaxTicksPerInstruction, ticks)
	}
	return byte(ticks), nil
}

func signedArg(name string, v int) (byte, error) {
	if v < -128 || v > 127 {
		return 0, fmt.Errorf("%s out of range [-128, 127]: %d", name, v)
	}
	return byte(int8(v)), nil
}

// PlayNote emits a keyed note. Lengths above the instruction limit must be
// split by the caller before reaching this layer.
func (e *Emitter) PlayNote(note int, keyOff bool, ticks int) error {
	if note < 0 || note >= driver.MaxNote {
		return fmt.Errorf("note id out of range [0, %d]: %d", driver.MaxNote-1, note)
	}
	l, err := tickArg("note", ticks)
	if err != nil {
		return err
	}
	op := byte(note << 1)
	if keyOff {
		op |= 1
	}
	e.emit(op, l)
	return nil
}

// Rest emits a key-off rest.
func (e *Emitter) Rest(ticks int) error {
	l, err := tickArg("rest", ticks)
	if err != nil {
		return err
	}
	e.emit(OpRest, l)
	return nil
}

// Wait emits a pause that does not key off, used after slurred notes and to
// extend instructions past the per-instruction tick limit.
func (e *Emitter) Wait(ticks int) error {
	l, err := tickArg("wait", ticks)
	if err != nil {
		return err
	}
	e.emit(OpWait, l)
	return nil
}

func (e *Emitter) SetInstrument(id int) error {
	if id < 0 || id > 255 {
		return fmt.Errorf("instrument id out of range [0, 255]: %d", id)
	}
	e.emit(OpSetInstrument, byte(id))
	return nil
}

// SetAdsr emits an envelope override. Fields are packed exactly as the two
// DSP ADSR registers expect.
func (e *Emitter) SetAdsr(attack, decay, sustainLevel, sustainRate int) error {
	if attack < 0 || attack > driver.MaxAttack {
		return fmt.Errorf("ADSR attack out of range [0, %d]: %d", driver.MaxAttack, attack)
	}
	if decay < 0 || decay > driver.MaxDecay {
		return fmt.Errorf("ADSR decay out of range [0, %d]: %d", driver.MaxDecay, decay)
	}
	if sustainLevel < 0 || sustainLevel > driver.MaxSustainLevel {
		return fmt.Errorf("ADSR sustain level out of range [0, %d]: %d", driver.MaxSustainLevel, sustainLevel)
	}
	if sustainRate < 0 || sustainRate > driver.MaxSustainRate {
		return fmt.Errorf("ADSR sustain rate out of range [0, %d]: %d", driver.MaxSustainRate, sustainRate)
	}
	adsr1 := byte(0x80 | decay<<4 | attack)
	adsr2 := byte(sustainLevel<<5 | sustainRate)
	e.emit(OpSetAdsr, adsr1, adsr2)
	return nil
}

func (e *Emitter) SetGain(gain int) error {
	if gain < 0 || gain > 255 {
		return fmt.Errorf("GAIN out of range [0, 255]: %d", gain)
	}
	e.emit(OpSetGain, byte(gain))
	return nil
}

func (e *Emitter) SetVolume(v int) error {
	if v < 0 || v > driver.MaxVolume {
		return fmt.Errorf("volume out of range [0, %d]: %d", driver.MaxVolume, v)
	}
	e.emit(OpSetVolume, byte(v))
	return nil
}

func (e *Emitter) AdjustVolume(delta int) error {
	b, err := signedArg("volume adjust", delta)
	if err != nil {
		return err
	}
	e.emit(OpAdjustVolume, b)
	return nil
}

func (e *Emitter) SetPan(p int) error {
	if p < 0 || p > driver.MaxPan {
		return fmt.Errorf("pan out of range [0, %d]: %d", driver.MaxPan, p)
	}
	e.emit(OpSetPan, byte(p))
	return nil
}

func (e *Emitter) AdjustPan(delta int) error {
	b, err := signedArg("pan adjust", delta)
	if err != nil {
		return err
	}
	e.emit(OpAdjustPan, b)
	return nil
}

func (e *Emitter) SetSongTickClock(timer int) error {
	if timer < driver.MinTickTimer || timer > driver.MaxTickTimer {
		return fmt.Errorf("tick clock out of range [%d, %d]: %d",
			driver.MinTickTimer, driver.MaxTickTimer, timer)
	}
	e.emit(OpSetSongTickClock, byte(timer))
	return nil
}

// Portamento emits a pitch slide to note. velocity is the per-tick pitch
// register delta; its sign selects the slide direction.
func (e *Emitter) Portamento(note int, keyOff bool, velocity, ticks int) error {
	if note < 0 || note >= driver.MaxNote {
		return fmt.Errorf("note id out of range [0, %d]: %d", driver.MaxNote-1, note)
	}
	if velocity == 0 {
		return errors.New("portamento velocity must not be zero")
	}
	op := byte(OpPortamentoUp)
	if velocity < 0 {
		op = OpPortamentoDown
		velocity = -velocity
	}
	if velocity > driver.MaxPortamento {
		return fmt.Errorf("portamento velocity out of range [1, %d]: %d",
			driver.MaxPortamento, velocity)
	}
	l, err := tickArg("portamento", ticks)
	if err != nil {
		return err
	}
	target := byte(note << 1)
	if keyOff {
		target |= 1
	}
	e.emit(op, l, byte(velocity), target)
	return nil
}

// StartLoop opens a loop on the register bank for the current nesting depth.
func (e *Emitter) StartLoop(count int) error {
	if e.loopDepth >= driver.MaxNestedLoops {
		return fmt.Errorf("%w (maximum %d)", ErrTooManyLoops, driver.MaxNestedLoops)
	}
	if count < driver.MinLoopCount || count > driver.MaxLoopCount {
		return fmt.Errorf("loop count out of range [%d, %d]: %d",
			driver.MinLoopCount, driver.MaxLoopCount, count)
	}
	e.emit(startLoopOps[e.loopDepth], byte(count-driver.MinLoopCount))
	e.skipPatch[e.loopDepth] = -1
	e.loopDepth++
	return nil
}

// SkipLastLoop marks the point the final loop iteration jumps out from. The
// forward offset operand is patched by the matching EndLoop.
func (e *Emitter) SkipLastLoop() error {
	if e.loopDepth == 0 {
		return fmt.Errorf("skip last loop: %w", ErrUnbalancedLoop)
	}
	d := e.loopDepth - 1
	if e.skipPatch[d] >= 0 {
		return errors.New("only one skip-last-loop per loop")
	}
	e.emit(skipLastLoopOps[d], 0)
	e.skipPatch[d] = len(e.code) - 1
	return nil
}

// EndLoop closes the innermost loop and resolves any skip-last-loop offset.
func (e *Emitter) EndLoop() error {
	if e.loopDepth == 0 {
		return fmt.Errorf("end loop: %w", ErrUnbalancedLoop)
	}
	e.loopDepth--
	e.emit(endLoopOps[e.loopDepth])
	if at := e.skipPatch[e.loopDepth]; at >= 0 {
		skip := len(e.code) - (at + 1)
		if skip > 255 {
			return fmt.Errorf("skip-last-loop body too large: %d bytes", skip)
		}
		e.code[at] = byte(skip)
		e.skipPatch[e.loopDepth] = -1
	}
	return nil
}

func (e *Emitter) CallSubroutine(index int) error {
	if e.isSubroutine {
		return ErrNestedCall
	}
	if index < 0 || index > 255 {
		return fmt.Errorf("subroutine index out of range [0, 255]: %d", index)
	}
	e.emit(OpCallSubroutine, byte(index))
	return nil
}

// Terminate appends the end-of-stream instruction: return-from-subroutine for
// subroutines, end for channels. The two are mutually exclusive.
func (e *Emitter) Terminate() error {
	if e.finished {
		return ErrAlreadyFinished
	}
	if e.loopDepth != 0 {
		return fmt.Errorf("missing ']': %d unterminated loop(s)", e.loopDepth)
	}
	if e.isSubroutine {
		e.emit(OpReturnFromSubroutine)
	} else {
		e.emit(OpEnd)
	}
	e.finished = true
	return nil
}
