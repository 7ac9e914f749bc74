package mml

import (
	"github.com/audiodrv/spcmml/internal/bytecode"
	"github.com/audiodrv/spcmml/internal/driver"
	"github.com/audiodrv/spcmml/internal/samples"
)

// songState is the read-only compile context shared by every channel and
// subroutine parser of one song.
type songState struct {
	table *samples.Table
	pitch *samples.PitchTable

	instruments   []*Instrument
	instrumentIDs map[string]int // name -> 0-based id, insertion order

	// filled while subroutines compile, in declaration order; a subroutine
	// can only see entries declared before it
	subroutines []*ChannelData
	subIndex    map[string]int
}

type loopState struct {
	count     int
	startTick int
	skipTick  int // tick at the ':' marker, -1 if none
}

// channelParser compiles one channel or subroutine. Its fields are the
// canonical musical state snapshot; channelData() is the only sanctioned way
// to extract the final result.
type channelParser struct {
	name         string
	isSubroutine bool

	tok  *Tokenizer
	bc   *bytecode.Emitter
	song *songState
	meta *Metadata
	errs *ErrorList

	// errPos is recorded before each parse step so an error thrown mid
	// operation still cites the token start.
	errPos FilePos

	octave        int
	transpose     int
	zenlen        int
	defaultLength int // ticks
	quantize      int // 1..8, 8 = no quantization
	instrument    *Instrument
	envOverridden bool // channel-level A/G override active

	loopStack []loopState
	tick      int
	maxNested int
	loopPoint int // bytecode offset marked by 'L', -1 if none

	// note id the previous note slurred into, -1 when the previous note was
	// keyed off
	slurredNote int
}

func newChannelParser(name string, lines []Line, isSub bool, song *songState, meta *Metadata, errs *ErrorList) *channelParser {
	return &channelParser{
		name:          name,
		isSubroutine:  isSub,
		tok:           newTokenizer(lines),
		bc:            bytecode.NewEmitter(isSub),
		song:          song,
		meta:          meta,
		errs:          errs,
		octave:        4,
		zenlen:        meta.Zenlen,
		defaultLength: meta.Zenlen / 4,
		quantize:      8,
		slurredNote:   -1,
		loopPoint:     -1,
	}
}

// addError records a diagnostic at the position captured before the current
// parse step.
func (c *channelParser) addError(format string, args ...interface{}) {
	c.errs.add(c.errPos, c.name, format, args...)
}

// check records a non-nil error and reports whether one occurred.
func (c *channelParser) check(err error) bool {
	if err != nil {
		c.addError("%v", err)
		return true
	}
	return false
}

// parse runs the main loop: skip to the next line when the current one is
// exhausted, try a note, otherwise dispatch on the next token.
func (c *channelParser) parse() {
	for {
		if c.tok.LineDone() {
			c.tok.SkipNewLine()
			if c.tok.AtEnd() {
				break
			}
			continue
		}
		c.errPos = c.tok.Pos()

		note, ok, err := c.tok.ParseOptionalNote()
		if err != nil {
			c.addError("%v", err)
			continue
		}
		if ok {
			c.parseNote(note)
			continue
		}
		c.parseCommand(c.tok.NextToken())
	}

	c.errPos = c.tok.Pos()
	if len(c.loopStack) > 0 {
		// Terminate would report the same open loops again
		for range c.loopStack {
			c.addError("missing end loop ']'")
		}
		c.loopStack = c.loopStack[:0]
		return
	}
	c.check(c.bc.Terminate())
}

// channelData extracts the final compile result.
func (c *channelParser) channelData() *ChannelData {
	return &ChannelData{
		Name:           c.name,
		Bytecode:       c.bc.Bytes(),
		TickCounter:    c.tick,
		MaxNestedLoops: c.maxNested,
		LoopPoint:      c.loopPoint,
		LastInstrument: c.instrument,
		envOverridden:  c.envOverridden,
	}
}

func (c *channelParser) parseCommand(tok string) {
	switch tok {
	case "!":
		c.parseCallSubroutine()
	case "@":
		c.parseSetInstrument()
	case "[":
		c.parseStartLoop()
	case ":":
		c.parseSkipLastLoop()
	case "]":
		c.parseEndLoop()
	case "{{":
		c.parseBrokenChord()
	case "{":
		c.parsePortamento()
	case "n":
		c.parseNoteNumber()
	case "r":
		c.parseRest(true)
	case "w":
		c.parseRest(false)
	case "l":
		c.parseDefaultLength()
	case "C":
		c.parseZenlen()
	case "o":
		c.parseOctave()
	case "<":
		c.stepOctave(-1)
	case ">":
		c.stepOctave(+1)
	case "_":
		c.parseTranspose(false)
	case "__":
		c.parseTranspose(true)
	case "A":
		c.parseAdsr()
	case "G":
		c.parseGain()
	case "v":
		c.parseVolume()
	case "p":
		c.parsePan()
	case "Q":
		c.parseQuantize()
	case "L":
		c.parseLoopPoint()
	case "t":
		c.parseTempo()
	case "T":
		c.parseTickClock()
	case "|":
		// bar line, purely visual
	case "^", "&":
		c.addError("%q must follow a note", tok)
	default:
		c.addError("unknown command %q", tok)
	}
}

// --- note lengths -----------------------------------------------------

// resolveLength turns a NoteLength into ticks against the current state.
// Clock-tick lengths are literal; otherwise the value divides zenlen and
// each dot adds half the previous dot's contribution, truncating at every
// step.
func (c *channelParser) resolveLength(l NoteLength) (int, bool) {
	base := c.defaultLength
	if l.IsClockTick {
		base = l.Value
	} else if l.Value > 0 {
		base = c.zenlen / l.Value
	}
	ticks := base
	term := base
	for i := 0; i < l.Dots; i++ {
		term /= 2
		ticks += term
	}
	if ticks < 1 {
		c.addError("note length of zero ticks")
		return 0, false
	}
	return ticks, true
}

func (c *channelParser) parseOptionalLength() (int, bool) {
	l, _, err := c.tok.ParseOptionalNoteLength()
	if c.check(err) {
		return 0, false
	}
	return c.resolveLength(l)
}

// parseTiesAndSlur folds any run of ^ ties and & tie-or-slurs that follow a
// note into its total tick count, before the instruction is emitted. The
// returned flag is true when the note must not be keyed off.
func (c *channelParser) parseTiesAndSlur(ticks int) (int, bool) {
	for {
		switch c.tok.PeekToken() {
		case "^":
			c.tok.NextToken()
			if t, ok := c.parseOptionalLength(); ok {
				ticks += t
			}
		case "&":
			c.tok.NextToken()
			l, present, err := c.tok.ParseOptionalNoteLength()
			if c.check(err) {
				return ticks, false
			}
			if !present {
				// bare & is a slur: the next note is not re-attacked
				return ticks, true
			}
			if t, ok := c.resolveLength(l); ok {
				ticks += t
			}
		default:
			return ticks, false
		}
	}
}

// --- notes ------------------------------------------------------------

func (c *channelParser) noteID(p Pitch) int {
	return c.octave*12 + p.Semitone + c.transpose
}

// validNote checks a note id against the active instrument's playable range.
func (c *channelParser) validNote(note int) bool {
	if c.instrument == nil {
		c.addError("cannot play a note before setting an instrument")
		return false
	}
	if note < c.instrument.FirstNote || note > c.instrument.LastNote {
		c.addError("note out of range for instrument @%s (%d..%d): %d",
			c.instrument.Name, c.instrument.FirstNote, c.instrument.LastNote, note)
		return false
	}
	return true
}

func (c *channelParser) parseNote(n Note) {
	ticks, ok := c.resolveLength(n.Length)
	if !ok {
		return
	}
	ticks, slur := c.parseTiesAndSlur(ticks)
	c.playNote(c.noteID(n.Pitch), ticks, slur)
}

// parseNoteNumber handles "n<id>[,length]": an absolute note id, bypassing
// octave and transpose state.
func (c *channelParser) parseNoteNumber() {
	id, err := c.tok.ParseUint()
	if c.check(err) {
		return
	}
	ticks := c.defaultLength
	if c.tok.PeekToken() == "," {
		c.tok.NextToken()
		var ok bool
		if ticks, ok = c.parseOptionalLength(); !ok {
			return
		}
	}
	ticks, slur := c.parseTiesAndSlur(ticks)
	c.playNote(id, ticks, slur)
}

// playNote validates, applies quantization, emits and advances the tick
// counter by exactly ticks.
func (c *channelParser) playNote(note, ticks int, slur bool) {
	if !c.validNote(note) {
		return
	}
	if !slur && c.quantize < 8 {
		keyOn := ticks*c.quantize/8 + 1
		rest := ticks - keyOn
		if keyOn > 1 && rest > 1 {
			if c.check(c.emitPlayNote(note, true, keyOn)) {
				return
			}
			if c.check(c.emitRestOrWait(true, rest)) {
				return
			}
			c.tick += ticks
			c.slurredNote = -1
			return
		}
	}
	if c.check(c.emitPlayNote(note, !slur, ticks)) {
		return
	}
	c.tick += ticks
	c.slurredNote = -1
	if slur {
		c.slurredNote = note
	}
}

// emitPlayNote splits a note longer than the driver's per-instruction limit
// into a 255-tick head plus wait/rest continuations whose lengths sum to
// exactly ticks. The key-off flag moves to the final instruction.
func (c *channelParser) emitPlayNote(note int, keyOff bool, ticks int) error {
	if ticks <= driver.MaxTicksPerInstruction {
		return c.bc.PlayNote(note, keyOff, ticks)
	}
	if err := c.bc.PlayNote(note, false, driver.MaxTicksPerInstruction); err != nil {
		return err
	}
	return c.emitRestOrWait(keyOff, ticks-driver.MaxTicksPerInstruction)
}

// emitRestOrWait emits a (possibly split) pause; keyOff selects whether the
// final instruction releases the note.
func (c *channelParser) emitRestOrWait(keyOff bool, ticks int) error {
	for ticks > driver.MaxTicksPerInstruction {
		if err := c.bc.Wait(driver.MaxTicksPerInstruction); err != nil {
			return err
		}
		ticks -= driver.MaxTicksPerInstruction
	}
	if keyOff {
		return c.bc.Rest(ticks)
	}
	return c.bc.Wait(ticks)
}

func (c *channelParser) parseRest(keyOff bool) {
	ticks, ok := c.parseOptionalLength()
	if !ok {
		return
	}
	ticks, _ = c.parseTiesAndSlur(ticks)
	if c.check(c.emitRestOrWait(keyOff, ticks)) {
		return
	}
	c.tick += ticks
	if keyOff {
		c.slurredNote = -1
	}
}

// --- loops ------------------------------------------------------------

func (c *channelParser) startLoop(count int) bool {
	if c.check(c.bc.StartLoop(count)) {
		return false
	}
	c.loopStack = append(c.loopStack, loopState{
		count:     count,
		startTick: c.tick,
		skipTick:  -1,
	})
	if len(c.loopStack) > c.maxNested {
		c.maxNested = len(c.loopStack)
	}
	return true
}

func (c *channelParser) skipLastLoop() bool {
	if len(c.loopStack) == 0 {
		c.addError("':' outside a loop")
		return false
	}
	top := &c.loopStack[len(c.loopStack)-1]
	if top.skipTick >= 0 {
		c.addError("only one ':' per loop")
		return false
	}
	if c.check(c.bc.SkipLastLoop()) {
		return false
	}
	top.skipTick = c.tick
	return true
}

// endLoop closes the innermost loop and projects the loop's total tick
// contribution onto the tick counter: the body was counted once while
// parsing, so a plain loop adds body*(count-1) and a skip-last loop adds
// body*(count-2) plus the ticks up to the ':' marker.
func (c *channelParser) endLoop() bool {
	if len(c.loopStack) == 0 {
		c.addError("']' without a matching '['")
		return false
	}
	top := c.loopStack[len(c.loopStack)-1]
	c.loopStack = c.loopStack[:len(c.loopStack)-1]
	if c.check(c.bc.EndLoop()) {
		return false
	}
	body := c.tick - top.startTick
	if body <= 0 {
		c.addError("loop body has no ticks")
		return false
	}
	if top.skipTick >= 0 {
		c.tick += body*(top.count-2) + (top.skipTick - top.startTick)
	} else {
		c.tick += body * (top.count - 1)
	}
	return true
}

func (c *channelParser) parseStartLoop() {
	count, err := c.tok.ReadLoopEndCount()
	if c.check(err) {
		return
	}
	c.startLoop(count)
}

func (c *channelParser) parseSkipLastLoop() {
	c.skipLastLoop()
}

func (c *channelParser) parseEndLoop() {
	// the count was validated by the lookahead at '['
	if _, _, err := c.tok.ParseOptionalUint(); c.check(err) {
		return
	}
	c.endLoop()
}

// --- subroutines ------------------------------------------------------

func (c *channelParser) parseCallSubroutine() {
	if c.isSubroutine {
		c.addError("%v", bytecode.ErrNestedCall)
		return
	}
	name, err := c.tok.ParseIdentifier()
	if c.check(err) {
		return
	}
	index, ok := c.song.subIndex[name]
	if !ok {
		c.addError("unknown subroutine !%s", name)
		return
	}
	sub := c.song.subroutines[index]
	if len(c.loopStack)+sub.MaxNestedLoops > driver.MaxNestedLoops {
		c.addError("calling !%s here exceeds %d nested loops", name, driver.MaxNestedLoops)
		return
	}
	if c.check(c.bc.CallSubroutine(index)) {
		return
	}
	c.tick += sub.TickCounter
	if nested := len(c.loopStack) + sub.MaxNestedLoops; nested > c.maxNested {
		c.maxNested = nested
	}
	if sub.LastInstrument != nil {
		c.instrument = sub.LastInstrument
		c.envOverridden = sub.envOverridden
	}
	c.slurredNote = -1
}

// --- instruments and envelopes ----------------------------------------

// parseSetInstrument emits set-instrument only when the id actually changes
// or a channel-level ADSR/GAIN override must be restored to the instrument
// default. The first case is a size optimization; the second is required
// for correctness.
func (c *channelParser) parseSetInstrument() {
	name, err := c.tok.ParseIdentifier()
	if c.check(err) {
		return
	}
	id, ok := c.song.instrumentIDs[name]
	if !ok {
		c.addError("unknown instrument @%s", name)
		return
	}
	inst := c.song.instruments[id]
	if c.instrument == inst && !c.envOverridden {
		return
	}
	if c.check(c.bc.SetInstrument(id)) {
		return
	}
	c.instrument = inst
	c.envOverridden = false
}

func (c *channelParser) parseAdsr() {
	var fields [4]int
	for i := range fields {
		if i > 0 {
			if c.tok.PeekToken() != "," {
				c.addError("A command needs 4 comma-separated values")
				return
			}
			c.tok.NextToken()
		}
		v, err := c.tok.ParseUint()
		if c.check(err) {
			return
		}
		fields[i] = v
	}
	if c.check(c.bc.SetAdsr(fields[0], fields[1], fields[2], fields[3])) {
		return
	}
	c.envOverridden = true
}

func (c *channelParser) parseGain() {
	g, err := c.tok.ParseUint()
	if c.check(err) {
		return
	}
	if c.check(c.bc.SetGain(g)) {
		return
	}
	c.envOverridden = true
}

// --- simple state commands --------------------------------------------

func (c *channelParser) parseDefaultLength() {
	l, present, err := c.tok.ParseOptionalNoteLength()
	if c.check(err) {
		return
	}
	if !present {
		c.addError("missing length after 'l'")
		return
	}
	if ticks, ok := c.resolveLength(l); ok {
		c.defaultLength = ticks
	}
}

func (c *channelParser) parseZenlen() {
	v, err := c.tok.ParseUint()
	if c.check(err) {
		return
	}
	if v < driver.MinZenlen || v > driver.MaxZenlen {
		c.addError("zenlen out of range [%d, %d]: %d", driver.MinZenlen, driver.MaxZenlen, v)
		return
	}
	c.zenlen = v
}

func (c *channelParser) parseOctave() {
	v, err := c.tok.ParseUint()
	if c.check(err) {
		return
	}
	if v < driver.MinOctave || v > driver.MaxOctave {
		c.addError("octave out of range [%d, %d]: %d", driver.MinOctave, driver.MaxOctave, v)
		return
	}
	c.octave = v
}

func (c *channelParser) stepOctave(delta int) {
	o := c.octave + delta
	if o < driver.MinOctave || o > driver.MaxOctave {
		c.addError("octave out of range [%d, %d]: %d", driver.MinOctave, driver.MaxOctave, o)
		return
	}
	c.octave = o
}

// parseTranspose handles _ (absolute) and __ (relative). Transpose is
// compile-time state applied to note ids, not a driver instruction.
func (c *channelParser) parseTranspose(relative bool) {
	v, _, err := c.tok.ParseRelativeInt()
	if c.check(err) {
		return
	}
	if relative {
		c.transpose += v
	} else {
		c.transpose = v
	}
}

func (c *channelParser) parseVolume() {
	v, relative, err := c.tok.ParseRelativeInt()
	if c.check(err) {
		return
	}
	if relative {
		c.check(c.bc.AdjustVolume(v))
	} else {
		c.check(c.bc.SetVolume(v))
	}
}

func (c *channelParser) parsePan() {
	v, relative, err := c.tok.ParseRelativeInt()
	if c.check(err) {
		return
	}
	if relative {
		c.check(c.bc.AdjustPan(v))
	} else {
		c.check(c.bc.SetPan(v))
	}
}

// parseLoopPoint marks where the driver restarts the channel after its
// stream ends. The marker must sit at the top level: a restart into the
// middle of a loop body would desync the loop registers.
func (c *channelParser) parseLoopPoint() {
	if c.isSubroutine {
		c.addError("'L' cannot appear in a subroutine")
		return
	}
	if len(c.loopStack) > 0 {
		c.addError("'L' cannot appear inside a loop")
		return
	}
	if c.loopPoint >= 0 {
		c.addError("only one 'L' per channel")
		return
	}
	c.loopPoint = c.bc.Len()
}

func (c *channelParser) parseQuantize() {
	v, err := c.tok.ParseUint()
	if c.check(err) {
		return
	}
	if v < 1 || v > 8 {
		c.addError("quantization out of range [1, 8]: %d", v)
		return
	}
	c.quantize = v
}

func (c *channelParser) parseTempo() {
	bpm, err := c.tok.ParseUint()
	if c.check(err) {
		return
	}
	timer, err := driver.TickTimerForBpm(bpm)
	if c.check(err) {
		return
	}
	c.check(c.bc.SetSongTickClock(timer))
}

func (c *channelParser) parseTickClock() {
	timer, err := c.tok.ParseUint()
	if c.check(err) {
		return
	}
	c.check(c.bc.SetSongTickClock(timer))
}
