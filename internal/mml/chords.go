package mml

// parseBracePitch reads the next pitch inside a { } or {{ }} group,
// honoring octave commands between notes.
func (c *channelParser) parseBracePitch() (int, bool) {
	for {
		if p, ok := c.tok.ParseOptionalPitch(); ok {
			return c.noteID(p), true
		}
		switch c.tok.PeekToken() {
		case "<":
			c.tok.NextToken()
			c.stepOctave(-1)
		case ">":
			c.tok.NextToken()
			c.stepOctave(+1)
		case "o":
			c.tok.NextToken()
			c.parseOctave()
		default:
			return 0, false
		}
	}
}

// parsePortamento compiles "{a b} length[,delay[,speed]]": an optional
// attack of the first note followed by a single pitch-slide instruction.
func (c *channelParser) parsePortamento() {
	n1, ok := c.parseBracePitch()
	if !ok {
		c.addError("expected two notes in portamento")
		return
	}
	n2, ok := c.parseBracePitch()
	if !ok {
		c.addError("expected two notes in portamento")
		return
	}
	if tok := c.tok.NextToken(); tok != "}" {
		c.addError("expected '}' after portamento notes, got %q", tok)
		return
	}

	total, ok := c.parseOptionalLength()
	if !ok {
		return
	}
	delayTicks, explicitDelay := 0, false
	speed, hasSpeed := 0, false
	if c.tok.PeekToken() == "," {
		c.tok.NextToken()
		l, present, err := c.tok.ParseOptionalNoteLength()
		if c.check(err) {
			return
		}
		if present {
			if delayTicks, ok = c.resolveLength(l); !ok {
				return
			}
			explicitDelay = true
		}
		if c.tok.PeekToken() == "," {
			c.tok.NextToken()
			v, err := c.tok.ParseUint()
			if c.check(err) {
				return
			}
			speed, hasSpeed = v, true
		}
	}
	total, slur := c.parseTiesAndSlur(total)

	if !c.validNote(n1) || !c.validNote(n2) {
		return
	}
	if n1 == n2 {
		c.addError("portamento notes must differ")
		return
	}

	// The attack of the first note is skipped when the previous note slurred
	// into exactly that pitch and no delay was given; the slide then owns the
	// whole duration.
	slide := total
	if c.slurredNote != n1 || explicitDelay {
		attack := 1
		if explicitDelay {
			if delayTicks < 1 {
				c.addError("portamento delay must be at least 1 tick")
				return
			}
			attack = delayTicks
		}
		slide = total - attack
		if slide < 1 {
			c.addError("portamento length too short for its delay")
			return
		}
		if c.check(c.emitPlayNote(n1, false, attack)) {
			return
		}
	}

	velocity := 0
	if hasSpeed {
		velocity = speed
		if n2 < n1 {
			velocity = -velocity
		}
	} else {
		p1, err := c.song.pitch.Pitch(c.instrument.SampleID, n1)
		if c.check(err) {
			return
		}
		p2, err := c.song.pitch.Pitch(c.instrument.SampleID, n2)
		if c.check(err) {
			return
		}
		// per-tick slope, truncated toward zero; a slide too slow for one
		// register step per tick clamps to the slowest the driver can play
		velocity = (int(p2) - int(p1)) / slide
		if velocity == 0 {
			velocity = 1
			if p2 < p1 {
				velocity = -1
			}
		}
	}

	if c.check(c.emitPortamento(n2, !slur, velocity, slide)) {
		return
	}
	c.tick += total
	c.slurredNote = -1
	if slur {
		c.slurredNote = n2
	}
}

// emitPortamento splits slides past the per-instruction tick limit the same
// way emitPlayNote does: the slide instruction caps at 255 ticks and the
// remainder holds the target pitch.
func (c *channelParser) emitPortamento(note int, keyOff bool, velocity, ticks int) error {
	if ticks <= 255 {
		return c.bc.Portamento(note, keyOff, velocity, ticks)
	}
	if err := c.bc.Portamento(note, false, velocity, 255); err != nil {
		return err
	}
	return c.emitRestOrWait(keyOff, ticks-255)
}

// parseBrokenChord compiles "{{notes}} length[,subdivision[,tie]]": the
// chord notes cycle through equal subdivisions of the total length inside a
// loop, with a skip-last-loop break when the note count does not divide the
// slot count, and a final keyed-off note absorbing the remainder so the
// total tick count is exact.
func (c *channelParser) parseBrokenChord() {
	var notes []int
	for {
		if c.tok.PeekToken() == "}}" {
			c.tok.NextToken()
			break
		}
		n, ok := c.parseBracePitch()
		if !ok {
			c.addError("expected a note or '}}' in broken chord")
			return
		}
		if !c.validNote(n) {
			return
		}
		notes = append(notes, n)
	}
	if len(notes) < 2 {
		c.addError("broken chord needs at least 2 notes")
		return
	}

	total, ok := c.parseOptionalLength()
	if !ok {
		return
	}
	noteLen, tie := 1, true
	if c.tok.PeekToken() == "," {
		c.tok.NextToken()
		l, present, err := c.tok.ParseOptionalNoteLength()
		if c.check(err) {
			return
		}
		if present {
			if noteLen, ok = c.resolveLength(l); !ok {
				return
			}
		}
		if c.tok.PeekToken() == "," {
			c.tok.NextToken()
			v, err := c.tok.ParseUint()
			if c.check(err) {
				return
			}
			tie = v != 0
		}
	}

	slots := total / noteLen
	if slots < 1 {
		c.addError("broken chord length is shorter than one subdivision")
		return
	}
	expected := c.tick + total

	// the last slot is emitted outside the loop, keyed off, stretched by the
	// division remainder
	inLoop := slots - 1
	finalNote := notes[inLoop%len(notes)]
	finalTicks := noteLen + (total - slots*noteLen)

	slot := func(note, ticks int) bool {
		if c.check(c.emitPlayNote(note, !tie, ticks)) {
			return false
		}
		c.tick += ticks
		return true
	}

	n := len(notes)
	loopCount := inLoop / n
	breakAt := inLoop % n
	switch {
	case breakAt == 0 && loopCount >= 2:
		if !c.startLoop(loopCount) {
			return
		}
		for _, note := range notes {
			if !slot(note, noteLen) {
				return
			}
		}
		if !c.endLoop() {
			return
		}
	case breakAt > 0 && loopCount >= 1:
		if !c.startLoop(loopCount + 1) {
			return
		}
		for i, note := range notes {
			if i == breakAt && !c.skipLastLoop() {
				return
			}
			if !slot(note, noteLen) {
				return
			}
		}
		if !c.endLoop() {
			return
		}
	default:
		for i := 0; i < inLoop; i++ {
			if !slot(notes[i%n], noteLen) {
				return
			}
		}
	}

	if c.check(c.emitPlayNote(finalNote, true, finalTicks)) {
		return
	}
	c.tick += finalTicks
	c.slurredNote = -1

	if c.tick != expected {
		c.addError("broken chord tick counter mismatch (%d != %d): this is a compiler bug",
			c.tick, expected)
	}
}
