package mml

import (
	"errors"
	"regexp"
	"strconv"
)

// two-character tokens, matched greedily before single characters
var twoCharTokens = [...]string{"__", "{{", "}}"}

var (
	uintRegexp   = regexp.MustCompile(`^[0-9]+`)
	relIntRegexp = regexp.MustCompile(`^[+-]?[0-9]+`)
	identRegexp  = regexp.MustCompile(`^[A-Za-z0-9_]+`)
)

var pitchSemitones = map[byte]int{
	'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11,
}

var errMissingLoopEnd = errors.New("missing end loop ']'")

// Tokenizer is a stateful cursor over the Line records of one channel or
// subroutine. Every consuming operation also skips the run of whitespace
// that follows it, so the cursor always rests on a token start or at
// end-of-line.
type Tokenizer struct {
	lines []Line
	index int
	col   int // byte offset into lines[index].Text
	ended bool
}

func newTokenizer(lines []Line) *Tokenizer {
	t := &Tokenizer{lines: lines}
	if len(lines) == 0 {
		t.ended = true
	}
	return t
}

// AtEnd reports whether every line has been consumed.
func (t *Tokenizer) AtEnd() bool { return t.ended }

// LineDone reports whether the current line has no characters left.
func (t *Tokenizer) LineDone() bool {
	return t.ended || t.col >= len(t.lines[t.index].Text)
}

// SkipNewLine advances past the current line once it is exhausted, setting
// end-of-stream when no lines remain.
func (t *Tokenizer) SkipNewLine() {
	if t.ended || !t.LineDone() {
		return
	}
	t.index++
	t.col = 0
	if t.index >= len(t.lines) {
		t.ended = true
	}
}

// Pos returns the 1-based source position of the cursor. At end-of-stream it
// cites the end of the last line.
func (t *Tokenizer) Pos() FilePos {
	if len(t.lines) == 0 {
		return FilePos{1, 1}
	}
	if t.ended {
		last := t.lines[len(t.lines)-1]
		return FilePos{last.Number, last.Column + len(last.Text)}
	}
	ln := t.lines[t.index]
	return FilePos{ln.Number, ln.Column + t.col}
}

func (t *Tokenizer) rest() string {
	if t.LineDone() {
		return ""
	}
	return t.lines[t.index].Text[t.col:]
}

func (t *Tokenizer) advance(n int) {
	t.col += n
	t.skipSpaces()
}

func (t *Tokenizer) skipSpaces() {
	if t.ended {
		return
	}
	text := t.lines[t.index].Text
	for t.col < len(text) && (text[t.col] == ' ' || text[t.col] == '\t') {
		t.col++
	}
}

// ParseRegexp matches a pattern at the cursor, consuming the match and any
// trailing whitespace.
func (t *Tokenizer) ParseRegexp(re *regexp.Regexp) (string, bool) {
	m := re.FindString(t.rest())
	if m == "" {
		return "", false
	}
	t.advance(len(m))
	return m, true
}

// PeekToken returns the next token without consuming it: one of the fixed
// 2-character tokens when present, otherwise a single character. Empty at
// end-of-line.
func (t *Tokenizer) PeekToken() string {
	rest := t.rest()
	if rest == "" {
		return ""
	}
	for _, tok := range twoCharTokens {
		if len(rest) >= 2 && rest[:2] == tok {
			return tok
		}
	}
	return rest[:1]
}

// NextToken consumes and returns the next token.
func (t *Tokenizer) NextToken() string {
	tok := t.PeekToken()
	t.advance(len(tok))
	return tok
}

// ParseUint parses a required unsigned integer.
func (t *Tokenizer) ParseUint() (int, error) {
	v, ok, err := t.ParseOptionalUint()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.New("expected a number")
	}
	return v, nil
}

// ParseOptionalUint parses an unsigned integer if one is present.
func (t *Tokenizer) ParseOptionalUint() (int, bool, error) {
	m, ok := t.ParseRegexp(uintRegexp)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false, errors.New("number out of range: " + m)
	}
	return v, true, nil
}

// ParseRelativeInt parses an integer, distinguishing an explicit sign from
// an unsigned literal: transpose/volume/pan commands use the sign to select
// relative semantics.
func (t *Tokenizer) ParseRelativeInt() (value int, relative bool, err error) {
	m, ok := t.ParseRegexp(relIntRegexp)
	if !ok {
		return 0, false, errors.New("expected a number")
	}
	relative = m[0] == '+' || m[0] == '-'
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false, errors.New("number out of range: " + m)
	}
	return v, relative, nil
}

// ParseIdentifier parses an instrument or subroutine name.
func (t *Tokenizer) ParseIdentifier() (string, error) {
	m, ok := t.ParseRegexp(identRegexp)
	if !ok {
		return "", errors.New("expected a name")
	}
	return m, nil
}

// ParseOptionalPitch parses a note letter plus accidentals, without length.
func (t *Tokenizer) ParseOptionalPitch() (Pitch, bool) {
	rest := t.rest()
	if rest == "" {
		return Pitch{}, false
	}
	semi, ok := pitchSemitones[rest[0]]
	if !ok {
		return Pitch{}, false
	}
	i := 1
	for i < len(rest) && (rest[i] == '+' || rest[i] == '-') {
		if rest[i] == '+' {
			semi++
		} else {
			semi--
		}
		i++
	}
	t.advance(i)
	return Pitch{Semitone: semi}, true
}

// ParseOptionalNote parses a full note token: pitch, optional clock-flag,
// optional length and dots. The length stays unresolved.
func (t *Tokenizer) ParseOptionalNote() (Note, bool, error) {
	p, ok := t.ParseOptionalPitch()
	if !ok {
		return Note{}, false, nil
	}
	l, _, err := t.ParseOptionalNoteLength()
	if err != nil {
		return Note{}, true, err
	}
	return Note{Pitch: p, Length: l}, true, nil
}

// ParseOptionalNoteLength parses the length grammar alone ("%"? digits
// dots*), used after ties and for the l command.
func (t *Tokenizer) ParseOptionalNoteLength() (NoteLength, bool, error) {
	var l NoteLength
	rest := t.rest()
	i := 0
	if i < len(rest) && rest[i] == '%' {
		l.IsClockTick = true
		i++
	}
	start := i
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i > start {
		v, err := strconv.Atoi(rest[start:i])
		if err != nil {
			return NoteLength{}, false, errors.New("number out of range: " + rest[start:i])
		}
		if v == 0 {
			return NoteLength{}, false, errors.New("note length cannot be zero")
		}
		l.Value = v
	} else if l.IsClockTick {
		return NoteLength{}, false, errors.New("missing tick count after '%'")
	}
	for i < len(rest) && rest[i] == '.' {
		l.Dots++
		i++
	}
	if i == 0 {
		return NoteLength{}, false, nil
	}
	t.advance(i)
	return l, true, nil
}

// ReadLoopEndCount scans forward from an opening '[' (already consumed),
// tracking bracket depth, to the matching ']' and the count that follows it,
// without consuming anything. The loop-count operand must be known and
// validated before the loop body is parsed.
func (t *Tokenizer) ReadLoopEndCount() (int, error) {
	scan := *t
	depth := 1
	for {
		if scan.LineDone() {
			scan.SkipNewLine()
			if scan.AtEnd() {
				return 0, errMissingLoopEnd
			}
			continue
		}
		switch scan.NextToken() {
		case "[":
			depth++
		case "]":
			depth--
			if depth == 0 {
				n, ok, err := scan.ParseOptionalUint()
				if err != nil {
					return 0, err
				}
				if !ok {
					return 0, errors.New("missing loop count after ']'")
				}
				return n, nil
			}
		}
	}
}
