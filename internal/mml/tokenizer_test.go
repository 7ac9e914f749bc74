package mml

import "testing"

func tokFor(text string) *Tokenizer {
	return newTokenizer([]Line{{Number: 1, Column: 1, Text: text}})
}

func TestTokensMatchTwoCharsFirst(t *testing.T) {
	tok := tokFor("__ {{ }} { _")
	for _, want := range []string{"__", "{{", "}}", "{", "_"} {
		if got := tok.NextToken(); got != want {
			t.Fatalf("NextToken = %q, want %q", got, want)
		}
	}
	if !tok.LineDone() {
		t.Fatalf("expected line exhausted")
	}
}

func TestParseRelativeInt(t *testing.T) {
	cases := []struct {
		text     string
		value    int
		relative bool
	}{
		{"16", 16, false},
		{"+5", 5, true},
		{"-3", -3, true},
		{"0", 0, false},
	}
	for _, c := range cases {
		v, rel, err := tokFor(c.text).ParseRelativeInt()
		if err != nil {
			t.Fatalf("ParseRelativeInt(%q) failed: %v", c.text, err)
		}
		if v != c.value || rel != c.relative {
			t.Fatalf("ParseRelativeInt(%q) = %d, %v, want %d, %v",
				c.text, v, rel, c.value, c.relative)
		}
	}
	if _, _, err := tokFor("x").ParseRelativeInt(); err == nil {
		t.Fatalf("ParseRelativeInt(x) should have failed")
	}
}

func TestParseOptionalNote(t *testing.T) {
	n, ok, err := tokFor("c+4..").ParseOptionalNote()
	if err != nil || !ok {
		t.Fatalf("ParseOptionalNote failed: %v, %v", ok, err)
	}
	if n.Pitch.Semitone != 1 {
		t.Fatalf("semitone = %d, want 1", n.Pitch.Semitone)
	}
	if n.Length.IsClockTick || n.Length.Value != 4 || n.Length.Dots != 2 {
		t.Fatalf("length = %+v, want value 4 with 2 dots", n.Length)
	}

	n, ok, err = tokFor("b-%12").ParseOptionalNote()
	if err != nil || !ok {
		t.Fatalf("ParseOptionalNote failed: %v, %v", ok, err)
	}
	if n.Pitch.Semitone != 10 {
		t.Fatalf("semitone = %d, want 10", n.Pitch.Semitone)
	}
	if !n.Length.IsClockTick || n.Length.Value != 12 {
		t.Fatalf("length = %+v, want 12 clock ticks", n.Length)
	}

	if _, ok, _ := tokFor("h4").ParseOptionalNote(); ok {
		t.Fatalf("'h' is not a pitch letter")
	}
	if _, _, err := tokFor("c%").ParseOptionalNote(); err == nil {
		t.Fatalf("'%%' without a tick count should have failed")
	}
	if _, _, err := tokFor("c0").ParseOptionalNote(); err == nil {
		t.Fatalf("explicit zero length should have failed")
	}
}

func TestParseOptionalNoteLengthBareDots(t *testing.T) {
	l, present, err := tokFor("..").ParseOptionalNoteLength()
	if err != nil || !present {
		t.Fatalf("bare dots should parse: %v, %v", present, err)
	}
	if l.Value != 0 || l.Dots != 2 {
		t.Fatalf("length = %+v, want default value with 2 dots", l)
	}
	if _, present, _ := tokFor("x").ParseOptionalNoteLength(); present {
		t.Fatalf("non-length text should report absent")
	}
}

func TestPosTracksOriginalColumns(t *testing.T) {
	tok := newTokenizer([]Line{
		{Number: 3, Column: 5, Text: "c4 d"},
		{Number: 7, Column: 2, Text: "e"},
	})
	if p := tok.Pos(); p != (FilePos{3, 5}) {
		t.Fatalf("start pos = %v, want 3:5", p)
	}
	if _, ok, _ := tok.ParseOptionalNote(); !ok {
		t.Fatalf("expected a note")
	}
	if p := tok.Pos(); p != (FilePos{3, 8}) {
		t.Fatalf("pos after c4 = %v, want 3:8", p)
	}
	tok.NextToken() // d
	if !tok.LineDone() {
		t.Fatalf("expected line exhausted")
	}
	tok.SkipNewLine()
	if p := tok.Pos(); p != (FilePos{7, 2}) {
		t.Fatalf("pos on second line = %v, want 7:2", p)
	}
	tok.NextToken() // e
	tok.SkipNewLine()
	if !tok.AtEnd() {
		t.Fatalf("expected end of stream")
	}
	if p := tok.Pos(); p != (FilePos{7, 3}) {
		t.Fatalf("end pos = %v, want 7:3", p)
	}
}

func TestReadLoopEndCount(t *testing.T) {
	tok := tokFor("[ c d ]3 e")
	tok.NextToken() // consume '['
	before := tok.Pos()
	n, err := tok.ReadLoopEndCount()
	if err != nil {
		t.Fatalf("ReadLoopEndCount failed: %v", err)
	}
	if n != 3 {
		t.Fatalf("loop count = %d, want 3", n)
	}
	if tok.Pos() != before {
		t.Fatalf("lookahead must not consume: pos moved %v -> %v", before, tok.Pos())
	}
}

func TestReadLoopEndCountNested(t *testing.T) {
	tok := tokFor("[c [d]2 e]4")
	tok.NextToken()
	n, err := tok.ReadLoopEndCount()
	if err != nil {
		t.Fatalf("ReadLoopEndCount failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("loop count = %d, want 4 (outer loop)", n)
	}
}

func TestReadLoopEndCountSpansLines(t *testing.T) {
	tok := newTokenizer([]Line{
		{Number: 1, Column: 3, Text: "[c d"},
		{Number: 2, Column: 3, Text: "e]5"},
	})
	tok.NextToken()
	n, err := tok.ReadLoopEndCount()
	if err != nil {
		t.Fatalf("ReadLoopEndCount failed: %v", err)
	}
	if n != 5 {
		t.Fatalf("loop count = %d, want 5", n)
	}
}

func TestReadLoopEndCountErrors(t *testing.T) {
	tok := tokFor("[c d")
	tok.NextToken()
	if _, err := tok.ReadLoopEndCount(); err == nil {
		t.Fatalf("missing ']' should have failed")
	}

	tok = tokFor("[c]")
	tok.NextToken()
	if _, err := tok.ReadLoopEndCount(); err == nil {
		t.Fatalf("missing count after ']' should have failed")
	}
}
