package mml

import (
	"strings"
	"testing"
)

func TestSplitClassifiesLines(t *testing.T) {
	src := strings.Join([]string{
		"#Title Demo Song",
		"@piano piano ; instrument",
		"!intro c4 d4",
		"A c4",
		"!intro e4",
		"B d4",
	}, "\n")
	split, err := splitMmlLines(src)
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if len(split.headers) != 1 || split.headers[0].name != "Title" || split.headers[0].value != "Demo Song" {
		t.Fatalf("headers = %+v", split.headers)
	}
	if len(split.instruments) != 1 || split.instruments[0].Text != "@piano piano" {
		t.Fatalf("instruments = %+v", split.instruments)
	}
	if len(split.subroutines) != 1 {
		t.Fatalf("expected one subroutine group, got %d", len(split.subroutines))
	}
	sub := split.subroutines[0]
	if sub.name != "intro" || len(sub.lines) != 2 {
		t.Fatalf("subroutine = %+v", sub)
	}
	if sub.lines[0].Text != "c4 d4" || sub.lines[1].Text != "e4" {
		t.Fatalf("subroutine lines = %+v", sub.lines)
	}
	if len(split.channels[0]) != 1 || split.channels[0][0].Text != "c4" {
		t.Fatalf("channel A = %+v", split.channels[0])
	}
	if len(split.channels[1]) != 1 || split.channels[1][0].Text != "d4" {
		t.Fatalf("channel B = %+v", split.channels[1])
	}
	if len(split.channels[2]) != 0 {
		t.Fatalf("channel C should be empty")
	}
}

func TestSplitMultiChannelTargets(t *testing.T) {
	split, err := splitMmlLines("ACE c4 d4")
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	for _, ch := range []int{0, 2, 4} {
		lines := split.channels[ch]
		if len(lines) != 1 || lines[0].Text != "c4 d4" {
			t.Fatalf("channel %c = %+v", 'A'+ch, lines)
		}
		if lines[0].Column != 5 {
			t.Fatalf("channel %c column = %d, want 5", 'A'+ch, lines[0].Column)
		}
	}
	for _, ch := range []int{1, 3, 5} {
		if len(split.channels[ch]) != 0 {
			t.Fatalf("channel %c should be empty", 'A'+ch)
		}
	}
}

func TestSplitColumnsSurviveIndent(t *testing.T) {
	split, err := splitMmlLines("\n  A  c4")
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	lines := split.channels[0]
	if len(lines) != 1 {
		t.Fatalf("channel A = %+v", lines)
	}
	if lines[0].Number != 2 || lines[0].Column != 6 || lines[0].Text != "c4" {
		t.Fatalf("line = %+v, want 2:6 %q", lines[0], "c4")
	}
}

func TestSplitCommentsAndBlankLines(t *testing.T) {
	split, err := splitMmlLines("; full-line comment\n\nA c4 ; trailing\n")
	if err != nil {
		t.Fatalf("split failed: %v", err)
	}
	if len(split.channels[0]) != 1 || split.channels[0][0].Text != "c4" {
		t.Fatalf("channel A = %+v", split.channels[0])
	}
}

func TestSplitRejectsUnclassifiableLines(t *testing.T) {
	if _, err := splitMmlLines("xyz c4"); err == nil {
		t.Fatalf("lowercase line start should have failed")
	}
	// a letter run past F is not a channel list
	if _, err := splitMmlLines("ADSRfoo c4"); err == nil {
		t.Fatalf("non-channel letter run should have failed")
	}
	if _, err := splitMmlLines("! c4"); err == nil {
		t.Fatalf("missing subroutine name should have failed")
	}
}
