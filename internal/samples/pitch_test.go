package samples

import (
	"testing"

	"github.com/audiodrv/spcmml/internal/driver"
)

func pitchTestTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable([]Sample{
		{Name: "piano", Freq: 2000, FirstOctave: 1, LastOctave: 6},
	})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	return table
}

func TestPitchAtFirstNote(t *testing.T) {
	pt := BuildPitchTable(pitchTestTable(t))
	// first note of the sample plays it at its recorded rate, scaled to the
	// DSP: 0x1000 * 2000 / 32000 = 256
	p, err := pt.Pitch(0, 12)
	if err != nil {
		t.Fatalf("Pitch failed: %v", err)
	}
	if p != 256 {
		t.Fatalf("pitch at first note = %d, want 256", p)
	}
}

func TestPitchOctaveDoubling(t *testing.T) {
	pt := BuildPitchTable(pitchTestTable(t))
	prev, err := pt.Pitch(0, 12)
	if err != nil {
		t.Fatalf("Pitch failed: %v", err)
	}
	for note := 24; note <= 60; note += 12 {
		p, err := pt.Pitch(0, note)
		if err != nil {
			t.Fatalf("Pitch(%d) failed: %v", note, err)
		}
		if p != prev*2 {
			t.Fatalf("pitch at note %d = %d, want %d", note, p, prev*2)
		}
		prev = p
	}
}

func TestPitchClampsToRegister(t *testing.T) {
	pt := BuildPitchTable(pitchTestTable(t))
	p, err := pt.Pitch(0, driver.MaxNote-1)
	if err != nil {
		t.Fatalf("Pitch failed: %v", err)
	}
	if p != driver.MaxPitch {
		t.Fatalf("top note pitch = %#x, want clamp to %#x", p, driver.MaxPitch)
	}
}

func TestPitchBounds(t *testing.T) {
	pt := BuildPitchTable(pitchTestTable(t))
	if _, err := pt.Pitch(1, 12); err == nil {
		t.Fatalf("unknown sample id should have failed")
	}
	if _, err := pt.Pitch(0, driver.MaxNote); err == nil {
		t.Fatalf("note id past the table should have failed")
	}
	if _, err := pt.Pitch(0, -1); err == nil {
		t.Fatalf("negative note id should have failed")
	}
	if len(pt.Row(0)) != driver.MaxNote {
		t.Fatalf("row length = %d, want %d", len(pt.Row(0)), driver.MaxNote)
	}
	if pt.NumSamples() != 1 {
		t.Fatalf("NumSamples = %d, want 1", pt.NumSamples())
	}
}
