package samples

import (
	"fmt"
	"math"

	"github.com/audiodrv/spcmml/internal/driver"
)

// PitchTable holds the fixed-point DSP pitch register value for every
// absolute note id of every sample. Built once per compile, read-only after.
//
// The register value for note n of a sample recorded at freq Hz is
//
//	round(PitchUnity * freq * 2^((n - firstNote) / 12) / NativeRate)
//
// where firstNote is the C of the sample's first octave (the note the
// recorded pitch is anchored to). Values clamp to the 14-bit register.
type PitchTable struct {
	values [][]uint16 // [sampleID][noteID]
}

// BuildPitchTable derives the pitch table from a sample table.
func BuildPitchTable(t *Table) *PitchTable {
	pt := &PitchTable{values: make([][]uint16, len(t.Samples))}
	for id := range t.Samples {
		s := &t.Samples[id]
		row := make([]uint16, driver.MaxNote)
		base := float64(driver.PitchUnity) * s.Freq / float64(driver.NativeRate)
		for n := 0; n < driver.MaxNote; n++ {
			semis := float64(n - s.FirstNote())
			p := math.Round(base * math.Pow(2, semis/12))
			if p < 0 {
				p = 0
			}
			if p > driver.MaxPitch {
				p = driver.MaxPitch
			}
			row[n] = uint16(p)
		}
		pt.values[id] = row
	}
	return pt
}

// Pitch returns the register value for a sample id and absolute note id.
func (pt *PitchTable) Pitch(sampleID, note int) (uint16, error) {
	if sampleID < 0 || sampleID >= len(pt.values) {
		return 0, fmt.Errorf("unknown sample id %d", sampleID)
	}
	if note < 0 || note >= driver.MaxNote {
		return 0, fmt.Errorf("note id %d outside 0..%d", note, driver.MaxNote-1)
	}
	return pt.values[sampleID][note], nil
}

// Row exposes the full per-note row for one sample, for serialization.
func (pt *PitchTable) Row(sampleID int) []uint16 {
	return pt.values[sampleID]
}

// NumSamples reports the number of rows in the table.
func (pt *PitchTable) NumSamples() int { return len(pt.values) }
