// Package samples models the sample table shared between the BRR tooling and
// the MML compiler, and builds the per-instrument pitch table from it.
package samples

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/audiodrv/spcmml/internal/driver"
)

var (
	ErrNoSamples       = errors.New("sample table contains no samples")
	ErrDuplicateSample = errors.New("duplicate sample name")
)

// Sample describes one BRR sample as the audio tooling exports it. Addr and
// LoopAddr are audio-RAM locations assigned by the (external) sample packer;
// they are zero until the packer has run and the compiler does not interpret
// them.
type Sample struct {
	Name        string  `json:"name"`
	Source      string  `json:"source"`
	Freq        float64 `json:"freq"`
	FirstOctave int     `json:"first_octave"`
	LastOctave  int     `json:"last_octave"`
	Addr        uint16  `json:"aram_addr"`
	LoopAddr    uint16  `json:"loop_addr"`
}

// FirstNote returns the lowest playable absolute note id for the sample.
func (s *Sample) FirstNote() int { return s.FirstOctave * 12 }

// LastNote returns the highest playable absolute note id for the sample.
func (s *Sample) LastNote() int { return (s.LastOctave+1)*12 - 1 }

// Table is the ordered sample table. Sample ids are insertion positions.
type Table struct {
	Samples []Sample

	byName map[string]int
}

// NewTable validates the sample list and builds the name index.
func NewTable(list []Sample) (*Table, error) {
	if len(list) == 0 {
		return nil, ErrNoSamples
	}
	t := &Table{
		Samples: list,
		byName:  make(map[string]int, len(list)),
	}
	for i, s := range list {
		if s.Name == "" {
			return nil, fmt.Errorf("sample %d has no name", i)
		}
		if _, ok := t.byName[s.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSample, s.Name)
		}
		if s.Freq <= 0 {
			return nil, fmt.Errorf("sample %s: freq must be positive", s.Name)
		}
		if s.FirstOctave < driver.MinOctave || s.LastOctave > driver.MaxOctave || s.FirstOctave > s.LastOctave {
			return nil, fmt.Errorf("sample %s: invalid octave range %d..%d",
				s.Name, s.FirstOctave, s.LastOctave)
		}
		t.byName[s.Name] = i
	}
	return t, nil
}

// LoadTable parses the sample-table JSON produced by the sample tooling.
func LoadTable(data []byte) (*Table, error) {
	var doc struct {
		Samples []Sample `json:"samples"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("cannot parse sample table: %w", err)
	}
	return NewTable(doc.Samples)
}

// Lookup returns the sample id and record for a name.
func (t *Table) Lookup(name string) (int, *Sample, bool) {
	id, ok := t.byName[name]
	if !ok {
		return 0, nil, false
	}
	return id, &t.Samples[id], true
}
