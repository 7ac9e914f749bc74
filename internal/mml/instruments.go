package mml

import (
	"github.com/audiodrv/spcmml/internal/driver"
	"github.com/audiodrv/spcmml/internal/samples"
)

// parseInstrumentLine parses one "@name sample [adsr a,d,sl,sr | gain g]"
// definition, validating the sample name against the sample table.
func parseInstrumentLine(line Line, table *samples.Table, errs *ErrorList) *Instrument {
	tok := newTokenizer([]Line{line})
	fail := func(format string, args ...interface{}) *Instrument {
		errs.add(tok.Pos(), "", format, args...)
		return nil
	}

	if tok.NextToken() != "@" {
		return fail("instrument definition must start with '@'")
	}
	name, err := tok.ParseIdentifier()
	if err != nil {
		return fail("missing instrument name after '@'")
	}
	sampleName, err := tok.ParseIdentifier()
	if err != nil {
		return fail("missing sample name for instrument @%s", name)
	}
	id, sample, ok := table.Lookup(sampleName)
	if !ok {
		return fail("unknown sample: %s", sampleName)
	}

	inst := &Instrument{
		Name:      name,
		SampleID:  id,
		FirstNote: sample.FirstNote(),
		LastNote:  sample.LastNote(),
	}

	for !tok.LineDone() {
		setting, err := tok.ParseIdentifier()
		if err != nil {
			return fail("unexpected %q in instrument @%s", tok.PeekToken(), name)
		}
		switch setting {
		case "adsr":
			var fields [4]int
			for i := range fields {
				if i > 0 && tok.PeekToken() == "," {
					tok.NextToken()
				}
				v, err := tok.ParseUint()
				if err != nil {
					return fail("instrument @%s: adsr needs 4 values", name)
				}
				fields[i] = v
			}
			a := &Adsr{
				Attack:       fields[0],
				Decay:        fields[1],
				SustainLevel: fields[2],
				SustainRate:  fields[3],
			}
			if err := validateAdsr(a); err != nil {
				return fail("instrument @%s: %v", name, err)
			}
			inst.Adsr = a
		case "gain":
			g, err := tok.ParseUint()
			if err != nil || g > 255 {
				return fail("instrument @%s: gain must be 0..255", name)
			}
			inst.Gain = &g
		default:
			return fail("instrument @%s: unknown setting %q", name, setting)
		}
	}
	return inst
}

func validateAdsr(a *Adsr) error {
	// ranges match the DSP register bit widths; the emitter re-checks when
	// channel-level overrides are emitted
	if a.Attack < 0 || a.Attack > driver.MaxAttack ||
		a.Decay < 0 || a.Decay > driver.MaxDecay ||
		a.SustainLevel < 0 || a.SustainLevel > driver.MaxSustainLevel ||
		a.SustainRate < 0 || a.SustainRate > driver.MaxSustainRate {
		return errAdsrRange
	}
	return nil
}
