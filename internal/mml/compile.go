package mml

import (
	"github.com/audiodrv/spcmml/internal/driver"
	"github.com/audiodrv/spcmml/internal/samples"
)

const defaultTempoBpm = 120

// free-text header fields stored verbatim in the metadata
var textHeaders = map[string]bool{
	"Title":     true,
	"Composer":  true,
	"Author":    true,
	"Copyright": true,
	"License":   true,
	"Game":      true,
}

// Compile compiles one MML source against a sample table. Subroutines are
// compiled and indexed before any channel so call targets are fully known;
// a subroutine may only reference subroutines declared before it.
//
// Diagnostics accumulate across the whole song and are returned together as
// an *ErrorList; when any error exists no partial output is returned.
func Compile(src string, table *samples.Table) (*Data, error) {
	split, err := splitMmlLines(src)
	if err != nil {
		return nil, err
	}

	errs := &ErrorList{}
	meta := parseHeaders(split.headers, errs)

	song := &songState{
		table:         table,
		pitch:         samples.BuildPitchTable(table),
		instrumentIDs: make(map[string]int),
		subIndex:      make(map[string]int),
	}
	for _, line := range split.instruments {
		inst := parseInstrumentLine(line, table, errs)
		if inst == nil {
			continue
		}
		if _, dup := song.instrumentIDs[inst.Name]; dup {
			errs.add(FilePos{line.Number, line.Column}, "", "duplicate instrument @%s", inst.Name)
			continue
		}
		song.instrumentIDs[inst.Name] = len(song.instruments)
		song.instruments = append(song.instruments, inst)
	}

	for _, g := range split.subroutines {
		p := newChannelParser("!"+g.name, g.lines, true, song, &meta, errs)
		p.parse()
		song.subIndex[g.name] = len(song.subroutines)
		song.subroutines = append(song.subroutines, p.channelData())
	}

	var channels []*ChannelData
	for ch := 0; ch < driver.NumChannels; ch++ {
		lines := split.channels[ch]
		if len(lines) == 0 {
			continue
		}
		p := newChannelParser(string(rune('A'+ch)), lines, false, song, &meta, errs)
		p.parse()
		channels = append(channels, p.channelData())
	}

	if errs.Len() > 0 {
		return nil, errs
	}
	return &Data{
		Metadata:    meta,
		Instruments: song.instruments,
		Subroutines: song.subroutines,
		Channels:    channels,
	}, nil
}

// parseHeaders folds the # directives into Metadata. Duplicate tempo/timer
// or zenlen directives and unknown header names are structural errors, but
// they are collected like any other diagnostic.
func parseHeaders(headers []headerLine, errs *ErrorList) Metadata {
	meta := Metadata{
		Zenlen: driver.DefaultZenlen,
		Fields: make(map[string]string),
	}
	meta.TickTimer, _ = driver.TickTimerForBpm(defaultTempoBpm)

	timerSet := false
	zenlenSet := false
	for _, h := range headers {
		switch {
		case textHeaders[h.name]:
			if _, dup := meta.Fields[h.name]; dup {
				errs.add(h.pos, "", "duplicate #%s header", h.name)
				continue
			}
			meta.Fields[h.name] = h.value
		case h.name == "Tempo":
			if timerSet {
				errs.add(h.pos, "", "duplicate #Tempo/#Timer header")
				continue
			}
			bpm, ok := parseHeaderUint(h, errs)
			if !ok {
				continue
			}
			timer, err := driver.TickTimerForBpm(bpm)
			if err != nil {
				errs.add(h.pos, "", "%v", err)
				continue
			}
			meta.TickTimer = timer
			timerSet = true
		case h.name == "Timer":
			if timerSet {
				errs.add(h.pos, "", "duplicate #Tempo/#Timer header")
				continue
			}
			v, ok := parseHeaderUint(h, errs)
			if !ok {
				continue
			}
			if v < driver.MinTickTimer || v > driver.MaxTickTimer {
				errs.add(h.pos, "", "timer out of range [%d, %d]: %d",
					driver.MinTickTimer, driver.MaxTickTimer, v)
				continue
			}
			meta.TickTimer = v
			timerSet = true
		case h.name == "Zenlen":
			if zenlenSet {
				errs.add(h.pos, "", "duplicate #Zenlen header")
				continue
			}
			v, ok := parseHeaderUint(h, errs)
			if !ok {
				continue
			}
			if v < driver.MinZenlen || v > driver.MaxZenlen {
				errs.add(h.pos, "", "zenlen out of range [%d, %d]: %d",
					driver.MinZenlen, driver.MaxZenlen, v)
				continue
			}
			meta.Zenlen = v
			zenlenSet = true
		default:
			errs.add(h.pos, "", "unknown header #%s", h.name)
		}
	}
	return meta
}

func parseHeaderUint(h headerLine, errs *ErrorList) (int, bool) {
	tok := newTokenizer([]Line{{Number: h.pos.Line, Column: h.pos.Column, Text: h.value}})
	v, err := tok.ParseUint()
	if err != nil || !tok.AtEnd() && !tok.LineDone() {
		errs.add(h.pos, "", "#%s needs a number, got %q", h.name, h.value)
		return 0, false
	}
	return v, true
}
