// Package songdata serializes compiled songs into the binary layouts loaded
// into audio RAM. All multi-byte fields are 2-byte little-endian, matching
// the driver's pointer tables.
package songdata

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/audiodrv/spcmml/internal/driver"
	"github.com/audiodrv/spcmml/internal/mml"
	"github.com/audiodrv/spcmml/internal/samples"
)

// offset value for an unused channel slot or absent loop point
const nullOffset = 0xFFFF

var ErrSongTooLarge = errors.New("song data exceeds 64 KiB")

// Song lays out one compiled song:
//
//	6 x { u16 channel offset, u16 loop point }   (0xFFFF = unused/none)
//	u8 tick timer
//	u8 subroutine count
//	n x u16 subroutine offset
//	channel bytecode blobs, then subroutine blobs
//
// Offsets are relative to the start of the image.
func Song(data *mml.Data) ([]byte, error) {
	if len(data.Subroutines) > 255 {
		return nil, fmt.Errorf("too many subroutines: %d", len(data.Subroutines))
	}

	headerSize := driver.NumChannels*4 + 2 + len(data.Subroutines)*2
	out := make([]byte, headerSize, headerSize+songBodySize(data))

	byChannel := make(map[string]*mml.ChannelData, len(data.Channels))
	for _, ch := range data.Channels {
		byChannel[ch.Name] = ch
	}

	pos := headerSize
	for i := 0; i < driver.NumChannels; i++ {
		name := string(rune('A' + i))
		ch, ok := byChannel[name]
		if !ok {
			putOffset(out[i*4:], nullOffset)
			putOffset(out[i*4+2:], nullOffset)
			continue
		}
		putOffset(out[i*4:], pos)
		if ch.LoopPoint >= 0 {
			putOffset(out[i*4+2:], pos+ch.LoopPoint)
		} else {
			putOffset(out[i*4+2:], nullOffset)
		}
		out = append(out, ch.Bytecode...)
		pos += len(ch.Bytecode)
	}

	out[driver.NumChannels*4] = byte(data.Metadata.TickTimer)
	out[driver.NumChannels*4+1] = byte(len(data.Subroutines))
	for i, sub := range data.Subroutines {
		putOffset(out[driver.NumChannels*4+2+i*2:], pos)
		out = append(out, sub.Bytecode...)
		pos += len(sub.Bytecode)
	}

	if pos > nullOffset {
		return nil, fmt.Errorf("%w: %d bytes", ErrSongTooLarge, pos)
	}
	return out, nil
}

func songBodySize(data *mml.Data) int {
	n := 0
	for _, ch := range data.Channels {
		n += len(ch.Bytecode)
	}
	for _, sub := range data.Subroutines {
		n += len(sub.Bytecode)
	}
	return n
}

// Common lays out the driver-wide data block shared by every song:
//
//	u8 sample count
//	u8 instrument count
//	samples x { u16 start addr, u16 loop addr }
//	instruments x { u8 sample id, u8 adsr1, u8 adsr2, u8 gain, u8 first note, u8 last note }
//	samples x MaxNote x u16 pitch register values
//
// adsr1 bit 7 selects ADSR mode; when clear the gain byte is active.
func Common(table *samples.Table, instruments []*mml.Instrument) ([]byte, error) {
	if len(table.Samples) > 255 {
		return nil, fmt.Errorf("too many samples: %d", len(table.Samples))
	}
	if len(instruments) > 255 {
		return nil, fmt.Errorf("too many instruments: %d", len(instruments))
	}
	pt := samples.BuildPitchTable(table)

	size := 2 + len(table.Samples)*4 + len(instruments)*6 +
		pt.NumSamples()*driver.MaxNote*2
	out := make([]byte, 0, size)
	out = append(out, byte(len(table.Samples)), byte(len(instruments)))

	for _, s := range table.Samples {
		out = binary.LittleEndian.AppendUint16(out, s.Addr)
		out = binary.LittleEndian.AppendUint16(out, s.LoopAddr)
	}
	for _, inst := range instruments {
		adsr1, adsr2, gain := envelopeBytes(inst)
		out = append(out, byte(inst.SampleID), adsr1, adsr2, gain,
			byte(inst.FirstNote), byte(inst.LastNote))
	}
	for id := 0; id < pt.NumSamples(); id++ {
		for _, p := range pt.Row(id) {
			out = binary.LittleEndian.AppendUint16(out, p)
		}
	}
	return out, nil
}

func envelopeBytes(inst *mml.Instrument) (adsr1, adsr2, gain byte) {
	if inst.Adsr != nil {
		a := inst.Adsr
		return byte(0x80 | a.Decay<<4 | a.Attack),
			byte(a.SustainLevel<<5 | a.SustainRate), 0
	}
	if inst.Gain != nil {
		return 0, 0, byte(*inst.Gain)
	}
	// neither override: full-level direct gain
	return 0, 0, 0x7F
}

func putOffset(b []byte, v int) {
	binary.LittleEndian.PutUint16(b, uint16(v))
}
