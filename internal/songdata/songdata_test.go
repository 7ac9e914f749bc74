package songdata

import (
	"encoding/binary"
	"testing"

	"github.com/audiodrv/spcmml/internal/driver"
	"github.com/audiodrv/spcmml/internal/mml"
	"github.com/audiodrv/spcmml/internal/samples"
)

func TestSongLayout(t *testing.T) {
	data := &mml.Data{
		Metadata: mml.Metadata{TickTimer: 83},
		Channels: []*mml.ChannelData{
			{Name: "A", Bytecode: []byte{0x61, 24, 0xFF}, LoopPoint: -1},
			{Name: "C", Bytecode: []byte{0x65, 12, 0x65, 12, 0xFF}, LoopPoint: 2},
		},
		Subroutines: []*mml.ChannelData{
			{Name: "!x", Bytecode: []byte{0x61, 6, 0xFE}, LoopPoint: -1},
		},
	}
	out, err := Song(data)
	if err != nil {
		t.Fatalf("Song failed: %v", err)
	}

	// 6 channel entries, timer, subroutine count, 1 subroutine offset
	headerSize := driver.NumChannels*4 + 2 + 2
	if len(out) != headerSize+3+5+3 {
		t.Fatalf("image size = %d, want %d", len(out), headerSize+11)
	}

	offset := func(at int) uint16 { return binary.LittleEndian.Uint16(out[at:]) }

	if offset(0) != uint16(headerSize) {
		t.Fatalf("channel A offset = %d, want %d", offset(0), headerSize)
	}
	if offset(2) != 0xFFFF {
		t.Fatalf("channel A loop point = %#x, want ffff", offset(2))
	}
	if offset(4) != 0xFFFF {
		t.Fatalf("channel B must be unused, got %#x", offset(4))
	}
	if offset(8) != uint16(headerSize+3) {
		t.Fatalf("channel C offset = %d, want %d", offset(8), headerSize+3)
	}
	// channel C loops back to 2 bytes into its own bytecode
	if offset(10) != uint16(headerSize+3+2) {
		t.Fatalf("channel C loop point = %d, want %d", offset(10), headerSize+5)
	}
	for ch := 3; ch < driver.NumChannels; ch++ {
		if offset(ch*4) != 0xFFFF {
			t.Fatalf("channel %c must be unused, got %#x", 'A'+ch, offset(ch*4))
		}
	}

	if out[24] != 83 {
		t.Fatalf("tick timer byte = %d, want 83", out[24])
	}
	if out[25] != 1 {
		t.Fatalf("subroutine count = %d, want 1", out[25])
	}
	if offset(26) != uint16(headerSize+8) {
		t.Fatalf("subroutine offset = %d, want %d", offset(26), headerSize+8)
	}

	if out[headerSize] != 0x61 || out[headerSize+2] != 0xFF {
		t.Fatalf("channel A bytecode not at its offset: %02x", out[headerSize:headerSize+3])
	}
	if out[len(out)-1] != 0xFE {
		t.Fatalf("subroutine bytecode must end the image, got %02x", out[len(out)-1])
	}
}

func commonTestTable(t *testing.T) *samples.Table {
	t.Helper()
	table, err := samples.NewTable([]samples.Sample{
		{Name: "piano", Freq: 2000, FirstOctave: 1, LastOctave: 6, Addr: 512, LoopAddr: 600},
	})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	return table
}

func TestCommonLayout(t *testing.T) {
	gain := 77
	instruments := []*mml.Instrument{
		{Name: "lead", SampleID: 0, FirstNote: 12, LastNote: 83,
			Adsr: &mml.Adsr{Attack: 10, Decay: 2, SustainLevel: 2, SustainRate: 16}},
		{Name: "soft", SampleID: 0, FirstNote: 12, LastNote: 83, Gain: &gain},
		{Name: "raw", SampleID: 0, FirstNote: 12, LastNote: 83},
	}
	out, err := Common(commonTestTable(t), instruments)
	if err != nil {
		t.Fatalf("Common failed: %v", err)
	}

	wantSize := 2 + 1*4 + 3*6 + 1*driver.MaxNote*2
	if len(out) != wantSize {
		t.Fatalf("image size = %d, want %d", len(out), wantSize)
	}
	if out[0] != 1 || out[1] != 3 {
		t.Fatalf("counts = %d samples, %d instruments, want 1, 3", out[0], out[1])
	}
	if binary.LittleEndian.Uint16(out[2:]) != 512 || binary.LittleEndian.Uint16(out[4:]) != 600 {
		t.Fatalf("sample addresses = %d, %d, want 512, 600",
			binary.LittleEndian.Uint16(out[2:]), binary.LittleEndian.Uint16(out[4:]))
	}

	// instrument records start after the sample directory
	inst := out[6:]
	lead := inst[0:6]
	if lead[0] != 0 || lead[1] != 0xAA || lead[2] != 0x50 || lead[3] != 0 {
		t.Fatalf("lead record = %02x, want sample 0 with adsr aa/50", lead)
	}
	if lead[4] != 12 || lead[5] != 83 {
		t.Fatalf("lead note range = %d..%d, want 12..83", lead[4], lead[5])
	}
	soft := inst[6:12]
	if soft[1] != 0 || soft[3] != 77 {
		t.Fatalf("soft record = %02x, want gain 77 with adsr disabled", soft)
	}
	raw := inst[12:18]
	if raw[1] != 0 || raw[3] != 0x7F {
		t.Fatalf("raw record = %02x, want the full-level gain default", raw)
	}

	// pitch rows follow; note 12 of the sample plays at 0x1000*2000/32000
	pitches := out[2+4+18:]
	if got := binary.LittleEndian.Uint16(pitches[12*2:]); got != 256 {
		t.Fatalf("pitch for note 12 = %d, want 256", got)
	}
	if got := binary.LittleEndian.Uint16(pitches[24*2:]); got != 512 {
		t.Fatalf("pitch for note 24 = %d, want 512", got)
	}
}
