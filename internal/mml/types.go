package mml

// Pitch is a note letter plus accidentals, relative to the C of the current
// octave. Accidentals may push it outside 0..11.
type Pitch struct {
	Semitone int
}

// NoteLength is the unresolved length grammar of a note token. It is
// resolved against channel state (zenlen, default length) only when the
// note is consumed; the same token means different durations depending on
// the state at that point.
type NoteLength struct {
	IsClockTick bool // %n: Value is a literal tick count
	Value       int  // 0 when absent
	Dots        int
}

// Note is a full note token: pitch plus optional length.
type Note struct {
	Pitch  Pitch
	Length NoteLength
}

// Adsr is the envelope override: 4-bit attack, 3-bit decay, 3-bit sustain
// level, 5-bit sustain rate.
type Adsr struct {
	Attack       int
	Decay        int
	SustainLevel int
	SustainRate  int
}

// Instrument is one @name definition line, immutable once parsed.
type Instrument struct {
	Name      string
	SampleID  int
	FirstNote int
	LastNote  int
	Adsr      *Adsr // nil = sample default envelope
	Gain      *int  // nil = no GAIN override
}

// ChannelData is the result of compiling one channel or subroutine.
type ChannelData struct {
	Name           string
	Bytecode       []byte
	TickCounter    int
	MaxNestedLoops int

	// LoopPoint is the byte offset the driver jumps back to when the
	// channel's stream ends, -1 when the channel does not loop.
	LoopPoint int

	// LastInstrument propagates the final instrument (and whether a channel
	// level ADSR/GAIN override is still active) across subroutine call
	// boundaries so callers keep validating against the right instrument.
	LastInstrument *Instrument
	envOverridden  bool
}

// Metadata is the song-level header state.
type Metadata struct {
	TickTimer int
	Zenlen    int
	Fields    map[string]string // Title, Composer, ... verbatim
}

// Data is the aggregate compile result for one song.
type Data struct {
	Metadata    Metadata
	Instruments []*Instrument
	Subroutines []*ChannelData // declaration order; slice index = call index
	Channels    []*ChannelData // non-empty channels in A..F order
}
