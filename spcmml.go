// Package spcmml compiles MML source text into the bytecode and binary data
// layouts consumed by the SPC-side audio driver.
package spcmml

import (
	intmml "github.com/audiodrv/spcmml/internal/mml"
	intsamples "github.com/audiodrv/spcmml/internal/samples"
	intsong "github.com/audiodrv/spcmml/internal/songdata"
)

// Aliases for the result types, which live in internal packages; importers
// name them through here.
type (
	Sample      = intsamples.Sample
	SampleTable = intsamples.Table

	Song        = intmml.Data
	ChannelData = intmml.ChannelData
	Instrument  = intmml.Instrument

	CompileError  = intmml.Error
	CompileErrors = intmml.ErrorList
)

// LoadSampleTable parses the sample-table JSON exported by the BRR tooling.
func LoadSampleTable(data []byte) (*SampleTable, error) {
	return intsamples.LoadTable(data)
}

// CompileSong compiles one MML source. On failure the error is either a
// structural error or a *CompileErrors aggregating every diagnostic found;
// no partial result is ever returned.
func CompileSong(source string, table *SampleTable) (*Song, error) {
	return intmml.Compile(source, table)
}

// SongBinary serializes a compiled song into the driver's song layout.
func SongBinary(song *Song) ([]byte, error) {
	return intsong.Song(song)
}

// CommonBinary serializes the driver-wide common audio data block for a
// sample table and the instruments of a compiled song.
func CommonBinary(table *SampleTable, song *Song) ([]byte, error) {
	return intsong.Common(table, song.Instruments)
}
