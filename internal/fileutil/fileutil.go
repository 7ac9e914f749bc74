// Package fileutil loads MML source text, transparently decoding the
// Shift-JIS encoding that Japanese MML files commonly use.
package fileutil

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

var utf8bom = []byte{0xEF, 0xBB, 0xBF}

// ReadSource reads a source file as UTF-8 text. Files that are not valid
// UTF-8 are decoded as Shift-JIS; a UTF-8 BOM is stripped.
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	data = bytes.TrimPrefix(data, utf8bom)
	if utf8.Valid(data) {
		return string(data), nil
	}
	text, err := FromShiftJIS(data)
	if err != nil {
		return "", fmt.Errorf("%s: not UTF-8 and not Shift-JIS: %w", path, err)
	}
	return text, nil
}

// FromShiftJIS converts Shift-JIS bytes to a UTF-8 string.
func FromShiftJIS(data []byte) (string, error) {
	decoder := japanese.ShiftJIS.NewDecoder()
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), decoder))
	if err != nil {
		return "", err
	}
	return string(out), nil
}
