package mml

import (
	"fmt"
	"strings"

	"github.com/audiodrv/spcmml/internal/driver"
)

// Line is one logical source line assigned to a channel or subroutine.
// Column is the 1-based column of the first byte of Text in the original
// file, so diagnostics can cite exact coordinates after splitting.
type Line struct {
	Number int
	Column int
	Text   string
}

type headerLine struct {
	name  string
	value string
	pos   FilePos
}

type subroutineLines struct {
	name  string
	pos   FilePos
	lines []Line
}

// splitSource is the raw MML file broken into its four line classes.
type splitSource struct {
	headers     []headerLine
	instruments []Line
	subroutines []*subroutineLines // first-seen order
	channels    [driver.NumChannels][]Line
}

// splitMmlLines classifies every source line as a header (#), instrument
// definition (@), subroutine group (!name) or channel group (A..F letters).
// A line that fits none of these is a structural error and aborts the
// compile immediately.
func splitMmlLines(src string) (*splitSource, error) {
	out := &splitSource{}
	subByName := make(map[string]*subroutineLines)

	for num, raw := range strings.Split(src, "\n") {
		text := stripComment(raw)
		start, text := trimIndent(text)
		if text == "" {
			continue
		}
		lineNo := num + 1

		switch text[0] {
		case '#':
			name, value, col := splitHeader(text)
			out.headers = append(out.headers, headerLine{
				name:  name,
				value: value,
				pos:   FilePos{lineNo, start + col},
			})
		case '@':
			out.instruments = append(out.instruments, Line{
				Number: lineNo,
				Column: start + 1,
				Text:   text,
			})
		case '!':
			name, rest, col := splitPrefixWord(text[1:])
			if name == "" {
				return nil, fmt.Errorf("line %d: missing subroutine name after '!'", lineNo)
			}
			ln := Line{Number: lineNo, Column: start + 2 + col, Text: rest}
			if g, ok := subByName[name]; ok {
				g.lines = append(g.lines, ln)
			} else {
				g = &subroutineLines{
					name:  name,
					pos:   FilePos{lineNo, start + 1},
					lines: []Line{ln},
				}
				subByName[name] = g
				out.subroutines = append(out.subroutines, g)
			}
		default:
			targets, rest, col := splitChannelTargets(text)
			if targets == 0 {
				return nil, fmt.Errorf("line %d: expected '#', '@', '!' or channel letters A-%c",
					lineNo, 'A'+driver.NumChannels-1)
			}
			ln := Line{Number: lineNo, Column: start + 1 + col, Text: rest}
			for ch := 0; ch < driver.NumChannels; ch++ {
				if targets&(1<<ch) != 0 {
					out.channels[ch] = append(out.channels[ch], ln)
				}
			}
		}
	}
	return out, nil
}

// stripComment cuts the line at the first ';'.
func stripComment(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, " \t\r")
}

// trimIndent removes leading whitespace and returns the count removed.
func trimIndent(s string) (int, string) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i, s[i:]
}

// splitHeader splits "#Name value" and returns the value's column offset
// within the line fragment.
func splitHeader(s string) (name, value string, valueCol int) {
	rest := s[1:]
	i := 0
	for i < len(rest) && rest[i] != ' ' && rest[i] != '\t' {
		i++
	}
	name = rest[:i]
	j := i
	for j < len(rest) && (rest[j] == ' ' || rest[j] == '\t') {
		j++
	}
	return name, rest[j:], 1 + j + 1
}

// splitPrefixWord splits a leading identifier from the rest of the line,
// returning the rest's column offset past the word.
func splitPrefixWord(s string) (word, rest string, restCol int) {
	i := 0
	for i < len(s) && isIdentByte(s[i]) {
		i++
	}
	word = s[:i]
	j := i
	for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
		j++
	}
	return word, s[j:], j
}

// splitChannelTargets reads a run of channel letters (A..F) and returns a
// bitmask of targets plus the MML text that follows. targets is 0 when the
// line does not start with a valid channel run.
func splitChannelTargets(s string) (targets uint, rest string, restCol int) {
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] < 'A'+driver.NumChannels {
		targets |= 1 << uint(s[i]-'A')
		i++
	}
	if i == 0 {
		return 0, "", 0
	}
	if i < len(s) && s[i] != ' ' && s[i] != '\t' {
		// not a channel run after all (e.g. "ADSRfoo")
		return 0, "", 0
	}
	j := i
	for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
		j++
	}
	return targets, s[j:], j
}

func isIdentByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}
