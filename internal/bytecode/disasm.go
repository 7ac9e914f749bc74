package bytecode

import (
	"fmt"
	"strings"
)

var noteNames = [12]string{"c", "c+", "d", "d+", "e", "f", "f+", "g", "g+", "a", "a+", "b"}

func noteName(op byte) string {
	note := int(op >> 1)
	suffix := ""
	if op&1 != 0 {
		suffix = " keyoff"
	}
	return fmt.Sprintf("o%d %s%s", note/12, noteNames[note%12], suffix)
}

// Disassemble renders an instruction stream as one instruction per line, for
// tests and the CLI -dis flag. Truncated streams end with a "!truncated" line.
func Disassemble(code []byte) string {
	var sb strings.Builder
	i := 0
	for i < len(code) {
		op := code[i]
		fmt.Fprintf(&sb, "%04x  ", i)
		size, text := decode(op, code[i+1:])
		if size < 0 {
			sb.WriteString("!truncated\n")
			break
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
		i += 1 + size
	}
	return sb.String()
}

// decode returns the operand byte count and rendered text, or -1 when the
// stream ends mid-instruction.
func decode(op byte, args []byte) (int, string) {
	need := func(n int) bool { return len(args) >= n }
	switch {
	case op < OpFirstCommand:
		if !need(1) {
			return -1, ""
		}
		return 1, fmt.Sprintf("play_note %s %d", noteName(op), args[0])
	case op == OpSetInstrument:
		if !need(1) {
			return -1, ""
		}
		return 1, fmt.Sprintf("set_instrument %d", args[0])
	case op == OpSetAdsr:
		if !need(2) {
			return -1, ""
		}
		return 2, fmt.Sprintf("set_adsr %02x %02x", args[0], args[1])
	case op == OpSetGain:
		if !need(1) {
			return -1, ""
		}
		return 1, fmt.Sprintf("set_gain %d", args[0])
	case op == OpRest:
		if !need(1) {
			return -1, ""
		}
		return 1, fmt.Sprintf("rest %d", args[0])
	case op == OpWait:
		if !need(1) {
			return -1, ""
		}
		return 1, fmt.Sprintf("wait %d", args[0])
	case op == OpPortamentoUp || op == OpPortamentoDown:
		if !need(3) {
			return -1, ""
		}
		dir := "+"
		if op == OpPortamentoDown {
			dir = "-"
		}
		return 3, fmt.Sprintf("portamento %s %s%d %d", noteName(args[2]), dir, args[1], args[0])
	case op == OpSetVolume:
		if !need(1) {
			return -1, ""
		}
		return 1, fmt.Sprintf("set_volume %d", args[0])
	case op == OpAdjustVolume:
		if !need(1) {
			return -1, ""
		}
		return 1, fmt.Sprintf("adjust_volume %d", int8(args[0]))
	case op == OpSetPan:
		if !need(1) {
			return -1, ""
		}
		return 1, fmt.Sprintf("set_pan %d", args[0])
	case op == OpAdjustPan:
		if !need(1) {
			return -1, ""
		}
		return 1, fmt.Sprintf("adjust_pan %d", int8(args[0]))
	case op == OpSetSongTickClock:
		if !need(1) {
			return -1, ""
		}
		return 1, fmt.Sprintf("set_song_tick_clock %d", args[0])
	case op == OpStartLoop0 || op == OpStartLoop1:
		if !need(1) {
			return -1, ""
		}
		return 1, fmt.Sprintf("start_loop%d %d", loopBank(op), int(args[0])+2)
	case op == OpSkipLastLoop0 || op == OpSkipLastLoop1:
		if !need(1) {
			return -1, ""
		}
		return 1, fmt.Sprintf("skip_last_loop%d +%d", loopBank(op), args[0])
	case op == OpEndLoop0 || op == OpEndLoop1:
		return 0, fmt.Sprintf("end_loop%d", loopBank(op))
	case op == OpCallSubroutine:
		if !need(1) {
			return -1, ""
		}
		return 1, fmt.Sprintf("call_subroutine %d", args[0])
	case op == OpReturnFromSubroutine:
		return 0, "return_from_subroutine"
	case op == OpEnd:
		return 0, "end"
	default:
		return 0, fmt.Sprintf("db %02x", op)
	}
}

func loopBank(op byte) int {
	if op >= OpStartLoop1 {
		return 1
	}
	return 0
}
