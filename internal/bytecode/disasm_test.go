package bytecode

import "testing"

func TestDisassemble(t *testing.T) {
	e := NewEmitter(false)
	if err := e.SetInstrument(1); err != nil {
		t.Fatalf("SetInstrument failed: %v", err)
	}
	if err := e.PlayNote(48, true, 24); err != nil {
		t.Fatalf("PlayNote failed: %v", err)
	}
	if err := e.Rest(12); err != nil {
		t.Fatalf("Rest failed: %v", err)
	}
	if err := e.Terminate(); err != nil {
		t.Fatalf("Terminate failed: %v", err)
	}

	want := "0000  set_instrument 1\n" +
		"0002  play_note o4 c keyoff 24\n" +
		"0004  rest 12\n" +
		"0006  end\n"
	if got := Disassemble(e.Bytes()); got != want {
		t.Fatalf("disassembly mismatch:\ngot:\n%swant:\n%s", got, want)
	}
}

func TestDisassembleLoopAndPortamento(t *testing.T) {
	e := NewEmitter(false)
	if err := e.StartLoop(3); err != nil {
		t.Fatalf("StartLoop failed: %v", err)
	}
	if err := e.Portamento(60, true, 43, 47); err != nil {
		t.Fatalf("Portamento failed: %v", err)
	}
	if err := e.SkipLastLoop(); err != nil {
		t.Fatalf("SkipLastLoop failed: %v", err)
	}
	if err := e.Wait(8); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if err := e.EndLoop(); err != nil {
		t.Fatalf("EndLoop failed: %v", err)
	}

	want := "0000  start_loop0 3\n" +
		"0002  portamento o5 c keyoff +43 47\n" +
		"0006  skip_last_loop0 +3\n" +
		"0008  wait 8\n" +
		"000a  end_loop0\n"
	if got := Disassemble(e.Bytes()); got != want {
		t.Fatalf("disassembly mismatch:\ngot:\n%swant:\n%s", got, want)
	}
}

func TestDisassembleTruncated(t *testing.T) {
	want := "0000  !truncated\n"
	if got := Disassemble([]byte{48 << 1}); got != want {
		t.Fatalf("disassembly = %q, want %q", got, want)
	}
}
