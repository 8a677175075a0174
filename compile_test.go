package bytebeat_test

import (
	"errors"
	"testing"

	"github.com/gosuda/bytebeat"
	"github.com/gosuda/bytebeat/parser"
	"github.com/gosuda/bytebeat/rpn"
)

func TestCompileAndRenderClassic(t *testing.T) {
	prog, err := bytebeat.Compile("t&t>>8", rpn.Classic)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	out := bytebeat.Render(prog, 250, 10)
	for i, v := range out {
		tt := uint32(250 + i)
		if want := uint8(tt & (tt >> 8)); v != want {
			t.Fatalf("t=%d: got %d want %d", tt, v, want)
		}
	}
}

func TestCompileComplexProgram(t *testing.T) {
	prog, err := bytebeat.Compile("a=t*2, b=a+1, b&255", rpn.Complex)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if len(prog.Instructions) != 3 {
		t.Fatalf("unexpected statement count: %d", len(prog.Instructions))
	}
	out := bytebeat.Render(prog, 0, 4)
	if out[0] != 1 || out[3] != 7 {
		t.Fatalf("unexpected samples: %v", out)
	}
}

func TestCompileErrorIsTyped(t *testing.T) {
	_, err := bytebeat.Compile("t*(2", rpn.Classic)
	if err == nil {
		t.Fatalf("expected compile error")
	}
	var pe *parser.Error
	if !errors.As(err, &pe) {
		t.Fatalf("unexpected error type: %T", err)
	}
	if !errors.Is(err, parser.ErrUnmatchedOpeningParen) || pe.Pos != 2 {
		t.Fatalf("unexpected error: %v (pos %d)", err, pe.Pos)
	}
}

func TestLoadKeepsStatusOnFailure(t *testing.T) {
	vm, err := bytebeat.Load("t+", rpn.Classic)
	if err == nil {
		t.Fatalf("expected compile error")
	}
	st := vm.Status()
	if st.Valid || st.Source != "t+" {
		t.Fatalf("unexpected status: %+v", st)
	}
	if vm.Eval(5) != 0 {
		t.Fatalf("invalid vm without program must be silent")
	}
}
