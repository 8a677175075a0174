package bbruntime

import (
	"errors"
	"sync"
	"testing"

	"github.com/gosuda/bytebeat/parser"
	"github.com/gosuda/bytebeat/rpn"
)

func runner(t *testing.T, src string, mode rpn.Mode) *Runner {
	t.Helper()
	prog, err := parser.ParseProgram(src, mode)
	if err != nil {
		t.Fatalf("compile %q failed: %v", src, err)
	}
	return NewRunner(prog)
}

func TestArithmetic(t *testing.T) {
	cases := []struct {
		src  string
		want float64
	}{
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"5/0", 0},
		{"5%0", 0},
		{"7%3", 1},
		{"-7%3", -1},
		{"1<<33", 2},
		{"1<<1", 2},
		{"-16>>2", -4},
		{"1?2:3", 2},
		{"0?2:3", 3},
		{"0?1:0?2:3", 3},
		{"3>2", 1},
		{"3<=2", 0},
		{"2==2", 1},
		{"2!=2", 0},
		{"6&3", 2},
		{"6|3", 7},
		{"6^3", 5},
		{"(1,2)", 2},
		{"pow(2,10)", 1024},
		{"floor(2.7)", 2},
		{"int(-2.5)", -3},
		{"abs(-3)", 3},
		{"x+1", 1},
		{"!0", -1},
		{"!1&255", 254},
		{"0!=1", 1},
	}
	for _, tc := range cases {
		r := runner(t, tc.src, rpn.Classic)
		if got := r.Value(0); got != tc.want {
			t.Fatalf("%q: got %v want %v", tc.src, got, tc.want)
		}
	}
}

func TestSampleTruncation(t *testing.T) {
	cases := []struct {
		v    float64
		want uint8
	}{
		{0, 0},
		{255, 255},
		{256, 0},
		{-1, 255},
		{300.9, 44},
		{-0.5, 0},
		{4294967296 + 7, 7},
	}
	for _, tc := range cases {
		if got := Sample(tc.v); got != tc.want {
			t.Fatalf("Sample(%v): got %d want %d", tc.v, got, tc.want)
		}
	}
}

func TestClassicFormulaMatchesIntegerMath(t *testing.T) {
	r := runner(t, "t*(42&t>>10)", rpn.Classic)
	for tick := uint32(0); tick < 2048; tick++ {
		x := int32(tick)
		want := uint8(x * (42 & (x >> 10)) & 0xFF)
		if got := r.Eval(tick); got != want {
			t.Fatalf("t=%d: got %d want %d", tick, got, want)
		}
	}
}

func TestBitNotUsesWideIntegers(t *testing.T) {
	r := runner(t, "~2147483648", rpn.Classic)
	if got := r.Value(0); got != -2147483649 {
		t.Fatalf("unexpected bit-not result: %v", got)
	}
	r = runner(t, "~0", rpn.Classic)
	if got := r.Eval(0); got != 255 {
		t.Fatalf("unexpected bit-not sample: %d", got)
	}
}

func TestComplexPrograms(t *testing.T) {
	r := runner(t, "a=5,a*2", rpn.Complex)
	if got := r.Value(0); got != 10 {
		t.Fatalf("unexpected value: %v", got)
	}

	r = runner(t, "a=t,a&255", rpn.Complex)
	if got := r.Eval(300); got != 44 {
		t.Fatalf("unexpected sample: %d", got)
	}

	r = runner(t, "a=t/2,a", rpn.Complex)
	r.Eval(3)
	if v, ok := r.Var("a"); !ok || v != 1 {
		t.Fatalf("assignment must store the sample, got %v", v)
	}
}

func TestAssignmentStoresSample(t *testing.T) {
	cases := []struct {
		src  string
		tick uint32
		want uint8
	}{
		{"a=1000,a>>2", 0, 58},
		{"a=-1,a<0?9:7", 0, 7},
		{"a=t/2,a*2", 3, 2},
		{"a=300", 0, 44},
		{"(a=1000),a>>2", 0, 250},
	}
	for _, tc := range cases {
		r := runner(t, tc.src, rpn.Complex)
		if got := r.Eval(tc.tick); got != tc.want {
			t.Fatalf("%q at t=%d: got %d want %d", tc.src, tc.tick, got, tc.want)
		}
	}
}

func TestStringsAndArrays(t *testing.T) {
	cases := []struct {
		src  string
		tick uint32
		want float64
	}{
		{"s='AB',s.charCodeAt(1)", 0, 66},
		{"s='AB',s.charCodeAt(5)", 0, 0},
		{"s='AB',s.length", 0, 2},
		{"x='A',s='BC',s.charCodeAt(1)", 0, 67},
		{"[10,20,30][t%[10,20,30].length]", 4, 20},
		{"[10,20,30][-1]", 0, 0},
		{"[1.5][0]*2", 0, 3},
		{"m=t&1,[5,6][m]", 1, 6},
		{"n=[10,20,30],n[0]", 0, 0},
		{"'\xff'.charCodeAt(0)", 0, 255},
		{`'\'.charCodeAt(0)`, 0, 92},
		{`"C:\"+1`, 0, 1},
	}
	for _, tc := range cases {
		r := runner(t, tc.src, rpn.Complex)
		if got := r.Value(tc.tick); got != tc.want {
			t.Fatalf("%q: got %v want %v", tc.src, got, tc.want)
		}
	}
}

func TestVariablesPersistAcrossTicks(t *testing.T) {
	r := runner(t, "c=c+1,c", rpn.Complex)
	for i := 1; i <= 3; i++ {
		if got := r.Value(0); got != float64(i) {
			t.Fatalf("tick %d: got %v", i, got)
		}
	}
	clone := r.Clone()
	clone.Value(0)
	if v, _ := r.Var("c"); v != 3 {
		t.Fatalf("clone must not share memory, c=%v", v)
	}
}

func TestRandomRange(t *testing.T) {
	r := runner(t, "random()", rpn.Classic)
	for i := 0; i < 1000; i++ {
		v := r.Value(0)
		if v < 0 || v >= 1 {
			t.Fatalf("random out of range: %v", v)
		}
	}
}

func TestDeterministicEvaluation(t *testing.T) {
	src := "t*((t>>12|t>>8)&63&t>>4)"
	a := runner(t, src, rpn.Classic)
	b := runner(t, src, rpn.Classic)
	for tick := uint32(0); tick < 100000; tick += 37 {
		if a.Eval(tick) != b.Eval(tick) {
			t.Fatalf("t=%d: evaluation is not deterministic", tick)
		}
	}
}

func TestVMKeepsLastGoodProgram(t *testing.T) {
	vm := New(rpn.Classic)
	if vm.Eval(10) != 0 {
		t.Fatalf("empty vm must output silence")
	}
	if err := vm.Compile("t&255"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if !vm.Valid() || vm.Eval(300) != 44 {
		t.Fatalf("unexpected vm state: %+v", vm.Status())
	}

	err := vm.Compile("t&(255")
	if !errors.Is(err, parser.ErrUnmatchedOpeningParen) {
		t.Fatalf("unexpected error: %v", err)
	}
	st := vm.Status()
	if st.Valid || st.Pos != 2 || st.Source != "t&(255" {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.Message() == "" {
		t.Fatalf("status message must not be empty")
	}
	if vm.Program() == nil || vm.Program().Source != "t&255" {
		t.Fatalf("previous program must stay installed")
	}
	if vm.Eval(300) != 44 {
		t.Fatalf("previous program must keep running")
	}
}

func TestVMIdempotentCompile(t *testing.T) {
	vm := New(rpn.Complex)
	for i := 0; i < 3; i++ {
		if err := vm.Compile("a=t>>10,b=a&7,t*(b+1)&128"); err != nil {
			t.Fatalf("compile failed: %v", err)
		}
		if vm.Program().Symbols.Len() != 2 {
			t.Fatalf("symbols leaked: %d", vm.Program().Symbols.Len())
		}
	}
}

func TestVMSetModeRecompiles(t *testing.T) {
	vm := New(rpn.Complex)
	if err := vm.Compile("a=3,a*2"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if err := vm.SetMode(rpn.Classic); err != nil {
		t.Fatalf("recompile failed: %v", err)
	}
	if vm.Mode() != rpn.Classic || vm.Program().Mode != rpn.Classic {
		t.Fatalf("mode not switched")
	}
	if vm.Eval(0) != 6 {
		t.Fatalf("unexpected classic result")
	}
}

func TestVMSetModeBeforeCompile(t *testing.T) {
	vm := New(rpn.Classic)
	if err := vm.SetMode(rpn.Complex); err != nil {
		t.Fatalf("set mode on empty vm failed: %v", err)
	}
	st := vm.Status()
	if st.Err != nil || st.Pos != -1 || st.Source != "" {
		t.Fatalf("empty vm status changed: %+v", st)
	}
	if vm.Mode() != rpn.Complex || vm.Program() != nil {
		t.Fatalf("unexpected vm after set mode: %v %v", vm.Mode(), vm.Program())
	}
	if err := vm.Compile("a=2,a*3"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if vm.Program().Mode != rpn.Complex || vm.Eval(0) != 6 {
		t.Fatalf("recorded mode not used by the next compile")
	}
}

func TestVMStatusMatchesProgram(t *testing.T) {
	vm := New(rpn.Classic)
	if err := vm.Compile("t*2"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if st, p := vm.Status(), vm.Program(); !st.Valid || st.Source != p.Source {
		t.Fatalf("status %q does not match program %q", st.Source, p.Source)
	}
	_ = vm.Compile("t*")
	st, p := vm.Status(), vm.Program()
	if st.Valid || st.Source != "t*" || p.Source != "t*2" {
		t.Fatalf("failed compile: status=%+v program=%q", st, p.Source)
	}
	if vm.Eval(3) != 6 {
		t.Fatalf("previous program must keep running")
	}
	if err := vm.Compile("t*3"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if st := vm.Status(); !st.Valid || st.Err != nil || vm.Program().Source != "t*3" {
		t.Fatalf("status not replaced with program: %+v", st)
	}
}

func TestVMPeekDoesNotAdvanceState(t *testing.T) {
	vm := New(rpn.Complex)
	if err := vm.Compile("c=c+1,c"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	vm.Eval(0)
	vm.Eval(0)
	if got := vm.Peek(0); got != 3 {
		t.Fatalf("unexpected peek: %d", got)
	}
	if got := vm.Eval(0); got != 3 {
		t.Fatalf("peek advanced the playback state: %d", got)
	}
	vm.Reset()
	if got := vm.Eval(0); got != 1 {
		t.Fatalf("reset did not clear variables: %d", got)
	}
}

func TestVMConcurrentCompileAndEval(t *testing.T) {
	vm := New(rpn.Complex)
	if err := vm.Compile("t&255"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c := NewClock(8000, DeviceRate)
		buf := make([]uint8, 512)
		for i := 0; i < 200; i++ {
			vm.Fill(buf, c)
		}
	}()
	go func() {
		defer wg.Done()
		srcs := []string{"a=t>>4,a&t", "t*(42&t>>10)", "bad(", "n=[1,2],n[t&1]*t"}
		for i := 0; i < 200; i++ {
			_ = vm.Compile(srcs[i%len(srcs)])
		}
	}()
	wg.Wait()
	if vm.Program() == nil {
		t.Fatalf("program lost")
	}
}
