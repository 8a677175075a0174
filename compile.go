package bytebeat

import (
	"github.com/gosuda/bytebeat/parser"
	"github.com/gosuda/bytebeat/rpn"
	bbruntime "github.com/gosuda/bytebeat/runtime"
)

// Compile parses a formula (or a comma separated program in complex mode)
// into an executable program. Errors are *parser.Error values carrying the
// byte offset of the failure.
func Compile(src string, mode rpn.Mode) (*rpn.Program, error) {
	return parser.ParseProgram(src, mode)
}

// Load compiles src into a fresh VM. The VM is returned even when the
// compile fails so callers can inspect Status.
func Load(src string, mode rpn.Mode) (*bbruntime.VM, error) {
	vm := bbruntime.New(mode)
	err := vm.Compile(src)
	return vm, err
}

// Render evaluates n consecutive samples of prog starting at t with fresh
// variables.
func Render(prog *rpn.Program, t uint32, n int) []uint8 {
	out := make([]uint8, n)
	r := bbruntime.NewRunner(prog)
	for i := range out {
		out[i] = r.Eval(t + uint32(i))
	}
	return out
}
