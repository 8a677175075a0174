package bbruntime

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gosuda/bytebeat/parser"
	"github.com/gosuda/bytebeat/rpn"
)

// Runner evaluates one compiled program against its own variable memory.
// A Runner is not safe for concurrent use; VM serialises access to the
// runner it owns.
type Runner struct {
	prog  *rpn.Program
	mem   []float64
	stack [rpn.StackSize]float64
}

func NewRunner(prog *rpn.Program) *Runner {
	return &Runner{prog: prog, mem: prog.NewMemory()}
}

func (r *Runner) Program() *rpn.Program {
	return r.prog
}

// Value runs every instruction once for tick t and returns the value of the
// last one. An assignment statement goes through Sample like any statement,
// so its variable holds 0..255: a=-1 stores 255 and a=[1,2] stores the low
// byte of the array id. Assign inside an expression stores the raw value.
func (r *Runner) Value(t uint32) float64 {
	last := 0.0
	for _, ins := range r.prog.Instructions {
		last = evalExpr(ins.Expr, t, r.mem, r.prog.Pools, &r.stack)
		if ins.Kind == rpn.AssignVar {
			last = float64(Sample(last))
			if ins.Slot >= 0 && ins.Slot < len(r.mem) {
				r.mem[ins.Slot] = last
			}
		}
	}
	return last
}

func (r *Runner) Eval(t uint32) uint8 {
	return Sample(r.Value(t))
}

// Clone copies the program reference and the current variable values.
func (r *Runner) Clone() *Runner {
	c := &Runner{prog: r.prog, mem: make([]float64, len(r.mem))}
	copy(c.mem, r.mem)
	return c
}

// Var returns the current value of a named variable.
func (r *Runner) Var(name string) (float64, bool) {
	slot, ok := r.prog.Symbols.Lookup(name)
	if !ok || slot >= len(r.mem) {
		return 0, false
	}
	return r.mem[slot], true
}

// Vars returns a copy of all variables keyed by name.
func (r *Runner) Vars() map[string]float64 {
	out := make(map[string]float64, len(r.mem))
	for slot, name := range r.prog.Symbols.Names() {
		if slot < len(r.mem) {
			out[name] = r.mem[slot]
		}
	}
	return out
}

// Status is the editor facing result of the most recent compile.
type Status struct {
	Valid  bool
	Source string
	Err    error
	// Pos is the byte offset of the error in Source, -1 when there is none.
	Pos int
}

func (s Status) Message() string {
	if s.Err == nil {
		return ""
	}
	var pe *parser.Error
	if errors.As(s.Err, &pe) && pe.Msg != "" {
		return pe.Msg
	}
	if pe != nil {
		return pe.Kind.Error()
	}
	return s.Err.Error()
}

// engine is one installed program with the variable memory it mutates.
type engine struct {
	mu     sync.Mutex
	runner *Runner
}

// state is swapped as a unit so a reader never pairs a program with the
// status of a different compile. A failed compile produces a new state that
// shares the previous engine.
type state struct {
	eng    *engine
	status Status
}

// VM owns the running program. Compile may be called from any goroutine
// while another goroutine evaluates: a new program is built completely
// before it is swapped in, and a failed compile keeps the previous one.
type VM struct {
	// mode is the engine used by the next Compile.
	mode atomic.Int32
	cur  atomic.Pointer[state]
}

func New(mode rpn.Mode) *VM {
	vm := &VM{}
	vm.mode.Store(int32(mode))
	vm.cur.Store(&state{status: Status{Pos: -1}})
	return vm
}

func (vm *VM) Mode() rpn.Mode {
	return rpn.Mode(vm.mode.Load())
}

// SetMode switches the engine and recompiles the last source with it. A VM
// that has never been given a source only records the mode.
func (vm *VM) SetMode(mode rpn.Mode) error {
	vm.mode.Store(int32(mode))
	src := vm.Status().Source
	if src == "" {
		return nil
	}
	return vm.Compile(src)
}

func (vm *VM) swap(next func(old *state) *state) {
	for {
		old := vm.cur.Load()
		if vm.cur.CompareAndSwap(old, next(old)) {
			return
		}
	}
}

// Compile replaces the running program with src. On error the previous
// program stays installed but the VM reports itself invalid.
func (vm *VM) Compile(src string) error {
	prog, err := parser.ParseProgram(src, vm.Mode())
	if err != nil {
		st := Status{Valid: false, Source: src, Err: err, Pos: -1}
		var pe *parser.Error
		if errors.As(err, &pe) {
			st.Pos = pe.Pos
		}
		vm.swap(func(old *state) *state {
			return &state{eng: old.eng, status: st}
		})
		return err
	}
	vm.Load(prog)
	return nil
}

// Load installs an already compiled program.
func (vm *VM) Load(prog *rpn.Program) {
	next := &state{
		eng:    &engine{runner: NewRunner(prog)},
		status: Status{Valid: true, Source: prog.Source, Pos: -1},
	}
	vm.mode.Store(int32(prog.Mode))
	vm.swap(func(*state) *state { return next })
}

func (vm *VM) Status() Status {
	return vm.cur.Load().status
}

func (vm *VM) Valid() bool {
	return vm.cur.Load().status.Valid
}

// Program returns the installed program, which may be older than the last
// failed compile.
func (vm *VM) Program() *rpn.Program {
	eng := vm.cur.Load().eng
	if eng == nil {
		return nil
	}
	return eng.runner.prog
}

// Eval produces the sample for tick t and advances the shared variable
// state. It returns 0 when nothing has been compiled yet.
func (vm *VM) Eval(t uint32) uint8 {
	eng := vm.cur.Load().eng
	if eng == nil {
		return 0
	}
	eng.mu.Lock()
	v := eng.runner.Eval(t)
	eng.mu.Unlock()
	return v
}

// Fill renders len(dst) samples starting at the clock position, advancing
// the clock once per sample. The variable state is locked once per call.
func (vm *VM) Fill(dst []uint8, c *Clock) {
	eng := vm.cur.Load().eng
	if eng == nil {
		for i := range dst {
			dst[i] = 0
			c.Advance()
		}
		return
	}
	eng.mu.Lock()
	defer eng.mu.Unlock()
	for i := range dst {
		dst[i] = eng.runner.Eval(c.T)
		c.Advance()
	}
}

// Snapshot returns a private runner holding a copy of the current variable
// state, for lookahead that must not disturb playback.
func (vm *VM) Snapshot() *Runner {
	eng := vm.cur.Load().eng
	if eng == nil {
		return nil
	}
	eng.mu.Lock()
	defer eng.mu.Unlock()
	return eng.runner.Clone()
}

// Peek evaluates tick t on a snapshot.
func (vm *VM) Peek(t uint32) uint8 {
	r := vm.Snapshot()
	if r == nil {
		return 0
	}
	return r.Eval(t)
}

// Reset zeroes the variables of the running program.
func (vm *VM) Reset() {
	eng := vm.cur.Load().eng
	if eng == nil {
		return
	}
	eng.mu.Lock()
	for i := range eng.runner.mem {
		eng.runner.mem[i] = 0
	}
	eng.mu.Unlock()
}
