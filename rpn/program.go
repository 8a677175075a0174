package rpn

import (
	"fmt"
	"strings"
)

// ArrayOffset separates array pool ids from string pool ids so a single
// stack value can address either pool.
const ArrayOffset = 200000

// StackSize bounds the evaluation stack.
const StackSize = 1024

type Mode int

const (
	Classic Mode = iota
	Complex
)

func (m Mode) String() string {
	switch m {
	case Classic:
		return "classic"
	case Complex:
		return "complex"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts the names used by preset files and command flags.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "classic", "c":
		return Classic, nil
	case "complex", "js":
		return Complex, nil
	default:
		return Classic, fmt.Errorf("unknown mode %q (use classic|complex)", s)
	}
}

// Expr is a compiled expression in postfix order.
type Expr []Token

func (e Expr) String() string {
	parts := make([]string, len(e))
	for i, t := range e {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}

// Depth returns the highest stack depth reached while evaluating e.
func (e Expr) Depth() int {
	depth, high := 0, 0
	for _, t := range e {
		depth += t.Yields() - t.Needs()
		if depth > high {
			high = depth
		}
	}
	return high
}

type InstrKind int

const (
	EvalExpr InstrKind = iota
	AssignVar
)

type Instruction struct {
	Kind InstrKind
	Slot int
	Expr Expr
}

// Symbols maps variable names to stable slots for one compiled program.
type Symbols struct {
	slots map[string]int
	names []string
}

func NewSymbols() *Symbols {
	return &Symbols{slots: map[string]int{}}
}

// Slot returns the slot of name, allocating a new zeroed one on first use.
func (s *Symbols) Slot(name string) int {
	if id, ok := s.slots[name]; ok {
		return id
	}
	id := len(s.names)
	s.slots[name] = id
	s.names = append(s.names, name)
	return id
}

// Lookup returns the slot of an existing name.
func (s *Symbols) Lookup(name string) (int, bool) {
	id, ok := s.slots[name]
	return id, ok
}

func (s *Symbols) Len() int {
	return len(s.names)
}

func (s *Symbols) Name(slot int) string {
	if slot < 0 || slot >= len(s.names) {
		return ""
	}
	return s.names[slot]
}

// Names returns variable names ordered by slot.
func (s *Symbols) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Pools holds the string and array literals of one compiled program.
type Pools struct {
	Strings []string
	Arrays  [][]float64
}

func (p *Pools) AddString(s string) int {
	p.Strings = append(p.Strings, s)
	return len(p.Strings) - 1
}

func (p *Pools) AddArray(a []float64) int {
	p.Arrays = append(p.Arrays, a)
	return len(p.Arrays) - 1
}

// Element resolves target[i] for either pool. Unknown ids and out of range
// indices resolve to 0.
func (p *Pools) Element(target, i int) float64 {
	if target >= ArrayOffset {
		idx := target - ArrayOffset
		if idx >= len(p.Arrays) {
			return 0
		}
		arr := p.Arrays[idx]
		if i < 0 || i >= len(arr) {
			return 0
		}
		return arr[i]
	}
	if target < 0 || target >= len(p.Strings) {
		return 0
	}
	s := p.Strings[target]
	if i < 0 || i >= len(s) {
		return 0
	}
	return float64(s[i])
}

// Len returns the length of a pool entry, or 0 for unknown ids.
func (p *Pools) Len(target int) int {
	if target >= ArrayOffset {
		idx := target - ArrayOffset
		if idx >= len(p.Arrays) {
			return 0
		}
		return len(p.Arrays[idx])
	}
	if target < 0 || target >= len(p.Strings) {
		return 0
	}
	return len(p.Strings[target])
}

// Program is the unit that replaces the running formula on every compile.
// It is never mutated after compilation.
type Program struct {
	Mode         Mode
	Source       string
	Instructions []Instruction
	Symbols      *Symbols
	Pools        *Pools
}

// NewMemory returns a zeroed variable array sized for the program.
func (p *Program) NewMemory() []float64 {
	if p == nil || p.Symbols == nil {
		return nil
	}
	return make([]float64, p.Symbols.Len())
}

func (p *Program) String() string {
	if p == nil {
		return "<nil>"
	}
	var b strings.Builder
	for i, ins := range p.Instructions {
		if i > 0 {
			b.WriteString("\n")
		}
		if ins.Kind == AssignVar {
			fmt.Fprintf(&b, "%s = %s", p.Symbols.Name(ins.Slot), ins.Expr)
			continue
		}
		b.WriteString(ins.Expr.String())
	}
	return b.String()
}
