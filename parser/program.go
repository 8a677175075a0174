package parser

import (
	"strings"

	"github.com/gosuda/bytebeat/rpn"
)

// CompileExpr tokenizes and parses a single expression.
func CompileExpr(src string, syms *rpn.Symbols, pools *rpn.Pools) (rpn.Expr, error) {
	toks, err := Tokenize(src, syms, pools)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, errAt(ErrEmptyExpression, 0, "")
	}
	return Parse(toks)
}

// ParseProgram compiles src in the given mode. Variables, strings and arrays
// always start from empty tables so nothing leaks between compiles.
func ParseProgram(src string, mode rpn.Mode) (*rpn.Program, error) {
	prog := &rpn.Program{
		Mode:    mode,
		Source:  src,
		Symbols: rpn.NewSymbols(),
		Pools:   &rpn.Pools{},
	}
	if mode == rpn.Classic {
		expr, err := CompileExpr(src, prog.Symbols, prog.Pools)
		if err != nil {
			return nil, err
		}
		prog.Instructions = []rpn.Instruction{{Kind: rpn.EvalExpr, Slot: -1, Expr: expr}}
		return prog, nil
	}

	for _, seg := range splitStatements(src) {
		if strings.TrimSpace(seg.text) == "" {
			continue
		}
		ins, err := compileStatement(seg, prog)
		if err != nil {
			return nil, err
		}
		prog.Instructions = append(prog.Instructions, ins)
	}
	if len(prog.Instructions) == 0 {
		return nil, errAt(ErrEmptyExpression, 0, "")
	}
	return prog, nil
}

func compileStatement(seg segment, prog *rpn.Program) (rpn.Instruction, error) {
	eq := findAssign(seg.text)
	if eq < 0 {
		expr, err := CompileExpr(seg.text, prog.Symbols, prog.Pools)
		if err != nil {
			return rpn.Instruction{}, shift(err, seg.offset)
		}
		return rpn.Instruction{Kind: rpn.EvalExpr, Slot: -1, Expr: expr}, nil
	}

	lhs := seg.text[:eq]
	name := strings.TrimSpace(lhs)
	namePos := seg.offset + strings.Index(lhs, name)
	if name == "" {
		return rpn.Instruction{}, errAt(ErrMissingOperand, seg.offset+eq, "missing variable name before '='")
	}
	if !isIdent(name) {
		return rpn.Instruction{}, errAt(ErrUnexpectedToken, namePos, "cannot assign to %q", name)
	}
	if _, isFunc := rpn.LookupFunc(name); isFunc || name == "t" {
		return rpn.Instruction{}, errAt(ErrUnexpectedToken, namePos, "cannot assign to reserved name %q", name)
	}
	slot := prog.Symbols.Slot(name)
	expr, err := CompileExpr(seg.text[eq+1:], prog.Symbols, prog.Pools)
	if err != nil {
		return rpn.Instruction{}, shift(err, seg.offset+eq+1)
	}
	return rpn.Instruction{Kind: rpn.AssignVar, Slot: slot, Expr: expr}, nil
}
