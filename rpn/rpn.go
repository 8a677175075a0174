package rpn

import (
	"strconv"
)

type Kind uint8

const (
	Number Kind = iota
	TimeVar
	Operator
	Function
	LParen
	RParen
	Question
	Colon
	Identifier
	StringLit
	ArrayLit
	VarPointer
)

var kindNames = [...]string{
	Number:     "number",
	TimeVar:    "t",
	Operator:   "operator",
	Function:   "function",
	LParen:     "(",
	RParen:     ")",
	Question:   "?",
	Colon:      ":",
	Identifier: "identifier",
	StringLit:  "string",
	ArrayLit:   "array",
	VarPointer: "pointer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// IsOperand reports whether tokens of this kind push exactly one value
// without consuming any.
func (k Kind) IsOperand() bool {
	switch k {
	case Number, TimeVar, Identifier, StringLit, ArrayLit, VarPointer:
		return true
	default:
		return false
	}
}

type Op uint8

const (
	Add Op = iota
	Sub
	Mul
	Div
	Mod
	And
	Or
	Xor
	Shl
	Shr
	Neg
	BitNot
	LT
	GT
	LE
	GE
	EQ
	NE
	Assign
	Comma
	Index
	CharCodeAt
	Length
)

var opNames = [...]string{
	Add:        "+",
	Sub:        "-",
	Mul:        "*",
	Div:        "/",
	Mod:        "%",
	And:        "&",
	Or:         "|",
	Xor:        "^",
	Shl:        "<<",
	Shr:        ">>",
	Neg:        "neg",
	BitNot:     "~",
	LT:         "<",
	GT:         ">",
	LE:         "<=",
	GE:         ">=",
	EQ:         "==",
	NE:         "!=",
	Assign:     "=",
	Comma:      ",",
	Index:      "[]",
	CharCodeAt: ".charCodeAt",
	Length:     ".length",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "op(" + strconv.Itoa(int(o)) + ")"
}

// Unary reports whether the operator is a prefix operator taking one operand.
func (o Op) Unary() bool {
	return o == Neg || o == BitNot
}

// Precedence returns the binding strength used by the shunting-yard parser.
// Higher binds tighter.
func (o Op) Precedence() int {
	switch o {
	case Index:
		return 13
	case CharCodeAt, Length, Neg, BitNot:
		return 12
	case Mul, Div, Mod:
		return 10
	case Add, Sub:
		return 9
	case Shl, Shr:
		return 8
	case LT, GT, LE, GE:
		return 7
	case EQ, NE:
		return 6
	case And:
		return 5
	case Xor:
		return 4
	case Or:
		return 3
	case Assign, Comma:
		return 1
	default:
		return 0
	}
}

// Arity is the number of stack values the operator consumes.
func (o Op) Arity() int {
	switch o {
	case Neg, BitNot, Length:
		return 1
	default:
		return 2
	}
}

type Func uint8

const (
	Sin Func = iota
	Cos
	Tan
	Abs
	Floor
	Pow
	Random
)

var funcNames = [...]string{
	Sin:    "sin",
	Cos:    "cos",
	Tan:    "tan",
	Abs:    "abs",
	Floor:  "floor",
	Pow:    "pow",
	Random: "random",
}

func (f Func) String() string {
	if int(f) < len(funcNames) {
		return funcNames[f]
	}
	return "func(" + strconv.Itoa(int(f)) + ")"
}

// Arity is the number of arguments the function pops.
func (f Func) Arity() int {
	switch f {
	case Pow:
		return 2
	case Random:
		return 0
	default:
		return 1
	}
}

// LookupFunc resolves a builtin function name. "int" is kept as an alias of
// floor for formulas written against the earliest players.
func LookupFunc(name string) (Func, bool) {
	switch name {
	case "sin":
		return Sin, true
	case "cos":
		return Cos, true
	case "tan":
		return Tan, true
	case "abs":
		return Abs, true
	case "floor", "int":
		return Floor, true
	case "pow":
		return Pow, true
	case "random":
		return Random, true
	default:
		return 0, false
	}
}

// Token is one lexical unit and, after parsing, one RPN instruction.
// Only the payload field matching Kind is meaningful.
type Token struct {
	Kind  Kind
	Value float64
	Op    Op
	Func  Func
	Pos   int
	Index int
}

func NumberTok(v float64, pos int) Token {
	return Token{Kind: Number, Value: v, Pos: pos, Index: -1}
}

func TimeTok(pos int) Token {
	return Token{Kind: TimeVar, Pos: pos, Index: -1}
}

func OpTok(op Op, pos int) Token {
	return Token{Kind: Operator, Op: op, Pos: pos, Index: -1}
}

func FuncTok(f Func, pos int) Token {
	return Token{Kind: Function, Func: f, Pos: pos, Index: -1}
}

func ParenTok(k Kind, pos int) Token {
	return Token{Kind: k, Pos: pos, Index: -1}
}

func IdentTok(slot, pos int) Token {
	return Token{Kind: Identifier, Pos: pos, Index: slot}
}

func PointerTok(slot, pos int) Token {
	return Token{Kind: VarPointer, Pos: pos, Index: slot}
}

func StringTok(idx, pos int) Token {
	return Token{Kind: StringLit, Pos: pos, Index: idx}
}

// ArrayTok takes the raw array pool index; the token carries the offset id.
func ArrayTok(idx, pos int) Token {
	return Token{Kind: ArrayLit, Pos: pos, Index: idx + ArrayOffset}
}

// Needs returns how many values the token consumes when evaluated.
func (t Token) Needs() int {
	switch t.Kind {
	case Operator:
		return t.Op.Arity()
	case Function:
		return t.Func.Arity()
	case Colon:
		return 3
	default:
		return 0
	}
}

// Yields returns how many values the token leaves on the stack.
func (t Token) Yields() int {
	switch t.Kind {
	case Question, LParen, RParen:
		return 0
	default:
		return 1
	}
}

func (t Token) String() string {
	switch t.Kind {
	case Number:
		return strconv.FormatFloat(t.Value, 'g', -1, 64)
	case Operator:
		return t.Op.String()
	case Function:
		return t.Func.String()
	case Identifier:
		return "$" + strconv.Itoa(t.Index)
	case VarPointer:
		return "&" + strconv.Itoa(t.Index)
	case StringLit:
		return "str#" + strconv.Itoa(t.Index)
	case ArrayLit:
		return "arr#" + strconv.Itoa(t.Index-ArrayOffset)
	default:
		return t.Kind.String()
	}
}
