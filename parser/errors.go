package parser

import (
	"errors"
	"fmt"
)

var (
	ErrUnexpectedToken       = errors.New("unexpected token")
	ErrUnterminatedString    = errors.New("unterminated string")
	ErrUnterminatedArray     = errors.New("unterminated array literal")
	ErrUnmatchedOpeningParen = errors.New("unmatched opening parenthesis '('")
	ErrUnmatchedClosingParen = errors.New("unmatched closing parenthesis ')'")
	ErrEmptyExpression       = errors.New("empty expression")
	ErrMissingOperand        = errors.New("missing operand")
	ErrTooManyOperands       = errors.New("too many operands")
	ErrStackOverflow         = errors.New("expression too deep")
)

// Error is a compile diagnostic. Pos is a byte offset into the source
// handed to the compiler, or -1 when no position applies.
type Error struct {
	Kind error
	Msg  string
	Pos  int
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Pos < 0 {
		return msg
	}
	return fmt.Sprintf("%s at offset %d", msg, e.Pos)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// LineCol converts Pos into a 1-based line and column of src.
func (e *Error) LineCol(src string) (line, col int) {
	line, col = 1, 1
	if e.Pos < 0 {
		return 0, 0
	}
	for i := 0; i < e.Pos && i < len(src); i++ {
		if src[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

func errAt(kind error, pos int, format string, args ...any) *Error {
	msg := ""
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Msg: msg, Pos: pos}
}

// shift moves a diagnostic produced for a statement into whole-program
// coordinates.
func shift(err error, offset int) error {
	var pe *Error
	if !errors.As(err, &pe) {
		return err
	}
	out := *pe
	if out.Pos >= 0 {
		out.Pos += offset
	}
	return &out
}
