package parser

import (
	"github.com/gosuda/bytebeat/rpn"
)

const (
	precTernary = 2
	precPrefix  = 12
)

// precedence of a token sitting on the operator stack.
func precedence(t rpn.Token) int {
	switch t.Kind {
	case rpn.Function:
		return precPrefix
	case rpn.Question, rpn.Colon:
		return precTernary
	case rpn.Operator:
		return t.Op.Precedence()
	default:
		return 0
	}
}

func isAccessor(t rpn.Token) bool {
	return t.Kind == rpn.Operator && (t.Op == rpn.Index || t.Op == rpn.CharCodeAt)
}

func isOp(t rpn.Token, op rpn.Op) bool {
	return t.Kind == rpn.Operator && t.Op == op
}

type shunter struct {
	out   rpn.Expr
	stack []rpn.Token
}

func (s *shunter) top() (rpn.Token, bool) {
	if len(s.stack) == 0 {
		return rpn.Token{}, false
	}
	return s.stack[len(s.stack)-1], true
}

func (s *shunter) pop() rpn.Token {
	t := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return t
}

func (s *shunter) push(t rpn.Token) {
	s.stack = append(s.stack, t)
}

// popWhile moves operators to the output while keep holds for the top of
// the stack. It never crosses an opening parenthesis.
func (s *shunter) popWhile(keep func(rpn.Token) bool) {
	for {
		top, ok := s.top()
		if !ok || top.Kind == rpn.LParen || !keep(top) {
			return
		}
		s.out = append(s.out, s.pop())
	}
}

// Parse converts infix tokens into postfix order and verifies that the
// result is well formed before it can ever be evaluated.
func Parse(tokens []rpn.Token) (rpn.Expr, error) {
	s := &shunter{
		out:   make(rpn.Expr, 0, len(tokens)),
		stack: make([]rpn.Token, 0, 16),
	}
	for _, tok := range tokens {
		if err := s.feed(tok); err != nil {
			return nil, err
		}
	}
	for len(s.stack) > 0 {
		t := s.pop()
		if t.Kind == rpn.LParen {
			return nil, errAt(ErrUnmatchedOpeningParen, t.Pos, "")
		}
		s.out = append(s.out, t)
	}
	if len(s.out) == 0 {
		pos := 0
		if len(tokens) > 0 {
			pos = tokens[0].Pos
		}
		return nil, errAt(ErrEmptyExpression, pos, "")
	}
	if err := checkArity(s.out); err != nil {
		return nil, err
	}
	return s.out, nil
}

func (s *shunter) feed(tok rpn.Token) error {
	switch {
	case tok.Kind.IsOperand():
		s.out = append(s.out, tok)

	case tok.Kind == rpn.Function || tok.Kind == rpn.LParen:
		s.push(tok)

	case tok.Kind == rpn.RParen:
		return s.closeParen(tok)

	case isOp(tok, rpn.Length):
		// postfix on the operand already emitted
		s.out = append(s.out, tok)

	case isOp(tok, rpn.Comma):
		s.popWhile(func(rpn.Token) bool { return true })
		if !s.inArgumentList() {
			s.push(tok)
		}

	case tok.Kind == rpn.Question:
		// right associative so a nested condition in the false branch
		// groups like JavaScript
		s.popWhile(func(top rpn.Token) bool { return precedence(top) > precTernary })
		s.push(tok)

	case tok.Kind == rpn.Colon:
		s.popWhile(func(top rpn.Token) bool { return top.Kind != rpn.Question })
		if top, ok := s.top(); ok && top.Kind == rpn.Question {
			s.out = append(s.out, s.pop())
		}
		s.push(tok)

	case tok.Kind == rpn.Operator && (tok.Op.Unary() || isAccessor(tok)):
		// prefix operators and accessors have no left operand to reduce
		s.push(tok)

	case isOp(tok, rpn.Assign):
		s.popWhile(func(top rpn.Token) bool { return precedence(top) > rpn.Assign.Precedence() })
		s.push(tok)

	case tok.Kind == rpn.Operator:
		prec := tok.Op.Precedence()
		s.popWhile(func(top rpn.Token) bool { return precedence(top) >= prec })
		s.push(tok)

	default:
		return errAt(ErrUnexpectedToken, tok.Pos, "unexpected %s", tok.Kind)
	}
	return nil
}

func (s *shunter) closeParen(tok rpn.Token) error {
	for {
		top, ok := s.top()
		if !ok {
			return errAt(ErrUnmatchedClosingParen, tok.Pos, "")
		}
		s.pop()
		if top.Kind == rpn.LParen {
			break
		}
		s.out = append(s.out, top)
	}
	if top, ok := s.top(); ok && (top.Kind == rpn.Function || isAccessor(top)) {
		s.out = append(s.out, s.pop())
	}
	return nil
}

// inArgumentList reports whether the innermost open parenthesis belongs to
// a function call or an index, in which case a comma separates arguments.
func (s *shunter) inArgumentList() bool {
	n := len(s.stack)
	if n < 2 || s.stack[n-1].Kind != rpn.LParen {
		return false
	}
	owner := s.stack[n-2]
	return owner.Kind == rpn.Function || isAccessor(owner)
}

// checkArity simulates the stack depth of expr.
func checkArity(expr rpn.Expr) error {
	depth, high := 0, 0
	for _, t := range expr {
		need := t.Needs()
		if depth < need {
			return errAt(ErrMissingOperand, t.Pos, "missing operand for %s", t)
		}
		depth += t.Yields() - need
		if depth > high {
			high = depth
		}
	}
	last := expr[len(expr)-1]
	switch {
	case depth == 0:
		return errAt(ErrMissingOperand, last.Pos, "")
	case depth > 1:
		return errAt(ErrTooManyOperands, extraOperand(expr), "")
	case high >= rpn.StackSize:
		return errAt(ErrStackOverflow, expr[0].Pos, "expression needs %d stack slots, limit is %d", high, rpn.StackSize-1)
	}
	return nil
}

// extraOperand finds the source position of the first value that is never
// consumed, which is where the missing operator belongs.
func extraOperand(expr rpn.Expr) int {
	type entry struct{ pos int }
	stack := make([]entry, 0, 8)
	for _, t := range expr {
		need := t.Needs()
		pos := t.Pos
		if need > 0 {
			if first := stack[len(stack)-need]; first.pos < pos {
				pos = first.pos
			}
			stack = stack[:len(stack)-need]
		}
		if t.Yields() > 0 {
			stack = append(stack, entry{pos: pos})
		}
	}
	if len(stack) > 1 {
		return stack[1].pos
	}
	return expr[len(expr)-1].Pos
}
