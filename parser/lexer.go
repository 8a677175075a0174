package parser

import (
	"strconv"
	"strings"

	"github.com/gosuda/bytebeat/rpn"
)

type lexer struct {
	src   string
	pos   int
	syms  *rpn.Symbols
	pools *rpn.Pools
	toks  []rpn.Token
	// expectOperand is true where a value must come next, which is where
	// '-' and '!' are unary and '[' opens an array literal.
	expectOperand bool
}

// Tokenize scans src into tokens. Identifiers are resolved against syms and
// literals are appended to pools.
func Tokenize(src string, syms *rpn.Symbols, pools *rpn.Pools) ([]rpn.Token, error) {
	lx := &lexer{
		src:           src,
		syms:          syms,
		pools:         pools,
		toks:          make([]rpn.Token, 0, len(src)/2+1),
		expectOperand: true,
	}
	for lx.pos < len(lx.src) {
		if err := lx.next(); err != nil {
			return nil, err
		}
	}
	return lx.toks, nil
}

func (lx *lexer) emit(tok rpn.Token, expectOperand bool) {
	lx.toks = append(lx.toks, tok)
	lx.expectOperand = expectOperand
}

func (lx *lexer) next() error {
	c := lx.src[lx.pos]
	start := lx.pos
	switch {
	case isSpace(c):
		lx.pos++
		return nil
	case isDigit(c):
		lx.lexNumber()
		return nil
	case isIdentStart(c):
		lx.lexIdent()
		return nil
	case c == '"' || c == '\'':
		return lx.lexString()
	}

	switch c {
	case '[':
		if lx.expectOperand {
			return lx.lexArray()
		}
		lx.emit(rpn.OpTok(rpn.Index, start), true)
		lx.emit(rpn.ParenTok(rpn.LParen, start), true)
		lx.pos++
		return nil
	case ']', ')':
		lx.emit(rpn.ParenTok(rpn.RParen, start), false)
		lx.pos++
		return nil
	case '(':
		lx.emit(rpn.ParenTok(rpn.LParen, start), true)
		lx.pos++
		return nil
	case '?':
		lx.emit(rpn.ParenTok(rpn.Question, start), true)
		lx.pos++
		return nil
	case ':':
		lx.emit(rpn.ParenTok(rpn.Colon, start), true)
		lx.pos++
		return nil
	case '~':
		lx.emit(rpn.OpTok(rpn.BitNot, start), true)
		lx.pos++
		return nil
	case '.':
		return lx.lexAccessor()
	}

	if lx.expectOperand && (c == '-' || c == '!') {
		op := rpn.Neg
		if c == '!' {
			op = rpn.BitNot
		}
		lx.emit(rpn.OpTok(op, start), true)
		lx.pos++
		return nil
	}
	if lx.pos+1 < len(lx.src) {
		if op, ok := doubleOps[lx.src[lx.pos:lx.pos+2]]; ok {
			lx.emit(rpn.OpTok(op, start), true)
			lx.pos += 2
			return nil
		}
	}
	if op, ok := singleOps[c]; ok {
		lx.emit(rpn.OpTok(op, start), true)
		lx.pos++
		return nil
	}
	return errAt(ErrUnexpectedToken, start, "unexpected token '%c'", c)
}

var doubleOps = map[string]rpn.Op{
	"<<": rpn.Shl,
	">>": rpn.Shr,
	"<=": rpn.LE,
	">=": rpn.GE,
	"==": rpn.EQ,
	"!=": rpn.NE,
}

var singleOps = map[byte]rpn.Op{
	'+': rpn.Add,
	'-': rpn.Sub,
	'*': rpn.Mul,
	'/': rpn.Div,
	'%': rpn.Mod,
	'&': rpn.And,
	'|': rpn.Or,
	'^': rpn.Xor,
	'<': rpn.LT,
	'>': rpn.GT,
	'=': rpn.Assign,
	',': rpn.Comma,
}

// lexNumber accumulates digits one at a time, so 0.1 lexes as 1*0.1 and
// not as the nearest float64 to 0.1.
func (lx *lexer) lexNumber() {
	start := lx.pos
	v := 0.0
	for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
		v = v*10 + float64(lx.src[lx.pos]-'0')
		lx.pos++
	}
	if lx.pos < len(lx.src) && lx.src[lx.pos] == '.' &&
		(lx.pos+1 >= len(lx.src) || !isIdentStart(lx.src[lx.pos+1])) {
		lx.pos++
		frac := 0.1
		for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
			v += float64(lx.src[lx.pos]-'0') * frac
			frac *= 0.1
			lx.pos++
		}
	}
	lx.emit(rpn.NumberTok(v, start), false)
}

func (lx *lexer) lexIdent() {
	start := lx.pos
	for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
		lx.pos++
	}
	name := lx.src[start:lx.pos]
	if name == "t" {
		lx.emit(rpn.TimeTok(start), false)
		return
	}
	if f, ok := rpn.LookupFunc(name); ok {
		lx.emit(rpn.FuncTok(f, start), true)
		return
	}
	slot := lx.syms.Slot(name)
	if lx.assignFollows() {
		lx.emit(rpn.PointerTok(slot, start), false)
		return
	}
	lx.emit(rpn.IdentTok(slot, start), false)
}

// assignFollows reports whether the next non-space byte is a lone '='.
func (lx *lexer) assignFollows() bool {
	j := lx.pos
	for j < len(lx.src) && isSpace(lx.src[j]) {
		j++
	}
	return j < len(lx.src) && lx.src[j] == '=' && (j+1 >= len(lx.src) || lx.src[j+1] != '=')
}

func (lx *lexer) lexString() error {
	start := lx.pos
	end := closingQuote(lx.src, start)
	if end < 0 {
		return errAt(ErrUnterminatedString, start, "")
	}
	idx := lx.pools.AddString(lx.src[start+1 : end])
	lx.emit(rpn.StringTok(idx, start), false)
	lx.pos = end + 1
	return nil
}

func (lx *lexer) lexArray() error {
	start := lx.pos
	lx.pos++
	vals := []float64{}
	for {
		if lx.pos >= len(lx.src) {
			return errAt(ErrUnterminatedArray, start, "")
		}
		c := lx.src[lx.pos]
		switch {
		case c == ']':
			lx.pos++
			idx := lx.pools.AddArray(vals)
			lx.emit(rpn.ArrayTok(idx, start), false)
			return nil
		case isSpace(c) || c == ',':
			lx.pos++
		case isDigit(c) || c == '-' || c == '+' || c == '.':
			numStart := lx.pos
			lx.pos = scanFloat(lx.src, lx.pos)
			v, err := strconv.ParseFloat(lx.src[numStart:lx.pos], 64)
			if err != nil {
				return errAt(ErrUnexpectedToken, numStart, "invalid array element %q", lx.src[numStart:lx.pos])
			}
			vals = append(vals, v)
		default:
			return errAt(ErrUnexpectedToken, lx.pos, "unexpected token '%c' in array literal", c)
		}
	}
}

// scanFloat returns the end of a signed decimal starting at i.
func scanFloat(src string, i int) int {
	if i < len(src) && (src[i] == '-' || src[i] == '+') {
		i++
	}
	for i < len(src) && isDigit(src[i]) {
		i++
	}
	if i < len(src) && src[i] == '.' {
		i++
		for i < len(src) && isDigit(src[i]) {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '-' || src[j] == '+') {
			j++
		}
		if j < len(src) && isDigit(src[j]) {
			for j < len(src) && isDigit(src[j]) {
				j++
			}
			i = j
		}
	}
	return i
}

var accessors = []struct {
	name string
	op   rpn.Op
	// expectOperand after the accessor: .charCodeAt takes a parenthesised
	// argument, .length is complete on its own.
	expectOperand bool
}{
	{".charCodeAt", rpn.CharCodeAt, true},
	{".length", rpn.Length, false},
}

func (lx *lexer) lexAccessor() error {
	start := lx.pos
	if !lx.expectOperand {
		rest := lx.src[lx.pos:]
		for _, a := range accessors {
			if !strings.HasPrefix(rest, a.name) {
				continue
			}
			end := lx.pos + len(a.name)
			if end < len(lx.src) && isIdentPart(lx.src[end]) {
				break
			}
			lx.emit(rpn.OpTok(a.op, start), a.expectOperand)
			lx.pos = end
			return nil
		}
	}
	return errAt(ErrUnexpectedToken, start, "unexpected token '.'")
}
