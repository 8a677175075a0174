package bbruntime

import (
	"math"
	"math/rand/v2"

	"github.com/gosuda/bytebeat/rpn"
)

const (
	two32 = 4294967296.0
	two64 = 18446744073709551616.0
)

// toInt32 truncates like a JavaScript ToInt32: NaN and infinities become 0
// and out of range values wrap modulo 2^32.
func toInt32(v float64) int32 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	v = math.Trunc(v)
	if v >= math.MinInt32 && v <= math.MaxInt32 {
		return int32(v)
	}
	m := math.Mod(v, two32)
	if m < 0 {
		m += two32
	}
	return int32(uint32(m))
}

func toInt64(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	v = math.Trunc(v)
	if v >= -9.2e18 && v <= 9.2e18 {
		return int64(v)
	}
	m := math.Mod(v, two64)
	if m < 0 {
		m += two64
	}
	return int64(uint64(m))
}

// Sample maps an evaluated value to an unsigned 8-bit sample.
func Sample(v float64) uint8 {
	return uint8(toInt32(v) & 0xFF)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// evalExpr runs one postfix expression. It never fails: missing operands
// leave the stack untouched and a full stack ends evaluation early.
func evalExpr(expr rpn.Expr, t uint32, mem []float64, pools *rpn.Pools, stack *[rpn.StackSize]float64) float64 {
	sp := -1
	for _, tok := range expr {
		if sp >= rpn.StackSize-1 {
			break
		}
		switch tok.Kind {
		case rpn.Number:
			sp++
			stack[sp] = tok.Value
		case rpn.TimeVar:
			sp++
			stack[sp] = float64(t)
		case rpn.Identifier:
			sp++
			if tok.Index >= 0 && tok.Index < len(mem) {
				stack[sp] = mem[tok.Index]
			} else {
				stack[sp] = 0
			}
		case rpn.StringLit, rpn.ArrayLit, rpn.VarPointer:
			sp++
			stack[sp] = float64(tok.Index)
		case rpn.Function:
			sp = evalFunc(tok.Func, stack, sp)
		case rpn.Colon:
			if sp >= 2 {
				f := stack[sp]
				v := stack[sp-1]
				sp -= 2
				if stack[sp] != 0 {
					stack[sp] = v
				} else {
					stack[sp] = f
				}
			}
		case rpn.Question:
		case rpn.Operator:
			sp = evalOp(tok.Op, stack, sp, mem, pools)
		}
	}
	if sp < 0 {
		return 0
	}
	return stack[sp]
}

func evalFunc(f rpn.Func, stack *[rpn.StackSize]float64, sp int) int {
	if f == rpn.Random {
		sp++
		stack[sp] = rand.Float64()
		return sp
	}
	if f == rpn.Pow {
		if sp >= 1 {
			stack[sp-1] = math.Pow(stack[sp-1], stack[sp])
			sp--
		}
		return sp
	}
	if sp < 0 {
		return sp
	}
	v := stack[sp]
	switch f {
	case rpn.Sin:
		v = math.Sin(v)
	case rpn.Cos:
		v = math.Cos(v)
	case rpn.Tan:
		v = math.Tan(v)
	case rpn.Abs:
		v = math.Abs(v)
	case rpn.Floor:
		v = math.Floor(v)
	}
	stack[sp] = v
	return sp
}

func evalOp(op rpn.Op, stack *[rpn.StackSize]float64, sp int, mem []float64, pools *rpn.Pools) int {
	switch op {
	case rpn.Neg:
		if sp >= 0 {
			stack[sp] = -stack[sp]
		}
		return sp
	case rpn.BitNot:
		// 64-bit, unlike the other bitwise ops: ~2147483648 is -2147483649
		if sp >= 0 {
			stack[sp] = float64(^toInt64(stack[sp]))
		}
		return sp
	case rpn.Length:
		if sp >= 0 {
			stack[sp] = float64(pools.Len(int(toInt32(stack[sp]))))
		}
		return sp
	}
	if sp < 1 {
		return sp
	}
	b := stack[sp]
	sp--
	a := stack[sp]
	switch op {
	case rpn.Assign:
		slot := int(toInt32(a))
		if slot >= 0 && slot < len(mem) {
			mem[slot] = b
		}
		stack[sp] = b
	case rpn.Index, rpn.CharCodeAt:
		stack[sp] = pools.Element(int(toInt32(a)), int(toInt32(b)))
	case rpn.Comma:
		stack[sp] = b
	default:
		stack[sp] = arith(op, a, b)
	}
	return sp
}

func arith(op rpn.Op, a, b float64) float64 {
	switch op {
	case rpn.Add:
		return a + b
	case rpn.Sub:
		return a - b
	case rpn.Mul:
		return a * b
	case rpn.Div:
		if b == 0 {
			return 0
		}
		return a / b
	case rpn.Mod:
		if b == 0 {
			return 0
		}
		return math.Mod(a, b)
	case rpn.And:
		return float64(toInt32(a) & toInt32(b))
	case rpn.Or:
		return float64(toInt32(a) | toInt32(b))
	case rpn.Xor:
		return float64(toInt32(a) ^ toInt32(b))
	case rpn.Shl:
		return float64(toInt32(a) << (uint32(toInt32(b)) & 0x1F))
	case rpn.Shr:
		return float64(toInt32(a) >> (uint32(toInt32(b)) & 0x1F))
	case rpn.LT:
		return boolValue(a < b)
	case rpn.GT:
		return boolValue(a > b)
	case rpn.LE:
		return boolValue(a <= b)
	case rpn.GE:
		return boolValue(a >= b)
	case rpn.EQ:
		return boolValue(a == b)
	case rpn.NE:
		return boolValue(a != b)
	default:
		return a
	}
}
