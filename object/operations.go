package object

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/daedalus-js/daedalus/op"
)

// FormatNumber renders f the way JavaScript's Number.prototype.toString
// does for radix 10.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	sign := ""
	if f < 0 {
		sign = "-"
		f = -f
	}
	// Shortest round-trip digits and decimal exponent.
	e := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(e, "e")
	digits := strings.Replace(mant, ".", "", 1)
	x, _ := strconv.Atoi(exp)
	n := x + 1
	k := len(digits)
	switch {
	case k <= n && n <= 21:
		return sign + digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return sign + digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return sign + "0." + strings.Repeat("0", -n) + digits
	}
	expSign := "+"
	if n-1 < 0 {
		expSign = "-"
	}
	m := digits[:1]
	if k > 1 {
		m += "." + digits[1:]
	}
	return sign + m + "e" + expSign + strconv.Itoa(abs(n-1))
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

// Truthy reports the boolean value of obj.
func Truthy(obj Object) bool {
	switch v := obj.(type) {
	case nil, *UndefinedType, *NullType:
		return false
	case *Bool:
		return v.value
	case *Number:
		return v.value != 0 && !math.IsNaN(v.value)
	case *String:
		return v.value != ""
	case *Cell:
		return Truthy(v.Value())
	}
	return true
}

// TypeOf returns the result of the typeof operator.
func TypeOf(obj Object) string {
	switch obj.(type) {
	case nil, *UndefinedType:
		return "undefined"
	case *Bool:
		return "boolean"
	case *Number:
		return "number"
	case *String:
		return "string"
	case *Closure, *Builtin:
		return "function"
	}
	return "object"
}

// ToPrimitive converts containers to their string form and leaves
// primitive values unchanged.
func ToPrimitive(obj Object) Object {
	switch v := obj.(type) {
	case nil:
		return Undefined
	case *UndefinedType, *NullType, *Bool, *Number, *String:
		return obj
	case *Cell:
		return ToPrimitive(v.Value())
	}
	return NewString(ToString(obj))
}

// ToString converts obj to a string.
func ToString(obj Object) string {
	switch v := obj.(type) {
	case nil, *UndefinedType:
		return "undefined"
	case *NullType:
		return "null"
	case *Bool:
		return strconv.FormatBool(v.value)
	case *Number:
		return FormatNumber(v.value)
	case *String:
		return v.value
	case *Array:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			if !IsNullish(item) {
				parts[i] = ToString(item)
			}
		}
		return strings.Join(parts, ",")
	case *Tuple:
		parts := make([]string, len(v.items))
		for i, item := range v.items {
			parts[i] = ToString(item)
		}
		return strings.Join(parts, ",")
	case *Map, *Scope:
		return "[object Object]"
	case *Set:
		return "[object Set]"
	case *Promise:
		return "[object Promise]"
	case *Cell:
		return ToString(v.Value())
	}
	return obj.Inspect()
}

// ToNumber converts obj to a number.
func ToNumber(obj Object) float64 {
	switch v := obj.(type) {
	case nil, *UndefinedType:
		return math.NaN()
	case *NullType:
		return 0
	case *Bool:
		if v.value {
			return 1
		}
		return 0
	case *Number:
		return v.value
	case *String:
		return StringToNumber(v.value)
	case *Array, *Tuple:
		return StringToNumber(ToString(obj))
	case *Cell:
		return ToNumber(v.Value())
	}
	return math.NaN()
}

// StringToNumber parses s as a numeric string. Surrounding whitespace is
// ignored, the empty string is 0 and anything unparseable is NaN.
func StringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			u, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(u)
		}
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789.eE+-", r) {
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}

// ToInt32 converts f with the wrapping semantics of the bitwise operators.
func ToInt32(f float64) int32 {
	return int32(ToUint32(f))
}

func ToUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(f), 4294967296)
	if m < 0 {
		m += 4294967296
	}
	return uint32(m)
}

// ToIndex converts obj to an array index if it is a non-negative integer
// number or the canonical string form of one.
func ToIndex(obj Object) (int, bool) {
	switch v := obj.(type) {
	case *Number:
		f := v.value
		if f >= 0 && f == math.Trunc(f) && f < math.MaxInt32 {
			return int(f), true
		}
	case *String:
		i, err := strconv.Atoi(v.value)
		if err == nil && i >= 0 && i < math.MaxInt32 && strconv.Itoa(i) == v.value {
			return i, true
		}
	}
	return 0, false
}

// BinaryOp applies a binary arithmetic, bitwise, comparison or equality
// opcode to a and b.
func BinaryOp(code op.Code, a, b Object) (Object, error) {
	switch code {
	case op.Add:
		pa, pb := ToPrimitive(a), ToPrimitive(b)
		_, sa := pa.(*String)
		_, sb := pb.(*String)
		if sa || sb {
			return NewString(ToString(pa) + ToString(pb)), nil
		}
		return NewNumber(ToNumber(pa) + ToNumber(pb)), nil
	case op.Subtract:
		return NewNumber(ToNumber(a) - ToNumber(b)), nil
	case op.Multiply:
		return NewNumber(ToNumber(a) * ToNumber(b)), nil
	case op.Divide:
		return NewNumber(ToNumber(a) / ToNumber(b)), nil
	case op.Modulo:
		return NewNumber(math.Mod(ToNumber(a), ToNumber(b))), nil
	case op.Power:
		return NewNumber(pow(ToNumber(a), ToNumber(b))), nil
	case op.BitwiseAnd:
		return NewNumber(float64(ToInt32(ToNumber(a)) & ToInt32(ToNumber(b)))), nil
	case op.BitwiseOr:
		return NewNumber(float64(ToInt32(ToNumber(a)) | ToInt32(ToNumber(b)))), nil
	case op.BitwiseXor:
		return NewNumber(float64(ToInt32(ToNumber(a)) ^ ToInt32(ToNumber(b)))), nil
	case op.ShiftLeft:
		return NewNumber(float64(ToInt32(ToNumber(a)) << (ToUint32(ToNumber(b)) & 31))), nil
	case op.ShiftRight:
		return NewNumber(float64(ToInt32(ToNumber(a)) >> (ToUint32(ToNumber(b)) & 31))), nil
	case op.LessThan:
		c, ok := Compare(a, b)
		return NewBool(ok && c < 0), nil
	case op.LessThanOrEqual:
		c, ok := Compare(a, b)
		return NewBool(ok && c <= 0), nil
	case op.GreaterThan:
		c, ok := Compare(a, b)
		return NewBool(ok && c > 0), nil
	case op.GreaterThanOrEqual:
		c, ok := Compare(a, b)
		return NewBool(ok && c >= 0), nil
	case op.Equal:
		return NewBool(LooseEquals(a, b)), nil
	case op.NotEqual:
		return NewBool(!LooseEquals(a, b)), nil
	case op.StrictEqual:
		return NewBool(StrictEquals(a, b)), nil
	case op.StrictNotEqual:
		return NewBool(!StrictEquals(a, b)), nil
	case op.And:
		if !Truthy(a) {
			return a, nil
		}
		return b, nil
	case op.Or:
		if Truthy(a) {
			return a, nil
		}
		return b, nil
	}
	return nil, fmt.Errorf("%s is not a binary operator", code)
}

func pow(x, y float64) float64 {
	if math.IsNaN(y) || (math.Abs(x) == 1 && math.IsInf(y, 0)) {
		return math.NaN()
	}
	return math.Pow(x, y)
}

// UnaryOp applies a unary opcode to a.
func UnaryOp(code op.Code, a Object) (Object, error) {
	switch code {
	case op.Positive:
		return NewNumber(ToNumber(a)), nil
	case op.Negative:
		return NewNumber(-ToNumber(a)), nil
	case op.BitwiseNot:
		return NewNumber(float64(^ToInt32(ToNumber(a)))), nil
	case op.Not:
		return NewBool(!Truthy(a)), nil
	}
	return nil, fmt.Errorf("%s is not a unary operator", code)
}

// Compare orders a and b. Two strings compare lexicographically and
// everything else numerically. ok is false when either side is NaN.
func Compare(a, b Object) (result int, ok bool) {
	pa, pb := ToPrimitive(a), ToPrimitive(b)
	sa, aStr := pa.(*String)
	sb, bStr := pb.(*String)
	if aStr && bStr {
		return strings.Compare(sa.value, sb.value), true
	}
	x, y := ToNumber(pa), ToNumber(pb)
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return 0, false
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

func isPrimitive(obj Object) bool {
	switch obj.(type) {
	case *UndefinedType, *NullType, *Bool, *Number, *String:
		return true
	}
	return false
}

// LooseEquals implements ==.
func LooseEquals(a, b Object) bool {
	if a == nil {
		a = Undefined
	}
	if b == nil {
		b = Undefined
	}
	if a.Type() == b.Type() {
		return StrictEquals(a, b)
	}
	if IsNullish(a) || IsNullish(b) {
		return IsNullish(a) && IsNullish(b)
	}
	switch av := a.(type) {
	case *Bool:
		return LooseEquals(NewNumber(ToNumber(av)), b)
	case *Number:
		switch b.(type) {
		case *String:
			return av.value == ToNumber(b)
		case *Bool:
			return av.value == ToNumber(b)
		}
	case *String:
		switch b.(type) {
		case *Number, *Bool:
			return ToNumber(av) == ToNumber(b)
		}
	}
	if _, ok := b.(*Bool); ok {
		return LooseEquals(a, NewNumber(ToNumber(b)))
	}
	if isPrimitive(a) && !isPrimitive(b) {
		return LooseEquals(a, ToPrimitive(b))
	}
	if !isPrimitive(a) && isPrimitive(b) {
		return LooseEquals(ToPrimitive(a), b)
	}
	return false
}

// StrictEquals implements ===.
func StrictEquals(a, b Object) bool {
	if a == nil {
		a = Undefined
	}
	if b == nil {
		b = Undefined
	}
	switch av := a.(type) {
	case *UndefinedType:
		_, ok := b.(*UndefinedType)
		return ok
	case *NullType:
		_, ok := b.(*NullType)
		return ok
	case *Bool:
		bv, ok := b.(*Bool)
		return ok && av.value == bv.value
	case *Number:
		bv, ok := b.(*Number)
		return ok && av.value == bv.value
	case *String:
		bv, ok := b.(*String)
		return ok && av.value == bv.value
	}
	return a == b
}
