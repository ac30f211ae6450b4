package object

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
)

// method binds a native member to its receiver.
func method(name string, fn BuiltinFunction) *Builtin {
	return NewBuiltin(name, fn)
}

// intArg converts args[i] to an integer, using def when it is undefined.
func intArg(args []Object, i int, def int) int {
	v := Arg(args, i)
	if _, ok := v.(*UndefinedType); ok {
		return def
	}
	f := ToNumber(v)
	switch {
	case math.IsNaN(f):
		return 0
	case math.IsInf(f, 1) || f > math.MaxInt32:
		return math.MaxInt32
	case math.IsInf(f, -1) || f < math.MinInt32:
		return math.MinInt32
	}
	return int(math.Trunc(f))
}

// relative resolves a possibly negative index against length n.
func relative(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			return 0
		}
	}
	if i > n {
		return n
	}
	return i
}

func arrayMethod(a *Array, name string) *Builtin {
	switch name {
	case "push":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			a.Append(args...)
			return NewNumber(float64(a.Len())), nil
		})
	case "pop":
		return method(name, func(context.Context, ...Object) (Object, error) {
			return a.Pop(), nil
		})
	case "shift":
		return method(name, func(context.Context, ...Object) (Object, error) {
			return a.Shift(), nil
		})
	case "unshift":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			a.items = append(append([]Object{}, args...), a.items...)
			return NewNumber(float64(a.Len())), nil
		})
	case "slice":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			n := a.Len()
			start := relative(intArg(args, 0, 0), n)
			end := relative(intArg(args, 1, n), n)
			if end < start {
				end = start
			}
			return NewArray(append([]Object{}, a.items[start:end]...)), nil
		})
	case "concat":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			out := append([]Object{}, a.items...)
			for _, arg := range args {
				if other, ok := arg.(*Array); ok {
					out = append(out, other.items...)
				} else {
					out = append(out, arg)
				}
			}
			return NewArray(out), nil
		})
	case "join":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			sep := ","
			if v := Arg(args, 0); !IsNullish(v) {
				sep = ToString(v)
			}
			parts := make([]string, a.Len())
			for i, item := range a.items {
				if !IsNullish(item) {
					parts[i] = ToString(item)
				}
			}
			return NewString(strings.Join(parts, sep)), nil
		})
	case "indexOf":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			target := Arg(args, 0)
			for i, item := range a.items {
				if StrictEquals(item, target) {
					return NewNumber(float64(i)), nil
				}
			}
			return NewNumber(-1), nil
		})
	case "includes":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			key := setKey(Arg(args, 0))
			for _, item := range a.items {
				if setKey(item) == key {
					return True, nil
				}
			}
			return False, nil
		})
	case "reverse":
		return method(name, func(context.Context, ...Object) (Object, error) {
			for i, j := 0, len(a.items)-1; i < j; i, j = i+1, j-1 {
				a.items[i], a.items[j] = a.items[j], a.items[i]
			}
			return a, nil
		})
	case "map":
		return method(name, func(ctx context.Context, args ...Object) (Object, error) {
			fn := Arg(args, 0)
			out := make([]Object, 0, a.Len())
			for i, item := range a.items {
				v, err := Call(ctx, fn, item, NewNumber(float64(i)), a)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			return NewArray(out), nil
		})
	case "filter":
		return method(name, func(ctx context.Context, args ...Object) (Object, error) {
			fn := Arg(args, 0)
			var out []Object
			for i, item := range a.items {
				v, err := Call(ctx, fn, item, NewNumber(float64(i)), a)
				if err != nil {
					return nil, err
				}
				if Truthy(v) {
					out = append(out, item)
				}
			}
			return NewArray(out), nil
		})
	case "forEach":
		return method(name, func(ctx context.Context, args ...Object) (Object, error) {
			fn := Arg(args, 0)
			for i, item := range a.items {
				if _, err := Call(ctx, fn, item, NewNumber(float64(i)), a); err != nil {
					return nil, err
				}
			}
			return Undefined, nil
		})
	case "find", "findIndex", "some", "every":
		return method(name, func(ctx context.Context, args ...Object) (Object, error) {
			fn := Arg(args, 0)
			for i, item := range a.items {
				v, err := Call(ctx, fn, item, NewNumber(float64(i)), a)
				if err != nil {
					return nil, err
				}
				hit := Truthy(v)
				switch {
				case name == "find" && hit:
					return item, nil
				case name == "findIndex" && hit:
					return NewNumber(float64(i)), nil
				case name == "some" && hit:
					return True, nil
				case name == "every" && !hit:
					return False, nil
				}
			}
			switch name {
			case "find":
				return Undefined, nil
			case "findIndex":
				return NewNumber(-1), nil
			}
			return NewBool(name == "every"), nil
		})
	case "reduce":
		return method(name, func(ctx context.Context, args ...Object) (Object, error) {
			fn := Arg(args, 0)
			items := a.items
			var acc Object
			if len(args) > 1 {
				acc = args[1]
			} else {
				if len(items) == 0 {
					return nil, TypeErrorf("Reduce of empty array with no initial value")
				}
				acc, items = items[0], items[1:]
			}
			offset := a.Len() - len(items)
			for i, item := range items {
				v, err := Call(ctx, fn, acc, item, NewNumber(float64(i+offset)), a)
				if err != nil {
					return nil, err
				}
				acc = v
			}
			return acc, nil
		})
	case "sort":
		return method(name, func(ctx context.Context, args ...Object) (Object, error) {
			fn := Arg(args, 0)
			var sortErr error
			sort.SliceStable(a.items, func(i, j int) bool {
				if sortErr != nil {
					return false
				}
				x, y := a.items[i], a.items[j]
				if IsNullish(fn) {
					return ToString(x) < ToString(y)
				}
				v, err := Call(ctx, fn, x, y)
				if err != nil {
					sortErr = err
					return false
				}
				return ToNumber(v) < 0
			})
			if sortErr != nil {
				return nil, sortErr
			}
			return a, nil
		})
	}
	return nil
}

func stringMethod(s *String, name string) *Builtin {
	runes := func() []rune { return []rune(s.value) }
	switch name {
	case "charAt":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			if ch, ok := s.At(intArg(args, 0, 0)); ok {
				return ch, nil
			}
			return NewString(""), nil
		})
	case "charCodeAt":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			r := runes()
			i := intArg(args, 0, 0)
			if i < 0 || i >= len(r) {
				return NewNumber(math.NaN()), nil
			}
			return NewNumber(float64(r[i])), nil
		})
	case "indexOf", "lastIndexOf":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			sub := ToString(Arg(args, 0))
			var i int
			if name == "indexOf" {
				i = strings.Index(s.value, sub)
			} else {
				i = strings.LastIndex(s.value, sub)
			}
			if i < 0 {
				return NewNumber(-1), nil
			}
			return NewNumber(float64(len([]rune(s.value[:i])))), nil
		})
	case "includes":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			return NewBool(strings.Contains(s.value, ToString(Arg(args, 0)))), nil
		})
	case "startsWith":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			return NewBool(strings.HasPrefix(s.value, ToString(Arg(args, 0)))), nil
		})
	case "endsWith":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			return NewBool(strings.HasSuffix(s.value, ToString(Arg(args, 0)))), nil
		})
	case "slice":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			r := runes()
			start := relative(intArg(args, 0, 0), len(r))
			end := relative(intArg(args, 1, len(r)), len(r))
			if end < start {
				end = start
			}
			return NewString(string(r[start:end])), nil
		})
	case "substring":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			r := runes()
			clamp := func(i int) int { return max(0, min(i, len(r))) }
			start := clamp(intArg(args, 0, 0))
			end := clamp(intArg(args, 1, len(r)))
			if start > end {
				start, end = end, start
			}
			return NewString(string(r[start:end])), nil
		})
	case "toUpperCase":
		return method(name, func(context.Context, ...Object) (Object, error) {
			return NewString(strings.ToUpper(s.value)), nil
		})
	case "toLowerCase":
		return method(name, func(context.Context, ...Object) (Object, error) {
			return NewString(strings.ToLower(s.value)), nil
		})
	case "trim":
		return method(name, func(context.Context, ...Object) (Object, error) {
			return NewString(strings.TrimSpace(s.value)), nil
		})
	case "split":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			sep := Arg(args, 0)
			if IsNullish(sep) {
				return NewArray([]Object{s}), nil
			}
			parts := strings.Split(s.value, ToString(sep))
			if ToString(sep) == "" {
				parts = parts[:0]
				for _, r := range s.value {
					parts = append(parts, string(r))
				}
			}
			out := make([]Object, len(parts))
			for i, p := range parts {
				out[i] = NewString(p)
			}
			return NewArray(out), nil
		})
	case "repeat":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			n := intArg(args, 0, 0)
			if n < 0 {
				return nil, RangeErrorf("Invalid count value: %d", n)
			}
			return NewString(strings.Repeat(s.value, n)), nil
		})
	case "toString":
		return method(name, func(context.Context, ...Object) (Object, error) {
			return s, nil
		})
	}
	return nil
}

func numberMethod(n *Number, name string) *Builtin {
	switch name {
	case "toString":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			radix := intArg(args, 0, 10)
			if radix == 10 || n.value != math.Trunc(n.value) {
				return NewString(FormatNumber(n.value)), nil
			}
			if radix < 2 || radix > 36 {
				return nil, RangeErrorf("toString() radix must be between 2 and 36")
			}
			return NewString(strconv.FormatInt(int64(n.value), radix)), nil
		})
	case "toFixed":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			digits := intArg(args, 0, 0)
			if digits < 0 || digits > 100 {
				return nil, RangeErrorf("toFixed() digits argument must be between 0 and 100")
			}
			return NewString(strconv.FormatFloat(n.value, 'f', digits, 64)), nil
		})
	}
	return nil
}

func mapMethod(m *Map, name string) *Builtin {
	if name == "hasOwnProperty" {
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			return NewBool(m.Has(ToString(Arg(args, 0)))), nil
		})
	}
	return nil
}

func closureMethod(c *Closure, name string) *Builtin {
	switch name {
	case "bind":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			return c.Bind(Arg(args, 0)), nil
		})
	case "call":
		return method(name, func(ctx context.Context, args ...Object) (Object, error) {
			var rest []Object
			if len(args) > 1 {
				rest = args[1:]
			}
			return c.Bind(Arg(args, 0)).Call(ctx, rest...)
		})
	case "apply":
		return method(name, func(ctx context.Context, args ...Object) (Object, error) {
			var rest []Object
			if arr, ok := Arg(args, 1).(*Array); ok {
				rest = arr.items
			}
			return c.Bind(Arg(args, 0)).Call(ctx, rest...)
		})
	}
	return nil
}

func setMethod(s *Set, name string) *Builtin {
	switch name {
	case "add":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			s.Add(Arg(args, 0))
			return s, nil
		})
	case "has":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			return NewBool(s.Has(Arg(args, 0))), nil
		})
	case "delete":
		return method(name, func(_ context.Context, args ...Object) (Object, error) {
			return NewBool(s.Delete(Arg(args, 0))), nil
		})
	}
	return nil
}
