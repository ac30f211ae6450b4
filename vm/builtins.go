package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"github.com/daedalus-js/daedalus/object"
	"github.com/daedalus-js/daedalus/op"
)

// builtins returns the default globals installed in every VM.
func (vm *VirtualMachine) builtins() map[string]object.Object {
	fn := object.NewBuiltin
	globals := map[string]object.Object{
		"undefined": object.Undefined,
		"NaN":       object.NaN,
		"Infinity":  object.NewNumber(math.Inf(1)),

		"console": vm.console(),
		"Math":    mathObject(),
		"JSON":    jsonObject(),
		"Object":  objectConstructor(),
		"Array":   arrayConstructor(),
		"Promise": promiseConstructor(),

		"parseInt":   fn("parseInt", parseInt),
		"parseFloat": fn("parseFloat", parseFloat),
		"isNaN": fn("isNaN", func(_ context.Context, args ...object.Object) (object.Object, error) {
			return object.NewBool(math.IsNaN(object.ToNumber(object.Arg(args, 0)))), nil
		}),
		"String": fn("String", func(_ context.Context, args ...object.Object) (object.Object, error) {
			if len(args) == 0 {
				return object.NewString(""), nil
			}
			return object.NewString(object.ToString(args[0])), nil
		}),
		"Number": fn("Number", func(_ context.Context, args ...object.Object) (object.Object, error) {
			if len(args) == 0 {
				return object.NewNumber(0), nil
			}
			return object.NewNumber(object.ToNumber(args[0])), nil
		}),
		"Boolean": fn("Boolean", func(_ context.Context, args ...object.Object) (object.Object, error) {
			return object.NewBool(object.Truthy(object.Arg(args, 0))), nil
		}),
		"Set": fn("Set", func(_ context.Context, args ...object.Object) (object.Object, error) {
			items := object.NewArray(nil)
			if err := spreadInto(items, object.Arg(args, 0)); err != nil {
				return nil, err
			}
			return object.NewSet(items.Items()...), nil
		}),
		"Error":      errorConstructor("Error"),
		"TypeError":  errorConstructor("TypeError"),
		"RangeError": errorConstructor("RangeError"),

		"setTimeout": fn("setTimeout", func(_ context.Context, args ...object.Object) (object.Object, error) {
			return vm.setTimer(args, false)
		}),
		"setInterval": fn("setInterval", func(_ context.Context, args ...object.Object) (object.Object, error) {
			return vm.setTimer(args, true)
		}),
		"clearTimeout": fn("clearTimeout", func(_ context.Context, args ...object.Object) (object.Object, error) {
			return vm.clearTimer(args)
		}),
		"clearInterval": fn("clearInterval", func(_ context.Context, args ...object.Object) (object.Object, error) {
			return vm.clearTimer(args)
		}),
		"wait": fn("wait", vm.wait, "timeout"),
	}
	return globals
}

func (vm *VirtualMachine) console() *object.Map {
	write := func(name string, w func() io.Writer) *object.Builtin {
		return object.NewBuiltin(name, func(_ context.Context, args ...object.Object) (object.Object, error) {
			parts := make([]string, len(args))
			for i, arg := range args {
				parts[i] = formatLogArg(arg)
			}
			if _, err := fmt.Fprintln(w(), strings.Join(parts, " ")); err != nil {
				return nil, fmt.Errorf("console.%s: %w", name, err)
			}
			return object.Undefined, nil
		})
	}
	stdout := func() io.Writer { return vm.stdout }
	stderr := func() io.Writer { return vm.stderr }
	m := object.NewMap()
	m.Set("log", write("log", stdout))
	m.Set("info", write("info", stdout))
	m.Set("warn", write("warn", stderr))
	m.Set("error", write("error", stderr))
	return m
}

func formatLogArg(arg object.Object) string {
	if s, ok := arg.(*object.String); ok {
		return s.Value()
	}
	return arg.Inspect()
}

func numberFunc(name string, f func(float64) float64) *object.Builtin {
	return object.NewBuiltin(name, func(_ context.Context, args ...object.Object) (object.Object, error) {
		return object.NewNumber(f(object.ToNumber(object.Arg(args, 0)))), nil
	})
}

func mathObject() *object.Map {
	m := object.NewMap()
	m.Set("PI", object.NewNumber(math.Pi))
	m.Set("E", object.NewNumber(math.E))
	m.Set("abs", numberFunc("abs", math.Abs))
	m.Set("floor", numberFunc("floor", math.Floor))
	m.Set("ceil", numberFunc("ceil", math.Ceil))
	m.Set("trunc", numberFunc("trunc", math.Trunc))
	m.Set("sqrt", numberFunc("sqrt", math.Sqrt))
	m.Set("log", numberFunc("log", math.Log))
	m.Set("exp", numberFunc("exp", math.Exp))
	m.Set("sin", numberFunc("sin", math.Sin))
	m.Set("cos", numberFunc("cos", math.Cos))
	m.Set("round", numberFunc("round", func(f float64) float64 {
		return math.Floor(f + 0.5)
	}))
	m.Set("sign", numberFunc("sign", func(f float64) float64 {
		switch {
		case f > 0:
			return 1
		case f < 0:
			return -1
		}
		return f
	}))
	m.Set("pow", object.NewBuiltin("pow", func(_ context.Context, args ...object.Object) (object.Object, error) {
		return object.BinaryOp(op.Power, object.Arg(args, 0), object.Arg(args, 1))
	}))
	extreme := func(name string, init float64, better func(a, b float64) bool) *object.Builtin {
		return object.NewBuiltin(name, func(_ context.Context, args ...object.Object) (object.Object, error) {
			result := init
			for _, arg := range args {
				f := object.ToNumber(arg)
				if math.IsNaN(f) {
					return object.NaN, nil
				}
				if better(f, result) {
					result = f
				}
			}
			return object.NewNumber(result), nil
		})
	}
	m.Set("max", extreme("max", math.Inf(-1), func(a, b float64) bool { return a > b }))
	m.Set("min", extreme("min", math.Inf(1), func(a, b float64) bool { return a < b }))
	m.Set("random", object.NewBuiltin("random", func(context.Context, ...object.Object) (object.Object, error) {
		return object.NewNumber(rand.Float64()), nil
	}))
	return m
}

func jsonObject() *object.Map {
	m := object.NewMap()
	m.Set("stringify", object.NewBuiltin("stringify", func(_ context.Context, args ...object.Object) (object.Object, error) {
		indent := ""
		switch v := object.Arg(args, 2).(type) {
		case *object.Number:
			n := int(v.Value())
			indent = strings.Repeat(" ", max(0, min(n, 10)))
		case *object.String:
			indent = v.Value()
			if len(indent) > 10 {
				indent = indent[:10]
			}
		}
		text, ok, err := object.Stringify(object.Arg(args, 0), indent)
		if err != nil {
			return nil, err
		}
		if !ok {
			return object.Undefined, nil
		}
		return object.NewString(text), nil
	}))
	m.Set("parse", object.NewBuiltin("parse", func(_ context.Context, args ...object.Object) (object.Object, error) {
		return object.ParseJSON(object.ToString(object.Arg(args, 0)))
	}))
	return m
}

func objectConstructor() *object.Builtin {
	ctor := object.NewBuiltin("Object", func(_ context.Context, args ...object.Object) (object.Object, error) {
		if m, ok := object.Arg(args, 0).(*object.Map); ok {
			return m, nil
		}
		return object.NewMap(), nil
	})
	attrs := ctor.Attrs()
	attrs.Set("keys", object.NewBuiltin("keys", func(_ context.Context, args ...object.Object) (object.Object, error) {
		keys := ownKeys(object.Arg(args, 0))
		items := make([]object.Object, len(keys))
		for i, k := range keys {
			items[i] = object.NewString(k)
		}
		return object.NewArray(items), nil
	}))
	attrs.Set("values", object.NewBuiltin("values", func(_ context.Context, args ...object.Object) (object.Object, error) {
		src := object.Arg(args, 0)
		var items []object.Object
		for _, k := range ownKeys(src) {
			v, err := object.GetAttr(src, k)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return object.NewArray(items), nil
	}))
	attrs.Set("entries", object.NewBuiltin("entries", func(_ context.Context, args ...object.Object) (object.Object, error) {
		src := object.Arg(args, 0)
		var items []object.Object
		for _, k := range ownKeys(src) {
			v, err := object.GetAttr(src, k)
			if err != nil {
				return nil, err
			}
			items = append(items, object.NewArray([]object.Object{object.NewString(k), v}))
		}
		return object.NewArray(items), nil
	}))
	attrs.Set("assign", object.NewBuiltin("assign", func(_ context.Context, args ...object.Object) (object.Object, error) {
		target, ok := object.Arg(args, 0).(*object.Map)
		if !ok {
			return nil, object.TypeErrorf("Object.assign target must be an object")
		}
		for _, src := range args[1:] {
			if err := assignInto(target, src); err != nil {
				return nil, err
			}
		}
		return target, nil
	}))
	return ctor
}

func ownKeys(obj object.Object) []string {
	switch v := obj.(type) {
	case *object.Map:
		return v.Keys()
	case *object.Scope:
		return v.Keys()
	case *object.Array:
		keys := make([]string, v.Len())
		for i := range keys {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	case *object.String:
		keys := make([]string, v.Len())
		for i := range keys {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	}
	return nil
}

func arrayConstructor() *object.Builtin {
	ctor := object.NewBuiltin("Array", func(_ context.Context, args ...object.Object) (object.Object, error) {
		if len(args) == 1 {
			if n, ok := args[0].(*object.Number); ok {
				size := n.Value()
				if size < 0 || size != math.Trunc(size) || size > object.MaxArrayLength {
					return nil, object.RangeErrorf("Invalid array length")
				}
				items := make([]object.Object, int(size))
				for i := range items {
					items[i] = object.Undefined
				}
				return object.NewArray(items), nil
			}
		}
		return object.NewArray(append([]object.Object(nil), args...)), nil
	})
	ctor.Attrs().Set("isArray", object.NewBuiltin("isArray", func(_ context.Context, args ...object.Object) (object.Object, error) {
		_, ok := object.Arg(args, 0).(*object.Array)
		return object.NewBool(ok), nil
	}))
	return ctor
}

func errorConstructor(name string) *object.Builtin {
	return object.NewBuiltin(name, func(_ context.Context, args ...object.Object) (object.Object, error) {
		msg := ""
		if v := object.Arg(args, 0); v != object.Undefined {
			msg = object.ToString(v)
		}
		return object.NewError(name, msg), nil
	}, "message")
}

// promiseConstructor runs the executor synchronously. An executor that
// throws rejects the promise.
func promiseConstructor() *object.Builtin {
	ctor := object.NewBuiltin("Promise", func(ctx context.Context, args ...object.Object) (object.Object, error) {
		executor := object.Arg(args, 0)
		if _, ok := executor.(object.Callable); !ok {
			return nil, object.TypeErrorf("Promise resolver %s is not a function", object.TypeOf(executor))
		}
		p := object.NewPromise()
		resolve, reject := p.ResolvingFunctions()
		if _, err := object.Call(ctx, executor, resolve, reject); err != nil {
			var thrown *object.ThrownError
			if !errors.As(err, &thrown) {
				return nil, err
			}
			if err := p.Reject(ctx, thrown.Value); err != nil {
				return nil, err
			}
		}
		return p, nil
	})
	ctor.Attrs().Set("resolve", object.NewBuiltin("resolve", func(ctx context.Context, args ...object.Object) (object.Object, error) {
		if p, ok := object.Arg(args, 0).(*object.Promise); ok {
			return p, nil
		}
		p := object.NewPromise()
		return p, p.Resolve(ctx, object.Arg(args, 0))
	}))
	ctor.Attrs().Set("reject", object.NewBuiltin("reject", func(ctx context.Context, args ...object.Object) (object.Object, error) {
		p := object.NewPromise()
		return p, p.Reject(ctx, object.Arg(args, 0))
	}))
	return ctor
}

var (
	intPattern   = regexp.MustCompile(`^[+-]?[0-9a-zA-Z]+`)
	floatPattern = regexp.MustCompile(`^[+-]?(Infinity|[0-9]+\.?[0-9]*([eE][+-]?[0-9]+)?|\.[0-9]+([eE][+-]?[0-9]+)?)`)
)

func parseInt(_ context.Context, args ...object.Object) (object.Object, error) {
	s := strings.TrimSpace(object.ToString(object.Arg(args, 0)))
	radix := 0
	if r := object.ToNumber(object.Arg(args, 1)); !math.IsNaN(r) {
		radix = int(r)
	}
	sign := 1.0
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	if (radix == 0 || radix == 16) && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		s = s[2:]
		radix = 16
	}
	if radix == 0 {
		radix = 10
	}
	if radix < 2 || radix > 36 {
		return object.NaN, nil
	}
	digits := intPattern.FindString(s)
	var result float64
	n := 0
	for _, ch := range strings.ToLower(digits) {
		var d int
		switch {
		case ch >= '0' && ch <= '9':
			d = int(ch - '0')
		default:
			d = int(ch-'a') + 10
		}
		if d >= radix {
			break
		}
		result = result*float64(radix) + float64(d)
		n++
	}
	if n == 0 {
		return object.NaN, nil
	}
	return object.NewNumber(sign * result), nil
}

func parseFloat(_ context.Context, args ...object.Object) (object.Object, error) {
	s := strings.TrimSpace(object.ToString(object.Arg(args, 0)))
	prefix := floatPattern.FindString(s)
	if prefix == "" {
		return object.NaN, nil
	}
	switch strings.TrimLeft(prefix, "+-") {
	case "Infinity":
		if strings.HasPrefix(prefix, "-") {
			return object.NewNumber(math.Inf(-1)), nil
		}
		return object.NewNumber(math.Inf(1)), nil
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil && !math.IsInf(f, 0) {
		return object.NaN, nil
	}
	return object.NewNumber(f), nil
}
