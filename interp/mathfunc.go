package interp

import (
	"math"
	"math/rand"
	"time"
)

var mathRand = rand.New(rand.NewSource(time.Now().UnixNano()))

// Math functions are plain commands in a dedicated namespace, so
// funcname(x) in an expression and a direct invocation of
// ::tcl::mathfunc::funcname are the same thing, and scripts can define
// their own functions by defining commands there.
func registerMathFuncs(i *Interp) {
	unary := map[string]func(float64) float64{
		"acos":  math.Acos,
		"asin":  math.Asin,
		"atan":  math.Atan,
		"ceil":  math.Ceil,
		"cos":   math.Cos,
		"cosh":  math.Cosh,
		"exp":   math.Exp,
		"floor": math.Floor,
		"log":   math.Log,
		"log10": math.Log10,
		"sin":   math.Sin,
		"sinh":  math.Sinh,
		"sqrt":  math.Sqrt,
		"tan":   math.Tan,
		"tanh":  math.Tanh,
	}
	for name, fn := range unary {
		fn := fn
		i.RegisterCommand(MathFuncNamespace+"::"+name, func(i *Interp, cd any, args []*Obj) Code {
			if len(args) != 2 {
				return wrongArgs(i, args[0].String()+" value")
			}
			v, err := args[1].AsDouble()
			if err != nil {
				return i.SetError(err)
			}
			i.SetResult(NewDouble(fn(v)))
			return ResultOK
		}, nil)
	}

	// abs keeps integers integral.
	i.RegisterCommand(MathFuncNamespace+"::abs", func(i *Interp, cd any, args []*Obj) Code {
		if len(args) != 2 {
			return wrongArgs(i, "abs value")
		}
		if n, err := args[1].AsInt(); err == nil {
			if n < 0 {
				n = -n
			}
			i.SetResult(NewInt(n))
			return ResultOK
		}
		v, err := args[1].AsDouble()
		if err != nil {
			return i.SetError(err)
		}
		i.SetResult(NewDouble(math.Abs(v)))
		return ResultOK
	}, nil)

	i.RegisterCommand(MathFuncNamespace+"::pow", func(i *Interp, cd any, args []*Obj) Code {
		if len(args) != 3 {
			return wrongArgs(i, "pow x y")
		}
		x, err := args[1].AsDouble()
		if err != nil {
			return i.SetError(err)
		}
		y, err := args[2].AsDouble()
		if err != nil {
			return i.SetError(err)
		}
		i.SetResult(NewDouble(math.Pow(x, y)))
		return ResultOK
	}, nil)

	i.RegisterCommand(MathFuncNamespace+"::atan2", func(i *Interp, cd any, args []*Obj) Code {
		if len(args) != 3 {
			return wrongArgs(i, "atan2 y x")
		}
		y, err := args[1].AsDouble()
		if err != nil {
			return i.SetError(err)
		}
		x, err := args[2].AsDouble()
		if err != nil {
			return i.SetError(err)
		}
		i.SetResult(NewDouble(math.Atan2(y, x)))
		return ResultOK
	}, nil)

	i.RegisterCommand(MathFuncNamespace+"::fmod", func(i *Interp, cd any, args []*Obj) Code {
		if len(args) != 3 {
			return wrongArgs(i, "fmod x y")
		}
		x, err := args[1].AsDouble()
		if err != nil {
			return i.SetError(err)
		}
		y, err := args[2].AsDouble()
		if err != nil {
			return i.SetError(err)
		}
		if y == 0 {
			return i.SetErrorf("divide by zero")
		}
		i.SetResult(NewDouble(math.Mod(x, y)))
		return ResultOK
	}, nil)

	i.RegisterCommand(MathFuncNamespace+"::int", func(i *Interp, cd any, args []*Obj) Code {
		if len(args) != 2 {
			return wrongArgs(i, "int value")
		}
		v, err := args[1].AsDouble()
		if err != nil {
			return i.SetError(err)
		}
		i.SetResult(NewInt(int64(v)))
		return ResultOK
	}, nil)

	i.RegisterCommand(MathFuncNamespace+"::double", func(i *Interp, cd any, args []*Obj) Code {
		if len(args) != 2 {
			return wrongArgs(i, "double value")
		}
		v, err := args[1].AsDouble()
		if err != nil {
			return i.SetError(err)
		}
		i.SetResult(NewDouble(v))
		return ResultOK
	}, nil)

	i.RegisterCommand(MathFuncNamespace+"::round", func(i *Interp, cd any, args []*Obj) Code {
		if len(args) != 2 {
			return wrongArgs(i, "round value")
		}
		v, err := args[1].AsDouble()
		if err != nil {
			return i.SetError(err)
		}
		i.SetResult(NewInt(int64(math.Round(v))))
		return ResultOK
	}, nil)

	i.RegisterCommand(MathFuncNamespace+"::max", func(i *Interp, cd any, args []*Obj) Code {
		return minMax(i, args, false)
	}, nil)
	i.RegisterCommand(MathFuncNamespace+"::min", func(i *Interp, cd any, args []*Obj) Code {
		return minMax(i, args, true)
	}, nil)

	i.RegisterCommand(MathFuncNamespace+"::rand", func(i *Interp, cd any, args []*Obj) Code {
		if len(args) != 1 {
			return wrongArgs(i, "rand")
		}
		i.SetResult(NewDouble(mathRand.Float64()))
		return ResultOK
	}, nil)

	i.RegisterCommand(MathFuncNamespace+"::srand", func(i *Interp, cd any, args []*Obj) Code {
		if len(args) != 2 {
			return wrongArgs(i, "srand seed")
		}
		seed, err := args[1].AsInt()
		if err != nil {
			return i.SetError(err)
		}
		mathRand = rand.New(rand.NewSource(seed))
		i.SetResult(NewDouble(mathRand.Float64()))
		return ResultOK
	}, nil)
}

func minMax(i *Interp, args []*Obj, wantMin bool) Code {
	if len(args) < 2 {
		return wrongArgs(i, args[0].String()+" value ?value ...?")
	}
	allInt := true
	for _, a := range args[1:] {
		if !a.IsNumeric() {
			return i.SetErrorf("expected number but got %q", a.String())
		}
		if _, ok := a.intrep.(IntType); !ok {
			allInt = false
		}
	}
	if allInt {
		best, _ := args[1].AsInt()
		for _, a := range args[2:] {
			v, _ := a.AsInt()
			if (wantMin && v < best) || (!wantMin && v > best) {
				best = v
			}
		}
		i.SetResult(NewInt(best))
		return ResultOK
	}
	best, _ := args[1].AsDouble()
	for _, a := range args[2:] {
		v, _ := a.AsDouble()
		if (wantMin && v < best) || (!wantMin && v > best) {
			best = v
		}
	}
	i.SetResult(NewDouble(best))
	return ResultOK
}
