package exprgraph

import (
	"fmt"
	"math"
)

// registerFuncHandlers installs the unary transcendental handlers: sin,
// cos, exp, log, abs.
func registerFuncHandlers(reg *Registry) error {
	funcs := []struct {
		name string
		desc string
		eval func(float64) (float64, error)
		ival func(Interval) Interval
		diff func(b *Builder, e *Expr) (*Expr, error)
	}{
		{
			name: "sin", desc: "sine",
			eval: func(v float64) (float64, error) { return math.Sin(v), nil },
			ival: Interval.Sin,
			diff: func(b *Builder, e *Expr) (*Expr, error) {
				return b.Func("cos", e.Child(0))
			},
		},
		{
			name: "cos", desc: "cosine",
			eval: func(v float64) (float64, error) { return math.Cos(v), nil },
			ival: Interval.Cos,
			diff: func(b *Builder, e *Expr) (*Expr, error) {
				f, err := b.Func("sin", e.Child(0))
				if err != nil {
					return nil, err
				}
				s, err := b.Sum([]float64{-1}, 0, f)
				Release(&f)
				return s, err
			},
		},
		{
			name: "exp", desc: "natural exponential",
			eval: func(v float64) (float64, error) { return math.Exp(v), nil },
			ival: Interval.Exp,
			diff: func(b *Builder, e *Expr) (*Expr, error) {
				return e.Capture(), nil
			},
		},
		{
			name: "log", desc: "natural logarithm",
			eval: func(v float64) (float64, error) {
				if v <= 0 {
					return 0, fmt.Errorf("log: argument %g out of domain", v)
				}
				return math.Log(v), nil
			},
			ival: Interval.Log,
			diff: func(b *Builder, e *Expr) (*Expr, error) {
				return b.Pow(e.Child(0), -1)
			},
		},
		{
			name: "abs", desc: "absolute value",
			eval: func(v float64) (float64, error) { return math.Abs(v), nil },
			ival: Interval.Abs,
			diff: nil, // not differentiable at zero
		},
	}

	for _, fn := range funcs {
		fn := fn
		cb := Callbacks{
			Eval: func(ctx *EvalContext, e *Expr, args []float64) (float64, error) {
				return fn.eval(args[0])
			},
			Inteval: func(e *Expr, args []Interval) Interval {
				return fn.ival(args[0])
			},
			Print: func(e *Expr, args []string) string {
				return fmt.Sprintf("%s(%s)", fn.name, args[0])
			},
			Simplify: func(b *Builder, e *Expr) (*Expr, error) {
				if c := e.Child(0); IsValue(c) {
					if v, err := fn.eval(ValValue(c)); err == nil {
						return b.Value(v), nil
					}
				}
				return e.Capture(), nil
			},
		}
		if fn.diff != nil {
			diff := fn.diff
			cb.Diff = func(b *Builder, e *Expr, i int) (*Expr, error) {
				return diff(b, e)
			}
		}
		if _, err := reg.Register(fn.name, fn.desc, Unary, precAtom, cb, nil); err != nil {
			return err
		}
	}
	return nil
}
