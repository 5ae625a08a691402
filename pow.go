package exprgraph

import (
	"fmt"
	"math"
)

// IsPow reports whether e is a power expression.
func IsPow(e *Expr) bool { return e.hdlr.name == HandlerPow }

// PowExponent returns the fixed real exponent of a power expression.
func PowExponent(e *Expr) float64 {
	assert(IsPow(e), "expected %q expression, got %q", HandlerPow, e.hdlr.name)
	return e.data.(float64)
}

func registerPowHandler(reg *Registry) error {
	_, err := reg.Register(HandlerPow, "power with a constant exponent", Unary, precPow, Callbacks{
		EqualData: func(a, b interface{}) bool {
			return a.(float64) == b.(float64)
		},
		CompareData: func(a, b interface{}) int {
			return compareFloats(a.(float64), b.(float64))
		},
		HashData: hashFloatData,
		Eval: func(ctx *EvalContext, e *Expr, args []float64) (float64, error) {
			return evalPow(args[0], e.data.(float64))
		},
		Inteval: func(e *Expr, args []Interval) Interval {
			return args[0].Pow(e.data.(float64))
		},
		Print: func(e *Expr, args []string) string {
			return fmt.Sprintf("%s^%g", args[0], e.data.(float64))
		},
		Simplify: simplifyPow,
		Diff: func(b *Builder, e *Expr, i int) (*Expr, error) {
			// d/dx x^p = p * x^(p-1)
			p := e.data.(float64)
			pw, err := b.Pow(e.Child(0), p-1)
			if err != nil {
				return nil, err
			}
			s, err := b.Sum([]float64{p}, 0, pw)
			Release(&pw)
			return s, err
		},
	}, nil)
	return err
}

// evalPow computes base^p, rejecting points outside the domain. 0^0 := 1.
func evalPow(base, p float64) (float64, error) {
	if base == 0 && p == 0 {
		return 1, nil
	}
	v := math.Pow(base, p)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("pow: %g^%g out of domain", base, p)
	}
	return v, nil
}

// simplifyPow folds constant bases, collapses the trivial exponents 0 and 1
// (0^0 := 1 by policy), and combines nested integral powers. The child is
// already simplified.
func simplifyPow(b *Builder, e *Expr) (*Expr, error) {
	p := e.data.(float64)
	c := e.Child(0)
	switch {
	case IsValue(c):
		// Leave the node alone if the constant lies outside the domain.
		if v, err := evalPow(ValValue(c), p); err == nil {
			return b.Value(v), nil
		}
	case p == 0:
		return b.Value(1), nil
	case p == 1:
		return c.Capture(), nil
	}

	// (x^q)^p = x^(q*p) is only sound in general for integral exponents.
	if IsPow(c) {
		if q := PowExponent(c); isIntegral(p) && isIntegral(q) {
			return b.Pow(c.Child(0), q*p)
		}
	}
	return e.Capture(), nil
}

func isIntegral(v float64) bool {
	return v == math.Trunc(v) && !math.IsInf(v, 0)
}
