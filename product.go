package exprgraph

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// prodData is the private data of a product node: coef * child[0] * ... .
// Simplified products always carry coefficient 1; the coefficient of a raw
// product is pulled into an enclosing sum during simplification.
type prodData struct {
	coef float64
}

// IsProduct reports whether e is a product expression.
func IsProduct(e *Expr) bool { return e.hdlr.name == HandlerProd }

// ProductCoef returns the coefficient of a product expression.
func ProductCoef(e *Expr) float64 {
	assert(IsProduct(e), "expected %q expression, got %q", HandlerProd, e.hdlr.name)
	return e.data.(*prodData).coef
}

func registerProdHandler(reg *Registry) error {
	_, err := reg.Register(HandlerProd, "product", Multivariate, precProd, Callbacks{
		CopyData: func(e *Expr) (interface{}, error) {
			return &prodData{coef: e.data.(*prodData).coef}, nil
		},
		EqualData: func(a, b interface{}) bool {
			return a.(*prodData).coef == b.(*prodData).coef
		},
		CompareData: func(a, b interface{}) int {
			return compareFloats(a.(*prodData).coef, b.(*prodData).coef)
		},
		HashData: func(data interface{}, h *xxhash.Digest) {
			hashFloatData(data.(*prodData).coef, h)
		},
		Eval: func(ctx *EvalContext, e *Expr, args []float64) (float64, error) {
			v := e.data.(*prodData).coef
			for _, arg := range args {
				v *= arg
			}
			return v, nil
		},
		Inteval: func(e *Expr, args []Interval) Interval {
			iv := PointInterval(e.data.(*prodData).coef)
			for _, arg := range args {
				iv = iv.Mul(arg)
			}
			return iv
		},
		Print: func(e *Expr, args []string) string {
			var sb strings.Builder
			if coef := e.data.(*prodData).coef; coef != 1 {
				fmt.Fprintf(&sb, "%g*", coef)
			}
			sb.WriteString(strings.Join(args, "*"))
			return sb.String()
		},
		Simplify: simplifyProduct,
		Diff: func(b *Builder, e *Expr, i int) (*Expr, error) {
			others := make([]*Expr, 0, e.NChildren()-1)
			for j, n := 0, e.NChildren(); j < n; j++ {
				if j != i {
					others = append(others, e.Child(j))
				}
			}
			return b.Product(e.data.(*prodData).coef, others...)
		},
	}, nil)
	return err
}

// simplifyProduct flattens nested products, folds constant factors into the
// coefficient, merges factors over the same base into powers (x*x -> x^2,
// x*x^2 -> x^3), orders factors canonically, and normalizes the coefficient
// into an enclosing sum. Children are already simplified.
func simplifyProduct(b *Builder, e *Expr) (*Expr, error) {
	d := e.data.(*prodData)
	coef := d.coef
	n := e.NChildren()
	changed := false

	factors := make([]*Expr, 0, n)
	for i := 0; i < n; i++ {
		c := e.Child(i)
		switch {
		case IsValue(c):
			coef *= ValValue(c)
			changed = true
		case IsProduct(c):
			coef *= c.data.(*prodData).coef
			factors = append(factors, c.Children()...)
			changed = true
		default:
			factors = append(factors, c)
		}
	}
	if coef == 0 {
		return b.Value(0), nil
	}

	// Group factors by base, summing exponents.
	bases := make([]*Expr, 0, len(factors))
	exps := make([]float64, 0, len(factors))
	for _, f := range factors {
		base, p := f, 1.0
		if IsPow(f) {
			base, p = f.Child(0), PowExponent(f)
		}
		merged := false
		for i, x := range bases {
			if x == base {
				exps[i] += p
				changed = true
				merged = true
				break
			}
		}
		if !merged {
			bases = append(bases, base)
			exps = append(exps, p)
		}
	}

	out := make([]*Expr, 0, len(bases))
	release := func() {
		for i := range out {
			Release(&out[i])
		}
	}
	for i, base := range bases {
		switch p := exps[i]; p {
		case 0:
			changed = true // x * x^-1 and alike cancel
		case 1:
			out = append(out, base.Capture())
		default:
			raw, err := b.Pow(base, p)
			if err != nil {
				release()
				return nil, err
			}
			f, err := b.Simplify(raw)
			Release(&raw)
			if err != nil {
				release()
				return nil, err
			}
			out = append(out, f)
		}
	}

	if reorderCanonically(out, nil) {
		changed = true
	}
	if !changed && coef == d.coef {
		// Interning maps rebuilt powers back onto the original factor
		// nodes, so pointer comparison against the children suffices.
		same := len(out) == n
		for i := 0; same && i < n; i++ {
			same = out[i] == e.Child(i)
		}
		if same {
			release()
			return e.Capture(), nil
		}
	}

	switch {
	case len(out) == 0:
		release()
		return b.Value(coef), nil
	case len(out) == 1 && coef == 1:
		f := out[0]
		return f, nil
	case coef == 1:
		p, err := b.Product(1, out...)
		release()
		return p, err
	}

	// Pull the coefficient into an enclosing sum.
	var inner *Expr
	var err error
	if len(out) == 1 {
		inner = out[0].Capture()
	} else {
		var raw *Expr
		if raw, err = b.Product(1, out...); err == nil {
			inner, err = b.Simplify(raw)
			Release(&raw)
		}
	}
	release()
	if err != nil {
		return nil, err
	}
	s, err := b.Sum([]float64{coef}, 0, inner)
	Release(&inner)
	return s, err
}
