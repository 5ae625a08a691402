package exprgraph

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// sumData is the private data of a sum node: the weighted sum
// constant + sum_i coefs[i]*child[i].
type sumData struct {
	constant float64
	coefs    []float64 // parallel to children
}

// IsSum reports whether e is a sum expression.
func IsSum(e *Expr) bool { return e.hdlr.name == HandlerSum }

// SumTerms returns the coefficients (one per child, copied) and the
// constant term of a sum expression.
func SumTerms(e *Expr) (coefs []float64, constant float64) {
	assert(IsSum(e), "expected %q expression, got %q", HandlerSum, e.hdlr.name)
	d := e.data.(*sumData)
	coefs = make([]float64, len(d.coefs))
	copy(coefs, d.coefs)
	return coefs, d.constant
}

// AppendSumTerm adds coef*c as a new term of a raw sum expression, keeping
// the coefficient slice in step with the children.
func AppendSumTerm(e *Expr, c *Expr, coef float64) {
	assert(IsSum(e), "expected %q expression, got %q", HandlerSum, e.hdlr.name)
	d := e.data.(*sumData)
	e.AppendChild(c)
	d.coefs = append(d.coefs, coef)
}

func registerSumHandler(reg *Registry) error {
	_, err := reg.Register(HandlerSum, "weighted sum", Multivariate, precSum, Callbacks{
		CopyData: copySumData,
		EqualData: func(a, b interface{}) bool {
			ad, bd := a.(*sumData), b.(*sumData)
			if ad.constant != bd.constant || len(ad.coefs) != len(bd.coefs) {
				return false
			}
			for i := range ad.coefs {
				if ad.coefs[i] != bd.coefs[i] {
					return false
				}
			}
			return true
		},
		CompareData: func(a, b interface{}) int {
			ad, bd := a.(*sumData), b.(*sumData)
			if cmp := compareFloats(ad.constant, bd.constant); cmp != 0 {
				return cmp
			}
			for i := range ad.coefs {
				if i >= len(bd.coefs) {
					return 1
				}
				if cmp := compareFloats(ad.coefs[i], bd.coefs[i]); cmp != 0 {
					return cmp
				}
			}
			if len(ad.coefs) < len(bd.coefs) {
				return -1
			}
			return 0
		},
		HashData: func(data interface{}, h *xxhash.Digest) {
			d := data.(*sumData)
			hashFloatData(d.constant, h)
			for _, c := range d.coefs {
				hashFloatData(c, h)
			}
		},
		Eval: func(ctx *EvalContext, e *Expr, args []float64) (float64, error) {
			d := e.data.(*sumData)
			v := d.constant
			for i, arg := range args {
				v += d.coefs[i] * arg
			}
			return v, nil
		},
		Inteval: func(e *Expr, args []Interval) Interval {
			d := e.data.(*sumData)
			iv := PointInterval(d.constant)
			for i, arg := range args {
				iv = iv.Add(arg.MulScalar(d.coefs[i]))
			}
			return iv
		},
		Print:    printSum,
		Simplify: simplifySum,
		Diff: func(b *Builder, e *Expr, i int) (*Expr, error) {
			return b.Value(e.data.(*sumData).coefs[i]), nil
		},
	}, nil)
	return err
}

func copySumData(e *Expr) (interface{}, error) {
	d := e.data.(*sumData)
	dup := &sumData{constant: d.constant, coefs: make([]float64, len(d.coefs))}
	copy(dup.coefs, d.coefs)
	return dup, nil
}

func printSum(e *Expr, args []string) string {
	d := e.data.(*sumData)
	var sb strings.Builder
	wrote := false
	if d.constant != 0 || len(args) == 0 {
		fmt.Fprintf(&sb, "%g", d.constant)
		wrote = true
	}
	for i, arg := range args {
		coef := d.coefs[i]
		neg := math.Signbit(coef)
		if wrote {
			if neg {
				sb.WriteString(" - ")
			} else {
				sb.WriteString(" + ")
			}
		} else if neg {
			sb.WriteString("-")
		}
		if mag := math.Abs(coef); mag != 1 {
			fmt.Fprintf(&sb, "%g*", mag)
		}
		sb.WriteString(arg)
		wrote = true
	}
	return sb.String()
}

// simplifySum flattens nested sums, folds constants, merges equal children
// by adding their coefficients, drops zero terms, orders children
// canonically, and collapses degenerate sums. Children are already
// simplified, so equal children are identical shared nodes.
func simplifySum(b *Builder, e *Expr) (*Expr, error) {
	d := e.data.(*sumData)
	constant := d.constant
	n := e.NChildren()
	exprs := make([]*Expr, 0, n)
	coefs := make([]float64, 0, n)
	changed := false

	add := func(c *Expr, coef float64) {
		for i, x := range exprs {
			if x == c {
				coefs[i] += coef
				changed = true
				return
			}
		}
		exprs = append(exprs, c)
		coefs = append(coefs, coef)
	}

	for i := 0; i < n; i++ {
		c, coef := e.Child(i), d.coefs[i]
		switch {
		case coef == 0:
			changed = true
		case IsValue(c):
			constant += coef * ValValue(c)
			changed = true
		case IsSum(c):
			cd := c.data.(*sumData)
			constant += coef * cd.constant
			for j, nc := 0, c.NChildren(); j < nc; j++ {
				add(c.Child(j), coef*cd.coefs[j])
			}
			changed = true
		default:
			add(c, coef)
		}
	}

	// Merging may have canceled terms.
	for i := 0; i < len(exprs); {
		if coefs[i] == 0 {
			exprs = append(exprs[:i], exprs[i+1:]...)
			coefs = append(coefs[:i], coefs[i+1:]...)
			changed = true
		} else {
			i++
		}
	}

	if reorderCanonically(exprs, coefs) {
		changed = true
	}

	switch {
	case len(exprs) == 0:
		return b.Value(constant), nil
	case len(exprs) == 1 && coefs[0] == 1 && constant == 0:
		return exprs[0].Capture(), nil
	case !changed:
		return e.Capture(), nil
	}
	return b.Sum(coefs, constant, exprs...)
}

// reorderCanonically sorts children (and their parallel coefficients) by
// the canonical total order. Reports whether the order changed.
func reorderCanonically(exprs []*Expr, coefs []float64) bool {
	ord := make([]int, len(exprs))
	for i := range ord {
		ord[i] = i
	}
	sort.SliceStable(ord, func(i, j int) bool {
		return Compare(exprs[ord[i]], exprs[ord[j]]) < 0
	})
	changed := false
	for i, j := range ord {
		if i != j {
			changed = true
			break
		}
	}
	if !changed {
		return false
	}
	se := make([]*Expr, len(exprs))
	sc := make([]float64, len(coefs))
	for i, j := range ord {
		se[i] = exprs[j]
		if coefs != nil {
			sc[i] = coefs[j]
		}
	}
	copy(exprs, se)
	if coefs != nil {
		copy(coefs, sc)
	}
	return true
}
