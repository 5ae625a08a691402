package exprgraph

import "fmt"

// EvalContext carries a point assignment for the variables of a graph and
// memoizes node values so that shared subexpressions are evaluated once.
type EvalContext struct {
	values []float64 // indexed by Var.Index
	memo   map[*Expr]float64
}

// NewEvalContext returns a context evaluating at the given point. The slice
// is indexed by Var.Index.
func NewEvalContext(values []float64) *EvalContext {
	return &EvalContext{values: values, memo: make(map[*Expr]float64)}
}

// Value returns the assigned value of v.
func (ctx *EvalContext) Value(v *Var) (float64, error) {
	if v.Index < 0 || v.Index >= len(ctx.values) {
		return 0, fmt.Errorf("no value for variable %q", v.Name)
	}
	return ctx.values[v.Index], nil
}

// Eval computes the value of e at the context's point by delegating to the
// handlers' eval callbacks.
func (ctx *EvalContext) Eval(e *Expr) (float64, error) {
	if v, ok := ctx.memo[e]; ok {
		return v, nil
	}
	if e.hdlr.cb.Eval == nil {
		return 0, fmt.Errorf("handler %q cannot evaluate", e.hdlr.name)
	}
	args := make([]float64, e.NChildren())
	for i := range args {
		v, err := ctx.Eval(e.Child(i))
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	v, err := e.hdlr.cb.Eval(ctx, e, args)
	if err != nil {
		return 0, err
	}
	ctx.memo[e] = v
	return v, nil
}

// Eval computes the value of e at the point given by values (indexed by
// Var.Index).
func Eval(e *Expr, values []float64) (float64, error) {
	return NewEvalContext(values).Eval(e)
}

// Inteval computes a conservative enclosure of the range of e over the
// variable bounds, delegating to the handlers' inteval callbacks. Shared
// subexpressions are evaluated once.
func Inteval(e *Expr) (Interval, error) {
	memo := make(map[*Expr]Interval)
	return inteval(e, memo)
}

func inteval(e *Expr, memo map[*Expr]Interval) (Interval, error) {
	if iv, ok := memo[e]; ok {
		return iv, nil
	}
	if e.hdlr.cb.Inteval == nil {
		return Interval{}, fmt.Errorf("handler %q cannot interval-evaluate", e.hdlr.name)
	}
	args := make([]Interval, e.NChildren())
	for i := range args {
		iv, err := inteval(e.Child(i), memo)
		if err != nil {
			return Interval{}, err
		}
		args[i] = iv
	}
	iv := e.hdlr.cb.Inteval(e, args)
	memo[e] = iv
	return iv, nil
}

// Diff returns the derivative of e with respect to v, built from the
// handlers' partial-derivative callbacks and the chain rule. The result is
// a raw expression; callers typically simplify it.
func (b *Builder) Diff(e *Expr, v *Var) (*Expr, error) {
	memo := make(map[*Expr]*Expr)
	d, err := b.diff(e, v, memo)
	for _, partial := range memo {
		p := partial
		Release(&p)
	}
	return d, err
}

func (b *Builder) diff(e *Expr, v *Var, memo map[*Expr]*Expr) (*Expr, error) {
	if d, ok := memo[e]; ok {
		return d.Capture(), nil
	}

	var d *Expr
	switch e.hdlr.name {
	case HandlerVal:
		d = b.Value(0)
	case HandlerVar:
		if VarOf(e) == v {
			d = b.Value(1)
		} else {
			d = b.Value(0)
		}
	default:
		if e.hdlr.cb.Diff == nil {
			return nil, fmt.Errorf("handler %q cannot differentiate", e.hdlr.name)
		}
		// Chain rule: d(e) = sum_i  de/dc_i * d(c_i).
		var terms []*Expr
		release := func() {
			for i := range terms {
				Release(&terms[i])
			}
		}
		for i, n := 0, e.NChildren(); i < n; i++ {
			dc, err := b.diff(e.Child(i), v, memo)
			if err != nil {
				release()
				return nil, err
			}
			if dc.hdlr.name == HandlerVal && ValValue(dc) == 0 {
				Release(&dc)
				continue
			}
			partial, err := e.hdlr.cb.Diff(b, e, i)
			if err != nil {
				Release(&dc)
				release()
				return nil, err
			}
			term, err := b.Product(1, partial, dc)
			Release(&partial)
			Release(&dc)
			if err != nil {
				release()
				return nil, err
			}
			terms = append(terms, term)
		}
		switch len(terms) {
		case 0:
			d = b.Value(0)
		case 1:
			d = terms[0]
			terms = nil
		default:
			var err error
			d, err = b.Sum(nil, 0, terms...)
			release()
			if err != nil {
				return nil, err
			}
		}
	}

	memo[e] = d.Capture()
	return d, nil
}
