package exprgraph

// Capability describes what a detected quadratic decomposition supports in
// the downstream numerical relaxation layer.
type Capability uint8

const (
	CapNone      Capability = 0
	CapPropagate Capability = 1 << 0 // interval propagation over the decomposition
	CapSepaBelow Capability = 1 << 1 // separation of the convex underestimator
	CapSepaAbove Capability = 1 << 2 // separation of the concave overestimator
)

// CanPropagate reports whether the decomposition supports bounds
// propagation.
func (c Capability) CanPropagate() bool { return c&CapPropagate != 0 }

// CanSeparate reports whether the decomposition supports separation on at
// least one side.
func (c Capability) CanSeparate() bool { return c&(CapSepaBelow|CapSepaAbove) != 0 }

// QuadTerm is one quadratic entry: lincoef*base + sqrcoef*base^2 for a
// distinct base subexpression.
type QuadTerm struct {
	Expr    *Expr
	LinCoef float64
	SqrCoef float64
}

// BilinTerm is one cross term: coef * Expr1 * Expr2 for two distinct base
// subexpressions. Expr1 always has the lower creation index.
type BilinTerm struct {
	Expr1 *Expr
	Expr2 *Expr
	Coef  float64
}

// Quadratic is the decomposition produced by DetectQuadratic. Terms appear
// in first-seen order over the additive terms of the expression; every base
// referenced here occurs in the analyzed expression.
type Quadratic struct {
	Constant   float64
	Terms      []QuadTerm
	Bilinear   []BilinTerm
	Capability Capability
}

// Term returns the quadratic entry for base, if present.
func (q *Quadratic) Term(base *Expr) (QuadTerm, bool) {
	for _, t := range q.Terms {
		if t.Expr == base {
			return t, true
		}
	}
	return QuadTerm{}, false
}

// DetectQuadratic scans the direct additive structure of a simplified
// expression and classifies each additive term as a square, a bilinear
// product, or a linear occurrence of a base subexpression. Detection is
// all-or-nothing: if any term resists classification, or if no base ties
// two classified occurrences together, the detector reports failure and
// produces nothing.
//
// On success the decomposition always supports bounds propagation.
// Separation is additionally provided when the quadratic is convex or
// concave under the per-pair sufficient test coef^2 <= 4*sqr1*sqr2; only
// then are the referenced bases marked as needing auxiliary
// representatives.
func DetectQuadratic(e *Expr) (*Quadratic, bool) {
	assert(e.IsSimplified(), "detection requires a simplified expression")

	det := &detector{
		quad:  &Quadratic{},
		index: make(map[*Expr]int),
		occur: make(map[*Expr]int),
	}

	// The root's additive terms; a non-sum root is a one-term sum.
	if IsSum(e) {
		coefs, constant := SumTerms(e)
		det.quad.Constant = constant
		for i, n := 0, e.NChildren(); i < n; i++ {
			if !det.classify(e.Child(i), coefs[i]) {
				return nil, false
			}
		}
	} else if !det.classify(e, 1) {
		return nil, false
	}

	// A proper quadratic ties at least one base into two classified
	// occurrences; anything else is better served by term-wise handling.
	proper := false
	for _, n := range det.occur {
		if n >= 2 {
			proper = true
			break
		}
	}
	if !proper {
		return nil, false
	}

	det.quad.Capability = CapPropagate
	switch {
	case det.definite(1):
		det.quad.Capability |= CapSepaBelow
	case det.definite(-1):
		det.quad.Capability |= CapSepaAbove
	}

	if det.quad.Capability.CanSeparate() {
		for _, t := range det.quad.Terms {
			t.Expr.MarkAuxNeeded()
		}
		for _, bl := range det.quad.Bilinear {
			bl.Expr1.MarkAuxNeeded()
			bl.Expr2.MarkAuxNeeded()
		}
	}
	return det.quad, true
}

type detector struct {
	quad  *Quadratic
	index map[*Expr]int // base -> position in quad.Terms
	occur map[*Expr]int // classified occurrences per base
}

// classify sorts one additive term (with its sum coefficient) into the
// square, bilinear, or linear bucket. Reports false for terms outside the
// quadratic pattern.
func (d *detector) classify(t *Expr, coef float64) bool {
	switch {
	case IsValue(t):
		d.quad.Constant += coef * ValValue(t)
		return true

	case IsPow(t) && PowExponent(t) == 2:
		entry := d.entry(t.Child(0))
		d.quad.Terms[entry].SqrCoef += coef
		d.occur[t.Child(0)]++
		return true

	case IsProduct(t) && t.NChildren() == 2:
		e1, e2 := t.Child(0), t.Child(1)
		if e1 == e2 {
			// E*E with both factors the identical shared node is a square,
			// though simplification normally collapses it to a power first.
			entry := d.entry(e1)
			d.quad.Terms[entry].SqrCoef += coef
			d.occur[e1]++
			return true
		}
		if e1.ID() > e2.ID() {
			e1, e2 = e2, e1
		}
		d.entry(e1)
		d.entry(e2)
		d.quad.Bilinear = append(d.quad.Bilinear, BilinTerm{Expr1: e1, Expr2: e2, Coef: coef})
		d.occur[e1]++
		d.occur[e2]++
		return true

	case IsProduct(t):
		// Products of three or more factors are outside the pattern.
		return false

	default:
		// Any other subexpression occurs linearly in itself.
		entry := d.entry(t)
		d.quad.Terms[entry].LinCoef += coef
		d.occur[t]++
		return true
	}
}

// entry returns the index of the quadratic entry for base, creating a
// zero-coefficient entry on first sight. Entries are keyed by node
// identity: a recurring base must be the same shared node.
func (d *detector) entry(base *Expr) int {
	if i, ok := d.index[base]; ok {
		return i
	}
	i := len(d.quad.Terms)
	d.index[base] = i
	d.quad.Terms = append(d.quad.Terms, QuadTerm{Expr: base})
	return i
}

// definite reports whether sign*Q is positive semidefinite under the
// sufficient per-pair test: all diagonal entries sign-consistent and every
// bilinear coefficient dominated by its diagonal, coef^2 <= 4*sqr1*sqr2.
func (d *detector) definite(sign float64) bool {
	for _, t := range d.quad.Terms {
		if sign*t.SqrCoef < 0 {
			return false
		}
	}
	for _, bl := range d.quad.Bilinear {
		s1 := d.quad.Terms[d.index[bl.Expr1]].SqrCoef
		s2 := d.quad.Terms[d.index[bl.Expr2]].SqrCoef
		if bl.Coef*bl.Coef > 4*s1*s2 {
			return false
		}
	}
	return true
}
