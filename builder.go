package exprgraph

import (
	"fmt"

	"github.com/benbjohnson/immutable"
)

// Var is an external variable handle. Variable expressions reference a Var
// by identity; two expressions over the same handle are the same variable.
type Var struct {
	Name  string
	Index int
	Lb    float64
	Ub    float64
}

// Builder constructs and simplifies expressions over one registry. It owns
// the common-subexpression intern table and the creation-index counter.
// A builder is single-threaded; concurrent use requires per-thread copies
// of the graph via CopyExpr.
type Builder struct {
	reg *Registry

	hdlrVal  *Handler
	hdlrVar  *Handler
	hdlrSum  *Handler
	hdlrProd *Handler
	hdlrPow  *Handler

	// interns maps structural hash to a bucket of live nodes with that
	// hash. Entries are non-owning; a destroyed node removes itself.
	interns *immutable.SortedMap

	vars    map[string]*Var
	varSeq  int
	nodeSeq uint64
	nlive   int
}

// NewBuilder returns a builder over reg. The registry must contain the core
// operator handlers (val, var, sum, prod, pow), e.g. via RegisterDefaults.
func NewBuilder(reg *Registry) (*Builder, error) {
	b := &Builder{
		reg:     reg,
		interns: immutable.NewSortedMap(&uint64Comparer{}),
		vars:    make(map[string]*Var),
	}
	var err error
	if b.hdlrVal, err = reg.Lookup(HandlerVal); err != nil {
		return nil, err
	}
	if b.hdlrVar, err = reg.Lookup(HandlerVar); err != nil {
		return nil, err
	}
	if b.hdlrSum, err = reg.Lookup(HandlerSum); err != nil {
		return nil, err
	}
	if b.hdlrProd, err = reg.Lookup(HandlerProd); err != nil {
		return nil, err
	}
	if b.hdlrPow, err = reg.Lookup(HandlerPow); err != nil {
		return nil, err
	}
	return b, nil
}

// Registry returns the registry the builder constructs over.
func (b *Builder) Registry() *Registry { return b.reg }

// LiveNodes returns the number of expression nodes currently allocated by
// this builder. Used to verify that balanced capture/release sequences do
// not leak.
func (b *Builder) LiveNodes() int { return b.nlive }

// DefineVar registers a named variable with bounds and returns its handle.
// Redefining a name returns the existing handle unchanged.
func (b *Builder) DefineVar(name string, lb, ub float64) *Var {
	if v, ok := b.vars[name]; ok {
		return v
	}
	v := &Var{Name: name, Index: b.varSeq, Lb: lb, Ub: ub}
	b.varSeq++
	b.vars[name] = v
	return v
}

// LookupVar returns the handle registered under name.
func (b *Builder) LookupVar(name string) (*Var, bool) {
	v, ok := b.vars[name]
	return v, ok
}

// NVars returns the number of defined variables.
func (b *Builder) NVars() int { return b.varSeq }

// NewExpr creates a node for the given handler. The child count is
// validated against the handler's variability; each child is captured.
// Ownership of data transfers to the node. The returned node starts at
// refcount 1, held by the caller.
func (b *Builder) NewExpr(hdlr *Handler, data interface{}, children ...*Expr) (*Expr, error) {
	assert(hdlr != nil, "nil handler")
	if !hdlr.acceptsArity(len(children)) {
		return nil, fmt.Errorf("create %q with %d children: %w", hdlr.name, len(children), ErrArityMismatch)
	}
	b.nodeSeq++
	e := &Expr{hdlr: hdlr, data: data, owner: b, nuses: 1, id: b.nodeSeq}
	e.setChildren(children)
	for _, c := range children {
		c.Capture()
	}
	b.nlive++
	return e, nil
}

func (b *Builder) mustNewExpr(hdlr *Handler, data interface{}, children ...*Expr) *Expr {
	e, err := b.NewExpr(hdlr, data, children...)
	assert(err == nil, "%v", err)
	return e
}

// Value returns a numeric-constant expression. Constants are interned:
// equal values share one node.
func (b *Builder) Value(v float64) *Expr {
	e := b.mustNewExpr(b.hdlrVal, v)
	e = b.intern(e)
	e.simplified = true
	return e
}

// Variable returns an expression referencing v. Interned by handle
// identity: the same handle always yields the same node.
func (b *Builder) Variable(v *Var) *Expr {
	assert(v != nil, "nil variable handle")
	e := b.mustNewExpr(b.hdlrVar, v)
	e = b.intern(e)
	e.simplified = true
	return e
}

// Sum returns a raw weighted sum: constant + sum_i coefs[i]*children[i].
// A nil coefs means all ones. The coefficient slice is copied.
func (b *Builder) Sum(coefs []float64, constant float64, children ...*Expr) (*Expr, error) {
	d := &sumData{constant: constant, coefs: make([]float64, len(children))}
	if coefs == nil {
		for i := range d.coefs {
			d.coefs[i] = 1
		}
	} else {
		assert(len(coefs) == len(children), "got %d coefficients for %d children", len(coefs), len(children))
		copy(d.coefs, coefs)
	}
	return b.NewExpr(b.hdlrSum, d, children...)
}

// Product returns a raw product: coef * children[0] * ... * children[n-1].
func (b *Builder) Product(coef float64, children ...*Expr) (*Expr, error) {
	return b.NewExpr(b.hdlrProd, &prodData{coef: coef}, children...)
}

// Pow returns a raw power base^exponent. The exponent is a fixed real
// constant; 0^0 evaluates to 1 by policy.
func (b *Builder) Pow(base *Expr, exponent float64) (*Expr, error) {
	return b.NewExpr(b.hdlrPow, exponent, base)
}

// Func returns a raw application of the named unary handler (sin, cos,
// exp, log, abs, or any registered unary operator).
func (b *Builder) Func(name string, arg *Expr) (*Expr, error) {
	hdlr, err := b.reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	return b.NewExpr(hdlr, nil, arg)
}

// intern unifies e with a structurally equal live node if one exists. On a
// hit the caller's reference to e is dropped in favor of a captured
// reference to the existing node.
func (b *Builder) intern(e *Expr) *Expr {
	key := e.Hash()
	if v, ok := b.interns.Get(key); ok {
		bucket := v.([]*Expr)
		for _, other := range bucket {
			if other == e {
				return e
			}
			if Equal(other, e) {
				other.Capture()
				e.release()
				return other
			}
		}
		grown := make([]*Expr, len(bucket)+1)
		copy(grown, bucket)
		grown[len(bucket)] = e
		b.interns = b.interns.Set(key, grown)
		return e
	}
	b.interns = b.interns.Set(key, []*Expr{e})
	return e
}

// forget removes a node that reached refcount zero from the intern table
// and the live count.
func (b *Builder) forget(e *Expr) {
	b.nlive--
	if e.hash == 0 {
		return
	}
	v, ok := b.interns.Get(e.hash)
	if !ok {
		return
	}
	bucket := v.([]*Expr)
	for i, other := range bucket {
		if other != e {
			continue
		}
		if len(bucket) == 1 {
			b.interns = b.interns.Delete(e.hash)
		} else {
			pruned := make([]*Expr, 0, len(bucket)-1)
			pruned = append(pruned, bucket[:i]...)
			pruned = append(pruned, bucket[i+1:]...)
			b.interns = b.interns.Set(e.hash, pruned)
		}
		return
	}
}

// Simplify rewrites e bottom-up to a fixed point of the handlers' local
// rules and unifies structurally identical subexpressions into shared
// nodes. The result is captured for the caller. Simplifying an already
// simplified expression returns the same node, not a copy.
func (b *Builder) Simplify(e *Expr) (*Expr, error) {
	// The memo owns its entries: a rewrite may drop the last other owner
	// of a memoized result before a later occurrence of the shared raw
	// node reads it back.
	memo := make(map[*Expr]*Expr)
	s, err := b.simplify(e, memo)
	for _, entry := range memo {
		m := entry
		Release(&m)
	}
	return s, err
}

// uint64Comparer compares two 64-bit unsigned integers. Implements immutable.Comparer.
type uint64Comparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not a uint64.
func (c *uint64Comparer) Compare(a, b interface{}) int {
	if i, j := a.(uint64), b.(uint64); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}

func (b *Builder) simplify(e *Expr, memo map[*Expr]*Expr) (*Expr, error) {
	if e.simplified {
		return e.Capture(), nil
	}
	if s, ok := memo[e]; ok {
		return s.Capture(), nil
	}

	// Children first: a node is only examined once its children are fully
	// simplified.
	n := e.NChildren()
	children := make([]*Expr, n)
	changed := false
	for i := 0; i < n; i++ {
		c, err := b.simplify(e.Child(i), memo)
		if err != nil {
			for j := 0; j < i; j++ {
				Release(&children[j])
			}
			return nil, err
		}
		children[i] = c
		if c != e.Child(i) {
			changed = true
		}
	}

	var cur *Expr
	if !changed {
		cur = e.Capture()
	} else {
		data := e.data
		if e.hdlr.cb.CopyData != nil {
			var err error
			if data, err = e.hdlr.cb.CopyData(e); err != nil {
				for i := range children {
					Release(&children[i])
				}
				return nil, err
			}
		}
		var err error
		if cur, err = b.NewExpr(e.hdlr, data, children...); err != nil {
			for i := range children {
				Release(&children[i])
			}
			return nil, err
		}
	}
	for i := range children {
		Release(&children[i])
	}

	// Apply handler rewrite rules to a fixed point.
	for !cur.simplified {
		cb := cur.hdlr.cb.Simplify
		if cb == nil {
			break
		}
		next, err := cb(b, cur)
		if err != nil {
			Release(&cur)
			return nil, err
		}
		stable := next == cur
		Release(&cur)
		cur = next
		if stable {
			break
		}
	}

	cur = b.intern(cur)
	cur.simplified = true
	memo[e] = cur.Capture()
	return cur, nil
}
