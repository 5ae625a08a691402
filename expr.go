package exprgraph

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Expr is a node in the expression DAG. A node holds a non-owning reference
// to its handler, owned node-private data, owned references to its children
// (the children themselves may be shared between parents), and a reference
// count. Nodes are immutable once simplified; children are always strictly
// more elementary than parents, so the graph cannot contain cycles.
type Expr struct {
	hdlr *Handler
	data interface{}

	variability Variability
	single      *Expr    // unary layout
	pair        [2]*Expr // binary layout
	children    []*Expr  // multivariate layout, len(children) is the capacity
	nchildren   int      // stored count for the multivariate layout

	nuses int    // reference count
	id    uint64 // creation index, monotonically increasing per builder
	hash  uint64 // cached structural hash, 0 = not yet computed

	owner      *Builder
	simplified bool
	needsAux   bool
}

// Handler returns the handler defining the node's operator kind.
func (e *Expr) Handler() *Handler { return e.hdlr }

// Data returns the node-private data.
func (e *Expr) Data() interface{} { return e.data }

// Variability returns the children storage layout of the node.
func (e *Expr) Variability() Variability { return e.variability }

// ID returns the node's creation index. Creation indices form a stable
// total order used to canonicalize bilinear pairs.
func (e *Expr) ID() uint64 { return e.id }

// NUses returns the current reference count.
func (e *Expr) NUses() int { return e.nuses }

// IsSimplified reports whether the node is the canonical simplified
// representative produced by Builder.Simplify.
func (e *Expr) IsSimplified() bool { return e.simplified }

// NChildren returns the number of children.
func (e *Expr) NChildren() int {
	switch e.variability {
	case Nullary:
		return 0
	case Unary:
		return 1
	case Binary:
		return 2
	default:
		return e.nchildren
	}
}

// Child returns the i-th child.
func (e *Expr) Child(i int) *Expr {
	switch e.variability {
	case Unary:
		assert(i == 0, "child index %d out of range", i)
		return e.single
	case Binary:
		assert(i >= 0 && i < 2, "child index %d out of range", i)
		return e.pair[i]
	case Multivariate:
		assert(i >= 0 && i < e.nchildren, "child index %d out of range", i)
		return e.children[i]
	default:
		panic("nullary expression has no children")
	}
}

// Children returns a copy of the children slice.
func (e *Expr) Children() []*Expr {
	n := e.NChildren()
	if n == 0 {
		return nil
	}
	a := make([]*Expr, n)
	for i := 0; i < n; i++ {
		a[i] = e.Child(i)
	}
	return a
}

// setChildren installs children into the layout matching their count.
// Children are not captured here; the caller transfers or adds references.
func (e *Expr) setChildren(children []*Expr) {
	switch n := len(children); {
	case n == 0:
		e.variability = Nullary
	case n == 1:
		e.variability = Unary
		e.single = children[0]
	case n == 2:
		e.variability = Binary
		e.pair[0], e.pair[1] = children[0], children[1]
	default:
		e.variability = Multivariate
		e.children = make([]*Expr, n)
		copy(e.children, children)
		e.nchildren = n
	}
}

// AppendChild adds a captured reference to c, for incrementally building a
// multivariate node. Only valid on raw nodes; the multivariate layout grows
// geometrically.
func (e *Expr) AppendChild(c *Expr) {
	assert(!e.simplified, "cannot append to a simplified expression")
	assert(e.hdlr.variability == Multivariate, "cannot append to %s handler %q", e.hdlr.variability, e.hdlr.name)
	c.Capture()
	e.hash = 0
	switch e.variability {
	case Nullary:
		e.variability = Unary
		e.single = c
	case Unary:
		e.variability = Binary
		e.pair[0], e.pair[1] = e.single, c
		e.single = nil
	case Binary:
		e.variability = Multivariate
		e.children = make([]*Expr, 4)
		e.children[0], e.children[1], e.children[2] = e.pair[0], e.pair[1], c
		e.nchildren = 3
		e.pair[0], e.pair[1] = nil, nil
	default:
		if e.nchildren == len(e.children) {
			grown := make([]*Expr, 2*len(e.children))
			copy(grown, e.children)
			e.children = grown
		}
		e.children[e.nchildren] = c
		e.nchildren++
	}
}

// Capture increments the reference count and returns e for chaining. Any
// code that stores an additional reference to a shared node must capture.
func (e *Expr) Capture() *Expr {
	if e != nil {
		e.nuses++
	}
	return e
}

// Release decrements the reference count behind *pe and clears *pe. At zero
// the node frees its private data, releases its children recursively, and
// is forgotten by its builder. Releasing through a nil reference is a no-op.
func Release(pe **Expr) {
	if pe == nil || *pe == nil {
		return
	}
	e := *pe
	*pe = nil
	e.release()
}

func (e *Expr) release() {
	assert(e.nuses > 0, "refcount underflow on %q expression", e.hdlr.name)
	e.nuses--
	if e.nuses > 0 {
		return
	}
	if e.owner != nil {
		e.owner.forget(e)
	}
	if e.hdlr.cb.FreeData != nil {
		e.hdlr.cb.FreeData(e.data)
	}
	for i, n := 0, e.NChildren(); i < n; i++ {
		e.Child(i).release()
	}
	e.data = nil
	e.single = nil
	e.pair[0], e.pair[1] = nil, nil
	e.children = nil
	e.nchildren = 0
	e.variability = Nullary
}

// Hash returns the structural hash of the expression, computed bottom-up
// and cached. Structurally equal expressions hash equal.
func (e *Expr) Hash() uint64 {
	if e.hash != 0 {
		return e.hash
	}
	h := xxhash.New()
	_, _ = h.WriteString(e.hdlr.name)
	if e.hdlr.cb.HashData != nil {
		e.hdlr.cb.HashData(e.data, h)
	}
	var buf [8]byte
	for i, n := 0, e.NChildren(); i < n; i++ {
		binary.LittleEndian.PutUint64(buf[:], e.Child(i).Hash())
		_, _ = h.Write(buf[:])
	}
	sum := h.Sum64()
	if sum == 0 {
		sum = 1 // reserve 0 for "not computed"
	}
	e.hash = sum
	return sum
}

// Equal reports whether a and b are structurally equal: same handler,
// recursively equal children in order, and equal data as defined by the
// handler. Handlers with data must provide EqualData to participate.
func Equal(a, b *Expr) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.hdlr != b.hdlr || a.NChildren() != b.NChildren() || a.Hash() != b.Hash() {
		return false
	}
	if a.hdlr.cb.EqualData != nil {
		if !a.hdlr.cb.EqualData(a.data, b.data) {
			return false
		}
	} else if a.data != nil || b.data != nil {
		return false
	}
	for i, n := 0, a.NChildren(); i < n; i++ {
		if !Equal(a.Child(i), b.Child(i)) {
			return false
		}
	}
	return true
}

// handlerRank orders operator kinds for the canonical total order:
// constants first, then variables, then everything else by name.
func handlerRank(h *Handler) int {
	switch h.name {
	case HandlerVal:
		return 0
	case HandlerVar:
		return 1
	default:
		return 2
	}
}

// Compare returns an integer comparing two expressions under the canonical
// total order. The result will be 0 iff a and b are structurally equal.
func Compare(a, b *Expr) int {
	if a == b {
		return 0
	}
	if a == nil {
		return -1
	} else if b == nil {
		return 1
	}

	if ar, br := handlerRank(a.hdlr), handlerRank(b.hdlr); ar != br {
		if ar < br {
			return -1
		}
		return 1
	}
	if a.hdlr != b.hdlr {
		if a.hdlr.name < b.hdlr.name {
			return -1
		}
		return 1
	}
	if an, bn := a.NChildren(), b.NChildren(); an != bn {
		if an < bn {
			return -1
		}
		return 1
	}
	for i, n := 0, a.NChildren(); i < n; i++ {
		if cmp := Compare(a.Child(i), b.Child(i)); cmp != 0 {
			return cmp
		}
	}
	if a.hdlr.cb.CompareData != nil {
		return a.hdlr.cb.CompareData(a.data, b.data)
	}
	return 0
}

// MarkAuxNeeded flags the expression as needing an auxiliary representative
// in the numerical relaxation layer. Idempotent.
func (e *Expr) MarkAuxNeeded() { e.needsAux = true }

// NeedsAux reports whether the expression was flagged as needing an
// auxiliary representative.
func (e *Expr) NeedsAux() bool { return e.needsAux }

// Walk visits the expressions reachable from root in pre-order. Shared
// nodes are visited once. If visit returns false the node's children are
// skipped.
func Walk(root *Expr, visit func(e *Expr) bool) {
	seen := make(map[*Expr]struct{})
	var walk func(e *Expr)
	walk = func(e *Expr) {
		if _, ok := seen[e]; ok {
			return
		}
		seen[e] = struct{}{}
		if !visit(e) {
			return
		}
		for i, n := 0, e.NChildren(); i < n; i++ {
			walk(e.Child(i))
		}
	}
	walk(root)
}

// CopyExpr deep-copies e into dst, which may belong to a different
// registry. Sharing topology is preserved: a subexpression shared in e is
// shared in the copy. Node data is duplicated via the handler's CopyData
// callback; handlers absent from dst's registry fail the copy.
func CopyExpr(e *Expr, dst *Builder) (*Expr, error) {
	memo := make(map[*Expr]*Expr)
	return copyExpr(e, dst, memo)
}

func copyExpr(e *Expr, dst *Builder, memo map[*Expr]*Expr) (*Expr, error) {
	if dup, ok := memo[e]; ok {
		return dup.Capture(), nil
	}

	hdlr, err := dst.Registry().Lookup(e.hdlr.name)
	if err != nil {
		return nil, err
	}

	children := make([]*Expr, e.NChildren())
	for i := range children {
		if children[i], err = copyExpr(e.Child(i), dst, memo); err != nil {
			for j := 0; j < i; j++ {
				Release(&children[j])
			}
			return nil, err
		}
	}

	data := e.data
	if hdlr.cb.CopyData != nil {
		if data, err = hdlr.cb.CopyData(e); err != nil {
			for i := range children {
				Release(&children[i])
			}
			return nil, err
		}
	}

	dup, err := dst.NewExpr(hdlr, data, children...)
	for i := range children {
		Release(&children[i])
	}
	if err != nil {
		return nil, err
	}
	memo[e] = dup
	return dup, nil
}
