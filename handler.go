package exprgraph

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Variability classifies the number of children of an expression. For a
// handler it declares the accepted arity class; for a node it selects the
// children storage layout.
type Variability int

const (
	Nullary Variability = iota
	Unary
	Binary
	Multivariate
)

var variabilityNames = [...]string{
	Nullary:      "nullary",
	Unary:        "unary",
	Binary:       "binary",
	Multivariate: "multivariate",
}

// String returns the string representation of the variability.
func (v Variability) String() string {
	if v >= 0 && int(v) < len(variabilityNames) {
		return variabilityNames[v]
	}
	return fmt.Sprintf("Variability<%d>", v)
}

// Callbacks holds the optional capabilities of a handler. Any callback may
// be nil; the core falls back to a generic behavior or treats the
// capability as absent.
type Callbacks struct {
	// CopyHandler transplants handler-private data into another registry.
	// If nil the handler is stateless and is re-registered by name.
	CopyHandler func(data interface{}) (interface{}, error)

	// FreeHandler releases handler-private data at registry teardown.
	FreeHandler func(data interface{})

	// CopyData duplicates node-private data for a structural copy of e.
	// If nil the data is shared as-is (valid for immutable data).
	CopyData func(e *Expr) (interface{}, error)

	// FreeData releases node-private data when the node is destroyed.
	FreeData func(data interface{})

	// EqualData reports whether two data values are equal. Required for
	// handlers with data that participate in structural equality.
	EqualData func(a, b interface{}) bool

	// CompareData orders two data values. Used by the canonical total
	// order; handlers without data may leave it nil.
	CompareData func(a, b interface{}) int

	// HashData mixes node-private data into the structural hash.
	HashData func(data interface{}, h *xxhash.Digest)

	// Eval computes the value of the node given evaluated children.
	Eval func(ctx *EvalContext, e *Expr, args []float64) (float64, error)

	// Inteval computes an enclosing interval given child intervals.
	Inteval func(e *Expr, args []Interval) Interval

	// Print renders the node in infix form given printed children. The
	// children are already parenthesized according to precedence.
	Print func(e *Expr, args []string) string

	// Simplify applies the handler's local rewrite rules to a node whose
	// children are already simplified. It returns a captured expression;
	// returning e itself (captured) means no rule applied.
	Simplify func(b *Builder, e *Expr) (*Expr, error)

	// Diff returns the partial derivative of the node with respect to its
	// i-th child, as a new expression built with b.
	Diff func(b *Builder, e *Expr, i int) (*Expr, error)
}

// Handler describes one operator kind: its name, arity class, print
// precedence, optional private configuration data, and callbacks. Handlers
// are immutable once registered.
type Handler struct {
	name        string
	desc        string
	variability Variability
	prec        int
	data        interface{}
	cb          Callbacks
}

// Name returns the unique handler name.
func (h *Handler) Name() string { return h.name }

// Description returns the human-readable handler description.
func (h *Handler) Description() string { return h.desc }

// Variability returns the handler's declared arity class.
func (h *Handler) Variability() Variability { return h.variability }

// Precedence returns the infix print precedence of the operator.
func (h *Handler) Precedence() int { return h.prec }

// Data returns the handler-private configuration data.
func (h *Handler) Data() interface{} { return h.data }

// acceptsArity reports whether the handler allows n children.
func (h *Handler) acceptsArity(n int) bool {
	switch h.variability {
	case Nullary:
		return n == 0
	case Unary:
		return n == 1
	case Binary:
		return n == 2
	default:
		return true
	}
}

// Registry is a process-wide, append-only table of handlers. Registration
// happens during a single-threaded setup phase; afterwards the registry is
// read-only and may be shared across goroutines.
type Registry struct {
	handlers map[string]*Handler
	ordered  []*Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]*Handler)}
}

// Register adds a handler under a unique name. Returns ErrDuplicateHandler
// if the name is already taken.
func (r *Registry) Register(name, desc string, variability Variability, prec int, cb Callbacks, data interface{}) (*Handler, error) {
	if _, ok := r.handlers[name]; ok {
		return nil, fmt.Errorf("register %q: %w", name, ErrDuplicateHandler)
	}
	h := &Handler{name: name, desc: desc, variability: variability, prec: prec, data: data, cb: cb}
	r.handlers[name] = h
	r.ordered = append(r.ordered, h)
	return h, nil
}

// Lookup returns the handler registered under name, or ErrHandlerNotFound.
func (r *Registry) Lookup(name string) (*Handler, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("lookup %q: %w", name, ErrHandlerNotFound)
	}
	return h, nil
}

// Handlers returns all handlers in registration order.
func (r *Registry) Handlers() []*Handler {
	a := make([]*Handler, len(r.ordered))
	copy(a, r.ordered)
	return a
}

// Copy transplants h into dst, invoking the handler's copy callback for its
// private data. Stateless handlers are re-registered by name.
func (h *Handler) Copy(dst *Registry) (*Handler, error) {
	data := h.data
	if h.cb.CopyHandler != nil {
		var err error
		if data, err = h.cb.CopyHandler(h.data); err != nil {
			return nil, err
		}
	}
	return dst.Register(h.name, h.desc, h.variability, h.prec, h.cb, data)
}

// CopyTo copies every handler into dst in registration order. Used when
// cloning an entire modeling context.
func (r *Registry) CopyTo(dst *Registry) error {
	for _, h := range r.ordered {
		if _, err := h.Copy(dst); err != nil {
			return err
		}
	}
	return nil
}

// Close frees handler-private data. Only valid at registry teardown; the
// registry must not be used afterwards.
func (r *Registry) Close() {
	for _, h := range r.ordered {
		if h.cb.FreeHandler != nil {
			h.cb.FreeHandler(h.data)
		}
	}
	r.handlers = nil
	r.ordered = nil
}
