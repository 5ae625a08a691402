package exprgraph_test

import (
	"errors"
	"testing"

	"github.com/exprgraph/exprgraph"
)

func TestRegistry(t *testing.T) {
	t.Run("Register", func(t *testing.T) {
		reg := exprgraph.NewRegistry()
		h, err := reg.Register("max", "maximum", exprgraph.Binary, 10, exprgraph.Callbacks{}, nil)
		if err != nil {
			t.Fatal(err)
		} else if h.Name() != "max" {
			t.Fatalf("unexpected name: %s", h.Name())
		} else if h.Variability() != exprgraph.Binary {
			t.Fatalf("unexpected variability: %s", h.Variability())
		}
	})
	t.Run("ErrDuplicate", func(t *testing.T) {
		reg := exprgraph.NewRegistry()
		if _, err := reg.Register("max", "maximum", exprgraph.Binary, 10, exprgraph.Callbacks{}, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := reg.Register("max", "maximum", exprgraph.Binary, 10, exprgraph.Callbacks{}, nil); !errors.Is(err, exprgraph.ErrDuplicateHandler) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	t.Run("ErrNotFound", func(t *testing.T) {
		reg := exprgraph.NewRegistry()
		if _, err := reg.Lookup("nope"); !errors.Is(err, exprgraph.ErrHandlerNotFound) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	t.Run("Handlers", func(t *testing.T) {
		reg := exprgraph.NewRegistry()
		if err := exprgraph.RegisterDefaults(reg); err != nil {
			t.Fatal(err)
		}
		a := reg.Handlers()
		if len(a) == 0 {
			t.Fatal("expected handlers")
		} else if a[0].Name() != exprgraph.HandlerVal {
			t.Fatalf("unexpected first handler: %s", a[0].Name())
		}
	})
	t.Run("CopyTo", func(t *testing.T) {
		reg := exprgraph.NewRegistry()
		if err := exprgraph.RegisterDefaults(reg); err != nil {
			t.Fatal(err)
		}
		dst := exprgraph.NewRegistry()
		if err := reg.CopyTo(dst); err != nil {
			t.Fatal(err)
		}
		if len(dst.Handlers()) != len(reg.Handlers()) {
			t.Fatalf("unexpected handler count: %d", len(dst.Handlers()))
		}
		if _, err := dst.Lookup(exprgraph.HandlerSum); err != nil {
			t.Fatal(err)
		}
	})
}

func TestVariability_String(t *testing.T) {
	t.Run("Known", func(t *testing.T) {
		if s := exprgraph.Multivariate.String(); s != "multivariate" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("Unknown", func(t *testing.T) {
		if s := exprgraph.Variability(100).String(); s != "Variability<100>" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
}

func TestNewExpr_ErrArityMismatch(t *testing.T) {
	b := newTestBuilder(t)
	hdlr, err := b.Registry().Lookup(exprgraph.HandlerPow)
	if err != nil {
		t.Fatal(err)
	}
	x := b.Variable(b.DefineVar("x", 0, 1))
	defer exprgraph.Release(&x)
	y := b.Variable(b.DefineVar("y", 0, 1))
	defer exprgraph.Release(&y)

	if _, err := b.NewExpr(hdlr, 2.0, x, y); !errors.Is(err, exprgraph.ErrArityMismatch) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExpr_CaptureRelease(t *testing.T) {
	t.Run("Balanced", func(t *testing.T) {
		b := newTestBuilder(t)
		x := b.Variable(b.DefineVar("x", 0, 1))
		e, err := b.Sum(nil, 1, x, x)
		if err != nil {
			t.Fatal(err)
		}
		exprgraph.Release(&x)

		if b.LiveNodes() != 2 {
			t.Fatalf("unexpected live nodes: %d", b.LiveNodes())
		}
		exprgraph.Release(&e)
		if b.LiveNodes() != 0 {
			t.Fatalf("unexpected live nodes after release: %d", b.LiveNodes())
		}
	})
	t.Run("SharedChild", func(t *testing.T) {
		b := newTestBuilder(t)
		x := b.Variable(b.DefineVar("x", 0, 1))
		p, err := b.Pow(x, 2)
		if err != nil {
			t.Fatal(err)
		}
		s, err := b.Sum(nil, 0, x, p)
		if err != nil {
			t.Fatal(err)
		}
		if got := x.NUses(); got != 3 {
			t.Fatalf("unexpected refcount: %d", got)
		}

		exprgraph.Release(&x)
		exprgraph.Release(&p)
		if b.LiveNodes() != 3 {
			t.Fatalf("unexpected live nodes: %d", b.LiveNodes())
		}
		exprgraph.Release(&s)
		if b.LiveNodes() != 0 {
			t.Fatalf("unexpected live nodes after release: %d", b.LiveNodes())
		}
	})
	t.Run("NilRelease", func(t *testing.T) {
		var e *exprgraph.Expr
		exprgraph.Release(&e) // no-op
		exprgraph.Release(nil)
	})
}

func TestExpr_ChildrenLayouts(t *testing.T) {
	b := newTestBuilder(t)
	x := b.Variable(b.DefineVar("x", 0, 1))
	defer exprgraph.Release(&x)

	t.Run("Nullary", func(t *testing.T) {
		v := b.Value(7)
		defer exprgraph.Release(&v)
		if v.Variability() != exprgraph.Nullary {
			t.Fatalf("unexpected variability: %s", v.Variability())
		} else if v.NChildren() != 0 {
			t.Fatalf("unexpected child count: %d", v.NChildren())
		} else if v.Children() != nil {
			t.Fatal("expected nil children")
		}
	})
	t.Run("Unary", func(t *testing.T) {
		e, err := b.Pow(x, 2)
		if err != nil {
			t.Fatal(err)
		}
		defer exprgraph.Release(&e)
		if e.Variability() != exprgraph.Unary {
			t.Fatalf("unexpected variability: %s", e.Variability())
		} else if e.NChildren() != 1 || e.Child(0) != x {
			t.Fatal("unexpected children")
		}
	})
	t.Run("Binary", func(t *testing.T) {
		y := b.Variable(b.DefineVar("y", 0, 1))
		defer exprgraph.Release(&y)
		e, err := b.Product(1, x, y)
		if err != nil {
			t.Fatal(err)
		}
		defer exprgraph.Release(&e)
		if e.Variability() != exprgraph.Binary {
			t.Fatalf("unexpected variability: %s", e.Variability())
		} else if e.NChildren() != 2 || e.Child(0) != x || e.Child(1) != y {
			t.Fatal("unexpected children")
		}
	})
	t.Run("Multivariate", func(t *testing.T) {
		children := make([]*exprgraph.Expr, 5)
		for i := range children {
			children[i] = b.Value(float64(i))
		}
		e, err := b.Product(1, children...)
		if err != nil {
			t.Fatal(err)
		}
		defer exprgraph.Release(&e)
		for i := range children {
			exprgraph.Release(&children[i])
		}
		if e.Variability() != exprgraph.Multivariate {
			t.Fatalf("unexpected variability: %s", e.Variability())
		} else if e.NChildren() != 5 {
			t.Fatalf("unexpected child count: %d", e.NChildren())
		}
	})
}

func TestExpr_AppendChild(t *testing.T) {
	b := newTestBuilder(t)

	// Growing a product through every layout: empty, single, pair, slice.
	e, err := b.Product(1)
	if err != nil {
		t.Fatal(err)
	}
	var children []*exprgraph.Expr
	for i := 0; i < 10; i++ {
		c := b.Value(float64(i))
		e.AppendChild(c)
		children = append(children, c)
	}
	if e.NChildren() != 10 {
		t.Fatalf("unexpected child count: %d", e.NChildren())
	}
	for i, c := range children {
		if e.Child(i) != c {
			t.Fatalf("unexpected child at %d", i)
		}
		exprgraph.Release(&children[i])
	}

	exprgraph.Release(&e)
	if b.LiveNodes() != 0 {
		t.Fatalf("unexpected live nodes after release: %d", b.LiveNodes())
	}
}

func TestAppendSumTerm(t *testing.T) {
	b := newTestBuilder(t)
	x := b.Variable(b.DefineVar("x", 0, 1))
	y := b.Variable(b.DefineVar("y", 0, 1))

	e, err := b.Sum([]float64{2}, 1, x)
	if err != nil {
		t.Fatal(err)
	}
	exprgraph.AppendSumTerm(e, y, 3)
	exprgraph.Release(&x)
	exprgraph.Release(&y)

	coefs, constant := exprgraph.SumTerms(e)
	if constant != 1 {
		t.Fatalf("unexpected constant: %g", constant)
	} else if len(coefs) != 2 || coefs[0] != 2 || coefs[1] != 3 {
		t.Fatalf("unexpected coefficients: %v", coefs)
	}

	if v, err := exprgraph.Eval(e, []float64{10, 100}); err != nil {
		t.Fatal(err)
	} else if v != 321 {
		t.Fatalf("unexpected value: %g", v)
	}
	exprgraph.Release(&e)
}

func TestEqual(t *testing.T) {
	b := newTestBuilder(t)
	x := b.Variable(b.DefineVar("x", 0, 1))
	defer exprgraph.Release(&x)

	t.Run("Equal", func(t *testing.T) {
		a, err := b.Sum([]float64{2, 3}, 1, x, x)
		if err != nil {
			t.Fatal(err)
		}
		defer exprgraph.Release(&a)
		c, err := b.Sum([]float64{2, 3}, 1, x, x)
		if err != nil {
			t.Fatal(err)
		}
		defer exprgraph.Release(&c)
		if !exprgraph.Equal(a, c) {
			t.Fatal("expected equal")
		} else if a.Hash() != c.Hash() {
			t.Fatal("expected equal hashes")
		}
	})
	t.Run("NotEqualData", func(t *testing.T) {
		a, err := b.Sum([]float64{2}, 0, x)
		if err != nil {
			t.Fatal(err)
		}
		defer exprgraph.Release(&a)
		c, err := b.Sum([]float64{3}, 0, x)
		if err != nil {
			t.Fatal(err)
		}
		defer exprgraph.Release(&c)
		if exprgraph.Equal(a, c) {
			t.Fatal("expected not equal")
		}
	})
	t.Run("NotEqualHandler", func(t *testing.T) {
		v := b.Value(2)
		defer exprgraph.Release(&v)
		if exprgraph.Equal(v, x) {
			t.Fatal("expected not equal")
		}
	})
	t.Run("DistinctVariables", func(t *testing.T) {
		// Two variables with the same bounds are still different variables.
		y := b.Variable(b.DefineVar("y", 0, 1))
		defer exprgraph.Release(&y)
		if exprgraph.Equal(x, y) {
			t.Fatal("expected not equal")
		}
	})
}

func TestCompare(t *testing.T) {
	b := newTestBuilder(t)
	x := b.Variable(b.DefineVar("x", 0, 1))
	defer exprgraph.Release(&x)
	y := b.Variable(b.DefineVar("y", 0, 1))
	defer exprgraph.Release(&y)

	t.Run("ValueBeforeVariable", func(t *testing.T) {
		v := b.Value(1e9)
		defer exprgraph.Release(&v)
		if exprgraph.Compare(v, x) >= 0 {
			t.Fatal("expected value < variable")
		}
	})
	t.Run("VariableBeforeOperator", func(t *testing.T) {
		p, err := b.Pow(x, 2)
		if err != nil {
			t.Fatal(err)
		}
		defer exprgraph.Release(&p)
		if exprgraph.Compare(y, p) >= 0 {
			t.Fatal("expected variable < operator")
		}
	})
	t.Run("VariablesByIndex", func(t *testing.T) {
		if exprgraph.Compare(x, y) >= 0 {
			t.Fatal("expected x < y")
		} else if exprgraph.Compare(y, x) <= 0 {
			t.Fatal("expected y > x")
		}
	})
	t.Run("Values", func(t *testing.T) {
		a, c := b.Value(1), b.Value(2)
		defer exprgraph.Release(&a)
		defer exprgraph.Release(&c)
		if exprgraph.Compare(a, c) >= 0 {
			t.Fatal("expected 1 < 2")
		} else if exprgraph.Compare(a, a) != 0 {
			t.Fatal("expected self-compare 0")
		}
	})
	t.Run("ByChildren", func(t *testing.T) {
		px, err := b.Pow(x, 2)
		if err != nil {
			t.Fatal(err)
		}
		defer exprgraph.Release(&px)
		py, err := b.Pow(y, 2)
		if err != nil {
			t.Fatal(err)
		}
		defer exprgraph.Release(&py)
		if exprgraph.Compare(px, py) >= 0 {
			t.Fatal("expected x^2 < y^2")
		}
	})
}

func TestWalk(t *testing.T) {
	b := newTestBuilder(t)
	x := b.Variable(b.DefineVar("x", 0, 1))
	p, err := b.Pow(x, 2)
	if err != nil {
		t.Fatal(err)
	}
	s, err := b.Sum(nil, 0, x, p)
	if err != nil {
		t.Fatal(err)
	}
	exprgraph.Release(&x)
	exprgraph.Release(&p)
	defer exprgraph.Release(&s)

	t.Run("SharedVisitedOnce", func(t *testing.T) {
		var n int
		exprgraph.Walk(s, func(e *exprgraph.Expr) bool {
			n++
			return true
		})
		if n != 3 { // sum, pow, x
			t.Fatalf("unexpected visit count: %d", n)
		}
	})
	t.Run("Prune", func(t *testing.T) {
		var n int
		exprgraph.Walk(s, func(e *exprgraph.Expr) bool {
			n++
			return false
		})
		if n != 1 {
			t.Fatalf("unexpected visit count: %d", n)
		}
	})
}

func TestCopyExpr(t *testing.T) {
	t.Run("PreservesSharing", func(t *testing.T) {
		b := newTestBuilder(t)
		e, err := b.Parse("x^2 + x")
		if err != nil {
			t.Fatal(err)
		}
		s, err := b.Simplify(e)
		if err != nil {
			t.Fatal(err)
		}
		exprgraph.Release(&e)

		dst := newTestBuilder(t)
		dup, err := exprgraph.CopyExpr(s, dst)
		if err != nil {
			t.Fatal(err)
		}

		var orig, copied int
		exprgraph.Walk(s, func(e *exprgraph.Expr) bool { orig++; return true })
		exprgraph.Walk(dup, func(e *exprgraph.Expr) bool { copied++; return true })
		if orig != copied {
			t.Fatalf("sharing not preserved: %d != %d nodes", orig, copied)
		}
		if got, want := dup.String(), s.String(); got != want {
			t.Fatalf("unexpected rendering: %s != %s", got, want)
		}

		exprgraph.Release(&s)
		exprgraph.Release(&dup)
		if b.LiveNodes() != 0 || dst.LiveNodes() != 0 {
			t.Fatalf("leaked nodes: %d, %d", b.LiveNodes(), dst.LiveNodes())
		}
	})
	t.Run("ErrMissingHandler", func(t *testing.T) {
		reg := exprgraph.NewRegistry()
		if err := exprgraph.RegisterDefaults(reg); err != nil {
			t.Fatal(err)
		}
		if _, err := reg.Register("max", "maximum", exprgraph.Binary, 10, exprgraph.Callbacks{}, nil); err != nil {
			t.Fatal(err)
		}
		b, err := exprgraph.NewBuilder(reg)
		if err != nil {
			t.Fatal(err)
		}
		hdlr, err := reg.Lookup("max")
		if err != nil {
			t.Fatal(err)
		}
		x := b.Variable(b.DefineVar("x", 0, 1))
		y := b.Variable(b.DefineVar("y", 0, 1))
		e, err := b.NewExpr(hdlr, nil, x, y)
		if err != nil {
			t.Fatal(err)
		}
		exprgraph.Release(&x)
		exprgraph.Release(&y)
		defer exprgraph.Release(&e)

		dst := newTestBuilder(t) // no "max" handler
		if _, err := exprgraph.CopyExpr(e, dst); !errors.Is(err, exprgraph.ErrHandlerNotFound) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

// newTestBuilder returns a builder over a registry with the default
// handlers installed.
func newTestBuilder(tb testing.TB) *exprgraph.Builder {
	tb.Helper()
	reg := exprgraph.NewRegistry()
	if err := exprgraph.RegisterDefaults(reg); err != nil {
		tb.Fatal(err)
	}
	b, err := exprgraph.NewBuilder(reg)
	if err != nil {
		tb.Fatal(err)
	}
	return b
}
