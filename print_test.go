package exprgraph_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/exprgraph/exprgraph"
)

func TestPrint(t *testing.T) {
	for _, tt := range []struct {
		input string
		want  string
	}{
		{`y*(x + 1)`, `y*(1 + x)`},
		{`(x + 1)^2`, `(1 + x)^2`},
		{`(x^2)^0.5`, `(x^2)^0.5`},
		{`x*y^2`, `x*y^2`},
		{`sin(x + 1)`, `sin(1 + x)`},
		{`x - y`, `x - y`},
		{`1 - x + 2`, `3 - x`},
		{`x^-2`, `x^-2`},
	} {
		t.Run(tt.input, func(t *testing.T) {
			b := newTestBuilder(t)
			for _, name := range []string{"x", "y"} {
				b.DefineVar(name, math.Inf(-1), math.Inf(1))
			}
			e, err := b.Parse(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			s, err := b.Simplify(e)
			if err != nil {
				t.Fatal(err)
			}
			exprgraph.Release(&e)
			defer exprgraph.Release(&s)

			if got := s.String(); got != tt.want {
				t.Fatalf("unexpected rendering: %s", got)
			}
		})
	}
}

func TestPrint_Writer(t *testing.T) {
	b := newTestBuilder(t)
	e, err := b.Parse("x + 1")
	if err != nil {
		t.Fatal(err)
	}
	defer exprgraph.Release(&e)

	var buf bytes.Buffer
	if err := exprgraph.Print(&buf, e); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "x + 1" {
		t.Fatalf("unexpected rendering: %s", got)
	}
}

func TestPrint_NegativeConstant(t *testing.T) {
	b := newTestBuilder(t)
	v := b.Value(-2)
	e, err := b.Pow(v, 2)
	if err != nil {
		t.Fatal(err)
	}
	exprgraph.Release(&v)
	defer exprgraph.Release(&e)

	if got := e.String(); got != "(-2)^2" {
		t.Fatalf("unexpected rendering: %s", got)
	}
}

func TestPrint_RoundTrip(t *testing.T) {
	for _, input := range []string{
		`x^2 + 2*x*y + y^2`,
		`x - 2*y + 3`,
		`sin(x)*cos(x + 1)`,
		`x^-1 + x^0.5`,
		`abs(x - y)^3`,
	} {
		t.Run(input, func(t *testing.T) {
			b := newTestBuilder(t)
			for _, name := range []string{"x", "y"} {
				b.DefineVar(name, math.Inf(-1), math.Inf(1))
			}
			e, err := b.Parse(input)
			if err != nil {
				t.Fatal(err)
			}
			s, err := b.Simplify(e)
			if err != nil {
				t.Fatal(err)
			}
			exprgraph.Release(&e)

			// Parsing the rendering back must reproduce the same node.
			back, err := b.Parse(s.String())
			if err != nil {
				t.Fatalf("rendering does not re-parse: %v", err)
			}
			again, err := b.Simplify(back)
			if err != nil {
				t.Fatal(err)
			}
			if again != s {
				t.Fatalf("round trip changed the expression: %s != %s", again, s)
			}
			exprgraph.Release(&back)
			exprgraph.Release(&again)
			exprgraph.Release(&s)
		})
	}
}

// A handler registered outside the package gets the generic prefix
// rendering and full participation in evaluation and simplification.
func TestCustomHandler(t *testing.T) {
	reg := exprgraph.NewRegistry()
	if err := exprgraph.RegisterDefaults(reg); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Register("max", "maximum of two operands", exprgraph.Binary, 10, exprgraph.Callbacks{
		Eval: func(ctx *exprgraph.EvalContext, e *exprgraph.Expr, args []float64) (float64, error) {
			return math.Max(args[0], args[1]), nil
		},
		Inteval: func(e *exprgraph.Expr, args []exprgraph.Interval) exprgraph.Interval {
			return exprgraph.Interval{
				Inf: math.Max(args[0].Inf, args[1].Inf),
				Sup: math.Max(args[0].Sup, args[1].Sup),
			}
		},
		Simplify: func(b *exprgraph.Builder, e *exprgraph.Expr) (*exprgraph.Expr, error) {
			a, c := e.Child(0), e.Child(1)
			if exprgraph.IsValue(a) && exprgraph.IsValue(c) {
				return b.Value(math.Max(exprgraph.ValValue(a), exprgraph.ValValue(c))), nil
			}
			return e.Capture(), nil
		},
	}, nil); err != nil {
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

	t.Run("PrefixRendering", func(t *testing.T) {
		x := b.Variable(b.DefineVar("x", 0, 1))
		one := b.Value(1)
		e, err := b.NewExpr(hdlr, nil, x, one)
		if err != nil {
			t.Fatal(err)
		}
		exprgraph.Release(&x)
		exprgraph.Release(&one)
		defer exprgraph.Release(&e)

		if got := e.String(); got != "max(x, 1)" {
			t.Fatalf("unexpected rendering: %s", got)
		}
		if v, err := exprgraph.Eval(e, []float64{7}); err != nil {
			t.Fatal(err)
		} else if v != 7 {
			t.Fatalf("unexpected value: %g", v)
		}
	})
	t.Run("Simplify", func(t *testing.T) {
		a, c := b.Value(2), b.Value(5)
		e, err := b.NewExpr(hdlr, nil, a, c)
		if err != nil {
			t.Fatal(err)
		}
		exprgraph.Release(&a)
		exprgraph.Release(&c)

		s, err := b.Simplify(e)
		if err != nil {
			t.Fatal(err)
		}
		if !exprgraph.IsValue(s) || exprgraph.ValValue(s) != 5 {
			t.Fatalf("unexpected simplification: %s", s)
		}
		exprgraph.Release(&e)
		exprgraph.Release(&s)
	})
}
