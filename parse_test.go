package exprgraph_test

import (
	"math"
	"strings"
	"testing"

	"github.com/exprgraph/exprgraph"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, tt := range []struct {
		input string
		point []float64 // x, y
		want  float64
	}{
		{`42`, nil, 42},
		{`1.5e2`, nil, 150},
		{`1 + 2*3`, nil, 7},
		{`(1 + 2)*3`, nil, 9},
		{`2^3^2`, nil, 512},
		{`7/2`, nil, 3.5},
		{`-x + 4`, []float64{3}, 1},
		{`--x`, []float64{3}, 3},
		{`x^2 - 2*x*y + y^2`, []float64{5, 2}, 9},
		{`2*x^2`, []float64{3}, 18},
		{`-2^2`, nil, -4},
		{`sin(0) + cos(0)`, nil, 1},
		{`exp(log(5))`, nil, 5},
		{`abs(1 - x)`, []float64{4}, 3},
	} {
		t.Run(tt.input, func(t *testing.T) {
			b := newTestBuilder(t)
			b.DefineVar("x", math.Inf(-1), math.Inf(1))
			b.DefineVar("y", math.Inf(-1), math.Inf(1))

			e, err := b.Parse(tt.input)
			require.NoError(t, err)
			v, err := exprgraph.Eval(e, tt.point)
			require.NoError(t, err)
			require.InDelta(t, tt.want, v, 1e-9)

			exprgraph.Release(&e)
			require.Zero(t, b.LiveNodes())
		})
	}
}

func TestParse_AutoDefinesVariables(t *testing.T) {
	b := newTestBuilder(t)
	e, err := b.Parse("alpha + beta")
	require.NoError(t, err)
	defer exprgraph.Release(&e)

	v, ok := b.LookupVar("alpha")
	require.True(t, ok)
	require.Equal(t, 0, v.Index)
	require.True(t, math.IsInf(v.Lb, -1))
	require.True(t, math.IsInf(v.Ub, 1))
	require.Equal(t, 2, b.NVars())
}

func TestParse_Errors(t *testing.T) {
	for _, tt := range []struct {
		input string
		col   int
		msg   string
	}{
		{`1 +`, 4, "expected expression"},
		{`(x + 1`, 7, "expected closing parenthesis"},
		{`x + $`, 5, "unexpected character"},
		{`x ^ y`, 6, "exponent must be a numeric constant"},
		{`x y`, 3, "expected end of expression"},
		{`tanh(x)`, 8, "unknown function"},
		{`1..2`, 1, "malformed number"},
	} {
		t.Run(tt.input, func(t *testing.T) {
			b := newTestBuilder(t)
			_, err := b.Parse(tt.input)
			require.Error(t, err)

			var perr *exprgraph.ParseError
			require.ErrorAs(t, err, &perr)
			require.Equal(t, tt.col, perr.Col)
			require.Contains(t, perr.Msg, tt.msg)
			require.Zero(t, b.LiveNodes(), "parse errors must not leak nodes")
		})
	}
}

func TestParseLines(t *testing.T) {
	b := newTestBuilder(t)
	input := strings.Join([]string{
		"# quadratics",
		"x^2 + x",
		"",
		"x +",
		"x + y",
	}, "\n")

	results := b.ParseLines(strings.NewReader(input))
	require.Len(t, results, 3)

	require.Equal(t, 2, results[0].Line)
	require.NoError(t, results[0].Err)
	require.Equal(t, "x^2 + x", results[0].Input)

	// The malformed statement carries its line and does not stop parsing.
	require.Equal(t, 4, results[1].Line)
	require.Error(t, results[1].Err)
	var perr *exprgraph.ParseError
	require.ErrorAs(t, results[1].Err, &perr)
	require.Equal(t, 4, perr.Line)
	require.Nil(t, results[1].Expr)

	require.Equal(t, 5, results[2].Line)
	require.NoError(t, results[2].Err)

	for i := range results {
		exprgraph.Release(&results[i].Expr)
	}
	require.Zero(t, b.LiveNodes())
}
