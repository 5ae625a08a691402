package exprgraph

import (
	"fmt"
	"io"
	"strings"
)

// Print writes the infix rendering of e to w using the handlers' print
// callbacks. Handlers without a print callback fall back to the prefix form
// name(children...).
func Print(w io.Writer, e *Expr) error {
	_, err := io.WriteString(w, formatExpr(e))
	return err
}

// String returns the infix rendering of the expression.
func (e *Expr) String() string {
	return formatExpr(e)
}

func formatExpr(e *Expr) string {
	n := e.NChildren()
	args := make([]string, n)
	for i := 0; i < n; i++ {
		c := e.Child(i)
		s := formatExpr(c)
		if needsParens(e, c, i) {
			s = "(" + s + ")"
		}
		args[i] = s
	}
	if e.hdlr.cb.Print != nil {
		return e.hdlr.cb.Print(e, args)
	}
	return fmt.Sprintf("%s(%s)", e.hdlr.name, strings.Join(args, ", "))
}

// needsParens decides whether child c in position i of parent e must be
// parenthesized. Handlers at atom precedence bracket their arguments
// themselves (sin(x)); the power operator is right-associative, so its base
// keeps parens at equal precedence.
func needsParens(e, c *Expr, i int) bool {
	pp := e.hdlr.prec
	if pp == precAtom {
		return false
	}
	cp := c.hdlr.prec
	if cp < pp {
		return true
	}
	if pp == precPow && i == 0 && cp == precPow {
		return true
	}
	// A negative constant would otherwise bind its sign to the operator.
	if IsValue(c) && ValValue(c) < 0 && pp >= precProd {
		return true
	}
	return false
}
