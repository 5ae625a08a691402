package exprgraph

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// IsVariable reports whether e references a variable.
func IsVariable(e *Expr) bool { return e.hdlr.name == HandlerVar }

// VarOf returns the variable handle referenced by e.
func VarOf(e *Expr) *Var {
	assert(IsVariable(e), "expected %q expression, got %q", HandlerVar, e.hdlr.name)
	return e.data.(*Var)
}

func registerVarHandler(reg *Registry) error {
	_, err := reg.Register(HandlerVar, "variable reference", Nullary, precAtom, Callbacks{
		// Variable data compares by handle identity, not by name.
		EqualData: func(a, b interface{}) bool {
			return a.(*Var) == b.(*Var)
		},
		CompareData: func(a, b interface{}) int {
			av, bv := a.(*Var), b.(*Var)
			if av.Index != bv.Index {
				if av.Index < bv.Index {
					return -1
				}
				return 1
			}
			if av.Name != bv.Name {
				if av.Name < bv.Name {
					return -1
				}
				return 1
			}
			return 0
		},
		HashData: func(data interface{}, h *xxhash.Digest) {
			v := data.(*Var)
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], uint64(v.Index))
			_, _ = h.Write(buf[:])
			_, _ = h.WriteString(v.Name)
		},
		Eval: func(ctx *EvalContext, e *Expr, args []float64) (float64, error) {
			return ctx.Value(e.data.(*Var))
		},
		Inteval: func(e *Expr, args []Interval) Interval {
			v := e.data.(*Var)
			return Interval{Inf: v.Lb, Sup: v.Ub}
		},
		Print: func(e *Expr, args []string) string {
			return e.data.(*Var).Name
		},
	}, nil)
	return err
}
