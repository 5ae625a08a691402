package exprgraph

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// IsValue reports whether e is a numeric-constant expression.
func IsValue(e *Expr) bool { return e.hdlr.name == HandlerVal }

// ValValue returns the numeric value of a constant expression.
func ValValue(e *Expr) float64 {
	assert(IsValue(e), "expected %q expression, got %q", HandlerVal, e.hdlr.name)
	return e.data.(float64)
}

func registerValHandler(reg *Registry) error {
	_, err := reg.Register(HandlerVal, "numeric constant", Nullary, precAtom, Callbacks{
		EqualData: func(a, b interface{}) bool {
			return a.(float64) == b.(float64)
		},
		CompareData: func(a, b interface{}) int {
			return compareFloats(a.(float64), b.(float64))
		},
		HashData: hashFloatData,
		Eval: func(ctx *EvalContext, e *Expr, args []float64) (float64, error) {
			return e.data.(float64), nil
		},
		Inteval: func(e *Expr, args []Interval) Interval {
			return PointInterval(e.data.(float64))
		},
		Print: func(e *Expr, args []string) string {
			return fmt.Sprintf("%g", e.data.(float64))
		},
	}, nil)
	return err
}

func compareFloats(a, b float64) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// hashFloatData mixes a float64 data value into the structural hash.
// Negative zero hashes as zero so the hash stays consistent with the
// by-value data equality.
func hashFloatData(data interface{}, h *xxhash.Digest) {
	v := data.(float64)
	if v == 0 {
		v = 0
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	_, _ = h.Write(buf[:])
}
