package exprgraph

import (
	"fmt"
	"math"
)

// Interval is a closed interval [Inf, Sup] with infinite ends allowed.
// Interval evaluation is conservative: the result always encloses the true
// range, it need not be tight.
type Interval struct {
	Inf float64
	Sup float64
}

// EntireInterval returns (-inf, +inf).
func EntireInterval() Interval {
	return Interval{Inf: math.Inf(-1), Sup: math.Inf(1)}
}

// PointInterval returns the degenerate interval [v, v].
func PointInterval(v float64) Interval {
	return Interval{Inf: v, Sup: v}
}

// IsEmpty reports whether the interval contains no point.
func (iv Interval) IsEmpty() bool { return iv.Inf > iv.Sup }

// Contains reports whether v lies in the interval.
func (iv Interval) Contains(v float64) bool { return iv.Inf <= v && v <= iv.Sup }

// String returns the string representation of the interval.
func (iv Interval) String() string {
	return fmt.Sprintf("[%g, %g]", iv.Inf, iv.Sup)
}

// Add returns the interval sum.
func (iv Interval) Add(other Interval) Interval {
	return Interval{Inf: iv.Inf + other.Inf, Sup: iv.Sup + other.Sup}
}

// MulScalar returns the interval scaled by s.
func (iv Interval) MulScalar(s float64) Interval {
	if s >= 0 {
		return Interval{Inf: s * iv.Inf, Sup: s * iv.Sup}
	}
	return Interval{Inf: s * iv.Sup, Sup: s * iv.Inf}
}

// Mul returns the interval product.
func (iv Interval) Mul(other Interval) Interval {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range [4]float64{
		ivMul(iv.Inf, other.Inf),
		ivMul(iv.Inf, other.Sup),
		ivMul(iv.Sup, other.Inf),
		ivMul(iv.Sup, other.Sup),
	} {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	return Interval{Inf: lo, Sup: hi}
}

// ivMul multiplies with the convention 0 * inf = 0, which is the correct
// bound for interval endpoints.
func ivMul(a, b float64) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	return a * b
}

// Pow returns an enclosure of iv^p for a fixed real exponent p. Negative
// exponents over an interval containing zero widen to the entire line;
// fractional exponents are restricted to the nonnegative part of iv.
func (iv Interval) Pow(p float64) Interval {
	if p == 0 {
		return PointInterval(1) // 0^0 := 1
	}
	if p == 1 {
		return iv
	}

	integral := p == math.Trunc(p)
	if !integral {
		// Clip to the domain x >= 0.
		lo := math.Max(iv.Inf, 0)
		hi := iv.Sup
		if hi < 0 {
			return Interval{Inf: 1, Sup: 0} // empty
		}
		if p > 0 {
			return Interval{Inf: math.Pow(lo, p), Sup: math.Pow(hi, p)}
		}
		if lo == 0 {
			return Interval{Inf: math.Pow(hi, p), Sup: math.Inf(1)}
		}
		return Interval{Inf: math.Pow(hi, p), Sup: math.Pow(lo, p)}
	}

	if p < 0 {
		if iv.Contains(0) {
			return EntireInterval()
		}
		inv := Interval{Inf: 1 / iv.Sup, Sup: 1 / iv.Inf}
		return inv.Pow(-p)
	}

	even := math.Mod(p, 2) == 0
	a, b := math.Pow(iv.Inf, p), math.Pow(iv.Sup, p)
	if !even {
		return Interval{Inf: a, Sup: b}
	}
	if iv.Contains(0) {
		return Interval{Inf: 0, Sup: math.Max(a, b)}
	}
	return Interval{Inf: math.Min(a, b), Sup: math.Max(a, b)}
}

// Exp returns an enclosure of e^iv.
func (iv Interval) Exp() Interval {
	return Interval{Inf: math.Exp(iv.Inf), Sup: math.Exp(iv.Sup)}
}

// Log returns an enclosure of the natural logarithm over the part of iv in
// the domain x > 0.
func (iv Interval) Log() Interval {
	if iv.Sup <= 0 {
		return Interval{Inf: 1, Sup: 0} // empty
	}
	lo := math.Inf(-1)
	if iv.Inf > 0 {
		lo = math.Log(iv.Inf)
	}
	return Interval{Inf: lo, Sup: math.Log(iv.Sup)}
}

// Abs returns an enclosure of |iv|.
func (iv Interval) Abs() Interval {
	a, b := math.Abs(iv.Inf), math.Abs(iv.Sup)
	if iv.Contains(0) {
		return Interval{Inf: 0, Sup: math.Max(a, b)}
	}
	return Interval{Inf: math.Min(a, b), Sup: math.Max(a, b)}
}

// Sin returns an enclosure of sin(iv).
func (iv Interval) Sin() Interval {
	return ivTrig(iv, math.Sin, -math.Pi/2)
}

// Cos returns an enclosure of cos(iv).
func (iv Interval) Cos() Interval {
	return ivTrig(iv, math.Cos, -math.Pi)
}

// ivTrig bounds a sine-shaped function over iv. The function attains -1 at
// troughOffset + 2k*pi and +1 half a period later.
func ivTrig(iv Interval, fn func(float64) float64, troughOffset float64) Interval {
	if iv.Sup-iv.Inf >= 2*math.Pi {
		return Interval{Inf: -1, Sup: 1}
	}
	lo := math.Min(fn(iv.Inf), fn(iv.Sup))
	hi := math.Max(fn(iv.Inf), fn(iv.Sup))
	if ivContainsShifted(iv, troughOffset) {
		lo = -1
	}
	if ivContainsShifted(iv, troughOffset+math.Pi) {
		hi = 1
	}
	return Interval{Inf: lo, Sup: hi}
}

// ivContainsShifted reports whether iv contains offset + 2k*pi for some
// integer k.
func ivContainsShifted(iv Interval, offset float64) bool {
	k := math.Ceil((iv.Inf - offset) / (2 * math.Pi))
	return offset+2*math.Pi*k <= iv.Sup
}
