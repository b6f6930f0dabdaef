package mix

import (
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/vecrec/internal/domain/aspect"
)

// MaxWeight bounds a single slot weight so weighted sums stay finite.
const MaxWeight = 1000.0

// Weights holds one weight per canonical aspect slot.
type Weights [aspect.Count]float64

// Of returns the weight of aspect a. Unknown aspects weigh 0.
func (w Weights) Of(a aspect.Aspect) float64 {
	if s := a.Slot(); s >= 0 {
		return w[s]
	}
	return 0
}

// Parse reads a hyphen-separated weight string such as "1-2-0-0.5".
// Tokens map positionally onto canonical slots. Missing slots stay 0,
// tokens past the last slot are ignored, and any token that is not a
// finite non-negative number yields 0 for its slot. Weights above
// MaxWeight are capped.
func Parse(spec string) Weights {
	var w Weights
	if strings.TrimSpace(spec) == "" {
		return w
	}
	for i, tok := range strings.Split(spec, "-") {
		if i >= aspect.Count {
			break
		}
		w[i] = parseToken(tok)
	}
	return w
}

func parseToken(tok string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return min(v, MaxWeight)
}

// Uniform weighs every given aspect 1 and all others 0.
func Uniform(aspects []aspect.Aspect) Weights {
	var w Weights
	for _, a := range aspects {
		if s := a.Slot(); s >= 0 {
			w[s] = 1
		}
	}
	return w
}

// IsZero reports whether no slot carries weight.
func (w Weights) IsZero() bool {
	for _, v := range w {
		if v != 0 {
			return false
		}
	}
	return true
}
