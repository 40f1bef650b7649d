//go:build !fastmath

package pitch

import "math"

func binMagnitude(re, im float64) float64 {
	return math.Hypot(re, im)
}
