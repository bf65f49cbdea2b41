// Package numeric holds small float64 helpers shared by the QSS/LIQSS
// advance paths that don't belong on Variable itself.
package numeric

import "math"

// minNormal is the smallest positive normal float64 (2^-1022). Anything
// smaller in magnitude is subnormal.
const minNormal = 2.2250738585072014e-308

// FlushDenormal returns 0 if x is a non-zero subnormal float64, and x
// unchanged otherwise. The original QSS core flushes denormals to zero
// before integration (denormals_to_zero) since subnormal arithmetic runs
// substantially slower on most FPUs; ported here for the same reason on
// the Taylor coefficients the advance paths publish.
func FlushDenormal(x float64) float64 {
	if x != 0 && math.Abs(x) < minNormal {
		return 0
	}
	return x
}
