package miner

import "math"

// wilsonLowerBound computes the one-sided 95% Wilson score lower bound for
// p = successes/trials.
func wilsonLowerBound(successes, trials int) float64 {
	if trials == 0 {
		return 0.0
	}
	const z = 1.645
	n := float64(trials)
	p := float64(successes) / n

	denominator := 1 + z*z/n
	centerAdjusted := p + z*z/(2*n)
	margin := z * math.Sqrt((p*(1-p)+z*z/(4*n))/n)

	lb := (centerAdjusted - margin) / denominator
	if lb < 0 {
		return 0
	}
	return lb
}
