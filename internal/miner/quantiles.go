package miner

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// latencyQuantiles returns [p25, p50, p75, p90, p99] of latenciesSec using
// gonum's empirical (inverse-CDF, no interpolation) quantile estimator. stat.Quantile requires
// its input sorted ascending.
func latencyQuantiles(latenciesSec []float64) []float64 {
	if len(latenciesSec) == 0 {
		return nil
	}
	sorted := make([]float64, len(latenciesSec))
	copy(sorted, latenciesSec)
	sort.Float64s(sorted)

	return []float64{
		stat.Quantile(0.25, stat.Empirical, sorted, nil),
		stat.Quantile(0.50, stat.Empirical, sorted, nil),
		stat.Quantile(0.75, stat.Empirical, sorted, nil),
		stat.Quantile(0.90, stat.Empirical, sorted, nil),
		stat.Quantile(0.99, stat.Empirical, sorted, nil),
	}
}
