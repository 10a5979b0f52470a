package graph

import "math"

// decay applies exponential half-life decay: value * 2^(-dh/H), where dh is
// elapsed hours between updatedAtMs and nowMs. Values from the future
// (nowMs < updatedAtMs, e.g. clock skew) are treated as zero elapsed time.
func decay(value float64, updatedAtMs, nowMs int64, halfLifeHours float64) float64 {
	if halfLifeHours <= 0 {
		return value
	}
	dhMs := nowMs - updatedAtMs
	if dhMs <= 0 {
		return value
	}
	dh := float64(dhMs) / 3_600_000.0
	return value * math.Exp2(-dh/halfLifeHours)
}
