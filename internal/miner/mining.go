package miner

import (
	"context"
	"sort"

	"github.com/homecopilot/core/internal/config"
	"github.com/homecopilot/core/internal/copilotcore"
)

// eventIndex is a time-sorted list of occurrence timestamps per event key,
// built once per mining pass and reused across all (A,B,window) triples.
type eventIndex map[copilotcore.EventKey][]int64

func buildIndex(events []copilotcore.Event) eventIndex {
	idx := make(eventIndex)
	for _, e := range events {
		k := e.Key()
		idx[k] = append(idx[k], e.TsMs)
	}
	for k := range idx {
		sort.Slice(idx[k], func(i, j int) bool { return idx[k][i] < idx[k][j] })
	}
	return idx
}

func frequentCandidates(idx eventIndex, minSupportA, minSupportB int) (a, b map[copilotcore.EventKey]struct{}) {
	a = make(map[copilotcore.EventKey]struct{})
	b = make(map[copilotcore.EventKey]struct{})
	for k, ts := range idx {
		if len(ts) >= minSupportA {
			a[k] = struct{}{}
		}
		if len(ts) >= minSupportB {
			b[k] = struct{}{}
		}
	}
	return a, b
}

// countHits finds, for every occurrence of A, the first B in the half-open
// window (tA, tA+dtMs]. bTimes MUST be sorted ascending.
func countHits(aTimes, bTimes []int64, dtMs int64) (hits []Hit, misses []int64) {
	for _, ta := range aTimes {
		lo := upperBound(bTimes, ta)
		hi := upperBound(bTimes, ta+dtMs)
		if lo < hi {
			tb := bTimes[lo]
			if len(hits) < maxEvidenceExamples {
				hits = append(hits, Hit{TA: ta, TB: tb, DeltaMs: tb - ta})
			}
		} else if len(misses) < maxEvidenceExamples {
			misses = append(misses, ta)
		}
	}
	return hits, misses
}

// upperBound returns the index of the first element strictly greater than
// target (i.e. bisect_right).
func upperBound(sorted []int64, target int64) int {
	lo, hi := 0, len(sorted)
	for lo < hi {
		mid := (lo + hi) / 2
		if sorted[mid] <= target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// countHitsTotal counts the true hit total, independent of the bounded
// evidence slice returned by countHits.
func countHitsTotal(aTimes, bTimes []int64, dtMs int64) int {
	n := 0
	for _, ta := range aTimes {
		lo := upperBound(bTimes, ta)
		hi := upperBound(bTimes, ta+dtMs)
		if lo < hi {
			n++
		}
	}
	return n
}

// baselinePB estimates P(B occurring in a random dtSec window) by dividing
// B's total count by the number of dtSec windows spanning the observation
// period (the window-count estimator fixed by Open Question 1).
func baselinePB(bCount int, observationPeriodMs int64, dtSec int) float64 {
	if observationPeriodMs <= 0 {
		return 0
	}
	dtMs := int64(dtSec) * 1000
	numWindows := observationPeriodMs / dtMs
	if numWindows < 1 {
		numWindows = 1
	}
	p := float64(bCount) / float64(numWindows)
	if p > 1 {
		p = 1
	}
	return p
}

func entityOf(k copilotcore.EventKey) string {
	entityID, _ := copilotcore.SplitKey(k)
	return entityID
}

// MineOptions parameterizes one mining pass. Zone-scoped and
// context-stratified callers pre-filter events before invoking minePass;
// Zone/ContextKey here only tag the resulting rules' pattern ids.
type MineOptions struct {
	Zone       string
	ContextKey string
}

// minePass runs the full candidate-generation, hit-counting, and
// quality-filtering algorithm over a preprocessed event stream (§4.3). It
// performs no I/O and does not mutate any shared state; callers supply
// already-filtered/segmented events.
func minePass(ctx context.Context, events []copilotcore.Event, cfg config.MinerConfig, opts MineOptions) ([]*Rule, error) {
	if len(events) == 0 {
		return nil, nil
	}

	idx := buildIndex(events)
	aCandidates, bCandidates := frequentCandidates(idx, cfg.MinSupportA, cfg.MinSupportB)
	if len(aCandidates) == 0 || len(bCandidates) == 0 {
		return nil, nil
	}

	observationPeriodMs := events[len(events)-1].TsMs - events[0].TsMs
	observationPeriodDays := int(observationPeriodMs / (24 * 3600 * 1000))
	if observationPeriodDays < 1 {
		observationPeriodDays = 1
	}

	bCounts := make(map[copilotcore.EventKey]int, len(bCandidates))
	for k := range bCandidates {
		bCounts[k] = len(idx[k])
	}

	var rules []*Rule
	for _, dtSec := range cfg.WindowsSec {
		select {
		case <-ctx.Done():
			return nil, copilotcore.Cancelled("mining pass cancelled")
		default:
		}
		dtMs := int64(dtSec) * 1000

		for a := range aCandidates {
			for b := range bCandidates {
				if cfg.ExcludeSelfRules && a == b {
					continue
				}
				if cfg.ExcludeSameEntity && entityOf(a) == entityOf(b) {
					continue
				}

				aTimes, bTimes := idx[a], idx[b]
				nAB := countHitsTotal(aTimes, bTimes, dtMs)
				if nAB < cfg.MinHits {
					continue
				}

				nA, nB := len(aTimes), len(bTimes)
				confidence := float64(nAB) / float64(nA)
				confidenceLB := wilsonLowerBound(nAB, nA)
				baseline := baselinePB(bCounts[b], observationPeriodMs, dtSec)
				lift := confidence / max(0.001, baseline)
				leverage := confidence - baseline

				if confidence < cfg.MinConfidence || confidenceLB < cfg.MinConfidenceLB ||
					lift < cfg.MinLift || leverage < cfg.MinLeverage {
					continue
				}

				hits, misses := countHits(aTimes, bTimes, dtMs)
				latencies := make([]float64, len(hits))
				for i, h := range hits {
					latencies[i] = float64(h.DeltaMs) / 1000.0
				}

				var conviction *float64
				if confidence < 1.0 && baseline < 1.0 {
					c := (1 - baseline) / (1 - confidence)
					conviction = &c
				}

				rules = append(rules, &Rule{
					PatternID:             copilotcore.PatternIDFor(a, b, dtSec, opts.Zone, opts.ContextKey),
					A:                     a,
					B:                     b,
					DtSec:                 dtSec,
					NA:                    nA,
					NB:                    nB,
					NAB:                   nAB,
					Confidence:            confidence,
					ConfidenceLB:          confidenceLB,
					Lift:                  lift,
					Leverage:              leverage,
					Conviction:            conviction,
					BaselinePB:            baseline,
					ObservationPeriodDays: observationPeriodDays,
					Evidence: Evidence{
						Hits:             hits,
						Misses:           misses,
						LatencyQuantiles: latencyQuantiles(latencies),
					},
					Zone:       opts.Zone,
					ContextKey: opts.ContextKey,
				})
			}
		}
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].Score() > rules[j].Score() })
	if cfg.MaxRules > 0 && len(rules) > cfg.MaxRules {
		rules = rules[:cfg.MaxRules]
	}
	return rules, nil
}
