package miner

import (
	"context"

	"github.com/homecopilot/core/internal/copilotcore"
)

// ZoneConfig governs a single zone's mining: per-zone thresholds plus the
// safety-critical entity set whose rules are shunted to SafetyBlocked
// rather than surfaced as candidates (§4.3 zone governance).
type ZoneConfig struct {
	MinEvents            int
	ConfidenceThreshold  float64
	LiftThreshold        float64
	SafetyCriticalEntities map[string]struct{}
}

// DefaultZoneConfig mirrors the original_source zone-mining defaults.
func DefaultZoneConfig() ZoneConfig {
	return ZoneConfig{
		MinEvents:           10,
		ConfidenceThreshold: 0.7,
		LiftThreshold:       1.5,
	}
}

// ZoneResult is the outcome of mining restricted to one zone.
type ZoneResult struct {
	ZoneID        string
	Rules         []*Rule
	Filtered      []*Rule
	SafetyBlocked []*Rule
	Skipped       bool
	SkipReason    string
}

// MineZone restricts both A and B candidates to events whose entity_id
// resides in the given zone, then applies zone governance: confidence/lift
// thresholds and the safety-critical blocklist.
func (m *Miner) MineZone(ctx context.Context, events []copilotcore.Event, zoneID string, members map[string]struct{}, zcfg ZoneConfig) (*ZoneResult, error) {
	result := &ZoneResult{ZoneID: zoneID}

	zoneEvents := filterByEntities(events, members)
	if len(zoneEvents) < zcfg.MinEvents {
		result.Skipped = true
		result.SkipReason = "insufficient_events"
		return result, nil
	}

	deduped, _ := preprocess(zoneEvents, Filters{}, m.cfg)
	rules, err := minePass(ctx, deduped, m.cfg, MineOptions{Zone: zoneID})
	if err != nil {
		return nil, err
	}
	result.Rules = rules

	for _, r := range rules {
		if r.Confidence < zcfg.ConfidenceThreshold || r.Lift < zcfg.LiftThreshold {
			continue
		}
		aEntity, bEntity := entityOf(r.A), entityOf(r.B)
		_, aCritical := zcfg.SafetyCriticalEntities[aEntity]
		_, bCritical := zcfg.SafetyCriticalEntities[bEntity]
		if aCritical || bCritical {
			result.SafetyBlocked = append(result.SafetyBlocked, r)
			continue
		}
		result.Filtered = append(result.Filtered, r)
	}

	return result, nil
}

func filterByEntities(events []copilotcore.Event, members map[string]struct{}) []copilotcore.Event {
	if len(members) == 0 {
		return nil
	}
	out := make([]copilotcore.Event, 0, len(events))
	for _, e := range events {
		if _, ok := members[e.EntityID]; ok {
			out = append(out, e)
		}
	}
	return out
}
