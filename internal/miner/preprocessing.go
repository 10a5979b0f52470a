package miner

import (
	"sort"

	"github.com/homecopilot/core/internal/config"
	"github.com/homecopilot/core/internal/copilotcore"
)

// Filters selects which events feed the miner.
type Filters struct {
	IncludeDomains, ExcludeDomains   map[string]struct{}
	IncludeEntities, ExcludeEntities map[string]struct{}
}

func filterEvents(events []copilotcore.Event, f Filters) []copilotcore.Event {
	if f.IncludeDomains == nil && f.ExcludeDomains == nil && f.IncludeEntities == nil && f.ExcludeEntities == nil {
		return events
	}
	out := make([]copilotcore.Event, 0, len(events))
	for _, e := range events {
		if len(f.IncludeDomains) > 0 {
			if _, ok := f.IncludeDomains[e.Domain]; !ok {
				continue
			}
		}
		if _, ok := f.ExcludeDomains[e.Domain]; ok {
			continue
		}
		if len(f.IncludeEntities) > 0 {
			if _, ok := f.IncludeEntities[e.EntityID]; !ok {
				continue
			}
		}
		if _, ok := f.ExcludeEntities[e.EntityID]; ok {
			continue
		}
		out = append(out, e)
	}
	return out
}

// debounce drops events occurring within cooldownMs of the previous kept
// event of the same key. Input MUST be chronologically sorted; ties are
// broken by original insertion order, which the caller's stable sort
// already preserves.
func debounce(events []copilotcore.Event, cooldownMs int64) []copilotcore.Event {
	lastSeen := make(map[copilotcore.EventKey]int64)
	out := make([]copilotcore.Event, 0, len(events))
	for _, e := range events {
		key := e.Key()
		if last, ok := lastSeen[key]; ok && e.TsMs-last < cooldownMs {
			continue
		}
		lastSeen[key] = e.TsMs
		out = append(out, e)
	}
	return out
}

func sortChronological(events []copilotcore.Event) []copilotcore.Event {
	out := make([]copilotcore.Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TsMs < out[j].TsMs })
	return out
}

// Session is a maximal run of events separated by less than debounceSec.
type Session []copilotcore.Event

// segmentSessions splits a chronologically sorted stream into sessions. A
// new session starts whenever the gap to the previous event exceeds
// debounceMs.
func segmentSessions(events []copilotcore.Event, debounceMs int64) []Session {
	if len(events) == 0 {
		return nil
	}
	sessions := []Session{{events[0]}}
	for i := 1; i < len(events); i++ {
		gap := events[i].TsMs - events[i-1].TsMs
		if gap > debounceMs {
			sessions = append(sessions, Session{events[i]})
		} else {
			last := len(sessions) - 1
			sessions[last] = append(sessions[last], events[i])
		}
	}
	return sessions
}

// preprocess runs filter -> sort -> debounce -> session segmentation,
// returning the flat deduplicated stream (for indexing) and its sessions.
func preprocess(events []copilotcore.Event, f Filters, cfg config.MinerConfig) ([]copilotcore.Event, []Session) {
	filtered := filterEvents(events, f)
	sorted := sortChronological(filtered)
	cooldownMs := int64(cfg.CooldownSec) * 1000
	deduped := debounce(sorted, cooldownMs)
	debounceMs := int64(cfg.DebounceSec) * 1000
	sessions := segmentSessions(deduped, debounceMs)
	return deduped, sessions
}
