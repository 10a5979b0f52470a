package miner

import (
	"context"
	"sync"
	"time"

	"github.com/homecopilot/core/internal/config"
	"github.com/homecopilot/core/internal/copilotcore"
)

// Miner orchestrates throttled mining passes over an event stream. It holds
// no graph/candidate state itself; it reads a snapshot of events handed to
// it by the caller and never mutates the Brain Graph Store (§5).
type Miner struct {
	mu sync.Mutex

	cfg config.MinerConfig

	lastRunMs            int64
	totalEventsProcessed int64
	hasRun               bool
}

// NewMiner constructs a miner bound to the given configuration.
func NewMiner(cfg config.MinerConfig) *Miner {
	return &Miner{cfg: cfg}
}

// Stats reports miner state persisted to the miner state file (§6.4).
type Stats struct {
	LastRunMs            int64
	TotalEventsProcessed int64
}

func (m *Miner) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{LastRunMs: m.lastRunMs, TotalEventsProcessed: m.totalEventsProcessed}
}

// Restore repopulates throttle/counter state from a persisted snapshot,
// e.g. at startup, so the throttle window survives a restart.
func (m *Miner) Restore(s Stats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRunMs = s.LastRunMs
	m.totalEventsProcessed = s.TotalEventsProcessed
	m.hasRun = s.LastRunMs != 0
}

// MineAndCreateCandidates runs one throttled mining pass. It returns rules
// for the caller (the service layer) to fold into the Candidate Store; the
// miner itself never writes candidates directly (§9: singletons wired by
// the service, not by each other). A call within throttle_sec of the
// previous completed run returns status "skipped" unless force is true.
func (m *Miner) MineAndCreateCandidates(ctx context.Context, events []copilotcore.Event, f Filters, nowMs int64, force bool) (*MiningResult, error) {
	m.mu.Lock()
	if !force && m.hasRun {
		elapsedSec := (nowMs - m.lastRunMs) / 1000
		if elapsedSec < int64(m.cfg.ThrottleSec) {
			m.mu.Unlock()
			return &MiningResult{Status: "skipped", RanAtMs: nowMs}, nil
		}
	}
	m.mu.Unlock()

	deduped, sessions := preprocess(events, f, m.cfg)

	var rules []*Rule
	var err error
	if len(deduped) > 0 {
		rules, err = minePass(ctx, deduped, m.cfg, MineOptions{})
		if err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	m.lastRunMs = nowMs
	m.hasRun = true
	m.totalEventsProcessed += int64(len(deduped))
	m.mu.Unlock()

	return &MiningResult{
		Status:        "completed",
		Rules:         rules,
		EventsScanned: len(deduped),
		SessionsFound: len(sessions),
		RanAtMs:       nowMs,
	}, nil
}

// MineWithContextStratification runs the base algorithm globally, then once
// more per distinct context bucket (join of the configured features), per
// §4.3's optional stratification. Resulting per-bucket rules are tagged
// A@ctx -> B@ctx via Rule.ContextKey.
func (m *Miner) MineWithContextStratification(ctx context.Context, events []copilotcore.Event, f Filters, contextFeatures []string) ([]*Rule, error) {
	deduped, _ := preprocess(events, f, m.cfg)
	if len(contextFeatures) == 0 {
		return minePass(ctx, deduped, m.cfg, MineOptions{})
	}

	global, err := minePass(ctx, deduped, m.cfg, MineOptions{})
	if err != nil {
		return nil, err
	}

	buckets := make(map[string][]copilotcore.Event)
	for _, e := range deduped {
		key := contextBucketKey(e, contextFeatures)
		if key == "" {
			continue
		}
		buckets[key] = append(buckets[key], e)
	}

	all := global
	for ctxKey, bucketEvents := range buckets {
		if len(bucketEvents) < m.cfg.MinSupportA {
			continue
		}
		bucketRules, err := minePass(ctx, bucketEvents, m.cfg, MineOptions{ContextKey: ctxKey})
		if err != nil {
			return nil, err
		}
		all = append(all, bucketRules...)
	}
	return all, nil
}

func contextBucketKey(e copilotcore.Event, features []string) string {
	key := ""
	for _, feature := range features {
		v, ok := e.Context[feature]
		if !ok || v == "" {
			continue
		}
		if key != "" {
			key += ";"
		}
		key += feature + ":" + v
	}
	return key
}

// ThrottleRemaining reports how long until the next unthrottled run is
// permitted, for observability; zero or negative means a run is permitted
// now.
func (m *Miner) ThrottleRemaining(nowMs int64) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasRun {
		return 0
	}
	nextAllowedMs := m.lastRunMs + int64(m.cfg.ThrottleSec)*1000
	remaining := nextAllowedMs - nowMs
	if remaining < 0 {
		remaining = 0
	}
	return time.Duration(remaining) * time.Millisecond
}
