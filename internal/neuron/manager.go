package neuron

import (
	"sort"
	"sync"

	"github.com/homecopilot/core/internal/logging"
)

// NeuronDelta is a diagnostic entry naming a neuron and how much its value
// moved since the previous tick. Used for TickReport.TopMovers, which
// explains why the dominant mood changed without altering the selection
// algorithm itself.
type NeuronDelta struct {
	Name  string
	Kind  Kind
	Delta float64
}

// TickReport is the observable result of one evaluation pass.
type TickReport struct {
	NowMs         int64
	ContextValues map[string]float64
	StateValues   map[string]float64
	MoodValues    map[string]float64
	DominantMood  string
	Confidence    float64
	MoodChanged   bool
	TopMovers     []NeuronDelta
}

const maxTopMovers = 5

// neutralValue returns the sandbox fallback for a failed evaluator.
func neutralValue(k Kind) float64 {
	if k == KindMood {
		return 0.0
	}
	return 0.5
}

// Manager runs the Context -> State -> Mood pipeline. One tick at a time;
// ticks are atomic with respect to concurrent Tick calls.
type Manager struct {
	mu sync.Mutex

	context []*Neuron
	state   []*Neuron
	mood    []*Neuron

	moodHistory   []map[string]float64
	moodHistCap   int
	dominantMood  string
	prevValues    map[string]float64
	suggestionMap *SuggestionTable
}

// NewManager builds a manager from a flat neuron catalogue, partitioning by
// Kind, and a suggestion table used to generate post-tick suggestions.
func NewManager(catalogue []*Neuron, moodHistoryCap int, suggestions *SuggestionTable) *Manager {
	if moodHistoryCap <= 0 {
		moodHistoryCap = 10
	}
	m := &Manager{
		moodHistCap:   moodHistoryCap,
		prevValues:    map[string]float64{},
		suggestionMap: suggestions,
		dominantMood:  "relax",
	}
	for _, n := range catalogue {
		switch n.Kind {
		case KindContext:
			m.context = append(m.context, n)
		case KindState:
			m.state = append(m.state, n)
		case KindMood:
			m.mood = append(m.mood, n)
		}
	}
	return m
}

// Tick evaluates one pass of the pipeline: Context, then State, then Mood,
// smooths mood values, selects the dominant mood, and produces suggestions.
// A failing neuron evaluator never fails the tick; it is sandboxed to a
// neutral value and logged.
func (m *Manager) Tick(nowMs int64, raw map[string]string) (*TickReport, []Suggestion) {
	m.mu.Lock()
	defer m.mu.Unlock()

	evalCtx := &EvalContext{
		RawStates:     raw,
		ContextValues: map[string]float64{},
		StateValues:   map[string]float64{},
		NowMs:         nowMs,
	}

	deltas := map[string]float64{}

	evalCtx.ContextValues = m.evalLayer(m.context, evalCtx, deltas)
	evalCtx.StateValues = m.evalLayer(m.state, evalCtx, deltas)
	rawMood := m.evalLayer(m.mood, evalCtx, deltas)

	smoothed := m.smoothMood(rawMood)

	dominant, confidence := dominantOf(smoothed)
	changed := dominant != m.dominantMood
	m.dominantMood = dominant

	m.moodHistory = append(m.moodHistory, rawMood)
	if len(m.moodHistory) > m.moodHistCap {
		m.moodHistory = m.moodHistory[len(m.moodHistory)-m.moodHistCap:]
	}

	report := &TickReport{
		NowMs:         nowMs,
		ContextValues: evalCtx.ContextValues,
		StateValues:   evalCtx.StateValues,
		MoodValues:    smoothed,
		DominantMood:  dominant,
		Confidence:    confidence,
		MoodChanged:   changed,
		TopMovers:     topMovers(deltas),
	}

	var suggestions []Suggestion
	if m.suggestionMap != nil {
		suggestions = m.suggestionMap.Generate(dominant, confidence, evalCtx, nowMs)
	}

	return report, suggestions
}

// evalLayer evaluates every neuron in a layer against ctx, sandboxing
// failures to a neutral value, and returns the layer's name->value map for
// the next layer to consume.
func (m *Manager) evalLayer(layer []*Neuron, ctx *EvalContext, deltas map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(layer))
	for _, n := range layer {
		v, err := m.safeEvaluate(n, ctx)
		n.Value = v
		n.LastUpdatedMs = ctx.NowMs
		n.hist.push(v)
		out[n.Name] = v

		prev := m.prevValues[n.Name]
		deltas[n.Name] = v - prev
		m.prevValues[n.Name] = v
	}
	return out
}

func (m *Manager) safeEvaluate(n *Neuron, ctx *EvalContext) (v float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Named("neuron").Warn().Interface("panic", r).Str("neuron", n.Name).Msg("neuron evaluator panicked, using neutral value")
			v = neutralValue(n.Kind)
			err = nil
		}
	}()
	if n.evaluate == nil {
		return neutralValue(n.Kind), nil
	}
	raw, evalErr := n.evaluate(ctx)
	if evalErr != nil {
		logging.Named("neuron").Warn().Err(evalErr).Str("neuron", n.Name).Msg("neuron evaluator failed, using neutral value")
		return neutralValue(n.Kind), nil
	}
	return clamp01(raw), nil
}

// smoothMood averages each mood's current value with up to the last three
// prior snapshots (up to four values in all), per §4.2 step 5.
func (m *Manager) smoothMood(current map[string]float64) map[string]float64 {
	window := m.moodHistory
	if len(window) > 3 {
		window = window[len(window)-3:]
	}
	smoothed := make(map[string]float64, len(current))
	for name, v := range current {
		sum := v
		count := 1
		for _, snapshot := range window {
			sum += snapshot[name]
			count++
		}
		smoothed[name] = sum / float64(count)
	}
	return smoothed
}

// dominantOf selects argmax(values). Per invariant I1, when no mood
// produces a positive value the result falls back to "relax" regardless of
// alphabetical tie-break order.
func dominantOf(values map[string]float64) (string, float64) {
	names := make([]string, 0, len(values))
	for n := range values {
		names = append(names, n)
	}
	sort.Strings(names)

	best, bestVal := "relax", 0.0
	for _, n := range names {
		if values[n] > bestVal {
			best, bestVal = n, values[n]
		}
	}
	return best, bestVal
}

func topMovers(deltas map[string]float64) []NeuronDelta {
	out := make([]NeuronDelta, 0, len(deltas))
	for name, d := range deltas {
		out = append(out, NeuronDelta{Name: name, Delta: d})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].Delta, out[j].Delta
		if ai < 0 {
			ai = -ai
		}
		if aj < 0 {
			aj = -aj
		}
		return ai > aj
	})
	if len(out) > maxTopMovers {
		out = out[:maxTopMovers]
	}
	return out
}

// DominantMood returns the last computed dominant mood without running a
// new tick.
func (m *Manager) DominantMood() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dominantMood
}
