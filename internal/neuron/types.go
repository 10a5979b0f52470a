// Package neuron implements the three-layer Context -> State -> Mood
// evaluator. Neuron kinds are distinguished by a Kind tag rather than a
// type hierarchy; evaluation behavior is supplied per neuron as an
// EvaluateFunc closure, avoiding deep inheritance.
package neuron

import "github.com/homecopilot/core/internal/copilotcore"

// Kind tags which layer a neuron belongs to.
type Kind string

const (
	KindContext Kind = "context"
	KindState   Kind = "state"
	KindMood    Kind = "mood"
)

// EvalContext is the read-only view passed to a neuron's evaluator. Context
// neurons see only RawStates; state neurons additionally see ContextValues;
// mood neurons see both ContextValues and StateValues.
type EvalContext struct {
	RawStates     map[string]string
	ContextValues map[string]float64
	StateValues   map[string]float64
	NowMs         int64
}

// EvaluateFunc computes a neuron's raw value for this tick. Implementations
// MUST be pure with respect to EvalContext; any panic or error is sandboxed
// by the manager and replaced with a neutral value.
type EvaluateFunc func(ctx *EvalContext) (float64, error)

// history is a fixed-capacity ring buffer of recent values.
type history struct {
	buf []float64
	cap int
}

func newHistory(cap int) *history {
	return &history{buf: make([]float64, 0, cap), cap: cap}
}

func (h *history) push(v float64) {
	h.buf = append(h.buf, v)
	if len(h.buf) > h.cap {
		h.buf = h.buf[len(h.buf)-h.cap:]
	}
}

func (h *history) snapshot() []float64 {
	out := make([]float64, len(h.buf))
	copy(out, h.buf)
	return out
}

// HistoryCap is the retention bound for per-neuron value history (§5).
const HistoryCap = 16

// Neuron is a single evaluator unit in one of the three layers.
type Neuron struct {
	Name          string
	Kind          Kind
	Value         float64
	Confidence    float64
	LastUpdatedMs int64
	EntityIDs     []copilotcore.NodeID
	Weights       map[string]float64

	evaluate EvaluateFunc
	hist     *history
}

// NewNeuron constructs a neuron with the given evaluator. Weights may be
// nil; a nil map is treated as empty.
func NewNeuron(name string, kind Kind, entityIDs []copilotcore.NodeID, weights map[string]float64, fn EvaluateFunc) *Neuron {
	if weights == nil {
		weights = map[string]float64{}
	}
	return &Neuron{
		Name:      name,
		Kind:      kind,
		EntityIDs: entityIDs,
		Weights:   weights,
		evaluate:  fn,
		hist:      newHistory(HistoryCap),
	}
}

// History returns a copy of the neuron's recent values, oldest first.
func (n *Neuron) History() []float64 {
	return n.hist.snapshot()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
