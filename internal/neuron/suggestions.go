package neuron

import (
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"
)

// Suggestion is a value object produced from the dominant mood after a tick
// (§4.5). Suggestions default to a 30-minute lifetime.
type Suggestion struct {
	ID          string
	SourceMood  string
	ActionType  string
	ActionData  map[string]any
	Priority    float64
	Confidence  float64
	Reasoning   string
	ExpiresAtMs int64
}

const suggestionLifetime = 30 * time.Minute

// suggestionDecisionBoundary is the minimum mood value required to emit a
// suggestion at all (Open Question 3: the boundary MUST be preserved
// regardless of how the mapping table itself is made configurable).
const suggestionDecisionBoundary = 0.5

// SuggestionRow is one configurable row of the mood->action mapping table.
// Condition is an expr-lang expression evaluated against the tick's context
// and state values; "true" means the row always applies.
type SuggestionRow struct {
	Mood       string
	ActionType string
	ActionData map[string]any
	Reasoning  string
	Priority   float64
	Condition  string

	program *vm.Program
}

// SuggestionTable holds compiled mapping rows. Rows are compiled once at
// construction so Generate never pays expr's parse cost per tick.
type SuggestionTable struct {
	rows []SuggestionRow
}

// NewSuggestionTable compiles each row's condition and returns a ready
// table. An uncompilable condition is an error from the caller's
// configuration, not a runtime tick failure.
func NewSuggestionTable(rows []SuggestionRow) (*SuggestionTable, error) {
	compiled := make([]SuggestionRow, len(rows))
	for i, r := range rows {
		prog, err := expr.Compile(r.Condition, expr.Env(map[string]any{}))
		if err != nil {
			return nil, err
		}
		r.program = prog
		compiled[i] = r
	}
	return &SuggestionTable{rows: compiled}, nil
}

// DefaultSuggestionRows mirrors the illustrative mapping of §4.5.
func DefaultSuggestionRows() []SuggestionRow {
	return []SuggestionRow{
		{
			Mood:       "relax",
			ActionType: "dim_lights",
			ActionData: map[string]any{"target_brightness_pct": 30},
			Reasoning:  "household is relaxed and ambient light is bright",
			Priority:   0.5,
			Condition:  "light_level > 0.6",
		},
		{
			Mood:       "focus",
			ActionType: "boost_light_lower_volume",
			ActionData: map[string]any{"target_brightness_pct": 90},
			Reasoning:  "household is focused",
			Priority:   0.6,
			Condition:  "true",
		},
		{
			Mood:       "sleep",
			ActionType: "lights_off_media_off",
			ActionData: map[string]any{},
			Reasoning:  "household is winding down for sleep",
			Priority:   0.8,
			Condition:  "true",
		},
		{
			Mood:       "away",
			ActionType: "lights_off_climate_eco",
			ActionData: map[string]any{},
			Reasoning:  "household is away",
			Priority:   0.7,
			Condition:  "true",
		},
		{
			Mood:       "alert",
			ActionType: "notification",
			ActionData: map[string]any{},
			Reasoning:  "household state requires attention",
			Priority:   0.9,
			Condition:  "true",
		},
	}
}

// Generate produces suggestions for the dominant mood of this tick. A
// suggestion is discarded without emission when confidence (the mood's
// smoothed value) is below suggestionDecisionBoundary.
func (t *SuggestionTable) Generate(dominantMood string, confidence float64, ctx *EvalContext, nowMs int64) []Suggestion {
	if confidence < suggestionDecisionBoundary {
		return nil
	}

	env := make(map[string]any, len(ctx.ContextValues)+len(ctx.StateValues))
	for k, v := range ctx.ContextValues {
		env[k] = v
	}
	for k, v := range ctx.StateValues {
		env[k] = v
	}

	var out []Suggestion
	for _, row := range t.rows {
		if row.Mood != dominantMood {
			continue
		}
		result, err := expr.Run(row.program, env)
		if err != nil {
			continue
		}
		ok, _ := result.(bool)
		if !ok {
			continue
		}
		out = append(out, Suggestion{
			ID:          uuid.NewString(),
			SourceMood:  dominantMood,
			ActionType:  row.ActionType,
			ActionData:  row.ActionData,
			Priority:    row.Priority,
			Confidence:  confidence,
			Reasoning:   row.Reasoning,
			ExpiresAtMs: nowMs + suggestionLifetime.Milliseconds(),
		})
	}
	return out
}
