package neuron

import "strconv"

// BuiltinCatalogue returns the default Context/State/Mood neurons (§4.2's
// informative catalogue). Callers MAY substitute their own set; the manager
// only requires that context neurons be evaluated before state neurons,
// which must be evaluated before mood neurons.
func BuiltinCatalogue() []*Neuron {
	var out []*Neuron
	out = append(out, contextNeurons()...)
	out = append(out, stateNeurons()...)
	out = append(out, moodNeurons()...)
	return out
}

func rawFloat(ctx *EvalContext, key string, fallback float64) float64 {
	raw, ok := ctx.RawStates[key]
	if !ok {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func contextNeurons() []*Neuron {
	return []*Neuron{
		NewNeuron("presence", KindContext, nil, nil, func(ctx *EvalContext) (float64, error) {
			return clamp01(rawFloat(ctx, "presence.home_fraction", 0)), nil
		}),
		NewNeuron("time_of_day", KindContext, nil, nil, func(ctx *EvalContext) (float64, error) {
			hour := rawFloat(ctx, "clock.hour", 12)
			return clamp01(hour / 24.0), nil
		}),
		NewNeuron("light_level", KindContext, nil, nil, func(ctx *EvalContext) (float64, error) {
			lux := rawFloat(ctx, "sensor.illuminance", 300)
			switch {
			case lux <= 10:
				return 0.0, nil
			case lux >= 1000:
				return 1.0, nil
			default:
				return clamp01(lux / 1000.0), nil
			}
		}),
		NewNeuron("weather", KindContext, nil, nil, func(ctx *EvalContext) (float64, error) {
			return clamp01(rawFloat(ctx, "weather.pleasantness", 0.5)), nil
		}),
	}
}

func stateNeurons() []*Neuron {
	return []*Neuron{
		NewNeuron("energy_level", KindState, nil, nil, func(ctx *EvalContext) (float64, error) {
			return clamp01(ctx.ContextValues["presence"]*0.5 + ctx.ContextValues["light_level"]*0.5), nil
		}),
		NewNeuron("stress_index", KindState, nil, nil, func(ctx *EvalContext) (float64, error) {
			return clamp01(rawFloat(ctx, "household.noise_index", 0.2)), nil
		}),
		NewNeuron("routine_stability", KindState, nil, nil, func(ctx *EvalContext) (float64, error) {
			return clamp01(rawFloat(ctx, "household.routine_score", 0.5)), nil
		}),
		NewNeuron("sleep_debt", KindState, nil, nil, func(ctx *EvalContext) (float64, error) {
			return clamp01(rawFloat(ctx, "household.sleep_debt", 0.0)), nil
		}),
		NewNeuron("attention_load", KindState, nil, nil, func(ctx *EvalContext) (float64, error) {
			return clamp01(1 - ctx.ContextValues["time_of_day"]), nil
		}),
		NewNeuron("comfort_index", KindState, nil, nil, func(ctx *EvalContext) (float64, error) {
			return clamp01(rawFloat(ctx, "household.comfort_index", 0.5)), nil
		}),
	}
}

func moodNeurons() []*Neuron {
	return []*Neuron{
		NewNeuron("relax", KindMood, nil, nil, func(ctx *EvalContext) (float64, error) {
			return clamp01(ctx.StateValues["comfort_index"]*0.6 + (1-ctx.StateValues["stress_index"])*0.4), nil
		}),
		NewNeuron("focus", KindMood, nil, nil, func(ctx *EvalContext) (float64, error) {
			return clamp01(ctx.StateValues["attention_load"]*0.7 + ctx.ContextValues["light_level"]*0.3), nil
		}),
		NewNeuron("active", KindMood, nil, nil, func(ctx *EvalContext) (float64, error) {
			return clamp01(ctx.ContextValues["presence"]*0.5 + ctx.StateValues["energy_level"]*0.5), nil
		}),
		NewNeuron("sleep", KindMood, nil, nil, func(ctx *EvalContext) (float64, error) {
			nightness := 1 - ctx.ContextValues["time_of_day"]
			return clamp01(nightness*0.6 + ctx.StateValues["sleep_debt"]*0.4), nil
		}),
		NewNeuron("away", KindMood, nil, nil, func(ctx *EvalContext) (float64, error) {
			return clamp01(1 - ctx.ContextValues["presence"]), nil
		}),
		NewNeuron("alert", KindMood, nil, nil, func(ctx *EvalContext) (float64, error) {
			return clamp01(ctx.StateValues["stress_index"]), nil
		}),
		NewNeuron("social", KindMood, nil, nil, func(ctx *EvalContext) (float64, error) {
			return clamp01(rawFloat(ctx, "household.occupant_count", 1) / 4.0 * ctx.ContextValues["presence"]), nil
		}),
		NewNeuron("recovery", KindMood, nil, nil, func(ctx *EvalContext) (float64, error) {
			return clamp01(ctx.StateValues["sleep_debt"]*0.5 + (1-ctx.StateValues["energy_level"])*0.5), nil
		}),
	}
}
