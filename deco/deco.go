// Package deco projects a live tissue model forward into an ascent
// schedule: the sequence of decompression stops, the time-to-surface,
// and the gas a diver needs to carry to complete it plus a reserve. The
// plan is re-derived from current compartment state on every call, so
// it always reflects where the diver actually is rather than where a
// pre-dive plan said they would be.
package deco

import (
	"github.com/scriner2110/decobrain/buhlmann"
	"github.com/scriner2110/decobrain/gasmix"
	"github.com/scriner2110/decobrain/helpers"
)

const (
	// MaxDecoStops bounds the stop list.
	MaxDecoStops = 20

	// maxStopSeconds caps a single simulated stop. A stop that cannot
	// clear its ceiling within an hour marks the plan truncated instead
	// of looping on.
	maxStopSeconds = 3600
)

// PlannerConfig carries the gas-planning inputs: surface air
// consumption rate, a stress multiplier, and the simulation step used
// to walk depth transitions.
type PlannerConfig struct {
	SACRate     float64 // Litres/minute at the surface.
	DiveFactor  float64 // Stress multiplier, e.g. DiveFactorModerate.
	StepSeconds float64 // Granularity for simulating ascents, default 10.
}

// Common/useful dive factor multipliers.
const (
	DiveFactorEasy          float64 = 1.5
	DiveFactorModerate      float64 = 1.8
	DiveFactorTough         float64 = 2.0
	DiveFactorStressful     float64 = 2.5
	DiveFactorSeriousStress float64 = 3.0

	// buddyMultiplier accounts for sharing gas with a second diver (or,
	// for a solo dive, redundancy across two independent sources).
	buddyMultiplier float64 = 2.0
)

// DefaultPlannerConfig returns reasonable SAC rate and stress defaults.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		SACRate:     20.0,
		DiveFactor:  DiveFactorModerate,
		StepSeconds: 10,
	}
}

// Stop is a single decompression or safety stop: a depth, a duration in
// minutes, and the gas-table index the stop is ridden on.
type Stop struct {
	Depth    float64
	Duration float64
	GasIndex int
}

// Plan is the full ascent schedule computed from a tissue model's current
// state: the stops to make, the total time to reach the surface in
// minutes, and the gas required to get there. Truncated marks a plan that
// hit the stop-count or per-stop simulation cap; the plan is still usable
// and Valid, it just under-reports the tail of the obligation.
type Plan struct {
	Stops          []Stop
	FirstStopDepth float64
	TTSMinutes     float64
	GasRequired    float64 // Litres, including the rule-of-thirds reserve.
	SafetyStop     bool
	Valid          bool
	Truncated      bool
	CeilingAtGen   float64 // Ceiling in metres when the plan was generated.
}

// Calculate clones model so the live tissue state is untouched, then
// walks it up to the surface one LastStopDepth decrement at a time,
// staying at each stop until the compartment ceiling clears the next one
// shallower. At each stop the richest gas legal at that depth is
// selected from the table, ties broken by lower index.
func Calculate(model *buhlmann.Model, gases *gasmix.Table, pc PlannerConfig) Plan {
	if pc.StepSeconds <= 0 {
		pc.StepSeconds = 10
	}

	clone := model.Clone()
	cfg := clone.Config()
	plan := Plan{CeilingAtGen: clone.Ceiling()}

	gasIdx, gas := activeGas(gases)

	ceiling := clone.Ceiling()
	if ceiling <= 0 {
		plan.TTSMinutes = ascendTo(clone, 0, cfg.AscentRate, gas, pc.StepSeconds)
		if cfg.SafetyStopRequired && model.MaxDepth() >= cfg.SafetyStopDepth {
			plan.SafetyStop = true
			plan.Stops = append(plan.Stops, Stop{Depth: cfg.SafetyStopDepth, Duration: cfg.SafetyStopTime / 60.0, GasIndex: gasIdx})
			plan.TTSMinutes += cfg.SafetyStopTime / 60.0
		}
		plan.GasRequired = gasRequiredForPlan(plan, model.MaxDepth(), pc)
		plan.Valid = true
		return plan
	}

	lastStop := cfg.LastStopDepth
	if lastStop <= 0 {
		lastStop = 3.0
	}
	currStop := ceiling

	for currStop >= lastStop {
		if len(plan.Stops) >= MaxDecoStops {
			plan.Truncated = true
			break
		}

		gasIdx, gas = bestGasAt(gases, clone.SurfacePressure(), currStop, gasIdx, gas)
		plan.TTSMinutes += ascendTo(clone, currStop, cfg.AscentRate, gas, pc.StepSeconds)

		nextStop := currStop - lastStop
		if clone.Ceiling() <= nextStop {
			// Off-gassed enough during the ascent to skip this stop.
			currStop -= lastStop
			continue
		}

		var duration float64
		for clone.Ceiling() > nextStop {
			if duration*60 >= maxStopSeconds {
				plan.Truncated = true
				break
			}
			clone.UpdateTissues(60, gas)
			duration++
		}
		if plan.FirstStopDepth == 0 {
			plan.FirstStopDepth = currStop
		}
		plan.Stops = append(plan.Stops, Stop{Depth: currStop, Duration: duration, GasIndex: gasIdx})
		plan.TTSMinutes += duration
		currStop -= lastStop
	}

	plan.TTSMinutes += ascendTo(clone, 0, cfg.AscentRate, gas, pc.StepSeconds)

	if cfg.SafetyStopRequired {
		plan.SafetyStop = true
		plan.Stops = append(plan.Stops, Stop{Depth: cfg.SafetyStopDepth, Duration: cfg.SafetyStopTime / 60.0, GasIndex: gasIdx})
		plan.TTSMinutes += cfg.SafetyStopTime / 60.0
	}

	plan.GasRequired = gasRequiredForPlan(plan, model.MaxDepth(), pc)
	plan.Valid = true
	return plan
}

// activeGas returns the table's current gas, or a zero mix if the table
// is empty.
func activeGas(gases *gasmix.Table) (int, gasmix.Mix) {
	if gases == nil {
		return 0, gasmix.Mix{}
	}
	idx := gases.CurrentGas()
	if g, ok := gases.Gas(idx); ok {
		return idx, g
	}
	return 0, gasmix.Mix{}
}

// bestGasAt selects the richest legal gas at the given stop depth,
// keeping the current gas when nothing in the table qualifies there.
func bestGasAt(gases *gasmix.Table, surfacePressure, depth float64, curIdx int, cur gasmix.Mix) (int, gasmix.Mix) {
	if gases == nil {
		return curIdx, cur
	}
	ambient := helpers.PressureAt(depth, surfacePressure)
	if idx, ok := gases.BestGasFor(ambient); ok {
		if g, gok := gases.Gas(idx); gok {
			return idx, g
		}
	}
	return curIdx, cur
}

// ascendTo steps clone's depth from its current depth to target at rate
// (m/min), updating tissue loading every StepSeconds along the way, and
// returns the minutes the transition took.
func ascendTo(clone *buhlmann.Model, target, rate float64, gas gasmix.Mix, stepSeconds float64) float64 {
	start := clone.CurrentDepth()
	delta := target - start
	if delta == 0 || rate <= 0 {
		return 0
	}

	totalSeconds := (absf(delta) / rate) * 60.0
	steps := int(totalSeconds / stepSeconds)
	if steps <= 0 {
		clone.SetDepth(target)
		clone.UpdateTissues(totalSeconds, gas)
		return totalSeconds / 60.0
	}

	depthPerStep := delta / float64(steps)
	for i := 0; i < steps; i++ {
		clone.SetDepth(start + depthPerStep*float64(i+1))
		clone.UpdateTissues(stepSeconds, gas)
	}
	clone.SetDepth(target)
	return totalSeconds / 60.0
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// gasRequiredForPlan sums stop and transition gas needs at ambient
// pressure and SAC rate, then applies the rule of thirds.
func gasRequiredForPlan(plan Plan, maxDepth float64, pc PlannerConfig) float64 {
	var base, stopMinutes float64
	for _, s := range plan.Stops {
		p := helpers.Pressure(s.Depth)
		base += p * pc.SACRate * pc.DiveFactor * s.Duration
		stopMinutes += s.Duration
	}
	// Approximate the ascent transitions themselves (TTS minus the stop
	// time already counted) at the average pressure between max depth
	// and the surface.
	avgPressure := helpers.Pressure(maxDepth / 2.0)
	base += avgPressure * pc.SACRate * pc.DiveFactor * (plan.TTSMinutes - stopMinutes)

	return base * 1.5
}

// MinGas returns the litres required to get two divers (or one diving
// solo, who must still carry doubled gas across two independent sources)
// from maxDepth to the surface via a safety stop in an emergency:
// a minute of preparation at depth, the ascent itself, and three
// minutes at the stop, all at an elevated consumption rate.
func MinGas(maxDepth, safetyStopDepth, ascentRate, sacRate, diveFactor float64) float64 {
	maxPressure := helpers.Pressure(maxDepth)
	avgPressure := helpers.Pressure(maxDepth / 2.0)
	stopPressure := helpers.Pressure(safetyStopDepth)
	ascentMinutes := maxDepth / ascentRate

	elevatedSACRate := sacRate * diveFactor * buddyMultiplier * 1.5

	preparationGas := 1.0 * maxPressure * elevatedSACRate
	ascentGas := ascentMinutes * avgPressure * elevatedSACRate
	stopGas := 3.0 * stopPressure * elevatedSACRate

	return preparationGas + ascentGas + stopGas
}
