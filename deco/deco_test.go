package deco

import (
	"reflect"
	"testing"

	"github.com/scriner2110/decobrain/buhlmann"
	"github.com/scriner2110/decobrain/gasmix"
)

var air = gasmix.Mix{FO2: 0.21, FN2: 0.79}

func airTable(t *testing.T) *gasmix.Table {
	t.Helper()
	tbl := gasmix.NewTable()
	if err := tbl.AddGas(0, "air", 0.21, 0.79, 0.0, false); err != nil {
		t.Fatalf("AddGas: %v", err)
	}
	return tbl
}

func TestCalculateNoDecoShortDive(t *testing.T) {
	m := buhlmann.New(1.0, buhlmann.ZHL16B, buhlmann.DefaultDecoConfig())
	m.SetDepth(18.0)
	for i := 0; i < 10; i++ {
		m.UpdateTissues(60, air)
	}

	plan := Calculate(m, airTable(t), DefaultPlannerConfig())

	for _, s := range plan.Stops {
		if s.Depth != m.Config().SafetyStopDepth {
			t.Errorf("unexpected decompression stop at %.1fm for a no-deco dive", s.Depth)
		}
	}
	if plan.TTSMinutes <= 0 {
		t.Errorf("want positive time-to-surface; got %f", plan.TTSMinutes)
	}
	if !plan.Valid || plan.Truncated {
		t.Errorf("want a valid, untruncated plan; got valid=%v truncated=%v", plan.Valid, plan.Truncated)
	}
}

// A 30m square dive on air held past its no-stop time must come back
// with a single shallow obligation: a first (and only) deco stop at the
// 3m last-stop depth.
func TestCalculateSquareAirDiveSingleShallowStop(t *testing.T) {
	m := buhlmann.New(1.013, buhlmann.ZHL16B, buhlmann.DefaultDecoConfig())
	m.SetDepth(30.0)
	for i := 0; i < 25; i++ {
		m.UpdateTissues(60, air)
	}

	if ceiling := m.Ceiling(); ceiling != 3.0 {
		t.Fatalf("want a 3m ceiling after 25 min at 30m; got %f", ceiling)
	}

	plan := Calculate(m, airTable(t), DefaultPlannerConfig())

	if plan.FirstStopDepth != 3.0 {
		t.Errorf("want first stop at 3m; got %f", plan.FirstStopDepth)
	}
	var decoStops int
	for _, s := range plan.Stops {
		if plan.SafetyStop && s.Depth == m.Config().SafetyStopDepth && s.Duration == m.Config().SafetyStopTime/60.0 {
			continue
		}
		decoStops++
		if s.Depth != 3.0 {
			t.Errorf("want the only deco stop at 3m; got %f", s.Depth)
		}
		if s.Duration < 1 || s.Duration > 15 {
			t.Errorf("want a short shallow stop; got %.0f min", s.Duration)
		}
	}
	if decoStops != 1 {
		t.Errorf("want exactly one deco stop; got %d (%v)", decoStops, plan.Stops)
	}
	if plan.TTSMinutes <= 3 || plan.TTSMinutes > 25 {
		t.Errorf("implausible time-to-surface %f min", plan.TTSMinutes)
	}
}

func TestCalculateProducesDecreasingStopDepths(t *testing.T) {
	m := buhlmann.New(1.0, buhlmann.ZHL16B, buhlmann.DefaultDecoConfig())
	m.SetDepth(45.0)
	for i := 0; i < 30; i++ {
		m.UpdateTissues(60, air)
	}

	plan := Calculate(m, airTable(t), DefaultPlannerConfig())

	if len(plan.Stops) == 0 {
		t.Fatalf("expected decompression stops after a long 45m exposure")
	}

	prevDepth := plan.Stops[0].Depth
	for _, s := range plan.Stops[1:] {
		if s.Depth == m.Config().SafetyStopDepth {
			continue
		}
		if s.Depth >= prevDepth {
			t.Errorf("stop depths should decrease toward the surface: %v", plan.Stops)
		}
		prevDepth = s.Depth
	}
}

// Running the planner twice on an unchanged model must yield identical
// stop lists and time-to-surface.
func TestCalculateIsIdempotent(t *testing.T) {
	m := buhlmann.New(1.0, buhlmann.ZHL16B, buhlmann.DefaultDecoConfig())
	m.SetDepth(45.0)
	for i := 0; i < 30; i++ {
		m.UpdateTissues(60, air)
	}
	tbl := airTable(t)

	first := Calculate(m, tbl, DefaultPlannerConfig())
	second := Calculate(m, tbl, DefaultPlannerConfig())

	if !reflect.DeepEqual(first.Stops, second.Stops) {
		t.Errorf("stop lists differ across runs:\n%v\n%v", first.Stops, second.Stops)
	}
	if first.TTSMinutes != second.TTSMinutes {
		t.Errorf("TTS differs across runs: %f vs %f", first.TTSMinutes, second.TTSMinutes)
	}
}

func TestCalculateDoesNotMutateLiveModel(t *testing.T) {
	m := buhlmann.New(1.0, buhlmann.ZHL16B, buhlmann.DefaultDecoConfig())
	m.SetDepth(30.0)
	for i := 0; i < 20; i++ {
		m.UpdateTissues(60, air)
	}
	before := m.Compartment(0).PN2

	Calculate(m, airTable(t), DefaultPlannerConfig())

	if m.Compartment(0).PN2 != before {
		t.Errorf("Calculate must not mutate the live model's tissue state")
	}
}

// A deco dive with a rich shallow gas available must ride the deco stops
// on it rather than the bottom gas, and no stop's gas may sit outside
// its own ppO2 window at the stop depth.
func TestCalculateSwitchesToRicherGasAtStops(t *testing.T) {
	m := buhlmann.New(1.0, buhlmann.ZHL16B, buhlmann.DefaultDecoConfig())
	m.SetDepth(45.0)
	for i := 0; i < 30; i++ {
		m.UpdateTissues(60, air)
	}

	tbl := airTable(t)
	if err := tbl.AddGas(1, "EAN50", 0.50, 0.50, 0.0, false); err != nil {
		t.Fatalf("AddGas: %v", err)
	}

	plan := Calculate(m, tbl, DefaultPlannerConfig())

	sawRichGas := false
	for _, s := range plan.Stops {
		g, _ := tbl.Gas(s.GasIndex)
		ppo2 := g.PPO2(1.0 + s.Depth/10.0)
		if ppo2 < g.PPO2Min || ppo2 > g.PPO2Max {
			t.Errorf("stop at %.1fm rides gas %d outside its ppO2 window (%.2f)", s.Depth, s.GasIndex, ppo2)
		}
		if s.GasIndex == 1 {
			sawRichGas = true
		}
	}
	if !sawRichGas {
		t.Errorf("want at least one stop ridden on EAN50; got %v", plan.Stops)
	}
}

// Shrinking the stop interval on a deep exposure forces more stops than
// the planner's cap; the plan must come back truncated but still valid.
func TestCalculateTruncatesAtMaxStops(t *testing.T) {
	cfg := buhlmann.DefaultDecoConfig()
	cfg.LastStopDepth = 0.3
	m := buhlmann.New(1.0, buhlmann.ZHL16B, cfg)
	m.SetDepth(45.0)
	for i := 0; i < 90; i++ {
		m.UpdateTissues(60, air)
	}

	plan := Calculate(m, airTable(t), DefaultPlannerConfig())

	if !plan.Truncated {
		t.Fatalf("want the plan truncated at %d stops; got %d stops", MaxDecoStops, len(plan.Stops))
	}
	if !plan.Valid {
		t.Errorf("a truncated plan is still emitted as valid")
	}
}

func TestMinGasIncreasesWithDepth(t *testing.T) {
	shallow := MinGas(18, 5, 10, 20, DiveFactorModerate)
	deep := MinGas(40, 5, 10, 20, DiveFactorModerate)

	shallowOK := shallow > 0
	if !shallowOK || deep <= shallow {
		t.Errorf("min gas should increase with max depth: shallow=%f deep=%f", shallow, deep)
	}
}
