package buhlmann

// Sources of information used for the Bühlmann ZHL-16 algorithm:
//   http://www.lizardland.co.uk/DIYDeco.html
//   https://github.com/eianlei/pydplan/blob/master/pydplan_buhlmann.py
//   https://github.com/AquaBSD/libbuhlmann/tree/master/src
//   https://scholars.unh.edu/cgi/viewcontent.cgi?article=1511&context=thesis
//   http://www.diveresearch.org/download/Publicaties/Haldane%20en%20bellen%202006.pdf
//   https://wrobell.dcmod.org/decotengu/model.html

import (
	"math"

	"github.com/scriner2110/decobrain/gasmix"
	"github.com/scriner2110/decobrain/helpers"
)

const (
	// NumCompartments is the number of tissue compartments in the ZHL-16
	// model.
	NumCompartments = 16

	// WaterVaporPressure is the partial pressure of water vapour in the
	// lungs in bar (alveolar air at ~37 degrees C), constant regardless
	// of ambient pressure.
	WaterVaporPressure = 0.0627
)

type compartCoefs struct {
	n2Ht, n2A, n2B float64
	heHt, heA, heB float64
}

// CoefSet selects which published coefficient table backs the model.
type CoefSet int

const (
	ZHL16B CoefSet = iota
	ZHL16C
)

func (cs CoefSet) String() string {
	if cs == ZHL16C {
		return "ZH-L16C"
	}
	return "ZH-L16B"
}

// coefSets holds the N2/He half-times and a/b coefficients for each
// compartment. The ZHL-16C entry currently shares the ZHL-16B table;
// TODO: load the published ZHL-16C a-values for compartments 5-13 once
// they are validated against a reference implementation. He a/b are
// derived heuristically as a_He = 1.5*a_N2, b_He = 0.9*b_N2.
var coefSets = [2][NumCompartments]compartCoefs{
	ZHL16B: buildCoefs(),
	ZHL16C: buildCoefs(),
}

func buildCoefs() [NumCompartments]compartCoefs {
	n2 := [NumCompartments]struct{ ht, a, b float64 }{
		{4.0, 1.2599, 0.5050}, {8.0, 1.0000, 0.6514}, {12.5, 0.8618, 0.7222},
		{18.5, 0.7562, 0.7825}, {27.0, 0.6667, 0.8126}, {38.3, 0.5933, 0.8434},
		{54.3, 0.5282, 0.8693}, {77.0, 0.4701, 0.8910}, {109.0, 0.4187, 0.9092},
		{146.0, 0.3798, 0.9222}, {187.0, 0.3497, 0.9319}, {239.0, 0.3223, 0.9403},
		{305.0, 0.2971, 0.9477}, {390.0, 0.2737, 0.9544}, {498.0, 0.2523, 0.9602},
		{635.0, 0.2327, 0.9653},
	}
	heHt := [NumCompartments]float64{
		1.51, 3.02, 4.72, 6.99, 10.21, 14.48, 20.53, 29.11,
		41.20, 55.19, 70.69, 90.34, 115.29, 147.42, 188.24, 240.03,
	}

	var out [NumCompartments]compartCoefs
	for i := 0; i < NumCompartments; i++ {
		out[i] = compartCoefs{
			n2Ht: n2[i].ht, n2A: n2[i].a, n2B: n2[i].b,
			heHt: heHt[i], heA: n2[i].a * 1.5, heB: n2[i].b * 0.9,
		}
	}
	return out
}

// Compartment carries one tissue group's inert-gas pressures, derived
// loading, and coefficients.
type Compartment struct {
	N2HalfTime, HeHalfTime float64
	N2A, N2B, HeA, HeB     float64
	PN2, PHe               float64
	Loading                float64
}

// DecoConfig carries the conservatism and stop-scheduling parameters the
// ceiling and planner calculations depend on.
type DecoConfig struct {
	GFLow, GFHigh      float64 // Percent, e.g. 30, 85.
	LastStopDepth      float64 // Metres, default 3.
	AscentRate         float64 // m/min, default 10.
	DescentRate        float64 // m/min, default 20.
	SafetyStopRequired bool
	SafetyStopDepth    float64 // Metres, default 5.
	SafetyStopTime     float64 // Seconds, default 180.
	AltitudeLevel      int     // 0 (sea level) .. 4 (3000m+).
	Conservatism       bool
}

// DefaultDecoConfig returns GF 30/85, a 3m last stop, and 10/20 m/min
// ascent/descent rates.
func DefaultDecoConfig() DecoConfig {
	return DecoConfig{
		GFLow:              30.0,
		GFHigh:             85.0,
		LastStopDepth:      3.0,
		AscentRate:         10.0,
		DescentRate:        20.0,
		SafetyStopRequired: true,
		SafetyStopDepth:    5.0,
		SafetyStopTime:     180,
	}
}

// Model is the 16-compartment tissue state. It holds no reference to a
// gas mix: every method that needs one takes a gasmix.Mix snapshot,
// since the gas can change between ticks. CCR mode is driven purely by
// a scalar measured ppO2 set each tick by the orchestrator.
type Model struct {
	ccs             CoefSet
	compartments    [NumCompartments]Compartment
	config          DecoConfig
	surfacePressure float64
	ambientPressure float64
	currentDepth    float64
	maxDepth        float64
	diveTimeSeconds float64

	ccrMode      bool
	measuredPPO2 float64

	leadingCompartment int
}

// New initialises a model in equilibrium with air at the given surface
// pressure, using the requested coefficient set and deco configuration.
func New(surfacePressure float64, ccs CoefSet, cfg DecoConfig) *Model {
	m := &Model{
		ccs:             ccs,
		config:          cfg,
		surfacePressure: surfacePressure,
		ambientPressure: surfacePressure,
	}

	airN2 := (surfacePressure - WaterVaporPressure) * 0.79
	coefs := coefSets[ccs]
	for i := 0; i < NumCompartments; i++ {
		c := coefs[i]
		m.compartments[i] = Compartment{
			N2HalfTime: c.n2Ht, N2A: c.n2A, N2B: c.n2B,
			HeHalfTime: c.heHt, HeA: c.heA, HeB: c.heB,
			PN2: airN2,
		}
	}
	return m
}

// Clone returns a deep, independent copy for the ascent planner to mutate
// without affecting the live model.
func (m *Model) Clone() *Model {
	cp := *m
	return &cp
}

// CoefSet reports which coefficient table the model was built with.
func (m *Model) CoefSet() CoefSet { return m.ccs }

// Config returns the current deco configuration.
func (m *Model) Config() DecoConfig { return m.config }

// SetConfig replaces the deco configuration (GF, rates, stop depth, ...).
func (m *Model) SetConfig(cfg DecoConfig) { m.config = cfg }

// SurfacePressure returns the surface pressure in bar the model was
// initialised with (reflects altitude).
func (m *Model) SurfacePressure() float64 { return m.surfacePressure }

// AmbientPressure returns the ambient pressure in bar at the current depth.
func (m *Model) AmbientPressure() float64 { return m.ambientPressure }

// CurrentDepth returns the last depth passed to SetDepth.
func (m *Model) CurrentDepth() float64 { return m.currentDepth }

// MaxDepth returns the deepest depth seen so far this dive.
func (m *Model) MaxDepth() float64 { return m.maxDepth }

// DiveTimeSeconds returns the cumulative simulated time this model has
// integrated over.
func (m *Model) DiveTimeSeconds() float64 { return m.diveTimeSeconds }

// Compartment returns a copy of compartment i.
func (m *Model) Compartment(i int) Compartment { return m.compartments[i] }

// LeadingCompartment returns the index of the compartment with the
// highest loading as of the last UpdateTissues call.
func (m *Model) LeadingCompartment() int { return m.leadingCompartment }

// SetDepth updates the model's idea of current/ambient/max depth without
// integrating tissue loading; call UpdateTissues separately to advance
// time, matching the orchestrator's separate depth-sample and tick steps.
func (m *Model) SetDepth(depth float64) {
	if depth < 0 {
		depth = 0
	}
	m.currentDepth = depth
	m.ambientPressure = helpers.PressureAt(depth, m.surfacePressure)
	if depth > m.maxDepth {
		m.maxDepth = depth
	}
}

// SetCCRMode enables or disables rebreather inspired-pressure handling.
// Disabling clears the measured ppO2.
func (m *Model) SetCCRMode(enable bool) {
	m.ccrMode = enable
	if !enable {
		m.measuredPPO2 = 0
	}
}

// CCRMode reports whether the model is in rebreather mode.
func (m *Model) CCRMode() bool { return m.ccrMode }

// SetMeasuredPPO2 records the voted/measured ppO2 the loop breathes in CCR
// or SCR mode; it is consumed by UpdateTissues and WorkingPPO2.
func (m *Model) SetMeasuredPPO2(ppo2 float64) { m.measuredPPO2 = ppo2 }

// MeasuredPPO2 returns the last value set by SetMeasuredPPO2.
func (m *Model) MeasuredPPO2() float64 { return m.measuredPPO2 }

// WorkingPPO2 returns the ppO2 the diver is actually breathing: the
// measured value in CCR mode, or P_amb*fO2 in open-circuit.
func (m *Model) WorkingPPO2(gas gasmix.Mix) float64 {
	if m.ccrMode {
		return m.measuredPPO2
	}
	return m.ambientPressure * gas.FO2
}

// inspired returns the partial pressures of N2 and He the diver inhales:
// open-circuit scales the gas fractions by (Pamb-PH2O); CCR splits the
// diluent budget (Pamb - measuredPPO2) across the diluent's inert-gas
// ratio, since the O2 the loop added is not part of the breathed diluent.
func (m *Model) inspired(gas gasmix.Mix) (pN2, pHe float64) {
	if m.ccrMode {
		diluentBudget := m.ambientPressure - m.measuredPPO2
		totalInert := gas.FN2 + gas.FHe
		if totalInert <= 0 {
			return 0, 0
		}
		return diluentBudget * (gas.FN2 / totalInert), diluentBudget * (gas.FHe / totalInert)
	}
	alv := m.ambientPressure - WaterVaporPressure
	return alv * gas.FN2, alv * gas.FHe
}

// UpdateTissues applies the Schreiner equation to every compartment for
// dtSeconds of exposure to gas at the model's current ambient pressure.
func (m *Model) UpdateTissues(dtSeconds float64, gas gasmix.Mix) {
	dtMin := dtSeconds / 60.0
	inN2, inHe := m.inspired(gas)

	maxLoading := -1.0
	leading := 0

	for i := range m.compartments {
		c := &m.compartments[i]

		kN2 := math.Ln2 / c.N2HalfTime
		kHe := math.Ln2 / c.HeHalfTime
		c.PN2 = inN2 + (c.PN2-inN2)*math.Exp(-kN2*dtMin)
		c.PHe = inHe + (c.PHe-inHe)*math.Exp(-kHe*dtMin)

		pTotal := c.PN2 + c.PHe
		a, b := c.N2A, c.N2B
		if pTotal > 0 {
			a = (c.N2A*c.PN2 + c.HeA*c.PHe) / pTotal
			b = (c.N2B*c.PN2 + c.HeB*c.PHe) / pTotal
		}
		mValue := a + m.ambientPressure/b
		c.Loading = 100.0 * pTotal / mValue

		if c.Loading > maxLoading {
			maxLoading = c.Loading
			leading = i
		}
	}

	m.leadingCompartment = leading
	m.diveTimeSeconds += dtSeconds
}

// currentGF interpolates the gradient factor for the current depth,
// blending gf_low at max_depth to gf_high at the surface.
func (m *Model) currentGF() float64 {
	if m.currentDepth <= 0 || m.maxDepth <= 0 {
		return m.config.GFHigh
	}
	slope := (m.config.GFHigh - m.config.GFLow) / m.maxDepth
	return m.config.GFLow + slope*(m.maxDepth-m.currentDepth)
}

// CurrentGF returns the gradient factor percentage in effect at the
// model's current depth.
func (m *Model) CurrentGF() float64 { return m.currentGF() }

// Ceiling computes the shallowest depth the diver may ascend to without
// exceeding any compartment's GF-scaled m-value, rounded up to the
// nearest multiple of LastStopDepth. A non-positive result means no
// decompression obligation.
func (m *Model) Ceiling() float64 {
	ceiling := 0.0
	gf := m.currentGF() / 100.0

	for i := range m.compartments {
		c := m.compartments[i]
		pTotal := c.PN2 + c.PHe
		if pTotal <= 0 {
			continue
		}
		a := (c.N2A*c.PN2 + c.HeA*c.PHe) / pTotal
		b := (c.N2B*c.PN2 + c.HeB*c.PHe) / pTotal

		pTolerated := (pTotal - a*gf) / (1.0/b - gf + 1.0)
		compCeiling := (pTolerated - m.surfacePressure) * 10.0
		if compCeiling > ceiling {
			ceiling = compCeiling
		}
	}

	if ceiling > 0 {
		ceiling = helpers.RoundUpToMultiple(ceiling, m.config.LastStopDepth)
	}
	return ceiling
}

// NDL returns the minutes of further bottom time on gas before a stop
// becomes required, by inverting the Schreiner equation toward the
// surface m-value at gf_high for each compartment and inert gas. It is
// zero whenever Ceiling() is positive, so NDL and ceiling never disagree
// about decompression status.
func (m *Model) NDL(gas gasmix.Mix) float64 {
	const noBound = 999.0

	if m.Ceiling() > 0 {
		return 0
	}

	ndl := math.Inf(1)
	inN2, inHe := m.inspired(gas)
	gf := m.config.GFHigh / 100.0

	// The surface m-value at gf_high inverts the ceiling formula:
	// a tissue pressure of a*gf + P_surface*(1/b - gf + 1) is the most
	// a compartment may carry and still surface directly.
	for i := range m.compartments {
		c := m.compartments[i]

		mN2 := c.N2A*gf + m.surfacePressure*(1.0/c.N2B-gf+1.0)
		if inN2 > c.PN2 && c.PN2 < mN2 && inN2 > mN2 {
			k := math.Ln2 / c.N2HalfTime
			remaining := math.Log((inN2-c.PN2)/(inN2-mN2)) / k
			if remaining < ndl {
				ndl = remaining
			}
		}

		if gas.FHe > 0 && inHe > c.PHe {
			mHe := c.HeA*gf + m.surfacePressure*(1.0/c.HeB-gf+1.0)
			if c.PHe < mHe && inHe > mHe {
				k := math.Ln2 / c.HeHalfTime
				remaining := math.Log((inHe-c.PHe)/(inHe-mHe)) / k
				if remaining < ndl {
					ndl = remaining
				}
			}
		}
	}

	if math.IsInf(ndl, 1) {
		ndl = noBound
	}
	return ndl
}
