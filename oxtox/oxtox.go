// Package oxtox tracks oxygen toxicity exposure: CNS percentage against
// the NOAA single-exposure limits, and Oxygen Tolerance Units for
// whole-body pulmonary toxicity.
package oxtox

import "math"

// SurfaceDecayHalfTimeMinutes is the CNS off-gassing half-time applied
// whenever ppO2 drops below 0.5 bar.
const SurfaceDecayHalfTimeMinutes = 90.0

const ln2 = 0.6931471805599453

// Tracker accumulates CNS and OTU exposure across a dive.
type Tracker struct {
	cnsPercent float64
	otu        float64
}

// New returns a tracker starting from zero exposure.
func New() *Tracker {
	return &Tracker{}
}

// CNSPercent returns the accumulated CNS loading as a percentage of the
// NOAA single-exposure limit, clamped to [0, 100].
func (t *Tracker) CNSPercent() float64 { return t.cnsPercent }

// OTU returns the accumulated Oxygen Tolerance Units.
func (t *Tracker) OTU() float64 { return t.otu }

// Reset clears accumulated exposure, for a new dive or a new day.
func (t *Tracker) Reset() {
	t.cnsPercent = 0
	t.otu = 0
}

// CNSRateAtPPO2 returns the CNS percent-per-minute rate for a given
// working ppO2, stepping through the NOAA single-exposure limit table
// and saturating above 1.6 bar.
func CNSRateAtPPO2(ppo2 float64) float64 {
	switch {
	case ppo2 <= 0.5:
		return 0.0
	case ppo2 <= 0.6:
		return 100.0 / 720.0
	case ppo2 <= 0.7:
		return 100.0 / 570.0
	case ppo2 <= 0.8:
		return 100.0 / 450.0
	case ppo2 <= 0.9:
		return 100.0 / 360.0
	case ppo2 <= 1.0:
		return 100.0 / 300.0
	case ppo2 <= 1.1:
		return 100.0 / 240.0
	case ppo2 <= 1.2:
		return 100.0 / 210.0
	case ppo2 <= 1.3:
		return 100.0 / 180.0
	case ppo2 <= 1.4:
		return 100.0 / 150.0
	case ppo2 <= 1.5:
		return 100.0 / 120.0
	case ppo2 <= 1.6:
		return 100.0 / 45.0
	default:
		return 100.0 / 6.0
	}
}

// UpdateCNS accumulates CNS loading for timeSeconds of exposure to the
// given working ppO2, applying a surface decay whenever ppO2 falls below
// 0.5 bar instead of accumulating further load.
func (t *Tracker) UpdateCNS(ppo2 float64, timeSeconds float64) {
	rate := CNSRateAtPPO2(ppo2)
	t.cnsPercent += rate * timeSeconds / 60.0

	if ppo2 < 0.5 {
		t.cnsPercent *= math.Exp(-ln2 * timeSeconds / (SurfaceDecayHalfTimeMinutes * 60.0))
	}

	if t.cnsPercent > 100.0 {
		t.cnsPercent = 100.0
	}
	if t.cnsPercent < 0.0 {
		t.cnsPercent = 0.0
	}
}

// UpdateOTU accumulates Oxygen Tolerance Units for timeSeconds of
// exposure to the given working ppO2, using the standard formulation:
// one OTU is a minute breathing 100% oxygen at 1 bar, with exposure
// below 0.5 bar contributing nothing. OTU only reverses slowly between
// dives, so no decay is applied here; the logbook owns multi-day
// bookkeeping.
func (t *Tracker) UpdateOTU(ppo2 float64, timeSeconds float64) {
	if ppo2 <= 0.5 {
		return
	}
	minutes := timeSeconds / 60.0
	t.otu += minutes * math.Pow((ppo2-0.5)/0.5, 0.83)
}
