// Package gasmix implements the breathing-gas table: up to MaxGases mixes
// keyed by a small integer index, each with a derived MOD, a configurable
// ppO2 window, and enabled/diluent/bailout flags. BestGasFor selects the
// richest legal gas at a given ambient pressure.
package gasmix

import (
	"fmt"
	"math"
)

const (
	// MaxGases is the number of gas slots the table holds.
	MaxGases = 10

	// DefaultPPO2Min and DefaultPPO2Max bound the window within which a
	// gas is considered breathable when no explicit window is set.
	DefaultPPO2Min = 0.16
	DefaultPPO2Max = 1.4
)

// MixType classifies a gas mix by its inert-gas composition.
type MixType int

const (
	Unknown MixType = iota
	Air
	Nitrox
	Heliox
	Trimix
)

func (mt MixType) String() string {
	switch mt {
	case Air:
		return "Air"
	case Nitrox:
		return "Nitrox"
	case Heliox:
		return "Heliox"
	case Trimix:
		return "Trimix"
	}
	return "Unknown"
}

// Mix represents a single breathing gas: its fractions, its configured
// ppO2 window, the MOD that window implies, and the role flags the spec
// assigns it (enabled/diluent/bailout).
type Mix struct {
	Name    string
	FO2     float64
	FN2     float64
	FHe     float64
	PPO2Min float64
	PPO2Max float64
	MOD     float64
	Enabled bool
	Diluent bool
	Bailout bool
}

// MixType classifies the gas by its composition.
func (m Mix) MixType() MixType {
	switch {
	case m.FHe == 0 && m.FN2 == 0.79 && m.FO2 == 0.21:
		return Air
	case m.FHe > 0 && m.FN2 == 0:
		return Heliox
	case m.FHe > 0:
		return Trimix
	case m.FHe == 0:
		return Nitrox
	}
	return Unknown
}

// PPO2 returns the partial pressure of oxygen at the given ambient
// pressure in bar.
func (m Mix) PPO2(ambientBar float64) float64 { return ambientBar * m.FO2 }

// PPN2 returns the partial pressure of nitrogen at the given ambient
// pressure in bar.
func (m Mix) PPN2(ambientBar float64) float64 { return ambientBar * m.FN2 }

// PPHe returns the partial pressure of helium at the given ambient
// pressure in bar.
func (m Mix) PPHe(ambientBar float64) float64 { return ambientBar * m.FHe }

// computeMOD derives the Maximum Operating Depth in metres for the mix's
// own ppO2Max window: (ppO2Max/fO2 - 1) * 10.
func computeMOD(fo2, ppo2Max float64) float64 {
	if fo2 <= 0 {
		return math.Inf(1)
	}
	return (ppo2Max/fo2 - 1.0) * 10.0
}

// END returns the Equivalent Narcotic Depth in metres relative to air's
// 0.79 nitrogen fraction, for the gas at the given ambient pressure.
func (m Mix) END(ambientBar float64) float64 {
	return (m.PPN2(ambientBar)/0.79 - 1.0) * 10.0
}

// Table holds up to MaxGases mixes keyed by a small integer index, with
// one of them marked current.
type Table struct {
	gases      [MaxGases]Mix
	numGases   int
	currentGas int
}

// NewTable returns an empty gas table with no active gas.
func NewTable() *Table {
	return &Table{currentGas: -1}
}

// AddGas records a mix at index i, derives its MOD from the default ppO2
// window, and extends NumGases as needed. It returns an error if i is out
// of range or the fractions do not sum to ~1.
func (t *Table) AddGas(i int, name string, fo2, fn2, fhe float64, diluent bool) error {
	if i < 0 || i >= MaxGases {
		return fmt.Errorf("gasmix: index %d out of range [0,%d)", i, MaxGases)
	}
	if sum := fo2 + fn2 + fhe; math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("gasmix: fractions fO2=%.4f fN2=%.4f fHe=%.4f sum to %.4f, want 1.0", fo2, fn2, fhe, sum)
	}

	t.gases[i] = Mix{
		Name:    name,
		FO2:     fo2,
		FN2:     fn2,
		FHe:     fhe,
		PPO2Min: DefaultPPO2Min,
		PPO2Max: DefaultPPO2Max,
		MOD:     computeMOD(fo2, DefaultPPO2Max),
		Enabled: true,
		Diluent: diluent,
	}
	if i >= t.numGases {
		t.numGases = i + 1
	}
	if t.currentGas < 0 {
		t.currentGas = i
	}
	return nil
}

// SetPPO2Window overrides the ppO2 window for gas i and recomputes its MOD.
func (t *Table) SetPPO2Window(i int, min, max float64) error {
	if i < 0 || i >= t.numGases {
		return fmt.Errorf("gasmix: index %d out of range [0,%d)", i, t.numGases)
	}
	t.gases[i].PPO2Min = min
	t.gases[i].PPO2Max = max
	t.gases[i].MOD = computeMOD(t.gases[i].FO2, max)
	return nil
}

// SetEnabled toggles whether gas i may be selected or switched to.
func (t *Table) SetEnabled(i int, enabled bool) error {
	if i < 0 || i >= t.numGases {
		return fmt.Errorf("gasmix: index %d out of range [0,%d)", i, t.numGases)
	}
	t.gases[i].Enabled = enabled
	return nil
}

// SetBailout marks gas i as a bailout gas.
func (t *Table) SetBailout(i int, bailout bool) error {
	if i < 0 || i >= t.numGases {
		return fmt.Errorf("gasmix: index %d out of range [0,%d)", i, t.numGases)
	}
	t.gases[i].Bailout = bailout
	return nil
}

// Gas returns a copy of the mix at index i.
func (t *Table) Gas(i int) (Mix, bool) {
	if i < 0 || i >= t.numGases {
		return Mix{}, false
	}
	return t.gases[i], true
}

// NumGases returns the number of gas slots in use.
func (t *Table) NumGases() int { return t.numGases }

// CurrentGas returns the index of the active gas, or -1 if none is set.
func (t *Table) CurrentGas() int { return t.currentGas }

// SwitchGas activates gas i if it exists and is enabled.
func (t *Table) SwitchGas(i int) bool {
	if i < 0 || i >= t.numGases || !t.gases[i].Enabled {
		return false
	}
	t.currentGas = i
	return true
}

// FirstBailoutGas returns the index of the first enabled bailout gas, or
// -1 if none is configured.
func (t *Table) FirstBailoutGas() int {
	for i := 0; i < t.numGases; i++ {
		if t.gases[i].Bailout && t.gases[i].Enabled {
			return i
		}
	}
	return -1
}

// BestGasFor scans the enabled gases and returns the index of the one
// whose ppO2 at ambientBar lies within its [ppO2Min, ppO2Max] window and
// maximises ppO2; ties are broken by lower index. It returns false if no
// gas qualifies.
func (t *Table) BestGasFor(ambientBar float64) (int, bool) {
	best := -1
	bestPPO2 := -1.0

	for i := 0; i < t.numGases; i++ {
		g := t.gases[i]
		if !g.Enabled {
			continue
		}
		ppo2 := g.PPO2(ambientBar)
		if ppo2 < g.PPO2Min || ppo2 > g.PPO2Max {
			continue
		}
		if ppo2 > bestPPO2 {
			bestPPO2 = ppo2
			best = i
		}
	}
	return best, best >= 0
}
