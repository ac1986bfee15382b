// Package ccr manages the rebreather loop: O2 cell smoothing and
// voting, fixed and depth-interpolated setpoints, semi-closed ppO2
// estimation, and bailout state.
package ccr

import "math"

const (
	// NumCells is the number of O2 sensors voted across.
	NumCells = 3

	// historyWindow is the moving-average window each cell's millivolt
	// reading is smoothed over before ppO2 is derived.
	historyWindow = 10
)

// CellStatus classifies an individual O2 cell's health.
type CellStatus int

const (
	CellOK CellStatus = iota
	CellCurrentLimited
	CellDrift
	CellFail
	CellNotCalibrated
)

func (s CellStatus) String() string {
	switch s {
	case CellOK:
		return "ok"
	case CellCurrentLimited:
		return "current_limited"
	case CellDrift:
		return "drift"
	case CellFail:
		return "fail"
	case CellNotCalibrated:
		return "not_calibrated"
	}
	return "unknown"
}

// Cell is a single O2 sensor: its smoothed reading, derived ppO2,
// calibration, and voting eligibility.
type Cell struct {
	MillivoltHistory    [historyWindow]float64
	historyIdx          int
	Millivolts          float64
	PPO2                float64
	CalibrationFactor   float64 // mV per bar ppO2.
	CalibrationPPO2     float64
	CalibrationTimeUnix int64
	Status              CellStatus
	Voting              bool
	Deviation           float64
}

// RecyclerMode selects which loop-management behaviour is active.
type RecyclerMode int

const (
	ModeFixedSetpoint RecyclerMode = iota
	ModeAutoSetpoint
	ModeSCRPassive
	ModeSCRActive
	ModePSCR
)

// Manager is the rebreather loop controller: cell voting, setpoint
// management, SCR/PSCR ppO2 estimation, bailout state, and alarms.
type Manager struct {
	cells       [NumCells]Cell
	votedPPO2   float64
	votingCells int

	setpointLow, setpointHigh, setpointDeco float64
	currentSetpoint                         float64
	autoSwitchDepth                         float64

	mode          RecyclerMode
	isBailout     bool
	bailoutGasIdx int

	scrRatio float64 // 1:X dilution ratio.
	scrDrop  float64 // Metabolic ppO2 drop, bar.

	alarmPPO2High       bool
	alarmPPO2Low        bool
	alarmCellsDivergent bool
	alarmCellsFailed    bool

	ppO2Max, ppO2Min  float64
	timeOnLoopSeconds float64
}

// New returns a Manager with setpoints 0.7/1.3/1.4 bar, fixed-setpoint
// mode, and a 1:10 SCR ratio.
func New() *Manager {
	m := &Manager{
		setpointLow:     0.7,
		setpointHigh:    1.3,
		setpointDeco:    1.4,
		autoSwitchDepth: 6.0,
		mode:            ModeFixedSetpoint,
		scrRatio:        10.0,
		scrDrop:         0.05,
	}
	m.currentSetpoint = m.setpointLow
	for i := range m.cells {
		m.cells[i].Status = CellNotCalibrated
		m.cells[i].CalibrationFactor = 47.6 // ~10mV for 0.21 bar.
	}
	return m
}

// Cell returns a copy of cell i's current state.
func (m *Manager) Cell(i int) Cell { return m.cells[i] }

// VotedPPO2 returns the ppO2 the voting algorithm last settled on.
func (m *Manager) VotedPPO2() float64 { return m.votedPPO2 }

// VotingCells returns how many cells contributed to the last successful
// vote; a failed vote (fewer than two survivors) leaves it unchanged.
func (m *Manager) VotingCells() int { return m.votingCells }

// Mode returns the active recycler mode.
func (m *Manager) Mode() RecyclerMode { return m.mode }

// IsBailout reports whether the loop is in bailout (open-circuit).
func (m *Manager) IsBailout() bool { return m.isBailout }

// CurrentSetpoint returns the setpoint currently being driven toward.
func (m *Manager) CurrentSetpoint() float64 { return m.currentSetpoint }

// Alarms returns the four boolean loop alarms.
func (m *Manager) Alarms() (ppO2High, ppO2Low, cellsDivergent, cellsFailed bool) {
	return m.alarmPPO2High, m.alarmPPO2Low, m.alarmCellsDivergent, m.alarmCellsFailed
}

// PPO2Bounds returns the min/max voted ppO2 seen this dive.
func (m *Manager) PPO2Bounds() (min, max float64) { return m.ppO2Min, m.ppO2Max }

// BailoutGas returns the gas-table index stored by the last
// SwitchToBailout call.
func (m *Manager) BailoutGas() int { return m.bailoutGasIdx }

// Setpoints returns the configured low/high/deco setpoints.
func (m *Manager) Setpoints() (low, high, deco float64) {
	return m.setpointLow, m.setpointHigh, m.setpointDeco
}

// TimeOnLoopSeconds returns how long the diver has breathed the loop
// this session, excluding time spent bailed out.
func (m *Manager) TimeOnLoopSeconds() float64 { return m.timeOnLoopSeconds }

// Tick accumulates loop-time statistics; bailout time does not count as
// time on the loop.
func (m *Manager) Tick(dtSeconds float64) {
	if !m.isBailout {
		m.timeOnLoopSeconds += dtSeconds
	}
}

// UpdateCellReadings feeds new millivolt samples for all three cells,
// smooths them over the moving-average window, derives each cell's
// ppO2, flags out-of-range cells as failed, and re-runs the vote.
func (m *Manager) UpdateCellReadings(mv1, mv2, mv3 float64) {
	readings := [NumCells]float64{mv1, mv2, mv3}

	for i := range m.cells {
		c := &m.cells[i]
		c.MillivoltHistory[c.historyIdx] = readings[i]
		c.historyIdx = (c.historyIdx + 1) % historyWindow

		var sum float64
		for _, v := range c.MillivoltHistory {
			sum += v
		}
		c.Millivolts = sum / float64(historyWindow)
		c.PPO2 = c.Millivolts / c.CalibrationFactor

		if c.PPO2 < 0.05 || c.PPO2 > 2.0 {
			c.Status = CellFail
			c.Voting = false
		} else if c.Status != CellFail {
			c.Status = CellOK
			c.Voting = true
		}
	}

	m.ValidateCells()
}

// ValidateCells runs the two-pass vote: average the voting cells,
// exclude any cell deviating from that average by more than the larger
// of 0.1 bar and 10% of it as drifting, then recompute the average across survivors. It requires
// at least two surviving cells to produce a voted ppO2.
func (m *Manager) ValidateCells() bool {
	sum, valid := m.sumVoting()
	if valid < 2 {
		m.alarmCellsFailed = true
		return false
	}
	average := sum / float64(valid)

	for i := range m.cells {
		c := &m.cells[i]
		if !c.Voting {
			continue
		}
		c.Deviation = math.Abs(c.PPO2 - average)
		if c.Deviation > math.Max(0.1, average*0.1) {
			c.Voting = false
			c.Status = CellDrift
		}
	}

	sum, valid = m.sumVoting()
	if valid >= 2 {
		m.votedPPO2 = sum / float64(valid)
		m.votingCells = valid
		m.alarmCellsDivergent = valid < 3
		return true
	}

	m.alarmCellsFailed = true
	return false
}

func (m *Manager) sumVoting() (sum float64, count int) {
	for _, c := range m.cells {
		if c.Voting {
			sum += c.PPO2
			count++
		}
	}
	return sum, count
}

// CalibrateCell sets cell i's calibration factor from its current
// smoothed millivolt reading against a known reference ppO2 (typically
// 0.21 bar in air or 1.0 bar in pure O2).
func (m *Manager) CalibrateCell(i int, referencePPO2 float64, timestampUnix int64) {
	if i < 0 || i >= NumCells {
		return
	}
	c := &m.cells[i]
	if c.Millivolts > 0 && referencePPO2 > 0 {
		c.CalibrationFactor = c.Millivolts / referencePPO2
		c.CalibrationPPO2 = referencePPO2
		c.CalibrationTimeUnix = timestampUnix
		c.Status = CellOK
		c.Voting = true
	}
}

// CalibrateAllCells calibrates every cell against the same reference
// ppO2, for a pre-dive air or O2 flush calibration.
func (m *Manager) CalibrateAllCells(referencePPO2 float64, timestampUnix int64) {
	for i := range m.cells {
		m.CalibrateCell(i, referencePPO2, timestampUnix)
	}
}

// CheckAlarms updates the high/low ppO2 alarms and the dive's ppO2
// min/max bounds from the last voted value.
func (m *Manager) CheckAlarms() {
	m.alarmPPO2High = m.votedPPO2 > 1.6
	m.alarmPPO2Low = m.votedPPO2 < 0.4

	if m.votedPPO2 > m.ppO2Max {
		m.ppO2Max = m.votedPPO2
	}
	if m.votedPPO2 < m.ppO2Min || m.ppO2Min == 0 {
		m.ppO2Min = m.votedPPO2
	}
}

// SetFixedSetpoint switches to a constant setpoint.
func (m *Manager) SetFixedSetpoint(setpoint float64) {
	m.mode = ModeFixedSetpoint
	m.currentSetpoint = setpoint
}

// SetAutoSetpoints configures the low/high/deco setpoints and the depth
// at which the low-to-high interpolation finishes, then switches to
// auto-setpoint mode.
func (m *Manager) SetAutoSetpoints(low, high, deco, switchDepth float64) {
	m.mode = ModeAutoSetpoint
	m.setpointLow = low
	m.setpointHigh = high
	m.setpointDeco = deco
	m.autoSwitchDepth = switchDepth
}

// UpdateAutoSetpoint recomputes the target setpoint for the given depth
// in auto-setpoint mode and slews the current setpoint 10% of the way
// toward it, so the solenoid never sees a step change. A no-op outside
// auto mode.
func (m *Manager) UpdateAutoSetpoint(depth float64) {
	if m.mode != ModeAutoSetpoint {
		return
	}

	var target float64
	switch {
	case depth < 3.0:
		target = m.setpointLow
	case depth < m.autoSwitchDepth:
		ratio := (depth - 3.0) / (m.autoSwitchDepth - 3.0)
		target = m.setpointLow + (m.setpointHigh-m.setpointLow)*ratio
	default:
		target = m.setpointHigh
	}

	delta := target - m.currentSetpoint
	if math.Abs(delta) > 0.01 {
		m.currentSetpoint += delta * 0.1
	}
}

// SwitchToBailout marks the loop as bailed out onto the given gas index;
// the caller is responsible for actually switching the gas table.
func (m *Manager) SwitchToBailout(bailoutGasIdx int) {
	m.isBailout = true
	m.bailoutGasIdx = bailoutGasIdx
}

// ReturnToLoop clears bailout state, resuming closed-circuit operation.
func (m *Manager) ReturnToLoop() {
	m.isBailout = false
}

// SetSCRMode configures a semi-closed loop with the given dilution
// ratio (1:X) and estimated metabolic ppO2 drop, then switches to SCR
// passive mode.
func (m *Manager) SetSCRMode(ratio, metabolicDrop float64) {
	m.mode = ModeSCRPassive
	m.scrRatio = ratio
	m.scrDrop = metabolicDrop
}

// CalculateSCRppO2 estimates the loop ppO2 for a semi-closed rebreather
// from the inspired ppO2 of the fresh gas injected, discounting the
// fraction that is diluted by the 1:X ratio and the estimated metabolic
// consumption, floored at 0.16 bar for safety.
func (m *Manager) CalculateSCRppO2(inspiredPPO2 float64) float64 {
	scrPPO2 := inspiredPPO2*(1.0-1.0/m.scrRatio) - m.scrDrop
	if scrPPO2 < 0.16 {
		scrPPO2 = 0.16
	}
	return scrPPO2
}
