package ccr

import "testing"

// fillCell feeds the same millivolt reading `times` times so the moving
// average settles immediately, matching a cell that has been stable.
func fillCell(m *Manager, mv1, mv2, mv3 float64, times int) {
	for i := 0; i < times; i++ {
		m.UpdateCellReadings(mv1, mv2, mv3)
	}
}

func TestUpdateCellReadingsAgreeingCellsAllVote(t *testing.T) {
	m := New()
	for i := range m.cells {
		m.cells[i].CalibrationFactor = 10.0 // 10 mV/bar for round numbers.
	}

	fillCell(m, 10.0, 10.0, 10.0, historyWindow)

	if m.VotingCells() != 3 {
		t.Fatalf("want 3 voting cells; got %d", m.VotingCells())
	}
	if m.VotedPPO2() != 1.0 {
		t.Errorf("want voted ppO2 1.0; got %f", m.VotedPPO2())
	}
}

func TestValidateCellsExcludesDivergentCell(t *testing.T) {
	m := New()
	for i := range m.cells {
		m.cells[i].CalibrationFactor = 10.0
	}

	// Cell 3 reads wildly high relative to the other two.
	fillCell(m, 10.0, 10.2, 18.0, historyWindow)

	if m.VotingCells() != 2 {
		t.Fatalf("want 2 voting cells after excluding the divergent one; got %d", m.VotingCells())
	}
	if m.Cell(2).Status != CellDrift {
		t.Errorf("want cell 2 flagged as drift; got %v", m.Cell(2).Status)
	}
}

// Cells reading ppO2 {1.20, 1.22, 1.45} have a group mean of 1.29; the
// outlier's 0.16 deviation exceeds max(0.10, 10% of mean) = 0.129, so it
// is dropped and the vote settles on the surviving pair's mean of 1.21.
func TestValidateCellsDropsLoneOutlier(t *testing.T) {
	m := New()
	for i := range m.cells {
		m.cells[i].CalibrationFactor = 10.0
	}

	fillCell(m, 12.0, 12.2, 14.5, historyWindow)

	if m.VotingCells() != 2 {
		t.Fatalf("want 2 voting cells; got %d", m.VotingCells())
	}
	if got := m.VotedPPO2(); got <= 1.209 || got >= 1.211 {
		t.Errorf("want voted ppO2 1.21; got %f", got)
	}
	_, _, divergent, _ := m.Alarms()
	if !divergent {
		t.Errorf("want cells-divergent alarm with only 2 survivors")
	}
}

// The divergence threshold is the larger of 0.10 bar and 10% of the
// group mean, so at a high mean a deviation just over 0.10 bar alone
// must not drop the cell.
func TestValidateCellsToleratesDeviationUnderTenPercent(t *testing.T) {
	m := New()
	for i := range m.cells {
		m.cells[i].CalibrationFactor = 10.0
	}

	// ppO2 {1.40, 1.40, 1.57}: mean 1.457, outlier deviation 0.113 is
	// over 0.10 bar but under the 0.146 ten-percent bound.
	fillCell(m, 14.0, 14.0, 15.7, historyWindow)

	if m.VotingCells() != 3 {
		t.Errorf("want all 3 cells voting within the 10%% band; got %d", m.VotingCells())
	}
}

func TestUpdateCellReadingsFailsOutOfRangeCell(t *testing.T) {
	m := New()
	for i := range m.cells {
		m.cells[i].CalibrationFactor = 10.0
	}

	fillCell(m, 10.0, 10.0, 30.0, historyWindow) // Cell 3 -> ppO2 3.0, out of [0.05,2.0].

	if m.Cell(2).Status != CellFail {
		t.Errorf("want cell 2 failed; got %v", m.Cell(2).Status)
	}
	if m.Cell(2).Voting {
		t.Errorf("a failed cell must not vote")
	}
}

func TestValidateCellsNeedsTwoVoters(t *testing.T) {
	m := New()
	m.cells[0].Voting = true
	m.cells[0].PPO2 = 1.0

	if m.ValidateCells() {
		t.Errorf("vote should fail with only one voting cell")
	}
	_, _, _, failed := m.Alarms()
	if !failed {
		t.Errorf("want cells-failed alarm set")
	}
}

func TestCalibrateCellSetsFactor(t *testing.T) {
	m := New()
	m.cells[0].Millivolts = 10.0

	m.CalibrateCell(0, 0.21, 1000)

	want := 10.0 / 0.21
	if m.Cell(0).CalibrationFactor != want {
		t.Errorf("want calibration factor %f; got %f", want, m.Cell(0).CalibrationFactor)
	}
	if m.Cell(0).Status != CellOK {
		t.Errorf("want cell status OK after calibration; got %v", m.Cell(0).Status)
	}
}

func TestUpdateAutoSetpointInterpolatesAndSlews(t *testing.T) {
	m := New()
	m.SetAutoSetpoints(0.7, 1.3, 1.4, 6.0)

	m.UpdateAutoSetpoint(30.0) // Past the switch depth -> target 1.3.
	first := m.CurrentSetpoint()
	if first <= 0.7 || first >= 1.3 {
		t.Errorf("want setpoint to have slewed partway toward 1.3; got %f", first)
	}

	for i := 0; i < 100; i++ {
		m.UpdateAutoSetpoint(30.0)
	}
	if m.CurrentSetpoint() < 1.29 {
		t.Errorf("want setpoint to converge near 1.3 after many updates; got %f", m.CurrentSetpoint())
	}
}

// With setpoints 0.7/1.3 and a 6 m switch depth, the target at 4.5 m is
// 0.7 + 0.6*(1.5/3) = 1.00, and a single update from 0.70 slews 10% of
// the residual to 0.73.
func TestUpdateAutoSetpointSlewsTenPercentOfResidual(t *testing.T) {
	m := New()
	m.SetAutoSetpoints(0.7, 1.3, 1.4, 6.0)

	m.UpdateAutoSetpoint(4.5)

	got := m.CurrentSetpoint()
	if got <= 0.7299 || got >= 0.7301 {
		t.Errorf("want setpoint 0.73 after one update; got %f", got)
	}
}

func TestUpdateAutoSetpointNoopOutsideAutoMode(t *testing.T) {
	m := New()
	m.SetFixedSetpoint(1.0)
	before := m.CurrentSetpoint()

	m.UpdateAutoSetpoint(30.0)

	if m.CurrentSetpoint() != before {
		t.Errorf("fixed-setpoint mode must not be affected by UpdateAutoSetpoint")
	}
}

func TestCalculateSCRppO2FloorsAtMinimum(t *testing.T) {
	m := New()
	m.SetSCRMode(10.0, 0.05)

	got := m.CalculateSCRppO2(0.10)
	if got != 0.16 {
		t.Errorf("want SCR ppO2 floored at 0.16; got %f", got)
	}
}

func TestSwitchToBailoutAndReturn(t *testing.T) {
	m := New()
	m.Tick(60)

	m.SwitchToBailout(2)
	if !m.IsBailout() {
		t.Fatalf("want bailout active")
	}
	if m.BailoutGas() != 2 {
		t.Errorf("want bailout gas index 2; got %d", m.BailoutGas())
	}

	m.Tick(60) // Bailed-out time does not count as loop time.
	if m.TimeOnLoopSeconds() != 60 {
		t.Errorf("want 60s on loop; got %f", m.TimeOnLoopSeconds())
	}

	m.ReturnToLoop()
	if m.IsBailout() {
		t.Errorf("want bailout cleared after returning to loop")
	}
}

func TestCheckAlarmsTracksPPO2Bounds(t *testing.T) {
	m := New()
	for i := range m.cells {
		m.cells[i].CalibrationFactor = 10.0
	}
	fillCell(m, 10.0, 10.0, 10.0, historyWindow)
	m.CheckAlarms()

	fillCell(m, 18.0, 18.0, 18.0, historyWindow)
	m.CheckAlarms()

	min, max := m.PPO2Bounds()
	if max != 1.8 {
		t.Errorf("want max ppO2 1.8; got %f", max)
	}
	if min != 1.0 {
		t.Errorf("want min ppO2 1.0; got %f", min)
	}

	ppO2High, _, _, _ := m.Alarms()
	if !ppO2High {
		t.Errorf("want high ppO2 alarm at 1.8 bar")
	}
}
