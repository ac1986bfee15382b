// Package orchestrator sequences the whole decompression core across
// its three cadences: a ~50 Hz sensor sweep that derives depth and
// drives cell-voting, setpoint, tissue-model, phase-FSM and sampler in
// that order, a 10 Hz UI tick, and a 1 Hz heavy tick that integrates
// tissue loading and toxicity and refreshes the ascent plan while a
// ceiling exists; NDL and ceiling are recomputed on the UI tick. It latches
// emergency mode on a sensor-read fault and owns no hardware of its
// own: callers supply readings through the SensorSource interface.
package orchestrator

import (
	"github.com/sirupsen/logrus"

	"github.com/scriner2110/decobrain/buhlmann"
	"github.com/scriner2110/decobrain/ccr"
	"github.com/scriner2110/decobrain/deco"
	"github.com/scriner2110/decobrain/divephase"
	"github.com/scriner2110/decobrain/gasmix"
	"github.com/scriner2110/decobrain/oxtox"
	"github.com/scriner2110/decobrain/sampler"
)

// Cadence periods in seconds for the 10 Hz UI and 1 Hz heavy ticks; the
// sensor sweep runs on every Tick call.
const (
	UITickPeriod    = 1.0 / 10.0
	HeavyTickPeriod = 1.0
)

// Mode selects which inspired-gas regime the orchestrator feeds the
// tissue model: open-circuit fractions, or a rebreather's voted ppO2.
type Mode int

const (
	ModeOpenCircuit Mode = iota
	ModeCCR
	ModeSCR
)

// ButtonEvent identifies a physical button press surfaced by the HAL.
type ButtonEvent int

const (
	ButtonNone ButtonEvent = iota
	ButtonSelect
	ButtonBack
	ButtonMode
)

// SensorSource is the hardware collaborator the orchestrator polls each
// sweep: ambient pressure/temperature, O2 cell millivolts in rebreather
// modes, and the button/clock reads a real HAL also exposes.
type SensorSource interface {
	ReadPressureTemperature() (mbar, temperatureC float64, fault bool)
	ReadO2Cells() (mv1, mv2, mv3 float64, fault bool)
	ButtonEvent() ButtonEvent
	Millis() uint32
	UnixTime() int64
}

// State is the read-only snapshot exposed to the UI collaborator.
type State struct {
	Depth           float64
	MaxDepth        float64
	DiveTimeSeconds float64
	NDLMinutes      float64
	CeilingMetres   float64
	ActiveGas       int
	VotedPPO2       float64
	Setpoint        float64
	AscentRate      float64
	CNSPercent      float64
	OTU             float64
	CurrentGF       float64
	Phase           divephase.Phase
	EmergencyMode   bool

	Mode         Mode
	PreviousMode Mode
	AlarmBanner  string

	AscentRateAlarm  bool
	DecoCeilingAlarm bool
	PPO2HighAlarm    bool
	PPO2LowAlarm     bool
	CellsDivergent   bool
	CellsFailed      bool
}

// Orchestrator ties together the tissue model, gas table, rebreather
// loop, phase FSM, toxicity tracker, and sampler.
type Orchestrator struct {
	mode Mode

	model    *buhlmann.Model
	gasTable *gasmix.Table
	recycler *ccr.Manager
	phase    *divephase.FSM
	cns      *oxtox.Tracker
	sampler  *sampler.Sampler

	surfacePressureMbar float64
	emergencyMode       bool

	previousMode Mode
	wasBailedOut bool
	alarmBanner  string
	lastMillis   uint32
	lastUnixTime int64
	lastPhase    divephase.Phase

	uiAccum    float64
	heavyAccum float64

	lastState         State
	lastDecoMinutes   float64
	lastPlanTruncated bool
}

// New assembles an Orchestrator from its already-constructed
// collaborators. surfacePressureMbar calibrates sensor readings to
// depth: depth = (P_amb_mbar - surfacePressureMbar) / 100.
func New(mode Mode, model *buhlmann.Model, gasTable *gasmix.Table, recycler *ccr.Manager, phase *divephase.FSM, cns *oxtox.Tracker, smp *sampler.Sampler, surfacePressureMbar float64) *Orchestrator {
	return &Orchestrator{
		mode:                mode,
		previousMode:        mode,
		model:               model,
		gasTable:            gasTable,
		recycler:            recycler,
		phase:               phase,
		cns:                 cns,
		sampler:             smp,
		surfacePressureMbar: surfacePressureMbar,
	}
}

// EmergencyMode reports whether the last sensor sweep faulted.
func (o *Orchestrator) EmergencyMode() bool { return o.emergencyMode }

// Mode returns the orchestrator's current gas-source regime.
func (o *Orchestrator) Mode() Mode { return o.mode }

// PreviousMode returns the regime in effect before the last SwitchMode call.
func (o *Orchestrator) PreviousMode() Mode { return o.previousMode }

// LastMillis returns the HAL's free-running millisecond counter as of
// the most recent sensor sweep.
func (o *Orchestrator) LastMillis() uint32 { return o.lastMillis }

// LastUnixTime returns the HAL's wall-clock reading as of the most
// recent sensor sweep.
func (o *Orchestrator) LastUnixTime() int64 { return o.lastUnixTime }

// SwitchMode changes the active regime, recording the prior one so a
// bailout can later return to it.
func (o *Orchestrator) SwitchMode(m Mode) {
	o.previousMode = o.mode
	o.mode = m
}

// State returns the last computed UI-facing snapshot.
func (o *Orchestrator) State() State { return o.lastState }

// Tick advances the orchestrator by dtSeconds, running the sensor
// sweep every call and firing the UI/heavy ticks once their respective
// periods have accumulated. Callers drive this at the sensor sweep's
// own cadence (nominally 50 Hz, dtSeconds ≈ 0.02).
func (o *Orchestrator) Tick(dtSeconds float64, source SensorSource) {
	o.runSensorSweep(dtSeconds, source)

	o.uiAccum += dtSeconds
	if o.uiAccum >= UITickPeriod {
		o.uiAccum -= UITickPeriod
		o.runUITick()
	}

	o.heavyAccum += dtSeconds
	if o.heavyAccum >= HeavyTickPeriod {
		o.heavyAccum -= HeavyTickPeriod
		o.runHeavyTick()
	}
}

// currentGas returns the active gas mix, or a zero mix if none is set.
func (o *Orchestrator) currentGas() gasmix.Mix {
	if g, ok := o.gasTable.Gas(o.gasTable.CurrentGas()); ok {
		return g
	}
	return gasmix.Mix{}
}

// runSensorSweep keeps a strict per-tick ordering: cells before voting,
// voting before the measured ppO2 feeding the tissue model, tissue
// state before ceiling, ceiling before phase classification, phase
// classification before sample emission.
func (o *Orchestrator) runSensorSweep(dtSeconds float64, source SensorSource) {
	mbar, temperatureC, fault := source.ReadPressureTemperature()
	if fault {
		if !o.emergencyMode {
			logrus.Warn("sensor read fault, entering emergency mode")
		}
		o.emergencyMode = true
		return
	}
	if o.emergencyMode {
		logrus.Info("sensor reads recovered, leaving emergency mode")
	}
	o.emergencyMode = false

	depth := (mbar - o.surfacePressureMbar) / 100.0
	if depth < 0 {
		depth = 0
	}
	o.model.SetDepth(depth)

	o.lastMillis = source.Millis()
	o.lastUnixTime = source.UnixTime()
	if source.ButtonEvent() == ButtonMode && o.mode != ModeOpenCircuit && o.recycler != nil {
		o.SwitchMode(ModeOpenCircuit)
		o.recycler.SwitchToBailout(o.gasTable.FirstBailoutGas())
	}

	rebreather := o.mode != ModeOpenCircuit
	if o.model.CCRMode() != rebreather {
		o.model.SetCCRMode(rebreather)
	}
	if rebreather {
		mv1, mv2, mv3, cellFault := source.ReadO2Cells()
		if !cellFault {
			o.recycler.UpdateCellReadings(mv1, mv2, mv3)
			o.recycler.CheckAlarms()
		}
		o.recycler.Tick(dtSeconds)
		o.recycler.UpdateAutoSetpoint(depth)
		o.model.SetMeasuredPPO2(o.recycler.VotedPPO2())
	}

	ceiling := o.model.Ceiling()
	o.phase.Update(depth, dtSeconds, ceiling)
	if p := o.phase.Phase(); p != o.lastPhase {
		logrus.WithFields(logrus.Fields{"phase": p.String(), "depth": depth}).Info("dive phase changed")
		o.lastPhase = p
	}

	events := o.pendingEvents()
	decoMinutes := o.lastDecoMinutes
	if decoMinutes > 255 {
		decoMinutes = 255
	}
	gasIdx := o.gasTable.CurrentGas()
	if gasIdx < 0 {
		gasIdx = 0
	}
	o.sampler.Tick(dtSeconds, depth, temperatureC, uint8(gasIdx),
		uint8(decoMinutes), uint8(o.cns.CNSPercent()), events)
}

// pendingEvents collects the sampler event bitmask from this tick's
// alarms and phase state.
func (o *Orchestrator) pendingEvents() uint16 {
	var events uint16
	if o.phase.AscentRateAlarm() {
		events |= sampler.EventAscentRateAlarm
	}
	if o.phase.DecoCeilingAlarm() {
		events |= sampler.EventDecoCeilingViolation
	}
	if o.recycler != nil {
		_, _, divergent, failed := o.recycler.Alarms()
		if divergent || failed {
			events |= sampler.EventCellFailure
		}
		if o.recycler.IsBailout() {
			events |= sampler.EventBailout
			if !o.wasBailedOut {
				o.alarmBanner = "BAILOUT!"
				logrus.Warn("bailout engaged, loop abandoned for open circuit")
			}
			o.wasBailedOut = true
		} else {
			o.wasBailedOut = false
		}
	}
	if o.lastPlanTruncated {
		events |= sampler.EventPlanTruncated
	}
	return events
}

// runUITick refreshes the read-only UI-facing state snapshot.
func (o *Orchestrator) runUITick() {
	gas := o.currentGas()
	ppO2High, ppO2Low, cellsDivergent, cellsFailed := false, false, false, false
	votedPPO2, setpoint := 0.0, 0.0
	if o.mode != ModeOpenCircuit {
		ppO2High, ppO2Low, cellsDivergent, cellsFailed = o.recycler.Alarms()
		votedPPO2 = o.recycler.VotedPPO2()
		setpoint = o.recycler.CurrentSetpoint()
	}

	o.lastState = State{
		Depth:            o.model.CurrentDepth(),
		MaxDepth:         o.model.MaxDepth(),
		DiveTimeSeconds:  o.model.DiveTimeSeconds(),
		NDLMinutes:       o.model.NDL(gas),
		CeilingMetres:    o.model.Ceiling(),
		ActiveGas:        o.gasTable.CurrentGas(),
		VotedPPO2:        votedPPO2,
		Setpoint:         setpoint,
		AscentRate:       o.phase.AscentRate(),
		CNSPercent:       o.cns.CNSPercent(),
		OTU:              o.cns.OTU(),
		CurrentGF:        o.model.CurrentGF(),
		Phase:            o.phase.Phase(),
		EmergencyMode:    o.emergencyMode,
		Mode:             o.mode,
		PreviousMode:     o.previousMode,
		AlarmBanner:      o.alarmBanner,
		AscentRateAlarm:  o.phase.AscentRateAlarm(),
		DecoCeilingAlarm: o.phase.DecoCeilingAlarm(),
		PPO2HighAlarm:    ppO2High,
		PPO2LowAlarm:     ppO2Low,
		CellsDivergent:   cellsDivergent,
		CellsFailed:      cellsFailed,
	}
	o.alarmBanner = ""
}

// runHeavyTick integrates tissue loading and toxicity over the elapsed
// second and, when an obligation exists, refreshes the ascent plan.
func (o *Orchestrator) runHeavyTick() {
	if o.emergencyMode {
		return
	}

	gas := o.currentGas()
	o.model.UpdateTissues(HeavyTickPeriod, gas)

	ppo2 := o.model.WorkingPPO2(gas)
	o.cns.UpdateCNS(ppo2, HeavyTickPeriod)
	o.cns.UpdateOTU(ppo2, HeavyTickPeriod)

	if o.model.Ceiling() > 0 {
		plan := deco.Calculate(o.model, o.gasTable, deco.DefaultPlannerConfig())
		o.lastDecoMinutes = plan.TTSMinutes
		o.lastPlanTruncated = plan.Truncated
		logrus.WithFields(logrus.Fields{
			"ceiling": plan.CeilingAtGen,
			"tts":     plan.TTSMinutes,
			"stops":   len(plan.Stops),
		}).Debug("ascent plan refreshed")
	} else {
		o.lastDecoMinutes = 0
		o.lastPlanTruncated = false
	}
}

// FinalizeDive completes the in-progress dive's profile, handing it to
// the sampler's storage collaborator.
func (o *Orchestrator) FinalizeDive(endTimestamp uint32) (sampler.Profile, error) {
	return o.sampler.Finalize(endTimestamp, o.model.CurrentGF(), o.cns.CNSPercent(), o.cns.OTU())
}
