// Package divephase implements the dive-phase finite state machine:
// start/end detection with hysteresis, smoothed ascent/descent rate
// tracking, phase classification, ascent-rate and deco-ceiling alarms,
// and safety-stop timing. All timers advance by explicit per-tick
// durations so the orchestrator's cadence drives the machine and tests
// stay deterministic.
package divephase

// Phase is one of the seven states a dive can be in.
type Phase int

const (
	Surface Phase = iota
	Descent
	Bottom
	Ascent
	DecoStop
	SafetyStop
	SurfaceInterval
)

func (p Phase) String() string {
	switch p {
	case Surface:
		return "surface"
	case Descent:
		return "descent"
	case Bottom:
		return "bottom"
	case Ascent:
		return "ascent"
	case DecoStop:
		return "deco_stop"
	case SafetyStop:
		return "safety_stop"
	case SurfaceInterval:
		return "surface_interval"
	}
	return "unknown"
}

// Config carries the detection thresholds and safety-stop parameters.
type Config struct {
	StartDepth       float64 // Metres, default 1.2.
	StartHoldSeconds float64 // Default 20.
	EndDepth         float64 // Metres, default 0.8.
	EndHoldSeconds   float64 // Default 300 (5 minutes).

	FastAscentRate float64 // m/min, default 18, triggers ascent_rate_alarm.

	SafetyStopTriggerDepth float64 // Metres; exceeding this requires a safety stop. Default 10.
	SafetyStopWindowLow    float64 // Default 4.5.
	SafetyStopWindowHigh   float64 // Default 5.5.
	SafetyStopTimeSeconds  float64 // Default 180.

	AutoStartDive     bool
	SafetyStopEnforce bool
}

// DefaultConfig returns the stock detection thresholds: a dive starts
// after 20s past 1.2m, ends after 5 minutes at or above 0.8m.
func DefaultConfig() Config {
	return Config{
		StartDepth:             1.2,
		StartHoldSeconds:       20,
		EndDepth:               0.8,
		EndHoldSeconds:         300,
		FastAscentRate:         18.0,
		SafetyStopTriggerDepth: 10.0,
		SafetyStopWindowLow:    4.5,
		SafetyStopWindowHigh:   5.5,
		SafetyStopTimeSeconds:  180,
		AutoStartDive:          true,
		SafetyStopEnforce:      true,
	}
}

// FSM holds the dive-phase state machine.
type FSM struct {
	cfg Config

	phase     Phase
	isDiving  bool
	maxDepth  float64
	lastDepth float64
	hasLast   bool

	ascentRate  float64 // m/min, positive = ascending.
	descentRate float64

	startTimerSeconds float64
	endTimerSeconds   float64

	ascentRateAlarm  bool
	decoCeilingAlarm bool
	missedDecoStops  int

	safetyStopRequired     bool
	safetyStopCompleted    bool
	safetyStopTimerSeconds float64

	surfaceIntervalMinutes float64
}

// New returns an FSM starting on the surface.
func New(cfg Config) *FSM {
	return &FSM{cfg: cfg, phase: Surface}
}

func (f *FSM) Phase() Phase               { return f.phase }
func (f *FSM) IsDiving() bool             { return f.isDiving }
func (f *FSM) MaxDepth() float64          { return f.maxDepth }
func (f *FSM) AscentRate() float64        { return f.ascentRate }
func (f *FSM) DescentRate() float64       { return f.descentRate }
func (f *FSM) AscentRateAlarm() bool      { return f.ascentRateAlarm }
func (f *FSM) DecoCeilingAlarm() bool     { return f.decoCeilingAlarm }
func (f *FSM) MissedDecoStops() int       { return f.missedDecoStops }
func (f *FSM) SafetyStopRequired() bool   { return f.safetyStopRequired }
func (f *FSM) SafetyStopCompleted() bool  { return f.safetyStopCompleted }
func (f *FSM) SafetyStopTimerSeconds() float64 { return f.safetyStopTimerSeconds }
func (f *FSM) SurfaceIntervalMinutes() float64 { return f.surfaceIntervalMinutes }

// Update advances the FSM by dtSeconds of elapsed time at the given depth
// and tissue-model ceiling. Auto start/end detection runs first, then
// rate tracking, alarms, phase classification, and safety-stop timing,
// in that order. The tick on which a dive starts keeps the Descent phase
// StartDive sets; classification resumes on the next tick.
func (f *FSM) Update(depth, dtSeconds, ceiling float64) {
	started := false
	if f.cfg.AutoStartDive {
		if !f.isDiving && f.checkDiveStart(depth, dtSeconds) {
			f.StartDive()
			started = true
		} else if f.isDiving && f.checkDiveEnd(depth, dtSeconds) {
			f.EndDive()
		}
	}

	if !f.isDiving {
		f.surfaceIntervalMinutes += dtSeconds / 60.0
		return
	}

	f.updateRates(depth, dtSeconds)
	if depth > f.maxDepth {
		f.maxDepth = depth
	}

	f.ascentRateAlarm = f.ascentRate > f.cfg.FastAscentRate

	if depth < ceiling {
		f.decoCeilingAlarm = true
		f.missedDecoStops++
	} else {
		f.decoCeilingAlarm = false
	}

	if !started {
		f.classifyPhase(depth, ceiling)
	}

	if f.cfg.SafetyStopEnforce {
		f.updateSafetyStop(depth, dtSeconds)
	}
}

// checkDiveStart implements the 20 s hysteresis: depth must stay at or
// above StartDepth continuously for StartHoldSeconds.
func (f *FSM) checkDiveStart(depth, dtSeconds float64) bool {
	if depth >= f.cfg.StartDepth {
		f.startTimerSeconds += dtSeconds
		if f.startTimerSeconds >= f.cfg.StartHoldSeconds {
			f.startTimerSeconds = 0
			return true
		}
	} else {
		f.startTimerSeconds = 0
	}
	return false
}

// checkDiveEnd implements the 300 s hysteresis: depth must stay at or
// below EndDepth continuously for EndHoldSeconds.
func (f *FSM) checkDiveEnd(depth, dtSeconds float64) bool {
	if depth <= f.cfg.EndDepth {
		f.endTimerSeconds += dtSeconds
		if f.endTimerSeconds >= f.cfg.EndHoldSeconds {
			f.endTimerSeconds = 0
			return true
		}
	} else {
		f.endTimerSeconds = 0
	}
	return false
}

// StartDive resets per-dive state and transitions to Descent.
func (f *FSM) StartDive() {
	f.isDiving = true
	f.phase = Descent
	f.maxDepth = 0
	f.hasLast = false
	f.ascentRate = 0
	f.descentRate = 0
	f.safetyStopRequired = false
	f.safetyStopCompleted = false
	f.safetyStopTimerSeconds = 0
	f.missedDecoStops = 0
}

// EndDive transitions to SurfaceInterval and restarts the interval timer.
func (f *FSM) EndDive() {
	f.isDiving = false
	f.phase = SurfaceInterval
	f.surfaceIntervalMinutes = 0
}

// updateRates applies the 0.7/0.3 exponential filter to the instantaneous
// rate of depth change (positive = ascending, so a shrinking depth raises
// the rate), and derives descent rate whenever the smoothed rate goes
// negative.
func (f *FSM) updateRates(depth, dtSeconds float64) {
	if !f.hasLast {
		f.hasLast = true
		f.lastDepth = depth
		return
	}
	if dtSeconds <= 0 {
		return
	}

	dtMin := dtSeconds / 60.0
	raw := (f.lastDepth - depth) / dtMin
	f.ascentRate = f.ascentRate*0.7 + raw*0.3

	if f.ascentRate < 0 {
		f.descentRate = -f.ascentRate
	}

	f.lastDepth = depth
}

// classifyPhase applies the classification rules in priority order:
// fast depth change wins, then the safety-stop window, then Bottom.
func (f *FSM) classifyPhase(depth, ceiling float64) {
	switch {
	case f.ascentRate < -5.0:
		f.phase = Descent
	case f.ascentRate > 3.0 && ceiling > 0 && depth <= ceiling+3.0:
		f.phase = DecoStop
	case f.ascentRate > 3.0:
		f.phase = Ascent
	case depth >= 3.0 && depth <= 6.0 && f.safetyStopRequired:
		f.phase = SafetyStop
	default:
		f.phase = Bottom
	}
}

// updateSafetyStop arms the safety stop once max depth has exceeded the
// trigger depth, then times the stop while depth sits in the safety-stop
// window, resetting the timer if the diver leaves it.
func (f *FSM) updateSafetyStop(depth, dtSeconds float64) {
	if f.maxDepth > f.cfg.SafetyStopTriggerDepth && !f.safetyStopCompleted {
		f.safetyStopRequired = true
	}

	if !f.safetyStopRequired {
		return
	}
	if depth < f.cfg.SafetyStopWindowLow || depth > f.cfg.SafetyStopWindowHigh {
		f.safetyStopTimerSeconds = 0
		return
	}
	if f.phase == SafetyStop {
		f.safetyStopTimerSeconds += dtSeconds
		if f.safetyStopTimerSeconds >= f.cfg.SafetyStopTimeSeconds {
			f.safetyStopCompleted = true
			f.safetyStopRequired = false
		}
	}
}
