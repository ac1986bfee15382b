package orchestrator

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/scriner2110/decobrain/sampler"
)

// ReplaySource implements SensorSource by walking a previously recorded
// sampler.Profile one sample at a time, letting the CLI and tests drive
// the orchestrator from a logged dive instead of live hardware.
type ReplaySource struct {
	profile             *sampler.Profile
	surfacePressureMbar float64
	index               int
}

// NewReplaySource returns a ReplaySource over profile's samples.
// surfacePressureMbar must match the value the orchestrator itself was
// constructed with, so depths recovered from the replayed samples land
// back on the same ambient-pressure scale they were recorded at.
func NewReplaySource(profile *sampler.Profile, surfacePressureMbar float64) *ReplaySource {
	return &ReplaySource{profile: profile, surfacePressureMbar: surfacePressureMbar}
}

// Done reports whether every recorded sample has been consumed.
func (r *ReplaySource) Done() bool {
	return r.index >= len(r.profile.Samples)
}

// ReadPressureTemperature reconstructs ambient pressure and temperature
// from the current sample and advances the cursor. Once the profile is
// exhausted it keeps replaying the final sample rather than faulting,
// since an exhausted log is not a sensor fault.
func (r *ReplaySource) ReadPressureTemperature() (mbar, temperatureC float64, fault bool) {
	if len(r.profile.Samples) == 0 {
		return r.surfacePressureMbar, 20.0, false
	}
	i := r.index
	if i >= len(r.profile.Samples) {
		i = len(r.profile.Samples) - 1
	} else {
		r.index++
	}
	s := r.profile.Samples[i]
	depthMetres := float64(s.DepthCM) / 100.0
	mbar = r.surfacePressureMbar + depthMetres*100.0
	temperatureC = float64(s.TemperatureDeciC) / 10.0
	return mbar, temperatureC, false
}

// ReadO2Cells always reports a fault: a replayed dive log carries no
// per-cell millivolt history (a sample holds depth, temperature, gas,
// deco time, CNS and events), so the orchestrator's CCR voting stage has
// nothing meaningful to vote on.
func (r *ReplaySource) ReadO2Cells() (mv1, mv2, mv3 float64, fault bool) {
	return 0, 0, 0, true
}

// ButtonEvent never fires during replay; logged dives carry no button
// history.
func (r *ReplaySource) ButtonEvent() ButtonEvent { return ButtonNone }

// Millis returns the elapsed time of the current sample in milliseconds.
func (r *ReplaySource) Millis() uint32 {
	if len(r.profile.Samples) == 0 || r.index == 0 {
		return 0
	}
	return uint32(r.profile.Samples[r.index-1].TimeSeconds) * 1000
}

// UnixTime returns the profile's start timestamp offset by the current
// sample's time-since-start.
func (r *ReplaySource) UnixTime() int64 {
	if len(r.profile.Samples) == 0 || r.index == 0 {
		return int64(r.profile.StartTimestamp)
	}
	return int64(r.profile.StartTimestamp) + int64(r.profile.Samples[r.index-1].TimeSeconds)
}

// NewReplaySourceFromCSV builds a ReplaySource from a lightweight
// "time_seconds,depth_m,temperature_c" CSV stream — a synthetic-profile
// format with none of the logbook's packed-binary or Shearwater-XML
// ceremony, used for hand-written fixtures by the replay CLI command
// and by tests that want a readable dive shape on disk.
func NewReplaySourceFromCSV(r io.Reader, surfacePressureMbar float64) (*ReplaySource, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("orchestrator: reading csv profile: %w", err)
	}

	profile := &sampler.Profile{}
	for i, rec := range records {
		timeSeconds, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: row %d: invalid time_seconds %q: %w", i, rec[0], err)
		}
		depth, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: row %d: invalid depth_m %q: %w", i, rec[1], err)
		}
		temperatureC, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: row %d: invalid temperature_c %q: %w", i, rec[2], err)
		}
		profile.Samples = append(profile.Samples, sampler.Sample{
			TimeSeconds:      uint16(timeSeconds),
			DepthCM:          int16(depth * 100),
			TemperatureDeciC: int16(temperatureC * 10),
		})
		if depth > profile.MaxDepth {
			profile.MaxDepth = depth
		}
	}
	return NewReplaySource(profile, surfacePressureMbar), nil
}
