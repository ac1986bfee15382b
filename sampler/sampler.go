// Package sampler implements fixed-cadence dive-profile recording:
// sample emission, in-place halving compression on buffer overflow, and
// end-of-dive finalisation into a Profile ready for the logbook storage
// collaborator. Compression doubles the effective cadence; surviving
// samples keep their original timestamps, so consumers must not assume
// evenly spaced records after an overflow.
package sampler

import "github.com/google/uuid"

// MaxSamples bounds the in-memory sample buffer; at the default 1 Hz
// cadence this is one hour of diving before compression kicks in.
const MaxSamples = 3600

// Event bits recorded in a DiveSample's event bitmask.
const (
	EventGasSwitch uint16 = 1 << iota
	EventAscentRateAlarm
	EventDecoCeilingViolation
	EventSafetyStopSkipped
	EventCellFailure
	EventBufferCompressed
	EventPlanTruncated
	EventBailout
)

// Sample is the packed per-tick profile record: time offset in seconds,
// depth in centimetres, temperature in tenths of a degree Celsius,
// active gas index, remaining deco minutes, CNS percent, and an event
// bitmask.
type Sample struct {
	TimeSeconds      uint16
	DepthCM          int16
	TemperatureDeciC int16
	GasIndex         uint8
	DecoTimeMinutes  uint8
	CNSPercent       uint8
	Events           uint16
}

// Profile is a single dive's header and sample stream.
type Profile struct {
	DiveNumber     uint32
	SessionID      string // Collision-proof key alongside DiveNumber; stamped by New.
	StartTimestamp uint32
	EndTimestamp   uint32

	MaxDepth           float64
	AvgDepth           float64
	DurationSeconds    uint32
	MinTemperature     float64
	SurfaceIntervalMin uint16

	DecoViolations uint8
	MaxDecoTime    uint16
	MaxGF          float64
	MaxCNS         float64
	MaxOTU         float64

	GasesUsed uint16 // Bitmap over gas-table indices.
	SACRate   float64

	Samples []Sample
}

// Store is the persistence collaborator a Sampler hands finished dives
// to — implemented by the logbook package.
type Store interface {
	SaveDive(p *Profile) error
}

// Sampler accumulates samples for the dive in progress at a configured
// cadence and finalises them into a Profile on request.
type Sampler struct {
	cadenceSeconds float64
	sinceLast      float64
	elapsed        float64

	profile Profile
	store   Store

	avgDepthSum     float64
	avgDepthSamples uint32
}

// New returns a Sampler recording at cadenceSeconds (default 1.0) into
// store, which may be nil if finalisation shouldn't persist (e.g. in a
// planner-only context).
func New(cadenceSeconds float64, diveNumber uint32, startTimestamp uint32, store Store) *Sampler {
	if cadenceSeconds <= 0 {
		cadenceSeconds = 1.0
	}
	return &Sampler{
		cadenceSeconds: cadenceSeconds,
		store:          store,
		profile: Profile{
			DiveNumber:     diveNumber,
			SessionID:      uuid.NewString(),
			StartTimestamp: startTimestamp,
		},
	}
}

// Profile returns a copy of the profile accumulated so far.
func (s *Sampler) Profile() Profile { return s.profile }

// NumSamples returns how many samples are currently buffered.
func (s *Sampler) NumSamples() int { return len(s.profile.Samples) }

// EffectiveCadenceSeconds returns the cadence samples are currently being
// recorded at; it doubles each time the buffer is compressed.
func (s *Sampler) EffectiveCadenceSeconds() float64 { return s.cadenceSeconds }

// Tick advances elapsed time by dtSeconds and, once a full cadence
// period has accumulated, records a sample. Returns true if a sample
// was recorded this call.
func (s *Sampler) Tick(dtSeconds, depth, temperatureC float64, gasIndex uint8, decoTimeMinutes uint8, cnsPercent uint8, events uint16) bool {
	s.elapsed += dtSeconds
	s.sinceLast += dtSeconds
	if s.sinceLast < s.cadenceSeconds {
		return false
	}
	s.sinceLast = 0
	s.record(depth, temperatureC, gasIndex, decoTimeMinutes, cnsPercent, events)
	return true
}

func (s *Sampler) record(depth, temperatureC float64, gasIndex uint8, decoTimeMinutes uint8, cnsPercent uint8, events uint16) {
	if len(s.profile.Samples) >= MaxSamples {
		s.CompressSamples()
		events |= EventBufferCompressed
	}

	s.profile.Samples = append(s.profile.Samples, Sample{
		TimeSeconds:      uint16(s.elapsed),
		DepthCM:          int16(depth * 100),
		TemperatureDeciC: int16(temperatureC * 10),
		GasIndex:         gasIndex,
		DecoTimeMinutes:  decoTimeMinutes,
		CNSPercent:       cnsPercent,
		Events:           events,
	})

	if depth > s.profile.MaxDepth {
		s.profile.MaxDepth = depth
	}
	if temperatureC < s.profile.MinTemperature || s.profile.MinTemperature == 0 {
		s.profile.MinTemperature = temperatureC
	}

	s.avgDepthSum += depth
	s.avgDepthSamples++

	if events&EventDecoCeilingViolation != 0 {
		s.profile.DecoViolations++
	}
	if decoTimeMinutes > 0 && uint16(decoTimeMinutes) > s.profile.MaxDecoTime {
		s.profile.MaxDecoTime = uint16(decoTimeMinutes)
	}
	s.profile.GasesUsed |= 1 << gasIndex
}

// CompressSamples keeps every second sample in place, halving the
// buffer and doubling the effective recording cadence for whatever
// remains of the dive. Surviving samples keep their original
// timestamps rather than being re-stamped to the new cadence.
func (s *Sampler) CompressSamples() {
	samples := s.profile.Samples
	j := 0
	for i := 0; i < len(samples); i += 2 {
		samples[j] = samples[i]
		j++
	}
	s.profile.Samples = samples[:j]
	s.cadenceSeconds *= 2
}

// Finalize completes the profile's aggregate statistics, stamps the end
// timestamp, and (if a store is configured) persists the dive. It
// returns the finished profile regardless of a storage fault: a failed
// write retains the dive in RAM and returns the store's error, never
// loses data. It raises no alarm itself.
func (s *Sampler) Finalize(endTimestamp uint32, maxGF, maxCNS, maxOTU float64) (Profile, error) {
	s.profile.EndTimestamp = endTimestamp
	s.profile.DurationSeconds = uint32(s.elapsed)
	if s.avgDepthSamples > 0 {
		s.profile.AvgDepth = s.avgDepthSum / float64(s.avgDepthSamples)
	}
	s.profile.MaxGF = maxGF
	s.profile.MaxCNS = maxCNS
	s.profile.MaxOTU = maxOTU

	if s.store == nil {
		return s.profile, nil
	}
	if err := s.store.SaveDive(&s.profile); err != nil {
		return s.profile, err
	}
	return s.profile, nil
}
