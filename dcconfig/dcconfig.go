// Package dcconfig holds the dive computer's persisted configuration:
// units, display, alarms, log rate, sensor offsets, per-cell
// calibration factors, gradient factors, ascent rate, safety-stop
// parameters, and coefficient-set selection. It is serialised with
// gopkg.in/yaml.v3 using strict field checking so a hand-edited file
// with a typo fails loudly instead of silently reverting a setting.
package dcconfig

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// UnitSystem selects metric or imperial display.
type UnitSystem string

const (
	UnitsMetric   UnitSystem = "metric"
	UnitsImperial UnitSystem = "imperial"
)

// CoefSetName names which Bühlmann coefficient table to use; kept as a
// string here (rather than importing buhlmann.CoefSet) so this package
// has no dependency on the decompression engine it merely configures.
type CoefSetName string

const (
	CoefSetZHL16B CoefSetName = "ZHL-16B"
	CoefSetZHL16C CoefSetName = "ZHL-16C"
)

// DisplayConfig covers the UI collaborator's persisted display settings.
type DisplayConfig struct {
	Units                  UnitSystem `yaml:"units"`
	TemperatureFahrenheit  bool       `yaml:"temperature_fahrenheit"`
	Brightness             int        `yaml:"brightness"`              // 0-100.
	Contrast               int        `yaml:"contrast"`                // 0-100.
	BacklightTimeoutSecond int        `yaml:"backlight_timeout_seconds"`
}

// AlarmConfig covers audible/vibration alarm settings.
type AlarmConfig struct {
	AudibleEnabled   bool `yaml:"audible_enabled"`
	VibrationEnabled bool `yaml:"vibration_enabled"`
}

// SensorOffsets calibrates raw ADC/pressure readings against a known
// reference.
type SensorOffsets struct {
	PressureOffsetMbar     float64 `yaml:"pressure_offset_mbar"`
	TemperatureOffsetDeciC float64 `yaml:"temperature_offset_deci_c"`
}

// CellCalibration persists one cell's calibration factor (mV/bar)
// across power cycles, keyed by cell index.
type CellCalibration struct {
	CalibrationFactor float64 `yaml:"calibration_factor"`
	ReferencePPO2     float64 `yaml:"reference_ppo2"`
	TimestampUnix     int64   `yaml:"timestamp_unix"`
}

// DecoSettings mirrors buhlmann.DecoConfig's persisted fields plus the
// coefficient-set choice, without importing the buhlmann package.
type DecoSettings struct {
	GFLow                 float64     `yaml:"gf_low"`
	GFHigh                float64     `yaml:"gf_high"`
	LastStopDepth         float64     `yaml:"last_stop_depth"`
	AscentRate            float64     `yaml:"ascent_rate"`
	DescentRate           float64     `yaml:"descent_rate"`
	SafetyStopDepth       float64     `yaml:"safety_stop_depth"`
	SafetyStopTimeSeconds float64     `yaml:"safety_stop_time_seconds"`
	AltitudeLevel         int         `yaml:"altitude_level"`
	Conservatism          bool        `yaml:"conservatism"`
	CoefSet               CoefSetName `yaml:"coef_set"`
}

// Config is the full on-disk configuration document.
type Config struct {
	Version        string            `yaml:"version"`
	Display        DisplayConfig     `yaml:"display"`
	Alarms         AlarmConfig       `yaml:"alarms"`
	LogRateSeconds float64           `yaml:"log_rate_seconds"`
	Sensors        SensorOffsets     `yaml:"sensors"`
	Cells          []CellCalibration `yaml:"cells"`
	Deco           DecoSettings      `yaml:"deco"`
}

// Default returns the factory configuration: metric units, GF 30/70,
// ZHL-16C, 10 m/min ascent, a 3-minute safety stop at 5 m, and three
// uncalibrated cells.
func Default() Config {
	return Config{
		Version: "1",
		Display: DisplayConfig{
			Units:                  UnitsMetric,
			Brightness:             80,
			Contrast:               50,
			BacklightTimeoutSecond: 15,
		},
		Alarms: AlarmConfig{
			AudibleEnabled:   true,
			VibrationEnabled: true,
		},
		LogRateSeconds: 1.0,
		Cells: []CellCalibration{
			{CalibrationFactor: 47.6, ReferencePPO2: 0.21},
			{CalibrationFactor: 47.6, ReferencePPO2: 0.21},
			{CalibrationFactor: 47.6, ReferencePPO2: 0.21},
		},
		Deco: DecoSettings{
			GFLow:                 30,
			GFHigh:                70,
			LastStopDepth:         3,
			AscentRate:            10,
			DescentRate:           20,
			SafetyStopDepth:       5,
			SafetyStopTimeSeconds: 180,
			CoefSet:               CoefSetZHL16C,
		},
	}
}

// Load reads and strictly parses a YAML configuration file, rejecting
// unknown fields.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("dcconfig: reading %s: %w", path, err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("dcconfig: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save serialises cfg to path as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("dcconfig: marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("dcconfig: writing %s: %w", path, err)
	}
	return nil
}
