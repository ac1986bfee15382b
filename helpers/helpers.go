// Package helpers collects small numeric conversions shared by the
// decompression packages: depth/pressure conversions, unit conversions for
// the UI collaborator, and clamping/interpolation helpers used by the
// tissue model and setpoint manager.
package helpers

import "math"

// EqualFloat64 compares two float64 values to see if they are as close
// together within a defined threshold to be considered equal.
func EqualFloat64(a, b float64) bool {
	const float64EqualityThreshold float64 = 1e-9
	return math.Abs(a-b) <= float64EqualityThreshold
}

// Depth calculates the depth in metres for a given pressure in bar at 1 bar
// surface pressure.
func Depth(pressure float64) float64 {
	return (pressure - 1.0) * 10.0
}

// Pressure calculates the ambient pressure in bar for a given depth in
// metres at 1 bar surface pressure.
func Pressure(depth float64) float64 {
	return depth/10.0 + 1.0
}

// PressureAt calculates the ambient pressure in bar for a given depth in
// metres above a given surface pressure in bar.
func PressureAt(depth, surfacePressure float64) float64 {
	return surfacePressure + depth/10.0
}

// DepthFromMillibar converts an absolute pressure reading and a surface
// pressure, both in millibar, into a depth in metres, clamped to zero.
func DepthFromMillibar(ambientMbar, surfaceMbar float64) float64 {
	return math.Max(0, (ambientMbar-surfaceMbar)/100.0)
}

// PressureChangePerMin converts a rate in metres/minute into bar/minute.
func PressureChangePerMin(rate float64) float64 {
	return rate / 10.0
}

// DescOrAsc indicates whether moving from one depth to another is a
// descent (1.0), an ascent (-1.0) or level (0.0).
func DescOrAsc(fromD, toD float64) float64 {
	if EqualFloat64(fromD, toD) {
		return 0.0
	} else if fromD < toD {
		return 1.0
	} else {
		return -1.0
	}
}

// Clamp restricts v to the closed interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp linearly interpolates between lo and hi at fraction t.
func Lerp(lo, hi, t float64) float64 {
	return lo + (hi-lo)*t
}

// RoundUpToMultiple rounds v up to the nearest multiple of step. A
// non-positive step returns v unchanged.
func RoundUpToMultiple(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Ceil(v/step) * step
}

func MetresToFeet(depth float64) float64 {
	return depth * 3.281
}

func FeetToMetres(depth float64) float64 {
	return depth / 3.281
}

func LitresToCubicFeet(volume float64) float64 {
	return volume * 0.03531
}

func CubicFeetToLitres(volume float64) float64 {
	return volume / 0.03531
}

func BarToPSI(pressure float64) float64 {
	return pressure * 14.5038
}

func PSIToBar(pressure float64) float64 {
	return pressure / 14.5038
}

func CToF(c float64) float64 {
	return c*9.0/5.0 + 32.0
}

func FToC(f float64) float64 {
	return (f - 32.0) * 5.0 / 9.0
}
