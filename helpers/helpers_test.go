package helpers

import "testing"

func TestDepth(t *testing.T) {
	tests := []struct {
		name     string
		pressure float64
		want     float64
	}{
		{name: "Perfect vaccuum", pressure: 0.0, want: -10.0},
		{name: "Surface", pressure: 1.0, want: 0.0},
		{name: "Safety stop", pressure: 1.5, want: 5.0},
		{name: "Open water", pressure: 2.8, want: 18.0},
		{name: "Advanced", pressure: 3.75, want: 27.5},
		{name: "Deep", pressure: 10.9, want: 99.0},
		{name: "World record", pressure: 34.235, want: 332.35},
		{name: "Negative", pressure: -2.2, want: -32.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Depth(tt.pressure)

			if p != tt.want {
				t.Errorf("want %f; got %f", tt.want, p)
			}
		})
	}
}

func TestPressure(t *testing.T) {
	tests := []struct {
		name  string
		depth float64
		want  float64
	}{
		{name: "Surface", depth: 0.0, want: 1.0},
		{name: "Safety stop", depth: 5.0, want: 1.5},
		{name: "Open water", depth: 18.0, want: 2.8},
		{name: "Advanced", depth: 27.5, want: 3.75},
		{name: "Deep", depth: 99.0, want: 10.9},
		{name: "World record", depth: 332.35, want: 34.235},
		{name: "Negative", depth: -12.0, want: -0.19999999999999996}, // -1.2 + 1.0 in float64.
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Pressure(tt.depth)

			if p != tt.want {
				t.Errorf("want %f; got %f", tt.want, p)
			}
		})
	}
}

func TestDepthFromMillibar(t *testing.T) {
	tests := []struct {
		name      string
		ambientMb float64
		surfaceMb float64
		want      float64
	}{
		{name: "At surface", ambientMb: 1013.0, surfaceMb: 1013.0, want: 0.0},
		{name: "10m", ambientMb: 2013.0, surfaceMb: 1013.0, want: 10.0},
		{name: "Negative clamps to zero", ambientMb: 900.0, surfaceMb: 1013.0, want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DepthFromMillibar(tt.ambientMb, tt.surfaceMb)
			if got != tt.want {
				t.Errorf("want %f; got %f", tt.want, got)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name      string
		v, lo, hi float64
		want      float64
	}{
		{name: "within range", v: 5, lo: 0, hi: 10, want: 5},
		{name: "below range", v: -1, lo: 0, hi: 10, want: 0},
		{name: "above range", v: 11, lo: 0, hi: 10, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.v, tt.lo, tt.hi)
			if got != tt.want {
				t.Errorf("want %f; got %f", tt.want, got)
			}
		})
	}
}

func TestRoundUpToMultiple(t *testing.T) {
	tests := []struct {
		name    string
		v, step float64
		want    float64
	}{
		{name: "exact multiple", v: 9.0, step: 3.0, want: 9.0},
		{name: "rounds up", v: 7.1, step: 3.0, want: 9.0},
		{name: "non-positive step is a no-op", v: 7.1, step: 0, want: 7.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundUpToMultiple(tt.v, tt.step)
			if got != tt.want {
				t.Errorf("want %f; got %f", tt.want, got)
			}
		})
	}
}
