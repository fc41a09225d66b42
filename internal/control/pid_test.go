package control

import (
	"math"
	"testing"
)

func TestPIDZeroErrorZeroOutput(t *testing.T) {
	pid := NewPID(10.0, 0.1, 5.0)
	u := pid.Compute(0.9, 0.9)
	if u != 0 {
		t.Errorf("expected zero output at setpoint, got %f", u)
	}
}

func TestPIDSignFollowsError(t *testing.T) {
	pid := NewPID(10.0, 0.1, 5.0)
	// actual above target: negative error, negative correction
	if u := pid.Compute(0.9, 1.0); u >= 0 {
		t.Errorf("expected negative output for actual above target, got %f", u)
	}
	pid.Reset()
	if u := pid.Compute(0.9, 0.5); u <= 0 {
		t.Errorf("expected positive output for actual below target, got %f", u)
	}
}

func TestPIDOutputBounded(t *testing.T) {
	pid := NewPID(1e6, 1e6, 1e6)
	for _, actual := range []float64{-1e9, -1, 0, 0.5, 1, 1e9, math.Inf(1), math.Inf(-1)} {
		u := pid.Compute(0.9, actual)
		if u < OutputMin || u > OutputMax {
			t.Errorf("output %f out of [%f, %f] for actual=%v", u, OutputMin, OutputMax, actual)
		}
	}
}

func TestPIDDeterminism(t *testing.T) {
	a := NewPID(10.0, 0.1, 5.0)
	b := NewPID(10.0, 0.1, 5.0)

	for i := 0; i < 50; i++ {
		actual := 0.5 + 0.01*float64(i)
		ua := a.Compute(0.9, actual)
		ub := b.Compute(0.9, actual)
		if ua != ub {
			t.Fatalf("step %d: outputs diverged: %f vs %f", i, ua, ub)
		}
	}

	ia, pa := a.State()
	ib, pb := b.State()
	if ia != ib || pa != pb {
		t.Errorf("state diverged: (%f, %f) vs (%f, %f)", ia, pa, ib, pb)
	}
}

func TestPIDIntegralAccumulates(t *testing.T) {
	pid := NewPID(0, 1.0, 0)
	pid.Compute(1.0, 0.0) // error 1
	pid.Compute(1.0, 0.0)
	integral, _ := pid.State()
	if integral != 2.0 {
		t.Errorf("expected integral 2.0 after two unit errors, got %f", integral)
	}
}

func TestPIDIntegralLimit(t *testing.T) {
	pid := NewPID(0, 1.0, 0)
	pid.IntegralLimit = 3.0
	for i := 0; i < 100; i++ {
		pid.Compute(1.0, 0.0)
	}
	integral, _ := pid.State()
	if integral != 3.0 {
		t.Errorf("expected integral clamped at 3.0, got %f", integral)
	}

	// clamp is symmetric
	pid.Reset()
	for i := 0; i < 100; i++ {
		pid.Compute(0.0, 1.0)
	}
	integral, _ = pid.State()
	if integral != -3.0 {
		t.Errorf("expected integral clamped at -3.0, got %f", integral)
	}
}

func TestPIDResetIdempotent(t *testing.T) {
	pid := NewPID(10.0, 0.1, 5.0)
	pid.Compute(0.9, 0.2)
	pid.Compute(0.9, 0.4)

	pid.Reset()
	i1, p1 := pid.State()
	pid.Reset()
	i2, p2 := pid.State()

	if i1 != 0 || p1 != 0 {
		t.Errorf("reset did not clear state: integral=%f prevErr=%f", i1, p1)
	}
	if i1 != i2 || p1 != p2 {
		t.Error("double reset differs from single reset")
	}
}

func TestPIDDerivativeKicksOnChange(t *testing.T) {
	pid := NewPID(0, 0, 2.0)
	u1 := pid.Compute(0.9, 0.5) // first error 0.4, derivative 0.4
	if math.Abs(u1-0.8) > 1e-12 {
		t.Errorf("expected derivative term 0.8 on first sample, got %f", u1)
	}
	u2 := pid.Compute(0.9, 0.5) // error unchanged, derivative 0
	if u2 != 0 {
		t.Errorf("expected zero derivative on steady error, got %f", u2)
	}
}

func TestRodDelta(t *testing.T) {
	tests := []struct {
		u    float64
		want int
	}{
		{0, 0},
		{0.4, 0},
		{0.5, 1},
		{-0.5, -1},
		{12.7, 13},
		{-99.9, -100},
	}
	for _, tt := range tests {
		if got := RodDelta(tt.u); got != tt.want {
			t.Errorf("RodDelta(%f) = %d, want %d", tt.u, got, tt.want)
		}
	}
}
